package probe

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bgricker/apiprobe/internal/client"
)

const (
	subscriptionPreviewLen = 8
	userinfoHeader         = "Subscription-Userinfo"
	bytesPerGB             = 1 << 30
)

var (
	errNoSubscription = errors.New("not sent: no subscription token captured")
	errNoTicket       = errors.New("not sent: no ticket id captured")
)

// Ticket is the payload of the ticket creation endpoint.
type Ticket struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// journeyGroup walks one account through subscription, support ticket and
// traffic endpoints. Later probes consume what earlier ones captured.
func journeyGroup(ep *client.Endpoints) Group {
	return Group{
		ID:           GroupJourney,
		Title:        "End-to-end account journey",
		RequiresAuth: true,
		Probes: []Probe{
			{
				Name:   "Account overview",
				Method: http.MethodGet,
				Path:   ep.UserInfo(),
				Auth:   true,
				Accept: []int{http.StatusOK},
				JSON:   true,
				Detail: func(resp client.Response, _ any) string {
					return fmt.Sprintf("status: %d, balance: %s, class: %s, transfer: %s",
						resp.StatusCode,
						fieldOr(resp, "account.money", "0"),
						fieldOr(resp, "user.class", "0"),
						gigabytes(fieldOr(resp, "traffic.transfer_enable", "0")))
				},
			},
			{
				Name:   "Fetch subscription link",
				Method: http.MethodGet,
				Path:   ep.UserSubscription(),
				Auth:   true,
				Accept: []int{http.StatusOK},
				JSON:   true,
				Check: func(resp client.Response, _ *Session) bool {
					_, ss := resp.Field("urls.ss")
					_, clash := resp.Field("urls.clash")
					token, _ := resp.Field("token")
					return ss && clash && token != ""
				},
				Detail: statusDetail,
				Capture: func(resp client.Response, s *Session) string {
					token, _ := resp.Field("token")
					if !s.SetSubscriptionToken(token) {
						return ""
					}
					return fmt.Sprintf("subscription token saved: %s...", preview(token, subscriptionPreviewLen))
				},
			},
			{
				Name:   "Fetch subscription content",
				Method: http.MethodGet,
				Path:   "/subscribe/{token}?target=ss",
				Route: func(s *Session) (string, error) {
					if s.SubscriptionToken() == "" {
						return "", errNoSubscription
					}
					return ep.Subscribe(s.SubscriptionToken()), nil
				},
				Accept: []int{http.StatusOK},
				Check: func(resp client.Response, _ *Session) bool {
					return len(resp.Lines()) > 0
				},
				Detail: subscriptionDetail,
			},
			{
				Name:   "Create support ticket",
				Method: http.MethodPost,
				Path:   ep.UserTickets(),
				Auth:   true,
				Body: func() any {
					return Ticket{
						Title:   "E2E Test Ticket",
						Content: "This is an automated end-to-end test ticket. Please reply to verify the ticket system is working.",
					}
				},
				Accept: []int{http.StatusOK, http.StatusCreated},
				JSON:   true,
				Check: func(resp client.Response, _ *Session) bool {
					_, ok := resp.Field("ticket.id")
					return ok
				},
				Detail: statusDetail,
				Capture: func(resp client.Response, s *Session) string {
					id, _ := resp.Field("ticket.id")
					if !s.SetTicketID(id) {
						return ""
					}
					return fmt.Sprintf("ticket %s opened", id)
				},
			},
			{
				Name:   "Ticket appears in list",
				Method: http.MethodGet,
				Path:   ep.UserTickets(),
				Route: func(s *Session) (string, error) {
					if s.TicketID() == "" {
						return "", errNoTicket
					}
					return ep.UserTickets(), nil
				},
				Auth:   true,
				Accept: []int{http.StatusOK},
				JSON:   true,
				Check: func(resp client.Response, s *Session) bool {
					return resp.HasID("tickets", s.TicketID())
				},
				Detail: statusDetail,
			},
			{
				Name:   "Close support ticket",
				Method: http.MethodPost,
				Path:   "/user/tickets/{id}/close",
				Route: func(s *Session) (string, error) {
					if s.TicketID() == "" {
						return "", errNoTicket
					}
					return ep.UserTicketClose(s.TicketID()), nil
				},
				Auth:   true,
				Accept: []int{http.StatusOK},
				Detail: statusDetail,
			},
			{
				Name:   "Traffic statistics",
				Method: http.MethodGet,
				Path:   ep.UserTraffic(),
				Auth:   true,
				Accept: []int{http.StatusOK},
				JSON:   true,
				Check: func(resp client.Response, _ *Session) bool {
					_, ok := resp.Number("current.used_percent")
					return ok
				},
				Detail: func(resp client.Response, _ any) string {
					pct, ok := resp.Number("current.used_percent")
					if !ok {
						return statusDetail(resp, nil)
					}
					return fmt.Sprintf("status: %d, used: %.2f%%", resp.StatusCode, pct)
				},
			},
			{
				Name:   "Reset subscription token",
				Method: http.MethodPost,
				Path:   ep.UserSubscriptionReset(),
				Auth:   true,
				Accept: []int{http.StatusOK},
				JSON:   true,
				Check: func(resp client.Response, _ *Session) bool {
					token, _ := resp.Field("token")
					return token != ""
				},
				Detail: statusDetail,
				Capture: func(resp client.Response, s *Session) string {
					token, _ := resp.Field("token")
					if !s.SetSubscriptionToken(token) {
						return ""
					}
					return fmt.Sprintf("subscription token rotated: %s...", preview(token, subscriptionPreviewLen))
				},
			},
		},
	}
}

func fieldOr(resp client.Response, path, fallback string) string {
	if v, ok := resp.Field(path); ok {
		return v
	}
	return fallback
}

// subscriptionDetail counts the returned links and summarises the usage
// header. A missing header is reported, not failed.
func subscriptionDetail(resp client.Response, _ any) string {
	lines := resp.Lines()
	ss := 0
	for _, line := range lines {
		if strings.HasPrefix(line, "ss://") {
			ss++
		}
	}
	detail := fmt.Sprintf("status: %d, links: %d (%d ss://)", resp.StatusCode, len(lines), ss)

	raw := resp.Header.Get(userinfoHeader)
	if raw == "" {
		return detail + ", no subscription-userinfo header"
	}
	info := parseUserinfo(raw)
	return fmt.Sprintf("%s, upload: %s, download: %s, total: %s",
		detail, gigabytes(info["upload"]), gigabytes(info["download"]), gigabytes(info["total"]))
}

// parseUserinfo splits "upload=1; download=2; total=3; expire=4".
func parseUserinfo(raw string) map[string]string {
	info := make(map[string]string)
	for part := range strings.SplitSeq(raw, ";") {
		if k, v, ok := strings.Cut(strings.TrimSpace(part), "="); ok {
			info[k] = v
		}
	}
	return info
}

func gigabytes(raw string) string {
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		n = 0
	}
	return fmt.Sprintf("%.2f GB", n/bytesPerGB)
}
