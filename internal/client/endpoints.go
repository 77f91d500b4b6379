package client

import (
	"fmt"
	"net/url"
)

// Endpoints contains all API endpoint paths.
type Endpoints struct{}

// NewEndpoints creates a new Endpoints instance.
func NewEndpoints() *Endpoints {
	return &Endpoints{}
}

// Liveness endpoints.
func (e *Endpoints) Root() string {
	return "/"
}

func (e *Endpoints) Health() string {
	return "/health"
}

// Public node listing.
func (e *Endpoints) NodeList() string {
	return "/node/list"
}

// Authentication endpoints.
func (e *Endpoints) Register() string {
	return "/auth/register"
}

func (e *Endpoints) Login() string {
	return "/auth/login"
}

func (e *Endpoints) PasswordResetRequest() string {
	return "/auth/reset-password/request"
}

// User endpoints, all bearer authenticated.
func (e *Endpoints) UserInfo() string {
	return "/user/info"
}

func (e *Endpoints) UserCheckin() string {
	return "/user/checkin"
}

func (e *Endpoints) UserNodes() string {
	return "/user/nodes"
}

func (e *Endpoints) UserPlans() string {
	return "/user/plans"
}

func (e *Endpoints) UserShop() string {
	return "/user/shop"
}

func (e *Endpoints) UserSubscription() string {
	return "/user/subscription"
}

func (e *Endpoints) UserSubscriptionReset() string {
	return "/user/subscription/reset"
}

func (e *Endpoints) UserTickets() string {
	return "/user/tickets"
}

func (e *Endpoints) UserTicketClose(ticketID string) string {
	return fmt.Sprintf("/user/tickets/%s/close", url.PathEscape(ticketID))
}

func (e *Endpoints) UserTraffic() string {
	return "/user/traffic"
}

// Subscribe is the public subscription feed in Shadowsocks link format.
func (e *Endpoints) Subscribe(token string) string {
	return fmt.Sprintf("/subscribe/%s?target=ss", url.PathEscape(token))
}

// Machine reporting endpoints used by node daemons.
func (e *Endpoints) MuNodeInfo(nodeID string) string {
	return fmt.Sprintf("/node/mu/nodes/%s/info", url.PathEscape(nodeID))
}

func (e *Endpoints) MuNodeOnline(nodeID string) string {
	return fmt.Sprintf("/node/mu/nodes/%s/online", url.PathEscape(nodeID))
}

// NotFound is a path no API should route.
func (e *Endpoints) NotFound() string {
	return "/notfound"
}
