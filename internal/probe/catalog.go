package probe

import (
	"fmt"
	"math/rand/v2"
	"net/http"

	"github.com/bgricker/apiprobe/internal/client"
)

// Group ids, usable in group filters.
const (
	GroupHealth        = "health"
	GroupNode          = "node"
	GroupRegister      = "register"
	GroupLogin         = "login"
	GroupPasswordReset = "password-reset"
	GroupUser          = "user"
	GroupMu            = "mu"
	GroupValidation    = "validation"
	GroupExtended      = "extended"
	GroupJourney       = "e2e"
)

const (
	registerPassword = "password123"
	tokenPreviewLen  = 20
)

// Credentials is the payload of the register and login endpoints.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
}

// CatalogOptions parameterise the battery.
type CatalogOptions struct {
	LoginEmail    string
	LoginPassword string
	NodeID        string
	RootMarker    string
	HealthMarker  string
	Extended      bool
	// Journey appends the end-to-end account journey, which creates and
	// closes a support ticket and rotates the subscription token.
	Journey bool
	// IntN returns a pseudo-random int in [0, n). Defaults to math/rand/v2.
	IntN func(n int) int
}

// DefaultCatalogOptions mirrors the fixed payloads of the battery.
func DefaultCatalogOptions() CatalogOptions {
	return CatalogOptions{
		LoginEmail:    "test@example.com",
		LoginPassword: "password123",
		NodeID:        "1",
		RootMarker:    "ok",
		HealthMarker:  "healthy",
	}
}

// Catalog returns the ordered probe groups.
func Catalog(opts CatalogOptions) []Group {
	defaults := DefaultCatalogOptions()
	if opts.LoginEmail == "" {
		opts.LoginEmail = defaults.LoginEmail
	}
	if opts.LoginPassword == "" {
		opts.LoginPassword = defaults.LoginPassword
	}
	if opts.NodeID == "" {
		opts.NodeID = defaults.NodeID
	}
	if opts.RootMarker == "" {
		opts.RootMarker = defaults.RootMarker
	}
	if opts.HealthMarker == "" {
		opts.HealthMarker = defaults.HealthMarker
	}
	if opts.IntN == nil {
		opts.IntN = rand.IntN
	}

	ep := client.NewEndpoints()

	groups := []Group{
		{
			ID:    GroupHealth,
			Title: "Liveness",
			Probes: []Probe{
				{
					Name:   "API root",
					Method: http.MethodGet,
					Path:   ep.Root(),
					Accept: []int{http.StatusOK},
					JSON:   true,
					Check:  fieldEquals("status", opts.RootMarker),
					Detail: noDetail,
				},
				{
					Name:   "Health endpoint",
					Method: http.MethodGet,
					Path:   ep.Health(),
					Accept: []int{http.StatusOK},
					JSON:   true,
					Check:  fieldEquals("status", opts.HealthMarker),
					Detail: noDetail,
				},
			},
		},
		{
			ID:    GroupNode,
			Title: "Node listing",
			Probes: []Probe{
				{
					Name:   "List nodes",
					Method: http.MethodGet,
					Path:   ep.NodeList(),
					Accept: []int{http.StatusOK},
					Detail: statusDetail,
				},
			},
		},
		{
			ID:    GroupRegister,
			Title: "Authentication - registration",
			Probes: []Probe{
				{
					Name:   "Register user",
					Method: http.MethodPost,
					Path:   ep.Register(),
					Body: func() any {
						return Credentials{
							Email:    fmt.Sprintf("test%d@example.com", fiveDigits(opts.IntN)),
							Password: registerPassword,
							Username: fmt.Sprintf("testuser%d", fiveDigits(opts.IntN)),
						}
					},
					Accept: []int{http.StatusCreated},
					JSON:   true,
					Detail: func(resp client.Response, sent any) string {
						creds, _ := sent.(Credentials)
						return fmt.Sprintf("status: %d, email: %s", resp.StatusCode, creds.Email)
					},
					Capture: func(resp client.Response, s *Session) string {
						token, _ := resp.Field("data.token")
						userID, _ := resp.Field("data.user.id")
						if !s.Authenticate(token, userID) {
							return ""
						}
						return "token saved for authenticated probes"
					},
				},
			},
		},
		{
			ID:    GroupLogin,
			Title: "Authentication - login",
			Probes: []Probe{
				{
					// The account may not exist, so 401 is as good as 200: the
					// probe only shows that the endpoint answers sensibly.
					Name:   "Login endpoint",
					Method: http.MethodPost,
					Path:   ep.Login(),
					Body: func() any {
						return Credentials{Email: opts.LoginEmail, Password: opts.LoginPassword}
					},
					Accept: []int{http.StatusOK, http.StatusUnauthorized},
					JSON:   true,
					Detail: statusDetail,
					Capture: func(resp client.Response, s *Session) string {
						if resp.StatusCode != http.StatusOK {
							return ""
						}
						token, _ := resp.Field("data.token")
						if !s.Authenticate(token, "") {
							return ""
						}
						return fmt.Sprintf("token saved: %s...", preview(token, tokenPreviewLen))
					},
				},
			},
		},
		{
			ID:    GroupPasswordReset,
			Title: "Authentication - password reset",
			Probes: []Probe{
				{
					Name:   "Request password reset",
					Method: http.MethodPost,
					Path:   ep.PasswordResetRequest(),
					Body: func() any {
						return map[string]string{"email": opts.LoginEmail}
					},
					Accept: []int{http.StatusOK},
					Detail: statusDetail,
				},
			},
		},
		{
			ID:           GroupUser,
			Title:        "User operations (authenticated)",
			RequiresAuth: true,
			Probes: []Probe{
				authGet("Fetch user info", ep.UserInfo()),
				{
					// 400 means today's check-in was already done.
					Name:   "Daily check-in",
					Method: http.MethodPost,
					Path:   ep.UserCheckin(),
					Auth:   true,
					Accept: []int{http.StatusOK, http.StatusBadRequest},
					Detail: statusDetail,
				},
				authGet("List user nodes", ep.UserNodes()),
				authGet("List plans", ep.UserPlans()),
				authGet("List shop items", ep.UserShop()),
			},
		},
		{
			ID:    GroupMu,
			Title: "Machine reporting",
			Probes: []Probe{
				{
					Name:   "Report node info",
					Method: http.MethodPost,
					Path:   ep.MuNodeInfo(opts.NodeID),
					Body: func() any {
						return map[string]any{"load": "0.50", "onlineUserCount": 10}
					},
					Accept: []int{http.StatusOK},
					Detail: statusDetail,
				},
				{
					Name:   "Report online users",
					Method: http.MethodPost,
					Path:   ep.MuNodeOnline(opts.NodeID),
					Body: func() any {
						return map[string]any{"count": 15}
					},
					Accept: []int{http.StatusOK},
					Detail: statusDetail,
				},
			},
		},
		{
			ID:    GroupValidation,
			Title: "Input validation",
			Probes: []Probe{
				rejectRegistration("Reject malformed email", ep.Register(), Credentials{
					Email:    "invalid-email",
					Password: "pass",
					Username: "ab",
				}),
				rejectRegistration("Reject short password", ep.Register(), Credentials{
					Email:    "valid@example.com",
					Password: "short",
					Username: "testuser",
				}),
			},
		},
	}

	if opts.Extended {
		groups = append(groups, Group{
			ID:    GroupExtended,
			Title: "Extended checks",
			Probes: []Probe{
				{
					// Some deployments hide user routes from anonymous callers.
					Name:   "Reject anonymous user info",
					Method: http.MethodGet,
					Path:   ep.UserInfo(),
					Accept: []int{http.StatusUnauthorized, http.StatusNotFound},
					Detail: statusDetail,
				},
				{
					Name:   "Unknown path returns 404",
					Method: http.MethodGet,
					Path:   ep.NotFound(),
					Accept: []int{http.StatusNotFound},
					JSON:   true,
					Check:  fieldEquals("error", "Not Found"),
					Detail: statusDetail,
				},
			},
		})
	}

	if opts.Journey {
		groups = append(groups, journeyGroup(ep))
	}

	return groups
}

func authGet(name, path string) Probe {
	return Probe{
		Name:   name,
		Method: http.MethodGet,
		Path:   path,
		Auth:   true,
		Accept: []int{http.StatusOK},
		Detail: statusDetail,
	}
}

func rejectRegistration(name, path string, creds Credentials) Probe {
	return Probe{
		Name:   name,
		Method: http.MethodPost,
		Path:   path,
		Body:   func() any { return creds },
		Accept: []int{http.StatusBadRequest, http.StatusUnprocessableEntity},
		Detail: rejectionDetail,
	}
}

func fieldEquals(path, want string) func(client.Response, *Session) bool {
	return func(resp client.Response, _ *Session) bool {
		return resp.FieldEquals(path, want)
	}
}

// fiveDigits returns a number in [10000, 99999].
func fiveDigits(intN func(int) int) int {
	return 10000 + intN(90000)
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
