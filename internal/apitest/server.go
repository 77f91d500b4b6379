// Package apitest runs an in-process fake of the API under test. By default
// every endpoint answers the way a healthy deployment would; tests override
// single routes to script failures.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Token values handed out by the fake.
const (
	RegisterToken = "register-token-0123456789abcdef"
	LoginToken    = "login-token-abcdefghijklmnopqrstuvwxyz"
	UserID        = "42"

	// SubscriptionToken is the feed token before any reset;
	// RotatedSubscriptionToken replaces it on reset.
	SubscriptionToken        = "sub-0123456789abcdef"
	RotatedSubscriptionToken = "sub-fedcba9876543210"

	// Userinfo is the usage header served with the subscription feed.
	Userinfo = "upload=1073741824; download=2147483648; total=10737418240; expire=1767225600"
)

// Request is a request seen by the fake.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   string
}

// Reply is a canned response.
type Reply struct {
	Status int
	Body   string
}

// TB is the subset of testing.TB the fake needs. GinkgoT() satisfies it.
type TB interface {
	Helper()
	Cleanup(func())
	Fatalf(format string, args ...any)
}

// Server is a fake API bound to a loopback listener.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	overrides map[string]Reply
	requests  []Request
	tokens    map[string]bool
	subToken  string
	tickets   []ticket
}

type ticket struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	ReplyCount int    `json:"replyCount"`
}

// New starts a fake API and registers its shutdown with t.
func New(t TB) *Server {
	t.Helper()

	s := &Server{
		overrides: make(map[string]Reply),
		tokens:    make(map[string]bool),
		subToken:  SubscriptionToken,
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// Override makes the route registered as method + pattern answer with the
// given status and raw body. Patterns use chi syntax, for example
// "/node/mu/nodes/{id}/info".
func (s *Server) Override(method, pattern string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[method+" "+pattern] = Reply{Status: status, Body: body}
}

// Requests returns a copy of the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Find returns the first recorded request for method and path.
func (s *Server) Find(method, path string) (Request, bool) {
	for _, req := range s.Requests() {
		if req.Method == method && req.Path == path {
			return req, true
		}
	}
	return Request{}, false
}

// UnreachableURL returns the address of a listener that has already been
// closed, so every connection attempt is refused.
func UnreachableURL(t TB) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	if err := l.Close(); err != nil {
		t.Fatalf("close listener: %v", err)
	}
	return "http://" + addr
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	s.handle(r, http.MethodGet, "/", s.static(http.StatusOK, `{"status":"ok","message":"API is running"}`))
	s.handle(r, http.MethodGet, "/health", s.static(http.StatusOK, `{"status":"healthy"}`))
	s.handle(r, http.MethodGet, "/node/list", s.static(http.StatusOK, `{"data":[]}`))
	s.handle(r, http.MethodPost, "/node/mu/nodes/{id}/info", s.static(http.StatusOK, `{"ret":1}`))
	s.handle(r, http.MethodPost, "/node/mu/nodes/{id}/online", s.static(http.StatusOK, `{"ret":1}`))

	s.handle(r, http.MethodPost, "/auth/register", s.register)
	s.handle(r, http.MethodPost, "/auth/login", s.issue(LoginToken, http.StatusOK))
	s.handle(r, http.MethodPost, "/auth/reset-password/request", s.static(http.StatusOK, `{"message":"reset email sent"}`))

	s.handle(r, http.MethodGet, "/user/info", s.requireToken(s.static(http.StatusOK, fmt.Sprintf(
		`{"data":{"id":%s},"user":{"class":1},"account":{"money":"10.00"},"traffic":{"transfer_enable":10737418240}}`, UserID))))
	s.handle(r, http.MethodPost, "/user/checkin", s.requireToken(s.static(http.StatusOK, `{"data":{"traffic":1024}}`)))
	s.handle(r, http.MethodGet, "/user/nodes", s.requireToken(s.static(http.StatusOK, `{"data":[]}`)))
	s.handle(r, http.MethodGet, "/user/plans", s.requireToken(s.static(http.StatusOK, `{"data":[]}`)))
	s.handle(r, http.MethodGet, "/user/shop", s.requireToken(s.static(http.StatusOK, `{"data":[]}`)))

	s.handle(r, http.MethodGet, "/user/subscription", s.requireToken(s.subscription))
	s.handle(r, http.MethodPost, "/user/subscription/reset", s.requireToken(s.resetSubscription))
	s.handle(r, http.MethodGet, "/subscribe/{token}", s.subscribe)
	s.handle(r, http.MethodPost, "/user/tickets", s.requireToken(s.openTicket))
	s.handle(r, http.MethodGet, "/user/tickets", s.requireToken(s.listTickets))
	s.handle(r, http.MethodPost, "/user/tickets/{id}/close", s.requireToken(s.closeTicket))
	s.handle(r, http.MethodGet, "/user/traffic", s.requireToken(s.static(http.StatusOK,
		`{"current":{"upload":1073741824,"download":2147483648,"total_used":3221225472,"remaining":7516192768,"used_percent":30}}`)))

	r.NotFound(s.static(http.StatusNotFound, `{"error":"Not Found"}`))
	return r
}

// handle registers h under method and pattern behind any override set for
// that exact route.
func (s *Server) handle(r chi.Router, method, pattern string, h http.HandlerFunc) {
	key := method + " " + pattern
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		reply, ok := s.overrides[key]
		s.mu.Unlock()
		if ok {
			writeJSON(w, reply.Status, reply.Body)
			return
		}
		h(w, req)
	}))
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   string(body),
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		known := ok && s.tokens[token]
		s.mu.Unlock()
		if !known {
			writeJSON(w, http.StatusUnauthorized, `{"error":"Unauthorized"}`)
			return
		}
		next(w, r)
	}
}

type registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, `{"error":"invalid body"}`)
		return
	}
	if !strings.Contains(req.Email, "@") || len(req.Password) < 8 || len(req.Username) < 3 {
		writeJSON(w, http.StatusBadRequest, `{"error":"validation failed"}`)
		return
	}
	s.issue(RegisterToken, http.StatusCreated)(w, r)
}

func (s *Server) issue(token string, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		s.tokens[token] = true
		s.mu.Unlock()
		writeJSON(w, status, fmt.Sprintf(`{"data":{"token":%q,"user":{"id":%s}}}`, token, UserID))
	}
}

// Tickets returns the status of every ticket opened so far, keyed by id.
// Status 1 is open, 0 is closed.
func (s *Server) Tickets() map[int]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]int, len(s.tickets))
	for _, t := range s.tickets {
		out[t.ID] = t.Status
	}
	return out
}

func (s *Server) subscription(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	token := s.subToken
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, fmt.Sprintf(
		`{"token":%q,"urls":{"ss":"%s/subscribe/%s?target=ss","clash":"%s/subscribe/%s?target=clash"}}`,
		token, s.URL, token, s.URL, token))
}

func (s *Server) resetSubscription(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.subToken = RotatedSubscriptionToken
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, fmt.Sprintf(`{"token":%q}`, RotatedSubscriptionToken))
}

func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	current := s.subToken
	s.mu.Unlock()
	if chi.URLParam(r, "token") != current {
		writeJSON(w, http.StatusNotFound, `{"error":"Not Found"}`)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Subscription-Userinfo", Userinfo)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ss://YWVzLTI1Ni1nY206c2VjcmV0@node1.example.com:8388#node1\n"+
		"ss://YWVzLTI1Ni1nY206c2VjcmV0@node2.example.com:8388#node2\n")
}

func (s *Server) openTicket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, `{"error":"title and content are required"}`)
		return
	}

	s.mu.Lock()
	t := ticket{ID: len(s.tickets) + 1, Title: req.Title, Status: 1}
	s.tickets = append(s.tickets, t)
	s.mu.Unlock()

	body, _ := json.Marshal(map[string]ticket{"ticket": t})
	writeJSON(w, http.StatusCreated, string(body))
}

func (s *Server) listTickets(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	list := append([]ticket{}, s.tickets...)
	s.mu.Unlock()

	body, _ := json.Marshal(map[string][]ticket{"tickets": list})
	writeJSON(w, http.StatusOK, string(body))
}

func (s *Server) closeTicket(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tickets {
		if err == nil && s.tickets[i].ID == id {
			s.tickets[i].Status = 0
			writeJSON(w, http.StatusOK, `{"message":"ticket closed"}`)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, `{"error":"ticket not found"}`)
}

func (s *Server) static(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, status, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
