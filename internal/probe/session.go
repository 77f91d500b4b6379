package probe

// Session holds the credential captured by registration or login. It only
// ever moves from unauthenticated to authenticated; later captures replace
// earlier ones. The account journey also keeps its subscription token and
// ticket id here.
type Session struct {
	token  string
	userID string

	subscriptionToken string
	ticketID          string
}

// Authenticate stores token and, when known, the user id. An empty token is
// ignored so a partial response can never clear an earlier credential.
func (s *Session) Authenticate(token, userID string) bool {
	if token == "" {
		return false
	}
	s.token = token
	if userID != "" {
		s.userID = userID
	}
	return true
}

// Authenticated reports whether a token has been captured.
func (s *Session) Authenticated() bool {
	return s.token != ""
}

// Token returns the captured bearer token.
func (s *Session) Token() string {
	return s.token
}

// UserID returns the captured user id, if any.
func (s *Session) UserID() string {
	return s.userID
}

// SetSubscriptionToken stores a non-empty subscription token.
func (s *Session) SetSubscriptionToken(token string) bool {
	if token == "" {
		return false
	}
	s.subscriptionToken = token
	return true
}

// SubscriptionToken returns the last captured subscription token.
func (s *Session) SubscriptionToken() string {
	return s.subscriptionToken
}

// SetTicketID stores a non-empty ticket id.
func (s *Session) SetTicketID(id string) bool {
	if id == "" {
		return false
	}
	s.ticketID = id
	return true
}

// TicketID returns the id of the ticket opened by this run.
func (s *Session) TicketID() string {
	return s.ticketID
}
