package models

// Session identifies the caller of a core operation. It is built once per request
// from the verified token and handed to services explicitly.
type Session struct {
	UserID string
	Name   string
}

// Authenticated reports whether the session carries a user.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != ""
}
