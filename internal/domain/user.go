package domain

// User is the authenticated account as returned by the backend.
type User struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	OrgID   string `json:"org_id"`
	OrgName string `json:"org_name"`
}

// Session is the identity held by the auth store. Authenticated implies a
// non-empty Token.
type Session struct {
	Authenticated bool   `json:"isAuthenticated"`
	User          *User  `json:"user"`
	Token         string `json:"accessToken,omitempty"`
}

// Valid reports false for an authenticated session without a token.
func (s Session) Valid() bool {
	return !s.Authenticated || s.Token != ""
}
