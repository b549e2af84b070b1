// package models defines the data model for the task client
package models

import (
	"encoding/json"
	"time"
)

// User is the identity of the signed-in account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// UnmarshalJSON accepts numeric as well as string ids.
func (u *User) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    json.RawMessage `json:"id"`
		Email string          `json:"email"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	u.Email = raw.Email
	u.ID = rawID(raw.ID)
	return nil
}

// Claims holds the fields of an access token payload the client cares about.
type Claims struct {
	Subject   string     `json:"sub"`
	Email     string     `json:"email"`
	ExpiresAt *time.Time `json:"exp,omitempty"`
}

// User maps the token subject to [User.ID].
func (c *Claims) User() *User {
	if c == nil || c.Subject == "" {
		return nil
	}
	return &User{ID: c.Subject, Email: c.Email}
}

// Expired reports whether the token carries an expiry before now.
//
// Only used for display; the client never rejects a stored token on its own.
func (c *Claims) Expired(now time.Time) bool {
	return c != nil && c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// LoginResponse is the body returned by the login endpoint.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// RegisterRequest is the body sent to the registration endpoint.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// RegisterResponse keeps the raw registration body along with any id/email it carried.
type RegisterResponse struct {
	ID    string          `json:"id,omitempty"`
	Email string          `json:"email,omitempty"`
	Raw   json.RawMessage `json:"-"`
}

// rawID renders a JSON string or number as a plain string.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
