// Package user defines user records, the directory client boundary and
// the in-memory directory used by tests and local tooling. The directory
// itself is an external system of record; this service only reads records
// and appends to their authentication history through explicit calls.
package user

import "time"

// Well-known role names owned by the directory.
const (
	RoleService = "Service"
	RoleUser    = "User"
	RoleAdmin   = "Admin"
)

// Credentials carries a username/password pair for validation.
// Transient: never persisted, never logged.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Record is the directory's view of a user account.
//
// AuthenticationHistory is optional: nil means the directory does not track
// history for this account, and recording must leave it nil. A non-nil
// slice is append-only and non-decreasing in time.
type Record struct {
	ID                    string      `json:"id"`
	Username              string      `json:"username"`
	Password              string      `json:"password,omitempty"`
	Roles                 []string    `json:"roles"`
	Name                  string      `json:"name,omitempty"`
	Email                 string      `json:"email,omitempty"`
	Photo                 string      `json:"photo,omitempty"`
	CreatedAt             time.Time   `json:"created_at"`
	// No omitempty: a present-but-empty history must cross the wire as
	// [] so it is not mistaken for an absent one (null).
	AuthenticationHistory []time.Time `json:"authentication_history"`
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (r Record) Clone() Record {
	out := r
	if r.Roles != nil {
		out.Roles = make([]string, len(r.Roles))
		copy(out.Roles, r.Roles)
	}
	if r.AuthenticationHistory != nil {
		out.AuthenticationHistory = make([]time.Time, len(r.AuthenticationHistory))
		copy(out.AuthenticationHistory, r.AuthenticationHistory)
	}
	return out
}
