package token

import (
	"errors"
	"time"

	"github.com/sartainstudios/authentication-api/internal/user"
)

// Kind distinguishes real users from the synthetic service identity.
type Kind string

const (
	// KindUser is a principal backed by a directory user record.
	KindUser Kind = "user"
	// KindService is the synthetic role-only identity this service uses
	// for its own directory calls. It is never backed by directory data.
	KindService Kind = "service"
)

// Principal is the verified identity carried by a bearer token.
type Principal struct {
	Kind      Kind
	UserID    string
	Roles     []string
	ExpiresAt time.Time
}

// IsService reports whether the principal is the service identity.
func (p Principal) IsService() bool { return p.Kind == KindService }

// HasRole reports whether the principal carries the given role.
func (p Principal) HasRole(role string) bool {
	for _, have := range p.Roles {
		if have == role {
			return true
		}
	}
	return false
}

// principalFromClaims classifies verified claims. A service token has no
// subject and exactly the Service role; anything subject-less that does
// not match that shape is rejected rather than mistaken for a user.
func principalFromClaims(claims *Claims) (Principal, error) {
	p := Principal{
		UserID:    claims.Subject,
		Roles:     claims.Roles,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.Subject == "" {
		if len(claims.Roles) != 1 || claims.Roles[0] != user.RoleService {
			return Principal{}, errors.New("subject missing")
		}
		p.Kind = KindService
		return p, nil
	}
	p.Kind = KindUser
	return p, nil
}
