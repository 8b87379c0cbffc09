// Package token mints and verifies the bearer tokens issued by this
// service. The signing configuration is fixed at startup and read-only
// afterwards, so an Issuer is safe for concurrent use.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sartainstudios/authentication-api/internal/user"
)

const defaultIssuerName = "authentication-api"

// ErrInvalidToken indicates the token failed validation.
var ErrInvalidToken = errors.New("token: invalid token")

// Claims are the JWT claims embedded in issued tokens.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies tokens with a process-wide HS256 secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	name   string
	now    func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithIssuerName overrides the iss claim.
func WithIssuerName(name string) Option {
	return func(i *Issuer) {
		if strings.TrimSpace(name) != "" {
			i.name = strings.TrimSpace(name)
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(i *Issuer) {
		if fn != nil {
			i.now = fn
		}
	}
}

// NewIssuer constructs an Issuer from the signing secret and expiry window.
func NewIssuer(secret string, ttl time.Duration, opts ...Option) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token: signing secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token: ttl must be greater than zero")
	}
	iss := &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		name:   defaultIssuerName,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(iss)
	}
	return iss, nil
}

// TTL returns the configured expiry window.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Mint signs a token for a resolved user record. The claims are a
// function of the record's id and roles plus the issuance time.
func (i *Issuer) Mint(rec user.Record) (string, time.Time, error) {
	subject := strings.TrimSpace(rec.ID)
	if subject == "" {
		return "", time.Time{}, errors.New("token: user record has no id")
	}
	return i.sign(subject, rec.Roles)
}

// MintServiceToken signs the synthetic service-identity token: no
// subject, exactly the Service role. It authenticates this service's own
// directory calls and must never describe a real user.
func (i *Issuer) MintServiceToken() (string, time.Time, error) {
	return i.sign("", []string{user.RoleService})
}

func (i *Issuer) sign(subject string, roles []string) (string, time.Time, error) {
	now := i.now().UTC()
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		Roles: normalizeRoles(roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.name,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token: sign: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseAndValidate verifies the token signature and claims and returns
// the embedded principal.
func (i *Issuer) ParseAndValidate(raw string) (Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Principal{}, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Principal{}, ErrInvalidToken
	}
	if err := i.validateClaims(claims); err != nil {
		return Principal{}, ErrInvalidToken
	}
	principal, err := principalFromClaims(claims)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	return principal, nil
}

func (i *Issuer) validateClaims(claims *Claims) error {
	if claims.Issuer != i.name {
		return fmt.Errorf("unexpected issuer: %s", claims.Issuer)
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return errors.New("timestamps missing")
	}
	now := i.now().UTC()
	// Allow a small clock skew of 5 seconds when validating issued-at.
	if claims.IssuedAt.Time.After(now.Add(5 * time.Second)) {
		return errors.New("token issued in the future")
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return errors.New("token expiry precedes issued-at")
	}
	return nil
}

func normalizeRoles(roles []string) []string {
	var out []string
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		out = append(out, role)
	}
	return out
}
