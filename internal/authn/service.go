// Package authn implements the token issuance pipeline and the
// best-effort authentication history recorder on top of the user
// directory boundary.
package authn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sartainstudios/authentication-api/internal/audit"
	"github.com/sartainstudios/authentication-api/internal/obs"
	"github.com/sartainstudios/authentication-api/internal/token"
	"github.com/sartainstudios/authentication-api/internal/user"
)

// ErrInvalidCredentials is returned only when the directory explicitly
// rejects the credentials. It is terminal: nothing is retried and no
// further directory calls are made.
var ErrInvalidCredentials = errors.New("authn: invalid credentials")

// Service coordinates credential validation, identity lookup, token
// minting and history recording. It holds no mutable state and is safe
// for concurrent use.
type Service struct {
	directory user.Directory
	issuer    *token.Issuer
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger overrides the logger used for recording outcomes.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the authentication service.
func NewService(directory user.Directory, issuer *token.Issuer, opts ...Option) (*Service, error) {
	if directory == nil {
		return nil, errors.New("authn: directory is required")
	}
	if issuer == nil {
		return nil, errors.New("authn: token issuer is required")
	}
	svc := &Service{
		directory: directory,
		issuer:    issuer,
		logger:    obs.Logger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// IssuedToken is the result of a successful issuance. UserID is the
// directory id resolved during the pipeline, kept so the caller can
// trigger history recording without a second username lookup.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
	UserID    string
}

// IssueToken runs the issuance pipeline: validate credentials, resolve
// the user id, fetch the full record, mint a token from it. Each step is
// a hard gate; the first failure aborts the request. The record is never
// mutated here.
func (s *Service) IssueToken(ctx context.Context, creds user.Credentials) (IssuedToken, error) {
	serviceToken, _, err := s.issuer.MintServiceToken()
	if err != nil {
		return IssuedToken{}, fmt.Errorf("mint service token: %w", err)
	}

	valid, err := s.directory.ValidateCredentials(ctx, creds, serviceToken)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("validate credentials: %w", err)
	}
	if !valid {
		return IssuedToken{}, ErrInvalidCredentials
	}

	userID, err := s.directory.ResolveUserID(ctx, creds.Username, serviceToken)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("resolve user id: %w", err)
	}

	rec, err := s.directory.FetchRecord(ctx, userID, serviceToken)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("fetch user record: %w", err)
	}

	signed, expiresAt, err := s.issuer.Mint(rec)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("mint token: %w", err)
	}

	return IssuedToken{Token: signed, ExpiresAt: expiresAt, UserID: userID}, nil
}

// RecordAuthentication appends the current timestamp to the user's
// authentication history and persists the record. A record without a
// history is left untouched: absent stays absent, no update call is made.
//
// The caller runs this off the response path; errors here are reported
// back for logging only and never reach the authenticated client.
func (s *Service) RecordAuthentication(ctx context.Context, userID string) error {
	serviceToken, _, err := s.issuer.MintServiceToken()
	if err != nil {
		obs.HistoryRecording("error")
		return fmt.Errorf("mint service token: %w", err)
	}

	rec, err := s.directory.FetchRecord(ctx, userID, serviceToken)
	if err != nil {
		obs.HistoryRecording("error")
		return fmt.Errorf("fetch user record: %w", err)
	}
	if rec.AuthenticationHistory == nil {
		obs.HistoryRecording("skipped")
		return nil
	}

	rec.AuthenticationHistory = append(rec.AuthenticationHistory, s.now().UTC())
	if err := s.directory.UpdateRecord(ctx, rec, serviceToken); err != nil {
		obs.HistoryRecording("error")
		return fmt.Errorf("update user record: %w", err)
	}
	obs.HistoryRecording("recorded")
	_ = audit.LogEvent(ctx, "auth.history.recorded", map[string]any{
		"user_id": userID,
	})
	return nil
}

// RecordAuthenticationDetached runs RecordAuthentication on its own
// goroutine with a context detached from the request's cancellation,
// logging the outcome. Fire-and-forget: a missed recording is acceptable
// data loss.
func (s *Service) RecordAuthenticationDetached(ctx context.Context, userID string) {
	detached := context.WithoutCancel(ctx)
	go func() {
		if err := s.RecordAuthentication(detached, userID); err != nil {
			s.logger.Error("authentication history recording failed",
				"user_id", userID, "error", err)
			_ = audit.LogEvent(detached, "auth.history.record_failed", map[string]any{
				"user_id": userID,
			})
		}
	}()
}
