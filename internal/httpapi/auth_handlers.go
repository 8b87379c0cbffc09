package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sartainstudios/authentication-api/internal/audit"
	"github.com/sartainstudios/authentication-api/internal/authn"
	"github.com/sartainstudios/authentication-api/internal/obs"
	"github.com/sartainstudios/authentication-api/internal/token"
	"github.com/sartainstudios/authentication-api/internal/user"
)

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleAuthToken issues a bearer token for valid credentials and then
// triggers history recording off the response path. Callers only ever
// see a token, an authorization failure, or a generic service failure.
func (a *API) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		writeError(w, r, http.StatusBadRequest, "username is required")
		return
	}
	if req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "password is required")
		return
	}

	issued, err := a.authn.IssueToken(r.Context(), user.Credentials{
		Username: username,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, authn.ErrInvalidCredentials):
			obs.AuthFailure("invalid_credentials")
			_ = audit.LogEvent(r.Context(), "auth.token.rejected", map[string]any{
				"username": username,
			})
			writeError(w, r, http.StatusUnauthorized, "username or password is invalid")
		case errors.Is(err, user.ErrUnavailable):
			obs.AuthFailure("directory")
			writeError(w, r, http.StatusBadGateway, "user directory unavailable")
		default:
			obs.AuthFailure("internal")
			writeError(w, r, http.StatusInternalServerError, "token issuance failed")
		}
		return
	}

	obs.TokenIssued()
	_ = audit.LogEvent(r.Context(), "auth.token.issued", map[string]any{
		"user_id":    issued.UserID,
		"expires_at": issued.ExpiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
	})

	// Best-effort, detached from the response; the caller never observes
	// the outcome.
	a.authn.RecordAuthenticationDetached(r.Context(), issued.UserID)
}

type whoamiResponse struct {
	Kind      string    `json:"kind"`
	Subject   string    `json:"subject,omitempty"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleWhoami echoes the verified principal of the presented token.
func (a *API) handleWhoami(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := token.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return
	}
	writeJSON(w, http.StatusOK, whoamiResponse{
		Kind:      string(principal.Kind),
		Subject:   principal.UserID,
		Roles:     principal.Roles,
		ExpiresAt: principal.ExpiresAt,
	})
}
