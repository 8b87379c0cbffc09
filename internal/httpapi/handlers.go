// Package httpapi is the HTTP boundary of the authentication service:
// the token endpoint, the bearer-guarded surface and the operational
// endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sartainstudios/authentication-api/internal/audit"
	"github.com/sartainstudios/authentication-api/internal/authn"
	"github.com/sartainstudios/authentication-api/internal/obs"
	"github.com/sartainstudios/authentication-api/internal/token"
	"github.com/sartainstudios/authentication-api/internal/user"
)

// ReadyProbe checks that the user directory is reachable. A not-found
// answer for the sentinel username still proves reachability.
type ReadyProbe struct {
	Directory user.Directory
	Issuer    *token.Issuer
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Directory == nil || rp.Issuer == nil {
		return nil
	}
	serviceToken, _, err := rp.Issuer.MintServiceToken()
	if err != nil {
		return err
	}
	_, err = rp.Directory.ResolveUserID(ctx, "readyz-probe", serviceToken)
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		return err
	}
	return nil
}

// Options groups API dependencies.
type Options struct {
	Authn        *authn.Service
	Issuer       *token.Issuer
	ReadyProbe   ReadyProbe
	Version      string
	MaxBodyBytes int64
}

// API is the HTTP layer.
type API struct {
	mux          *http.ServeMux
	authn        *authn.Service
	issuer       *token.Issuer
	readyProbe   ReadyProbe
	version      string
	maxBodyBytes int64
}

func New(opts Options) *API {
	a := &API{
		mux:          http.NewServeMux(),
		authn:        opts.Authn,
		issuer:       opts.Issuer,
		readyProbe:   opts.ReadyProbe,
		version:      opts.Version,
		maxBodyBytes: opts.MaxBodyBytes,
	}
	if a.maxBodyBytes <= 0 {
		a.maxBodyBytes = 1 << 16
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// authentication
	a.mux.HandleFunc("/v1/auth/token", a.handleAuthToken)
	a.mux.HandleFunc("/v1/auth/whoami", a.handleWhoami)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = obs.Instrument(h)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = SecurityHeaders(h)
	h = CORS(h)
	h = Logging(h)
	h = RequestID(h)
	return h
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "authentication-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := a.readyProbe.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "authentication-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
