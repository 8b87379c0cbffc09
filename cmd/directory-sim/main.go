// directory-sim is a standalone in-memory user directory speaking the
// same wire protocol the authentication service consumes. It exists for
// local development: point DIRECTORY_BASE_URL at it and authenticate with
// the seeded accounts.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sartainstudios/authentication-api/internal/obs"
	"github.com/sartainstudios/authentication-api/internal/user"
)

func main() {
	log := obs.Logger()

	addr := os.Getenv("DIRECTORY_SIM_ADDR")
	if addr == "" {
		addr = ":8081"
	}

	directory := user.NewInMemory()
	seed(directory)

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler(directory),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("starting directory-sim", "addr", addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("stopped")
}

func seed(directory *user.InMemory) {
	log := obs.Logger()
	accounts := []struct {
		rec      user.Record
		password string
	}{
		{
			rec: user.Record{
				Username:              "alice",
				Roles:                 []string{user.RoleUser},
				Name:                  "Alice Example",
				Email:                 "alice@example.com",
				AuthenticationHistory: []time.Time{},
			},
			password: "secret",
		},
		{
			// bob has no history tracking; recording must leave it absent.
			rec: user.Record{
				Username: "bob",
				Roles:    []string{user.RoleUser, user.RoleAdmin},
				Name:     "Bob Example",
				Email:    "bob@example.com",
			},
			password: "hunter2",
		},
	}
	for _, acct := range accounts {
		stored, err := directory.Seed(acct.rec, acct.password)
		if err != nil {
			log.Error("seed account", "username", acct.rec.Username, "error", err)
			os.Exit(1)
		}
		log.Info("seeded account", "username", stored.Username, "id", stored.ID)
	}
}

type envelope struct {
	Message string `json:"message,omitempty"`
	Result  any    `json:"result"`
}

func handler(directory *user.InMemory) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /user/credentials/valid", func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearerToken(w, r)
		if !ok {
			return
		}
		var creds user.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeEnvelope(w, http.StatusBadRequest, envelope{Message: "malformed credentials"})
			return
		}
		valid, err := directory.ValidateCredentials(r.Context(), creds, tok)
		if err != nil {
			writeEnvelope(w, http.StatusInternalServerError, envelope{Message: err.Error()})
			return
		}
		writeEnvelope(w, http.StatusOK, envelope{Result: valid})
	})

	mux.HandleFunc("GET /user/username/{username}", func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearerToken(w, r)
		if !ok {
			return
		}
		id, err := directory.ResolveUserID(r.Context(), r.PathValue("username"), tok)
		if err != nil {
			writeDirectoryError(w, err)
			return
		}
		writeEnvelope(w, http.StatusOK, envelope{Result: id})
	})

	mux.HandleFunc("GET /user/{id}", func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearerToken(w, r)
		if !ok {
			return
		}
		rec, err := directory.FetchRecord(r.Context(), r.PathValue("id"), tok)
		if err != nil {
			writeDirectoryError(w, err)
			return
		}
		writeEnvelope(w, http.StatusOK, envelope{Result: rec})
	})

	mux.HandleFunc("PATCH /user", func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearerToken(w, r)
		if !ok {
			return
		}
		var rec user.Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			writeEnvelope(w, http.StatusBadRequest, envelope{Message: "malformed record"})
			return
		}
		if err := directory.UpdateRecord(r.Context(), rec, tok); err != nil {
			writeDirectoryError(w, err)
			return
		}
		writeEnvelope(w, http.StatusOK, envelope{Result: "updated"})
	})

	return mux
}

func bearerToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		writeEnvelope(w, http.StatusUnauthorized, envelope{Message: "bearer token required"})
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if tok == "" {
		writeEnvelope(w, http.StatusUnauthorized, envelope{Message: "bearer token required"})
		return "", false
	}
	return tok, true
}

func writeDirectoryError(w http.ResponseWriter, err error) {
	if errors.Is(err, user.ErrNotFound) {
		writeEnvelope(w, http.StatusNotFound, envelope{Message: "not found"})
		return
	}
	writeEnvelope(w, http.StatusInternalServerError, envelope{Message: err.Error()})
}

func writeEnvelope(w http.ResponseWriter, code int, env envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(env)
}
