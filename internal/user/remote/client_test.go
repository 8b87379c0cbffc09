package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sartainstudios/authentication-api/internal/audit"
	"github.com/sartainstudios/authentication-api/internal/user"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func writeResult(t *testing.T, w http.ResponseWriter, result any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"result": result}); err != nil {
		t.Errorf("encode envelope: %v", err)
	}
}

func TestValidateCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/user/credentials/valid" {
			t.Errorf("unexpected call: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer svc-token" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		var creds user.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Errorf("decode credentials: %v", err)
		}
		if creds.Username != "alice" || creds.Password != "secret" {
			t.Errorf("unexpected credentials: %+v", creds)
		}
		writeResult(t, w, true)
	})

	valid, err := c.ValidateCredentials(context.Background(), user.Credentials{Username: "alice", Password: "secret"}, "svc-token")
	if err != nil {
		t.Fatalf("ValidateCredentials: %v", err)
	}
	if !valid {
		t.Fatal("expected valid")
	}
}

func TestValidateCredentialsLegacyStringResult(t *testing.T) {
	for _, tc := range []struct {
		result string
		want   bool
	}{
		{"true", true},
		{"false", false},
	} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeResult(t, w, tc.result)
		})
		valid, err := c.ValidateCredentials(context.Background(), user.Credentials{}, "tok")
		if err != nil {
			t.Fatalf("ValidateCredentials(%q): %v", tc.result, err)
		}
		if valid != tc.want {
			t.Fatalf("ValidateCredentials(%q) = %v, want %v", tc.result, valid, tc.want)
		}
	}
}

func TestResolveUserID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/user/username/alice" {
			t.Errorf("unexpected call: %s %s", r.Method, r.URL.Path)
		}
		writeResult(t, w, "u1")
	})

	id, err := c.ResolveUserID(context.Background(), "alice", "tok")
	if err != nil {
		t.Fatalf("ResolveUserID: %v", err)
	}
	if id != "u1" {
		t.Fatalf("id = %q, want u1", id)
	}
}

func TestFetchRecord(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/user/u1" {
			t.Errorf("unexpected call: %s %s", r.Method, r.URL.Path)
		}
		writeResult(t, w, user.Record{
			ID:                    "u1",
			Username:              "alice",
			Roles:                 []string{user.RoleUser},
			AuthenticationHistory: []time.Time{t0},
		})
	})

	rec, err := c.FetchRecord(context.Background(), "u1", "tok")
	if err != nil {
		t.Fatalf("FetchRecord: %v", err)
	}
	if rec.ID != "u1" || rec.Username != "alice" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if len(rec.AuthenticationHistory) != 1 || !rec.AuthenticationHistory[0].Equal(t0) {
		t.Fatalf("unexpected history: %v", rec.AuthenticationHistory)
	}
}

func TestUpdateRecord(t *testing.T) {
	var got user.Record
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/user" {
			t.Errorf("unexpected call: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode record: %v", err)
		}
		writeResult(t, w, "updated")
	})

	rec := user.Record{ID: "u1", Username: "alice", AuthenticationHistory: []time.Time{time.Now().UTC()}}
	if err := c.UpdateRecord(context.Background(), rec, "tok"); err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}
	if got.ID != "u1" || len(got.AuthenticationHistory) != 1 {
		t.Fatalf("server saw record %+v", got)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if rid := r.Header.Get("X-Request-Id"); rid != "req-42" {
			t.Errorf("request id not propagated, got %q", rid)
		}
		writeResult(t, w, "u1")
	})

	ctx := audit.WithRequestID(context.Background(), "req-42")
	if _, err := c.ResolveUserID(ctx, "alice", "tok"); err != nil {
		t.Fatalf("ResolveUserID: %v", err)
	}
}

func TestNotFoundMapsToErrNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.ResolveUserID(context.Background(), "nobody", "tok")
	if !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServerErrorMapsToUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.ValidateCredentials(context.Background(), user.Credentials{}, "tok")
	if !errors.Is(err, user.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestTransportErrorMapsToUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // connection refused from here on

	c, err := New(url)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.ResolveUserID(context.Background(), "alice", "tok")
	if !errors.Is(err, user.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestMalformedEnvelopeMapsToUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})

	_, err := c.FetchRecord(context.Background(), "u1", "tok")
	if !errors.Is(err, user.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestRejectedServiceTokenIsNeitherNotFoundNorUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.ResolveUserID(context.Background(), "alice", "stale-token")
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, user.ErrNotFound) || errors.Is(err, user.ErrUnavailable) {
		t.Fatalf("rejection misclassified: %v", err)
	}
}

func TestNewRejectsEmptyBaseURL(t *testing.T) {
	if _, err := New("   "); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}
