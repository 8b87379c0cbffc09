package user

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemory implements Directory with in-process state. It stands in for
// the real directory in tests and in the directory simulator; it is not a
// production store.
type InMemory struct {
	mu      sync.RWMutex
	records map[string]*Record // keyed by id
	byName  map[string]string  // username -> id
}

// NewInMemory creates an empty in-memory directory.
func NewInMemory() *InMemory {
	return &InMemory{
		records: make(map[string]*Record),
		byName:  make(map[string]string),
	}
}

// Seed adds an account with a bcrypt-hashed password. An empty id is
// replaced with a generated one. Returns the stored record.
func (d *InMemory) Seed(rec Record, password string) (Record, error) {
	username := strings.TrimSpace(rec.Username)
	if username == "" {
		return Record{}, errors.New("username is required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return Record{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.byName[username]; exists {
		return Record{}, errors.New("username already seeded")
	}
	stored := rec.Clone()
	stored.Username = username
	stored.Password = hash
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	d.records[stored.ID] = &stored
	d.byName[username] = stored.ID
	return stored.Clone(), nil
}

func (d *InMemory) ValidateCredentials(ctx context.Context, creds Credentials, token string) (bool, error) {
	if err := requireToken(token); err != nil {
		return false, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byName[strings.TrimSpace(creds.Username)]
	if !ok {
		return false, nil
	}
	rec := d.records[id]
	if err := VerifyPassword(rec.Password, creds.Password); err != nil {
		return false, nil
	}
	return true, nil
}

func (d *InMemory) ResolveUserID(ctx context.Context, username, token string) (string, error) {
	if err := requireToken(token); err != nil {
		return "", err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byName[strings.TrimSpace(username)]
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}

func (d *InMemory) FetchRecord(ctx context.Context, id, token string) (Record, error) {
	if err := requireToken(token); err != nil {
		return Record{}, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec.Clone(), nil
}

func (d *InMemory) UpdateRecord(ctx context.Context, rec Record, token string) error {
	if err := requireToken(token); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	existing, ok := d.records[rec.ID]
	if !ok {
		return ErrNotFound
	}
	updated := rec.Clone()
	if updated.Password == "" {
		updated.Password = existing.Password
	}
	if updated.Username != existing.Username {
		delete(d.byName, existing.Username)
		d.byName[updated.Username] = updated.ID
	}
	d.records[rec.ID] = &updated
	return nil
}

func requireToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("user: bearer token is required")
	}
	return nil
}
