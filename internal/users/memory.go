package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/b2cuseradmin/useradmin/internal/models"
)

// MemoryRepository keeps users in process memory. Used for local development and tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]*models.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]*models.User)}
}

// NewMemoryRepositoryFromFixture parses a {"users": [...]} document. Each entry
// must carry a unique UUID objectId, stored in canonical lower-case form.
func NewMemoryRepositoryFromFixture(data []byte) (*MemoryRepository, error) {
	fixture, err := ParseFixture(data)
	if err != nil {
		return nil, err
	}
	r := NewMemoryRepository()
	for i := range fixture {
		u := fixture[i].Clone()
		if u.ObjectID == "" {
			return nil, errors.New("users: fixture contains user without objectId")
		}
		id, ok := normalizeID(u.ObjectID)
		if !ok {
			return nil, fmt.Errorf("users: fixture objectId %q is not a UUID", u.ObjectID)
		}
		if _, dup := r.store[id]; dup {
			return nil, fmt.Errorf("users: fixture objectId %s appears more than once", id)
		}
		u.ObjectID = id
		r.store[id] = u
	}
	return r, nil
}

// LoadFixtureFile reads a fixture document from disk.
func LoadFixtureFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("users: read fixture: %w", err)
	}
	return b, nil
}

// ParseFixture decodes the users of a fixture document.
func ParseFixture(data []byte) ([]models.User, error) {
	var doc struct {
		Users []models.User `json:"users"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("users: parse fixture: %w", err)
	}
	return doc.Users, nil
}

func (m *MemoryRepository) Get(_ context.Context, objectID string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.store[objectID]; ok {
		return u.Clone(), nil
	}
	return nil, nil
}

func (m *MemoryRepository) List(_ context.Context) ([]models.User, error) {
	return m.collect(func(*models.User) bool { return true }), nil
}

func (m *MemoryRepository) SearchEmail(_ context.Context, pattern string) ([]models.User, error) {
	q := strings.ToLower(pattern)
	return m.collect(func(u *models.User) bool {
		return strings.Contains(strings.ToLower(u.Email), q)
	}), nil
}

func (m *MemoryRepository) collect(match func(*models.User) bool) []models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.User, 0, len(m.store))
	for _, u := range m.store {
		if match(u) {
			out = append(out, *u.Clone())
		}
	}
	slices.SortFunc(out, compareUsers)
	return out
}

func (m *MemoryRepository) Insert(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[u.ObjectID]; ok {
		return fmt.Errorf("%w: %s", ErrConflict, u.ObjectID)
	}
	m.store[u.ObjectID] = u.Clone()
	return nil
}

func (m *MemoryRepository) Replace(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[u.ObjectID]; !ok {
		return ErrNotFound
	}
	m.store[u.ObjectID] = u.Clone()
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, objectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[objectID]; !ok {
		return ErrNotFound
	}
	delete(m.store, objectID)
	return nil
}

// compareUsers orders by email, then objectId.
func compareUsers(a, b models.User) int {
	if c := strings.Compare(a.Email, b.Email); c != 0 {
		return c
	}
	return strings.Compare(a.ObjectID, b.ObjectID)
}
