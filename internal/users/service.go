package users

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/b2cuseradmin/useradmin/internal/models"
	"github.com/b2cuseradmin/useradmin/pkg/metrics"
	"github.com/google/uuid"
)

// UserService is the directory capability consumed by the HTTP layer.
type UserService interface {
	GetByObjectID(ctx context.Context, objectID string) (*models.User, error)
	GetAll(ctx context.Context) ([]models.User, error)
	GetByEmail(ctx context.Context, pattern string) ([]models.User, error)
	Create(ctx context.Context, u *models.User) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, objectID string) error
}

// Service encapsulates user directory rules on top of a Repository.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(r Repository) *Service {
	return &Service{repo: r, now: func() time.Time { return time.Now().UTC() }}
}

// GetByObjectID returns (nil, nil) when the id is unknown or not a UUID.
func (s *Service) GetByObjectID(ctx context.Context, objectID string) (*models.User, error) {
	id, ok := normalizeID(objectID)
	if !ok {
		observe("get", nil)
		return nil, nil
	}
	u, err := s.repo.Get(ctx, id)
	observe("get", err)
	return u, wrap("get", err)
}

func (s *Service) GetAll(ctx context.Context) ([]models.User, error) {
	list, err := s.repo.List(ctx)
	observe("list", err)
	if err != nil {
		return nil, wrap("list", err)
	}
	return sorted(list), nil
}

// GetByEmail matches pattern as a case-insensitive substring of the email.
func (s *Service) GetByEmail(ctx context.Context, pattern string) ([]models.User, error) {
	list, err := s.repo.SearchEmail(ctx, strings.TrimSpace(pattern))
	observe("search", err)
	if err != nil {
		return nil, wrap("search", err)
	}
	return sorted(list), nil
}

// Create assigns a fresh objectId; any objectId on the input is ignored.
func (s *Service) Create(ctx context.Context, in *models.User) (*models.User, error) {
	if err := validate(in); err != nil {
		observe("create", err)
		return nil, wrap("create", err)
	}
	u := in.Clone()
	u.ObjectID = uuid.NewString()
	u.Email = strings.TrimSpace(u.Email)
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	err := s.repo.Insert(ctx, u)
	observe("create", err)
	if err != nil {
		return nil, wrap("create", err)
	}
	return u, nil
}

// Update replaces the stored record keyed by u.ObjectID. CreatedAt is preserved.
func (s *Service) Update(ctx context.Context, in *models.User) error {
	err := s.update(ctx, in)
	observe("update", err)
	return wrap("update", err)
}

func (s *Service) update(ctx context.Context, in *models.User) error {
	if err := validate(in); err != nil {
		return err
	}
	id, ok := normalizeID(in.ObjectID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, in.ObjectID)
	}
	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if cur == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	u := in.Clone()
	u.ObjectID = id
	u.Email = strings.TrimSpace(u.Email)
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = s.now()
	return s.repo.Replace(ctx, u)
}

func (s *Service) Delete(ctx context.Context, objectID string) error {
	id, ok := normalizeID(objectID)
	var err error
	if !ok {
		err = fmt.Errorf("%w: %q", ErrNotFound, objectID)
	} else {
		err = s.repo.Delete(ctx, id)
	}
	observe("delete", err)
	return wrap("delete", err)
}

func validate(u *models.User) error {
	if u == nil {
		return fmt.Errorf("%w: missing body", ErrInvalid)
	}
	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrInvalid)
	}
	return nil
}

// normalizeID returns the canonical lower-case form of a UUID objectId.
func normalizeID(id string) (string, bool) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

// ValidObjectID reports whether id is a well-formed objectId.
func ValidObjectID(id string) bool {
	_, ok := normalizeID(id)
	return ok
}

func sorted(list []models.User) []models.User {
	if list == nil {
		return []models.User{}
	}
	slices.SortFunc(list, compareUsers)
	return list
}

func observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
	}
	metrics.DirectoryOperations.WithLabelValues(op, outcome).Inc()
}
