package users

import (
	"context"
	"encoding/json"
	"time"

	"github.com/b2cuseradmin/useradmin/internal/models"
	"github.com/b2cuseradmin/useradmin/pkg/logger"
	"github.com/b2cuseradmin/useradmin/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// CachedRepository caches point lookups in Redis as JSON under "<prefix><objectId>".
// Writes go to the wrapped repository first, then bump a per-user version key
// ("<prefix>v:<objectId>") and drop the cached entry. A read only fills the cache
// if the version it saw before reading the repository is still current, so a
// fill racing a write cannot resurrect the old record.
// Redis failures never fail a request; the wrapped repository is authoritative.
type CachedRepository struct {
	next   Repository
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewCachedRepository wraps next. Prefix may be empty.
func NewCachedRepository(next Repository, client *redis.Client, prefix string, ttl time.Duration) *CachedRepository {
	if prefix == "" {
		prefix = "user:"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedRepository{next: next, client: client, prefix: prefix, ttl: ttl}
}

func (r *CachedRepository) key(objectID string) string {
	return r.prefix + objectID
}

func (r *CachedRepository) versionKey(objectID string) string {
	return r.prefix + "v:" + objectID
}

func (r *CachedRepository) Get(ctx context.Context, objectID string) (*models.User, error) {
	b, err := r.client.Get(ctx, r.key(objectID)).Bytes()
	switch {
	case err == nil:
		var u models.User
		if jerr := json.Unmarshal(b, &u); jerr == nil {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return &u, nil
		}
		_ = r.client.Del(ctx, r.key(objectID)).Err()
	case err != redis.Nil:
		logger.Warnf("user cache read failed for %s: %v", objectID, err)
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	seen, verr := r.client.Get(ctx, r.versionKey(objectID)).Result()
	if verr != nil && verr != redis.Nil {
		logger.Warnf("user cache version read failed for %s: %v", objectID, verr)
	}

	u, err := r.next.Get(ctx, objectID)
	if err != nil || u == nil {
		return u, err
	}
	if verr == nil || verr == redis.Nil {
		r.fill(ctx, objectID, u, seen)
	}
	return u, nil
}

// fill stores u unless a write bumped the version since seen was read.
func (r *CachedRepository) fill(ctx context.Context, objectID string, u *models.User, seen string) {
	b, err := json.Marshal(u)
	if err != nil {
		return
	}
	vkey := r.versionKey(objectID)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vkey).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != seen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key(objectID), b, r.ttl)
			return nil
		})
		return err
	}, vkey)
	switch {
	case err == nil, err == redis.TxFailedErr:
	default:
		logger.Warnf("user cache write failed for %s: %v", objectID, err)
	}
}

func (r *CachedRepository) List(ctx context.Context) ([]models.User, error) {
	return r.next.List(ctx)
}

func (r *CachedRepository) SearchEmail(ctx context.Context, pattern string) ([]models.User, error) {
	return r.next.SearchEmail(ctx, pattern)
}

func (r *CachedRepository) Insert(ctx context.Context, u *models.User) error {
	return r.next.Insert(ctx, u)
}

func (r *CachedRepository) Replace(ctx context.Context, u *models.User) error {
	if err := r.next.Replace(ctx, u); err != nil {
		return err
	}
	r.evict(ctx, u.ObjectID)
	return nil
}

func (r *CachedRepository) Delete(ctx context.Context, objectID string) error {
	if err := r.next.Delete(ctx, objectID); err != nil {
		return err
	}
	r.evict(ctx, objectID)
	return nil
}

// evict bumps the version before dropping the entry so in-flight fills are discarded.
// The version key outlives any entry filled under the previous version.
func (r *CachedRepository) evict(ctx context.Context, objectID string) {
	vkey := r.versionKey(objectID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, vkey)
		pipe.Expire(ctx, vkey, 2*r.ttl)
		pipe.Del(ctx, r.key(objectID))
		return nil
	})
	if err != nil {
		logger.Warnf("user cache evict failed for %s: %v", objectID, err)
	}
}
