package profile

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"autoportal/pkg/resolver"
	"autoportal/pkg/role"
)

const DefaultRoleTTL = 5 * time.Minute

// CachedRoles fronts a RoleSource with Redis. Every entry is stamped with the
// user's generation counter; Invalidate bumps the counter so an entry written
// by a lookup that raced the invalidation is never served.
type CachedRoles struct {
	Source resolver.RoleSource
	Redis  *redis.Client
	TTL    time.Duration
	Prefix string
	Logger *slog.Logger
}

func NewCachedRoles(source resolver.RoleSource, rdb *redis.Client, logger *slog.Logger) *CachedRoles {
	return &CachedRoles{
		Source: source,
		Redis:  rdb,
		TTL:    DefaultRoleTTL,
		Prefix: "autoportal",
		Logger: logger,
	}
}

func (c *CachedRoles) roleKey(userID string) string {
	return c.Prefix + ":role:" + userID
}

func (c *CachedRoles) genKey(userID string) string {
	return c.Prefix + ":rolegen:" + userID
}

func (c *CachedRoles) RoleForUser(ctx context.Context, userID string) (role.Role, error) {
	vals, err := c.Redis.MGet(ctx, c.roleKey(userID), c.genKey(userID)).Result()
	if err != nil {
		c.Logger.Warn("role cache unavailable", "user", userID, "error", err)
		return c.Source.RoleForUser(ctx, userID)
	}

	gen := asString(vals[1])
	if entry := asString(vals[0]); entry != "" {
		if entryGen, raw, ok := strings.Cut(entry, "|"); ok && entryGen == gen {
			return role.Parse(raw), nil
		}
	}

	r, err := c.Source.RoleForUser(ctx, userID)
	if err != nil {
		return role.None, err
	}

	// Stamp with the generation observed before the source read.
	if err := c.Redis.Set(ctx, c.roleKey(userID), gen+"|"+r.String(), c.TTL).Err(); err != nil {
		c.Logger.Warn("role cache write failed", "user", userID, "error", err)
	}
	return r, nil
}

// Invalidate forgets the cached role of userID.
func (c *CachedRoles) Invalidate(ctx context.Context, userID string) error {
	pipe := c.Redis.TxPipeline()
	pipe.Incr(ctx, c.genKey(userID))
	pipe.Del(ctx, c.roleKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("invalidate role cache: %w", err)
	}
	return nil
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

// Invalidator is implemented by role caches that must be told about session
// and profile changes.
type Invalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, string) error { return nil }

// NoopInvalidator is used when roles are read straight from the repository.
var NoopInvalidator Invalidator = noopInvalidator{}
