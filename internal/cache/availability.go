// Package cache holds the Redis-backed availability cache used by the
// booking service.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/museum-booking/internal/booking"
	"github.com/iliyamo/museum-booking/internal/config"
	"github.com/iliyamo/museum-booking/internal/logger"
	"github.com/iliyamo/museum-booking/internal/model"
)

// versionTTL outlives any cached entry.
const versionTTL = 24 * time.Hour

// Availability implements booking.AvailabilityCache.  Redis failures are
// logged and treated as misses; the database stays authoritative.
//
// Each slot has a value key holding the JSON entry and a version key that
// Invalidate increments.  Entries carry the version they were computed
// under, so a value written after a concurrent invalidation is never
// served.
type Availability struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
	log    *logger.Logger
}

var _ booking.AvailabilityCache = (*Availability)(nil)

type entry struct {
	Version int64                `json:"version"`
	Value   booking.Availability `json:"value"`
}

func NewAvailability(rdb redis.Cmdable, cfg config.CacheConfig, log *logger.Logger) *Availability {
	if log == nil {
		log = logger.Nop()
	}
	ttl := cfg.AvailabilityTTL
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &Availability{rdb: rdb, prefix: cfg.Prefix, ttl: ttl, log: log}
}

// Key is avail:<kind>:<id>:<unix slot> under the configured prefix.
func (a *Availability) Key(kind model.Kind, itemID uint64, slot time.Time) string {
	return fmt.Sprintf("%s:avail:%s:%d:%d", a.prefix, kind, itemID, slot.UTC().Unix())
}

// VersionKey is avail:ver:<kind>:<id>:<unix slot> under the configured prefix.
func (a *Availability) VersionKey(kind model.Kind, itemID uint64, slot time.Time) string {
	return fmt.Sprintf("%s:avail:ver:%s:%d:%d", a.prefix, kind, itemID, slot.UTC().Unix())
}

func (a *Availability) Get(ctx context.Context, kind model.Kind, itemID uint64, slot time.Time) (booking.Availability, int64, bool) {
	vals, err := a.rdb.MGet(ctx, a.Key(kind, itemID, slot), a.VersionKey(kind, itemID, slot)).Result()
	if err != nil || len(vals) != 2 {
		a.log.Warn("availability cache read failed", "kind", kind, "item_id", itemID, "error", err)
		return booking.Availability{}, 0, false
	}
	var version int64
	if raw, ok := vals[1].(string); ok {
		if version, err = strconv.ParseInt(raw, 10, 64); err != nil {
			a.log.Warn("availability cache version corrupt", "kind", kind, "item_id", itemID, "error", err)
			return booking.Availability{}, 0, false
		}
	}
	raw, ok := vals[0].(string)
	if !ok {
		return booking.Availability{}, version, false
	}
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		a.log.Warn("availability cache entry corrupt", "kind", kind, "item_id", itemID, "error", err)
		return booking.Availability{}, version, false
	}
	if e.Version != version {
		return booking.Availability{}, version, false
	}
	return e.Value, version, true
}

func (a *Availability) Set(ctx context.Context, v booking.Availability, version int64) {
	bs, err := json.Marshal(entry{Version: version, Value: v})
	if err != nil {
		return
	}
	if err := a.rdb.Set(ctx, a.Key(v.Kind, v.ItemID, v.Slot), bs, a.ttl).Err(); err != nil {
		a.log.Warn("availability cache write failed", "kind", v.Kind, "item_id", v.ItemID, "error", err)
	}
}

func (a *Availability) Invalidate(ctx context.Context, kind model.Kind, itemID uint64, slot time.Time) {
	verKey := a.VersionKey(kind, itemID, slot)
	if err := a.rdb.Incr(ctx, verKey).Err(); err != nil {
		a.log.Warn("availability cache version bump failed", "kind", kind, "item_id", itemID, "error", err)
	} else if err := a.rdb.Expire(ctx, verKey, versionTTL).Err(); err != nil {
		a.log.Warn("availability cache version expiry failed", "kind", kind, "item_id", itemID, "error", err)
	}
	if err := a.rdb.Del(ctx, a.Key(kind, itemID, slot)).Err(); err != nil {
		a.log.Warn("availability cache invalidate failed", "kind", kind, "item_id", itemID, "error", err)
	}
}
