// Package cache provides the keyed artifact cache shared by the analytics
// subsystems. Each subsystem owns its keys and its own TTL policy; the store
// only records values with their stored-at timestamp and replaces entries
// atomically, so readers never observe a partially written value.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Entry is a cached artifact with the time it was stored. Freshness is
// decided by the owning subsystem comparing StoredAt against its TTL.
type Entry struct {
	Value    json.RawMessage `json:"value"`
	StoredAt time.Time       `json:"stored_at"`
}

// Fresh reports whether the entry is younger than ttl at the given instant.
// A non-positive ttl means the entry never expires.
func (e Entry) Fresh(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return true
	}
	return now.Sub(e.StoredAt) < ttl
}

// Store is the injected cache capability. Implementations must make Put a
// full-entry replacement; Get returns ok=false on a miss.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, entry Entry) error
	Delete(ctx context.Context, key string) error
}

// GetJSON fetches key and unmarshals a fresh entry into dest. It returns
// ok=false on a miss, a stale entry, or an unmarshalable value, so callers
// fall through to recomputation in all three cases.
func GetJSON(ctx context.Context, s Store, key string, ttl time.Duration, now time.Time, dest interface{}) (bool, error) {
	entry, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if !entry.Fresh(now, ttl) {
		return false, nil
	}
	if err := json.Unmarshal(entry.Value, dest); err != nil {
		return false, nil
	}
	return true, nil
}

// PutJSON marshals value and stores it under key stamped with now.
func PutJSON(ctx context.Context, s Store, key string, value interface{}, now time.Time) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Put(ctx, key, Entry{Value: raw, StoredAt: now})
}
