package redis

import (
	"context"
	"strconv"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION XP MIRROR
// ══════════════════════════════════════════════════════════════════════════════

// SessionCache implements port.SessionNotifier. The web session layer reads
// the mirrored XP total for display; the engine only ever writes it after a
// committed change, so the mirror can lag but never lie.
type SessionCache struct {
	cache *Cache
}

// NewSessionCache creates a new SessionCache.
func NewSessionCache(cache *Cache) *SessionCache {
	return &SessionCache{cache: cache}
}

// NotifyXPChanged mirrors a learner's new experience total.
func (s *SessionCache) NotifyXPChanged(ctx context.Context, learnerID string, newTotal int) error {
	return s.cache.SetString(ctx, SessionXPKey(learnerID), strconv.Itoa(newTotal), TTLSessionXP)
}

// CurrentXP returns the mirrored total, or false when no mirror exists.
func (s *SessionCache) CurrentXP(ctx context.Context, learnerID string) (int, bool, error) {
	val, err := s.cache.GetString(ctx, SessionXPKey(learnerID))
	if err == ErrCacheMiss {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	total, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, err
	}
	return total, true, nil
}
