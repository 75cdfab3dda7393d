// Package seen tracks which listing fingerprints a search session has
// already been shown, in Redis sets keyed per session.
package seen

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "jobsearch:seen:"

// Tracker stores one Redis set per session, expiring ttl after the last
// write.
type Tracker struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTracker constructs a Tracker.
func NewTracker(rdb *redis.Client, ttl time.Duration) *Tracker {
	return &Tracker{rdb: rdb, ttl: ttl}
}

func key(session string) string { return keyPrefix + session }

// Seen reports, per fingerprint, whether it was already marked for session.
func (t *Tracker) Seen(ctx context.Context, session string, fingerprints []string) ([]bool, error) {
	if len(fingerprints) == 0 {
		return nil, nil
	}
	members := make([]any, len(fingerprints))
	for i, fp := range fingerprints {
		members[i] = fp
	}
	seen, err := t.rdb.SMIsMember(ctx, key(session), members...).Result()
	if err != nil {
		return nil, fmt.Errorf("smismember %s: %w", session, err)
	}
	return seen, nil
}

// Mark records fingerprints for session and refreshes its TTL.
func (t *Tracker) Mark(ctx context.Context, session string, fingerprints []string) error {
	if len(fingerprints) == 0 {
		return nil
	}
	members := make([]any, len(fingerprints))
	for i, fp := range fingerprints {
		members[i] = fp
	}
	k := key(session)
	_, err := t.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, k, members...)
		p.Expire(ctx, k, t.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("mark %s: %w", session, err)
	}
	return nil
}
