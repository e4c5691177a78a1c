package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const bridgeKeyPrefix = "payground:session:"

// Bridge persists a session immediately before a gateway redirect and hands
// it back exactly once on return. The persisted copy is the only state that
// crosses the redirect boundary; GETDEL transfers ownership atomically so a
// manual back-navigation cannot replay it.
type Bridge struct {
	R      *redis.Client
	TTL    time.Duration
	Logger zerolog.Logger
}

// Persist serialises the session under the tab's key. The TTL bounds how
// long an abandoned redirect keeps the copy alive.
func (b Bridge) Persist(ctx context.Context, tab string, state State) error {
	if b.R == nil {
		return errors.New("session: redis client not configured")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	ttl := b.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if err := b.R.Set(ctx, bridgeKeyPrefix+tab, data, ttl).Err(); err != nil {
		return fmt.Errorf("session: persist: %w", err)
	}
	return nil
}

// Restore reads and deletes the persisted session in one round trip. A
// missing copy returns nil; a copy that fails to deserialise is logged and
// also returns nil, so the caller falls back to a fresh default session
// instead of surfacing a fatal error.
func (b Bridge) Restore(ctx context.Context, tab string) (*State, error) {
	if b.R == nil {
		return nil, errors.New("session: redis client not configured")
	}
	data, err := b.R.GetDel(ctx, bridgeKeyPrefix+tab).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: restore: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		b.Logger.Warn().Err(err).Str("tab", tab).Msg("discarding undecodable persisted session")
		return nil, nil
	}
	return &state, nil
}
