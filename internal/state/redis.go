package state

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/thoreinstein/qtkit/internal/errors"
)

// redisKeyPrefix namespaces qtkit keys on a shared server.
const redisKeyPrefix = "qtkit:state:"

// RedisStore keeps one JSON value per scope and source on a Redis server.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects lazily to the server at addr.
func NewRedisStore(addr string, db int) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{Addr: addr, DB: db})}
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(scope Scope, source Source) string {
	return redisKeyPrefix + string(source) + ":" + scope.Key()
}

// Ping checks that the server is reachable.
func (r *RedisStore) Ping(ctx context.Context) error {
	return errors.Wrap(r.client.Ping(ctx).Err(), "pinging redis")
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, scope Scope, source Source) (ScopedState, error) {
	raw, err := r.client.Get(ctx, redisKey(scope, source)).Result()
	if errors.Is(err, redis.Nil) {
		return ScopedState{}, nil
	}
	if err != nil {
		return ScopedState{}, errors.Wrapf(err, "reading state for %s", scope)
	}

	var st ScopedState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return ScopedState{}, errors.Wrapf(err, "decoding state for %s", scope)
	}
	return st, nil
}

// Set implements Store.
func (r *RedisStore) Set(ctx context.Context, scope Scope, source Source, st ScopedState) error {
	if st.LastGeneratedKitNames == nil {
		st.LastGeneratedKitNames = []string{}
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return errors.Wrap(err, "encoding state")
	}
	return errors.Wrapf(r.client.Set(ctx, redisKey(scope, source), raw, 0).Err(), "writing state for %s", scope)
}

// Reset implements Store.
func (r *RedisStore) Reset(ctx context.Context, scope Scope) error {
	keys := make([]string, 0, len(Sources()))
	for _, src := range Sources() {
		keys = append(keys, redisKey(scope, src))
	}
	return errors.Wrapf(r.client.Del(ctx, keys...).Err(), "resetting state for %s", scope)
}

// Scopes implements Store.
func (r *RedisStore) Scopes(ctx context.Context) ([]Scope, error) {
	seen := make(map[Scope]bool)
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		rest := strings.TrimPrefix(iter.Val(), redisKeyPrefix)
		_, scopeKey, ok := strings.Cut(rest, ":")
		if !ok {
			continue
		}
		if sc, err := ParseScopeKey(scopeKey); err == nil {
			seen[sc] = true
		}
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "listing state scopes")
	}

	scopes := make([]Scope, 0, len(seen))
	for sc := range seen {
		scopes = append(scopes, sc)
	}
	sortScopes(scopes)
	return scopes, nil
}

// Close implements Store.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
