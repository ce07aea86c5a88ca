package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fatflowers/roulette/pkg/tool"
)

var ErrLockHeld = errors.New("kv: lock held")

// Store is the small key value surface the services need.
type Store interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Del(ctx context.Context, key string) error
	// CompareAndDelete removes key only while it still holds value.
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
}

// PutJSON stores v encoded as JSON.
func PutJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: marshal %s: %w", key, err)
	}
	return s.Set(ctx, key, string(b), ttl)
}

// GetJSON decodes key into out and reports whether it existed.
func GetJSON(ctx context.Context, s Store, key string, out any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("kv: unmarshal %s: %w", key, err)
	}
	return true, nil
}

// TryLock takes a short-lived lock owned by a random token. The returned
// unlock only releases the lock if it is still ours.
func TryLock(ctx context.Context, s Store, key string, ttl time.Duration) (func(context.Context), error) {
	token := tool.GenerateUUIDV7()
	ok, err := s.SetNX(ctx, key, token, ttl)
	if err != nil {
		return nil, fmt.Errorf("kv: lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func(ctx context.Context) {
		_, _ = s.CompareAndDelete(ctx, key, token)
	}, nil
}
