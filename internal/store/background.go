package store

import (
	"context"
	"encoding/json"
	"fmt"

	"tracker-superacres/internal/shared/geo"
)

const (
	backgroundBufferKey = "tracker:background:points"
	lastResultKey       = "tracker:last_result"
)

// BackgroundBuffer is the durable, suspend-safe point sequence written by the
// background location channel. It lives entirely in the KV store so a write
// can land while the in-memory session is suspended; the session reads it
// back exactly once, at merge time.
type BackgroundBuffer struct {
	kv KV
}

func NewBackgroundBuffer(kv KV) *BackgroundBuffer {
	return &BackgroundBuffer{kv: kv}
}

// Append loads the stored array, appends the fix and writes it back. The
// background channel is the only writer, so read-modify-write is safe.
func (b *BackgroundBuffer) Append(ctx context.Context, fix geo.Coordinate) error {
	points, err := b.Load(ctx)
	if err != nil {
		return err
	}
	points = append(points, fix)
	raw, err := json.Marshal(points)
	if err != nil {
		return err
	}
	return b.kv.Set(ctx, backgroundBufferKey, raw)
}

// Load returns the stored points in append order. A missing key yields an
// empty slice; a corrupt payload returns a decode error so the caller can
// log it and fall back to the foreground route.
func (b *BackgroundBuffer) Load(ctx context.Context) ([]geo.Coordinate, error) {
	raw, err := b.kv.Get(ctx, backgroundBufferKey)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var points []geo.Coordinate
	if err := json.Unmarshal(raw, &points); err != nil {
		return nil, fmt.Errorf("background buffer decode: %w", err)
	}
	return points, nil
}

func (b *BackgroundBuffer) Clear(ctx context.Context) error {
	return b.kv.Remove(ctx, backgroundBufferKey)
}

// SaveLastResult hands the scoring response off to the downstream summary
// consumer.
func SaveLastResult(ctx context.Context, kv KV, payload []byte) error {
	return kv.Set(ctx, lastResultKey, payload)
}

// ConsumeLastResult reads and clears the hand-off key so an aborted later run
// cannot redisplay a stale result. Returns (nil, nil) when nothing is stored.
func ConsumeLastResult(ctx context.Context, kv KV) ([]byte, error) {
	raw, err := kv.Get(ctx, lastResultKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	if err := kv.Remove(ctx, lastResultKey); err != nil {
		return nil, err
	}
	return raw, nil
}
