package location

import (
	"context"
	"log"
	"time"

	"tracker-superacres/internal/shared/geo"
	"tracker-superacres/internal/store"
)

// BackgroundChannel couples a location source to the durable background
// buffer. It is a process-wide service with explicit Begin/Cancel, injected
// into the session controller; fixes never touch in-memory session state and
// are read back exactly once, at merge time.
type BackgroundChannel struct {
	src Source
	buf *store.BackgroundBuffer

	handle Handle
	active bool
}

func NewBackgroundChannel(src Source, buf *store.BackgroundBuffer) *BackgroundChannel {
	return &BackgroundChannel{src: src, buf: buf}
}

// Begin clears any stale buffered points and starts the background
// subscription. Failure here is surfaced so the caller can fall back to
// foreground-only tracking.
func (b *BackgroundChannel) Begin(ctx context.Context) error {
	if b.active {
		return nil
	}
	if err := b.buf.Clear(ctx); err != nil {
		return err
	}

	handle, err := b.src.Subscribe(BackgroundFilter, func(fix geo.Coordinate) {
		if fix.Timestamp == 0 {
			fix.Timestamp = time.Now().UnixMilli()
		}
		writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.buf.Append(writeCtx, fix); err != nil {
			log.Printf("background buffer append failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	b.handle = handle
	b.active = true
	return nil
}

// Cancel stops the subscription. A trailing write already in flight may still
// land afterwards; the merge's distance threshold absorbs it.
func (b *BackgroundChannel) Cancel() {
	if !b.active {
		return
	}
	b.src.Unsubscribe(b.handle)
	b.active = false
}

// Drain reads the buffered points once for merging.
func (b *BackgroundChannel) Drain(ctx context.Context) ([]geo.Coordinate, error) {
	return b.buf.Load(ctx)
}

// ClearBuffer wipes the durable buffer after a successful merge/submission.
func (b *BackgroundChannel) ClearBuffer(ctx context.Context) error {
	return b.buf.Clear(ctx)
}

func (b *BackgroundChannel) Active() bool { return b.active }
