package location

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"tracker-superacres/internal/shared/geo"

	"github.com/google/uuid"
)

// Simulated is a random-walk GPS provider used when no platform provider is
// wired in. Each subscription walks the shared position on its own ticker at
// the subscription's configured interval, stepping far enough to clear the
// displacement gate.
type Simulated struct {
	mu   sync.Mutex
	pos  geo.Coordinate
	dir  float64 // heading in radians, drifts each step
	subs map[Handle]chan struct{}
	rng  *rand.Rand

	// Unavailable makes CurrentFix fail; used to exercise start aborts.
	Unavailable bool
}

func NewSimulated(startLat, startLng float64) *Simulated {
	return &Simulated{
		pos:  geo.Coordinate{Latitude: startLat, Longitude: startLng},
		subs: map[Handle]chan struct{}{},
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Simulated) Subscribe(cfg FilterConfig, onFix func(geo.Coordinate)) (Handle, error) {
	handle := Handle(uuid.NewString())
	stop := make(chan struct{})

	s.mu.Lock()
	s.subs[handle] = stop
	s.mu.Unlock()

	interval := cfg.MinInterval
	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				onFix(s.step(cfg.MinDisplacementM))
			}
		}
	}()

	return handle, nil
}

func (s *Simulated) Unsubscribe(handle Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stop, ok := s.subs[handle]; ok {
		close(stop)
		delete(s.subs, handle)
	}
}

func (s *Simulated) CurrentFix(_ context.Context, _ AccuracyTier) (geo.Coordinate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Unavailable {
		return geo.Coordinate{}, ErrUnavailable
	}
	fix := s.pos
	fix.Timestamp = time.Now().UnixMilli()
	return fix, nil
}

// step advances the walk by roughly 1.5x the displacement gate so every
// emitted fix passes the subscription's own filter.
func (s *Simulated) step(minDisplacementM float64) geo.Coordinate {
	s.mu.Lock()
	defer s.mu.Unlock()

	if minDisplacementM <= 0 {
		minDisplacementM = 5
	}
	stepM := minDisplacementM * 1.5
	s.dir += (s.rng.Float64() - 0.5) * math.Pi / 4

	// ~111.32 km per degree of latitude; longitude degrees shrink by cos(lat).
	dLat := stepM * math.Cos(s.dir) / 111320
	dLng := stepM * math.Sin(s.dir) / (111320 * math.Cos(s.pos.Latitude*math.Pi/180))

	s.pos.Latitude += dLat
	s.pos.Longitude += dLng
	s.pos.Timestamp = time.Now().UnixMilli()
	return s.pos
}
