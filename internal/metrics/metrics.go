package metrics

import (
	"math"
	"time"

	"tracker-superacres/internal/shared/geo"
)

// caloriesPerKm is a flat display-only estimate for a typical runner. The
// backend never sees it.
const caloriesPerKm = 62

// Snapshot is the live view handed to callers on every tick and on demand.
type Snapshot struct {
	ElapsedSeconds int64   `json:"elapsed_seconds"`
	DistanceKm     float64 `json:"distance_km"`
	PaceMinPerKm   float64 `json:"pace_min_per_km"`
	Calories       int     `json:"calories"`
	SampleCount    int     `json:"sample_count"`
	Status         string  `json:"status"`
}

// Engine accumulates live run metrics from the foreground sample stream.
// Distance here is display-only; the authoritative figure is recomputed by
// the scoring service from the submitted route. The engine is owned by the
// session loop and is not safe for concurrent use.
type Engine struct {
	now func() time.Time

	startedAt  time.Time
	distanceKm float64
	samples    int
	last       geo.Coordinate
}

func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

// Start resets the engine for a new session.
func (e *Engine) Start(startedAt time.Time) {
	e.startedAt = startedAt
	e.distanceKm = 0
	e.samples = 0
	e.last = geo.Coordinate{}
}

// Observe folds one foreground fix into the running totals. Cumulative
// distance only grows, so the live figure is monotonic while active.
func (e *Engine) Observe(fix geo.Coordinate) {
	if e.samples > 0 {
		e.distanceKm += geo.DistanceKm(e.last, fix)
	}
	e.last = fix
	e.samples++
}

func (e *Engine) DistanceKm() float64 { return e.distanceKm }
func (e *Engine) SampleCount() int    { return e.samples }

// Snapshot recomputes elapsed time from the wall clock; it is driven by the
// session's one-second tick, independent of sample arrival.
func (e *Engine) Snapshot(status string) Snapshot {
	var elapsed int64
	if !e.startedAt.IsZero() {
		elapsed = int64(e.now().Sub(e.startedAt).Seconds())
		if elapsed < 0 {
			elapsed = 0
		}
	}

	// Pace is undefined until both elapsed time and distance are positive;
	// 0.0 is the placeholder, never a division by zero.
	pace := 0.0
	if e.distanceKm > 0 && elapsed > 0 {
		pace = (float64(elapsed) / 60) / e.distanceKm
	}

	return Snapshot{
		ElapsedSeconds: elapsed,
		DistanceKm:     e.distanceKm,
		PaceMinPerKm:   pace,
		Calories:       int(math.Round(e.distanceKm * caloriesPerKm)),
		SampleCount:    e.samples,
		Status:         status,
	}
}
