package location

import (
	"context"
	"errors"
	"time"

	"tracker-superacres/internal/shared/geo"
)

// ErrUnavailable reports that the provider could not produce a fix within
// its own bounded wait.
var ErrUnavailable = errors.New("location unavailable")

// AccuracyTier selects how hard the provider should try for a one-shot fix.
type AccuracyTier int

const (
	AccuracyBalanced AccuracyTier = iota
	AccuracyHigh
)

// Handle identifies one active subscription.
type Handle string

// FilterConfig throttles a subscription: a fix is delivered only after both
// the minimum interval and the minimum displacement from the last delivered
// fix are exceeded.
type FilterConfig struct {
	MinInterval      time.Duration
	MinDisplacementM float64
}

// Update cadences for the two channels. The channels never coordinate at
// acquisition time; overlap between them is resolved at merge time.
var (
	ForegroundFilter = FilterConfig{MinInterval: 3 * time.Second, MinDisplacementM: 5}
	BackgroundFilter = FilterConfig{MinInterval: 5 * time.Second, MinDisplacementM: 10}
)

// Source is the capability contract shared by the foreground and background
// location variants.
type Source interface {
	Subscribe(cfg FilterConfig, onFix func(geo.Coordinate)) (Handle, error)
	Unsubscribe(handle Handle)
	CurrentFix(ctx context.Context, tier AccuracyTier) (geo.Coordinate, error)
}

// PermissionProvider models the platform permission prompts. Background
// permission is best-effort; foreground is required to start a session.
type PermissionProvider interface {
	RequestForeground(ctx context.Context) bool
	RequestBackground(ctx context.Context) bool
}

// StaticPermissions is a PermissionProvider with fixed answers, used where no
// interactive prompt exists.
type StaticPermissions struct {
	Foreground bool
	Background bool
}

func (p StaticPermissions) RequestForeground(context.Context) bool { return p.Foreground }
func (p StaticPermissions) RequestBackground(context.Context) bool { return p.Background }

// Filter implements the FilterConfig gate for providers that push raw fixes.
type Filter struct {
	cfg    FilterConfig
	lastAt time.Time
	last   geo.Coordinate
	primed bool
}

func NewFilter(cfg FilterConfig) *Filter {
	return &Filter{cfg: cfg}
}

// Allow reports whether a fix observed at the given instant passes the gate,
// and records it as the new reference point when it does. The first fix
// always passes.
func (f *Filter) Allow(fix geo.Coordinate, at time.Time) bool {
	if f.primed {
		if at.Sub(f.lastAt) < f.cfg.MinInterval {
			return false
		}
		if geo.DistanceM(f.last, fix) < f.cfg.MinDisplacementM {
			return false
		}
	}
	f.primed = true
	f.last = fix
	f.lastAt = at
	return true
}
