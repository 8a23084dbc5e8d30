package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"tracker-superacres/internal/location"
	"tracker-superacres/internal/merge"
	"tracker-superacres/internal/metrics"
	"tracker-superacres/internal/scoring"
	"tracker-superacres/internal/shared/geo"
)

// Status is the controller's lifecycle state.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusRequesting Status = "requesting"
	StatusActive     Status = "active"
	StatusStopping   Status = "stopping"
	StatusCompleted  Status = "completed"
	StatusAborted    Status = "aborted"
)

// Failure taxonomy. Start-time failures abort the session; ErrNetwork at stop
// time reverts to active with every buffer intact; ErrInsufficientData leaves
// the session untouched.
var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrNetwork             = errors.New("scoring service unreachable")
	ErrInsufficientData    = errors.New("need at least 2 samples to stop")
	ErrSessionActive       = errors.New("a session is already active")
	ErrNoSession           = errors.New("no active session")
)

// Submitter is the scoring boundary the controller drives.
type Submitter interface {
	StartRun(ctx context.Context) (scoring.StartRunResponse, error)
	EndRun(ctx context.Context, runID string, route []geo.Coordinate) (scoring.EndRunResponse, error)
}

// Session is one start-to-submit tracking lifecycle, identified by the remote
// run id.
type Session struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

// Controller owns the session state machine. Foreground fixes, the metric
// tick and stop/abandon commands are all delivered as messages to one loop
// goroutine, so the sample buffer and the metrics engine need no locking.
// The background channel bypasses the loop entirely and meets the foreground
// history only at merge time.
type Controller struct {
	perms      location.PermissionProvider
	foreground location.Source
	background *location.BackgroundChannel
	submitter  Submitter

	engine    *metrics.Engine
	now       func() time.Time
	tickEvery time.Duration

	// onSnapshot, when set, receives every published live snapshot. Set it
	// before Start; it runs on the loop goroutine.
	onSnapshot func(metrics.Snapshot)

	mu     sync.RWMutex
	status Status
	sess   *Session
	snap   metrics.Snapshot

	// loop-owned; recreated per session
	samples  []geo.Coordinate
	fixes    chan geo.Coordinate
	cmds     chan command
	done     chan struct{}
	fgHandle location.Handle
}

type command struct {
	ctx     context.Context
	abandon bool
	reply   chan stopResult
}

type stopResult struct {
	resp scoring.EndRunResponse
	err  error
}

func NewController(perms location.PermissionProvider, fg location.Source, bg *location.BackgroundChannel, submitter Submitter) *Controller {
	return &Controller{
		perms:      perms,
		foreground: fg,
		background: bg,
		submitter:  submitter,
		engine:     metrics.NewEngine(nil),
		now:        time.Now,
		tickEvery:  time.Second,
		status:     StatusIdle,
	}
}

// OnSnapshot registers the live-metrics hook. Must be called before Start.
func (c *Controller) OnSnapshot(fn func(metrics.Snapshot)) { c.onSnapshot = fn }

// Start runs the session start sequence: foreground permission, remote run
// id, one high-accuracy fix, then the two subscriptions. Background failure
// is non-fatal; everything else aborts and leaves the controller idle.
func (c *Controller) Start(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	if c.status == StatusRequesting || c.status == StatusActive || c.status == StatusStopping {
		c.mu.Unlock()
		return nil, ErrSessionActive
	}
	c.status = StatusRequesting
	c.mu.Unlock()

	if !c.perms.RequestForeground(ctx) {
		c.setStatus(StatusAborted)
		return nil, ErrPermissionDenied
	}

	started, err := c.submitter.StartRun(ctx)
	if err != nil {
		c.setStatus(StatusAborted)
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	first, err := c.foreground.CurrentFix(ctx, location.AccuracyHigh)
	if err != nil {
		c.setStatus(StatusAborted)
		return nil, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}

	sess := &Session{ID: started.RunID, StartedAt: c.now()}
	c.engine.Start(sess.StartedAt)
	c.samples = []geo.Coordinate{first}
	c.engine.Observe(first)
	c.fixes = make(chan geo.Coordinate, 64)
	c.cmds = make(chan command)
	c.done = make(chan struct{})

	handle, err := c.foreground.Subscribe(location.ForegroundFilter, forwardInto(c.fixes))
	if err != nil {
		c.setStatus(StatusAborted)
		return nil, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	c.fgHandle = handle

	c.mu.Lock()
	c.sess = sess
	c.status = StatusActive
	c.snap = c.engine.Snapshot(string(StatusActive))
	c.mu.Unlock()

	// Best effort: a missing background executor downgrades to
	// foreground-only tracking, it never ends the session.
	if c.perms.RequestBackground(ctx) {
		if err := c.background.Begin(ctx); err != nil {
			log.Printf("background tracking unavailable, continuing foreground-only: %v", err)
		}
	} else {
		log.Printf("background permission denied, continuing foreground-only")
	}

	go c.loop(c.fixes, c.cmds)
	return sess, nil
}

// Stop ends the session and submits the merged route. With fewer than two
// collected samples it reports ErrInsufficientData and the session stays
// active. A failed submission also leaves the session active, with the
// foreground subscription restored and every buffer unchanged, ready for a
// retry.
func (c *Controller) Stop(ctx context.Context) (scoring.EndRunResponse, error) {
	return c.send(ctx, command{ctx: ctx, reply: make(chan stopResult, 1)})
}

// Abandon discards the session without submitting. Collected foreground
// samples are dropped; the durable background buffer is wiped at the next
// session start.
func (c *Controller) Abandon(ctx context.Context) error {
	_, err := c.send(ctx, command{ctx: ctx, abandon: true, reply: make(chan stopResult, 1)})
	return err
}

func (c *Controller) send(ctx context.Context, cmd command) (scoring.EndRunResponse, error) {
	c.mu.RLock()
	active := c.status == StatusActive
	cmds, done := c.cmds, c.done
	c.mu.RUnlock()
	if !active {
		return scoring.EndRunResponse{}, ErrNoSession
	}

	select {
	case cmds <- cmd:
	case <-done:
		return scoring.EndRunResponse{}, ErrNoSession
	case <-ctx.Done():
		return scoring.EndRunResponse{}, ctx.Err()
	}
	select {
	case res := <-cmd.reply:
		return res.resp, res.err
	case <-ctx.Done():
		return scoring.EndRunResponse{}, ctx.Err()
	}
}

// Live returns the latest published snapshot.
func (c *Controller) Live() metrics.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Current returns the active session, or nil.
func (c *Controller) Current() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.status != StatusActive && c.status != StatusStopping {
		return nil
	}
	return c.sess
}

func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// forwardInto builds the provider callback for one session, bound to that
// session's fix channel. A full channel drops the fix — one missed fix never
// ends tracking. Binding the channel keeps a trailing callback from a dying
// subscription off the next session's channel.
func forwardInto(fixes chan geo.Coordinate) func(geo.Coordinate) {
	return func(fix geo.Coordinate) {
		select {
		case fixes <- fix:
		default:
			log.Printf("fix channel full, dropping sample")
		}
	}
}

func (c *Controller) loop(fixes chan geo.Coordinate, cmds chan command) {
	defer close(c.done)
	ticker := time.NewTicker(c.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case fix := <-fixes:
			if fix.Timestamp == 0 {
				fix.Timestamp = c.now().UnixMilli()
			}
			c.samples = append(c.samples, fix)
			c.engine.Observe(fix)
			c.publish(StatusActive)
		case <-ticker.C:
			c.publish(StatusActive)
		case cmd := <-cmds:
			if cmd.abandon {
				c.handleAbandon(cmd)
				return
			}
			if done := c.handleStop(cmd); done {
				return
			}
		}
	}
}

func (c *Controller) publish(status Status) {
	snap := c.engine.Snapshot(string(status))
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
	if c.onSnapshot != nil {
		c.onSnapshot(snap)
	}
}

// handleStop runs on the loop goroutine. Returns true when the loop should
// exit (successful submission).
func (c *Controller) handleStop(cmd command) bool {
	if len(c.samples) < 2 {
		cmd.reply <- stopResult{err: ErrInsufficientData}
		return false
	}

	// Unsubscribe and cancel before reading the durable buffer, so the read
	// races at most one trailing write, which the merge threshold absorbs.
	c.foreground.Unsubscribe(c.fgHandle)
	c.background.Cancel()
	c.setStatus(StatusStopping)
	c.publish(StatusStopping)

	bg, err := c.background.Drain(cmd.ctx)
	if err != nil {
		log.Printf("background buffer read failed, merging foreground only: %v", err)
		bg = nil
	}
	route := merge.Reconcile(c.samples, bg)

	resp, err := c.submitter.EndRun(cmd.ctx, c.sess.ID, route)
	if err != nil {
		// Revert: resume foreground tracking, keep both buffers untouched.
		handle, subErr := c.foreground.Subscribe(location.ForegroundFilter, forwardInto(c.fixes))
		if subErr != nil {
			log.Printf("foreground resubscribe failed after submit error: %v", subErr)
		} else {
			c.fgHandle = handle
		}
		c.setStatus(StatusActive)
		c.publish(StatusActive)
		cmd.reply <- stopResult{err: fmt.Errorf("%w: %v", ErrNetwork, err)}
		return false
	}

	if err := c.background.ClearBuffer(cmd.ctx); err != nil {
		log.Printf("background buffer clear failed: %v", err)
	}
	c.samples = nil

	c.mu.Lock()
	c.sess = nil
	c.status = StatusCompleted
	c.snap = c.engine.Snapshot(string(StatusCompleted))
	c.mu.Unlock()

	cmd.reply <- stopResult{resp: resp}
	return true
}

func (c *Controller) handleAbandon(cmd command) {
	c.foreground.Unsubscribe(c.fgHandle)
	c.background.Cancel()
	c.samples = nil

	c.mu.Lock()
	c.sess = nil
	c.status = StatusAborted
	c.snap = c.engine.Snapshot(string(StatusAborted))
	c.mu.Unlock()

	cmd.reply <- stopResult{}
}

func (c *Controller) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}
