package flow

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/HammerMeetNail/plantcare/internal/logging"
	"github.com/HammerMeetNail/plantcare/internal/models"
	"github.com/HammerMeetNail/plantcare/internal/progress"
	"github.com/HammerMeetNail/plantcare/internal/services/guide"
)

// InterruptedMessage is shown when a session was left Submitting by a
// request that no instance is still waiting on.
const InterruptedMessage = "The request was interrupted. Please try again."

// Requester fetches a guide for validated form input.
type Requester interface {
	RequestGuide(ctx context.Context, input models.FormInput) (*models.Guide, error)
}

type Options struct {
	Progress progress.Config
	// StaleAfter bounds how long a Submitting state without a local
	// in-flight request is trusted before it is failed.
	StaleAfter time.Duration
}

// Snapshot is what a page render needs: the state and the bar value.
type Snapshot struct {
	State    State
	Progress int
}

type inflight struct {
	cancel context.CancelFunc
	token  uint64
}

const lockStripes = 64

// Controller owns the in-flight request of each session. All writes for a
// session happen under that session's stripe lock, so a completion racing
// a reset can never overwrite the reset.
type Controller struct {
	store     Store
	requester Requester
	opts      Options
	now       func() time.Time

	base       context.Context
	cancelBase context.CancelFunc
	wg         sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]inflight
	nextTok  uint64
	stripes  [lockStripes]sync.Mutex
}

func NewController(store Store, requester Requester, opts Options) *Controller {
	if opts.Progress.Interval <= 0 {
		opts.Progress = progress.DefaultConfig()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Controller{
		store:      store,
		requester:  requester,
		opts:       opts,
		now:        time.Now,
		base:       base,
		cancelBase: cancel,
		inflight:   make(map[string]inflight),
	}
}

func (c *Controller) stripe(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return &c.stripes[h.Sum32()%lockStripes]
}

func (c *Controller) claimed(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[sessionID]
	return ok
}

// Submit moves the session to Submitting and starts the backend request in
// the background. The request outlives ctx; only Reset or Close cancel it.
func (c *Controller) Submit(ctx context.Context, sessionID string, input models.FormInput) (Snapshot, error) {
	if !input.CanSubmit() {
		return Snapshot{}, ErrIncompleteForm
	}

	lock := c.stripe(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if c.claimed(sessionID) {
		return Snapshot{}, ErrRequestInFlight
	}

	state, err := c.store.Load(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	state = c.expireStale(ctx, sessionID, state)

	next, err := Reduce(state, Submit{At: c.now()})
	if err != nil {
		if state.Loading() {
			return Snapshot{}, ErrRequestInFlight
		}
		return Snapshot{}, err
	}
	if err := c.store.Save(ctx, sessionID, next); err != nil {
		return Snapshot{}, err
	}

	reqCtx, cancel := context.WithCancel(c.base)
	reqCtx = logging.WithContext(reqCtx, logging.FromContext(ctx))
	reqCtx = guide.WithSessionID(reqCtx, sessionID)

	c.mu.Lock()
	c.nextTok++
	token := c.nextTok
	c.inflight[sessionID] = inflight{cancel: cancel, token: token}
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run(reqCtx, cancel, sessionID, token, input)

	return Snapshot{State: next, Progress: 0}, nil
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, sessionID string, token uint64, input models.FormInput) {
	defer c.wg.Done()
	defer cancel()

	g, reqErr := c.requester.RequestGuide(ctx, input)

	lock := c.stripe(sessionID)
	lock.Lock()
	defer lock.Unlock()

	c.mu.Lock()
	cur, ok := c.inflight[sessionID]
	if !ok || cur.token != token {
		c.mu.Unlock()
		return
	}
	delete(c.inflight, sessionID)
	c.mu.Unlock()

	log := logging.FromContext(ctx).WithField("session_id", sessionID)

	// Cancelled by shutdown. The stored state goes stale and is failed
	// on the next read.
	if ctx.Err() != nil {
		log.Debug("Guide request cancelled")
		return
	}

	// The request context is cancelled only by Reset or Close, so store
	// writes use a fresh context with a bound.
	writeCtx, writeCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer writeCancel()

	state, err := c.store.Load(writeCtx, sessionID)
	if err != nil {
		log.Error("Failed to load session state", map[string]interface{}{"error": err.Error()})
		return
	}

	var ev Event
	if reqErr != nil {
		ev = Fail{Message: guide.UserMessage(reqErr)}
	} else {
		ev = Complete{At: c.now(), Guide: g}
	}

	next, err := Reduce(state, ev)
	if err != nil {
		log.Warn("Dropping guide result", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := c.store.Save(writeCtx, sessionID, next); err != nil {
		log.Error("Failed to save session state", map[string]interface{}{"error": err.Error()})
	}
}

// Reset cancels the session's in-flight request, if any, and returns it to Idle.
func (c *Controller) Reset(ctx context.Context, sessionID string) error {
	lock := c.stripe(sessionID)
	lock.Lock()
	defer lock.Unlock()

	c.mu.Lock()
	if cur, ok := c.inflight[sessionID]; ok {
		cur.cancel()
		delete(c.inflight, sessionID)
	}
	c.mu.Unlock()

	return c.store.Delete(ctx, sessionID)
}

// Snapshot reads the session's state, revealing a held guide once the hold
// has passed, and computes the progress value for it.
func (c *Controller) Snapshot(ctx context.Context, sessionID string) (Snapshot, error) {
	lock := c.stripe(sessionID)
	lock.Lock()
	defer lock.Unlock()

	state, err := c.store.Load(ctx, sessionID)
	if err != nil {
		return Snapshot{State: Idle()}, err
	}
	state = c.expireStale(ctx, sessionID, state)

	now := c.now()
	if state.Answered() && now.Sub(state.CompletedAt) >= c.opts.Progress.Hold {
		next, err := Reduce(state, Reveal{})
		if err == nil {
			if err := c.store.Save(ctx, sessionID, next); err != nil {
				return Snapshot{State: state, Progress: progress.Complete}, err
			}
			state = next
		}
	}

	return Snapshot{State: state, Progress: c.percent(state, now)}, nil
}

func (c *Controller) percent(state State, now time.Time) int {
	switch {
	case state.Answered(), state.Phase == PhaseSuccess:
		return progress.Complete
	case state.Phase == PhaseSubmitting:
		return progress.Percent(c.opts.Progress, now.Sub(state.StartedAt))
	default:
		return 0
	}
}

// expireStale fails a Submitting state that nothing is waiting on anymore,
// for example after a restart with a shared store. Caller holds the stripe lock.
func (c *Controller) expireStale(ctx context.Context, sessionID string, state State) State {
	if state.Phase != PhaseSubmitting || state.Answered() || c.opts.StaleAfter <= 0 {
		return state
	}
	if c.claimed(sessionID) || c.now().Sub(state.StartedAt) < c.opts.StaleAfter {
		return state
	}

	next, err := Reduce(state, Fail{Message: InterruptedMessage})
	if err != nil {
		return state
	}
	if err := c.store.Save(ctx, sessionID, next); err != nil {
		logging.FromContext(ctx).Warn("Failed to expire stale session", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return state
	}
	return next
}

// InFlight reports how many requests are outstanding.
func (c *Controller) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

// Close cancels every in-flight request and waits for them to return, or
// for ctx to end.
func (c *Controller) Close(ctx context.Context) error {
	c.cancelBase()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("waiting for guide requests"), ctx.Err())
	}
}
