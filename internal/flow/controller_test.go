package flow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/HammerMeetNail/plantcare/internal/models"
	"github.com/HammerMeetNail/plantcare/internal/progress"
	"github.com/HammerMeetNail/plantcare/internal/services/guide"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type result struct {
	guide *models.Guide
	err   error
}

// blockingRequester answers each request with whatever is sent on results,
// or with the context error once the request is cancelled.
type blockingRequester struct {
	mu       sync.Mutex
	calls    int
	finished int
	started  chan models.FormInput
	results  chan result
}

func newBlockingRequester() *blockingRequester {
	return &blockingRequester{
		started: make(chan models.FormInput, 4),
		results: make(chan result, 4),
	}
}

func (r *blockingRequester) RequestGuide(ctx context.Context, input models.FormInput) (*models.Guide, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	r.started <- input
	defer func() {
		r.mu.Lock()
		r.finished++
		r.mu.Unlock()
	}()
	select {
	case res := <-r.results:
		return res.guide, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *blockingRequester) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *blockingRequester) Finished() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}

func validInput() models.FormInput {
	return models.FormInput{
		PlantName:         "Basil",
		PlantType:         "Medicinal",
		Climate:           "Temperate",
		SunlightHours:     "6",
		SoilType:          "Loamy",
		WateringFrequency: "Daily",
		ExperienceLevel:   "Beginner",
	}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestController(t *testing.T, req Requester) (*Controller, *MemoryStore, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(time.Hour)
	store.now = clock.Now
	c := NewController(store, req, Options{Progress: progress.DefaultConfig(), StaleAfter: time.Minute})
	c.now = clock.Now
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, c.Close(ctx))
	})
	return c, store, clock
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func phaseOf(t *testing.T, store Store, id string) func() bool {
	return func() bool {
		s, err := store.Load(context.Background(), id)
		require.NoError(t, err)
		return s.Phase != PhaseSubmitting || s.Answered()
	}
}

func TestController_SubmitRejectsIncompleteForm(t *testing.T) {
	req := newBlockingRequester()
	c, _, _ := newTestController(t, req)

	input := validInput()
	input.Climate = ""
	_, err := c.Submit(context.Background(), "s1", input)
	assert.ErrorIs(t, err, ErrIncompleteForm)
	assert.Zero(t, req.Calls())
}

func TestController_SuccessHoldsThenReveals(t *testing.T) {
	req := newBlockingRequester()
	c, store, clock := newTestController(t, req)
	ctx := context.Background()

	snap, err := c.Submit(ctx, "s1", validInput())
	require.NoError(t, err)
	assert.Equal(t, PhaseSubmitting, snap.State.Phase)
	assert.Equal(t, 0, snap.Progress)
	assert.Equal(t, "Basil", (<-req.started).PlantName)

	clock.Advance(900 * time.Millisecond)
	snap, err = c.Snapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 30, snap.Progress)

	// Well past the cap, within both the session TTL and StaleAfter.
	clock.Advance(30 * time.Second)
	snap, err = c.Snapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 90, snap.Progress, "simulated progress caps below 100")

	g := &models.Guide{ExtraTips: []string{"Water early"}}
	req.results <- result{guide: g}
	waitFor(t, phaseOf(t, store, "s1"))

	snap, err = c.Snapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, PhaseSubmitting, snap.State.Phase, "guide is held back during the hold")
	assert.Equal(t, progress.Complete, snap.Progress)

	clock.Advance(300 * time.Millisecond)
	snap, err = c.Snapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, PhaseSuccess, snap.State.Phase)
	assert.Equal(t, g.ExtraTips, snap.State.Guide.ExtraTips)
	assert.Equal(t, progress.Complete, snap.Progress)
	assert.Zero(t, c.InFlight())
}

func TestController_FailureSetsUserMessage(t *testing.T) {
	req := newBlockingRequester()
	c, store, _ := newTestController(t, req)
	ctx := context.Background()

	_, err := c.Submit(ctx, "s1", validInput())
	require.NoError(t, err)
	<-req.started
	req.results <- result{err: &guide.APIError{StatusCode: 500, Message: "AI service unavailable"}}
	waitFor(t, phaseOf(t, store, "s1"))

	snap, err := c.Snapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, PhaseFailure, snap.State.Phase)
	assert.Equal(t, "AI service unavailable", snap.State.Message)
	assert.Nil(t, snap.State.Guide)
	assert.Equal(t, 0, snap.Progress)
}

func TestController_UnreachableBackendMessage(t *testing.T) {
	req := newBlockingRequester()
	c, store, _ := newTestController(t, req)
	ctx := context.Background()

	_, err := c.Submit(ctx, "s1", validInput())
	require.NoError(t, err)
	<-req.started
	req.results <- result{err: guide.ErrBackendUnreachable}
	waitFor(t, phaseOf(t, store, "s1"))

	snap, _ := c.Snapshot(ctx, "s1")
	assert.Equal(t, guide.UnreachableMessage, snap.State.Message)
}

func TestController_SecondSubmitWhileInFlight(t *testing.T) {
	req := newBlockingRequester()
	c, _, _ := newTestController(t, req)
	ctx := context.Background()

	_, err := c.Submit(ctx, "s1", validInput())
	require.NoError(t, err)
	<-req.started

	_, err = c.Submit(ctx, "s1", validInput())
	assert.ErrorIs(t, err, ErrRequestInFlight)
	assert.Equal(t, 1, req.Calls())

	// Other sessions are independent.
	_, err = c.Submit(ctx, "s2", validInput())
	require.NoError(t, err)
	<-req.started
	assert.Equal(t, 2, c.InFlight())
}

func TestController_ResetCancelsInFlight(t *testing.T) {
	req := newBlockingRequester()
	c, store, _ := newTestController(t, req)
	ctx := context.Background()

	_, err := c.Submit(ctx, "s1", validInput())
	require.NoError(t, err)
	<-req.started

	require.NoError(t, c.Reset(ctx, "s1"))
	assert.Zero(t, c.InFlight())
	waitFor(t, func() bool { return req.Finished() == 1 })

	state, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, Idle(), state)
}

func TestController_ResetThenResubmitIgnoresOldAnswer(t *testing.T) {
	req := newBlockingRequester()
	c, store, _ := newTestController(t, req)
	ctx := context.Background()

	_, err := c.Submit(ctx, "s1", validInput())
	require.NoError(t, err)
	<-req.started
	require.NoError(t, c.Reset(ctx, "s1"))
	waitFor(t, func() bool { return req.Finished() == 1 })

	_, err = c.Submit(ctx, "s1", validInput())
	require.NoError(t, err)
	<-req.started

	req.results <- result{err: errors.New("late")}
	waitFor(t, phaseOf(t, store, "s1"))

	state, _ := store.Load(ctx, "s1")
	assert.Equal(t, PhaseFailure, state.Phase)
	assert.Equal(t, guide.GenericMessage, state.Message)
}

func TestController_RetryAfterFailure(t *testing.T) {
	req := newBlockingRequester()
	c, store, _ := newTestController(t, req)
	ctx := context.Background()

	_, err := c.Submit(ctx, "s1", validInput())
	require.NoError(t, err)
	<-req.started
	req.results <- result{err: errors.New("nope")}
	waitFor(t, phaseOf(t, store, "s1"))

	snap, err := c.Submit(ctx, "s1", validInput())
	require.NoError(t, err)
	assert.Equal(t, PhaseSubmitting, snap.State.Phase)
	assert.Empty(t, snap.State.Message)
	<-req.started
}

func TestController_SubmitWhileShowingGuide(t *testing.T) {
	req := newBlockingRequester()
	c, store, _ := newTestController(t, req)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", State{Phase: PhaseSuccess, Guide: &models.Guide{}}))
	_, err := c.Submit(ctx, "s1", validInput())
	assert.ErrorIs(t, err, ErrTransition)
	assert.Zero(t, req.Calls())
}

func TestController_StaleSubmittingIsFailed(t *testing.T) {
	req := newBlockingRequester()
	c, store, clock := newTestController(t, req)
	ctx := context.Background()

	// Left behind by another process.
	require.NoError(t, store.Save(ctx, "s1", State{Phase: PhaseSubmitting, StartedAt: clock.Now()}))

	snap, err := c.Snapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, PhaseSubmitting, snap.State.Phase)

	_, err = c.Submit(ctx, "s1", validInput())
	assert.ErrorIs(t, err, ErrRequestInFlight)

	clock.Advance(2 * time.Minute)
	snap, err = c.Snapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, PhaseFailure, snap.State.Phase)
	assert.Equal(t, InterruptedMessage, snap.State.Message)
}

func TestController_CloseCancelsWithoutWriting(t *testing.T) {
	req := newBlockingRequester()
	store := NewMemoryStore(time.Hour)
	c := NewController(store, req, Options{})
	ctx := context.Background()

	_, err := c.Submit(ctx, "s1", validInput())
	require.NoError(t, err)
	<-req.started

	closeCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, c.Close(closeCtx))

	state, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, PhaseSubmitting, state.Phase)
	assert.Zero(t, c.InFlight())
}

type failingStore struct {
	MemoryStore
	err error
}

func (f *failingStore) Load(ctx context.Context, id string) (State, error) {
	return Idle(), f.err
}

func TestController_StoreErrorsSurface(t *testing.T) {
	storeErr := errors.New("redis down")
	req := newBlockingRequester()
	c := NewController(&failingStore{err: storeErr}, req, Options{})
	defer func() { _ = c.Close(context.Background()) }()

	_, err := c.Submit(context.Background(), "s1", validInput())
	assert.ErrorIs(t, err, storeErr)

	_, err = c.Snapshot(context.Background(), "s1")
	assert.ErrorIs(t, err, storeErr)
	assert.Zero(t, req.Calls())
}
