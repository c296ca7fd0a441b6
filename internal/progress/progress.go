// Package progress simulates a progress percentage while a guide is being
// generated. The value is a function of elapsed time only and says nothing
// about how far the backend actually is.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/HammerMeetNail/plantcare/internal/config"
)

const Complete = 100

// Config controls the simulated bar: Step percent every Interval, never
// above Cap until the real answer arrives, then 100 shown for Hold.
type Config struct {
	Step     int
	Interval time.Duration
	Cap      int
	Hold     time.Duration
}

func DefaultConfig() Config {
	return Config{Step: 10, Interval: 300 * time.Millisecond, Cap: 90, Hold: 300 * time.Millisecond}
}

func FromConfig(cfg config.ProgressConfig) Config {
	return Config{Step: cfg.Step, Interval: cfg.Interval, Cap: cfg.Cap, Hold: cfg.Hold}
}

// Percent is the simulated progress after elapsed time.
func Percent(cfg Config, elapsed time.Duration) int {
	if elapsed <= 0 || cfg.Interval <= 0 {
		return 0
	}
	ticks := int64(elapsed / cfg.Interval)
	if ticks*int64(cfg.Step) >= int64(cfg.Cap) {
		return cfg.Cap
	}
	return int(ticks) * cfg.Step
}

// Simulator starts tick-driven runs.
type Simulator struct {
	cfg Config
}

func NewSimulator(cfg Config) *Simulator {
	return &Simulator{cfg: cfg}
}

// Run is one simulated progress sequence. Values arrive on C in increasing
// order; C is closed once the run ends through Complete, Stop or ctx.
type Run struct {
	C <-chan int

	c       chan int
	done    chan struct{}
	exited  chan struct{}
	once    sync.Once
	success bool
	mu      sync.Mutex
}

// Start begins publishing percentages. The caller must end the run with
// Complete or Stop, or cancel ctx.
func (s *Simulator) Start(ctx context.Context) *Run {
	return s.Resume(ctx, 0)
}

// Resume is Start for a request that began elapsed ago: the first value
// published is Percent(cfg, elapsed) and ticking continues from there.
func (s *Simulator) Resume(ctx context.Context, elapsed time.Duration) *Run {
	c := make(chan int, 1)
	r := &Run{
		C:      c,
		c:      c,
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go r.loop(ctx, s.cfg, Percent(s.cfg, elapsed))
	return r
}

func (r *Run) loop(ctx context.Context, cfg Config, current int) {
	defer close(r.exited)
	defer close(r.c)

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultConfig().Interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if current > 0 {
		r.publishLatest(current)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			r.mu.Lock()
			success := r.success
			r.mu.Unlock()
			if success {
				r.publish(ctx, Complete)
			}
			return
		case <-ticker.C:
			if current >= cfg.Cap {
				continue
			}
			current += cfg.Step
			if current > cfg.Cap {
				current = cfg.Cap
			}
			r.publishLatest(current)
		}
	}
}

// publishLatest replaces any unread value so a slow reader only sees the newest one.
func (r *Run) publishLatest(v int) {
	select {
	case <-r.c:
	default:
	}
	r.c <- v
}

func (r *Run) publish(ctx context.Context, v int) {
	select {
	case <-r.c:
	default:
	}
	select {
	case r.c <- v:
	case <-ctx.Done():
	}
}

// Complete publishes 100 and ends the run. It returns once the run's
// goroutine has exited.
func (r *Run) Complete() {
	r.end(true)
}

// Stop ends the run without publishing 100. It returns once the run's
// goroutine has exited.
func (r *Run) Stop() {
	r.end(false)
}

func (r *Run) end(success bool) {
	r.once.Do(func() {
		r.mu.Lock()
		r.success = success
		r.mu.Unlock()
		close(r.done)
	})
	<-r.exited
}
