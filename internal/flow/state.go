// Package flow holds the per-session view state of the guide page and the
// controller that moves it through a submission.
package flow

import (
	"errors"
	"fmt"
	"time"

	"github.com/HammerMeetNail/plantcare/internal/models"
)

var (
	ErrTransition      = errors.New("invalid state transition")
	ErrIncompleteForm  = errors.New("form is incomplete")
	ErrRequestInFlight = errors.New("a guide request is already in progress")
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhaseSuccess    Phase = "success"
	PhaseFailure    Phase = "failure"
)

// State is one of Idle, Submitting, Success or Failure, tagged by Phase.
// Submitting with a non-zero CompletedAt means the answer has arrived and
// is being held at 100% before it is revealed; Guide holds it meanwhile.
type State struct {
	Phase       Phase         `json:"phase"`
	StartedAt   time.Time     `json:"started_at,omitempty"`
	CompletedAt time.Time     `json:"completed_at,omitempty"`
	Guide       *models.Guide `json:"guide,omitempty"`
	Message     string        `json:"message,omitempty"`
}

func Idle() State {
	return State{Phase: PhaseIdle}
}

// Loading reports whether a request is outstanding or its result is still held back.
func (s State) Loading() bool {
	return s.Phase == PhaseSubmitting
}

// Answered reports whether the backend has answered a Submitting state.
func (s State) Answered() bool {
	return s.Phase == PhaseSubmitting && !s.CompletedAt.IsZero()
}

type Event interface {
	name() string
}

// Submit starts a request.
type Submit struct{ At time.Time }

// Complete records a successful answer; the guide stays hidden until Reveal.
type Complete struct {
	At    time.Time
	Guide *models.Guide
}

// Fail records a failed request with the message to show.
type Fail struct{ Message string }

// Reveal shows a completed guide once the hold has passed.
type Reveal struct{}

// Reset returns to the empty form from any state.
type Reset struct{}

func (Submit) name() string   { return "submit" }
func (Complete) name() string { return "complete" }
func (Fail) name() string     { return "fail" }
func (Reveal) name() string   { return "reveal" }
func (Reset) name() string    { return "reset" }

// Reduce is the only transition function for view state.
func Reduce(s State, e Event) (State, error) {
	switch ev := e.(type) {
	case Reset:
		return Idle(), nil

	case Submit:
		if s.Phase == PhaseIdle || s.Phase == PhaseFailure {
			return State{Phase: PhaseSubmitting, StartedAt: ev.At}, nil
		}

	case Complete:
		if s.Phase == PhaseSubmitting && !s.Answered() && ev.Guide != nil {
			return State{
				Phase:       PhaseSubmitting,
				StartedAt:   s.StartedAt,
				CompletedAt: ev.At,
				Guide:       ev.Guide,
			}, nil
		}

	case Fail:
		if s.Phase == PhaseSubmitting && !s.Answered() {
			return State{Phase: PhaseFailure, Message: ev.Message}, nil
		}

	case Reveal:
		if s.Answered() {
			return State{Phase: PhaseSuccess, Guide: s.Guide}, nil
		}
	}

	return s, fmt.Errorf("%w: %s while %s", ErrTransition, e.name(), s.Phase)
}
