package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/buckleypaul/jig/internal/clock"
	"github.com/buckleypaul/jig/internal/logbus"
)

// Check is what a step's operation reports back.
type Check struct {
	Value   string
	Log     string // attached to the record when non-empty
	Failed  bool
	Warn    bool     // render Message as an error line without failing
	Message string   // rendered as a success or error line
	Hints   []string // extra error lines shown after a failure
}

// Step is one named check in a pipeline.
type Step struct {
	Name      string
	Condition string
	Progress  string // in-progress line shown while the step runs
	Run       func(ctx context.Context) Check
}

// Session is the board-scoped state of a single pipeline run. It is owned by
// the worker goroutine and never shared.
type Session struct {
	Board *Board
	bus   logbus.Producer
	clock clock.Clock
}

// NewSession starts a new Board.
func NewSession(bus logbus.Producer, clk clock.Clock) *Session {
	if clk == nil {
		clk = clock.Real()
	}
	return &Session{
		Board: NewBoard(clk.Now()),
		bus:   bus,
		clock: clk,
	}
}

// Bus returns the session's event producer.
func (s *Session) Bus() logbus.Producer { return s.bus }

// Run executes step, appends exactly one record bracketing the operation and
// reports the outcome on the bus. A panicking operation becomes a failed
// record.
func (s *Session) Run(ctx context.Context, step Step) StepRecord {
	if step.Progress != "" {
		s.bus.InProgress(step.Progress)
	}

	startedAt := s.clock.Now()
	c := s.check(ctx, step)
	rec := StepRecord{
		Step:      step.Name,
		Condition: step.Condition,
		Value:     c.Value,
		Failed:    c.Failed,
		StartedAt: startedAt,
		EndedAt:   s.clock.Now(),
	}
	if c.Log != "" {
		l := c.Log
		rec.Log = &l
	}
	s.Board.Steps = append(s.Board.Steps, rec)

	if c.Failed {
		if c.Message != "" {
			s.bus.Error(c.Message)
		}
		for _, h := range c.Hints {
			s.bus.Error(h)
		}
	} else if c.Message != "" && c.Warn {
		s.bus.Error(c.Message)
	} else if c.Message != "" {
		s.bus.Success(c.Message)
	}

	log.Debug().
		Str("step", step.Name).
		Str("value", c.Value).
		Bool("failed", c.Failed).
		Dur("took", rec.EndedAt.Sub(rec.StartedAt)).
		Msg("step finished")
	return rec
}

func (s *Session) check(ctx context.Context, step Step) (c Check) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("step", step.Name).Interface("panic", r).Msg("step panicked")
			c = Check{
				Value:   "N/A",
				Log:     fmt.Sprint(r),
				Failed:  true,
				Message: fmt.Sprintf("%s: unexpected error: %v", step.Name, r),
			}
		}
	}()
	return step.Run(ctx)
}

// Sleep waits on the session clock.
func (s *Session) Sleep(d time.Duration) {
	s.clock.Sleep(d)
}

// Fail finishes the board as failed.
func (s *Session) Fail() Outcome {
	s.finish()
	return Outcome{Verdict: Failed, Board: s.Board}
}

// Pass finishes the board as passed.
func (s *Session) Pass() Outcome {
	s.finish()
	return Outcome{Verdict: Passed, Board: s.Board}
}

func (s *Session) finish() {
	if s.Board.EndedAt.IsZero() {
		s.Board.EndedAt = s.clock.Now()
	}
}
