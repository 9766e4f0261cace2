// Package station runs the operator loop: wait for a board, test it, hand
// the result to the outbox, show the verdict, wait for removal.
package station

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/buckleypaul/jig/internal/logbus"
	"github.com/buckleypaul/jig/internal/pipeline"
)

// Outbox accepts finished boards for upload.
type Outbox interface {
	Enqueue(b *pipeline.Board)
}

// Recorder stores outcomes locally.
type Recorder interface {
	Record(ctx context.Context, variant string, o pipeline.Outcome) error
}

// Worker owns the sequential test loop.
type Worker struct {
	pipeline pipeline.Pipeline
	variant  pipeline.Variant
	bus      logbus.Producer
	outbox   Outbox
	journal  Recorder // optional

	// MaxBoards stops the loop after that many boards when positive.
	MaxBoards int
}

// NewWorker creates a Worker. journal may be nil.
func NewWorker(p pipeline.Pipeline, variant pipeline.Variant, bus logbus.Producer, outbox Outbox, journal Recorder) (*Worker, error) {
	if p == nil {
		return nil, errors.New("station: pipeline is required")
	}
	if outbox == nil {
		return nil, errors.New("station: outbox is required")
	}
	return &Worker{pipeline: p, variant: variant, bus: bus, outbox: outbox, journal: journal}, nil
}

// Run tests boards until ctx is done. Cancellation is observed between
// boards and while waiting for the operator.
func (w *Worker) Run(ctx context.Context) error {
	log.Info().Str("variant", string(w.variant)).Msg("station worker started")
	for n := 0; w.MaxBoards <= 0 || n < w.MaxBoards; n++ {
		if err := ctx.Err(); err != nil {
			log.Info().Msg("station worker stopped")
			return err
		}
		if !w.testOne(ctx) {
			log.Info().Msg("station worker stopped")
			return ctx.Err()
		}
	}
	return nil
}

// testOne handles one board. It reports false when ctx ended before a board
// was connected.
func (w *Worker) testOne(ctx context.Context) bool {
	w.bus.Action("[ Please connect the device ]")
	w.pipeline.WaitForDeviceConnect(ctx)
	if ctx.Err() != nil {
		return false
	}

	w.bus.Reset()
	w.bus.Success("Device connected")

	out := w.pipeline.Run(ctx)
	w.deliver(ctx, out)

	// The wash is only drawn while Fill is the newest event, so the prompt
	// goes first.
	fill := logbus.Green
	if out.Passed() {
		w.bus.Success("Board passed")
	} else {
		w.bus.Error("Board failed")
		fill = logbus.Red
	}
	w.bus.Action("[ Please disconnect the device ]")
	w.bus.Fill(fill)

	w.pipeline.WaitForDeviceDisconnect(ctx)
	return true
}

func (w *Worker) deliver(ctx context.Context, out pipeline.Outcome) {
	if out.Board == nil {
		log.Error().Msg("pipeline returned an outcome without a board")
		return
	}
	logger := log.With().
		Str("board_id", out.Board.Identity()).
		Str("verdict", out.Verdict.String()).
		Int("steps", len(out.Board.Steps)).
		Logger()

	if w.journal != nil {
		if err := w.journal.Record(context.WithoutCancel(ctx), string(w.variant), out); err != nil {
			logger.Warn().Err(err).Msg("failed to record outcome in journal")
		}
	}
	w.outbox.Enqueue(out.Board)
	logger.Info().Msg("board tested")
}
