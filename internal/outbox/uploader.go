package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/buckleypaul/jig/internal/pipeline"
	"github.com/buckleypaul/jig/internal/report"
)

// Sink delivers one board report and returns the collector's HTTP status.
type Sink interface {
	Upload(ctx context.Context, r report.Report) (int, error)
}

// UploaderConfig configures an Uploader.
type UploaderConfig struct {
	ReportType string
	Tester     string
	Interval   time.Duration
	// RetryFailed re-attempts persisted failures at the start of every cycle.
	RetryFailed bool
}

// Uploader moves boards from the queue to the sink and records the ones that
// could not be delivered.
type Uploader struct {
	queue *Queue
	sink  Sink
	store *Store
	cfg   UploaderConfig

	cycleMu sync.Mutex // serializes cycles; only a cycle writes failures

	mu       sync.Mutex
	failures []FailureRecord
}

// NewUploader creates an Uploader seeded with the persisted failure records.
func NewUploader(queue *Queue, sink Sink, store *Store, cfg UploaderConfig) (*Uploader, error) {
	switch {
	case queue == nil:
		return nil, errors.New("outbox: queue is required")
	case sink == nil:
		return nil, errors.New("outbox: sink is required")
	case store == nil:
		return nil, errors.New("outbox: store is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	failures := store.Load()
	log.Info().Int("failures", len(failures)).Str("path", store.Path()).Msg("outbox loaded failure records")
	return &Uploader{
		queue:    queue,
		sink:     sink,
		store:    store,
		cfg:      cfg,
		failures: failures,
	}, nil
}

// Failures returns a copy of the current failure list.
func (u *Uploader) Failures() []FailureRecord {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]FailureRecord(nil), u.failures...)
}

// Run uploads pending boards every interval until ctx is done.
func (u *Uploader) Run(ctx context.Context) error {
	log.Info().
		Dur("interval", u.cfg.Interval).
		Bool("retry_failed", u.cfg.RetryFailed).
		Msg("report uploader started")

	ticker := time.NewTicker(u.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("report uploader stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := u.RunOnce(ctx); err != nil {
				log.Error().Err(err).Msg("upload cycle failed")
			}
		}
	}
}

// RunOnce performs one upload cycle and persists the resulting failure list.
func (u *Uploader) RunOnce(ctx context.Context) error {
	return u.cycle(ctx, u.cfg.RetryFailed)
}

// Drain runs one cycle that always re-attempts persisted failures.
func (u *Uploader) Drain(ctx context.Context) error {
	return u.cycle(ctx, true)
}

// cycle uploads without holding mu, so Failures stays responsive while a
// slow collector is being contacted.
func (u *Uploader) cycle(ctx context.Context, retry bool) error {
	u.cycleMu.Lock()
	defer u.cycleMu.Unlock()

	failures := u.Failures()
	if retry && len(failures) > 0 {
		failures = u.retry(ctx, failures)
	}

	for _, b := range u.queue.Drain() {
		if b.Identity() == "" {
			log.Warn().Time("started_at", b.StartedAt).Msg("board has no id, skipping upload")
			continue
		}
		if err := u.upload(ctx, b); err != nil {
			log.Error().Err(err).Str("board_id", b.Identity()).Msg("board upload failed")
			failures = append(failures, FailureRecord{Board: b, Error: err.Error()})
		}
	}

	u.mu.Lock()
	u.failures = failures
	u.mu.Unlock()

	if err := u.store.Save(failures); err != nil {
		return errors.Wrap(err, "save failure records")
	}
	return nil
}

func (u *Uploader) retry(ctx context.Context, records []FailureRecord) []FailureRecord {
	kept := records[:0:0]
	for _, rec := range records {
		if rec.Board == nil || rec.Board.Identity() == "" {
			kept = append(kept, rec)
			continue
		}
		if err := u.upload(ctx, rec.Board); err != nil {
			log.Warn().Err(err).Str("board_id", rec.Board.Identity()).Msg("retry of failed upload failed")
			kept = append(kept, FailureRecord{Board: rec.Board, Error: err.Error()})
			continue
		}
		log.Info().Str("board_id", rec.Board.Identity()).Msg("previously failed upload delivered")
	}
	return kept
}

func (u *Uploader) upload(ctx context.Context, b *pipeline.Board) error {
	status, err := u.sink.Upload(ctx, report.FromBoard(b, u.cfg.ReportType, u.cfg.Tester))
	if err != nil {
		return err
	}
	if !report.IsSuccess(status) {
		return &report.StatusError{Status: status}
	}
	log.Info().Str("board_id", b.Identity()).Int("status", status).Msg("board uploaded")
	return nil
}

func (r FailureRecord) String() string {
	return fmt.Sprintf("%s: %s", r.Board.Identity(), r.Error)
}
