package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/buckleypaul/jig/internal/app"
	"github.com/buckleypaul/jig/internal/clock"
	"github.com/buckleypaul/jig/internal/config"
	"github.com/buckleypaul/jig/internal/journal"
	"github.com/buckleypaul/jig/internal/logbus"
	"github.com/buckleypaul/jig/internal/outbox"
	"github.com/buckleypaul/jig/internal/pipeline"
	"github.com/buckleypaul/jig/internal/station"
	"github.com/buckleypaul/jig/internal/ui"
)

const shutdownGrace = 5 * time.Second

type stationOptions struct {
	plain    bool
	logFile  string
	logLevel string
}

func (o *stationOptions) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.plain, "plain", false, "Redraw a plain screen instead of the full-screen UI; logs go to stderr")
	cmd.Flags().StringVar(&o.logFile, "log-file", "jig.log", "Log file used by the full-screen UI")
	cmd.Flags().StringVar(&o.logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
}

func newRunCmd() *cobra.Command {
	var opts stationOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the test station (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStation(cmd.Context(), opts)
		},
	}
	opts.register(cmd)
	return cmd
}

func runStation(parent context.Context, opts stationOptions) error {
	cleanup, err := setupLogging(opts.plain, opts.logFile, opts.logLevel)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Build {
		fmt.Fprintf(os.Stderr, "Building firmware (%s, env %s)...\n", cfg.FirmwareDir, cfg.PIOEnv)
		out, err := newPlatformIO(cfg, newRunner(cfg)).Build(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, out)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		log.Info().Str("dir", cfg.FirmwareDir).Str("env", cfg.PIOEnv).Msg("firmware built")
	}

	bus := logbus.New(64)
	p, closers, err := buildPipeline(cfg, bus.Producer(), clock.Real())
	if err != nil {
		return err
	}
	defer closeAll(closers)

	queue := outbox.NewQueue()
	uploader, err := buildUploader(cfg, queue)
	if err != nil {
		return err
	}

	var recorder station.Recorder
	if cfg.Journal != "" {
		j, err := journal.Open(cfg.Journal)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Journal).Msg("journal disabled")
		} else {
			defer j.Close()
			recorder = j
		}
	}

	variant := pipeline.Variant(cfg.ReportType)
	worker, err := station.NewWorker(p, variant, bus.Producer(), queue, recorder)
	if err != nil {
		return err
	}

	log.Info().
		Str("variant", cfg.ReportType).
		Str("tester", cfg.TesterName).
		Str("flash_backend", cfg.FlashBackend).
		Str("rpc_url", cfg.RPCURL).
		Str("env_file", config.LoadedPath()).
		Msg("starting station")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer bus.Close()
		if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("station worker stopped")
		}
	}()
	go func() {
		defer wg.Done()
		if err := uploader.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("uploader stopped")
		}
	}()

	if opts.plain {
		rendered := make(chan struct{})
		go func() {
			bus.Consumer().Run(ui.NewPlain(os.Stdout))
			close(rendered)
		}()
		select {
		case <-rendered:
		case <-ctx.Done():
		}
	} else if err := runTUI(ctx, stop, bus, app.Info{Variant: cfg.ReportType, Tester: cfg.TesterName}); err != nil {
		stop()
		return err
	}

	stop()
	waitTimeout(&wg, shutdownGrace)

	// Boards still queued are uploaded or land in the failure file.
	flushCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := uploader.RunOnce(flushCtx); err != nil {
		log.Error().Err(err).Msg("final upload cycle failed")
	}
	return nil
}

// runTUI renders the bus in a full-screen program. Quitting the program
// cancels the station; a cancelled station closes the bus, which quits the
// program.
func runTUI(ctx context.Context, stop context.CancelFunc, bus *logbus.Bus, info app.Info) error {
	prog := tea.NewProgram(app.New(info), tea.WithAltScreen())

	go func() {
		bus.Consumer().Run(app.NewRenderer(prog))
		prog.Send(app.ClosedMsg{})
	}()
	go func() {
		<-ctx.Done()
		prog.Quit()
	}()

	_, err := prog.Run()
	stop()
	return err
}

func waitTimeout(wg *sync.WaitGroup, d time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		log.Warn().Dur("grace", d).Msg("shutdown timed out waiting for hardware")
	}
}
