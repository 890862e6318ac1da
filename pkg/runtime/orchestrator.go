// Package runtime is the single entry point described in spec.md
// §4.9: build context, run phases in order, install signal handlers,
// propagate shutdown. Grounded on
// original_source/libs/modkit/src/runtime/runner.rs, with the Migrate
// phase grounded on registry.rs's explicit run_db_phase instead of
// runner.rs's DbManager-skip path (see SPEC_FULL.md's resolved
// divergences), and on the teacher's StdApplication.Run for OS signal
// wiring.
package runtime

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/hyperspot-dev/hyperspot/pkg/modkit"
)

// Options configures a single orchestrator run.
type Options struct {
	// Builder has every module descriptor already registered.
	Builder *modkit.RegistryBuilder
	// Config is the raw-JSON-by-module-name provider (spec.md §4.7).
	Config modkit.ConfigProvider
	// DB is the shared database handle passed to the Migrate phase.
	// Nil means no database collaborator is configured.
	DB modkit.DBHandle
	// Logger is used for phase-boundary and stop-phase diagnostics.
	Logger modkit.Logger
	// ShutdownToken, if non-nil, is used as the root cancellation
	// token instead of one derived from OS signals; callers retain
	// control over when to cancel it.
	ShutdownToken *modkit.Token
	// Events optionally receives a CloudEvent per completed phase.
	Events EventSink
}

// Run executes Build -> Init -> Migrate -> REST -> Start -> (await
// shutdown) -> Stop, returning the first fatal error, if any.
func Run(opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = modkit.NewNoopLogger()
	}

	var cancel modkit.Token
	if opts.ShutdownToken != nil {
		cancel = *opts.ShutdownToken
	} else {
		cancel = modkit.NewToken()
		installSignalHandler(cancel)
	}

	hub := modkit.NewClientHub()
	baseCtx := modkit.NewRootModuleCtx(hub, opts.Config, opts.DB, cancel, logger)

	registry, err := opts.Builder.Build(logger)
	if err != nil {
		return err
	}

	logger.Info("phase: init")
	if err := registry.RunInit(baseCtx); err != nil {
		return err
	}
	emitPhase(opts.Events, "init")

	logger.Info("phase: migrate")
	if opts.DB != nil {
		if err := registry.RunMigrate(opts.DB); err != nil {
			return err
		}
	}
	emitPhase(opts.Events, "migrate")

	logger.Info("phase: rest")
	if _, err := registry.RunREST(baseCtx, chi.NewRouter()); err != nil {
		return err
	}
	emitPhase(opts.Events, "rest")

	logger.Info("phase: start")
	if err := registry.RunStart(cancel); err != nil {
		return err
	}
	emitPhase(opts.Events, "start")

	<-cancel.Cancelled()

	logger.Info("phase: stop")
	registry.RunStop(cancel)
	emitPhase(opts.Events, "stop")

	return nil
}

// installSignalHandler cancels token on SIGINT/SIGTERM, the way the
// teacher's StdApplication.Run wires os/signal.Notify.
func installSignalHandler(token modkit.Token) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		token.Cancel()
	}()
}
