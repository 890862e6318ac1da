// Command hyperspotd wires up the ingress host and a demo business
// module through the module registry and runs the full orchestrator
// lifecycle, the way the teacher's cmd/ directories demonstrate
// StdApplication wiring for a concrete deployment.
package main

import (
	"log/slog"
	"os"

	"github.com/hyperspot-dev/hyperspot/internal/demo"
	"github.com/hyperspot-dev/hyperspot/pkg/config"
	"github.com/hyperspot-dev/hyperspot/pkg/ingress"
	"github.com/hyperspot-dev/hyperspot/pkg/modkit"
	"github.com/hyperspot-dev/hyperspot/pkg/runtime"
)

func main() {
	logger := modkit.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	cfgProvider := config.NewMapConfigProvider()
	if err := cfgProvider.ApplyEnvOverlay("HYPERSPOT"); err != nil {
		logger.Error("config: env overlay failed", "error", err)
		os.Exit(1)
	}

	builder := modkit.NewRegistryBuilder()
	if err := builder.Register(modkit.Descriptor{
		Name: ingress.Name,
		Caps: []modkit.Capability{modkit.CapCore, modkit.CapRESTHost, modkit.CapStateful},
		New:  ingress.New,
	}); err != nil {
		logger.Error("registry: register ingress failed", "error", err)
		os.Exit(1)
	}
	if err := builder.Register(modkit.Descriptor{
		Name: demo.UsersModuleName,
		Caps: []modkit.Capability{modkit.CapCore, modkit.CapREST},
		New:  demo.NewUsersModule,
	}); err != nil {
		logger.Error("registry: register users failed", "error", err)
		os.Exit(1)
	}

	if err := runtime.Run(runtime.Options{
		Builder: builder,
		Config:  cfgProvider,
		Logger:  logger,
	}); err != nil {
		logger.Error("runtime exited with error", "error", err)
		os.Exit(1)
	}
}
