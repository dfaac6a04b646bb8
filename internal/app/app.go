// Package app wires configuration, logging, the store and the builder into a
// runnable build.
package app

import (
	"context"
	"log/slog"

	"github.com/IMayBeABitShy/zimfiction/internal/build"
	"github.com/IMayBeABitShy/zimfiction/internal/config"
	"github.com/IMayBeABitShy/zimfiction/internal/store"
)

// Application owns the collaborators of one build run.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	runID  string
}

// New builds a runnable application instance.
func New(cfg config.Config, logger *slog.Logger, runID string) *Application {
	return &Application{cfg: cfg, logger: logger, runID: runID}
}

// Run opens the store, executes the build into outPath and returns the final
// counter report.
func (a *Application) Run(ctx context.Context, outPath string) (build.Report, error) {
	poolSize := a.cfg.Build.Workers + 2
	if a.cfg.Build.Threaded {
		// Shared single store handle; workers contend on it.
		poolSize = 1
	}
	st, err := store.Open(a.cfg.Store.URL, poolSize, a.logger.With("component", "store"))
	if err != nil {
		return build.Report{}, err
	}
	defer st.Close()

	builder := build.NewBuilder(st, a.cfg, a.logger.With("component", "build"), a.runID)
	return builder.Build(ctx, outPath)
}
