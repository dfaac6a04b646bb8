package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/IMayBeABitShy/zimfiction/internal/app"
	"github.com/IMayBeABitShy/zimfiction/internal/config"
	"github.com/IMayBeABitShy/zimfiction/internal/logging"
)

const (
	exitOK          = 0
	exitBuildFailed = 1
	exitBadArgs     = 2
	exitInterrupted = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()

	var (
		flagThreaded     bool
		flagWorkers      int
		flagLogDirectory string
		flagMemprofile   string
		flagNoExternal   bool
		flagSkipStories  bool
	)

	buildCmd := &cobra.Command{
		Use:   "build <store-url> <output.zim>",
		Short: "Render the story store into a browsable ZIM file",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return &usageError{message: "build requires exactly two arguments: <store-url> <output.zim>"}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Store.URL = args[0]
			cfg.Build.Threaded = flagThreaded
			if flagWorkers > 0 {
				cfg.Build.Workers = flagWorkers
			}
			cfg.Build.LogDirectory = flagLogDirectory
			cfg.Build.MemprofileDirectory = flagMemprofile
			if flagNoExternal {
				cfg.Render.IncludeExternalLinks = false
			}
			cfg.Build.SkipStories = flagSkipStories
			cfg.Normalize()

			runID := uuid.NewString()[:8]
			logger := logging.New(cfg.Logging.Level)
			var logCloser io.Closer
			if cfg.Build.LogDirectory != "" {
				var err error
				logger, logCloser, err = logging.NewWithDirectory(cfg.Logging.Level, cfg.Build.LogDirectory, runID)
				if err != nil {
					return err
				}
				defer logCloser.Close()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application := app.New(cfg, logger, runID)
			report, err := application.Run(ctx, args[1])
			logger.Info("build report",
				"stories_skipped", report.StoriesSkipped,
				"artifacts_failed", report.ArtifactsFailed,
				"artifacts_written", report.ArtifactsWritten,
				"redirects_written", report.RedirectsWritten,
				"bytes_written", report.BytesWritten,
			)
			return err
		},
	}
	buildCmd.Flags().BoolVar(&flagThreaded, "threaded", false, "share one store handle between workers (not recommended)")
	buildCmd.Flags().IntVar(&flagWorkers, "workers", 0, "render worker count (default: cores-1)")
	buildCmd.Flags().StringVar(&flagLogDirectory, "log-directory", "", "also write the build log into this directory")
	buildCmd.Flags().StringVar(&flagMemprofile, "memprofile-directory", "", "write heap profiles after each phase into this directory")
	buildCmd.Flags().BoolVar(&flagNoExternal, "no-external-links", false, "omit links to the original story URLs")
	buildCmd.Flags().BoolVar(&flagSkipStories, "debug-skip-stories", false, "debug option: do not render stories")

	root := &cobra.Command{
		Use:           "zimfiction",
		Short:         "Convert fanfiction archive dumps into browsable offline ZIM files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(buildCmd)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{message: err.Error()}
	})

	if err := root.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "interrupted")
			return exitInterrupted
		}
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintln(os.Stderr, err)
			return exitBadArgs
		}
		fmt.Fprintln(os.Stderr, err)
		return exitBuildFailed
	}
	return exitOK
}

// usageError marks argument validation failures so they map to exit code 2.
type usageError struct {
	message string
}

func (e *usageError) Error() string { return e.message }
