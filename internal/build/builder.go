package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/IMayBeABitShy/zimfiction/internal/config"
	"github.com/IMayBeABitShy/zimfiction/internal/ports"
	"github.com/IMayBeABitShy/zimfiction/internal/render"
	"github.com/IMayBeABitShy/zimfiction/internal/zim"
)

// Builder runs the whole build: it opens the ZIM writer, walks the phases of
// the plan with a worker pool, and reports the final counters. All shared
// mutable state (counters, the aggregator, the queue) lives here rather than
// in globals.
type Builder struct {
	store    ports.StoryStore
	cfg      config.Config
	logger   *slog.Logger
	runID    string
	counters Counters
}

// NewBuilder wires a builder.
func NewBuilder(store ports.StoryStore, cfg config.Config, logger *slog.Logger, runID string) *Builder {
	return &Builder{store: store, cfg: cfg, logger: logger, runID: runID}
}

// Build writes the complete ZIM to outPath. Any writer error is fatal and
// removes the partial output; cancellation does the same and surfaces as the
// context error.
func (b *Builder) Build(ctx context.Context, outPath string) (Report, error) {
	start := time.Now()
	registry, err := render.NewRegistry()
	if err != nil {
		return b.counters.Snapshot(), err
	}
	renderer := render.NewRenderer(registry, render.Options{
		StoriesPerPage:       b.cfg.Render.StoriesPerPage,
		IncludeExternalLinks: b.cfg.Render.IncludeExternalLinks,
	})

	writer, err := zim.NewWriter(outPath, zim.Options{
		ClusterSize: b.cfg.Zim.ClusterSize,
		Compression: b.cfg.Zim.Compression,
	})
	if err != nil {
		return b.counters.Snapshot(), err
	}
	if err := b.addMetadata(writer); err != nil {
		writer.Abort()
		return b.counters.Snapshot(), err
	}
	writer.SetMainPath("index.html")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := NewArtifactQueue(b.cfg.Build.QueueFactor * b.cfg.Build.Workers)
	writerDone := make(chan error, 1)
	go func() {
		writerDone <- b.writerLoop(queue, writer, cancel)
	}()

	aggregator := NewAggregator()
	var snapshot *Snapshot

	planner := NewPlanner(b.store, b.cfg)
	var buildErr error
	for _, phase := range planner.Phases() {
		if buildErr != nil || ctx.Err() != nil {
			break
		}
		b.logger.Info("phase starting", "phase", phase.Name)
		phaseStart := time.Now()
		buildErr = b.runPhase(ctx, phase, aggregator, snapshot, renderer, queue)
		if phase.Name == "stories" {
			snapshot = aggregator.Seal()
		}
		b.logger.Info("phase finished", "phase", phase.Name, "elapsed", time.Since(phaseStart).Round(time.Millisecond))
		b.writeMemprofile(phase.Name)
	}
	// Seal even when the story phase was skipped so later reads are safe.
	if snapshot == nil {
		snapshot = aggregator.Seal()
	}

	queue.Close()
	writerErr := <-writerDone

	report := b.counters.Snapshot()
	switch {
	case writerErr != nil:
		writer.Abort()
		return report, fmt.Errorf("zim write failed: %w", writerErr)
	case buildErr != nil:
		writer.Abort()
		return report, buildErr
	case ctx.Err() != nil:
		writer.Abort()
		return report, ctx.Err()
	}

	if err := writer.Finish(); err != nil {
		return report, err
	}
	report = b.counters.Snapshot()
	b.logger.Info("build finished",
		"elapsed", render.FormatTimedelta(time.Since(start)),
		"artifacts_written", report.ArtifactsWritten,
		"redirects_written", report.RedirectsWritten,
		"artifacts_failed", report.ArtifactsFailed,
		"stories_skipped", report.StoriesSkipped,
		"bytes_written", render.FormatSize(report.BytesWritten),
	)
	return report, nil
}

// runPhase plans one phase into a bounded job stream and runs the worker
// pool over it to completion.
func (b *Builder) runPhase(ctx context.Context, phase Phase, aggregator *Aggregator, snapshot *Snapshot, renderer *render.Renderer, queue *ArtifactQueue) error {
	jobs := make(chan Job, 4*b.cfg.Build.Workers)
	planErr := make(chan error, 1)
	go func() {
		defer close(jobs)
		planErr <- phase.Plan(ctx, jobs)
	}()

	var workerAggregator *Aggregator
	if phase.Name == "stories" {
		workerAggregator = aggregator
	}

	var wg sync.WaitGroup
	for i := 0; i < b.cfg.Build.Workers; i++ {
		worker := &Worker{
			id:         i,
			store:      b.store,
			renderer:   renderer,
			queue:      queue,
			counters:   &b.counters,
			cfg:        b.cfg,
			logger:     b.logger.With("component", "worker", "phase", phase.Name),
			aggregator: workerAggregator,
			snapshot:   snapshot,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.run(ctx, jobs)
		}()
	}
	wg.Wait()
	if err := <-planErr; err != nil && ctx.Err() == nil {
		return fmt.Errorf("plan phase %s: %w", phase.Name, err)
	}
	return nil
}

// writerLoop is the single consumer of the artifact queue. A write error is
// fatal: it cancels the build but keeps draining the queue so producers are
// never left blocked.
func (b *Builder) writerLoop(queue *ArtifactQueue, writer *zim.Writer, cancel context.CancelFunc) error {
	var firstErr error
	for artifact := range queue.Drain() {
		if firstErr != nil {
			continue
		}
		var err error
		if artifact.IsRedirect() {
			err = writer.AddRedirect(artifact.Path, artifact.Title, artifact.RedirectTarget)
			if err == nil {
				b.counters.RedirectsWritten.Add(1)
			}
		} else {
			err = writer.AddContent(artifact.Path, artifact.Title, artifact.Mime, artifact.Data, zim.Hints{
				FrontArticle: artifact.FrontArticle,
				Compress:     artifact.Compress,
				Share:        artifact.Share,
			})
			if err == nil {
				b.counters.ArtifactsWritten.Add(1)
				b.counters.BytesWritten.Add(int64(len(artifact.Data)))
			}
		}
		if err != nil {
			firstErr = err
			cancel()
		}
	}
	return firstErr
}

// addMetadata writes the container metadata records.
func (b *Builder) addMetadata(writer *zim.Writer) error {
	build := b.cfg.Build
	indexing := "no"
	if build.Indexing {
		indexing = "yes"
	}
	metadata := [][2]string{
		{"Name", build.Name},
		{"Title", build.Title},
		{"Creator", build.Creator},
		{"Date", time.Now().Format("2006-01-02")},
		{"Publisher", build.Publisher},
		{"Description", build.Description},
		{"Language", build.Language},
		{"Tags", "_sw:no;_ftindex:" + indexing + ";_pictures:no;_videos:no;_category:fanfiction"},
		{"Scraper", "zimfiction"},
	}
	for _, entry := range metadata {
		if err := writer.AddMetadata(entry[0], entry[1]); err != nil {
			return err
		}
	}
	return nil
}

// writeMemprofile dumps a heap profile after a phase when configured.
func (b *Builder) writeMemprofile(phase string) {
	dir := b.cfg.Build.MemprofileDirectory
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		b.logger.Warn("memprofile directory", "error", err)
		return
	}
	path := filepath.Join(dir, fmt.Sprintf("heap-%s-%s.pprof", b.runID, phase))
	file, err := os.Create(path)
	if err != nil {
		b.logger.Warn("memprofile create", "error", err)
		return
	}
	defer file.Close()
	if err := pprof.WriteHeapProfile(file); err != nil {
		b.logger.Warn("memprofile write", "error", err)
	}
}
