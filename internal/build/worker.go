package build

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/IMayBeABitShy/zimfiction/internal/config"
	"github.com/IMayBeABitShy/zimfiction/internal/domain"
	"github.com/IMayBeABitShy/zimfiction/internal/normalize"
	"github.com/IMayBeABitShy/zimfiction/internal/ports"
	"github.com/IMayBeABitShy/zimfiction/internal/render"
	"github.com/IMayBeABitShy/zimfiction/internal/search"
	"github.com/IMayBeABitShy/zimfiction/internal/stats"
)

// Worker pulls jobs from the phase's job channel, projects entities through
// the renderer and pushes the resulting artifacts onto the queue. A failure
// on a single job is logged and the job dropped; workers never abort the
// build themselves.
type Worker struct {
	id         int
	store      ports.StoryStore
	renderer   *render.Renderer
	queue      *ArtifactQueue
	counters   *Counters
	cfg        config.Config
	logger     *slog.Logger
	aggregator *Aggregator // non-nil during the story phase only
	snapshot   *Snapshot   // non-nil from the author phase onward
}

func (w *Worker) run(ctx context.Context, jobs <-chan Job) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				if ctx.Err() != nil {
					return
				}
				w.counters.ArtifactsFailed.Add(1)
				w.logger.Error("job failed", "worker", w.id, "kind", job.Kind, "name", job.Name, "error", err)
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, job Job) error {
	switch job.Kind {
	case JobStories:
		return w.processStories(ctx, job)
	case JobAuthor:
		return w.processAuthor(ctx, job)
	case JobSeries:
		return w.processSeries(ctx, job)
	case JobTag:
		return w.processTag(ctx, job)
	case JobCategory:
		return w.processCategory(ctx, job)
	case JobPublisher:
		return w.processPublisher(ctx, job)
	case JobEtc:
		return w.processEtc(ctx, job)
	}
	return fmt.Errorf("unknown job kind %d", job.Kind)
}

func (w *Worker) pushAll(ctx context.Context, artifacts []render.Artifact) error {
	for _, artifact := range artifacts {
		if err := w.queue.Push(ctx, artifact); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) processStories(ctx context.Context, job Job) error {
	for _, id := range job.StoryIDs {
		story, err := w.store.GetStory(ctx, id)
		if err != nil {
			// Input corruption: drop the story, count it, keep going.
			w.counters.StoriesSkipped.Add(1)
			w.logger.Warn("skipping story", "publisher", id.Publisher, "id", id.ID, "error", err)
			continue
		}
		w.aggregator.Contribute(story)
		artifacts, err := w.renderer.RenderStory(story)
		if err != nil {
			w.counters.ArtifactsFailed.Add(1)
			w.logger.Error("story render failed", "publisher", id.Publisher, "id", id.ID, "error", err)
			continue
		}
		if err := w.pushAll(ctx, artifacts); err != nil {
			return err
		}
	}
	return nil
}

// loadStories fetches a story set, dropping corrupted entries.
func (w *Worker) loadStories(ctx context.Context, ids []ports.StoryID) ([]*domain.Story, error) {
	stories := make([]*domain.Story, 0, len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		story, err := w.store.GetStory(ctx, id)
		if err != nil {
			w.counters.StoriesSkipped.Add(1)
			w.logger.Warn("skipping story", "publisher", id.Publisher, "id", id.ID, "error", err)
			continue
		}
		stories = append(stories, story)
	}
	return stories, nil
}

// emitSearch produces the search index artifacts for a scope when its size is
// inside the configured bounds. The returned flag drives the Search Options
// button on the scope's first page.
func (w *Worker) emitSearch(basePath string, stories []*domain.Story) ([]render.Artifact, bool, error) {
	n := len(stories)
	if n < w.cfg.Search.MinStories || n > w.cfg.Search.MaxStories {
		return nil, false, nil
	}
	creator := search.NewMetadataCreator(w.cfg.Search.ShardSize)
	for _, story := range stories {
		creator.Feed(story.GetSearchData())
	}
	header, err := json.Marshal(creator.GetHeader())
	if err != nil {
		return nil, false, fmt.Errorf("marshal search header: %w", err)
	}
	artifacts := []render.Artifact{{
		Path:     basePath + "/search_header.json",
		Title:    "Search header",
		Mime:     "application/json",
		Data:     header,
		Compress: true,
	}}
	err = creator.ForEachPage(func(page int, content []byte) error {
		artifacts = append(artifacts, render.Artifact{
			Path:     fmt.Sprintf("%s/search_content_%d.json", basePath, page),
			Title:    fmt.Sprintf("Search content %d", page),
			Mime:     "application/json",
			Data:     content,
			Compress: true,
		})
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return artifacts, true, nil
}

// renderScope emits everything shared by tag and category pages: the
// paginated list, the stats page, the chart data and the search index.
func (w *Worker) renderScope(ctx context.Context, scope render.ListScope, stories []*domain.Story) error {
	searchArtifacts, hasSearch, err := w.emitSearch(scope.BasePath, stories)
	if err != nil {
		return err
	}
	scope.HasSearch = hasSearch
	scope.StatsHref = "stats"

	artifacts, err := w.renderer.RenderStoryList(scope, stories)
	if err != nil {
		return err
	}

	var creator stats.StoryListStatCreator
	for _, story := range stories {
		creator.Feed(story)
	}
	statsArtifacts, err := w.renderer.RenderScopeStats(scope, creator.Stats())
	if err != nil {
		return err
	}
	artifacts = append(artifacts, statsArtifacts...)

	chart, err := render.RenderChartData(scope.BasePath, stories)
	if err != nil {
		return err
	}
	artifacts = append(artifacts, chart)
	artifacts = append(artifacts, searchArtifacts...)
	return w.pushAll(ctx, artifacts)
}

func (w *Worker) processTag(ctx context.Context, job Job) error {
	ids, err := w.store.StoryIDsByTag(ctx, job.TagType, job.Name)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	stories, err := w.loadStories(ctx, ids)
	if err != nil {
		return err
	}
	scope := render.ListScope{
		BasePath: fmt.Sprintf("tag/%s/%s", job.TagType, normalize.Slug(job.Name)),
		ToRoot:   "../../..",
		Title:    fmt.Sprintf("Stories tagged '%s' [%s]", job.Name, job.TagType),
	}
	return w.renderScope(ctx, scope, stories)
}

func (w *Worker) processCategory(ctx context.Context, job Job) error {
	ids, err := w.store.StoryIDsByCategory(ctx, job.Publisher.Name, job.Name)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	stories, err := w.loadStories(ctx, ids)
	if err != nil {
		return err
	}
	// Category listings order by score, longest first on ties.
	sort.SliceStable(stories, func(i, j int) bool {
		if stories[i].Score != stories[j].Score {
			return stories[i].Score > stories[j].Score
		}
		return stories[i].TotalWords() > stories[j].TotalWords()
	})
	scope := render.ListScope{
		BasePath: fmt.Sprintf("category/%s/%s", job.Publisher.Name, normalize.Slug(job.Name)),
		ToRoot:   "../../..",
		Title:    fmt.Sprintf("Category: %s on %s", job.Name, job.Publisher.Name),
	}
	return w.renderScope(ctx, scope, stories)
}

func (w *Worker) processAuthor(ctx context.Context, job Job) error {
	ids, err := w.store.StoryIDsByAuthor(ctx, job.Publisher.Name, job.Name)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	stories, err := w.loadStories(ctx, ids)
	if err != nil {
		return err
	}
	sort.SliceStable(stories, func(i, j int) bool {
		return stories[i].Published.After(stories[j].Published)
	})

	scope := render.ListScope{
		BasePath: fmt.Sprintf("author/%s/%s", job.Publisher.Name, normalize.Slug(job.Name)),
		ToRoot:   "../../..",
		Title:    fmt.Sprintf("Author %s on %s", job.Name, job.Publisher.Name),
	}
	for _, identity := range w.snapshot.AltIdentities(job.Name) {
		if identity.Publisher == job.Publisher.Name && identity.Name == job.Name {
			continue
		}
		scope.AltAuthors = append(scope.AltAuthors, identity)
	}

	artifacts, err := w.renderer.RenderStoryList(scope, stories)
	if err != nil {
		return err
	}
	chart, err := render.RenderChartData(scope.BasePath, stories)
	if err != nil {
		return err
	}
	artifacts = append(artifacts, chart)
	return w.pushAll(ctx, artifacts)
}

func (w *Worker) processSeries(ctx context.Context, job Job) error {
	series, err := w.store.GetSeries(ctx, job.Publisher.Name, job.Name)
	if err != nil {
		return err
	}
	ids := make([]ports.StoryID, 0, len(series.Members))
	for _, member := range series.Members {
		ids = append(ids, ports.StoryID{Publisher: member.Publisher, ID: member.StoryID})
	}
	stories, err := w.loadStories(ctx, ids)
	if err != nil {
		return err
	}
	artifacts, err := w.renderer.RenderSeries(series, stories)
	if err != nil {
		return err
	}
	basePath := fmt.Sprintf("series/%s/%s", series.Publisher, normalize.Slug(series.Name))
	chart, err := render.RenderChartData(basePath, stories)
	if err != nil {
		return err
	}
	artifacts = append(artifacts, chart)
	return w.pushAll(ctx, artifacts)
}

func (w *Worker) processPublisher(ctx context.Context, job Job) error {
	categories, err := w.store.CategoriesByPublisher(ctx, job.Publisher.Name)
	if err != nil {
		return err
	}
	artifacts, err := w.renderer.RenderPublisher(job.Publisher, categories)
	if err != nil {
		return err
	}
	chart, err := json.Marshal(w.snapshot.PublisherChart(job.Publisher.Name))
	if err != nil {
		return err
	}
	artifacts = append(artifacts, render.Artifact{
		Path:     fmt.Sprintf("publisher/%s/storyupdates.json", job.Publisher.Name),
		Title:    "Story updates",
		Mime:     "application/json",
		Data:     chart,
		Compress: true,
	})
	return w.pushAll(ctx, artifacts)
}

func (w *Worker) processEtc(ctx context.Context, job Job) error {
	switch job.Subtask {
	case "index":
		var publishers []domain.Publisher
		err := w.store.ForEachPublisher(ctx, func(publisher domain.Publisher) error {
			publishers = append(publishers, publisher)
			return nil
		})
		if err != nil {
			return err
		}
		artifacts, err := w.renderer.RenderIndex(publishers)
		if err != nil {
			return err
		}
		return w.pushAll(ctx, artifacts)
	case "stats":
		artifacts, err := w.renderer.RenderGlobalStats(w.snapshot.GlobalStats)
		if err != nil {
			return err
		}
		return w.pushAll(ctx, artifacts)
	case "info":
		artifacts, err := w.renderer.RenderInfoPages()
		if err != nil {
			return err
		}
		return w.pushAll(ctx, artifacts)
	case "assets":
		artifacts, err := w.renderer.StaticAssets()
		if err != nil {
			return err
		}
		return w.pushAll(ctx, artifacts)
	}
	return fmt.Errorf("unknown etc subtask %q", job.Subtask)
}
