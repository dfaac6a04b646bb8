package build

import (
	"context"
	"fmt"

	"github.com/IMayBeABitShy/zimfiction/internal/config"
	"github.com/IMayBeABitShy/zimfiction/internal/domain"
	"github.com/IMayBeABitShy/zimfiction/internal/normalize"
	"github.com/IMayBeABitShy/zimfiction/internal/ports"
)

// JobKind is the closed set of work unit types.
type JobKind int

const (
	JobStories JobKind = iota
	JobAuthor
	JobSeries
	JobTag
	JobCategory
	JobPublisher
	JobEtc
)

// Job is one unit of work a render worker processes. Jobs within a phase are
// content-independent: no two jobs of the same phase touch shared state.
type Job struct {
	Kind JobKind

	// Story jobs carry a batch of ids.
	StoryIDs []ports.StoryID

	// Entity jobs.
	TagType   domain.TagType
	Name      string
	Publisher domain.Publisher

	// Etc jobs name their subtask: index, stats, info, assets.
	Subtask string
}

// Phase is one stage of the plan; its jobs run to completion before the next
// phase starts, because later phases read aggregates produced earlier.
type Phase struct {
	Name string
	Plan func(ctx context.Context, jobs chan<- Job) error
}

// Planner enumerates the work set lazily; it never materializes the complete
// job list. Slug collisions inside one URL namespace are detected while
// enumerating and abort the plan.
type Planner struct {
	store ports.StoryStore
	cfg   config.Config
}

// NewPlanner creates a planner over the given store.
func NewPlanner(store ports.StoryStore, cfg config.Config) *Planner {
	return &Planner{store: store, cfg: cfg}
}

// send enqueues a job, honoring cancellation.
func send(ctx context.Context, jobs chan<- Job, job Job) error {
	select {
	case jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// slugSet tracks slugs inside one URL namespace and reports collisions.
type slugSet map[string]string

func (s slugSet) add(namespace, name string) error {
	slug := normalize.Slug(name)
	if existing, ok := s[slug]; ok && existing != name {
		return fmt.Errorf("plan: slug collision in %s: %q and %q both map to %q", namespace, existing, name, slug)
	}
	s[slug] = name
	return nil
}

// Phases returns the six build phases in execution order.
func (p *Planner) Phases() []Phase {
	return []Phase{
		{Name: "stories", Plan: p.planStories},
		{Name: "authors", Plan: p.planAuthors},
		{Name: "series", Plan: p.planSeries},
		{Name: "tags", Plan: p.planTagsAndCategories},
		{Name: "publishers", Plan: p.planPublishers},
		{Name: "etc", Plan: p.planEtc},
	}
}

func (p *Planner) planStories(ctx context.Context, jobs chan<- Job) error {
	if p.cfg.Build.SkipStories {
		return nil
	}
	perTask := p.cfg.Build.StoriesPerTask
	batch := make([]ports.StoryID, 0, perTask)
	err := p.store.ForEachStoryID(ctx, func(id ports.StoryID) error {
		batch = append(batch, id)
		if len(batch) >= perTask {
			job := Job{Kind: JobStories, StoryIDs: batch}
			batch = make([]ports.StoryID, 0, perTask)
			return send(ctx, jobs, job)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(batch) > 0 {
		return send(ctx, jobs, Job{Kind: JobStories, StoryIDs: batch})
	}
	return nil
}

func (p *Planner) planAuthors(ctx context.Context, jobs chan<- Job) error {
	slugs := make(map[string]slugSet)
	return p.store.ForEachAuthor(ctx, func(author domain.Author) error {
		namespace := "author/" + author.Publisher
		set, ok := slugs[namespace]
		if !ok {
			set = slugSet{}
			slugs[namespace] = set
		}
		if err := set.add(namespace, author.Name); err != nil {
			return err
		}
		return send(ctx, jobs, Job{
			Kind:      JobAuthor,
			Name:      author.Name,
			Publisher: domain.Publisher{Name: author.Publisher},
		})
	})
}

func (p *Planner) planSeries(ctx context.Context, jobs chan<- Job) error {
	slugs := make(map[string]slugSet)
	return p.store.ForEachSeries(ctx, func(publisher, name string) error {
		namespace := "series/" + publisher
		set, ok := slugs[namespace]
		if !ok {
			set = slugSet{}
			slugs[namespace] = set
		}
		if err := set.add(namespace, name); err != nil {
			return err
		}
		return send(ctx, jobs, Job{
			Kind:      JobSeries,
			Name:      name,
			Publisher: domain.Publisher{Name: publisher},
		})
	})
}

func (p *Planner) planTagsAndCategories(ctx context.Context, jobs chan<- Job) error {
	tagSlugs := make(map[string]slugSet)
	err := p.store.ForEachTag(ctx, func(tag domain.Tag) error {
		if tag.Type == domain.TagCategory {
			// Categories render under their own namespace in phase 4's
			// category pass.
			return nil
		}
		namespace := "tag/" + string(tag.Type)
		set, ok := tagSlugs[namespace]
		if !ok {
			set = slugSet{}
			tagSlugs[namespace] = set
		}
		if err := set.add(namespace, tag.Name); err != nil {
			return err
		}
		return send(ctx, jobs, Job{Kind: JobTag, TagType: tag.Type, Name: tag.Name})
	})
	if err != nil {
		return err
	}

	categorySlugs := make(map[string]slugSet)
	return p.store.ForEachCategory(ctx, func(category domain.Category) error {
		namespace := "category/" + category.Publisher
		set, ok := categorySlugs[namespace]
		if !ok {
			set = slugSet{}
			categorySlugs[namespace] = set
		}
		if err := set.add(namespace, category.Name); err != nil {
			return err
		}
		return send(ctx, jobs, Job{
			Kind:      JobCategory,
			Name:      category.Name,
			Publisher: domain.Publisher{Name: category.Publisher},
		})
	})
}

func (p *Planner) planPublishers(ctx context.Context, jobs chan<- Job) error {
	return p.store.ForEachPublisher(ctx, func(publisher domain.Publisher) error {
		return send(ctx, jobs, Job{Kind: JobPublisher, Publisher: publisher})
	})
}

func (p *Planner) planEtc(ctx context.Context, jobs chan<- Job) error {
	for _, subtask := range []string{"index", "stats", "info", "assets"} {
		if err := send(ctx, jobs, Job{Kind: JobEtc, Subtask: subtask}); err != nil {
			return err
		}
	}
	return nil
}
