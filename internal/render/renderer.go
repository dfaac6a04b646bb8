package render

import (
	"encoding/json"
	"fmt"

	"github.com/IMayBeABitShy/zimfiction/internal/domain"
	"github.com/IMayBeABitShy/zimfiction/internal/normalize"
	"github.com/IMayBeABitShy/zimfiction/internal/stats"
)

// Renderer expands entities into artifacts. It performs no I/O and holds
// only immutable state, so a single instance is shared by all workers.
type Renderer struct {
	registry *Registry
	opts     Options
}

// NewRenderer builds a renderer around a parsed template registry.
func NewRenderer(registry *Registry, opts Options) *Renderer {
	if opts.StoriesPerPage <= 0 {
		opts.StoriesPerPage = 20
	}
	return &Renderer{registry: registry, opts: opts}
}

// StoriesPerPage returns the pagination size in use.
func (r *Renderer) StoriesPerPage() int { return r.opts.StoriesPerPage }

// RenderStory produces the chapter pages, the chapter listing, the preview
// payload and the story redirect.
func (r *Renderer) RenderStory(story *domain.Story) ([]Artifact, error) {
	const toRoot = "../../.."
	base := fmt.Sprintf("story/%s/%d", story.Publisher, story.ID)
	var artifacts []Artifact

	minChapter := 0
	for i, chapter := range story.Chapters {
		if i == 0 || chapter.Index < minChapter {
			minChapter = chapter.Index
		}
	}

	for _, chapter := range story.Chapters {
		view := chapterView{
			ToRoot:       toRoot,
			Title:        fmt.Sprintf("%s by %s - Chapter %d - %s", story.Title, story.AuthorName, chapter.Index, chapter.Title),
			Card:         r.storyCard(story, toRoot, chapter.Index == minChapter),
			ChapterTitle: chapter.Title,
			ChapterIndex: chapter.Index,
			NumChapters:  len(story.Chapters),
			IndexHref:    "index",
			Text:         chapter.Text,
		}
		if chapter.Index > 1 {
			view.PrevHref = fmt.Sprintf("%d", chapter.Index-1)
		}
		if chapter.Index < len(story.Chapters) {
			view.NextHref = fmt.Sprintf("%d", chapter.Index+1)
		}
		content, err := r.registry.Render(TemplateChapter, view)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, page(
			fmt.Sprintf("%s/%d", base, chapter.Index),
			view.Title,
			content,
			chapter.Index == minChapter,
		))
	}

	listing := chapterIndexView{
		ToRoot: toRoot,
		Title:  fmt.Sprintf("%s by %s on %s - List of chapters", story.Title, story.AuthorName, story.Publisher),
		Card:   r.storyCard(story, toRoot, false),
	}
	for _, chapter := range story.Chapters {
		listing.Chapters = append(listing.Chapters, chapterListEntry{
			Index: chapter.Index,
			Title: chapter.Title,
			Words: FormatNumber(chapter.NumWords),
		})
	}
	content, err := r.registry.Render(TemplateChapterIndex, listing)
	if err != nil {
		return nil, err
	}
	artifacts = append(artifacts, page(base+"/index", listing.Title, content, false))

	preview, err := json.Marshal(story.PreviewData(FormatNumber))
	if err != nil {
		return nil, fmt.Errorf("render: marshal preview for %s/%d: %w", story.Publisher, story.ID, err)
	}
	artifacts = append(artifacts, jsonArtifact(base+"/preview.json", story.Title, preview))

	artifacts = append(artifacts, redirect(
		base+"/",
		fmt.Sprintf("%s by %s on %s", story.Title, story.AuthorName, story.Publisher),
		fmt.Sprintf("%s/%d", base, minChapter),
		true,
	))
	return artifacts, nil
}

// ListScope describes one paginated story list: a tag, category or author
// page.
type ListScope struct {
	// BasePath is the path prefix without trailing slash, e.g.
	// "tag/genre/fluff".
	BasePath string
	// ToRoot is the relative prefix from a page under BasePath to the
	// site root.
	ToRoot string
	Title  string
	// Subtitle is shown under the title (e.g. the author URL line).
	Subtitle string
	// HasSearch enables the search UI on page 1.
	HasSearch bool
	// StatsHref links to the scope's stats page when non-empty.
	StatsHref string
	// AltAuthors are the cross-publisher identities shown on author
	// pages.
	AltAuthors []domain.Author
}

// RenderStoryList produces the paginated list pages for a scope plus the
// redirect from the bare scope path to page 1.
func (r *Renderer) RenderStoryList(scope ListScope, stories []*domain.Story) ([]Artifact, error) {
	perPage := r.opts.StoriesPerPage
	numPages := (len(stories) + perPage - 1) / perPage
	if numPages == 0 {
		numPages = 1
	}

	var artifacts []Artifact
	artifacts = append(artifacts, redirect(scope.BasePath+"/", scope.Title, scope.BasePath+"/1", true))

	for pageNum := 1; pageNum <= numPages; pageNum++ {
		start := (pageNum - 1) * perPage
		end := start + perPage
		if end > len(stories) {
			end = len(stories)
		}
		view := listView{
			ToRoot:    scope.ToRoot,
			Title:     scope.Title,
			Subtitle:  scope.Subtitle,
			Buttons:   Pagination(pageNum, numPages),
			HasSearch: scope.HasSearch && pageNum == 1,
			StatsHref: scope.StatsHref,
		}
		for _, author := range scope.AltAuthors {
			view.AltAuthors = append(view.AltAuthors, TagLink{
				Type: author.Publisher,
				Name: fmt.Sprintf("%s on %s", author.Name, author.Publisher),
				Href: fmt.Sprintf("%s/author/%s/%s/1", scope.ToRoot, author.Publisher, NormalizeTag(author.Name)),
			})
		}
		for _, story := range stories[start:end] {
			view.Cards = append(view.Cards, r.storyCard(story, scope.ToRoot, false))
		}
		content, err := r.registry.Render(TemplateStoryList, view)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, page(
			fmt.Sprintf("%s/%d", scope.BasePath, pageNum),
			fmt.Sprintf("%s - Page %d", scope.Title, pageNum),
			content,
			pageNum == 1,
		))
	}
	return artifacts, nil
}

// RenderScopeStats produces the stats page of a tag or category scope.
func (r *Renderer) RenderScopeStats(scope ListScope, listStats stats.StoryListStats) ([]Artifact, error) {
	view := scopeStatsView{
		ToRoot:   scope.ToRoot,
		Title:    scope.Title + " - Statistics",
		BackHref: "1",
		Stats:    listStats,
	}
	content, err := r.registry.Render(TemplateScopeStats, view)
	if err != nil {
		return nil, err
	}
	return []Artifact{page(scope.BasePath+"/stats", view.Title, content, false)}, nil
}

// RenderSeries produces the single series page; stories are the resolved
// members in series order.
func (r *Renderer) RenderSeries(series *domain.Series, stories []*domain.Story) ([]Artifact, error) {
	const toRoot = "../../.."
	view := seriesView{
		ToRoot: toRoot,
		Title:  fmt.Sprintf("Series: '%s' on %s", series.Name, series.Publisher),
	}
	for _, story := range stories {
		view.Cards = append(view.Cards, r.storyCard(story, toRoot, false))
	}
	content, err := r.registry.Render(TemplateSeries, view)
	if err != nil {
		return nil, err
	}
	path := fmt.Sprintf("series/%s/%s/", series.Publisher, normalize.Slug(series.Name))
	return []Artifact{page(path, view.Title, content, true)}, nil
}

// RenderPublisher produces the publisher landing page and the paginated
// category listing.
func (r *Renderer) RenderPublisher(publisher domain.Publisher, categories []domain.Category) ([]Artifact, error) {
	var artifacts []Artifact
	landing := publisherView{
		ToRoot:         "../..",
		Title:          "Publisher: " + publisher.Name,
		Publisher:      publisher,
		CategoriesHref: "categories/1",
	}
	content, err := r.registry.Render(TemplatePublisher, landing)
	if err != nil {
		return nil, err
	}
	artifacts = append(artifacts, page(fmt.Sprintf("publisher/%s/", publisher.Name), landing.Title, content, true))

	perPage := r.opts.StoriesPerPage
	numPages := (len(categories) + perPage - 1) / perPage
	if numPages == 0 {
		numPages = 1
	}
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		start := (pageNum - 1) * perPage
		end := start + perPage
		if end > len(categories) {
			end = len(categories)
		}
		view := publisherCategoriesView{
			ToRoot:  "../../..",
			Title:   fmt.Sprintf("Categories on %s - Page %d", publisher.Name, pageNum),
			Buttons: Pagination(pageNum, numPages),
		}
		for _, category := range categories[start:end] {
			view.Categories = append(view.Categories, categoryEntry{
				Name:       category.Name,
				Href:       fmt.Sprintf("../../../category/%s/%s/1", publisher.Name, NormalizeTag(category.Name)),
				StoryCount: FormatNumber(category.StoryCount),
			})
		}
		content, err := r.registry.Render(TemplatePublisherCategories, view)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, page(
			fmt.Sprintf("publisher/%s/categories/%d", publisher.Name, pageNum),
			view.Title,
			content,
			false,
		))
	}
	return artifacts, nil
}

// RenderIndex produces the global landing page.
func (r *Renderer) RenderIndex(publishers []domain.Publisher) ([]Artifact, error) {
	view := indexView{
		ToRoot: ".",
		Title:  "Welcome to ZimFiction!",
	}
	for _, publisher := range publishers {
		view.Publishers = append(view.Publishers, publisherEntry{
			Name:       publisher.Name,
			Href:       fmt.Sprintf("publisher/%s/", publisher.Name),
			StoryCount: FormatNumber(publisher.StoryCount),
		})
	}
	content, err := r.registry.Render(TemplateIndex, view)
	if err != nil {
		return nil, err
	}
	return []Artifact{page("index.html", view.Title, content, true)}, nil
}

// RenderGlobalStats produces statistics.html.
func (r *Renderer) RenderGlobalStats(listStats stats.StoryListStats) ([]Artifact, error) {
	view := globalStatsView{
		ToRoot: ".",
		Title:  "Statistics",
		Stats:  listStats,
	}
	content, err := r.registry.Render(TemplateGlobalStats, view)
	if err != nil {
		return nil, err
	}
	return []Artifact{page("statistics.html", view.Title, content, true)}, nil
}

// RenderInfoPages produces the info and acknowledgements pages.
func (r *Renderer) RenderInfoPages() ([]Artifact, error) {
	var artifacts []Artifact
	for _, entry := range []struct {
		template TemplateName
		path     string
		title    string
	}{
		{TemplateInfo, "info/index.html", "About this archive"},
		{TemplateAcknowledgements, "info/acknowledgements.html", "Acknowledgements"},
	} {
		content, err := r.registry.Render(entry.template, infoView{ToRoot: "..", Title: entry.title})
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, page(entry.path, entry.title, content, false))
	}
	return artifacts, nil
}
