package build

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/IMayBeABitShy/zimfiction/internal/config"
	"github.com/IMayBeABitShy/zimfiction/internal/domain"
	"github.com/IMayBeABitShy/zimfiction/internal/logging"
	"github.com/IMayBeABitShy/zimfiction/internal/store"
	"github.com/IMayBeABitShy/zimfiction/internal/zim"
)

// fixtureStore creates a file-backed store with one publisher, one author and
// one single-chapter story.
func fixtureStore(t *testing.T) *store.Store {
	t.Helper()
	logger := logging.New("error")
	st, err := store.Open(filepath.Join(t.TempDir(), "store.sqlite"), 2, logger)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	if err := st.CreateSchema(ctx); err != nil {
		t.Fatalf("CreateSchema: %v", err)
	}
	story := &domain.Story{
		Publisher:  "Demo",
		ID:         1,
		Title:      "A Demo Story",
		AuthorName: "Alice",
		Summary:    "<p>The one demo story.</p>",
		Language:   "English",
		Status:     domain.StatusCompleted,
		Rating:     "general",
		URL:        "https://example.org/1",
		Score:      3,
		Published:  time.Date(2020, time.January, 5, 0, 0, 0, 0, time.UTC),
		Updated:    time.Date(2020, time.February, 5, 0, 0, 0, 0, time.UTC),
		Packaged:   time.Date(2020, time.March, 5, 0, 0, 0, 0, time.UTC),
		Chapters: []domain.Chapter{
			{Index: 1, Title: "Hello world", Text: "<p>Hello world</p>", NumWords: 2},
		},
		Tags: []domain.TagRef{
			{Type: domain.TagGenre, Name: "romance"},
		},
		Categories: []domain.CategoryRef{{Name: "Example Fandom"}},
		Series:     []domain.SeriesRef{{Name: "Demo Series", Index: 1}},
	}
	if err := st.InsertStory(ctx, story); err != nil {
		t.Fatalf("InsertStory: %v", err)
	}
	return st
}

func TestBuildSingleStory(t *testing.T) {
	st := fixtureStore(t)

	cfg := config.Default()
	cfg.Build.Workers = 2
	cfg.Zim.ClusterSize = 4096
	outPath := filepath.Join(t.TempDir(), "out.zim")

	builder := NewBuilder(st, cfg, logging.New("error"), "test")
	report, err := builder.Build(context.Background(), outPath)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if report.StoriesSkipped != 0 {
		t.Errorf("StoriesSkipped = %d", report.StoriesSkipped)
	}
	if report.ArtifactsFailed != 0 {
		t.Errorf("ArtifactsFailed = %d", report.ArtifactsFailed)
	}
	if report.ArtifactsWritten == 0 || report.RedirectsWritten == 0 {
		t.Errorf("nothing written: %+v", report)
	}

	reader, err := zim.OpenReader(outPath)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}

	paths := map[string]bool{}
	for _, path := range reader.Paths() {
		paths[path] = true
	}
	for _, want := range []string{
		"story/Demo/1/1",
		"story/Demo/1/index",
		"story/Demo/1/preview.json",
		"story/Demo/1/",
		"author/Demo/Alice/1",
		"author/Demo/Alice/storyupdates.json",
		"tag/genre/romance/1",
		"tag/genre/romance/stats",
		"tag/genre/romance/storyupdates.json",
		"category/Demo/Example+Fandom/1",
		"series/Demo/Demo+Series/",
		"publisher/Demo/",
		"publisher/Demo/categories/1",
		"index.html",
		"statistics.html",
		"info/index.html",
		"info/acknowledgements.html",
		"favicon.png",
		"style_light.css",
		"style_dark.css",
		"scripts/search.js",
		"scripts/chart.js",
		"scripts/storytimechart.js",
	} {
		if !paths[want] {
			t.Errorf("missing path %q", want)
		}
	}

	// A single story is below the search threshold: no index files.
	for path := range paths {
		if strings.Contains(path, "search_header") || strings.Contains(path, "search_content") {
			t.Errorf("unexpected search index file %q", path)
		}
	}

	if target, ok := reader.RedirectTarget("story/Demo/1/"); !ok || target != "story/Demo/1/1" {
		t.Errorf("story redirect = %q, %v", target, ok)
	}
	if target, ok := reader.RedirectTarget("tag/genre/romance/"); !ok || target != "tag/genre/romance/1" {
		t.Errorf("tag redirect = %q, %v", target, ok)
	}
	if main, ok := reader.MainPath(); !ok || main != "index.html" {
		t.Errorf("main path = %q, %v", main, ok)
	}

	chapter, mime, err := reader.Content("story/Demo/1/1")
	if err != nil {
		t.Fatalf("chapter content: %v", err)
	}
	if mime != "text/html" || !strings.Contains(string(chapter), "Hello world") {
		t.Errorf("chapter page wrong: mime %q", mime)
	}

	if title, err := reader.Metadata("Title"); err != nil || title != "ZimFiction" {
		t.Errorf("metadata Title = %q, %v", title, err)
	}
}

func TestBuildEmitsSearchIndexForLargeScope(t *testing.T) {
	logger := logging.New("error")
	st, err := store.Open(filepath.Join(t.TempDir(), "store.sqlite"), 2, logger)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()
	if err := st.CreateSchema(ctx); err != nil {
		t.Fatalf("CreateSchema: %v", err)
	}
	for i := 1; i <= 45; i++ {
		story := &domain.Story{
			Publisher:  "Demo",
			ID:         i,
			Title:      "Story",
			AuthorName: "Alice",
			Language:   "English",
			Status:     domain.StatusOngoing,
			Published:  time.Date(2020, time.January, 5, 0, 0, 0, 0, time.UTC),
			Updated:    time.Date(2020, time.January, 6, 0, 0, 0, 0, time.UTC),
			Chapters:   []domain.Chapter{{Index: 1, Text: "<p>words here</p>", NumWords: 2}},
			Tags:       []domain.TagRef{{Type: domain.TagGenre, Name: "romance"}},
		}
		if err := st.InsertStory(ctx, story); err != nil {
			t.Fatalf("InsertStory %d: %v", i, err)
		}
	}

	cfg := config.Default()
	cfg.Build.Workers = 2
	cfg.Search.ShardSize = 20
	outPath := filepath.Join(t.TempDir(), "out.zim")
	builder := NewBuilder(st, cfg, logger, "test")
	if _, err := builder.Build(context.Background(), outPath); err != nil {
		t.Fatalf("Build: %v", err)
	}

	reader, err := zim.OpenReader(outPath)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	paths := map[string]bool{}
	for _, path := range reader.Paths() {
		paths[path] = true
	}
	for _, want := range []string{
		"tag/genre/romance/search_header.json",
		"tag/genre/romance/search_content_0.json",
		"tag/genre/romance/search_content_1.json",
		"tag/genre/romance/search_content_2.json",
		"tag/genre/romance/1",
		"tag/genre/romance/2",
		"tag/genre/romance/3",
	} {
		if !paths[want] {
			t.Errorf("missing path %q", want)
		}
	}
	if paths["tag/genre/romance/search_content_3.json"] {
		t.Error("too many search shards")
	}
	header, _, err := reader.Content("tag/genre/romance/search_header.json")
	if err != nil {
		t.Fatalf("header content: %v", err)
	}
	if !strings.Contains(string(header), `"num_pages":3`) {
		t.Errorf("header should report 3 pages: %s", header)
	}
}
