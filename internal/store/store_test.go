package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/IMayBeABitShy/zimfiction/internal/domain"
	"github.com/IMayBeABitShy/zimfiction/internal/logging"
	"github.com/IMayBeABitShy/zimfiction/internal/ports"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "store.sqlite"), 2, logging.New("error"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.CreateSchema(context.Background()); err != nil {
		t.Fatalf("CreateSchema: %v", err)
	}
	return st
}

func sampleStory(id int, author string, tags []domain.TagRef) *domain.Story {
	return &domain.Story{
		Publisher:  "Demo",
		ID:         id,
		Title:      "Title",
		AuthorName: author,
		Summary:    "summary",
		Language:   "English",
		Status:     domain.StatusOngoing,
		Rating:     "teen",
		Score:      10,
		Published:  time.Date(2020, time.April, 1, 0, 0, 0, 0, time.UTC),
		Updated:    time.Date(2020, time.May, 1, 0, 0, 0, 0, time.UTC),
		Packaged:   time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC),
		Chapters: []domain.Chapter{
			{Index: 1, Title: "One", Text: "<p>one two three</p>", NumWords: 3},
			{Index: 2, Title: "Two", Text: "<p>four</p>", NumWords: 1},
		},
		Tags:       tags,
		Categories: []domain.CategoryRef{{Name: "Fandom"}},
		Series:     []domain.SeriesRef{{Name: "Arc", Index: 1}},
	}
}

func TestStoryRoundTrip(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()
	want := sampleStory(1, "Alice", []domain.TagRef{{Type: domain.TagGenre, Name: "romance"}})
	if err := st.InsertStory(ctx, want); err != nil {
		t.Fatalf("InsertStory: %v", err)
	}

	got, err := st.GetStory(ctx, ports.StoryID{Publisher: "Demo", ID: 1})
	if err != nil {
		t.Fatalf("GetStory: %v", err)
	}
	if got.Title != want.Title || got.AuthorName != want.AuthorName ||
		got.Language != want.Language || got.Status != want.Status ||
		got.Rating != want.Rating || got.Score != want.Score {
		t.Errorf("fields mismatch: %+v", got)
	}
	if len(got.Chapters) != 2 || got.Chapters[0].NumWords != 3 || got.Chapters[1].Title != "Two" {
		t.Errorf("chapters mismatch: %+v", got.Chapters)
	}
	if got.TotalWords() != 4 {
		t.Errorf("TotalWords = %d", got.TotalWords())
	}
	if !got.Published.Equal(want.Published) || !got.Updated.Equal(want.Updated) {
		t.Errorf("dates mismatch: %v %v", got.Published, got.Updated)
	}
	if len(got.Tags) != 1 || got.Tags[0].Name != "romance" {
		t.Errorf("tags mismatch: %+v", got.Tags)
	}
	if len(got.Series) != 1 || got.Series[0].Name != "Arc" {
		t.Errorf("series mismatch: %+v", got.Series)
	}
}

func TestGetStoryMissing(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	if _, err := st.GetStory(context.Background(), ports.StoryID{Publisher: "Demo", ID: 99}); err == nil {
		t.Fatal("missing story should error")
	}
}

func TestExplicitTagWinsOverImplied(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()
	story := sampleStory(1, "Alice", []domain.TagRef{
		{Type: domain.TagGenre, Name: "romance"},
		{Type: domain.TagGenre, Name: "romance", Implied: true},
		{Type: domain.TagGenre, Name: "angst", Implied: true},
	})
	if err := st.InsertStory(ctx, story); err != nil {
		t.Fatalf("InsertStory: %v", err)
	}
	got, err := st.GetStory(ctx, ports.StoryID{Publisher: "Demo", ID: 1})
	if err != nil {
		t.Fatalf("GetStory: %v", err)
	}
	explicitRomance, impliedRomance, impliedAngst := false, false, false
	for _, tag := range got.Tags {
		switch {
		case tag.Name == "romance" && !tag.Implied:
			explicitRomance = true
		case tag.Name == "romance" && tag.Implied:
			impliedRomance = true
		case tag.Name == "angst" && tag.Implied:
			impliedAngst = true
		}
	}
	if !explicitRomance || impliedRomance || !impliedAngst {
		t.Errorf("explicit should win over implied: %+v", got.Tags)
	}
}

func TestEnumerations(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()
	if err := st.InsertStory(ctx, sampleStory(1, "Alice", []domain.TagRef{{Type: domain.TagGenre, Name: "romance"}})); err != nil {
		t.Fatalf("InsertStory: %v", err)
	}
	if err := st.InsertStory(ctx, sampleStory(2, "Bob", []domain.TagRef{{Type: domain.TagGenre, Name: "romance"}})); err != nil {
		t.Fatalf("InsertStory: %v", err)
	}

	if n, err := st.CountStories(ctx); err != nil || n != 2 {
		t.Errorf("CountStories = %d, %v", n, err)
	}

	var ids []ports.StoryID
	if err := st.ForEachStoryID(ctx, func(id ports.StoryID) error {
		ids = append(ids, id)
		return nil
	}); err != nil {
		t.Fatalf("ForEachStoryID: %v", err)
	}
	if len(ids) != 2 || ids[0].ID != 1 || ids[1].ID != 2 {
		t.Errorf("ids = %v", ids)
	}

	var tags []domain.Tag
	if err := st.ForEachTag(ctx, func(tag domain.Tag) error {
		tags = append(tags, tag)
		return nil
	}); err != nil {
		t.Fatalf("ForEachTag: %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "romance" || tags[0].StoryCount != 2 {
		t.Errorf("tags = %+v", tags)
	}

	byTag, err := st.StoryIDsByTag(ctx, domain.TagGenre, "romance")
	if err != nil || len(byTag) != 2 {
		t.Errorf("StoryIDsByTag = %v, %v", byTag, err)
	}

	byAuthor, err := st.StoryIDsByAuthor(ctx, "Demo", "Alice")
	if err != nil || len(byAuthor) != 1 || byAuthor[0].ID != 1 {
		t.Errorf("StoryIDsByAuthor = %v, %v", byAuthor, err)
	}

	byCategory, err := st.StoryIDsByCategory(ctx, "Demo", "Fandom")
	if err != nil || len(byCategory) != 2 {
		t.Errorf("StoryIDsByCategory = %v, %v", byCategory, err)
	}

	var publishers []domain.Publisher
	if err := st.ForEachPublisher(ctx, func(publisher domain.Publisher) error {
		publishers = append(publishers, publisher)
		return nil
	}); err != nil {
		t.Fatalf("ForEachPublisher: %v", err)
	}
	if len(publishers) != 1 || publishers[0].StoryCount != 2 || publishers[0].AuthorCount != 2 {
		t.Errorf("publishers = %+v", publishers)
	}

	series, err := st.GetSeries(ctx, "Demo", "Arc")
	if err != nil || len(series.Members) != 2 {
		t.Errorf("GetSeries = %+v, %v", series, err)
	}

	categories, err := st.CategoriesByPublisher(ctx, "Demo")
	if err != nil || len(categories) != 1 || categories[0].StoryCount != 2 {
		t.Errorf("CategoriesByPublisher = %+v, %v", categories, err)
	}
}

func TestAuthorNameMatches(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()
	first := sampleStory(1, "Alice", nil)
	second := sampleStory(1, "alice", nil)
	second.Publisher = "Other"
	if err := st.InsertStory(ctx, first); err != nil {
		t.Fatalf("InsertStory: %v", err)
	}
	if err := st.InsertStory(ctx, second); err != nil {
		t.Fatalf("InsertStory: %v", err)
	}

	matches, err := st.AuthorNameMatches(ctx, "Alice")
	if err != nil {
		t.Fatalf("AuthorNameMatches: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %+v", matches)
	}
	if matches[0].Publisher != "Demo" || matches[1].Publisher != "Other" {
		t.Errorf("matches order = %+v", matches)
	}
}
