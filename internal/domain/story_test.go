package domain

import (
	"testing"
	"time"
)

func tag(tagType TagType, name string, implied bool) TagRef {
	return TagRef{Type: tagType, Name: name, Implied: implied}
}

func TestTotalWords(t *testing.T) {
	t.Parallel()

	story := &Story{Chapters: []Chapter{
		{Index: 1, NumWords: 100},
		{Index: 2, NumWords: 250},
	}}
	if got := story.TotalWords(); got != 350 {
		t.Fatalf("TotalWords = %d", got)
	}
}

func TestRatingTitle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"", "Unknown"},
		{"teen", "Teen"},
		{"TEEN AND UP", "Teen And Up"},
		{"general audiences", "General Audiences"},
	}
	for _, c := range cases {
		story := &Story{Rating: c.in}
		if got := story.RatingTitle(); got != c.want {
			t.Errorf("RatingTitle(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestStatusDisplay(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   Status
		want string
	}{
		{StatusCompleted, "Complete"},
		{StatusOngoing, "In-Progress"},
		{StatusAbandoned, "Abandoned"},
		{StatusUnknown, "Unknown"},
		{Status("garbage"), "Unknown"},
	}
	for _, c := range cases {
		if got := c.in.Display(); got != c.want {
			t.Errorf("Display(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestOrderedVisibleTags(t *testing.T) {
	t.Parallel()

	story := &Story{Tags: []TagRef{
		tag(TagGenre, "romance", false),
		tag(TagCharacter, "Zoe", false),
		tag(TagWarning, "violence", false),
		tag(TagCharacter, "Adam", false),
		tag(TagRelationship, "Adam/Zoe", false),
		tag(TagGenre, "angst", true),    // implied: hidden
		tag(TagRating, "teen", false),   // internal type: hidden
		tag(TagLanguage, "en", false),   // internal type: hidden
	}}
	got := story.OrderedVisibleTags()
	want := []string{"violence", "Adam/Zoe", "Adam", "Zoe", "romance"}
	if len(got) != len(want) {
		t.Fatalf("got %d tags, want %d: %v", len(got), len(want), got)
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("tag %d = %q, want %q", i, got[i].Name, name)
		}
	}
}

func TestPreviewData(t *testing.T) {
	t.Parallel()

	story := &Story{
		Publisher:  "Demo",
		ID:         3,
		Title:      "A Story",
		AuthorName: "Alice",
		Summary:    "sum",
		Language:   "English",
		Status:     StatusOngoing,
		Rating:     "mature",
		Score:      7,
		Updated:    time.Date(2021, time.May, 2, 0, 0, 0, 0, time.UTC),
		Chapters:   []Chapter{{Index: 1, NumWords: 1200}},
		Series:     []SeriesRef{{Name: "Arc", Index: 2}},
		Categories: []CategoryRef{{Name: "Fandom"}, {Name: "Implied Fandom", Implied: true}},
	}
	preview := story.PreviewData(func(n int) string { return "~" })
	if preview.Publisher != "Demo" || preview.ID != 3 || preview.Author != "Alice" {
		t.Errorf("identity fields wrong: %+v", preview)
	}
	if preview.Updated != "2021-05-02" {
		t.Errorf("Updated = %q", preview.Updated)
	}
	if preview.Status != "In-Progress" || preview.Rating != "Mature" {
		t.Errorf("status/rating = %q/%q", preview.Status, preview.Rating)
	}
	if preview.Words != "~" {
		t.Errorf("Words should use injected formatter, got %q", preview.Words)
	}
	if len(preview.Categories) != 2 || preview.Categories[0] != "Fandom" {
		t.Errorf("Categories = %v", preview.Categories)
	}
	if len(preview.Series) != 1 {
		t.Errorf("Series = %v", preview.Series)
	}
}

func TestGetSearchData(t *testing.T) {
	t.Parallel()

	story := &Story{
		Publisher:  "Demo",
		ID:         1,
		AuthorName: "Alice",
		Language:   "English",
		Status:     StatusCompleted,
		Chapters:   []Chapter{{Index: 1, NumWords: 500}},
		Tags: []TagRef{
			tag(TagGenre, "Romance", false),
			tag(TagGenre, "Angst", true),
			tag(TagRelationship, "b/a", false),
			tag(TagWarning, "violence", false),
			tag(TagCharacter, "Zoe", true),
		},
		Categories: []CategoryRef{
			{Name: "Fandom A"},
			{Name: "Fandom B", Implied: true},
		},
	}
	data := story.GetSearchData()
	if len(data.Tags) != 1 || data.Tags[0] != "romance" {
		t.Errorf("genre tags should be lowercased: %v", data.Tags)
	}
	if len(data.ImpliedTags) != 1 || data.ImpliedTags[0] != "angst" {
		t.Errorf("implied genres = %v", data.ImpliedTags)
	}
	if len(data.Relationships) != 1 || data.Relationships[0] != "a / b" {
		t.Errorf("relationships should be normalized: %v", data.Relationships)
	}
	if len(data.ImpliedCharacters) != 1 || data.ImpliedCharacters[0] != "Zoe" {
		t.Errorf("implied characters = %v", data.ImpliedCharacters)
	}
	if len(data.Categories) != 1 || data.Categories[0] != "Fandom A" {
		t.Errorf("explicit categories = %v", data.Categories)
	}
	if len(data.ImpliedCategories) != 1 || data.ImpliedCategories[0] != "Fandom B" {
		t.Errorf("implied categories = %v", data.ImpliedCategories)
	}
	if data.CategoryCount != 2 {
		t.Errorf("CategoryCount = %d", data.CategoryCount)
	}
	if data.Words != 500 || data.Chapters != 1 {
		t.Errorf("words/chapters = %d/%d", data.Words, data.Chapters)
	}
}
