package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/IMayBeABitShy/zimfiction/internal/normalize"
)

// Status describes the publication state of a story.
type Status string

const (
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
	StatusUnknown   Status = "unknown"
)

// Display returns the reader-facing label of the status.
func (s Status) Display() string {
	switch s {
	case StatusCompleted:
		return "Complete"
	case StatusOngoing:
		return "In-Progress"
	case StatusAbandoned:
		return "Abandoned"
	default:
		return "Unknown"
	}
}

// Chapter is one chapter of a story. Text carries the raw HTML body as
// imported; NumWords is the cached word count computed at import time and is
// never regenerated from Text during the build.
type Chapter struct {
	Index    int
	Title    string
	Text     string
	NumWords int
}

// CategoryRef links a story to a category within its publisher.
type CategoryRef struct {
	Name    string
	Implied bool
}

// SeriesRef links a story to a series with its position in it.
type SeriesRef struct {
	Name  string
	Index int
}

// Story is the central entity. It is loaned read-only to render workers; all
// back-references (author pages, series pages) are resolved by id through the
// store rather than by pointers, so a Story never participates in a cycle.
type Story struct {
	Publisher   string
	ID          int
	Title       string
	AuthorName  string
	Summary     string
	Language    string
	Status      Status
	Rating      string
	URL         string
	SourceGroup string
	SourceName  string
	Score       int
	NumComments int
	Published   time.Time
	Updated     time.Time
	Packaged    time.Time
	Chapters    []Chapter
	Tags        []TagRef
	Categories  []CategoryRef
	Series      []SeriesRef
}

// TotalWords sums the cached word counts of all chapters.
func (s *Story) TotalWords() int {
	total := 0
	for _, chapter := range s.Chapters {
		total += chapter.NumWords
	}
	return total
}

// RatingTitle returns the title-cased rating, or "Unknown" when the story
// carries none.
func (s *Story) RatingTitle() string {
	if s.Rating == "" {
		return "Unknown"
	}
	words := strings.Fields(s.Rating)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}

// tagsOfType filters the story's tags by type and explicitness.
func (s *Story) tagsOfType(tagType TagType, implied bool) []TagRef {
	var out []TagRef
	for _, tag := range s.Tags {
		if tag.Type == tagType && tag.Implied == implied {
			out = append(out, tag)
		}
	}
	return out
}

// Warnings returns the explicit warning tags.
func (s *Story) Warnings() []TagRef { return s.tagsOfType(TagWarning, false) }

// Relationships returns the explicit relationship tags.
func (s *Story) Relationships() []TagRef { return s.tagsOfType(TagRelationship, false) }

// Characters returns the explicit character tags.
func (s *Story) Characters() []TagRef { return s.tagsOfType(TagCharacter, false) }

// Genres returns the explicit genre tags.
func (s *Story) Genres() []TagRef { return s.tagsOfType(TagGenre, false) }

// ImpliedWarnings returns the implied warning tags.
func (s *Story) ImpliedWarnings() []TagRef { return s.tagsOfType(TagWarning, true) }

// ImpliedRelationships returns the implied relationship tags.
func (s *Story) ImpliedRelationships() []TagRef { return s.tagsOfType(TagRelationship, true) }

// ImpliedCharacters returns the implied character tags.
func (s *Story) ImpliedCharacters() []TagRef { return s.tagsOfType(TagCharacter, true) }

// ImpliedGenres returns the implied genre tags.
func (s *Story) ImpliedGenres() []TagRef { return s.tagsOfType(TagGenre, true) }

// ExplicitCategories returns the non-implied categories in import order.
func (s *Story) ExplicitCategories() []string {
	var out []string
	for _, category := range s.Categories {
		if !category.Implied {
			out = append(out, category.Name)
		}
	}
	return out
}

// ImpliedCategories returns the implied categories in import order.
func (s *Story) ImpliedCategories() []string {
	var out []string
	for _, category := range s.Categories {
		if category.Implied {
			out = append(out, category.Name)
		}
	}
	return out
}

// AllCategoryNames returns every category name, explicit before implied.
func (s *Story) AllCategoryNames() []string {
	return append(s.ExplicitCategories(), s.ImpliedCategories()...)
}

// OrderedVisibleTags returns the explicit tags shown on story cards: ordered
// by tag type (warnings, relationships, characters, genres) and
// alphabetically within each type. Tag types duplicated by first-class story
// fields (status, rating, language, ...) are excluded.
func (s *Story) OrderedVisibleTags() []TagRef {
	var out []TagRef
	for _, tagType := range visibleTagOrder {
		group := s.tagsOfType(tagType, false)
		sort.Slice(group, func(i, j int) bool { return group[i].Name < group[j].Name })
		out = append(out, group...)
	}
	return out
}

// Preview is the story card payload stored as preview.json and slotted into
// search result placeholders by the client.
type Preview struct {
	Title      string      `json:"title"`
	Publisher  string      `json:"publisher"`
	ID         int         `json:"id"`
	Author     string      `json:"author"`
	Categories []string    `json:"categories"`
	Tags       [][2]string `json:"tags"`
	Updated    string      `json:"updated"`
	Summary    string      `json:"summary"`
	Language   string      `json:"language"`
	Status     string      `json:"status"`
	Words      string      `json:"words"`
	Chapters   int         `json:"chapters"`
	Score      int         `json:"score"`
	Series     [][2]any    `json:"series"`
	Rating     string      `json:"rating"`
}

// PreviewData projects the story into its preview payload. formatNumber is
// injected so the projection stays free of render dependencies.
func (s *Story) PreviewData(formatNumber func(int) string) Preview {
	tags := make([][2]string, 0, len(s.Tags))
	for _, tag := range s.OrderedVisibleTags() {
		tags = append(tags, [2]string{string(tag.Type), tag.Name})
	}
	series := make([][2]any, 0, len(s.Series))
	for _, ref := range s.Series {
		series = append(series, [2]any{ref.Name, ref.Index})
	}
	return Preview{
		Title:      s.Title,
		Publisher:  s.Publisher,
		ID:         s.ID,
		Author:     s.AuthorName,
		Categories: s.AllCategoryNames(),
		Tags:       tags,
		Updated:    s.Updated.Format("2006-01-02"),
		Summary:    s.Summary,
		Language:   s.Language,
		Status:     s.Status.Display(),
		Words:      formatNumber(s.TotalWords()),
		Chapters:   len(s.Chapters),
		Score:      s.Score,
		Series:     series,
		Rating:     s.RatingTitle(),
	}
}

// SearchData is the per-story projection the search index emitter consumes.
// Tag-valued fields are still names here; the emitter resolves them to
// scope-local integer ids.
type SearchData struct {
	Publisher            string
	ID                   int
	Title                string
	Author               string
	Categories           []string
	ImpliedCategories    []string
	Tags                 []string
	ImpliedTags          []string
	Warnings             []string
	ImpliedWarnings      []string
	Relationships        []string
	ImpliedRelationships []string
	Characters           []string
	ImpliedCharacters    []string
	Updated              string
	Language             string
	Status               string
	Rating               string
	Summary              string
	Words                int
	Chapters             int
	Score                int
	Series               []SeriesRef
	CategoryCount        int
}

// GetSearchData projects the story into its search record.
func (s *Story) GetSearchData() SearchData {
	lowerNames := func(tags []TagRef) []string {
		out := make([]string, 0, len(tags))
		for _, tag := range tags {
			out = append(out, strings.ToLower(tag.Name))
		}
		return out
	}
	names := func(tags []TagRef) []string {
		out := make([]string, 0, len(tags))
		for _, tag := range tags {
			out = append(out, tag.Name)
		}
		return out
	}
	relNames := func(tags []TagRef) []string {
		out := make([]string, 0, len(tags))
		for _, tag := range tags {
			out = append(out, normalize.Relationship(tag.Name))
		}
		return out
	}
	return SearchData{
		Publisher:            s.Publisher,
		ID:                   s.ID,
		Title:                s.Title,
		Author:               s.AuthorName,
		Categories:           s.ExplicitCategories(),
		ImpliedCategories:    s.ImpliedCategories(),
		Tags:                 lowerNames(s.Genres()),
		ImpliedTags:          lowerNames(s.ImpliedGenres()),
		Warnings:             names(s.Warnings()),
		ImpliedWarnings:      names(s.ImpliedWarnings()),
		Relationships:        relNames(s.Relationships()),
		ImpliedRelationships: relNames(s.ImpliedRelationships()),
		Characters:           names(s.Characters()),
		ImpliedCharacters:    names(s.ImpliedCharacters()),
		Updated:              s.Updated.Format("2006-01-02"),
		Language:             s.Language,
		Status:               s.Status.Display(),
		Rating:               s.RatingTitle(),
		Summary:              s.Summary,
		Words:                s.TotalWords(),
		Chapters:             len(s.Chapters),
		Score:                s.Score,
		Series:               s.Series,
		CategoryCount:        len(s.Categories),
	}
}
