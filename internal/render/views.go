package render

import (
	"fmt"
	"html/template"

	"github.com/IMayBeABitShy/zimfiction/internal/domain"
	"github.com/IMayBeABitShy/zimfiction/internal/stats"
)

// Options tune rendering; they mirror the historical render options.
type Options struct {
	StoriesPerPage       int
	IncludeExternalLinks bool
}

// TagLink is a rendered tag reference: display name plus resolved href.
type TagLink struct {
	Type string
	Name string
	Href string
}

// SeriesLink is a rendered series membership.
type SeriesLink struct {
	Name  string
	Index int
	Href  string
}

// StoryCard is the view projected for one story on a list page or a chapter
// header. Compact cards appear in lists; the extended form tops the first
// chapter page.
type StoryCard struct {
	Title      string
	Href       string
	Author     string
	AuthorHref string
	Publisher  string
	Summary    template.HTML
	Categories []TagLink
	Tags       []TagLink
	Series     []SeriesLink
	Language   string
	Status     string
	Rating     string
	Updated    string
	Published  string
	Words      string
	Chapters   int
	Score      string
	External   string
	Extended   bool
}

// storyCard projects a story. toRoot is the relative prefix from the page the
// card appears on to the site root.
func (r *Renderer) storyCard(story *domain.Story, toRoot string, extended bool) StoryCard {
	card := StoryCard{
		Title:      story.Title,
		Href:       fmt.Sprintf("%s/story/%s/%d/1", toRoot, story.Publisher, story.ID),
		Author:     story.AuthorName,
		AuthorHref: fmt.Sprintf("%s/author/%s/%s/1", toRoot, story.Publisher, NormalizeTag(story.AuthorName)),
		Publisher:  story.Publisher,
		Summary:    template.HTML(RepairHTML(story.Summary)),
		Language:   story.Language,
		Status:     story.Status.Display(),
		Rating:     story.RatingTitle(),
		Updated:    FormatDate(story.Updated),
		Published:  FormatDate(story.Published),
		Words:      FormatNumber(story.TotalWords()),
		Chapters:   len(story.Chapters),
		Score:      FormatNumber(story.Score),
		Extended:   extended,
	}
	if r.opts.IncludeExternalLinks {
		card.External = story.URL
	}
	for _, name := range story.AllCategoryNames() {
		card.Categories = append(card.Categories, TagLink{
			Type: string(domain.TagCategory),
			Name: name,
			Href: fmt.Sprintf("%s/category/%s/%s/1", toRoot, story.Publisher, NormalizeTag(name)),
		})
	}
	for _, tag := range story.OrderedVisibleTags() {
		card.Tags = append(card.Tags, TagLink{
			Type: string(tag.Type),
			Name: tag.Name,
			Href: fmt.Sprintf("%s/tag/%s/%s/1", toRoot, tag.Type, NormalizeTag(tag.Name)),
		})
	}
	for _, ref := range story.Series {
		card.Series = append(card.Series, SeriesLink{
			Name:  ref.Name,
			Index: ref.Index,
			Href:  fmt.Sprintf("%s/series/%s/%s/", toRoot, story.Publisher, NormalizeTag(ref.Name)),
		})
	}
	return card
}

// chapterView is the data of one chapter page.
type chapterView struct {
	ToRoot       string
	Title        string
	Card         StoryCard
	ChapterTitle string
	ChapterIndex int
	NumChapters  int
	PrevHref     string
	NextHref     string
	IndexHref    string
	Text         string
}

// chapterIndexView is the data of the chapter listing page.
type chapterIndexView struct {
	ToRoot   string
	Title    string
	Card     StoryCard
	Chapters []chapterListEntry
}

type chapterListEntry struct {
	Index int
	Title string
	Words string
}

// listView is the data of one paginated story list page.
type listView struct {
	ToRoot     string
	Title      string
	Subtitle   string
	Cards      []StoryCard
	Buttons    []PageButton
	HasSearch  bool
	StatsHref  string
	AltAuthors []TagLink
}

// scopeStatsView is the data of a tag/category stats page.
type scopeStatsView struct {
	ToRoot   string
	Title    string
	BackHref string
	Stats    stats.StoryListStats
}

// seriesView is the data of a series page.
type seriesView struct {
	ToRoot string
	Title  string
	Cards  []StoryCard
}

// publisherView is the data of a publisher landing page.
type publisherView struct {
	ToRoot         string
	Title          string
	Publisher      domain.Publisher
	CategoriesHref string
}

// publisherCategoriesView is one page of the category listing.
type publisherCategoriesView struct {
	ToRoot     string
	Title      string
	Categories []categoryEntry
	Buttons    []PageButton
}

type categoryEntry struct {
	Name       string
	Href       string
	StoryCount string
}

// indexView is the data of the global landing page.
type indexView struct {
	ToRoot     string
	Title      string
	Publishers []publisherEntry
}

type publisherEntry struct {
	Name       string
	Href       string
	StoryCount string
}

// globalStatsView is the data of statistics.html.
type globalStatsView struct {
	ToRoot string
	Title  string
	Stats  stats.StoryListStats
}

// infoView is the data of the info pages.
type infoView struct {
	ToRoot string
	Title  string
}
