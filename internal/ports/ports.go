package ports

import (
	"context"

	"github.com/IMayBeABitShy/zimfiction/internal/domain"
)

// StoryID identifies a story within the store.
type StoryID struct {
	Publisher string
	ID        int
}

// StoryStore is the read-only view of the relational store the build stage
// consumes. Implementations must be safe for concurrent use; render workers
// call into the store from their own goroutines. Enumerations are
// callback-driven so callers never materialize a full entity list.
type StoryStore interface {
	// CountStories returns the total number of stories.
	CountStories(ctx context.Context) (int, error)

	// ForEachStoryID enumerates every story id in primary-key order.
	ForEachStoryID(ctx context.Context, fn func(id StoryID) error) error

	// GetStory fetches one story with its chapters, tags, categories and
	// series memberships.
	GetStory(ctx context.Context, id StoryID) (*domain.Story, error)

	// ForEachTag enumerates the distinct (type, name) pairs together with
	// their explicit story counts.
	ForEachTag(ctx context.Context, fn func(tag domain.Tag) error) error

	// ForEachAuthor enumerates all authors.
	ForEachAuthor(ctx context.Context, fn func(author domain.Author) error) error

	// ForEachCategory enumerates all categories with explicit story counts.
	ForEachCategory(ctx context.Context, fn func(category domain.Category) error) error

	// ForEachSeries enumerates all series.
	ForEachSeries(ctx context.Context, fn func(publisher, name string) error) error

	// ForEachPublisher enumerates all publishers with their rollup counts.
	ForEachPublisher(ctx context.Context, fn func(publisher domain.Publisher) error) error

	// StoryIDsByTag returns the ids of stories explicitly carrying the tag.
	StoryIDsByTag(ctx context.Context, tagType domain.TagType, name string) ([]StoryID, error)

	// StoryIDsByAuthor returns the ids of the author's stories.
	StoryIDsByAuthor(ctx context.Context, publisher, name string) ([]StoryID, error)

	// StoryIDsByCategory returns the ids of stories explicitly in the
	// category.
	StoryIDsByCategory(ctx context.Context, publisher, name string) ([]StoryID, error)

	// GetSeries fetches a series with its ordered members.
	GetSeries(ctx context.Context, publisher, name string) (*domain.Series, error)

	// CategoriesByPublisher returns the publisher's categories ordered by
	// descending story count.
	CategoriesByPublisher(ctx context.Context, publisher string) ([]domain.Category, error)

	// AuthorNameMatches returns every author sharing the given name,
	// across all publishers.
	AuthorNameMatches(ctx context.Context, name string) ([]domain.Author, error)

	// Close releases all store resources.
	Close() error
}
