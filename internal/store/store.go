// Package store implements the read-only entity store contract on top of a
// SQLite database produced by the import and implication stages.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/IMayBeABitShy/zimfiction/internal/domain"
	"github.com/IMayBeABitShy/zimfiction/internal/ports"
)

// Store is a SQLite-backed ports.StoryStore. It holds a fixed-size connection
// pool; every render worker takes its own connection for the duration of a
// query, which keeps worker reads isolated the way the build stage expects.
type Store struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
}

var _ ports.StoryStore = (*Store)(nil)

// Open opens the store at the given URL (a SQLite file path, or ":memory:"
// for tests). poolSize bounds concurrent readers; pass 1 for the shared
// single-handle mode.
func Open(url string, poolSize int, logger *slog.Logger) (*Store, error) {
	if url == "" {
		return nil, fmt.Errorf("store: url is required")
	}
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := sqlitex.NewPool(url, sqlitex.PoolOptions{
		Flags:    sqlite.OpenReadWrite | sqlite.OpenCreate | sqlite.OpenURI,
		PoolSize: poolSize,
		PrepareConn: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteTransient(conn, "PRAGMA foreign_keys = ON", nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", url, err)
	}
	logger.Info("store opened", "url", url, "pool_size", poolSize)
	return &Store{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// withConn takes a pooled connection, runs fn and returns it.
func (s *Store) withConn(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: take connection: %w", err)
	}
	defer s.pool.Put(conn)
	return fn(conn)
}

// query builds the statement with squirrel and streams the result rows
// through each.
func (s *Store) query(ctx context.Context, builder sq.Sqlizer, each func(stmt *sqlite.Stmt) error) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("store: build query: %w", err)
	}
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args:       args,
			ResultFunc: each,
		})
	})
}

// parseDate accepts the ISO date layouts used by the importer.
func parseDate(value string) time.Time {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// CountStories returns the total number of stories.
func (s *Store) CountStories(ctx context.Context) (int, error) {
	count := 0
	err := s.query(ctx, sq.Select("COUNT(*)").From("story"), func(stmt *sqlite.Stmt) error {
		count = stmt.ColumnInt(0)
		return nil
	})
	return count, err
}

// ForEachStoryID enumerates every story id in primary-key order.
func (s *Store) ForEachStoryID(ctx context.Context, fn func(id ports.StoryID) error) error {
	builder := sq.Select("publisher", "id").From("story").OrderBy("publisher", "id")
	return s.query(ctx, builder, func(stmt *sqlite.Stmt) error {
		return fn(ports.StoryID{Publisher: stmt.ColumnText(0), ID: stmt.ColumnInt(1)})
	})
}

// GetStory fetches one story with chapters, tags, categories and series
// memberships. A story with missing mandatory fields yields an
// InputCorruption-class error the caller counts and skips.
func (s *Store) GetStory(ctx context.Context, id ports.StoryID) (*domain.Story, error) {
	var story *domain.Story
	builder := sq.Select(
		"title", "author_name", "summary", "language", "status", "rating",
		"url", "source_group", "source_name", "score", "num_comments",
		"published", "updated", "packaged",
	).From("story").Where(sq.Eq{"publisher": id.Publisher, "id": id.ID})
	err := s.query(ctx, builder, func(stmt *sqlite.Stmt) error {
		story = &domain.Story{
			Publisher:   id.Publisher,
			ID:          id.ID,
			Title:       stmt.ColumnText(0),
			AuthorName:  stmt.ColumnText(1),
			Summary:     stmt.ColumnText(2),
			Language:    stmt.ColumnText(3),
			Status:      domain.Status(stmt.ColumnText(4)),
			Rating:      stmt.ColumnText(5),
			URL:         stmt.ColumnText(6),
			SourceGroup: stmt.ColumnText(7),
			SourceName:  stmt.ColumnText(8),
			Score:       stmt.ColumnInt(9),
			NumComments: stmt.ColumnInt(10),
			Published:   parseDate(stmt.ColumnText(11)),
			Updated:     parseDate(stmt.ColumnText(12)),
			Packaged:    parseDate(stmt.ColumnText(13)),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if story == nil {
		return nil, fmt.Errorf("store: story %s/%d not found", id.Publisher, id.ID)
	}

	chapters := sq.Select("idx", "title", "text", "num_words").
		From("chapter").
		Where(sq.Eq{"publisher": id.Publisher, "story_id": id.ID}).
		OrderBy("idx")
	err = s.query(ctx, chapters, func(stmt *sqlite.Stmt) error {
		story.Chapters = append(story.Chapters, domain.Chapter{
			Index:    stmt.ColumnInt(0),
			Title:    stmt.ColumnText(1),
			Text:     stmt.ColumnText(2),
			NumWords: stmt.ColumnInt(3),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(story.Chapters) == 0 {
		return nil, fmt.Errorf("store: story %s/%d has no chapters", id.Publisher, id.ID)
	}

	tags := sq.Select("tag_type", "tag_name", "implied").
		From("story_tag").
		Where(sq.Eq{"publisher": id.Publisher, "story_id": id.ID}).
		OrderBy("tag_type", "tag_name")
	err = s.query(ctx, tags, func(stmt *sqlite.Stmt) error {
		story.Tags = append(story.Tags, domain.TagRef{
			Type:    domain.TagType(stmt.ColumnText(0)),
			Name:    stmt.ColumnText(1),
			Implied: stmt.ColumnInt(2) != 0,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	story.Tags = dedupeTags(story.Tags)

	categories := sq.Select("category_name", "implied").
		From("story_category").
		Where(sq.Eq{"publisher": id.Publisher, "story_id": id.ID}).
		OrderBy("category_name")
	err = s.query(ctx, categories, func(stmt *sqlite.Stmt) error {
		story.Categories = append(story.Categories, domain.CategoryRef{
			Name:    stmt.ColumnText(0),
			Implied: stmt.ColumnInt(1) != 0,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	series := sq.Select("series_name", "idx").
		From("story_series").
		Where(sq.Eq{"publisher": id.Publisher, "story_id": id.ID}).
		OrderBy("series_name")
	err = s.query(ctx, series, func(stmt *sqlite.Stmt) error {
		story.Series = append(story.Series, domain.SeriesRef{
			Name:  stmt.ColumnText(0),
			Index: stmt.ColumnInt(1),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return story, nil
}

// dedupeTags drops the implied copy of a tag when the same (type, name) is
// also attached explicitly: explicit wins.
func dedupeTags(tags []domain.TagRef) []domain.TagRef {
	explicit := make(map[string]bool, len(tags))
	for _, tag := range tags {
		if !tag.Implied {
			explicit[string(tag.Type)+"\x00"+tag.Name] = true
		}
	}
	out := tags[:0]
	for _, tag := range tags {
		if tag.Implied && explicit[string(tag.Type)+"\x00"+tag.Name] {
			continue
		}
		out = append(out, tag)
	}
	return out
}

// ForEachTag enumerates distinct (type, name) pairs with explicit story
// counts.
func (s *Store) ForEachTag(ctx context.Context, fn func(tag domain.Tag) error) error {
	builder := sq.Select("tag_type", "tag_name", "COUNT(*)").
		From("story_tag").
		Where(sq.Eq{"implied": 0}).
		GroupBy("tag_type", "tag_name").
		OrderBy("tag_type", "tag_name")
	return s.query(ctx, builder, func(stmt *sqlite.Stmt) error {
		return fn(domain.Tag{
			Type:       domain.TagType(stmt.ColumnText(0)),
			Name:       stmt.ColumnText(1),
			StoryCount: stmt.ColumnInt(2),
		})
	})
}

// ForEachAuthor enumerates all authors.
func (s *Store) ForEachAuthor(ctx context.Context, fn func(author domain.Author) error) error {
	builder := sq.Select("publisher", "name", "url").From("author").OrderBy("publisher", "name")
	return s.query(ctx, builder, func(stmt *sqlite.Stmt) error {
		return fn(domain.Author{
			Publisher: stmt.ColumnText(0),
			Name:      stmt.ColumnText(1),
			URL:       stmt.ColumnText(2),
		})
	})
}

// ForEachCategory enumerates all categories with explicit story counts.
func (s *Store) ForEachCategory(ctx context.Context, fn func(category domain.Category) error) error {
	builder := sq.Select("publisher", "category_name", "COUNT(*)").
		From("story_category").
		Where(sq.Eq{"implied": 0}).
		GroupBy("publisher", "category_name").
		OrderBy("publisher", "category_name")
	return s.query(ctx, builder, func(stmt *sqlite.Stmt) error {
		return fn(domain.Category{
			Publisher:  stmt.ColumnText(0),
			Name:       stmt.ColumnText(1),
			StoryCount: stmt.ColumnInt(2),
		})
	})
}

// ForEachSeries enumerates all series.
func (s *Store) ForEachSeries(ctx context.Context, fn func(publisher, name string) error) error {
	builder := sq.Select("publisher", "series_name").
		From("story_series").
		GroupBy("publisher", "series_name").
		OrderBy("publisher", "series_name")
	return s.query(ctx, builder, func(stmt *sqlite.Stmt) error {
		return fn(stmt.ColumnText(0), stmt.ColumnText(1))
	})
}

// ForEachPublisher enumerates publishers with their rollup counts.
func (s *Store) ForEachPublisher(ctx context.Context, fn func(publisher domain.Publisher) error) error {
	builder := sq.Select(
		"s.publisher",
		"COUNT(DISTINCT s.id)",
		"COUNT(DISTINCT s.author_name)",
		"(SELECT COUNT(DISTINCT c.category_name) FROM story_category c WHERE c.publisher = s.publisher)",
	).From("story s").GroupBy("s.publisher").OrderBy("s.publisher")
	return s.query(ctx, builder, func(stmt *sqlite.Stmt) error {
		return fn(domain.Publisher{
			Name:          stmt.ColumnText(0),
			StoryCount:    stmt.ColumnInt(1),
			AuthorCount:   stmt.ColumnInt(2),
			CategoryCount: stmt.ColumnInt(3),
		})
	})
}

func (s *Store) collectStoryIDs(ctx context.Context, builder sq.Sqlizer) ([]ports.StoryID, error) {
	var ids []ports.StoryID
	err := s.query(ctx, builder, func(stmt *sqlite.Stmt) error {
		ids = append(ids, ports.StoryID{Publisher: stmt.ColumnText(0), ID: stmt.ColumnInt(1)})
		return nil
	})
	return ids, err
}

// StoryIDsByTag returns ids of stories explicitly carrying the tag.
func (s *Store) StoryIDsByTag(ctx context.Context, tagType domain.TagType, name string) ([]ports.StoryID, error) {
	builder := sq.Select("publisher", "story_id").
		From("story_tag").
		Where(sq.Eq{"tag_type": string(tagType), "tag_name": name, "implied": 0}).
		OrderBy("publisher", "story_id")
	return s.collectStoryIDs(ctx, builder)
}

// StoryIDsByAuthor returns ids of the author's stories.
func (s *Store) StoryIDsByAuthor(ctx context.Context, publisher, name string) ([]ports.StoryID, error) {
	builder := sq.Select("publisher", "id").
		From("story").
		Where(sq.Eq{"publisher": publisher, "author_name": name}).
		OrderBy("id")
	return s.collectStoryIDs(ctx, builder)
}

// StoryIDsByCategory returns ids of stories explicitly in the category.
func (s *Store) StoryIDsByCategory(ctx context.Context, publisher, name string) ([]ports.StoryID, error) {
	builder := sq.Select("publisher", "story_id").
		From("story_category").
		Where(sq.Eq{"publisher": publisher, "category_name": name, "implied": 0}).
		OrderBy("story_id")
	return s.collectStoryIDs(ctx, builder)
}

// GetSeries fetches a series with its ordered members.
func (s *Store) GetSeries(ctx context.Context, publisher, name string) (*domain.Series, error) {
	series := &domain.Series{Publisher: publisher, Name: name}
	builder := sq.Select("publisher", "story_id", "idx").
		From("story_series").
		Where(sq.Eq{"publisher": publisher, "series_name": name}).
		OrderBy("idx")
	err := s.query(ctx, builder, func(stmt *sqlite.Stmt) error {
		series.Members = append(series.Members, domain.SeriesMember{
			Publisher: stmt.ColumnText(0),
			StoryID:   stmt.ColumnInt(1),
			Index:     stmt.ColumnInt(2),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(series.Members) == 0 {
		return nil, fmt.Errorf("store: series %s/%s not found", publisher, name)
	}
	return series, nil
}

// CategoriesByPublisher returns the publisher's categories ordered by
// descending story count.
func (s *Store) CategoriesByPublisher(ctx context.Context, publisher string) ([]domain.Category, error) {
	var categories []domain.Category
	builder := sq.Select("category_name", "COUNT(*)").
		From("story_category").
		Where(sq.Eq{"publisher": publisher, "implied": 0}).
		GroupBy("category_name").
		OrderBy("COUNT(*) DESC", "category_name")
	err := s.query(ctx, builder, func(stmt *sqlite.Stmt) error {
		categories = append(categories, domain.Category{
			Publisher:  publisher,
			Name:       stmt.ColumnText(0),
			StoryCount: stmt.ColumnInt(1),
		})
		return nil
	})
	return categories, err
}

// AuthorNameMatches returns every author sharing the given name across all
// publishers.
func (s *Store) AuthorNameMatches(ctx context.Context, name string) ([]domain.Author, error) {
	var authors []domain.Author
	builder := sq.Select("publisher", "name", "url").
		From("author").
		Where("name = ? COLLATE NOCASE", name).
		OrderBy("publisher")
	err := s.query(ctx, builder, func(stmt *sqlite.Stmt) error {
		authors = append(authors, domain.Author{
			Publisher: stmt.ColumnText(0),
			Name:      stmt.ColumnText(1),
			URL:       stmt.ColumnText(2),
		})
		return nil
	})
	return authors, err
}
