package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/IMayBeABitShy/zimfiction/internal/domain"
)

// schema is the table layout produced by the import stage. The build stage
// only ever reads it; the DDL lives here so fixtures and the importer share
// one definition.
const schema = `
CREATE TABLE IF NOT EXISTS story (
	publisher    TEXT NOT NULL,
	id           INTEGER NOT NULL,
	title        TEXT NOT NULL,
	author_name  TEXT NOT NULL,
	summary      TEXT NOT NULL DEFAULT '',
	language     TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'unknown',
	rating       TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL DEFAULT '',
	source_group TEXT NOT NULL DEFAULT '',
	source_name  TEXT NOT NULL DEFAULT '',
	score        INTEGER NOT NULL DEFAULT 0,
	num_comments INTEGER NOT NULL DEFAULT 0,
	published    TEXT NOT NULL DEFAULT '',
	updated      TEXT NOT NULL DEFAULT '',
	packaged     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (publisher, id)
);
CREATE TABLE IF NOT EXISTS chapter (
	publisher TEXT NOT NULL,
	story_id  INTEGER NOT NULL,
	idx       INTEGER NOT NULL,
	title     TEXT NOT NULL DEFAULT '',
	text      TEXT NOT NULL DEFAULT '',
	num_words INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (publisher, story_id, idx)
);
CREATE TABLE IF NOT EXISTS story_tag (
	publisher TEXT NOT NULL,
	story_id  INTEGER NOT NULL,
	tag_type  TEXT NOT NULL,
	tag_name  TEXT NOT NULL,
	implied   INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (publisher, story_id, tag_type, tag_name, implied)
);
CREATE TABLE IF NOT EXISTS story_category (
	publisher     TEXT NOT NULL,
	story_id      INTEGER NOT NULL,
	category_name TEXT NOT NULL,
	implied       INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (publisher, story_id, category_name, implied)
);
CREATE TABLE IF NOT EXISTS story_series (
	publisher   TEXT NOT NULL,
	story_id    INTEGER NOT NULL,
	series_name TEXT NOT NULL,
	idx         INTEGER NOT NULL,
	PRIMARY KEY (publisher, story_id, series_name)
);
CREATE TABLE IF NOT EXISTS author (
	publisher TEXT NOT NULL,
	name      TEXT NOT NULL,
	url       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (publisher, name)
);
CREATE INDEX IF NOT EXISTS story_tag_lookup ON story_tag (tag_type, tag_name, implied);
CREATE INDEX IF NOT EXISTS story_category_lookup ON story_category (publisher, category_name, implied);
CREATE INDEX IF NOT EXISTS story_author_lookup ON story (publisher, author_name);
`

// CreateSchema creates the store tables when they do not exist yet.
func (s *Store) CreateSchema(ctx context.Context) error {
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteScript(conn, schema, nil)
	})
}

// exec builds and runs a statement that returns no rows.
func (s *Store) exec(ctx context.Context, builder sq.Sqlizer) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("store: build statement: %w", err)
	}
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args})
	})
}

// InsertStory writes a full story with chapters, tags, categories and series
// memberships. This is the write path of the import stage; the build stage
// never calls it, but fixtures do.
func (s *Store) InsertStory(ctx context.Context, story *domain.Story) error {
	insert := sq.Insert("story").Columns(
		"publisher", "id", "title", "author_name", "summary", "language",
		"status", "rating", "url", "source_group", "source_name", "score",
		"num_comments", "published", "updated", "packaged",
	).Values(
		story.Publisher, story.ID, story.Title, story.AuthorName,
		story.Summary, story.Language, string(story.Status), story.Rating,
		story.URL, story.SourceGroup, story.SourceName, story.Score,
		story.NumComments,
		story.Published.Format("2006-01-02"),
		story.Updated.Format("2006-01-02"),
		story.Packaged.Format("2006-01-02"),
	)
	if err := s.exec(ctx, insert); err != nil {
		return fmt.Errorf("insert story %s/%d: %w", story.Publisher, story.ID, err)
	}
	for _, chapter := range story.Chapters {
		insert := sq.Insert("chapter").Columns("publisher", "story_id", "idx", "title", "text", "num_words").
			Values(story.Publisher, story.ID, chapter.Index, chapter.Title, chapter.Text, chapter.NumWords)
		if err := s.exec(ctx, insert); err != nil {
			return fmt.Errorf("insert chapter %d: %w", chapter.Index, err)
		}
	}
	for _, tag := range story.Tags {
		insert := sq.Insert("story_tag").Columns("publisher", "story_id", "tag_type", "tag_name", "implied").
			Values(story.Publisher, story.ID, string(tag.Type), tag.Name, boolToInt(tag.Implied))
		if err := s.exec(ctx, insert); err != nil {
			return fmt.Errorf("insert tag %s: %w", tag.Name, err)
		}
	}
	for _, category := range story.Categories {
		insert := sq.Insert("story_category").Columns("publisher", "story_id", "category_name", "implied").
			Values(story.Publisher, story.ID, category.Name, boolToInt(category.Implied))
		if err := s.exec(ctx, insert); err != nil {
			return fmt.Errorf("insert category %s: %w", category.Name, err)
		}
	}
	for _, ref := range story.Series {
		insert := sq.Insert("story_series").Columns("publisher", "story_id", "series_name", "idx").
			Values(story.Publisher, story.ID, ref.Name, ref.Index)
		if err := s.exec(ctx, insert); err != nil {
			return fmt.Errorf("insert series membership %s: %w", ref.Name, err)
		}
	}
	author := sq.Insert("author").Columns("publisher", "name", "url").
		Values(story.Publisher, story.AuthorName, "").
		Suffix("ON CONFLICT (publisher, name) DO NOTHING")
	if err := s.exec(ctx, author); err != nil {
		return fmt.Errorf("insert author %s: %w", story.AuthorName, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
