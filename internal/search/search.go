// Package search creates the static search metadata consumed by the in-ZIM
// javascript: one header plus a series of fixed-size content shards per
// scope (a tag page or a category page).
package search

import (
	"encoding/json"
	"fmt"

	"github.com/IMayBeABitShy/zimfiction/internal/domain"
)

// Fields enumerates the searchable fields in resolution order. The order is
// part of the format: tag ids are assigned by walking stories in feed order
// and fields in this order.
var Fields = []string{
	"publisher", "language", "status", "categories",
	"warnings", "characters", "relationships", "tags", "rating",
}

// Header is the search_header.json payload.
type Header struct {
	NumPages int                       `json:"num_pages"`
	TagIDs   map[string]map[string]int `json:"tag_ids"`
	Amounts  map[int]int               `json:"amounts"`
}

// Record is one entry of a search_content_<i>.json shard. The name-valued
// fields are for rendering result cards; Tags and ImpliedTags carry the
// scope-local integer ids used for filtering.
type Record struct {
	Publisher     string   `json:"publisher"`
	ID            int      `json:"id"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Updated       string   `json:"updated"`
	Words         int      `json:"words"`
	Chapters      int      `json:"chapters"`
	Score         int      `json:"score"`
	Rating        string   `json:"rating"`
	Language      string   `json:"language"`
	Status        string   `json:"status"`
	Categories    []string `json:"categories"`
	Series        [][2]any `json:"series"`
	Summary       string   `json:"summary"`
	Tags          []int    `json:"tags"`
	ImpliedTags   []int    `json:"implied_tags"`
	CategoryCount int      `json:"category_count"`
}

// MetadataCreator accumulates the stories of one scope and emits the header
// and content shards. Tag ids are local to the scope and never stable across
// scopes or rebuilds.
type MetadataCreator struct {
	shardSize int
	raw       []domain.SearchData
	tagIDs    map[string]map[string]int
	amounts   map[int]int
	nextID    int
	resolved  bool
}

// NewMetadataCreator returns a creator with the given shard size.
func NewMetadataCreator(shardSize int) *MetadataCreator {
	if shardSize < 1 {
		shardSize = 1
	}
	return &MetadataCreator{shardSize: shardSize}
}

// Feed adds one story to the scope.
func (c *MetadataCreator) Feed(data domain.SearchData) {
	c.raw = append(c.raw, data)
	c.resolved = false
}

// Count returns the number of stories fed so far.
func (c *MetadataCreator) Count() int { return len(c.raw) }

// fieldValues returns the explicit and implied values of one field.
func fieldValues(data *domain.SearchData, field string) (explicit, implied []string) {
	switch field {
	case "publisher":
		return []string{data.Publisher}, nil
	case "language":
		return []string{data.Language}, nil
	case "status":
		return []string{data.Status}, nil
	case "rating":
		return []string{data.Rating}, nil
	case "categories":
		return data.Categories, data.ImpliedCategories
	case "warnings":
		return data.Warnings, data.ImpliedWarnings
	case "characters":
		return data.Characters, data.ImpliedCharacters
	case "relationships":
		return data.Relationships, data.ImpliedRelationships
	case "tags":
		return data.Tags, data.ImpliedTags
	}
	return nil, nil
}

// resolve assigns scope-local ids to every value, explicit or implied, and
// tallies per-id story amounts over explicit presence.
func (c *MetadataCreator) resolve() {
	c.tagIDs = make(map[string]map[string]int, len(Fields))
	for _, field := range Fields {
		c.tagIDs[field] = make(map[string]int)
	}
	c.amounts = make(map[int]int)
	c.nextID = 0

	assign := func(field, value string) int {
		ids := c.tagIDs[field]
		if id, ok := ids[value]; ok {
			return id
		}
		id := c.nextID
		c.nextID++
		ids[value] = id
		return id
	}

	for i := range c.raw {
		seen := make(map[int]bool)
		for _, field := range Fields {
			explicit, implied := fieldValues(&c.raw[i], field)
			for _, value := range explicit {
				id := assign(field, value)
				if !seen[id] {
					seen[id] = true
					c.amounts[id]++
				}
			}
			for _, value := range implied {
				assign(field, value)
			}
		}
	}
	c.resolved = true
}

// GetHeader returns the header metadata.
func (c *MetadataCreator) GetHeader() Header {
	if !c.resolved {
		c.resolve()
	}
	numPages := (len(c.raw) + c.shardSize - 1) / c.shardSize
	return Header{
		NumPages: numPages,
		TagIDs:   c.tagIDs,
		Amounts:  c.amounts,
	}
}

// record projects one story into its shard record.
func (c *MetadataCreator) record(data *domain.SearchData) Record {
	series := make([][2]any, 0, len(data.Series))
	for _, ref := range data.Series {
		series = append(series, [2]any{ref.Name, ref.Index})
	}
	record := Record{
		Publisher:     data.Publisher,
		ID:            data.ID,
		Title:         data.Title,
		Author:        data.Author,
		Updated:       data.Updated,
		Words:         data.Words,
		Chapters:      data.Chapters,
		Score:         data.Score,
		Rating:        data.Rating,
		Language:      data.Language,
		Status:        data.Status,
		Categories:    append(append([]string{}, data.Categories...), data.ImpliedCategories...),
		Series:        series,
		Summary:       data.Summary,
		Tags:          []int{},
		ImpliedTags:   []int{},
		CategoryCount: data.CategoryCount,
	}
	for _, field := range Fields {
		explicit, implied := fieldValues(data, field)
		for _, value := range explicit {
			record.Tags = append(record.Tags, c.tagIDs[field][value])
		}
		for _, value := range implied {
			record.ImpliedTags = append(record.ImpliedTags, c.tagIDs[field][value])
		}
	}
	return record
}

// ForEachPage emits every content shard in order as marshaled JSON.
func (c *MetadataCreator) ForEachPage(fn func(page int, content []byte) error) error {
	if !c.resolved {
		c.resolve()
	}
	maker := NewBucketMaker[Record](c.shardSize)
	page := 0
	emit := func(bucket []Record) error {
		if bucket == nil {
			return nil
		}
		content, err := json.Marshal(bucket)
		if err != nil {
			return fmt.Errorf("search: marshal shard %d: %w", page, err)
		}
		if err := fn(page, content); err != nil {
			return err
		}
		page++
		return nil
	}
	for i := range c.raw {
		if err := emit(maker.Feed(c.record(&c.raw[i]))); err != nil {
			return err
		}
	}
	return emit(maker.Finish())
}
