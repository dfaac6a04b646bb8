package build

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/IMayBeABitShy/zimfiction/internal/domain"
	"github.com/IMayBeABitShy/zimfiction/internal/render"
	"github.com/IMayBeABitShy/zimfiction/internal/stats"
)

// stringTable interns strings into dense integer ids so the aggregator's
// maps hold ints rather than repeated string copies. Large builds see the
// same publisher and author names millions of times.
type stringTable struct {
	ids     map[string]int32
	strings []string
}

func newStringTable() *stringTable {
	return &stringTable{ids: make(map[string]int32)}
}

func (t *stringTable) intern(s string) int32 {
	if id, ok := t.ids[s]; ok {
		return id
	}
	id := int32(len(t.strings))
	t.strings = append(t.strings, s)
	t.ids[s] = id
	return id
}

func (t *stringTable) lookup(id int32) string {
	return t.strings[id]
}

// authorKey identifies one author identity in interned form.
type authorKey struct {
	publisher int32
	name      int32
}

// Aggregator accumulates cross-reference state while phase 1 walks every
// story. Workers never touch it directly: they send contributions into a
// channel drained by a single reducer goroutine, so every reduction is a
// plain single-threaded commutative update. After sealing, later phases read
// only the immutable snapshot.
type Aggregator struct {
	contributions chan *domain.Story
	done          chan struct{}

	table        *stringTable
	globalStats  stats.StoryListStatCreator
	published    map[string]int
	updated      map[string]int
	tagFrequency map[string]int
	authors      map[int32]map[authorKey]struct{} // lowercased name -> identities
	pubPublished map[int32]map[string]int
	pubUpdated   map[int32]map[string]int

	sealOnce sync.Once
	snapshot *Snapshot
}

// NewAggregator creates an aggregator ready to receive contributions.
func NewAggregator() *Aggregator {
	a := &Aggregator{
		contributions: make(chan *domain.Story, 256),
		done:          make(chan struct{}),
		table:         newStringTable(),
		published:     make(map[string]int),
		updated:       make(map[string]int),
		tagFrequency:  make(map[string]int),
		authors:       make(map[int32]map[authorKey]struct{}),
		pubPublished:  make(map[int32]map[string]int),
		pubUpdated:    make(map[int32]map[string]int),
	}
	go a.reduce()
	return a
}

// Contribute hands one story to the reducer. The story is read, reduced and
// released; the aggregator never retains it.
func (a *Aggregator) Contribute(story *domain.Story) {
	a.contributions <- story
}

func (a *Aggregator) reduce() {
	defer close(a.done)
	for story := range a.contributions {
		a.globalStats.Feed(story)

		publisherID := a.table.intern(story.Publisher)
		if !story.Published.IsZero() {
			month := story.Published.Format("2006-01")
			a.published[month]++
			monthMap(a.pubPublished, publisherID)[month]++
		}
		if !story.Updated.IsZero() {
			month := story.Updated.Format("2006-01")
			a.updated[month]++
			monthMap(a.pubUpdated, publisherID)[month]++
		}
		for _, tag := range story.Tags {
			if !tag.Implied {
				a.tagFrequency[string(tag.Type)+"\x00"+tag.Name]++
			}
		}

		nameID := a.table.intern(strings.ToLower(story.AuthorName))
		cluster, ok := a.authors[nameID]
		if !ok {
			cluster = make(map[authorKey]struct{}, 1)
			a.authors[nameID] = cluster
		}
		cluster[authorKey{publisher: publisherID, name: a.table.intern(story.AuthorName)}] = struct{}{}
	}
}

func monthMap(byPublisher map[int32]map[string]int, publisher int32) map[string]int {
	m, ok := byPublisher[publisher]
	if !ok {
		m = make(map[string]int)
		byPublisher[publisher] = m
	}
	return m
}

// Snapshot is the sealed, read-only result of the aggregation phase.
type Snapshot struct {
	GlobalStats  stats.StoryListStats
	GlobalChart  render.ChartData
	TagFrequency map[string]int

	table        *stringTable
	authors      map[int32]map[authorKey]struct{}
	pubPublished map[int32]map[string]int
	pubUpdated   map[int32]map[string]int
}

// Seal stops accepting contributions, waits for the reducer to drain and
// returns the immutable snapshot. Subsequent calls return the same snapshot.
func (a *Aggregator) Seal() *Snapshot {
	a.sealOnce.Do(func() {
		close(a.contributions)
		<-a.done
		a.snapshot = &Snapshot{
			GlobalStats:  a.globalStats.Stats(),
			GlobalChart:  chartFromMonths(a.published, a.updated),
			TagFrequency: a.tagFrequency,
			table:        a.table,
			authors:      a.authors,
			pubPublished: a.pubPublished,
			pubUpdated:   a.pubUpdated,
		}
	})
	return a.snapshot
}

// AltIdentities returns every author identity sharing the given name
// (case-insensitive), across publishers, sorted for stable rendering.
func (s *Snapshot) AltIdentities(name string) []domain.Author {
	id, ok := s.table.ids[strings.ToLower(name)]
	if !ok {
		return nil
	}
	var out []domain.Author
	for key := range s.authors[id] {
		out = append(out, domain.Author{
			Publisher: s.table.lookup(key.publisher),
			Name:      s.table.lookup(key.name),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Publisher != out[j].Publisher {
			return out[i].Publisher < out[j].Publisher
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// PublisherChart returns the monthly histograms of one publisher.
func (s *Snapshot) PublisherChart(publisher string) render.ChartData {
	id, ok := s.table.ids[publisher]
	if !ok {
		return render.ChartData{Months: []string{}, Published: []int{}, Updated: []int{}}
	}
	return chartFromMonths(s.pubPublished[id], s.pubUpdated[id])
}

// chartFromMonths aligns two month histograms onto a contiguous axis.
func chartFromMonths(published, updated map[string]int) render.ChartData {
	data := render.ChartData{Months: []string{}, Published: []int{}, Updated: []int{}}
	var first, last string
	for month := range published {
		if first == "" || month < first {
			first = month
		}
		if month > last {
			last = month
		}
	}
	for month := range updated {
		if first == "" || month < first {
			first = month
		}
		if month > last {
			last = month
		}
	}
	if first == "" {
		return data
	}
	cursor, err := time.Parse("2006-01", first)
	if err != nil {
		return data
	}
	end, err := time.Parse("2006-01", last)
	if err != nil {
		return data
	}
	for !cursor.After(end) {
		month := cursor.Format("2006-01")
		data.Months = append(data.Months, month)
		data.Published = append(data.Published, published[month])
		data.Updated = append(data.Updated, updated[month])
		cursor = cursor.AddDate(0, 1, 0)
	}
	return data
}
