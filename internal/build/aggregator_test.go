package build

import (
	"testing"
	"time"

	"github.com/IMayBeABitShy/zimfiction/internal/domain"
)

func contributedStory(publisher, author string, published time.Time) *domain.Story {
	return &domain.Story{
		Publisher:  publisher,
		AuthorName: author,
		Published:  published,
		Updated:    published.AddDate(0, 1, 0),
		Chapters:   []domain.Chapter{{Index: 1, NumWords: 100}},
		Tags:       []domain.TagRef{{Type: domain.TagGenre, Name: "romance"}},
	}
}

func TestAggregatorGlobalStats(t *testing.T) {
	t.Parallel()

	aggregator := NewAggregator()
	when := time.Date(2020, time.January, 15, 0, 0, 0, 0, time.UTC)
	aggregator.Contribute(contributedStory("Demo", "Alice", when))
	aggregator.Contribute(contributedStory("Demo", "Bob", when))
	snapshot := aggregator.Seal()

	if snapshot.GlobalStats.StoryCount != 2 {
		t.Errorf("StoryCount = %d", snapshot.GlobalStats.StoryCount)
	}
	if snapshot.GlobalStats.TotalWords != 200 {
		t.Errorf("TotalWords = %d", snapshot.GlobalStats.TotalWords)
	}
	if snapshot.TagFrequency["genre\x00romance"] != 2 {
		t.Errorf("tag frequency = %v", snapshot.TagFrequency)
	}
	if len(snapshot.GlobalChart.Months) != 2 {
		t.Errorf("global chart months = %v", snapshot.GlobalChart.Months)
	}
}

func TestAggregatorAltIdentities(t *testing.T) {
	t.Parallel()

	aggregator := NewAggregator()
	when := time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)
	aggregator.Contribute(contributedStory("SiteA", "Alice", when))
	aggregator.Contribute(contributedStory("SiteB", "alice", when))
	aggregator.Contribute(contributedStory("SiteB", "Bob", when))
	snapshot := aggregator.Seal()

	identities := snapshot.AltIdentities("Alice")
	if len(identities) != 2 {
		t.Fatalf("expected 2 identities, got %v", identities)
	}
	if identities[0].Publisher != "SiteA" || identities[1].Publisher != "SiteB" {
		t.Errorf("identities not sorted by publisher: %v", identities)
	}
	if got := snapshot.AltIdentities("Nobody"); got != nil {
		t.Errorf("unknown name should yield nil, got %v", got)
	}
}

func TestAggregatorPublisherChart(t *testing.T) {
	t.Parallel()

	aggregator := NewAggregator()
	aggregator.Contribute(contributedStory("SiteA", "Alice", time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)))
	aggregator.Contribute(contributedStory("SiteB", "Bob", time.Date(2022, time.June, 1, 0, 0, 0, 0, time.UTC)))
	snapshot := aggregator.Seal()

	chart := snapshot.PublisherChart("SiteA")
	if len(chart.Months) != 2 || chart.Months[0] != "2020-01" {
		t.Errorf("SiteA chart = %v", chart.Months)
	}
	if chart.Published[0] != 1 {
		t.Errorf("SiteA published = %v", chart.Published)
	}
	empty := snapshot.PublisherChart("Missing")
	if len(empty.Months) != 0 {
		t.Errorf("missing publisher chart should be empty")
	}
}

func TestAggregatorSealIdempotent(t *testing.T) {
	t.Parallel()

	aggregator := NewAggregator()
	aggregator.Contribute(contributedStory("Demo", "Alice", time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)))
	first := aggregator.Seal()
	second := aggregator.Seal()
	if first != second {
		t.Fatal("Seal should return the same snapshot")
	}
}
