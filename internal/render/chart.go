package render

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IMayBeABitShy/zimfiction/internal/domain"
)

// ChartData is the storyupdates.json payload: aligned monthly histograms of
// published and updated dates.
type ChartData struct {
	Months    []string `json:"months"`
	Published []int    `json:"published"`
	Updated   []int    `json:"updated"`
}

// BuildChartData computes the monthly histograms over a story set. Stories
// without a usable date are skipped. The month axis is contiguous from the
// earliest to the latest month seen.
func BuildChartData(stories []*domain.Story) ChartData {
	monthOf := func(t time.Time) string { return t.Format("2006-01") }

	var first, last time.Time
	consider := func(t time.Time) {
		if t.IsZero() {
			return
		}
		if first.IsZero() || t.Before(first) {
			first = t
		}
		if last.IsZero() || t.After(last) {
			last = t
		}
	}
	published := map[string]int{}
	updated := map[string]int{}
	for _, story := range stories {
		consider(story.Published)
		consider(story.Updated)
		if !story.Published.IsZero() {
			published[monthOf(story.Published)]++
		}
		if !story.Updated.IsZero() {
			updated[monthOf(story.Updated)]++
		}
	}

	data := ChartData{Months: []string{}, Published: []int{}, Updated: []int{}}
	if first.IsZero() {
		return data
	}
	cursor := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cursor.After(end) {
		month := monthOf(cursor)
		data.Months = append(data.Months, month)
		data.Published = append(data.Published, published[month])
		data.Updated = append(data.Updated, updated[month])
		cursor = cursor.AddDate(0, 1, 0)
	}
	return data
}

// RenderChartData marshals the histograms of a scope into its
// storyupdates.json artifact.
func RenderChartData(basePath string, stories []*domain.Story) (Artifact, error) {
	content, err := json.Marshal(BuildChartData(stories))
	if err != nil {
		return Artifact{}, fmt.Errorf("render: marshal chart data for %s: %w", basePath, err)
	}
	return jsonArtifact(basePath+"/storyupdates.json", "Story updates", content), nil
}
