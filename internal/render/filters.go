package render

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/IMayBeABitShy/zimfiction/internal/normalize"
)

// disallowedElements are stripped from story text during repair. Scripts and
// embedded documents must never survive into the ZIM.
var disallowedElements = []string{"script", "style", "iframe", "object", "embed", "form", "input", "link", "meta"}

// Escape HTML-escapes a display string.
func Escape(value string) string {
	return html.EscapeString(value)
}

// StripTags removes all markup from an HTML fragment, returning its text.
func StripTags(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return doc.Text()
}

// FormatDate formats a date as an ISO day string.
func FormatDate(value time.Time) string {
	if value.IsZero() {
		return "unknown"
	}
	return value.Format("2006-01-02")
}

// FormatNumber renders a count with a compact suffix once it passes 1000.
func FormatNumber(n int) string {
	if n < 1000 && n > -1000 {
		return fmt.Sprintf("%d", n)
	}
	value := float64(n)
	for _, suffix := range []string{"", "K", "M", "B", "T", "Qa"} {
		if value < 1000.0 && value > -1000.0 {
			return fmt.Sprintf("%.2f%s", value, suffix)
		}
		value /= 1000.0
	}
	return fmt.Sprintf("%.2fQi", value)
}

// FormatSize formats a byte count into a human readable string.
func FormatSize(nbytes int64) string {
	value := float64(nbytes)
	for _, suffix := range []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"} {
		if value < 1024.0 {
			return fmt.Sprintf("%.2f %s", value, suffix)
		}
		value /= 1024.0
	}
	return fmt.Sprintf("%.2f EiB", value)
}

// FormatTimedelta formats elapsed seconds as H:MM:SS.
func FormatTimedelta(elapsed time.Duration) string {
	total := int(elapsed.Seconds())
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// NormalizeTag slugs a name and percent-encodes it for use inside a href.
func NormalizeTag(name string) string {
	return url.PathEscape(normalize.Slug(name))
}

// RepairHTML parses a possibly-broken HTML fragment, drops disallowed
// elements, balances unclosed tags and re-serializes it. Parsing through
// goquery closes every tag the source left open and normalizes the encoding.
func RepairHTML(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return html.EscapeString(fragment)
	}
	for _, element := range disallowedElements {
		doc.Find(element).Remove()
	}
	repaired, err := doc.Find("body").Html()
	if err != nil {
		return html.EscapeString(fragment)
	}
	return repaired
}

// RenderStoryText repairs a chapter body and wraps it in the storytext
// container div the stylesheet targets.
func RenderStoryText(fragment string) string {
	return `<div class="storytext">` + RepairHTML(fragment) + `</div>`
}

// DefaultIndex returns list[i] or fallback when i is out of range.
func DefaultIndex[T any](list []T, i int, fallback T) T {
	if i < 0 || i >= len(list) {
		return fallback
	}
	return list[i]
}
