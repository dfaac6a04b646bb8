// Package normalize contains the pure name-mangling functions shared by the
// server-side renderer and the client search script. The slug rules here are
// load-bearing: the javascript in internal/render/assets/search.js must
// produce byte-identical output.
package normalize

import (
	"regexp"
	"sort"
	"strings"
)

// wordSeparators matches every rune that does not belong to a word when
// counting story lengths: anything other than a word character, '|' or '-'.
var wordSeparators = regexp.MustCompile(`[^\w|\-]`)

// Slug encodes a tag, author, series or category name so it is safe inside a
// ZIM path. Spaces become "+", slashes become "__", everything else passes
// through unchanged. The function is stable and non-reversible.
func Slug(name string) string {
	name = strings.ReplaceAll(name, " ", "+")
	name = strings.ReplaceAll(name, "/", "__")
	return name
}

// Relationship rewrites a relationship tag so that "a/b", "b/a" and "a / b"
// all reference the same relationship.
func Relationship(tag string) string {
	for _, sep := range []string{"/", "&"} {
		spaced := " " + sep + " "
		if strings.Contains(tag, sep) {
			tag = strings.ReplaceAll(tag, spaced, sep)
		}
		parts := strings.Split(tag, sep)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		sort.Strings(parts)
		tag = strings.Join(parts, spaced)
	}
	return tag
}

// Category merges very similar category spellings together.
func Category(category string) string {
	for strings.HasPrefix(category, "#") {
		category = category[1:]
	}
	category = strings.NewReplacer(
		`"`, "",
		"'", "",
		"- Fandom", "",
		"<", "",
		">", "",
		"\n", "",
		`\`, "",
		"\x00", "",
		"\r", "",
	).Replace(category)
	category = strings.TrimSpace(category)
	if category == "" {
		return "[Unknown category]"
	}
	return strings.ToUpper(category[:1]) + category[1:]
}

// CountWords reports the number of words in a chapter text under the stable
// word-count rule: split on anything that is not a word character, '|' or
// '-', so hyphenated words count once.
func CountWords(text string) int {
	return len(strings.Fields(wordSeparators.ReplaceAllString(text, " ")))
}
