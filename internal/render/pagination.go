package render

// PageButton is one element of a pagination bar: either a numbered page
// button (possibly the current one) or a skip placeholder.
type PageButton struct {
	Number  int
	Current bool
	Skip    bool
}

// Pagination lays out the page buttons for (current, total). The layout is a
// pure function: the window [current-2, current+2] is always shown, the first
// and last pages are always reachable, and a gap of two or more pages
// collapses into a skip placeholder. A single-page gap renders the page
// itself since the placeholder would occupy the same space. One page total
// renders no buttons at all.
func Pagination(current, total int) []PageButton {
	if total <= 1 {
		return nil
	}
	windowStart := current - 2
	if windowStart < 1 {
		windowStart = 1
	}
	windowEnd := current + 2
	if windowEnd > total {
		windowEnd = total
	}

	include := func(page int) bool {
		return page == 1 || page == total || (page >= windowStart && page <= windowEnd)
	}

	var buttons []PageButton
	for page := 1; page <= total; page++ {
		if include(page) {
			buttons = append(buttons, PageButton{Number: page, Current: page == current})
			continue
		}
		// Start of a gap: find where it ends.
		gapEnd := page
		for gapEnd <= total && !include(gapEnd) {
			gapEnd++
		}
		if gapEnd-page == 1 {
			buttons = append(buttons, PageButton{Number: page})
		} else {
			buttons = append(buttons, PageButton{Skip: true})
		}
		page = gapEnd - 1
	}
	return buttons
}
