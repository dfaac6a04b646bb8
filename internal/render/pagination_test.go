package render

import (
	"fmt"
	"testing"
)

// describe renders a button list compactly for comparison.
func describe(buttons []PageButton) string {
	out := ""
	for _, button := range buttons {
		if button.Skip {
			out += "[...]"
		} else if button.Current {
			out += fmt.Sprintf("[*%d]", button.Number)
		} else {
			out += fmt.Sprintf("[%d]", button.Number)
		}
	}
	return out
}

func TestPaginationSinglePage(t *testing.T) {
	t.Parallel()

	if got := Pagination(1, 1); got != nil {
		t.Fatalf("one page should render no buttons, got %s", describe(got))
	}
}

func TestPaginationSmall(t *testing.T) {
	t.Parallel()

	got := describe(Pagination(1, 5))
	want := "[*1][2][3][4][5]"
	if got != want {
		t.Fatalf("Pagination(1, 5) = %s, want %s", got, want)
	}
}

func TestPaginationMiddle(t *testing.T) {
	t.Parallel()

	got := describe(Pagination(10, 20))
	want := "[1][...][8][9][*10][11][12][...][20]"
	if got != want {
		t.Fatalf("Pagination(10, 20) = %s, want %s", got, want)
	}
}

func TestPaginationLargeList(t *testing.T) {
	t.Parallel()

	got := describe(Pagination(100, 200))
	want := "[1][...][98][99][*100][101][102][...][200]"
	if got != want {
		t.Fatalf("Pagination(100, 200) = %s, want %s", got, want)
	}
}

func TestPaginationNearEdges(t *testing.T) {
	t.Parallel()

	cases := []struct {
		current int
		total   int
		want    string
	}{
		{1, 2, "[*1][2]"},
		{2, 2, "[1][*2]"},
		{1, 20, "[*1][2][3][...][20]"},
		{20, 20, "[1][...][18][19][*20]"},
		{4, 20, "[1][2][3][*4][5][6][...][20]"},
		{6, 20, "[1][...][4][5][*6][7][8][...][20]"},
	}
	for _, c := range cases {
		if got := describe(Pagination(c.current, c.total)); got != c.want {
			t.Errorf("Pagination(%d, %d) = %s, want %s", c.current, c.total, got, c.want)
		}
	}
}

func TestPaginationAlwaysContainsCurrent(t *testing.T) {
	t.Parallel()

	for total := 2; total <= 30; total++ {
		for current := 1; current <= total; current++ {
			found := false
			for _, button := range Pagination(current, total) {
				if button.Current && button.Number == current {
					found = true
				}
			}
			if !found {
				t.Fatalf("Pagination(%d, %d) does not mark the current page", current, total)
			}
		}
	}
}
