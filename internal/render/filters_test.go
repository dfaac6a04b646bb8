package render

import (
	"strings"
	"testing"
	"time"
)

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.00K"},
		{1500, "1.50K"},
		{2500000, "2.50M"},
		{-5, "-5"},
	}
	for _, c := range cases {
		if got := FormatNumber(c.in); got != c.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatSize(t *testing.T) {
	t.Parallel()

	if got := FormatSize(2 * 1024 * 1024); got != "2.00 MiB" {
		t.Errorf("FormatSize = %q, want 2.00 MiB", got)
	}
	if got := FormatSize(512); got != "512.00 B" {
		t.Errorf("FormatSize = %q, want 512.00 B", got)
	}
}

func TestFormatDate(t *testing.T) {
	t.Parallel()

	date := time.Date(2021, time.March, 14, 10, 0, 0, 0, time.UTC)
	if got := FormatDate(date); got != "2021-03-14" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := FormatDate(time.Time{}); got != "unknown" {
		t.Errorf("FormatDate(zero) = %q", got)
	}
}

func TestFormatTimedelta(t *testing.T) {
	t.Parallel()

	if got := FormatTimedelta(3*time.Hour + 5*time.Minute + 7*time.Second); got != "3:05:07" {
		t.Errorf("FormatTimedelta = %q", got)
	}
}

func TestStripTags(t *testing.T) {
	t.Parallel()

	if got := StripTags("<p>Hello <b>world</b></p>"); got != "Hello world" {
		t.Errorf("StripTags = %q", got)
	}
}

func TestNormalizeTag(t *testing.T) {
	t.Parallel()

	if got := NormalizeTag("a b/c"); got != "a+b__c" {
		t.Errorf("NormalizeTag = %q, want a+b__c", got)
	}
}

func TestRepairHTMLClosesTags(t *testing.T) {
	t.Parallel()

	repaired := RepairHTML("<p>first<p>second <b>bold")
	opens := strings.Count(repaired, "<p>")
	closes := strings.Count(repaired, "</p>")
	if opens != closes {
		t.Errorf("unbalanced <p> after repair: %d open, %d close in %q", opens, closes, repaired)
	}
	if strings.Count(repaired, "<b>") != strings.Count(repaired, "</b>") {
		t.Errorf("unbalanced <b> after repair: %q", repaired)
	}
	if !strings.Contains(repaired, "first") || !strings.Contains(repaired, "bold") {
		t.Errorf("repair lost content: %q", repaired)
	}
}

func TestRepairHTMLDropsDisallowed(t *testing.T) {
	t.Parallel()

	repaired := RepairHTML(`<p>ok</p><script>alert(1)</script><iframe src="x"></iframe>`)
	if strings.Contains(repaired, "script") || strings.Contains(repaired, "iframe") {
		t.Errorf("disallowed elements survived: %q", repaired)
	}
	if !strings.Contains(repaired, "ok") {
		t.Errorf("repair lost content: %q", repaired)
	}
}

func TestRenderStoryText(t *testing.T) {
	t.Parallel()

	out := RenderStoryText("<p>body</p>")
	if !strings.HasPrefix(out, `<div class="storytext">`) || !strings.HasSuffix(out, "</div>") {
		t.Errorf("RenderStoryText missing container: %q", out)
	}
}

func TestDefaultIndex(t *testing.T) {
	t.Parallel()

	list := []string{"a", "b"}
	if got := DefaultIndex(list, 1, "z"); got != "b" {
		t.Errorf("DefaultIndex = %q", got)
	}
	if got := DefaultIndex(list, 5, "z"); got != "z" {
		t.Errorf("DefaultIndex out of range = %q", got)
	}
	if got := DefaultIndex(list, -1, "z"); got != "z" {
		t.Errorf("DefaultIndex negative = %q", got)
	}
}
