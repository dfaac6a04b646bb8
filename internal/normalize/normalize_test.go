package normalize

import "testing"

func TestSlug(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"fluff", "fluff"},
		{"a b", "a+b"},
		{"a/b", "a__b"},
		{"a b/c d", "a+b__c+d"},
		{"a+b", "a+b"},
		{"Harry Potter - J. K. Rowling", "Harry+Potter+-+J.+K.+Rowling"},
	}
	for _, c := range cases {
		if got := Slug(c.in); got != c.want {
			t.Errorf("Slug(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSlugIdempotent(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"a b", "x/y", "already+normalized", "mixed a/b c"} {
		once := Slug(name)
		if twice := Slug(once); twice != once {
			t.Errorf("Slug not idempotent on %q: %q -> %q", name, once, twice)
		}
	}
}

func TestSlugCollision(t *testing.T) {
	t.Parallel()

	// "a b" and "a+b" intentionally collide; the planner reports this.
	if Slug("a b") != Slug("a+b") {
		t.Fatalf("expected %q and %q to share a slug", "a b", "a+b")
	}
}

func TestRelationship(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"a/b", "a / b"},
		{"b/a", "a / b"},
		{"a / b", "a / b"},
		{"b & a", "a & b"},
		{"solo", "solo"},
	}
	for _, c := range cases {
		if got := Relationship(c.in); got != c.want {
			t.Errorf("Relationship(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCategory(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"#naruto", "Naruto"},
		{`"quoted"`, "Quoted"},
		{"Bleach - Fandom", "Bleach"},
		{"", "[Unknown category]"},
		{"   ", "[Unknown category]"},
		{"lower", "Lower"},
	}
	for _, c := range cases {
		if got := Category(c.in); got != c.want {
			t.Errorf("Category(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCountWords(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"hello world", 2},
		{"hello,  world!", 2},
		{"one-two three", 2},
		{"  padded   text  ", 2},
	}
	for _, c := range cases {
		if got := CountWords(c.in); got != c.want {
			t.Errorf("CountWords(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}
