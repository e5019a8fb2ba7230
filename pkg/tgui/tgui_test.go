package tgui

import "testing"

func TestHTML(t *testing.T) {
	t.Parallel()

	if got := B("a<b").String(); got != "<b>a&lt;b</b>" {
		t.Fatalf("B=%q", got)
	}
	if got := Code(`x="1"`).String(); got != "<code>x=&#34;1&#34;</code>" {
		t.Fatalf("Code=%q", got)
	}
	if got := JoinH(" - ", Esc("a"), "", Raw("<i>b</i>")).String(); got != "a - <i>b</i>" {
		t.Fatalf("JoinH=%q", got)
	}
	if got := Lines(Esc("a"), "", Esc("b")).String(); got != "a\n\nb" {
		t.Fatalf("Lines=%q", got)
	}
}

func TestPager(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total, size, pages int
	}{
		{0, 10, 1},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 0, 3},
	}
	for _, tc := range tests {
		if got := PageCount(tc.total, tc.size); got != tc.pages {
			t.Errorf("PageCount(%d,%d)=%d want %d", tc.total, tc.size, got, tc.pages)
		}
	}
	if got := PageLabel(5, 2, 15); got != "page 2/2, 15 total" {
		t.Fatalf("PageLabel=%q", got)
	}
	if got := NextHint("/habits", 1, 2); got != "next: /habits 2" {
		t.Fatalf("NextHint=%q", got)
	}
	if got := NextHint("/habits", 2, 2); got != "" {
		t.Fatalf("NextHint last=%q", got)
	}
}
