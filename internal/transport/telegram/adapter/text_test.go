package adapter

import (
	"strings"
	"testing"

	kit "habitbot/internal/transport"
)

func TestSplitText(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		in    string
		limit int
		want  []string
	}{
		{"short", "hello", 10, []string{"hello"}},
		{"empty", "", 10, []string{""}},
		{"prefers newline", "aaaa\nbbbb\ncc", 10, []string{"aaaa\nbbbb", "cc"}},
		{"hard cut", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"runes", "ééééé", 2, []string{"éé", "éé", "é"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := splitText(tc.in, tc.limit)
			if strings.Join(got, "|") != strings.Join(tc.want, "|") {
				t.Fatalf("splitText(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
			}
		})
	}
}

func TestSplitTextKeepsAllContent(t *testing.T) {
	t.Parallel()
	line := strings.Repeat("x", 90) + "\n"
	in := strings.Repeat(line, 100)
	chunks := splitText(in, textLimit)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	total := 0
	for _, c := range chunks {
		if n := len([]rune(c)); n > textLimit {
			t.Fatalf("chunk too long: %d", n)
		}
		total += strings.Count(c, "x")
	}
	if total != 9000 {
		t.Fatalf("lost content: %d", total)
	}
}

func TestMenuHashChanges(t *testing.T) {
	t.Parallel()
	a := []kit.BotCommand{{Command: "start", Description: "register"}}
	b := []kit.BotCommand{{Command: "start", Description: "sign up"}}
	if menuHash(a) == menuHash(b) {
		t.Fatal("hash should differ")
	}
	if menuHash(a) != menuHash(append([]kit.BotCommand(nil), a...)) {
		t.Fatal("hash should be stable")
	}
}
