package bot

import (
	"errors"
	"testing"

	"habitbot/internal/habit"
)

func TestParseNewHabit(t *testing.T) {
	t.Parallel()
	h, err := parseNewHabit(map[string]string{
		"action": "walk", "place": "park", "time": "8:05", "duration": "1m30s",
		"periodicity": "weekly", "reward": "coffee", "public": "yes",
	})
	if err != nil {
		t.Fatal(err)
	}
	if h.Action != "walk" || h.Place != "park" || h.Time != habit.TimeOfDay(8*60+5) ||
		h.DurationSec != 90 || h.Periodicity != 7 || h.Reward != "coffee" || !h.Public || h.Pleasant {
		t.Fatalf("unexpected habit: %+v", h)
	}
}

func TestParseNewHabitDefaultsDaily(t *testing.T) {
	t.Parallel()
	h, err := parseNewHabit(map[string]string{"action": "a", "place": "b", "time": "10:00", "duration": "60"})
	if err != nil {
		t.Fatal(err)
	}
	if h.Periodicity != 1 {
		t.Fatalf("periodicity = %d", h.Periodicity)
	}
}

func TestParseNewHabitErrors(t *testing.T) {
	t.Parallel()
	base := func() map[string]string {
		return map[string]string{"action": "a", "place": "b", "time": "10:00", "duration": "60"}
	}
	cases := []struct {
		name string
		edit func(map[string]string)
	}{
		{"missing duration", func(m map[string]string) { delete(m, "duration") }},
		{"bad time", func(m map[string]string) { m["time"] = "25:00" }},
		{"unknown key", func(m map[string]string) { m["colour"] = "red" }},
		{"bad related", func(m map[string]string) { m["related"] = "tea" }},
		{"clear on add", func(m map[string]string) { m["reward"] = "-" }},
		{"bad bool", func(m map[string]string) { m["pleasant"] = "maybe" }},
		{"bad every", func(m map[string]string) { m["every"] = "often" }},
		{"alias and key together", func(m map[string]string) { m["every"] = "3"; m["periodicity"] = "12" }},
		{"empty bool", func(m map[string]string) { m["public"] = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m := base()
			tc.edit(m)
			_, err := parseNewHabit(m)
			var ae *argError
			if !errors.As(err, &ae) {
				t.Fatalf("err = %v, want argError", err)
			}
		})
	}
}

func TestParseHabitPatch(t *testing.T) {
	t.Parallel()
	p, err := parseHabitPatch(map[string]string{"reward": "-", "related": "#4", "every": "3d"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Reward == nil || *p.Reward != "" || p.RelatedID == nil || *p.RelatedID != 4 || *p.Periodicity != 3 {
		t.Fatalf("unexpected patch: %+v", p)
	}
	p, err = parseHabitPatch(map[string]string{"related": "-"})
	if err != nil || p.RelatedID == nil || *p.RelatedID != 0 {
		t.Fatalf("related clear: %+v %v", p, err)
	}
	if _, err := parseHabitPatch(map[string]string{}); err == nil {
		t.Fatal("empty patch accepted")
	}
}

func TestParsePage(t *testing.T) {
	t.Parallel()
	if n, err := parsePage(nil); err != nil || n != 1 {
		t.Fatalf("default page = %d, %v", n, err)
	}
	if n, err := parsePage([]string{"3"}); err != nil || n != 3 {
		t.Fatalf("page = %d, %v", n, err)
	}
	if _, err := parsePage([]string{"0"}); err == nil {
		t.Fatal("page 0 accepted")
	}
}
