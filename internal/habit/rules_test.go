package habit

import (
	"errors"
	"testing"
)

func validHabit() Habit {
	return Habit{
		ID:          10,
		OwnerID:     1,
		Place:       "park",
		Action:      "walk",
		Time:        TimeOfDay(8 * 60),
		Periodicity: 1,
		DurationSec: 90,
	}
}

func TestValidateAcceptsPlainHabit(t *testing.T) {
	t.Parallel()
	if err := Validate(Candidate{Habit: validHabit()}); err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
}

func TestValidateRules(t *testing.T) {
	t.Parallel()

	pleasant := Habit{ID: 20, OwnerID: 1, Place: "home", Action: "tea", Periodicity: 1, DurationSec: 60, Pleasant: true}
	chore := Habit{ID: 21, OwnerID: 1, Place: "home", Action: "dishes", Periodicity: 1, DurationSec: 60}
	foreign := pleasant
	foreign.ID, foreign.OwnerID = 22, 2

	cases := []struct {
		name    string
		mutate  func(*Candidate)
		rule    string
		message string
	}{
		{
			name:    "pleasant with reward",
			mutate:  func(c *Candidate) { c.Habit.Pleasant = true; c.Habit.Reward = "5 dollars" },
			rule:    RulePleasantBare,
			message: "pleasant habit may not carry reward or relation",
		},
		{
			name: "pleasant with related",
			mutate: func(c *Candidate) {
				c.Habit.Pleasant = true
				c.Habit.RelatedID = pleasant.ID
				c.Related = &pleasant
			},
			rule:    RulePleasantBare,
			message: "pleasant habit may not carry reward or relation",
		},
		{
			name:    "periodicity above a week",
			mutate:  func(c *Candidate) { c.Habit.Periodicity = 12 },
			rule:    RulePeriodicity,
			message: "must recur at least weekly",
		},
		{
			name:   "periodicity zero",
			mutate: func(c *Candidate) { c.Habit.Periodicity = 0 },
			rule:   RulePeriodicity,
		},
		{
			name:    "duration too long",
			mutate:  func(c *Candidate) { c.Habit.DurationSec = 121 },
			rule:    RuleTimeToComplete,
			message: "duration exceeded",
		},
		{
			name:   "duration missing",
			mutate: func(c *Candidate) { c.Habit.DurationSec = 0 },
			rule:   RuleTimeToComplete,
		},
		{
			name: "reward and related",
			mutate: func(c *Candidate) {
				c.Habit.Reward = "cake"
				c.Habit.RelatedID = pleasant.ID
				c.Related = &pleasant
			},
			rule:    RuleRewardOrRelated,
			message: "choose one, not both",
		},
		{
			name: "related not pleasant",
			mutate: func(c *Candidate) {
				c.Habit.RelatedID = chore.ID
				c.Related = &chore
			},
			rule:    RuleRelatedPleasant,
			message: "related habit must be pleasant",
		},
		{
			name:   "related missing",
			mutate: func(c *Candidate) { c.Habit.RelatedID = 999 },
			rule:   RuleRelatedFound,
		},
		{
			name: "related to itself",
			mutate: func(c *Candidate) {
				self := c.Habit
				self.Pleasant = true
				c.Habit.RelatedID = c.Habit.ID
				c.Related = &self
			},
			rule: RuleRelatedSelf,
		},
		{
			name: "related private habit of another user",
			mutate: func(c *Candidate) {
				c.Habit.RelatedID = foreign.ID
				c.Related = &foreign
			},
			rule: RuleRelatedVisible,
		},
		{
			name:   "missing action",
			mutate: func(c *Candidate) { c.Habit.Action = "  " },
			rule:   RuleRequired,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := Candidate{Habit: validHabit()}
			tc.mutate(&c)
			err := Validate(c)
			var rej *Rejection
			if !errors.As(err, &rej) {
				t.Fatalf("expected rejection, got %v", err)
			}
			if !rej.Has(tc.rule) {
				t.Fatalf("expected rule %q, got %+v", tc.rule, rej.Violations)
			}
			if tc.message == "" {
				return
			}
			for _, v := range rej.Violations {
				if v.Rule == tc.rule && v.Message != tc.message {
					t.Fatalf("message = %q, want %q", v.Message, tc.message)
				}
			}
		})
	}
}

func TestValidateRelatedPleasantAccepted(t *testing.T) {
	t.Parallel()
	tea := Habit{ID: 20, OwnerID: 2, Place: "home", Action: "tea", Periodicity: 1, DurationSec: 60, Pleasant: true, Public: true}
	h := validHabit()
	h.RelatedID = tea.ID
	if err := Validate(Candidate{Habit: h, Related: &tea}); err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
}

func TestValidateReportsAllViolations(t *testing.T) {
	t.Parallel()
	h := validHabit()
	h.Pleasant = true
	h.Reward = "5 dollars"
	h.Periodicity = 12
	h.DurationSec = 500

	var rej *Rejection
	if !errors.As(Validate(Candidate{Habit: h}), &rej) {
		t.Fatal("expected rejection")
	}
	want := []string{RuleTimeToComplete, RulePleasantBare, RulePeriodicity}
	if len(rej.Violations) != len(want) {
		t.Fatalf("violations = %+v, want rules %v", rej.Violations, want)
	}
	for i, r := range want {
		if rej.Violations[i].Rule != r {
			t.Fatalf("violation %d = %q, want %q", i, rej.Violations[i].Rule, r)
		}
	}
	if got := rej.Error(); got != "habit rejected: duration exceeded; pleasant habit may not carry reward or relation; must recur at least weekly" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestValidateWithCustomRules(t *testing.T) {
	t.Parallel()
	onlyMorning := Rule{
		Name:     "morning",
		Message:  "before noon",
		Violated: func(c Candidate) bool { return c.Habit.Time.Hour() >= 12 },
	}
	h := validHabit()
	h.Time = TimeOfDay(13 * 60)
	var rej *Rejection
	if !errors.As(ValidateWith([]Rule{onlyMorning}, Candidate{Habit: h}), &rej) || !rej.Has("morning") {
		t.Fatalf("expected morning rejection")
	}
}
