package habit

import "strings"

// Rule names. They are stable and part of the rejection contract.
const (
	RuleRequired        = "required"
	RuleTimeToComplete  = "time_to_complete"
	RuleRewardOrRelated = "reward_or_related"
	RuleRelatedFound    = "related_found"
	RuleRelatedSelf     = "related_self"
	RuleRelatedPleasant = "related_pleasant"
	RuleRelatedVisible  = "related_visible"
	RulePleasantBare    = "pleasant_bare"
	RulePeriodicity     = "periodicity"
	RulePleasantInUse   = "pleasant_in_use"
	RulePublicInUse     = "public_in_use"
)

// Candidate is the field-set checked by the rules. Related is the habit
// RelatedID points to, resolved by the caller; nil when it does not exist.
type Candidate struct {
	Habit   Habit
	Related *Habit
}

// Rule is one named constraint. Violated returns true when c breaks it.
type Rule struct {
	Name     string
	Message  string
	Violated func(c Candidate) bool
}

// Violation is one failed rule.
type Violation struct {
	Rule    string
	Message string
}

// Rejection is returned when at least one rule fails.
type Rejection struct {
	Violations []Violation
}

func (r *Rejection) Error() string {
	msgs := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		msgs = append(msgs, v.Message)
	}
	return "habit rejected: " + strings.Join(msgs, "; ")
}

// Has reports whether the named rule is among the violations.
func (r *Rejection) Has(rule string) bool {
	for _, v := range r.Violations {
		if v.Rule == rule {
			return true
		}
	}
	return false
}

// Rules is the write-time rule set in evaluation order.
var Rules = []Rule{
	{
		Name:    RuleRequired,
		Message: "action and place are required",
		Violated: func(c Candidate) bool {
			return strings.TrimSpace(c.Habit.Action) == "" || strings.TrimSpace(c.Habit.Place) == ""
		},
	},
	{
		Name:    RuleTimeToComplete,
		Message: "duration exceeded",
		Violated: func(c Candidate) bool {
			return c.Habit.DurationSec <= 0 || c.Habit.DurationSec > MaxDurationSec
		},
	},
	{
		Name:    RuleRewardOrRelated,
		Message: "choose one, not both",
		Violated: func(c Candidate) bool {
			return c.Habit.HasRelated() && c.Habit.HasReward()
		},
	},
	{
		Name:    RuleRelatedFound,
		Message: "related habit not found",
		Violated: func(c Candidate) bool {
			return c.Habit.HasRelated() && c.Related == nil
		},
	},
	{
		Name:    RuleRelatedSelf,
		Message: "habit cannot be related to itself",
		Violated: func(c Candidate) bool {
			return c.Habit.HasRelated() && c.Habit.ID != 0 && c.Habit.RelatedID == c.Habit.ID
		},
	},
	{
		Name:    RuleRelatedPleasant,
		Message: "related habit must be pleasant",
		Violated: func(c Candidate) bool {
			return c.Habit.HasRelated() && c.Related != nil && !c.Related.Pleasant
		},
	},
	{
		Name:    RuleRelatedVisible,
		Message: "related habit is not yours",
		Violated: func(c Candidate) bool {
			return c.Related != nil && c.Related.OwnerID != c.Habit.OwnerID && !c.Related.Public
		},
	},
	{
		Name:    RulePleasantBare,
		Message: "pleasant habit may not carry reward or relation",
		Violated: func(c Candidate) bool {
			return c.Habit.Pleasant && (c.Habit.HasReward() || c.Habit.HasRelated())
		},
	},
	{
		Name:    RulePeriodicity,
		Message: "must recur at least weekly",
		Violated: func(c Candidate) bool {
			return c.Habit.Periodicity < MinPeriodicity || c.Habit.Periodicity > MaxPeriodicity
		},
	},
}

// Validate evaluates every rule against c. It returns nil or a *Rejection
// listing the violations in rule order.
func Validate(c Candidate) error {
	return ValidateWith(Rules, c)
}

func ValidateWith(rules []Rule, c Candidate) error {
	var rej *Rejection
	for _, r := range rules {
		if !r.Violated(c) {
			continue
		}
		if rej == nil {
			rej = &Rejection{}
		}
		rej.Violations = append(rej.Violations, Violation{Rule: r.Name, Message: r.Message})
	}
	if rej == nil {
		return nil
	}
	return rej
}
