package habit

// Patch is a partial update. Nil fields are left unchanged.
// An empty Reward or zero RelatedID clears the field.
type Patch struct {
	Place       *string
	Action      *string
	Time        *TimeOfDay
	Periodicity *int
	Reward      *string
	RelatedID   *int64
	DurationSec *int
	Public      *bool
	Pleasant    *bool
}

func (p Patch) IsEmpty() bool {
	return p.Place == nil && p.Action == nil && p.Time == nil && p.Periodicity == nil &&
		p.Reward == nil && p.RelatedID == nil && p.DurationSec == nil && p.Public == nil && p.Pleasant == nil
}

// Apply returns h with the patch applied.
func (p Patch) Apply(h Habit) Habit {
	if p.Place != nil {
		h.Place = *p.Place
	}
	if p.Action != nil {
		h.Action = *p.Action
	}
	if p.Time != nil {
		h.Time = *p.Time
	}
	if p.Periodicity != nil {
		h.Periodicity = *p.Periodicity
	}
	if p.Reward != nil {
		h.Reward = *p.Reward
	}
	if p.RelatedID != nil {
		h.RelatedID = *p.RelatedID
	}
	if p.DurationSec != nil {
		h.DurationSec = *p.DurationSec
	}
	if p.Public != nil {
		h.Public = *p.Public
	}
	if p.Pleasant != nil {
		h.Pleasant = *p.Pleasant
	}
	return h
}
