package bot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"habitbot/internal/habit"
)

// Keys accepted by /habit add and /habit edit.
const (
	keyAction   = "action"
	keyPlace    = "place"
	keyTime     = "time"
	keyEvery    = "every"
	keyDuration = "duration"
	keyReward   = "reward"
	keyRelated  = "related"
	keyPleasant = "pleasant"
	keyPublic   = "public"
)

var keyAliases = map[string]string{
	"periodicity": keyEvery,
	"at":          keyTime,
	"where":       keyPlace,
	"do":          keyAction,
}

// clearValue clears reward or related on edit.
const clearValue = "-"

type argError struct{ msg string }

func (e *argError) Error() string { return e.msg }

func argErrorf(format string, a ...any) error { return &argError{msg: fmt.Sprintf(format, a...)} }

func normalizeKeys(kv map[string]string) (map[string]string, error) {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(kv))
	var unknown, twice []string
	for _, raw := range keys {
		k := raw
		if a, ok := keyAliases[k]; ok {
			k = a
		}
		switch k {
		case keyAction, keyPlace, keyTime, keyEvery, keyDuration, keyReward, keyRelated, keyPleasant, keyPublic:
			if _, dup := out[k]; dup {
				twice = append(twice, k)
				continue
			}
			out[k] = strings.TrimSpace(kv[raw])
		default:
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		return nil, argErrorf("unknown key(s): %s", strings.Join(unknown, ", "))
	}
	if len(twice) > 0 {
		return nil, argErrorf("%s given twice", strings.Join(twice, ", "))
	}
	return out, nil
}

// parseNewHabit builds a habit from /habit add arguments. Periodicity
// defaults to daily; action, place, time and duration are required.
func parseNewHabit(kv map[string]string) (habit.Habit, error) {
	kv, err := normalizeKeys(kv)
	if err != nil {
		return habit.Habit{}, err
	}
	for _, k := range []string{keyAction, keyPlace, keyTime, keyDuration} {
		if kv[k] == "" {
			return habit.Habit{}, argErrorf("%s is required", k)
		}
	}
	h := habit.Habit{Periodicity: 1}
	p, err := parsePatch(kv, false)
	if err != nil {
		return habit.Habit{}, err
	}
	return p.Apply(h), nil
}

// parseHabitPatch builds a partial update from /habit edit arguments.
func parseHabitPatch(kv map[string]string) (habit.Patch, error) {
	kv, err := normalizeKeys(kv)
	if err != nil {
		return habit.Patch{}, err
	}
	p, err := parsePatch(kv, true)
	if err != nil {
		return habit.Patch{}, err
	}
	if p.IsEmpty() {
		return habit.Patch{}, argErrorf("nothing to change")
	}
	return p, nil
}

func parsePatch(kv map[string]string, allowClear bool) (habit.Patch, error) {
	var p habit.Patch
	for k, v := range kv {
		switch k {
		case keyAction:
			p.Action = &v
		case keyPlace:
			p.Place = &v
		case keyTime:
			t, err := habit.ParseTimeOfDay(v)
			if err != nil {
				return p, argErrorf("time: %v", err)
			}
			p.Time = &t
		case keyEvery:
			n, err := parseEvery(v)
			if err != nil {
				return p, err
			}
			p.Periodicity = &n
		case keyDuration:
			n, err := parseDurationSec(v)
			if err != nil {
				return p, err
			}
			p.DurationSec = &n
		case keyReward:
			if v == clearValue {
				if !allowClear {
					return p, argErrorf("reward: %q only clears on edit", clearValue)
				}
				v = ""
			}
			p.Reward = &v
		case keyRelated:
			var id int64
			if v != clearValue {
				n, err := strconv.ParseInt(strings.TrimPrefix(v, "#"), 10, 64)
				if err != nil || n <= 0 {
					return p, argErrorf("related: expected habit id, got %q", v)
				}
				id = n
			} else if !allowClear {
				return p, argErrorf("related: %q only clears on edit", clearValue)
			}
			p.RelatedID = &id
		case keyPleasant:
			b, err := parseBool(k, v)
			if err != nil {
				return p, err
			}
			p.Pleasant = &b
		case keyPublic:
			b, err := parseBool(k, v)
			if err != nil {
				return p, err
			}
			p.Public = &b
		}
	}
	return p, nil
}

// parseEvery accepts a day count ("3") or the words daily and weekly.
// Range checks are left to the habit rules.
func parseEvery(v string) (int, error) {
	switch strings.ToLower(v) {
	case "daily", "day":
		return 1, nil
	case "weekly", "week":
		return 7, nil
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(v), "d"))
	if err != nil {
		return 0, argErrorf("every: expected days, got %q", v)
	}
	return n, nil
}

// parseDurationSec accepts plain seconds ("90") or a Go duration ("1m30s").
func parseDurationSec(v string) (int, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, argErrorf("duration: expected seconds, got %q", v)
	}
	return int(d / time.Second), nil
}

func parseBool(key, v string) (bool, error) {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	}
	return false, argErrorf("%s: expected yes or no, got %q", key, v)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, argErrorf("expected habit id, got %q", s)
	}
	return id, nil
}

func parsePage(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, argErrorf("expected page number, got %q", args[0])
	}
	return n, nil
}
