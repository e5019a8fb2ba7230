package bot

import (
	"fmt"
	"strings"
	"time"

	"habitbot/internal/habit"
	"habitbot/internal/reminder"
	"habitbot/internal/task/scheduler"
	"habitbot/pkg/tgui"
)

func formatHabit(h habit.Habit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s at %s in %s", h.ID, h.Action, h.Time, h.Place)
	fmt.Fprintf(&b, "\nevery %s, takes %ds", everyText(h.Periodicity), h.DurationSec)
	switch {
	case h.HasReward():
		b.WriteString("\nreward: " + h.Reward)
	case h.HasRelated():
		fmt.Fprintf(&b, "\nthen: habit #%d", h.RelatedID)
	}
	var flags []string
	if h.Pleasant {
		flags = append(flags, "pleasant")
	}
	if h.Public {
		flags = append(flags, "public")
	}
	if len(flags) > 0 {
		b.WriteString("\n" + strings.Join(flags, ", "))
	}
	return b.String()
}

func formatLine(h habit.Habit) string {
	s := fmt.Sprintf("#%d %s %s in %s, every %s", h.ID, h.Time, h.Action, h.Place, everyText(h.Periodicity))
	if h.Pleasant {
		s += " (pleasant)"
	}
	return s
}

func formatPage(title string, p habit.PageResult, next string) string {
	if p.Total == 0 {
		return title + ": none yet"
	}
	lines := []string{fmt.Sprintf("%s (%s)", title, tgui.PageLabel(p.Page, p.Pages, p.Total))}
	for _, h := range p.Items {
		lines = append(lines, formatLine(h))
	}
	if hint := tgui.NextHint(next, p.Page, p.Pages); hint != "" {
		lines = append(lines, hint)
	}
	return strings.Join(lines, "\n")
}

func everyText(days int) string {
	switch days {
	case 1:
		return "day"
	case 7:
		return "week"
	}
	return fmt.Sprintf("%d days", days)
}

func formatRejection(rej *habit.Rejection) string {
	lines := []string{"habit rejected:"}
	for _, v := range rej.Violations {
		lines = append(lines, fmt.Sprintf("- %s (%s)", v.Message, v.Rule))
	}
	return strings.Join(lines, "\n")
}

func formatStatus(snap scheduler.Snapshot, reports []reminder.Report, rcfg reminder.Config) string {
	state := "stopped"
	if snap.Started {
		state = "running"
	} else if !snap.Enabled {
		state = "disabled"
	}
	lines := []string{
		fmt.Sprintf("scheduler: %s, tz %s", state, snap.Timezone),
		fmt.Sprintf("reminder window %s, dedup %v", rcfg.Window, rcfg.Dedup),
	}
	for _, s := range snap.Schedules {
		line := fmt.Sprintf("- %s [%s]", s.Name, s.Spec)
		if !s.Next.IsZero() {
			line += " next " + s.Next.Format("15:04:05")
		}
		if s.Running {
			line += " (running)"
		}
		lines = append(lines, line)
	}
	if len(reports) == 0 {
		lines = append(lines, "no reminder runs yet")
	} else {
		lines = append(lines, "recent runs:")
		for i := len(reports) - 1; i >= 0 && i >= len(reports)-5; i-- {
			lines = append(lines, "- "+reports[i].String())
		}
	}
	if n := skippedFirings(snap.History); n > 0 {
		lines = append(lines, fmt.Sprintf("skipped firings (overlap): %d", n))
	}
	return strings.Join(lines, "\n")
}

func skippedFirings(h []scheduler.HistoryItem) int {
	n := 0
	for _, it := range h {
		if it.Skipped {
			n++
		}
	}
	return n
}

func formatReport(r reminder.Report) string {
	return fmt.Sprintf("reminder run %s\nscanned %d, matched %d, sent %d, skipped %d, failed %d (%s)",
		r.RunID, r.Scanned, r.Matched, r.Sent, r.Skipped, r.Failed, r.Took.Round(time.Millisecond))
}
