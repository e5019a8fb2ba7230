package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"habitbot/internal/habit"
	"habitbot/internal/reminder"
	"habitbot/internal/task/scheduler"
	"habitbot/internal/transport/telegram/router"
)

// ReminderJob is the scheduler name of the reminder firing.
const ReminderJob = "reminder.scan"

type Deps struct {
	Habits    *habit.Service
	Scheduler *scheduler.Service
	Scanner   *reminder.Scanner
}

// Commands returns the bot command set.
func Commands(d Deps) []router.Command {
	return []router.Command{
		{
			Route:       "start",
			Description: "register and enable reminders",
			Usage:       "/start",
			Handle:      d.start,
		},
		{
			Route:       "habit add",
			Aliases:     []string{"add"},
			Description: "create a habit",
			Usage:       `/habit add action="walk" place=park time=08:00 duration=90 [every=1..7] [reward=...|related=<id>] [pleasant=yes] [public=yes]`,
			Handle:      d.habitAdd,
		},
		{
			Route:       "habit edit",
			Aliases:     []string{"edit"},
			Description: "change a habit",
			Usage:       "/habit edit <id> key=value ... (reward=- or related=- clears)",
			Handle:      d.habitEdit,
		},
		{
			Route:       "habit del",
			Aliases:     []string{"del"},
			Description: "delete a habit",
			Usage:       "/habit del <id>",
			Handle:      d.habitDel,
		},
		{
			Route:       "habit show",
			Aliases:     []string{"show"},
			Description: "show one habit",
			Usage:       "/habit show <id>",
			Handle:      d.habitShow,
		},
		{
			Route:       "habits",
			Description: "list your habits",
			Usage:       "/habits [page]",
			Handle:      d.habitsOwn,
		},
		{
			Route:       "public",
			Description: "list public habits",
			Usage:       "/public [page]",
			Handle:      d.habitsPublic,
		},
		{
			Route:       "status",
			Description: "scheduler and reminder status",
			Access:      router.AccessOwnerOnly,
			Handle:      d.status,
		},
		{
			Route:       "remind_now",
			Description: "run one reminder scan now",
			Access:      router.AccessOwnerOnly,
			Timeout:     2 * time.Minute,
			Handle:      d.remindNow,
		},
	}
}

func (d Deps) start(ctx context.Context, req *router.Request) error {
	var chatID int64
	if req.Private {
		chatID = req.Chat.ChatID
	}
	u, err := d.Habits.Register(ctx, req.FromID, req.Username, chatID)
	if err != nil {
		return err
	}
	if u.ChatID == 0 {
		return req.Reply(ctx, "registered. Open a private chat with me and send /start to receive reminders.")
	}
	return req.Reply(ctx, fmt.Sprintf("registered. Reminders go to chat %d.\nAdd a habit with /habit add, see /help habit add.", u.ChatID))
}

func (d Deps) habitAdd(ctx context.Context, req *router.Request) error {
	kv, pos := router.SplitKV(req.Args)
	if len(pos) > 0 {
		return replyErr(ctx, req, argErrorf("unexpected %q, use key=value", pos[0]))
	}
	h, err := parseNewHabit(kv)
	if err != nil {
		return replyErr(ctx, req, err)
	}
	out, err := d.Habits.Create(ctx, req.FromID, h)
	if err != nil {
		return replyErr(ctx, req, err)
	}
	return req.Reply(ctx, "created\n"+formatHabit(out))
}

func (d Deps) habitEdit(ctx context.Context, req *router.Request) error {
	kv, pos := router.SplitKV(req.Args)
	if len(pos) != 1 {
		return replyErr(ctx, req, argErrorf("usage: /habit edit <id> key=value ..."))
	}
	id, err := parseID(pos[0])
	if err != nil {
		return replyErr(ctx, req, err)
	}
	p, err := parseHabitPatch(kv)
	if err != nil {
		return replyErr(ctx, req, err)
	}
	out, err := d.Habits.Update(ctx, req.FromID, id, p)
	if err != nil {
		return replyErr(ctx, req, err)
	}
	return req.Reply(ctx, "updated\n"+formatHabit(out))
}

func (d Deps) habitDel(ctx context.Context, req *router.Request) error {
	if len(req.Args) != 1 {
		return replyErr(ctx, req, argErrorf("usage: /habit del <id>"))
	}
	id, err := parseID(req.Args[0])
	if err != nil {
		return replyErr(ctx, req, err)
	}
	if err := d.Habits.Delete(ctx, req.FromID, id); err != nil {
		return replyErr(ctx, req, err)
	}
	return req.Reply(ctx, fmt.Sprintf("habit #%d deleted", id))
}

func (d Deps) habitShow(ctx context.Context, req *router.Request) error {
	if len(req.Args) != 1 {
		return replyErr(ctx, req, argErrorf("usage: /habit show <id>"))
	}
	id, err := parseID(req.Args[0])
	if err != nil {
		return replyErr(ctx, req, err)
	}
	h, err := d.Habits.Get(ctx, req.FromID, id)
	if err != nil {
		return replyErr(ctx, req, err)
	}
	return req.Reply(ctx, formatHabit(h))
}

func (d Deps) habitsOwn(ctx context.Context, req *router.Request) error {
	page, err := parsePage(req.Args)
	if err != nil {
		return replyErr(ctx, req, err)
	}
	if _, err := d.Habits.User(ctx, req.FromID); err != nil {
		return replyErr(ctx, req, err)
	}
	res, err := d.Habits.ListOwn(ctx, req.FromID, habit.Page{Number: page})
	if err != nil {
		return err
	}
	return req.Reply(ctx, formatPage("your habits", res, "/habits"))
}

func (d Deps) habitsPublic(ctx context.Context, req *router.Request) error {
	page, err := parsePage(req.Args)
	if err != nil {
		return replyErr(ctx, req, err)
	}
	res, err := d.Habits.ListPublic(ctx, habit.Page{Number: page})
	if err != nil {
		return err
	}
	return req.Reply(ctx, formatPage("public habits", res, "/public"))
}

func (d Deps) status(ctx context.Context, req *router.Request) error {
	return req.Reply(ctx, formatStatus(d.Scheduler.Snapshot(), d.Scanner.Recent(), d.Scanner.Config()))
}

func (d Deps) remindNow(ctx context.Context, req *router.Request) error {
	err := d.Scheduler.RunNow(ctx, ReminderJob)
	if errors.Is(err, scheduler.ErrBusy) {
		return req.Reply(ctx, "a reminder run is already in progress")
	}
	if err != nil {
		return err
	}
	recent := d.Scanner.Recent()
	if len(recent) == 0 {
		return req.Reply(ctx, "reminder run finished")
	}
	return req.Reply(ctx, formatReport(recent[len(recent)-1]))
}

// replyErr answers user mistakes in the chat and returns nil for them.
// Anything else is returned for the error middleware.
func replyErr(ctx context.Context, req *router.Request, err error) error {
	var (
		rej *habit.Rejection
		ae  *argError
	)
	switch {
	case errors.As(err, &rej):
		return req.Reply(ctx, formatRejection(rej))
	case errors.As(err, &ae):
		return req.Reply(ctx, ae.msg)
	case errors.Is(err, habit.ErrNotRegistered):
		return req.Reply(ctx, "send /start first")
	case errors.Is(err, habit.ErrNotFound):
		return req.Reply(ctx, "habit not found")
	case errors.Is(err, habit.ErrForbidden):
		return req.Reply(ctx, "that habit belongs to another user")
	}
	return err
}
