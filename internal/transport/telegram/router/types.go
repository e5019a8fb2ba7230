package router

import (
	"context"
	"time"

	kit "habitbot/internal/transport"
	logx "habitbot/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	AccessOwnerOnly
)

type Command struct {
	// Route is a space-separated command path, e.g. "habits" or "habit add".
	Route       string
	Aliases     []string // root-level aliases, e.g. ["add"]
	Description string
	Usage       string
	Access      Access
	Timeout     time.Duration // optional per-command override
	Handle      HandlerFunc
}

type HandlerFunc func(ctx context.Context, req *Request) error

type Request struct {
	Message  *kit.Message
	Chat     kit.ChatTarget
	FromID   int64
	Username string
	Private  bool
	Path     []string // matched command path tokens
	Command  string   // matched route
	Args     []string // tokens after the route
	ReqID    string
	IsOwner  bool

	Adapter kit.Adapter
	Logger  logx.Logger
}

// Reply sends text to the chat the request came from.
func (r *Request) Reply(ctx context.Context, text string) error {
	_, err := r.Adapter.SendText(ctx, r.Chat, text, &kit.SendOptions{DisablePreview: true})
	return err
}

// ReplyHTML sends text with HTML parse mode.
func (r *Request) ReplyHTML(ctx context.Context, text string) error {
	_, err := r.Adapter.SendText(ctx, r.Chat, text, &kit.SendOptions{DisablePreview: true, ParseMode: "HTML"})
	return err
}
