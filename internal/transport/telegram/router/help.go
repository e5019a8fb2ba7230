package router

import (
	"sort"
	"strings"

	"habitbot/pkg/tgui"
)

// helpText renders help in Telegram HTML. Owner-only commands are listed
// only for owners.
func (m *Router) helpText(path []string, owner bool) string {
	m.mu.RLock()
	root := m.root
	alias := m.alias
	m.mu.RUnlock()

	if len(path) == 0 {
		return helpTop(root, owner).String()
	}
	cur := root
	full := make([]string, 0, len(path))
	for _, p := range path {
		p = strings.ToLower(strings.TrimPrefix(p, "/"))
		n, ok := cur.child(p)
		if !ok {
			if leaf, ok := alias[p]; ok && leaf.cmd != nil {
				cur, full = leaf, splitRoute(leaf.cmd.Route)
				break
			}
			return tgui.JoinH(" ", tgui.Esc("unknown command. Send"), tgui.Code("/help"), tgui.Esc("for the list.")).String()
		}
		cur = n
		full = append(full, p)
	}
	return helpNode(cur, full, owner).String()
}

func helpTop(root *cmdNode, owner bool) tgui.H {
	lines := []tgui.H{tgui.B("Commands"), ""}
	for _, name := range root.childNames() {
		n, _ := root.child(name)
		lock := n.ownerOnly()
		if lock && !owner {
			continue
		}
		line := tgui.Esc("/" + name)
		if d := nodeDesc(n); d != "" {
			line += tgui.Esc(" - " + d)
		}
		if lock {
			line += " (owner)"
		}
		lines = append(lines, line)
	}
	lines = append(lines, "", tgui.JoinH(" ", tgui.Esc("Send"), tgui.Code("/help <command>"), tgui.Esc("for details.")))
	return tgui.Lines(lines...)
}

func helpNode(n *cmdNode, full []string, owner bool) tgui.H {
	title := "/" + strings.Join(full, " ")
	lines := []tgui.H{tgui.B(title)}
	if n.cmd != nil {
		if n.cmd.Description != "" {
			lines = append(lines, tgui.Esc(n.cmd.Description))
		}
		if n.cmd.Usage != "" {
			lines = append(lines, "", tgui.Code(n.cmd.Usage))
		}
	}

	subs := make([]string, 0, len(n.children))
	for _, name := range n.childNames() {
		c := n.children[name]
		if c.ownerOnly() && !owner {
			continue
		}
		line := title + " " + name
		if d := nodeDesc(c); d != "" {
			line += " - " + d
		}
		subs = append(subs, line)
	}
	if len(subs) > 0 {
		sort.Strings(subs)
		lines = append(lines, "")
		for _, s := range subs {
			lines = append(lines, tgui.Esc(s))
		}
	}
	return tgui.Lines(lines...)
}

func nodeDesc(n *cmdNode) string {
	if n.cmd != nil {
		return n.cmd.Description
	}
	return ""
}
