package router

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	kit "noticebot/internal/transport"
)

// Telegram limits for setMyCommands.
const (
	maxCommandLen   = 32
	maxMenuDescLen  = 256
	maxMenuCommands = 100
)

var nonCommandChars = regexp.MustCompile(`[^a-z0-9]+`)

// commandName maps a name or alias onto Telegram's [a-z0-9_]{1,32}, starting
// with a letter. Unusable input gives "".
func commandName(s string) string {
	s = nonCommandChars.ReplaceAllString(strings.ToLower(s), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return ""
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "cmd_" + s
	}
	if len(s) > maxCommandLen {
		s = strings.TrimRight(s[:maxCommandLen], "_")
	}
	return s
}

// buildMenu lists the visible commands, public ones first, owner-only ones
// marked with a lock.
func buildMenu(cmds []*Command) []kit.BotCommand {
	var visible []*Command
	for _, c := range cmds {
		if !c.Hidden {
			visible = append(visible, c)
		}
	}
	slices.SortStableFunc(visible, func(a, b *Command) int {
		return cmp.Or(cmp.Compare(a.Access, b.Access), strings.Compare(a.Name, b.Name))
	})
	if len(visible) > maxMenuCommands {
		visible = visible[:maxMenuCommands]
	}

	menu := make([]kit.BotCommand, len(visible))
	for i, c := range visible {
		desc := strings.Join(strings.Fields(c.Description), " ")
		if desc == "" {
			desc = c.Name
		}
		if c.Access == AccessOwnerOnly {
			desc = "🔒 " + desc
		}
		if r := []rune(desc); len(r) > maxMenuDescLen {
			desc = string(r[:maxMenuDescLen])
		}
		menu[i] = kit.BotCommand{Command: c.Name, Description: desc}
	}
	return menu
}
