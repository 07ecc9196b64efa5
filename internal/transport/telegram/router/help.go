package router

import (
	"strings"

	"noticebot/pkg/tgui"
)

// helpText renders the command list in HTML parse mode. Owner-only commands
// are listed only for owners.
func (m *CommandManager) helpText(owner bool) string {
	m.mu.RLock()
	order := m.order
	m.mu.RUnlock()

	lines := []tgui.H{tgui.B("📚 Commands"), ""}
	var locked []tgui.H
	for _, c := range order {
		if c.Hidden {
			continue
		}
		line := tgui.JoinH(" ", tgui.Code("/"+c.Name), describe(c))
		if c.Access == AccessOwnerOnly {
			if owner {
				locked = append(locked, "• 🔒 "+line)
			}
			continue
		}
		lines = append(lines, "• "+line)
	}
	if len(locked) > 0 {
		lines = append(lines, "", tgui.B("Owner"))
		lines = append(lines, locked...)
	}
	return tgui.JoinLines(lines).String()
}

func describe(c *Command) tgui.H {
	var parts []tgui.H
	if d := strings.TrimSpace(c.Description); d != "" {
		parts = append(parts, "- "+tgui.Esc(d))
	}
	if len(c.Aliases) > 0 {
		parts = append(parts, tgui.I("(alias: /"+strings.Join(c.Aliases, ", /")+")"))
	}
	return tgui.JoinH(" ", parts...)
}
