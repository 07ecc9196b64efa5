package logx

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"noticebot/pkg/tgui"
)

const (
	telegramMaxRunes = 3500
	fieldMaxRunes    = 600
)

// formatTelegramLine renders one zerolog JSON line as an HTML message:
// level and message in bold, then one key=value line per field.
// Input that is not JSON is sent escaped as is.
func formatTelegramLine(p []byte) string {
	raw := strings.TrimSpace(string(p))
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return tgui.Esc(tgui.TruncRunes(raw, telegramMaxRunes)).String()
	}

	lvl, _ := m["level"].(string)
	msg, _ := m["message"].(string)
	head := msg
	if lvl != "" {
		head = "[" + strings.ToUpper(lvl) + "] " + msg
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		if k != "time" && k != "level" && k != "message" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	lines := []tgui.H{tgui.B(head)}
	for _, k := range keys {
		v := tgui.TruncRunes(fmt.Sprint(m[k]), fieldMaxRunes)
		lines = append(lines, tgui.Code(k+"="+v))
	}
	out := tgui.JoinLines(lines).String()
	if len([]rune(out)) > telegramMaxRunes {
		// cutting HTML may break a tag; fall back to escaped plain text
		plain := head
		for _, k := range keys {
			plain += "\n" + k + "=" + fmt.Sprint(m[k])
		}
		return tgui.Esc(tgui.TruncRunes(plain, telegramMaxRunes)).String()
	}
	return out
}
