// Package render formats notice records as Telegram MarkdownV2 payloads.
package render

import (
	"strings"
	"time"

	"noticebot/internal/notice"
	"noticebot/pkg/tgui"
)

// ParseMode is the Telegram parse mode every rendered payload expects.
const ParseMode = tgui.ParseModeMarkdownV2

const displayLayout = "02 Jan 2006"

// Labels contain no MarkdownV2 markup, so every reserved character in a
// payload comes from escaped content.
const (
	labelNotice = "📢 Notice: "
	labelDate   = "📅 Date: "
	labelLink   = "🔗 Link: "
)

// Render builds the payload for rec. The link line is present only when rec has a URL.
func Render(rec notice.Record, displayDate string) string {
	var b strings.Builder
	b.WriteString(labelNotice)
	b.WriteString(tgui.EscMarkdownV2(rec.Text))
	b.WriteString("\n")
	b.WriteString(labelDate)
	b.WriteString(tgui.EscMarkdownV2(displayDate))
	if rec.URL != "" {
		b.WriteString("\n")
		b.WriteString(labelLink)
		b.WriteString(tgui.EscMarkdownV2(rec.URL))
	}
	return b.String()
}

// DisplayDate turns an ISO date into "02 Jan 2006". Unparseable input is returned as is.
func DisplayDate(iso string) string {
	t, err := time.Parse(notice.DateLayout, strings.TrimSpace(iso))
	if err != nil {
		return iso
	}
	return t.Format(displayLayout)
}

// Record renders rec with its own ingest date.
func Record(rec notice.Record) string { return Render(rec, DisplayDate(rec.Date)) }
