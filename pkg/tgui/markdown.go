package tgui

import "strings"

// ParseModeMarkdownV2 is Telegram's MarkdownV2 parse mode name.
const ParseModeMarkdownV2 = "MarkdownV2"

// markdownV2Reserved lists the characters MarkdownV2 treats as markup.
// The backslash is included because it is the escape character itself.
const markdownV2Reserved = "_*[]()~`>#+-=|{}.!\\"

// EscMarkdownV2 prefixes every reserved MarkdownV2 character in s with a backslash.
func EscMarkdownV2(s string) string {
	if !strings.ContainsAny(s, markdownV2Reserved) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + len(s)/4)
	for _, r := range s {
		if strings.ContainsRune(markdownV2Reserved, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
