package adapter

import "strings"

// Telegram rejects messages over 4096 characters.
const textLimit = 4000

// splitText cuts s into chunks of at most limit runes, preferring newline
// boundaries. In HTML mode a cut never lands inside a tag; in MarkdownV2
// mode it never separates a backslash from the character it escapes.
func splitText(s string, limit int, parseMode string) []string {
	if limit <= 0 {
		limit = textLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	var out []string
	for start := 0; start < len(rs); {
		end := min(start+limit, len(rs))
		if end < len(rs) {
			end = adjustCut(rs, start, end, limit, parseMode)
		}
		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))

		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}

func adjustCut(rs []rune, start, end, limit int, parseMode string) int {
	for i := end - 1; i-start >= limit/3; i-- {
		if rs[i] == '\n' {
			end = i + 1
			break
		}
	}

	switch strings.ToLower(parseMode) {
	case "html":
		open, closed := -1, -1
		for i := start; i < end; i++ {
			switch rs[i] {
			case '<':
				open = i
			case '>':
				closed = i
			}
		}
		if open > closed && open > start+1 {
			end = open
		}
	case "markdownv2":
		n := 0
		for i := end - 1; i >= start && rs[i] == '\\'; i-- {
			n++
		}
		// an odd run of trailing backslashes escapes the next rune
		if n%2 == 1 && end-1 > start {
			end--
		}
	}
	return end
}
