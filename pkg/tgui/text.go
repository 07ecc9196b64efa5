package tgui

// TruncRunes cuts s to n runes, the last of which is "…" when s was longer.
func TruncRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	seen := 0
	for i := range s {
		if seen == n-1 {
			// s[i:] holds at least one rune; keep it only if it is the last
			rest := s[i:]
			if len([]rune(rest)) == 1 {
				return s
			}
			return s[:i] + "…"
		}
		seen++
	}
	return s
}
