// Package urlnorm resolves the parent-relative links the source page uses.
package urlnorm

import "strings"

// Parent-relative prefixes, longest first: "../" is a prefix of "../../".
var prefixes = []string{"../../", "../"}

// Normalize rewrites a parent-relative link onto base.
//
// A link starting with "../../" or "../" has exactly that prefix stripped and
// is joined to base with a single slash. Any other link is returned unchanged;
// an empty link stays empty.
func Normalize(raw, base string) string {
	if raw == "" {
		return ""
	}
	for _, p := range prefixes {
		if strings.HasPrefix(raw, p) {
			return join(base, strings.TrimPrefix(raw, p))
		}
	}
	return raw
}

func join(base, rest string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(rest, "/")
}
