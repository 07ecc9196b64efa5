package tgui

import "testing"

func TestEscMarkdownV2(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{"v1.2-beta!", `v1\.2\-beta\!`},
		{"a_b*c[d](e)~f`g>h#i+j=k|l{m}n", `a\_b\*c\[d\]\(e\)\~f\` + "`" + `g\>h\#i\+j\=k\|l\{m\}n`},
		{`back\slash`, `back\\slash`},
		{"ünïcødé.", `ünïcødé\.`},
	}
	for _, tc := range cases {
		if got := EscMarkdownV2(tc.in); got != tc.want {
			t.Fatalf("EscMarkdownV2(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncRunes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 5, "hell…"},
		{"héllo", 2, "h…"},
		{"ab", 1, "…"},
		{"x", 0, ""},
	}
	for _, tc := range cases {
		if got := TruncRunes(tc.in, tc.n); got != tc.want {
			t.Fatalf("TruncRunes(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestHTMLHelpers(t *testing.T) {
	t.Parallel()

	got := JoinH("\n", B("a<b"), "", Code("x&y"), Link("go", `https://e.org/?a="1"`))
	want := H(`<b>a&lt;b</b>` + "\n" + `<code>x&amp;y</code>` + "\n" + `<a href="https://e.org/?a=&#34;1&#34;">go</a>`)
	if got != want {
		t.Fatalf("JoinH() = %q, want %q", got, want)
	}
}
