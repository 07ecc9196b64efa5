package notice

import (
	"testing"
	"time"
)

func TestOnOrBefore(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b string
		want bool
	}{
		{"2024-01-01", "2024-06-01", true},
		{"2024-06-01", "2024-06-01", true},
		{"2099-01-01", "2024-06-01", false},
		{"garbage", "2024-06-01", false},
		{"2024-01-01", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.a+"_"+tc.b, func(t *testing.T) {
			if got := OnOrBefore(tc.a, tc.b); got != tc.want {
				t.Fatalf("OnOrBefore(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestCalendarTodayUsesLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("IST", 5*3600+1800)
	c := Calendar{
		Location: loc,
		Now:      func() time.Time { return time.Date(2024, 5, 31, 20, 0, 0, 0, time.UTC) },
	}
	if got := c.Today(); got != "2024-06-01" {
		t.Fatalf("Today() = %q, want %q", got, "2024-06-01")
	}
}

func TestRecordKeyTrimsText(t *testing.T) {
	t.Parallel()

	a := Record{Text: "  Exam results  ", Date: "2024-06-01"}
	b := Record{Text: "Exam results", Date: "2024-06-01"}
	if a.Key() != b.Key() {
		t.Fatalf("Key() differ: %+v vs %+v", a.Key(), b.Key())
	}
	if OrUnknown("  ") != Unknown || OrUnknown(" bob ") != "bob" {
		t.Fatalf("OrUnknown mismatch")
	}
}
