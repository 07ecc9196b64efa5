package scheduler

import (
	"testing"
	"time"
)

func TestParseScheduleVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		raw      string
		kind     SpecKind
		source   string
		duration time.Duration
	}{
		{name: "cron", raw: "*/5 * * * *", kind: SpecCron, source: "cron"},
		{name: "prefixed cron", raw: "cron:0 0 * * *", kind: SpecCron, source: "cron"},
		{name: "duration", raw: "10m", kind: SpecInterval, source: "duration", duration: 10 * time.Minute},
		{name: "prefixed interval", raw: "interval:45s", kind: SpecInterval, source: "duration", duration: 45 * time.Second},
		{name: "hhmm", raw: "01:30", kind: SpecInterval, source: "hhmm", duration: 90 * time.Minute},
		{name: "descriptor", raw: "@every 1h", kind: SpecCron, source: "cron"},
		{name: "every prefix", raw: "every:01:00", kind: SpecInterval, source: "hhmm", duration: time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSchedule(tt.raw)
			if err != nil {
				t.Fatalf("ParseSchedule(%q) error: %v", tt.raw, err)
			}
			if got.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.kind)
			}
			if got.Source != tt.source {
				t.Fatalf("Source = %s, want %s", got.Source, tt.source)
			}
			if tt.kind == SpecInterval && got.Every != tt.duration {
				t.Fatalf("Every = %v, want %v", got.Every, tt.duration)
			}
		})
	}
}

func TestParseScheduleInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "not-a-schedule", "0s", "cron:", "interval:soon"} {
		if _, err := ParseSchedule(raw); err == nil {
			t.Fatalf("ParseSchedule(%q) error = nil, want error", raw)
		}
	}
}

func TestParseHHMM(t *testing.T) {
	t.Parallel()
	if d, err := parseHHMM("01:00"); err != nil || d != time.Hour {
		t.Fatalf("parseHHMM(01:00) = %v, %v, want 1h", d, err)
	}
	for _, bad := range []string{"00:00", "01:75", "1h"} {
		if _, err := parseHHMM(bad); err == nil {
			t.Fatalf("parseHHMM(%q) error = nil, want error", bad)
		}
	}
}

func TestBuildSchedule(t *testing.T) {
	t.Parallel()
	base := time.Date(2024, 6, 1, 10, 15, 0, 0, time.UTC)
	tests := []struct {
		raw  string
		next time.Time
	}{
		{raw: "1h", next: base.Add(time.Hour)},
		{raw: "@every 30m", next: base.Add(30 * time.Minute)},
		{raw: "0 * * * *", next: time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC)},
		{raw: "cron:0 30 7 * * *", next: time.Date(2024, 6, 2, 7, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		ps, err := ParseSchedule(tt.raw)
		if err != nil {
			t.Fatalf("ParseSchedule(%q): %v", tt.raw, err)
		}
		sched, err := ps.Build()
		if err != nil {
			t.Fatalf("Build(%q): %v", tt.raw, err)
		}
		if got := sched.Next(base); !got.Equal(tt.next) {
			t.Fatalf("Next(%q) = %v, want %v", tt.raw, got, tt.next)
		}
	}

	ps, _ := ParseSchedule("cron:not a cron")
	if _, err := ps.Build(); err == nil {
		t.Fatal("expected error for invalid cron")
	}
}
