package scheduler

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type SpecKind int

const (
	SpecCron SpecKind = iota
	SpecInterval
)

// ParsedSpec is a classified scheduler.interval value.
//
// Accepted forms:
//   - cron: "*/5 * * * *", "0 30 7 * * *" (seconds field), "@hourly", "@every 1h"
//   - Go duration: "1h", "2h30m"
//   - HH:MM: "01:00" runs hourly, "00:15" every quarter hour
//
// The prefixes "cron:", "interval:" and "every:" force a form.
type ParsedSpec struct {
	Kind   SpecKind
	Cron   string
	Every  time.Duration
	Source string // cron, duration or hhmm
}

var (
	hhmmPattern = regexp.MustCompile(`^(\d{1,3}):([0-5]\d)$`)
	cronParser  = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	errNonPositive = errors.New("interval must be > 0")
)

// ParseSchedule classifies raw. Cron syntax is only checked by Build.
func ParseSchedule(raw string) (ParsedSpec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ParsedSpec{}, errors.New("schedule required")
	}

	if prefix, rest, ok := strings.Cut(s, ":"); ok {
		switch strings.ToLower(prefix) {
		case "cron":
			if rest = strings.TrimSpace(rest); rest == "" {
				return ParsedSpec{}, errors.New("cron: expression required")
			}
			return ParsedSpec{Kind: SpecCron, Cron: rest, Source: "cron"}, nil
		case "interval", "every":
			return parseInterval(strings.TrimSpace(rest))
		}
	}

	if s[0] == '@' || strings.ContainsAny(s, " \t\r\n") {
		return ParsedSpec{Kind: SpecCron, Cron: s, Source: "cron"}, nil
	}
	spec, err := parseInterval(s)
	if err != nil && !errors.Is(err, errNonPositive) {
		return ParsedSpec{}, fmt.Errorf("invalid schedule %q (use cron like '0 * * * *', HH:MM like '01:00', or a duration like '1h')", raw)
	}
	return spec, err
}

func parseInterval(s string) (ParsedSpec, error) {
	if s == "" {
		return ParsedSpec{}, errors.New("interval required")
	}
	spec := ParsedSpec{Kind: SpecInterval, Source: "duration"}
	var err error
	if hhmmPattern.MatchString(s) {
		spec.Source = "hhmm"
		spec.Every, err = parseHHMM(s)
	} else if spec.Every, err = time.ParseDuration(s); err != nil {
		return ParsedSpec{}, fmt.Errorf("invalid interval %q (use HH:MM or a duration like '1h')", s)
	}
	if err != nil {
		return ParsedSpec{}, err
	}
	if spec.Every <= 0 {
		return ParsedSpec{}, errNonPositive
	}
	return spec, nil
}

// parseHHMM reads "H:MM" up to "999:59" as a duration.
func parseHHMM(s string) (time.Duration, error) {
	m := hhmmPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid HH:MM %q", s)
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	d := time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute
	if d <= 0 {
		return 0, errNonPositive
	}
	return d, nil
}

// Build returns the cron.Schedule for p. Intervals shorter than a second
// are rejected since cron.Every rounds them.
func (p ParsedSpec) Build() (cron.Schedule, error) {
	switch p.Kind {
	case SpecInterval:
		if p.Every < time.Second {
			return nil, errors.New("interval must be at least 1s")
		}
		return cron.Every(p.Every), nil
	case SpecCron:
		sched, err := cronParser.Parse(p.Cron)
		if err != nil {
			return nil, fmt.Errorf("invalid cron %q: %w", p.Cron, err)
		}
		return sched, nil
	}
	return nil, fmt.Errorf("unknown schedule kind %d", p.Kind)
}

func (p ParsedSpec) String() string {
	if p.Kind == SpecInterval {
		return "every " + p.Every.String()
	}
	return p.Cron
}
