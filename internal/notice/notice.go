// Package notice holds the records the bot ingests and the subscribers it delivers to.
package notice

import (
	"strings"
	"time"
)

// DateLayout is the ISO calendar-date form used for Record.Date and Subscriber.SubscribedAt.
const DateLayout = "2006-01-02"

// Unknown fills optional subscriber metadata the client did not provide.
const Unknown = "N/A"

// Record is one announcement instance. (Text, Date) is unique within the archive.
type Record struct {
	Serial int    `json:"serial_number"`
	Text   string `json:"notice"`
	Date   string `json:"date"`
	URL    string `json:"url,omitempty"`
}

// Key returns the dedup key of r.
func (r Record) Key() Key { return Key{Text: strings.TrimSpace(r.Text), Date: r.Date} }

// Key identifies a record for deduplication.
type Key struct {
	Text string
	Date string
}

// Subscriber is one recipient of broadcasts. RecipientID is unique across the roster.
type Subscriber struct {
	Serial       int    `json:"serial_number"`
	RecipientID  int64  `json:"recipient_id"`
	SubscribedAt string `json:"subscribed_at"`
	DisplayName  string `json:"display_name"`
	Handle       string `json:"handle"`
}

// Eligible reports whether s receives broadcasts dated today.
func (s Subscriber) Eligible(today string) bool { return OnOrBefore(s.SubscribedAt, today) }

// OnOrBefore reports a <= b for ISO dates. Malformed input compares false.
func OnOrBefore(a, b string) bool {
	ta, err := time.Parse(DateLayout, strings.TrimSpace(a))
	if err != nil {
		return false
	}
	tb, err := time.Parse(DateLayout, strings.TrimSpace(b))
	if err != nil {
		return false
	}
	return !ta.After(tb)
}

// OrUnknown returns s trimmed, or Unknown when empty.
func OrUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unknown
	}
	return s
}

// Calendar yields today's date in a fixed location. Now defaults to time.Now.
type Calendar struct {
	Location *time.Location
	Now      func() time.Time
}

// Today returns the current date in c.Location as YYYY-MM-DD.
func (c Calendar) Today() string {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	t := now()
	if c.Location != nil {
		t = t.In(c.Location)
	}
	return t.Format(DateLayout)
}
