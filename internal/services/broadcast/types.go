package broadcast

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"noticebot/internal/storage"
	kit "noticebot/internal/transport"
	logx "noticebot/pkg/logx"
)

type Config struct {
	RatePerSec     int
	DisablePreview bool
	// ParseMode applies to every send made by the service.
	ParseMode string
}

// Result is the outcome of one broadcast. Failed lists recipient ids in send order.
type Result struct {
	JobID  string
	Sent   int
	Failed []int64
}

// TransportError is a failed delivery to one recipient.
type TransportError struct {
	Recipient int64
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("send to %d: %v", e.Recipient, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

type JobStatus struct {
	ID        string
	Name      string
	Total     int
	Done      int
	Failed    int
	Failures  []int64
	CreatedAt time.Time
	StartedAt time.Time
	DoneAt    time.Time
	Running   bool
}

type Service struct {
	cfg    Config
	docs   *storage.Documents
	sender kit.Sender
	log    logx.Logger

	limiter *rate.Limiter

	statusMu  sync.RWMutex
	status    map[string]*JobStatus
	lastID    string
	statusMax int
	statusTTL time.Duration
}
