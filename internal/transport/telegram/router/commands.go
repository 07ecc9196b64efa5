package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"noticebot/internal/services/broadcast"
	"noticebot/internal/services/registrar"
	"noticebot/internal/task/scheduler"
	"noticebot/pkg/tgui"
)

type RegistrarPort interface {
	Register(ctx context.Context, reg registrar.Registration) (registrar.Result, error)
}

type SchedulerPort interface {
	Trigger()
	State() scheduler.State
}

type StatusPort interface {
	Status(ctx context.Context) (Status, error)
}

// Status is what /status reports.
type Status struct {
	Date          string
	Subscribers   int
	Eligible      int
	Archived      int
	ArchivedToday int
	Scheduler     scheduler.Snapshot
	LastBroadcast *broadcast.JobStatus
}

type Services struct {
	Registrar RegistrarPort
	Scheduler SchedulerPort
	Status    StatusPort
}

const (
	msgAlreadySubscribed = "You are already subscribed."
	msgSubscribeFailed   = "Subscription failed, please try again later."
)

// BotCommands returns the commands the bot serves.
func BotCommands(s Services) []Command {
	subscribe := func(ctx context.Context, req *Request) error {
		handle := ""
		if u := strings.TrimSpace(req.FromUsername); u != "" {
			handle = "@" + u
		}
		res, err := s.Registrar.Register(ctx, registrar.Registration{
			RecipientID: req.Chat.ChatID,
			DisplayName: req.FromName,
			Handle:      handle,
		})
		if err != nil {
			_ = req.Reply(ctx, msgSubscribeFailed, false)
			return err
		}
		if res.Outcome == registrar.AlreadySubscribed {
			return req.Reply(ctx, msgAlreadySubscribed, false)
		}
		return nil
	}

	return []Command{
		{
			Name:        "start",
			Description: "subscribe to notice updates",
			Access:      AccessEveryone,
			Timeout:     time.Minute,
			Handle:      subscribe,
		},
		{
			Name:        "subscribe",
			Description: "subscribe to notice updates",
			Access:      AccessEveryone,
			Hidden:      true,
			Timeout:     time.Minute,
			Handle:      subscribe,
		},
		{
			Name:        "status",
			Description: "bot and delivery status",
			Access:      AccessOwnerOnly,
			Timeout:     15 * time.Second,
			Handle: func(ctx context.Context, req *Request) error {
				st, err := s.Status.Status(ctx)
				if err != nil {
					_ = req.Reply(ctx, "status unavailable: "+err.Error(), false)
					return err
				}
				return req.Reply(ctx, formatStatus(st), true)
			},
		},
		{
			Name:        "fetch",
			Aliases:     []string{"poll"},
			Description: "run a fetch cycle now",
			Access:      AccessOwnerOnly,
			Handle: func(ctx context.Context, req *Request) error {
				busy := s.Scheduler.State() == scheduler.Running
				s.Scheduler.Trigger()
				if busy {
					return req.Reply(ctx, "A cycle is running; another one is queued.", false)
				}
				return req.Reply(ctx, "Fetch cycle queued.", false)
			},
		},
	}
}

func formatStatus(st Status) string {
	sch := st.Scheduler
	lines := []tgui.H{
		tgui.B("📊 Status ") + tgui.Code(st.Date),
		"",
		tgui.Esc(fmt.Sprintf("Subscribers: %d (%d eligible today)", st.Subscribers, st.Eligible)),
		tgui.Esc(fmt.Sprintf("Archive: %d notices, %d today", st.Archived, st.ArchivedToday)),
		"",
		tgui.B("Scheduler"),
		tgui.Esc(fmt.Sprintf("state: %s, schedule: %s", sch.State, sch.Schedule)),
		tgui.Esc(fmt.Sprintf("runs: %d, failures: %d", sch.Runs, sch.Failures)),
	}
	if !sch.LastStart.IsZero() {
		lines = append(lines, tgui.Esc(fmt.Sprintf("last: %s (%s)", sch.LastStart.Format(time.DateTime), sch.LastTook.Round(time.Millisecond))))
	}
	if !sch.Next.IsZero() {
		lines = append(lines, tgui.Esc("next: "+sch.Next.Format(time.DateTime)))
	}
	if sch.LastErr != "" {
		lines = append(lines, tgui.Esc("last error: "+tgui.TruncRunes(sch.LastErr, 300)))
	}
	if b := st.LastBroadcast; b != nil {
		lines = append(lines, "", tgui.B("Last broadcast"),
			tgui.Esc(fmt.Sprintf("%d/%d sent, %d failed", b.Done, b.Total, b.Failed)))
		if !b.DoneAt.IsZero() {
			lines = append(lines, tgui.Esc("finished: "+b.DoneAt.Format(time.DateTime)))
		}
	}
	return tgui.JoinLines(lines).String()
}
