// Package router dispatches inbound Telegram commands to handlers on a bounded worker pool.
package router

import (
	"context"
	"runtime"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	rtsup "noticebot/internal/runtime/supervisor"
	kit "noticebot/internal/transport"
	logx "noticebot/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	AccessOwnerOnly
)

type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Access      Access
	// Hidden commands work but are left out of /help and the menu.
	Hidden  bool
	Timeout time.Duration
	Handle  HandlerFunc
}

type Request struct {
	Update       kit.Update
	Chat         kit.ChatTarget
	FromID       int64
	FromName     string
	FromUsername string
	Command      string
	Args         []string
	ReqID        string
	IsOwner      bool

	Sender kit.Sender
	Logger logx.Logger
}

// Reply sends plain or HTML text back to the chat the request came from.
func (r *Request) Reply(ctx context.Context, text string, html bool) error {
	opt := &kit.SendOptions{DisablePreview: true}
	if html {
		opt.ParseMode = "HTML"
	}
	_, err := r.Sender.SendText(ctx, r.Chat, text, opt)
	return err
}

type CommandManager struct {
	log     logx.Logger
	adapter kit.Sender

	mu     sync.RWMutex
	cmds   map[string]*Command
	order  []*Command
	owners []int64

	workers int
	jobs    chan func()
}

func NewCommandManager(log logx.Logger, adapter kit.Sender, owners []int64) *CommandManager {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &CommandManager{
		log:     log,
		adapter: adapter,
		cmds:    map[string]*Command{},
		owners:  slices.Clone(owners),
		workers: max(runtime.NumCPU(), 2),
		jobs:    make(chan func(), 256),
	}
}

// SetOwners replaces the ids allowed to run owner-only commands.
func (m *CommandManager) SetOwners(owners []int64) {
	cp := slices.Clone(owners)
	m.mu.Lock()
	m.owners = cp
	m.mu.Unlock()
}

func (m *CommandManager) isOwner(id int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Contains(m.owners, id)
}

// SetRegistry installs cmds plus the built-in /help and pushes the menu to
// adapters that support it. The menu update runs on sup when one is given.
func (m *CommandManager) SetRegistry(cmds []Command, sup *rtsup.Supervisor) {
	cmds = append(slices.Clone(cmds), Command{
		Name:        "help",
		Aliases:     []string{"h"},
		Description: "show available commands",
		Access:      AccessEveryone,
		Handle: func(ctx context.Context, req *Request) error {
			return req.Reply(ctx, m.helpText(req.IsOwner), true)
		},
	})

	byName := map[string]*Command{}
	order := make([]*Command, 0, len(cmds))
	for i := range cmds {
		c := &cmds[i]
		name := commandName(c.Name)
		if name == "" || c.Handle == nil {
			continue
		}
		c.Name = name
		byName[name] = c
		order = append(order, c)
		for _, a := range c.Aliases {
			if a = commandName(a); a != "" {
				if _, taken := byName[a]; !taken {
					byName[a] = c
				}
			}
		}
	}

	m.mu.Lock()
	m.cmds = byName
	m.order = order
	m.mu.Unlock()

	up, ok := m.adapter.(kit.CommandMenuUpdater)
	if !ok {
		return
	}
	menu := buildMenu(order)
	run := func(parent context.Context) {
		ctx, cancel := context.WithTimeout(parent, 5*time.Second)
		defer cancel()
		if err := up.UpdateMenuCommands(ctx, menu); err != nil {
			m.log.Warn("menu update failed", logx.Err(err))
		}
	}
	if sup != nil {
		sup.Go0("telegram.menu.update", run)
		return
	}
	go run(context.Background())
}

// DispatchLoop consumes updates until ctx is cancelled or updates is closed.
func (m *CommandManager) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	sup := rtsup.New(ctx, rtsup.WithLogger(m.log))
	m.log.Info("command dispatcher started", logx.Int("workers", m.workers), logx.Int("job_queue_cap", cap(m.jobs)))

	for i := 0; i < m.workers; i++ {
		idx := i
		sup.GoRestart("command.worker."+strconv.Itoa(idx), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job := <-m.jobs:
					m.runJob(idx, job)
				}
			}
		}, rtsup.WithRestartBackoff(200*time.Millisecond, 5*time.Second))
	}

	defer func() {
		sup.Cancel()
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		m.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			if up.Kind == kit.UpdateMessage && up.Message != nil {
				m.routeMessage(ctx, up)
			}
		}
	}
}

func (m *CommandManager) runJob(worker int, job func()) {
	if job == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("panic in command job", logx.Int("worker", worker), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()
	job()
}

func (m *CommandManager) routeMessage(ctx context.Context, up kit.Update) {
	msg := up.Message
	word, args, ok := parseCommand(msg.Text)
	if !ok {
		return
	}
	chat := kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}

	m.mu.RLock()
	cmd := m.cmds[word]
	m.mu.RUnlock()
	if cmd == nil {
		_, _ = m.adapter.SendText(ctx, chat, "Unknown command. Try /help", nil)
		return
	}

	owner := m.isOwner(msg.FromID)
	if cmd.Access == AccessOwnerOnly && !owner {
		_, _ = m.adapter.SendText(ctx, chat, "unauthorized", nil)
		return
	}

	rid := newReqID()
	req := &Request{
		Update:       up,
		Chat:         chat,
		FromID:       msg.FromID,
		FromName:     msg.FromName,
		FromUsername: msg.FromUsername,
		Command:      cmd.Name,
		Args:         args,
		ReqID:        rid,
		IsOwner:      owner,
		Sender:       m.adapter,
		Logger: m.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", msg.ChatID),
			logx.Int64("from_id", msg.FromID),
			logx.String("cmd", cmd.Name),
		),
	}

	final := Chain(cmd.Handle,
		MWPanicRecover(m.log),
		MWRequestLog(m.log),
		MWTimeout(cmd.Timeout),
	)
	if !m.tryEnqueue(func() { _ = final(ctx, req) }) {
		_, _ = m.adapter.SendText(ctx, chat, "busy, try again", nil)
	}
}

func (m *CommandManager) tryEnqueue(fn func()) bool {
	select {
	case m.jobs <- fn:
		return true
	default:
		return false
	}
}

// parseCommand extracts the command word (lowercased, without any @botname)
// and the whitespace-separated arguments. Non-command text reports false.
func parseCommand(text string) (string, []string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	word := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	word = strings.ToLower(word)
	if word == "" {
		return "", nil, false
	}
	return word, fields[1:], true
}
