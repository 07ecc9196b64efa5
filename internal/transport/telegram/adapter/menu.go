package adapter

import (
	"context"
	"hash/fnv"

	tele "gopkg.in/telebot.v4"

	kit "noticebot/internal/transport"
	logx "noticebot/pkg/logx"
)

const (
	menuMax     = 100
	menuDescMax = 256
)

// menuList converts cmds to telebot commands within Telegram's limits and
// returns a hash of the result.
func menuList(cmds []kit.BotCommand) ([]tele.Command, uint64) {
	h := fnv.New64a()
	list := make([]tele.Command, 0, min(len(cmds), menuMax))
	for _, c := range cmds {
		if c.Command == "" {
			continue
		}
		if len(list) == menuMax {
			break
		}
		desc := c.Description
		if desc == "" {
			desc = c.Command
		}
		if r := []rune(desc); len(r) > menuDescMax {
			desc = string(r[:menuDescMax])
		}
		list = append(list, tele.Command{Text: c.Command, Description: desc})
		_, _ = h.Write([]byte(c.Command + "\x00" + desc + "\x00"))
	}
	return list, h.Sum64()
}

// UpdateMenuCommands replaces the bot's command menu. An unchanged list is
// not resent.
func (a *Adapter) UpdateMenuCommands(ctx context.Context, cmds []kit.BotCommand) error {
	list, sum := menuList(cmds)

	a.menuMu.Lock()
	defer a.menuMu.Unlock()
	if sum == a.menuHash {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.bot.SetCommands(list); err != nil {
		return err
	}
	a.menuHash = sum
	a.log.Info("menu commands updated", logx.Int("count", len(list)))
	return nil
}
