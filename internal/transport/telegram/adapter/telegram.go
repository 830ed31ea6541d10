package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

type Config struct {
	Token string
	// APIURL overrides the Bot API base URL (tests, self-hosted Bot API servers).
	APIURL string
	// Timeout bounds a single Bot API HTTP call.
	Timeout time.Duration
	// Offline skips the getMe token check at construction time.
	Offline bool
}

// Adapter is a send-only Telegram transport built on telebot.
type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot
}

var _ transport.Sender = (*Adapter)(nil)

// New creates the bot client. Unless cfg.Offline is set, telebot calls getMe,
// so an invalid token fails here rather than on the first notification.
func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     strings.TrimSpace(cfg.APIURL),
		Token:   strings.TrimSpace(cfg.Token),
		Client:  &http.Client{Timeout: timeout},
		Offline: cfg.Offline,
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	a := &Adapter{cfg: cfg, log: log, bot: b}
	if b.Me != nil && b.Me.Username != "" {
		log.Info("telegram bot authorized", logx.String("username", b.Me.Username))
	}
	return a, nil
}

const telegramTextLimit = 4000

// splitTelegramText cuts s into chunks of at most limit runes, preferring
// to break after a newline in the last two thirds of a chunk.
func splitTelegramText(s string, limit int) []string {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	var out []string
	for len(rs) > 0 {
		cut := min(limit, len(rs))
		if cut < len(rs) {
			if i := lastNewline(rs[limit/3 : cut]); i >= 0 {
				cut = limit/3 + i + 1
			}
		}
		if chunk := strings.TrimRight(string(rs[:cut]), "\n"); chunk != "" {
			out = append(out, chunk)
		}
		rs = rs[cut:]
		for len(rs) > 0 && rs[0] == '\n' {
			rs = rs[1:]
		}
	}
	return out
}

func lastNewline(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == '\n' {
			return i
		}
	}
	return -1
}

// SendText sends text to the target chat, splitting it when it exceeds the
// Telegram message limit. The returned ref points at the first chunk.
func (a *Adapter) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	if opt == nil {
		opt = &transport.SendOptions{}
	}
	if to.IsZero() {
		return transport.MessageRef{}, errors.New("telegram: empty chat id")
	}

	chat := &tele.Chat{ID: to.ChatID}
	sendOpt := &tele.SendOptions{
		DisableWebPagePreview: opt.DisablePreview,
		DisableNotification:   opt.Silent,
		ThreadID:              to.ThreadID,
	}
	var first transport.MessageRef
	for i, chunk := range splitTelegramText(text, telegramTextLimit) {
		msg, err := a.send(ctx, chat, chunk, sendOpt)
		if err != nil {
			return first, err
		}
		if i == 0 {
			first = transport.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}
		}
	}
	return first, nil
}

// send bounds one Bot API call by ctx. telebot calls take no context, so an
// abandoned call finishes in the background, bounded by the client timeout.
func (a *Adapter) send(ctx context.Context, to tele.Recipient, text string, opt *tele.SendOptions) (*tele.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	type result struct {
		msg *tele.Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("telegram send panicked: %v", r)}
			}
		}()
		msg, err := a.bot.Send(to, text, opt)
		done <- result{msg: msg, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("telegram send: %w", ctx.Err())
	case r := <-done:
		return r.msg, r.err
	}
}

// Username returns the bot's username as reported by getMe (empty when offline).
func (a *Adapter) Username() string {
	if a.bot == nil || a.bot.Me == nil {
		return ""
	}
	return a.bot.Me.Username
}
