package notifier

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"hwbot/internal/errkind"
	"hwbot/internal/eventbus"
	"hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

// Service sends notifications through a transport.Sender.
//
// It is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log    logx.Logger
	sender transport.Sender
	bus    eventbus.Bus

	cfg     Config
	limiter *rate.Limiter

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, sender transport.Sender, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		sender: sender,
		log:    log,
		bus:    bus,
	}
	s.applyLocked(cfg)
	return s
}

// Apply swaps rate and timeout settings. The target chat is kept.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	cfg.Target = s.cfg.Target
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = DefaultRatePerSec
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	burst := int(cfg.RatePerSec)
	if burst < 1 {
		burst = 1
	}
	if s.limiter == nil || s.cfg.RatePerSec != cfg.RatePerSec {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	s.cfg = cfg
}

// Target returns the chat notifications are delivered to.
func (s *Service) Target() transport.ChatTarget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Target
}

// Send delivers text to the configured chat. The returned error wraps
// errkind.ErrNotificationDeliveryFailed and has already been logged.
func (s *Service) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	cfg := s.cfg
	lim := s.limiter
	sender := s.sender
	s.mu.Unlock()

	err := s.deliver(ctx, cfg, lim, sender, text)
	now := time.Now()
	ev := NotificationEvent{ChatID: cfg.Target.ChatID, ThreadID: cfg.Target.ThreadID, Runes: utf8.RuneCountInString(text), At: now}
	if err != nil {
		s.log.Error("notification delivery failed",
			logx.Int64("chat_id", cfg.Target.ChatID),
			logx.Err(err),
		)
		ev.Error = err.Error()
		s.publish(eventbus.NotifierFailed, ev)
		return errkind.Wrap(errkind.ErrNotificationDeliveryFailed, "notify", "send message", err)
	}

	s.appendHistory(now, text)
	s.log.Debug("notification sent", logx.Int64("chat_id", cfg.Target.ChatID), logx.Int("runes", ev.Runes))
	s.publish(eventbus.NotifierSent, ev)
	return nil
}

func (s *Service) deliver(ctx context.Context, cfg Config, lim *rate.Limiter, sender transport.Sender, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panicked: %v", r)
		}
	}()
	if sender == nil {
		return errNoSender
	}
	if cfg.Target.IsZero() {
		return errNoTarget
	}
	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
	}
	callCtx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
	defer cancel()
	_, err = sender.SendText(callCtx, cfg.Target, text, &transport.SendOptions{
		DisablePreview: cfg.DisablePreview,
		Silent:         cfg.Silent,
	})
	return err
}

func (s *Service) publish(typ string, ev NotificationEvent) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Time: ev.At, Data: ev})
}

// Snapshot returns the delivered notifications, oldest first.
func (s *Service) Snapshot() []HistoryItem {
	s.hmu.Lock()
	out := append([]HistoryItem(nil), s.history...)
	s.hmu.Unlock()
	return out
}

func (s *Service) appendHistory(at time.Time, text string) {
	s.hmu.Lock()
	s.history = append(s.history, HistoryItem{At: at, Text: text})
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
	s.hmu.Unlock()
}
