package notifier

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"hwbot/internal/errkind"
	"hwbot/internal/eventbus"
	"hwbot/internal/transport"
	telegram "hwbot/internal/transport/telegram/adapter"
	logx "hwbot/pkg/logx"
)

type recordingSender struct {
	mu    sync.Mutex
	texts []string
	to    []transport.ChatTarget
	err   error
	block bool
}

func (r *recordingSender) SendText(ctx context.Context, to transport.ChatTarget, text string, _ *transport.SendOptions) (transport.MessageRef, error) {
	if r.block {
		<-ctx.Done()
		return transport.MessageRef{}, ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return transport.MessageRef{}, r.err
	}
	r.texts = append(r.texts, text)
	r.to = append(r.to, to)
	return transport.MessageRef{ChatID: to.ChatID, MessageID: len(r.texts)}, nil
}

func (r *recordingSender) sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

var target = transport.ChatTarget{ChatID: 777}

func TestSendDelivers(t *testing.T) {
	t.Parallel()
	rs := &recordingSender{}
	bus := eventbus.New()
	events, unsub := bus.Subscribe(4)
	defer unsub()

	s := New(Config{Target: target, RatePerSec: 100}, rs, logx.Nop(), bus)
	if err := s.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if got := rs.sent(); len(got) != 1 || got[0] != "hello" {
		t.Fatalf("sent = %q", got)
	}
	if rs.to[0] != target {
		t.Fatalf("target = %+v, want %+v", rs.to[0], target)
	}
	if h := s.Snapshot(); len(h) != 1 || h[0].Text != "hello" {
		t.Fatalf("history = %+v", h)
	}
	select {
	case e := <-events:
		if e.Type != eventbus.NotifierSent {
			t.Fatalf("event = %q, want %q", e.Type, eventbus.NotifierSent)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestSendFailureWrapsDeliveryFailed(t *testing.T) {
	t.Parallel()
	boom := errors.New("telegram: Bad Request: chat not found (400)")
	rs := &recordingSender{err: boom}
	bus := eventbus.New()
	events, unsub := bus.Subscribe(4)
	defer unsub()

	s := New(Config{Target: target, RatePerSec: 100}, rs, logx.Nop(), bus)
	err := s.Send(context.Background(), "hello")
	if !errors.Is(err, errkind.ErrNotificationDeliveryFailed) {
		t.Fatalf("err = %v, want ErrNotificationDeliveryFailed", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped transport error", err)
	}
	if len(s.Snapshot()) != 0 {
		t.Fatal("failed send recorded in history")
	}
	if e := <-events; e.Type != eventbus.NotifierFailed {
		t.Fatalf("event = %q, want %q", e.Type, eventbus.NotifierFailed)
	}
}

func TestSendEmptyTextIsNoop(t *testing.T) {
	t.Parallel()
	rs := &recordingSender{}
	s := New(Config{Target: target}, rs, logx.Nop(), nil)
	if err := s.Send(context.Background(), "  \n"); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if len(rs.sent()) != 0 {
		t.Fatal("empty text was sent")
	}
}

func TestSendWithoutSenderOrTargetFails(t *testing.T) {
	t.Parallel()
	if err := New(Config{Target: target}, nil, logx.Nop(), nil).Send(context.Background(), "x"); !errors.Is(err, errkind.ErrNotificationDeliveryFailed) {
		t.Fatalf("nil sender: err = %v", err)
	}
	if err := New(Config{}, &recordingSender{}, logx.Nop(), nil).Send(context.Background(), "x"); !errors.Is(err, errkind.ErrNotificationDeliveryFailed) {
		t.Fatalf("empty target: err = %v", err)
	}
}

func TestSendTimeoutBounded(t *testing.T) {
	t.Parallel()
	s := New(Config{Target: target, SendTimeout: 30 * time.Millisecond}, &recordingSender{block: true}, logx.Nop(), nil)
	start := time.Now()
	err := s.Send(context.Background(), "x")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if took := time.Since(start); took > 2*time.Second {
		t.Fatalf("Send took %v", took)
	}
}

func TestSendTimeoutBoundsSlowBotAPI(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		http.Error(w, `{"ok":false,"error_code":500,"description":"late"}`, http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	ad, err := telegram.New(telegram.Config{Token: "123:abc", APIURL: srv.URL, Offline: true}, logx.Nop())
	if err != nil {
		t.Fatalf("telegram.New error: %v", err)
	}
	s := New(Config{Target: target, SendTimeout: 200 * time.Millisecond}, ad, logx.Nop(), nil)

	start := time.Now()
	err = s.Send(context.Background(), "x")
	if !errors.Is(err, errkind.ErrNotificationDeliveryFailed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want delivery failure caused by the send timeout", err)
	}
	if took := time.Since(start); took > 2*time.Second {
		t.Fatalf("Send took %v with a 200ms send timeout", took)
	}
}

func TestSendRecoversSenderPanic(t *testing.T) {
	t.Parallel()
	panicky := transport.SenderFunc(func(context.Context, transport.ChatTarget, string, *transport.SendOptions) (transport.MessageRef, error) {
		panic("boom")
	})
	err := New(Config{Target: target}, panicky, logx.Nop(), nil).Send(context.Background(), "x")
	if !errors.Is(err, errkind.ErrNotificationDeliveryFailed) {
		t.Fatalf("err = %v, want ErrNotificationDeliveryFailed", err)
	}
}

func TestSendHonorsCanceledContext(t *testing.T) {
	t.Parallel()
	rs := &recordingSender{}
	s := New(Config{Target: target, RatePerSec: 1}, rs, logx.Nop(), nil)
	// Drain the single burst token.
	if err := s.Send(context.Background(), "first"); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Send(ctx, "second"); err == nil {
		t.Fatal("expected error for canceled context")
	}
	if got := rs.sent(); len(got) != 1 {
		t.Fatalf("sent = %q, want only the first message", got)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	t.Parallel()
	s := New(Config{Target: target, RatePerSec: 10000}, &recordingSender{}, logx.Nop(), nil)
	for i := 0; i < historyLimit+5; i++ {
		if err := s.Send(context.Background(), "m"); err != nil {
			t.Fatalf("Send error: %v", err)
		}
	}
	if n := len(s.Snapshot()); n != historyLimit {
		t.Fatalf("history len = %d, want %d", n, historyLimit)
	}
}

func TestApplyKeepsTarget(t *testing.T) {
	t.Parallel()
	s := New(Config{Target: target}, &recordingSender{}, logx.Nop(), nil)
	s.Apply(Config{Target: transport.ChatTarget{ChatID: 1}, RatePerSec: 5})
	if s.Target() != target {
		t.Fatalf("Target = %+v, want %+v", s.Target(), target)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.RatePerSec != 5 || s.cfg.SendTimeout != DefaultSendTimeout {
		t.Fatalf("cfg = %+v", s.cfg)
	}
}
