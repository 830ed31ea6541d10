package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

func TestSplitTelegramTextShortPassesThrough(t *testing.T) {
	t.Parallel()
	got := splitTelegramText("hello", 10)
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("split = %q", got)
	}
}

func TestSplitTelegramTextPrefersNewlines(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("a", 6) + "\n" + strings.Repeat("b", 6)
	got := splitTelegramText(text, 10)
	if len(got) != 2 || got[0] != strings.Repeat("a", 6) || got[1] != strings.Repeat("b", 6) {
		t.Fatalf("split = %q", got)
	}
}

func TestSplitTelegramTextCountsRunes(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("ж", 25)
	got := splitTelegramText(text, 10)
	if len(got) != 3 {
		t.Fatalf("chunks = %d, want 3", len(got))
	}
	for _, c := range got {
		if n := len([]rune(c)); n > 10 {
			t.Fatalf("chunk has %d runes, limit 10", n)
		}
	}
	if strings.Join(got, "") != text {
		t.Fatal("chunks do not reassemble to the original text")
	}
}

func TestSplitTelegramTextDropsNewlineRuns(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("a", 10) + "\n\n\n" + "bbb"
	got := splitTelegramText(text, 10)
	if len(got) != 2 || got[0] != strings.Repeat("a", 10) || got[1] != "bbb" {
		t.Fatalf("split = %q", got)
	}
}

type fakeBotAPI struct {
	mu    sync.Mutex
	calls []map[string]any
	fail  bool
}

func (f *fakeBotAPI) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			t.Errorf("unexpected Bot API call %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		b, _ := io.ReadAll(r.Body)
		var params map[string]any
		_ = json.Unmarshal(b, &params)
		f.mu.Lock()
		f.calls = append(f.calls, params)
		n := len(f.calls)
		fail := f.fail
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if fail {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": map[string]any{
				"message_id": 100 + n,
				"date":       0,
				"chat":       map[string]any{"id": 42, "type": "private"},
				"text":       params["text"],
			},
		})
	})
}

func newTestAdapter(t *testing.T, api *fakeBotAPI) *Adapter {
	t.Helper()
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	a, err := New(Config{Token: "123:abc", APIURL: srv.URL, Offline: true}, logx.Nop())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return a
}

func TestSendTextDeliversToChat(t *testing.T) {
	t.Parallel()
	api := &fakeBotAPI{}
	a := newTestAdapter(t, api)

	ref, err := a.SendText(context.Background(), transport.ChatTarget{ChatID: 42}, "Изменился статус", nil)
	if err != nil {
		t.Fatalf("SendText error: %v", err)
	}
	if ref.ChatID != 42 || ref.MessageID != 101 {
		t.Fatalf("ref = %+v", ref)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(api.calls))
	}
	if api.calls[0]["text"] != "Изменился статус" {
		t.Fatalf("text = %v", api.calls[0]["text"])
	}
	if api.calls[0]["chat_id"] != "42" {
		t.Fatalf("chat_id = %v, want \"42\"", api.calls[0]["chat_id"])
	}
}

func TestSendTextSplitsLongMessages(t *testing.T) {
	t.Parallel()
	api := &fakeBotAPI{}
	a := newTestAdapter(t, api)

	text := strings.Repeat("x", telegramTextLimit+10)
	ref, err := a.SendText(context.Background(), transport.ChatTarget{ChatID: 42}, text, nil)
	if err != nil {
		t.Fatalf("SendText error: %v", err)
	}
	if ref.MessageID != 101 {
		t.Fatalf("ref points at message %d, want first chunk 101", ref.MessageID)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(api.calls))
	}
}

func TestSendTextReportsAPIErrors(t *testing.T) {
	t.Parallel()
	api := &fakeBotAPI{fail: true}
	a := newTestAdapter(t, api)

	if _, err := a.SendText(context.Background(), transport.ChatTarget{ChatID: 42}, "hi", nil); err == nil {
		t.Fatal("expected error from failing Bot API")
	}
}

func TestSendTextRejectsEmptyTarget(t *testing.T) {
	t.Parallel()
	api := &fakeBotAPI{}
	a := newTestAdapter(t, api)
	if _, err := a.SendText(context.Background(), transport.ChatTarget{}, "hi", nil); err == nil {
		t.Fatal("expected error for empty chat id")
	}
}

func TestSendTextHonorsContextDeadline(t *testing.T) {
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

	a, err := New(Config{Token: "123:abc", APIURL: srv.URL, Offline: true}, logx.Nop())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = a.SendText(ctx, transport.ChatTarget{ChatID: 42}, "hi", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if took := time.Since(start); took > 2*time.Second {
		t.Fatalf("SendText took %v with a 100ms deadline", took)
	}
}

func TestNewRejectsEmptyToken(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{Token: "  ", Offline: true}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty token")
	}
}
