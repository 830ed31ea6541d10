// Package eventbus is the in-process fan-out used to observe poll and
// notification outcomes without coupling the emitters to their observers.
package eventbus

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Event types emitted by hwbot components.
const (
	PollOK                = "poll.ok"
	PollNoUpdates         = "poll.no_updates"
	PollFailed            = "poll.failed"
	PollSkippedDuplicate  = "poll.skipped_duplicate"
	NotifierSent          = "notifier.sent"
	NotifierFailed        = "notifier.failed"
	ConfigReloaded        = "config.reloaded"
	SupervisorTaskRestart = "supervisor.restart"
)

// Event is a small in-memory signal.
//
// Publish never blocks: subscribers get buffered channels and a slow
// subscriber drops events.
type Event struct {
	Type string
	Time time.Time
	Data any
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns an in-memory fan-out bus. It owns no goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

type memBus struct {
	mu      sync.RWMutex
	subs    map[uint64]chan Event
	seq     atomic.Uint64
	dropped atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	chs := make([]chan Event, 0, len(b.subs))
	for _, ch := range b.subs {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		// The channel may be closed by a concurrent unsubscribe.
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- e:
			default:
				b.dropped.Add(1)
			}
		}()
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

// Dropped reports how many deliveries were skipped because a subscriber was full.
func Dropped(b Bus) uint64 {
	if mb, ok := b.(*memBus); ok {
		return mb.dropped.Load()
	}
	return 0
}

// MatchPrefix reports whether the event type belongs to the dotted namespace
// prefix ("poll" matches "poll.ok" but not "poller.x").
func MatchPrefix(e Event, prefix string) bool {
	if prefix == "" {
		return true
	}
	return e.Type == prefix || strings.HasPrefix(e.Type, prefix+".")
}
