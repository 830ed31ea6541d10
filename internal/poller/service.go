package poller

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hwbot/internal/errkind"
	"hwbot/internal/eventbus"
	"hwbot/internal/homework"
	logx "hwbot/pkg/logx"
)

// Service owns the cursor and the table of delivered statuses.
//
// Run and RunOnce must not be called concurrently; Snapshot, Apply and
// SetTranslator are safe from any goroutine.
type Service struct {
	fetcher  Fetcher
	notifier Notifier
	log      logx.Logger
	bus      eventbus.Bus
	now      func() time.Time

	mu         sync.Mutex
	cfg        Config
	translator Translator
	cursor     int64
	seen       map[string]string
	lastDiag   string
	stats      Snapshot
	reschedule chan struct{}
}

func New(cfg Config, fetcher Fetcher, translator Translator, notifier Notifier, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		fetcher:    fetcher,
		translator: translator,
		notifier:   notifier,
		log:        log,
		bus:        bus,
		now:        time.Now,
		seen:       map[string]string{},
		reschedule: make(chan struct{}, 1),
	}
	s.cfg = normalize(cfg)
	s.cursor = cfg.InitialCursor
	if s.cursor <= 0 {
		s.cursor = s.now().Add(-cfg.Lookback).Unix()
	}
	s.stats.Cursor = s.cursor
	return s
}

func normalize(cfg Config) Config {
	if cfg.FailureFormat == "" {
		cfg.FailureFormat = DefaultFailureFormat
	}
	if cfg.Lookback < 0 {
		cfg.Lookback = 0
	}
	return cfg
}

// Apply swaps the schedule, suppression and failure format. The cursor is
// kept. A pending wait is recomputed with the new schedule.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.cfg = normalize(cfg)
	s.mu.Unlock()
	select {
	case s.reschedule <- struct{}{}:
	default:
	}
}

// SetTranslator replaces the translator used by later iterations.
func (s *Service) SetTranslator(tr Translator) {
	if tr == nil {
		return
	}
	s.mu.Lock()
	s.translator = tr
	s.mu.Unlock()
}

func (s *Service) Cursor() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.stats
	snap.Cursor = s.cursor
	snap.Tracked = len(s.seen)
	return snap
}

// Run executes iterations until ctx is canceled. It returns nil on
// cancellation and never returns because an iteration failed.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info("poll loop started", logx.Int64("cursor", s.Cursor()), logx.String("interval", s.schedule().String()))
	defer s.log.Info("poll loop stopped")
	for {
		s.RunOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if !s.wait(ctx) {
			return nil
		}
	}
}

func (s *Service) schedule() Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Schedule
}

// wait blocks until the next tick. It reports false when ctx ended first.
func (s *Service) wait(ctx context.Context) bool {
	finished := s.now()
	for {
		next := s.schedule().Next(finished)
		s.mu.Lock()
		s.stats.NextRunAt = next
		s.mu.Unlock()

		d := next.Sub(s.now())
		if d < 0 {
			d = 0
		}
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-s.reschedule:
			t.Stop()
			s.log.Debug("schedule changed, recomputing next run")
		case <-t.C:
			return true
		}
	}
}

// RunOnce executes a single iteration and reports what happened. Failures
// are logged and reported through the notifier before RunOnce returns.
func (s *Service) RunOnce(ctx context.Context) Result {
	start := s.now()
	s.mu.Lock()
	res := Result{RunID: uuid.NewString(), From: s.cursor, Cursor: s.cursor}
	cfg := s.cfg
	tr := s.translator
	s.mu.Unlock()
	log := s.log.With(logx.String("run_id", res.RunID))

	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("iteration panicked", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
				res.Outcome = OutcomeFailed
				res.Err = fmt.Errorf("iteration panicked: %v", r)
			}
		}()
		s.iterate(ctx, log, tr, &res)
	}()

	if res.Outcome == OutcomeFailed && ctx.Err() != nil {
		res.Outcome = OutcomeCanceled
	}
	if res.Outcome == OutcomeFailed {
		s.report(ctx, log, cfg, &res)
	}
	res.Took = s.now().Sub(start)
	s.record(start, &res)
	return res
}

func (s *Service) iterate(ctx context.Context, log logx.Logger, tr Translator, res *Result) {
	fetchedAt := s.now()
	body, err := s.fetcher.Fetch(ctx, res.From)
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return
	}

	raw, err := homework.CheckResponse(body)
	if errors.Is(err, errkind.ErrNoUpdates) {
		log.Debug("no updates", logx.Int64("from_date", res.From))
		res.Outcome = OutcomeNoUpdates
		return
	}
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return
	}
	res.Items = len(raw)

	if tr == nil {
		res.Outcome, res.Err = OutcomeFailed, errors.New("no status translator configured")
		return
	}

	var translateErrs []error
	incomplete := false
	for i, r := range raw {
		item, text, err := tr.Translate(r)
		if err != nil {
			translateErrs = append(translateErrs, fmt.Errorf("item %d: %w", i, err))
			continue
		}
		if s.delivered(item) {
			res.Skipped++
			log.Debug("status already delivered", logx.String("homework", item.Name), logx.String("status", item.Status))
			s.publish(eventbus.PollSkippedDuplicate, item)
			continue
		}
		if err := s.notifier.Send(ctx, text); err != nil {
			incomplete = true
			log.Warn("status change not delivered", logx.String("homework", item.Name), logx.Err(err))
			continue
		}
		s.markDelivered(item)
		res.Sent = append(res.Sent, text)
		log.Info("status change delivered", logx.String("homework", item.Name), logx.String("status", item.Status))
	}

	switch {
	case len(translateErrs) > 0:
		res.Outcome, res.Err = OutcomeFailed, errors.Join(translateErrs...)
	case incomplete:
		res.Outcome = OutcomeIncomplete
	default:
		next, ok := homework.CurrentDate(body)
		if !ok {
			next = fetchedAt.Unix()
		}
		s.mu.Lock()
		s.cursor = next
		s.mu.Unlock()
		res.Cursor = next
		res.Outcome = OutcomeOK
	}
}

func (s *Service) delivered(item homework.Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.seen[item.Name]
	return ok && status == item.Status
}

func (s *Service) markDelivered(item homework.Item) {
	s.mu.Lock()
	s.seen[item.Name] = item.Status
	s.mu.Unlock()
}

// report logs a failed iteration and sends the diagnostic. A diagnostic that
// cannot be delivered is only logged.
func (s *Service) report(ctx context.Context, log logx.Logger, cfg Config, res *Result) {
	log.Error("iteration failed",
		logx.String("kind", string(errkind.Classify(res.Err))),
		logx.Int64("from_date", res.From),
		logx.Err(res.Err),
	)
	if !errkind.UserVisible(res.Err) {
		return
	}
	text := fmt.Sprintf(cfg.FailureFormat, oneLine(res.Err.Error()))

	s.mu.Lock()
	repeated := text == s.lastDiag
	s.lastDiag = text
	s.mu.Unlock()
	if repeated && cfg.SuppressRepeatedErrors {
		log.Debug("diagnostic suppressed, same as previous")
		return
	}

	res.Diagnostic = true
	if err := s.notifier.Send(ctx, text); err != nil {
		log.Warn("diagnostic not delivered", logx.Err(err))
	}
}

func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", "; ")
}

func (s *Service) record(start time.Time, res *Result) {
	s.mu.Lock()
	st := &s.stats
	st.Iterations++
	st.LastRunAt = start
	st.LastOutcome = res.Outcome.String()
	st.Delivered += uint64(len(res.Sent))
	st.Skipped += uint64(res.Skipped)
	switch res.Outcome {
	case OutcomeOK, OutcomeNoUpdates:
		st.ConsecutiveFailures = 0
		st.LastError = ""
		st.LastSuccessAt = start
		s.lastDiag = ""
	case OutcomeFailed:
		st.Failures++
		st.ConsecutiveFailures++
		st.LastError = res.Err.Error()
	}
	s.mu.Unlock()

	switch res.Outcome {
	case OutcomeOK:
		s.publish(eventbus.PollOK, *res)
	case OutcomeNoUpdates:
		s.publish(eventbus.PollNoUpdates, *res)
	case OutcomeFailed, OutcomeIncomplete:
		s.publish(eventbus.PollFailed, *res)
	}
}

func (s *Service) publish(typ string, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: data})
}
