// Package scheduler owns the lifecycle of per-monitor check loops. An
// explicit registry keyed by monitor id replaces any ambient global
// state, so Start/Stop/StopAll compose and tear down cleanly.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sentinelwatch/internal/ledger"
	"sentinelwatch/internal/model"
	"sentinelwatch/internal/payment"
	"sentinelwatch/internal/summarizer"
)

// Fetcher runs one paid price check; satisfied by payment.Client.
type Fetcher interface {
	FetchPaid(ctx context.Context, monitor *model.Monitor, signer payment.Signer) (model.PriceQuote, model.Activity, error)
}

// Options tune the per-monitor loops.
type Options struct {
	Interval       time.Duration
	SummarizeEvery int
	SummaryWindow  int
	AutoPauseAfter int
	DrainTimeout   time.Duration
}

// Scheduler starts, stops, and drives monitor check loops.
type Scheduler struct {
	opts       Options
	fetcher    Fetcher
	signer     payment.Signer
	activities ledger.ActivityLedger
	monitors   ledger.MonitorStore
	summaries  summarizer.Summarizer
	logger     zerolog.Logger

	mu      sync.Mutex
	running map[string]*loop
	wg      sync.WaitGroup
}

// loop is the registry entry for one running monitor.
type loop struct {
	monitorID string
	cancel    context.CancelFunc
	kick      chan struct{}

	// touched only from the loop goroutine
	ticks      int
	failStreak int
}

// New constructs a scheduler. summaries may be nil.
func New(opts Options, fetcher Fetcher, signer payment.Signer, activities ledger.ActivityLedger, monitors ledger.MonitorStore, summaries summarizer.Summarizer, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.SummarizeEvery <= 0 {
		opts.SummarizeEvery = 3
	}
	if opts.SummaryWindow <= 0 {
		opts.SummaryWindow = 12
	}
	if opts.AutoPauseAfter <= 0 {
		opts.AutoPauseAfter = 3
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = 10 * time.Second
	}
	return &Scheduler{
		opts:       opts,
		fetcher:    fetcher,
		signer:     signer,
		activities: activities,
		monitors:   monitors,
		summaries:  summaries,
		logger:     logger.With().Str("component", "scheduler").Logger(),
		running:    make(map[string]*loop),
	}
}

// Start begins the check loop for a monitor: one tick immediately,
// then one per interval until stopped. Starting a monitor that is
// already running is a no-op.
func (s *Scheduler) Start(monitor *model.Monitor) {
	s.mu.Lock()
	if _, exists := s.running[monitor.ID]; exists {
		s.mu.Unlock()
		s.logger.Debug().Str("monitor_id", monitor.ID).Msg("start ignored; already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	entry := &loop{
		monitorID: monitor.ID,
		cancel:    cancel,
		kick:      make(chan struct{}, 1),
	}
	s.running[monitor.ID] = entry
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info().Str("monitor_id", monitor.ID).Dur("interval", s.opts.Interval).Msg("monitor started")
	go s.run(ctx, entry)
}

// Stop cancels future ticks for a monitor. An in-flight tick finishes;
// a payment mid-transfer is never interrupted.
func (s *Scheduler) Stop(monitorID string) {
	s.mu.Lock()
	entry, exists := s.running[monitorID]
	if exists {
		delete(s.running, monitorID)
	}
	s.mu.Unlock()

	if exists {
		entry.cancel()
		s.logger.Info().Str("monitor_id", monitorID).Msg("monitor stopped")
	}
}

// StopAll cancels every running loop and waits (bounded) for in-flight
// ticks to settle.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	entries := make([]*loop, 0, len(s.running))
	for id, entry := range s.running {
		entries = append(entries, entry)
		delete(s.running, id)
	}
	s.mu.Unlock()

	for _, entry := range entries {
		entry.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.opts.DrainTimeout):
		s.logger.Warn().Msg("drain timeout; in-flight ticks abandoned")
	}
	s.logger.Info().Int("stopped", len(entries)).Msg("all monitors stopped")
}

// RunNow requests an immediate tick. For a running monitor the tick is
// queued on its loop so it never interleaves with a scheduled one; for
// a stopped monitor the tick runs synchronously.
func (s *Scheduler) RunNow(ctx context.Context, monitorID string) error {
	s.mu.Lock()
	entry, running := s.running[monitorID]
	s.mu.Unlock()

	if running {
		select {
		case entry.kick <- struct{}{}:
		default:
			// a kick is already queued
		}
		return nil
	}

	monitor, err := s.monitors.Get(ctx, monitorID)
	if err != nil {
		return fmt.Errorf("run now: %w", err)
	}
	oneOff := &loop{monitorID: monitorID}
	s.tick(oneOff, monitor)
	return nil
}

// Running reports whether a loop exists for the monitor.
func (s *Scheduler) Running(monitorID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[monitorID]
	return ok
}

// RunningCount reports the registry size.
func (s *Scheduler) RunningCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

// run executes ticks inline on one goroutine, which guarantees at most
// one in-flight tick per monitor. The loop context only gates waiting;
// tick bodies run on their own timeouts so Stop never aborts a payment.
func (s *Scheduler) run(ctx context.Context, entry *loop) {
	defer s.wg.Done()

	if !s.execute(ctx, entry) {
		return
	}

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-entry.kick:
		}

		if !s.execute(ctx, entry) {
			return
		}
	}
}

// execute refreshes the monitor and runs one tick. It returns false
// when the loop should end.
func (s *Scheduler) execute(ctx context.Context, entry *loop) bool {
	if ctx.Err() != nil {
		return false
	}

	monitor, err := s.monitors.Get(context.Background(), entry.monitorID)
	if err != nil {
		if errors.Is(err, ledger.ErrMonitorNotFound) {
			s.logger.Info().Str("monitor_id", entry.monitorID).Msg("monitor deleted; loop ends")
			s.Stop(entry.monitorID)
			return false
		}
		s.logger.Error().Err(err).Str("monitor_id", entry.monitorID).Msg("monitor lookup failed; will retry next tick")
		return true
	}
	if !monitor.Active {
		s.logger.Info().Str("monitor_id", entry.monitorID).Msg("monitor paused; loop ends")
		s.Stop(entry.monitorID)
		return false
	}

	s.tick(entry, monitor)
	return true
}

// tick performs one check cycle. Every outcome, including a panic in
// the fetch path, lands in the ledger as an Activity; the loop itself
// never dies to a tick failure.
func (s *Scheduler) tick(entry *loop, monitor *model.Monitor) {
	defer func() {
		if r := recover(); r != nil {
			activity := model.NewActivity(monitor.ID, model.StatusFailed)
			activity.Error = fmt.Sprintf("tick panic: %v", r)
			s.append(activity)
			s.logger.Error().Str("monitor_id", monitor.ID).Interface("panic", r).Msg("tick panicked")
		}
	}()

	entry.ticks++

	_, activity, err := s.fetcher.FetchPaid(context.Background(), monitor, s.signer)
	s.append(activity)

	switch {
	case err == nil:
		entry.failStreak = 0
	case errors.Is(err, payment.ErrInsufficientFunds):
		entry.failStreak++
		s.logger.Warn().Str("monitor_id", monitor.ID).Int("streak", entry.failStreak).Msg("tick failed: insufficient funds")
		if entry.failStreak >= s.opts.AutoPauseAfter {
			s.autoPause(monitor.ID)
			return
		}
	default:
		s.logger.Warn().Err(err).Str("monitor_id", monitor.ID).Msg("tick failed")
	}

	if err == nil && s.summaries != nil && entry.ticks%s.opts.SummarizeEvery == 0 {
		s.summarize(monitor.ID)
	}
}

// autoPause deactivates a monitor after repeated funding failures so
// it does not burn retries against an empty wallet.
func (s *Scheduler) autoPause(monitorID string) {
	if err := s.monitors.SetActive(context.Background(), monitorID, false); err != nil {
		s.logger.Error().Err(err).Str("monitor_id", monitorID).Msg("auto-pause: deactivate failed")
	}
	s.Stop(monitorID)
	s.logger.Warn().Str("monitor_id", monitorID).Int("after", s.opts.AutoPauseAfter).Msg("monitor auto-paused after consecutive funding failures")
}

// summarize is best-effort; failures are logged and never block ticks.
func (s *Scheduler) summarize(monitorID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	samples, err := s.activities.RecentFor(ctx, monitorID, s.opts.SummaryWindow)
	if err != nil || len(samples) == 0 {
		return
	}

	summary, err := s.summaries.Analyze(ctx, samples)
	if err != nil {
		s.logger.Warn().Err(err).Str("monitor_id", monitorID).Msg("summarizer failed; ignored")
		return
	}
	s.logger.Info().
		Str("monitor_id", monitorID).
		Str("sentiment", summary.Sentiment).
		Float64("confidence", summary.Confidence).
		Msg("price window summarized")
}

func (s *Scheduler) append(activity model.Activity) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.activities.Append(ctx, activity); err != nil {
		s.logger.Error().Err(err).Str("monitor_id", activity.MonitorID).Msg("ledger append failed")
	}
}
