// Package analysis simulates the deferred log-analysis pipeline: a
// one-shot timer per ticket that writes a canned analysis record.
package analysis

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cerebro-io/cerebro/internal/store"
	"github.com/cerebro-io/cerebro/pkg/helpdesk"
)

// Notifier pushes invalidation events to connected subscribers.
type Notifier interface {
	TicketUpdated(ticketID string)
}

const (
	// DefaultDelay is the simulated analysis time after ticket creation.
	DefaultDelay = 2 * time.Second
	// DefaultRerunDelay is the simulated time for a technician-triggered run.
	DefaultRerunDelay = 1500 * time.Millisecond
)

// Simulator owns the outstanding analysis timers. Jobs are fire-and-forget
// from the caller's point of view, but cancellable as a group via Close so
// shutdown never races a write against a closed store, and awaitable via
// Wait so tests don't sleep.
type Simulator struct {
	store      store.Store
	notify     Notifier
	logger     *slog.Logger
	delay      time.Duration
	rerunDelay time.Duration

	mu     sync.Mutex
	closed bool
	timers map[string]*time.Timer
	wg     sync.WaitGroup
}

// NewSimulator creates a Simulator. Zero delays select the defaults;
// notify may be nil.
func NewSimulator(st store.Store, notify Notifier, delay, rerunDelay time.Duration, logger *slog.Logger) *Simulator {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if rerunDelay <= 0 {
		rerunDelay = DefaultRerunDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		store:      st,
		notify:     notify,
		logger:     logger,
		delay:      delay,
		rerunDelay: rerunDelay,
		timers:     make(map[string]*time.Timer),
	}
}

// Schedule queues the post-creation analysis for a ticket: after the delay
// the canned record for its application is written and the ticket moves to
// log_analysis. Unknown applications get the Finance App record.
func (s *Simulator) Schedule(ticketID, application string) {
	record := analysisFor(ticketAnalyses, application, "Finance App")
	s.add(ticketID, s.delay, func() {
		s.write(ticketID, record)
		if _, err := s.store.UpdateTicketStatus(ticketID, helpdesk.StatusLogAnalysis); err != nil {
			s.logger.Error("analysis status update failed", "ticket", ticketID, "error", err)
		}
		s.ticketUpdated(ticketID)
	})
}

// Rerun queues a technician-triggered analysis. The caller is responsible
// for the immediate status flip; the deferred part only writes the record.
func (s *Simulator) Rerun(ticketID, application string) {
	record := analysisFor(manualAnalyses, application, "Inventory App")
	s.add(ticketID, s.rerunDelay, func() {
		s.write(ticketID, record)
		s.ticketUpdated(ticketID)
	})
}

func (s *Simulator) add(ticketID string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if old, ok := s.timers[ticketID]; ok && old.Stop() {
		s.wg.Done()
	}
	s.wg.Add(1)
	s.timers[ticketID] = time.AfterFunc(delay, func() {
		defer s.wg.Done()
		s.mu.Lock()
		delete(s.timers, ticketID)
		s.mu.Unlock()
		fn()
	})
	s.logger.Debug("analysis scheduled", "ticket", ticketID, "delay", delay)
}

func (s *Simulator) write(ticketID string, record helpdesk.LogAnalysis) {
	record.TicketID = ticketID
	if err := s.store.CreateLogAnalysis(&record); err != nil {
		s.logger.Error("analysis write failed", "ticket", ticketID, "error", err)
		return
	}
	s.logger.Info("analysis completed", "ticket", ticketID, "pattern", record.ErrorPattern)
}

func (s *Simulator) ticketUpdated(ticketID string) {
	if s.notify != nil {
		s.notify.TicketUpdated(ticketID)
	}
}

// Wait blocks until every scheduled job has fired or been cancelled.
func (s *Simulator) Wait() {
	s.wg.Wait()
}

// Close cancels all outstanding timers. Jobs scheduled afterwards are
// dropped.
func (s *Simulator) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, t := range s.timers {
		if t.Stop() {
			s.wg.Done()
		}
		delete(s.timers, id)
	}
}
