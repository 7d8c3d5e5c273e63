package analysis

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cerebro-io/cerebro/internal/store"
	"github.com/cerebro-io/cerebro/pkg/helpdesk"
)

type recordingNotifier struct {
	mu      sync.Mutex
	tickets []string
}

func (n *recordingNotifier) TicketUpdated(id string) {
	n.mu.Lock()
	n.tickets = append(n.tickets, id)
	n.mu.Unlock()
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.tickets)
}

func newSim(t *testing.T) (*Simulator, *store.SQLiteStore, *recordingNotifier) {
	t.Helper()
	st, err := store.New()
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	notify := &recordingNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sim := NewSimulator(st, notify, 10*time.Millisecond, 5*time.Millisecond, logger)
	t.Cleanup(sim.Close)
	return sim, st, notify
}

func createTicket(t *testing.T, st *store.SQLiteStore, app string) *helpdesk.Ticket {
	t.Helper()
	tk := &helpdesk.Ticket{UserID: "u", UserName: "U", Application: app, Description: "broken"}
	if err := st.CreateTicket(tk); err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	return tk
}

func TestScheduleWritesAnalysisAndFlipsStatus(t *testing.T) {
	sim, st, notify := newSim(t)
	tk := createTicket(t, st, "Inventory App")

	sim.Schedule(tk.ID, tk.Application)
	sim.Wait()

	rec, err := st.LogAnalysisByTicket(tk.ID)
	if err != nil || rec == nil {
		t.Fatalf("analysis = %+v, err = %v", rec, err)
	}
	if rec.ErrorPattern == "" || rec.RootCause == "" {
		t.Errorf("incomplete record: %+v", rec)
	}

	got, _ := st.GetTicket(tk.ID)
	if got.Status != helpdesk.StatusLogAnalysis {
		t.Errorf("status = %q, want log_analysis", got.Status)
	}
	if notify.count() != 1 {
		t.Errorf("notifications = %d, want 1", notify.count())
	}
}

func TestScheduleUnknownApplicationFallsBack(t *testing.T) {
	sim, st, _ := newSim(t)
	tk := createTicket(t, st, "Mystery App")

	sim.Schedule(tk.ID, tk.Application)
	sim.Wait()

	rec, err := st.LogAnalysisByTicket(tk.ID)
	if err != nil || rec == nil {
		t.Fatalf("analysis = %+v, err = %v", rec, err)
	}
	// The creation path falls back to the Finance App incident.
	if rec.ErrorPattern != ticketAnalyses["Finance App"].ErrorPattern {
		t.Errorf("pattern = %q", rec.ErrorPattern)
	}
}

func TestRerunLeavesStatusToCaller(t *testing.T) {
	sim, st, notify := newSim(t)
	tk := createTicket(t, st, "Inventory App")

	sim.Rerun(tk.ID, tk.Application)
	sim.Wait()

	rec, err := st.LogAnalysisByTicket(tk.ID)
	if err != nil || rec == nil {
		t.Fatalf("analysis = %+v, err = %v", rec, err)
	}

	// Rerun writes the record and notifies; it does not touch status.
	got, _ := st.GetTicket(tk.ID)
	if got.Status != helpdesk.StatusNew {
		t.Errorf("status = %q, want new", got.Status)
	}
	if notify.count() != 1 {
		t.Errorf("notifications = %d, want 1", notify.count())
	}
}

func TestCloseCancelsPendingJobs(t *testing.T) {
	st, err := store.New()
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	notify := &recordingNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sim := NewSimulator(st, notify, time.Hour, time.Hour, logger)
	tk := createTicket(t, st, "Inventory App")

	sim.Schedule(tk.ID, tk.Application)
	sim.Close()
	sim.Wait()

	rec, _ := st.LogAnalysisByTicket(tk.ID)
	if rec != nil {
		t.Errorf("analysis written despite Close: %+v", rec)
	}

	// Scheduling after Close is a no-op.
	sim.Schedule(tk.ID, tk.Application)
	sim.Wait()
	if notify.count() != 0 {
		t.Errorf("notifications = %d, want 0", notify.count())
	}
}

func TestRescheduleReplacesTimer(t *testing.T) {
	sim, st, _ := newSim(t)
	tk := createTicket(t, st, "Inventory App")

	// The second Schedule for the same ticket supersedes the first.
	sim.Schedule(tk.ID, tk.Application)
	sim.Schedule(tk.ID, tk.Application)
	sim.Wait()

	rec, err := st.LogAnalysisByTicket(tk.ID)
	if err != nil || rec == nil {
		t.Fatalf("analysis = %+v, err = %v", rec, err)
	}
}
