package store

import (
	"strings"
	"testing"

	"github.com/cerebro-io/cerebro/pkg/helpdesk"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSeedData(t *testing.T) {
	s := newTestStore(t)

	tickets, err := s.ListTickets()
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if len(tickets) != 4 {
		t.Fatalf("got %d seed tickets, want 4", len(tickets))
	}
	numbers := map[int]bool{}
	for _, tk := range tickets {
		numbers[tk.TicketNumber] = true
		if tk.Status != helpdesk.StatusResolved {
			t.Errorf("seed ticket #%d status = %q, want resolved", tk.TicketNumber, tk.Status)
		}
	}
	for n := 48201; n <= 48204; n++ {
		if !numbers[n] {
			t.Errorf("seed ticket #%d missing", n)
		}
	}

	articles, err := s.SearchKB("", "")
	if err != nil {
		t.Fatalf("SearchKB: %v", err)
	}
	if len(articles) != 7 {
		t.Fatalf("got %d seed KB articles, want 7", len(articles))
	}
}

func TestTicketNumbersIncreaseFrom48205(t *testing.T) {
	s := newTestStore(t)

	first := &helpdesk.Ticket{UserID: "u", UserName: "U", Application: "Sales App", Description: "a"}
	second := &helpdesk.Ticket{UserID: "u", UserName: "U", Application: "Sales App", Description: "b"}
	if err := s.CreateTicket(first); err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if err := s.CreateTicket(second); err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	if first.TicketNumber != 48205 {
		t.Errorf("first number = %d, want 48205", first.TicketNumber)
	}
	if second.TicketNumber != 48206 {
		t.Errorf("second number = %d, want 48206", second.TicketNumber)
	}
	if first.ID == "" || first.ID == second.ID {
		t.Errorf("ids = %q, %q", first.ID, second.ID)
	}
	if first.Status != helpdesk.StatusNew || first.Severity != helpdesk.SeverityMedium {
		t.Errorf("defaults = %q/%q", first.Status, first.Severity)
	}
}

func TestGetTicketMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetTicket("nope"); err == nil {
		t.Fatal("expected error for unknown ticket")
	}
}

func TestUpdateTicketStatus(t *testing.T) {
	s := newTestStore(t)
	tk := &helpdesk.Ticket{UserID: "u", UserName: "U", Application: "HR App", Description: "x"}
	s.CreateTicket(tk)

	updated, err := s.UpdateTicketStatus(tk.ID, helpdesk.StatusFixApplied)
	if err != nil {
		t.Fatalf("UpdateTicketStatus: %v", err)
	}
	if updated.Status != helpdesk.StatusFixApplied {
		t.Errorf("status = %q", updated.Status)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) && !updated.UpdatedAt.Equal(updated.CreatedAt) {
		t.Errorf("updatedAt %v before createdAt %v", updated.UpdatedAt, updated.CreatedAt)
	}

	if _, err := s.UpdateTicketStatus("nope", helpdesk.StatusNew); err == nil {
		t.Error("expected error for unknown ticket")
	}
}

func TestSearchKB(t *testing.T) {
	s := newTestStore(t)

	// Empty query with an application filter matches that app's articles.
	articles, err := s.SearchKB("", "Sales App")
	if err != nil {
		t.Fatalf("SearchKB: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("got %d Sales App articles, want 1", len(articles))
	}
	if !strings.Contains(articles[0].Title, "Error 1203") {
		t.Errorf("title = %q", articles[0].Title)
	}

	// Query matches case-insensitively across title, problem and cause.
	articles, err = s.SearchKB("TIMEOUT", "")
	if err != nil {
		t.Fatalf("SearchKB: %v", err)
	}
	if len(articles) == 0 {
		t.Error("expected timeout matches")
	}
	for _, a := range articles {
		joined := strings.ToLower(a.Title + " " + a.Problem + " " + a.Cause)
		if !strings.Contains(joined, "timeout") {
			t.Errorf("article %q does not mention timeout", a.Title)
		}
	}

	// Unknown application matches nothing.
	articles, _ = s.SearchKB("", "Nope App")
	if len(articles) != 0 {
		t.Errorf("got %d articles for unknown app", len(articles))
	}
}

func TestGetKBArticle(t *testing.T) {
	s := newTestStore(t)
	articles, _ := s.SearchKB("", "HR App")
	if len(articles) != 1 {
		t.Fatalf("got %d HR articles, want 1", len(articles))
	}

	got, err := s.GetKBArticle(articles[0].ID)
	if err != nil {
		t.Fatalf("GetKBArticle: %v", err)
	}
	if got.Title != articles[0].Title {
		t.Errorf("title = %q, want %q", got.Title, articles[0].Title)
	}
	if len(got.Steps) == 0 {
		t.Error("steps not restored")
	}
}

func TestFindSimilarTickets(t *testing.T) {
	s := newTestStore(t)

	similar, err := s.FindSimilarTickets("payroll summary not loading")
	if err != nil {
		t.Fatalf("FindSimilarTickets: %v", err)
	}
	if len(similar) != 3 {
		t.Fatalf("got %d similar tickets, want 3", len(similar))
	}
	for _, tk := range similar {
		if tk.Application != "Payroll App" {
			t.Errorf("unexpected application %q", tk.Application)
		}
	}
	// Insertion order: the oldest matching seed first.
	if similar[0].TicketNumber != 48202 {
		t.Errorf("first match = #%d, want #48202", similar[0].TicketNumber)
	}

	// Short words are ignored entirely.
	similar, _ = s.FindSimilarTickets("it is on")
	if len(similar) != 0 {
		t.Errorf("got %d matches for short words", len(similar))
	}
}

func TestMessagesInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	conv := "conv-1"

	for _, content := range []string{"first", "second", "third"} {
		if err := s.CreateMessage(&helpdesk.Message{
			ConversationID: conv,
			Role:           helpdesk.RoleUser,
			Content:        content,
		}); err != nil {
			t.Fatalf("CreateMessage: %v", err)
		}
	}

	msgs, err := s.Messages(conv)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for i, want := range []string{"first", "second", "third"} {
		if msgs[i].Content != want {
			t.Errorf("msgs[%d] = %q, want %q", i, msgs[i].Content, want)
		}
		if msgs[i].ID == "" || msgs[i].Timestamp.IsZero() {
			t.Errorf("msgs[%d] missing id or timestamp", i)
		}
	}

	// Other conversations stay empty.
	other, _ := s.Messages("conv-2")
	if len(other) != 0 {
		t.Errorf("got %d messages for other conversation", len(other))
	}
}

func TestTicketMessages(t *testing.T) {
	s := newTestStore(t)
	tk := &helpdesk.Ticket{UserID: "u", UserName: "U", Application: "HR App", Description: "x"}
	s.CreateTicket(tk)

	s.CreateMessage(&helpdesk.Message{ConversationID: "c", Role: helpdesk.RoleUser, Content: "free floating"})
	s.CreateMessage(&helpdesk.Message{ConversationID: "c", TicketID: tk.ID, Role: helpdesk.RoleTechnician, Content: "on ticket"})

	msgs, err := s.TicketMessages(tk.ID)
	if err != nil {
		t.Fatalf("TicketMessages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "on ticket" {
		t.Errorf("msgs = %v", msgs)
	}
}

func TestConversationTicketLink(t *testing.T) {
	s := newTestStore(t)
	tk := &helpdesk.Ticket{UserID: "u", UserName: "U", Application: "Finance App", Description: "x"}
	s.CreateTicket(tk)

	// No link yet.
	got, err := s.TicketByConversation("conv-x")
	if err != nil || got != nil {
		t.Fatalf("unlinked lookup = %+v, err = %v", got, err)
	}
	convID, err := s.ConversationIDByTicket(tk.ID)
	if err != nil || convID != "" {
		t.Fatalf("reverse lookup = %q, err = %v", convID, err)
	}

	if err := s.LinkConversationToTicket("conv-x", tk.ID); err != nil {
		t.Fatalf("Link: %v", err)
	}

	got, err = s.TicketByConversation("conv-x")
	if err != nil || got == nil || got.ID != tk.ID {
		t.Fatalf("linked lookup = %+v, err = %v", got, err)
	}
	convID, err = s.ConversationIDByTicket(tk.ID)
	if err != nil || convID != "conv-x" {
		t.Fatalf("reverse lookup = %q, err = %v", convID, err)
	}
}

func TestLogAnalysisRoundTrip(t *testing.T) {
	s := newTestStore(t)
	tk := &helpdesk.Ticket{UserID: "u", UserName: "U", Application: "Inventory App", Description: "x"}
	s.CreateTicket(tk)

	// Absent analysis reads as nil without error.
	got, err := s.LogAnalysisByTicket(tk.ID)
	if err != nil || got != nil {
		t.Fatalf("empty lookup = %+v, err = %v", got, err)
	}

	rec := &helpdesk.LogAnalysis{
		TicketID:     tk.ID,
		ErrorPattern: "SESSION_TIMEOUT on Android clients",
		RootCause:    "Session timeout misconfiguration",
		SuggestedFix: "Raise the mobile session timeout",
		LogExcerpt:   "WARN auth-service: Session expired",
	}
	if err := s.CreateLogAnalysis(rec); err != nil {
		t.Fatalf("CreateLogAnalysis: %v", err)
	}
	if rec.ID == "" || rec.CreatedAt.IsZero() {
		t.Errorf("record not stamped: %+v", rec)
	}

	got, err = s.LogAnalysisByTicket(tk.ID)
	if err != nil {
		t.Fatalf("LogAnalysisByTicket: %v", err)
	}
	if got == nil || got.ErrorPattern != rec.ErrorPattern {
		t.Errorf("got = %+v", got)
	}
}
