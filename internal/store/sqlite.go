package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cerebro-io/cerebro/pkg/helpdesk"
)

// Demo tickets consume numbers 48201-48204; the first live ticket is 48205.
const ticketCounterSeed = 48200

// SQLiteStore implements Store on an in-memory SQLite database. Nothing
// survives a restart; rowid order doubles as insertion order, which the
// similar-ticket and message queries rely on.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	counter int
}

// New opens an in-memory database, runs migrations and loads the seed
// KB articles and demo tickets.
func New() (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	// A second connection would see a different empty in-memory database.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, counter: ticketCounterSeed}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.seed(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE tickets (
			id            TEXT PRIMARY KEY,
			ticket_number INTEGER NOT NULL UNIQUE,
			user_id       TEXT NOT NULL,
			user_name     TEXT NOT NULL,
			application   TEXT NOT NULL,
			description   TEXT NOT NULL,
			error_code    TEXT NOT NULL DEFAULT '',
			status        TEXT NOT NULL DEFAULT 'new',
			severity      TEXT NOT NULL DEFAULT 'medium',
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		);

		CREATE TABLE messages (
			id              TEXT PRIMARY KEY,
			ticket_id       TEXT NOT NULL DEFAULT '',
			conversation_id TEXT NOT NULL,
			role            TEXT NOT NULL,
			content         TEXT NOT NULL,
			timestamp       TEXT NOT NULL
		);

		CREATE TABLE kb_articles (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			application TEXT NOT NULL,
			problem     TEXT NOT NULL,
			cause       TEXT NOT NULL,
			solution    TEXT NOT NULL,
			steps       TEXT NOT NULL DEFAULT '[]'
		);

		CREATE TABLE log_analyses (
			id               TEXT PRIMARY KEY,
			ticket_id        TEXT NOT NULL,
			error_pattern    TEXT NOT NULL,
			root_cause       TEXT NOT NULL,
			suggested_fix    TEXT NOT NULL,
			log_excerpt      TEXT NOT NULL,
			correlated_event TEXT NOT NULL DEFAULT '',
			created_at       TEXT NOT NULL
		);

		CREATE TABLE conversation_tickets (
			conversation_id TEXT PRIMARY KEY,
			ticket_id       TEXT NOT NULL
		);

		CREATE INDEX idx_messages_conversation ON messages(conversation_id);
		CREATE INDEX idx_messages_ticket ON messages(ticket_id);
		CREATE INDEX idx_analyses_ticket ON log_analyses(ticket_id);
	`)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// --- Tickets ---

func (s *SQLiteStore) CreateTicket(t *helpdesk.Ticket) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = helpdesk.StatusNew
	}
	if t.Severity == "" {
		t.Severity = helpdesk.SeverityMedium
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	s.mu.Lock()
	s.counter++
	t.TicketNumber = s.counter
	s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO tickets (id, ticket_number, user_id, user_name, application, description, error_code, status, severity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.TicketNumber, t.UserID, t.UserName, t.Application, t.Description,
		t.ErrorCode, string(t.Status), string(t.Severity),
		t.CreatedAt.Format(time.RFC3339Nano), t.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: create ticket: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetTicket(id string) (*helpdesk.Ticket, error) {
	row := s.db.QueryRow(ticketColumns+` FROM tickets WHERE id = ?`, id)
	t, err := scanTicket(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("ticket %q not found", id)
		}
		return nil, fmt.Errorf("store: get ticket: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) ListTickets() ([]*helpdesk.Ticket, error) {
	rows, err := s.db.Query(ticketColumns + ` FROM tickets ORDER BY created_at DESC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: list tickets: %w", err)
	}
	defer rows.Close()
	return collectTickets(rows)
}

func (s *SQLiteStore) UpdateTicketStatus(id string, status helpdesk.TicketStatus) (*helpdesk.Ticket, error) {
	res, err := s.db.Exec(`UPDATE tickets SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().Format(time.RFC3339Nano), id)
	if err != nil {
		return nil, fmt.Errorf("store: update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("ticket %q not found", id)
	}
	return s.GetTicket(id)
}

func (s *SQLiteStore) TicketByConversation(conversationID string) (*helpdesk.Ticket, error) {
	var ticketID string
	err := s.db.QueryRow(`SELECT ticket_id FROM conversation_tickets WHERE conversation_id = ?`, conversationID).Scan(&ticketID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: ticket by conversation: %w", err)
	}
	return s.GetTicket(ticketID)
}

// --- Messages ---

func (s *SQLiteStore) CreateMessage(m *helpdesk.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO messages (id, ticket_id, conversation_id, role, content, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.TicketID, m.ConversationID, string(m.Role), m.Content, m.Timestamp.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: create message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Messages(conversationID string) ([]helpdesk.Message, error) {
	return s.queryMessages(`conversation_id = ?`, conversationID)
}

func (s *SQLiteStore) TicketMessages(ticketID string) ([]helpdesk.Message, error) {
	return s.queryMessages(`ticket_id = ?`, ticketID)
}

func (s *SQLiteStore) queryMessages(where string, arg any) ([]helpdesk.Message, error) {
	rows, err := s.db.Query(`SELECT id, ticket_id, conversation_id, role, content, timestamp FROM messages WHERE `+where+` ORDER BY rowid ASC`, arg)
	if err != nil {
		return nil, fmt.Errorf("store: messages: %w", err)
	}
	defer rows.Close()

	msgs := []helpdesk.Message{}
	for rows.Next() {
		var m helpdesk.Message
		var role, ts string
		if err := rows.Scan(&m.ID, &m.TicketID, &m.ConversationID, &role, &m.Content, &ts); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		m.Role = helpdesk.MessageRole(role)
		m.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// --- KB articles ---

// SearchKB matches query as a case-insensitive substring of title, problem
// or cause. An empty query matches every article, which is how callers look
// up "the article for this application".
func (s *SQLiteStore) SearchKB(query, application string) ([]helpdesk.KBArticle, error) {
	rows, err := s.db.Query(`SELECT id, title, application, problem, cause, solution, steps FROM kb_articles ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: search kb: %w", err)
	}
	defer rows.Close()

	lowerQuery := strings.ToLower(query)
	articles := []helpdesk.KBArticle{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan article: %w", err)
		}
		matchesQuery := strings.Contains(strings.ToLower(a.Title), lowerQuery) ||
			strings.Contains(strings.ToLower(a.Problem), lowerQuery) ||
			strings.Contains(strings.ToLower(a.Cause), lowerQuery)
		matchesApp := application == "" || a.Application == application
		if matchesQuery && matchesApp {
			articles = append(articles, a)
		}
	}
	return articles, rows.Err()
}

func (s *SQLiteStore) GetKBArticle(id string) (*helpdesk.KBArticle, error) {
	row := s.db.QueryRow(`SELECT id, title, application, problem, cause, solution, steps FROM kb_articles WHERE id = ?`, id)
	a, err := scanArticle(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("kb article %q not found", id)
		}
		return nil, fmt.Errorf("store: get article: %w", err)
	}
	return &a, nil
}

func (s *SQLiteStore) insertArticle(a *helpdesk.KBArticle) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	steps, _ := json.Marshal(a.Steps)
	_, err := s.db.Exec(`
		INSERT INTO kb_articles (id, title, application, problem, cause, solution, steps)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Title, a.Application, a.Problem, a.Cause, a.Solution, string(steps))
	if err != nil {
		return fmt.Errorf("store: insert article: %w", err)
	}
	return nil
}

// --- Log analyses ---

func (s *SQLiteStore) CreateLogAnalysis(a *helpdesk.LogAnalysis) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now()
	_, err := s.db.Exec(`
		INSERT INTO log_analyses (id, ticket_id, error_pattern, root_cause, suggested_fix, log_excerpt, correlated_event, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.TicketID, a.ErrorPattern, a.RootCause, a.SuggestedFix, a.LogExcerpt,
		a.CorrelatedEvent, a.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: create analysis: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LogAnalysisByTicket(ticketID string) (*helpdesk.LogAnalysis, error) {
	row := s.db.QueryRow(`SELECT id, ticket_id, error_pattern, root_cause, suggested_fix, log_excerpt, correlated_event, created_at FROM log_analyses WHERE ticket_id = ? ORDER BY rowid ASC LIMIT 1`, ticketID)

	var a helpdesk.LogAnalysis
	var ts string
	err := row.Scan(&a.ID, &a.TicketID, &a.ErrorPattern, &a.RootCause, &a.SuggestedFix,
		&a.LogExcerpt, &a.CorrelatedEvent, &ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: analysis by ticket: %w", err)
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	return &a, nil
}

// --- Similar tickets ---

// FindSimilarTickets splits the description into words longer than three
// characters and returns up to three tickets whose description contains any
// of them, in insertion order. No relevance ranking.
func (s *SQLiteStore) FindSimilarTickets(description string) ([]*helpdesk.Ticket, error) {
	var keywords []string
	for _, word := range strings.Split(strings.ToLower(description), " ") {
		if len(word) > 3 {
			keywords = append(keywords, word)
		}
	}

	rows, err := s.db.Query(ticketColumns + ` FROM tickets ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: similar tickets: %w", err)
	}
	defer rows.Close()

	all, err := collectTickets(rows)
	if err != nil {
		return nil, err
	}

	matches := []*helpdesk.Ticket{}
	for _, t := range all {
		desc := strings.ToLower(t.Description)
		for _, kw := range keywords {
			if strings.Contains(desc, kw) {
				matches = append(matches, t)
				break
			}
		}
		if len(matches) == 3 {
			break
		}
	}
	return matches, nil
}

// --- Conversation link ---

func (s *SQLiteStore) LinkConversationToTicket(conversationID, ticketID string) error {
	_, err := s.db.Exec(`
		INSERT INTO conversation_tickets (conversation_id, ticket_id) VALUES (?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET ticket_id = excluded.ticket_id
	`, conversationID, ticketID)
	if err != nil {
		return fmt.Errorf("store: link conversation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ConversationIDByTicket(ticketID string) (string, error) {
	var conversationID string
	err := s.db.QueryRow(`SELECT conversation_id FROM conversation_tickets WHERE ticket_id = ?`, ticketID).Scan(&conversationID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: conversation by ticket: %w", err)
	}
	return conversationID, nil
}

// Close releases the database. All data is gone afterwards.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection (for testing).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// --- helpers ---

const ticketColumns = `SELECT id, ticket_number, user_id, user_name, application, description, error_code, status, severity, created_at, updated_at`

type scannable interface {
	Scan(dest ...any) error
}

func scanTicket(row scannable) (*helpdesk.Ticket, error) {
	var t helpdesk.Ticket
	var status, severity, createdAt, updatedAt string
	err := row.Scan(&t.ID, &t.TicketNumber, &t.UserID, &t.UserName, &t.Application,
		&t.Description, &t.ErrorCode, &status, &severity, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.Status = helpdesk.TicketStatus(status)
	t.Severity = helpdesk.Severity(severity)
	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &t, nil
}

func collectTickets(rows *sql.Rows) ([]*helpdesk.Ticket, error) {
	tickets := []*helpdesk.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func scanArticle(row scannable) (helpdesk.KBArticle, error) {
	var a helpdesk.KBArticle
	var steps string
	err := row.Scan(&a.ID, &a.Title, &a.Application, &a.Problem, &a.Cause, &a.Solution, &steps)
	if err != nil {
		return a, err
	}
	json.Unmarshal([]byte(steps), &a.Steps)
	return a, nil
}
