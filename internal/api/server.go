// Package api exposes the helpdesk over REST plus a WebSocket push channel.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cerebro-io/cerebro/internal/engine"
	"github.com/cerebro-io/cerebro/internal/logbuf"
	"github.com/cerebro-io/cerebro/internal/store"
	"github.com/cerebro-io/cerebro/pkg/helpdesk"
)

// Chat identity stamped on tickets opened through the chat widget.
const (
	demoUserID   = "demo-user"
	demoUserName = "Demo User"
)

const maxUploadBytes = 10 << 20

// Dialogue is what the server needs from the conversation engine.
type Dialogue interface {
	ProcessMessage(conversationID, text string, file *engine.Attachment) (string, error)
	KBSuggestions(conversationID string) *engine.KBSuggestion
	CreateTicketIfNeeded(conversationID, userID, userName string) (*helpdesk.Ticket, error)
}

// AnalysisRunner re-runs log analysis for a ticket on the technician's
// request.
type AnalysisRunner interface {
	Rerun(ticketID, application string)
}

// Notifier pushes invalidation events to connected clients.
type Notifier interface {
	TicketUpdated(ticketID string)
	MessageUpdated(conversationID string)
}

// LogTailer serves recent log entries. Satisfied by logbuf.Buffer.
type LogTailer interface {
	Tail(minLevel slog.Level, limit int) []logbuf.Entry
}

// Config holds API server configuration.
type Config struct {
	Host string
	Port int
}

// Server is the cerebrod REST API server.
type Server struct {
	store    store.Store
	dialogue Dialogue
	runner   AnalysisRunner
	notify   Notifier
	logs     LogTailer
	logger   *slog.Logger
	srv      *http.Server
}

// NewServer wires the handlers. ws handles GET /ws; logs may be nil.
func NewServer(st store.Store, dialogue Dialogue, runner AnalysisRunner, notify Notifier, ws http.Handler, logs LogTailer, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:    st,
		dialogue: dialogue,
		runner:   runner,
		notify:   notify,
		logs:     logs,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/messages/{conversationId}", s.handleGetMessages)
	mux.HandleFunc("POST /api/send-message", s.handleSendMessage)
	mux.HandleFunc("GET /api/kb-suggestions/{conversationId}", s.handleKBSuggestions)
	mux.HandleFunc("POST /api/mark-helpful", s.handleMarkHelpful)
	mux.HandleFunc("GET /api/conversation-ticket/{conversationId}", s.handleConversationTicket)
	mux.HandleFunc("GET /api/tickets", s.handleListTickets)
	mux.HandleFunc("GET /api/tickets/{id}", s.handleGetTicket)
	mux.HandleFunc("GET /api/ticket-messages/{ticketId}", s.handleTicketMessages)
	mux.HandleFunc("GET /api/ticket-analysis/{ticketId}", s.handleTicketAnalysis)
	mux.HandleFunc("POST /api/tickets/{ticketId}/message", s.handleTechnicianMessage)
	mux.HandleFunc("PATCH /api/tickets/{id}/status", s.handleUpdateStatus)
	mux.HandleFunc("POST /api/tickets/{id}/run-analysis", s.handleRunAnalysis)
	mux.HandleFunc("POST /api/tickets/{id}/apply-fix", s.handleApplyFix)
	mux.HandleFunc("POST /api/tickets/{id}/request-info", s.handleRequestInfo)
	mux.HandleFunc("GET /api/kb/search", s.handleKBSearch)
	mux.HandleFunc("POST /api/tickets/similar", s.handleSimilarTickets)
	mux.HandleFunc("GET /api/download-converted-file", s.handleDownloadConvertedFile)
	mux.HandleFunc("GET /api/logs", s.handleGetLogs)
	if ws != nil {
		mux.Handle("GET /ws", ws)
	}

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening. Blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Chat handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := s.store.Messages(r.PathValue("conversationId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(messages))
}

type sendMessageRequest struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	conversationID, content, file, err := parseSendMessage(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if conversationID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing conversationId"})
		return
	}
	if content == "" && file != nil {
		content = "Uploaded file: " + file.Filename
	}
	if content == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing content or file"})
		return
	}

	if err := s.store.CreateMessage(&helpdesk.Message{
		ConversationID: conversationID,
		Role:           helpdesk.RoleUser,
		Content:        content,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	reply, err := s.dialogue.ProcessMessage(conversationID, content, file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if reply != "" {
		if err := s.store.CreateMessage(&helpdesk.Message{
			ConversationID: conversationID,
			Role:           helpdesk.RoleCerebro,
			Content:        reply,
		}); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	ticket, err := s.dialogue.CreateTicketIfNeeded(conversationID, demoUserID, demoUserName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if ticket != nil {
		if err := s.store.CreateMessage(&helpdesk.Message{
			ConversationID: conversationID,
			TicketID:       ticket.ID,
			Role:           helpdesk.RoleSystem,
			Content:        fmt.Sprintf("Ticket #%d created - Status: %s", ticket.TicketNumber, ticket.Status.Display()),
		}); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.notify.TicketUpdated(ticket.ID)
	}

	s.notify.MessageUpdated(conversationID)

	messages, err := s.store.Messages(conversationID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "messages": nonNil(messages)})
}

// parseSendMessage accepts both JSON bodies and multipart forms (the chat
// widget switches to multipart when a file is attached).
func parseSendMessage(r *http.Request) (conversationID, content string, file *engine.Attachment, err error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return "", "", nil, fmt.Errorf("api: parse multipart form: %w", err)
		}
		conversationID = r.FormValue("conversationId")
		content = r.FormValue("content")
		if f, header, ferr := r.FormFile("file"); ferr == nil {
			f.Close()
			file = &engine.Attachment{Filename: header.Filename, Size: header.Size}
		}
		return conversationID, content, file, nil
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", "", nil, fmt.Errorf("api: decode send-message body: %w", err)
	}
	return req.ConversationID, req.Content, nil, nil
}

func (s *Server) handleKBSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestion := s.dialogue.KBSuggestions(r.PathValue("conversationId"))
	if suggestion == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

type markHelpfulRequest struct {
	ConversationID string `json:"conversationId"`
	ArticleID      string `json:"articleId"`
}

func (s *Server) handleMarkHelpful(w http.ResponseWriter, r *http.Request) {
	var req markHelpfulRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.ConversationID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing conversationId"})
		return
	}

	if err := s.store.CreateMessage(&helpdesk.Message{
		ConversationID: req.ConversationID,
		Role:           helpdesk.RoleSystem,
		Content:        "Issue resolved! Closing this interaction.",
	}); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	ticket, err := s.store.TicketByConversation(req.ConversationID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if ticket != nil {
		if _, err := s.store.UpdateTicketStatus(ticket.ID, helpdesk.StatusResolved); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.notify.TicketUpdated(ticket.ID)
	}

	s.notify.MessageUpdated(req.ConversationID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleConversationTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := s.store.TicketByConversation(r.PathValue("conversationId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket) // null when absent
}

// --- Ticket handlers ---

func (s *Server) handleListTickets(w http.ResponseWriter, _ *http.Request) {
	tickets, err := s.store.ListTickets()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tickets))
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := s.store.GetTicket(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Ticket not found"})
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (s *Server) handleTicketMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := s.store.TicketMessages(r.PathValue("ticketId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(messages))
}

func (s *Server) handleTicketAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.store.LogAnalysisByTicket(r.PathValue("ticketId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis) // null when absent
}

type technicianMessageRequest struct {
	Content        string `json:"content"`
	TechnicianName string `json:"technicianName"`
}

func (s *Server) handleTechnicianMessage(w http.ResponseWriter, r *http.Request) {
	ticketID := r.PathValue("ticketId")

	var req technicianMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if _, err := s.store.GetTicket(ticketID); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Ticket not found"})
		return
	}

	conversationID, err := s.store.ConversationIDByTicket(ticketID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if conversationID != "" {
		name := req.TechnicianName
		if name == "" {
			name = "IT Support"
		}
		if err := s.store.CreateMessage(&helpdesk.Message{
			ConversationID: conversationID,
			TicketID:       ticketID,
			Role:           helpdesk.RoleTechnician,
			Content:        fmt.Sprintf("**%s:** %s", name, req.Content),
		}); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.notify.MessageUpdated(conversationID)
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type updateStatusRequest struct {
	Status helpdesk.TicketStatus `json:"status"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	ticket, err := s.store.UpdateTicketStatus(id, req.Status)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Ticket not found"})
		return
	}

	s.notify.TicketUpdated(id)
	writeJSON(w, http.StatusOK, ticket)
}

func (s *Server) handleRunAnalysis(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	ticket, err := s.store.GetTicket(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Ticket not found"})
		return
	}

	if _, err := s.store.UpdateTicketStatus(id, helpdesk.StatusLogAnalysis); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.runner.Rerun(id, ticket.Application)

	s.notify.TicketUpdated(id)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Log analysis started"})
}

func (s *Server) handleApplyFix(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if _, err := s.store.GetTicket(id); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Ticket not found"})
		return
	}

	if _, err := s.store.UpdateTicketStatus(id, helpdesk.StatusFixApplied); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.notify.TicketUpdated(id)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Fix applied"})
}

type requestInfoRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleRequestInfo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req requestInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if _, err := s.store.GetTicket(id); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Ticket not found"})
		return
	}

	conversationID, err := s.store.ConversationIDByTicket(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if conversationID == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Conversation not found for ticket"})
		return
	}

	if err := s.store.CreateMessage(&helpdesk.Message{
		ConversationID: conversationID,
		TicketID:       id,
		Role:           helpdesk.RoleTechnician,
		Content:        req.Message,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if _, err := s.store.UpdateTicketStatus(id, helpdesk.StatusInProgress); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.notify.TicketUpdated(id)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Request sent to user"})
}

// --- Knowledge base ---

func (s *Server) handleKBSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	app := r.URL.Query().Get("app")

	articles, err := s.store.SearchKB(q, app)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(articles))
}

type similarTicketsRequest struct {
	Description string `json:"description"`
}

func (s *Server) handleSimilarTickets(w http.ResponseWriter, r *http.Request) {
	var req similarTicketsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	similar, err := s.store.FindSimilarTickets(req.Description)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(similar))
}

// Fixture served to complete the CSV conversion story in the data-import
// flow.
const convertedCSV = `Name,Email,Department,Start Date
John Doe,john.doe@example.com,Engineering,2025-01-15
Jane Smith,jane.smith@example.com,Marketing,2025-02-01
Bob Johnson,bob.johnson@example.com,Sales,2025-02-10`

func (s *Server) handleDownloadConvertedFile(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="converted_utf8.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(convertedCSV))
}

// --- Logs ---

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		writeJSON(w, http.StatusOK, []logbuf.Entry{})
		return
	}

	limit := 200
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	minLevel := slog.LevelDebug
	if lvl := r.URL.Query().Get("level"); lvl != "" {
		minLevel = logbuf.ParseLevel(strings.ToUpper(lvl))
	}

	entries := s.logs.Tail(minLevel, limit)
	if entries == nil {
		entries = []logbuf.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// nonNil keeps list responses as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
