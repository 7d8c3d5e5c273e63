package engine

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/cerebro-io/cerebro/internal/store"
	"github.com/cerebro-io/cerebro/pkg/helpdesk"
)

// Analyzer schedules the deferred log-analysis run for a freshly created
// ticket. Implemented by the analysis simulator.
type Analyzer interface {
	Schedule(ticketID, application string)
}

// Attachment describes a file sent along with a chat message. Only the
// name matters to the scripts.
type Attachment struct {
	Filename string
	Size     int64
}

// KBSuggestion is the structured payload surfaced next to the chat when
// the engine has matched a knowledge-base article.
type KBSuggestion struct {
	Articles []helpdesk.KBArticle `json:"articles"`
}

// waitKBHelpful marks that the engine expects a yes/no on whether the
// surfaced KB article fixed the issue.
const waitKBHelpful = "kb_helpful"

// conversation is the engine's per-conversation state. Created lazily on
// first access and kept for the life of the process. The mutex makes each
// conversation a one-owner-at-a-time critical section; different
// conversations never contend.
type conversation struct {
	mu               sync.Mutex
	scenario         scenario
	application      string
	history          []string
	foundArticle     *helpdesk.KBArticle
	waitingFor       string
	willCreateTicket bool
	ticketCreated    bool
}

// Engine is the scripted dialogue engine. It classifies each inbound
// message against keyword rules, advances the active scenario's step
// sequence, and decides whether to surface a KB article or open a ticket.
type Engine struct {
	store    store.Store
	analyzer Analyzer
	logger   *slog.Logger

	mu            sync.Mutex
	conversations map[string]*conversation
}

// New creates an Engine. analyzer may be nil (no analysis is scheduled).
func New(st store.Store, analyzer Analyzer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:         st,
		analyzer:      analyzer,
		logger:        logger,
		conversations: make(map[string]*conversation),
	}
}

func (e *Engine) conversation(id string) *conversation {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.conversations[id]
	if !ok {
		c = &conversation{}
		e.conversations[id] = c
	}
	return c
}

// ProcessMessage runs one user message through the state machine and
// returns the reply text. An empty reply means a KB article payload should
// be surfaced instead (see KBSuggestions). Unrecognized input never errors;
// only storage failures propagate.
func (e *Engine) ProcessMessage(conversationID, text string, file *Attachment) (string, error) {
	c := e.conversation(conversationID)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history, text)
	lower := strings.ToLower(text)

	// Ticket status checks bypass scenario state entirely.
	if strings.Contains(lower, "check ticket") || strings.Contains(lower, "ticket status") {
		if num, ok := extractTicketNumber(text); ok {
			return e.ticketStatusReply(num)
		}
	}

	// "How do I ..." questions route to the guide flow.
	if strings.Contains(lower, "how do i") || strings.Contains(lower, "how to") {
		return e.startOnboarding(c)
	}

	// A file arriving while the import flow waits for one.
	if file != nil {
		if imp, ok := c.scenario.(*dataImport); ok && imp.expectingFile() {
			return e.handleImportFile(c, imp, file)
		}
	}

	if c.waitingFor != "" && isAffirmative(text) {
		return e.confirm(c), nil
	}

	if c.scenario == nil {
		return e.startScenario(c, lower)
	}

	return e.advance(c, text, lower)
}

// startScenario picks a scripted branch for a conversation that has none
// yet. Phrase rules only fire on the opening messages; afterwards only the
// generic application fallback applies.
func (e *Engine) startScenario(c *conversation, lower string) (string, error) {
	if len(c.history) <= 2 {
		if kind := classifyScenario(lower); kind != scenarioNone {
			return e.openScenario(c, kind), nil
		}
	}
	if app := detectApplication(lower); app != "" {
		c.application = app
		c.scenario = &genericIssue{}
		return fmt.Sprintf("Got it, %s. When did this start happening?", app), nil
	}
	return "Sure, I can help. Which application were you using when this happened?", nil
}

func (e *Engine) openScenario(c *conversation, kind scenarioKind) string {
	switch kind {
	case scenarioSalesReport:
		c.application = "Sales App"
		c.scenario = &salesReport{}
		return "Sorry to hear the daily sales report is failing. When did this start happening?"
	case scenarioPayrollSummary:
		c.application = "Payroll App"
		c.scenario = &payrollSummary{}
		return "Thanks for flagging that. When did you first notice the payroll summary not loading?"
	case scenarioInvoiceApproval:
		c.application = "Finance App"
		c.scenario = &invoiceApproval{}
		return "Understood. When did the invoice approval start failing?"
	case scenarioSessionLogout:
		c.application = "Inventory App"
		c.scenario = &sessionLogout{}
		return "That sounds frustrating. Which device are you using when you get logged out?"
	case scenarioDataImport:
		c.application = "Data Import"
		c.scenario = &dataImport{}
		return "I can help with that. Please attach the file you're trying to import."
	case scenarioDashboardEmpty:
		c.application = "Operations Dashboard"
		c.scenario = &dashboardEmpty{}
		return "Which dashboard are you looking at?"
	}
	return ""
}

// startOnboarding surfaces the Employee Import Guide for "how do I"
// questions.
func (e *Engine) startOnboarding(c *conversation) (string, error) {
	articles, err := e.store.SearchKB("", "HR App")
	if err != nil {
		return "", err
	}
	c.scenario = &onboarding{}
	if c.application == "" {
		c.application = "HR App"
	}
	if len(articles) > 0 {
		if c.foundArticle == nil {
			c.foundArticle = &articles[0]
			c.waitingFor = waitKBHelpful
		}
		return "Here's the step-by-step guide for that - see the article on the right. Let me know if it does the trick.", nil
	}
	c.willCreateTicket = true
	return "I couldn't find a guide for that, so I'll log a ticket for the team to follow up.", nil
}

// ticketStatusReply answers a "check ticket #N" request. Read-only.
func (e *Engine) ticketStatusReply(number string) (string, error) {
	tickets, err := e.store.ListTickets()
	if err != nil {
		return "", err
	}
	var ticket *helpdesk.Ticket
	for _, t := range tickets {
		if fmt.Sprint(t.TicketNumber) == number {
			ticket = t
			break
		}
	}
	if ticket == nil {
		return fmt.Sprintf("I couldn't find ticket #%s. Please check the ticket number.", number), nil
	}

	analysis, err := e.store.LogAnalysisByTicket(ticket.ID)
	if err != nil {
		return "", err
	}

	switch {
	case ticket.Status == helpdesk.StatusResolved:
		return fmt.Sprintf("Latest update on ticket #%s:\n- Fix Applied\n- Status: Resolved\n\nIs the issue fixed on your side?", number), nil
	case ticket.Status == helpdesk.StatusFixApplied && analysis != nil:
		return fmt.Sprintf("Latest update on ticket #%s:\n- Log Analysis Completed\n- Fix Applied\n- Root Cause: %s\n\nIs the issue fixed on your side?", number, analysis.RootCause), nil
	default:
		return fmt.Sprintf("Ticket #%s status: %s", number, ticket.Status.Display()), nil
	}
}

// confirm consumes a pending confirmation. The wait never re-triggers.
func (e *Engine) confirm(c *conversation) string {
	wait := c.waitingFor
	c.waitingFor = ""
	if wait == waitKBHelpful {
		return "Great! I'll close this interaction. Let me know if you need anything else."
	}
	return "Glad to hear it! Let me know if you need help with anything else."
}

// analyze resolves the current application against the knowledge base:
// either a KB article is surfaced (empty reply) or a ticket is promised.
func (e *Engine) analyze(c *conversation) (string, error) {
	if c.application == "" {
		return "Which application are you using?", nil
	}
	articles, err := e.store.SearchKB("", c.application)
	if err != nil {
		return "", err
	}
	if len(articles) > 0 {
		if c.foundArticle == nil {
			c.foundArticle = &articles[0]
			c.waitingFor = waitKBHelpful
		}
		return "", nil
	}
	c.willCreateTicket = true
	return "Thanks. I couldn't find a matching article in the knowledge base, so I'll log a ticket for investigation.", nil
}

// KBSuggestions returns the current candidate article for a conversation,
// or nil. Pure read, no state change.
func (e *Engine) KBSuggestions(conversationID string) *KBSuggestion {
	c := e.conversation(conversationID)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.foundArticle == nil {
		return nil
	}
	return &KBSuggestion{Articles: []helpdesk.KBArticle{*c.foundArticle}}
}

// CreateTicketIfNeeded opens a ticket when the state machine has decided
// one is warranted, at most once per conversation, and schedules the
// deferred log analysis. Returns (nil, nil) when no ticket is due.
func (e *Engine) CreateTicketIfNeeded(conversationID, userID, userName string) (*helpdesk.Ticket, error) {
	c := e.conversation(conversationID)
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.willCreateTicket || c.ticketCreated {
		return nil, nil
	}

	msgs, err := e.store.Messages(conversationID)
	if err != nil {
		return nil, err
	}
	var parts []string
	for _, m := range msgs {
		if m.Role == helpdesk.RoleUser {
			parts = append(parts, m.Content)
		}
	}
	description := strings.Join(parts, " ")
	if len(description) > 500 {
		description = description[:500]
	}

	application := c.application
	if application == "" {
		application = "Unknown"
	}
	t := &helpdesk.Ticket{
		UserID:      userID,
		UserName:    userName,
		Application: application,
		Description: description,
		Status:      helpdesk.StatusNew,
		Severity:    helpdesk.SeverityMedium,
	}
	if s, ok := c.scenario.(*invoiceApproval); ok {
		t.ErrorCode = s.errorCode
	}

	if err := e.store.CreateTicket(t); err != nil {
		return nil, err
	}
	if err := e.store.LinkConversationToTicket(conversationID, t.ID); err != nil {
		return nil, err
	}
	c.ticketCreated = true

	e.logger.Info("ticket created", "ticket", t.ID, "number", t.TicketNumber, "application", t.Application)
	if e.analyzer != nil {
		e.analyzer.Schedule(t.ID, t.Application)
	}
	return t, nil
}
