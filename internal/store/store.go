package store

import "github.com/cerebro-io/cerebro/pkg/helpdesk"

// Store is the repository for tickets, messages, KB articles and log
// analyses. Lookups that can legitimately come up empty (ticket for a
// conversation, analysis for a ticket) return (nil, nil) rather than an
// error; GetTicket on an unknown ID is an error.
type Store interface {
	// Tickets
	CreateTicket(t *helpdesk.Ticket) error
	GetTicket(id string) (*helpdesk.Ticket, error)
	ListTickets() ([]*helpdesk.Ticket, error)
	UpdateTicketStatus(id string, status helpdesk.TicketStatus) (*helpdesk.Ticket, error)
	TicketByConversation(conversationID string) (*helpdesk.Ticket, error)

	// Messages
	CreateMessage(m *helpdesk.Message) error
	Messages(conversationID string) ([]helpdesk.Message, error)
	TicketMessages(ticketID string) ([]helpdesk.Message, error)

	// KB articles
	SearchKB(query, application string) ([]helpdesk.KBArticle, error)
	GetKBArticle(id string) (*helpdesk.KBArticle, error)

	// Log analyses
	CreateLogAnalysis(a *helpdesk.LogAnalysis) error
	LogAnalysisByTicket(ticketID string) (*helpdesk.LogAnalysis, error)

	// Similar tickets
	FindSimilarTickets(description string) ([]*helpdesk.Ticket, error)

	// Conversation <-> ticket link (1:1)
	LinkConversationToTicket(conversationID, ticketID string) error
	ConversationIDByTicket(ticketID string) (string, error)
}
