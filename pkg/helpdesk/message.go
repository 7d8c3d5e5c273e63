package helpdesk

import "time"

// MessageRole identifies who authored a chat message.
type MessageRole string

const (
	RoleUser       MessageRole = "user"
	RoleCerebro    MessageRole = "cerebro"
	RoleSystem     MessageRole = "system"
	RoleTechnician MessageRole = "technician"
)

// Message is a single chat message within a conversation, optionally
// linked to a ticket.
type Message struct {
	ID             string      `json:"id"`
	TicketID       string      `json:"ticketId,omitempty"`
	ConversationID string      `json:"conversationId"`
	Role           MessageRole `json:"role"`
	Content        string      `json:"content"`
	Timestamp      time.Time   `json:"timestamp"`
}
