package helpdesk

import "time"

// LogAnalysis is the result of the automated log analysis run for a ticket.
type LogAnalysis struct {
	ID              string    `json:"id"`
	TicketID        string    `json:"ticketId"`
	ErrorPattern    string    `json:"errorPattern"`
	RootCause       string    `json:"rootCause"`
	SuggestedFix    string    `json:"suggestedFix"`
	LogExcerpt      string    `json:"logExcerpt"`
	CorrelatedEvent string    `json:"correlatedEvent,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}
