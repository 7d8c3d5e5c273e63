package helpdesk

import "time"

// TicketStatus represents the lifecycle state of a support ticket.
type TicketStatus string

const (
	StatusNew         TicketStatus = "new"
	StatusLogAnalysis TicketStatus = "log_analysis"
	StatusInProgress  TicketStatus = "in_progress"
	StatusFixApplied  TicketStatus = "fix_applied"
	StatusResolved    TicketStatus = "resolved"
)

// Severity grades the business impact of a ticket.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Ticket is a support ticket opened for a user issue.
type Ticket struct {
	ID           string       `json:"id"`
	TicketNumber int          `json:"ticketNumber"`
	UserID       string       `json:"userId"`
	UserName     string       `json:"userName"`
	Application  string       `json:"application"`
	Description  string       `json:"description"`
	ErrorCode    string       `json:"errorCode,omitempty"`
	Status       TicketStatus `json:"status"`
	Severity     Severity     `json:"severity"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Display returns the status with underscores replaced for user-facing text.
func (s TicketStatus) Display() string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '_' {
			r = ' '
		}
		out = append(out, r)
	}
	return string(out)
}
