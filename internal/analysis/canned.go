package analysis

import "github.com/cerebro-io/cerebro/pkg/helpdesk"

// Canned analysis records keyed by application. There is no real log
// pipeline behind this - the records are the demo script.

var ticketAnalyses = map[string]helpdesk.LogAnalysis{
	"Finance App": {
		ErrorPattern: "APPROVAL_SERVICE_TIMEOUT",
		RootCause:    "Misconfigured connection string to approval-db after deployment of approval-service v1.3.7",
		SuggestedFix: "Rollback approval-service to v1.3.6 or update the connection string configuration for approval-db",
		LogExcerpt: `[2025-11-15 10:15:23] ERROR approval-service: Connection refused to approval-db:5432
[2025-11-15 10:15:23] ERROR approval-service: Timeout waiting for DB response
[2025-11-15 10:15:24] WARN  approval-service: Retrying connection... (attempt 1/3)
[2025-11-15 10:15:28] ERROR approval-service: APPROVAL_SERVICE_TIMEOUT`,
		CorrelatedEvent: "Deployment of approval-service v1.3.7 at 10:00 AM",
	},
	"Inventory App": {
		ErrorPattern: "SESSION_TIMEOUT on Android clients",
		RootCause:    "Session timeout misconfiguration for Android clients in the authentication service",
		SuggestedFix: "Update session timeout configuration for mobile clients from 5 minutes to 30 minutes",
		LogExcerpt: `[2025-11-15 10:10:15] WARN  auth-service: Session expired for user android-client-123
[2025-11-15 10:12:32] WARN  auth-service: Session expired for user android-client-123
[2025-11-15 10:15:41] WARN  auth-service: Session expired for user android-client-123`,
		CorrelatedEvent: "Recent authentication service update deployed 2 days ago",
	},
}

// The technician-triggered rerun knows only the session-timeout record;
// every application falls back to it.
var manualAnalyses = map[string]helpdesk.LogAnalysis{
	"Inventory App": ticketAnalyses["Inventory App"],
}

// analysisFor resolves a canned record from the given table, falling back
// to the default application's record when there is no exact match.
func analysisFor(table map[string]helpdesk.LogAnalysis, application, fallback string) helpdesk.LogAnalysis {
	if a, ok := table[application]; ok {
		return a
	}
	return table[fallback]
}
