package engine

import (
	"regexp"
	"strings"
)

// Classification is deliberately dumb: case-insensitive substring checks in
// a fixed priority order, first match wins. The demo scripts depend on these
// exact semantics, so none of this is tokenized or ranked.

// scenarioKind names a scripted dialogue branch.
type scenarioKind int

const (
	scenarioNone scenarioKind = iota
	scenarioSalesReport
	scenarioPayrollSummary
	scenarioInvoiceApproval
	scenarioSessionLogout
	scenarioDataImport
	scenarioDashboardEmpty
)

var scenarioRules = []struct {
	kind  scenarioKind
	match func(lower string) bool
}{
	{scenarioSalesReport, func(s string) bool {
		return hasAny(s, "sales report", "daily sales", "error 1203")
	}},
	{scenarioPayrollSummary, func(s string) bool {
		return strings.Contains(s, "payroll summary") ||
			(strings.Contains(s, "payroll") && hasAny(s, "loading", "blank"))
	}},
	{scenarioInvoiceApproval, func(s string) bool {
		return hasAny(s, "invoice approval", "approval_service_timeout") ||
			(strings.Contains(s, "approval") && strings.Contains(s, "timeout"))
	}},
	{scenarioSessionLogout, func(s string) bool {
		return strings.Contains(s, "logged out") ||
			(strings.Contains(s, "session") && hasAny(s, "expired", "timeout"))
	}},
	{scenarioDataImport, func(s string) bool {
		return strings.Contains(s, "csv") ||
			(strings.Contains(s, "import") && strings.Contains(s, "fail"))
	}},
	{scenarioDashboardEmpty, func(s string) bool {
		return strings.Contains(s, "dashboard") && hasAny(s, "no data", "blank", "empty")
	}},
}

// classifyScenario tests the lowercased message against the phrase rules.
func classifyScenario(lower string) scenarioKind {
	for _, r := range scenarioRules {
		if r.match(lower) {
			return r.kind
		}
	}
	return scenarioNone
}

// appRules is the generic keyword-to-application fallback, checked in order.
var appRules = []struct {
	app      string
	keywords []string
}{
	{"Sales App", []string{"sales", "report", "revenue"}},
	{"Finance App", []string{"invoice", "payment", "approval", "finance"}},
	{"Inventory App", []string{"inventory", "stock", "logged out", "session"}},
	{"Payroll App", []string{"payroll", "summary", "salary"}},
	{"HR App", []string{"employee", "hr", "import"}},
}

// detectApplication maps a message to a known application name, or "".
func detectApplication(lower string) string {
	for _, r := range appRules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.app
			}
		}
	}
	return ""
}

var affirmatives = []string{"yes", "yeah", "yep", "sure", "works", "fixed", "solved", "ok", "okay", "it works"}

func isAffirmative(text string) bool {
	return hasAny(strings.ToLower(text), affirmatives...)
}

var clockPattern = regexp.MustCompile(`\d{1,2}:\d{2}`)

// looksLikeTimeResponse accepts anything that plausibly answers "when did
// this happen" - relative words or an H:MM clock time.
func looksLikeTimeResponse(text string) bool {
	if hasAny(strings.ToLower(text), "now", "ago", "am", "pm", "minute", "today") {
		return true
	}
	return clockPattern.MatchString(text)
}

func looksLikeApplicationName(text string) bool {
	return hasAny(strings.ToLower(text), "sales", "finance", "inventory", "payroll", "hr", "app")
}

var ticketNumberPattern = regexp.MustCompile(`#?(\d+)`)

// extractTicketNumber returns the first run of digits, with or without a
// leading '#'.
func extractTicketNumber(text string) (string, bool) {
	m := ticketNumberPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

var errorCodePattern = regexp.MustCompile(`[A-Z][A-Z0-9]*(?:_[A-Z0-9]+)+`)

// extractErrorCode picks an ALL_CAPS underscore token like
// APPROVAL_SERVICE_TIMEOUT out of a message, or returns "".
func extractErrorCode(text string) string {
	return errorCodePattern.FindString(text)
}

func hasAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
