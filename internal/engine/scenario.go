package engine

import "github.com/cerebro-io/cerebro/pkg/helpdesk"

// scenario is the active scripted branch of a conversation. Each variant
// carries only the scratch fields that branch needs, with its own step
// enum, so one scenario can never read another's stale state.
type scenario interface {
	name() string
}

type salesStep int

const (
	salesAskWhen salesStep = iota
	salesAnalyzed
)

type salesReport struct {
	step         salesStep
	timeOccurred string
}

func (*salesReport) name() string { return "sales_report" }

type payrollStep int

const (
	payrollAskWhen payrollStep = iota
	payrollAskPeriod
	payrollPickSimilar
	payrollResolved
)

type payrollSummary struct {
	step         payrollStep
	timeOccurred string
	period       string
	candidates   []*helpdesk.Ticket
	selected     int // 1-based index into candidates, 0 while unpicked
}

func (*payrollSummary) name() string { return "payroll_summary" }

type approvalStep int

const (
	approvalAskWhen approvalStep = iota
	approvalAskError
	approvalDone
)

type invoiceApproval struct {
	step         approvalStep
	timeOccurred string
	errorCode    string
}

func (*invoiceApproval) name() string { return "invoice_approval" }

type sessionStep int

const (
	sessionAskDevice sessionStep = iota
	sessionDone
)

type sessionLogout struct {
	step   sessionStep
	device string
}

func (*sessionLogout) name() string { return "session_logout" }

type importStep int

const (
	importAskFile importStep = iota
	importDone
)

type dataImport struct {
	step     importStep
	fileType string
}

func (*dataImport) name() string { return "data_import" }

func (s *dataImport) expectingFile() bool { return s.step == importAskFile }

type dashboardStep int

const (
	dashboardAskName dashboardStep = iota
	dashboardDone
)

type dashboardEmpty struct {
	step      dashboardStep
	dashboard string
}

func (*dashboardEmpty) name() string { return "dashboard_empty" }

// onboarding is the "how do I ..." guide flow; it has no steps, the guide
// is surfaced immediately.
type onboarding struct{}

func (*onboarding) name() string { return "onboarding" }

type genericStep int

const (
	genericAskWhen genericStep = iota
	genericAnalyzed
)

// genericIssue is the fallback flow when only the application is known.
type genericIssue struct {
	step         genericStep
	timeOccurred string
}

func (*genericIssue) name() string { return "generic" }
