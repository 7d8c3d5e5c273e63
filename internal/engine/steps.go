package engine

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cerebro-io/cerebro/pkg/helpdesk"
)

// advance dispatches a message to the active scenario's step handler.
// Step sequences are strictly linear; unrecognized input re-issues the
// current prompt instead of failing.
func (e *Engine) advance(c *conversation, text, lower string) (string, error) {
	switch s := c.scenario.(type) {
	case *salesReport:
		return e.stepSales(c, s, text, lower)
	case *payrollSummary:
		return e.stepPayroll(c, s, text)
	case *invoiceApproval:
		return e.stepApproval(c, s, text)
	case *sessionLogout:
		return e.stepSession(c, s, text, lower)
	case *dataImport:
		return e.stepImport(s)
	case *dashboardEmpty:
		return e.stepDashboard(c, s, text)
	case *onboarding:
		return "The guide on the right walks through it step by step. Does that help?", nil
	case *genericIssue:
		return e.stepGeneric(c, s, text, lower)
	}
	return "Could you tell me a bit more about the issue?", nil
}

func (e *Engine) stepSales(c *conversation, s *salesReport, text, lower string) (string, error) {
	switch s.step {
	case salesAskWhen:
		if looksLikeTimeResponse(text) {
			s.timeOccurred = text
			s.step = salesAnalyzed
			return e.analyze(c)
		}
		// The user may restate the app instead of answering the question.
		if looksLikeApplicationName(text) {
			if app := detectApplication(lower); app != "" {
				c.application = app
			}
			return "Understood. When did the issue occur?", nil
		}
		return "When did this start happening?", nil
	default: // salesAnalyzed
		return e.analyze(c)
	}
}

func (e *Engine) stepPayroll(c *conversation, s *payrollSummary, text string) (string, error) {
	switch s.step {
	case payrollAskWhen:
		if looksLikeTimeResponse(text) {
			s.timeOccurred = text
			s.step = payrollAskPeriod
			return "Which payroll period are you looking at? (for example: November 2025)", nil
		}
		return "When did you first notice the payroll summary not loading?", nil

	case payrollAskPeriod:
		s.period = text
		similar, err := e.store.FindSimilarTickets(strings.Join(c.history, " "))
		if err != nil {
			return "", err
		}
		if len(similar) == 0 {
			s.step = payrollResolved
			return e.analyze(c)
		}
		s.candidates = similar
		s.step = payrollPickSimilar
		return formatSimilar(s.candidates), nil

	case payrollPickSimilar:
		if num, ok := extractTicketNumber(text); ok {
			if idx, err := strconv.Atoi(num); err == nil && idx >= 1 && idx <= len(s.candidates) {
				s.selected = idx
				s.step = payrollResolved
				picked := s.candidates[idx-1]
				articles, err := e.store.SearchKB("", "Payroll App")
				if err != nil {
					return "", err
				}
				if len(articles) > 0 && c.foundArticle == nil {
					c.foundArticle = &articles[0]
					c.waitingFor = waitKBHelpful
				}
				return fmt.Sprintf("Ticket #%d (%s) looks like the same problem. The fix that worked there is in the article on the right.", picked.TicketNumber, picked.Description), nil
			}
		}
		return formatSimilar(s.candidates), nil

	default: // payrollResolved
		return "Did the steps in the article sort out the payroll summary?", nil
	}
}

func (e *Engine) stepApproval(c *conversation, s *invoiceApproval, text string) (string, error) {
	// An error code settles the flow no matter which question is pending.
	if code := extractErrorCode(text); code != "" {
		s.errorCode = code
		s.step = approvalDone
		c.willCreateTicket = true
		return fmt.Sprintf("Thanks - %s matches a known incident pattern. I'm logging a ticket so the team can run log analysis.", code), nil
	}

	switch s.step {
	case approvalAskWhen:
		if looksLikeTimeResponse(text) {
			s.timeOccurred = text
			s.step = approvalAskError
			return "Do you see an error code or message when the approval fails? Paste it here if so.", nil
		}
		return "When did the invoice approval start failing?", nil
	case approvalAskError:
		s.step = approvalDone
		c.willCreateTicket = true
		return "Thanks. I'll log a ticket for investigation.", nil
	default: // approvalDone
		return "The ticket is with the support team - you can ask me to check the ticket status any time.", nil
	}
}

func (e *Engine) stepSession(c *conversation, s *sessionLogout, text, lower string) (string, error) {
	switch s.step {
	case sessionAskDevice:
		s.device = text
		s.step = sessionDone
		if hasAny(lower, "android", "mobile", "phone", "tablet", "ios") {
			articles, err := e.store.SearchKB("", "Inventory App")
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
		}
		c.willCreateTicket = true
		return "Thanks. That doesn't match a known session issue, so I'll log a ticket for investigation.", nil
	default: // sessionDone
		if c.foundArticle != nil {
			return "The steps in the article on the right should stop the logouts. Did they help?", nil
		}
		return "The ticket is with the support team - you can ask me to check the ticket status any time.", nil
	}
}

func (e *Engine) stepImport(s *dataImport) (string, error) {
	if s.step == importAskFile {
		return "Please attach the file you're trying to import and I'll take a look.", nil
	}
	return "Grab the converted file from the link on the right and retry the import.", nil
}

// handleImportFile is invoked from the attachment intercept while the
// import flow is waiting for a file.
func (e *Engine) handleImportFile(c *conversation, s *dataImport, file *Attachment) (string, error) {
	s.fileType = strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Filename)), ".")
	s.step = importDone

	if s.fileType == "csv" {
		articles, err := e.store.SearchKB("", "Data Import")
		if err != nil {
			return "", err
		}
		if len(articles) > 0 && c.foundArticle == nil {
			c.foundArticle = &articles[0]
			c.waitingFor = waitKBHelpful
		}
		return fmt.Sprintf("I checked %s - it isn't UTF-8 encoded, which is why the import fails. I've converted it for you: download the fixed file from the link on the right and retry the import.", file.Filename), nil
	}

	c.willCreateTicket = true
	return fmt.Sprintf("I couldn't process %s automatically, so I'll log a ticket for the import team.", file.Filename), nil
}

func (e *Engine) stepDashboard(c *conversation, s *dashboardEmpty, text string) (string, error) {
	switch s.step {
	case dashboardAskName:
		s.dashboard = text
		s.step = dashboardDone
		return e.analyze(c)
	default: // dashboardDone
		return e.analyze(c)
	}
}

func (e *Engine) stepGeneric(c *conversation, s *genericIssue, text, lower string) (string, error) {
	switch s.step {
	case genericAskWhen:
		if looksLikeTimeResponse(text) {
			s.timeOccurred = text
			s.step = genericAnalyzed
			return e.analyze(c)
		}
		if looksLikeApplicationName(text) {
			if app := detectApplication(lower); app != "" {
				c.application = app
			}
			return "Understood. When did the issue occur?", nil
		}
		return "When did this start happening?", nil
	default: // genericAnalyzed
		return e.analyze(c)
	}
}

func formatSimilar(tickets []*helpdesk.Ticket) string {
	var b strings.Builder
	b.WriteString("I found similar past tickets:\n")
	for i, t := range tickets {
		fmt.Fprintf(&b, "%d. #%d - %s\n", i+1, t.TicketNumber, t.Description)
	}
	b.WriteString("\nReply with a number if one of these looks like your issue.")
	return b.String()
}
