package engine

import "testing"

func TestClassifyScenario(t *testing.T) {
	cases := []struct {
		text string
		want scenarioKind
	}{
		{"my daily sales report is failing", scenarioSalesReport},
		{"i'm seeing error 1203 again", scenarioSalesReport},
		{"the payroll summary page is blank", scenarioPayrollSummary},
		{"payroll summary won't open", scenarioPayrollSummary},
		{"invoice approval keeps timing out", scenarioInvoiceApproval},
		{"i got approval_service_timeout", scenarioInvoiceApproval},
		{"the approval shows a timeout error", scenarioInvoiceApproval},
		{"i keep getting logged out", scenarioSessionLogout},
		{"my session expired mid-count", scenarioSessionLogout},
		{"the csv won't upload", scenarioDataImport},
		{"the import keeps failing", scenarioDataImport},
		{"my dashboard shows no data", scenarioDashboardEmpty},
		{"the dashboard is blank", scenarioDashboardEmpty},
		{"hello there", scenarioNone},
		{"my printer is on fire", scenarioNone},
	}
	for _, c := range cases {
		if got := classifyScenario(c.text); got != c.want {
			t.Errorf("classifyScenario(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	// A message matching both sales and payroll rules resolves to the
	// earlier rule.
	if got := classifyScenario("sales report and payroll summary both broken"); got != scenarioSalesReport {
		t.Errorf("got %v, want scenarioSalesReport", got)
	}
}

func TestDetectApplication(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"the revenue numbers look wrong", "Sales App"},
		{"a payment is stuck", "Finance App"},
		{"stock counts are off", "Inventory App"},
		{"my salary is wrong", "Payroll App"},
		{"new employee setup", "HR App"},
		{"something is broken", ""},
	}
	for _, c := range cases {
		if got := detectApplication(c.text); got != c.want {
			t.Errorf("detectApplication(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}

func TestIsAffirmative(t *testing.T) {
	yes := []string{"yes", "Yeah that did it", "yep", "sure", "it works now", "Fixed!", "solved", "ok", "okay thanks"}
	no := []string{"no", "same error", "nothing changed", "what?"}
	for _, s := range yes {
		if !isAffirmative(s) {
			t.Errorf("isAffirmative(%q) = false, want true", s)
		}
	}
	for _, s := range no {
		if isAffirmative(s) {
			t.Errorf("isAffirmative(%q) = true, want false", s)
		}
	}
}

func TestLooksLikeTimeResponse(t *testing.T) {
	yes := []string{"just now", "about an hour ago", "at 9:30", "this morning at 10:15", "5 minutes back", "today", "around 8am"}
	no := []string{"in the sales app", "not sure", "every time"}
	for _, s := range yes {
		if !looksLikeTimeResponse(s) {
			t.Errorf("looksLikeTimeResponse(%q) = false, want true", s)
		}
	}
	for _, s := range no {
		if looksLikeTimeResponse(s) {
			t.Errorf("looksLikeTimeResponse(%q) = true, want false", s)
		}
	}
}

func TestExtractTicketNumber(t *testing.T) {
	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"check ticket #48205", "48205", true},
		{"ticket status 48201 please", "48201", true},
		{"check my ticket", "", false},
	}
	for _, c := range cases {
		got, ok := extractTicketNumber(c.text)
		if got != c.want || ok != c.ok {
			t.Errorf("extractTicketNumber(%q) = (%q, %v), want (%q, %v)", c.text, got, ok, c.want, c.ok)
		}
	}
}

func TestExtractErrorCode(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"it says APPROVAL_SERVICE_TIMEOUT", "APPROVAL_SERVICE_TIMEOUT"},
		{"got SESSION_TIMEOUT on my phone", "SESSION_TIMEOUT"},
		{"error DB2_CONN_FAIL happened", "DB2_CONN_FAIL"},
		{"no code shown", ""},
		{"the word TIMEOUT alone is not a code", ""},
	}
	for _, c := range cases {
		if got := extractErrorCode(c.text); got != c.want {
			t.Errorf("extractErrorCode(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}
