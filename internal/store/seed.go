package store

import "github.com/cerebro-io/cerebro/pkg/helpdesk"

// seed loads the demo dataset: 7 KB articles and 4 past tickets, always in
// the same order so ticket numbers 48201-48204 land on the same tickets.
func (s *SQLiteStore) seed() error {
	for i := range seedArticles {
		a := seedArticles[i]
		if err := s.insertArticle(&a); err != nil {
			return err
		}
	}
	for i := range seedTickets {
		t := seedTickets[i]
		if err := s.CreateTicket(&t); err != nil {
			return err
		}
	}
	return nil
}

var seedArticles = []helpdesk.KBArticle{
	{
		Title:       "Daily Sales Report fails with Error 1203",
		Application: "Sales App",
		Problem:     "Cannot generate daily sales report",
		Cause:       "Yesterday's data sync is incomplete",
		Solution:    "Force a manual data sync to complete the missing data",
		Steps: []string{
			"Go to Admin → Sync Status",
			"Tap Force Sync",
			"Wait 1 minute and retry generating the report",
		},
	},
	{
		Title:       "Payroll summary blank - missing period settings",
		Application: "Payroll App",
		Problem:     "Payroll summary isn't loading or shows blank",
		Cause:       "The payroll period hasn't been created yet",
		Solution:    "Create the missing payroll period",
		Steps: []string{
			"Go to Payroll Settings",
			"Click Create Period",
			"Choose the appropriate month/year",
			"Save and refresh the summary",
		},
	},
	{
		Title:       "Data import fails - CSV encoding issue",
		Application: "Data Import",
		Problem:     "CSV import keeps failing",
		Cause:       "CSV file is not UTF-8 encoded",
		Solution:    "Convert the file to UTF-8 encoding",
		Steps: []string{
			"Open your CSV in a text editor",
			"Save As and select UTF-8 encoding",
			"Retry the import with the converted file",
		},
	},
	{
		Title:       "Invoice Approval Timeout after deployment",
		Application: "Finance App",
		Problem:     "Invoice approval fails with APPROVAL_SERVICE_TIMEOUT",
		Cause:       "Misconfigured database connection after deployment",
		Solution:    "Verify and fix the connection string configuration",
		Steps: []string{
			"Check approval-service configuration",
			"Verify approval-db connection string",
			"Restart the service if needed",
		},
	},
	{
		Title:       "Employee Import Guide",
		Application: "HR App",
		Problem:     "How to import employees from CSV file",
		Cause:       "User needs guidance on importing employee data",
		Solution:    "Follow the employee import process step by step",
		Steps: []string{
			"Go to HR → Employees",
			"Click Import Employees",
			"Download the Template CSV",
			"Fill it in with employee data (name, email, department, start date)",
			"Upload the completed CSV file",
			"Review the preview and confirm import",
		},
	},
	{
		Title:       "Operations Dashboard - No Data Showing",
		Application: "Operations Dashboard",
		Problem:     "Dashboard shows no data or blank charts",
		Cause:       "ETL job failure or data pipeline issue",
		Solution:    "Check ETL job status and data source configuration",
		Steps: []string{
			"Go to Admin → Data Pipeline Status",
			"Check recent ETL job logs",
			"Verify data source connection settings",
			"Retry the ETL job if it failed",
			"Contact data team if issue persists",
		},
	},
	{
		Title:       "Session Timeout on Mobile Devices",
		Application: "Inventory App",
		Problem:     "Getting logged out frequently on mobile",
		Cause:       "Session timeout configuration issue for mobile clients",
		Solution:    "Update session timeout settings for mobile app",
		Steps: []string{
			"Contact IT Support to update session timeout",
			"Clear app cache and data",
			"Log out and log back in",
			"Verify the issue is resolved",
		},
	},
}

var seedTickets = []helpdesk.Ticket{
	{
		UserID:      "user-demo-1",
		UserName:    "Jane Smith",
		Application: "Inventory App",
		Description: "System logged me out 3 times in 10 minutes on Android",
		ErrorCode:   "SESSION_TIMEOUT",
		Status:      helpdesk.StatusResolved,
		Severity:    helpdesk.SeverityMedium,
	},
	{
		UserID:      "user-demo-2",
		UserName:    "Bob Johnson",
		Application: "Payroll App",
		Description: "Payroll summary blank - missing period settings",
		Status:      helpdesk.StatusResolved,
		Severity:    helpdesk.SeverityLow,
	},
	{
		UserID:      "user-demo-3",
		UserName:    "Alice Wong",
		Application: "Payroll App",
		Description: "Payroll summary stuck loading - client cache issue",
		Status:      helpdesk.StatusResolved,
		Severity:    helpdesk.SeverityLow,
	},
	{
		UserID:      "user-demo-4",
		UserName:    "Carlos Martinez",
		Application: "Payroll App",
		Description: "Payroll summary error 503 - server outage",
		Status:      helpdesk.StatusResolved,
		Severity:    helpdesk.SeverityHigh,
	},
}
