package payslip

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/payslips/internal/payroll"
)

// Header fallbacks for the logical fields of a payslip email, tried in order.
var (
	AddressChain    = payroll.Chain{"Email", "email"}
	EmployeeIDChain = payroll.Chain{"Employee ID", "employee id", "Emp ID", "emp id"}
	FirstNameChain  = payroll.Chain{"First Name", "first name"}
	LastNameChain   = payroll.Chain{"Last Name", "last name"}
	DateFromChain   = payroll.Chain{"Date From", "date from"}
	DateToChain     = payroll.Chain{"Date To", "date to"}
	CreditDateChain = payroll.Chain{"Credit Date", "credit date"}
)

// randomEmployeeID stands in for a missing employee identifier in filenames.
func randomEmployeeID() string {
	return "EMP-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

var (
	fourDigitYearLayouts = []string{
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "2006-01-02", "2006/01/02",
		"January 2, 2006", "Jan 2, 2006", "2 January 2006", "2 Jan 2006", "20060102",
	}
	twoDigitYearLayouts = []string{"1/2/06", "01/02/06", "1-2-06"}
)

// DisplayDate renders a date cell as "January 2, 2006". Text that matches no
// known layout is returned unchanged.
func DisplayDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if t, ok := parseDate(s); ok {
		return t.Format("January 2, 2006")
	}
	return s
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Filename builds the attachment name; slashes in the start date would
// otherwise read as path separators.
func Filename(employeeID, dateFrom string) string {
	return "Payslip_" + employeeID + "_" + strings.ReplaceAll(dateFrom, "/", "-") + ".pdf"
}

// Subject builds the email subject from display-formatted dates.
func Subject(first, last, from, to string) string {
	return "Payslip for " + first + " " + last + " for the duration from " + from + " to " + to
}
