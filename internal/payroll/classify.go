package payroll

import "strings"

// DefaultNumericMarkers are the case-sensitive substrings that mark a header
// as a numeric (currency) column.
var DefaultNumericMarkers = []string{
	"Pay", "OT", "Bonus", "Allowance", "SSS", "HDMF", "PHIC", "Absences",
	"Undertime", "Deduction", "Earnings", "Tax", "Differential", "Premium",
	"Loan", "Refund", "Grant", "Reimbursement", "Adjustment", "Advances",
	"ECC", "Provident", "14th Month",
}

// Classifier decides which headers hold numbers. Matching is by substring and
// case-sensitive, so "OT" matches "Regular OT" and also "TOTAL", while "pay"
// matches nothing.
type Classifier struct {
	markers []string
}

// NewClassifier uses markers, or DefaultNumericMarkers when none are given.
func NewClassifier(markers ...string) *Classifier {
	if len(markers) == 0 {
		markers = DefaultNumericMarkers
	}
	m := make([]string, len(markers))
	copy(m, markers)
	return &Classifier{markers: m}
}

// Markers returns a copy of the active marker table.
func (c *Classifier) Markers() []string {
	out := make([]string, len(c.markers))
	copy(out, c.markers)
	return out
}

// IsNumeric reports whether header contains any marker.
func (c *Classifier) IsNumeric(header string) bool {
	for _, m := range c.markers {
		if strings.Contains(header, m) {
			return true
		}
	}
	return false
}
