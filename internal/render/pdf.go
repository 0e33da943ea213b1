// Package render lays out a single-page A4 payslip PDF from a payroll record.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/JonMunkholm/payslips/internal/payroll"
)

type rgb struct{ r, g, b int }

var (
	teal      = rgb{13, 148, 136}
	darkGray  = rgb{51, 51, 51}
	lightGray = rgb{128, 128, 128}
	ruleGray  = rgb{200, 200, 200}
)

// Line is one amount row of the payslip: a printed label and the header it
// reads from.
type Line struct {
	Label  string
	Header string
}

// Layout lists which columns appear in each section.
type Layout struct {
	Title      string
	Earnings   []Line
	Deductions []Line
	Note       string
}

// DefaultLayout matches the payroll export the service was built for.
var DefaultLayout = Layout{
	Title: "Payslip",
	Earnings: []Line{
		{"Basic Pay", "Basic Pay"},
		{"Regular OT", "Regular OT"},
		{"Special Holiday Premium Pay", "Special Holiday Premium Pay"},
		{"Regular Holiday Premium Pay", "Regular Holiday Premium Pay"},
		{"Night Differential", "Night Differential"},
		{"Transportation Allowance", "Transportation Allowance"},
		{"Other Pay (Taxable)", "Other Pay (Taxable)"},
		{"Spot Bonus", "Spot Bonus"},
		{"Rest Day OT", "Rest Day OT"},
	},
	Deductions: []Line{
		{"Absences", "Absences"},
		{"Undertime/Tardiness", "Undertime/Tardiness"},
		{"SSS (EE)", "SSS (EE)"},
		{"HDMF (EE)", "HDMF (EE)"},
		{"PHIC (EE)", "PHIC (EE)"},
		{"SSS Loan", "SSS Loan"},
		{"HDMF Loan", "HDMF Loan"},
		{"Salary Loan Repayment", "Salary Loan Repayment"},
	},
	Note: "This is a system generated payslip.",
}

// PDF renders payslips. The zero value is not usable; use NewPDF.
type PDF struct {
	layout Layout
}

func NewPDF(layout Layout) *PDF {
	return &PDF{layout: layout}
}

// Render produces the PDF bytes for rec. Layout is CPU-bound and short, so
// ctx is only checked before and after it.
func (p *PDF) Render(ctx context.Context, rec payroll.Record) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := fpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle(p.layout.Title, true)
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()

	w := &writer{doc: doc, tr: tr}
	p.header(w, rec)
	y := p.section(w, rec, 90, "Earnings", p.layout.Earnings, "Total Earnings")
	y = p.section(w, rec, y+12, "Deductions", p.layout.Deductions, "Total Deductions")
	p.footer(w, rec, y)

	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("render payslip: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render payslip: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *PDF) header(w *writer, rec payroll.Record) {
	w.font("B", 20, darkGray)
	w.center(105, 52, p.layout.Title)

	w.font("B", 9, darkGray)
	w.left(20, 65, text(rec, "Employee ID", "employee", "id"))
	w.font("", 9, darkGray)
	w.left(20, 70, fullName(rec))
	w.left(20, 75, text(rec, "Job Title", "job", "title"))

	w.font("B", 9, darkGray)
	w.left(130, 65, "Pay Period:")
	w.left(130, 70, "Pay Day:")
	w.font("", 9, darkGray)
	w.left(155, 65, fmt.Sprintf("%s to %s", text(rec, "Date From", "date", "from"), text(rec, "Date To", "date", "to")))
	w.left(155, 70, text(rec, "Date Payment", "date", "payment"))
}

// section draws a titled amount table starting at y and returns the y of its
// total row. Zero amounts are omitted.
func (p *PDF) section(w *writer, rec payroll.Record, y float64, title string, lines []Line, totalHeader string) float64 {
	w.font("B", 10, darkGray)
	w.left(20, y, title)
	w.right(190, y, "Amount")
	w.rule(y + 2)

	y += 8
	w.font("", 9, darkGray)

	var sum float64
	for _, l := range lines {
		v := amount(rec, l.Header)
		if v == 0 {
			continue
		}
		sum += v
		w.left(20, y, l.Label)
		w.right(190, y, money(v))
		y += 5
	}

	// A missing total column falls back to the sum of the printed rows.
	total, ok := lookupAmount(rec, totalHeader)
	if !ok {
		total = sum
	}

	y += 3
	w.font("B", 9, darkGray)
	w.rule(y - 2)
	w.left(20, y, totalHeader+":")
	w.right(190, y, money(total))
	return y
}

func (p *PDF) footer(w *writer, rec payroll.Record, y float64) {
	y += 15
	w.font("B", 14, darkGray)
	w.center(105, y, "Take Home Pay:")

	y += 8
	w.font("B", 20, teal)
	w.center(105, y, money(amount(rec, "Net Pay")))

	y += 15
	w.font("B", 10, darkGray)
	w.left(20, y, "Notes:")

	y += 8
	w.font("", 9, lightGray)
	w.center(105, y, p.layout.Note)
}

// writer wraps the handful of fpdf calls the layout needs.
type writer struct {
	doc *fpdf.Fpdf
	tr  func(string) string
}

func (w *writer) font(style string, size float64, c rgb) {
	w.doc.SetFont("Helvetica", style, size)
	w.doc.SetTextColor(c.r, c.g, c.b)
}

func (w *writer) left(x, y float64, s string) {
	w.doc.Text(x, y, w.tr(s))
}

func (w *writer) right(x, y float64, s string) {
	s = w.tr(s)
	w.doc.Text(x-w.doc.GetStringWidth(s), y, s)
}

func (w *writer) center(x, y float64, s string) {
	s = w.tr(s)
	w.doc.Text(x-w.doc.GetStringWidth(s)/2, y, s)
}

func (w *writer) rule(y float64) {
	w.doc.SetDrawColor(ruleGray.r, ruleGray.g, ruleGray.b)
	w.doc.Line(20, y, 190, y)
}

// text reads header case-insensitively, then falls back to the first column
// whose name contains every keyword.
func text(rec payroll.Record, header string, keywords ...string) string {
	if v, ok := rec.LookupFold(header); ok {
		return v.String()
	}
	if v, ok := rec.LookupContaining(keywords...); ok {
		return v.String()
	}
	return ""
}

func fullName(rec payroll.Record) string {
	parts := []string{
		text(rec, "First Name", "first", "name"),
		text(rec, "Middle Name", "middle", "name"),
		text(rec, "Last Name", "last", "name"),
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func lookupAmount(rec payroll.Record, header string) (float64, bool) {
	v, ok := rec.LookupFold(header)
	if !ok {
		return 0, false
	}
	if v.IsNumber() {
		return v.Float(), true
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v.String()), ",", ""), 64)
	if err != nil {
		return 0, true
	}
	return f, true
}

func amount(rec payroll.Record, header string) float64 {
	f, _ := lookupAmount(rec, header)
	return f
}

func money(f float64) string {
	return fmt.Sprintf("%.2f", f)
}
