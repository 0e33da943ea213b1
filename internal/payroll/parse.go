// Package payroll turns an uploaded payroll CSV into typed employee records.
//
// The format is deliberately simple: one header line, one line per employee,
// cells separated by commas. Quoted cells containing commas or newlines are
// not supported; a stray quote at either end of a cell is stripped.
package payroll

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// ErrEmptyInput is returned when the input has no header line or no data line.
var ErrEmptyInput = errors.New("CSV file is empty or invalid")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// leadingNumber matches the longest decimal prefix of a cell, so "1,234"
// yields 1 and "12.5 PHP" yields 12.5.
var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// Parser converts CSV text into Records.
type Parser struct {
	classifier *Classifier
}

// NewParser returns a parser using c to type columns. A nil classifier uses
// the default marker table.
func NewParser(c *Classifier) *Parser {
	if c == nil {
		c = NewClassifier()
	}
	return &Parser{classifier: c}
}

// Parse is a convenience wrapper using the default marker table.
func Parse(text string) ([]Record, error) {
	return NewParser(nil).Parse(text)
}

// ParseReader reads the whole input, strips a UTF-8 byte order mark and
// replaces invalid UTF-8 before parsing.
func (p *Parser) ParseReader(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	return p.Parse(strings.ToValidUTF8(string(data), "�"))
}

// Parse splits text into lines, drops blank ones and maps every data line onto
// the header line. Rows shorter than the header get empty cells; extra cells
// are ignored.
func (p *Parser) Parse(text string) ([]Record, error) {
	lines := nonBlankLines(text)
	if len(lines) < 2 {
		return nil, ErrEmptyInput
	}

	headers := splitCells(lines[0])
	numeric := make([]bool, len(headers))
	for i, h := range headers {
		numeric[i] = p.classifier.IsNumeric(h)
	}

	records := make([]Record, 0, len(lines)-1)
	for _, line := range lines[1:] {
		cells := splitCells(line)
		fields := make([]Field, len(headers))
		for i, h := range headers {
			var raw string
			if i < len(cells) {
				raw = cells[i]
			}
			if numeric[i] {
				fields[i] = Field{Header: h, Value: Number(parseNumber(raw))}
			} else {
				fields[i] = Field{Header: h, Value: Text(raw)}
			}
		}
		records = append(records, NewRecord(fields...))
	}

	return records, nil
}

func nonBlankLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func splitCells(line string) []string {
	parts := strings.Split(line, ",")
	for i, c := range parts {
		parts[i] = cleanCell(c)
	}
	return parts
}

// cleanCell trims whitespace and removes at most one quote from each end.
func cleanCell(c string) string {
	c = strings.TrimSpace(c)
	c = strings.TrimPrefix(c, `"`)
	c = strings.TrimSuffix(c, `"`)
	return c
}

func parseNumber(raw string) float64 {
	m := leadingNumber.FindString(raw)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}
