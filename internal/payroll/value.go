package payroll

import (
	"encoding/json"
	"strconv"
)

// Kind distinguishes the two shapes a cell can take.
type Kind uint8

const (
	KindText Kind = iota
	KindNumber
)

func (k Kind) String() string {
	if k == KindNumber {
		return "number"
	}
	return "text"
}

// Value is a single parsed cell: either a number or a piece of text, never both.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Number returns a numeric Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Text returns a textual Value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNumber() bool { return v.kind == KindNumber }

// Float returns the numeric value, or 0 for text values.
func (v Value) Float() float64 {
	if v.kind != KindNumber {
		return 0
	}
	return v.num
}

// String renders numbers in their shortest exact form and returns text as-is.
func (v Value) String() string {
	if v.kind == KindNumber {
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	}
	return v.text
}

// IsZero reports whether the value is empty text or the number 0.
func (v Value) IsZero() bool {
	if v.kind == KindNumber {
		return v.num == 0
	}
	return v.text == ""
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindNumber {
		return json.Marshal(v.num)
	}
	return json.Marshal(v.text)
}
