package payroll

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Field is one header/value pair of a Record.
type Field struct {
	Header string
	Value  Value
}

// Record is one employee row keyed by the cleaned header names, in header
// order. A Record is never modified after parsing.
type Record struct {
	fields []Field
	index  map[string]int
}

// NewRecord builds a Record from ordered fields. A repeated header keeps its
// first position and takes the last value, which is what a plain
// header-to-value map would produce.
func NewRecord(fields ...Field) Record {
	r := Record{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if i, ok := r.index[f.Header]; ok {
			r.fields[i].Value = f.Value
			continue
		}
		r.index[f.Header] = len(r.fields)
		r.fields = append(r.fields, f)
	}
	return r
}

// Len returns the number of distinct headers.
func (r Record) Len() int { return len(r.fields) }

// Headers returns the header names in input order.
func (r Record) Headers() []string {
	out := make([]string, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.Header
	}
	return out
}

// Fields returns a copy of the ordered fields.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Get looks a header up by exact name.
func (r Record) Get(header string) (Value, bool) {
	i, ok := r.index[header]
	if !ok {
		return Value{}, false
	}
	return r.fields[i].Value, true
}

// Text returns the string form of header, or "" when absent.
func (r Record) Text(header string) string {
	v, _ := r.Get(header)
	return v.String()
}

// Number returns the numeric value of header, or 0 when absent or textual.
func (r Record) Number(header string) float64 {
	v, _ := r.Get(header)
	return v.Float()
}

// LookupFold finds a header ignoring case and surrounding whitespace.
// An exact match always wins over a folded one.
func (r Record) LookupFold(name string) (Value, bool) {
	if v, ok := r.Get(name); ok {
		return v, true
	}
	name = strings.TrimSpace(name)
	for _, f := range r.fields {
		if strings.EqualFold(strings.TrimSpace(f.Header), name) {
			return f.Value, true
		}
	}
	return Value{}, false
}

// LookupContaining returns the first field whose header contains every word,
// ignoring case.
func (r Record) LookupContaining(words ...string) (Value, bool) {
	if len(words) == 0 {
		return Value{}, false
	}
	for _, f := range r.fields {
		h := strings.ToLower(f.Header)
		matched := true
		for _, w := range words {
			if !strings.Contains(h, strings.ToLower(w)) {
				matched = false
				break
			}
		}
		if matched {
			return f.Value, true
		}
	}
	return Value{}, false
}

// MarshalJSON encodes the record as an object with keys in header order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Header)
		if err != nil {
			return nil, err
		}
		v, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
