package payroll

// Chain is an ordered list of header names tried in turn when reading a
// logical field that different spreadsheets spell differently.
type Chain []string

// Resolve returns the first non-empty value among the chain's headers.
func (c Chain) Resolve(r Record) (string, bool) {
	for _, h := range c {
		v, ok := r.Get(h)
		if !ok {
			continue
		}
		if s := v.String(); s != "" && !(v.IsNumber() && v.Float() == 0) {
			return s, true
		}
	}
	return "", false
}

// ResolveOr is Resolve with a fallback for when no header yields a value.
func (c Chain) ResolveOr(r Record, fallback string) string {
	if s, ok := c.Resolve(r); ok {
		return s
	}
	return fallback
}
