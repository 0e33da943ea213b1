package payslip

import (
	"context"
	"strings"
	"testing"
)

func TestRenderBody(t *testing.T) {
	tests := []struct {
		name     string
		data     BodyData
		contains []string
		excludes []string
	}{
		{
			name: "credit date present",
			data: BodyData{FirstName: "Ann", LastName: "Lee", DateFrom: "January 1, 2025", DateTo: "January 15, 2025", CreditDate: "January 20, 2025"},
			contains: []string{
				"Payslip for Ann Lee",
				"for the duration from January 1, 2025 to January 15, 2025",
				"account on January 20, 2025.",
			},
		},
		{
			name:     "credit date missing",
			data:     BodyData{FirstName: "Bo"},
			contains: []string{"credit to your respective account."},
			excludes: []string{"account on"},
		},
		{
			name:     "values are escaped",
			data:     BodyData{FirstName: `<b>"x"</b>`, DateFrom: "a&b"},
			contains: []string{"&lt;b&gt;", "a&amp;b"},
			excludes: []string{"<b>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderBody(context.Background(), tt.data)
			if err != nil {
				t.Fatalf("RenderBody() error = %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("RenderBody() missing %q", want)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("RenderBody() should not contain %q", bad)
				}
			}
		})
	}
}
