package payroll

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var allowValue = cmp.AllowUnexported(Value{})

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]Field
	}{
		{
			name:  "single row",
			input: "Email,Basic Pay\na@x.com,1000",
			want: [][]Field{{
				{"Email", Text("a@x.com")},
				{"Basic Pay", Number(1000)},
			}},
		},
		{
			name:  "quoted header and short row",
			input: "\"Email\",Name,SSS\nb@x.com",
			want: [][]Field{{
				{"Email", Text("b@x.com")},
				{"Name", Text("")},
				{"SSS", Number(0)},
			}},
		},
		{
			name:  "blank lines and CRLF",
			input: "Email,Tax\r\n\r\n  \r\nc@x.com, 12.50 \r\n\nd@x.com,abc\r\n",
			want: [][]Field{
				{{"Email", Text("c@x.com")}, {"Tax", Number(12.5)}},
				{{"Email", Text("d@x.com")}, {"Tax", Number(0)}},
			},
		},
		{
			name:  "extra cells ignored",
			input: "Email,Name\ne@x.com,Eve,surplus,more",
			want: [][]Field{{
				{"Email", Text("e@x.com")},
				{"Name", Text("Eve")},
			}},
		},
		{
			name:  "leading number prefix",
			input: "Email,Spot Bonus,Regular OT\nf@x.com,250.75 PHP,-3",
			want: [][]Field{{
				{"Email", Text("f@x.com")},
				{"Spot Bonus", Number(250.75)},
				{"Regular OT", Number(-3)},
			}},
		},
		{
			name:  "only one stray quote stripped per side",
			input: "Email,Name\ng@x.com,\"\"Quoted\"\"",
			want: [][]Field{{
				{"Email", Text("g@x.com")},
				{"Name", Text("\"Quoted\"")},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			got := make([][]Field, len(recs))
			for i, r := range recs {
				got[i] = r.Fields()
			}
			if diff := cmp.Diff(tt.want, got, allowValue); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_EmptyInput(t *testing.T) {
	inputs := []string{
		"",
		"   \n\n\t\n",
		"Email,Name",
		"Email,Name\n\n   \n",
	}

	for _, in := range inputs {
		_, err := Parse(in)
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Parse(%q) error = %v, want ErrEmptyInput", in, err)
		}
	}
	if ErrEmptyInput.Error() != "CSV file is empty or invalid" {
		t.Errorf("ErrEmptyInput = %q", ErrEmptyInput.Error())
	}
}

func TestParse_RecordCountMatchesLines(t *testing.T) {
	var b strings.Builder
	b.WriteString("Email,Name\n")
	for i := 0; i < 12; i++ {
		b.WriteString("x@y.z,Name\n\n")
	}

	recs, err := Parse(b.String())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(recs) != 12 {
		t.Errorf("len(records) = %d, want 12", len(recs))
	}
	for _, r := range recs {
		if r.Len() != 2 {
			t.Errorf("record has %d fields, want 2", r.Len())
		}
	}
}

func TestParseReader_StripsBOMAndInvalidUTF8(t *testing.T) {
	input := "\xEF\xBB\xBFEmail,Name\nh@x.com,Ren\xffe"

	recs, err := NewParser(nil).ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}
	if _, ok := recs[0].Get("Email"); !ok {
		t.Fatalf("header BOM not stripped, headers = %q", recs[0].Headers())
	}
	if got := recs[0].Text("Name"); got != "Ren�e" {
		t.Errorf("Name = %q, want %q", got, "Ren�e")
	}
}

func TestParser_CustomMarkers(t *testing.T) {
	p := NewParser(NewClassifier("Amount"))

	recs, err := p.Parse("Email,Amount Due,Basic Pay\ni@x.com,10,20")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := []Field{
		{"Email", Text("i@x.com")},
		{"Amount Due", Number(10)},
		{"Basic Pay", Text("20")},
	}
	if diff := cmp.Diff(want, recs[0].Fields(), allowValue); diff != "" {
		t.Errorf("Fields() mismatch (-want +got):\n%s", diff)
	}
}
