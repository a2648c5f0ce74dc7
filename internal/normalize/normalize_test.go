package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "collapses space runs",
			in:   "blood   sugar:\t\t180",
			want: "blood sugar: 180",
		},
		{
			name: "drops blank lines",
			in:   "diabetes\n\n\n  \ninsulin: Humalog",
			want: "diabetes\ninsulin: Humalog",
		},
		{
			name: "normalizes CRLF and page markers",
			in:   "page one\r\n\f\npage two",
			want: "page one\npage two",
		},
		{
			name: "strips outside the allow-list",
			in:   "BP ~ 120/80 «mmHg» [resting]",
			want: "BP 120/80 mmHg resting",
		},
		{
			name: "keeps basic punctuation",
			in:   "dose: 2.5 mg, twice-daily (oral); 40% eGFR",
			want: "dose: 2.5 mg, twice-daily (oral); 40% eGFR",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestTextIdempotent(t *testing.T) {
	inputs := []string{
		"Patient has diabetes, blood sugar: 180, insulin: Humalog",
		"  messy\r\ninput\t\twith\f\fmarkers  \n\n\nand «noise» everywhere!!",
		"already\nnormal text",
		"",
	}
	for _, in := range inputs {
		once := Text(in)
		assert.Equal(t, once, Text(once), "input %q", in)
	}
}
