package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/toll-settlement/internal/apperr"
)

func TestDecodeRow(t *testing.T) {
	tests := []struct {
		name     string
		fields   []string
		wantSkip string
		wantTS   time.Time
		charge   string
		company  string
	}{
		{
			name:    "minute precision",
			fields:  []string{"2022-01-01 00:44", "NAO01", "NOtag1", "nao", "2.8"},
			wantTS:  time.Date(2022, 1, 1, 0, 44, 0, 0, time.UTC),
			charge:  "2.80",
			company: "NAO",
		},
		{
			name:    "iso timestamp and spaces",
			fields:  []string{" 2024-01-01T08:00:00 ", " S1 ", "T1", " OPA", "2.50"},
			wantTS:  time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
			charge:  "2.50",
			company: "OPA",
		},
		{
			name:    "malformed charge defaults to zero",
			fields:  []string{"2024-01-01 08:00:00", "S1", "T1", "OPA", "abc"},
			wantTS:  time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
			charge:  "0.00",
			company: "OPA",
		},
		{
			name:    "missing charge column defaults to zero",
			fields:  []string{"2024-01-01 08:00", "S1", "T1", "OPA"},
			wantTS:  time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
			charge:  "0.00",
			company: "OPA",
		},
		{
			name:    "charge rounded to cents",
			fields:  []string{"2024-01-01 08:00", "S1", "T1", "OPA", "1.005"},
			wantTS:  time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
			charge:  "1.01",
			company: "OPA",
		},
		{name: "empty timestamp", fields: []string{"", "S1", "T1", "OPA", "1"}, wantSkip: apperr.CodeMissingField},
		{name: "blank station", fields: []string{"2024-01-01 08:00", "  ", "T1", "OPA", "1"}, wantSkip: apperr.CodeMissingField},
		{name: "missing tag", fields: []string{"2024-01-01 08:00", "S1", "", "OPA", "1"}, wantSkip: apperr.CodeMissingField},
		{name: "short row", fields: []string{"2024-01-01 08:00", "S1", "T1"}, wantSkip: apperr.CodeMissingField},
		{name: "bad timestamp", fields: []string{"yesterday", "S1", "T1", "OPA", "1"}, wantSkip: apperr.CodeInvalidTimestamp},
		{name: "negative charge", fields: []string{"2024-01-01 08:00", "S1", "T1", "OPA", "-1.50"}, wantSkip: apperr.CodeNegativeCharge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, s := DecodeRow(4, tt.fields)
			if tt.wantSkip != "" {
				require.NotNil(t, s)
				assert.Equal(t, tt.wantSkip, s.Code)
				assert.Equal(t, 4, s.Line)
				return
			}
			require.Nil(t, s)
			assert.Equal(t, 4, row.Line)
			assert.True(t, tt.wantTS.Equal(row.Timestamp), row.Timestamp)
			assert.Equal(t, tt.charge, row.Charge.StringFixed(2))
			assert.Equal(t, tt.company, row.CompanyID)
		})
	}
}
