package components

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummaryView(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		data     SummaryData
		contains []string
		excludes []string
	}{
		{
			name: "empty summary renders nothing",
			data: SummaryData{},
		},
		{
			name:     "notes are listed with a check mark",
			data:     SummaryData{Notes: []string{"Imported demo"}, Finished: true},
			contains: []string{"✓ Imported demo", "Done"},
		},
		{
			name: "problems include title and message",
			data: SummaryData{
				Problems: []Problem{{Title: "Import Failed", Message: "not a zip"}},
				Finished: true,
			},
			contains: []string{"✗ Import Failed: not a zip", "Finished with 1 problem(s)"},
			excludes: []string{"Done"},
		},
		{
			name:     "problem without message",
			data:     SummaryData{Problems: []Problem{{Title: "Busy"}}},
			contains: []string{"✗ Busy"},
			excludes: []string{"Busy:"},
		},
		{
			name:     "cancelled wins over finished",
			data:     SummaryData{Notes: []string{"Downloaded"}, Finished: true, Cancelled: true},
			contains: []string{"Cancelled"},
			excludes: []string{"Done"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			view := NewSummary(tt.data).View()
			if len(tt.contains) == 0 {
				require.Empty(t, view)
			}
			for _, want := range tt.contains {
				require.Contains(t, view, want)
			}
			for _, unwanted := range tt.excludes {
				require.NotContains(t, view, unwanted)
			}
		})
	}
}
