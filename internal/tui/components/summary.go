package components

import (
	"fmt"
	"strings"
)

// Problem is a user-facing failure shown in the summary.
type Problem struct {
	Title   string
	Message string
}

// SummaryData aggregates what happened during one command.
type SummaryData struct {
	Notes     []string
	Problems  []Problem
	Finished  bool
	Cancelled bool
}

// Summary renders a textual activity summary.
type Summary struct {
	data SummaryData
}

// NewSummary creates a new Summary component.
func NewSummary(data SummaryData) Summary {
	return Summary{data: data}
}

// View renders the summary.
func (s Summary) View() string {
	var lines []string
	for _, note := range s.data.Notes {
		lines = append(lines, "  ✓ "+note)
	}
	for _, p := range s.data.Problems {
		line := "  ✗ " + p.Title
		if strings.TrimSpace(p.Message) != "" {
			line = fmt.Sprintf("%s: %s", line, p.Message)
		}
		lines = append(lines, line)
	}

	switch {
	case s.data.Cancelled:
		lines = append(lines, "Cancelled")
	case s.data.Finished && len(s.data.Problems) > 0:
		lines = append(lines, fmt.Sprintf("Finished with %d problem(s)", len(s.data.Problems)))
	case s.data.Finished && len(s.data.Notes) > 0:
		lines = append(lines, "Done")
	}

	return strings.Join(lines, "\n")
}
