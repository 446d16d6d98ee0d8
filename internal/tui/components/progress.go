package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// Progress renders import completion as a percentage bar.
type Progress struct {
	bar progress.Model
}

// NewProgress creates a progress bar of the given width.
func NewProgress(width int) Progress {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = width
	return Progress{bar: bar}
}

// View renders the bar for percent, clamped to 0..100.
func (p Progress) View(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	label := lipgloss.NewStyle().Bold(true).Width(5).Render(fmt.Sprintf("%d%%", percent))
	return lipgloss.JoinHorizontal(lipgloss.Left, label, " ", p.bar.ViewAs(float64(percent)/100))
}
