package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/plugdeck/internal/tui/components"
	pderrors "github.com/alexisbeaulieu97/plugdeck/pkg/errors"
)

// View renders the current state of the model.
func (m Model) View() string {
	sections := []string{titleStyle.Render("plugdeck • " + m.title)}

	if m.importing {
		sections = append(sections, sectionStyle.Render("Import"))
		if m.indeterminate {
			sections = append(sections, m.spinner.View()+" "+m.status)
		} else {
			sections = append(sections, m.bar.View(m.percent), mutedStyle.Render(m.status))
		}
	}

	if m.provisioning != "" {
		sections = append(sections, m.spinner.View()+" Provisioning "+m.provisioning+"...")
	}

	if m.confirm != nil {
		body := lipgloss.JoinVertical(lipgloss.Left,
			failureStyle.Render(m.confirm.Title),
			m.confirm.Message,
			"",
			"Overwrite? [y/n]",
		)
		sections = append(sections, confirmStyle.Render(body))
	}

	summary := components.NewSummary(components.SummaryData{
		Notes:     m.notes,
		Problems:  m.problems,
		Finished:  m.finished,
		Cancelled: m.cancelled,
	}).View()
	if strings.TrimSpace(summary) != "" {
		sections = append(sections, summaryStyle.Render(summary))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func problemFor(err error) components.Problem {
	title, message := pderrors.Describe(err)
	return components.Problem{Title: title, Message: message}
}
