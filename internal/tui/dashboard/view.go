package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/plugdeck/internal/domain/plugin"
)

// View renders the current model state
func (m Model) View() string {
	switch m.viewMode {
	case ViewDetail:
		return m.renderDetailView()
	case ViewHelp:
		return m.renderHelpView()
	default:
		return m.renderListView()
	}
}

func (m Model) renderListView() string {
	var content strings.Builder

	content.WriteString(m.renderHeader())
	content.WriteString("\n")
	if m.showError {
		content.WriteString(errorBannerStyle.Render(m.errorMsg))
		content.WriteString("\n")
	}
	if m.search.Focused() || m.search.Value() != "" {
		content.WriteString(m.search.View())
		content.WriteString("\n")
	}
	content.WriteString(m.renderPluginList())
	content.WriteString("\n")
	content.WriteString(m.renderFooter([]string{
		"↑/↓: navigate", "enter: details", "l: launch", "/: search", "?: help",
	}))
	return content.String()
}

func (m Model) renderHeader() string {
	title := titleStyle.Render("plugdeck")
	summary := fmt.Sprintf("%d plugin(s)", len(m.plugins))
	if len(m.provisioning) > 0 {
		summary += "  " + m.spinner.View() + " provisioning"
	}
	if m.info != "" {
		summary += "  " + infoStyle.Render(m.info)
	}
	return headerStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, summary))
}

func (m Model) renderPluginList() string {
	if len(m.plugins) == 0 {
		if m.search.Value() != "" {
			return emptyStateStyle.Render("No plugin matches " + fmt.Sprintf("%q", m.search.Value()))
		}
		return emptyStateStyle.Render("No plugins installed yet.\n\nImport one with:\n  plugdeck import <archive.zip|url>")
	}

	start := m.scrollOffset
	end := start + m.visibleRows()
	if end > len(m.plugins) {
		end = len(m.plugins)
	}

	var items []string
	if start > 0 {
		items = append(items, mutedStyle.Render("▲ More above"))
	}
	for i := start; i < end; i++ {
		items = append(items, m.renderPluginItem(m.plugins[i], i == m.cursor))
	}
	if end < len(m.plugins) {
		items = append(items, mutedStyle.Render("▼ More below"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (m Model) renderPluginItem(p plugin.Plugin, selected bool) string {
	icon := readyStyle.Render("●")
	switch {
	case m.provisioning[p.Name]:
		icon = m.spinner.View()
	case !p.Executable:
		icon = brokenStyle.Render("○")
	}

	name := lipgloss.NewStyle().Bold(true).Render(p.DisplayName())
	line1 := fmt.Sprintf("%s %s %s", icon, name, mutedStyle.Render(p.Version))

	desc := p.Description
	if len(desc) > 60 {
		desc = desc[:57] + "..."
	}
	if len(p.Tags) > 0 {
		desc += "  " + tagStyle.Render(strings.Join(p.Tags, ", "))
	}
	content := lipgloss.JoinVertical(lipgloss.Left, line1, "  "+desc)

	if selected {
		return selectedItemStyle.Render(content)
	}
	return itemStyle.Render(content)
}

func (m Model) renderDetailView() string {
	p, ok := m.detailPlugin()
	if !ok {
		return "Plugin not found"
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render(p.DisplayName()))
	content.WriteString("\n")
	if m.showError {
		content.WriteString(errorBannerStyle.Render(m.errorMsg))
		content.WriteString("\n")
	}

	rows := [][2]string{
		{"Name", p.Name},
		{"Version", p.Version},
		{"Path", p.Path},
	}
	if len(p.Tags) > 0 {
		rows = append(rows, [2]string{"Tags", strings.Join(p.Tags, ", ")})
	}
	if len(p.Dependencies) > 0 {
		rows = append(rows, [2]string{"Dependencies", strings.Join(p.Dependencies, ", ")})
	}
	if !p.Executable {
		rows = append(rows, [2]string{"Status", "missing " + plugin.EntryFile})
	}
	var meta []string
	for _, row := range rows {
		meta = append(meta, detailLabelStyle.Render(row[0])+detailValueStyle.Render(row[1]))
	}
	content.WriteString(lipgloss.JoinVertical(lipgloss.Left, meta...))
	content.WriteString("\n\n")
	content.WriteString(p.Description)
	content.WriteString("\n")

	items := detailItems(p)
	if len(items) > 0 {
		var lines []string
		for i, item := range items {
			prefix := "  "
			if i == m.detailCursor {
				prefix = "> "
			}
			kind := "run "
			if item.snippet == nil {
				kind = "read"
			}
			line := prefix + mutedStyle.Render(kind) + " " + item.label
			if item.snippet != nil && item.snippet.Description != "" {
				line += mutedStyle.Render("  " + item.snippet.Description)
			}
			lines = append(lines, line)
		}
		content.WriteString(detailSectionStyle.Render(strings.Join(lines, "\n")))
		content.WriteString("\n")
	}

	if m.provisioning[p.Name] {
		content.WriteString(m.spinner.View() + " Provisioning...\n")
	}

	content.WriteString(m.renderFooter([]string{
		"enter: run/open", "l: launch", "p: reprovision", "o: open folder", "esc: back",
	}))
	return content.String()
}

func (m Model) renderHelpView() string {
	bindings := [][2]string{
		{"↑/k ↓/j", "Move the cursor"},
		{"enter", "Show plugin details, or run the selected snippet"},
		{"l", "Launch the plugin, provisioning it first if needed"},
		{"p", "Re-provision then launch"},
		{"o", "Open the plugin folder"},
		{"/", "Search plugins"},
		{"r", "Rescan the plugins directory"},
		{"x", "Dismiss the error banner"},
		{"esc", "Back"},
		{"q", "Quit"},
	}
	lines := []string{helpTitleStyle.Render("Keyboard shortcuts")}
	for _, b := range bindings {
		lines = append(lines, helpKeyStyle.Render(b[0])+helpDescStyle.Render(b[1]))
	}
	return helpBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) renderFooter(hints []string) string {
	if m.showError {
		hints = append(hints, "x: dismiss error")
	}
	hints = append(hints, "q: quit")
	return footerStyle.Render(strings.Join(hints, "  •  "))
}
