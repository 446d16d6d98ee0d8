package dashboard

import "github.com/charmbracelet/lipgloss"

// Colors adapt to light and dark terminal backgrounds.
var (
	brandColor  = lipgloss.AdaptiveColor{Light: "#1F6FEB", Dark: "#58A6FF"}
	okColor     = lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#3FB950"}
	dangerColor = lipgloss.AdaptiveColor{Light: "#CF222E", Dark: "#F85149"}
	dimColor    = lipgloss.AdaptiveColor{Light: "#6E7781", Dark: "#8B949E"}
	textColor   = lipgloss.AdaptiveColor{Light: "#24292F", Dark: "#C9D1D9"}
	highlight   = lipgloss.AdaptiveColor{Light: "#8250DF", Dark: "#D2A8FF"}
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(brandColor).Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Foreground(dimColor).Border(lipgloss.NormalBorder(), false, false, true, false).BorderForeground(dimColor)
	footerStyle = lipgloss.NewStyle().Foreground(dimColor).Border(lipgloss.NormalBorder(), true, false, false, false).BorderForeground(dimColor).MarginTop(1)

	itemStyle         = lipgloss.NewStyle().PaddingLeft(2)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(1).Foreground(highlight).Bold(true).Border(lipgloss.ThickBorder(), false, false, false, true).BorderForeground(brandColor)

	readyStyle  = lipgloss.NewStyle().Foreground(okColor)
	brokenStyle = lipgloss.NewStyle().Foreground(dangerColor)
	mutedStyle  = lipgloss.NewStyle().Foreground(dimColor)
	tagStyle    = lipgloss.NewStyle().Foreground(highlight)
	infoStyle   = lipgloss.NewStyle().Foreground(okColor).Italic(true)

	errorBannerStyle = lipgloss.NewStyle().Foreground(dangerColor).Bold(true).Border(lipgloss.RoundedBorder()).BorderForeground(dangerColor).Padding(0, 1)
	emptyStateStyle  = lipgloss.NewStyle().Foreground(dimColor).Italic(true).Padding(1, 2)
	spinnerStyle     = lipgloss.NewStyle().Foreground(brandColor)

	helpBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(brandColor).Padding(1, 2)
	helpTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(brandColor).MarginBottom(1)
	helpKeyStyle   = lipgloss.NewStyle().Foreground(highlight).Width(10)
	helpDescStyle  = lipgloss.NewStyle().Foreground(textColor)

	detailSectionStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(dimColor).Padding(0, 1).MarginTop(1)
	detailLabelStyle   = lipgloss.NewStyle().Foreground(dimColor).Width(14)
	detailValueStyle   = lipgloss.NewStyle().Foreground(textColor)
)

// ApplyMaxWidth bounds list rows and rules to the terminal width.
func ApplyMaxWidth(width int) {
	itemStyle = itemStyle.MaxWidth(width - 2)
	selectedItemStyle = selectedItemStyle.MaxWidth(width - 2)
	headerStyle = headerStyle.Width(width - 2)
	footerStyle = footerStyle.Width(width - 2)
}
