package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"scriptmenu/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	tagStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("81")) // Sky Blue/Cyan

	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	adviceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")) // Orange

	borderColor = lipgloss.Color("63")
	activeColor = lipgloss.Color("205")
)

// iconCell renders a menu icon in a fixed width of five cells.
func iconCell(ref model.IconRef) string {
	switch ref.Kind() {
	case model.IconCustom:
		return fmt.Sprintf("%-5s", ref.Glyph())
	case model.IconFromExecutable:
		return tagStyle.Render(fmt.Sprintf("%-5s", "["+ref.Tag()+"]"))
	case model.IconNamed:
		return fmt.Sprintf("%-5s", ref.Glyph())
	}
	return "     "
}

// headerGlyph renders the top icon.
func headerGlyph(ref model.IconRef) string {
	switch ref.Kind() {
	case model.IconCustom:
		return model.GlyphCustom
	case model.IconNamed:
		if ref.Name() == model.IconTopDefault {
			return model.GlyphTerminal
		}
		return model.GlyphBullet
	case model.IconFromExecutable:
		return model.GlyphTerminal
	}
	return model.GlyphTerminal
}

func shortenHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" || !strings.HasPrefix(path, home) {
		return path
	}
	return "~" + strings.TrimPrefix(path, home)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width < 4 || len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

func (m AppModel) View() string {
	if m.ShowHelp {
		return m.renderHelpDialog()
	}

	width := max(m.WindowSize.Width, 40)
	height := max(m.WindowSize.Height, 12)

	netWidth := width - 6
	leftWidth := netWidth / 2
	rightWidth := netWidth - leftWidth

	var b strings.Builder

	// Header
	dir := "no scripts directory configured"
	if m.Dir != "" {
		dir = shortenHome(m.Dir)
	}
	b.WriteString(titleStyle.Render(headerGlyph(m.TopIcon) + " " + model.AppName))
	b.WriteString(" " + dimStyle.Render(dir))
	if m.Running > 0 {
		b.WriteString(" " + adviceStyle.Render(fmt.Sprintf("%s %d running", model.GlyphRunning, m.Running)))
	}
	b.WriteString("\n")

	for _, banner := range m.Banners {
		line := truncate(fmt.Sprintf("%s %s", banner.At.Format("15:04:05"), firstLine(banner.Message)), width-2)
		b.WriteString(bannerStyle.Render(line))
		b.WriteString("\n")
	}

	boxHeight := max(height-len(m.Banners)-6, 4)
	interiorHeight := boxHeight - 2

	// LEFT PANEL: scripts
	var left strings.Builder
	visibleItems := max(interiorHeight, 1)
	startIdx, endIdx := 0, len(m.Visible)
	if len(m.Visible) > visibleItems {
		startIdx = max(m.SelectedIdx-visibleItems/2, 0)
		startIdx = min(startIdx, len(m.Visible)-visibleItems)
		endIdx = startIdx + visibleItems
	}
	if len(m.Menu.Items) == 0 {
		left.WriteString(dimStyle.Render("No scripts."))
	} else if len(m.Visible) == 0 {
		left.WriteString(dimStyle.Render("No matches."))
	}
	for i := startIdx; i < endIdx; i++ {
		item := m.Menu.Items[m.Visible[i]]
		line := truncate(item.DisplayName, leftWidth-8)
		style := normalStyle
		if i == m.SelectedIdx {
			style = selectedStyle
		}
		left.WriteString(iconCell(item.Icon) + style.Render(line) + "\n")
	}

	leftBox := lipgloss.NewStyle().
		Width(leftWidth).
		Height(interiorHeight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(activeColor).
		Render(strings.TrimSuffix(left.String(), "\n"))

	// RIGHT PANEL: last output
	content := dimStyle.Render("Output of the last finished script shows here.")
	if m.LastOutput != "" {
		content = m.OutputView.View()
	}
	rightBox := lipgloss.NewStyle().
		Width(rightWidth).
		Height(interiorHeight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(borderColor).
		Render(content)

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, leftBox, rightBox))

	// Footer
	b.WriteString("\n" + m.Search.View())
	help := "↑/↓: Navigate • Enter: Run • Esc: Clear • Ctrl+R: Refresh • PgUp/PgDn: Output • F1: Help • Ctrl+C: Quit"
	b.WriteString("\n" + dimStyle.Render(truncate(help, width)))
	if m.Degraded {
		b.WriteString("\n" + adviceStyle.Render("Directory is not watched; press Ctrl+R to refresh."))
	}
	return b.String()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func (m AppModel) helpContent() string {
	logPath := m.LogPath
	if logPath == "" {
		logPath = "(no home directory)"
	}
	return strings.Join([]string{
		titleStyle.Render(model.AppName + " " + model.Version),
		"",
		"Runs the *" + model.ScriptSuffix + " files of the configured directory.",
		"The list refreshes when files in the directory change.",
		"",
		"Type to search, Enter to run the highlighted script.",
		"Esc clears the search, Ctrl+R rescans the directory.",
		"",
		"Launch log: " + shortenHome(logPath),
		"",
		dimStyle.Render("Esc/F1: close"),
	}, "\n")
}

func (m AppModel) renderHelpDialog() string {
	w, h := m.WindowSize.Width, m.WindowSize.Height
	if w < 20 || h < 10 {
		return "Window too small"
	}

	helpWidth := min(max(w*80/100, 40), w-4)

	dialog := lipgloss.NewStyle().
		Width(helpWidth).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Render(m.helpContent())

	return lipgloss.Place(w, h,
		lipgloss.Center, lipgloss.Center,
		dialog,
	)
}
