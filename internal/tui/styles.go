package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/xiaopang/insight/internal/view"
)

var (
	baseStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))
	inputStyle = lipgloss.NewStyle().
			Margin(1, 0, 1, 0)
	tabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("245"))
	activeTabStyle = tabStyle.Copy().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1).
			Margin(0, 1, 0, 0).
			Width(22)
	titleStyle   = lipgloss.NewStyle().Bold(true).Margin(1, 0, 0, 0)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows([]table.Row{}),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(styles)
	return t
}

func renderCards(cards []view.StatCard) string {
	boxes := make([]string, 0, len(cards))
	for _, c := range cards {
		boxes = append(boxes, cardStyle.Render(mutedStyle.Render(c.Title)+"\n"+c.Value))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func renderTopList(l view.TopList) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(l.Title))
	b.WriteString("\n")
	if l.Empty() {
		b.WriteString(mutedStyle.Render(l.EmptyMessage))
		b.WriteString("\n")
		return b.String()
	}
	for _, it := range l.Items {
		bar := strings.Repeat("█", int(it.BarWidth/5))
		b.WriteString(lipgloss.NewStyle().Width(36).Render(truncate(it.Name, 34)))
		b.WriteString(lipgloss.NewStyle().Width(12).Render(it.Display))
		b.WriteString(bar)
		b.WriteString("\n")
	}
	return b.String()
}

func renderPerformance(points []view.PerformancePoint) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Performance"))
	b.WriteString("\n")
	if len(points) == 0 {
		b.WriteString(mutedStyle.Render("No performance data available"))
		b.WriteString("\n")
		return b.String()
	}
	for _, p := range points {
		b.WriteString(lipgloss.NewStyle().Width(10).Render(p.Label))
		b.WriteString(lipgloss.NewStyle().Width(10).Render(view.FormatCount(p.Volume)))
		b.WriteString(lipgloss.NewStyle().Width(10).Render(view.FormatRate(ptr(p.SuccessRate / 100))))
		b.WriteString(view.FormatSeconds(ptr(p.Latency)))
		b.WriteString("\n")
	}
	return b.String()
}

func ptr(v float64) *float64 { return &v }

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
