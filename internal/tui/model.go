// Package tui is the terminal front end of the dashboard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/xiaopang/insight/internal/core"
	"github.com/xiaopang/insight/internal/model"
	"github.com/xiaopang/insight/internal/view"
)

type tab int

const (
	tabDashboard tab = iota
	tabAnalytics
	tabHistory
	tabDocuments
	tabQuery
	tabUploads
	tabCount
)

var tabNames = [tabCount]string{"Dashboard", "Analytics", "History", "Documents", "Query", "Uploads"}

type keyMap struct {
	quit, next, prev, refresh, left, right, export, search, enter, esc key.Binding
}

var keys = keyMap{
	quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	next:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next page")),
	prev:    key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous page")),
	refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "previous")),
	right:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "next")),
	export:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export CSV")),
	search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("⏎", "submit/select")),
	esc:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
}

// Deps wires the model to the orchestration layer.
type Deps struct {
	Fetcher   *core.Fetcher
	Session   *core.QuerySession
	Uploads   *core.UploadQueue
	Notifier  *core.Notifier
	Options   core.PageOptions
	ExportDir string
}

type loadedMsg struct {
	tab tab
	err error
}

type queryDoneMsg struct{ err error }

type uploadChangedMsg struct{}

// Model is the bubbletea model.
type Model struct {
	deps Deps
	ctx  context.Context

	active    tab
	dashboard *core.DashboardPage
	analytics *core.AnalyticsPage
	history   *core.HistoryPage
	documents *core.DocumentsPage

	input   textinput.Model
	table   table.Model
	changes chan struct{}

	toast  *core.Notification
	status string
	width  int
}

// New creates the model on the dashboard page.
func New(ctx context.Context, deps Deps) Model {
	ti := textinput.New()
	ti.Width = 60

	m := Model{
		deps:      deps,
		ctx:       ctx,
		dashboard: core.NewDashboardPage(deps.Fetcher, deps.Options),
		analytics: core.NewAnalyticsPage(deps.Fetcher, deps.Options),
		history:   core.NewHistoryPage(deps.Fetcher, deps.Options),
		documents: core.NewDocumentsPage(deps.Fetcher, deps.Options),
		input:     ti,
		table:     newTable(nil),
		changes:   make(chan struct{}, 1),
		width:     100,
	}
	changes := m.changes
	deps.Uploads.OnChange(func(model.FileUploadItem) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(m.active), m.waitForUpload())
}

func (m Model) waitForUpload() tea.Cmd {
	ch, ctx := m.changes, m.ctx
	return func() tea.Msg {
		select {
		case <-ch:
			return uploadChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model) refresh(t tab) tea.Cmd {
	ctx := m.ctx
	var load func(context.Context) error
	switch t {
	case tabDashboard:
		load = m.dashboard.Refresh
	case tabAnalytics:
		load = m.analytics.Refresh
	case tabHistory:
		load = m.history.Refresh
	case tabDocuments:
		load = m.documents.Refresh
	default:
		return nil
	}
	return func() tea.Msg { return loadedMsg{tab: t, err: load(ctx)} }
}

func (m *Model) discard(t tab) {
	switch t {
	case tabDashboard:
		m.dashboard.Discard()
	case tabAnalytics:
		m.analytics.Discard()
	case tabHistory:
		m.history.Discard()
	case tabDocuments:
		m.documents.Discard()
	}
}

// switchTo leaves the current page, dropping its in-flight fetches.
func (m Model) switchTo(t tab) (Model, tea.Cmd) {
	m.discard(m.active)
	m.active = t
	m.status = ""
	m.input.Reset()
	m.input.Blur()
	m.table.Blur()

	var cmd tea.Cmd
	switch t {
	case tabQuery:
		m.input.Placeholder = "Ask a question about your documents..."
		cmd = m.input.Focus()
	case tabUploads:
		m.input.Placeholder = "Path to a .pdf, .csv, .txt or .md file"
		cmd = m.input.Focus()
	case tabHistory, tabDocuments:
		m.input.Placeholder = "Press / to search"
		m.table.Focus()
	}
	m.syncTable()
	return m, tea.Batch(cmd, m.refresh(t))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetWidth(msg.Width - 4)
		m.table.SetHeight(max(msg.Height-16, 5))
		m.syncTable()
		return m, nil

	case loadedMsg:
		if msg.err != nil && msg.tab == m.active && !errors.Is(msg.err, core.ErrSuperseded) {
			m.status = msg.err.Error()
		}
		m.syncTable()
		return m, nil

	case queryDoneMsg:
		m.pullToast()
		if msg.err == nil {
			m.input.Reset()
		}
		return m, nil

	case uploadChangedMsg:
		m.pullToast()
		m.syncTable()
		return m, m.waitForUpload()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.input.Focused() {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	typing := m.input.Focused()

	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	case key.Matches(msg, keys.next):
		return m.switchTo((m.active + 1) % tabCount)
	case key.Matches(msg, keys.prev):
		return m.switchTo((m.active + tabCount - 1) % tabCount)
	case key.Matches(msg, keys.enter):
		return m.submit()
	case key.Matches(msg, keys.esc):
		return m.escape()
	}

	if typing {
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, keys.quit):
		return m, tea.Quit
	case key.Matches(msg, keys.refresh):
		return m, m.refresh(m.active)
	case key.Matches(msg, keys.search) && (m.active == tabHistory || m.active == tabDocuments):
		m.table.Blur()
		return m, m.input.Focus()
	case key.Matches(msg, keys.left), key.Matches(msg, keys.right):
		return m.step(key.Matches(msg, keys.right))
	case key.Matches(msg, keys.export) && m.active == tabAnalytics:
		m.exportCSV()
		return m, nil
	}

	if m.table.Focused() {
		m.table, cmd = m.table.Update(msg)
	}
	return m, cmd
}

// step moves the analytics range or the history page.
func (m Model) step(forward bool) (tea.Model, tea.Cmd) {
	switch m.active {
	case tabAnalytics:
		ranges := core.TimeRanges
		i := 0
		for j, d := range ranges {
			if d == m.analytics.Days() {
				i = j
			}
		}
		if forward && i+1 < len(ranges) {
			i++
		} else if !forward && i > 0 {
			i--
		} else {
			return m, nil
		}
		_ = m.analytics.SetDays(ranges[i])
		return m, m.refresh(tabAnalytics)
	case tabHistory:
		moved := m.history.Prev
		if forward {
			moved = m.history.Next
		}
		if moved() {
			return m, m.refresh(tabHistory)
		}
	}
	return m, nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	switch m.active {
	case tabQuery:
		if m.deps.Session.Pending() {
			return m, nil
		}
		session, ctx := m.deps.Session, m.ctx
		if strings.TrimSpace(text) == "" {
			_, _ = session.Submit(ctx, text)
			m.pullToast()
			return m, nil
		}
		return m, func() tea.Msg {
			_, err := session.Submit(ctx, text)
			return queryDoneMsg{err: err}
		}
	case tabUploads:
		item, err := m.deps.Uploads.AddFile(strings.TrimSpace(text))
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		if !view.Accepted(item.Name) {
			m.deps.Uploads.Remove(item.ID)
			m.status = "unsupported file type: " + item.Name
			return m, nil
		}
		m.status = ""
		m.input.Reset()
		if err := m.deps.Uploads.Start(item.ID); err != nil {
			m.status = err.Error()
		}
		m.syncTable()
		return m, nil
	case tabHistory, tabDocuments:
		if m.input.Focused() {
			return m.applySearch(text)
		}
		if m.active == tabHistory {
			if row := m.table.SelectedRow(); len(row) > 0 {
				m.history.Select(row[0])
			}
		}
	}
	return m, nil
}

func (m Model) applySearch(term string) (tea.Model, tea.Cmd) {
	m.input.Blur()
	m.table.Focus()
	var cmd tea.Cmd
	if m.active == tabHistory {
		if m.history.SetSearch(term) {
			cmd = m.refresh(tabHistory)
		}
	} else {
		m.documents.SetSearch(term)
	}
	m.syncTable()
	return m, cmd
}

func (m Model) escape() (tea.Model, tea.Cmd) {
	switch m.active {
	case tabHistory:
		m.history.ClearSelection()
		if m.input.Focused() || m.history.Search() != "" {
			m.input.Reset()
			return m.applySearch("")
		}
	case tabDocuments:
		m.input.Reset()
		m.documents.ClearSearch()
		m.input.Blur()
		m.table.Focus()
		m.syncTable()
	default:
		m.input.Reset()
	}
	return m, nil
}

func (m *Model) exportCSV() {
	doc, name, err := m.analytics.Export(time.Now())
	if err != nil {
		m.status = err.Error()
		return
	}
	path := filepath.Join(m.deps.ExportDir, name)
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		m.status = err.Error()
		return
	}
	m.status = "Exported " + path
}

func (m *Model) pullToast() {
	notes := m.deps.Notifier.Drain()
	if len(notes) > 0 {
		last := notes[len(notes)-1]
		m.toast = &last
	}
}

// syncTable loads the rows of the active page into the shared table.
func (m *Model) syncTable() {
	w := max(m.width-4, 40)
	switch m.active {
	case tabHistory:
		v := m.history.View()
		rows := make([]table.Row, 0, len(v.Records))
		for _, r := range v.Records {
			rows = append(rows, table.Row{r.ID, r.When, truncate(r.Query, 40), r.Status, r.ResponseTime})
		}
		m.setTable([]table.Column{
			{Title: "ID", Width: 10},
			{Title: "When", Width: 20},
			{Title: "Query", Width: max(w-60, 20)},
			{Title: "Status", Width: 8},
			{Title: "Time", Width: 8},
		}, rows)
	case tabDocuments:
		v := m.documents.View()
		rows := make([]table.Row, 0, len(v.Documents))
		for _, d := range v.Documents {
			rows = append(rows, table.Row{d.Name, d.Badge, d.CountLabel})
		}
		m.setTable([]table.Column{
			{Title: "Document", Width: max(w-40, 20)},
			{Title: "Type", Width: 10},
			{Title: "Usage", Width: 20},
		}, rows)
	case tabUploads:
		items := view.BuildUploadQueue(m.deps.Uploads.Items())
		rows := make([]table.Row, 0, len(items))
		for _, it := range items {
			state := string(it.Status)
			if it.Error != "" {
				state += ": " + it.Error
			}
			rows = append(rows, table.Row{it.Name, it.Size, strconv.Itoa(it.Progress) + "%", state})
		}
		m.setTable([]table.Column{
			{Title: "File", Width: max(w-60, 20)},
			{Title: "Size", Width: 10},
			{Title: "Progress", Width: 10},
			{Title: "Status", Width: 30},
		}, rows)
	}
}

func (m *Model) setTable(cols []table.Column, rows []table.Row) {
	// rows first so the cursor stays valid when columns change
	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
}

func (m Model) View() string {
	var b strings.Builder

	for i, name := range tabNames {
		style := tabStyle
		if tab(i) == m.active {
			style = activeTabStyle
		}
		b.WriteString(style.Render(name))
	}
	b.WriteString("\n")

	switch m.active {
	case tabDashboard:
		b.WriteString(m.viewDashboard())
	case tabAnalytics:
		b.WriteString(m.viewAnalytics())
	case tabHistory:
		b.WriteString(m.viewHistory())
	case tabDocuments:
		b.WriteString(m.viewDocuments())
	case tabQuery:
		b.WriteString(m.viewQuery())
	case tabUploads:
		b.WriteString(m.viewUploads())
	}

	if m.status != "" {
		b.WriteString("\n" + errorStyle.Render(m.status) + "\n")
	}
	if m.toast != nil {
		style := successStyle
		if m.toast.Level == core.NotifyError {
			style = errorStyle
		}
		b.WriteString("\n" + style.Render(m.toast.Message) + "\n")
	}
	b.WriteString("\n" + mutedStyle.Render(m.help()) + "\n")
	return baseStyle.Render(b.String())
}

func (m Model) help() string {
	parts := []string{"tab/shift+tab switch page", "r refresh"}
	switch m.active {
	case tabAnalytics:
		parts = append(parts, "←/→ time range", "e export CSV")
	case tabHistory:
		parts = append(parts, "←/→ page", "/ search", "⏎ details", "esc clear")
	case tabDocuments:
		parts = append(parts, "/ search", "esc clear search")
	case tabQuery:
		parts = append(parts, "⏎ ask")
	case tabUploads:
		parts = append(parts, "⏎ upload file")
	}
	if !m.input.Focused() {
		parts = append(parts, "q quit")
	} else {
		parts = append(parts, "ctrl+c quit")
	}
	return strings.Join(parts, " • ")
}

func statusLine(st core.PageStatus) string {
	switch st.State {
	case core.StateLoading:
		return mutedStyle.Render("Loading...") + "\n"
	case core.StateError:
		return errorStyle.Render("Error: "+st.Error) + "\n"
	}
	return ""
}

func (m Model) viewDashboard() string {
	v := m.dashboard.View()
	var b strings.Builder
	b.WriteString(statusLine(m.dashboard.Status()))
	b.WriteString(renderCards(v.Cards))
	b.WriteString("\n")
	b.WriteString(renderPerformance(v.Performance))
	b.WriteString(renderTopList(v.TopDocuments))
	b.WriteString(renderTopList(v.TopQuestions))
	return b.String()
}

func (m Model) viewAnalytics() string {
	v := m.analytics.View()
	var b strings.Builder
	ranges := make([]string, 0, len(core.TimeRanges))
	for _, d := range core.TimeRanges {
		label := fmt.Sprintf("%dd", d)
		if d == v.Days {
			label = activeTabStyle.Render(label)
		}
		ranges = append(ranges, label)
	}
	b.WriteString("Range: " + strings.Join(ranges, " ") + "\n")
	b.WriteString(statusLine(m.analytics.Status()))
	b.WriteString(renderCards(v.Cards))
	b.WriteString("\n")
	b.WriteString(renderPerformance(v.Performance))

	b.WriteString(titleStyle.Render("Document usage") + "\n")
	if len(v.SourceUsage) == 0 {
		b.WriteString(mutedStyle.Render(v.EmptyMessages["source_usage"]) + "\n")
	}
	for _, u := range v.SourceUsage {
		b.WriteString(fmt.Sprintf("%-36s %6d  %s\n", truncate(u.Source, 34), u.Count, u.Percent))
	}

	b.WriteString(titleStyle.Render("Top queries") + "\n")
	if len(v.TopQueries) == 0 {
		b.WriteString(mutedStyle.Render(v.EmptyMessages["top_queries"]) + "\n")
	}
	for _, q := range v.TopQueries {
		b.WriteString(fmt.Sprintf("%-50s %d\n", truncate(q.Name, 48), q.Value))
	}
	return b.String()
}

func (m Model) viewHistory() string {
	v := m.history.View()
	var b strings.Builder
	b.WriteString(inputStyle.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(statusLine(m.history.Status()))
	if len(v.Records) == 0 && v.EmptyMessage != "" {
		b.WriteString(mutedStyle.Render(v.EmptyMessage) + "\n")
	} else {
		b.WriteString(m.table.View() + "\n")
	}
	b.WriteString(mutedStyle.Render(v.PageLabel) + "\n")
	if s := v.Selected; s != nil {
		b.WriteString(titleStyle.Render(s.Query) + "\n")
		b.WriteString(s.Response + "\n")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("%s • %s • %s", s.When, s.Status, s.ResponseTime)) + "\n")
		if len(s.Sources) > 0 {
			b.WriteString("Sources: " + strings.Join(s.Sources, ", ") + "\n")
		}
	}
	return b.String()
}

func (m Model) viewDocuments() string {
	v := m.documents.View()
	var b strings.Builder
	b.WriteString(inputStyle.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(statusLine(m.documents.Status()))
	if len(v.Documents) == 0 {
		b.WriteString(titleStyle.Render(v.EmptyTitle) + "\n")
		b.WriteString(mutedStyle.Render(v.EmptyMessage) + "\n")
		if v.CanClearSearch {
			b.WriteString(mutedStyle.Render("Press esc to clear search") + "\n")
		}
		return b.String()
	}
	b.WriteString(m.table.View() + "\n")
	return b.String()
}

func (m Model) viewQuery() string {
	var b strings.Builder
	b.WriteString(inputStyle.Render(m.input.View()))
	b.WriteString("\n")
	if m.deps.Session.Pending() {
		b.WriteString(mutedStyle.Render("Processing...") + "\n")
	}
	if v, ok := m.deps.Session.View(); ok {
		b.WriteString(titleStyle.Render(v.Query) + "\n")
		b.WriteString(v.Response + "\n")
		b.WriteString(mutedStyle.Render("Response time: "+v.ResponseTime) + "\n")
		if len(v.Sources) > 0 {
			b.WriteString("Sources: " + strings.Join(v.Sources, ", ") + "\n")
		}
	}
	return b.String()
}

func (m Model) viewUploads() string {
	var b strings.Builder
	b.WriteString(inputStyle.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.table.View() + "\n")
	return b.String()
}
