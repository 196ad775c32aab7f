// Package tui is an interactive browser over the conversation store.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/iksnae/llm-unify/internal"
	"github.com/iksnae/llm-unify/internal/search"
)

// Conversations is the read side of the repository the browser needs
type Conversations interface {
	List(ctx context.Context) ([]*internal.Conversation, error)
	FindByID(ctx context.Context, id string) (*internal.Conversation, error)
}

// Searcher runs ranked queries
type Searcher interface {
	Search(ctx context.Context, query string, opts search.Options) ([]search.Result, error)
}

type view int

const (
	listView view = iota
	detailView
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	// header, search box, blank line, footer
	chromeLines = 4
)

// row is one line of the list, either a stored conversation or a search hit
type row struct {
	id       string
	title    string
	provider internal.Provider
	detail   string
}

type conversationsLoadedMsg struct{ convs []*internal.Conversation }
type searchResultsMsg struct {
	query   string
	results []search.Result
}
type conversationLoadedMsg struct{ conv *internal.Conversation }
type errMsg struct{ err error }

// Model is the bubbletea model for the browser
type Model struct {
	ctx      context.Context
	store    Conversations
	searcher Searcher
	opts     search.Options

	view      view
	rows      []row
	all       []row
	cursor    int
	offset    int
	query     string
	input     textinput.Model
	searching bool
	viewport  viewport.Model
	current   *internal.Conversation
	err       error
	width     int
	height    int
}

// New creates a browser model. opts supplies the search limit and snippet length.
func New(ctx context.Context, store Conversations, searcher Searcher, opts search.Options) Model {
	input := textinput.New()
	input.Placeholder = "search conversations"
	input.Prompt = "/ "
	input.CharLimit = 256

	return Model{
		ctx:      ctx,
		store:    store,
		searcher: searcher,
		opts:     opts,
		input:    input,
		viewport: viewport.New(defaultWidth, defaultHeight-chromeLines),
		width:    defaultWidth,
		height:   defaultHeight,
	}
}

// Run starts the browser on the alternate screen and blocks until the user quits
func Run(ctx context.Context, store Conversations, searcher Searcher, opts search.Options) error {
	p := tea.NewProgram(New(ctx, store, searcher, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init loads the conversation list
func (m Model) Init() tea.Cmd {
	return m.loadConversations()
}

func (m Model) loadConversations() tea.Cmd {
	return func() tea.Msg {
		convs, err := m.store.List(m.ctx)
		if err != nil {
			return errMsg{err}
		}
		return conversationsLoadedMsg{convs}
	}
}

func (m Model) runSearch(query string) tea.Cmd {
	return func() tea.Msg {
		results, err := m.searcher.Search(m.ctx, query, m.opts)
		if err != nil {
			return errMsg{err}
		}
		return searchResultsMsg{query: query, results: results}
	}
}

func (m Model) openConversation(id string) tea.Cmd {
	return func() tea.Msg {
		conv, err := m.store.FindByID(m.ctx, id)
		if err != nil {
			return errMsg{err}
		}
		if conv == nil {
			return errMsg{fmt.Errorf("conversation not found: %s", id)}
		}
		return conversationLoadedMsg{conv}
	}
}

// Update handles messages and key presses
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(1, msg.Height-chromeLines)
		if m.current != nil {
			m.viewport.SetContent(renderConversation(m.current, m.width))
		}
		m.clampCursor()
		return m, nil

	case conversationsLoadedMsg:
		m.all = make([]row, 0, len(msg.convs))
		for _, conv := range msg.convs {
			m.all = append(m.all, row{
				id:       conv.ID,
				title:    conv.DisplayTitle(),
				provider: conv.Provider,
				detail:   fmt.Sprintf("%d msgs  %s", conv.MessageCount(), conv.UpdatedAt.Format(time.DateOnly)),
			})
		}
		if m.query == "" {
			m.setRows(m.all)
		}
		m.err = nil
		return m, nil

	case searchResultsMsg:
		if msg.query != m.query {
			// a newer query is in flight
			return m, nil
		}
		rows := make([]row, 0, len(msg.results))
		for _, r := range msg.results {
			title := r.Title
			if title == "" {
				title = "Untitled"
			}
			rows = append(rows, row{id: r.ConversationID, title: title, provider: r.Provider, detail: r.Snippet})
		}
		m.setRows(rows)
		m.err = nil
		return m, nil

	case conversationLoadedMsg:
		m.current = msg.conv
		m.view = detailView
		m.viewport.SetContent(renderConversation(msg.conv, m.width))
		m.viewport.GotoTop()
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.view == detailView {
			return m.updateDetail(msg)
		}
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateList(msg)
	}

	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		m.cursor--
	case "down", "j":
		m.cursor++
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = len(m.rows) - 1
	case "/":
		m.searching = true
		m.input.SetValue(m.query)
		return m, m.input.Focus()
	case "esc":
		if m.query != "" {
			m.query = ""
			m.setRows(m.all)
		}
	case "r":
		return m, m.loadConversations()
	case "enter":
		if len(m.rows) > 0 {
			return m, m.openConversation(m.rows[m.cursor].id)
		}
	}
	m.clampCursor()
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.input.Blur()
		m.query = strings.TrimSpace(m.input.Value())
		if m.query == "" {
			m.setRows(m.all)
			return m, nil
		}
		return m, m.runSearch(m.query)
	case tea.KeyEsc:
		m.searching = false
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "backspace":
		m.view = listView
		m.current = nil
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) setRows(rows []row) {
	m.rows = rows
	m.cursor = 0
	m.offset = 0
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	visible := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
}

// listHeight is the number of rows that fit; each row takes two lines
func (m Model) listHeight() int {
	return max(1, (m.height-chromeLines)/2)
}

// View renders the current screen
func (m Model) View() string {
	if m.view == detailView && m.current != nil {
		return m.renderDetail()
	}
	return m.renderList()
}

func (m Model) renderList() string {
	var b strings.Builder

	header := fmt.Sprintf("llm-unify  %d conversations", len(m.all))
	if m.query != "" {
		header = fmt.Sprintf("llm-unify  %d results for %q", len(m.rows), m.query)
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n")

	if m.searching {
		b.WriteString(m.input.View())
	} else {
		b.WriteString(dimStyle.Render("/ search  enter open  esc clear  r reload  q quit"))
	}
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(dimStyle.Render("  no conversations"))
		b.WriteString("\n")
	}

	end := min(len(m.rows), m.offset+m.listHeight())
	for i := m.offset; i < end; i++ {
		r := m.rows[i]
		line := formatRow(r, m.width)
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("    " + truncate(oneLine(r.detail), m.width-4)))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderDetail() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(truncate(m.current.DisplayTitle(), m.width)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s  %s  %d messages  %3.0f%%",
		m.current.Provider.DisplayName(), m.current.ID, m.current.MessageCount(), m.viewport.ScrollPercent()*100)))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("↑/↓ scroll  esc back  ctrl+c quit"))
	return b.String()
}

// formatRow lays out "  Title ....... Provider" to exactly width cells
func formatRow(r row, width int) string {
	provider := r.provider.DisplayName()
	titleWidth := width - runewidth.StringWidth(provider) - 4
	if titleWidth < 10 {
		titleWidth = 10
	}
	title := runewidth.FillRight(truncate(r.title, titleWidth), titleWidth)
	return "  " + title + " " + provider + " "
}

func renderConversation(conv *internal.Conversation, width int) string {
	wrap := lipgloss.NewStyle().Width(max(20, width-2)).PaddingLeft(2)
	var b strings.Builder
	for i, msg := range conv.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		style, ok := roleStyles[string(msg.Role)]
		if !ok {
			style = dimStyle
		}
		label := style.Render(string(msg.Role))
		if msg.Timestamp != nil {
			label += dimStyle.Render("  " + msg.Timestamp.Format(time.DateTime))
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(wrap.Render(msg.Content))
		b.WriteString("\n")
	}
	return b.String()
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
