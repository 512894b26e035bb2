package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ormasoftchile/rbdoctor/pkg/validate"
)

// Severity distinguishes list entries.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Item is one diagnostic in the list with its ordinal among its severity.
type Item struct {
	Severity   Severity
	Index      int
	Diagnostic validate.Diagnostic
}

// Label is the short list text, e.g. "error[1]: message".
func (it Item) Label() string {
	kind := "error"
	if it.Severity == SeverityWarning {
		kind = "warning"
	}
	return fmt.Sprintf("%s[%d]: %s", kind, it.Index, it.Diagnostic.Message)
}

// Location renders "file:line:col", omitting unknown parts.
func (it Item) Location() string {
	d := it.Diagnostic
	switch {
	case d.Line > 0 && d.Column > 0:
		return fmt.Sprintf("%s:%d:%d", d.File, d.Line, d.Column)
	case d.Line > 0:
		return fmt.Sprintf("%s:%d", d.File, d.Line)
	}
	return d.File
}

// Model is the bubbletea model for the diagnostic browser.
type Model struct {
	title    string
	items    []Item
	selected int
	detail   viewport.Model
	width    int
	height   int
	ready    bool
}

// NewModel lists errors first, then warnings, in result order.
func NewModel(title string, res *validate.Result) Model {
	var items []Item
	for i, d := range res.Errors {
		items = append(items, Item{Severity: SeverityError, Index: i + 1, Diagnostic: d})
	}
	for i, d := range res.Warnings {
		items = append(items, Item{Severity: SeverityWarning, Index: i + 1, Diagnostic: d})
	}
	return Model{
		title:  title,
		items:  items,
		detail: viewport.New(80, 10),
		width:  80,
		height: 24,
	}
}

// Items returns the list entries.
func (m Model) Items() []Item { return m.items }

// Selected returns the cursor position.
func (m Model) Selected() int { return m.selected }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.selected > 0 {
				m.selected--
				m.refreshDetail()
			}
		case key.Matches(msg, keys.Down):
			if m.selected < len(m.items)-1 {
				m.selected++
				m.refreshDetail()
			}
		case key.Matches(msg, keys.PgUp):
			m.detail.HalfViewUp()
		case key.Matches(msg, keys.PgDown):
			m.detail.HalfViewDown()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.detail.Width = m.width - 4
		m.detail.Height = m.detailHeight()
		m.ready = true
		m.refreshDetail()
	}
	return m, nil
}

// listHeight is the number of rows given to the list: at most half the
// screen, never more than needed.
func (m Model) listHeight() int {
	h := (m.height - 4) / 2
	if n := len(m.items); n < h {
		h = n
	}
	if h < 1 {
		h = 1
	}
	return h
}

func (m Model) detailHeight() int {
	h := m.height - m.listHeight() - 6
	if h < 3 {
		h = 3
	}
	return h
}

func (m *Model) refreshDetail() {
	if len(m.items) == 0 {
		m.detail.SetContent("")
		return
	}
	m.detail.SetContent(RenderMarkdown(DetailMarkdown(m.items[m.selected]), m.detail.Width))
	m.detail.GotoTop()
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(m.title))
	b.WriteString("  ")
	b.WriteString(m.counts())
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		b.WriteString("  " + cleanStyle.Render(GlyphClean+" No issues found!") + "\n\n")
		b.WriteString(keyBarStyle.Render(keyStyle.Render("q") + keyDescStyle.Render(":quit")))
		return b.String()
	}

	// Scroll the list window so the cursor stays visible.
	rows := m.listHeight()
	start := 0
	if m.selected >= rows {
		start = m.selected - rows + 1
	}
	for i := start; i < len(m.items) && i < start+rows; i++ {
		b.WriteString(m.renderItem(i))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.ready {
		b.WriteString(panelBorder.Width(m.width - 2).Render(m.detail.View()))
	} else {
		b.WriteString(DetailMarkdown(m.items[m.selected]))
	}
	b.WriteString("\n")
	b.WriteString(keyBarStyle.Render(keyBarText()))
	return b.String()
}

func (m Model) counts() string {
	var nErr, nWarn int
	for _, it := range m.items {
		if it.Severity == SeverityError {
			nErr++
		} else {
			nWarn++
		}
	}
	return countErrorStyle.Render(fmt.Sprintf("%d error(s)", nErr)) + ", " +
		countWarningStyle.Render(fmt.Sprintf("%d warning(s)", nWarn))
}

func (m Model) renderItem(i int) string {
	it := m.items[i]
	cursor := "  "
	if i == m.selected {
		cursor = GlyphCursor + " "
	}

	glyph := itemError.Render(GlyphError)
	if it.Severity == SeverityWarning {
		glyph = itemWarning.Render(GlyphWarning)
	}

	style := itemNormal
	if i == m.selected {
		style = itemSelected
	}
	line := cursor + glyph + " " + style.Render(it.Label())
	if loc := it.Location(); loc != "" {
		line += "  " + locationStyle.Render(loc)
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(line)
}

// DetailMarkdown renders one diagnostic as Markdown for the detail pane.
func DetailMarkdown(it Item) string {
	d := it.Diagnostic
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n\n", it.Label())
	if loc := it.Location(); loc != "" {
		fmt.Fprintf(&b, "`%s`\n\n", loc)
	}
	if d.Context != "" {
		fmt.Fprintf(&b, "%s\n\n", d.Context)
	}
	if d.Suggestion != nil {
		fmt.Fprintf(&b, "**Suggestion:** %s\n\n", d.Suggestion.Message)
		if d.Suggestion.Example != "" {
			fmt.Fprintf(&b, "```\n%s\n```\n\n", d.Suggestion.Example)
		}
	}
	if d.DocumentationLink != "" {
		fmt.Fprintf(&b, "Documentation: %s\n", d.DocumentationLink)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// Run starts the interactive browser and blocks until the user quits.
func Run(title string, res *validate.Result) error {
	p := tea.NewProgram(NewModel(title, res), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("interactive view: %w", err)
	}
	return nil
}
