// Package search is the interactive terminal front end of a search session.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Paintersrp/portal/internal/constants"
	"github.com/Paintersrp/portal/internal/fetch"
	"github.com/Paintersrp/portal/internal/pathutil"
	"github.com/Paintersrp/portal/internal/render"
	docsearch "github.com/Paintersrp/portal/internal/search"
	"github.com/Paintersrp/portal/internal/services/session"
)

// Options configure the model.
type Options struct {
	Session *session.Session
	Fetcher fetch.Fetcher
	// Scopes are cycled with tab. The empty scope stands for every scope.
	Scopes   []string
	Debounce time.Duration
	// Copy places text on the clipboard. Defaults to the system clipboard.
	Copy func(string) error
}

type (
	debounceMsg struct{ tag int }
	sessionMsg  struct{ event session.Event }
	previewMsg  struct {
		path    string
		content string
		err     error
	}
)

type resultItem struct {
	result docsearch.Result
	term   string
}

func (i resultItem) FilterValue() string { return i.result.Title }

func (i resultItem) Title() string {
	return fmt.Sprintf("%s · %s (%d)", i.result.Title, i.result.Section, i.result.Score)
}

func (i resultItem) Description() string {
	text := i.result.Description
	if len(i.result.ContentMatches) > 0 {
		text = i.result.ContentMatches[0].Context
	}
	text = strings.Join(strings.Fields(text), " ")
	return docsearch.Highlight(text, i.term, func(s string) string { return matchStyle.Render(s) })
}

// Model is the bubbletea model of the search screen.
type Model struct {
	session  *session.Session
	fetcher  fetch.Fetcher
	copy     func(string) error
	keys     keyMap
	input    textinput.Model
	spinner  spinner.Model
	list     list.Model
	viewport viewport.Model

	events      chan session.Event
	unsubscribe func()

	scopes      []string
	scopeIdx    int
	debounce    time.Duration
	pending     int
	previewing  bool
	previewPath string
	status      string
	width       int
	height      int
}

func New(opts Options) Model {
	keys := newKeyMap()

	ti := textinput.New()
	ti.Placeholder = "Search the docs"
	ti.Prompt = "› "
	ti.CharLimit = 256
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedItemStyle
	delegate.Styles.SelectedDesc = selectedItemStyle

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	copyFn := opts.Copy
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = constants.DefaultDebounce
	}

	m := Model{
		session:  opts.Session,
		fetcher:  opts.Fetcher,
		copy:     copyFn,
		keys:     keys,
		input:    ti,
		spinner:  sp,
		list:     l,
		viewport: viewport.New(0, 0),
		events:   make(chan session.Event, 16),
		scopes:   opts.Scopes,
		debounce: debounce,
	}

	if m.session != nil {
		for i, s := range m.scopes {
			if s == m.session.Scope() {
				m.scopeIdx = i
			}
		}
		events := m.events
		m.unsubscribe = m.session.Subscribe(func(ev session.Event) {
			select {
			case events <- ev:
			default:
			}
		})
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForEvent())
}

// Close detaches the model from its session.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return sessionMsg{event: <-events}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h, v := appStyle.GetFrameSize()
		m.input.Width = msg.Width - h - 8
		m.list.SetSize(msg.Width-h, msg.Height-v-6)
		m.viewport.Width = msg.Width - h
		m.viewport.Height = msg.Height - v - 3
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sessionMsg:
		m.refresh()
		if msg.event == session.EventIndexed && m.session != nil {
			m.status = statusStyle(fmt.Sprintf("Indexed %d documents", m.session.DocumentCount()))
		}
		return m, m.waitForEvent()

	case debounceMsg:
		if msg.tag != m.pending || m.session == nil {
			return m, nil
		}
		m.session.SetTerm(m.input.Value())
		m.refresh()
		return m, nil

	case previewMsg:
		if msg.err != nil {
			m.status = statusStyle(fmt.Sprintf("Cannot open %s: %v", msg.path, msg.err))
			return m, nil
		}
		m.previewing = true
		m.previewPath = msg.path
		m.viewport.SetContent(msg.content)
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		if m.previewing {
			return m.updatePreview(msg)
		}
		return m.updateSearch(msg)
	}

	return m, nil
}

func (m Model) updatePreview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.previewing = false
		m.previewPath = ""
		return m, nil
	case key.Matches(msg, m.keys.copyPath):
		return m.copyPath(m.previewPath), nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		return m, tea.Quit

	case key.Matches(msg, m.keys.cycleScope):
		if m.session == nil || len(m.scopes) < 2 {
			return m, nil
		}
		m.scopeIdx = (m.scopeIdx + 1) % len(m.scopes)
		m.session.SetScope(m.scopes[m.scopeIdx])
		m.status = statusStyle("Scope: " + scopeLabel(m.scopes[m.scopeIdx]))
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.reindex):
		if m.session != nil {
			m.session.Reindex()
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.copyPath):
		if item, ok := m.list.SelectedItem().(resultItem); ok {
			return m.copyPath(item.result.Path), nil
		}
		return m, nil

	case key.Matches(msg, m.keys.open):
		item, ok := m.list.SelectedItem().(resultItem)
		if !ok {
			return m, nil
		}
		return m, m.loadPreview(item.result.Path)

	case key.Matches(msg, m.keys.up):
		m.list.CursorUp()
		return m, nil

	case key.Matches(msg, m.keys.down):
		m.list.CursorDown()
		return m, nil
	}

	if m.indexing() {
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before {
		return m, cmd
	}

	m.pending++
	tag := m.pending
	tick := tea.Tick(m.debounce, func(time.Time) tea.Msg {
		return debounceMsg{tag: tag}
	})
	return m, tea.Batch(cmd, tick)
}

func (m Model) copyPath(path string) Model {
	if path == "" {
		return m
	}
	if err := m.copy(path); err != nil {
		m.status = statusStyle(fmt.Sprintf("Copy failed: %v", err))
		return m
	}
	m.status = statusStyle("Copied " + path)
	return m
}

func (m Model) loadPreview(path string) tea.Cmd {
	f := m.fetcher
	width := m.viewport.Width
	if width <= 0 {
		width = render.DefaultWidth
	}
	return func() tea.Msg {
		if f == nil {
			return previewMsg{path: path, err: fmt.Errorf("no document fetcher configured")}
		}
		raw, err := f.Fetch(context.Background(), path)
		if err != nil {
			return previewMsg{path: path, err: err}
		}
		out, err := render.Terminal(raw, width)
		if err != nil {
			return previewMsg{path: path, err: err}
		}
		return previewMsg{path: path, content: out}
	}
}

// refresh mirrors the session results into the list.
func (m *Model) refresh() {
	if m.session == nil {
		return
	}
	term := m.session.Term()
	results := m.session.Results()
	items := make([]list.Item, 0, len(results))
	for _, r := range results {
		items = append(items, resultItem{result: r, term: term})
	}
	m.list.SetItems(items)
}

func (m Model) indexing() bool {
	return m.session != nil && m.session.IsIndexing()
}

func (m Model) scope() string {
	if m.session == nil {
		return ""
	}
	return m.session.Scope()
}

func (m Model) View() string {
	if m.previewing {
		footer := helpStyle.Render(fmt.Sprintf("%s · esc back · ctrl+y copy path · %3.f%%", m.previewPath, m.viewport.ScrollPercent()*100))
		return appStyle.Render(m.viewport.View() + "\n" + footer)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s · scope: %s", constants.AppName, scopeLabel(m.scope()))))
	b.WriteString("\n")

	if m.indexing() {
		b.WriteString(inputStyle.Render(m.spinner.View() + " Indexing " + scopeLabel(m.scope()) + "..."))
	} else {
		b.WriteString(inputStyle.Render(m.input.View()))
	}
	b.WriteString("\n")

	switch {
	case m.indexing():
	case len(m.list.Items()) == 0 && strings.TrimSpace(m.input.Value()) != "":
		b.WriteString(statusStyle("No results"))
		b.WriteString("\n")
	default:
		b.WriteString(m.list.View())
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n")
	}

	var help []string
	for _, k := range m.keys.shortHelp() {
		h := k.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	b.WriteString(helpStyle.Render(strings.Join(help, " · ")))
	return appStyle.Render(b.String())
}

func scopeLabel(scope string) string {
	if scope == "" {
		return "all"
	}
	return pathutil.DisplayName(scope)
}
