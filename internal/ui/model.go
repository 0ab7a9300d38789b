// Package ui renders the news stream as a bubbletea TUI, driven by
// events from the refresh loop.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/newsdesk/internal/live"
	"github.com/abelbrown/newsdesk/internal/logging"
	"github.com/abelbrown/newsdesk/internal/news"
	"github.com/abelbrown/newsdesk/internal/recency"
	"github.com/abelbrown/newsdesk/internal/store"
	"github.com/abelbrown/newsdesk/internal/vlist"
)

// rowHeight is the rendered height of one item in terminal lines.
const rowHeight = 2

const chromeLines = 3

// Model is the root bubbletea model.
type Model struct {
	loop   *live.Loop
	subID  string
	events <-chan live.Event
	db     *store.Store
	window time.Duration

	allItems []news.Item
	items    []news.Item
	fallback bool
	status   live.Status
	lastErr  string

	search    textinput.Model
	searching bool

	virt    *vlist.Virtualizer
	tracker *vlist.ScrollTracker
	scroll  float64
	cursor  int

	bookmarked map[string]bool

	width   int
	height  int
	spin    spinner.Model
	loading bool
}

// NewModel creates the root model. The loop must already have been
// started by the caller.
func NewModel(loop *live.Loop, db *store.Store, window time.Duration) Model {
	id, events := loop.SubscribeAuto()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	search := textinput.New()
	search.Placeholder = "search titles"
	search.Prompt = "/"
	search.CharLimit = 80

	bookmarked := make(map[string]bool)
	if db != nil {
		if marks, err := db.Bookmarks(); err == nil {
			for _, b := range marks {
				bookmarked[b.URL] = true
			}
		} else {
			logging.Warn("loading bookmarks failed", "error", err)
		}
	}

	return Model{
		loop:       loop,
		subID:      id,
		events:     events,
		db:         db,
		window:     window,
		virt:       vlist.New(0, vlist.Config{DefaultSize: rowHeight, Overscan: 4}),
		search:     search,
		tracker:    &vlist.ScrollTracker{},
		bookmarked: bookmarked,
		spin:       sp,
		loading:    true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, waitForEvent(m.events))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ensureVisible()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.FocusMsg:
		m.loop.SetVisible(true)
		return m, nil

	case tea.BlurMsg:
		m.loop.SetVisible(false)
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case loopEventMsg:
		m.applyEvent(msg.event)
		return m, waitForEvent(m.events)

	case eventsClosedMsg:
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.handleSearchKey(msg)
	}

	switch msg.String() {
	case "/":
		m.searching = true
		m.search.Focus()
		return m, textinput.Blink
	case "q", "ctrl+c":
		m.loop.Unsubscribe(m.subID)
		return m, tea.Quit

	case "r":
		m.loading = true
		m.loop.TriggerManualUpdate()
		return m, m.spin.Tick

	case "b":
		m.toggleBookmark()
		return m, nil

	case "up", "k":
		m.moveCursor(-1)
		return m, nil

	case "down", "j":
		m.moveCursor(1)
		return m, nil

	case "pgup":
		m.moveCursor(-m.visibleRows())
		return m, nil

	case "pgdown":
		m.moveCursor(m.visibleRows())
		return m, nil

	case "g", "home":
		m.cursor = 0
		m.scroll = 0
		m.tracker.Touch()
		return m, nil

	case "G", "end":
		m.moveCursor(len(m.items))
		return m, nil

	case "esc":
		if m.search.Value() != "" {
			m.search.SetValue("")
			m.applySearch()
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.applySearch()
		return m, nil

	case "enter":
		m.searching = false
		m.search.Blur()
		if q := strings.TrimSpace(m.search.Value()); q != "" && m.db != nil {
			if err := m.db.RecordSearch(q); err != nil {
				logging.Warn("recording search failed", "error", err)
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.applySearch()
	return m, cmd
}

// applySearch refreshes the visible list from the recency-filtered
// items and the active query.
func (m *Model) applySearch() {
	query := strings.ToLower(strings.TrimSpace(m.search.Value()))
	if query == "" {
		m.items = m.allItems
	} else {
		matched := make([]news.Item, 0, len(m.allItems))
		for _, item := range m.allItems {
			if strings.Contains(strings.ToLower(item.Title), query) ||
				strings.Contains(strings.ToLower(item.SourceName), query) {
				matched = append(matched, item)
			}
		}
		m.items = matched
	}

	m.virt.Reset(len(m.items))
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.ensureVisible()
}

func (m *Model) applyEvent(e live.Event) {
	switch e.Type {
	case live.EventNews:
		if e.Snapshot == nil {
			return
		}
		m.loading = false
		m.lastErr = ""

		filtered := recency.Filter(e.Snapshot.Items, m.window)
		m.fallback = false
		if len(filtered) == 0 && len(e.Snapshot.Items) > 0 {
			filtered = recency.Fallback(e.Snapshot.Items, recency.FallbackCount)
			m.fallback = true
		}
		m.allItems = filtered
		m.applySearch()

	case live.EventStatus:
		if e.Status != nil {
			m.status = *e.Status
			if m.status.State == live.StateConnected {
				m.loading = false
			}
		}

	case live.EventError:
		m.loading = false
		m.lastErr = e.Err
	}
}

func (m *Model) toggleBookmark() {
	if m.db == nil || m.cursor >= len(m.items) {
		return
	}
	item := m.items[m.cursor]
	if item.URL == "" {
		return
	}

	if m.bookmarked[item.URL] {
		if err := m.db.RemoveBookmark(item.URL); err != nil {
			logging.Warn("removing bookmark failed", "url", item.URL, "error", err)
			return
		}
		delete(m.bookmarked, item.URL)
		return
	}
	if err := m.db.SaveBookmark(item); err != nil {
		logging.Warn("saving bookmark failed", "url", item.URL, "error", err)
		return
	}
	m.bookmarked[item.URL] = true
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor > len(m.items)-1 {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.tracker.Touch()
	m.ensureVisible()
}

func (m *Model) visibleRows() int {
	rows := (m.height - chromeLines) / rowHeight
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *Model) viewportLines() float64 {
	lines := m.height - chromeLines
	if lines < rowHeight {
		lines = rowHeight
	}
	return float64(lines)
}

// ensureVisible scrolls the minimum amount needed to keep the cursor
// row inside the viewport.
func (m *Model) ensureVisible() {
	top := float64(m.cursor) * rowHeight
	bottom := top + rowHeight
	viewport := m.viewportLines()

	if top < m.scroll {
		m.scroll = top
	}
	if bottom > m.scroll+viewport {
		m.scroll = bottom - viewport
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.listView())
	b.WriteString("\n")
	if m.searching {
		b.WriteString(m.search.View())
	} else {
		b.WriteString(helpStyle.Render("↑/↓ move · r refresh · b bookmark · / search · q quit"))
	}

	return b.String()
}

func (m Model) headerView() string {
	title := headerStyle.Render("newsdesk")

	var status string
	switch {
	case m.loading:
		status = m.spin.View() + " refreshing"
	case m.lastErr != "":
		status = statusBadStyle.Render("✗ " + m.lastErr)
	case m.status.Connected:
		status = statusOKStyle.Render("● live")
	case m.status.State == live.StateRetrying:
		status = statusBadStyle.Render(fmt.Sprintf("◌ retrying (%d)", m.status.RetryCount))
	default:
		status = metaStyle.Render("○ " + string(m.status.State))
	}

	label := fmt.Sprintf("%d items", len(m.items))
	if m.fallback {
		label += " (older than window)"
	}
	if q := strings.TrimSpace(m.search.Value()); q != "" {
		label += " · filter: " + q
	}
	count := metaStyle.Render(label)

	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", status, "  ", count)
}

func (m Model) listView() string {
	if len(m.items) == 0 {
		if m.loading {
			return metaStyle.Render("fetching sources…")
		}
		return metaStyle.Render("no stories yet")
	}

	viewport := m.viewportLines()
	window := m.virt.Window(m.scroll, viewport)
	if len(window) == 0 {
		return ""
	}

	var lines []string
	for _, vi := range window {
		lines = append(lines, m.renderItem(vi.Index)...)
	}

	// Trim partially visible rows at both edges.
	skip := int(m.scroll - window[0].Start)
	if skip < 0 {
		skip = 0
	}
	if skip > len(lines) {
		skip = len(lines)
	}
	lines = lines[skip:]
	if limit := int(viewport); len(lines) > limit {
		lines = lines[:limit]
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderItem(index int) []string {
	item := m.items[index]

	title := item.Title
	if title == "" {
		title = item.URL
	}
	if runes := []rune(title); m.width > 4 && len(runes) > m.width-4 {
		title = string(runes[:m.width-4]) + "…"
	}

	marker := "  "
	if m.bookmarked[item.URL] {
		marker = bookmarkStyle.Render("★ ")
	}

	titleLine := marker + titleStyle.Render(title)
	if index == m.cursor {
		titleLine = marker + selectedStyle.Render(title)
	}

	meta := fmt.Sprintf("  %s · %s",
		categoryStyle(item.Category).Render(item.Category),
		item.SourceName)
	if item.PublishedDisplay != "" {
		meta += metaStyle.Render(" · " + item.PublishedDisplay)
	}

	return []string{titleLine, meta}
}

// Items exposes the rendered item list.
func (m Model) Items() []news.Item {
	return m.items
}

// Cursor exposes the selected index.
func (m Model) Cursor() int {
	return m.cursor
}
