package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"timelinehub/internal/api"
	"timelinehub/internal/feed"
	"timelinehub/internal/search"
	"timelinehub/internal/subscription"
	"timelinehub/internal/tui/components"
	"timelinehub/internal/tui/styles"
	"timelinehub/pkg/models"
	"timelinehub/pkg/utils"
)

// FeedLoadedMsg signals a completed fetch
type FeedLoadedMsg struct {
	Err error
}

// MoreLoadedMsg signals a completed incremental load
type MoreLoadedMsg struct {
	Err error
}

// SearchAppliedMsg carries a debounced search query
type SearchAppliedMsg struct {
	Query string
}

// VerifyResultMsg carries a hash-chain verdict for the selected event
type VerifyResultMsg struct {
	ID       string
	Verified bool
	Err      error
}

// FeedModel renders the live activity feed
type FeedModel struct {
	feed      *feed.Feed
	apiClient *api.Client
	debouncer *search.Debouncer

	keys          KeyMap
	searchInput   textinput.Model
	searchFocused bool
	spin          components.Spinner

	cursor   int
	loading  bool
	showHelp bool

	connState subscription.ConnState
	verdict   string

	virtualizeRows  int
	forceVirtualize bool

	width  int
	height int
}

// NewFeedModel creates the feed view. Debounced search results are
// delivered through the program event channel as SearchAppliedMsg.
func NewFeedModel(f *feed.Feed, apiClient *api.Client, events chan<- tea.Msg, debounce time.Duration, virtualizeRows int, forceVirtualize bool) FeedModel {
	input := textinput.New()
	input.Placeholder = "Search activities..."
	input.CharLimit = 120
	input.Width = 40

	debouncer := search.New(debounce, func(query string) {
		select {
		case events <- SearchAppliedMsg{Query: query}:
		default:
		}
	})

	return FeedModel{
		feed:            f,
		apiClient:       apiClient,
		debouncer:       debouncer,
		keys:            DefaultKeyMap(),
		searchInput:     input,
		spin:            components.NewSpinner("Loading feed..."),
		virtualizeRows:  virtualizeRows,
		forceVirtualize: forceVirtualize,
	}
}

// Init triggers the initial fetch
func (m FeedModel) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(), m.spin.Tick())
}

// Close stops the debouncer timers
func (m FeedModel) Close() {
	m.debouncer.Stop()
}

// SearchFocused reports whether the search input is capturing keys
func (m FeedModel) SearchFocused() bool {
	return m.searchFocused
}

// SetConnState records the subscription state for the status bar
func (m *FeedModel) SetConnState(state subscription.ConnState) {
	m.connState = state
}

// Update handles messages for the feed view
func (m FeedModel) Update(msg tea.Msg) (FeedModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.searchInput.Width = min(m.width-20, 60)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case FeedLoadedMsg:
		m.loading = false
		m.clampCursor()
		return m, nil

	case MoreLoadedMsg:
		m.loading = false
		return m, nil

	case SearchAppliedMsg:
		criteria := m.feed.Filter()
		criteria.Search = msg.Query
		m.feed.SetFilter(criteria)
		m.loading = true
		m.cursor = 0
		return m, m.refreshCmd()

	case VerifyResultMsg:
		if msg.Err != nil {
			m.verdict = styles.ErrorStyle.Render("verify failed: " + msg.Err.Error())
		} else if msg.Verified {
			m.verdict = styles.InfoStyle.Render(fmt.Sprintf("✅ %s chain intact", msg.ID))
		} else {
			m.verdict = styles.ErrorStyle.Render(fmt.Sprintf("⚠️ %s chain broken", msg.ID))
		}
		return m, nil
	}

	if m.searchFocused {
		before := m.searchInput.Value()
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		if m.searchInput.Value() != before {
			m.debouncer.Set(m.searchInput.Value())
		}
		return m, cmd
	}

	var cmd tea.Cmd
	spinCmd := m.spin.Update(msg)
	return m, tea.Batch(cmd, spinCmd)
}

func (m FeedModel) handleKeyPress(msg tea.KeyMsg) (FeedModel, tea.Cmd) {
	if m.searchFocused {
		switch msg.String() {
		case "esc":
			m.searchFocused = false
			m.searchInput.Blur()
			m.searchInput.SetValue("")
			m.debouncer.Clear()
			return m, nil
		case "enter":
			m.searchFocused = false
			m.searchInput.Blur()
			return m, nil
		}
		before := m.searchInput.Value()
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		if m.searchInput.Value() != before {
			m.debouncer.Set(m.searchInput.Value())
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Back):
		m.showHelp = false
		m.verdict = ""
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.searchFocused = true
		m.searchInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Down):
		m.cursor++
		m.clampCursor()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.cursor--
		m.clampCursor()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		m.verdict = ""
		return m, m.refreshCmd()

	case key.Matches(msg, m.keys.LoadMore), key.Matches(msg, m.keys.PageDown):
		if m.feed.HasMore() {
			m.loading = true
			return m, m.fetchMoreCmd()
		}
		return m, nil

	case key.Matches(msg, m.keys.Verify):
		items := m.feed.Items()
		if m.cursor < len(items) {
			return m, m.verifyCmd(items[m.cursor].ResourceID)
		}
		return m, nil
	}

	return m, nil
}

func (m *FeedModel) clampCursor() {
	count := len(m.feed.Items())
	if m.cursor >= count {
		m.cursor = count - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m FeedModel) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := utils.WithLongTimeout(context.Background())
		defer cancel()
		return FeedLoadedMsg{Err: m.feed.Fetch(ctx)}
	}
}

func (m FeedModel) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := utils.WithLongTimeout(context.Background())
		defer cancel()
		return FeedLoadedMsg{Err: m.feed.Refresh(ctx)}
	}
}

func (m FeedModel) fetchMoreCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := utils.WithLongTimeout(context.Background())
		defer cancel()
		return MoreLoadedMsg{Err: m.feed.FetchMore(ctx)}
	}
}

func (m FeedModel) verifyCmd(eventID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := utils.WithTimeout(context.Background())
		defer cancel()
		verdict, err := m.apiClient.VerifyEvent(ctx, eventID)
		if err != nil {
			return VerifyResultMsg{ID: eventID, Err: err}
		}
		return VerifyResultMsg{ID: eventID, Verified: verdict.Verified}
	}
}

// View renders the feed
func (m FeedModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("📰 Activity Feed"))
	b.WriteString("  ")
	b.WriteString(m.statusBar())
	b.WriteString("\n\n")

	if m.searchFocused || m.searchInput.Value() != "" {
		style := styles.InputStyle
		if m.searchFocused {
			style = styles.InputFocusedStyle
		}
		b.WriteString(style.Render("🔍 " + m.searchInput.View()))
		if m.debouncer.IsSearching() {
			b.WriteString(styles.InfoStyle.Render("  searching..."))
		}
		b.WriteString("\n\n")
	}

	items := m.feed.Items()

	switch {
	case m.loading && len(items) == 0:
		b.WriteString(m.spin.View())
		b.WriteString("\n")
	case m.feed.Err() != nil:
		// Feed-level error: prior items stay visible below the banner.
		b.WriteString(styles.ErrorStyle.Render("⚠ " + m.feed.Err().Error()))
		b.WriteString("\n\n")
		b.WriteString(m.renderItems(items))
	case len(items) == 0:
		b.WriteString(styles.ListMetaStyle.Render("No activity yet."))
		b.WriteString("\n")
	default:
		b.WriteString(m.renderItems(items))
	}

	if m.verdict != "" {
		b.WriteString("\n")
		b.WriteString(m.verdict)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.footer(len(items)))
	return b.String()
}

// renderItems draws either the full list or, for large sets, a
// virtualized window around the cursor.
func (m FeedModel) renderItems(items []models.Activity) string {
	visible := m.visibleRows()
	start, end := 0, len(items)

	if feed.ShouldVirtualize(len(items), m.virtualizeRows, m.forceVirtualize) {
		start = m.cursor - visible/2
		if start < 0 {
			start = 0
		}
		end = start + visible
		if end > len(items) {
			end = len(items)
			start = end - visible
			if start < 0 {
				start = 0
			}
		}
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(m.renderItem(items[i], i == m.cursor))
		b.WriteString("\n")
	}
	if end < len(items) {
		b.WriteString(styles.ListMetaStyle.Render(fmt.Sprintf("  … %d more below", len(items)-end)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m FeedModel) renderItem(a models.Activity, selected bool) string {
	marker := styles.PriorityStyle(a.Priority).Render("●")
	line := fmt.Sprintf("%s %s %s %s",
		marker,
		utils.FormatTimestamp(a.Timestamp),
		a.Action,
		utils.Truncate(a.ResourceName, 40),
	)
	if a.Description != "" {
		line += "  " + styles.ListMetaStyle.Render(utils.Truncate(a.Description, 50))
	}
	if selected {
		return styles.ListItemSelectedStyle.Render(line)
	}
	return styles.ListItemStyle.Render(line)
}

func (m FeedModel) statusBar() string {
	var style = styles.StatusBarStyle
	switch m.connState {
	case subscription.StateConnected:
		style = styles.StatusConnectedStyle
	case subscription.StateReconnecting, subscription.StateConnecting:
		style = styles.StatusDegradedStyle
	case subscription.StateClosed:
		style = styles.StatusClosedStyle
	}
	return style.Render("⇅ " + m.connState.String())
}

func (m FeedModel) footer(shown int) string {
	if m.showHelp {
		return m.fullHelp()
	}
	parts := []string{
		fmt.Sprintf("%d/%d activities", shown, m.feed.Total()),
	}
	if !m.feed.LastFetch().IsZero() {
		parts = append(parts, "updated "+utils.TimeAgo(m.feed.LastFetch()))
	}
	for _, b := range m.keys.ShortHelp() {
		parts = append(parts, helpEntry(b))
	}
	parts = append(parts, helpEntry(m.keys.Help))
	return styles.ListMetaStyle.Render(strings.Join(parts, " · "))
}

func helpEntry(b key.Binding) string {
	return b.Help().Key + ": " + b.Help().Desc
}

func (m FeedModel) fullHelp() string {
	var b strings.Builder
	b.WriteString(styles.SubtitleStyle.Render("Key bindings"))
	for _, row := range m.keys.FullHelp() {
		b.WriteString("\n")
		entries := make([]string, 0, len(row))
		for _, binding := range row {
			entries = append(entries, helpEntry(binding))
		}
		b.WriteString(styles.ListMetaStyle.Render(strings.Join(entries, "   ")))
	}
	return b.String()
}

func (m FeedModel) visibleRows() int {
	rows := m.height - 8
	if rows < 5 {
		rows = 20
	}
	return rows
}
