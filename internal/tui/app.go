package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"timelinehub/internal/api"
	"timelinehub/internal/feed"
	"timelinehub/internal/notify"
	"timelinehub/internal/subscription"
	"timelinehub/internal/tui/components"
	"timelinehub/internal/tui/config"
	"timelinehub/internal/tui/styles"
	"timelinehub/internal/tui/views"
	"timelinehub/pkg/models"
)

// Messages bridged from subscription goroutines into the program.
type (
	activityCreatedMsg struct{ activity models.Activity }
	activityUpdatedMsg struct{ activity models.Activity }
	activityRemovedMsg struct{ id string }
	streamErrMsg       struct{ err error }
	connStateMsg       struct{ state subscription.ConnState }
)

// Model is the root dashboard model
type Model struct {
	cfg *config.Config

	// events carries messages produced outside the program loop:
	// subscription callbacks, debounced search results, toast sinks.
	events chan tea.Msg

	keys       views.KeyMap
	feed       *feed.Feed
	feedView   views.FeedModel
	toasts     components.ToastStack
	sub        *subscription.Subscription
	dispatcher *notify.Dispatcher

	prefs notify.Preferences

	width  int
	height int
}

// NewModel wires the feed, subscription and notification pipeline
func NewModel(cfg *config.Config) Model {
	events := make(chan tea.Msg, 64)

	client := api.NewClient(cfg.Server.HTTP.BaseURL)
	f := feed.New(client, cfg.Feed.PageSize)

	prefs := notify.Preferences{
		Enabled:       cfg.Notify.Enabled,
		Actions:       cfg.Notify.Actions,
		ResourceTypes: cfg.Notify.ResourceTypes,
	}
	if cfg.Notify.DurationMS > 0 {
		d := time.Duration(cfg.Notify.DurationMS) * time.Millisecond
		prefs.Duration = &d
	}
	dispatcher := notify.NewDispatcher(components.NewSink(events), prefs)

	sub := subscription.New(subscription.Config{
		URL:          cfg.Server.WS.URL,
		BaseInterval: time.Duration(cfg.Feed.ReconnectBaseSec) * time.Second,
		MaxDelay:     time.Duration(cfg.Feed.ReconnectMaxSec) * time.Second,
		MaxAttempts:  cfg.Feed.ReconnectAttempts,
	}, subscription.Handlers{
		OnActivityCreated: func(a models.Activity) { events <- activityCreatedMsg{activity: a} },
		OnActivityUpdated: func(a models.Activity) { events <- activityUpdatedMsg{activity: a} },
		OnActivityRemoved: func(id string) { events <- activityRemovedMsg{id: id} },
		OnError:           func(err error) { events <- streamErrMsg{err: err} },
		OnStateChange:     func(s subscription.ConnState) { events <- connStateMsg{state: s} },
	})

	debounce := time.Duration(cfg.Feed.DebounceMS) * time.Millisecond
	feedView := views.NewFeedModel(f, client, events, debounce, cfg.Feed.VirtualizeRows, cfg.Feed.ForceVirtualize)

	return Model{
		cfg:        cfg,
		keys:       views.DefaultKeyMap(),
		events:     events,
		feed:       f,
		feedView:   feedView,
		toasts:     components.NewToastStack(3),
		sub:        sub,
		dispatcher: dispatcher,
		prefs:      prefs,
	}
}

// Init starts the initial fetch and opens the stream
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.feedView.Init(),
		m.connectCmd(),
		m.waitForEvent(),
	)
}

func (m Model) connectCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.sub.Connect(); err != nil {
			return streamErrMsg{err: err}
		}
		return nil
	}
}

// waitForEvent pumps one out-of-band message into the program loop.
// It is re-armed every time one of those messages is handled.
func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

// Update routes messages to the feed view and toast stack
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		var cmd tea.Cmd
		m.feedView, cmd = m.feedView.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		// ctrl+c always quits; printable bindings defer to the search input
		if key.Matches(msg, m.keys.Quit) && (msg.String() == "ctrl+c" || !m.searchActive()) {
			return m, m.shutdown()
		}
		if key.Matches(msg, m.keys.Mute) && !m.searchActive() {
			m.prefs.Enabled = !m.prefs.Enabled
			m.dispatcher.SetPreferences(m.prefs)
			return m, nil
		}
		var cmd tea.Cmd
		m.feedView, cmd = m.feedView.Update(msg)
		return m, cmd

	case connStateMsg:
		m.feedView.SetConnState(msg.state)
		return m, m.waitForEvent()

	case activityCreatedMsg:
		// A live activity joins the feed only when it matches the
		// active filter; notifications are gated separately.
		if feed.Matches(msg.activity, m.feed.Filter()) {
			m.feed.AddActivity(msg.activity)
		}
		m.dispatcher.Dispatch(msg.activity)
		return m, m.waitForEvent()

	case activityUpdatedMsg:
		m.feed.ReplaceActivity(msg.activity)
		return m, m.waitForEvent()

	case activityRemovedMsg:
		m.feed.RemoveActivity(msg.id)
		return m, m.waitForEvent()

	case streamErrMsg:
		var cmd tea.Cmd
		m.toasts, cmd = m.toasts.Update(components.ToastMsg{Toast: components.Toast{
			Title:       "⚠ Stream error",
			Description: msg.err.Error(),
			Duration:    5 * time.Second,
		}})
		return m, tea.Batch(cmd, m.waitForEvent())

	case views.SearchAppliedMsg:
		var cmd tea.Cmd
		m.feedView, cmd = m.feedView.Update(msg)
		// Keep the server-side subscription filter in sync so the
		// stream only delivers matching activities.
		m.sub.Subscribe(m.feed.Filter())
		return m, tea.Batch(cmd, m.waitForEvent())

	case components.ToastMsg:
		var cmd tea.Cmd
		m.toasts, cmd = m.toasts.Update(msg)
		return m, tea.Batch(cmd, m.waitForEvent())

	default:
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.feedView, cmd = m.feedView.Update(msg)
		cmds = append(cmds, cmd)
		m.toasts, cmd = m.toasts.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}
}

func (m Model) searchActive() bool {
	return m.feedView.SearchFocused()
}

func (m Model) shutdown() tea.Cmd {
	m.sub.Disconnect()
	m.feedView.Close()
	return tea.Quit
}

// View renders the dashboard
func (m Model) View() string {
	out := m.feedView.View()
	if toast := m.toasts.View(); toast != "" {
		out += "\n" + toast
	}
	return styles.AppStyle.Render(out)
}
