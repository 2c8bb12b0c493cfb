package components

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"timelinehub/internal/tui/styles"
)

// Toast is one transient notification
type Toast struct {
	Title       string
	Description string
	// Duration of 0 means the toast never auto-dismisses.
	Duration time.Duration

	expiresAt time.Time
}

// ToastMsg carries a new toast into the program
type ToastMsg struct {
	Toast Toast
}

// toastExpiredMsg prunes expired toasts
type toastExpiredMsg struct{}

// ToastStack holds currently visible toasts, newest last
type ToastStack struct {
	toasts []Toast
	max    int
}

// NewToastStack creates a stack showing at most max toasts
func NewToastStack(max int) ToastStack {
	if max <= 0 {
		max = 3
	}
	return ToastStack{max: max}
}

// Update handles toast arrival and expiry
func (t ToastStack) Update(msg tea.Msg) (ToastStack, tea.Cmd) {
	switch msg := msg.(type) {
	case ToastMsg:
		toast := msg.Toast
		if toast.Duration > 0 {
			toast.expiresAt = time.Now().Add(toast.Duration)
		}
		t.toasts = append(t.toasts, toast)
		if len(t.toasts) > t.max {
			t.toasts = t.toasts[len(t.toasts)-t.max:]
		}
		if toast.Duration > 0 {
			return t, tea.Tick(toast.Duration, func(time.Time) tea.Msg {
				return toastExpiredMsg{}
			})
		}
		return t, nil

	case toastExpiredMsg:
		now := time.Now()
		kept := t.toasts[:0]
		for _, toast := range t.toasts {
			if toast.expiresAt.IsZero() || toast.expiresAt.After(now) {
				kept = append(kept, toast)
			}
		}
		t.toasts = kept
		return t, nil
	}

	return t, nil
}

// View renders the visible toasts, one per line
func (t ToastStack) View() string {
	if len(t.toasts) == 0 {
		return ""
	}
	out := ""
	for _, toast := range t.toasts {
		line := toast.Title
		if toast.Description != "" {
			line += " · " + toast.Description
		}
		out += styles.ToastStyle.Render(line) + "\n"
	}
	return out
}

// Sink adapts the toast stack to the notification dispatcher: Show
// pushes a ToastMsg into the program's event channel. Fire-and-forget;
// a full channel drops the toast rather than blocking the dispatcher.
type Sink struct {
	ch chan<- tea.Msg
}

// NewSink creates a sink feeding the given program channel
func NewSink(ch chan<- tea.Msg) *Sink {
	return &Sink{ch: ch}
}

// Show implements notify.Sink
func (s *Sink) Show(title, description string, duration time.Duration) {
	select {
	case s.ch <- ToastMsg{Toast: Toast{Title: title, Description: description, Duration: duration}}:
	default:
	}
}
