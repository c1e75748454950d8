package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/msomdec/yappaholic/internal/domain"
)

// SessionHub is a registry of session-change listeners. Any number of
// listeners may be registered; each sees every event in publish order.
type SessionHub struct {
	mu        sync.Mutex
	listeners map[chan domain.SessionEvent]struct{}
}

func NewSessionHub() *SessionHub {
	return &SessionHub{listeners: make(map[chan domain.SessionEvent]struct{})}
}

// Listen registers a listener until ctx is done, then closes its channel.
func (h *SessionHub) Listen(ctx context.Context) <-chan domain.SessionEvent {
	ch := make(chan domain.SessionEvent, 16)

	h.mu.Lock()
	h.listeners[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.listeners[ch]; ok {
			delete(h.listeners, ch)
			close(ch)
		}
	}()

	return ch
}

// Publish notifies every listener. A listener whose buffer is full is
// unregistered and its channel closed.
func (h *SessionHub) Publish(ev domain.SessionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.listeners {
		select {
		case ch <- ev:
		default:
			slog.Warn("dropping slow session listener", "kind", ev.Kind)
			delete(h.listeners, ch)
			close(ch)
		}
	}
}
