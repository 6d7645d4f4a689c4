// Package notify carries payload-less "upload completed" events from the
// pipeline to the presentation layer. Listeners re-fetch whatever they
// display; the event only says that something changed for a target.
package notify

import "sync"

// Hub is an in-process publish/subscribe fan-out keyed by target name.
// Publishing never blocks: a subscriber that is not draining its channel
// misses the ping and catches up on the next one.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan struct{}]struct{})}
}

// Subscribe registers for events of one target. The returned cancel func
// removes the subscription and closes the channel.
func (h *Hub) Subscribe(target string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	if h.subs[target] == nil {
		h.subs[target] = make(map[chan struct{}]struct{})
	}
	h.subs[target][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[target]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish notifies all subscribers of target.
func (h *Hub) Publish(target string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[target] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
