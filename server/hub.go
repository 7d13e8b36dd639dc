package server

import (
	"sync"

	"cleanbot/server/fastview"
)

// hub copies every batch of ele-updates to each subscribed page. A subscriber that has not
// taken its previous batch gets the two merged into one, so a slow page skips intermediate
// values but never ends on a stale one.
type hub struct {
	mu          sync.Mutex
	subscribers map[int]chan []fastview.EleUpdate
	nextID      int
}

// newHub starts draining updates, which it does whether or not anyone is subscribed
// so that training is never blocked on the views.
func newHub(done <-chan struct{}, updates <-chan []fastview.EleUpdate) *hub {
	h := &hub{
		subscribers: map[int]chan []fastview.EleUpdate{},
	}
	go h.run(done, updates)
	return h
}

func (h *hub) run(done <-chan struct{}, updates <-chan []fastview.EleUpdate) {
	defer h.closeAll()
	for {
		select {
		case <-done:
			return
		case batch, ok := <-updates:
			if !ok {
				return
			}
			h.broadcast(batch)
		}
	}
}

func (h *hub) broadcast(batch []fastview.EleUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subscribers {
		offer(sub, batch)
	}
}

// offer puts batch in sub without blocking, merging it with a batch still waiting there.
// The hub is the only sender, so once the waiting batch is taken back the send succeeds.
func offer(sub chan []fastview.EleUpdate, batch []fastview.EleUpdate) {
	select {
	case sub <- batch:
		return
	default:
	}
	select {
	case waiting := <-sub:
		batch = fastview.Coalesce(waiting, batch)
	default:
		// The subscriber took it in the meantime.
	}
	sub <- batch
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subscribers {
		close(sub)
		delete(h.subscribers, id)
	}
	h.subscribers = nil
}

// subscribe returns a channel of update batches and a func ending the subscription.
// Once the hub has stopped, the returned channel is closed.
func (h *hub) subscribe() (<-chan []fastview.EleUpdate, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := make(chan []fastview.EleUpdate, 1)
	if h.subscribers == nil {
		close(sub)
		return sub, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subscribers[id] = sub

	return sub, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if s, ok := h.subscribers[id]; ok {
			close(s)
			delete(h.subscribers, id)
		}
	}
}

// count returns the number of current subscribers.
func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
