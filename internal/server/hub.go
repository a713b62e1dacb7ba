package server

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/theirongolddev/oafund/internal/fund"
)

// Hub keeps the most recent events in a ring buffer and fans new ones out
// to stream subscribers. Slow subscribers miss events rather than block
// publishers.
type Hub struct {
	size int

	mu        sync.RWMutex
	nextID    int64
	events    []fund.Event
	nextSubID int
	subs      map[int]chan fund.Event

	published   prometheus.Counter
	subscribers prometheus.Gauge
}

// NewHub returns a Hub retaining up to size events.
func NewHub(size int) *Hub {
	if size < 1 {
		size = 200
	}
	return &Hub{
		size: size,
		subs: make(map[int]chan fund.Event),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "oafund",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of request and ledger events published.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "oafund",
			Subsystem: "events",
			Name:      "subscribers",
			Help:      "Current number of event stream subscribers.",
		}),
	}
}

// Publish assigns the next event id, stores ev and forwards it to every
// subscriber that has room.
func (h *Hub) Publish(ev fund.Event) {
	h.mu.Lock()
	h.nextID++
	ev.ID = h.nextID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	h.events = append(h.events, ev)
	if len(h.events) > h.size {
		h.events = h.events[len(h.events)-h.size:]
	}

	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	h.mu.Unlock()
	h.published.Inc()
}

// Since returns retained events with an id greater than after, oldest first.
func (h *Hub) Since(after int64) []fund.Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]fund.Event, 0, len(h.events))
	for _, ev := range h.events {
		if ev.ID > after {
			out = append(out, ev)
		}
	}
	return out
}

// Counts returns the number of retained events and current subscribers.
func (h *Hub) Counts() (events, subscribers int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events), len(h.subs)
}

// Subscribe registers a channel for new events. Call the returned
// function to unsubscribe.
func (h *Hub) Subscribe(buffer int) (<-chan fund.Event, func()) {
	ch := make(chan fund.Event, buffer)

	h.mu.Lock()
	h.nextSubID++
	id := h.nextSubID
	h.subs[id] = ch
	h.mu.Unlock()
	h.subscribers.Inc()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			h.subscribers.Dec()
		}
	}
}

func (h *Hub) collectors() []prometheus.Collector {
	return []prometheus.Collector{h.published, h.subscribers}
}
