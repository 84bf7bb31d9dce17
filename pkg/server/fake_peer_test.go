package server

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// fakePeer captures pushed events for assertions.
type fakePeer struct {
	mu     sync.Mutex
	events []pushedEvent
	refuse bool
}

type pushedEvent struct {
	event   string
	payload any
}

func (p *fakePeer) Push(event string, payload any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refuse {
		return false
	}
	p.events = append(p.events, pushedEvent{event, payload})
	return true
}

func (p *fakePeer) all() []pushedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pushedEvent(nil), p.events...)
}

func (p *fakePeer) of(event string) []pushedEvent {
	var out []pushedEvent
	for _, e := range p.all() {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func newTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
