package sim

import (
	"sync"

	"gaugecode-go/services/hal/core"
	"gaugecode-go/x/timex"
)

// Pin is a simulated GPIO line. External stimulus (the gauge's ALRT#, a
// test) drives it with Drive; claimed handles observe it through the
// core.GPIOHandle interface and edge streams.
type Pin struct {
	mu    sync.Mutex
	n     int
	level bool
	subs  []*edgeStream
}

// Drive sets the line level and dispatches edges to subscribers.
func (p *Pin) Drive(level bool) {
	p.mu.Lock()
	if p.level == level {
		p.mu.Unlock()
		return
	}
	p.level = level
	subs := make([]*edgeStream, len(p.subs))
	copy(subs, p.subs)
	p.mu.Unlock()

	for _, s := range subs {
		s.dispatch(p.n, level)
	}
}

// Level reports the current line level.
func (p *Pin) Level() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *Pin) attach(s *edgeStream) {
	p.mu.Lock()
	p.subs = append(p.subs, s)
	p.mu.Unlock()
}

func (p *Pin) detach(s *edgeStream) {
	p.mu.Lock()
	for i, x := range p.subs {
		if x == s {
			p.subs = append(p.subs[:i], p.subs[i+1:]...)
			break
		}
	}
	p.mu.Unlock()
	s.close()
}

// ---- core.GPIOHandle ----

type pinHandle struct{ p *Pin }

func (h pinHandle) Number() int                    { return h.p.n }
func (h pinHandle) ConfigureInput(core.Pull) error { return nil }
func (h pinHandle) ConfigureOutput(bool) error     { return nil }
func (h pinHandle) Set(level bool)                 { h.p.Drive(level) }
func (h pinHandle) Get() bool                      { return h.p.Level() }

// ---- core.GPIOEdgeStream ----

type edgeStream struct {
	mu     sync.Mutex
	ch     chan core.GPIOEdgeEvent
	edge   core.Edge
	closed bool
}

func newEdgeStream(edge core.Edge, qlen int) *edgeStream {
	if qlen <= 0 {
		qlen = 8
	}
	return &edgeStream{ch: make(chan core.GPIOEdgeEvent, qlen), edge: edge}
}

func (s *edgeStream) Events() <-chan core.GPIOEdgeEvent { return s.ch }

func (s *edgeStream) Close() { s.close() }

func (s *edgeStream) close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	s.mu.Unlock()
}

func (s *edgeStream) dispatch(pin int, level bool) {
	switch s.edge {
	case core.EdgeRising:
		if !level {
			return
		}
	case core.EdgeFalling:
		if level {
			return
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- core.GPIOEdgeEvent{Pin: pin, Level: level, TSms: timex.NowMs()}:
	default:
		// queue full: drop; ALRT# is level-latched, consumers recover
	}
}
