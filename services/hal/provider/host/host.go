//go:build linux

// Package host backs the HAL resource registry with real Linux buses via
// periph.io: /dev/i2c-* adapters and sysfs/gpiochip pins.
package host

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"gaugecode-go/services/hal/core"
	"gaugecode-go/x/timex"
)

// Registry implements core.ResourceRegistry on top of periph.io.
type Registry struct {
	mu        sync.Mutex
	buses     map[core.ResourceID]i2c.BusCloser
	i2cClaims map[core.ResourceID]string
	pinClaims map[int]string
	pumps     map[int]*edgePump
}

var _ core.ResourceRegistry = (*Registry)(nil)

// NewRegistry initialises the periph host drivers.
func NewRegistry() (*Registry, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	return &Registry{
		buses:     map[core.ResourceID]i2c.BusCloser{},
		i2cClaims: map[core.ResourceID]string{},
		pinClaims: map[int]string{},
		pumps:     map[int]*edgePump{},
	}, nil
}

// Close releases all opened buses.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for id, b := range r.buses {
		if err := b.Close(); err != nil && first == nil {
			first = err
		}
		delete(r.buses, id)
	}
	return first
}

// ---- I2C ----

type busOwner struct{ bus i2c.Bus }

// Tx delegates to the kernel adapter; the ioctl has its own timeout
// policy, so timeoutMS is advisory here.
func (o busOwner) Tx(addr uint16, w, r []byte, _ int) error {
	return o.bus.Tx(addr, w, r)
}

// ClaimI2C opens a bus by periph name ("" selects the first adapter,
// "1" or "/dev/i2c-1" select explicitly).
func (r *Registry) ClaimI2C(devID string, id core.ResourceID) (core.I2COwner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, held := r.i2cClaims[id]; held && owner != devID {
		return nil, core.ErrBusInUse
	}
	b, ok := r.buses[id]
	if !ok {
		opened, err := i2creg.Open(string(id))
		if err != nil {
			return nil, core.ErrUnknownBus
		}
		r.buses[id] = opened
		b = opened
	}
	r.i2cClaims[id] = devID
	return busOwner{bus: b}, nil
}

func (r *Registry) ReleaseI2C(devID string, id core.ResourceID) {
	r.mu.Lock()
	if r.i2cClaims[id] == devID {
		delete(r.i2cClaims, id)
	}
	r.mu.Unlock()
}

// ---- GPIO ----

type pinHandle struct{ p gpio.PinIO }

func (h pinHandle) Number() int { return h.p.Number() }

func (h pinHandle) ConfigureInput(pull core.Pull) error {
	return h.p.In(toPull(pull), gpio.NoEdge)
}

func (h pinHandle) ConfigureOutput(initial bool) error {
	return h.p.Out(gpio.Level(initial))
}

func (h pinHandle) Set(level bool) { _ = h.p.Out(gpio.Level(level)) }
func (h pinHandle) Get() bool      { return bool(h.p.Read()) }

func toPull(p core.Pull) gpio.Pull {
	switch p {
	case core.PullUp:
		return gpio.PullUp
	case core.PullDown:
		return gpio.PullDown
	default:
		return gpio.Float
	}
}

func (r *Registry) ClaimPin(devID string, pin int) (core.GPIOHandle, error) {
	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
	if p == nil {
		return nil, core.ErrUnknownPin
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, held := r.pinClaims[pin]; held && owner != devID {
		return nil, core.ErrPinInUse
	}
	r.pinClaims[pin] = devID
	return pinHandle{p: p}, nil
}

func (r *Registry) ReleasePin(devID string, pin int) {
	r.mu.Lock()
	if r.pinClaims[pin] == devID {
		delete(r.pinClaims, pin)
	}
	r.mu.Unlock()
}

// ---- Edge streams ----

// edgePump turns periph's blocking WaitForEdge into a channel.
type edgePump struct {
	ch   chan core.GPIOEdgeEvent
	done chan struct{}
	once sync.Once
}

func (e *edgePump) Events() <-chan core.GPIOEdgeEvent { return e.ch }
func (e *edgePump) Close()                            { e.once.Do(func() { close(e.done) }) }

func (r *Registry) SubscribeGPIOEdges(devID string, pin int, edge core.Edge, debounce time.Duration, qlen int) (core.GPIOEdgeStream, error) {
	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
	if p == nil {
		return nil, core.ErrUnknownPin
	}
	if err := p.In(gpio.PullUp, toEdge(edge)); err != nil {
		return nil, core.ErrUnknownPin
	}
	if qlen <= 0 {
		qlen = 8
	}
	pump := &edgePump{
		ch:   make(chan core.GPIOEdgeEvent, qlen),
		done: make(chan struct{}),
	}

	r.mu.Lock()
	r.pumps[pin] = pump
	r.mu.Unlock()

	go func() {
		defer close(pump.ch)
		var last time.Time
		for {
			select {
			case <-pump.done:
				return
			default:
			}
			// Bounded wait so Close() is honoured promptly.
			if !p.WaitForEdge(250 * time.Millisecond) {
				continue
			}
			now := time.Now()
			if debounce > 0 && now.Sub(last) < debounce {
				continue
			}
			last = now
			ev := core.GPIOEdgeEvent{Pin: pin, Level: bool(p.Read()), TSms: timex.NowMs()}
			select {
			case pump.ch <- ev:
			default:
				// slow consumer: drop; the line level remains readable
			}
		}
	}()
	return pump, nil
}

func (r *Registry) UnsubscribeGPIOEdges(devID string, pin int) {
	r.mu.Lock()
	pump := r.pumps[pin]
	delete(r.pumps, pin)
	r.mu.Unlock()
	if pump != nil {
		pump.Close()
	}
}

func toEdge(e core.Edge) gpio.Edge {
	switch e {
	case core.EdgeRising:
		return gpio.RisingEdge
	case core.EdgeFalling:
		return gpio.FallingEdge
	default:
		return gpio.BothEdges
	}
}
