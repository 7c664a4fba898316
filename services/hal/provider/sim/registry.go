package sim

import (
	"sync"
	"time"

	"gaugecode-go/services/hal/core"
)

// Registry is an in-memory core.ResourceRegistry. Buses and pins are added
// by the test/bench harness before HAL configuration.
type Registry struct {
	mu        sync.Mutex
	i2c       map[core.ResourceID]core.I2COwner
	i2cClaims map[core.ResourceID]string
	pins      map[int]*Pin
	pinClaims map[int]string
	edgeSubs  map[int]map[string]*edgeStream
}

var _ core.ResourceRegistry = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		i2c:       map[core.ResourceID]core.I2COwner{},
		i2cClaims: map[core.ResourceID]string{},
		pins:      map[int]*Pin{},
		pinClaims: map[int]string{},
		edgeSubs:  map[int]map[string]*edgeStream{},
	}
}

// AddI2C registers a simulated bus occupant under a bus id.
func (r *Registry) AddI2C(id core.ResourceID, dev core.I2COwner) {
	r.mu.Lock()
	r.i2c[id] = dev
	r.mu.Unlock()
}

// AddPin registers a simulated GPIO line with an initial level.
func (r *Registry) AddPin(n int, initial bool) *Pin {
	p := &Pin{n: n, level: initial}
	r.mu.Lock()
	r.pins[n] = p
	r.mu.Unlock()
	return p
}

func (r *Registry) ClaimI2C(devID string, id core.ResourceID) (core.I2COwner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dev, ok := r.i2c[id]
	if !ok {
		return nil, core.ErrUnknownBus
	}
	if owner, held := r.i2cClaims[id]; held && owner != devID {
		return nil, core.ErrBusInUse
	}
	r.i2cClaims[id] = devID
	return dev, nil
}

func (r *Registry) ReleaseI2C(devID string, id core.ResourceID) {
	r.mu.Lock()
	if r.i2cClaims[id] == devID {
		delete(r.i2cClaims, id)
	}
	r.mu.Unlock()
}

func (r *Registry) ClaimPin(devID string, pin int) (core.GPIOHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pins[pin]
	if !ok {
		return nil, core.ErrUnknownPin
	}
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

func (r *Registry) SubscribeGPIOEdges(devID string, pin int, edge core.Edge, _ time.Duration, qlen int) (core.GPIOEdgeStream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pins[pin]
	if !ok {
		return nil, core.ErrUnknownPin
	}
	s := newEdgeStream(edge, qlen)
	p.attach(s)
	if r.edgeSubs[pin] == nil {
		r.edgeSubs[pin] = map[string]*edgeStream{}
	}
	r.edgeSubs[pin][devID] = s
	return s, nil
}

func (r *Registry) UnsubscribeGPIOEdges(devID string, pin int) {
	r.mu.Lock()
	s := r.edgeSubs[pin][devID]
	if s != nil {
		delete(r.edgeSubs[pin], devID)
	}
	p := r.pins[pin]
	r.mu.Unlock()
	if s != nil && p != nil {
		p.detach(s)
	}
}
