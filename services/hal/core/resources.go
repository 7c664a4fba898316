package core

import (
	"time"

	"gaugecode-go/errcode"
)

// ---- Bus & pin resources ----

type ResourceID string // e.g. "i2c0", "gpio25"

// I2COwner exposes a single atomic transaction.
// timeoutMS: 0 => provider default.
//
// The implementation serialises all hardware access behind the claim; Tx
// blocks until the transaction completes or times out.
type I2COwner interface {
	Tx(addr uint16, w []byte, r []byte, timeoutMS int) error
}

// ---- GPIO handles ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

type GPIOHandle interface {
	Number() int
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(bool)
	Get() bool
}

// ---- GPIO edge subscriptions ----

type Edge uint8

const (
	EdgeRising Edge = iota
	EdgeFalling
	EdgeBoth
)

type GPIOEdgeEvent struct {
	Pin   int
	Level bool
	TSms  int64
}

type GPIOEdgeStream interface {
	Events() <-chan GPIOEdgeEvent
	Close()
}

// ---- Device → HAL telemetry (single shape) ----
// By default an Event is a value update for a capability, published
// retained to .../value. A non-empty EventTag publishes to
// .../event/<tag> (non-retained). A non-empty Err publishes only a
// retained degraded status.

type Event struct {
	Addr     CapAddr
	Payload  any
	TSms     int64
	Err      string // "timeout","io_error",...
	EventTag string // e.g. "low_soc"
}

// EventEmitter carries device telemetry into the HAL publisher.
type EventEmitter interface {
	// Emit tries to enqueue an Event for HAL publication.
	// It must be non-blocking; false indicates a drop under pressure.
	Emit(ev Event) bool
}

// ---- HAL-injected resources ----

type Resources struct {
	Reg ResourceRegistry
	Pub EventEmitter // provided by HAL; devices use it to emit values/events
}

// ---- Unified registry interface ----

type ResourceRegistry interface {
	// Transactional buses
	ClaimI2C(devID string, id ResourceID) (I2COwner, error)
	ReleaseI2C(devID string, id ResourceID)

	// GPIO
	ClaimPin(devID string, pin int) (GPIOHandle, error)
	ReleasePin(devID string, pin int)

	// Edge streams on claimed pins.
	SubscribeGPIOEdges(devID string, pin int, edge Edge, debounce time.Duration, qlen int) (GPIOEdgeStream, error)
	UnsubscribeGPIOEdges(devID string, pin int)
}

// Short error codes shared by providers.
var (
	ErrUnknownPin = errcode.UnknownPin
	ErrPinInUse   = errcode.PinInUse
	ErrUnknownBus = errcode.UnknownBus
	ErrBusInUse   = errcode.BusInUse
	ErrTimeout    = errcode.Timeout
)
