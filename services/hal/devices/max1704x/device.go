// Package max1704xdev is the HAL device wrapper around the MAX1704x fuel
// gauge driver. A single worker goroutine owns the driver; every bus
// transaction, including the CONFIG read-modify-write sequences, runs on
// that goroutine, which provides the serialisation the driver requires.
package max1704xdev

import (
	"context"
	"sync/atomic"
	"time"

	"gaugecode-go/drivers/max1704x"
	"gaugecode-go/errcode"
	"gaugecode-go/services/hal/core"
	"gaugecode-go/services/hal/drvshim"
	"gaugecode-go/types"
	"gaugecode-go/x/timex"
)

type opCode uint8

const (
	opRead opCode = iota
	opSetThreshold
	opSetCompensation
	opClearAlert
	opSleep
	opWake
	opQuickStart
	opReset
	opStop
)

type request struct {
	op  opCode
	arg any
}

type Device struct {
	id   string
	addr core.CapAddr

	res  core.Resources
	i2c  core.I2COwner
	pin  int
	gpio core.GPIOHandle
	es   core.GPIOEdgeStream

	alive atomic.Bool

	params Params

	// Owned by the worker only:
	dev     *max1704x.Device
	version uint16

	reqCh chan request
	done  chan struct{}
}

// ---- core.Device interface ----

func (d *Device) ID() string { return d.id }

func (d *Device) Capabilities() []core.CapabilitySpec {
	return []core.CapabilitySpec{{
		Domain: d.addr.Domain,
		Kind:   types.KindBattery,
		Name:   d.addr.Name,
		Info: types.Info{
			SchemaVersion: 1,
			Driver:        "max1704x",
			Detail: types.FuelGaugeInfo{
				Variant: d.variant().String(),
				Bus:     d.params.Bus,
				Addr:    addrOrDefault(d.params.Addr),
				Pin:     d.pin,
			},
		},
	}}
}

func (d *Device) Init(ctx context.Context) error {
	if d.pin >= 0 {
		// ALRT# latches low until the interrupt is cleared; a modest
		// debounce absorbs wiring noise.
		es, err := d.res.Reg.SubscribeGPIOEdges(d.id, d.pin, core.EdgeFalling, 2*time.Millisecond, 8)
		if err != nil {
			d.evtErr("alert_subscribe_failed")
			// Continue without alert handling; polling still works.
		} else {
			d.es = es
		}
	}

	d.reqCh = make(chan request, 8)
	d.done = make(chan struct{})

	d.alive.Store(true)
	go d.worker(ctx)
	return nil
}

func (d *Device) Close() error {
	if d.alive.Load() {
		select {
		case d.reqCh <- request{op: opStop}:
			d.alive.Store(false)
		default:
		}
		// bounded wait; rely on HAL ctx cancellation in normal shutdown
		t := time.NewTimer(300 * time.Millisecond)
		select {
		case <-d.done:
		case <-t.C:
			// Resource release stays with the worker; it runs cleanup
			// whenever it finally drains the stop request.
			println("[max1704x] close timed out waiting for worker:", d.id)
		}
		t.Stop()
	}
	return nil
}

func (d *Device) Control(_ core.CapAddr, verb string, payload any) (core.EnqueueResult, error) {
	send := func(req request) (core.EnqueueResult, error) {
		if !d.alive.Load() {
			return core.EnqueueResult{OK: false, Error: errcode.Unavailable}, nil
		}
		select {
		case d.reqCh <- req:
			return core.EnqueueResult{OK: true}, nil
		default:
			return core.EnqueueResult{OK: false, Error: errcode.Busy}, nil
		}
	}

	switch verb {
	case "read":
		return send(request{op: opRead})
	case "set_alert_threshold":
		v, code := core.As[types.AlertThresholdSet](payload)
		if code != "" {
			return core.EnqueueResult{OK: false, Error: code}, nil
		}
		return send(request{op: opSetThreshold, arg: v})
	case "set_compensation":
		v, code := core.As[types.CompensationSet](payload)
		if code != "" {
			return core.EnqueueResult{OK: false, Error: code}, nil
		}
		return send(request{op: opSetCompensation, arg: v})
	case "clear_alert":
		return send(request{op: opClearAlert})
	case "sleep":
		return send(request{op: opSleep})
	case "wake":
		return send(request{op: opWake})
	case "quick_start":
		return send(request{op: opQuickStart})
	case "reset":
		return send(request{op: opReset})
	default:
		return core.EnqueueResult{OK: false, Error: errcode.Unsupported}, nil
	}
}

// ---- Worker ----

func (d *Device) worker(ctx context.Context) {
	defer func() { d.alive.Store(false) }()
	defer close(d.done)

	d.configureDevice()

	// If ALRT# is already asserted, service it once before waiting.
	if d.alertAsserted() {
		d.serviceAlert()
	}

	var evCh <-chan core.GPIOEdgeEvent
	if d.es != nil {
		evCh = d.es.Events()
	}

	for {
		select {
		case <-ctx.Done():
			d.cleanup()
			return

		case req := <-d.reqCh:
			switch req.op {
			case opRead:
				d.sampleAndPublish()
			case opSetThreshold:
				if v, ok := req.arg.(types.AlertThresholdSet); ok {
					d.apply("set_threshold_failed", d.dev.SetAlertThreshold(v.Percent))
				}
			case opSetCompensation:
				if v, ok := req.arg.(types.CompensationSet); ok {
					d.apply("set_compensation_failed", d.dev.SetCompensation(v.Value))
				}
			case opClearAlert:
				d.apply("clear_alert_failed", d.dev.ClearAlertInterrupt())
			case opSleep:
				d.apply("sleep_failed", d.dev.Sleep())
			case opWake:
				d.apply("wake_failed", d.dev.Wake())
			case opQuickStart:
				d.apply("quick_start_failed", d.dev.QuickStart())
			case opReset:
				if err := d.dev.Reset(); err != nil {
					d.evtErr(string(errcode.MapDriverErr(err)))
					continue
				}
				// Registers are back at power-on defaults; reapply ours.
				d.configureDevice()
				d.sampleAndPublish()
			case opStop:
				d.cleanup()
				return
			}

		case _, ok := <-evCh:
			if !ok {
				evCh = nil
				break
			}
			d.serviceAlert()
		}
	}
}

// ---- Worker helpers (single-owner context) ----

func (d *Device) configureDevice() {
	cfg := max1704x.Config{Address: addrOrDefault(d.params.Addr), Variant: d.variant()}
	shim := drvshim.NewI2C(d.i2c)
	if d.params.I2CTimeoutMS > 0 {
		shim = shim.WithTimeout(d.params.I2CTimeoutMS)
	}
	d.dev = max1704x.New(shim, cfg)

	if v, err := d.dev.Version(); err == nil {
		d.version = v
	} else {
		d.evtErr(string(errcode.MapDriverErr(err)))
	}

	if d.params.QuickStartOnInit {
		if err := d.dev.QuickStart(); err != nil {
			d.evtErr("quick_start_failed")
		}
	}
	if d.params.RCOMP != 0 {
		if err := d.dev.SetCompensation(d.params.RCOMP); err != nil {
			d.evtErr("set_compensation_failed")
		}
	}
	if d.params.AlertThresholdPct != 0 {
		if err := d.dev.SetAlertThreshold(d.params.AlertThresholdPct); err != nil {
			d.evtErr("set_threshold_failed")
		}
	}
}

func (d *Device) sampleAndPublish() {
	uv, err := d.dev.CellMicroVolts()
	if err != nil {
		d.evtErr(string(errcode.MapDriverErr(err)))
		return
	}
	soc, err := d.dev.StateOfChargeCenti()
	if err != nil {
		d.evtErr(string(errcode.MapDriverErr(err)))
		return
	}
	sleeping, err := d.dev.Sleeping()
	if err != nil {
		d.evtErr(string(errcode.MapDriverErr(err)))
		return
	}

	_ = d.res.Pub.Emit(core.Event{
		Addr: d.addr,
		Payload: types.BatteryValue{
			MilliV:      int32(uv / 1000),
			SOCCentiPct: soc,
			Sleeping:    sleeping,
			Version:     d.version,
		},
		TSms: timex.NowMs(),
	})
}

// serviceAlert drains a latched ALRT#: report the crossing, clear the
// interrupt so the line releases, then refresh the retained value.
func (d *Device) serviceAlert() {
	soc, err := d.dev.StateOfChargeCenti()
	if err != nil {
		d.evtErr(string(errcode.MapDriverErr(err)))
		return
	}
	threshold, err := d.dev.AlertThreshold()
	if err != nil {
		d.evtErr(string(errcode.MapDriverErr(err)))
		return
	}

	_ = d.res.Pub.Emit(core.Event{
		Addr:     d.addr,
		EventTag: "low_soc",
		Payload:  types.LowSOCAlert{SOCCentiPct: soc, ThresholdPct: threshold},
		TSms:     timex.NowMs(),
	})

	if err := d.dev.ClearAlertInterrupt(); err != nil {
		d.evtErr("clear_alert_failed")
		return
	}
	d.sampleAndPublish()
}

func (d *Device) apply(tag string, err error) {
	if err != nil {
		d.evtErr(tag)
		return
	}
	d.sampleAndPublish()
}

func (d *Device) alertAsserted() bool {
	return d.gpio != nil && !d.gpio.Get()
}

func (d *Device) cleanup() {
	if d.es != nil {
		d.es.Close()
		d.res.Reg.UnsubscribeGPIOEdges(d.id, d.pin)
		d.es = nil
	}
	if d.pin >= 0 {
		d.res.Reg.ReleasePin(d.id, d.pin)
	}
	d.res.Reg.ReleaseI2C(d.id, core.ResourceID(d.params.Bus))
}

func (d *Device) evtErr(code string) {
	_ = d.res.Pub.Emit(core.Event{Addr: d.addr, TSms: timex.NowMs(), Err: code})
}

// ---- Helpers ----

func (d *Device) variant() max1704x.Variant {
	if d.params.Variant == "max17049" {
		return max1704x.MAX17049
	}
	return max1704x.MAX17048
}

func addrOrDefault(a uint16) uint16 {
	if a == 0 {
		return max1704x.Address
	}
	return a
}
