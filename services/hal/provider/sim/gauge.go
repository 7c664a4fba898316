// Package sim provides a pure-Go resource registry with a simulated
// MAX1704x fuel gauge behind it, for tests and bench work without
// hardware.
package sim

import (
	"sync"

	"gaugecode-go/errcode"
)

// Register layout mirrored from the device datasheet.
const (
	gaugeAddr  = 0x36
	regVCell   = 0x02
	regSOC     = 0x04
	regMode    = 0x06
	regVersion = 0x08
	regConfig  = 0x0C
	regStatus  = 0x0D
	regCommand = 0xFE

	cfgSleep         = 0x80
	cfgAlert         = 0x20
	cfgThresholdMask = 0x1F
)

// Gauge is a register-level simulation of a MAX17048. It implements
// core.I2COwner, latches the alert bit when SOC drops below the
// configured threshold, and drives an optional ALRT# pin (active-low).
type Gauge struct {
	mu       sync.Mutex
	mem      [256]byte
	alertPin *Pin
}

func NewGauge() *Gauge {
	g := &Gauge{}
	g.reset()
	return g
}

// reset loads power-on defaults: RCOMP 0x97, threshold 4%, full charge.
func (g *Gauge) reset() {
	g.mem = [256]byte{}
	g.mem[regConfig] = 0x97
	g.mem[regStatus] = 0x1C // encoded 4%
	g.mem[regVersion] = 0x00
	g.mem[regVersion+1] = 0x12
	g.setSOCLocked(10000)
	g.setMicroVoltsLocked(4_200_000)
}

// BindAlert wires ALRT# to a sim pin. The line idles high.
func (g *Gauge) BindAlert(p *Pin) {
	g.mu.Lock()
	g.alertPin = p
	g.mu.Unlock()
	p.Drive(true)
}

// SetCentiSOC updates the simulated state of charge (hundredths of a
// percent) and re-evaluates the alert comparator.
func (g *Gauge) SetCentiSOC(centi uint32) {
	g.mu.Lock()
	g.setSOCLocked(centi)
	g.evaluateAlertLocked()
	pin, level := g.alertPin, g.mem[regStatus]&cfgAlert == 0
	g.mu.Unlock()
	if pin != nil {
		pin.Drive(level)
	}
}

// SetMicroVolts updates the simulated cell voltage.
func (g *Gauge) SetMicroVolts(uv int64) {
	g.mu.Lock()
	g.setMicroVoltsLocked(uv)
	g.mu.Unlock()
}

func (g *Gauge) setSOCLocked(centi uint32) {
	g.mem[regSOC] = byte(centi / 100)
	g.mem[regSOC+1] = byte((centi % 100) * 256 / 100)
}

func (g *Gauge) setMicroVoltsLocked(uv int64) {
	raw := uint16(uv / 1250) // MAX17048 LSB
	if raw > 0xFFF {
		raw = 0xFFF
	}
	g.mem[regVCell] = byte(raw >> 4)
	g.mem[regVCell+1] = byte(raw << 4)
}

// evaluateAlertLocked latches the alert bit when SOC is below threshold.
// Like the real part, the latch only releases through an explicit CONFIG
// write; dropping back above threshold does not clear it.
func (g *Gauge) evaluateAlertLocked() {
	if g.mem[regStatus]&cfgSleep != 0 {
		return // gauge halted
	}
	threshold := (^g.mem[regStatus] & cfgThresholdMask) + 1
	socPct := g.mem[regSOC]
	if socPct < threshold {
		g.mem[regStatus] |= cfgAlert
	}
}

// Status returns the raw CONFIG low byte, for test assertions.
func (g *Gauge) Status() byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mem[regStatus]
}

// Tx implements core.I2COwner with MAX1704x transaction shapes.
func (g *Gauge) Tx(addr uint16, w, r []byte, _ int) error {
	g.mu.Lock()

	if addr != gaugeAddr {
		g.mu.Unlock()
		return errcode.IOError
	}

	switch {
	case len(w) == 1 && len(r) >= 1:
		for i := range r {
			r[i] = g.mem[w[0]+byte(i)]
		}
	case len(w) == 3 && len(r) == 0:
		g.write(w[0], w[1], w[2])
	default:
		g.mu.Unlock()
		return errcode.IOError
	}

	pin, level := g.alertPin, g.mem[regStatus]&cfgAlert == 0
	g.mu.Unlock()
	// Drive outside the lock; edge dispatch may call back into the sim.
	if pin != nil {
		pin.Drive(level)
	}
	return nil
}

func (g *Gauge) write(reg, hi, lo byte) {
	switch reg {
	case regCommand:
		if uint16(hi)<<8|uint16(lo) == 0x5400 {
			g.reset()
		}
	case regMode:
		// Quick-start: estimation restarts; register file is unchanged
		// at this level of simulation.
	default:
		g.mem[reg] = hi
		g.mem[reg+1] = lo
	}
}
