package max1704x

import (
	"errors"
	"testing"

	"tinygo.org/x/drivers"
)

// Compile-time check.
var _ drivers.I2C = (*fakeGauge)(nil)

// fakeGauge is a byte-addressed register file that speaks the MAX1704x
// wire protocol: one-byte register pointer write, repeated-start read of
// 1–2 bytes, or a 3-byte register write. Writes are captured for
// wire-level assertions.
type fakeGauge struct {
	mem    [256]byte
	writes [][]byte
	fail   error
}

func newFakeGauge() *fakeGauge {
	f := &fakeGauge{}
	// Plausible power-on defaults: RCOMP=0x97, ATHD=4% (encoded 0x1C).
	f.mem[regConfig] = 0x97
	f.mem[regStatus] = 0x1C
	return f
}

func (f *fakeGauge) setWord(reg byte, v uint16) {
	f.mem[reg] = byte(v >> 8)
	f.mem[reg+1] = byte(v)
}

func (f *fakeGauge) Tx(addr uint16, w, r []byte) error {
	if f.fail != nil {
		return f.fail
	}
	if addr != Address {
		return errors.New("no ack")
	}
	switch {
	case len(w) == 1 && len(r) >= 1:
		for i := range r {
			r[i] = f.mem[w[0]+byte(i)]
		}
		return nil
	case len(w) == 3 && len(r) == 0:
		f.writes = append(f.writes, append([]byte(nil), w...))
		f.mem[w[0]] = w[1]
		f.mem[w[0]+1] = w[2]
		return nil
	default:
		return errors.New("unexpected transaction shape")
	}
}

func (f *fakeGauge) lastWrite(t *testing.T) []byte {
	t.Helper()
	if len(f.writes) == 0 {
		t.Fatal("no writes captured")
	}
	return f.writes[len(f.writes)-1]
}

func TestCellVoltage(t *testing.T) {
	f := newFakeGauge()
	d := New(f, Config{})

	// raw 12-bit reading 0x999 => bytes 0x99, 0x90.
	f.setWord(regVCell, 0x9990)

	uv, err := d.CellMicroVolts()
	if err != nil {
		t.Fatalf("CellMicroVolts: %v", err)
	}
	if want := int64(0x999) * 1250; uv != want {
		t.Fatalf("CellMicroVolts = %d, want %d", uv, want)
	}

	v, err := d.CellVoltage()
	if err != nil {
		t.Fatalf("CellVoltage: %v", err)
	}
	if want := float64(0x999) * 0.00125; v != want {
		t.Fatalf("CellVoltage = %v, want %v", v, want)
	}
}

func TestCellVoltageMAX17049Scale(t *testing.T) {
	f := newFakeGauge()
	d := New(f, Config{Variant: MAX17049})

	f.setWord(regVCell, 0x9990)

	v, err := d.CellVoltage()
	if err != nil {
		t.Fatalf("CellVoltage: %v", err)
	}
	if want := float64(0x999) * 0.00125 * 2; v != want {
		t.Fatalf("CellVoltage = %v, want %v", v, want)
	}
}

func TestCellVoltageDiscardsLowNibble(t *testing.T) {
	f := newFakeGauge()
	d := New(f, Config{})

	f.setWord(regVCell, 0x9990)
	base, err := d.CellMicroVolts()
	if err != nil {
		t.Fatal(err)
	}
	f.setWord(regVCell, 0x999F) // junk in the unused nibble
	got, err := d.CellMicroVolts()
	if err != nil {
		t.Fatal(err)
	}
	if got != base {
		t.Fatalf("low nibble leaked into the reading: %d != %d", got, base)
	}
}

func TestStateOfCharge(t *testing.T) {
	f := newFakeGauge()
	d := New(f, Config{})

	f.setWord(regSOC, 0x4D80) // 77 + 128/256 = 77.5%

	pct, err := d.StateOfCharge()
	if err != nil {
		t.Fatalf("StateOfCharge: %v", err)
	}
	if pct != 77.5 {
		t.Fatalf("StateOfCharge = %v, want 77.5", pct)
	}

	centi, err := d.StateOfChargeCenti()
	if err != nil {
		t.Fatalf("StateOfChargeCenti: %v", err)
	}
	if centi != 7750 {
		t.Fatalf("StateOfChargeCenti = %d, want 7750", centi)
	}
}

func TestVersion(t *testing.T) {
	f := newFakeGauge()
	d := New(f, Config{})

	f.setWord(regVersion, 0x0012)

	v, err := d.Version()
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != 0x0012 {
		t.Fatalf("Version = %#04x, want 0x0012", v)
	}
}

func TestAlertThresholdRoundTrip(t *testing.T) {
	f := newFakeGauge()
	d := New(f, Config{})

	for p := uint8(1); p <= 32; p++ {
		if err := d.SetAlertThreshold(p); err != nil {
			t.Fatalf("SetAlertThreshold(%d): %v", p, err)
		}
		got, err := d.AlertThreshold()
		if err != nil {
			t.Fatalf("AlertThreshold: %v", err)
		}
		if got != p {
			t.Fatalf("threshold round trip: wrote %d, read %d", p, got)
		}
	}
}

func TestAlertThresholdClamp(t *testing.T) {
	f := newFakeGauge()
	d := New(f, Config{})

	if err := d.SetAlertThreshold(0); err != nil {
		t.Fatal(err)
	}
	if got, _ := d.AlertThreshold(); got != 1 {
		t.Fatalf("SetAlertThreshold(0) => %d, want clamp to 1", got)
	}

	if err := d.SetAlertThreshold(33); err != nil {
		t.Fatal(err)
	}
	if got, _ := d.AlertThreshold(); got != 32 {
		t.Fatalf("SetAlertThreshold(33) => %d, want clamp to 32", got)
	}
}

func TestSetAlertThresholdPreservesSleepAndRCOMP(t *testing.T) {
	f := newFakeGauge()
	d := New(f, Config{})

	f.mem[regConfig] = 0xA5
	f.mem[regStatus] = cfgSleep | cfgAlert | 0x1C // sleeping, alert latched

	if err := d.SetAlertThreshold(10); err != nil {
		t.Fatal(err)
	}

	w := f.lastWrite(t)
	if w[0] != regConfig {
		t.Fatalf("wrote register %#02x, want CONFIG", w[0])
	}
	if w[1] != 0xA5 {
		t.Fatalf("RCOMP clobbered: %#02x", w[1])
	}
	// Sleep bit survives; the latched alert bit is replaced.
	if w[2] != cfgSleep|EncodeThreshold(10) {
		t.Fatalf("status byte = %#02x, want %#02x", w[2], cfgSleep|EncodeThreshold(10))
	}
}

func TestSetCompensationPreservesStatus(t *testing.T) {
	f := newFakeGauge()
	d := New(f, Config{})

	f.mem[regStatus] = 0x5C

	if err := d.SetCompensation(0x42); err != nil {
		t.Fatal(err)
	}
	w := f.lastWrite(t)
	if w[0] != regConfig || w[1] != 0x42 || w[2] != 0x5C {
		t.Fatalf("write = % x, want CONFIG 0x42 0x5c", w)
	}

	c, err := d.Compensation()
	if err != nil {
		t.Fatal(err)
	}
	if c != 0x42 {
		t.Fatalf("Compensation = %#02x", c)
	}
}

func TestClearAlertInterrupt(t *testing.T) {
	f := newFakeGauge()
	d := New(f, Config{})

	f.mem[regConfig] = 0x97
	f.mem[regStatus] = 0x7F

	if err := d.ClearAlertInterrupt(); err != nil {
		t.Fatal(err)
	}
	w := f.lastWrite(t)
	if w[1] != 0x97 {
		t.Fatalf("RCOMP clobbered: %#02x", w[1])
	}
	if w[2] != 0x5F {
		t.Fatalf("status after clear = %#02x, want 0x5f", w[2])
	}
}

func TestSleepWake(t *testing.T) {
	f := newFakeGauge()
	d := New(f, Config{})

	if err := d.SetAlertThreshold(4); err != nil {
		t.Fatal(err)
	}

	if err := d.Sleep(); err != nil {
		t.Fatal(err)
	}
	sleeping, err := d.Sleeping()
	if err != nil {
		t.Fatal(err)
	}
	if !sleeping {
		t.Fatal("Sleeping() = false immediately after Sleep()")
	}
	// Sleep stores the decoded threshold raw in the low bits instead of
	// re-encoding it, so the reported threshold flips to 32-n until it is
	// written again. Kept bit-for-bit from the qualified behaviour.
	if f.mem[regStatus]&cfgThresholdMask != 4 {
		t.Fatalf("raw threshold bits after Sleep = %#02x, want 4", f.mem[regStatus]&cfgThresholdMask)
	}
	if got, _ := d.AlertThreshold(); got != 28 {
		t.Fatalf("decoded threshold after Sleep = %d, want 28", got)
	}

	if err := d.Wake(); err != nil {
		t.Fatal(err)
	}
	sleeping, err = d.Sleeping()
	if err != nil {
		t.Fatal(err)
	}
	if sleeping {
		t.Fatal("Sleeping() = true immediately after Wake()")
	}
	// Wake decodes again before writing, so a sleep/wake pair lands back
	// on the original encoding.
	if got, _ := d.AlertThreshold(); got != 4 {
		t.Fatalf("decoded threshold after Wake = %d, want 4", got)
	}
}

// Sleep rebuilds the status byte from the decoded threshold, so a latched
// alert bit is dropped on the way through. This mirrors the behaviour the
// device firmware was qualified against.
func TestSleepDropsLatchedAlert(t *testing.T) {
	f := newFakeGauge()
	d := New(f, Config{})

	const status = cfgAlert | 0x1C
	f.mem[regStatus] = status

	if err := d.Sleep(); err != nil {
		t.Fatal(err)
	}
	w := f.lastWrite(t)
	if w[2]&cfgAlert != 0 {
		t.Fatalf("alert bit survived Sleep: %#02x", w[2])
	}
	if w[2] != cfgSleep|DecodeThreshold(status) {
		t.Fatalf("status = %#02x", w[2])
	}
}

func TestQuickStartWire(t *testing.T) {
	f := newFakeGauge()
	d := New(f, Config{})

	if err := d.QuickStart(); err != nil {
		t.Fatal(err)
	}
	w := f.lastWrite(t)
	if w[0] != regMode || w[1] != 0x40 || w[2] != 0x00 {
		t.Fatalf("quick-start wrote % x, want 06 40 00", w)
	}
}

func TestResetWire(t *testing.T) {
	f := newFakeGauge()
	d := New(f, Config{})

	if err := d.Reset(); err != nil {
		t.Fatal(err)
	}
	w := f.lastWrite(t)
	if w[0] != regCommand || w[1] != 0x54 || w[2] != 0x00 {
		t.Fatalf("reset wrote % x, want fe 54 00", w)
	}
}

func TestTransportErrorsPropagate(t *testing.T) {
	f := newFakeGauge()
	d := New(f, Config{})

	boom := errors.New("bus arbitration lost")
	f.fail = boom

	if _, err := d.CellVoltage(); !errors.Is(err, boom) {
		t.Fatalf("CellVoltage err = %v", err)
	}
	if _, err := d.StateOfCharge(); !errors.Is(err, boom) {
		t.Fatalf("StateOfCharge err = %v", err)
	}
	if err := d.SetAlertThreshold(5); !errors.Is(err, boom) {
		t.Fatalf("SetAlertThreshold err = %v", err)
	}
	if err := d.QuickStart(); !errors.Is(err, boom) {
		t.Fatalf("QuickStart err = %v", err)
	}
}

func TestNonDefaultAddress(t *testing.T) {
	f := newFakeGauge()
	d := New(f, Config{Address: 0x55})

	// The fake only acks 0x36; a mismatched address must surface an error.
	if _, err := d.Version(); err == nil {
		t.Fatal("expected NACK for wrong address")
	}
}
