package max1704x

import (
	"tinygo.org/x/drivers"
)

// Variant selects the voltage range of the IC.
type Variant uint8

const (
	MAX17048 Variant = iota // 0–5 V, 1.25 mV LSB (single cell)
	MAX17049                // 0–10 V, 2.5 mV LSB (two cells in series)
)

func (v Variant) String() string {
	if v == MAX17049 {
		return "max17049"
	}
	return "max17048"
}

// scale returns the voltage-scale multiplier for the variant.
func (v Variant) scale() uint32 {
	if v == MAX17049 {
		return 2
	}
	return 1
}

// Config selects the device identity. All fields are optional.
type Config struct {
	// Address defaults to 0x36 if zero. The family has a fixed address;
	// this exists for bus multiplexer setups.
	Address uint16
	// Variant defaults to MAX17048.
	Variant Variant
}

// Device wraps an I2C connection to a MAX1704x fuel gauge.
//
// The driver holds no register state: the device register file is the only
// state, and every call is a fresh bus transaction. Operations that
// read-modify-write CONFIG (SetCompensation, SetAlertThreshold,
// ClearAlertInterrupt, Sleep, Wake) span two bus transactions and are not
// atomic; callers must serialise all access to one Device, e.g. behind a
// single owning goroutine.
type Device struct {
	i2c     drivers.I2C
	addr    uint16
	variant Variant

	// Fixed buffers to avoid per-call heap allocations.
	w [3]byte
	r [2]byte
}

// New constructs a Device with the supplied config. The I2C bus must
// already be configured; this function does not touch the hardware.
func New(i2c drivers.I2C, cfg Config) *Device {
	addr := cfg.Address
	if addr == 0 {
		addr = Address
	}
	return &Device{
		i2c:     i2c,
		addr:    addr,
		variant: cfg.Variant,
	}
}

// Variant reports the configured IC variant.
func (d *Device) Variant() Variant { return d.variant }

// ---- Readouts ----

// CellMicroVolts returns the battery voltage in microvolts.
// The 12-bit ADC reading sits in the top bits of VCELL; the low nibble is
// discarded.
func (d *Device) CellMicroVolts() (int64, error) {
	hi, lo, err := d.readBytes(regVCell)
	if err != nil {
		return 0, err
	}
	return vcellMicroV(vcellRaw(hi, lo), d.variant.scale()), nil
}

// CellVoltage returns the battery voltage in volts.
func (d *Device) CellVoltage() (float64, error) {
	uv, err := d.CellMicroVolts()
	return float64(uv) / 1e6, err
}

// StateOfChargeCenti returns the relative state of charge in hundredths of
// a percent (resolution 1/256 %).
func (d *Device) StateOfChargeCenti() (uint32, error) {
	hi, lo, err := d.readBytes(regSOC)
	if err != nil {
		return 0, err
	}
	return socCentiPct(hi, lo), nil
}

// StateOfCharge returns the relative state of charge as a percentage of
// full capacity. Freshly quick-started devices can briefly report >100%.
func (d *Device) StateOfCharge() (float64, error) {
	hi, lo, err := d.readBytes(regSOC)
	if err != nil {
		return 0, err
	}
	return float64(hi) + float64(lo)/256, nil
}

// Version returns the IC production version.
func (d *Device) Version() (uint16, error) {
	return d.readWord(regVersion)
}

// Compensation returns the RCOMP byte (CONFIG high byte) used to tune the
// gauge to battery chemistry and temperature.
func (d *Device) Compensation() (uint8, error) {
	return d.readByte(regConfig)
}

// Status returns the raw CONFIG low byte: sleep bit, alert bits and the
// packed alert threshold.
func (d *Device) Status() (uint8, error) {
	return d.readByte(regStatus)
}

// AlertThreshold returns the configured empty-alert threshold in percent
// (1–32). Below this SOC the device asserts ALRT#.
func (d *Device) AlertThreshold() (uint8, error) {
	status, err := d.Status()
	if err != nil {
		return 0, err
	}
	return DecodeThreshold(status), nil
}

// Sleeping reports whether the IC is in sleep mode.
func (d *Device) Sleeping() (bool, error) {
	status, err := d.Status()
	if err != nil {
		return false, err
	}
	return status&cfgSleep == cfgSleep, nil
}

// ---- CONFIG read-modify-write operations ----

// SetCompensation replaces RCOMP while preserving the status byte.
func (d *Device) SetCompensation(value uint8) error {
	status, err := d.Status()
	if err != nil {
		return err
	}
	return d.writeBytes(regConfig, value, status)
}

// SetAlertThreshold sets the SOC percentage below which ALRT# asserts.
// The input is clamped to [1,32]. RCOMP and the sleep bit are preserved;
// the alert-asserted bit and the previous threshold are replaced.
func (d *Device) SetAlertThreshold(percent uint8) error {
	encoded := EncodeThreshold(percent)
	compensation, status, err := d.readBytes(regConfig)
	if err != nil {
		return err
	}
	sleepBit := status & cfgSleep
	return d.writeBytes(regConfig, compensation, sleepBit|encoded)
}

// ClearAlertInterrupt clears the latched alert bit after an ALRT#
// interrupt. Every other CONFIG bit, including the threshold and the sleep
// flag, is preserved.
func (d *Device) ClearAlertInterrupt() error {
	compensation, status, err := d.readBytes(regConfig)
	if err != nil {
		return err
	}
	return d.writeBytes(regConfig, compensation, status&^cfgAlert)
}

// Sleep halts all IC operations. The status byte is reconstructed from the
// decoded threshold, so a latched alert bit does not survive; this mirrors
// the device library behaviour the firmware expects.
func (d *Device) Sleep() error {
	compensation, status, err := d.readBytes(regConfig)
	if err != nil {
		return err
	}
	threshold := DecodeThreshold(status)
	return d.writeBytes(regConfig, compensation, cfgSleep|threshold)
}

// Wake resumes IC operation. Symmetric to Sleep: the low byte is rebuilt
// from the decoded threshold with the sleep bit cleared.
func (d *Device) Wake() error {
	compensation, status, err := d.readBytes(regConfig)
	if err != nil {
		return err
	}
	threshold := DecodeThreshold(status)
	return d.writeBytes(regConfig, compensation, ^byte(cfgSleep)&threshold)
}

// ---- Commands ----

// QuickStart forces the gauge to restart its estimation from a fresh
// reference point, discarding accumulated state. Use after a power-up with
// an unsettled battery voltage.
func (d *Device) QuickStart() error {
	return d.writeWord(regMode, cmdQuickStart)
}

// Reset forces a full device reset; all registers return to their
// power-on defaults.
func (d *Device) Reset() error {
	return d.writeWord(regCommand, cmdReset)
}
