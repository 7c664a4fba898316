// Package max1704x provides a driver for the MAX17048/MAX17049 single-cell
// lithium fuel gauges. The ICs report cell voltage and relative state of
// charge over I²C; the driver covers threshold/alert configuration,
// sleep/wake control and the quick-start/reset commands.
package max1704x

const (
	// 7-bit I2C address (fixed for the whole family).
	Address = 0x36

	// --- Register sub-addresses ---

	regVCell   = 0x02 // R, 16-bit: 12-bit ADC reading in the top bits
	regSOC     = 0x04 // R, 16-bit: percent + 1/256 percent
	regMode    = 0x06 // W, 16-bit: quick-start
	regVersion = 0x08 // R, 16-bit: IC production version
	regConfig  = 0x0C // R/W, 16-bit: RCOMP (high) + status/threshold (low)
	regStatus  = 0x0D // R, low byte of CONFIG addressed directly
	regCommand = 0xFE // W, 16-bit: power-on reset

	// --- CONFIG low-byte bits ---

	cfgSleep         = 0x80 // SLEEP: all IC operations halted
	cfgAlertSOCChang = 0x40 // ALSC: alert on 1% SOC change
	cfgAlert         = 0x20 // ALRT: alert interrupt asserted (latched)
	cfgThresholdMask = 0x1F // ATHD: empty-alert threshold, two's complement

	// --- Command values ---

	cmdQuickStart = 0x4000 // MODE: restart fuel-gauge estimation
	cmdReset      = 0x5400 // COMMAND: full power-on reset
)

// Alert threshold bounds. The 5-bit field encodes (32 - percent), so only
// values in [1,32] have a representation.
const (
	ThresholdMin = 1
	ThresholdMax = 32
)
