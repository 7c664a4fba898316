package max1704x

import "gaugecode-go/x/mathx"

// ClampThreshold limits an alert threshold to the representable range.
func ClampThreshold(percent uint8) uint8 {
	return mathx.Clamp(percent, ThresholdMin, ThresholdMax)
}

// EncodeThreshold packs a 1–32% threshold into the 5-bit ATHD field.
// The field holds the 5-bit two's complement of the percentage, which
// equals 32 - percent for the whole valid range.
func EncodeThreshold(percent uint8) uint8 {
	return (^ClampThreshold(percent) + 1) & cfgThresholdMask
}

// DecodeThreshold recovers the percentage from a raw status byte.
// Inverse of EncodeThreshold for all thresholds in [1,32].
func DecodeThreshold(status uint8) uint8 {
	return (^status & cfgThresholdMask) + 1
}

// vcellRaw extracts the 12-bit ADC reading from the VCELL register bytes.
// The low nibble of the second byte carries no data.
func vcellRaw(hi, lo byte) uint16 {
	return uint16(hi)<<4 | uint16(lo)>>4
}

// vcellMicroV converts a raw VCELL reading to microvolts.
// LSB is 1.25 mV on the MAX17048 and 2.5 mV on the MAX17049 (scale 2).
func vcellMicroV(raw uint16, scale uint32) int64 {
	return int64(raw) * 1250 * int64(scale)
}

// socCentiPct converts the SOC register bytes to hundredths of a percent.
// The register holds integer percent in the high byte and 1/256 percent
// steps in the low byte.
func socCentiPct(hi, lo byte) uint32 {
	return uint32(hi)*100 + (uint32(lo)*100)/256
}
