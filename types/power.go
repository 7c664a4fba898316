package types

// ------------------------
// Battery / fuel gauge (max1704x)
// ------------------------

type FuelGaugeInfo struct {
	Variant string `json:"variant"` // "max17048" | "max17049"
	Bus     string `json:"bus"`
	Addr    uint16 `json:"addr"`
	Pin     int    `json:"alert_pin,omitempty"` // ALRT#; <0 when not wired
}

// Retained value: hal/cap/power/battery/<name>/value
type BatteryValue struct {
	MilliV      int32  `json:"mV"`                // cell voltage
	SOCCentiPct uint32 `json:"soc_centi_pct"`     // state of charge, 1/100 %
	Sleeping    bool   `json:"sleeping"`
	Version     uint16 `json:"version,omitempty"` // IC production version
}

// Event payload: hal/cap/power/battery/<name>/event/low_soc
type LowSOCAlert struct {
	SOCCentiPct  uint32 `json:"soc_centi_pct"`
	ThresholdPct uint8  `json:"threshold_pct"`
}

// Controls
type AlertThresholdSet struct {
	Percent uint8 `json:"percent"` // clamped to [1,32] by the driver
} // verb: "set_alert_threshold"

type CompensationSet struct {
	Value uint8 `json:"value"` // RCOMP byte
} // verb: "set_compensation"
