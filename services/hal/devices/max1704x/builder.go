package max1704xdev

import (
	"context"

	"gaugecode-go/errcode"
	"gaugecode-go/services/hal/core"
	"gaugecode-go/types"
)

// Params defines wiring and behaviour for one MAX1704x instance.
type Params struct {
	Bus     string // e.g. "i2c0" (required)
	Addr    uint16 // optional; family address 0x36 when zero
	Variant string // "max17048" | "max17049" | ""(=> "max17048")

	// AlertPin is the GPIO wired to ALRT# (active-low, open-drain).
	// Negative disables alert handling.
	AlertPin int

	// Required naming.
	Domain string // e.g. "power"
	Name   string // capability name, e.g. "main"

	// Optional initial configuration, applied once on init.
	AlertThresholdPct uint8 // 0 => leave device default (4%)
	RCOMP             uint8 // 0 => leave device default
	QuickStartOnInit  bool  // restart estimation after power-up

	// I2CTimeoutMS bounds each bus transaction. 0 => shim default.
	I2CTimeoutMS int
}

// Builder registration.
func init() { core.RegisterBuilder("max1704x", builder{}) }

type builder struct{}

func (builder) Build(ctx context.Context, in core.BuilderInput) (core.Device, error) {
	p, code := core.As[Params](in.Params)
	if code != "" {
		return nil, code
	}
	if p.Bus == "" || p.Domain == "" || p.Name == "" {
		return nil, errcode.InvalidParams
	}
	if p.Variant != "" && p.Variant != "max17048" && p.Variant != "max17049" {
		return nil, errcode.InvalidParams
	}

	i2c, err := in.Res.Reg.ClaimI2C(in.ID, core.ResourceID(p.Bus))
	if err != nil {
		return nil, err
	}

	var gpio core.GPIOHandle
	if p.AlertPin >= 0 {
		gpio, err = in.Res.Reg.ClaimPin(in.ID, p.AlertPin)
		if err != nil {
			in.Res.Reg.ReleaseI2C(in.ID, core.ResourceID(p.Bus))
			return nil, err
		}
		// ALRT# is open-drain, active-low.
		_ = gpio.ConfigureInput(core.PullUp)
	}

	return &Device{
		id:     in.ID,
		addr:   core.CapAddr{Domain: p.Domain, Kind: types.KindBattery, Name: p.Name},
		res:    in.Res,
		i2c:    i2c,
		pin:    p.AlertPin,
		gpio:   gpio,
		params: p,
	}, nil
}
