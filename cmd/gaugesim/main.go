// Command gaugesim runs the HAL against a simulated MAX17048 and drives a
// discharge scenario through it. No hardware required:
//
//	go run ./cmd/gaugesim
package main

import (
	"context"
	"fmt"
	"time"

	"gaugecode-go/bus"
	"gaugecode-go/services/hal"
	max1704xdev "gaugecode-go/services/hal/devices/max1704x"
	"gaugecode-go/services/hal/provider/sim"
	"gaugecode-go/types"
)

func main() {
	fmt.Println("== gaugecode: simulated MAX17048 demo ==")

	b := bus.NewBus(64)
	conn := b.NewConnection("hal")
	cli := b.NewConnection("demo")

	// Simulated board: one I2C bus, gauge at 0x36, ALRT# on pin 25.
	reg := sim.NewRegistry()
	gauge := sim.NewGauge()
	reg.AddI2C("i2c0", gauge)
	gauge.BindAlert(reg.AddPin(25, true))

	stateSub := cli.Subscribe(bus.T("hal", "state"))
	valueSub := cli.Subscribe(bus.T("hal", "cap", "power", "battery", "main", "value"))
	alertSub := cli.Subscribe(bus.T("hal", "cap", "power", "battery", "main", "event", "low_soc"))
	statusSub := cli.Subscribe(bus.T("hal", "cap", "power", "battery", "main", "status"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hal.Run(ctx, conn, reg)

	waitForLevel(stateSub, "idle")

	cli.Request(bus.T("config", "hal"), types.HALConfig{
		Devices: []types.HALDevice{{
			ID:   "fg0",
			Type: "max1704x",
			Params: max1704xdev.Params{
				Bus:               "i2c0",
				Variant:           "max17048",
				AlertPin:          25,
				Domain:            "power",
				Name:              "main",
				AlertThresholdPct: 10,
			},
		}},
		Pollers: []types.PollSpec{{
			Domain: "power", Kind: types.KindBattery, Name: "main",
			Verb: "read", IntervalMs: 200, JitterMs: 20,
		}},
	}, bus.T("demo", "reply"))

	waitForLevel(stateSub, "ready")
	fmt.Println("[hal] ready; polling every 200 ms")

	// Discharge from 100% towards the 10% alert threshold.
	go func() {
		soc := uint32(10000)
		uv := int64(4_200_000)
		for soc > 400 {
			time.Sleep(150 * time.Millisecond)
			soc -= 600
			uv -= 40_000
			gauge.SetCentiSOC(soc)
			gauge.SetMicroVolts(uv)
		}
	}()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case m := <-valueSub.Channel():
			if v, ok := m.Payload.(types.BatteryValue); ok {
				fmt.Printf("[value] %d mV  %d.%02d %%  sleeping=%v\n",
					v.MilliV, v.SOCCentiPct/100, v.SOCCentiPct%100, v.Sleeping)
			}
		case m := <-alertSub.Channel():
			if a, ok := m.Payload.(types.LowSOCAlert); ok {
				fmt.Printf("[alert] low SOC: %d.%02d %% below %d %% threshold\n",
					a.SOCCentiPct/100, a.SOCCentiPct%100, a.ThresholdPct)
			}
		case m := <-statusSub.Channel():
			if s, ok := m.Payload.(types.CapabilityStatus); ok && s.Link != types.LinkUp {
				fmt.Printf("[status] link=%s err=%s\n", s.Link, s.Error)
			}
		case <-timeout:
			fmt.Println("== demo complete ==")
			return
		}
	}
}

func waitForLevel(sub *bus.Subscription, level string) {
	for m := range sub.Channel() {
		if s, ok := m.Payload.(types.HALState); ok && s.Level == level {
			return
		}
	}
}
