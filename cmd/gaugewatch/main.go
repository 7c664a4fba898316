//go:build linux

// Command gaugewatch talks to a MAX17048/MAX17049 on a Linux I2C adapter.
// One-shot by default; --watch polls until interrupted.
//
//	gaugewatch --bus /dev/i2c-1
//	gaugewatch --bus 1 --set-threshold 15
//	gaugewatch --watch 1s
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gaugecode-go/drivers/max1704x"
	"gaugecode-go/services/hal/core"
	"gaugecode-go/services/hal/drvshim"
	"gaugecode-go/services/hal/provider/host"
)

func main() {
	var (
		busName    = flag.String("bus", "", "I2C bus name (empty selects the first adapter)")
		addr       = flag.Uint("addr", max1704x.Address, "device address")
		variant    = flag.String("variant", "max17048", "max17048 | max17049")
		watch      = flag.Duration("watch", 0, "poll interval; 0 reads once")
		threshold  = flag.Uint("set-threshold", 0, "set low-SOC alert threshold (1..32 %)")
		rcomp      = flag.Uint("set-rcomp", 0, "set RCOMP model value (1..255)")
		quickStart = flag.Bool("quick-start", false, "restart SOC estimation")
		reset      = flag.Bool("reset", false, "power-on reset the gauge")
		sleep      = flag.Bool("sleep", false, "halt the gauge")
		wake       = flag.Bool("wake", false, "resume the gauge")
		clearAlert = flag.Bool("clear-alert", false, "clear a latched alert")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	v := max1704x.MAX17048
	switch *variant {
	case "max17048":
	case "max17049":
		v = max1704x.MAX17049
	default:
		slog.Error("unknown variant", "variant", *variant)
		os.Exit(2)
	}

	reg, err := host.NewRegistry()
	if err != nil {
		slog.Error("host init failed", "err", err)
		os.Exit(1)
	}
	defer reg.Close()

	owner, err := reg.ClaimI2C("gaugewatch", core.ResourceID(*busName))
	if err != nil {
		slog.Error("cannot open bus", "bus", *busName, "err", err)
		os.Exit(1)
	}

	dev := max1704x.New(drvshim.NewI2C(owner), max1704x.Config{
		Address: uint16(*addr),
		Variant: v,
	})

	if ver, err := dev.Version(); err == nil {
		slog.Debug("gauge present", "version", fmt.Sprintf("%#04x", ver))
	} else {
		slog.Error("gauge not responding", "err", err)
		os.Exit(1)
	}

	// Apply requested mutations before any reads.
	run := func(name string, fn func() error) {
		if err := fn(); err != nil {
			slog.Error(name+" failed", "err", err)
			os.Exit(1)
		}
		slog.Info(name + " done")
	}
	if *reset {
		run("reset", dev.Reset)
	}
	if *quickStart {
		run("quick-start", dev.QuickStart)
	}
	if *rcomp != 0 {
		run("set-rcomp", func() error { return dev.SetCompensation(uint8(*rcomp)) })
	}
	if *threshold != 0 {
		run("set-threshold", func() error { return dev.SetAlertThreshold(uint8(*threshold)) })
	}
	if *clearAlert {
		run("clear-alert", dev.ClearAlertInterrupt)
	}
	if *sleep {
		run("sleep", dev.Sleep)
	}
	if *wake {
		run("wake", dev.Wake)
	}

	if err := printReading(dev); err != nil {
		slog.Error("read failed", "err", err)
		os.Exit(1)
	}
	if *watch == 0 {
		return
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	tick := time.NewTicker(*watch)
	defer tick.Stop()
	for {
		select {
		case <-sig:
			return
		case <-tick.C:
			if err := printReading(dev); err != nil {
				slog.Error("read failed", "err", err)
			}
		}
	}
}

func printReading(dev *max1704x.Device) error {
	uv, err := dev.CellMicroVolts()
	if err != nil {
		return err
	}
	soc, err := dev.StateOfChargeCenti()
	if err != nil {
		return err
	}
	threshold, err := dev.AlertThreshold()
	if err != nil {
		return err
	}
	sleeping, err := dev.Sleeping()
	if err != nil {
		return err
	}

	state := "active"
	if sleeping {
		state = "sleeping"
	}
	fmt.Printf("%s  %d.%03d V  %d.%02d %%  alert@%d%%  %s\n",
		time.Now().Format(time.RFC3339),
		uv/1_000_000, uv%1_000_000/1000,
		soc/100, soc%100,
		threshold, state)
	return nil
}
