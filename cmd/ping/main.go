// Command ping discovers LIFX devices on the local network, prints what it
// learns about each, then exercises one of them (selected by --play label)
// through a short light show before restoring its original state.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/MatusOllah/slogcolor"
	"gopkg.in/yaml.v3"

	"github.com/lifx-go/lifxlan"
)

var (
	playLabel = flag.String("play", "TV", "`label` of a device to exercise")
	namesFile = flag.String("names", "", "optional `path` to a YAML file mapping serial (\"aabbccddeeff\") to a friendly label, overriding --play's device's own label")
	isVerbose = flag.Bool("verbose", false, "enable DEBUG-level trace logging of the retry loop")
)

// loadNames reads an optional YAML file of serial -> friendly label
// overrides, keyed the same way Device.Serial formats with %x.
func loadNames(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var names map[string]string
	if err := yaml.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return names, nil
}

func main() {
	flag.Parse()
	ctx := context.Background()

	opts := slogcolor.DefaultOptions
	if *isVerbose {
		opts.Level = slog.LevelDebug
	}
	logger := slog.New(slogcolor.NewHandler(os.Stderr, opts))
	slog.SetDefault(logger)

	names, err := loadNames(*namesFile)
	if err != nil {
		logger.Error("loading --names file", "err", err)
		os.Exit(1)
	}

	client, err := lifx.NewClient(lifx.WithLogger(logger))
	if err != nil {
		logger.Error("NewClient", "err", err)
		os.Exit(1)
	}
	defer client.Close()

	const wait = 2 * time.Second
	logger.Info("discovering LIFX devices", "for", wait)
	discCtx, cancel := context.WithTimeout(ctx, wait)
	devs, err := client.Discover(discCtx)
	if err != nil {
		logger.Error("Discover", "err", err)
		os.Exit(1)
	}
	cancel()

	var playDev *lifx.Device
	for _, dev := range devs {
		serial := fmt.Sprintf("%x", dev.Serial)
		logger.Info("found device", "addr", dev.Addr.String(), "serial", serial)

		caps, err := dev.Identify(ctx)
		if err != nil {
			logger.Warn("Identify", "serial", serial, "err", err)
			continue
		}
		logger.Info("  product", "name", caps.ProductName)

		power, err := dev.GetPower(ctx)
		if err == nil {
			logger.Info("  power", "on", power)
		} else {
			logger.Warn("GetPower", "serial", serial, "err", err)
		}

		label, err := dev.GetLabel(ctx)
		if err != nil {
			logger.Warn("GetLabel", "serial", serial, "err", err)
		} else {
			logger.Info("  label", "value", label)
		}
		if friendly, ok := names[serial]; ok {
			logger.Info("  name override", "value", friendly)
			label = friendly
		}

		if cl, ok := dev.AsColorLight(); ok {
			col, _, _, err := cl.GetColor(ctx)
			if err == nil {
				logger.Info("  color", "value", fmt.Sprintf("%+v", col))
			} else {
				logger.Warn("GetColor", "serial", serial, "err", err)
			}
		}

		if label == *playLabel {
			playDev = dev
		}
	}

	if playDev == nil {
		logger.Info("no device with that label; done", "label", *playLabel)
		return
	}
	playDev.Tracef = func(ctx context.Context, format string, args ...interface{}) {
		logger.DebugContext(ctx, fmt.Sprintf("--> "+format, args...))
	}

	cl, ok := playDev.AsColorLight()
	if !ok {
		logger.Error("device doesn't support color", "label", *playLabel)
		os.Exit(1)
	}

	// Capture current state.
	state, err := playDev.CaptureState(ctx)
	if err != nil {
		logger.Error("CaptureState", "err", err)
		os.Exit(1)
	}

	// Set a solid green over a short period.
	const greenTime = 3 * time.Second
	logger.Info("going green...")
	if err := playDev.QuietOn(ctx); err != nil { // put in an on-but-no-light state
		logger.Warn("QuietOn", "err", err)
	}
	if err := cl.SetColor(ctx, lifx.Color{Hue: 0x5555, Saturation: 0xFFFF, Brightness: 0xBBBB}, greenTime); err != nil {
		logger.Warn("SetColor", "err", err)
	}
	time.Sleep(greenTime)

	// Do something interesting, if this device supports multizone.
	const playTime = 10 * time.Second
	if mz, ok := playDev.AsMultizoneLight(); ok {
		logger.Info("setting red & blue...")
		zones := make([]lifx.Color, state.NumZones())
		for i := range zones {
			if i&1 == 0 {
				// Red
				zones[i] = lifx.Color{Hue: 0, Saturation: 0xFFFF, Brightness: 0xBBBB}
			} else {
				// Blue
				zones[i] = lifx.Color{Hue: 0xAAAA, Saturation: 0xFFFF, Brightness: 0xFFFF}
			}
		}
		if err := mz.SetExtendedColorZones(ctx, playTime/2, zones); err != nil {
			logger.Warn("SetExtendedColorZones", "err", err)
		}
		logger.Info("transition running", "for", playTime/2)
		time.Sleep(playTime / 2)
	}

	// Gently flash.
	logger.Info("waving...")
	const cycles = 5
	err = cl.SetWaveform(ctx, lifx.WaveformConfig{
		Waveform:  lifx.SineWaveform,
		Transient: true, // the default for Sine anyway

		Color: lifx.Color{
			Hue:        0xD709,
			Saturation: 0xFFFF,
			Brightness: 0xFFFF,
		},

		Period: (playTime / 2) / cycles,
		Cycles: cycles,
	})
	if err != nil {
		logger.Error("SetWaveform", "err", err)
		os.Exit(1)
	}
	time.Sleep(playTime / 2)

	logger.Info("restoring state...")
	if err := playDev.RestoreState(ctx, state); err != nil {
		logger.Error("RestoreState", "err", err)
		os.Exit(1)
	}
}
