package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/eltonlaw/klipper/pkg/adxl345"
	"github.com/eltonlaw/klipper/pkg/bus"
	"github.com/eltonlaw/klipper/pkg/clock"
	"github.com/eltonlaw/klipper/pkg/config"
	"github.com/eltonlaw/klipper/pkg/output"
	"github.com/eltonlaw/klipper/pkg/output/console"
	"github.com/eltonlaw/klipper/pkg/output/csvfile"
	"github.com/eltonlaw/klipper/pkg/output/mqtt"
)

func initOutputs(cfg config.Config) ([]output.Output, error) {
	outs := make([]output.Output, 0, len(cfg.Outputs))
	for _, oc := range cfg.Outputs {
		switch strings.ToLower(oc.Type) {
		case "console":
			outs = append(outs, console.NewConsole())
		case "csv":
			outs = append(outs, csvfile.New(oc.Path))
		case "mqtt":
			var mc config.MQTTConfig
			if oc.MQTT != nil {
				mc = *oc.MQTT
			}
			o, err := mqtt.NewMQTT(mc)
			if err != nil {
				return nil, fmt.Errorf("output mqtt: %w", err)
			}
			outs = append(outs, o)
		default:
			return nil, fmt.Errorf("unknown output type %q", oc.Type)
		}
	}
	return outs, nil
}

func openDevice(cfg config.Config, tr clock.Translator, now func() float64) (bus.Device, error) {
	if cfg.SensorType == "simulation" {
		return adxl345.NewSimDevice(tr, now), nil
	}
	return adxl345.OpenSPI(cfg.SPIPort, tr, now)
}

func main() {
	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatal(err)
	}

	hc := clock.NewHostClock()
	tr := clock.NewLinearTranslator(cfg.ClockFreqHz, 0)
	dev, err := openDevice(cfg, tr, hc.Now)
	if err != nil {
		log.Fatal(err)
	}
	defer dev.Close()

	acc := adxl345.New(dev, tr, adxl345.Options{
		BufferCap:   cfg.BufferCap,
		StopTimeout: time.Duration(cfg.StopTimeoutMs) * time.Millisecond,
		Now:         hc.Now,
	})
	dev.SetHandler(acc)

	outs, err := initOutputs(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		for _, o := range outs {
			o.Close()
		}
	}()

	if err := acc.Start(cfg.Rate); err != nil {
		log.Fatal(err)
	}
	log.Printf("measuring at %d Hz for %d ms", cfg.Rate, cfg.DurationMs)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(time.Duration(cfg.DurationMs) * time.Millisecond):
	case s := <-sig:
		log.Printf("received %v, stopping capture", s)
	}

	res, err := acc.Stop()
	if err != nil {
		log.Fatal(err)
	}
	if res == nil {
		return
	}
	log.Printf("capture %s: %d/%d samples, %d drops",
		res.SessionID, res.ActualCount, res.TotalCount, res.Drops)
	for _, o := range outs {
		if err := o.Publish(res); err != nil {
			log.Printf("publish: %v", err)
		}
	}
}
