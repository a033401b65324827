package config

import (
	"reflect"
	"testing"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"console", []string{"console"}},
		{"console,csv,mqtt", []string{"console", "csv", "mqtt"}},
		{" console , csv ,", []string{"console", "csv"}},
	}
	for _, tt := range tests {
		if got := parseCSV(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("parseCSV(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestOutputsFromTypes(t *testing.T) {
	outs := outputsFromTypes([]string{"console", "csv"})
	if len(outs) != 2 || outs[0].Type != "console" || outs[1].Type != "csv" {
		t.Fatalf("outputsFromTypes: %+v", outs)
	}
}

func TestApplyMQTTFlags(t *testing.T) {
	out := OutputConfig{Type: "mqtt"}
	applyMQTTFlags(&out, "tcp://broker:1883", "u", "", "client-1", "")
	if out.MQTT == nil {
		t.Fatal("mqtt config not created")
	}
	if out.MQTT.Server != "tcp://broker:1883" || out.MQTT.Username != "u" || out.MQTT.ClientID != "client-1" {
		t.Fatalf("mqtt flags not applied: %+v", out.MQTT)
	}
	// empty flags leave existing values alone
	applyMQTTFlags(&out, "", "", "", "", "captures/adxl345")
	if out.MQTT.Server != "tcp://broker:1883" || out.MQTT.Topic != "captures/adxl345" {
		t.Fatalf("mqtt flags overwrote values: %+v", out.MQTT)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.SensorType != "real" || cfg.Rate != 3200 || cfg.ClockFreqHz != 1e6 {
		t.Fatalf("defaults: %+v", cfg)
	}
	if len(cfg.Outputs) != 1 || cfg.Outputs[0].Type != "csv" {
		t.Fatalf("default outputs: %+v", cfg.Outputs)
	}
}
