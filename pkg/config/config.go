package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
)

type MQTTConfig struct {
	Server   string `json:"server"`
	Username string `json:"username"`
	Password string `json:"password"`
	ClientID string `json:"client_id"`
	Topic    string `json:"topic"`
}

type OutputConfig struct {
	Type string      `json:"type"`
	Path string      `json:"path,omitempty"`
	MQTT *MQTTConfig `json:"mqtt,omitempty"`
}

type Config struct {
	SPIPort       string         `json:"spi_port"`
	SensorType    string         `json:"sensor_type"`
	Rate          int            `json:"rate"`
	DurationMs    int            `json:"duration_ms"`
	BufferCap     int            `json:"buffer_cap,omitempty"`
	StopTimeoutMs int            `json:"stop_timeout_ms,omitempty"`
	ClockFreqHz   float64        `json:"clock_freq_hz,omitempty"`
	Outputs       []OutputConfig `json:"outputs"`
}

func DefaultConfig() Config {
	return Config{
		SPIPort:     "SPI0.0",
		SensorType:  "real",
		Rate:        3200,
		DurationMs:  2000,
		ClockFreqHz: 1e6,
		Outputs:     []OutputConfig{{Type: "csv"}},
	}
}

// LoadFromFlags loads configuration from a JSON file (optional) and
// flags. Flags override values present in the JSON file.
func LoadFromFlags() (Config, error) {
	cfgPath := flag.String("config", "", "Path to JSON config file")
	flagSPIPort := flag.String("spi-port", "", "SPI port name (e.g., 'SPI0.0')")
	flagSensorType := flag.String("sensor-type", "", "sensor type: real|simulation")
	flagRate := flag.Int("rate", -1, "query rate in Hz (25..3200)")
	flagDuration := flag.Int("duration-ms", -1, "capture duration in ms")
	flagBufferCap := flag.Int("buffer-cap", -1, "max batches buffered per capture")
	flagStopTimeout := flag.Int("stop-timeout-ms", -1, "stop round-trip timeout in ms")
	flagClockFreq := flag.Float64("clock-freq-hz", -1, "device clock frequency in Hz")
	flagOutputs := flag.String("outputs", "", "Comma-separated outputs (console,csv,mqtt)")
	flagCSVPath := flag.String("csv-path", "", "CSV output path (default /tmp/adxl345-<time>.csv)")
	flagMQTTServer := flag.String("mqtt-server", "", "MQTT server (tcp://host:port)")
	flagMQTTUser := flag.String("mqtt-user", "", "MQTT username")
	flagMQTTPass := flag.String("mqtt-pass", "", "MQTT password")
	flagClientID := flag.String("mqtt-client-id", "", "MQTT client id")
	flagTopic := flag.String("mqtt-topic", "", "MQTT topic")

	flag.Parse()

	cfg := DefaultConfig()

	if *cfgPath != "" {
		b, err := os.ReadFile(*cfgPath)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if *flagSPIPort != "" {
		cfg.SPIPort = *flagSPIPort
	}
	if *flagSensorType != "" {
		cfg.SensorType = *flagSensorType
	}
	if *flagRate != -1 {
		cfg.Rate = *flagRate
	}
	if *flagDuration != -1 {
		cfg.DurationMs = *flagDuration
	}
	if *flagBufferCap != -1 {
		cfg.BufferCap = *flagBufferCap
	}
	if *flagStopTimeout != -1 {
		cfg.StopTimeoutMs = *flagStopTimeout
	}
	if *flagClockFreq != -1 {
		cfg.ClockFreqHz = *flagClockFreq
	}
	if *flagOutputs != "" {
		cfg.Outputs = outputsFromTypes(parseCSV(*flagOutputs))
	}
	if *flagCSVPath != "" {
		for i := range cfg.Outputs {
			if strings.ToLower(cfg.Outputs[i].Type) == "csv" {
				cfg.Outputs[i].Path = *flagCSVPath
			}
		}
	}
	// map mqtt flags into every mqtt output (create one if missing)
	if *flagMQTTServer != "" || *flagMQTTUser != "" || *flagMQTTPass != "" || *flagClientID != "" || *flagTopic != "" {
		applied := false
		for i := range cfg.Outputs {
			if strings.ToLower(cfg.Outputs[i].Type) == "mqtt" {
				applyMQTTFlags(&cfg.Outputs[i], *flagMQTTServer, *flagMQTTUser, *flagMQTTPass, *flagClientID, *flagTopic)
				applied = true
			}
		}
		if !applied {
			out := OutputConfig{Type: "mqtt"}
			applyMQTTFlags(&out, *flagMQTTServer, *flagMQTTUser, *flagMQTTPass, *flagClientID, *flagTopic)
			cfg.Outputs = append(cfg.Outputs, out)
		}
	}

	if cfg.Rate <= 0 {
		return cfg, errors.New("rate must be > 0")
	}
	if cfg.DurationMs <= 0 {
		return cfg, errors.New("duration-ms must be > 0")
	}
	if cfg.ClockFreqHz <= 0 {
		return cfg, errors.New("clock-freq-hz must be > 0")
	}
	if cfg.SensorType != "real" && cfg.SensorType != "simulation" {
		return cfg, fmt.Errorf("unknown sensor type %q", cfg.SensorType)
	}

	return cfg, nil
}

func applyMQTTFlags(out *OutputConfig, server, user, pass, clientID, topic string) {
	if out.MQTT == nil {
		out.MQTT = &MQTTConfig{}
	}
	if server != "" {
		out.MQTT.Server = server
	}
	if user != "" {
		out.MQTT.Username = user
	}
	if pass != "" {
		out.MQTT.Password = pass
	}
	if clientID != "" {
		out.MQTT.ClientID = clientID
	}
	if topic != "" {
		out.MQTT.Topic = topic
	}
}

func outputsFromTypes(types []string) []OutputConfig {
	outs := make([]OutputConfig, 0, len(types))
	for _, t := range types {
		outs = append(outs, OutputConfig{Type: t})
	}
	return outs
}

func parseCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
