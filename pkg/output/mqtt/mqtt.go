package mqtt

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/eltonlaw/klipper/pkg/adxl345"
	"github.com/eltonlaw/klipper/pkg/config"
	"github.com/eltonlaw/klipper/pkg/output"
)

const (
	DefaultServer   = "tcp://localhost:1883"
	DefaultClientID = "adxl345-client"
	DefaultTopic    = "adxl345/capture"
)

// summary is the JSON payload published per capture. Sample rows stay
// in the flat export; brokers get the statistics.
type summary struct {
	SessionID      string  `json:"session_id"`
	Rate           int     `json:"rate"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	SampleInterval float64 `json:"sample_interval"`
	TotalCount     int     `json:"total_count"`
	ActualCount    int     `json:"actual_count"`
	Drops          int     `json:"drops"`
	LimitCount     uint16  `json:"limit_count"`
}

type MQTTOutput struct {
	client mqtt.Client
	topic  string
}

func NewMQTT(cfg config.MQTTConfig) (output.Output, error) {
	server := cfg.Server
	if server == "" {
		server = DefaultServer
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}
	opts := mqtt.NewClientOptions().AddBroker(server).SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return &MQTTOutput{client: client, topic: topic}, nil
}

func (m *MQTTOutput) Publish(res *adxl345.CaptureResult) error {
	b, err := json.Marshal(summary{
		SessionID:      res.SessionID,
		Rate:           res.Rate,
		Start:          res.Epoch.FineStart,
		End:            res.End.End2Time,
		SampleInterval: res.SampleInterval,
		TotalCount:     res.TotalCount,
		ActualCount:    res.ActualCount,
		Drops:          res.Drops,
		LimitCount:     res.End.LimitCount,
	})
	if err != nil {
		return err
	}
	token := m.client.Publish(m.topic, 0, false, b)
	token.Wait()
	return token.Error()
}

func (m *MQTTOutput) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}
