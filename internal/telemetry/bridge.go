package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nitinshakthi/energy-tracker/internal/tracker"
)

const ingestTimeout = 10 * time.Second

// Message is the wire format smart meters publish on the readings topic.
type Message struct {
	HomeID      string     `json:"homeId"`
	DeviceID    string     `json:"deviceId"`
	RoomID      string     `json:"roomId"`
	Consumption float64    `json:"consumption"`
	Watts       float64    `json:"watts"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

// Bridge subscribes to an MQTT readings topic and feeds each message through
// the same ingest path HTTP submissions take.
type Bridge struct {
	client  mqtt.Client
	tracker *tracker.Tracker
	topic   string
}

// NewBridge connects to the broker. brokerAddr is a paho URL such as
// tcp://localhost:1883.
func NewBridge(brokerAddr, clientID, topic string, tr *tracker.Tracker) (*Bridge, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerAddr).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to broker %s: %w", brokerAddr, token.Error())
	}

	return &Bridge{client: client, tracker: tr, topic: topic}, nil
}

// Start subscribes to the readings topic.
func (b *Bridge) Start() error {
	token := b.client.Subscribe(b.topic, 1, b.handleMessage)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribing to %s: %w", b.topic, token.Error())
	}
	log.Printf("telemetry: subscribed to %s", b.topic)
	return nil
}

// Stop unsubscribes and disconnects from the broker.
func (b *Bridge) Stop() {
	b.client.Unsubscribe(b.topic)
	b.client.Disconnect(250)
}

func (b *Bridge) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	homeID, payload, err := decodeMessage(msg.Payload())
	if err != nil {
		log.Printf("telemetry: dropping message on %s: %v", msg.Topic(), err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	if _, err := b.tracker.IngestDeviceReading(ctx, homeID, payload); err != nil {
		log.Printf("telemetry: ingest failed for home %s device %s: %v", homeID, payload.DeviceID, err)
	}
}

// decodeMessage parses a broker payload into the ingest payload. Field-level
// validation stays with the ingestor; this only rejects unparseable JSON and
// a missing home reference.
func decodeMessage(payload []byte) (string, tracker.ReadingPayload, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return "", tracker.ReadingPayload{}, fmt.Errorf("decoding payload: %w", err)
	}
	if m.HomeID == "" {
		return "", tracker.ReadingPayload{}, fmt.Errorf("payload missing homeId")
	}

	return m.HomeID, tracker.ReadingPayload{
		DeviceID:    m.DeviceID,
		RoomID:      m.RoomID,
		Consumption: m.Consumption,
		Watts:       m.Watts,
		Timestamp:   m.Timestamp,
	}, nil
}
