package mqtt_test

import (
	"context"
	"fmt"
	"time"

	"github.com/autopeer-io/printersim/pkg/log"
	"github.com/autopeer-io/printersim/pkg/mqtt"
	"github.com/autopeer-io/printersim/pkg/mqtt/topic"
)

// ExampleClient connects to a printer, listens on its report topic and asks
// for a full status push.
func ExampleClient() {
	cfg := &mqtt.ClientConfig{
		BrokerURL:      "ssl://127.0.0.1:8883",
		Username:       "bblp",
		Password:       "test1234",
		KeepAlive:      60,
		ConnectTimeout: 5 * time.Second,
		// Printers present self-signed certificates.
		InsecureSkipVerify: true,
		CleanSession:       true,
	}

	client, err := mqtt.NewClient(cfg)
	if err != nil {
		log.Error(err, "Failed to create MQTT client")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Start(ctx); err != nil {
		log.Error(err, "Failed to connect")
		return
	}
	defer client.Disconnect(ctx)

	topics := topic.NewTopicBuilder(topic.DefaultRoot)
	serial := "01S00A123456789"

	// Handlers run on their own goroutine.
	onReport := func(ctx context.Context, topic string, payload []byte) {
		fmt.Printf("report on %s: %d bytes\n", topic, len(payload))
	}
	if err := client.Subscribe(ctx, topics.Report(serial), 0, onReport); err != nil {
		log.Error(err, "Failed to subscribe")
		return
	}

	req := []byte(`{"pushing":{"command":"pushall","sequence_id":"1"},"print":{"command":"push_all","sequence_id":"2"}}`)
	if err := client.Publish(ctx, topics.Request(serial), 1, false, req); err != nil {
		log.Error(err, "Failed to publish request")
	}
}
