package app

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/lsm303_unified/internal/config"
	"github.com/relabs-tech/lsm303_unified/internal/sensor"
)

const descriptorSuffix = "/descriptor"

// publisher is the part of mqtt.Client the producer needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Topics routes events to MQTT topics by quantity.
type Topics struct {
	Accel string
	Mag   string
}

func TopicsFromConfig(cfg *config.Config) Topics {
	return Topics{Accel: cfg.TopicAccel, Mag: cfg.TopicMag}
}

// For returns the event topic for q.
func (t Topics) For(q sensor.Quantity) (string, error) {
	switch q {
	case sensor.Acceleration:
		return t.Accel, nil
	case sensor.MagneticField:
		return t.Mag, nil
	}
	return "", fmt.Errorf("no topic for %s", q)
}

// DescriptorFor returns the retained descriptor topic for q.
func (t Topics) DescriptorFor(q sensor.Quantity) (string, error) {
	topic, err := t.For(q)
	if err != nil {
		return "", err
	}
	return topic + descriptorSuffix, nil
}

func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	log.Infof("connected to MQTT broker at %s as %s", broker, clientID)
	return client, nil
}

// subscribeEvents feeds events and descriptors for both quantities into cache
// and calls onEvent (if set) for every accepted event.
func subscribeEvents(client mqtt.Client, topics Topics, cache *EventCache, onEvent func(sensor.Event)) error {
	for _, q := range []sensor.Quantity{sensor.Acceleration, sensor.MagneticField} {
		topic, _ := topics.For(q)
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			var ev sensor.Event
			if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
				log.Warnf("%s: event unmarshal error: %v", msg.Topic(), err)
				return
			}
			if cache.Put(ev) && onEvent != nil {
				onEvent(ev)
			}
		})
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("subscribe %s: %w", topic, token.Error())
		}
		log.Infof("subscribed to %s", topic)

		dtopic, _ := topics.DescriptorFor(q)
		token = client.Subscribe(dtopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			var d sensor.Descriptor
			if err := json.Unmarshal(msg.Payload(), &d); err != nil {
				log.Warnf("%s: descriptor unmarshal error: %v", msg.Topic(), err)
				return
			}
			cache.PutDescriptor(d)
		})
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("subscribe %s: %w", dtopic, token.Error())
		}
	}
	return nil
}
