package mq

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/glyphworks/ocr-server/internal/config"
)

// PulsarMQ adapts a Pulsar cluster to the MQ interface. Producers and
// consumers are created per topic on first use and cached.
type PulsarMQ struct {
	client    pulsar.Client
	producers sync.Map
	consumers sync.Map
}

func NewPulsarMQ(cfg *config.PulsarConfig) (*PulsarMQ, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{URL: cfg.URL})
	if err != nil {
		return nil, err
	}

	return &PulsarMQ{
		client: client,
	}, nil
}

func (mq *PulsarMQ) Publish(ctx context.Context, topic string, message []byte) error {
	producer, err := mq.getProducer(topic)
	if err != nil {
		return err
	}

	_, err = producer.Send(ctx, &pulsar.ProducerMessage{Payload: message})
	return err
}

func (mq *PulsarMQ) Receive(ctx context.Context, topic string) (interface{}, error) {
	consumer, err := mq.getConsumer(topic)
	if err != nil {
		return nil, err
	}

	return consumer.Receive(ctx)
}

func (mq *PulsarMQ) GetMessageData(message interface{}) ([]byte, error) {
	msg, ok := message.(pulsar.Message)
	if !ok {
		return nil, fmt.Errorf("unexpected message type %T", message)
	}

	return msg.Payload(), nil
}

func (mq *PulsarMQ) Ack(topic string, message interface{}) error {
	consumer, err := mq.getConsumer(topic)
	if err != nil {
		return err
	}

	msg, ok := message.(pulsar.Message)
	if !ok {
		return fmt.Errorf("unexpected message type %T", message)
	}

	return consumer.Ack(msg)
}

func (mq *PulsarMQ) CloseTopic(topic string) error {
	if producer, ok := mq.producers.LoadAndDelete(topic); ok {
		producer.(pulsar.Producer).Close()
	}

	if consumer, ok := mq.consumers.LoadAndDelete(topic); ok {
		consumer.(pulsar.Consumer).Close()
	}

	return nil
}

func (mq *PulsarMQ) Close() error {
	mq.client.Close()
	return nil
}

func (mq *PulsarMQ) getProducer(topic string) (pulsar.Producer, error) {
	if value, ok := mq.producers.Load(topic); ok {
		return value.(pulsar.Producer), nil
	}

	producer, err := mq.client.CreateProducer(pulsar.ProducerOptions{Topic: topic})
	if err != nil {
		return nil, err
	}

	mq.producers.Store(topic, producer)
	return producer, nil
}

func (mq *PulsarMQ) getConsumer(topic string) (pulsar.Consumer, error) {
	if value, ok := mq.consumers.Load(topic); ok {
		return value.(pulsar.Consumer), nil
	}

	consumer, err := mq.client.Subscribe(pulsar.ConsumerOptions{
		Topic:            topic,
		Type:             pulsar.Exclusive,
		SubscriptionName: strings.ReplaceAll(topic, "/", "-"),
	})
	if err != nil {
		return nil, err
	}

	mq.consumers.Store(topic, consumer)
	return consumer, nil
}
