package mq

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryMQ is the default queue for single-process deployments. Each topic
// is a buffered channel; messages are dropped into Receive in publish order
// and acking is a no-op because receiving already pops.
type InMemoryMQ struct {
	maxSize   int
	topics    sync.Map
	closeCh   chan struct{}
	closeOnce sync.Once
}

// topicChan pairs a topic's channel with the state needed to close it
// exactly once while publishers may still be active.
type topicChan struct {
	mu     sync.RWMutex
	ch     chan []byte
	closed bool
}

func (t *topicChan) publish(message []byte) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return ErrTopicClosed
	}

	select {
	case t.ch <- message:
		return nil
	default:
		return ErrQueueFull
	}
}

func (t *topicChan) close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.closed {
		t.closed = true
		close(t.ch)
	}
}

func NewInMemoryMQ(maxSize int) (*InMemoryMQ, error) {
	return &InMemoryMQ{
		maxSize: maxSize,
		closeCh: make(chan struct{}),
	}, nil
}

func (q *InMemoryMQ) topic(name string) *topicChan {
	value, _ := q.topics.LoadOrStore(name, &topicChan{ch: make(chan []byte, q.maxSize)})
	return value.(*topicChan)
}

func (q *InMemoryMQ) Publish(ctx context.Context, topic string, message []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeCh:
		return ErrQueueClosed
	default:
	}

	return q.topic(topic).publish(message)
}

func (q *InMemoryMQ) Receive(ctx context.Context, topic string) (interface{}, error) {
	t := q.topic(topic)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.closeCh:
		return nil, ErrQueueClosed
	case data, ok := <-t.ch:
		if !ok {
			// Drop the entry only if it still holds this channel; a fresh
			// channel may already have taken the name.
			q.topics.CompareAndDelete(topic, t)
			return nil, ErrTopicClosed
		}
		return data, nil
	}
}

func (q *InMemoryMQ) GetMessageData(message interface{}) ([]byte, error) {
	data, ok := message.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected message type %T", message)
	}

	return data, nil
}

func (q *InMemoryMQ) Ack(topic string, message interface{}) error {
	return nil
}

// CloseTopic closes the topic channel. Receivers drain any buffered
// messages first and then get ErrTopicClosed; the entry stays in the map
// until a receiver observes the close.
func (q *InMemoryMQ) CloseTopic(topic string) error {
	value, ok := q.topics.Load(topic)
	if !ok {
		return ErrTopicNotExists
	}

	value.(*topicChan).close()
	return nil
}

func (q *InMemoryMQ) Close() error {
	q.closeOnce.Do(func() { close(q.closeCh) })
	return nil
}
