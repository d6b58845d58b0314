package mqtt

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// ErrPublishTimeout indicates the broker didn't acknowledge in time.
var ErrPublishTimeout = errors.New("mqtt publish timeout")

// DefaultPublishTimeout is used when Writer.Timeout is not set.
const DefaultPublishTimeout = 5 * time.Second

// Writer implements sink.PacketWriter by publishing each packet to Topic.
// The payload is copied before publishing, so the packet can be released
// after WritePacket returns.
type Writer struct {
	Queue   *Queue
	Topic   string
	Timeout time.Duration
}

// NewWriter creates a Writer.
func NewWriter(q *Queue, topic string) *Writer {
	return &Writer{Queue: q, Topic: topic, Timeout: DefaultPublishTimeout}
}

// WritePacket implements PacketWriter.
func (w *Writer) WritePacket(pkt []byte) error {
	payload := make([]byte, len(pkt))
	copy(payload, pkt)
	token := w.Queue.Pub(w.Topic, payload)
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	if !token.WaitTimeout(timeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}

// Message is a received packet with the topic (without prefix).
type Message struct {
	Topic   string
	Payload []byte
}

// Reader receives packets of subscribed topics.
type Reader struct {
	Queue  *Queue
	Topics []string

	msgCh  chan Message
	lock   sync.RWMutex
	closed bool
}

// NewReader creates a Reader.
func NewReader(q *Queue, topics ...string) *Reader {
	return &Reader{Queue: q, Topics: topics, msgCh: make(chan Message, 16)}
}

// Messages gets the channel of received messages, closed when Run exits.
func (r *Reader) Messages() <-chan Message {
	return r.msgCh
}

// ReadPacket implements sink.PacketReader.
func (r *Reader) ReadPacket() ([]byte, error) {
	msg, ok := <-r.msgCh
	if !ok {
		return nil, io.EOF
	}
	return msg.Payload, nil
}

// Run implements Runnable.
func (r *Reader) Run(ctx context.Context) error {
	subs := make([]*Subscription, 0, len(r.Topics))
	for _, topic := range r.Topics {
		subs = append(subs, r.Queue.Sub(topic, func(topic string, payload []byte) {
			r.lock.RLock()
			defer r.lock.RUnlock()
			if r.closed {
				return
			}
			select {
			case r.msgCh <- Message{Topic: topic, Payload: payload}:
			case <-ctx.Done():
			}
		}))
	}
	<-ctx.Done()
	for _, sub := range subs {
		sub.Close()
	}
	r.lock.Lock()
	r.closed = true
	close(r.msgCh)
	r.lock.Unlock()
	return ctx.Err()
}
