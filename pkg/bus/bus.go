package bus

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrBusClosed is returned when publishing to a closed MessageBus.
var ErrBusClosed = errors.New("message bus closed")

const defaultQueueSize = 100

// MessageBus carries inbound messages from the platform listeners to the
// relay consumers. Each platform has its own FIFO stream so the two
// directions never block each other.
type MessageBus struct {
	telegram chan InboundMessage
	discord  chan InboundMessage
	done     chan struct{}
	closed   atomic.Bool
}

func NewMessageBus(queueSize int) *MessageBus {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &MessageBus{
		telegram: make(chan InboundMessage, queueSize),
		discord:  make(chan InboundMessage, queueSize),
		done:     make(chan struct{}),
	}
}

func (mb *MessageBus) stream(p Platform) (chan InboundMessage, error) {
	switch p {
	case PlatformTelegram:
		return mb.telegram, nil
	case PlatformDiscord:
		return mb.discord, nil
	}
	return nil, fmt.Errorf("unknown platform %q", p)
}

// PublishInbound queues msg on the stream of msg.Platform.
func (mb *MessageBus) PublishInbound(ctx context.Context, msg InboundMessage) error {
	if mb.closed.Load() {
		return ErrBusClosed
	}
	ch, err := mb.stream(msg.Platform)
	if err != nil {
		return err
	}
	select {
	case ch <- msg:
		return nil
	case <-mb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConsumeInbound blocks until the next message from platform p arrives.
// It returns false once the bus is closed or ctx is done.
func (mb *MessageBus) ConsumeInbound(ctx context.Context, p Platform) (InboundMessage, bool) {
	ch, err := mb.stream(p)
	if err != nil {
		return InboundMessage{}, false
	}
	select {
	case msg, ok := <-ch:
		return msg, ok
	case <-mb.done:
		return InboundMessage{}, false
	case <-ctx.Done():
		return InboundMessage{}, false
	}
}

func (mb *MessageBus) Close() {
	if mb.closed.CompareAndSwap(false, true) {
		close(mb.done)
	}
}
