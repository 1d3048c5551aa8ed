package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tinyland-inc/topicbridge/pkg/bus"
	"github.com/tinyland-inc/topicbridge/pkg/logger"
	"github.com/tinyland-inc/topicbridge/pkg/media"
)

type Options struct {
	GeneralChannel string
	BackfillLimit  int
	// ShutdownGrace bounds how long an in-flight relay may keep running
	// after Run's context is cancelled.
	ShutdownGrace time.Duration
}

// Bridge owns the startup sequence and the two relay consumers.
type Bridge struct {
	registry *TopicRegistry
	telegram TopicPlatform
	discord  ChannelPlatform
	bus      *bus.MessageBus
	store    *media.Store
	opts     Options

	identity *IdentityMap
	relay    *Relay
}

func New(registry *TopicRegistry, telegram TopicPlatform, discord ChannelPlatform,
	msgBus *bus.MessageBus, store *media.Store, opts Options,
) *Bridge {
	return &Bridge{
		registry: registry,
		telegram: telegram,
		discord:  discord,
		bus:      msgBus,
		store:    store,
		opts:     opts,
	}
}

// Prepare synchronizes channels and runs the backfill. It must complete
// before any listener starts publishing to the bus.
func (b *Bridge) Prepare(ctx context.Context) error {
	identity, err := NewSyncEngine(b.opts.GeneralChannel).Synchronize(ctx, b.registry, b.discord)
	if err != nil {
		return err
	}
	b.identity = identity
	b.relay = NewRelay(identity, b.telegram, b.discord, b.store)

	if b.opts.BackfillLimit > 0 {
		NewBackfiller(b.telegram, b.relay).Backfill(ctx, b.opts.BackfillLimit)
	}
	return nil
}

// Identity returns the map built by Prepare, or nil before it.
func (b *Bridge) Identity() *IdentityMap { return b.identity }

// Run consumes both inbound streams until ctx is cancelled or the bus is
// closed. Each stream is handled by one goroutine, so messages of a stream
// are relayed one at a time in arrival order while the two directions run
// independently.
func (b *Bridge) Run(ctx context.Context) error {
	if b.relay == nil {
		return errors.New("bridge: Run called before Prepare")
	}

	opsCtx, cancelOps := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelOps()

	var g errgroup.Group
	g.Go(func() error {
		b.consume(ctx, opsCtx, bus.PlatformTelegram, b.relay.TelegramToDiscord)
		return nil
	})
	g.Go(func() error {
		b.consume(ctx, opsCtx, bus.PlatformDiscord, b.relay.DiscordToTelegram)
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	timer := time.NewTimer(b.opts.ShutdownGrace)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		logger.WarnCF("bridge", "Abandoning in-flight relays", map[string]any{
			"grace": b.opts.ShutdownGrace.String(),
		})
		cancelOps()
		return <-done
	}
}

func (b *Bridge) consume(ctx, opsCtx context.Context, p bus.Platform, relay func(context.Context, InboundMessage) Result) {
	for {
		msg, ok := b.bus.ConsumeInbound(ctx, p)
		if !ok {
			return
		}
		res := b.relayOne(opsCtx, relay, msg)
		fields := res.fields()
		fields["platform"] = string(p)
		fields["message_id"] = msg.MessageID
		switch res.Status {
		case StatusFailed:
			logger.ErrorCF("bridge", "Relay failed", fields)
		case StatusDropped:
			logger.DebugCF("bridge", "Message dropped", fields)
		default:
			logger.DebugCF("bridge", "Message relayed", fields)
		}
	}
}

// relayOne keeps a panicking relay from taking its consumer down.
func (b *Bridge) relayOne(ctx context.Context, relay func(context.Context, InboundMessage) Result, msg InboundMessage) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = failed(fmt.Errorf("relay panic: %v", r), 0, false)
		}
	}()
	return relay(ctx, msg)
}
