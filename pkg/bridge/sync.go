package bridge

import (
	"context"
	"sync"

	"github.com/tinyland-inc/topicbridge/pkg/logger"
)

// DefaultGeneralChannel is the channel name bound to GeneralTopic.
const DefaultGeneralChannel = "general"

// SyncEngine reconciles the topic registry with the channels of a server.
// It only ever creates channels; existing ones are never renamed or
// deleted, so running it twice against the same server creates nothing the
// second time.
type SyncEngine struct {
	generalName string
}

func NewSyncEngine(generalName string) *SyncEngine {
	if generalName == "" {
		generalName = DefaultGeneralChannel
	}
	return &SyncEngine{generalName: generalName}
}

// Synchronize builds the identity map. Listing the server or ensuring the
// general channel failing is fatal (*SyncError). A single topic whose
// channel cannot be created is logged and left unmapped.
func (e *SyncEngine) Synchronize(ctx context.Context, registry *TopicRegistry, dir ChannelDirectory) (*IdentityMap, error) {
	canon := func(name string) string { return name }
	if c, ok := dir.(NameCanonicalizer); ok {
		canon = c.CanonicalName
	}

	channels, err := dir.ListChannels(ctx)
	if err != nil {
		return nil, &SyncError{Op: "list channels", Err: err}
	}

	existing := make(map[string]ChannelRef, len(channels))
	for _, ch := range channels {
		key := canon(ch.Name)
		if prev, dup := existing[key]; dup {
			logger.WarnCF("sync", "Duplicate channel name, keeping first", map[string]any{
				"name":    ch.Name,
				"kept":    string(prev.ID),
				"ignored": string(ch.ID),
			})
			continue
		}
		existing[key] = ch
		logger.DebugCF("sync", "Existing channel", map[string]any{
			"name":       ch.Name,
			"channel_id": string(ch.ID),
		})
	}

	b := newMapBuilder()

	general, err := e.ensure(ctx, dir, existing, canon, e.generalName)
	if err != nil {
		return nil, &SyncError{Op: "ensure general channel", Err: err}
	}
	if err := b.bind(GeneralTopic, general); err != nil {
		return nil, &SyncError{Op: "bind general channel", Err: err}
	}

	for _, topic := range registry.Entries() {
		ch, err := e.ensure(ctx, dir, existing, canon, topic.Name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &SyncError{Op: "create channels", Err: ctx.Err()}
			}
			cerr := &ChannelCreateError{Topic: topic, Err: err}
			logger.ErrorCF("sync", "Topic left unmapped", map[string]any{
				"error": cerr.Error(),
			})
			continue
		}
		if err := b.bind(topic.ID, ch); err != nil {
			logger.WarnCF("sync", "Topic left unmapped", map[string]any{
				"topic_id": topic.ID.String(),
				"name":     topic.Name,
				"error":    err.Error(),
			})
			continue
		}
	}

	m := b.build()
	logger.InfoCF("sync", "Channels synchronized", map[string]any{
		"topics":   registry.Len(),
		"bindings": m.Len(),
	})
	return m, nil
}

func (e *SyncEngine) ensure(ctx context.Context, dir ChannelDirectory, existing map[string]ChannelRef,
	canon func(string) string, name string,
) (ChannelRef, error) {
	key := canon(name)
	if ch, ok := existing[key]; ok {
		logger.DebugCF("sync", "Channel already exists", map[string]any{
			"name":       name,
			"channel_id": string(ch.ID),
		})
		return ch, nil
	}

	ch, err := dir.CreateChannel(ctx, name)
	if err != nil {
		return ChannelRef{}, err
	}
	existing[key] = ch
	if k := canon(ch.Name); k != key {
		existing[k] = ch
	}
	logger.InfoCF("sync", "Created channel", map[string]any{
		"name":       name,
		"channel_id": string(ch.ID),
	})
	return ch, nil
}

// DryRunDirectory lists through to a real directory but only records the
// channels it would create.
type DryRunDirectory struct {
	inner ChannelDirectory

	mu      sync.Mutex
	planned []string
}

func NewDryRunDirectory(inner ChannelDirectory) *DryRunDirectory {
	return &DryRunDirectory{inner: inner}
}

func (d *DryRunDirectory) ListChannels(ctx context.Context) ([]ChannelRef, error) {
	return d.inner.ListChannels(ctx)
}

func (d *DryRunDirectory) CreateChannel(_ context.Context, name string) (ChannelRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.planned = append(d.planned, name)
	return ChannelRef{ID: ChannelID("dry-run:" + name), Name: name}, nil
}

func (d *DryRunDirectory) CanonicalName(name string) string {
	if c, ok := d.inner.(NameCanonicalizer); ok {
		return c.CanonicalName(name)
	}
	return name
}

// Planned returns the names CreateChannel was called with, in order.
func (d *DryRunDirectory) Planned() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.planned))
	copy(out, d.planned)
	return out
}
