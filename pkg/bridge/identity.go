package bridge

import (
	"fmt"
	"sort"
)

// Binding is one topic/channel pair of an IdentityMap.
type Binding struct {
	Topic   TopicID
	Channel ChannelRef
}

// IdentityMap is a bijection between topic ids and channel ids. It is
// immutable once built, so concurrent readers need no locking.
type IdentityMap struct {
	forward map[TopicID]ChannelRef
	reverse map[ChannelID]TopicID
}

// NewIdentityMap builds a map from explicit bindings, rejecting any that
// would break the bijection.
func NewIdentityMap(bindings ...Binding) (*IdentityMap, error) {
	b := newMapBuilder()
	for _, bd := range bindings {
		if err := b.bind(bd.Topic, bd.Channel); err != nil {
			return nil, err
		}
	}
	return b.build(), nil
}

// Forward resolves the channel a topic relays to.
func (m *IdentityMap) Forward(topic TopicID) (ChannelID, bool) {
	ref, ok := m.forward[topic]
	return ref.ID, ok
}

// Reverse resolves the topic a channel relays to.
func (m *IdentityMap) Reverse(channel ChannelID) (TopicID, bool) {
	t, ok := m.reverse[channel]
	return t, ok
}

// General returns the channel bound to GeneralTopic.
func (m *IdentityMap) General() (ChannelID, bool) {
	return m.Forward(GeneralTopic)
}

func (m *IdentityMap) Len() int { return len(m.forward) }

// Entries lists all bindings ordered by topic id.
func (m *IdentityMap) Entries() []Binding {
	out := make([]Binding, 0, len(m.forward))
	for t, ref := range m.forward {
		out = append(out, Binding{Topic: t, Channel: ref})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out
}

type mapBuilder struct {
	m *IdentityMap
}

func newMapBuilder() *mapBuilder {
	return &mapBuilder{m: &IdentityMap{
		forward: make(map[TopicID]ChannelRef),
		reverse: make(map[ChannelID]TopicID),
	}}
}

func (b *mapBuilder) bind(topic TopicID, ch ChannelRef) error {
	if prev, ok := b.m.forward[topic]; ok {
		return fmt.Errorf("%w: topic %d already bound to channel %s", ErrBindingConflict, topic, prev.ID)
	}
	if prev, ok := b.m.reverse[ch.ID]; ok {
		return fmt.Errorf("%w: channel %s already bound to topic %d", ErrBindingConflict, ch.ID, prev)
	}
	b.m.forward[topic] = ch
	b.m.reverse[ch.ID] = topic
	return nil
}

// build hands out the finished map; the builder must not be used again.
func (b *mapBuilder) build() *IdentityMap {
	m := b.m
	b.m = nil
	return m
}
