package bridge

import (
	"fmt"
	"strings"
)

// TopicRegistry is the ordered, immutable set of configured topics.
type TopicRegistry struct {
	entries []TopicEntry
}

// NewTopicRegistry validates entries and keeps their order. Topic 0 is
// reserved for the general channel and may not be listed.
func NewTopicRegistry(entries []TopicEntry) (*TopicRegistry, error) {
	ids := make(map[TopicID]bool, len(entries))
	names := make(map[string]bool, len(entries))
	out := make([]TopicEntry, 0, len(entries))

	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		switch {
		case e.ID <= GeneralTopic:
			return nil, fmt.Errorf("%w: entry %d (%q) has id %d", ErrInvalidTopic, i, name, e.ID)
		case name == "":
			return nil, fmt.Errorf("%w: entry %d has an empty name", ErrInvalidTopic, i)
		case ids[e.ID]:
			return nil, fmt.Errorf("%w: duplicate id %d", ErrInvalidTopic, e.ID)
		case names[name]:
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidTopic, name)
		}
		ids[e.ID] = true
		names[name] = true
		out = append(out, TopicEntry{ID: e.ID, Name: name})
	}
	return &TopicRegistry{entries: out}, nil
}

// Entries returns a copy of the topics in configured order.
func (r *TopicRegistry) Entries() []TopicEntry {
	out := make([]TopicEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *TopicRegistry) Len() int { return len(r.entries) }

// Name returns the configured name of a topic.
func (r *TopicRegistry) Name(id TopicID) (string, bool) {
	for _, e := range r.entries {
		if e.ID == id {
			return e.Name, true
		}
	}
	return "", false
}
