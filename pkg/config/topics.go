package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// TopicConfig is one configured Telegram topic and the name of the Discord
// channel it is mirrored to.
type TopicConfig struct {
	Name string
	ID   int64
}

// TopicList is the ordered topic set. It reads the TOPICS format
//
//	[["Announcements", "220"], ["Dev", 101]]
//
// and, in JSON config files, also [{"name": "Dev", "id": 101}].
type TopicList []TopicConfig

func (t *TopicList) UnmarshalText(text []byte) error {
	if len(bytes.TrimSpace(text)) == 0 {
		*t = TopicList{}
		return nil
	}
	return t.UnmarshalJSON(text)
}

func (t *TopicList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("topics must be a JSON list: %w", err)
	}

	out := make(TopicList, 0, len(raw))
	for i, item := range raw {
		tc, err := parseTopic(item)
		if err != nil {
			return fmt.Errorf("topics[%d]: %w", i, err)
		}
		out = append(out, tc)
	}
	*t = out
	return nil
}

func (t TopicList) MarshalJSON() ([]byte, error) {
	pairs := make([][2]any, 0, len(t))
	for _, tc := range t {
		pairs = append(pairs, [2]any{tc.Name, strconv.FormatInt(tc.ID, 10)})
	}
	return json.Marshal(pairs)
}

func parseTopic(item json.RawMessage) (TopicConfig, error) {
	var pair []any
	if err := json.Unmarshal(item, &pair); err == nil {
		if len(pair) != 2 {
			return TopicConfig{}, fmt.Errorf("expected [name, id], got %d elements", len(pair))
		}
		name, ok := pair[0].(string)
		if !ok {
			return TopicConfig{}, errors.New("topic name must be a string")
		}
		id, err := parseTopicID(pair[1])
		if err != nil {
			return TopicConfig{}, err
		}
		return TopicConfig{Name: name, ID: id}, nil
	}

	var obj struct {
		Name string `json:"name"`
		ID   any    `json:"id"`
	}
	if err := json.Unmarshal(item, &obj); err != nil {
		return TopicConfig{}, errors.New("expected [name, id] or {\"name\", \"id\"}")
	}
	id, err := parseTopicID(obj.ID)
	if err != nil {
		return TopicConfig{}, err
	}
	return TopicConfig{Name: obj.Name, ID: id}, nil
}

func parseTopicID(v any) (int64, error) {
	s := strings.TrimSpace(flexibleString(v))
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("topic id %q is not an integer", s)
	}
	return id, nil
}

func (t TopicList) problems(generalName string) []string {
	var problems []string
	ids := make(map[int64]string, len(t))
	names := make(map[string]int64, len(t))

	for i, tc := range t {
		name := strings.TrimSpace(tc.Name)
		switch {
		case name == "":
			problems = append(problems, fmt.Sprintf("topics[%d]: name must not be empty", i))
		case tc.ID <= 0:
			problems = append(problems, fmt.Sprintf("topics[%d] %q: id must be positive, 0 is reserved for general", i, name))
		case name == generalName:
			problems = append(problems, fmt.Sprintf("topics[%d]: name %q is reserved for the general channel", i, name))
		}
		if prev, ok := ids[tc.ID]; ok {
			problems = append(problems, fmt.Sprintf("topics[%d]: id %d already used by %q", i, tc.ID, prev))
		} else {
			ids[tc.ID] = name
		}
		if name != "" {
			if prev, ok := names[name]; ok {
				problems = append(problems, fmt.Sprintf("topics[%d]: name %q already used by topic %d", i, name, prev))
			} else {
				names[name] = tc.ID
			}
		}
	}
	return problems
}
