package bus

import "strconv"

// Platform names the chat service a message came from.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformDiscord  Platform = "discord"
)

// TopicID is a Telegram forum thread id. Zero means the group root.
type TopicID int64

// GeneralTopic is the reserved id for messages outside any topic.
const GeneralTopic TopicID = 0

func (t TopicID) String() string { return strconv.FormatInt(int64(t), 10) }

// ChannelID is a Discord channel snowflake.
type ChannelID string

type AttachmentKind string

const (
	KindVoice    AttachmentKind = "voice"
	KindPhoto    AttachmentKind = "photo"
	KindDocument AttachmentKind = "document"
	KindGeneric  AttachmentKind = "generic"
)

// AttachmentRef points at remote media. It is resolved to a staged file
// for exactly one relay and never persisted.
type AttachmentRef struct {
	RemoteID          string         `json:"remote_id"`
	SuggestedFilename string         `json:"suggested_filename"`
	Kind              AttachmentKind `json:"kind"`
	Size              int64          `json:"size,omitempty"` // 0 when unknown
}

type Author struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Handle      string `json:"handle,omitempty"` // without the leading "@"
	IsBot       bool   `json:"is_bot,omitempty"`
}

// InboundMessage is a platform-agnostic message received from either side.
//
// Telegram messages set Topic/InTopic; Discord messages set Channel.
// Photo attachments from Telegram list every size, smallest first.
type InboundMessage struct {
	Platform    Platform          `json:"platform"`
	MessageID   string            `json:"message_id,omitempty"`
	Author      Author            `json:"author"`
	Text        string            `json:"text,omitempty"`
	Caption     string            `json:"caption,omitempty"`
	Attachments []AttachmentRef   `json:"attachments,omitempty"`
	Topic       TopicID           `json:"topic,omitempty"`
	InTopic     bool              `json:"in_topic,omitempty"`
	Channel     ChannelID         `json:"channel,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// OriginTopic returns the topic a Telegram message was posted in, or
// GeneralTopic for messages outside any topic.
func (m InboundMessage) OriginTopic() TopicID {
	if !m.InTopic {
		return GeneralTopic
	}
	return m.Topic
}
