// Package bridge mirrors Telegram forum topics onto Discord text channels
// and relays messages in both directions.
//
// Startup runs the SyncEngine once to build an IdentityMap (topic id to
// channel id, plus topic 0 for the general channel). After that the map is
// read-only and shared by the two relay directions, each of which handles
// one message at a time in arrival order.
package bridge

import (
	"context"
	"io"

	"github.com/tinyland-inc/topicbridge/pkg/bus"
	"github.com/tinyland-inc/topicbridge/pkg/media"
)

type (
	TopicID        = bus.TopicID
	ChannelID      = bus.ChannelID
	InboundMessage = bus.InboundMessage
	AttachmentRef  = bus.AttachmentRef
	Author         = bus.Author
)

const GeneralTopic = bus.GeneralTopic

// TopicEntry is one configured Telegram topic.
type TopicEntry struct {
	ID   TopicID
	Name string
}

// ChannelRef is a Discord channel that exists (or was just created).
type ChannelRef struct {
	ID   ChannelID
	Name string
}

// ChannelDirectory lists and creates channels in the target server.
type ChannelDirectory interface {
	ListChannels(ctx context.Context) ([]ChannelRef, error)
	CreateChannel(ctx context.Context, name string) (ChannelRef, error)
}

// NameCanonicalizer is an opt-in interface for directories whose platform
// rewrites channel names on creation. The SyncEngine compares canonical
// forms when the directory implements it.
type NameCanonicalizer interface {
	CanonicalName(name string) string
}

// TopicPlatform is the Telegram side of the bridge.
type TopicPlatform interface {
	// FetchRecent returns pending group messages, oldest first.
	FetchRecent(ctx context.Context, limit int) ([]InboundMessage, error)
	DownloadAttachment(ctx context.Context, ref AttachmentRef) (io.ReadCloser, error)
	// SendText and SendFile post to the group root when topic is GeneralTopic.
	SendText(ctx context.Context, topic TopicID, text string) error
	SendFile(ctx context.Context, topic TopicID, file *media.StagedFile, caption string) error
}

// ChannelPlatform is the Discord side of the bridge.
type ChannelPlatform interface {
	ChannelDirectory
	SaveAttachment(ctx context.Context, ref AttachmentRef) (io.ReadCloser, error)
	SendText(ctx context.Context, channel ChannelID, text string) error
	SendFile(ctx context.Context, channel ChannelID, file *media.StagedFile, caption string) error
	// SelfID is the bridge bot's own user id.
	SelfID() string
}
