package channels

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/tinyland-inc/topicbridge/pkg/bus"
	"github.com/tinyland-inc/topicbridge/pkg/logger"
	"github.com/tinyland-inc/topicbridge/pkg/utils"
)

type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsRunning() bool
	IsAllowed(senderID string) bool
}

// BaseChannelOption is a functional option for configuring a BaseChannel.
type BaseChannelOption func(*BaseChannel)

// WithMaxMessageLength sets the maximum message length (in runes) for a channel.
// Longer outbound text is truncated. A value of 0 means no limit.
func WithMaxMessageLength(n int) BaseChannelOption {
	return func(c *BaseChannel) { c.maxMessageLength = n }
}

// WithMaxCaptionLength caps file captions (in runes). A value of 0 means no limit.
func WithMaxCaptionLength(n int) BaseChannelOption {
	return func(c *BaseChannel) { c.maxCaptionLength = n }
}

// MessageLengthProvider is an opt-in interface that channels implement
// to advertise their maximum message length.
type MessageLengthProvider interface {
	MaxMessageLength() int
}

type BaseChannel struct {
	bus              *bus.MessageBus
	platform         bus.Platform
	running          atomic.Bool
	name             string
	allowList        []string
	maxMessageLength int
	maxCaptionLength int
}

func NewBaseChannel(
	platform bus.Platform,
	bus *bus.MessageBus,
	allowList []string,
	opts ...BaseChannelOption,
) *BaseChannel {
	bc := &BaseChannel{
		bus:       bus,
		platform:  platform,
		name:      string(platform),
		allowList: allowList,
	}
	for _, opt := range opts {
		opt(bc)
	}
	return bc
}

// MaxMessageLength returns the maximum message length (in runes) for this channel.
// A value of 0 means no limit.
func (c *BaseChannel) MaxMessageLength() int {
	return c.maxMessageLength
}

func (c *BaseChannel) Name() string {
	return c.name
}

func (c *BaseChannel) IsRunning() bool {
	return c.running.Load()
}

func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowList) == 0 {
		return true
	}

	// Extract parts from compound senderID like "123456|username"
	idPart := senderID
	userPart := ""
	if idx := strings.Index(senderID, "|"); idx > 0 {
		idPart = senderID[:idx]
		userPart = senderID[idx+1:]
	}

	for _, allowed := range c.allowList {
		// Strip leading "@" from allowed value for username matching
		trimmed := strings.TrimPrefix(allowed, "@")
		allowedID := trimmed
		allowedUser := ""
		if idx := strings.Index(trimmed, "|"); idx > 0 {
			allowedID = trimmed[:idx]
			allowedUser = trimmed[idx+1:]
		}

		if senderID == allowed ||
			idPart == allowed ||
			senderID == trimmed ||
			idPart == trimmed ||
			idPart == allowedID ||
			(allowedUser != "" && senderID == allowedUser) ||
			(userPart != "" && (userPart == allowed || userPart == trimmed || userPart == allowedUser)) {
			return true
		}
	}

	return false
}

// HandleMessage publishes msg to the bus unless the sender is filtered out.
// It blocks while the bus is full, so a slow relay applies backpressure to
// the listener instead of reordering messages.
func (c *BaseChannel) HandleMessage(ctx context.Context, senderID string, msg bus.InboundMessage) {
	if !c.IsAllowed(senderID) {
		logger.DebugCF(c.name, "Sender not in allow list", map[string]any{
			"sender_id": senderID,
		})
		return
	}

	msg.Platform = c.platform
	if err := c.bus.PublishInbound(ctx, msg); err != nil {
		logger.WarnCF(c.name, "Inbound message not queued", map[string]any{
			"message_id": msg.MessageID,
			"error":      err.Error(),
		})
	}
}

func (c *BaseChannel) SetRunning(running bool) {
	c.running.Store(running)
}

func (c *BaseChannel) truncateText(s string) string {
	return utils.Truncate(s, c.maxMessageLength)
}

func (c *BaseChannel) truncateCaption(s string) string {
	return utils.Truncate(s, c.maxCaptionLength)
}
