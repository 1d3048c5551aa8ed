package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrUnmappedTopic marks a Telegram topic with no Discord channel.
	ErrUnmappedTopic = errors.New("topic is not mapped to a channel")
	// ErrBindingConflict is returned when a binding would map two topics to
	// one channel or one topic to two channels.
	ErrBindingConflict = errors.New("binding conflicts with an existing mapping")
	// ErrInvalidTopic is returned for malformed registry entries.
	ErrInvalidTopic = errors.New("invalid topic entry")
)

// SyncError means the identity map could not be built. It is fatal.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync: %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// ChannelCreateError means one topic's channel could not be created. The
// topic is left out of the identity map and sync continues.
type ChannelCreateError struct {
	Topic TopicEntry
	Err   error
}

func (e *ChannelCreateError) Error() string {
	return fmt.Sprintf("create channel %q for topic %d: %v", e.Topic.Name, e.Topic.ID, e.Err)
}

func (e *ChannelCreateError) Unwrap() error { return e.Err }

// RelayDeliveryError wraps a failed fetch, stage or send for one message.
// Attachment is nil when plain text failed.
type RelayDeliveryError struct {
	Direction  Direction
	Attachment *AttachmentRef
	Err        error
}

func (e *RelayDeliveryError) Error() string {
	if e.Attachment != nil {
		return fmt.Sprintf("%s: deliver %s %q: %v", e.Direction, e.Attachment.Kind, e.Attachment.SuggestedFilename, e.Err)
	}
	return fmt.Sprintf("%s: deliver text: %v", e.Direction, e.Err)
}

func (e *RelayDeliveryError) Unwrap() error { return e.Err }
