package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tinyland-inc/topicbridge/pkg/logger"
	"github.com/tinyland-inc/topicbridge/pkg/media"
)

// Relay forwards single messages between the two platforms. Each call
// handles one inbound message; media is staged, sent and released before
// it returns.
type Relay struct {
	identity *IdentityMap
	telegram TopicPlatform
	discord  ChannelPlatform
	store    *media.Store
}

func NewRelay(identity *IdentityMap, telegram TopicPlatform, discord ChannelPlatform, store *media.Store) *Relay {
	return &Relay{
		identity: identity,
		telegram: telegram,
		discord:  discord,
		store:    store,
	}
}

// TelegramToDiscord relays one Telegram message to the channel bound to its
// topic. Messages from unmapped topics are dropped. At most one message is
// posted: the content itself, or a notice when an attachment fails.
func (r *Relay) TelegramToDiscord(ctx context.Context, msg InboundMessage) Result {
	topic := msg.OriginTopic()
	channel, ok := r.identity.Forward(topic)
	if !ok {
		logger.WarnCF("relay", "Dropping message from unmapped topic", map[string]any{
			"topic_id":   topic.String(),
			"message_id": msg.MessageID,
			"error":      ErrUnmappedTopic.Error(),
		})
		return dropped(ReasonUnmappedTopic)
	}

	label := telegramLabel(msg.Author)
	content := ClassifyContent(msg)
	logger.InfoCF("relay", "Telegram message", map[string]any{
		"author":     label,
		"topic_id":   topic.String(),
		"channel_id": string(channel),
		"content":    content.kind(),
	})

	switch c := content.(type) {
	case TextContent:
		if err := r.discord.SendText(ctx, channel, telegramTextMessage(label, c.Text)); err != nil {
			return failed(&RelayDeliveryError{Direction: TelegramToDiscord, Err: err}, 0, false)
		}
		return delivered(1)
	case VoiceContent:
		return r.fileToDiscord(ctx, channel, label, c.Attachment, telegramVoiceCaption(label))
	case PhotoContent:
		return r.fileToDiscord(ctx, channel, label, c.Best, telegramMediaCaption(label, c.Caption))
	case DocumentContent:
		return r.fileToDiscord(ctx, channel, label, c.Attachment, telegramMediaCaption(label, c.Caption))
	case EmptyContent:
		return dropped(ReasonEmpty)
	default:
		return failed(fmt.Errorf("unhandled content %T", content), 0, false)
	}
}

func (r *Relay) fileToDiscord(ctx context.Context, channel ChannelID, label string, ref AttachmentRef, caption string) Result {
	err := r.stageAndSend(ctx, ref, r.telegram.DownloadAttachment, func(f *media.StagedFile) error {
		return r.discord.SendFile(ctx, channel, f, caption)
	})
	if err == nil {
		return delivered(1)
	}

	derr := &RelayDeliveryError{Direction: TelegramToDiscord, Attachment: &ref, Err: err}
	logger.ErrorCF("relay", "Attachment not relayed", map[string]any{
		"channel_id": string(channel),
		"error":      derr.Error(),
	})
	if nerr := r.discord.SendText(ctx, channel, telegramAttachmentFallback(label)); nerr != nil {
		logger.ErrorCF("relay", "Fallback notice failed", map[string]any{
			"channel_id": string(channel),
			"error":      nerr.Error(),
		})
		return failed(derr, 0, false)
	}
	return failed(derr, 1, true)
}

// DiscordToTelegram relays one Discord message to the topic bound to its
// channel, or to the group root for unbound channels. Attachments go first,
// one file each, then the text. A failed attachment is replaced with a
// notice and the rest of the message still goes through.
func (r *Relay) DiscordToTelegram(ctx context.Context, msg InboundMessage) Result {
	if self := r.discord.SelfID(); self != "" && msg.Author.ID == self {
		return dropped(ReasonSelfAuthored)
	}

	topic, ok := r.identity.Reverse(msg.Channel)
	if !ok {
		topic = GeneralTopic
	}

	name := discordName(msg.Author)
	logger.InfoCF("relay", "Discord message", map[string]any{
		"author":      name,
		"channel_id":  string(msg.Channel),
		"topic_id":    topic.String(),
		"mapped":      ok,
		"attachments": len(msg.Attachments),
	})

	var (
		sends    int
		fallback bool
		errs     []error
	)
	for _, ref := range msg.Attachments {
		err := r.stageAndSend(ctx, ref, r.discord.SaveAttachment, func(f *media.StagedFile) error {
			return r.telegram.SendFile(ctx, topic, f, discordAttachmentCaption(name))
		})
		if err == nil {
			sends++
			continue
		}

		derr := &RelayDeliveryError{Direction: DiscordToTelegram, Attachment: &ref, Err: err}
		errs = append(errs, derr)
		logger.ErrorCF("relay", "Attachment not relayed", map[string]any{
			"topic_id": topic.String(),
			"error":    derr.Error(),
		})
		if nerr := r.telegram.SendText(ctx, topic, discordAttachmentFallback(name)); nerr != nil {
			logger.ErrorCF("relay", "Fallback notice failed", map[string]any{
				"topic_id": topic.String(),
				"error":    nerr.Error(),
			})
			continue
		}
		sends++
		fallback = true
	}

	if strings.TrimSpace(msg.Text) != "" {
		if err := r.telegram.SendText(ctx, topic, discordTextMessage(name, msg.Text)); err != nil {
			errs = append(errs, &RelayDeliveryError{Direction: DiscordToTelegram, Err: err})
		} else {
			sends++
		}
	}

	switch {
	case len(errs) > 0:
		return failed(errors.Join(errs...), sends, fallback)
	case sends == 0:
		return dropped(ReasonEmpty)
	default:
		return delivered(sends)
	}
}

type fetchFunc func(ctx context.Context, ref AttachmentRef) (io.ReadCloser, error)

// stageAndSend downloads ref into the media store, hands the staged file to
// send and releases it whatever happens.
func (r *Relay) stageAndSend(ctx context.Context, ref AttachmentRef, fetch fetchFunc, send func(*media.StagedFile) error) error {
	if limit := r.store.MaxBytes(); limit > 0 && ref.Size > limit {
		return fmt.Errorf("%w: %d bytes", media.ErrTooLarge, ref.Size)
	}

	body, err := fetch(ctx, ref)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	staged, err := r.store.Stage(ctx, ref.SuggestedFilename, body)
	if cerr := body.Close(); cerr != nil {
		logger.DebugCF("relay", "Closing download body failed", map[string]any{"error": cerr.Error()})
	}
	if err != nil {
		return fmt.Errorf("stage: %w", err)
	}
	defer func() {
		if rerr := staged.Release(); rerr != nil {
			logger.WarnCF("relay", "Releasing staged file failed", map[string]any{
				"file":  staged.Name,
				"error": rerr.Error(),
			})
		}
	}()

	if err := send(staged); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}
