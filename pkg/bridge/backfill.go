package bridge

import (
	"context"

	"github.com/tinyland-inc/topicbridge/pkg/logger"
)

// DefaultBackfillLimit matches how many pending updates Telegram returns
// in one call.
const DefaultBackfillLimit = 100

// Backfiller replays Telegram messages that arrived while the bridge was
// down, before live listening starts.
type Backfiller struct {
	source TopicPlatform
	relay  *Relay
}

func NewBackfiller(source TopicPlatform, relay *Relay) *Backfiller {
	return &Backfiller{source: source, relay: relay}
}

// Backfill relays up to limit of the most recent pending messages, oldest
// first, and returns how many were delivered. Fetch failures are logged
// and count as zero.
func (b *Backfiller) Backfill(ctx context.Context, limit int) int {
	if limit <= 0 {
		return 0
	}

	msgs, err := b.source.FetchRecent(ctx, limit)
	if err != nil {
		logger.ErrorCF("backfill", "Fetching pending messages failed", map[string]any{
			"error": err.Error(),
		})
		return 0
	}
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	relayed := 0
	for _, msg := range msgs {
		if ctx.Err() != nil {
			break
		}
		res := b.relay.TelegramToDiscord(ctx, msg)
		if res.Status == StatusDelivered {
			relayed++
		}
	}

	logger.InfoCF("backfill", "Backfill complete", map[string]any{
		"fetched": len(msgs),
		"relayed": relayed,
	})
	return relayed
}
