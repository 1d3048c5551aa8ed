package channels

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/topicbridge/pkg/bus"
	"github.com/tinyland-inc/topicbridge/pkg/config"
)

func newTestDiscord(t *testing.T, msgBus *bus.MessageBus) *DiscordChannel {
	t.Helper()
	c, err := NewDiscordChannel(config.DiscordConfig{Token: "token", ServerID: "g1"}, msgBus, NewDownloader(0, ""))
	require.NoError(t, err)
	return c
}

func guildMessage(id string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        id,
		GuildID:   "g1",
		ChannelID: "c1",
		Content:   "msg " + id,
		Author:    &discordgo.User{ID: "u1", Username: "bob"},
	}}
}

func TestNewDiscordChannel_DispatchesEventsInOrder(t *testing.T) {
	c := newTestDiscord(t, bus.NewMessageBus(4))
	assert.True(t, c.session.SyncEvents)
}

func TestDiscordHandleMessage_KeepsArrivalOrder(t *testing.T) {
	msgBus := bus.NewMessageBus(8)
	c := newTestDiscord(t, msgBus)

	// Not listening yet.
	c.handleMessage(nil, guildMessage("early"))

	c.listen(context.Background())
	defer c.unlisten()

	other := guildMessage("elsewhere")
	other.GuildID = "g2"
	c.handleMessage(nil, other)
	for _, id := range []string{"m1", "m2", "m3"} {
		c.handleMessage(nil, guildMessage(id))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, want := range []string{"m1", "m2", "m3"} {
		msg, ok := msgBus.ConsumeInbound(ctx, bus.PlatformDiscord)
		require.True(t, ok)
		assert.Equal(t, want, msg.MessageID)
		assert.Equal(t, bus.PlatformDiscord, msg.Platform)
	}
	_, ok := msgBus.ConsumeInbound(ctx, bus.PlatformDiscord)
	assert.False(t, ok)
}

func TestDiscordHandleMessage_StopReleasesFullBus(t *testing.T) {
	msgBus := bus.NewMessageBus(1)
	c := newTestDiscord(t, msgBus)
	c.listen(context.Background())

	c.handleMessage(nil, guildMessage("m1"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.handleMessage(nil, guildMessage("m2"))
	}()

	select {
	case <-done:
		t.Fatal("publish into a full bus returned early")
	case <-time.After(50 * time.Millisecond):
	}

	c.unlisten()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler still blocked after stop")
	}
}
