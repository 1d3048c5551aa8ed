package channels

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode"

	"github.com/bwmarrin/discordgo"

	"github.com/tinyland-inc/topicbridge/pkg/bridge"
	"github.com/tinyland-inc/topicbridge/pkg/bus"
	"github.com/tinyland-inc/topicbridge/pkg/config"
	"github.com/tinyland-inc/topicbridge/pkg/logger"
	"github.com/tinyland-inc/topicbridge/pkg/media"
)

const discordMaxMessageLength = 2000

var (
	_ bridge.ChannelPlatform   = (*DiscordChannel)(nil)
	_ bridge.NameCanonicalizer = (*DiscordChannel)(nil)
)

// DiscordChannel serves one guild: it lists and creates text channels,
// posts into them and forwards their messages to the bus.
type DiscordChannel struct {
	*BaseChannel
	session    *discordgo.Session
	guildID    string
	downloader *Downloader

	mu     sync.RWMutex
	selfID string

	// listenCtx bounds bus publishes from the gateway handler; Stop
	// cancels it so a full bus cannot hold the read loop.
	listenCtx  context.Context
	stopListen context.CancelFunc
}

func NewDiscordChannel(cfg config.DiscordConfig, msgBus *bus.MessageBus, downloader *Downloader) (*DiscordChannel, error) {
	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	// Handlers run on the gateway goroutine in event order, so messages
	// reach the bus in the order Discord sent them.
	dg.SyncEvents = true

	c := &DiscordChannel{
		BaseChannel: NewBaseChannel(bus.PlatformDiscord, msgBus, cfg.AllowFrom,
			WithMaxMessageLength(discordMaxMessageLength),
			WithMaxCaptionLength(discordMaxMessageLength),
		),
		session:    dg,
		guildID:    cfg.ServerID,
		downloader: downloader,
	}

	dg.AddHandler(c.handleReady)
	dg.AddHandler(c.handleMessage)

	return c, nil
}

// Connect resolves the bot's own user id over REST, so self-authored
// messages can be recognised before the gateway session is open.
func (c *DiscordChannel) Connect(ctx context.Context) error {
	me, err := c.session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord current user: %w", err)
	}
	c.setSelfID(me.ID)
	logger.InfoCF("discord", "Connected", map[string]any{
		"user":     me.Username,
		"guild_id": c.guildID,
	})
	return nil
}

func (c *DiscordChannel) Start(ctx context.Context) error {
	c.listen(ctx)
	if err := c.session.Open(); err != nil {
		c.unlisten()
		return fmt.Errorf("failed to open discord connection: %w", err)
	}
	c.SetRunning(true)
	logger.InfoC("discord", "Listening for guild messages")
	return nil
}

func (c *DiscordChannel) Stop(ctx context.Context) error {
	c.unlisten()
	c.SetRunning(false)
	return c.session.Close()
}

func (c *DiscordChannel) listen(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopListen != nil {
		c.stopListen()
	}
	c.listenCtx, c.stopListen = context.WithCancel(ctx)
}

func (c *DiscordChannel) unlisten() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopListen != nil {
		c.stopListen()
	}
	c.listenCtx, c.stopListen = nil, nil
}

func (c *DiscordChannel) listenContext() context.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.listenCtx
}

func (c *DiscordChannel) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	c.setSelfID(r.User.ID)
	logger.InfoCF("discord", "Gateway ready", map[string]any{"user": r.User.Username})
}

func (c *DiscordChannel) handleMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.GuildID != c.guildID || m.Author == nil {
		return
	}
	ctx := c.listenContext()
	if ctx == nil {
		return
	}
	c.HandleMessage(ctx, m.Author.ID, discordInbound(m.Message))
}

func (c *DiscordChannel) setSelfID(id string) {
	c.mu.Lock()
	c.selfID = id
	c.mu.Unlock()
}

func (c *DiscordChannel) SelfID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selfID
}

// ListChannels returns the guild's text channels.
func (c *DiscordChannel) ListChannels(ctx context.Context) ([]bridge.ChannelRef, error) {
	chs, err := c.session.GuildChannels(c.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("discord guild channels: %w", err)
	}
	var out []bridge.ChannelRef
	for _, ch := range chs {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		out = append(out, bridge.ChannelRef{ID: bus.ChannelID(ch.ID), Name: ch.Name})
	}
	return out, nil
}

func (c *DiscordChannel) CreateChannel(ctx context.Context, name string) (bridge.ChannelRef, error) {
	ch, err := c.session.GuildChannelCreate(c.guildID, name, discordgo.ChannelTypeGuildText, discordgo.WithContext(ctx))
	if err != nil {
		return bridge.ChannelRef{}, fmt.Errorf("discord create channel %q: %w", name, err)
	}
	return bridge.ChannelRef{ID: bus.ChannelID(ch.ID), Name: ch.Name}, nil
}

// CanonicalName returns the name Discord stores for a text channel
// created as name: lower case, whitespace runs turned into single hyphens.
func (c *DiscordChannel) CanonicalName(name string) string {
	return discordChannelName(name)
}

func (c *DiscordChannel) SaveAttachment(ctx context.Context, ref bus.AttachmentRef) (io.ReadCloser, error) {
	return c.downloader.Get(ctx, ref.RemoteID)
}

func (c *DiscordChannel) SendText(ctx context.Context, channel bus.ChannelID, text string) error {
	_, err := c.session.ChannelMessageSendComplex(string(channel), &discordgo.MessageSend{
		Content:         c.truncateText(text),
		AllowedMentions: noMentions(),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord send message: %w", err)
	}
	return nil
}

func (c *DiscordChannel) SendFile(ctx context.Context, channel bus.ChannelID, file *media.StagedFile, caption string) error {
	f, err := file.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = c.session.ChannelMessageSendComplex(string(channel), &discordgo.MessageSend{
		Content:         c.truncateCaption(caption),
		AllowedMentions: noMentions(),
		Files: []*discordgo.File{{
			Name:        file.Name,
			ContentType: file.ContentType(),
			Reader:      f,
		}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord send file: %w", err)
	}
	return nil
}

// Relayed text must not ping anyone on Discord.
func noMentions() *discordgo.MessageAllowedMentions {
	return &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}}
}

func discordInbound(m *discordgo.Message) bus.InboundMessage {
	msg := bus.InboundMessage{
		Platform:  bus.PlatformDiscord,
		MessageID: m.ID,
		Text:      m.Content,
		Channel:   bus.ChannelID(m.ChannelID),
	}
	if m.Author != nil {
		msg.Author = bus.Author{
			ID:          m.Author.ID,
			DisplayName: discordDisplayName(m),
			Handle:      m.Author.Username,
			IsBot:       m.Author.Bot,
		}
	}
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		msg.Attachments = append(msg.Attachments, bus.AttachmentRef{
			RemoteID:          a.URL,
			SuggestedFilename: a.Filename,
			Kind:              attachmentKind(a.ContentType),
			Size:              int64(a.Size),
		})
	}
	return msg
}

// discordDisplayName prefers the server nickname, then the global display
// name, then the account username.
func discordDisplayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}

func attachmentKind(contentType string) bus.AttachmentKind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return bus.KindPhoto
	case strings.HasPrefix(contentType, "audio/"):
		return bus.KindVoice
	default:
		return bus.KindGeneric
	}
}

func discordChannelName(name string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.TrimSpace(strings.ToLower(name)) {
		if unicode.IsSpace(r) || r == '-' {
			if !hyphen {
				b.WriteRune('-')
				hyphen = true
			}
			continue
		}
		b.WriteRune(r)
		hyphen = false
	}
	return b.String()
}
