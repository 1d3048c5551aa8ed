package channels

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/tinyland-inc/topicbridge/pkg/bridge"
	"github.com/tinyland-inc/topicbridge/pkg/bus"
	"github.com/tinyland-inc/topicbridge/pkg/config"
	"github.com/tinyland-inc/topicbridge/pkg/logger"
	"github.com/tinyland-inc/topicbridge/pkg/media"
)

const (
	telegramMaxMessageLength = 4096
	telegramMaxCaptionLength = 1024
	telegramPageSize         = 100
	telegramMaxBackfillPages = 10
	telegramPollTimeout      = 30
)

var _ bridge.TopicPlatform = (*TelegramChannel)(nil)

// TelegramChannel listens to one forum group and posts into its topics.
type TelegramChannel struct {
	*BaseChannel
	bot        *telego.Bot
	groupID    int64
	downloader *Downloader

	mu     sync.Mutex
	offset int
	cancel context.CancelFunc
	done   chan struct{}
}

func NewTelegramChannel(cfg config.TelegramConfig, msgBus *bus.MessageBus, downloader *Downloader) (*TelegramChannel, error) {
	opts := []telego.BotOption{telego.WithLogger(telegoLogger{})}
	if cfg.APIServer != "" {
		opts = append(opts, telego.WithAPIServer(cfg.APIServer))
	}
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid telegram proxy: %w", err)
		}
		opts = append(opts, telego.WithHTTPClient(&http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}))
	}

	bot, err := telego.NewBot(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	base := NewBaseChannel(bus.PlatformTelegram, msgBus, cfg.AllowFrom,
		WithMaxMessageLength(telegramMaxMessageLength),
		WithMaxCaptionLength(telegramMaxCaptionLength),
	)
	return &TelegramChannel{
		BaseChannel: base,
		bot:         bot,
		groupID:     cfg.GroupID,
		downloader:  downloader,
	}, nil
}

// Connect checks the token by asking Telegram who the bot is.
func (c *TelegramChannel) Connect(ctx context.Context) error {
	me, err := c.bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	logger.InfoCF("telegram", "Connected", map[string]any{
		"username": me.Username,
		"group_id": c.groupID,
	})
	return nil
}

// FetchRecent drains pending updates and returns the last limit group
// messages, oldest first. Live polling resumes after the drained updates.
func (c *TelegramChannel) FetchRecent(ctx context.Context, limit int) ([]bus.InboundMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []bus.InboundMessage
	for page := 0; page < telegramMaxBackfillPages; page++ {
		updates, err := c.bot.GetUpdates(ctx, &telego.GetUpdatesParams{
			Offset:         c.offset,
			Limit:          telegramPageSize,
			AllowedUpdates: []string{"message"},
		})
		if err != nil {
			return nil, fmt.Errorf("telegram getUpdates: %w", err)
		}
		for _, u := range updates {
			c.offset = u.UpdateID + 1
			if u.Message == nil {
				continue
			}
			if msg, ok := c.accept(u.Message); ok {
				out = append(out, msg)
			}
		}
		if len(updates) < telegramPageSize {
			break
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (c *TelegramChannel) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pollCtx, cancel := context.WithCancel(ctx)
	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Offset:         c.offset,
		Timeout:        telegramPollTimeout,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("telegram long polling: %w", err)
	}

	c.cancel = cancel
	c.done = make(chan struct{})
	c.SetRunning(true)

	go func() {
		defer close(c.done)
		for u := range updates {
			if u.Message == nil {
				continue
			}
			if msg, ok := c.accept(u.Message); ok {
				c.HandleMessage(pollCtx, telegramSenderID(u.Message.From), msg)
			}
		}
	}()

	logger.InfoC("telegram", "Listening for group messages")
	return nil
}

func (c *TelegramChannel) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	c.SetRunning(false)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *TelegramChannel) accept(m *telego.Message) (bus.InboundMessage, bool) {
	msg, ok := telegramInbound(m, c.groupID)
	if !ok {
		return bus.InboundMessage{}, false
	}
	if !c.IsAllowed(telegramSenderID(m.From)) {
		return bus.InboundMessage{}, false
	}
	return msg, true
}

func (c *TelegramChannel) DownloadAttachment(ctx context.Context, ref bus.AttachmentRef) (io.ReadCloser, error) {
	file, err := c.bot.GetFile(ctx, &telego.GetFileParams{FileID: ref.RemoteID})
	if err != nil {
		return nil, fmt.Errorf("telegram getFile: %w", err)
	}
	if file.FilePath == "" {
		return nil, fmt.Errorf("telegram getFile: no path for %s", ref.RemoteID)
	}
	return c.downloader.Get(ctx, c.bot.FileDownloadURL(file.FilePath))
}

func (c *TelegramChannel) SendText(ctx context.Context, topic bus.TopicID, text string) error {
	_, err := c.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:          tu.ID(c.groupID),
		MessageThreadID: threadID(topic),
		Text:            c.truncateText(text),
	})
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	return nil
}

func (c *TelegramChannel) SendFile(ctx context.Context, topic bus.TopicID, file *media.StagedFile, caption string) error {
	f, err := file.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = c.bot.SendDocument(ctx, &telego.SendDocumentParams{
		ChatID:          tu.ID(c.groupID),
		MessageThreadID: threadID(topic),
		Document:        tu.File(tu.NameReader(f, file.Name)),
		Caption:         c.truncateCaption(caption),
	})
	if err != nil {
		return fmt.Errorf("telegram sendDocument: %w", err)
	}
	return nil
}

func threadID(topic bus.TopicID) int {
	if topic == bus.GeneralTopic {
		return 0
	}
	return int(topic)
}

func telegramSenderID(u *telego.User) string {
	if u == nil {
		return ""
	}
	id := strconv.FormatInt(u.ID, 10)
	if u.Username != "" {
		id += "|" + u.Username
	}
	return id
}

// telegramInbound converts a group message. Messages from other chats,
// without a sender, or starting with a bot command are skipped.
func telegramInbound(m *telego.Message, groupID int64) (bus.InboundMessage, bool) {
	if m == nil || m.From == nil || m.Chat.ID != groupID {
		return bus.InboundMessage{}, false
	}
	if strings.HasPrefix(m.Text, "/") {
		return bus.InboundMessage{}, false
	}

	msg := bus.InboundMessage{
		Platform:  bus.PlatformTelegram,
		MessageID: strconv.Itoa(m.MessageID),
		Author: bus.Author{
			ID:          strconv.FormatInt(m.From.ID, 10),
			DisplayName: strings.TrimSpace(m.From.FirstName + " " + m.From.LastName),
			Handle:      m.From.Username,
			IsBot:       m.From.IsBot,
		},
		Text:    m.Text,
		Caption: m.Caption,
	}
	if m.IsTopicMessage && m.MessageThreadID != 0 {
		msg.Topic = bus.TopicID(m.MessageThreadID)
		msg.InTopic = true
	}

	if m.Voice != nil {
		msg.Attachments = append(msg.Attachments, bus.AttachmentRef{
			RemoteID:          m.Voice.FileID,
			SuggestedFilename: "voice.ogg",
			Kind:              bus.KindVoice,
			Size:              int64(m.Voice.FileSize),
		})
	}
	for _, p := range m.Photo {
		msg.Attachments = append(msg.Attachments, bus.AttachmentRef{
			RemoteID:          p.FileID,
			SuggestedFilename: "photo.jpg",
			Kind:              bus.KindPhoto,
			Size:              int64(p.FileSize),
		})
	}
	if m.Document != nil {
		msg.Attachments = append(msg.Attachments, bus.AttachmentRef{
			RemoteID:          m.Document.FileID,
			SuggestedFilename: nameOr(m.Document.FileName, "document"),
			Kind:              bus.KindDocument,
			Size:              int64(m.Document.FileSize),
		})
	}
	if m.Audio != nil {
		msg.Attachments = append(msg.Attachments, bus.AttachmentRef{
			RemoteID:          m.Audio.FileID,
			SuggestedFilename: nameOr(m.Audio.FileName, "audio.mp3"),
			Kind:              bus.KindGeneric,
			Size:              int64(m.Audio.FileSize),
		})
	}
	if m.Video != nil {
		msg.Attachments = append(msg.Attachments, bus.AttachmentRef{
			RemoteID:          m.Video.FileID,
			SuggestedFilename: nameOr(m.Video.FileName, "video.mp4"),
			Kind:              bus.KindGeneric,
			Size:              int64(m.Video.FileSize),
		})
	}
	return msg, true
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

// telegoLogger routes telego's own logging into ours.
type telegoLogger struct{}

func (telegoLogger) Debugf(format string, args ...any) {
	logger.DebugC("telego", fmt.Sprintf(format, args...))
}

func (telegoLogger) Errorf(format string, args ...any) {
	logger.ErrorC("telego", fmt.Sprintf(format, args...))
}
