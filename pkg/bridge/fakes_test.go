package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/topicbridge/pkg/media"
)

var errUnreachable = errors.New("platform unreachable")

type sentText struct {
	Topic   TopicID
	Channel ChannelID
	Text    string
}

type sentFile struct {
	Topic   TopicID
	Channel ChannelID
	Name    string
	Caption string
	Body    string
}

func readStaged(f *media.StagedFile) (string, error) {
	fh, err := f.Open()
	if err != nil {
		return "", err
	}
	defer fh.Close()
	data, err := io.ReadAll(fh)
	return string(data), err
}

type fakeTelegram struct {
	mu       sync.Mutex
	recent   []InboundMessage
	fetchErr error
	files    map[string]string
	texts    []sentText
	sent     []sentFile
	sendErr  error
}

func newFakeTelegram() *fakeTelegram {
	return &fakeTelegram{files: make(map[string]string)}
}

func (f *fakeTelegram) FetchRecent(_ context.Context, limit int) ([]InboundMessage, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	msgs := f.recent
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (f *fakeTelegram) DownloadAttachment(_ context.Context, ref AttachmentRef) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.files[ref.RemoteID]
	if !ok {
		return nil, fmt.Errorf("file %q not found", ref.RemoteID)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (f *fakeTelegram) SendText(_ context.Context, topic TopicID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.texts = append(f.texts, sentText{Topic: topic, Text: text})
	return nil
}

func (f *fakeTelegram) SendFile(_ context.Context, topic TopicID, file *media.StagedFile, caption string) error {
	body, err := readStaged(file)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentFile{Topic: topic, Name: file.Name, Caption: caption, Body: body})
	return nil
}

func (f *fakeTelegram) Texts() []sentText {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentText(nil), f.texts...)
}

func (f *fakeTelegram) Files() []sentFile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentFile(nil), f.sent...)
}

type fakeDiscord struct {
	mu        sync.Mutex
	channels  []ChannelRef
	nextID    int
	created   []string
	listErr   error
	createErr map[string]error
	lowercase bool

	self        string
	files       map[string]string
	texts       []sentText
	sent        []sentFile
	fileSendErr error
	textSendErr error
}

func newFakeDiscord(existing ...ChannelRef) *fakeDiscord {
	return &fakeDiscord{
		channels:  existing,
		nextID:    1000,
		createErr: make(map[string]error),
		self:      "bot-self",
		files:     make(map[string]string),
	}
}

func (d *fakeDiscord) ListChannels(context.Context) ([]ChannelRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listErr != nil {
		return nil, d.listErr
	}
	return append([]ChannelRef(nil), d.channels...), nil
}

func (d *fakeDiscord) CreateChannel(_ context.Context, name string) (ChannelRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.createErr[name]; err != nil {
		return ChannelRef{}, err
	}
	d.nextID++
	stored := name
	if d.lowercase {
		stored = d.canonical(name)
	}
	ch := ChannelRef{ID: ChannelID(fmt.Sprintf("c%d", d.nextID)), Name: stored}
	d.channels = append(d.channels, ch)
	d.created = append(d.created, name)
	return ch, nil
}

func (d *fakeDiscord) canonical(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

func (d *fakeDiscord) SaveAttachment(_ context.Context, ref AttachmentRef) (io.ReadCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	body, ok := d.files[ref.RemoteID]
	if !ok {
		return nil, fmt.Errorf("attachment %q gone", ref.RemoteID)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (d *fakeDiscord) SendText(_ context.Context, channel ChannelID, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.textSendErr != nil {
		return d.textSendErr
	}
	d.texts = append(d.texts, sentText{Channel: channel, Text: text})
	return nil
}

func (d *fakeDiscord) SendFile(_ context.Context, channel ChannelID, file *media.StagedFile, caption string) error {
	body, err := readStaged(file)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fileSendErr != nil {
		return d.fileSendErr
	}
	d.sent = append(d.sent, sentFile{Channel: channel, Name: file.Name, Caption: caption, Body: body})
	return nil
}

func (d *fakeDiscord) SelfID() string { return d.self }

func (d *fakeDiscord) Created() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.created...)
}

func (d *fakeDiscord) Texts() []sentText {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]sentText(nil), d.texts...)
}

func (d *fakeDiscord) Files() []sentFile {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]sentFile(nil), d.sent...)
}

// canonicalDiscord lowercases names like the real server does.
type canonicalDiscord struct {
	*fakeDiscord
}

func (c canonicalDiscord) CanonicalName(name string) string {
	return c.canonical(name)
}

func newStore(t *testing.T, maxBytes int64) *media.Store {
	t.Helper()
	store, err := media.NewStore(t.TempDir(), maxBytes)
	require.NoError(t, err)
	return store
}

func newRegistry(t *testing.T, entries ...TopicEntry) *TopicRegistry {
	t.Helper()
	reg, err := NewTopicRegistry(entries)
	require.NoError(t, err)
	return reg
}

// scenarioMap is {0: general_id, 101: dev_id}.
func scenarioMap(t *testing.T) *IdentityMap {
	t.Helper()
	m, err := NewIdentityMap(
		Binding{Topic: GeneralTopic, Channel: ChannelRef{ID: "general_id", Name: "general"}},
		Binding{Topic: 101, Channel: ChannelRef{ID: "dev_id", Name: "Dev"}},
	)
	require.NoError(t, err)
	return m
}
