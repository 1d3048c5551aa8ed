package channels

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/topicbridge/pkg/bus"
	"github.com/tinyland-inc/topicbridge/pkg/config"
	"github.com/tinyland-inc/topicbridge/pkg/media"
)

// telego rejects tokens that do not look like a bot token.
var testBotToken = "123456:" + strings.Repeat("A", 35)

// botAPI serves getUpdates from queued pages and records what the
// channel sends.
type botAPI struct {
	mu      sync.Mutex
	pages   [][]map[string]any
	offsets []int
	threads map[string][]string
}

func newBotAPI(t *testing.T, pages ...[]map[string]any) (*botAPI, *httptest.Server) {
	t.Helper()
	api := &botAPI{pages: pages, threads: map[string][]string{}}
	srv := httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(srv.Close)
	return api, srv
}

func (a *botAPI) serve(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	switch method {
	case "getUpdates":
		var params struct {
			Offset int `json:"offset"`
		}
		_ = json.NewDecoder(r.Body).Decode(&params)

		a.mu.Lock()
		a.offsets = append(a.offsets, params.Offset)
		var page []map[string]any
		if len(a.pages) > 0 {
			page, a.pages = a.pages[0], a.pages[1:]
		}
		a.mu.Unlock()

		if page == nil {
			page = []map[string]any{}
			time.Sleep(10 * time.Millisecond)
		}
		writeOK(w, page)
	case "sendMessage":
		var params struct {
			MessageThreadID int `json:"message_thread_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&params)
		a.record(method, strconv.Itoa(params.MessageThreadID))
		writeOK(w, sentMessage())
	case "sendDocument":
		_ = r.ParseMultipartForm(1 << 20)
		thread := r.FormValue("message_thread_id")
		if thread == "" {
			thread = "0"
		}
		a.record(method, thread)
		writeOK(w, sentMessage())
	default:
		http.NotFound(w, r)
	}
}

func (a *botAPI) record(method, thread string) {
	a.mu.Lock()
	a.threads[method] = append(a.threads[method], thread)
	a.mu.Unlock()
}

func (a *botAPI) seenOffsets() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]int(nil), a.offsets...)
}

func (a *botAPI) queue(page []map[string]any) {
	a.mu.Lock()
	a.pages = append(a.pages, page)
	a.mu.Unlock()
}

func writeOK(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func sentMessage() map[string]any {
	return map[string]any{
		"message_id": 1,
		"date":       0,
		"chat":       map[string]any{"id": testGroup, "type": "supergroup"},
	}
}

func groupUpdate(id int, chatID int64, thread int) map[string]any {
	msg := map[string]any{
		"message_id": id,
		"date":       0,
		"chat":       map[string]any{"id": chatID, "type": "supergroup"},
		"from":       map[string]any{"id": 5, "is_bot": false, "first_name": "Alice"},
		"text":       "m" + strconv.Itoa(id),
	}
	if thread != 0 {
		msg["message_thread_id"] = thread
		msg["is_topic_message"] = true
	}
	return map[string]any{"update_id": id, "message": msg}
}

func newTestTelegram(t *testing.T, srv *httptest.Server, msgBus *bus.MessageBus) *TelegramChannel {
	t.Helper()
	c, err := NewTelegramChannel(config.TelegramConfig{
		Token:     testBotToken,
		GroupID:   testGroup,
		APIServer: srv.URL,
	}, msgBus, NewDownloader(0, ""))
	require.NoError(t, err)
	return c
}

func TestTelegramFetchRecent_PagesAndAdvancesOffset(t *testing.T) {
	full := make([]map[string]any, 0, telegramPageSize)
	for id := 1; id <= telegramPageSize; id++ {
		full = append(full, groupUpdate(id, testGroup, 0))
	}
	short := []map[string]any{
		groupUpdate(101, testGroup, 0),
		groupUpdate(102, testGroup, 0),
		groupUpdate(103, testGroup, 0),
		groupUpdate(104, testGroup, 220),
		{"update_id": 105},
		groupUpdate(106, 1, 0),
		groupUpdate(107, testGroup, 0),
	}
	api, srv := newBotAPI(t, full, short)
	msgBus := bus.NewMessageBus(4)
	c := newTestTelegram(t, srv, msgBus)

	msgs, err := c.FetchRecent(context.Background(), 3)
	require.NoError(t, err)

	// Two pages requested; the short one ends paging.
	assert.Equal(t, []int{0, telegramPageSize + 1}, api.seenOffsets())

	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.MessageID)
	}
	assert.Equal(t, []string{"103", "104", "107"}, ids)
	assert.Equal(t, bus.TopicID(220), msgs[1].OriginTopic())

	// Live polling resumes after everything drained, skipped updates included.
	api.queue([]map[string]any{groupUpdate(108, testGroup, 0)})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Start(ctx))
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		assert.NoError(t, c.Stop(stopCtx))
	}()

	live, ok := msgBus.ConsumeInbound(ctx, bus.PlatformTelegram)
	require.True(t, ok)
	assert.Equal(t, "108", live.MessageID)
	assert.Equal(t, 108, api.seenOffsets()[2])
}

func TestTelegramFetchRecent_Empty(t *testing.T) {
	api, srv := newBotAPI(t)
	c := newTestTelegram(t, srv, bus.NewMessageBus(1))

	msgs, err := c.FetchRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, []int{0}, api.seenOffsets())
}

func TestTelegramSend_ThreadIDs(t *testing.T) {
	api, srv := newBotAPI(t)
	c := newTestTelegram(t, srv, bus.NewMessageBus(1))
	ctx := context.Background()

	store, err := media.NewStore(t.TempDir(), 0)
	require.NoError(t, err)
	staged, err := store.Stage(ctx, "note.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	defer staged.Release()

	require.NoError(t, c.SendText(ctx, bus.GeneralTopic, "root"))
	require.NoError(t, c.SendText(ctx, 220, "topic"))
	require.NoError(t, c.SendFile(ctx, bus.GeneralTopic, staged, "root file"))
	require.NoError(t, c.SendFile(ctx, 220, staged, "topic file"))

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, []string{"0", "220"}, api.threads["sendMessage"])
	assert.Equal(t, []string{"0", "220"}, api.threads["sendDocument"])
}
