package webui

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/scout/internal/chatbot"
)

// fakeBot echoes messages and keeps per-thread history.
type fakeBot struct {
	mu       sync.Mutex
	threads  map[string][]chatbot.HistoryEntry
	profiles map[string]map[string]string
}

func newFakeBot() *fakeBot {
	return &fakeBot{threads: map[string][]chatbot.HistoryEntry{}, profiles: map[string]map[string]string{}}
}

func (b *fakeBot) Chat(_ context.Context, message, threadID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	reply := "you said " + message
	b.threads[threadID] = append(b.threads[threadID],
		chatbot.HistoryEntry{Role: "user", Content: message},
		chatbot.HistoryEntry{Role: "assistant", Content: reply})
	return reply
}

func (b *fakeBot) History(_ context.Context, threadID string) ([]chatbot.HistoryEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]chatbot.HistoryEntry{}, b.threads[threadID]...), nil
}

func (b *fakeBot) ClearMemory(_ context.Context, threadID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.threads, threadID)
	return nil
}

func (b *fakeBot) SetUserContext(_ context.Context, userID string, profile map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.profiles[userID] = profile
	return nil
}

func (b *fakeBot) GetUserContext(_ context.Context, userID string) (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.profiles[userID]; ok {
		return p, nil
	}
	return map[string]string{}, nil
}

func newTestServer(t *testing.T, bot Bot) (*httptest.Server, *http.Client) {
	t.Helper()
	srv := httptest.NewServer(NewServer(":0", bot).Handler())
	t.Cleanup(srv.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return srv, &http.Client{Jar: jar}
}

func postJSON(t *testing.T, c *http.Client, u string, body any) (*http.Response, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := c.Post(u, "application/json", strings.NewReader(string(data)))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestIndexPage(t *testing.T) {
	srv, c := newTestServer(t, newFakeBot())

	resp, err := c.Get(srv.URL + "/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	page := readBody(t, resp)
	assert.Contains(t, page, "<title>Scout Agent</title>")
	assert.Contains(t, page, `value="User"`)
	assert.Contains(t, page, `value="MyCompany"`)
	assert.Contains(t, page, `value="user@example.com"`)
	assert.Contains(t, page, "Type your message:")

	u, _ := url.Parse(srv.URL)
	assert.Len(t, c.Jar.Cookies(u), 1)
}

func TestSendForm(t *testing.T) {
	srv, c := newTestServer(t, newFakeBot())

	resp, err := c.PostForm(srv.URL+"/send", url.Values{"message": {"  "}})
	require.NoError(t, err)
	page := readBody(t, resp)
	assert.Contains(t, page, EmptyMessage)

	for i := 1; i <= TipEvery; i++ {
		resp, err = c.PostForm(srv.URL+"/send", url.Values{"message": {"hello <b>"}})
		require.NoError(t, err)
		page = readBody(t, resp)
		assert.Contains(t, page, "you said hello &lt;b&gt;")
		if i < TipEvery {
			assert.NotContains(t, page, TipText)
		}
	}
	assert.Contains(t, page, TipText)

	resp, err = c.PostForm(srv.URL+"/history", nil)
	require.NoError(t, err)
	assert.Contains(t, readBody(t, resp), "<strong>Assistant</strong>")

	resp, err = c.PostForm(srv.URL+"/memory/clear", nil)
	require.NoError(t, err)
	assert.Contains(t, readBody(t, resp), MemoryCleared)

	resp, err = c.PostForm(srv.URL+"/history", nil)
	require.NoError(t, err)
	assert.Contains(t, readBody(t, resp), "No history yet.")
}

func TestProfileForm(t *testing.T) {
	bot := newFakeBot()
	srv, c := newTestServer(t, bot)

	resp, err := c.PostForm(srv.URL+"/profile", url.Values{"name": {"Ada"}, "company": {"Engines"}, "email": {"ada@example.com"}})
	require.NoError(t, err)
	page := readBody(t, resp)
	assert.Contains(t, page, ProfileSaved)
	assert.Contains(t, page, `value="Ada"`)
	assert.Equal(t, "Engines", bot.profiles[chatbot.DefaultUserID]["company"])
}

func TestAPI(t *testing.T) {
	srv, c := newTestServer(t, newFakeBot())

	resp, out := postJSON(t, c, srv.URL+"/api/chat", ChatRequest{Message: ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, EmptyMessage, out["error"])

	resp, out = postJSON(t, c, srv.URL+"/api/chat", ChatRequest{Message: "hi"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "you said hi", out["response"])
	assert.Equal(t, float64(1), out["message_count"])
	threadID := out["thread_id"].(string)
	assert.NotEmpty(t, threadID)

	hresp, err := c.Get(srv.URL + "/api/history")
	require.NoError(t, err)
	var history struct {
		ThreadID string                 `json:"thread_id"`
		History  []chatbot.HistoryEntry `json:"history"`
	}
	require.NoError(t, json.NewDecoder(hresp.Body).Decode(&history))
	hresp.Body.Close()
	assert.Equal(t, threadID, history.ThreadID)
	assert.Len(t, history.History, 2)

	resp, out = postJSON(t, c, srv.URL+"/api/memory/clear", map[string]string{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cleared", out["status"])

	resp, out = postJSON(t, c, srv.URL+"/api/profile", Profile{Name: "Grace", Company: "Navy", Email: "g@example.com"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "updated", out["status"])
}

func TestTipFor(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{0, ""},
		{1, ""},
		{5, TipText},
		{7, ""},
		{10, TipText},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tipFor(tt.count), "count %d", tt.count)
	}
}

func TestSessionEviction(t *testing.T) {
	s := NewServer(":0", newFakeBot())
	s.maxSessions = 3
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	open := func(cookie string) string {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if cookie != "" {
			r.AddCookie(&http.Cookie{Name: CookieName, Value: cookie})
		}
		w := httptest.NewRecorder()
		s.session(w, r)
		for _, c := range w.Result().Cookies() {
			if c.Name == CookieName {
				return c.Value
			}
		}
		return cookie
	}

	first := open("")
	clock = clock.Add(time.Minute)
	second := open("")
	clock = clock.Add(time.Minute)
	third := open("")
	clock = clock.Add(time.Minute)
	// Touching first makes second the least recently seen.
	assert.Equal(t, first, open(first))

	for i := 0; i < 10; i++ {
		clock = clock.Add(time.Second)
		open("")
		assert.LessOrEqual(t, len(s.sessions), 3)
	}
	_, ok := s.sessions[second]
	assert.False(t, ok, "least recently seen session should be evicted")
	_, ok = s.sessions[third]
	assert.False(t, ok)

	recent := open("")
	assert.Equal(t, recent, open(recent), "recent cookie keeps its session")

	clock = clock.Add(SessionTTL + time.Second)
	open("")
	assert.Len(t, s.sessions, 1, "idle sessions expire")
}
