// Package webui serves the browser chat page and its JSON API.
package webui

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matsen/scout/internal/chatbot"
	"github.com/matsen/scout/internal/logging"
)

// Page text.
const (
	PageTitle     = "Scout Agent"
	EmptyMessage  = "Please type something to send."
	TipText       = "Tip: Ask about email campaigns or partnership workflows!"
	ProfileSaved  = "Profile updated!"
	MemoryCleared = "Chat memory cleared!"

	// TipEvery shows the tip after every n-th message.
	TipEvery = 5

	// CookieName holds the browser session id.
	CookieName = "scout_session"
)

// Session limits. Idle sessions expire after SessionTTL; past MaxSessions the
// least recently seen session is dropped.
const (
	MaxSessions = 1000
	SessionTTL  = 24 * time.Hour
)

// Profile defaults shown before the user saves one.
const (
	DefaultName    = "User"
	DefaultCompany = "MyCompany"
	DefaultEmail   = "user@example.com"
)

// Bot is the conversational backend. *chatbot.ChatBot satisfies it.
type Bot interface {
	Chat(ctx context.Context, message, threadID string) string
	History(ctx context.Context, threadID string) ([]chatbot.HistoryEntry, error)
	ClearMemory(ctx context.Context, threadID string) error
	SetUserContext(ctx context.Context, userID string, profile map[string]string) error
	GetUserContext(ctx context.Context, userID string) (map[string]string, error)
}

// Profile is the sidebar form.
type Profile struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Email   string `json:"email"`
}

func (p Profile) toMap() map[string]string {
	return map[string]string{"name": p.Name, "company": p.Company, "email": p.Email}
}

func profileFromMap(m map[string]string) Profile {
	p := Profile{Name: DefaultName, Company: DefaultCompany, Email: DefaultEmail}
	if v, ok := m["name"]; ok {
		p.Name = v
	}
	if v, ok := m["company"]; ok {
		p.Company = v
	}
	if v, ok := m["email"]; ok {
		p.Email = v
	}
	return p
}

// session is the per-browser state: a conversation thread and a message count.
type session struct {
	ThreadID string
	UserID   string
	Count    int

	lastSeen time.Time
}

// Server serves the chat UI.
type Server struct {
	addr string
	bot  Bot
	log  *zap.Logger

	mu          sync.Mutex
	sessions    map[string]*session
	maxSessions int
	ttl         time.Duration
	now         func() time.Time
}

// NewServer returns a server for bot listening on addr.
func NewServer(addr string, bot Bot) *Server {
	return &Server{
		addr:     addr,
		bot:      bot,
		log:      logging.Named("webui"),
		sessions:    make(map[string]*session),
		maxSessions: MaxSessions,
		ttl:         SessionTTL,
		now:         time.Now,
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /send", s.handleSend)
	mux.HandleFunc("POST /profile", s.handleProfile)
	mux.HandleFunc("POST /memory/clear", s.handleClear)
	mux.HandleFunc("POST /history", s.handleHistory)

	mux.HandleFunc("POST /api/chat", s.handleAPIChat)
	mux.HandleFunc("GET /api/history", s.handleAPIHistory)
	mux.HandleFunc("POST /api/memory/clear", s.handleAPIClear)
	mux.HandleFunc("POST /api/profile", s.handleAPIProfile)
	return mux
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Info("web ui listening", zap.String("addr", s.addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// session returns the caller's session, creating one and setting the
// cookie when absent or unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, err := r.Cookie(CookieName); err == nil {
		if sess, ok := s.sessions[c.Value]; ok {
			sess.lastSeen = s.now()
			return sess
		}
	}

	s.evictSessions()
	id := uuid.NewString()
	sess := &session{ThreadID: uuid.NewString(), UserID: chatbot.DefaultUserID, lastSeen: s.now()}
	s.sessions[id] = sess
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: id, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	return sess
}

// evictSessions drops expired sessions and, if still full, the least recently
// seen one. Callers hold mu.
func (s *Server) evictSessions() {
	cutoff := s.now().Add(-s.ttl)
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
	for len(s.sessions) > 0 && len(s.sessions) >= s.maxSessions {
		var oldest string
		for id, sess := range s.sessions {
			if oldest == "" || sess.lastSeen.Before(s.sessions[oldest].lastSeen) {
				oldest = id
			}
		}
		delete(s.sessions, oldest)
	}
}

// send runs one chat turn. ok is false for blank messages.
func (s *Server) send(ctx context.Context, sess *session, message string) (response string, count int, ok bool) {
	if strings.TrimSpace(message) == "" {
		return "", 0, false
	}
	response = s.bot.Chat(ctx, message, sess.ThreadID)

	s.mu.Lock()
	sess.Count++
	count = sess.Count
	s.mu.Unlock()
	return response, count, true
}

func (s *Server) clear(ctx context.Context, sess *session) error {
	if err := s.bot.ClearMemory(ctx, sess.ThreadID); err != nil {
		return err
	}
	s.mu.Lock()
	sess.Count = 0
	s.mu.Unlock()
	return nil
}

func (s *Server) count(sess *session) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sess.Count
}

func tipFor(count int) string {
	if count > 0 && count%TipEvery == 0 {
		return TipText
	}
	return ""
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, sess *session, data pageData) {
	data.Title = PageTitle
	stored, err := s.bot.GetUserContext(r.Context(), sess.UserID)
	if err != nil {
		s.log.Warn("loading profile", zap.Error(err))
	}
	data.Profile = profileFromMap(stored)

	page, err := renderPage(data)
	if err != nil {
		s.log.Error("rendering page", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	s.render(w, r, sess, pageData{Tip: tipFor(s.count(sess))})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	response, count, ok := s.send(r.Context(), sess, r.FormValue("message"))
	if !ok {
		s.render(w, r, sess, pageData{Warning: EmptyMessage, Tip: tipFor(s.count(sess))})
		return
	}
	s.render(w, r, sess, pageData{Response: response, Tip: tipFor(count)})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	p := Profile{Name: r.FormValue("name"), Company: r.FormValue("company"), Email: r.FormValue("email")}
	if err := s.bot.SetUserContext(r.Context(), sess.UserID, p.toMap()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.render(w, r, sess, pageData{Notice: ProfileSaved})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := s.clear(r.Context(), sess); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.render(w, r, sess, pageData{Notice: MemoryCleared})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	history, err := s.bot.History(r.Context(), sess.ThreadID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.render(w, r, sess, pageData{ShowHistory: true, History: history, Tip: tipFor(s.count(sess))})
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the reply of POST /api/chat.
type ChatResponse struct {
	Response     string `json:"response"`
	ThreadID     string `json:"thread_id"`
	MessageCount int    `json:"message_count"`
	Tip          string `json:"tip,omitempty"`
}

func (s *Server) handleAPIChat(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	response, count, ok := s.send(r.Context(), sess, req.Message)
	if !ok {
		writeError(w, http.StatusBadRequest, EmptyMessage)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Response: response, ThreadID: sess.ThreadID, MessageCount: count, Tip: tipFor(count)})
}

func (s *Server) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	history, err := s.bot.History(r.Context(), sess.ThreadID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"thread_id": sess.ThreadID, "history": history})
}

func (s *Server) handleAPIClear(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := s.clear(r.Context(), sess); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared", "thread_id": sess.ThreadID})
}

func (s *Server) handleAPIProfile(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	var p Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.bot.SetUserContext(r.Context(), sess.UserID, p.toMap()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "updated", "profile": p})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// withContext rejects requests once the root context is cancelled.
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
