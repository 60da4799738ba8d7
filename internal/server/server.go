package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"xcreator/internal/collection"
	"xcreator/internal/ratelimit"
	"xcreator/internal/session"
	"xcreator/internal/util"
	"xcreator/internal/views"
	"xcreator/internal/workflow"
	"xcreator/pkg/domain"
)

// Config wires required dependencies for the HTTP surface.
type Config struct {
	Sessions     *session.Manager
	Workflow     *workflow.Controller
	Collection   *collection.View
	LoginLimiter *ratelimit.FixedWindowLimiter
}

// Server exposes the dashboard over local HTTP so a UI process can drive it.
type Server struct {
	sessions     *session.Manager
	workflow     *workflow.Controller
	collection   *collection.View
	loginLimiter *ratelimit.FixedWindowLimiter
	mux          *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		sessions:     cfg.Sessions,
		workflow:     cfg.Workflow,
		collection:   cfg.Collection,
		loginLimiter: cfg.LoginLimiter,
		mux:          http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// session
	s.mux.HandleFunc("/api/login", s.handleLogin)
	s.mux.HandleFunc("/api/logout", s.handleLogout)
	s.mux.HandleFunc("/api/me", s.handleMe)

	// post collection
	s.mux.HandleFunc("/api/posts", s.handlePosts)
	s.mux.HandleFunc("/api/posts/refresh", s.handlePostsRefresh)
	s.mux.HandleFunc("/api/posts/", s.handlePostByID)

	// draft workflow
	s.mux.HandleFunc("/api/draft", s.handleDraft)
	s.mux.HandleFunc("/api/draft/generate", s.handleGenerate)
	s.mux.HandleFunc("/api/draft/hashtags", s.handleHashtags)
	s.mux.HandleFunc("/api/draft/improve", s.handleImprove)
	s.mux.HandleFunc("/api/draft/image", s.handleImage)
	s.mux.HandleFunc("/api/draft/save", s.handleSave)
	s.mux.HandleFunc("/api/draft/update", s.handleUpdate)

	// suggestions
	s.mux.HandleFunc("/api/suggestions", s.handleSuggestions)
	s.mux.HandleFunc("/api/suggestions/use", s.handleUseSuggestion)

	// derived views
	s.mux.HandleFunc("/api/views/status-counts", s.handleStatusCounts)
	s.mux.HandleFunc("/api/views/calendar", s.handleCalendar)
	s.mux.HandleFunc("/api/views/summary", s.handleSummary)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, "too many login attempts") {
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.sessions.Login(req.Email, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Warm the dashboard after login. Each fetch logs its own failure and
	// the others proceed; a cold cache is not a login failure.
	var g errgroup.Group
	g.Go(func() error {
		if err := s.collection.Refresh(); err != nil {
			slog.Warn("post refresh after login failed", "err", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.workflow.RefreshSuggestions(); err != nil {
			slog.Warn("suggestion refresh after login failed", "err", err)
		}
		return nil
	})
	_ = g.Wait()

	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	s.sessions.Logout()
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	user, err := s.sessions.CurrentUser()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := map[string]any{"user": user}
	if exp, ok := s.sessions.ExpiresAt(); ok {
		resp["expires_at"] = exp.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	status := r.URL.Query().Get("status")
	if status != "" && status != "all" {
		parsed, ok := domain.ParseStatus(status)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown status filter")
			return
		}
		status = string(parsed)
	}
	posts := s.collection.Filter(status, r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

func (s *Server) handlePostsRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.collection.Refresh(); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": s.collection.All()})
}

type deleteRequest struct {
	Confirm bool `json:"confirm"`
}

func (s *Server) handlePostByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/posts/")
	idPart, action, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}
	switch {
	case action == "" && r.Method == http.MethodDelete:
		var req deleteRequest
		_ = json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req)
		if err := s.collection.Delete(id, req.Confirm); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	case action == "edit" && r.Method == http.MethodPost:
		post, ok := s.collection.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		s.workflow.LoadForEdit(post)
		writeJSON(w, http.StatusOK, map[string]any{"draft": s.workflow.Draft()})
	default:
		methodNotAllowed(w)
	}
}

type draftRequest struct {
	Prompt      *string `json:"prompt"`
	Platform    *string `json:"platform"`
	Account     *string `json:"platform_account"`
	Tone        *string `json:"tone"`
	MaxLength   *int    `json:"max_length"`
	ScheduledAt *string `json:"scheduled_at"`
	Content     *string `json:"content"`
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeDraft(w)
	case http.MethodPost:
		var req draftRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		// Validate everything before touching the draft so a rejected body
		// leaves no partial update behind.
		var platform domain.Platform
		if req.Platform != nil {
			p, ok := domain.ParsePlatform(*req.Platform)
			if !ok {
				writeError(w, http.StatusBadRequest, "unknown platform")
				return
			}
			platform = p
		}
		var tone domain.Tone
		if req.Tone != nil {
			t, ok := domain.ParseTone(*req.Tone)
			if !ok {
				writeError(w, http.StatusBadRequest, "unknown tone")
				return
			}
			tone = t
		}
		var scheduledAt *time.Time
		if req.ScheduledAt != nil && *req.ScheduledAt != "" {
			ts, err := domain.ParseTimestamp(*req.ScheduledAt)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid scheduled_at")
				return
			}
			t := ts.Time
			scheduledAt = &t
		}
		if req.Platform != nil {
			s.workflow.SetPlatform(platform)
		}
		if req.Tone != nil {
			s.workflow.SetTone(tone)
		}
		if req.ScheduledAt != nil {
			s.workflow.SetScheduledAt(scheduledAt)
		}
		if req.Prompt != nil {
			s.workflow.SetPrompt(*req.Prompt)
		}
		if req.Account != nil {
			s.workflow.SetAccount(*req.Account)
		}
		if req.MaxLength != nil {
			s.workflow.SetMaxLength(*req.MaxLength)
		}
		if req.Content != nil {
			s.workflow.SetContent(*req.Content)
		}
		s.writeDraft(w)
	case http.MethodDelete:
		s.workflow.Reset()
		s.writeDraft(w)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) writeDraft(w http.ResponseWriter) {
	draft := s.workflow.Draft()
	resp := map[string]any{
		"draft":       draft,
		"over_length": draft.OverLength(),
	}
	if id, editing := s.workflow.Editing(); editing {
		resp["editing_id"] = id
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.workflow.Generate(); err != nil {
		writeDomainError(w, err)
		return
	}
	s.writeDraft(w)
}

func (s *Server) handleHashtags(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.workflow.GenerateHashtags(); err != nil {
		writeDomainError(w, err)
		return
	}
	s.writeDraft(w)
}

type improveRequest struct {
	Improvement string `json:"improvement"`
}

func (s *Server) handleImprove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req improveRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	kind, ok := domain.ParseImprovement(req.Improvement)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown improvement type")
		return
	}
	if err := s.workflow.Improve(kind); err != nil {
		writeDomainError(w, err)
		return
	}
	s.writeDraft(w)
}

type imageRequest struct {
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req imageRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	size := domain.ImageMedium
	if req.Size != "" {
		parsed, ok := domain.ParseImageSize(req.Size)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown image size")
			return
		}
		size = parsed
	}
	if err := s.workflow.GenerateImage(req.Prompt, size); err != nil {
		writeDomainError(w, err)
		return
	}
	s.writeDraft(w)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	post, err := s.workflow.Save()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.collection.Refresh(); err != nil {
		slog.Warn("post refresh after save failed", "err", err)
	}
	writeJSON(w, http.StatusCreated, map[string]any{"post": post})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	post, err := s.workflow.Update()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.collection.Refresh(); err != nil {
		slog.Warn("post refresh after update failed", "err", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"post": post})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"suggestions": s.workflow.Suggestions()})
	case http.MethodPost:
		if err := s.workflow.RefreshSuggestions(); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"suggestions": s.workflow.Suggestions()})
	default:
		methodNotAllowed(w)
	}
}

type useSuggestionRequest struct {
	Index int `json:"index"`
}

func (s *Server) handleUseSuggestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req useSuggestionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.workflow.UsePrompt(req.Index); err != nil {
		writeDomainError(w, err)
		return
	}
	s.writeDraft(w)
}

func (s *Server) handleStatusCounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, views.CountByStatus(s.collection.All()))
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": views.CalendarEvents(s.collection.All())})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, views.Summarize(s.collection.All()))
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, msg string) bool {
	if s.loginLimiter == nil {
		return true
	}
	key := r.URL.Path + "|" + clientIP(r)
	if s.loginLimiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the error taxonomy onto HTTP statuses. Backend
// rejection messages pass through verbatim.
func writeDomainError(w http.ResponseWriter, err error) {
	switch domain.KindOf(err) {
	case domain.ErrValidation:
		writeError(w, http.StatusBadRequest, err.Error())
	case domain.ErrAuth:
		writeError(w, http.StatusUnauthorized, err.Error())
	case domain.ErrServer:
		writeError(w, http.StatusBadGateway, err.Error())
	case domain.ErrNetwork:
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
