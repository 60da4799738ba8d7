package workflow

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"xcreator/internal/authclient"
	"xcreator/internal/postclient"
	"xcreator/internal/session"
	"xcreator/pkg/domain"
)

type fakeBackend struct {
	t *testing.T

	calls       int32
	generated   string
	sentiment   string
	sentimentOK bool

	generateStarted chan struct{}
	generateRelease chan struct{}

	lastCreate    atomic.Pointer[postclient.CreateRequest]
	lastUpdate    atomic.Pointer[postclient.UpdateRequest]
	updatePath    atomic.Pointer[string]
	sentimentText atomic.Pointer[string]
}

func newFakeBackend(t *testing.T) *fakeBackend {
	return &fakeBackend{
		t:           t,
		generated:   "generated content",
		sentiment:   "positive",
		sentimentOK: true,
	}
}

func (f *fakeBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.calls, 1)
		switch {
		case r.URL.Path == "/api/posts/generate":
			if f.generateStarted != nil {
				f.generateStarted <- struct{}{}
				<-f.generateRelease
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "content": f.generated})
		case r.URL.Path == "/api/posts/hashtags":
			_ = json.NewEncoder(w).Encode(map[string]any{"hashtags": []string{"#go", "#launch"}})
		case r.URL.Path == "/api/posts/analyze-sentiment":
			var req map[string]string
			_ = json.NewDecoder(r.Body).Decode(&req)
			content := req["content"]
			f.sentimentText.Store(&content)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": f.sentimentOK, "sentiment": f.sentiment, "error": "analyzer down"})
		case r.URL.Path == "/api/posts/improve":
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "improved_content": "improved content"})
		case r.URL.Path == "/api/posts/suggest":
			_ = json.NewEncoder(w).Encode(map[string]any{"suggestions": []string{"idea one", "idea two"}})
		case r.URL.Path == "/api/posts/ai-create":
			var req postclient.CreateRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			f.lastCreate.Store(&req)
			_ = json.NewEncoder(w).Encode(domain.Post{ID: 11, Content: req.Content, Status: req.Status})
		case strings.HasPrefix(r.URL.Path, "/api/posts/") && r.Method == http.MethodPut:
			var req postclient.UpdateRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			f.lastUpdate.Store(&req)
			path := r.URL.Path
			f.updatePath.Store(&path)
			_ = json.NewEncoder(w).Encode(domain.Post{ID: 3, Content: req.Content, Status: req.Status})
		default:
			http.NotFound(w, r)
		}
	})
}

func newTestController(t *testing.T, f *fakeBackend) (*Controller, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	store := session.NewMemoryStore()
	_ = store.Save(domain.Session{Token: "tok-1", UserID: "7"})
	sessions := session.NewManager(authclient.NewClient(srv.URL), store)
	return NewController(postclient.NewClient(srv.URL), sessions), srv
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func TestGenerateValidationSkipsNetwork(t *testing.T) {
	f := newFakeBackend(t)
	c, _ := newTestController(t, f)

	if err := c.Generate(); domain.KindOf(err) != domain.ErrValidation {
		t.Errorf("empty prompt: kind = %v, want validation", domain.KindOf(err))
	}
	c.SetPrompt("launch")
	c.SetMaxLength(10)
	if err := c.Generate(); domain.KindOf(err) != domain.ErrValidation {
		t.Errorf("max length below minimum: kind = %v, want validation", domain.KindOf(err))
	}
	c.SetMaxLength(5000)
	if err := c.Generate(); domain.KindOf(err) != domain.ErrValidation {
		t.Errorf("max length above maximum: kind = %v, want validation", domain.KindOf(err))
	}
	if n := atomic.LoadInt32(&f.calls); n != 0 {
		t.Fatalf("validation failures reached the network %d times", n)
	}
}

func TestGenerateWithoutSession(t *testing.T) {
	f := newFakeBackend(t)
	srv := httptest.NewServer(f.handler())
	defer srv.Close()
	sessions := session.NewManager(authclient.NewClient(srv.URL), session.NewMemoryStore())
	c := NewController(postclient.NewClient(srv.URL), sessions)

	c.SetPrompt("launch")
	if err := c.Generate(); domain.KindOf(err) != domain.ErrValidation {
		t.Fatalf("kind = %v, want validation", domain.KindOf(err))
	}
	if atomic.LoadInt32(&f.calls) != 0 {
		t.Fatalf("signed-out generate must not reach the network")
	}
}

func TestGenerateReplacesContentAndAnalyzes(t *testing.T) {
	f := newFakeBackend(t)
	c, _ := newTestController(t, f)

	c.SetPrompt("launch")
	c.SetContent("old content")
	if err := c.GenerateHashtags(); err != nil {
		t.Fatalf("hashtags: %v", err)
	}
	if len(c.Draft().Hashtags) == 0 {
		t.Fatalf("hashtags should be set before the generate")
	}

	if err := c.Generate(); err != nil {
		t.Fatalf("generate: %v", err)
	}
	d := c.Draft()
	if d.Content != "generated content" {
		t.Fatalf("content = %q", d.Content)
	}
	if len(d.Hashtags) != 0 {
		t.Fatalf("replacing content must clear hashtags, got %v", d.Hashtags)
	}
	waitFor(t, func() bool { return c.Draft().Sentiment == domain.SentimentPositive })
	if got := f.sentimentText.Load(); got == nil || *got != "generated content" {
		t.Fatalf("sentiment should be analyzed for the exact generated text, got %v", got)
	}
}

func TestSaveWithEmptyContent(t *testing.T) {
	f := newFakeBackend(t)
	c, _ := newTestController(t, f)

	c.SetPrompt("launch")
	if _, err := c.Save(); domain.KindOf(err) != domain.ErrValidation {
		t.Fatalf("kind = %v, want validation", domain.KindOf(err))
	}
	if atomic.LoadInt32(&f.calls) != 0 {
		t.Fatalf("empty-content save must not reach the network")
	}
}

func TestImproveClearsDerivedState(t *testing.T) {
	f := newFakeBackend(t)
	c, _ := newTestController(t, f)

	c.SetContent("original")
	if err := c.GenerateHashtags(); err != nil {
		t.Fatalf("hashtags: %v", err)
	}
	if err := c.Improve(domain.ImproveClarity); err != nil {
		t.Fatalf("improve: %v", err)
	}
	d := c.Draft()
	if d.Content != "improved content" {
		t.Fatalf("content = %q", d.Content)
	}
	if len(d.Hashtags) != 0 {
		t.Fatalf("improve must clear hashtags")
	}
	waitFor(t, func() bool { return c.Draft().Sentiment == domain.SentimentPositive })
}

func TestSentimentFailureIsSilent(t *testing.T) {
	f := newFakeBackend(t)
	f.sentimentOK = false
	c, _ := newTestController(t, f)

	c.AnalyzeSentiment("some content")
	if got := c.Draft().Sentiment; got != "" {
		t.Fatalf("failed analysis must leave sentiment empty, got %q", got)
	}
}

func TestStaleGenerateResultDiscarded(t *testing.T) {
	f := newFakeBackend(t)
	f.generateStarted = make(chan struct{})
	f.generateRelease = make(chan struct{})
	c, _ := newTestController(t, f)

	c.SetPrompt("launch")
	done := make(chan error, 1)
	go func() { done <- c.Generate() }()

	<-f.generateStarted
	c.SetContent("hand edited while in flight")
	close(f.generateRelease)

	if err := <-done; err != nil {
		t.Fatalf("stale generate should report success without applying: %v", err)
	}
	if got := c.Draft().Content; got != "hand edited while in flight" {
		t.Fatalf("stale response must not overwrite newer content, got %q", got)
	}
}

func TestSaveSchedulesWhenTimeSet(t *testing.T) {
	f := newFakeBackend(t)
	c, _ := newTestController(t, f)

	c.SetPrompt("launch")
	c.SetContent("ready to post")
	when := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	c.SetScheduledAt(&when)

	post, err := c.Save()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if post.ID != 11 {
		t.Fatalf("unexpected post: %+v", post)
	}
	req := f.lastCreate.Load()
	if req == nil {
		t.Fatalf("create request not captured")
	}
	if req.Status != domain.StatusScheduled {
		t.Fatalf("status = %q, want scheduled", req.Status)
	}
	if req.ScheduledAt != "2026-09-01T10:00:00" {
		t.Fatalf("scheduled_at = %q", req.ScheduledAt)
	}
	if !req.IncludeHashtags || req.HashtagCount != saveHashtagCount {
		t.Fatalf("hashtag augmentation not requested: %+v", req)
	}

	c.SetScheduledAt(nil)
	if _, err := c.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := f.lastCreate.Load().Status; got != domain.StatusDraft {
		t.Fatalf("status without schedule = %q, want draft", got)
	}
}

func TestSaveWhileEditingUpdates(t *testing.T) {
	f := newFakeBackend(t)
	c, _ := newTestController(t, f)

	c.LoadForEdit(domain.Post{
		ID:       3,
		Content:  "existing content",
		Platform: domain.PlatformX,
		AIPrompt: "original prompt",
	})
	if id, editing := c.Editing(); !editing || id != 3 {
		t.Fatalf("editing state not entered: id=%d editing=%v", id, editing)
	}
	d := c.Draft()
	if d.Prompt != "original prompt" || d.Content != "existing content" {
		t.Fatalf("draft not loaded from post: %+v", d)
	}
	if d.MaxLength <= 0 {
		t.Fatalf("missing max length should fall back to a default")
	}

	post, err := c.Save()
	if err != nil {
		t.Fatalf("save while editing: %v", err)
	}
	if post.ID != 3 {
		t.Fatalf("unexpected post: %+v", post)
	}
	if path := f.updatePath.Load(); path == nil || *path != "/api/posts/3" {
		t.Fatalf("save while editing should hit the update endpoint")
	}
	if _, editing := c.Editing(); editing {
		t.Fatalf("successful update should leave editing mode")
	}
}

func TestUpdateWithoutEditing(t *testing.T) {
	f := newFakeBackend(t)
	c, _ := newTestController(t, f)
	c.SetContent("content")
	if _, err := c.Update(); domain.KindOf(err) != domain.ErrValidation {
		t.Fatalf("kind = %v, want validation", domain.KindOf(err))
	}
}

func TestSuggestionsAndUsePrompt(t *testing.T) {
	f := newFakeBackend(t)
	c, _ := newTestController(t, f)

	if err := c.RefreshSuggestions(); err != nil {
		t.Fatalf("refresh suggestions: %v", err)
	}
	got := c.Suggestions()
	if len(got) != 2 {
		t.Fatalf("suggestions = %v", got)
	}
	if err := c.UsePrompt(1); err != nil {
		t.Fatalf("use prompt: %v", err)
	}
	if c.Draft().Prompt != "idea two" {
		t.Fatalf("prompt = %q", c.Draft().Prompt)
	}
	if err := c.UsePrompt(5); domain.KindOf(err) != domain.ErrValidation {
		t.Fatalf("out of range index should be a validation error")
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	f := newFakeBackend(t)
	c, _ := newTestController(t, f)

	c.SetPrompt("launch")
	c.SetContent("content")
	c.LoadForEdit(domain.Post{ID: 3, Content: "x"})
	c.Reset()

	d := c.Draft()
	if d.Prompt != "" || d.Content != "" {
		t.Fatalf("reset should clear the draft: %+v", d)
	}
	if d.Platform != domain.PlatformGeneral || d.Tone != domain.ToneProfessional || d.MaxLength != defaultMaxLength {
		t.Fatalf("reset should restore defaults: %+v", d)
	}
	if _, editing := c.Editing(); editing {
		t.Fatalf("reset should leave editing mode")
	}
}
