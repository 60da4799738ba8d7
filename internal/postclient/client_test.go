package postclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"xcreator/pkg/domain"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/posts/generate" {
			http.NotFound(w, r)
			return
		}
		var req GenerateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Prompt != "launch day" || req.MaxLength != 280 {
			t.Errorf("unexpected request: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"content": "We are live!",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	content, err := client.Generate("tok", GenerateRequest{
		Prompt:    "launch day",
		Platform:  domain.PlatformX,
		Tone:      domain.ToneCasual,
		MaxLength: 280,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if content != "We are live!" {
		t.Fatalf("content = %q", content)
	}
}

func TestGenerateRejectionInOKBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "model overloaded",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Generate("tok", GenerateRequest{Prompt: "p", MaxLength: 100})
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T %v", err, err)
	}
	if apiErr.Message != "model overloaded" {
		t.Fatalf("rejection message should pass through, got %q", apiErr.Message)
	}
}

func TestHashtagsEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	tags, err := client.Hashtags("tok", "content", domain.PlatformGeneral, 5)
	if err != nil {
		t.Fatalf("hashtags: %v", err)
	}
	if tags == nil || len(tags) != 0 {
		t.Fatalf("missing hashtags field should yield empty slice, got %#v", tags)
	}
}

func TestAnalyzeSentimentValidatesValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":   true,
			"sentiment": "ecstatic",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	if _, err := client.AnalyzeSentiment("tok", "great news"); err == nil {
		t.Fatalf("expected error for unrecognized sentiment value")
	}
}

func TestGenerateImageRequiresURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"image_url": "  "})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	if _, err := client.GenerateImage("tok", "sunset", domain.ImageMedium); err == nil {
		t.Fatalf("expected error for blank image_url")
	}
}

func TestListDecodesTimestamps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/posts" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{
			"id": 3,
			"user_id": 7,
			"content": "hello",
			"platform": "x",
			"status": "scheduled",
			"scheduled_at": "2026-03-01T09:30:00",
			"published_at": null,
			"ai_generated": true
		}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	posts, err := client.List("tok")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("got %d posts", len(posts))
	}
	p := posts[0]
	if p.ID != 3 || p.Status != domain.StatusScheduled || !p.AIGenerated {
		t.Fatalf("unexpected post: %+v", p)
	}
	if p.ScheduledAt == nil || p.ScheduledAt.IsZero() {
		t.Fatalf("scheduled_at should parse")
	}
}
