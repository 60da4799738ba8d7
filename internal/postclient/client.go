package postclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"xcreator/pkg/domain"
)

// Client calls the backend's post and AI-generation endpoints. Generation
// calls can be slow, so the transport timeout is generous.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError represents a backend error response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewClient constructs a post client for the backend base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// List fetches every post of the authenticated user, newest first.
func (c *Client) List(token string) ([]domain.Post, error) {
	var posts []domain.Post
	if err := c.doJSON(http.MethodGet, "/api/posts", token, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Suggest asks for content ideas derived from previous posts.
func (c *Client) Suggest(token string, count int) ([]string, error) {
	payload := map[string]int{"count": count}
	var resp struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := c.doJSON(http.MethodPost, "/api/posts/suggest", token, payload, &resp); err != nil {
		return nil, err
	}
	return resp.Suggestions, nil
}

// GenerateRequest carries the draft parameters for content generation.
type GenerateRequest struct {
	Prompt    string          `json:"prompt"`
	Platform  domain.Platform `json:"platform"`
	Tone      domain.Tone     `json:"tone"`
	MaxLength int             `json:"max_length"`
}

// Generate produces post content from a prompt. A 2xx body carrying
// success=false is still a backend rejection.
func (c *Client) Generate(token string, req GenerateRequest) (string, error) {
	var resp struct {
		Success bool   `json:"success"`
		Content string `json:"content"`
		Error   string `json:"error"`
	}
	if err := c.doJSON(http.MethodPost, "/api/posts/generate", token, req, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", &APIError{Status: http.StatusBadGateway, Message: rejectionMessage(resp.Error, "content generation failed")}
	}
	return resp.Content, nil
}

// Hashtags returns suggested hashtags for existing content. A partial
// response with no hashtags is valid and yields an empty slice.
func (c *Client) Hashtags(token, content string, platform domain.Platform, count int) ([]string, error) {
	payload := map[string]any{
		"content":  content,
		"platform": platform,
		"count":    count,
	}
	var resp struct {
		Hashtags []string `json:"hashtags"`
	}
	if err := c.doJSON(http.MethodPost, "/api/posts/hashtags", token, payload, &resp); err != nil {
		return nil, err
	}
	if resp.Hashtags == nil {
		return []string{}, nil
	}
	return resp.Hashtags, nil
}

// AnalyzeSentiment classifies content as positive, negative, or neutral.
func (c *Client) AnalyzeSentiment(token, content string) (domain.Sentiment, error) {
	payload := map[string]string{"content": content}
	var resp struct {
		Success   bool   `json:"success"`
		Sentiment string `json:"sentiment"`
		Error     string `json:"error"`
	}
	if err := c.doJSON(http.MethodPost, "/api/posts/analyze-sentiment", token, payload, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", &APIError{Status: http.StatusBadGateway, Message: rejectionMessage(resp.Error, "sentiment analysis failed")}
	}
	sentiment, ok := domain.ParseSentiment(resp.Sentiment)
	if !ok {
		return "", &APIError{Status: http.StatusBadGateway, Message: fmt.Sprintf("unrecognized sentiment %q", resp.Sentiment)}
	}
	return sentiment, nil
}

// Improve rewrites content according to the improvement type.
func (c *Client) Improve(token, content string, kind domain.Improvement) (string, error) {
	payload := map[string]string{
		"content":          content,
		"improvement_type": string(kind),
	}
	var resp struct {
		Success         bool   `json:"success"`
		ImprovedContent string `json:"improved_content"`
		Error           string `json:"error"`
	}
	if err := c.doJSON(http.MethodPost, "/api/posts/improve", token, payload, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", &APIError{Status: http.StatusBadGateway, Message: rejectionMessage(resp.Error, "content improvement failed")}
	}
	return resp.ImprovedContent, nil
}

// CreateRequest is the full draft payload for server-side creation with
// optional hashtag augmentation.
type CreateRequest struct {
	Prompt          string            `json:"prompt"`
	Platform        domain.Platform   `json:"platform"`
	Account         string            `json:"platform_account,omitempty"`
	Tone            domain.Tone       `json:"tone"`
	MaxLength       int               `json:"max_length"`
	Content         string            `json:"content"`
	ScheduledAt     string            `json:"scheduled_at,omitempty"`
	Status          domain.PostStatus `json:"status"`
	IncludeHashtags bool              `json:"include_hashtags"`
	HashtagCount    int               `json:"hashtag_count"`
	ImageDataURL    string            `json:"image_data_url,omitempty"`
}

// Create persists a new post via the ai-create endpoint.
func (c *Client) Create(token string, req CreateRequest) (domain.Post, error) {
	var post domain.Post
	if err := c.doJSON(http.MethodPost, "/api/posts/ai-create", token, req, &post); err != nil {
		return domain.Post{}, err
	}
	return post, nil
}

// UpdateRequest overwrites an existing post with current draft fields.
type UpdateRequest struct {
	Prompt      string            `json:"prompt"`
	Platform    domain.Platform   `json:"platform"`
	Account     string            `json:"platform_account,omitempty"`
	Tone        domain.Tone       `json:"tone"`
	MaxLength   int               `json:"max_length"`
	Content     string            `json:"content"`
	ScheduledAt string            `json:"scheduled_at,omitempty"`
	Status      domain.PostStatus `json:"status"`
}

// Update overwrites the identified post.
func (c *Client) Update(token string, id int64, req UpdateRequest) (domain.Post, error) {
	var post domain.Post
	if err := c.doJSON(http.MethodPut, fmt.Sprintf("/api/posts/%d", id), token, req, &post); err != nil {
		return domain.Post{}, err
	}
	return post, nil
}

// Delete removes a post.
func (c *Client) Delete(token string, id int64) error {
	return c.doJSON(http.MethodDelete, fmt.Sprintf("/api/posts/%d", id), token, nil, nil)
}

// GenerateImage returns an image URL for a prompt. A 2xx body without an
// image_url is malformed and reported as a backend error.
func (c *Client) GenerateImage(token, prompt string, size domain.ImageSize) (string, error) {
	payload := map[string]string{
		"prompt": prompt,
		"size":   string(size),
	}
	var resp struct {
		ImageURL string `json:"image_url"`
	}
	if err := c.doJSON(http.MethodPost, "/api/generate-image", token, payload, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.ImageURL) == "" {
		return "", &APIError{Status: http.StatusBadGateway, Message: "image response missing image_url"}
	}
	return resp.ImageURL, nil
}

func (c *Client) doJSON(method, path, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func rejectionMessage(serverMsg, fallback string) string {
	if strings.TrimSpace(serverMsg) != "" {
		return serverMsg
	}
	return fallback
}
