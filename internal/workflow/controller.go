package workflow

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"xcreator/internal/postclient"
	"xcreator/internal/session"
	"xcreator/pkg/domain"
)

const (
	defaultMaxLength = 280
	suggestionCount  = 5
	hashtagCount     = 5
	saveHashtagCount = 3
)

// Controller owns the draft being composed and serializes every mutation of
// it. Per-operation busy flags block same-operation re-entrancy; a generation
// counter stamps each content-producing request so that a response arriving
// after the content it was computed from has been replaced is discarded
// instead of winning by being last.
type Controller struct {
	posts    *postclient.Client
	sessions *session.Manager

	mu          sync.Mutex
	draft       domain.Draft
	suggestions []string
	editingID   int64
	generation  uint64

	generating  bool
	hashtagging bool
	analyzing   bool
	saving      bool
	imaging     bool
	suggesting  bool
}

// NewController starts with the same defaults the composer opens with.
func NewController(posts *postclient.Client, sessions *session.Manager) *Controller {
	return &Controller{
		posts:    posts,
		sessions: sessions,
		draft:    defaultDraft(),
	}
}

func defaultDraft() domain.Draft {
	return domain.Draft{
		Platform:  domain.PlatformGeneral,
		Tone:      domain.ToneProfessional,
		MaxLength: defaultMaxLength,
	}
}

// Draft returns a snapshot of the current draft.
func (c *Controller) Draft() domain.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.draft
	d.Hashtags = append([]string(nil), d.Hashtags...)
	return d
}

// Editing reports whether a saved post is loaded, and which one.
func (c *Controller) Editing() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editingID, c.editingID != 0
}

// Suggestions returns the current ephemeral idea list.
func (c *Controller) Suggestions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.suggestions...)
}

func (c *Controller) SetPrompt(prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Prompt = prompt
}

func (c *Controller) SetPlatform(p domain.Platform) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Platform = p
}

func (c *Controller) SetAccount(account string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Account = account
}

func (c *Controller) SetTone(t domain.Tone) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Tone = t
}

func (c *Controller) SetMaxLength(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.MaxLength = n
}

func (c *Controller) SetScheduledAt(t *time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.ScheduledAt = t
}

// SetContent replaces the content by hand (the edit dialog allows direct
// edits). Hand-edited content invalidates derived hashtags and sentiment.
func (c *Controller) SetContent(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Content = content
	c.draft.Hashtags = nil
	c.draft.Sentiment = ""
	c.generation++
}

// UsePrompt copies a suggestion into the draft prompt.
func (c *Controller) UsePrompt(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.suggestions) {
		return domain.Validationf("no suggestion at index %d", index)
	}
	c.draft.Prompt = c.suggestions[index]
	return nil
}

// Generate produces content from the prompt. On success the content replaces
// the draft wholesale: hashtags are cleared and sentiment is re-analyzed in
// the background.
func (c *Controller) Generate() error {
	token, ok := c.sessions.Token()
	if !ok {
		return domain.Validationf("not signed in")
	}
	c.mu.Lock()
	if c.generating {
		c.mu.Unlock()
		return domain.Validationf("generation already in progress")
	}
	draft := c.draft
	if draft.Prompt == "" {
		c.mu.Unlock()
		return domain.Validationf("prompt is required")
	}
	if draft.MaxLength < domain.MinDraftLength || draft.MaxLength > domain.MaxDraftLength {
		c.mu.Unlock()
		return domain.Validationf("max length must be between %d and %d", domain.MinDraftLength, domain.MaxDraftLength)
	}
	c.generating = true
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	content, err := c.posts.Generate(token, postclient.GenerateRequest{
		Prompt:    draft.Prompt,
		Platform:  draft.Platform,
		Tone:      draft.Tone,
		MaxLength: draft.MaxLength,
	})

	c.mu.Lock()
	c.generating = false
	if err != nil {
		c.mu.Unlock()
		return classify(err)
	}
	if gen != c.generation {
		c.mu.Unlock()
		slog.Debug("generate result discarded", "generation", gen)
		return nil
	}
	c.draft.Content = content
	c.draft.Hashtags = nil
	c.draft.Sentiment = ""
	c.mu.Unlock()

	go c.AnalyzeSentiment(content)
	return nil
}

// GenerateHashtags replaces the hashtag list for the current content. The
// backend may legitimately return none.
func (c *Controller) GenerateHashtags() error {
	token, ok := c.sessions.Token()
	if !ok {
		return domain.Validationf("not signed in")
	}
	c.mu.Lock()
	if c.hashtagging {
		c.mu.Unlock()
		return domain.Validationf("hashtag generation already in progress")
	}
	draft := c.draft
	if draft.Content == "" {
		c.mu.Unlock()
		return domain.Validationf("no content to generate hashtags for")
	}
	c.hashtagging = true
	gen := c.generation
	c.mu.Unlock()

	tags, err := c.posts.Hashtags(token, draft.Content, draft.Platform, hashtagCount)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.hashtagging = false
	if err != nil {
		return classify(err)
	}
	if gen != c.generation {
		slog.Debug("hashtag result discarded", "generation", gen)
		return nil
	}
	c.draft.Hashtags = tags
	return nil
}

// AnalyzeSentiment classifies the given text and records the result on the
// draft. Failures are logged and never surfaced; the composer simply shows
// no sentiment.
func (c *Controller) AnalyzeSentiment(text string) {
	if text == "" {
		return
	}
	token, ok := c.sessions.Token()
	if !ok {
		return
	}
	c.mu.Lock()
	if c.analyzing {
		c.mu.Unlock()
		return
	}
	c.analyzing = true
	gen := c.generation
	c.mu.Unlock()

	sentiment, err := c.posts.AnalyzeSentiment(token, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.analyzing = false
	if err != nil {
		slog.Warn("sentiment analysis failed", "err", err)
		return
	}
	if gen != c.generation {
		slog.Debug("sentiment result discarded", "generation", gen)
		return
	}
	c.draft.Sentiment = sentiment
}

// Improve rewrites the content wholesale, then re-analyzes sentiment.
func (c *Controller) Improve(kind domain.Improvement) error {
	token, ok := c.sessions.Token()
	if !ok {
		return domain.Validationf("not signed in")
	}
	c.mu.Lock()
	if c.generating {
		c.mu.Unlock()
		return domain.Validationf("generation already in progress")
	}
	draft := c.draft
	if draft.Content == "" {
		c.mu.Unlock()
		return domain.Validationf("no content to improve")
	}
	c.generating = true
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	improved, err := c.posts.Improve(token, draft.Content, kind)

	c.mu.Lock()
	c.generating = false
	if err != nil {
		c.mu.Unlock()
		return classify(err)
	}
	if gen != c.generation {
		c.mu.Unlock()
		slog.Debug("improve result discarded", "generation", gen)
		return nil
	}
	c.draft.Content = improved
	c.draft.Hashtags = nil
	c.draft.Sentiment = ""
	c.mu.Unlock()

	go c.AnalyzeSentiment(improved)
	return nil
}

// Save persists the draft as a new post, or overwrites the loaded post when
// an edit is in progress. Status is scheduled when a schedule time is set,
// draft otherwise. The draft itself is untouched either way, so a failure
// needs no rollback.
func (c *Controller) Save() (domain.Post, error) {
	c.mu.Lock()
	editing := c.editingID
	c.mu.Unlock()
	if editing != 0 {
		return c.Update()
	}

	token, ok := c.sessions.Token()
	if !ok {
		return domain.Post{}, domain.Validationf("not signed in")
	}
	c.mu.Lock()
	if c.saving {
		c.mu.Unlock()
		return domain.Post{}, domain.Validationf("save already in progress")
	}
	draft := c.draft
	if draft.Content == "" {
		c.mu.Unlock()
		return domain.Post{}, domain.Validationf("no content to save")
	}
	c.saving = true
	c.mu.Unlock()

	post, err := c.posts.Create(token, postclient.CreateRequest{
		Prompt:          draft.Prompt,
		Platform:        draft.Platform,
		Account:         draft.Account,
		Tone:            draft.Tone,
		MaxLength:       draft.MaxLength,
		Content:         draft.Content,
		ScheduledAt:     wireTime(draft.ScheduledAt),
		Status:          statusFor(draft.ScheduledAt),
		IncludeHashtags: true,
		HashtagCount:    saveHashtagCount,
		ImageDataURL:    draft.ImageURL,
	})

	c.mu.Lock()
	c.saving = false
	c.mu.Unlock()
	if err != nil {
		return domain.Post{}, classify(err)
	}
	return post, nil
}

// Update overwrites the post loaded for editing with the current draft
// fields. Only valid while an edit is in progress.
func (c *Controller) Update() (domain.Post, error) {
	token, ok := c.sessions.Token()
	if !ok {
		return domain.Post{}, domain.Validationf("not signed in")
	}
	c.mu.Lock()
	if c.saving {
		c.mu.Unlock()
		return domain.Post{}, domain.Validationf("save already in progress")
	}
	id := c.editingID
	draft := c.draft
	if id == 0 {
		c.mu.Unlock()
		return domain.Post{}, domain.Validationf("no post loaded for editing")
	}
	if draft.Content == "" {
		c.mu.Unlock()
		return domain.Post{}, domain.Validationf("no content to update")
	}
	c.saving = true
	c.mu.Unlock()

	post, err := c.posts.Update(token, id, postclient.UpdateRequest{
		Prompt:      draft.Prompt,
		Platform:    draft.Platform,
		Account:     draft.Account,
		Tone:        draft.Tone,
		MaxLength:   draft.MaxLength,
		Content:     draft.Content,
		ScheduledAt: wireTime(draft.ScheduledAt),
		Status:      statusFor(draft.ScheduledAt),
	})

	c.mu.Lock()
	c.saving = false
	if err != nil {
		c.mu.Unlock()
		return domain.Post{}, classify(err)
	}
	c.editingID = 0
	c.mu.Unlock()
	return post, nil
}

// GenerateImage attaches a generated image URL to the draft.
func (c *Controller) GenerateImage(prompt string, size domain.ImageSize) error {
	token, ok := c.sessions.Token()
	if !ok {
		return domain.Validationf("not signed in")
	}
	if prompt == "" {
		return domain.Validationf("image prompt is required")
	}
	c.mu.Lock()
	if c.imaging {
		c.mu.Unlock()
		return domain.Validationf("image generation already in progress")
	}
	c.imaging = true
	c.mu.Unlock()

	url, err := c.posts.GenerateImage(token, prompt, size)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.imaging = false
	if err != nil {
		return classify(err)
	}
	c.draft.ImageURL = url
	return nil
}

// RefreshSuggestions replaces the ephemeral idea list.
func (c *Controller) RefreshSuggestions() error {
	token, ok := c.sessions.Token()
	if !ok {
		return domain.Validationf("not signed in")
	}
	c.mu.Lock()
	if c.suggesting {
		c.mu.Unlock()
		return domain.Validationf("suggestion refresh already in progress")
	}
	c.suggesting = true
	c.mu.Unlock()

	ideas, err := c.posts.Suggest(token, suggestionCount)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.suggesting = false
	if err != nil {
		return classify(err)
	}
	c.suggestions = ideas
	return nil
}

// LoadForEdit copies a saved post into the draft and enters editing mode; the
// next save-equivalent action becomes an update of that post. Derived fields
// are cleared rather than inherited stale.
func (c *Controller) LoadForEdit(p domain.Post) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tone := p.Tone
	if _, ok := domain.ParseTone(string(tone)); !ok {
		tone = c.draft.Tone
	}
	maxLen := p.MaxLength
	if maxLen <= 0 {
		maxLen = c.draft.MaxLength
	}
	if maxLen <= 0 {
		maxLen = defaultMaxLength
	}
	var scheduled *time.Time
	if p.ScheduledAt != nil && !p.ScheduledAt.IsZero() {
		t := p.ScheduledAt.Time
		scheduled = &t
	}
	c.draft = domain.Draft{
		Prompt:      p.AIPrompt,
		Platform:    p.Platform,
		Account:     p.Account,
		Tone:        tone,
		MaxLength:   maxLen,
		ScheduledAt: scheduled,
		Content:     p.Content,
	}
	c.editingID = p.ID
	c.generation++
}

// Reset drops the draft, suggestions, and editing state, and invalidates any
// response still in flight. Runs on logout.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = defaultDraft()
	c.suggestions = nil
	c.editingID = 0
	c.generation++
}

func statusFor(scheduledAt *time.Time) domain.PostStatus {
	if scheduledAt != nil && !scheduledAt.IsZero() {
		return domain.StatusScheduled
	}
	return domain.StatusDraft
}

func wireTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return domain.WireFormat(*t)
}

func classify(err error) error {
	var apiErr *postclient.APIError
	if errors.As(err, &apiErr) {
		return domain.FromStatus(apiErr.Status, apiErr.Message)
	}
	return domain.NetworkErr()
}
