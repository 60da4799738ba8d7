package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

type Platform string

const (
	PlatformGeneral   Platform = "general"
	PlatformX         Platform = "x"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
)

type Tone string

const (
	ToneProfessional  Tone = "professional"
	ToneCasual        Tone = "casual"
	ToneHumorous      Tone = "humorous"
	ToneInspirational Tone = "inspirational"
	ToneEducational   Tone = "educational"
	TonePromotional   Tone = "promotional"
)

type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusScheduled PostStatus = "scheduled"
	StatusPublished PostStatus = "published"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Improvement selects how the backend rewrites existing content.
type Improvement string

const (
	ImproveEngagement Improvement = "engagement"
	ImproveClarity    Improvement = "clarity"
	ImproveBrevity    Improvement = "brevity"
	ImprovePositive   Improvement = "positive"
)

type ImageSize string

const (
	ImageSmall  ImageSize = "256x256"
	ImageMedium ImageSize = "512x512"
	ImageLarge  ImageSize = "1024x1024"
)

// Draft length bounds enforced before any generate call.
const (
	MinDraftLength = 50
	MaxDraftLength = 2000
)

func ParsePlatform(s string) (Platform, bool) {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case PlatformGeneral, PlatformX, PlatformFacebook, PlatformInstagram, PlatformLinkedIn:
		return Platform(strings.ToLower(strings.TrimSpace(s))), true
	default:
		return "", false
	}
}

func ParseTone(s string) (Tone, bool) {
	switch Tone(strings.ToLower(strings.TrimSpace(s))) {
	case ToneProfessional, ToneCasual, ToneHumorous, ToneInspirational, ToneEducational, TonePromotional:
		return Tone(strings.ToLower(strings.TrimSpace(s))), true
	default:
		return "", false
	}
}

func ParseStatus(s string) (PostStatus, bool) {
	switch PostStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusDraft, StatusScheduled, StatusPublished:
		return PostStatus(strings.ToLower(strings.TrimSpace(s))), true
	default:
		return "", false
	}
}

func ParseSentiment(s string) (Sentiment, bool) {
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return Sentiment(strings.ToLower(strings.TrimSpace(s))), true
	default:
		return "", false
	}
}

func ParseImprovement(s string) (Improvement, bool) {
	switch Improvement(strings.ToLower(strings.TrimSpace(s))) {
	case ImproveEngagement, ImproveClarity, ImproveBrevity, ImprovePositive:
		return Improvement(strings.ToLower(strings.TrimSpace(s))), true
	default:
		return "", false
	}
}

func ParseImageSize(s string) (ImageSize, bool) {
	switch ImageSize(strings.TrimSpace(s)) {
	case ImageSmall, ImageMedium, ImageLarge:
		return ImageSize(strings.TrimSpace(s)), true
	default:
		return "", false
	}
}

// Session is the credential pair identifying the authenticated user.
// UserID is kept as the string the backend issued it in, matching how it
// is addressed in /api/users/{id}.
type Session struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// User is backend-owned and read-only from this side.
type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email,omitempty"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
}

// Draft is the in-progress post being composed. Content stays empty until a
// generate call succeeds; Hashtags and Sentiment are derived from Content and
// are cleared whenever Content is replaced wholesale.
type Draft struct {
	Prompt      string     `json:"prompt"`
	Platform    Platform   `json:"platform"`
	Account     string     `json:"platform_account"`
	Tone        Tone       `json:"tone"`
	MaxLength   int        `json:"max_length"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Content     string     `json:"content"`
	Hashtags    []string   `json:"hashtags,omitempty"`
	Sentiment   Sentiment  `json:"sentiment,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
}

// OverLength reports whether the generated content exceeds the configured
// maximum. Counted in runes, not bytes.
func (d Draft) OverLength() bool {
	return d.MaxLength > 0 && utf8.RuneCountInString(d.Content) > d.MaxLength
}

// Post is the persisted, backend-owned record. The client holds these only as
// an ephemeral cache that is fully replaced on every refresh.
type Post struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Content     string     `json:"content"`
	Platform    Platform   `json:"platform"`
	Account     string     `json:"platform_account"`
	Tone        Tone       `json:"tone,omitempty"`
	MaxLength   int        `json:"max_length,omitempty"`
	Status      PostStatus `json:"status"`
	ScheduledAt *Timestamp `json:"scheduled_at"`
	PublishedAt *Timestamp `json:"published_at"`
	CreatedAt   *Timestamp `json:"created_at"`
	UpdatedAt   *Timestamp `json:"updated_at"`
	AIGenerated bool       `json:"ai_generated"`
	AIPrompt    string     `json:"ai_prompt"`
	// MediaURLs is a JSON-encoded list the backend owns; carried opaquely.
	MediaURLs string `json:"media_urls,omitempty"`
}

// ValidEmail checks the minimal local@domain.tld shape: exactly one @, at
// least one dot in the domain part, no whitespace anywhere.
func ValidEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	at := strings.Index(email, "@")
	if at <= 0 || at != strings.LastIndex(email, "@") {
		return false
	}
	local, dom := email[:at], email[at+1:]
	if local == "" || dom == "" {
		return false
	}
	dot := strings.Index(dom, ".")
	return dot > 0 && dot < len(dom)-1
}
