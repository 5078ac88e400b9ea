package asset

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// Status is the lifecycle state of an asset
type Status string

const (
	StatusPending   Status = "pending"
	StatusGenerated Status = "generated"
	StatusEdited    Status = "edited"
	StatusApproved  Status = "approved"
)

// Strategy is the messaging angle of an asset
type Strategy string

const (
	StrategyConversion Strategy = "conversion"
	StrategyAwareness  Strategy = "awareness"
	StrategyUrgency    Strategy = "urgency"
	StrategyEmotional  Strategy = "emotional"
)

// Valid reports whether s is a known strategy
func (s Strategy) Valid() bool {
	switch s {
	case StrategyConversion, StrategyAwareness, StrategyUrgency, StrategyEmotional:
		return true
	}
	return false
}

// EmailType classifies the purpose of an email
type EmailType string

const (
	EmailTypePromotional  EmailType = "promotional"
	EmailTypeNewsletter   EmailType = "newsletter"
	EmailTypeWelcome      EmailType = "welcome"
	EmailTypeAnnouncement EmailType = "announcement"
	EmailTypeReEngagement EmailType = "re_engagement"
)

// Valid reports whether t is a known email type
func (t EmailType) Valid() bool {
	switch t {
	case EmailTypePromotional, EmailTypeNewsletter, EmailTypeWelcome, EmailTypeAnnouncement, EmailTypeReEngagement:
		return true
	}
	return false
}

// GenerationMode tells how the document was produced
type GenerationMode string

const (
	ModeModelAuthored GenerationMode = "model_authored"
	ModeTemplate      GenerationMode = "template"
)

// Valid reports whether m is a known generation mode
func (m GenerationMode) Valid() bool {
	return m == ModeModelAuthored || m == ModeTemplate
}

// EditType tells who produced an edit
type EditType string

const (
	EditManual     EditType = "manual"
	EditAIAssisted EditType = "ai_assisted"
)

// Valid reports whether t is a known edit type
func (t EditType) Valid() bool {
	return t == EditManual || t == EditAIAssisted
}

// Content field caps, counted in runes
const (
	MaxSubjectLine = 150
	MaxPreheader   = 200
	MaxHeadline    = 200
	MaxBodyCopy    = 5000
	MaxCTAText     = 50

	MinVersion = 1
	MaxVersion = 4
)

// Content holds the structured fields of an email
type Content struct {
	SubjectLine string `json:"subject_line" yaml:"subject_line"`
	Preheader   string `json:"preheader" yaml:"preheader"`
	Headline    string `json:"headline" yaml:"headline"`
	BodyCopy    string `json:"body_copy" yaml:"body_copy"`
	CTAText     string `json:"cta_text" yaml:"cta_text"`
}

// Truncated returns a copy with every field cut to its cap
func (c Content) Truncated() Content {
	return Content{
		SubjectLine: Truncate(c.SubjectLine, MaxSubjectLine),
		Preheader:   Truncate(c.Preheader, MaxPreheader),
		Headline:    Truncate(c.Headline, MaxHeadline),
		BodyCopy:    Truncate(c.BodyCopy, MaxBodyCopy),
		CTAText:     Truncate(c.CTAText, MaxCTAText),
	}
}

// Validate checks the field caps
func (c Content) Validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"subject_line", c.SubjectLine, MaxSubjectLine},
		{"preheader", c.Preheader, MaxPreheader},
		{"headline", c.Headline, MaxHeadline},
		{"body_copy", c.BodyCopy, MaxBodyCopy},
		{"cta_text", c.CTAText, MaxCTAText},
	}
	for _, f := range fields {
		if n := utf8.RuneCountInString(f.value); n > f.max {
			return fmt.Errorf("%s is %d characters, max %d", f.name, n, f.max)
		}
	}
	return nil
}

// Truncate cuts s to at most max runes
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// BrandSnapshot is the brand data captured at generation time
type BrandSnapshot struct {
	Name           string `json:"name"`
	PrimaryColor   string `json:"primary_color,omitempty"`
	SecondaryColor string `json:"secondary_color,omitempty"`
	AccentColor    string `json:"accent_color,omitempty"`
	Voice          string `json:"voice,omitempty"`
	CoreMessage    string `json:"core_message,omitempty"`
	LogoURL        string `json:"logo_url,omitempty"`
	WebsiteURL     string `json:"website_url,omitempty"`
	Address        string `json:"address,omitempty"`
}

// AudienceSnapshot is the audience data captured at generation time
type AudienceSnapshot struct {
	Name         string   `json:"name"`
	Demographics string   `json:"demographics,omitempty"`
	PainPoints   []string `json:"pain_points,omitempty"`
	Motivators   []string `json:"motivators,omitempty"`
	Tone         string   `json:"tone,omitempty"`
}

// EditRecord is an immutable snapshot of the document before an edit
type EditRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	EditType     EditType  `json:"edit_type"`
	Prompt       string    `json:"prompt,omitempty"`
	PreviousHTML string    `json:"previous_html"`
}

// Asset is one generated email document for one audience and strategy
type Asset struct {
	ID         string `json:"id"`
	CampaignID string `json:"campaign_id"`
	UserID     string `json:"user_id"`
	AudienceID string `json:"audience_id"`

	EmailType     EmailType `json:"email_type"`
	Strategy      Strategy  `json:"strategy"`
	VersionNumber int       `json:"version_number"`

	Content Content `json:"content"`

	HTML        string `json:"html"`
	InlinedHTML string `json:"inlined_html"`
	LiquidHTML  string `json:"liquid_html"`
	PlainText   string `json:"plain_text"`

	Status Status `json:"status"`

	BrandSnapshot    BrandSnapshot    `json:"brand_snapshot"`
	AudienceSnapshot AudienceSnapshot `json:"audience_snapshot"`

	TemplateID          string         `json:"template_id,omitempty"`
	GenerationMode      GenerationMode `json:"generation_mode"`
	GeneratedAt         time.Time      `json:"generated_at"`
	LastEditedAt        *time.Time     `json:"last_edited_at,omitempty"`
	ExportCount         int            `json:"export_count"`
	TokensUsed          *int           `json:"tokens_used,omitempty"`
	ExtractionConfident bool           `json:"extraction_confident"`
	EditHistory         []EditRecord   `json:"edit_history"`
}

var (
	ErrMissingOwner   = errors.New("asset must belong to a campaign, user and audience")
	ErrVersionRange   = errors.New("version number out of range")
	ErrHistoryTooLong = errors.New("edit history exceeds capacity")
)

// Validate enforces the persisted-asset invariants
func (a *Asset) Validate() error {
	if a.CampaignID == "" || a.UserID == "" || a.AudienceID == "" {
		return ErrMissingOwner
	}
	if a.VersionNumber < MinVersion || a.VersionNumber > MaxVersion {
		return fmt.Errorf("%w: %d", ErrVersionRange, a.VersionNumber)
	}
	if len(a.EditHistory) > HistoryLimit {
		return fmt.Errorf("%w: %d entries", ErrHistoryTooLong, len(a.EditHistory))
	}
	return a.Content.Validate()
}

// ClampVersion maps any integer into the valid version range
func ClampVersion(v int) int {
	if v < MinVersion {
		return MinVersion
	}
	if v > MaxVersion {
		return MaxVersion
	}
	return v
}
