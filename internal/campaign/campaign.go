package campaign

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/foxzi/inkwell/internal/asset"
)

// Channel types
const (
	ChannelEmail = "email"
	ChannelAd    = "ad"
)

// Channel is a delivery channel of a campaign
type Channel struct {
	Type    string `json:"type" yaml:"type"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// Campaign is a marketing campaign owned by one user
type Campaign struct {
	ID          string          `json:"id" yaml:"id"`
	UserID      string          `json:"user_id" yaml:"user_id"`
	BrandID     string          `json:"brand_id" yaml:"brand_id"`
	Name        string          `json:"name" yaml:"name"`
	Objective   string          `json:"objective" yaml:"objective"`
	KeyMessages []string        `json:"key_messages,omitempty" yaml:"key_messages"`
	CTA         string          `json:"cta,omitempty" yaml:"cta"`
	CTAURL      string          `json:"cta_url,omitempty" yaml:"cta_url"`
	Urgency     string          `json:"urgency,omitempty" yaml:"urgency"`
	EmailType   asset.EmailType `json:"email_type,omitempty" yaml:"email_type"`
	Channels    []Channel       `json:"channels" yaml:"channels"`
}

// HasEnabledChannel reports whether a channel of type t is enabled
func (c *Campaign) HasEnabledChannel(t string) bool {
	for _, ch := range c.Channels {
		if ch.Type == t && ch.Enabled {
			return true
		}
	}
	return false
}

// Brand is the brand guide used for colors and voice
type Brand struct {
	ID             string `json:"id" yaml:"id"`
	UserID         string `json:"user_id" yaml:"user_id"`
	Name           string `json:"name" yaml:"name"`
	PrimaryColor   string `json:"primary_color,omitempty" yaml:"primary_color"`
	SecondaryColor string `json:"secondary_color,omitempty" yaml:"secondary_color"`
	AccentColor    string `json:"accent_color,omitempty" yaml:"accent_color"`
	Voice          string `json:"voice,omitempty" yaml:"voice"`
	CoreMessage    string `json:"core_message,omitempty" yaml:"core_message"`
	LogoURL        string `json:"logo_url,omitempty" yaml:"logo_url"`
	WebsiteURL     string `json:"website_url,omitempty" yaml:"website_url"`
	Address        string `json:"address,omitempty" yaml:"address"`
	UnsubscribeURL string `json:"unsubscribe_url,omitempty" yaml:"unsubscribe_url"`
}

// Snapshot captures the brand data stored with an asset
func (b *Brand) Snapshot() asset.BrandSnapshot {
	return asset.BrandSnapshot{
		Name:           b.Name,
		PrimaryColor:   b.PrimaryColor,
		SecondaryColor: b.SecondaryColor,
		AccentColor:    b.AccentColor,
		Voice:          b.Voice,
		CoreMessage:    b.CoreMessage,
		LogoURL:        b.LogoURL,
		WebsiteURL:     b.WebsiteURL,
		Address:        b.Address,
	}
}

// Audience is a segment of a campaign
type Audience struct {
	ID           string   `json:"id" yaml:"id"`
	CampaignID   string   `json:"campaign_id" yaml:"campaign_id"`
	Name         string   `json:"name" yaml:"name"`
	Enabled      bool     `json:"enabled" yaml:"enabled"`
	Channels     []string `json:"channels,omitempty" yaml:"channels"`
	Demographics string   `json:"demographics,omitempty" yaml:"demographics"`
	PainPoints   []string `json:"pain_points,omitempty" yaml:"pain_points"`
	Motivators   []string `json:"motivators,omitempty" yaml:"motivators"`
	Tone         string   `json:"tone,omitempty" yaml:"tone"`
	Instructions string   `json:"instructions,omitempty" yaml:"instructions"`
}

// SupportsChannel reports whether the audience can receive channel t.
// An audience without a channel list accepts every channel.
func (a *Audience) SupportsChannel(t string) bool {
	if len(a.Channels) == 0 {
		return true
	}
	for _, ch := range a.Channels {
		if ch == t {
			return true
		}
	}
	return false
}

// Snapshot captures the audience data stored with an asset
func (a *Audience) Snapshot() asset.AudienceSnapshot {
	return asset.AudienceSnapshot{
		Name:         a.Name,
		Demographics: a.Demographics,
		PainPoints:   a.PainPoints,
		Motivators:   a.Motivators,
		Tone:         a.Tone,
	}
}

// EmailContent is previously captured email copy
type EmailContent struct {
	asset.Content `yaml:",inline"`
	Strategy      asset.Strategy `json:"strategy,omitempty" yaml:"strategy"`
}

// AdContent is previously captured ad copy
type AdContent struct {
	Platform    string `json:"platform,omitempty" yaml:"platform"`
	Headline    string `json:"headline" yaml:"headline"`
	Description string `json:"description,omitempty" yaml:"description"`
	CTAText     string `json:"cta_text,omitempty" yaml:"cta_text"`
}

var (
	ErrUnknownChannel  = errors.New("unknown content channel")
	ErrPayloadMismatch = errors.New("content payload does not match channel")
)

// ContentRecord is per-channel content produced for a campaign.
// Exactly one of Email or Ad is set, matching Channel.
type ContentRecord struct {
	ID         string
	CampaignID string
	AudienceID string
	Channel    string
	Email      *EmailContent
	Ad         *AdContent
	CreatedAt  time.Time
}

type contentRecordJSON struct {
	ID         string          `json:"id"`
	CampaignID string          `json:"campaign_id"`
	AudienceID string          `json:"audience_id"`
	Channel    string          `json:"channel"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Check verifies that the payload matches the channel
func (r *ContentRecord) Check() error {
	switch r.Channel {
	case ChannelEmail:
		if r.Email == nil || r.Ad != nil {
			return fmt.Errorf("%w: %s", ErrPayloadMismatch, r.Channel)
		}
	case ChannelAd:
		if r.Ad == nil || r.Email != nil {
			return fmt.Errorf("%w: %s", ErrPayloadMismatch, r.Channel)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChannel, r.Channel)
	}
	return nil
}

// MarshalJSON encodes the record with a channel discriminator
func (r ContentRecord) MarshalJSON() ([]byte, error) {
	if err := r.Check(); err != nil {
		return nil, err
	}

	var payload any = r.Email
	if r.Channel == ChannelAd {
		payload = r.Ad
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(contentRecordJSON{
		ID:         r.ID,
		CampaignID: r.CampaignID,
		AudienceID: r.AudienceID,
		Channel:    r.Channel,
		Payload:    raw,
		CreatedAt:  r.CreatedAt,
	})
}

// UnmarshalJSON resolves the payload into the type named by channel
func (r *ContentRecord) UnmarshalJSON(data []byte) error {
	var wire contentRecordJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	rec := ContentRecord{
		ID:         wire.ID,
		CampaignID: wire.CampaignID,
		AudienceID: wire.AudienceID,
		Channel:    wire.Channel,
		CreatedAt:  wire.CreatedAt,
	}

	if len(wire.Payload) == 0 || string(wire.Payload) == "null" {
		return fmt.Errorf("%w: empty payload", ErrPayloadMismatch)
	}

	switch wire.Channel {
	case ChannelEmail:
		rec.Email = &EmailContent{}
		if err := decodeStrict(wire.Payload, rec.Email); err != nil {
			return fmt.Errorf("%w: %v", ErrPayloadMismatch, err)
		}
	case ChannelAd:
		rec.Ad = &AdContent{}
		if err := decodeStrict(wire.Payload, rec.Ad); err != nil {
			return fmt.Errorf("%w: %v", ErrPayloadMismatch, err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChannel, wire.Channel)
	}

	*r = rec
	return nil
}

// Directory is the read-only campaign lookup consumed by the pipeline.
// Lookups return nil without an error when the record does not exist.
type Directory interface {
	GetCampaign(ctx context.Context, id string) (*Campaign, error)
	GetBrand(ctx context.Context, id string) (*Brand, error)
	ListAudiences(ctx context.Context, campaignID string) ([]*Audience, error)
	ListContent(ctx context.Context, campaignID, channel string) ([]*ContentRecord, error)
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
