package campaign

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Seed is the YAML layout of a directory import file
type Seed struct {
	Brands    []Brand        `yaml:"brands"`
	Campaigns []SeedCampaign `yaml:"campaigns"`
}

// SeedCampaign is a campaign with its audiences and captured content
type SeedCampaign struct {
	Campaign  `yaml:",inline"`
	Audiences []Audience    `yaml:"audiences"`
	Content   []SeedContent `yaml:"content"`
}

// SeedContent is a content record in a seed file
type SeedContent struct {
	ID         string    `yaml:"id"`
	AudienceID string    `yaml:"audience_id"`
	Channel    string    `yaml:"channel"`
	Payload    yaml.Node `yaml:"payload"`
}

// ImportStats counts imported records
type ImportStats struct {
	Brands    int
	Campaigns int
	Audiences int
	Content   int
}

// ImportFile imports a YAML seed file
func (s *Store) ImportFile(ctx context.Context, path string) (*ImportStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()
	return s.Import(ctx, f)
}

// Import reads a YAML seed and stores every record in it
func (s *Store) Import(ctx context.Context, r io.Reader) (*ImportStats, error) {
	var seed Seed
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}

	stats := &ImportStats{}

	for i := range seed.Brands {
		if err := s.PutBrand(ctx, &seed.Brands[i]); err != nil {
			return stats, fmt.Errorf("brand %d: %w", i, err)
		}
		stats.Brands++
	}

	for i := range seed.Campaigns {
		sc := &seed.Campaigns[i]
		if err := s.PutCampaign(ctx, &sc.Campaign); err != nil {
			return stats, fmt.Errorf("campaign %d: %w", i, err)
		}
		stats.Campaigns++

		for j := range sc.Audiences {
			a := &sc.Audiences[j]
			a.CampaignID = sc.ID
			if err := s.PutAudience(ctx, a); err != nil {
				return stats, fmt.Errorf("campaign %s audience %d: %w", sc.ID, j, err)
			}
			stats.Audiences++
		}

		for j, c := range sc.Content {
			rec, err := c.record(sc.ID)
			if err != nil {
				return stats, fmt.Errorf("campaign %s content %d: %w", sc.ID, j, err)
			}
			if err := s.PutContent(ctx, rec); err != nil {
				return stats, fmt.Errorf("campaign %s content %d: %w", sc.ID, j, err)
			}
			stats.Content++
		}
	}

	return stats, nil
}

func (c SeedContent) record(campaignID string) (*ContentRecord, error) {
	rec := &ContentRecord{
		ID:         c.ID,
		CampaignID: campaignID,
		AudienceID: c.AudienceID,
		Channel:    c.Channel,
	}

	if c.Payload.Kind == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrPayloadMismatch)
	}

	switch c.Channel {
	case ChannelEmail:
		rec.Email = &EmailContent{}
		if err := c.Payload.Decode(rec.Email); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPayloadMismatch, err)
		}
	case ChannelAd:
		rec.Ad = &AdContent{}
		if err := c.Payload.Decode(rec.Ad); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPayloadMismatch, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, c.Channel)
	}

	return rec, nil
}
