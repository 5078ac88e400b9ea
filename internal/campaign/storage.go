package campaign

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketCampaigns = []byte("campaigns")
	bucketBrands    = []byte("brands")
	bucketAudiences = []byte("audiences")
	bucketContent   = []byte("content")
)

// AssetPurger removes the assets of a campaign
type AssetPurger interface {
	DeleteByCampaign(ctx context.Context, campaignID, userID string) (int, error)
}

// Store implements Directory on top of BoltDB
type Store struct {
	db *bolt.DB
}

// NewStore creates a directory store sharing db
func NewStore(db *bolt.DB) (*Store, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketCampaigns, bucketBrands, bucketAudiences, bucketContent} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// GetCampaign returns a campaign by ID
func (s *Store) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	var c *Campaign
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketCampaigns).Get([]byte(id))
		if data == nil {
			return nil
		}
		c = &Campaign{}
		return json.Unmarshal(data, c)
	})
	return c, err
}

// ListCampaigns returns the campaigns of a user, or all when userID is empty
func (s *Store) ListCampaigns(ctx context.Context, userID string) ([]*Campaign, error) {
	var result []*Campaign
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCampaigns).ForEach(func(k, v []byte) error {
			var c Campaign
			if err := json.Unmarshal(v, &c); err != nil {
				return nil // Skip invalid entries
			}
			if userID == "" || c.UserID == userID {
				result = append(result, &c)
			}
			return nil
		})
	})
	return result, err
}

// GetBrand returns a brand by ID
func (s *Store) GetBrand(ctx context.Context, id string) (*Brand, error) {
	var b *Brand
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketBrands).Get([]byte(id))
		if data == nil {
			return nil
		}
		b = &Brand{}
		return json.Unmarshal(data, b)
	})
	return b, err
}

// ListAudiences returns the audiences of a campaign ordered by ID
func (s *Store) ListAudiences(ctx context.Context, campaignID string) ([]*Audience, error) {
	var result []*Audience
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketAudiences).Cursor()
		prefix := childPrefix(campaignID)
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var a Audience
			if err := json.Unmarshal(v, &a); err != nil {
				return fmt.Errorf("failed to unmarshal audience: %w", err)
			}
			result = append(result, &a)
		}
		return nil
	})
	return result, err
}

// ListContent returns the content records of a campaign for a channel.
// An empty channel returns every record.
func (s *Store) ListContent(ctx context.Context, campaignID, channel string) ([]*ContentRecord, error) {
	var result []*ContentRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketContent).Cursor()
		prefix := childPrefix(campaignID)
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec ContentRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode content %s: %w", k, err)
			}
			if channel == "" || rec.Channel == channel {
				result = append(result, &rec)
			}
		}
		return nil
	})
	return result, err
}

// PutCampaign creates or replaces a campaign
func (s *Store) PutCampaign(ctx context.Context, c *Campaign) error {
	if c.ID == "" || c.UserID == "" {
		return errors.New("campaign id and user_id are required")
	}
	return s.put(bucketCampaigns, []byte(c.ID), c)
}

// PutBrand creates or replaces a brand
func (s *Store) PutBrand(ctx context.Context, b *Brand) error {
	if b.ID == "" {
		return errors.New("brand id is required")
	}
	return s.put(bucketBrands, []byte(b.ID), b)
}

// PutAudience creates or replaces an audience
func (s *Store) PutAudience(ctx context.Context, a *Audience) error {
	if a.ID == "" || a.CampaignID == "" {
		return errors.New("audience id and campaign_id are required")
	}
	return s.put(bucketAudiences, childKey(a.CampaignID, a.ID), a)
}

// PutContent stores a content record, checking that it is well typed
func (s *Store) PutContent(ctx context.Context, r *ContentRecord) error {
	if r.CampaignID == "" {
		return errors.New("content campaign_id is required")
	}
	if err := r.Check(); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return s.put(bucketContent, childKey(r.CampaignID, r.ID), r)
}

// RemoveCampaign deletes a campaign with its audiences and content,
// then purges its assets. It returns the number of purged assets.
func (s *Store) RemoveCampaign(ctx context.Context, id string, assets AssetPurger) (int, error) {
	c, err := s.GetCampaign(ctx, id)
	if err != nil {
		return 0, err
	}
	if c == nil {
		return 0, fmt.Errorf("campaign %s not found", id)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketCampaigns).Delete([]byte(id)); err != nil {
			return err
		}
		for _, name := range [][]byte{bucketAudiences, bucketContent} {
			if err := deletePrefix(tx.Bucket(name), childPrefix(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to remove campaign: %w", err)
	}

	if assets == nil {
		return 0, nil
	}
	return assets.DeleteByCampaign(ctx, id, c.UserID)
}

func (s *Store) put(bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(key, data)
	})
}

func deletePrefix(b *bolt.Bucket, prefix []byte) error {
	var keys [][]byte
	c := b.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func childPrefix(campaignID string) []byte {
	return []byte(campaignID + "/")
}

func childKey(campaignID, id string) []byte {
	return []byte(campaignID + "/" + id)
}
