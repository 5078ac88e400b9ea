package asset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketAssets         = []byte("assets")
	bucketCampaignAssets = []byte("campaign_assets")
)

// ErrNotFound is returned by Modify when the asset does not exist
var ErrNotFound = errors.New("asset not found")

// Store persists email assets
type Store interface {
	Create(ctx context.Context, a *Asset) error
	Get(ctx context.Context, id string) (*Asset, error)
	Update(ctx context.Context, a *Asset) error
	// Modify loads an asset, applies fn and saves it in one transaction.
	Modify(ctx context.Context, id string, fn func(a *Asset) error) (*Asset, error)
	ListByCampaign(ctx context.Context, campaignID, userID string) ([]*Asset, error)
	DeleteByCampaign(ctx context.Context, campaignID, userID string) (int, error)
	Delete(ctx context.Context, ids ...string) (int, error)
}

// BoltStore implements Store using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the database file and the asset buckets
func NewBoltStore(path string) (*BoltStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketAssets, bucketCampaignAssets} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// DB returns the underlying database so other stores can share it
func (s *BoltStore) DB() *bolt.DB {
	return s.db
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Create stores a new asset
func (s *BoltStore) Create(ctx context.Context, a *Asset) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.GeneratedAt.IsZero() {
		a.GeneratedAt = time.Now().UTC()
	}
	if a.Status == "" {
		a.Status = StatusGenerated
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid asset: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		assets := tx.Bucket(bucketAssets)
		if assets.Get([]byte(a.ID)) != nil {
			return fmt.Errorf("asset %s already exists", a.ID)
		}
		if err := putAsset(assets, a); err != nil {
			return err
		}
		index := tx.Bucket(bucketCampaignAssets)
		return index.Put(makeIndexKey(a.CampaignID, a.GeneratedAt, a.ID), []byte(a.ID))
	})
}

// Get retrieves an asset by ID, nil when missing
func (s *BoltStore) Get(ctx context.Context, id string) (*Asset, error) {
	var a *Asset

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketAssets).Get([]byte(id))
		if data == nil {
			return nil
		}
		a = &Asset{}
		return json.Unmarshal(data, a)
	})

	return a, err
}

// Update replaces an existing asset
func (s *BoltStore) Update(ctx context.Context, a *Asset) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid asset: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		assets := tx.Bucket(bucketAssets)
		if assets.Get([]byte(a.ID)) == nil {
			return ErrNotFound
		}
		return putAsset(assets, a)
	})
}

// Modify applies fn to the stored asset and saves the result
func (s *BoltStore) Modify(ctx context.Context, id string, fn func(a *Asset) error) (*Asset, error) {
	var result *Asset

	err := s.db.Update(func(tx *bolt.Tx) error {
		assets := tx.Bucket(bucketAssets)
		data := assets.Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}

		a := &Asset{}
		if err := json.Unmarshal(data, a); err != nil {
			return fmt.Errorf("failed to unmarshal asset: %w", err)
		}
		if err := fn(a); err != nil {
			return err
		}
		if err := a.Validate(); err != nil {
			return fmt.Errorf("invalid asset: %w", err)
		}
		if err := putAsset(assets, a); err != nil {
			return err
		}
		result = a
		return nil
	})

	return result, err
}

// ListByCampaign returns a campaign's assets in creation order.
// An empty userID matches every owner.
func (s *BoltStore) ListByCampaign(ctx context.Context, campaignID, userID string) ([]*Asset, error) {
	var result []*Asset

	err := s.db.View(func(tx *bolt.Tx) error {
		assets := tx.Bucket(bucketAssets)
		c := tx.Bucket(bucketCampaignAssets).Cursor()
		prefix := campaignPrefix(campaignID)

		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			data := assets.Get(v)
			if data == nil {
				continue
			}
			var a Asset
			if err := json.Unmarshal(data, &a); err != nil {
				return fmt.Errorf("failed to unmarshal asset %s: %w", v, err)
			}
			if userID != "" && a.UserID != userID {
				continue
			}
			result = append(result, &a)
		}
		return nil
	})

	return result, err
}

// DeleteByCampaign removes every asset of the campaign owned by userID.
// An empty userID removes the assets of every owner.
func (s *BoltStore) DeleteByCampaign(ctx context.Context, campaignID, userID string) (int, error) {
	var count int

	err := s.db.Update(func(tx *bolt.Tx) error {
		assets := tx.Bucket(bucketAssets)
		index := tx.Bucket(bucketCampaignAssets)
		c := index.Cursor()
		prefix := campaignPrefix(campaignID)

		var indexKeys, ids [][]byte
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if userID != "" {
				var a Asset
				if data := assets.Get(v); data != nil {
					if err := json.Unmarshal(data, &a); err == nil && a.UserID != userID {
						continue
					}
				}
			}
			indexKeys = append(indexKeys, append([]byte(nil), k...))
			ids = append(ids, append([]byte(nil), v...))
		}

		for i := range indexKeys {
			if err := index.Delete(indexKeys[i]); err != nil {
				return err
			}
			if assets.Get(ids[i]) != nil {
				if err := assets.Delete(ids[i]); err != nil {
					return err
				}
				count++
			}
		}
		return nil
	})

	return count, err
}

// Delete removes assets by ID
func (s *BoltStore) Delete(ctx context.Context, ids ...string) (int, error) {
	var count int

	err := s.db.Update(func(tx *bolt.Tx) error {
		assets := tx.Bucket(bucketAssets)
		index := tx.Bucket(bucketCampaignAssets)

		for _, id := range ids {
			data := assets.Get([]byte(id))
			if data == nil {
				continue // Already deleted
			}
			var a Asset
			if err := json.Unmarshal(data, &a); err != nil {
				return fmt.Errorf("failed to unmarshal asset: %w", err)
			}
			if err := index.Delete(makeIndexKey(a.CampaignID, a.GeneratedAt, a.ID)); err != nil {
				return err
			}
			if err := assets.Delete([]byte(id)); err != nil {
				return err
			}
			count++
		}
		return nil
	})

	return count, err
}

// Count returns the number of stored assets
func (s *BoltStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketAssets).Stats().KeyN
		return nil
	})
	return n, err
}

func putAsset(b *bolt.Bucket, a *Asset) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal asset: %w", err)
	}
	return b.Put([]byte(a.ID), data)
}

func campaignPrefix(campaignID string) []byte {
	return []byte(campaignID + "/")
}

// indexTimeFormat is fixed width so keys sort chronologically
const indexTimeFormat = "2006-01-02T15:04:05.000000000Z"

func makeIndexKey(campaignID string, t time.Time, id string) []byte {
	return []byte(campaignID + "/" + t.UTC().Format(indexTimeFormat) + "/" + id)
}
