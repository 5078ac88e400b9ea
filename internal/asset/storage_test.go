package asset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

func setupTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "assets.db"))
	if err != nil {
		t.Fatalf("NewBoltStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestAsset(campaignID, userID string) *Asset {
	return &Asset{
		CampaignID:    campaignID,
		UserID:        userID,
		AudienceID:    "aud-1",
		EmailType:     EmailTypePromotional,
		Strategy:      StrategyConversion,
		VersionNumber: 1,
		Content: Content{
			SubjectLine: "Hello",
			Headline:    "Big news",
		},
		HTML:           "<!DOCTYPE html><html></html>",
		GenerationMode: ModeModelAuthored,
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := newTestAsset("camp-1", "user-1")
	if err := store.Create(ctx, a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if a.ID == "" {
		t.Error("Create() did not set ID")
	}
	if a.Status != StatusGenerated {
		t.Errorf("Create() status = %q, want %q", a.Status, StatusGenerated)
	}
	if a.GeneratedAt.IsZero() {
		t.Error("Create() did not set GeneratedAt")
	}

	got, err := store.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("Get() returned nil")
	}
	if got.Content != a.Content {
		t.Errorf("Get() content = %+v, want %+v", got.Content, a.Content)
	}

	missing, err := store.Get(ctx, "nope")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if missing != nil {
		t.Error("Get() should return nil for missing asset")
	}
}

func TestStore_CreateRejectsInvalid(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(a *Asset)
	}{
		{"version too low", func(a *Asset) { a.VersionNumber = 0 }},
		{"version too high", func(a *Asset) { a.VersionNumber = 5 }},
		{"missing audience", func(a *Asset) { a.AudienceID = "" }},
		{"subject too long", func(a *Asset) { a.Content.SubjectLine = strings.Repeat("x", MaxSubjectLine+1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAsset("camp-1", "user-1")
			tt.mutate(a)
			if err := store.Create(ctx, a); err == nil {
				t.Error("Create() should fail")
			}
		})
	}
}

func TestStore_ListAndDeleteByCampaign(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		a := newTestAsset("camp-1", "user-1")
		a.GeneratedAt = time.Now().Add(time.Duration(i) * time.Second)
		if err := store.Create(ctx, a); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if err := store.Create(ctx, newTestAsset("camp-1", "user-2")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Create(ctx, newTestAsset("camp-10", "user-1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	list, err := store.ListByCampaign(ctx, "camp-1", "user-1")
	if err != nil {
		t.Fatalf("ListByCampaign() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("ListByCampaign() = %d assets, want 3", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].GeneratedAt.Before(list[i-1].GeneratedAt) {
			t.Error("ListByCampaign() not in creation order")
		}
	}

	deleted, err := store.DeleteByCampaign(ctx, "camp-1", "user-1")
	if err != nil {
		t.Fatalf("DeleteByCampaign() error = %v", err)
	}
	if deleted != 3 {
		t.Errorf("DeleteByCampaign() = %d, want 3", deleted)
	}

	others, _ := store.ListByCampaign(ctx, "camp-1", "")
	if len(others) != 1 || others[0].UserID != "user-2" {
		t.Errorf("assets of other users should survive, got %d", len(others))
	}
	prefixed, _ := store.ListByCampaign(ctx, "camp-10", "")
	if len(prefixed) != 1 {
		t.Errorf("campaign with shared id prefix should survive, got %d", len(prefixed))
	}
}

func TestStore_ListOrderSubSecond(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC)
	times := []time.Time{
		base.Add(100 * time.Millisecond),
		base.Add(123 * time.Millisecond),
		base.Add(123456789 * time.Nanosecond),
		base.Add(time.Second),
	}
	var want []string
	for i, at := range times {
		a := newTestAsset("camp-1", "user-1")
		a.ID = fmt.Sprintf("asset-%d", i)
		a.GeneratedAt = at
		if err := store.Create(ctx, a); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		want = append(want, a.ID)
	}

	list, err := store.ListByCampaign(ctx, "camp-1", "")
	if err != nil {
		t.Fatalf("ListByCampaign() error = %v", err)
	}
	var got []string
	for _, a := range list {
		got = append(got, a.ID)
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("ListByCampaign() order = %v, want %v", got, want)
	}
}

func TestStore_ListCorruptRecord(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := newTestAsset("camp-1", "user-1")
	if err := store.Create(ctx, a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err := store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAssets).Put([]byte(a.ID), []byte("{not json"))
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if _, err := store.ListByCampaign(ctx, "camp-1", ""); err == nil {
		t.Error("ListByCampaign() should report a corrupt record")
	}
}

func TestStore_Modify(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := newTestAsset("camp-1", "user-1")
	if err := store.Create(ctx, a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.Modify(ctx, a.ID, func(a *Asset) error {
		a.ExportCount++
		return nil
	})
	if err != nil {
		t.Fatalf("Modify() error = %v", err)
	}
	if got.ExportCount != 1 {
		t.Errorf("ExportCount = %d, want 1", got.ExportCount)
	}

	sentinel := errors.New("stop")
	if _, err := store.Modify(ctx, a.ID, func(a *Asset) error {
		a.ExportCount = 100
		return sentinel
	}); !errors.Is(err, sentinel) {
		t.Errorf("Modify() error = %v, want sentinel", err)
	}
	stored, _ := store.Get(ctx, a.ID)
	if stored.ExportCount != 1 {
		t.Errorf("failed Modify() must not persist, ExportCount = %d", stored.ExportCount)
	}

	if _, err := store.Modify(ctx, "missing", func(a *Asset) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Errorf("Modify() error = %v, want ErrNotFound", err)
	}
}

func TestStore_Delete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := newTestAsset("camp-1", "user-1")
	b := newTestAsset("camp-1", "user-1")
	store.Create(ctx, a)
	store.Create(ctx, b)

	n, err := store.Delete(ctx, a.ID, "missing")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Delete() = %d, want 1", n)
	}

	list, _ := store.ListByCampaign(ctx, "camp-1", "")
	if len(list) != 1 || list[0].ID != b.ID {
		t.Errorf("ListByCampaign() after delete = %d assets", len(list))
	}
	if count, err := store.Count(ctx); err != nil || count != 1 {
		t.Errorf("Count() = %d, %v, want 1", count, err)
	}
}

func TestPushHistory_RingBuffer(t *testing.T) {
	a := newTestAsset("camp-1", "user-1")
	now := time.Now()

	for i := 0; i < 25; i++ {
		a.HTML = strings.Repeat("v", i+1)
		a.PushHistory(EditManual, "", now)
		if len(a.EditHistory) > HistoryLimit {
			t.Fatalf("history length = %d after %d edits", len(a.EditHistory), i+1)
		}
	}

	if len(a.EditHistory) != HistoryLimit {
		t.Fatalf("history length = %d, want %d", len(a.EditHistory), HistoryLimit)
	}
	// Oldest entries are evicted first: the remaining ones are edits 16..25
	if got := len(a.EditHistory[0].PreviousHTML); got != 16 {
		t.Errorf("oldest kept entry = edit %d, want 16", got)
	}
	last, _ := a.LastEdit()
	if len(last.PreviousHTML) != 25 {
		t.Errorf("latest entry = edit %d, want 25", len(last.PreviousHTML))
	}

	rec, ok := a.PopHistory()
	if !ok || len(rec.PreviousHTML) != 25 {
		t.Error("PopHistory() should return the latest entry")
	}
	if len(a.EditHistory) != HistoryLimit-1 {
		t.Errorf("history length after pop = %d", len(a.EditHistory))
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"", 5, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
