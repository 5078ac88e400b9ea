package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	bolt "go.etcd.io/bbolt"

	"github.com/foxzi/inkwell/internal/asset"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := bolt.Open(filepath.Join(t.TempDir(), "test.db"), 0600, nil)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestContentRecord_JSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		check   func(t *testing.T, r *ContentRecord)
	}{
		{
			name:  "email",
			input: `{"id":"c1","campaign_id":"camp","channel":"email","payload":{"subject_line":"Hi","headline":"Sale","strategy":"conversion"}}`,
			check: func(t *testing.T, r *ContentRecord) {
				if r.Email == nil || r.Ad != nil {
					t.Fatal("expected email payload only")
				}
				if r.Email.SubjectLine != "Hi" || r.Email.Strategy != asset.StrategyConversion {
					t.Errorf("unexpected email payload: %+v", r.Email)
				}
			},
		},
		{
			name:  "ad",
			input: `{"id":"c2","campaign_id":"camp","channel":"ad","payload":{"platform":"meta","headline":"Buy"}}`,
			check: func(t *testing.T, r *ContentRecord) {
				if r.Ad == nil || r.Email != nil {
					t.Fatal("expected ad payload only")
				}
				if r.Ad.Platform != "meta" {
					t.Errorf("Platform = %q", r.Ad.Platform)
				}
			},
		},
		{
			name:    "unknown channel",
			input:   `{"id":"c3","channel":"sms","payload":{"text":"hi"}}`,
			wantErr: ErrUnknownChannel,
		},
		{
			name:    "ad payload on email channel",
			input:   `{"id":"c4","channel":"email","payload":{"platform":"meta","description":"x"}}`,
			wantErr: ErrPayloadMismatch,
		},
		{
			name:    "missing payload",
			input:   `{"id":"c5","channel":"email"}`,
			wantErr: ErrPayloadMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r ContentRecord
			err := json.Unmarshal([]byte(tt.input), &r)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Unmarshal() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			tt.check(t, &r)

			data, err := json.Marshal(r)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			var again ContentRecord
			if err := json.Unmarshal(data, &again); err != nil {
				t.Fatalf("Unmarshal() of marshaled record error = %v", err)
			}
			if again.Channel != r.Channel {
				t.Errorf("channel = %q, want %q", again.Channel, r.Channel)
			}
		})
	}
}

func TestContentRecord_MarshalRejectsMismatch(t *testing.T) {
	r := ContentRecord{Channel: ChannelEmail, Ad: &AdContent{Headline: "x"}}
	if _, err := json.Marshal(r); err == nil {
		t.Error("Marshal() should fail when payload does not match channel")
	}
}

const seedYAML = `
brands:
  - id: brand-1
    user_id: user-1
    name: Acme
    primary_color: "#ffcc00"
campaigns:
  - id: camp-1
    user_id: user-1
    brand_id: brand-1
    name: Spring sale
    objective: Sell more
    channels:
      - type: email
        enabled: true
    audiences:
      - id: aud-a
        name: VIP Buyers
        enabled: true
      - id: aud-b
        name: New Visitors
        enabled: false
    content:
      - id: content-1
        audience_id: aud-a
        channel: email
        payload:
          subject_line: Spring is here
          headline: Save 20%
          body_copy: "First.\n\nSecond."
          cta_text: Shop now
      - id: content-2
        channel: ad
        payload:
          headline: Spring ad
`

func TestStore_Import(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	stats, err := store.Import(ctx, strings.NewReader(seedYAML))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if stats.Brands != 1 || stats.Campaigns != 1 || stats.Audiences != 2 || stats.Content != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	c, err := store.GetCampaign(ctx, "camp-1")
	if err != nil || c == nil {
		t.Fatalf("GetCampaign() = %v, %v", c, err)
	}
	if !c.HasEnabledChannel(ChannelEmail) {
		t.Error("campaign should have email channel enabled")
	}

	b, _ := store.GetBrand(ctx, "brand-1")
	if b == nil || b.PrimaryColor != "#ffcc00" {
		t.Errorf("GetBrand() = %+v", b)
	}

	audiences, _ := store.ListAudiences(ctx, "camp-1")
	if len(audiences) != 2 || audiences[0].CampaignID != "camp-1" {
		t.Fatalf("ListAudiences() = %d", len(audiences))
	}

	emails, _ := store.ListContent(ctx, "camp-1", ChannelEmail)
	if len(emails) != 1 {
		t.Fatalf("ListContent(email) = %d, want 1", len(emails))
	}
	if emails[0].Email.Headline != "Save 20%" || emails[0].Email.BodyCopy != "First.\n\nSecond." {
		t.Errorf("unexpected email content: %+v", emails[0].Email)
	}

	all, _ := store.ListContent(ctx, "camp-1", "")
	if len(all) != 2 {
		t.Errorf("ListContent(all) = %d, want 2", len(all))
	}

	missing, err := store.GetCampaign(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetCampaign(missing) = %v, %v", missing, err)
	}
}

func TestStore_ImportRejectsUnknownChannel(t *testing.T) {
	store := setupTestStore(t)
	seed := `
campaigns:
  - id: camp-1
    user_id: user-1
    content:
      - channel: fax
        payload:
          text: hi
`
	_, err := store.Import(context.Background(), strings.NewReader(seed))
	if !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("Import() error = %v, want ErrUnknownChannel", err)
	}
}

type fakePurger struct {
	campaignID string
	userID     string
}

func (f *fakePurger) DeleteByCampaign(ctx context.Context, campaignID, userID string) (int, error) {
	f.campaignID = campaignID
	f.userID = userID
	return 3, nil
}

func TestStore_RemoveCampaign(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.Import(ctx, strings.NewReader(seedYAML)); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	p := &fakePurger{}
	n, err := store.RemoveCampaign(ctx, "camp-1", p)
	if err != nil {
		t.Fatalf("RemoveCampaign() error = %v", err)
	}
	if n != 3 || p.campaignID != "camp-1" || p.userID != "user-1" {
		t.Errorf("purger called with %+v, n = %d", p, n)
	}

	if c, _ := store.GetCampaign(ctx, "camp-1"); c != nil {
		t.Error("campaign should be removed")
	}
	if a, _ := store.ListAudiences(ctx, "camp-1"); len(a) != 0 {
		t.Errorf("audiences left: %d", len(a))
	}
	if c, _ := store.ListContent(ctx, "camp-1", ""); len(c) != 0 {
		t.Errorf("content left: %d", len(c))
	}

	if _, err := store.RemoveCampaign(ctx, "camp-1", p); err == nil {
		t.Error("RemoveCampaign() of missing campaign should fail")
	}
}

func TestAudience_SupportsChannel(t *testing.T) {
	tests := []struct {
		channels []string
		want     bool
	}{
		{nil, true},
		{[]string{"email"}, true},
		{[]string{"ad"}, false},
	}
	for _, tt := range tests {
		a := Audience{Channels: tt.channels}
		if got := a.SupportsChannel(ChannelEmail); got != tt.want {
			t.Errorf("SupportsChannel(%v) = %v, want %v", tt.channels, got, tt.want)
		}
	}
}
