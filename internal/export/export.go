package export

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/foxzi/inkwell/internal/asset"
	"github.com/foxzi/inkwell/internal/metrics"
)

// Format is an export document type
type Format string

const (
	FormatHTML      Format = "html"
	FormatLiquid    Format = "liquid"
	FormatPlainText Format = "plain_text"
	FormatJSON      Format = "json"
)

// Organization is the folder layout of a bulk archive
type Organization string

const (
	OrganizeFlat       Organization = "flat"
	OrganizeByAudience Organization = "by_audience"
	OrganizeByType     Organization = "by_type"
)

var (
	ErrUnsupportedFormat       = errors.New("unsupported export format")
	ErrUnsupportedOrganization = errors.New("unsupported archive organization")
	ErrForbidden               = errors.New("asset does not belong to user")
	ErrNoAssets                = errors.New("no assets to export")
)

type formatInfo struct {
	ext  string
	mime string
}

var formats = map[Format]formatInfo{
	FormatHTML:      {"html", "text/html"},
	FormatLiquid:    {"liquid", "text/x-liquid"},
	FormatPlainText: {"txt", "text/plain"},
	FormatJSON:      {"json", "application/json"},
}

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if _, ok := formats[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
	return f, nil
}

// ParseOrganization validates an organization name. Empty means flat.
func ParseOrganization(s string) (Organization, error) {
	switch o := Organization(s); o {
	case "":
		return OrganizeFlat, nil
	case OrganizeFlat, OrganizeByAudience, OrganizeByType:
		return o, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedOrganization, s)
}

// File is one exported document
type File struct {
	Content  []byte
	Filename string
	MimeType string
}

// Document is the JSON export of an asset
type Document struct {
	ID             string               `json:"id"`
	CampaignID     string               `json:"campaign_id"`
	AudienceID     string               `json:"audience_id"`
	AudienceName   string               `json:"audience_name"`
	EmailType      asset.EmailType      `json:"email_type"`
	Strategy       asset.Strategy       `json:"strategy"`
	VersionNumber  int                  `json:"version_number"`
	Status         asset.Status         `json:"status"`
	GenerationMode asset.GenerationMode `json:"generation_mode"`
	TemplateID     string               `json:"template_id,omitempty"`
	GeneratedAt    time.Time            `json:"generated_at"`
	LastEditedAt   *time.Time           `json:"last_edited_at,omitempty"`
	ExportCount    int                  `json:"export_count"`
	Content        asset.Content        `json:"content"`
	HTML           string               `json:"html"`
	InlinedHTML    string               `json:"inlined_html"`
	LiquidHTML     string               `json:"liquid_html"`
	PlainText      string               `json:"plain_text"`
}

// Formatter renders assets into downloadable files
type Formatter struct {
	store  asset.Store
	logger *slog.Logger
}

// NewFormatter creates an export formatter
func NewFormatter(store asset.Store, logger *slog.Logger) *Formatter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Formatter{
		store:  store,
		logger: logger.With("component", "export"),
	}
}

// Export renders one asset and counts the export
func (f *Formatter) Export(ctx context.Context, userID, id string, format Format) (*File, error) {
	if _, ok := formats[format]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	a, err := f.count(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	file, err := Render(a, format)
	if err != nil {
		return nil, err
	}

	metrics.AddExports(string(format), "single", 1)
	f.logger.Info("asset exported", "asset_id", id, "format", format, "export_count", a.ExportCount)
	return file, nil
}

// count increments the export counter of an owned asset
func (f *Formatter) count(ctx context.Context, userID, id string) (*asset.Asset, error) {
	return f.store.Modify(ctx, id, func(a *asset.Asset) error {
		if a.UserID != userID {
			return ErrForbidden
		}
		a.ExportCount++
		return nil
	})
}

// BulkExport writes a zip archive of the assets to w. Ownership of every
// asset is checked before anything is written. It returns the entry count.
func (f *Formatter) BulkExport(ctx context.Context, userID string, ids []string, format Format, org Organization, w io.Writer) (int, error) {
	if _, ok := formats[format]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if org == "" {
		org = OrganizeFlat
	}
	if _, err := ParseOrganization(string(org)); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, ErrNoAssets
	}

	for _, id := range ids {
		a, err := f.store.Get(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("failed to get asset: %w", err)
		}
		if a == nil {
			return 0, fmt.Errorf("%w: %s", asset.ErrNotFound, id)
		}
		if a.UserID != userID {
			return 0, fmt.Errorf("%w: %s", ErrForbidden, id)
		}
	}

	zw := zip.NewWriter(w)
	used := make(map[string]int, len(ids))
	var written int

	for _, id := range ids {
		a, err := f.count(ctx, userID, id)
		if err != nil {
			return written, err
		}
		file, err := Render(a, format)
		if err != nil {
			return written, err
		}

		name := uniqueName(used, entryPath(a, org, file.Filename))
		modified := a.GeneratedAt
		if a.LastEditedAt != nil {
			modified = *a.LastEditedAt
		}

		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return written, fmt.Errorf("failed to create archive entry: %w", err)
		}
		if _, err := entry.Write(file.Content); err != nil {
			return written, fmt.Errorf("failed to write archive entry: %w", err)
		}
		written++
	}

	if err := zw.Close(); err != nil {
		return written, fmt.Errorf("failed to finish archive: %w", err)
	}

	metrics.AddExports(string(format), "bulk", written)
	f.logger.Info("bulk export written", "assets", written, "format", format, "organization", org)
	return written, nil
}

// Render produces the file for an asset without side effects
func Render(a *asset.Asset, format Format) (*File, error) {
	info, ok := formats[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	var content []byte
	switch format {
	case FormatHTML:
		content = []byte(a.InlinedHTML)
	case FormatLiquid:
		content = []byte(a.LiquidHTML)
	case FormatPlainText:
		content = []byte(a.PlainText)
	case FormatJSON:
		data, err := json.MarshalIndent(newDocument(a), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal asset: %w", err)
		}
		content = data
	}

	return &File{
		Content:  content,
		Filename: Filename(a, info.ext),
		MimeType: info.mime,
	}, nil
}

func newDocument(a *asset.Asset) Document {
	return Document{
		ID:             a.ID,
		CampaignID:     a.CampaignID,
		AudienceID:     a.AudienceID,
		AudienceName:   a.AudienceSnapshot.Name,
		EmailType:      a.EmailType,
		Strategy:       a.Strategy,
		VersionNumber:  a.VersionNumber,
		Status:         a.Status,
		GenerationMode: a.GenerationMode,
		TemplateID:     a.TemplateID,
		GeneratedAt:    a.GeneratedAt,
		LastEditedAt:   a.LastEditedAt,
		ExportCount:    a.ExportCount,
		Content:        a.Content,
		HTML:           a.HTML,
		InlinedHTML:    a.InlinedHTML,
		LiquidHTML:     a.LiquidHTML,
		PlainText:      a.PlainText,
	}
}

var reUnsafe = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// SafeName collapses every run of non-alphanumeric characters into "_"
func SafeName(s string) string {
	return reUnsafe.ReplaceAllString(s, "_")
}

// Filename is <audience>-<strategy>-<version>.<ext>
func Filename(a *asset.Asset, ext string) string {
	name := a.AudienceSnapshot.Name
	if name == "" {
		name = a.AudienceID
	}
	return SafeName(name) + "-" + SafeName(string(a.Strategy)) + "-" + strconv.Itoa(a.VersionNumber) + "." + ext
}

func entryPath(a *asset.Asset, org Organization, filename string) string {
	switch org {
	case OrganizeByAudience:
		name := a.AudienceSnapshot.Name
		if name == "" {
			name = a.AudienceID
		}
		return path.Join(SafeName(name), filename)
	case OrganizeByType:
		return path.Join(SafeName(string(a.EmailType)), filename)
	default:
		return filename
	}
}

// uniqueName appends _2, _3, ... before the extension of repeated names
func uniqueName(used map[string]int, name string) string {
	used[name]++
	n := used[name]
	if n == 1 {
		return name
	}
	ext := path.Ext(name)
	candidate := strings.TrimSuffix(name, ext) + "_" + strconv.Itoa(n) + ext
	if used[candidate] > 0 {
		return uniqueName(used, name)
	}
	used[candidate]++
	return candidate
}
