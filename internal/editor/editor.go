package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/foxzi/inkwell/internal/asset"
	"github.com/foxzi/inkwell/internal/extract"
	"github.com/foxzi/inkwell/internal/generator"
	"github.com/foxzi/inkwell/internal/llm"
	"github.com/foxzi/inkwell/internal/metrics"
	"github.com/foxzi/inkwell/internal/transform"
	"github.com/foxzi/inkwell/internal/validator"
)

var (
	ErrForbidden       = errors.New("asset does not belong to user")
	ErrNothingToUndo   = errors.New("edit history is empty")
	ErrEmptyHTML       = errors.New("html is required")
	ErrEmptyPrompt     = errors.New("prompt is required")
	ErrInvalidEditType = errors.New("invalid edit type")
)

// UndoMode selects what undo does with the history entry it restores
type UndoMode string

const (
	// UndoPop removes the restored entry, so repeated undo steps further back
	UndoPop UndoMode = "pop"
	// UndoPeek keeps the entry, so repeated undo restores the same document
	UndoPeek UndoMode = "peek"
)

// UpdateRequest is a replacement document for an asset
type UpdateRequest struct {
	HTML     string
	EditType asset.EditType
	Prompt   string
}

// AIEditResult is a proposed modification, not yet saved
type AIEditResult struct {
	ModifiedHTML string   `json:"modified_html"`
	Changes      []string `json:"changes"`
	TokensUsed   int      `json:"tokens_used"`
}

// Manager mutates persisted assets
type Manager struct {
	store     asset.Store
	gen       llm.Generator
	pipeline  *transform.Pipeline
	undoMode  UndoMode
	maxTokens int
	logger    *slog.Logger
	now       func() time.Time
}

// NewManager creates an edit manager
func NewManager(store asset.Store, gen llm.Generator, pipeline *transform.Pipeline, undoMode UndoMode, maxTokens int, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if undoMode != UndoPeek {
		undoMode = UndoPop
	}
	return &Manager{
		store:     store,
		gen:       gen,
		pipeline:  pipeline,
		undoMode:  undoMode,
		maxTokens: maxTokens,
		logger:    logger.With("component", "editor"),
		now:       time.Now,
	}
}

// Get returns an asset owned by userID
func (m *Manager) Get(ctx context.Context, userID, id string) (*asset.Asset, error) {
	a, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	if a == nil {
		return nil, asset.ErrNotFound
	}
	if a.UserID != userID {
		return nil, ErrForbidden
	}
	return a, nil
}

// Update replaces the document, keeping the previous one in history
func (m *Manager) Update(ctx context.Context, userID, id string, req UpdateRequest) (*asset.Asset, error) {
	if strings.TrimSpace(req.HTML) == "" {
		return nil, ErrEmptyHTML
	}
	if req.EditType == "" {
		req.EditType = asset.EditManual
	}
	if !req.EditType.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEditType, req.EditType)
	}

	a, err := m.store.Modify(ctx, id, func(a *asset.Asset) error {
		if a.UserID != userID {
			return ErrForbidden
		}
		now := m.now().UTC()
		a.PushHistory(req.EditType, req.Prompt, now)
		m.replace(a, req.HTML, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncEdits(string(req.EditType))
	m.logger.Info("asset updated", "asset_id", id, "edit_type", req.EditType, "history", len(a.EditHistory))
	return a, nil
}

// Approve marks an asset approved. History is left untouched.
func (m *Manager) Approve(ctx context.Context, userID, id string) (*asset.Asset, error) {
	a, err := m.store.Modify(ctx, id, func(a *asset.Asset) error {
		if a.UserID != userID {
			return ErrForbidden
		}
		a.Status = asset.StatusApproved
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncEdits("approve")
	m.logger.Info("asset approved", "asset_id", id)
	return a, nil
}

// Undo restores the document saved by the most recent edit
func (m *Manager) Undo(ctx context.Context, userID, id string) (*asset.Asset, error) {
	a, err := m.store.Modify(ctx, id, func(a *asset.Asset) error {
		if a.UserID != userID {
			return ErrForbidden
		}

		var rec asset.EditRecord
		var ok bool
		if m.undoMode == UndoPeek {
			rec, ok = a.LastEdit()
		} else {
			rec, ok = a.PopHistory()
		}
		if !ok {
			return ErrNothingToUndo
		}

		m.replace(a, rec.PreviousHTML, m.now().UTC())
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncEdits("undo")
	m.logger.Info("edit undone", "asset_id", id, "mode", m.undoMode, "history", len(a.EditHistory))
	return a, nil
}

// replace swaps in a new document and recomputes everything derived from it
func (m *Manager) replace(a *asset.Asset, doc string, at time.Time) {
	fields := extract.Extract(doc)

	a.HTML = doc
	a.Content = fields.Content
	a.ExtractionConfident = fields.Confident
	m.pipeline.Derive(doc, a.Content).Apply(a)
	a.LastEditedAt = &at
	a.Status = asset.StatusEdited
}

var reChangesMarker = regexp.MustCompile(`(?is)\s*<!--\s*CHANGES\s*:.*?-->`)

// AIEdit asks the model to modify an asset. Nothing is saved.
func (m *Manager) AIEdit(ctx context.Context, userID, id, prompt string, preserveStructure bool) (*AIEditResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	a, err := m.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	comp, err := m.gen.Generate(ctx, buildEditPrompt(a.HTML, prompt, preserveStructure), m.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to edit asset: %w", err)
	}
	metrics.AddTokens("edit", comp.TokensUsed)

	doc := generator.StripFences(comp.Text)
	if !generator.LooksLikeHTML(doc) {
		return nil, generator.ErrNotHTML
	}

	changes := markerChanges(doc)
	doc = reChangesMarker.ReplaceAllString(doc, "")

	if preserveStructure {
		if v := validator.Validate(doc); !v.Valid {
			m.logger.Debug("edited document failed validation, sanitizing", "asset_id", id, "errors", v.Errors)
			metrics.IncValidationFailed("ai_edit")
			doc = validator.Sanitize(doc)
			metrics.IncSanitized()
		}
	}

	if changes == nil {
		changes = diffChanges(a.HTML, doc)
	}

	return &AIEditResult{
		ModifiedHTML: doc,
		Changes:      changes,
		TokensUsed:   comp.TokensUsed,
	}, nil
}

func buildEditPrompt(doc, instruction string, preserveStructure bool) string {
	var b strings.Builder
	b.WriteString("Modify the HTML email below according to the instruction.\n\n")
	fmt.Fprintf(&b, "INSTRUCTION\n%s\n\n", instruction)
	if preserveStructure {
		b.WriteString("Keep the table layout, inline styles, meta tags and footer exactly as they are. Change only what the instruction asks for.\n\n")
	}
	b.WriteString("Keep the SUBJECT, PREHEADER, HEADLINE and CTA comments in sync with the content.\n")
	b.WriteString("Add a comment <!-- CHANGES: first change; second change --> listing what you changed.\n")
	b.WriteString("Return only the complete HTML document.\n\n")
	fmt.Fprintf(&b, "EMAIL\n%s\n", doc)
	return b.String()
}

func markerChanges(doc string) []string {
	v, ok := extract.Marker(doc, "CHANGES")
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// diffChanges describes which extracted fields differ between two documents
func diffChanges(before, after string) []string {
	changes := []string{}
	if before == after {
		return changes
	}

	old := extract.Extract(before).Content
	cur := extract.Extract(after).Content
	fields := []struct {
		label    string
		old, cur string
	}{
		{"subject line", old.SubjectLine, cur.SubjectLine},
		{"preheader", old.Preheader, cur.Preheader},
		{"headline", old.Headline, cur.Headline},
		{"body copy", old.BodyCopy, cur.BodyCopy},
		{"CTA text", old.CTAText, cur.CTAText},
	}
	for _, f := range fields {
		if f.old != f.cur {
			changes = append(changes, "Updated "+f.label)
		}
	}
	if len(changes) == 0 {
		changes = append(changes, "Updated layout or styling")
	}
	return changes
}
