package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxzi/inkwell/internal/asset"
	"github.com/foxzi/inkwell/internal/campaign"
	"github.com/foxzi/inkwell/internal/extract"
	"github.com/foxzi/inkwell/internal/llm"
	"github.com/foxzi/inkwell/internal/metrics"
	"github.com/foxzi/inkwell/internal/template"
	"github.com/foxzi/inkwell/internal/transform"
	"github.com/foxzi/inkwell/internal/validator"
)

var (
	ErrCampaignNotFound   = errors.New("campaign not found")
	ErrBrandNotFound      = errors.New("brand guide not found")
	ErrUnauthorized       = errors.New("campaign does not belong to user")
	ErrNoEmailChannel     = errors.New("campaign has no enabled email channel")
	ErrNoGeneratedContent = errors.New("no generated content found for campaign")
	ErrInvalidMode        = errors.New("invalid generation mode")
	ErrNotHTML            = errors.New("model output is not an HTML document")
)

// Strategies generated for every audience in model-authored mode
var Strategies = []asset.Strategy{asset.StrategyConversion, asset.StrategyAwareness}

// Version returns the version number of a strategy
func Version(s asset.Strategy) int {
	switch s {
	case asset.StrategyConversion:
		return 1
	case asset.StrategyAwareness:
		return 2
	case asset.StrategyUrgency:
		return 3
	case asset.StrategyEmotional:
		return 4
	}
	return asset.MinVersion
}

// Request describes one generation run
type Request struct {
	CampaignID string
	UserID     string
	TemplateID string
	Regenerate bool
	Mode       asset.GenerationMode
}

// Result is the outcome of a generation run
type Result struct {
	Assets         []*asset.Asset
	TotalGenerated int
	Elapsed        time.Duration
	Mode           asset.GenerationMode
	FellBack       bool
}

// Options tune the orchestrator
type Options struct {
	DefaultMode      asset.GenerationMode
	DefaultTemplate  string
	AtomicRegenerate bool
	MaxTokens        int
}

// Service drives email generation for a campaign
type Service struct {
	dir      campaign.Directory
	store    asset.Store
	gen      llm.Generator
	engine   *template.Engine
	pipeline *transform.Pipeline
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a generation service
func New(dir campaign.Directory, store asset.Store, gen llm.Generator, engine *template.Engine, pipeline *transform.Pipeline, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if !opts.DefaultMode.Valid() {
		opts.DefaultMode = asset.ModeModelAuthored
	}
	if opts.DefaultTemplate == "" {
		opts.DefaultTemplate = template.Minimal
	}
	return &Service{
		dir:      dir,
		store:    store,
		gen:      gen,
		engine:   engine,
		pipeline: pipeline,
		opts:     opts,
		logger:   logger.With("component", "generator"),
		now:      time.Now,
	}
}

// run is the resolved state shared by both generation paths
type run struct {
	req       Request
	campaign  *campaign.Campaign
	brand     *campaign.Brand
	audiences []*campaign.Audience
	logger    *slog.Logger
	result    *Result
}

// Generate produces one asset per successful audience and strategy pair.
// The sweep is not cancelled when ctx is; persisted assets stay in place.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	start := s.now()

	if req.Mode == "" {
		req.Mode = s.opts.DefaultMode
	}
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMode, req.Mode)
	}
	if req.TemplateID == "" {
		req.TemplateID = s.opts.DefaultTemplate
	}

	r, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	var records []*campaign.ContentRecord
	if req.Mode == asset.ModeTemplate {
		// Template mode without content fails before anything is deleted
		records, err = s.emailContent(ctx, r)
		if err != nil {
			return nil, err
		}
	}

	ctx = context.WithoutCancel(ctx)

	previous, err := s.clearForRegenerate(ctx, r)
	if err != nil {
		return nil, err
	}

	r.result.Mode = req.Mode
	switch req.Mode {
	case asset.ModeTemplate:
		s.templateSweep(ctx, r, records)
	default:
		s.modelSweep(ctx, r)
		if r.result.TotalGenerated == 0 {
			r.logger.Warn("model-authored generation produced no assets, falling back to template mode")
			metrics.IncGenerationFallback()
			r.result.Mode = asset.ModeTemplate
			r.result.FellBack = true

			records, err = s.emailContent(ctx, r)
			if err != nil {
				return nil, fmt.Errorf("generation failed in %s and %s modes: %w", asset.ModeModelAuthored, asset.ModeTemplate, err)
			}
			s.templateSweep(ctx, r, records)
		}
	}

	r.result.Elapsed = s.now().Sub(start)
	metrics.ObserveGeneration(string(r.result.Mode), r.result.Elapsed.Seconds())

	if r.result.TotalGenerated == 0 {
		if r.result.FellBack {
			return nil, fmt.Errorf("generation failed in %s and %s modes: %w", asset.ModeModelAuthored, asset.ModeTemplate, ErrNoGeneratedContent)
		}
		return nil, ErrNoGeneratedContent
	}

	if len(previous) > 0 {
		if _, err := s.store.Delete(ctx, previous...); err != nil {
			r.logger.Error("failed to delete previous assets", "count", len(previous), "error", err)
		}
	}

	r.logger.Info("generation complete",
		"mode", r.result.Mode,
		"fell_back", r.result.FellBack,
		"generated", r.result.TotalGenerated,
		"duration", r.result.Elapsed,
	)

	return r.result, nil
}

// prepare checks the preconditions and loads the campaign context
func (s *Service) prepare(ctx context.Context, req Request) (*run, error) {
	c, err := s.dir.GetCampaign(ctx, req.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	if c == nil {
		return nil, ErrCampaignNotFound
	}
	if c.UserID != req.UserID {
		return nil, ErrUnauthorized
	}

	brand, err := s.dir.GetBrand(ctx, c.BrandID)
	if err != nil {
		return nil, fmt.Errorf("failed to load brand: %w", err)
	}
	if brand == nil {
		return nil, ErrBrandNotFound
	}
	if brand.UserID != "" && brand.UserID != req.UserID {
		return nil, ErrUnauthorized
	}

	if !c.HasEnabledChannel(campaign.ChannelEmail) {
		return nil, ErrNoEmailChannel
	}

	all, err := s.dir.ListAudiences(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load audiences: %w", err)
	}
	var audiences []*campaign.Audience
	for _, a := range all {
		if a.Enabled && a.SupportsChannel(campaign.ChannelEmail) {
			audiences = append(audiences, a)
		}
	}

	return &run{
		req:       req,
		campaign:  c,
		brand:     brand,
		audiences: audiences,
		logger:    s.logger.With("campaign_id", c.ID, "user_id", req.UserID),
		result:    &Result{Assets: []*asset.Asset{}},
	}, nil
}

// clearForRegenerate deletes existing assets, or returns their IDs for
// deletion after a successful run in atomic mode
func (s *Service) clearForRegenerate(ctx context.Context, r *run) ([]string, error) {
	if !r.req.Regenerate {
		return nil, nil
	}

	if !s.opts.AtomicRegenerate {
		n, err := s.store.DeleteByCampaign(ctx, r.campaign.ID, r.req.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to delete existing assets: %w", err)
		}
		r.logger.Info("deleted existing assets for regeneration", "count", n)
		return nil, nil
	}

	existing, err := s.store.ListByCampaign(ctx, r.campaign.ID, r.req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list existing assets: %w", err)
	}
	ids := make([]string, 0, len(existing))
	for _, a := range existing {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

// modelSweep asks the model for every audience and strategy pair
func (s *Service) modelSweep(ctx context.Context, r *run) {
	for _, aud := range r.audiences {
		for _, strategy := range Strategies {
			log := r.logger.With("audience_id", aud.ID, "strategy", strategy)

			a, err := s.generateOne(ctx, r, aud, strategy)
			if err != nil {
				log.Warn("failed to generate email", "error", err)
				metrics.IncGenerationFailed(string(asset.ModeModelAuthored), failureReason(err))
				continue
			}

			r.result.Assets = append(r.result.Assets, a)
			r.result.TotalGenerated++
			metrics.IncAssetsGenerated(string(asset.ModeModelAuthored), string(strategy))
			log.Debug("email generated", "asset_id", a.ID, "confident", a.ExtractionConfident)
		}
	}
}

func (s *Service) generateOne(ctx context.Context, r *run, aud *campaign.Audience, strategy asset.Strategy) (*asset.Asset, error) {
	prompt := BuildPrompt(NewContext(r.campaign, r.brand, aud, strategy))

	comp, err := s.gen.Generate(ctx, prompt, s.opts.MaxTokens)
	if err != nil {
		return nil, err
	}
	metrics.AddTokens("generate", comp.TokensUsed)

	doc := StripFences(comp.Text)
	if !LooksLikeHTML(doc) {
		return nil, ErrNotHTML
	}

	fields := extract.Extract(doc)

	if v := validator.Validate(doc); !v.Valid {
		r.logger.Debug("generated email failed validation, sanitizing", "errors", v.Errors)
		metrics.IncValidationFailed("model")
		doc = validator.Sanitize(doc)
		metrics.IncSanitized()
	}

	tokens := comp.TokensUsed
	a := s.newAsset(r, aud, strategy, fields.Content)
	a.HTML = doc
	a.GenerationMode = asset.ModeModelAuthored
	a.TokensUsed = &tokens
	a.ExtractionConfident = fields.Confident
	s.pipeline.Derive(doc, a.Content).Apply(a)

	if err := s.store.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to save asset: %w", err)
	}
	return a, nil
}

// emailContent returns the campaign's stored email copy
func (s *Service) emailContent(ctx context.Context, r *run) ([]*campaign.ContentRecord, error) {
	records, err := s.dir.ListContent(ctx, r.campaign.ID, campaign.ChannelEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to load content: %w", err)
	}
	var out []*campaign.ContentRecord
	for _, rec := range records {
		if rec.Email != nil {
			out = append(out, rec)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoGeneratedContent
	}
	return out, nil
}

// templateSweep renders stored content. A record without an audience is
// rendered for every enabled audience.
func (s *Service) templateSweep(ctx context.Context, r *run, records []*campaign.ContentRecord) {
	byID := make(map[string]*campaign.Audience, len(r.audiences))
	for _, a := range r.audiences {
		byID[a.ID] = a
	}

	for _, rec := range records {
		targets := r.audiences
		if rec.AudienceID != "" {
			aud, ok := byID[rec.AudienceID]
			if !ok {
				r.logger.Debug("skipping content for disabled or unknown audience", "content_id", rec.ID, "audience_id", rec.AudienceID)
				continue
			}
			targets = []*campaign.Audience{aud}
		}

		strategy := rec.Email.Strategy
		if !strategy.Valid() {
			strategy = asset.StrategyConversion
		}

		for _, aud := range targets {
			a, err := s.renderOne(ctx, r, aud, strategy, rec.Email.Content)
			if err != nil {
				r.logger.Warn("failed to render email", "content_id", rec.ID, "audience_id", aud.ID, "error", err)
				metrics.IncGenerationFailed(string(asset.ModeTemplate), failureReason(err))
				continue
			}

			r.result.Assets = append(r.result.Assets, a)
			r.result.TotalGenerated++
			metrics.IncAssetsGenerated(string(asset.ModeTemplate), string(strategy))
		}
	}
}

func (s *Service) renderOne(ctx context.Context, r *run, aud *campaign.Audience, strategy asset.Strategy, content asset.Content) (*asset.Asset, error) {
	content = content.Truncated()
	templateID := s.engine.Resolve(r.req.TemplateID)
	doc := s.engine.Render(templateID, content, r.brand, aud, r.campaign)

	a := s.newAsset(r, aud, strategy, content)
	a.HTML = doc
	a.TemplateID = templateID
	a.GenerationMode = asset.ModeTemplate
	a.ExtractionConfident = true
	s.pipeline.Derive(doc, content).Apply(a)

	if err := s.store.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to save asset: %w", err)
	}
	return a, nil
}

func (s *Service) newAsset(r *run, aud *campaign.Audience, strategy asset.Strategy, content asset.Content) *asset.Asset {
	emailType := r.campaign.EmailType
	if !emailType.Valid() {
		emailType = asset.EmailTypePromotional
	}
	return &asset.Asset{
		CampaignID:       r.campaign.ID,
		UserID:           r.req.UserID,
		AudienceID:       aud.ID,
		EmailType:        emailType,
		Strategy:         strategy,
		VersionNumber:    asset.ClampVersion(Version(strategy)),
		Content:          content,
		Status:           asset.StatusGenerated,
		BrandSnapshot:    r.brand.Snapshot(),
		AudienceSnapshot: aud.Snapshot(),
		GeneratedAt:      s.now().UTC(),
		EditHistory:      []asset.EditRecord{},
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrNotHTML):
		return "not_html"
	case errors.Is(err, llm.ErrEmptyCompletion):
		return "empty"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
