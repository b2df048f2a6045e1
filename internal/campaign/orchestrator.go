package campaign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"creative-forge/internal/assets"
	"creative-forge/internal/brief"
	"creative-forge/internal/gemini"
	"creative-forge/internal/prompt"
	"creative-forge/internal/storage"
)

type Generator interface {
	Generate(ctx context.Context, req gemini.Request) (gemini.Image, error)
}

type Store interface {
	EnsureCampaign(campaignID string) error
	Save(req storage.SaveRequest) (string, error)
	Finalize(req storage.FinalizeRequest) error
	BuildIndex(campaignID string)
}

type Options struct {
	Generator Generator
	Store     Store

	// CampaignID pre-claims the run's id, letting the caller register
	// it (run registry, logs) before any event is emitted. Minted per
	// run when empty.
	CampaignID string

	AssetDir    string
	UnitDelay   time.Duration // pause between units, zero disables pacing
	UnitTimeout time.Duration
	SampleLimit int
	Events      chan<- Event
	Logger      *slog.Logger
}

type Orchestrator struct {
	generator   Generator
	store       Store
	campaignID  string
	assetDir    string
	unitDelay   time.Duration
	unitTimeout time.Duration
	sampleLimit int
	events      chan<- Event
	logger      *slog.Logger
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Generator == nil {
		return nil, errors.New("generator is nil")
	}
	if opts.Store == nil {
		return nil, errors.New("store is nil")
	}

	unitTimeout := opts.UnitTimeout
	if unitTimeout <= 0 {
		unitTimeout = 2 * time.Minute
	}

	sampleLimit := opts.SampleLimit
	if sampleLimit <= 0 {
		sampleLimit = defaultSampleLimit
	}

	unitDelay := opts.UnitDelay
	if unitDelay < 0 {
		unitDelay = 0
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Orchestrator{
		generator:   opts.Generator,
		store:       opts.Store,
		campaignID:  strings.TrimSpace(opts.CampaignID),
		assetDir:    opts.AssetDir,
		unitDelay:   unitDelay,
		unitTimeout: unitTimeout,
		sampleLimit: sampleLimit,
		events:      opts.Events,
		logger:      logger,
	}, nil
}

const defaultSampleLimit = 5

type RunState struct {
	CampaignID string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []storage.UnitResult
	Succeeded  int
	Failed     int
}

// Summary condenses the run for the terminal event and for callers
// that record the outcome after Run returns. A non-positive limit uses
// the default sample cap.
func (s RunState) Summary(sampleLimit int) *RunSummary {
	if sampleLimit <= 0 {
		sampleLimit = defaultSampleLimit
	}
	return &RunSummary{
		CampaignID:       s.CampaignID,
		TotalAssets:      len(s.Results),
		SuccessfulAssets: s.Succeeded,
		FailedAssets:     s.Failed,
		SampleAssets:     sampleAssets(s.Results, sampleLimit),
	}
}

type unitState string

const (
	statePending    unitState = "pending"
	stateComposing  unitState = "composing"
	stateGenerating unitState = "generating"
	stateSaved      unitState = "saved"
	stateFailed     unitState = "failed"
)

type genUnit struct {
	product brief.Product
	ratio   prompt.AspectRatio
	matched []assets.Record
	state   unitState
}

// Run drives one campaign: validate the brief, load the asset pool,
// expand the (product x ratio) matrix, process every unit in order with
// per-unit failure isolation, then finalize the hand-off documents.
// A failed unit never aborts the run; directory setup, finalize errors
// and cancellation between units do.
func (o *Orchestrator) Run(ctx context.Context, b brief.Brief) (RunState, error) {
	b.Normalize()
	if err := b.Validate(); err != nil {
		return RunState{}, fmt.Errorf("invalid brief: %w", err)
	}

	state := RunState{
		CampaignID: o.campaignID,
		StartedAt:  time.Now().UTC(),
	}
	if state.CampaignID == "" {
		state.CampaignID = NewCampaignID()
	}
	logger := o.logger.With("campaign_id", state.CampaignID)

	if err := o.store.EnsureCampaign(state.CampaignID); err != nil {
		o.emitError(state.CampaignID, err)
		return state, err
	}

	pool := o.loadPool(ctx, b, logger)
	units := expandUnits(b, pool)
	total := len(units)

	logger.Info("campaign run started",
		"brief", b.ID,
		"products", len(b.Products),
		"units", total,
		"pool_assets", pool.Len(),
	)

	for i := range units {
		unit := &units[i]

		o.emit(Event{
			Type:        EventProgress,
			CampaignID:  state.CampaignID,
			Index:       i + 1,
			Total:       total,
			Product:     unit.product.Name,
			AspectRatio: unit.ratio.ID,
			Status:      StatusGenerating,
		})

		result := o.runUnit(ctx, state.CampaignID, b, unit, logger)
		state.Results = append(state.Results, result)

		after := Event{
			Type:        EventProgress,
			CampaignID:  state.CampaignID,
			Index:       i + 1,
			Total:       total,
			Product:     unit.product.Name,
			AspectRatio: unit.ratio.ID,
		}
		if unit.state == stateSaved {
			state.Succeeded++
			after.Status = StatusCompleted
		} else {
			state.Failed++
			after.Status = StatusError
			after.Message = result.Error
		}
		o.emit(after)

		if i < total-1 {
			if err := o.pause(ctx); err != nil {
				err = fmt.Errorf("run aborted: %w", err)
				o.emitError(state.CampaignID, err)
				return state, err
			}
		}
	}

	if err := o.store.Finalize(storage.FinalizeRequest{
		CampaignID: state.CampaignID,
		Brief:      b,
		Results:    state.Results,
	}); err != nil {
		o.emitError(state.CampaignID, err)
		return state, err
	}
	o.store.BuildIndex(state.CampaignID)

	state.FinishedAt = time.Now().UTC()

	o.emit(Event{
		Type:       EventComplete,
		CampaignID: state.CampaignID,
		Summary:    state.Summary(o.sampleLimit),
	})

	logger.Info("campaign run finished",
		"units", total,
		"succeeded", state.Succeeded,
		"failed", state.Failed,
		"duration_ms", state.FinishedAt.Sub(state.StartedAt).Milliseconds(),
	)
	return state, nil
}

func (o *Orchestrator) runUnit(ctx context.Context, campaignID string, b brief.Brief, unit *genUnit, logger *slog.Logger) storage.UnitResult {
	result := storage.UnitResult{
		Product:     unit.product.Name,
		AspectRatio: unit.ratio.ID,
		CreatedAt:   time.Now().UTC(),
	}

	unit.state = stateComposing
	composed := prompt.Compose(b, unit.product, unit.ratio, unit.matched)
	if composed.Fallback {
		logger.Warn("prompt template failed, using fallback",
			"product", unit.product.Name, "ratio", unit.ratio.ID)
	}
	result.Method = composed.Method()

	refs := make([]gemini.Reference, 0, len(composed.Assets))
	for _, rec := range composed.Assets {
		refs = append(refs, gemini.Reference{Data: rec.Data, MimeType: rec.MimeType})
		result.UsedAssets = append(result.UsedAssets, rec.Filename)
	}

	unit.state = stateGenerating
	genCtx, cancel := context.WithTimeout(ctx, o.unitTimeout)
	img, err := o.generator.Generate(genCtx, gemini.Request{
		Prompt:      composed.Text,
		AspectRatio: unit.ratio.ID,
		References:  refs,
	})
	cancel()
	if err != nil {
		unit.state = stateFailed
		result.Error = err.Error()
		logger.Warn("unit failed",
			"product", unit.product.Name, "ratio", unit.ratio.ID, "stage", "generate", "err", err)
		return result
	}

	relPath, err := o.store.Save(storage.SaveRequest{
		CampaignID:   campaignID,
		Product:      unit.product.Name,
		AspectRatio:  unit.ratio.ID,
		Image:        img.Data,
		Prompt:       composed.Text,
		BrandContext: composed.BrandContext,
		Audience:     composed.Audience,
		UsedAssets:   result.UsedAssets,
		Method:       result.Method,
	})
	if err != nil {
		unit.state = stateFailed
		result.Error = err.Error()
		logger.Warn("unit failed",
			"product", unit.product.Name, "ratio", unit.ratio.ID, "stage", "save", "err", err)
		return result
	}

	unit.state = stateSaved
	result.Success = true
	result.AssetPath = relPath
	logger.Debug("unit saved", "product", unit.product.Name, "ratio", unit.ratio.ID, "path", relPath)
	return result
}

// expandUnits builds the full ordered work matrix: products in brief
// order, the three ratios in their fixed order. Asset matching runs
// once per product here, not per unit.
func expandUnits(b brief.Brief, pool *assets.Pool) []genUnit {
	ratios := prompt.Ratios()
	units := make([]genUnit, 0, len(b.Products)*len(ratios))
	for _, p := range b.Products {
		matched := pool.ForProduct(p.Name)
		for _, r := range ratios {
			units = append(units, genUnit{product: p, ratio: r, matched: matched, state: statePending})
		}
	}
	return units
}

func (o *Orchestrator) loadPool(ctx context.Context, b brief.Brief, logger *slog.Logger) *assets.Pool {
	if strings.TrimSpace(o.assetDir) == "" {
		return nil
	}
	pool, err := assets.Load(ctx, o.assetDir, b.ProductNames())
	if err != nil {
		logger.Warn("asset pool unavailable, continuing text-only", "dir", o.assetDir, "err", err)
		return nil
	}
	return pool
}

func (o *Orchestrator) pause(ctx context.Context) error {
	if o.unitDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(o.unitDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (o *Orchestrator) emit(ev Event) {
	if o.events == nil {
		return
	}
	ev.Timestamp = time.Now().UTC()
	select {
	case o.events <- ev:
	default:
		// listener is behind, drop rather than stall the run
	}
}

func (o *Orchestrator) emitError(campaignID string, err error) {
	o.emit(Event{
		Type:       EventError,
		CampaignID: campaignID,
		Message:    err.Error(),
	})
}

func sampleAssets(results []storage.UnitResult, limit int) []string {
	var sample []string
	for _, r := range results {
		if !r.Success {
			continue
		}
		sample = append(sample, r.AssetPath)
		if len(sample) >= limit {
			break
		}
	}
	return sample
}

// NewCampaignID mints a run id: a UTC timestamp for operators plus a
// uuid fragment for uniqueness.
func NewCampaignID() string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("campaign_%s_%s", time.Now().UTC().Format("20060102_150405"), suffix)
}
