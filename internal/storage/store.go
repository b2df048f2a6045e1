package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"creative-forge/internal/brief"
)

type Options struct {
	Dir    string // output root, default "output"
	Logger *slog.Logger
}

type Store struct {
	dir    string
	logger *slog.Logger
}

func New(opts Options) *Store {
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		dir = "output"
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Store{dir: dir, logger: logger}
}

func (s *Store) CampaignDir(campaignID string) string {
	return filepath.Join(s.dir, campaignID)
}

// EnsureCampaign creates the campaign's root directory. Failure here is
// run-fatal for the orchestrator, nothing can be persisted without it.
func (s *Store) EnsureCampaign(campaignID string) error {
	if strings.TrimSpace(campaignID) == "" {
		return errors.New("campaign id is empty")
	}
	if err := os.MkdirAll(s.CampaignDir(campaignID), 0o755); err != nil {
		return fmt.Errorf("create campaign dir: %w", err)
	}
	return nil
}

// UnitResult is the persistence-facing record of one generation unit.
// The orchestrator appends one per unit; the full list is the run's
// audit trail and feeds the finalize documents.
type UnitResult struct {
	Product     string    `json:"product"`
	AspectRatio string    `json:"aspectRatio"`
	Success     bool      `json:"success"`
	AssetPath   string    `json:"assetPath,omitempty"`
	Error       string    `json:"error,omitempty"`
	Method      string    `json:"generationMethod,omitempty"`
	UsedAssets  []string  `json:"usedAssets,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type SaveRequest struct {
	CampaignID   string
	Product      string
	AspectRatio  string // canonical "9:16" form; the path segment is derived
	Image        []byte
	Prompt       string
	BrandContext string
	Audience     string
	UsedAssets   []string
	Method       string
}

type Metadata struct {
	CampaignID   string    `json:"campaignId"`
	Product      string    `json:"product"`
	AspectRatio  string    `json:"aspectRatio"`
	AssetPath    string    `json:"assetPath"`
	FileSize     int       `json:"fileSize"`
	Prompt       string    `json:"prompt"`
	BrandContext string    `json:"brandContext"`
	Audience     string    `json:"targetAudience"`
	UsedAssets   []string  `json:"usedAssets,omitempty"`
	Method       string    `json:"generationMethod"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Save writes one generated image plus its sibling metadata.json under
// <dir>/<campaignId>/<product>/<ratio>/ and returns the asset path
// relative to the output root's parent, slash-separated, so it can be
// embedded in the summary and review documents.
func (s *Store) Save(req SaveRequest) (string, error) {
	switch {
	case strings.TrimSpace(req.CampaignID) == "":
		return "", errors.New("campaign id is empty")
	case strings.TrimSpace(req.Product) == "":
		return "", errors.New("product is empty")
	case strings.TrimSpace(req.AspectRatio) == "":
		return "", errors.New("aspect ratio is empty")
	case len(req.Image) == 0:
		return "", errors.New("image is empty")
	}

	// brief validation enforces this for orchestrated runs; direct
	// callers get the same refusal instead of a collapsed path
	product := brief.Slug(req.Product)
	if product == "" {
		return "", fmt.Errorf("product name %q has no path-safe characters", req.Product)
	}
	ratio := ratioSegment(req.AspectRatio)

	unitDir := filepath.Join(s.CampaignDir(req.CampaignID), product, ratio)
	if err := os.MkdirAll(unitDir, 0o755); err != nil {
		return "", fmt.Errorf("create unit dir: %w", err)
	}

	filename := fmt.Sprintf("%s_%s_v1.png", product, ratio)
	imagePath := filepath.Join(unitDir, filename)
	if err := os.WriteFile(imagePath, req.Image, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}

	relPath := filepath.ToSlash(filepath.Join(filepath.Base(s.dir), req.CampaignID, product, ratio, filename))

	meta := Metadata{
		CampaignID:   req.CampaignID,
		Product:      req.Product,
		AspectRatio:  req.AspectRatio,
		AssetPath:    relPath,
		FileSize:     len(req.Image),
		Prompt:       req.Prompt,
		BrandContext: req.BrandContext,
		Audience:     req.Audience,
		UsedAssets:   req.UsedAssets,
		Method:       req.Method,
		CreatedAt:    time.Now().UTC(),
	}
	if err := writeJSON(filepath.Join(unitDir, metadataDoc), meta); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}

	return relPath, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func ratioSegment(aspectRatio string) string {
	return strings.ReplaceAll(strings.TrimSpace(aspectRatio), ":", "x")
}
