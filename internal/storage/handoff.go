package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"creative-forge/internal/brief"
)

const (
	briefDoc    = "campaign_brief.json"
	summaryDoc  = "campaign_summary.json"
	reviewDoc   = "review_status.json"
	indexDoc    = "directory_index.json"
	metadataDoc = "metadata.json"
)

const StatusPendingReview = "pending_review"

// ReviewFlag is the durable hand-off record the external review agent
// polls for. This pipeline writes it exactly once per campaign, with
// ClaudeReviewed false and the review fields null; the agent fills them
// in later and this code never reads them back.
type ReviewFlag struct {
	CampaignID       string     `json:"campaignId"`
	Status           string     `json:"status"`
	TotalAssets      int        `json:"totalAssets"`
	SuccessfulAssets int        `json:"successfulAssets"`
	FailedAssets     int        `json:"failedAssets"`
	GeneratedAssets  []string   `json:"generatedAssets"`
	CreatedAt        time.Time  `json:"createdAt"`
	ClaudeReviewed   bool       `json:"claudeReviewed"`
	ComplianceScore  *float64   `json:"complianceScore"`
	ReviewStarted    *time.Time `json:"reviewStarted"`
	ReviewCompleted  *time.Time `json:"reviewCompleted"`
}

type Summary struct {
	CampaignID       string           `json:"campaignId"`
	GeneratedAt      time.Time        `json:"generatedAt"`
	TotalAssets      int              `json:"totalAssets"`
	SuccessfulAssets int              `json:"successfulAssets"`
	FailedAssets     int              `json:"failedAssets"`
	Products         []string         `json:"products"`
	BrandGuidelines  brief.Guidelines `json:"brandGuidelines"`
	ReadyForReview   bool             `json:"readyForReview"`
	Results          []UnitResult     `json:"results"`
}

type FinalizeRequest struct {
	CampaignID string
	Brief      brief.Brief
	Results    []UnitResult
}

// Finalize writes the campaign brief, the summary, and the review flag,
// in that order. The three writes are all-or-nothing: on any failure
// the documents already written by this call are removed, so a review
// agent can never observe a review flag without its summary.
func (s *Store) Finalize(req FinalizeRequest) error {
	if strings.TrimSpace(req.CampaignID) == "" {
		return fmt.Errorf("finalize: campaign id is empty")
	}

	dir := s.CampaignDir(req.CampaignID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("finalize: create campaign dir: %w", err)
	}

	now := time.Now().UTC()
	succeeded, failed, generated := tally(req.Results)

	docs := []struct {
		name    string
		payload any
	}{
		{briefDoc, req.Brief},
		{summaryDoc, Summary{
			CampaignID:       req.CampaignID,
			GeneratedAt:      now,
			TotalAssets:      len(req.Results),
			SuccessfulAssets: succeeded,
			FailedAssets:     failed,
			Products:         req.Brief.ProductNames(),
			BrandGuidelines:  req.Brief.BrandGuidelines,
			ReadyForReview:   succeeded > 0,
			Results:          req.Results,
		}},
		{reviewDoc, ReviewFlag{
			CampaignID:       req.CampaignID,
			Status:           StatusPendingReview,
			TotalAssets:      len(req.Results),
			SuccessfulAssets: succeeded,
			FailedAssets:     failed,
			GeneratedAssets:  generated,
			CreatedAt:        now,
			ClaudeReviewed:   false,
		}},
	}

	var written []string
	for _, doc := range docs {
		path := filepath.Join(dir, doc.name)
		if err := writeJSON(path, doc.payload); err != nil {
			for _, w := range written {
				_ = os.Remove(w)
			}
			return fmt.Errorf("finalize: write %s: %w", doc.name, err)
		}
		written = append(written, path)
	}

	s.logger.Info("campaign finalized",
		"campaign_id", req.CampaignID,
		"total", len(req.Results),
		"succeeded", succeeded,
		"failed", failed,
	)
	return nil
}

func tally(results []UnitResult) (succeeded, failed int, generated []string) {
	generated = make([]string, 0, len(results))
	for _, r := range results {
		if r.Success {
			succeeded++
			generated = append(generated, r.AssetPath)
		} else {
			failed++
		}
	}
	return succeeded, failed, generated
}

type indexEntry struct {
	Image    bool `json:"image"`
	Metadata bool `json:"metadata"`
}

type directoryIndex struct {
	CampaignID  string                           `json:"campaignId"`
	GeneratedAt time.Time                        `json:"generatedAt"`
	Products    map[string]map[string]indexEntry `json:"products"`
	FileCount   int                              `json:"fileCount"`
}

// BuildIndex writes a best-effort browsing index of which
// (product, ratio) pairs have an image and/or metadata file. It is an
// operator convenience: every error is logged and swallowed.
func (s *Store) BuildIndex(campaignID string) {
	dir := s.CampaignDir(campaignID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Warn("directory index skipped", "campaign_id", campaignID, "err", err)
		return
	}

	index := directoryIndex{
		CampaignID:  campaignID,
		GeneratedAt: time.Now().UTC(),
		Products:    make(map[string]map[string]indexEntry),
	}

	for _, product := range entries {
		if !product.IsDir() {
			continue
		}
		ratioDirs, err := os.ReadDir(filepath.Join(dir, product.Name()))
		if err != nil {
			s.logger.Warn("directory index skipped", "campaign_id", campaignID, "err", err)
			return
		}

		ratios := make(map[string]indexEntry)
		for _, ratio := range ratioDirs {
			if !ratio.IsDir() {
				continue
			}
			files, err := os.ReadDir(filepath.Join(dir, product.Name(), ratio.Name()))
			if err != nil {
				s.logger.Warn("directory index skipped", "campaign_id", campaignID, "err", err)
				return
			}

			var entry indexEntry
			for _, f := range files {
				if f.IsDir() {
					continue
				}
				index.FileCount++
				switch {
				case f.Name() == metadataDoc:
					entry.Metadata = true
				case strings.HasSuffix(f.Name(), ".png"):
					entry.Image = true
				}
			}
			ratios[ratio.Name()] = entry
		}
		if len(ratios) > 0 {
			index.Products[product.Name()] = ratios
		}
	}

	if err := writeJSON(filepath.Join(dir, indexDoc), index); err != nil {
		s.logger.Warn("directory index write failed", "campaign_id", campaignID, "err", err)
	}
}
