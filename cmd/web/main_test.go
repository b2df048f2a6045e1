package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creative-forge/internal/campaign"
	"creative-forge/internal/config"
	"creative-forge/internal/gemini"
	"creative-forge/internal/prompt"
	"creative-forge/internal/runs"
	"creative-forge/internal/storage"
)

const testBrief = `{
	"campaignId": "summer-launch",
	"products": [{"name": "Widget Pro", "category": "electronics"}],
	"targetAudience": "US 25-40",
	"campaignMessage": "Power your summer",
	"brandGuidelines": {"colors": ["#FF6B35"], "tone": "energetic"}
}`

func newTestServer(t *testing.T) *server {
	t.Helper()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"aW1n"}}]},"finishReason":"STOP"}]}`))
	}))
	t.Cleanup(backend.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &server{
		cfg: config.Config{UnitTimeout: 5 * time.Second},
		gem: gemini.New(gemini.Options{
			APIKey:     "test-key",
			BaseURL:    backend.URL,
			HTTPClient: backend.Client(),
			Logger:     logger,
		}),
		store:    storage.New(storage.Options{Dir: filepath.Join(t.TempDir(), "output"), Logger: logger}),
		registry: runs.NewRegistry(runs.Options{}),
		logger:   logger,
		mintID:   campaign.NewCampaignID,
	}
}

func TestHandleCreateCampaign_StreamsRun(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/campaigns", strings.NewReader(testBrief))
	s.handleCreateCampaign(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("content-type"), "application/x-ndjson")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 7) // 3 x (generating, completed) + complete

	var frames []campaign.Event
	for _, line := range lines {
		var ev campaign.Event
		require.NoError(t, json.Unmarshal([]byte(line), &ev), line)
		frames = append(frames, ev)
	}

	assert.Equal(t, campaign.EventProgress, frames[0].Type)
	assert.Equal(t, campaign.StatusGenerating, frames[0].Status)

	last := frames[len(frames)-1]
	require.Equal(t, campaign.EventComplete, last.Type)
	require.NotNil(t, last.Summary)
	assert.Equal(t, 3, last.Summary.TotalAssets)
	assert.Equal(t, 3, last.Summary.SuccessfulAssets)

	// the run landed on disk and in the registry
	images, err := filepath.Glob(filepath.Join(s.store.CampaignDir(last.CampaignID), "*", "*", "*.png"))
	require.NoError(t, err)
	assert.Len(t, images, 3)

	run, ok := s.registry.Get(last.CampaignID)
	require.True(t, ok)
	assert.Equal(t, runs.StatusCompleted, run.Status)
}

func TestHandleCreateCampaign_RejectsInvalidJSON(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/campaigns", strings.NewReader("{nope"))
	s.handleCreateCampaign(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid brief json", resp.Error)
}

func TestHandleCreateCampaign_RejectsInvalidBrief(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/campaigns", strings.NewReader(`{"campaignMessage":"x"}`))
	s.handleCreateCampaign(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "no products")
}

func TestHandleCreateCampaign_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleCreateCampaign(rec, httptest.NewRequest(http.MethodGet, "/api/campaigns", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleCreateCampaign_RejectsDuplicateRun(t *testing.T) {
	s := newTestServer(t)
	s.mintID = func() string { return "campaign_web_dup" }

	// the id is already claimed by a run in flight
	require.NoError(t, s.registry.Begin("campaign_web_dup"))

	rec := httptest.NewRecorder()
	s.handleCreateCampaign(rec, httptest.NewRequest(http.MethodPost, "/api/campaigns", strings.NewReader(testBrief)))

	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "already running")

	// the refused request must not disturb the claimed entry
	run, ok := s.registry.Get("campaign_web_dup")
	require.True(t, ok)
	assert.Equal(t, runs.StatusRunning, run.Status)
}

func TestHandleCreateCampaign_RunsUnderClaimedID(t *testing.T) {
	s := newTestServer(t)
	s.mintID = func() string { return "campaign_web_claimed" }

	rec := httptest.NewRecorder()
	s.handleCreateCampaign(rec, httptest.NewRequest(http.MethodPost, "/api/campaigns", strings.NewReader(testBrief)))
	require.Equal(t, http.StatusOK, rec.Code)

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	for _, line := range lines {
		var ev campaign.Event
		require.NoError(t, json.Unmarshal([]byte(line), &ev), line)
		assert.Equal(t, "campaign_web_claimed", ev.CampaignID)
	}

	run, ok := s.registry.Get("campaign_web_claimed")
	require.True(t, ok)
	assert.Equal(t, runs.StatusCompleted, run.Status)
	require.NotNil(t, run.Summary)
	assert.Equal(t, 3, run.Summary.SuccessfulAssets)

	// the claim is released on completion, a rerun of the id is legal
	assert.NoError(t, s.registry.Begin("campaign_web_claimed"))
}

func TestHandleRuns_ListAndGet(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleRuns(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var list []runs.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list)

	rec = httptest.NewRecorder()
	s.handleRuns(rec, httptest.NewRequest(http.MethodGet, "/api/runs/campaign_unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// run one campaign, then the registry serves it
	runRec := httptest.NewRecorder()
	s.handleCreateCampaign(runRec, httptest.NewRequest(http.MethodPost, "/api/campaigns", strings.NewReader(testBrief)))
	require.Equal(t, http.StatusOK, runRec.Code)

	rec = httptest.NewRecorder()
	s.handleRuns(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = httptest.NewRecorder()
	s.handleRuns(rec, httptest.NewRequest(http.MethodGet, "/api/runs/"+list[0].CampaignID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var run runs.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, runs.StatusCompleted, run.Status)
	assert.Equal(t, 0, run.UnitErrors)
}

func TestHandleCatalog(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleCatalog(rec, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []prompt.CatalogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "1:1", entries[0].ID)
	assert.Contains(t, entries[1].Platform, "Stories")
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
