package runs

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"creative-forge/internal/campaign"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is a point-in-time snapshot of one campaign run, kept current by
// feeding the orchestrator's event stream through Observe.
type Run struct {
	CampaignID  string               `json:"campaignId"`
	Status      Status               `json:"status"`
	StartedAt   time.Time            `json:"startedAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
	Index       int                  `json:"index,omitempty"`
	Total       int                  `json:"total,omitempty"`
	Product     string               `json:"product,omitempty"`
	AspectRatio string               `json:"aspectRatio,omitempty"`
	UnitErrors  int                  `json:"unitErrors"`
	LastMessage string               `json:"lastMessage,omitempty"`
	Summary     *campaign.RunSummary `json:"summary,omitempty"`
}

type Options struct {
	MaxFinished int
}

type Registry struct {
	mu          sync.Mutex
	runs        map[string]*Run
	maxFinished int
}

func NewRegistry(opts Options) *Registry {
	maxFinished := opts.MaxFinished
	if maxFinished <= 0 {
		maxFinished = 50
	}

	return &Registry{
		runs:        make(map[string]*Run),
		maxFinished: maxFinished,
	}
}

// Begin registers a run before its first event arrives. It fails while
// a run with the same id is still active; a finished entry is replaced.
func (r *Registry) Begin(campaignID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run, ok := r.runs[campaignID]; ok && run.Status == StatusRunning {
		return fmt.Errorf("campaign %s is already running", campaignID)
	}

	r.runs[campaignID] = &Run{
		CampaignID: campaignID,
		Status:     StatusRunning,
		StartedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	r.evictLocked()
	return nil
}

// Observe folds one orchestrator event into the snapshot, creating the
// entry if Begin was never called for this id. Terminal states are
// absorbing: frames arriving after a run concluded are ignored.
func (r *Registry) Observe(ev campaign.Event) {
	if ev.CampaignID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.getOrCreateLocked(ev.CampaignID)
	if run.Status != StatusRunning {
		return
	}
	run.UpdatedAt = time.Now().UTC()

	switch ev.Type {
	case campaign.EventProgress:
		run.Index = ev.Index
		run.Total = ev.Total
		run.Product = ev.Product
		run.AspectRatio = ev.AspectRatio
		if ev.Status == campaign.StatusError {
			run.UnitErrors++
			run.LastMessage = ev.Message
		}
	case campaign.EventComplete:
		run.Status = StatusCompleted
		run.Summary = ev.Summary
		r.evictLocked()
	case campaign.EventError:
		run.Status = StatusFailed
		run.LastMessage = ev.Message
		r.evictLocked()
	}
}

// Conclude records a run's terminal state straight from Run's return
// values. The event stream usually gets there first; this is the
// backstop for dropped terminal frames, so an entry can never stay
// running after its run has returned.
func (r *Registry) Conclude(campaignID string, state campaign.RunState, runErr error) {
	if campaignID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.getOrCreateLocked(campaignID)
	if run.Status != StatusRunning {
		return
	}
	run.UpdatedAt = time.Now().UTC()
	if state.Failed > run.UnitErrors {
		run.UnitErrors = state.Failed
	}

	if runErr != nil {
		run.Status = StatusFailed
		run.LastMessage = runErr.Error()
	} else {
		run.Status = StatusCompleted
		run.Summary = state.Summary(0)
	}
	r.evictLocked()
}

func (r *Registry) Get(campaignID string) (Run, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[campaignID]
	if !ok {
		return Run{}, false
	}
	return *run, true
}

// List returns snapshots of every known run, newest first.
func (r *Registry) List() []Run {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Run, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, *run)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

func (r *Registry) getOrCreateLocked(campaignID string) *Run {
	if run, ok := r.runs[campaignID]; ok {
		return run
	}

	run := &Run{
		CampaignID: campaignID,
		Status:     StatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	r.runs[campaignID] = run
	return run
}

// evictLocked drops the oldest finished runs once they exceed the
// retention cap. Active runs are never evicted.
func (r *Registry) evictLocked() {
	var finished []*Run
	for _, run := range r.runs {
		if run.Status != StatusRunning {
			finished = append(finished, run)
		}
	}
	if len(finished) <= r.maxFinished {
		return
	}

	sort.Slice(finished, func(i, j int) bool {
		return finished[i].StartedAt.Before(finished[j].StartedAt)
	})
	for _, run := range finished[:len(finished)-r.maxFinished] {
		delete(r.runs, run.CampaignID)
	}
}
