package campaign

import "time"

type EventType string

const (
	EventProgress EventType = "progress"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

const (
	StatusGenerating = "generating"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Event is one frame of the progress stream. Frames are emitted in
// unit order: a generating frame before each unit, a completed or
// error frame after it, and one terminal complete or error frame for
// the run. Serialized as NDJSON by the callers that stream it.
type Event struct {
	Type        EventType   `json:"type"`
	Timestamp   time.Time   `json:"timestamp"`
	CampaignID  string      `json:"campaignId,omitempty"`
	Index       int         `json:"index,omitempty"` // 1-based unit index
	Total       int         `json:"total,omitempty"`
	Product     string      `json:"product,omitempty"`
	AspectRatio string      `json:"aspectRatio,omitempty"`
	Status      string      `json:"status,omitempty"`
	Message     string      `json:"message,omitempty"`
	Summary     *RunSummary `json:"summary,omitempty"`
}

type RunSummary struct {
	CampaignID       string   `json:"campaignId"`
	TotalAssets      int      `json:"totalAssets"`
	SuccessfulAssets int      `json:"successfulAssets"`
	FailedAssets     int      `json:"failedAssets"`
	SampleAssets     []string `json:"sampleAssets,omitempty"`
}

func (e Event) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}
