package backend

import (
	"context"

	"github.com/SirMem/xhs-frontend/internal/xhs"
)

// CountNotesRequest is the POST /xhs/count_notes_by_time_range payload.
type CountNotesRequest struct {
	Keyword     string `json:"keyword"`
	Cookies     string `json:"cookies,omitempty"`
	StartTimeMs int64  `json:"start_time_ms"`
	EndTimeMs   int64  `json:"end_time_ms"`
	NoteType    string `json:"note_type,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
	MaxPages    int    `json:"max_pages,omitempty"`
	SleepMsMin  int    `json:"sleep_ms_min,omitempty"`
	SleepMsMax  int    `json:"sleep_ms_max,omitempty"`
	Headless    bool   `json:"headless"`
}

// CountNotesResponse reports the approximate note count for a keyword in a
// time window.
type CountNotesResponse struct {
	Keyword          string `json:"keyword"`
	Count            int    `json:"count"`
	PagesScanned     int    `json:"pages_scanned"`
	OldestTimeSeenMs int64  `json:"oldest_time_seen_ms"`
	Truncated        bool   `json:"truncated"`
	UnknownTimeCount int    `json:"unknown_time_count"`
}

// CountNotesByTimeRange forwards a time-windowed counting job.
func (c *Client) CountNotesByTimeRange(ctx context.Context, req CountNotesRequest) (*CountNotesResponse, error) {
	var resp CountNotesResponse
	if err := c.post(ctx, "/xhs/count_notes_by_time_range", panelTimeout, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LowFanViralRequest is the POST /xhs/low_fan_viral payload.
type LowFanViralRequest struct {
	Keyword         string `json:"keyword"`
	Cookies         string `json:"cookies,omitempty"`
	LikeThreshold   int    `json:"like_threshold,omitempty"`
	FanThreshold    int    `json:"fan_threshold,omitempty"`
	Sort            string `json:"sort,omitempty"`
	NoteType        string `json:"note_type,omitempty"`
	PageSize        int    `json:"page_size,omitempty"`
	MaxResults      int    `json:"max_results,omitempty"`
	Concurrency     int    `json:"concurrency,omitempty"`
	CacheTTLSeconds int    `json:"cache_ttl_seconds,omitempty"`
	Headless        bool   `json:"headless"`
}

// LowFanViralResponse lists viral notes from low-follower creators. Result
// rows keep the backend's loose record shape.
type LowFanViralResponse struct {
	Keyword         string           `json:"keyword"`
	ScannedNotes    int              `json:"scanned_notes"`
	ViralCandidates int              `json:"viral_candidates"`
	CreatorsQueried int              `json:"creators_queried"`
	Results         []xhs.NoteRecord `json:"results"`
}

// LowFanViral forwards a low-follower/high-engagement filter job.
func (c *Client) LowFanViral(ctx context.Context, req LowFanViralRequest) (*LowFanViralResponse, error) {
	var resp LowFanViralResponse
	if err := c.post(ctx, "/xhs/low_fan_viral", viralTimeout, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ComplianceRequest is the POST /compliance/check payload. The AI settings
// override the server's own .env configuration when set.
type ComplianceRequest struct {
	Text              string  `json:"text,omitempty"`
	XhsNoteURL        string  `json:"xhs_note_url,omitempty"`
	Cookies           string  `json:"cookies,omitempty"`
	Headless          bool    `json:"headless"`
	SeverityThreshold int     `json:"severity_threshold,omitempty"`
	EnableAI          bool    `json:"enable_ai"`
	AIBaseURL         string  `json:"ai_base_url,omitempty"`
	AIAPIKey          string  `json:"ai_api_key,omitempty"`
	AIModel           string  `json:"ai_model,omitempty"`
	AITimeoutSeconds  int     `json:"ai_timeout_seconds,omitempty"`
	AITemperature     float64 `json:"ai_temperature,omitempty"`
	AIMaxTokens       int     `json:"ai_max_tokens,omitempty"`
}

// ComplianceAI is the AI evaluator's portion of a compliance verdict.
type ComplianceAI struct {
	Status         string   `json:"status"`
	Reason         string   `json:"reason"`
	RiskCategories []string `json:"risk_categories"`
	Evidence       []string `json:"evidence"`
	Rewrite        string   `json:"rewrite"`
	Suggestions    []string `json:"suggestions"`
}

// ComplianceFinal is the merged rule+AI verdict.
type ComplianceFinal struct {
	Passed     bool     `json:"passed"`
	RiskLevel  string   `json:"risk_level"`
	Categories []string `json:"categories"`
}

// ComplianceResponse is the POST /compliance/check result.
type ComplianceResponse struct {
	Text  string          `json:"text"`
	AI    ComplianceAI    `json:"ai"`
	Final ComplianceFinal `json:"final"`
}

// ComplianceCheck forwards a text compliance evaluation.
func (c *Client) ComplianceCheck(ctx context.Context, req ComplianceRequest) (*ComplianceResponse, error) {
	var resp ComplianceResponse
	if err := c.post(ctx, "/compliance/check", panelTimeout, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
