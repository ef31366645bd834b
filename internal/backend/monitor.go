package backend

import "context"

// MonitorAddRequest is the POST /monitor/add_note payload.
type MonitorAddRequest struct {
	NoteURL                string `json:"note_url,omitempty"`
	NoteID                 string `json:"note_id,omitempty"`
	XsecToken              string `json:"xsec_token,omitempty"`
	XsecSource             string `json:"xsec_source,omitempty"`
	LikeGrowthThreshold    int    `json:"like_growth_threshold,omitempty"`
	CommentGrowthThreshold int    `json:"comment_growth_threshold,omitempty"`
	CheckIntervalMinutes   int    `json:"check_interval_minutes,omitempty"`
	IsActive               bool   `json:"is_active"`
	Cookies                string `json:"cookies,omitempty"`
	Headless               bool   `json:"headless"`
	InitializeBaseline     bool   `json:"initialize_baseline"`
}

// MonitorItem is one monitored note. The monitoring worker owns this schema
// and extends it between releases, so it stays a loose map.
type MonitorItem map[string]any

type monitorListResponse struct {
	Items []MonitorItem `json:"items"`
}

// MonitorDelta reports the engagement growth measured by a check.
type MonitorDelta struct {
	NoteID        string `json:"note_id"`
	DeltaLikes    int    `json:"delta_likes"`
	DeltaComments int    `json:"delta_comments"`
}

// MonitorUpdateRequest carries a partial update keyed by note_id. Pointer
// fields distinguish "unset" from zero values.
type MonitorUpdateRequest struct {
	NoteID                 string `json:"note_id"`
	IsActive               *bool  `json:"is_active,omitempty"`
	LikeGrowthThreshold    *int   `json:"like_growth_threshold,omitempty"`
	CommentGrowthThreshold *int   `json:"comment_growth_threshold,omitempty"`
	CheckIntervalMinutes   *int   `json:"check_interval_minutes,omitempty"`
}

type monitorNoteRequest struct {
	NoteID   string `json:"note_id"`
	Cookies  string `json:"cookies,omitempty"`
	Headless bool   `json:"headless"`
}

type monitorDeleteRequest struct {
	NoteID string `json:"note_id"`
}

// MonitorAddNote registers a note with the engagement monitoring worker.
func (c *Client) MonitorAddNote(ctx context.Context, req MonitorAddRequest) (MonitorItem, error) {
	var item MonitorItem
	if err := c.post(ctx, "/monitor/add_note", panelTimeout, req, &item); err != nil {
		return nil, err
	}
	return item, nil
}

// MonitorList returns all monitored notes.
func (c *Client) MonitorList(ctx context.Context) ([]MonitorItem, error) {
	var resp monitorListResponse
	if err := c.get(ctx, "/monitor/list", filesTimeout, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// MonitorCheckNow triggers an immediate engagement check for one note.
func (c *Client) MonitorCheckNow(ctx context.Context, noteID, cookies string) (*MonitorDelta, error) {
	var delta MonitorDelta
	req := monitorNoteRequest{NoteID: noteID, Cookies: cookies, Headless: true}
	if err := c.post(ctx, "/monitor/check_now", panelTimeout, req, &delta); err != nil {
		return nil, err
	}
	return &delta, nil
}

// MonitorResetBaseline re-seeds a note's engagement baseline at its current
// counts.
func (c *Client) MonitorResetBaseline(ctx context.Context, noteID, cookies string) error {
	req := monitorNoteRequest{NoteID: noteID, Cookies: cookies, Headless: true}
	return c.post(ctx, "/monitor/reset_baseline", panelTimeout, req, nil)
}

// MonitorDeleteNote removes a note from monitoring.
func (c *Client) MonitorDeleteNote(ctx context.Context, noteID string) error {
	return c.post(ctx, "/monitor/delete_note", filesTimeout, monitorDeleteRequest{NoteID: noteID}, nil)
}

// MonitorUpdateNote applies a partial update to a monitored note.
func (c *Client) MonitorUpdateNote(ctx context.Context, req MonitorUpdateRequest) error {
	return c.post(ctx, "/monitor/update_note", filesTimeout, req, nil)
}
