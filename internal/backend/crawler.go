package backend

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/SirMem/xhs-frontend/internal/xhs"
)

// startCrawlRequest is the POST /crawler/start payload. The server side runs
// without an X server, so headless stays pinned on.
type startCrawlRequest struct {
	Platform       string `json:"platform"`
	LoginType      string `json:"login_type"`
	CrawlerType    string `json:"crawler_type"`
	SaveOption     string `json:"save_option"`
	SpecifiedIDs   string `json:"specified_ids"`
	Cookies        string `json:"cookies"`
	EnableComments bool   `json:"enable_comments"`
	Headless       bool   `json:"headless"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type filesResponse struct {
	Files []xhs.ArtifactDescriptor `json:"files"`
}

// StartDetailCrawl asks the backend to accept a single-note detail crawl for
// targetURL. The response body is ignored; only acceptance matters.
func (c *Client) StartDetailCrawl(ctx context.Context, targetURL, cookie string) error {
	req := startCrawlRequest{
		Platform:       xhs.Platform,
		LoginType:      "cookie",
		CrawlerType:    "detail",
		SaveOption:     "json",
		SpecifiedIDs:   targetURL,
		Cookies:        cookie,
		EnableComments: false,
		Headless:       true,
	}
	return c.post(ctx, "/crawler/start", startTimeout, req, nil)
}

// Status reports the backend crawler's current state. Failures are returned
// as an error and the caller treats the tick as indeterminate; Status itself
// never panics or aborts a poll loop.
func (c *Client) Status(ctx context.Context) (xhs.JobStatus, error) {
	var resp statusResponse
	if err := c.get(ctx, "/crawler/status", statusTimeout, nil, &resp); err != nil {
		return "", err
	}
	if resp.Status == string(xhs.JobStatusIdle) {
		return xhs.JobStatusIdle, nil
	}
	return xhs.JobStatusRunning, nil
}

// ListFiles returns the result artifacts the backend has produced for the
// platform and file type.
func (c *Client) ListFiles(ctx context.Context, platform, fileType string) ([]xhs.ArtifactDescriptor, error) {
	q := url.Values{}
	q.Set("platform", platform)
	q.Set("file_type", fileType)
	var resp filesResponse
	if err := c.get(ctx, "/data/files", filesTimeout, q, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// FetchPreview reads at most limit records from one artifact. The artifact
// path is escaped per segment: the backend routes on the raw path, so the
// separators must survive (%2F would 404).
func (c *Client) FetchPreview(ctx context.Context, path string, limit int) ([]xhs.NoteRecord, error) {
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	q := url.Values{}
	q.Set("preview", "true")
	q.Set("limit", strconv.Itoa(limit))

	var raw json.RawMessage
	if err := c.get(ctx, "/data/files/"+strings.Join(segments, "/"), filesTimeout, q, &raw); err != nil {
		return nil, err
	}
	return normalizeRecords(raw)
}

// normalizeRecords accepts both response shapes the backend emits: a bare
// array of records or an object wrapping the array under "data".
func normalizeRecords(raw json.RawMessage) ([]xhs.NoteRecord, error) {
	var list []xhs.NoteRecord
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Data []xhs.NoteRecord `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, xhs.Backend("invalid backend response", err)
	}
	return wrapped.Data, nil
}
