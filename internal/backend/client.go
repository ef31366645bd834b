// Package backend implements the JSON client for the crawler backend. Every
// call is synchronous request/response; the client never retries internally.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SirMem/xhs-frontend/internal/xhs"
)

// Per-operation timeouts. Start is deliberately short: it only has to get
// the job accepted, not wait for it.
const (
	startTimeout  = 10 * time.Second
	statusTimeout = 10 * time.Second
	filesTimeout  = 30 * time.Second
	panelTimeout  = 60 * time.Second
	viralTimeout  = 120 * time.Second
)

// Client is a stateless wrapper around the backend HTTP API. The base URL
// should include the /api prefix, e.g. https://www.inkflow.chat/api.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New constructs a Client. The base URL is trimmed of trailing slashes.
func New(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		logger:  logger,
	}
}

// detailBody is the error payload shape the backend emits on non-2xx
// responses. FastAPI uses "detail"; older builds used "message".
type detailBody struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

// do issues one JSON request and decodes a 2xx response into out (when out
// is non-nil). Non-2xx responses map to a backend error carrying the server
// detail; transport failures map to a network error.
func (c *Client) do(ctx context.Context, method, path string, timeout time.Duration, query url.Values, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return xhs.Network("backend unreachable", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("dur", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var detail detailBody
		_ = json.Unmarshal(raw, &detail)
		msg := detail.Detail
		if msg == "" {
			msg = detail.Message
		}
		if msg == "" {
			msg = fmt.Sprintf("backend returned status %d", resp.StatusCode)
		}
		return xhs.Backend(msg, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return xhs.Backend("invalid backend response", fmt.Errorf("decode %s %s: %w", method, path, err))
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, timeout time.Duration, body, out any) error {
	return c.do(ctx, http.MethodPost, path, timeout, nil, body, out)
}

func (c *Client) get(ctx context.Context, path string, timeout time.Duration, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, timeout, query, nil, out)
}
