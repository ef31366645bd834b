// Package lark implements the host-table capability against the Base open
// API, replacing the in-client js-sdk bridge when the plugin runs server
// side.
package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SirMem/xhs-frontend/internal/xhs"
)

// DefaultBaseURL is the public Feishu open-api endpoint.
const DefaultBaseURL = "https://open.feishu.cn"

// Config identifies the Base document and the app credentials used to reach
// it.
type Config struct {
	BaseURL   string
	AppID     string
	AppSecret string
	AppToken  string
	TableID   string
}

// Table talks to one Base table over the open API. It caches the tenant
// access token until shortly before expiry.
type Table struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New constructs a Table client.
func New(cfg Config, logger *zap.Logger) (*Table, error) {
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return nil, fmt.Errorf("lark app credentials are required")
	}
	if cfg.AppToken == "" || cfg.TableID == "" {
		return nil, fmt.Errorf("lark app_token and table_id are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Table{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}, nil
}

type tokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"`
}

func (t *Table) accessToken(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.token != "" && time.Now().Before(t.tokenExpiry) {
		return t.token, nil
	}

	payload, _ := json.Marshal(map[string]string{
		"app_id":     t.cfg.AppID,
		"app_secret": t.cfg.AppSecret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.cfg.BaseURL+"/open-apis/auth/v3/tenant_access_token/internal", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return "", xhs.Network("host table unreachable", err)
	}
	defer resp.Body.Close()

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tok.Code != 0 {
		return "", fmt.Errorf("tenant token refused: %s (code %d)", tok.Msg, tok.Code)
	}

	t.token = tok.TenantAccessToken
	// Refresh a minute early to avoid using a token that dies mid-run.
	t.tokenExpiry = time.Now().Add(time.Duration(tok.Expire-60) * time.Second)
	return t.token, nil
}

// envelope is the common open-api response wrapper.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (t *Table) call(ctx context.Context, method, path string, body, out any) error {
	token, err := t.accessToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return xhs.Network("host table unreachable", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if env.Code != 0 {
		return fmt.Errorf("open-api %s %s: %s (code %d)", method, path, env.Msg, env.Code)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s data: %w", method, path, err)
	}
	return nil
}

func (t *Table) tablePath(suffix string) string {
	return fmt.Sprintf("/open-apis/bitable/v1/apps/%s/tables/%s%s",
		url.PathEscape(t.cfg.AppToken), url.PathEscape(t.cfg.TableID), suffix)
}

type fieldItem struct {
	FieldID   string `json:"field_id"`
	FieldName string `json:"field_name"`
	Type      int    `json:"type"`
}

type fieldListData struct {
	Items     []fieldItem `json:"items"`
	PageToken string      `json:"page_token"`
	HasMore   bool        `json:"has_more"`
}

func (t *Table) listFields(ctx context.Context) ([]fieldItem, error) {
	var all []fieldItem
	pageToken := ""
	for {
		path := t.tablePath("/fields?page_size=100")
		if pageToken != "" {
			path += "&page_token=" + url.QueryEscape(pageToken)
		}
		var data fieldListData
		if err := t.call(ctx, http.MethodGet, path, nil, &data); err != nil {
			return nil, err
		}
		all = append(all, data.Items...)
		if !data.HasMore {
			return all, nil
		}
		pageToken = data.PageToken
	}
}

// Field resolves a column by id.
func (t *Table) Field(ctx context.Context, id string) (xhs.FieldHandle, error) {
	fields, err := t.listFields(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if f.FieldID == id {
			return &handle{table: t, fieldName: f.FieldName}, nil
		}
	}
	return nil, xhs.ErrFieldNotFound
}

// FieldByName resolves a column by display name.
func (t *Table) FieldByName(ctx context.Context, name string) (xhs.FieldHandle, error) {
	fields, err := t.listFields(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if f.FieldName == name {
			return &handle{table: t, fieldName: f.FieldName}, nil
		}
	}
	return nil, xhs.ErrFieldNotFound
}

// AddField creates a column with the declared type and returns its id.
func (t *Table) AddField(ctx context.Context, spec xhs.FieldSpec) (string, error) {
	body := map[string]any{"field_name": spec.Name, "type": int(spec.Type)}
	var data struct {
		Field fieldItem `json:"field"`
	}
	if err := t.call(ctx, http.MethodPost, t.tablePath("/fields"), body, &data); err != nil {
		return "", err
	}
	return data.Field.FieldID, nil
}

// FieldMetaListByType lists columns of the given declared type.
func (t *Table) FieldMetaListByType(ctx context.Context, ft xhs.FieldType) ([]xhs.FieldMeta, error) {
	fields, err := t.listFields(ctx)
	if err != nil {
		return nil, err
	}
	var metas []xhs.FieldMeta
	for _, f := range fields {
		if f.Type == int(ft) {
			metas = append(metas, xhs.FieldMeta{ID: f.FieldID, Name: f.FieldName})
		}
	}
	return metas, nil
}

// Selection is a client-side concept; the open API has no cursor. The
// caller must pass an explicit record id instead.
func (t *Table) Selection(context.Context) (xhs.Selection, error) {
	return xhs.Selection{}, xhs.Validationf("no record selected: pass record_id explicitly")
}

// handle reads and writes one column. Record payloads key cells by field
// name, not id.
type handle struct {
	table     *Table
	fieldName string
}

type recordData struct {
	Record struct {
		Fields map[string]any `json:"fields"`
	} `json:"record"`
}

// Value reads the cell and normalizes it to the CellValue union. URL cells
// arrive as segment lists carrying text and link; text cells as strings or
// segment lists.
func (h *handle) Value(ctx context.Context, recordID string) (xhs.CellValue, error) {
	var data recordData
	path := h.table.tablePath("/records/" + url.PathEscape(recordID))
	if err := h.table.call(ctx, http.MethodGet, path, nil, &data); err != nil {
		return xhs.CellValue{}, err
	}
	return normalizeCell(data.Record.Fields[h.fieldName]), nil
}

// SetValue writes the cell, overwriting any previous value.
func (h *handle) SetValue(ctx context.Context, recordID string, value any) error {
	body := map[string]any{"fields": map[string]any{h.fieldName: value}}
	path := h.table.tablePath("/records/" + url.PathEscape(recordID))
	return h.table.call(ctx, http.MethodPut, path, body, nil)
}

// normalizeCell converts a raw open-api cell payload to the tagged union.
// Link segments win over plain text when both appear.
func normalizeCell(raw any) xhs.CellValue {
	switch v := raw.(type) {
	case nil:
		return xhs.CellValue{Kind: xhs.CellEmpty}
	case string:
		return xhs.CellValue{Kind: xhs.CellText, Text: v}
	case []any:
		if len(v) == 0 {
			return xhs.CellValue{Kind: xhs.CellEmpty}
		}
		seg, ok := v[0].(map[string]any)
		if !ok {
			return xhs.CellValue{Kind: xhs.CellEmpty}
		}
		if link, ok := seg["link"].(string); ok && link != "" {
			return xhs.CellValue{Kind: xhs.CellLink, Text: link}
		}
		if text, ok := seg["text"].(string); ok && text != "" {
			return xhs.CellValue{Kind: xhs.CellText, Text: text}
		}
		return xhs.CellValue{Kind: xhs.CellEmpty}
	default:
		return xhs.CellValue{Kind: xhs.CellEmpty}
	}
}
