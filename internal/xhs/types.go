// Package xhs defines core types shared across the plugin subsystems.
package xhs

import (
	"strconv"
	"strings"
)

// Platform is the backend platform tag for Xiaohongshu.
const Platform = "xhs"

// PlatformMarker must appear in any target URL before a crawl is attempted.
const PlatformMarker = "xiaohongshu"

// JobStatus represents the backend crawler's reported state.
type JobStatus string

// Backend crawler states. Anything other than "idle" counts as running.
const (
	JobStatusIdle    JobStatus = "idle"
	JobStatusRunning JobStatus = "running"
)

// CrawlRequest captures one user-triggered extraction. It is immutable once
// submitted and lives only for the duration of a single orchestration run.
type CrawlRequest struct {
	TargetURL string
	Cookie    string
	RecordID  string
}

// Validate enforces the fail-fast checks performed before any remote call.
func (r CrawlRequest) Validate() error {
	if strings.TrimSpace(r.Cookie) == "" {
		return Validationf("cookie is required")
	}
	if strings.TrimSpace(r.TargetURL) == "" {
		return Validationf("target url is required")
	}
	if !strings.Contains(r.TargetURL, PlatformMarker) {
		return Validationf("selected cell is not a %s note link", PlatformMarker)
	}
	if r.RecordID == "" {
		return Validationf("no record selected")
	}
	return nil
}

// ArtifactDescriptor describes one result file produced by the backend.
type ArtifactDescriptor struct {
	Name       string  `json:"name"`
	Path       string  `json:"path"`
	ModifiedAt float64 `json:"modified_at"`
}

// NoteRecord is one extracted note as emitted by the backend. The backend's
// field set drifts between crawler versions, so the record stays loosely
// typed and all reads are tolerant: a missing or mistyped field reads as
// absent, never as an error.
type NoteRecord map[string]any

// Well-known NoteRecord keys.
const (
	KeyTitle      = "title"
	KeyNickname   = "nickname"
	KeyDesc       = "desc"
	KeyLikedCount = "liked_count"
	KeyTime       = "time"
	KeyNoteURL    = "note_url"
	KeyNoteID     = "note_id"
)

// Value reports the raw value for key. Nil values and empty strings count as
// absent.
func (n NoteRecord) Value(key string) (any, bool) {
	v, ok := n[key]
	if !ok || v == nil {
		return nil, false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return nil, false
	}
	return v, true
}

// String reads key as a string. Scalar numbers are formatted; composite
// values read as absent.
func (n NoteRecord) String(key string) (string, bool) {
	v, ok := n.Value(key)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		return "", false
	}
}

// Number reads key as a number. JSON decoding yields float64; numeric strings
// such as "1234" are accepted because the backend serializes counters both
// ways.
func (n NoteRecord) Number(key string) (float64, bool) {
	v, ok := n.Value(key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// NoteID returns the record's identifier, if present.
func (n NoteRecord) NoteID() string {
	s, _ := n.String(KeyNoteID)
	return s
}

// NoteURL returns the record's canonical URL, if present.
func (n NoteRecord) NoteURL() string {
	s, _ := n.String(KeyNoteURL)
	return s
}

// FieldType mirrors the host table's declared column types. The values match
// the Base field type enum so the Lark implementation can pass them through.
type FieldType int

// Host table field types used by this plugin.
const (
	FieldText     FieldType = 1
	FieldNumber   FieldType = 2
	FieldDateTime FieldType = 5
	FieldURL      FieldType = 15
)

// FieldDeclaration maps one NoteRecord key onto a host table column.
type FieldDeclaration struct {
	Key         string
	DisplayName string
	Type        FieldType
}

// CellKind tags the normalized shape of a host table cell.
type CellKind string

// Cell shapes produced by table implementations.
const (
	CellEmpty CellKind = "empty"
	CellLink  CellKind = "link"
	CellText  CellKind = "text"
)

// CellValue is the tagged union a table implementation normalizes raw cell
// payloads into. Deeper pipeline stages never branch on backend shapes.
type CellValue struct {
	Kind CellKind
	Text string
}

// IsEmpty reports whether the cell carries no usable text.
func (c CellValue) IsEmpty() bool {
	return c.Kind == CellEmpty || c.Text == ""
}
