// Package resolver locates the backend artifact produced for a crawl and
// matches the record belonging to the requesting row.
package resolver

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/SirMem/xhs-frontend/internal/xhs"
)

// Defaults follow the backend's output conventions.
const (
	DefaultNameMarker   = "detail_contents"
	DefaultPreviewLimit = 2000
	DefaultFileType     = "json"
)

// FileAPI is the slice of the backend client the resolver needs.
type FileAPI interface {
	ListFiles(ctx context.Context, platform, fileType string) ([]xhs.ArtifactDescriptor, error)
	FetchPreview(ctx context.Context, path string, limit int) ([]xhs.NoteRecord, error)
}

// Config tunes artifact selection.
type Config struct {
	NameMarker   string
	PreviewLimit int
	FileType     string
}

// Resolver fetches result artifacts and matches records to target URLs. It
// tolerates heterogeneous response shapes and partially-typed records; a
// malformed field reads as absent, never as a failure.
type Resolver struct {
	api    FileAPI
	cfg    Config
	logger *zap.Logger
}

// New constructs a Resolver. Zero config fields fall back to defaults.
func New(api FileAPI, cfg Config, logger *zap.Logger) *Resolver {
	if cfg.NameMarker == "" {
		cfg.NameMarker = DefaultNameMarker
	}
	if cfg.PreviewLimit <= 0 {
		cfg.PreviewLimit = DefaultPreviewLimit
	}
	if cfg.FileType == "" {
		cfg.FileType = DefaultFileType
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{api: api, cfg: cfg, logger: logger}
}

// ListArtifacts returns the produced artifacts for the platform.
func (r *Resolver) ListArtifacts(ctx context.Context, platform string) ([]xhs.ArtifactDescriptor, error) {
	files, err := r.api.ListFiles(ctx, platform, r.cfg.FileType)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, xhs.NotFoundf("no data")
	}
	return files, nil
}

// SelectLatest filters descriptors to names containing marker and picks the
// most recently modified one. Ties keep the first encountered descriptor.
func SelectLatest(descriptors []xhs.ArtifactDescriptor, marker string) (xhs.ArtifactDescriptor, error) {
	var best xhs.ArtifactDescriptor
	found := false
	for _, d := range descriptors {
		if !strings.Contains(d.Name, marker) {
			continue
		}
		if !found || d.ModifiedAt > best.ModifiedAt {
			best = d
			found = true
		}
	}
	if !found {
		return xhs.ArtifactDescriptor{}, xhs.NotFoundf("no %s artifact produced", marker)
	}
	return best, nil
}

// FetchRecords reads a bounded preview of the artifact's records.
func (r *Resolver) FetchRecords(ctx context.Context, desc xhs.ArtifactDescriptor) ([]xhs.NoteRecord, error) {
	records, err := r.api.FetchPreview(ctx, desc.Path, r.cfg.PreviewLimit)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, xhs.NotFoundf("artifact %s contains no records", desc.Name)
	}
	return records, nil
}

// MatchRecord selects the record belonging to targetURL: an identifier match
// on note_id (equal) or note_url (substring) wins; with no identifier or no
// match the last record is returned as a fallback, the usual case for a
// single-item crawl. ok is false only for an empty list.
func MatchRecord(records []xhs.NoteRecord, targetURL string) (xhs.NoteRecord, bool) {
	if len(records) == 0 {
		return nil, false
	}
	if id := xhs.ExtractNoteID(targetURL); id != "" {
		for _, rec := range records {
			if rec.NoteID() == id {
				return rec, true
			}
			if u := rec.NoteURL(); u != "" && strings.Contains(u, id) {
				return rec, true
			}
		}
	}
	return records[len(records)-1], true
}

// Resolve runs the full artifact stage: list, select latest, fetch, match.
func (r *Resolver) Resolve(ctx context.Context, targetURL string) (xhs.NoteRecord, error) {
	files, err := r.ListArtifacts(ctx, xhs.Platform)
	if err != nil {
		return nil, err
	}
	latest, err := SelectLatest(files, r.cfg.NameMarker)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("selected artifact",
		zap.String("name", latest.Name),
		zap.Float64("modified_at", latest.ModifiedAt),
	)
	records, err := r.FetchRecords(ctx, latest)
	if err != nil {
		return nil, err
	}
	rec, ok := MatchRecord(records, targetURL)
	if !ok {
		return nil, xhs.NotFoundf("no matching record for %s", targetURL)
	}
	if id := xhs.ExtractNoteID(targetURL); id != "" && rec.NoteID() != id && !strings.Contains(rec.NoteURL(), id) {
		// Weak match: fallback may attach an unrelated note to this row.
		r.logger.Warn("no identifier match, using last record",
			zap.String("note_id", id),
			zap.String("matched_note_id", rec.NoteID()),
		)
	}
	return rec, nil
}
