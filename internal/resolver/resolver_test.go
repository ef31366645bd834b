package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SirMem/xhs-frontend/internal/xhs"
)

type fakeFileAPI struct {
	files   []xhs.ArtifactDescriptor
	records map[string][]xhs.NoteRecord

	listErr  error
	fetchErr error

	lastLimit int
	lastPath  string
}

func (f *fakeFileAPI) ListFiles(_ context.Context, _, _ string) ([]xhs.ArtifactDescriptor, error) {
	return f.files, f.listErr
}

func (f *fakeFileAPI) FetchPreview(_ context.Context, path string, limit int) ([]xhs.NoteRecord, error) {
	f.lastPath = path
	f.lastLimit = limit
	return f.records[path], f.fetchErr
}

func TestSelectLatest(t *testing.T) {
	t.Parallel()

	files := []xhs.ArtifactDescriptor{
		{Name: "a_detail_contents.json", Path: "a", ModifiedAt: 100},
		{Name: "b_detail_contents.json", Path: "b", ModifiedAt: 200},
		{Name: "search_contents.json", Path: "c", ModifiedAt: 999},
	}
	got, err := SelectLatest(files, DefaultNameMarker)
	require.NoError(t, err)
	require.Equal(t, "b_detail_contents.json", got.Name)
}

func TestSelectLatestTieKeepsFirst(t *testing.T) {
	t.Parallel()

	files := []xhs.ArtifactDescriptor{
		{Name: "first_detail_contents.json", ModifiedAt: 100},
		{Name: "second_detail_contents.json", ModifiedAt: 100},
	}
	got, err := SelectLatest(files, DefaultNameMarker)
	require.NoError(t, err)
	require.Equal(t, "first_detail_contents.json", got.Name)
}

func TestSelectLatestNoConventionMatch(t *testing.T) {
	t.Parallel()

	files := []xhs.ArtifactDescriptor{{Name: "search_contents.json", ModifiedAt: 100}}
	_, err := SelectLatest(files, DefaultNameMarker)
	require.Error(t, err)
	require.Equal(t, xhs.KindNotFound, xhs.KindOf(err))
}

func TestMatchRecordByIdentifier(t *testing.T) {
	t.Parallel()

	records := []xhs.NoteRecord{
		{"note_id": "zzz", "title": "other"},
		{"note_id": "abc123", "title": "wanted"},
		{"note_id": "yyy", "title": "last"},
	}
	rec, ok := MatchRecord(records, "https://www.xiaohongshu.com/explore/abc123?xsec_token=xyz")
	require.True(t, ok)
	require.Equal(t, "abc123", rec.NoteID())
}

func TestMatchRecordByURLSubstring(t *testing.T) {
	t.Parallel()

	records := []xhs.NoteRecord{
		{"note_id": "zzz"},
		{"note_url": "https://www.xiaohongshu.com/explore/abc123?from=share"},
	}
	rec, ok := MatchRecord(records, "https://www.xiaohongshu.com/explore/abc123")
	require.True(t, ok)
	require.Contains(t, rec.NoteURL(), "abc123")
}

func TestMatchRecordFallbackToLast(t *testing.T) {
	t.Parallel()

	records := []xhs.NoteRecord{
		{"note_id": "first"},
		{"note_id": "last"},
	}

	// No identifier in the URL.
	rec, ok := MatchRecord(records, "https://www.xiaohongshu.com/")
	require.True(t, ok)
	require.Equal(t, "last", rec.NoteID())

	// Identifier present but unmatched.
	rec, ok = MatchRecord(records, "https://www.xiaohongshu.com/explore/nomatch")
	require.True(t, ok)
	require.Equal(t, "last", rec.NoteID())
}

func TestMatchRecordEmptyList(t *testing.T) {
	t.Parallel()

	_, ok := MatchRecord(nil, "https://www.xiaohongshu.com/explore/abc123")
	require.False(t, ok)
}

func TestResolveEndToEnd(t *testing.T) {
	t.Parallel()

	api := &fakeFileAPI{
		files: []xhs.ArtifactDescriptor{
			{Name: "old_detail_contents.json", Path: "xhs/json/old.json", ModifiedAt: 100},
			{Name: "new_detail_contents.json", Path: "xhs/json/new.json", ModifiedAt: 200},
		},
		records: map[string][]xhs.NoteRecord{
			"xhs/json/new.json": {
				{"note_id": "zzz"},
				{"note_id": "abc123", "title": "wanted"},
			},
		},
	}
	r := New(api, Config{}, nil)

	rec, err := r.Resolve(context.Background(), "https://www.xiaohongshu.com/explore/abc123")
	require.NoError(t, err)
	require.Equal(t, "abc123", rec.NoteID())
	require.Equal(t, "xhs/json/new.json", api.lastPath)
	require.Equal(t, DefaultPreviewLimit, api.lastLimit)
}

func TestResolveNoArtifacts(t *testing.T) {
	t.Parallel()

	r := New(&fakeFileAPI{}, Config{}, nil)
	_, err := r.Resolve(context.Background(), "https://www.xiaohongshu.com/explore/abc123")
	require.Error(t, err)
	require.Equal(t, xhs.KindNotFound, xhs.KindOf(err))
	require.Equal(t, "no data", xhs.UserMessage(err))
}

func TestResolveEmptyArtifact(t *testing.T) {
	t.Parallel()

	api := &fakeFileAPI{
		files: []xhs.ArtifactDescriptor{
			{Name: "a_detail_contents.json", Path: "xhs/json/a.json", ModifiedAt: 100},
		},
		records: map[string][]xhs.NoteRecord{},
	}
	r := New(api, Config{}, nil)
	_, err := r.Resolve(context.Background(), "https://www.xiaohongshu.com/explore/abc123")
	require.Error(t, err)
	require.Equal(t, xhs.KindNotFound, xhs.KindOf(err))
}
