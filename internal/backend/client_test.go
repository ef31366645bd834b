package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SirMem/xhs-frontend/internal/xhs"
)

func TestStartDetailCrawlPayload(t *testing.T) {
	t.Parallel()

	var got startCrawlRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/crawler/start", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	err := c.StartDetailCrawl(context.Background(), "https://www.xiaohongshu.com/explore/abc123", "a1=b2")
	require.NoError(t, err)

	require.Equal(t, "xhs", got.Platform)
	require.Equal(t, "cookie", got.LoginType)
	require.Equal(t, "detail", got.CrawlerType)
	require.Equal(t, "json", got.SaveOption)
	require.Equal(t, "https://www.xiaohongshu.com/explore/abc123", got.SpecifiedIDs)
	require.Equal(t, "a1=b2", got.Cookies)
	require.False(t, got.EnableComments)
	require.True(t, got.Headless)
}

func TestStatus(t *testing.T) {
	t.Parallel()

	status := "running"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/crawler/status", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)

	got, err := c.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, xhs.JobStatusRunning, got)

	status = "idle"
	got, err = c.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, xhs.JobStatusIdle, got)
}

func TestStatusTransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	c := New(srv.URL, nil)
	_, err := c.Status(context.Background())
	require.Error(t, err)
	require.Equal(t, xhs.KindNetwork, xhs.KindOf(err))
}

func TestBackendErrorCarriesDetail(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "cookie expired"})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	err := c.StartDetailCrawl(context.Background(), "u", "c")
	require.Error(t, err)
	require.Equal(t, xhs.KindBackend, xhs.KindOf(err))
	require.Equal(t, "cookie expired", xhs.UserMessage(err))
}

func TestListFiles(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/data/files", r.URL.Path)
		require.Equal(t, "xhs", r.URL.Query().Get("platform"))
		require.Equal(t, "json", r.URL.Query().Get("file_type"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"files": []map[string]any{
				{"name": "a_detail_contents.json", "path": "xhs/json/a_detail_contents.json", "modified_at": 100},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	files, err := c.ListFiles(context.Background(), "xhs", "json")
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "a_detail_contents.json", files[0].Name)
	require.Equal(t, float64(100), files[0].ModifiedAt)
}

func TestFetchPreviewShapes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{"bare list", `[{"note_id":"abc"},{"note_id":"def"}]`},
		{"wrapped list", `{"data":[{"note_id":"abc"},{"note_id":"def"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				// Path separators must survive escaping end to end.
				require.Equal(t, "/data/files/xhs/json/a_detail_contents.json", r.URL.Path)
				require.Equal(t, "true", r.URL.Query().Get("preview"))
				require.Equal(t, "2000", r.URL.Query().Get("limit"))
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := New(srv.URL, nil)
			records, err := c.FetchPreview(context.Background(), "xhs/json/a_detail_contents.json", 2000)
			require.NoError(t, err)
			require.Len(t, records, 2)
			require.Equal(t, "abc", records[0].NoteID())
		})
	}
}

func TestMonitorCheckNow(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/monitor/check_now", r.URL.Path)
		var req monitorNoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "abc123", req.NoteID)
		require.True(t, req.Headless)
		_ = json.NewEncoder(w).Encode(MonitorDelta{NoteID: "abc123", DeltaLikes: 7, DeltaComments: 2})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	delta, err := c.MonitorCheckNow(context.Background(), "abc123", "a1=b2")
	require.NoError(t, err)
	require.Equal(t, 7, delta.DeltaLikes)
	require.Equal(t, 2, delta.DeltaComments)
}

func TestCountNotesByTimeRange(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/xhs/count_notes_by_time_range", r.URL.Path)
		var req CountNotesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "考研", req.Keyword)
		_ = json.NewEncoder(w).Encode(CountNotesResponse{Keyword: req.Keyword, Count: 42, PagesScanned: 3})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	resp, err := c.CountNotesByTimeRange(context.Background(), CountNotesRequest{
		Keyword:     "考研",
		StartTimeMs: 1700000000000,
		EndTimeMs:   1700086400000,
		Headless:    true,
	})
	require.NoError(t, err)
	require.Equal(t, 42, resp.Count)
}
