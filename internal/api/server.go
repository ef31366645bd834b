// Package api exposes the HTTP interface for the plugin service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/SirMem/xhs-frontend/internal/backend"
	"github.com/SirMem/xhs-frontend/internal/metrics"
	"github.com/SirMem/xhs-frontend/internal/orchestrator"
	"github.com/SirMem/xhs-frontend/internal/progress"
	"github.com/SirMem/xhs-frontend/internal/session"
	"github.com/SirMem/xhs-frontend/internal/xhs"
)

// Runner triggers crawl runs. Satisfied by orchestrator.Orchestrator.
type Runner interface {
	Run(ctx context.Context, input orchestrator.RunInput) (orchestrator.Result, error)
	Busy() bool
}

// PanelBackend is the slice of the backend client the pass-through panels
// forward to.
type PanelBackend interface {
	CountNotesByTimeRange(ctx context.Context, req backend.CountNotesRequest) (*backend.CountNotesResponse, error)
	LowFanViral(ctx context.Context, req backend.LowFanViralRequest) (*backend.LowFanViralResponse, error)
	ComplianceCheck(ctx context.Context, req backend.ComplianceRequest) (*backend.ComplianceResponse, error)
	MonitorAddNote(ctx context.Context, req backend.MonitorAddRequest) (backend.MonitorItem, error)
	MonitorList(ctx context.Context) ([]backend.MonitorItem, error)
	MonitorCheckNow(ctx context.Context, noteID, cookies string) (*backend.MonitorDelta, error)
	MonitorResetBaseline(ctx context.Context, noteID, cookies string) error
	MonitorDeleteNote(ctx context.Context, noteID string) error
	MonitorUpdateNote(ctx context.Context, req backend.MonitorUpdateRequest) error
}

// Server wires HTTP handlers to the orchestrator, session, table, and
// backend.
type Server struct {
	router  chi.Router
	runner  Runner
	backend PanelBackend
	session *session.Session
	table   xhs.Table
	log     *progress.Log
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	runner Runner,
	panels PanelBackend,
	sess *session.Session,
	table xhs.Table,
	log *progress.Log,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runner:  runner,
		backend: panels,
		session: sess,
		table:   table,
		log:     log,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(5 * time.Minute))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/crawl", func(r chi.Router) {
			r.Post("/", s.triggerCrawl)
			r.Get("/log", s.crawlLog)
		})
		r.Get("/table/fields", s.listFields)
		r.Route("/session", func(r chi.Router) {
			r.Get("/cookie", s.getCookie)
			r.Put("/cookie", s.putCookie)
		})
		r.Route("/xhs", func(r chi.Router) {
			r.Post("/count", s.countNotes)
			r.Post("/low_fan_viral", s.lowFanViral)
		})
		r.Post("/compliance/check", s.complianceCheck)
		r.Route("/monitor/notes", func(r chi.Router) {
			r.Post("/", s.monitorAdd)
			r.Get("/", s.monitorList)
			r.Route("/{note_id}", func(r chi.Router) {
				r.Patch("/", s.monitorUpdate)
				r.Delete("/", s.monitorDelete)
				r.Post("/check", s.monitorCheckNow)
				r.Post("/reset", s.monitorResetBaseline)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "busy": s.runner.Busy()})
}

type crawlRequest struct {
	FieldID      string   `json:"field_id"`
	RecordID     string   `json:"record_id"`
	SelectedKeys []string `json:"selected_keys"`
}

type crawlWrite struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

type crawlResponse struct {
	RunID  string       `json:"run_id"`
	NoteID string       `json:"note_id"`
	Writes []crawlWrite `json:"writes"`
}

func (s *Server) triggerCrawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	result, err := s.runner.Run(r.Context(), orchestrator.RunInput{
		FieldID:      req.FieldID,
		RecordID:     req.RecordID,
		SelectedKeys: req.SelectedKeys,
	})
	if err != nil {
		writeClassified(w, err)
		return
	}
	resp := crawlResponse{
		RunID:  result.RunID.String(),
		NoteID: result.Record.NoteID(),
		Writes: make([]crawlWrite, 0, len(result.Writes)),
	}
	for _, wr := range result.Writes {
		resp.Writes = append(resp.Writes, crawlWrite{Field: wr.Field, Value: wr.Value})
	}
	writeJSON(w, http.StatusOK, resp)
}

type fieldMeta struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// listFields backs the link-column picker: it lists table columns of one
// type, defaulting to URL columns.
func (s *Server) listFields(w http.ResponseWriter, r *http.Request) {
	fieldType := xhs.FieldURL
	if raw := r.URL.Query().Get("type"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "type must be an integer")
			return
		}
		fieldType = xhs.FieldType(n)
	}
	metas, err := s.table.FieldMetaListByType(r.Context(), fieldType)
	if err != nil {
		writeClassified(w, err)
		return
	}
	out := make([]fieldMeta, 0, len(metas))
	for _, m := range metas {
		out = append(out, fieldMeta{ID: m.ID, Name: m.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"fields": out})
}

func (s *Server) crawlLog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"lines": s.log.Lines()})
}

type cookieRequest struct {
	Cookie string `json:"cookie"`
}

func (s *Server) getCookie(w http.ResponseWriter, _ *http.Request) {
	cookie := s.session.Cookie()
	writeJSON(w, http.StatusOK, map[string]any{
		"cookie": session.Masked(cookie),
		"set":    cookie != "",
	})
}

func (s *Server) putCookie(w http.ResponseWriter, r *http.Request) {
	var req cookieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.session.SetCookie(r.Context(), req.Cookie); err != nil {
		s.logger.Error("saving cookie failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "saving cookie failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) countNotes(w http.ResponseWriter, r *http.Request) {
	var req backend.CountNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Keyword == "" {
		writeError(w, http.StatusBadRequest, "keyword is required")
		return
	}
	if req.EndTimeMs < req.StartTimeMs {
		writeError(w, http.StatusBadRequest, "end_time_ms must not precede start_time_ms")
		return
	}
	if req.Cookies == "" {
		req.Cookies = s.session.Cookie()
	}
	resp, err := s.backend.CountNotesByTimeRange(r.Context(), req)
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) lowFanViral(w http.ResponseWriter, r *http.Request) {
	var req backend.LowFanViralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Keyword == "" {
		writeError(w, http.StatusBadRequest, "keyword is required")
		return
	}
	if req.Cookies == "" {
		req.Cookies = s.session.Cookie()
	}
	resp, err := s.backend.LowFanViral(r.Context(), req)
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) complianceCheck(w http.ResponseWriter, r *http.Request) {
	var req backend.ComplianceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	resp, err := s.backend.ComplianceCheck(r.Context(), req)
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) monitorAdd(w http.ResponseWriter, r *http.Request) {
	var req backend.MonitorAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.NoteURL == "" && req.NoteID == "" {
		writeError(w, http.StatusBadRequest, "note_url or note_id is required")
		return
	}
	if req.Cookies == "" {
		req.Cookies = s.session.Cookie()
	}
	item, err := s.backend.MonitorAddNote(r.Context(), req)
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) monitorList(w http.ResponseWriter, r *http.Request) {
	items, err := s.backend.MonitorList(r.Context())
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) monitorUpdate(w http.ResponseWriter, r *http.Request) {
	var req backend.MonitorUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.NoteID = chi.URLParam(r, "note_id")
	if err := s.backend.MonitorUpdateNote(r.Context(), req); err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) monitorDelete(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "note_id")
	if err := s.backend.MonitorDeleteNote(r.Context(), noteID); err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) monitorCheckNow(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "note_id")
	delta, err := s.backend.MonitorCheckNow(r.Context(), noteID, s.session.Cookie())
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, delta)
}

func (s *Server) monitorResetBaseline(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "note_id")
	if err := s.backend.MonitorResetBaseline(r.Context(), noteID, s.session.Cookie()); err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// statusForKind maps failure classifications to HTTP statuses.
func statusForKind(kind xhs.Kind) int {
	switch kind {
	case xhs.KindValidation:
		return http.StatusBadRequest
	case xhs.KindNotFound:
		return http.StatusNotFound
	case xhs.KindTimeout:
		return http.StatusGatewayTimeout
	case xhs.KindNetwork, xhs.KindBackend:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeClassified(w http.ResponseWriter, err error) {
	writeJSON(w, statusForKind(xhs.KindOf(err)), map[string]string{
		"error": xhs.UserMessage(err),
		"kind":  string(xhs.KindOf(err)),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
