package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"versecull/internal/model"
	"versecull/internal/store"
)

func poemID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ---------------------------------------------------------------------------
// GET /api/poems
// ---------------------------------------------------------------------------

func (s *Server) handleListPoems(w http.ResponseWriter, r *http.Request) {
	filter := store.Filter{
		Query:  r.URL.Query().Get("q"),
		Status: r.URL.Query().Get("status"),
	}
	poems := s.store.List(filter)
	if poems == nil {
		poems = []model.Poem{}
	}
	writeJSON(w, http.StatusOK, poems)
}

// ---------------------------------------------------------------------------
// POST /api/poems
// ---------------------------------------------------------------------------

type createRequest struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	Adaptor string `json:"adaptor"`
}

func (s *Server) handleCreatePoem(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title == "" && req.Body == "" {
		writeError(w, http.StatusBadRequest, "title or body is required")
		return
	}

	poem := s.store.Add(model.Poem{
		Title:   req.Title,
		Body:    req.Body,
		Adaptor: req.Adaptor,
	})
	writeJSON(w, http.StatusCreated, poem)
}

// ---------------------------------------------------------------------------
// GET /api/poems/{id}
// ---------------------------------------------------------------------------

func (s *Server) handleGetPoem(w http.ResponseWriter, r *http.Request) {
	id, ok := poemID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid poem id")
		return
	}
	poem, ok := s.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "poem not found")
		return
	}
	writeJSON(w, http.StatusOK, poem)
}

// ---------------------------------------------------------------------------
// POST /api/poems/{id}/accept, POST /api/poems/{id}/delete
// ---------------------------------------------------------------------------

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	s.handleMark(w, r, s.store.Accept)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.handleMark(w, r, s.store.Delete)
}

func (s *Server) handleMark(w http.ResponseWriter, r *http.Request, mark func(int) bool) {
	id, ok := poemID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid poem id")
		return
	}
	if !mark(id) {
		writeError(w, http.StatusNotFound, "poem not found")
		return
	}
	poem, _ := s.store.Get(id)
	writeJSON(w, http.StatusOK, poem)
}

// ---------------------------------------------------------------------------
// PUT /api/poems/{id}
// ---------------------------------------------------------------------------

type editRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := poemID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid poem id")
		return
	}
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !s.store.Edit(id, req.Title, req.Body) {
		writeError(w, http.StatusNotFound, "poem not found")
		return
	}
	poem, _ := s.store.Get(id)
	writeJSON(w, http.StatusOK, poem)
}

// ---------------------------------------------------------------------------
// POST /api/evaluate
// ---------------------------------------------------------------------------

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	poems := s.store.Snapshot()
	// The run outlives this request; it is observed via the status
	// endpoint, not the response.
	if !s.controller.Start(context.Background(), poems) {
		writeError(w, http.StatusConflict, "bulk evaluation already in progress")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"items": len(poems),
	})
}

// ---------------------------------------------------------------------------
// GET /api/evaluate/status
// ---------------------------------------------------------------------------

func (s *Server) handleEvaluateStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"in_progress": s.controller.InProgress(),
		"counts":      s.store.Counts(),
	}
	if last := s.controller.LastRun(); last != nil {
		resp["last_run"] = last
	}
	writeJSON(w, http.StatusOK, resp)
}

// ---------------------------------------------------------------------------
// GET /api/runs
// ---------------------------------------------------------------------------

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "run history not enabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.history.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// ---------------------------------------------------------------------------
// GET /api/export, POST /api/import
// ---------------------------------------------------------------------------

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	poems := s.store.Snapshot()
	if poems == nil {
		poems = []model.Poem{}
	}
	writeJSON(w, http.StatusOK, poems)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if s.controller.InProgress() {
		writeError(w, http.StatusConflict, "bulk evaluation in progress, import refused")
		return
	}
	var poems []model.Poem
	if err := json.NewDecoder(r.Body).Decode(&poems); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.store.Load(poems)
	writeJSON(w, http.StatusOK, map[string]int{"imported": s.store.Len()})
}
