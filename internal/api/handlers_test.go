package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"versecull/internal/bulk"
	"versecull/internal/evaluator"
	"versecull/internal/model"
	"versecull/internal/store"
)

func newTestServer(t *testing.T, opts ...ServerOption) (*Server, *store.Store, *bulk.Controller) {
	t.Helper()
	st := store.New()
	client := evaluator.NewClient(evaluator.StubProvider{})
	ctrl := bulk.NewController(bulk.NewBatchEvaluator(st, client), bulk.WithCooldown(0))
	return New(st, ctrl, opts...), st, ctrl
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func seed(st *store.Store, poems ...model.Poem) {
	st.Load(poems)
}

func TestListPoems(t *testing.T) {
	srv, st, _ := newTestServer(t)
	seed(st,
		model.Poem{ID: 1, Title: "Autumn", Body: "leaves fall", Accepted: true},
		model.Poem{ID: 2, Title: "Winter", Body: "snow drifts"},
	)

	w := doRequest(t, srv, http.MethodGet, "/api/poems", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var poems []model.Poem
	decodeJSON(t, w, &poems)
	if len(poems) != 2 {
		t.Errorf("len = %d, want 2", len(poems))
	}

	w = doRequest(t, srv, http.MethodGet, "/api/poems?status=accepted", "")
	decodeJSON(t, w, &poems)
	if len(poems) != 1 || poems[0].ID != 1 {
		t.Errorf("accepted filter = %+v", poems)
	}

	w = doRequest(t, srv, http.MethodGet, "/api/poems?q=snow", "")
	decodeJSON(t, w, &poems)
	if len(poems) != 1 || poems[0].ID != 2 {
		t.Errorf("query filter = %+v", poems)
	}
}

func TestListPoems_EmptyStoreReturnsArray(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/poems", "")
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body = %q, want empty array", got)
	}
}

func TestCreatePoem(t *testing.T) {
	srv, st, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/poems",
		`{"title":"Autumn","body":"leaves fall"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var poem model.Poem
	decodeJSON(t, w, &poem)
	if poem.ID != 1 || poem.Title != "Autumn" {
		t.Errorf("poem = %+v", poem)
	}
	if st.Len() != 1 {
		t.Errorf("store len = %d", st.Len())
	}

	w = doRequest(t, srv, http.MethodPost, "/api/poems", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty poem status = %d, want 400", w.Code)
	}

	w = doRequest(t, srv, http.MethodPost, "/api/poems", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", w.Code)
	}
}

func TestGetPoem(t *testing.T) {
	srv, st, _ := newTestServer(t)
	seed(st, model.Poem{ID: 7, Title: "Autumn", Body: "leaves fall"})

	w := doRequest(t, srv, http.MethodGet, "/api/poems/7", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var poem model.Poem
	decodeJSON(t, w, &poem)
	if poem.ID != 7 {
		t.Errorf("poem = %+v", poem)
	}

	if w := doRequest(t, srv, http.MethodGet, "/api/poems/99", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing poem status = %d, want 404", w.Code)
	}
	if w := doRequest(t, srv, http.MethodGet, "/api/poems/abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", w.Code)
	}
}

func TestAcceptAndDelete(t *testing.T) {
	srv, st, _ := newTestServer(t)
	seed(st, model.Poem{ID: 1, Title: "Autumn", Body: "leaves fall"})

	w := doRequest(t, srv, http.MethodPost, "/api/poems/1/accept", "")
	if w.Code != http.StatusOK {
		t.Fatalf("accept status = %d", w.Code)
	}
	var poem model.Poem
	decodeJSON(t, w, &poem)
	if !poem.Accepted {
		t.Errorf("poem = %+v, want accepted", poem)
	}

	// Deleting an accepted poem flips it; the flags stay exclusive.
	w = doRequest(t, srv, http.MethodPost, "/api/poems/1/delete", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	decodeJSON(t, w, &poem)
	if !poem.Deleted || poem.Accepted {
		t.Errorf("poem = %+v, want deleted only", poem)
	}

	if w := doRequest(t, srv, http.MethodPost, "/api/poems/99/accept", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing poem status = %d, want 404", w.Code)
	}
}

func TestEditPoem(t *testing.T) {
	srv, st, _ := newTestServer(t)
	seed(st, model.Poem{ID: 1, Title: "Autumn", Body: "leaves fall"})

	w := doRequest(t, srv, http.MethodPut, "/api/poems/1",
		`{"title":"Late Autumn","body":"leaves fell"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var poem model.Poem
	decodeJSON(t, w, &poem)
	if poem.Title != "Late Autumn" || !poem.Edited {
		t.Errorf("poem = %+v", poem)
	}
}

func TestEvaluateFlow(t *testing.T) {
	srv, st, ctrl := newTestServer(t)
	seed(st,
		model.Poem{ID: 1, Title: "Long", Body: "one\ntwo\nthree"},
		model.Poem{ID: 2, Title: "Fragment", Body: "single line"},
	)

	w := doRequest(t, srv, http.MethodPost, "/api/evaluate", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	deadline := time.Now().Add(2 * time.Second)
	for ctrl.InProgress() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if ctrl.InProgress() {
		t.Fatal("run did not finish")
	}

	w = doRequest(t, srv, http.MethodGet, "/api/evaluate/status", "")
	var status struct {
		InProgress bool         `json:"in_progress"`
		Counts     store.Counts `json:"counts"`
		LastRun    *bulk.Run    `json:"last_run"`
	}
	decodeJSON(t, w, &status)
	if status.InProgress {
		t.Error("in_progress = true after run completed")
	}
	if status.Counts.Accepted != 1 || status.Counts.Deleted != 1 {
		t.Errorf("counts = %+v", status.Counts)
	}
	if status.LastRun == nil || status.LastRun.Items != 2 {
		t.Errorf("last_run = %+v", status.LastRun)
	}
}

func TestEvaluate_ConflictWhileRunning(t *testing.T) {
	st := store.New()
	seed(st, model.Poem{ID: 1, Title: "Autumn", Body: "leaves fall"})

	block := make(chan struct{})
	scorer := scorerFunc(func(ctx context.Context, _, _ string) (model.Verdict, error) {
		<-block
		return model.Verdict{}, nil
	})
	ctrl := bulk.NewController(bulk.NewBatchEvaluator(st, scorer), bulk.WithCooldown(0))
	srv := New(st, ctrl)

	if w := doRequest(t, srv, http.MethodPost, "/api/evaluate", ""); w.Code != http.StatusAccepted {
		t.Fatalf("first evaluate status = %d", w.Code)
	}
	if w := doRequest(t, srv, http.MethodPost, "/api/evaluate", ""); w.Code != http.StatusConflict {
		t.Errorf("second evaluate status = %d, want 409", w.Code)
	}
	if w := doRequest(t, srv, http.MethodPost, "/api/import", "[]"); w.Code != http.StatusConflict {
		t.Errorf("import during run status = %d, want 409", w.Code)
	}
	close(block)
}

type scorerFunc func(ctx context.Context, title, body string) (model.Verdict, error)

func (f scorerFunc) Evaluate(ctx context.Context, title, body string) (model.Verdict, error) {
	return f(ctx, title, body)
}

func TestExportImportRoundTrip(t *testing.T) {
	srv, st, _ := newTestServer(t)
	seed(st,
		model.Poem{ID: 1, Title: "Autumn", Body: "leaves fall", Accepted: true},
		model.Poem{ID: 2, Title: "Winter", Body: "snow drifts"},
	)

	w := doRequest(t, srv, http.MethodGet, "/api/export", "")
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d", w.Code)
	}
	exported := w.Body.String()
	if !strings.Contains(exported, `"image":"Autumn"`) {
		t.Errorf("export missing canonical keys: %s", exported)
	}

	srv2, st2, _ := newTestServer(t)
	w = doRequest(t, srv2, http.MethodPost, "/api/import", exported)
	if w.Code != http.StatusOK {
		t.Fatalf("import status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp map[string]int
	decodeJSON(t, w, &resp)
	if resp["imported"] != 2 {
		t.Errorf("imported = %d, want 2", resp["imported"])
	}

	poem, ok := st2.Get(1)
	if !ok || !poem.Accepted || poem.Title != "Autumn" {
		t.Errorf("poem after import = %+v", poem)
	}
}

func TestImport_LegacyKeys(t *testing.T) {
	srv, st, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/import",
		`[{"id":1,"title":"Old","body":"legacy keys"}]`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	poem, ok := st.Get(1)
	if !ok || poem.Title != "Old" || poem.Body != "legacy keys" {
		t.Errorf("poem = %+v", poem)
	}
}

func TestRuns_NotEnabled(t *testing.T) {
	srv, _, _ := newTestServer(t)
	if w := doRequest(t, srv, http.MethodGet, "/api/runs", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without history", w.Code)
	}
}

type staticRunLister []bulk.Run

func (l staticRunLister) List(_ context.Context, limit int) ([]bulk.Run, error) {
	if limit > 0 && limit < len(l) {
		return l[:limit], nil
	}
	return l, nil
}

func TestRuns(t *testing.T) {
	lister := staticRunLister{
		{ID: "run-2", Items: 10},
		{ID: "run-1", Items: 5},
	}
	srv, _, _ := newTestServer(t, WithRunHistory(lister))

	w := doRequest(t, srv, http.MethodGet, "/api/runs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var runs []bulk.Run
	decodeJSON(t, w, &runs)
	if len(runs) != 2 || runs[0].ID != "run-2" {
		t.Errorf("runs = %+v", runs)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _, _ := newTestServer(t, WithCORSOrigin("https://ui.example.com"))

	w := doRequest(t, srv, http.MethodOptions, "/api/poems", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://ui.example.com" {
		t.Errorf("allow-origin = %q", got)
	}
}
