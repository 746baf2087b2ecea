package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pawLingo/core"
	"pawLingo/processors"
	"pawLingo/storage"
)

func newTestHandlers(t *testing.T) (*InterpretHandlers, *VideoHandlers, *PreviewHandlers) {
	t.Helper()
	catalog, err := core.LoadCatalog("")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	interpreter := processors.NewInterpreter(catalog)
	store := storage.NewMemoryMetadataStore()
	index := storage.NewMemoryIndex()
	return NewInterpretHandlers(interpreter, index),
		NewVideoHandlers(store, interpreter, index),
		NewPreviewHandlers(store)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestInterpretHandler_KnownSignals(t *testing.T) {
	ih, _, _ := newTestHandlers(t)

	rec := postJSON(t, ih.InterpretHandler, "/interpret", InterpretRequest{
		SignalIDs: []string{"play_bow"},
		Context:   core.Context{Place: "home", Interaction: "with human"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result core.InterpretationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Summary.SignalCount != 1 {
		t.Errorf("expected 1 detected signal, got %d", result.Summary.SignalCount)
	}
	if !strings.Contains(result.Summary.Narrative, "Play Bow") {
		t.Errorf("narrative missing display name: %s", result.Summary.Narrative)
	}
	if result.Summary.Confidence < 0.70 || result.Summary.Confidence > 0.95 {
		t.Errorf("confidence out of range: %f", result.Summary.Confidence)
	}
}

func TestInterpretHandler_UnknownIDsAreNotAnError(t *testing.T) {
	ih, _, _ := newTestHandlers(t)

	rec := postJSON(t, ih.InterpretHandler, "/interpret", InterpretRequest{
		SignalIDs: []string{"unknown_id_xyz"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var result core.InterpretationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Summary.SignalCount != 0 {
		t.Errorf("expected 0 signals, got %d", result.Summary.SignalCount)
	}
	if result.Summary.Confidence != 0.0 {
		t.Errorf("expected zero confidence, got %f", result.Summary.Confidence)
	}
	if result.Summary.Narrative != processors.NoSignalsNarrative {
		t.Errorf("expected fixed no-signals narrative, got %q", result.Summary.Narrative)
	}
}

func TestInterpretHandler_RejectsBadMethodAndBody(t *testing.T) {
	ih, _, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/interpret", nil)
	rec := httptest.NewRecorder()
	ih.InterpretHandler(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/interpret", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	ih.InterpretHandler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad json, got %d", rec.Code)
	}
}

func TestMatchHandler(t *testing.T) {
	ih, _, _ := newTestHandlers(t)

	rec := postJSON(t, ih.MatchHandler, "/match", core.BodyDescription{
		Posture: "chest lowered, front legs stretched forward",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Matches []core.SignalScore `json:"matches"`
		Total   int                `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total == 0 {
		t.Fatal("expected at least one match for a play-bow posture")
	}
	if resp.Matches[0].Signal.ID != "play_bow" {
		t.Errorf("expected play_bow as best match, got %s", resp.Matches[0].Signal.ID)
	}
}

func TestCatalogHandler(t *testing.T) {
	ih, _, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/catalog", nil)
	rec := httptest.NewRecorder()
	ih.CatalogHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Signals []core.Signal `json:"signals"`
		Total   int           `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total == 0 || len(resp.Signals) != resp.Total {
		t.Errorf("inconsistent catalog listing: %d signals, total %d", len(resp.Signals), resp.Total)
	}
}

func TestVideoLifecycleWithInterpretation(t *testing.T) {
	_, vh, ph := newTestHandlers(t)

	// Create
	rec := postJSON(t, vh.VideosHandler, "/videos", VideoUpsertRequest{
		Title:       "Max asks to play",
		PetName:     "Max",
		VideoURL:    "https://cdn.example.com/max.mp4",
		SignalIDs:   []string{"play_bow", "cola_mueve_rapido"},
		Place:       "home",
		Interaction: "with human",
		Object:      "toy",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created core.VideoRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created record: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected a generated id")
	}

	// Interpret and persist translation/confidence
	req := httptest.NewRequest(http.MethodPost, "/videos/"+created.ID+"/interpret", nil)
	rr := httptest.NewRecorder()
	vh.VideoHandler(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("interpret: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	// Fetch back and check the record carries the translation
	req = httptest.NewRequest(http.MethodGet, "/videos/"+created.ID, nil)
	rr = httptest.NewRecorder()
	vh.VideoHandler(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rr.Code)
	}
	var fetched core.VideoRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("decode fetched record: %v", err)
	}
	if fetched.Translation == "" {
		t.Error("expected translation to be persisted")
	}
	if fetched.Confidence < 0.70 || fetched.Confidence > 0.95 {
		t.Errorf("persisted confidence out of range: %f", fetched.Confidence)
	}

	// Preview uses the narrative as description
	req = httptest.NewRequest(http.MethodGet, "/preview/"+created.ID, nil)
	rr = httptest.NewRecorder()
	ph.PreviewHandler(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("preview: expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "og:description") || !strings.Contains(body, "Play Bow") {
		t.Errorf("preview missing narrative description: %s", body)
	}
	if strings.Contains(body, "confidence") {
		t.Error("preview must not expose confidence")
	}

	// Delete
	req = httptest.NewRequest(http.MethodDelete, "/videos/"+created.ID, nil)
	rr = httptest.NewRecorder()
	vh.VideoHandler(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rr.Code)
	}
	req = httptest.NewRequest(http.MethodGet, "/videos/"+created.ID, nil)
	rr = httptest.NewRecorder()
	vh.VideoHandler(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rr.Code)
	}
}

func TestPreviewHandler_EscapesTitle(t *testing.T) {
	_, vh, ph := newTestHandlers(t)

	rec := postJSON(t, vh.VideosHandler, "/videos", VideoUpsertRequest{
		Title:    `<script>alert("pwned")</script>`,
		VideoURL: "https://cdn.example.com/x.mp4",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var created core.VideoRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created record: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/preview/"+created.ID, nil)
	rr := httptest.NewRecorder()
	ph.PreviewHandler(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "<script>alert") {
		t.Error("title not escaped in preview markup")
	}
}

func TestVideoHandler_NotFound(t *testing.T) {
	_, vh, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/videos/does-not-exist", nil)
	rr := httptest.NewRecorder()
	vh.VideoHandler(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestSimilarHandler_RequiresQuery(t *testing.T) {
	ih, _, _ := newTestHandlers(t)

	rec := postJSON(t, ih.SimilarHandler, "/similar", SimilarRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty query, got %d", rec.Code)
	}
}

func TestWithCORS_Preflight(t *testing.T) {
	called := false
	handler := WithCORS(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodOptions, "/interpret", nil)
	rr := httptest.NewRecorder()
	handler(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rr.Code)
	}
	if called {
		t.Error("preflight must not reach the wrapped handler")
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS allow-origin header")
	}
}
