package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"pawLingo/core"
	"pawLingo/processors"
	"pawLingo/storage"
)

// InterpretHandlers exposes the interpretation engine and the keyword
// matcher over HTTP.
type InterpretHandlers struct {
	interpreter *processors.Interpreter
	index       storage.InterpretationIndex
}

// NewInterpretHandlers 创建解读处理器实例
func NewInterpretHandlers(interpreter *processors.Interpreter, index storage.InterpretationIndex) *InterpretHandlers {
	return &InterpretHandlers{interpreter: interpreter, index: index}
}

type InterpretRequest struct {
	SignalIDs []string     `json:"signal_ids"`
	Context   core.Context `json:"context"`
}

// InterpretFailure is the explicit failure value; the engine never
// surfaces a crash to the caller.
type InterpretFailure struct {
	Status    string `json:"status"`
	Narrative string `json:"narrative"`
	Reason    string `json:"reason,omitempty"`
}

// InterpretHandler handles POST /interpret.
func (h *InterpretHandlers) InterpretHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req InterpretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	result, err := h.interpreter.Interpret(req.SignalIDs, req.Context)
	if err != nil {
		var ierr *core.InterpretationError
		if errors.As(err, &ierr) {
			core.WriteJSON(w, http.StatusOK, InterpretFailure{Status: "uncertain", Narrative: ierr.Fallback, Reason: ierr.Reason})
			return
		}
		core.WriteJSON(w, http.StatusOK, InterpretFailure{Status: "uncertain", Narrative: core.UncertainNarrative})
		return
	}
	core.WriteJSON(w, http.StatusOK, result)
}

// MatchHandler handles POST /match: ranks catalog signals against a
// structured body description.
func (h *InterpretHandlers) MatchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var description core.BodyDescription
	if err := json.NewDecoder(r.Body).Decode(&description); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ranked := processors.MatchDescription(h.interpreter.Catalog(), description)
	core.WriteJSON(w, http.StatusOK, map[string]any{
		"matches": ranked,
		"total":   len(ranked),
	})
}

// CatalogHandler handles GET /catalog: the read-only signal listing the
// UI uses to build its signal picker.
func (h *InterpretHandlers) CatalogHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	catalog := h.interpreter.Catalog()
	core.WriteJSON(w, http.StatusOK, map[string]any{
		"signals": catalog.All(),
		"total":   catalog.Len(),
	})
}

type SimilarRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// SimilarHandler handles POST /similar: similarity search over stored
// interpretation narratives.
func (h *InterpretHandlers) SimilarHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req SimilarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "query required"})
		return
	}
	hits := h.index.Search(req.Query, req.TopK)
	core.WriteJSON(w, http.StatusOK, map[string]any{"query": req.Query, "hits": hits})
}

type AskRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

type AskResponse struct {
	Question string             `json:"question"`
	Answer   string             `json:"answer"`
	Hits     []storage.IndexHit `json:"hits"`
}

// AskHandler handles POST /ask: retrieves the closest stored
// interpretations and synthesizes an answer from them.
func (h *InterpretHandlers) AskHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "question required"})
		return
	}
	hits := h.index.Search(req.Question, req.TopK)
	answer := storage.SynthesizeAnswer(req.Question, hits)
	core.WriteJSON(w, http.StatusOK, AskResponse{Question: req.Question, Answer: answer, Hits: hits})
}
