package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"pawLingo/core"
	"pawLingo/processors"
	"pawLingo/storage"
)

// VideoHandlers owns the metadata CRUD surface and the per-video
// interpretation endpoint that writes translation/confidence back into
// the record.
type VideoHandlers struct {
	store       storage.MetadataStore
	interpreter *processors.Interpreter
	index       storage.InterpretationIndex
}

// NewVideoHandlers 创建视频元数据处理器实例
func NewVideoHandlers(store storage.MetadataStore, interpreter *processors.Interpreter, index storage.InterpretationIndex) *VideoHandlers {
	return &VideoHandlers{store: store, interpreter: interpreter, index: index}
}

type VideoUpsertRequest struct {
	Title        string   `json:"title"`
	PetName      string   `json:"pet_name"`
	VideoURL     string   `json:"video_url"`
	ThumbnailURL string   `json:"thumbnail_url"`
	SignalIDs    []string `json:"signal_ids"`
	Place        string   `json:"place"`
	Interaction  string   `json:"interaction"`
	Object       string   `json:"object"`
}

// VideosHandler handles /videos: GET lists records, POST creates one.
func (h *VideoHandlers) VideosHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		records, err := h.store.List(r.Context())
		if err != nil {
			core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		core.WriteJSON(w, http.StatusOK, map[string]any{"videos": records, "total": len(records)})
	case http.MethodPost:
		var req VideoUpsertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.VideoURL) == "" {
			core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "title and video_url required"})
			return
		}
		now := time.Now().UTC()
		rec := core.VideoRecord{
			ID:           core.NewID(),
			Title:        req.Title,
			PetName:      req.PetName,
			VideoURL:     req.VideoURL,
			ThumbnailURL: req.ThumbnailURL,
			SignalIDs:    req.SignalIDs,
			Place:        req.Place,
			Interaction:  req.Interaction,
			Object:       req.Object,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := h.store.Save(r.Context(), rec); err != nil {
			core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		core.WriteJSON(w, http.StatusCreated, rec)
	default:
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

// VideoHandler handles /videos/{id} (GET, PUT, DELETE) and
// /videos/{id}/interpret (POST).
func (h *VideoHandlers) VideoHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/videos/")
	if rest == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "video id required"})
		return
	}
	if id, ok := strings.CutSuffix(rest, "/interpret"); ok {
		h.interpretVideo(w, r, id)
		return
	}
	if strings.Contains(rest, "/") {
		core.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		rec, err := h.store.Get(r.Context(), rest)
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		core.WriteJSON(w, http.StatusOK, rec)
	case http.MethodPut:
		h.updateVideo(w, r, rest)
	case http.MethodDelete:
		if err := h.store.Delete(r.Context(), rest); err != nil {
			h.writeStoreError(w, err)
			return
		}
		core.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": rest})
	default:
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (h *VideoHandlers) updateVideo(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	var req VideoUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Title != "" {
		rec.Title = req.Title
	}
	if req.PetName != "" {
		rec.PetName = req.PetName
	}
	if req.VideoURL != "" {
		rec.VideoURL = req.VideoURL
	}
	if req.ThumbnailURL != "" {
		rec.ThumbnailURL = req.ThumbnailURL
	}
	if req.SignalIDs != nil {
		rec.SignalIDs = req.SignalIDs
	}
	if req.Place != "" {
		rec.Place = req.Place
	}
	if req.Interaction != "" {
		rec.Interaction = req.Interaction
	}
	if req.Object != "" {
		rec.Object = req.Object
	}
	rec.UpdatedAt = time.Now().UTC()
	if err := h.store.Save(r.Context(), rec); err != nil {
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	core.WriteJSON(w, http.StatusOK, rec)
}

// interpretVideo runs the engine over the record's stored signal ids and
// context, then persists narrative and confidence into the record's
// translation fields.
func (h *VideoHandlers) interpretVideo(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	result, err := h.interpreter.Interpret(rec.SignalIDs, rec.ContextValue())
	if err != nil {
		var ierr *core.InterpretationError
		if errors.As(err, &ierr) {
			core.WriteJSON(w, http.StatusOK, InterpretFailure{Status: "uncertain", Narrative: ierr.Fallback, Reason: ierr.Reason})
			return
		}
		core.WriteJSON(w, http.StatusOK, InterpretFailure{Status: "uncertain", Narrative: core.UncertainNarrative})
		return
	}

	rec.Translation = result.Summary.Narrative
	rec.Confidence = result.Summary.Confidence
	rec.UpdatedAt = time.Now().UTC()
	if err := h.store.Save(r.Context(), rec); err != nil {
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	// Index failures are not fatal; the record already carries the translation.
	h.index.Upsert([]storage.IndexEntry{storage.IndexEntryFromResult(rec.ID, rec.SignalIDs, result)})

	core.WriteJSON(w, http.StatusOK, map[string]any{
		"video":          rec,
		"interpretation": result,
	})
}

func (h *VideoHandlers) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrRecordNotFound) {
		core.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "video not found"})
		return
	}
	core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
