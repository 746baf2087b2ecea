package server

import (
	"html/template"
	"net/http"
	"strings"

	"pawLingo/core"
	"pawLingo/storage"
)

// PreviewHandlers renders the social-preview markup link scrapers fetch.
// The interpretation narrative becomes the page description; confidence
// is deliberately not exposed here.
type PreviewHandlers struct {
	store storage.MetadataStore
}

func NewPreviewHandlers(store storage.MetadataStore) *PreviewHandlers {
	return &PreviewHandlers{store: store}
}

var previewTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta property="og:type" content="video.other">
<meta property="og:title" content="{{.Title}}">
<meta property="og:description" content="{{.Description}}">
<meta property="og:video" content="{{.VideoURL}}">
{{if .ThumbnailURL}}<meta property="og:image" content="{{.ThumbnailURL}}">{{end}}
<meta name="twitter:card" content="player">
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Description}}</p>
<video src="{{.VideoURL}}" controls></video>
</body>
</html>
`))

type previewData struct {
	Title        string
	Description  string
	VideoURL     string
	ThumbnailURL string
}

// PreviewHandler handles GET /preview/{id}.
func (h *PreviewHandlers) PreviewHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/preview/")
	if id == "" || strings.Contains(id, "/") {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "video id required"})
		return
	}
	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		core.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "video not found"})
		return
	}

	description := rec.Translation
	if description == "" {
		description = "A pet video shared on pawLingo."
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := previewTemplate.Execute(w, previewData{
		Title:        rec.Title,
		Description:  description,
		VideoURL:     rec.VideoURL,
		ThumbnailURL: rec.ThumbnailURL,
	}); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}
