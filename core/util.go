package core

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DataRoot is where per-process local artifacts (the sqlite file by
// default) live.
func DataRoot() string { return filepath.Join(".", "data") }

// NewID returns a fresh opaque record id.
func NewID() string { return uuid.NewString() }

// WriteJSON writes v as a JSON response. HTML escaping is disabled so
// narratives keep their accented characters as-is.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "write json error: %v", err)
	}
}
