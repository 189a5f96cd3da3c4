package handler

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var contentTypes = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".mp4":  "video/mp4",
}

// StaticHandler passes files under root through byte for byte. Dotfiles and
// the hidden names are never served, at any depth.
type StaticHandler struct {
	root   string
	hidden map[string]bool
}

func NewStaticHandler(root string, hidden ...string) *StaticHandler {
	h := &StaticHandler{root: root, hidden: make(map[string]bool, len(hidden))}
	for _, name := range hidden {
		h.hidden[strings.ToLower(name)] = true
	}
	return h
}

func (h *StaticHandler) refused(clean string) bool {
	for _, seg := range strings.Split(clean, "/") {
		if strings.HasPrefix(seg, ".") || h.hidden[strings.ToLower(seg)] {
			return true
		}
	}
	return false
}

func (h *StaticHandler) Serve(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, r.URL.Path)
}

// File serves one fixed file regardless of the request path.
func (h *StaticHandler) File(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.serveFile(w, r, name)
	}
}

func (h *StaticHandler) serveFile(w http.ResponseWriter, r *http.Request, name string) {
	if name == "" || name == "/" {
		name = "/index.html"
	}
	// Cleaning a rooted path drops any ".." that would leave root.
	clean := path.Clean("/" + name)
	if strings.Contains(clean, "\x00") || h.refused(clean) {
		NotFound(w, r)
		return
	}
	full := filepath.Join(h.root, filepath.FromSlash(clean))

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		NotFound(w, r)
		return
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		NotFound(w, r)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	w.Header().Set("Content-Type", contentType(clean))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func contentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return "text/html"
}
