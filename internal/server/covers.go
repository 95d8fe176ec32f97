package server

import (
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/desertthunder/vibemix/internal/storage"
)

var coverExtensions = map[string]bool{".png": true, ".jpg": true, ".webp": true, ".gif": true}

// CoverHandler serves durable cover images from a [storage.FileStore] directory.
//
// Only flat image names are served; directory listings and nested paths answer 404.
type CoverHandler struct {
	dir    string
	prefix string
}

// NewCoverHandler mounts store's directory at the path of its public URL.
func NewCoverHandler(store *storage.FileStore) *CoverHandler {
	prefix := "/covers/"
	if u, err := url.Parse(store.PublicURL("")); err == nil && u.Path != "" && u.Path != "/" {
		prefix = u.Path
	}
	return &CoverHandler{dir: store.Dir(), prefix: prefix}
}

// Routes returns the cover path prefix.
func (h *CoverHandler) Routes() []string {
	return []string{"GET " + h.prefix}
}

func (h *CoverHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, h.prefix)
	if name == "" || strings.Contains(name, "/") || name != path.Base(name) || !coverExtensions[strings.ToLower(path.Ext(name))] {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeFile(w, r, filepath.Join(h.dir, name))
}
