package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountStatic serves the widget host page and its assets from dir. Routes
// registered earlier on r take precedence.
func MountStatic(r chi.Router, dir string) {
	fs := http.FileServer(http.Dir(dir))
	r.Handle("/*", fs)
}
