package server

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"strings"
)

// serveStatic serves the built web UI. Unknown paths fall back to
// index.html so client-side routing works.
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	dist := os.DirFS(s.staticDir)
	fileServer := http.FileServer(http.FS(dist))

	// Try serving the file directly; fall back to index.html for SPA routing
	name := strings.TrimPrefix(r.URL.Path, "/")
	if name != "" {
		f, err := dist.Open(name)
		if errors.Is(err, fs.ErrNotExist) {
			r.URL.Path = "/"
		} else if err != nil {
			s.logger.Warn("unexpected error opening static file", "path", r.URL.Path, "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		} else {
			f.Close()
		}
	}
	fileServer.ServeHTTP(w, r)
}
