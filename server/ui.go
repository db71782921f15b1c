package server

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFiles embed.FS

// uiHandler serves the embedded single-page chat UI.
func (s *Server) uiHandler() http.Handler {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		// embed guarantees the directory exists at build time
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
