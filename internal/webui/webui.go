// Package webui embeds the public site: the info list, the login modal, the
// admin upload panel and the dotted-text canvas.
package webui

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// StaticFS holds the embedded assets under static/.
//
//go:embed static
var StaticFS embed.FS

// Handler serves the assets. Paths that do not name an asset get
// index.html so client-side routes survive a reload.
func Handler() (http.Handler, error) {
	sub, err := fs.Sub(StaticFS, "static")
	if err != nil {
		return nil, err
	}
	index, err := fs.ReadFile(sub, "index.html")
	if err != nil {
		return nil, err
	}
	files := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name != "" && name != "index.html" {
			if st, err := fs.Stat(sub, name); err == nil && !st.IsDir() {
				files.ServeHTTP(w, r)
				return
			}
		}
		w.Header().Set("content-type", "text/html; charset=utf-8")
		w.Header().Set("cache-control", "no-cache")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(index)
	}), nil
}
