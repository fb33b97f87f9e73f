package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"infocomp/internal/images"
	"infocomp/internal/validate"
)

// handleUploadFile serves a processed image. Only names the pipeline could
// have generated are looked up, so nothing else in the directory is exposed.
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["file"]
	if err := validate.UploadName(name, images.Extension); err != nil {
		http.NotFound(w, r)
		return
	}
	f, err := s.uploads.Open("/" + name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil || st.IsDir() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("content-type", "image/jpeg")
	w.Header().Set("cache-control", "public, max-age=86400")
	http.ServeContent(w, r, name, st.ModTime(), f)
}
