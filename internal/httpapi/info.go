package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"infocomp/internal/db"
	"infocomp/internal/images"
	"infocomp/internal/session"
	"infocomp/internal/validate"
)

const (
	// Room for the text fields and multipart framing on top of the image.
	multipartOverhead = 1 << 20
	multipartMemory   = 8 << 20

	msgBadRequest = "Solicitud inválida"
)

type infoJSON struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ImageURL    *string `json:"image_url"`
	CreatedAt   string  `json:"created_at"`
}

func toInfoJSON(in db.Info) infoJSON {
	out := infoJSON{
		ID:          in.ID,
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   time.Unix(in.CreatedAt, 0).UTC().Format(time.RFC3339),
	}
	if in.ImageFilename != "" {
		u := "/uploads/" + in.ImageFilename
		out.ImageURL = &u
	}
	return out
}

func (s *Server) handleListInfos(w http.ResponseWriter, r *http.Request) {
	infos, err := s.Store.ListInfos(r.Context())
	if err != nil {
		s.internalError(w, r, "list infos", err)
		return
	}
	out := make([]infoJSON, 0, len(infos))
	for _, in := range infos {
		out = append(out, toInfoJSON(in))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	who := session.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		if isTooLarge(err) {
			s.Logger.Warn("upload rejected", "reason", "body too large", "limit", humanize.Bytes(uint64(s.MaxUploadBytes)))
			writeError(w, http.StatusRequestEntityTooLarge, msgImageTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	name, err := validate.InfoName(r.PostFormValue("name"))
	if err != nil {
		writeError(w, http.StatusBadRequest, msgNameRequired)
		return
	}
	description := strings.TrimSpace(r.PostFormValue("description"))

	var filename string
	file, hdr, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		// No image attached.
	case err != nil:
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	default:
		defer file.Close()
		if hdr.Size > s.MaxUploadBytes {
			s.Logger.Warn("upload rejected", "reason", "image too large",
				"size", humanize.Bytes(uint64(hdr.Size)), "limit", humanize.Bytes(uint64(s.MaxUploadBytes)))
			writeError(w, http.StatusRequestEntityTooLarge, msgImageTooLarge)
			return
		}
		filename, err = s.Images.Process(file, hdr.Header.Get("content-type"))
		if errors.Is(err, images.ErrUnsupportedType) {
			writeError(w, http.StatusBadRequest, msgImageType)
			return
		}
		if err != nil {
			s.internalError(w, r, "process image", err)
			return
		}
	}

	id, err := s.Store.CreateInfo(ctx, db.NewInfo{
		Name:          name,
		Description:   description,
		ImageFilename: filename,
		CreatedBy:     who.UserID,
	})
	if err != nil {
		s.internalError(w, r, "create info", err)
		return
	}
	created, ok, err := s.Store.GetInfo(ctx, id)
	if err == nil && !ok {
		err = errors.New("created info not found")
	}
	if err != nil {
		s.internalError(w, r, "load info", err)
		return
	}
	s.Logger.Info("info created", "id", id, "user_id", who.UserID, "image", filename != "")
	writeJSON(w, http.StatusOK, toInfoJSON(*created))
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
