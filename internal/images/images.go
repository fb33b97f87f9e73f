// Package images normalizes uploaded pictures: orientation fixed from EXIF,
// fitted inside a square bounding box and re-encoded as JPEG.
package images

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	// Registers the WEBP decoder with image.Decode.
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxDimension = 1200
	DefaultQuality      = 82

	// Extension is used for every stored file since the bytes are always JPEG.
	Extension = ".jpg"
)

// ErrUnsupportedType is returned for media types other than JPEG, PNG and WEBP.
var ErrUnsupportedType = errors.New("unsupported image type")

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Allowed reports whether mediaType (parameters ignored) may be processed.
func Allowed(mediaType string) bool {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return false
	}
	return allowedTypes[mt]
}

type Pipeline struct {
	FS           afero.Fs
	Dir          string
	MaxDimension int
	Quality      int
}

func New(fs afero.Fs, dir string) *Pipeline {
	return &Pipeline{FS: fs, Dir: dir, MaxDimension: DefaultMaxDimension, Quality: DefaultQuality}
}

// Process checks mediaType before reading r, then decodes, orients, fits and
// stores the image. It returns the generated file name relative to Dir.
func (p *Pipeline) Process(r io.Reader, mediaType string) (string, error) {
	if !Allowed(mediaType) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, mediaType)
	}

	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	bound := p.MaxDimension
	if bound <= 0 {
		bound = DefaultMaxDimension
	}
	// Fit leaves images that already fit untouched.
	img = imaging.Fit(img, bound, bound, imaging.Lanczos)

	if err := p.FS.MkdirAll(p.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	name := uuid.NewString() + Extension
	final := filepath.Join(p.Dir, name)
	tmp, err := afero.TempFile(p.FS, p.Dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = p.FS.Remove(tmpName) }

	quality := p.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}
	if err := imaging.Encode(tmp, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", err
	}
	if err := p.FS.Rename(tmpName, final); err != nil {
		cleanup()
		return "", fmt.Errorf("store image: %w", err)
	}
	return name, nil
}
