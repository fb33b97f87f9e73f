package images

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func storedConfig(t *testing.T, fs afero.Fs, name string) image.Config {
	t.Helper()
	f, err := fs.Open(filepath.Join("/uploads", name))
	if err != nil {
		t.Fatalf("Open stored: %v", err)
	}
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		t.Fatalf("stored file is not a JPEG: %v", err)
	}
	return cfg
}

func fileCount(t *testing.T, fs afero.Fs) int {
	t.Helper()
	entries, err := afero.ReadDir(fs, "/uploads")
	if err != nil {
		return 0
	}
	return len(entries)
}

func TestProcessRejectsDisallowedTypesBeforeWriting(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := New(fs, "/uploads")

	for _, mt := range []string{"image/gif", "image/svg+xml", "application/octet-stream", "", "not a type"} {
		_, err := p.Process(bytes.NewReader(pngBytes(t, 4, 4)), mt)
		if !errors.Is(err, ErrUnsupportedType) {
			t.Fatalf("Process(%q): expected ErrUnsupportedType, got %v", mt, err)
		}
	}
	if n := fileCount(t, fs); n != 0 {
		t.Fatalf("expected no files written, found %d", n)
	}
}

func TestProcessFitsLargeImage(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := New(fs, "/uploads")

	name, err := p.Process(bytes.NewReader(pngBytes(t, 2400, 1200)), "image/png")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.HasSuffix(name, ".jpg") {
		t.Fatalf("expected .jpg name, got %q", name)
	}
	if _, err := uuid.Parse(strings.TrimSuffix(name, ".jpg")); err != nil {
		t.Fatalf("expected uuid stem: %v", err)
	}
	cfg := storedConfig(t, fs, name)
	if cfg.Width != 1200 || cfg.Height != 600 {
		t.Fatalf("expected 1200x600, got %dx%d", cfg.Width, cfg.Height)
	}
	if n := fileCount(t, fs); n != 1 {
		t.Fatalf("expected exactly one file (no temp leftovers), found %d", n)
	}
}

func TestProcessFitsTallImage(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := New(fs, "/uploads")

	name, err := p.Process(bytes.NewReader(pngBytes(t, 500, 1500)), "image/png")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	cfg := storedConfig(t, fs, name)
	if cfg.Height != 1200 || cfg.Width != 400 {
		t.Fatalf("expected 400x1200, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestProcessDoesNotUpscale(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := New(fs, "/uploads")

	var buf bytes.Buffer
	src := image.NewRGBA(image.Rect(0, 0, 320, 200))
	if err := jpeg.Encode(&buf, src, nil); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	name, err := p.Process(&buf, "image/jpeg; charset=binary")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	cfg := storedConfig(t, fs, name)
	if cfg.Width != 320 || cfg.Height != 200 {
		t.Fatalf("expected 320x200, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestProcessCorruptImage(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := New(fs, "/uploads")

	_, err := p.Process(strings.NewReader("definitely not a png"), "image/png")
	if err == nil || errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if n := fileCount(t, fs); n != 0 {
		t.Fatalf("expected no files written, found %d", n)
	}
}

// jpegWithOrientation encodes a w×h JPEG and inserts an EXIF APP1 segment
// right after SOI carrying a single little-endian Orientation tag.
func jpegWithOrientation(t *testing.T, w, h int, orientation uint16) []byte {
	t.Helper()
	var enc bytes.Buffer
	if err := jpeg.Encode(&enc, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	raw := enc.Bytes()

	var tiff bytes.Buffer
	tiff.WriteString("II")
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(42))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8)) // IFD0 offset
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(1)) // entries
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0x0112))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(3)) // SHORT
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(1))
	_ = binary.Write(&tiff, binary.LittleEndian, orientation)
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(0)) // next IFD

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	var out bytes.Buffer
	out.Write(raw[:2]) // SOI
	out.Write([]byte{0xff, 0xe1})
	_ = binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(raw[2:])
	return out.Bytes()
}

func TestProcessAppliesExifOrientation(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := New(fs, "/uploads")

	// Orientation 6 means the camera was rotated; the upright image is 50x100.
	name, err := p.Process(bytes.NewReader(jpegWithOrientation(t, 100, 50, 6)), "image/jpeg")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	cfg := storedConfig(t, fs, name)
	if cfg.Width != 50 || cfg.Height != 100 {
		t.Fatalf("expected 50x100 after orientation, got %dx%d", cfg.Width, cfg.Height)
	}

	// Orientation 1 leaves the pixels as encoded.
	name, err = p.Process(bytes.NewReader(jpegWithOrientation(t, 100, 50, 1)), "image/jpeg")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	cfg = storedConfig(t, fs, name)
	if cfg.Width != 100 || cfg.Height != 50 {
		t.Fatalf("expected 100x50, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestProcessDecodesWebP(t *testing.T) {
	src, err := os.ReadFile(filepath.Join("testdata", "gopher.webp"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	fs := afero.NewMemMapFs()
	p := New(fs, "/uploads")

	name, err := p.Process(bytes.NewReader(src), "image/webp")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.HasSuffix(name, Extension) {
		t.Fatalf("expected %s name, got %q", Extension, name)
	}
	cfg := storedConfig(t, fs, name)
	if cfg.Width != 75 || cfg.Height != 100 {
		t.Fatalf("expected 75x100, got %dx%d", cfg.Width, cfg.Height)
	}
}
