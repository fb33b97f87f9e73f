package adminapi

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"infocomp/internal/auth"
	"infocomp/internal/config"
	"infocomp/internal/daemon"
)

const (
	adminEmail = "admin@example.com"
	adminPass  = "correct horse"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	dir := t.TempDir()
	c := config.Config{
		Log:      config.LogConfig{Level: "info"},
		DB:       config.DBConfig{Path: filepath.Join(dir, "data.db")},
		Uploads:  config.UploadsConfig{Dir: filepath.Join(dir, "uploads")},
		Admin:    config.AdminConfig{Email: adminEmail, Password: adminPass},
		Password: config.PasswordConfig{Algorithm: "bcrypt", BcryptCost: auth.MinBcryptCost},
	}
	c.HTTP.Bind = "127.0.0.1"
	c.HTTP.Port = 3000
	c.HTTP.MaxUpload = "2 MB"
	c.Session.TTL = time.Hour
	c.Session.CookieName = config.DefaultCookieName
	c.Session.Secret = "adminapi-test-secret-adminapi-test"
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	app, err := daemon.New(context.Background(), c, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ts := httptest.NewServer(app.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = app.Close()
	})

	cl, err := NewClient(ClientOptions{Addr: ts.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return cl
}

func TestNewClientValidatesAddr(t *testing.T) {
	if _, err := NewClient(ClientOptions{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
	if _, err := NewClient(ClientOptions{Addr: "http://"}); err == nil {
		t.Fatalf("expected error for addr without host")
	}
}

func TestLoginAndSession(t *testing.T) {
	c := newTestClient(t)

	s, err := c.Session()
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if s.Authenticated {
		t.Fatalf("expected anonymous session")
	}

	_, err = c.Login(adminEmail, "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}

	isAdmin, err := c.Login(adminEmail, adminPass)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !isAdmin {
		t.Fatalf("expected admin")
	}
	s, err = c.Session()
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if !s.Authenticated || !s.IsAdmin {
		t.Fatalf("session=%+v", s)
	}

	if err := c.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	s, err = c.Session()
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if s.Authenticated {
		t.Fatalf("still authenticated after logout")
	}
}

func TestCreateInfoWithImage(t *testing.T) {
	c := newTestClient(t)

	if _, err := c.CreateInfo("anon", "", ""); err == nil {
		t.Fatalf("expected create without login to fail")
	}

	if _, err := c.Login(adminEmail, adminPass); err != nil {
		t.Fatalf("Login: %v", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for x := 0; x < 64; x++ {
		img.Set(x, x%32, color.RGBA{R: 255, A: 255})
	}
	p := filepath.Join(t.TempDir(), "pic.png")
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	_ = f.Close()

	in, err := c.CreateInfo("  Poster  ", "line one", p)
	if err != nil {
		t.Fatalf("CreateInfo: %v", err)
	}
	if in.Name != "Poster" || in.Description != "line one" {
		t.Fatalf("info=%+v", in)
	}
	if in.ImageURL == nil || !strings.HasPrefix(*in.ImageURL, "/uploads/") || !strings.HasSuffix(*in.ImageURL, ".jpg") {
		t.Fatalf("image_url=%v", in.ImageURL)
	}

	second, err := c.CreateInfo("Text only", "", "")
	if err != nil {
		t.Fatalf("CreateInfo: %v", err)
	}
	if second.ImageURL != nil {
		t.Fatalf("expected no image, got %q", *second.ImageURL)
	}

	list, err := c.ListInfos()
	if err != nil {
		t.Fatalf("ListInfos: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != in.ID {
		t.Fatalf("unexpected list order: %+v", list)
	}
}

func TestCreateInfoMissingFile(t *testing.T) {
	c := newTestClient(t)
	if _, err := c.CreateInfo("x", "", filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Fatalf("expected error for missing image file")
	}
}
