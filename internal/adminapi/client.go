// Package adminapi is a small HTTP client for the site's JSON API, used by
// the terminal admin.
package adminapi

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Client struct {
	baseURL *url.URL
	hc      *http.Client
}

type ClientOptions struct {
	Addr     string
	Insecure bool
	Timeout  time.Duration
}

// APIError is a non-2xx response. Message is the server's "error" field
// when present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

func NewClient(opt ClientOptions) (*Client, error) {
	if opt.Addr == "" {
		return nil, errors.New("addr is required")
	}
	u, err := url.Parse(opt.Addr)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		u.Scheme = "http"
	}
	if u.Host == "" {
		return nil, errors.New("invalid addr")
	}

	jar, _ := cookiejar.New(nil)
	t := &http.Transport{}
	if strings.EqualFold(u.Scheme, "https") {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: opt.Insecure} //nolint:gosec
	}

	timeout := opt.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	hc := &http.Client{Transport: t, Jar: jar, Timeout: timeout}
	return &Client{baseURL: u, hc: hc}, nil
}

// Login starts a session and reports whether the account is an admin.
func (c *Client) Login(email, password string) (bool, error) {
	req := map[string]string{"email": email, "password": password}
	var resp struct {
		Success bool `json:"success"`
		IsAdmin bool `json:"isAdmin"`
	}
	if err := c.doJSON(http.MethodPost, "/api/login", req, &resp); err != nil {
		return false, err
	}
	return resp.IsAdmin, nil
}

func (c *Client) Logout() error {
	return c.doJSON(http.MethodPost, "/api/logout", nil, nil)
}

type Session struct {
	Authenticated bool `json:"authenticated"`
	IsAdmin       bool `json:"isAdmin"`
}

func (c *Client) Session() (Session, error) {
	var s Session
	err := c.doJSON(http.MethodGet, "/api/session", nil, &s)
	return s, err
}

type Info struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ImageURL    *string `json:"image_url"`
	CreatedAt   string  `json:"created_at"`
}

func (c *Client) ListInfos() ([]Info, error) {
	var out []Info
	if err := c.doJSON(http.MethodGet, "/api/info", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateInfo publishes an entry. imagePath may be empty; otherwise the file
// is sent as the "image" part with a sniffed content type.
func (c *Client) CreateInfo(name, description, imagePath string) (Info, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("name", name)
	_ = mw.WriteField("description", description)

	if imagePath != "" {
		b, err := os.ReadFile(imagePath)
		if err != nil {
			return Info{}, err
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filepath.Base(imagePath)))
		h.Set("Content-Type", http.DetectContentType(b))
		part, err := mw.CreatePart(h)
		if err != nil {
			return Info{}, err
		}
		if _, err := part.Write(b); err != nil {
			return Info{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return Info{}, err
	}

	var out Info
	err := c.do(http.MethodPost, "/api/info", mw.FormDataContentType(), &buf, &out)
	return out, err
}

func (c *Client) doJSON(method, path string, body any, out any) error {
	var buf io.Reader
	ct := ""
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(b)
		ct = "application/json"
	}
	return c.do(method, path, ct, buf, out)
}

func (c *Client) do(method, path, contentType string, body io.Reader, out any) error {
	u := c.baseURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequest(method, u.String(), body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("content-type", contentType)
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var er struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&er)
		return &APIError{Status: resp.StatusCode, Message: er.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
