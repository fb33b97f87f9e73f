package webui

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerServesAssetsAndFallsBack(t *testing.T) {
	h, err := Handler()
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}

	cases := []struct {
		path        string
		contentType string
		contains    string
	}{
		{"/", "text/html", "<canvas id=\"outCanvas\""},
		{"/index.html", "text/html", "<canvas id=\"outCanvas\""},
		{"/js/app.js", "javascript", "renderDots"},
		{"/js/app.js", "javascript", "return DISPLAY_WIDTH / width;"},
		{"/css/styles.css", "text/css", ".card"},
		{"/some/client/route", "text/html", "INFO COMP"},
		{"/js", "text/html", "INFO COMP"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status=%d", tc.path, rec.Code)
		}
		if ct := rec.Header().Get("content-type"); !strings.Contains(ct, tc.contentType) {
			t.Fatalf("%s: content-type=%q", tc.path, ct)
		}
		if !strings.Contains(rec.Body.String(), tc.contains) {
			t.Fatalf("%s: body missing %q", tc.path, tc.contains)
		}
	}
}
