package panel

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandlerServesRoot(t *testing.T) {
	w := get(t, Handler(""), "/")

	if w.Code != http.StatusOK {
		t.Errorf("GET /: got status %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
		t.Error("GET /: response doesn't contain HTML doctype")
	}
	if got := w.Header().Get("Cache-Control"); got != "no-cache, must-revalidate" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestHandlerServesAssets(t *testing.T) {
	handler := Handler("")

	for _, path := range []string{"/console.js", "/console.css"} {
		w := get(t, handler, path)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: got status %d, want 200", path, w.Code)
		}
		if w.Body.Len() == 0 {
			t.Errorf("GET %s: empty response body", path)
		}
	}

	if body := get(t, handler, "/console.js").Body.String(); !strings.Contains(body, "device.state_changed") {
		t.Error("console.js does not subscribe to device state changes")
	}
}

func TestHandlerRouteFallback(t *testing.T) {
	handler := Handler("")

	for _, path := range []string{"/devices/wheel", "/exposures"} {
		w := get(t, handler, path)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: got status %d, want 200 (index fallback)", path, w.Code)
		}
		if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
			t.Errorf("GET %s: fallback didn't serve index.html", path)
		}
	}
}

func TestHandlerMissingAssetIsNotFound(t *testing.T) {
	w := get(t, Handler(""), "/missing.js")
	if w.Code != http.StatusNotFound {
		t.Errorf("GET /missing.js: got status %d, want 404", w.Code)
	}
}

func TestHandlerFilesystemMode(t *testing.T) {
	dir := t.TempDir()
	indexContent := `<!DOCTYPE html><html><body>filesystem console</body></html>`
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(indexContent), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "console.js"), []byte("console.log('edited')"), 0644); err != nil {
		t.Fatal(err)
	}

	handler := Handler(dir)

	w := get(t, handler, "/")
	if !strings.Contains(w.Body.String(), "filesystem console") {
		t.Errorf("filesystem GET /: expected filesystem content, got %q", w.Body.String())
	}

	w = get(t, handler, "/console.js")
	if !strings.Contains(w.Body.String(), "edited") {
		t.Errorf("filesystem GET /console.js: got %q", w.Body.String())
	}

	w = get(t, handler, "/devices/wheel")
	if !strings.Contains(w.Body.String(), "filesystem console") {
		t.Error("filesystem fallback didn't serve filesystem index.html")
	}

	if w := get(t, handler, "/console.css"); w.Code != http.StatusNotFound {
		t.Errorf("filesystem GET /console.css: got status %d, want 404", w.Code)
	}
}

func TestHandlerInvalidDirFallsBackToEmbed(t *testing.T) {
	w := get(t, Handler("/nonexistent/dir/that/does/not/exist"), "/")

	if w.Code != http.StatusOK {
		t.Errorf("invalid dir GET /: got status %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "conectsim console") {
		t.Error("invalid dir: didn't fall back to embedded index.html")
	}
}
