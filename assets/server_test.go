package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "page.html"), []byte("<html></html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.js"), []byte("void 0;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "style.css"), []byte("body{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "data.bin"), []byte{0x01}, 0o644))
	return New(root, 0, nil), root
}

func get(t *testing.T, s *Server, rawPath string) *httptest.ResponseRecorder {
	t.Helper()
	// Build the request by hand so traversal segments survive client-side
	// path normalization.
	req := httptest.NewRequest(http.MethodGet, "http://localhost/", nil)
	req.URL = &url.URL{Path: rawPath}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestContentTypes(t *testing.T) {
	s, _ := newTestServer(t)

	cases := []struct {
		path string
		want string
	}{
		{"/page.html", "text/html"},
		{"/app.js", "text/javascript"},
		{"/style.css", "text/css"},
		{"/data.bin", "text/plain"},
	}
	for _, tc := range cases {
		rec := get(t, s, tc.path)
		assert.Equal(t, http.StatusOK, rec.Code, tc.path)
		assert.Equal(t, tc.want, rec.Header().Get("Content-Type"), tc.path)
		assert.NotEmpty(t, rec.Body.Bytes(), tc.path)
	}
}

func TestCORSHeaders(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/page.html")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestMissingFileEmptyBody(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/absent.html")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}

func TestTraversalStaysUnderRoot(t *testing.T) {
	s, root := newTestServer(t)

	// Plant a file just outside the root; a traversal request must never
	// reach it.
	outside := filepath.Join(filepath.Dir(root), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))
	t.Cleanup(func() { os.Remove(outside) })

	for _, p := range []string{
		"/../secret.txt",
		"/../../etc/passwd",
		"/a/../../secret.txt",
	} {
		rec := get(t, s, p)
		assert.Equal(t, http.StatusOK, rec.Code, p)
		assert.NotContains(t, rec.Body.String(), "secret", p)
		assert.NotContains(t, rec.Body.String(), "root:", p)
	}
}

func TestPortConflict(t *testing.T) {
	root := t.TempDir()

	first := New(root, 3799, nil)
	require.NoError(t, first.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		first.Stop(ctx)
	}()

	second := New(root, 3799, nil)
	assert.Error(t, second.Start())
}

func TestURL(t *testing.T) {
	s := New(t.TempDir(), 3030, nil)
	assert.Equal(t, "http://localhost:3030/fixtures/basic.html", s.URL("fixtures/basic.html"))
	assert.Equal(t, "http://localhost:3030/fixtures/basic.html", s.URL("/fixtures/basic.html"))
}
