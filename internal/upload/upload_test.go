package upload

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialrelay/internal/model"
)

func TestAllowed(t *testing.T) {
	for name, want := range map[string]bool{
		"a.png":        true,
		"a.JPG":        true,
		"photo.jpeg":   true,
		"anim.gif":     false,
		"noext":        false,
		"evil.png.exe": false,
		".png":         true,
	} {
		assert.Equal(t, want, Allowed(name), name)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"My cat.png":         "My_cat.png",
		"../../etc/passwd":   "etc_passwd",
		`C:\Users\x\pic.jpg`: "C_Users_x_pic.jpg",
		".hidden.png":        "hidden.png",
		"???":                "upload",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
	assert.Equal(t, "caf_dj.jpeg", SanitizeFilename("caf\u00e9 d\u00e9j\u00e0.jpeg"))
}

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, _ = part.Write(content)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func TestSaveWritesSanitizedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "temp")
	path, err := Save(dir, fileHeader(t, "../my pic.PNG", []byte("data")))
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, "_my_pic.PNG"))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(b))

	require.NoError(t, Remove(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, Remove(path))
}

func TestSaveRejects(t *testing.T) {
	dir := t.TempDir()
	_, err := Save(dir, fileHeader(t, "anim.gif", []byte("GIF89a")))
	assert.ErrorIs(t, err, model.ErrFileNotAllowed)

	_, err = Save(dir, nil)
	assert.ErrorIs(t, err, model.ErrNoSelectedFile)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}
