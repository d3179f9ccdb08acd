// Package upload validates and stores image files received in multipart forms.
package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"socialrelay/internal/model"
)

var allowedExt = map[string]bool{"png": true, "jpg": true, "jpeg": true}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// Allowed reports whether name carries an accepted image extension.
func Allowed(name string) bool {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	return allowedExt[strings.ToLower(ext)]
}

// SanitizeFilename reduces an untrusted client file name to a safe base name.
func SanitizeFilename(name string) string {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	if name == "" {
		return "upload"
	}
	return name
}

// Save checks fh, writes it under dir and returns the stored path. A random
// prefix keeps concurrent uploads of the same name apart.
func Save(dir string, fh *multipart.FileHeader) (string, error) {
	if fh == nil || fh.Filename == "" {
		return "", model.ErrNoSelectedFile
	}
	if !Allowed(fh.Filename) {
		return "", model.ErrFileNotAllowed
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	path := filepath.Join(dir, uuid.NewString()[:8]+"_"+SanitizeFilename(fh.Filename))
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

// Remove deletes a stored upload, ignoring files that are already gone.
func Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
