// Package storage persists uploaded catalog images.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidLink = errors.New("link does not belong to this store")

// ImageStore saves uploaded images and returns a link to reference them by.
type ImageStore interface {
	Save(ctx context.Context, filename, contentType string, r io.Reader) (string, error)
	// Delete removes the object behind link. Deleting a missing object is
	// not an error.
	Delete(ctx context.Context, link string) error
}

var allowedImageTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpg":  {},
	"image/jpeg": {},
}

// IsAllowedImageType reports whether contentType is an accepted upload type.
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[strings.ToLower(strings.TrimSpace(contentType))]
	return ok
}

// objectName derives a unique, path-free object name from an upload name.
func objectName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, base)
	if base == "" || base == "." || base == "_" {
		base = "image"
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "") + "_" + base
}
