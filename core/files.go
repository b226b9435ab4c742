package core

import (
	"context"
	"io"
)

// StoredFile references an uploaded file.
type StoredFile struct {
	Name        string // <unix millis>-<sanitized original name>
	URL         string
	ContentType string
}

// FileStorage stores uploaded files (student photos, notice attachments).
type FileStorage interface {
	// Save stores r under dir (e.g. "students", "notices").
	Save(ctx context.Context, dir, filename string, r io.Reader, contentType string) (StoredFile, error)
	// URL returns the public URL of a stored file.
	URL(dir, name string) string
}
