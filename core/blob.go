package core

import "context"

// BlobObject is a stored file and the URL it is publicly served from.
type BlobObject struct {
	Path      string `json:"path"`
	PublicURL string `json:"public_url"`
}

// BlobStore keeps uploaded files.
type BlobStore interface {
	// Store saves data under a path derived from pathHint and returns where it ended up.
	Store(ctx context.Context, data []byte, contentType, pathHint string) (BlobObject, error)
	// Delete removes the file at path. Callers treat a failure as best-effort.
	Delete(ctx context.Context, path string) (bool, error)
}
