// Package blobsvc holds the proof image stores.
package blobsvc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/reelbingo/promo/core"
)

const defaultLocalBaseURL = "http://localhost:8000/media"

// New returns the store selected by conf.Storage.Driver: "local", "gcs" or "memory".
// An empty public base URL falls back to the driver's default.
func New(ctx context.Context, conf *core.Config) (core.BlobStore, error) {
	baseURL := conf.Storage.PublicBaseURL
	switch conf.Storage.Driver {
	case "", "local":
		if baseURL == "" {
			baseURL = defaultLocalBaseURL
		}
		return NewLocalStore(conf.Storage.LocalDir, baseURL)
	case "gcs":
		return NewGCSStore(ctx, conf.Storage.GCSBucket, conf.Storage.GCSCredentials, baseURL)
	case "memory":
		return NewMemoryStore(baseURL), nil
	}
	return nil, errors.Errorf("unknown storage driver %q", conf.Storage.Driver)
}
