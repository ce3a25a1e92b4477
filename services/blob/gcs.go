package blobsvc

import (
	"context"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/reelbingo/promo/core"
)

const gcsPublicHost = "https://storage.googleapis.com"

// GCSStore keeps files in a Google Cloud Storage bucket.
type GCSStore struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
}

var _ core.BlobStore = (*GCSStore)(nil)

// NewGCSStore connects with the given service account file, or the default credentials if empty.
func NewGCSStore(ctx context.Context, bucket, credentialsFile, publicBaseURL string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket is not configured")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating gcs client")
	}
	if publicBaseURL == "" {
		publicBaseURL = gcsPublicHost + "/" + bucket
	}
	return &GCSStore{client: client, bucket: bucket, publicBaseURL: strings.TrimSuffix(publicBaseURL, "/")}, nil
}

func (s *GCSStore) Store(ctx context.Context, data []byte, contentType, pathHint string) (core.BlobObject, error) {
	key := strings.TrimPrefix(pathHint, "/")
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=3600"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return core.BlobObject{}, errors.Wrap(err, "writing object")
	}
	if err := w.Close(); err != nil {
		return core.BlobObject{}, errors.Wrap(err, "writing object")
	}
	return core.BlobObject{Path: key, PublicURL: s.publicBaseURL + "/" + key}, nil
}

func (s *GCSStore) Delete(ctx context.Context, objPath string) (bool, error) {
	err := s.client.Bucket(s.bucket).Object(strings.TrimPrefix(objPath, "/")).Delete(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, errors.Wrap(err, "deleting object")
	}
	return true, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
