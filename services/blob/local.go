package blobsvc

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/reelbingo/promo/core"
)

var errOutsideRoot = errors.New("path escapes the storage root")

// LocalStore keeps files on disk under dir; they are served from publicBaseURL.
type LocalStore struct {
	dir           string
	publicBaseURL string
}

var _ core.BlobStore = (*LocalStore)(nil)

func NewLocalStore(dir, publicBaseURL string) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(err, "resolving storage dir")
	}
	if err = os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating storage dir")
	}
	return &LocalStore{dir: abs, publicBaseURL: strings.TrimSuffix(publicBaseURL, "/")}, nil
}

// Dir is the storage root, to be served as static files.
func (s *LocalStore) Dir() string { return s.dir }

// resolve maps a slash separated object path to a file under the root.
func (s *LocalStore) resolve(objPath string) (key, file string, err error) {
	key = strings.TrimPrefix(path.Clean("/"+objPath), "/")
	if key == "" {
		return "", "", errors.New("empty path")
	}
	file = filepath.Join(s.dir, filepath.FromSlash(key))
	if rel, err := filepath.Rel(s.dir, file); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", errOutsideRoot
	}
	return key, file, nil
}

func (s *LocalStore) Store(ctx context.Context, data []byte, _, pathHint string) (core.BlobObject, error) {
	if err := ctx.Err(); err != nil {
		return core.BlobObject{}, err
	}
	key, file, err := s.resolve(pathHint)
	if err != nil {
		return core.BlobObject{}, err
	}
	if err = os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return core.BlobObject{}, errors.Wrap(err, "creating object dir")
	}

	// write then rename so readers never see a partial file
	tmp, err := os.CreateTemp(filepath.Dir(file), ".upload-*")
	if err != nil {
		return core.BlobObject{}, errors.Wrap(err, "creating temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return core.BlobObject{}, errors.Wrap(err, "writing object")
	}
	if err = tmp.Close(); err != nil {
		return core.BlobObject{}, errors.Wrap(err, "writing object")
	}
	if err = os.Rename(tmp.Name(), file); err != nil {
		return core.BlobObject{}, errors.Wrap(err, "moving object")
	}
	return core.BlobObject{Path: key, PublicURL: s.publicBaseURL + "/" + key}, nil
}

func (s *LocalStore) Delete(_ context.Context, objPath string) (bool, error) {
	_, file, err := s.resolve(objPath)
	if err != nil {
		return false, err
	}
	if err = os.Remove(file); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "removing object")
	}
	return true, nil
}
