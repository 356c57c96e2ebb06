// Package datasource loads the policy and reference datasets from files or
// object storage, keeps the current snapshot, and reloads it when the files
// change.
package datasource

import (
	"context"
	"io"
	"os"

	objstore "github.com/haebom/tariff/internal/infrastructure/storage/minio"
	"github.com/haebom/tariff/pkg/errors"
)

// Source kinds.
const (
	KindFile   = "file"
	KindObject = "minio"
)

// Source opens dataset documents by path or object key.
type Source interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Kind() string
}

// FileSource reads datasets from the local filesystem.
type FileSource struct{}

func (FileSource) Kind() string { return KindFile }

func (FileSource) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnavailable, "dataset file unavailable").WithDetail(path)
	}
	return f, nil
}

// ObjectOpener is the part of the object store client a Source needs.
type ObjectOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, objstore.ObjectInfo, error)
}

// ObjectSource reads datasets from a bucket; paths are object keys.
type ObjectSource struct {
	client ObjectOpener
}

func NewObjectSource(client ObjectOpener) *ObjectSource {
	return &ObjectSource{client: client}
}

func (s *ObjectSource) Kind() string { return KindObject }

func (s *ObjectSource) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, _, err := s.client.Open(ctx, key)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnavailable, "dataset object unavailable").WithDetail(key)
	}
	return rc, nil
}
