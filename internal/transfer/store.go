package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotCached is returned by a BlobStore that holds nothing under a name.
var ErrNotCached = errors.New("not cached")

// BlobStore keeps the raw gzip bytes of downloaded snapshots.
type BlobStore interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
}

// validName rejects names that could escape the store's namespace.
func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid snapshot name %q", name)
	}
	return nil
}
