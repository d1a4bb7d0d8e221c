package domain

import (
	"context"
	"io"
)

// BlobWriter uploads objects to cold storage. Used by the settlement
// archiver to export resolved markets.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
