// Package storage implements the content-blob storage backend (spec.md
// §4.2): enumerating the on-disk/object-store content tree and opening
// read streams for download.
/*
 * Grounded on the original bananas_server's storage/{local,s3}.py.
 */
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/OpenTTD/bananas-server/content"
)

// ErrStreamRead is returned by Stream.Read when the backend read fails
// mid-transfer. It is distinct from a clean EOF and from transport-level
// socket closure (spec.md §7).
var ErrStreamRead = errors.New("storage: stream read error")

// Stream is a scoped resource exposing the bytes of one content blob.
type Stream interface {
	io.Reader
	io.Closer
	// EOF reports whether every byte of the blob has already been read.
	EOF() bool
}

// Backend is the storage capability set spec.md §4.2 describes. Both the
// local-filesystem and the object-store implementation satisfy it.
type Backend interface {
	// ListFolder lists the unique-id hex strings present under a content
	// type's folder.
	ListFolder(ctx context.Context, t content.Type) ([]string, error)
	// ListFolderEntries lists the filenames (typically "<md5>.tar.gz")
	// present under one unique-id folder.
	ListFolderEntries(ctx context.Context, t content.Type, uniqueHex string) ([]string, error)
	// OpenStream opens the blob backing entry for reading.
	OpenStream(ctx context.Context, entry *content.Entry) (Stream, error)
	// ClearCache drops any per-process caches (object-store listings, HTTP
	// clients) so the next reload rebuilds them from scratch.
	ClearCache()
}
