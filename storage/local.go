package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"

	"github.com/OpenTTD/bananas-server/content"
	"github.com/OpenTTD/bananas-server/internal/cos"
)

// Local is the filesystem-backed storage backend: blobs live at
// {root}/{folder-name}/{unique_id}/{md5sum}.tar.gz.
type Local struct {
	Root string
}

func NewLocal(root string) *Local { return &Local{Root: root} }

func (l *Local) blobPath(entry *content.Entry) string {
	return filepath.Join(l.Root, entry.ContentType.FolderName(), entry.UniqueID.Hex(), entry.MD5Sum.Hex()+".tar.gz")
}

func (l *Local) ClearCache() {} // nothing to drop: the filesystem is the source of truth

func (l *Local) ListFolder(_ context.Context, t content.Type) ([]string, error) {
	dir := filepath.Join(l.Root, t.FolderName())
	entries, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (l *Local) ListFolderEntries(_ context.Context, t content.Type, uniqueHex string) ([]string, error) {
	dir := filepath.Join(l.Root, t.FolderName(), uniqueHex)
	entries, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

type localStream struct {
	f        *os.File
	remaining int64
}

func (s *localStream) Read(p []byte) (int, error) {
	if s.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > s.remaining {
		p = p[:s.remaining]
	}
	n, err := s.f.Read(p)
	s.remaining -= int64(n)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("%w: %v", ErrStreamRead, err)
	}
	return n, err
}

func (s *localStream) EOF() bool    { return s.remaining <= 0 }
func (s *localStream) Close() error { return s.f.Close() }

func (l *Local) OpenStream(_ context.Context, entry *content.Entry) (Stream, error) {
	path := l.blobPath(entry)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cos.NewErrNotFound("storage: blob %s for content id %d", path, entry.ContentID)
		}
		return nil, fmt.Errorf("storage: expected file %s to exist for content id %d: %w", path, entry.ContentID, err)
	}
	return &localStream{f: f, remaining: int64(entry.FileSize)}, nil
}
