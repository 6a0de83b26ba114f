package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/OpenTTD/bananas-server/content"
)

func TestLocalListFolderMissingIsEmpty(t *testing.T) {
	l := NewLocal(t.TempDir())
	names, err := l.ListFolder(context.Background(), content.TypeNewGRF)
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestLocalListFolderAndEntries(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "newgrf", "01020304"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "newgrf", "01020304", "abc.tar.gz"), []byte("x"), 0o644))

	l := NewLocal(root)
	unique, err := l.ListFolder(context.Background(), content.TypeNewGRF)
	require.NoError(t, err)
	require.Equal(t, []string{"01020304"}, unique)

	files, err := l.ListFolderEntries(context.Background(), content.TypeNewGRF, "01020304")
	require.NoError(t, err)
	require.Equal(t, []string{"abc.tar.gz"}, files)
}

func TestLocalOpenStreamReadsExactlyFileSize(t *testing.T) {
	root := t.TempDir()
	entry := &content.Entry{
		ContentType: content.TypeBaseGraphics,
		UniqueID:    content.UniqueID{0x01, 0x02, 0x03, 0x04},
		MD5Sum:      content.MD5{0xAA},
		FileSize:    5,
	}
	l := NewLocal(root)
	path := filepath.Join(root, entry.ContentType.FolderName(), entry.UniqueID.Hex(), entry.MD5Sum.Hex()+".tar.gz")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("hello world, more than 5 bytes"), 0o644))

	stream, err := l.OpenStream(context.Background(), entry)
	require.NoError(t, err)
	defer stream.Close()

	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
	require.True(t, stream.EOF())
}

func TestLocalOpenStreamMissingFile(t *testing.T) {
	l := NewLocal(t.TempDir())
	entry := &content.Entry{ContentType: content.TypeBaseGraphics, FileSize: 1}
	_, err := l.OpenStream(context.Background(), entry)
	require.Error(t, err)
}
