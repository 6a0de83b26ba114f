package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/OpenTTD/bananas-server/content"
	"github.com/OpenTTD/bananas-server/storage"
)

// zeros returns n '0' characters, used to pad a partial md5 out to a full
// 32-hex-char digest whose last three bytes (six hex chars) are all zero —
// i.e. a deterministic content-id base candidate for tests.
func zeros(n int) string { return strings.Repeat("0", n) }

// writeEntry lays out one unique-id directory's global.yaml, a single
// versions/*.yaml file, and the matching blob under the storage root so the
// loader's partial-md5 pre-pass can resolve it.
func writeEntry(t *testing.T, indexRoot, storageRoot, folder, uniqueHex, md5Hex, uploadDate string) {
	t.Helper()
	dir := filepath.Join(indexRoot, folder, uniqueHex)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "versions"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "global.yaml"), []byte("name: Example\navailability: new-games\n"), 0o644))

	version := "filesize: 100\nversion: \"1.0\"\nmd5sum-partial: " + md5Hex[:8] + "\nupload-date: " + uploadDate + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "versions", "v1.yaml"), []byte(version), 0o644))

	blobDir := filepath.Join(storageRoot, folder, uniqueHex)
	require.NoError(t, os.MkdirAll(blobDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(blobDir, md5Hex+".tar.gz"), []byte("fake blob"), 0o644))
}

func TestLoaderBuildsSnapshot(t *testing.T) {
	indexRoot := t.TempDir()
	storageRoot := t.TempDir()

	writeEntry(t, indexRoot, storageRoot, "base-graphics", "01020304",
		"aabbccdd"+zeros(24), "2020-01-01T00:00:00Z")

	backend := storage.NewLocal(storageRoot)
	loader := NewLoader(indexRoot, backend)

	snap, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, snap.Len())

	entries := snap.ByContentType(content.TypeBaseGraphics)
	require.Len(t, entries, 1)
	require.Equal(t, "Example", entries[0].Name)
	require.False(t, entries[0].Archived)

	entry, ok := snap.ByContentID(entries[0].ContentID)
	require.True(t, ok)
	require.Equal(t, entries[0], entry)

	byUnique, ok := snap.ByUniqueID(content.TypeBaseGraphics, entry.UniqueID)
	require.True(t, ok)
	require.Equal(t, entry, byUnique)
}

func TestLoaderContentIDCollisionCounter(t *testing.T) {
	// Both entries share the same last-3-md5-bytes tail (all zero) but
	// different unique ids and upload dates; the earlier upload gets the
	// lower content id within that shared base (spec.md §4.3, §8 scenario 4).
	indexRoot := t.TempDir()
	storageRoot := t.TempDir()

	writeEntry(t, indexRoot, storageRoot, "newgrf", "00000001",
		"11111111"+zeros(24), "2020-01-01T00:00:00Z")
	writeEntry(t, indexRoot, storageRoot, "newgrf", "00000002",
		"22222222"+zeros(24), "2021-01-01T00:00:00Z")

	backend := storage.NewLocal(storageRoot)
	loader := NewLoader(indexRoot, backend)

	snap, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, snap.Len())

	entries := snap.ByContentType(content.TypeNewGRF)
	require.Len(t, entries, 2)

	var early, later *content.Entry
	for _, e := range entries {
		if e.UploadDate.Year() == 2020 {
			early = e
		} else {
			later = e
		}
	}
	require.NotNil(t, early)
	require.NotNil(t, later)
	require.Equal(t, early.ContentID&0xFF000000, uint32(0))
	require.Equal(t, later.ContentID&0xFF000000, uint32(1)<<24)
	require.Equal(t, early.ContentID&0x00FFFFFF, later.ContentID&0x00FFFFFF)
}

func TestLoaderSkipsBlacklisted(t *testing.T) {
	indexRoot := t.TempDir()
	storageRoot := t.TempDir()

	dir := filepath.Join(indexRoot, "ai", "0a0b0c0d")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "versions"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "global.yaml"), []byte("name: Blocked\nblacklisted: true\navailability: new-games\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "versions", "v1.yaml"), []byte("filesize: 1\nversion: \"1.0\"\nmd5sum-partial: deadbeef\nupload-date: 2020-01-01T00:00:00Z\n"), 0o644))

	backend := storage.NewLocal(storageRoot)
	loader := NewLoader(indexRoot, backend)

	snap, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, snap.Len())
}
