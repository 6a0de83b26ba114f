package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/OpenTTD/bananas-server/content"
	"github.com/OpenTTD/bananas-server/wire"
)

func TestDecodeOpenTTDVersionLegacy(t *testing.T) {
	// 0x0A0B0000 -> legacy layout (top byte 0x0A = 10, not > 27) -> [0, 10, 11]
	d := wire.NewDecoder(nil)
	versions, err := decodeOpenTTDVersion(d, 0x0A0B0000)
	require.NoError(t, err)
	require.Equal(t, []int{0, 10, 11}, versions["vanilla"])
}

func TestDecodeOpenTTDVersionExtended(t *testing.T) {
	// top byte 30 (>27) -> major = 30-16 = 14, minor = bits 20-23
	raw := uint32(30)<<24 | uint32(2)<<20
	versions, err := decodeOpenTTDVersion(wire.NewDecoder(nil), raw)
	require.NoError(t, err)
	require.Equal(t, []int{14, 2}, versions["vanilla"])
}

func TestDecodeOpenTTDVersionSentinel(t *testing.T) {
	enc := wire.NewEncoder(wire.PacketClientInfoList)
	enc.Uint8(1) // one branch
	enc.String("vanilla")
	enc.Uint8(2)
	enc.Uint8(12)
	enc.Uint8(1)
	frame, err := enc.Finish()
	require.NoError(t, err)

	d := wire.NewDecoder(frame[3:])
	versions, err := decodeOpenTTDVersion(d, 0xFFFFFFFF)
	require.NoError(t, err)
	require.Equal(t, []int{12, 1}, versions["vanilla"])
}

func TestEncodeServerInfoRoundTrip(t *testing.T) {
	uploadDate := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	entry := &content.Entry{
		ContentType:  content.TypeNewGRF,
		ContentID:    0x01ABCDEF,
		FileSize:     4096,
		Name:         "Example GRF",
		Version:      "1.0",
		URL:          "https://example.invalid",
		Description:  "a test entry",
		UniqueID:     content.UniqueID{0x01, 0x02, 0x03, 0x04},
		UploadDate:   uploadDate,
		MD5Sum:       content.MD5{0xAA, 0xBB},
		Dependencies: []uint32{7, 8},
		Regions:      []string{"nl"},
	}

	frame, err := encodeServerInfo(entry)
	require.NoError(t, err)

	d := wire.NewDecoder(frame[3:])
	typ, err := d.Uint8()
	require.NoError(t, err)
	require.Equal(t, uint8(content.TypeNewGRF), typ)

	id, err := d.Uint32()
	require.NoError(t, err)
	require.Equal(t, entry.ContentID, id)

	size, err := d.Uint32()
	require.NoError(t, err)
	require.Equal(t, entry.FileSize, size)

	name, err := d.String()
	require.NoError(t, err)
	require.Equal(t, entry.Name, name)

	version, err := d.String()
	require.NoError(t, err)
	require.Equal(t, entry.Version, version)

	url, err := d.String()
	require.NoError(t, err)
	require.Equal(t, entry.URL, url)

	desc, err := d.String()
	require.NoError(t, err)
	require.Equal(t, entry.Description, desc)

	uniqueWire, err := d.Bytes(4)
	require.NoError(t, err)
	var arr [4]byte
	copy(arr[:], uniqueWire)
	require.Equal(t, entry.UniqueID, content.DecodeUniqueID(content.TypeNewGRF, arr))

	md5, err := d.Bytes(16)
	require.NoError(t, err)
	require.Equal(t, entry.MD5Sum[:], md5)

	depCount, err := d.Uint8()
	require.NoError(t, err)
	require.Equal(t, uint8(2), depCount)
	for _, want := range entry.Dependencies {
		got, err := d.Uint32()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	tagCount, err := d.Uint8()
	require.NoError(t, err)
	tags := make([]string, tagCount)
	for i := range tags {
		tags[i], err = d.String()
		require.NoError(t, err)
	}
	require.Equal(t, entry.Tags(), tags)

	unixTime, err := d.Uint32()
	require.NoError(t, err)
	require.Equal(t, uint32(uploadDate.Unix()), unixTime)

	require.Equal(t, 0, d.Remaining())
}
