package content

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFolderNameRoundTrip(t *testing.T) {
	for _, typ := range AllTypes {
		folder := typ.FolderName()
		got, ok := FromFolderName(folder)
		require.True(t, ok)
		require.Equal(t, typ, got)
	}
}

func TestTypeEndIsInvalid(t *testing.T) {
	require.False(t, TypeEnd.Valid())
	require.False(t, Type(0).Valid())
	require.True(t, TypeNewGRF.Valid())
}

func TestUniqueIDByteSwap(t *testing.T) {
	wire := [4]byte{0x01, 0x02, 0x03, 0x04}

	swapped := DecodeUniqueID(TypeNewGRF, wire)
	require.Equal(t, UniqueID{0x04, 0x03, 0x02, 0x01}, swapped)
	require.Equal(t, wire, EncodeUniqueID(TypeNewGRF, swapped))

	plain := DecodeUniqueID(TypeAI, wire)
	require.Equal(t, UniqueID(wire), plain)
	require.Equal(t, wire, EncodeUniqueID(TypeAI, plain))
}

func TestParseUniqueIDHex(t *testing.T) {
	uid, err := ParseUniqueIDHex("01020304")
	require.NoError(t, err)
	require.Equal(t, UniqueID{0x01, 0x02, 0x03, 0x04}, uid)
	require.Equal(t, "01020304", uid.Hex())

	_, err = ParseUniqueIDHex("xyz")
	require.Error(t, err)
}
