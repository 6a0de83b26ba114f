package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitFramesCompleteAndPartial(t *testing.T) {
	f1, err := NewEncoder(PacketClientInfoList).Uint8(1).Finish()
	require.NoError(t, err)
	f2, err := NewEncoder(PacketClientInfoID).Uint16(0).Finish()
	require.NoError(t, err)

	buf := append(append([]byte{}, f1...), f2...)
	buf = append(buf, 0x05, 0x00) // partial third frame: length prefix only

	frames, rest := SplitFrames(buf)
	require.Len(t, frames, 2)
	require.Equal(t, f1, frames[0])
	require.Equal(t, f2, frames[1])
	require.Equal(t, []byte{0x05, 0x00}, rest)
}

func TestSplitFramesEmpty(t *testing.T) {
	frames, rest := SplitFrames(nil)
	require.Nil(t, frames)
	require.Nil(t, rest)
}
