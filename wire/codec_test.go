package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncoderDecoderRoundTrip(t *testing.T) {
	enc := NewEncoder(PacketServerInfo)
	enc.Uint8(7)
	enc.Uint32(0xDEADBEEF)
	enc.String("opengfx")
	enc.Bytes([]byte{1, 2, 3, 4})
	frame, err := enc.Finish()
	require.NoError(t, err)
	require.Equal(t, int(frame[0])|int(frame[1])<<8, len(frame))
	require.Equal(t, byte(PacketServerInfo), frame[2])

	d := NewDecoder(frame[3:])
	typ, err := d.Uint8()
	require.NoError(t, err)
	require.Equal(t, uint8(7), typ)

	id, err := d.Uint32()
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), id)

	name, err := d.String()
	require.NoError(t, err)
	require.Equal(t, "opengfx", name)

	tail, err := d.Bytes(4)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, tail)

	require.Equal(t, 0, d.Remaining())
}

func TestEncoderTooBig(t *testing.T) {
	enc := NewEncoder(PacketServerContent)
	enc.Bytes(make([]byte, MTU))
	_, err := enc.Finish()
	require.Error(t, err)
	var tooBig *ErrTooBig
	require.ErrorAs(t, err, &tooBig)
}

func TestDecoderPastEnd(t *testing.T) {
	d := NewDecoder([]byte{1, 2})
	_, err := d.Uint32()
	require.Error(t, err)
	var invalid *PacketInvalid
	require.ErrorAs(t, err, &invalid)
}

func TestDecoderUnterminatedString(t *testing.T) {
	d := NewDecoder([]byte("no-nul-here"))
	_, err := d.String()
	require.Error(t, err)
}
