package pcm_test

import (
	"bytes"
	"encoding/binary"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/brontes/internal/pcm"
	"github.com/farcloser/brontes/internal/types"
)

func TestDecode16Stereo(t *testing.T) {
	var raw bytes.Buffer
	for _, v := range []int16{16384, -16384, 32767, 32767, -32768, 0} {
		require.NoError(t, binary.Write(&raw, binary.LittleEndian, v))
	}

	buffer, err := pcm.Decode(&raw, types.PCMFormat{SampleRate: 8000, BitDepth: types.Depth16, Channels: 2})
	require.NoError(t, err)

	assert.Equal(t, 1, buffer.Channels)
	assert.Equal(t, 8000, buffer.SampleRate)
	require.Len(t, buffer.Samples, 3)
	assert.InDelta(t, 0, buffer.Samples[0], 1e-12)
	assert.InDelta(t, 32767.0/32768, buffer.Samples[1], 1e-12)
	assert.InDelta(t, -0.5, buffer.Samples[2], 1e-12)
}

func TestDecode24(t *testing.T) {
	raw := []byte{
		0x00, 0x00, 0x40, // 0.5
		0x00, 0x00, 0xC0, // -0.5
		0xFF, 0xFF, 0x7F, // max
	}

	buffer, err := pcm.Decode(bytes.NewReader(raw), types.PCMFormat{SampleRate: 48000, BitDepth: types.Depth24, Channels: 1})
	require.NoError(t, err)
	require.Len(t, buffer.Samples, 3)
	assert.InDelta(t, 0.5, buffer.Samples[0], 1e-12)
	assert.InDelta(t, -0.5, buffer.Samples[1], 1e-12)
	assert.InDelta(t, 8388607.0/8388608, buffer.Samples[2], 1e-12)
}

func TestDecode32AcrossShortReads(t *testing.T) {
	var raw bytes.Buffer
	for _, v := range []int32{1 << 30, -(1 << 30), 0} {
		require.NoError(t, binary.Write(&raw, binary.LittleEndian, v))
	}

	// One byte at a time forces frames to straddle reads.
	reader := iotest.OneByteReader(&raw)

	buffer, err := pcm.Decode(reader, types.PCMFormat{SampleRate: 48000, BitDepth: types.Depth32, Channels: 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -0.5, 0}, buffer.Samples)
}

func TestDecodeErrors(t *testing.T) {
	_, err := pcm.Decode(bytes.NewReader(nil), types.PCMFormat{SampleRate: 48000, BitDepth: 8, Channels: 1})
	require.Error(t, err)

	_, err = pcm.Decode(bytes.NewReader(nil), types.PCMFormat{SampleRate: 48000, BitDepth: types.Depth16})
	require.ErrorIs(t, err, types.ErrInput)

	_, err = pcm.Decode(iotest.ErrReader(assert.AnError), types.PCMFormat{SampleRate: 48000, BitDepth: types.Depth16, Channels: 1})
	require.ErrorIs(t, err, assert.AnError)
}
