package audioconv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{name: "riff wav", data: []byte("RIFF....WAVE"), want: FormatWAV},
		{name: "ogg", data: []byte("OggS...."), want: FormatOgg},
		{name: "mp3 id3", data: []byte("ID3....."), want: FormatMP3},
		{name: "mp3 frame sync", data: []byte{0xff, 0xfb, 0x90, 0x00}, want: FormatMP3},
		{name: "garbage", data: []byte("hello"), want: FormatUnknown},
		{name: "empty", data: nil, want: FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sniff(tt.data))
		})
	}
}

func TestWAVEncodeDecodeRoundTrip(t *testing.T) {
	// A 440 Hz tone, 0.25 s at 16 kHz.
	samples := make([]float32, TargetRate/4)
	for i := range samples {
		samples[i] = 0.5 * float32(math.Sin(2*math.Pi*440*float64(i)/TargetRate))
	}

	encoded, err := EncodeWAV16k(samples)
	require.NoError(t, err)
	require.Equal(t, FormatWAV, Sniff(encoded))

	decoded, err := DecodeToPCM16k(encoded, Options{})
	require.NoError(t, err)
	require.Len(t, decoded, len(samples))

	// 16-bit quantization error only.
	for i := 0; i < len(samples); i += 100 {
		assert.InDelta(t, samples[i], decoded[i], 0.001)
	}
}

func TestDecodeRespectsMaxSamples(t *testing.T) {
	samples := make([]float32, TargetRate)
	encoded, err := EncodeWAV16k(samples)
	require.NoError(t, err)

	decoded, err := DecodeToPCM16k(encoded, Options{MaxSamples: 1000})
	require.NoError(t, err)
	assert.Len(t, decoded, 1000)
}

func TestDecodeUnknownFormatFails(t *testing.T) {
	_, err := DecodeToPCM16k([]byte("definitely not audio"), Options{})
	require.Error(t, err)
}

func TestEncodeEmptyFails(t *testing.T) {
	_, err := EncodeWAV16k(nil)
	require.Error(t, err)
}

func TestDownmix(t *testing.T) {
	stereo := []float32{1, 0, 0.5, 0.5, -1, 1}
	mono := downmix(stereo, 2)
	require.Len(t, mono, 3)
	assert.InDelta(t, 0.5, mono[0], 1e-6)
	assert.InDelta(t, 0.5, mono[1], 1e-6)
	assert.InDelta(t, 0.0, mono[2], 1e-6)
}

func TestResample(t *testing.T) {
	in := make([]float32, 32000) // 1 s @ 32 kHz
	out := resample(in, 32000, TargetRate)
	assert.Len(t, out, TargetRate)

	same := resample(in, TargetRate, TargetRate)
	assert.Equal(t, len(in), len(same))
}
