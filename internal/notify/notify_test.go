package notify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoundsLookup(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.wav"), []byte("RIFFxxxx"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "error.mp3"), []byte("ID3xxxx"), 0o644))

	s := NewSounds(dir)

	snd := s.Get(EmptyTranscription)
	require.NotNil(t, snd)
	assert.Equal(t, "audio/wav", snd.MediaType)
	assert.Equal(t, []byte("RIFFxxxx"), snd.Data)

	// No dedicated file for this class, falls back to the general tone.
	snd = s.Get(TTSFailed)
	require.NotNil(t, snd)
	assert.Equal(t, "audio/mpeg", snd.MediaType)

	// Cached: deleting the file must not affect later lookups.
	require.NoError(t, os.Remove(filepath.Join(dir, "empty.wav")))
	snd = s.Get(EmptyTranscription)
	require.NotNil(t, snd)
	assert.Equal(t, []byte("RIFFxxxx"), snd.Data)
}

func TestSoundsFormatPreference(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "error.mp3"), []byte("ID3xxxx"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "error.wav"), []byte("RIFFxxxx"), 0o644))

	// Both formats present: the wav is always the one picked.
	snd := NewSounds(dir).Get(GeneralError)
	require.NotNil(t, snd)
	assert.Equal(t, "audio/wav", snd.MediaType)
	assert.Equal(t, []byte("RIFFxxxx"), snd.Data)
}

func TestSoundsMissingDir(t *testing.T) {
	s := NewSounds("")
	assert.Nil(t, s.Get(GeneralError))

	s = NewSounds(filepath.Join(t.TempDir(), "nope"))
	assert.Nil(t, s.Get(FatalError))
}

func TestMediaTypeFor(t *testing.T) {
	mt, err := MediaTypeFor("chime.MP3")
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", mt)

	_, err = MediaTypeFor("chime.flac")
	assert.Error(t, err)
}
