// Package notify maps error classes to short notification sounds. The
// server answers failed voice requests with a tone instead of silence,
// and the mic client can play the same tones locally.
package notify

import (
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Sound classes. Ack confirms a silent command; the rest are error
// tones in rough order of severity.
const (
	Ack                = "ack"
	EmptyTranscription = "empty_transcription"
	TTSFailed          = "tts_failed"
	GeneralError       = "general_error"
	FatalError         = "fatal_error"
)

// classFiles names the expected file stem for each class; any of the
// supported extensions next to it is picked up.
var classFiles = map[string]string{
	Ack:                "ack",
	EmptyTranscription: "empty",
	TTSFailed:          "tts-failed",
	GeneralError:       "error",
	FatalError:         "fatal",
}

var extTypes = map[string]string{
	".mp3": "audio/mpeg",
	".wav": "audio/wav",
	".ogg": "audio/ogg",
}

// extOrder fixes lookup preference when a class has files in several
// formats, so the picked tone does not vary between processes.
var extOrder = []string{".wav", ".mp3", ".ogg"}

// Sound is a loaded notification tone.
type Sound struct {
	Data      []byte
	MediaType string
}

// Sounds caches tones from a directory. Lookups for classes with no
// file fall back to GeneralError, then to nothing.
type Sounds struct {
	dir string

	mu    sync.Mutex
	cache map[string]*Sound
}

func NewSounds(dir string) *Sounds {
	return &Sounds{dir: dir, cache: make(map[string]*Sound)}
}

// Get returns the tone for class, or nil when no sound file exists.
// Error classes without a dedicated file fall back to the general
// tone; the ack chime never does, silence is the better failure mode
// for a confirmation.
func (s *Sounds) Get(class string) *Sound {
	if s == nil || s.dir == "" {
		return nil
	}
	if snd := s.load(class); snd != nil {
		return snd
	}
	if class != GeneralError && class != Ack {
		return s.load(GeneralError)
	}
	return nil
}

func (s *Sounds) load(class string) *Sound {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snd, ok := s.cache[class]; ok {
		return snd
	}

	stem, ok := classFiles[class]
	if !ok {
		s.cache[class] = nil
		return nil
	}

	var found *Sound
	for _, ext := range extOrder {
		path := filepath.Join(s.dir, stem+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		found = &Sound{Data: data, MediaType: extTypes[ext]}
		break
	}
	if found == nil {
		log.Debug("No notification sound for class", "class", class, "dir", s.dir)
	}
	s.cache[class] = found
	return found
}

// MediaTypeFor maps a sound file extension to its media type.
func MediaTypeFor(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mt, ok := extTypes[ext]
	if !ok {
		return "", fmt.Errorf("notify: unsupported sound format %q", ext)
	}
	return mt, nil
}
