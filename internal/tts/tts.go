// Package tts turns reply text into audio. Engines are pluggable: local
// espeak-ng or the OpenAI speech API.
package tts

import "context"

// Synthesizer renders text as encoded audio and reports its media type.
// voice selects a per-agent voice; the empty string uses the engine
// default.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, string, error)
	Name() string
}
