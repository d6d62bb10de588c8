// Package stt turns recorded speech into text. Engines are pluggable:
// an in-process whisper.cpp model or the OpenAI transcription API.
package stt

import "context"

// Engine transcribes 16 kHz mono float32 PCM. The hint string carries
// the configured vocabulary (agent names, command words) so the engine
// can bias recognition toward them; engines may ignore it.
type Engine interface {
	Transcribe(ctx context.Context, pcm []float32, hint string) (string, error)
	Name() string
	Close() error
}
