package stt

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"

	"voxagent/pkg/audioconv"
)

// OpenAI transcribes through the hosted Whisper API. PCM is re-encoded
// as WAV for the upload; the vocabulary hint rides in the prompt field.
type OpenAI struct {
	client openai.Client
	model  openai.AudioModel
}

func NewOpenAI(client openai.Client, model string) *OpenAI {
	m := openai.AudioModelWhisper1
	if model != "" {
		m = openai.AudioModel(model)
	}
	return &OpenAI{client: client, model: m}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Close() error { return nil }

func (o *OpenAI) Transcribe(ctx context.Context, pcm []float32, hint string) (string, error) {
	wavData, err := audioconv.EncodeWAV16k(pcm)
	if err != nil {
		return "", fmt.Errorf("stt: encode upload: %w", err)
	}

	resp, err := o.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model:  o.model,
		File:   namedReader{Reader: bytes.NewReader(wavData), name: "audio.wav"},
		Prompt: openai.String(hint),
	})
	if err != nil {
		return "", fmt.Errorf("stt: transcription request: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// namedReader gives the multipart encoder a filename for the upload.
type namedReader struct {
	*bytes.Reader
	name string
}

func (r namedReader) Name() string { return r.name }
