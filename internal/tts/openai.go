package tts

import (
	"context"
	"fmt"
	"io"

	openai "github.com/openai/openai-go/v3"
)

// OpenAI synthesizes speech through the hosted TTS API, returning MP3.
type OpenAI struct {
	client openai.Client
	model  openai.SpeechModel
	voice  string // default voice when the agent has none
}

func NewOpenAITTS(client openai.Client, model, voice string) *OpenAI {
	m := openai.SpeechModelTTS1
	if model != "" {
		m = openai.SpeechModel(model)
	}
	if voice == "" {
		voice = "alloy"
	}
	return &OpenAI{client: client, model: m, voice: voice}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Synthesize(ctx context.Context, text, voice string) ([]byte, string, error) {
	if text == "" {
		return nil, "audio/mpeg", nil
	}
	if voice == "" {
		voice = o.voice
	}

	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          o.model,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, "", fmt.Errorf("tts: speech request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("tts: read speech response: %w", err)
	}
	return data, "audio/mpeg", nil
}
