package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// WhisperOptions tunes the local engine.
type WhisperOptions struct {
	Language string // "auto" detects; default "auto"
	Threads  int    // <=0 uses NumCPU
	BeamSize int    // 0 = greedy decode
}

// Whisper runs a whisper.cpp model in-process. The vocabulary hint is
// passed as the initial prompt, which is how whisper biases decoding
// toward expected words.
type Whisper struct {
	model whisper.Model
	opts  WhisperOptions
}

// NewWhisper loads the ggml model at path.
func NewWhisper(path string, opts WhisperOptions) (*Whisper, error) {
	if path == "" {
		return nil, errors.New("stt: empty whisper model path")
	}
	model, err := whisper.New(path)
	if err != nil {
		return nil, fmt.Errorf("stt: load whisper model: %w", err)
	}
	if opts.Language == "" {
		opts.Language = "auto"
	}
	return &Whisper{model: model, opts: opts}, nil
}

func (w *Whisper) Name() string { return "whisper.cpp" }

func (w *Whisper) Close() error {
	if w.model == nil {
		return nil
	}
	return w.model.Close()
}

func (w *Whisper) Transcribe(ctx context.Context, pcm []float32, hint string) (string, error) {
	if len(pcm) == 0 {
		return "", errors.New("stt: no audio samples")
	}

	wctx, err := w.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("stt: whisper context: %w", err)
	}

	if err := wctx.SetLanguage(w.opts.Language); err != nil {
		return "", fmt.Errorf("stt: set language: %w", err)
	}
	threads := w.opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))
	if w.opts.BeamSize > 0 {
		wctx.SetBeamSize(w.opts.BeamSize)
	}
	if hint != "" {
		wctx.SetInitialPrompt(hint)
	}

	if err := wctx.Process(pcm, nil, nil, nil); err != nil {
		return "", fmt.Errorf("stt: whisper process: %w", err)
	}

	var parts []string
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("stt: next segment: %w", err)
		}
		parts = append(parts, strings.TrimSpace(seg.Text))
	}
	return strings.Join(parts, " "), nil
}
