package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Espeak shells out to espeak-ng and captures the WAV it writes to
// stdout. Crude prosody, but fully offline and fast enough for short
// replies.
type Espeak struct {
	// Voice is the default espeak voice (e.g. "en-US"); a per-call
	// voice overrides it.
	Voice string
	// Speed in words per minute; 0 uses espeak's default.
	Speed int
}

func (e *Espeak) Name() string { return "espeak-ng" }

func (e *Espeak) Synthesize(ctx context.Context, text, voice string) ([]byte, string, error) {
	if text == "" {
		return nil, "audio/wav", nil
	}
	if voice == "" {
		voice = e.Voice
	}

	args := []string{"--stdout"}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	if e.Speed > 0 {
		args = append(args, "-s", fmt.Sprint(e.Speed))
	}

	cmd := exec.CommandContext(ctx, "espeak-ng", args...)
	cmd.Stdin = bytes.NewReader([]byte(text))
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return nil, "", fmt.Errorf("tts: espeak-ng: %w (%s)", err, errBuf.String())
	}
	return out.Bytes(), "audio/wav", nil
}
