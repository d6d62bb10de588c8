package notify

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

var speakerOnce sync.Once

type nopCloser struct{ io.Reader }

func (nopCloser) Close() error { return nil }

// Play decodes and plays a tone on the local speaker, blocking until it
// finishes. Used by the mic client; the server never calls this.
func Play(snd *Sound) error {
	if snd == nil || len(snd.Data) == 0 {
		return nil
	}

	rc := nopCloser{bytes.NewReader(snd.Data)}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	switch snd.MediaType {
	case "audio/mpeg":
		streamer, format, err = mp3.Decode(rc)
	case "audio/wav":
		streamer, format, err = wav.Decode(rc)
	default:
		return fmt.Errorf("notify: cannot play %s", snd.MediaType)
	}
	if err != nil {
		return fmt.Errorf("notify: decode sound: %w", err)
	}
	defer streamer.Close()

	var initErr error
	speakerOnce.Do(func() {
		initErr = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
	if initErr != nil {
		return fmt.Errorf("notify: speaker init: %w", initErr)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))
	<-done
	return nil
}
