// Package audio captures microphone input for the push-to-talk client.
package audio

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

// Options tune capture and endpointing. Zero values take the defaults
// below.
type Options struct {
	SampleRate  int
	FrameSize   int           // samples per read
	SilenceRMS  float64       // below this the frame counts as silence
	SilenceHold time.Duration // trailing silence that ends the take
	MaxDuration time.Duration
}

func (o *Options) fill() {
	if o.SampleRate == 0 {
		o.SampleRate = 16000
	}
	if o.FrameSize == 0 {
		o.FrameSize = 320 // 20ms at 16k
	}
	if o.SilenceRMS == 0 {
		o.SilenceRMS = 0.015
	}
	if o.SilenceHold == 0 {
		o.SilenceHold = 600 * time.Millisecond
	}
	if o.MaxDuration == 0 {
		o.MaxDuration = 15 * time.Second
	}
}

type Recorder struct {
	opts Options
}

func NewRecorder(opts Options) *Recorder {
	opts.fill()
	return &Recorder{opts: opts}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// RecordAuto captures until trailing silence or the max duration.
// Leading silence is discarded.
func (r *Recorder) RecordAuto(ctx context.Context) ([]float32, error) {
	o := r.opts
	buf := make([]float32, o.FrameSize)
	out := make([]float32, 0, o.SampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(o.SampleRate), len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	frameDur := time.Duration(o.FrameSize) * time.Second / time.Duration(o.SampleRate)
	maxFrames := int(o.MaxDuration / frameDur)

	var (
		speaking bool
		silence  time.Duration
	)

	for i := 0; i < maxFrames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, err
		}

		if frameRMS(buf) > o.SilenceRMS {
			speaking = true
			silence = 0
			out = append(out, buf...)
			continue
		}
		if speaking {
			silence += frameDur
			if silence >= o.SilenceHold {
				break
			}
			out = append(out, buf...)
		}
	}

	if len(out) == 0 {
		return nil, errors.New("no speech detected")
	}
	return out, nil
}

// RecordUntil captures everything until stop fires, the context ends,
// or the max duration passes. Used for push-to-talk.
func (r *Recorder) RecordUntil(ctx context.Context, stop <-chan struct{}) ([]float32, error) {
	o := r.opts
	buf := make([]float32, o.FrameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(o.SampleRate), len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	deadline := time.Now().Add(o.MaxDuration)
	out := make([]float32, 0, int(float64(o.SampleRate)*o.MaxDuration.Seconds()))

	for time.Now().Before(deadline) {
		select {
		case <-stop:
			if len(out) == 0 {
				return nil, errors.New("no audio recorded")
			}
			return out, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := stream.Read(); err != nil {
			return nil, err
		}
		out = append(out, buf...)
	}

	if len(out) == 0 {
		return nil, errors.New("no audio recorded")
	}
	return out, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
