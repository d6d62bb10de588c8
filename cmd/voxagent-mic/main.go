package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"voxagent/internal/audio"
	"voxagent/internal/notify"
	"voxagent/pkg/audioconv"
)

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	serverURL := cli.StringP("server", "s", "http://localhost:8090", "Daemon base URL")
	maxDur := cli.Duration("max", 15*time.Second, "Maximum recording length")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	levels := map[string]log.Level{
		"debug": log.LevelDebug, "info": log.LevelInfo,
		"warn": log.LevelWarn, "error": log.LevelError,
	}
	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: levels[*logLevel],
	})))

	godotenv.Load(*envFile)

	rec := audio.NewRecorder(audio.Options{MaxDuration: *maxDur})
	if err := rec.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer rec.Close()

	log.Info("Listening")

	ctx, cancel := context.WithTimeout(context.Background(), *maxDur+5*time.Second)
	defer cancel()

	pcm, err := rec.RecordAuto(ctx)
	if err != nil {
		log.Error("Failed to record", "err", err)
		os.Exit(1)
	}
	log.Info("Recorded", "samples", len(pcm))

	wavData, err := audioconv.EncodeWAV16k(pcm)
	if err != nil {
		log.Error("Failed to encode recording", "err", err)
		os.Exit(1)
	}

	resp, err := http.Post(*serverURL+"/voice", "audio/wav", bytes.NewReader(wavData))
	if err != nil {
		log.Error("Daemon unreachable", "url", *serverURL, "err", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if transcript := headerText(resp, "X-Transcript"); transcript != "" {
		log.Info("Heard", "text", transcript)
	}
	if reply := headerText(resp, "X-Reply-Text"); reply != "" {
		log.Info("Reply", "text", reply)
	}
	if class := resp.Header.Get("X-Sound-Class"); class != "" && class != notify.Ack {
		log.Warn("Request did not complete", "class", class)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil || len(body) == 0 {
		return
	}
	snd := &notify.Sound{Data: body, MediaType: resp.Header.Get("Content-Type")}
	if err := notify.Play(snd); err != nil {
		log.Error("Failed to play reply", "err", err)
		os.Exit(1)
	}
}

func headerText(resp *http.Response, name string) string {
	v := resp.Header.Get(name)
	if v == "" {
		return ""
	}
	decoded, err := url.PathUnescape(v)
	if err != nil {
		return v
	}
	return decoded
}
