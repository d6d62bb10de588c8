package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"voxagent/internal/assist"
	"voxagent/internal/command"
	"voxagent/internal/config"
	"voxagent/internal/convlog"
	"voxagent/internal/ipc"
	"voxagent/internal/notify"
	"voxagent/internal/proxy"
	"voxagent/internal/server"
	"voxagent/internal/session"
	"voxagent/internal/stt"
	"voxagent/internal/tts"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	cfgPath := cli.StringP("config", "c", "~/.config/voxagent/config.yaml", "Config file path")
	listen := cli.String("listen", ":8090", "HTTP listen address")
	socket := cli.String("socket", ipc.DefaultSocketPath, "Control socket path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	dataDir := cli.StringP("data", "d", "~/.local/share/voxagent", "Data directory")
	soundsDir := cli.String("sounds", "", "Notification sounds directory")
	staticDir := cli.String("static", "", "Static web UI directory")
	proxyAddr := cli.StringP("proxy", "p", "", "SOCKS proxy address for OpenAI traffic")

	sttEngine := cli.String("stt", "whisper", "Transcription engine: whisper | openai")
	whisperModel := cli.String("whisper-model", "third_party/whisper.cpp/models/ggml-medium.bin", "Whisper model path")
	lang := cli.String("lang", "auto", "Transcription language")
	ttsEngine := cli.String("tts", "espeak", "Speech engine: espeak | openai | none")
	voice := cli.String("voice", "", "Default speech voice")
	backend := cli.String("backend", "cli", "Conversational backend: cli | openai")
	backendCmd := cli.String("backend-cmd", "claude", "Assistant CLI binary for the cli backend")
	chatModel := cli.String("chat-model", "", "Chat model for the openai backend")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)

	cfgStore := config.NewStore(config.ExpandHome(*cfgPath))
	cfg, err := cfgStore.Reload()
	if err != nil {
		log.Error("Failed to load config", "path", *cfgPath, "err", err)
		os.Exit(1)
	}
	log.Info("Config loaded", "commands", len(cfg.Commands), "agents", len(cfg.Agents))

	data := config.ExpandHome(*dataDir)
	sess := session.NewStore(filepath.Join(data, "session.json"))
	conv := convlog.New(data)
	sounds := notify.NewSounds(config.ExpandHome(*soundsDir))

	needsAPI := *sttEngine == "openai" || *ttsEngine == "openai" || *backend == "openai"
	var client openai.Client
	if needsAPI {
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			log.Error("OPENAI_API_KEY not set")
			os.Exit(1)
		}
		httpClient, err := proxy.ClientFromEnv(*proxyAddr, 0)
		if err != nil {
			log.Error("Failed to dial socks proxy", "proxy", *proxyAddr, "err", err)
			os.Exit(1)
		}
		client = openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithHTTPClient(httpClient),
		)
	}

	var transcriber stt.Engine
	switch *sttEngine {
	case "whisper":
		transcriber, err = stt.NewWhisper(*whisperModel, stt.WhisperOptions{Language: *lang})
		if err != nil {
			log.Error("Failed to init whisper", "model", *whisperModel, "err", err)
			os.Exit(1)
		}
		defer transcriber.Close()
	case "openai":
		transcriber = stt.NewOpenAI(client, "")
	default:
		log.Error("Unknown stt engine", "stt", *sttEngine)
		os.Exit(1)
	}
	log.Debug("Loaded transcriber", "engine", transcriber.Name())

	var speech tts.Synthesizer
	switch *ttsEngine {
	case "espeak":
		speech = &tts.Espeak{Voice: *voice}
	case "openai":
		speech = tts.NewOpenAITTS(client, "", *voice)
	case "none":
	default:
		log.Error("Unknown tts engine", "tts", *ttsEngine)
		os.Exit(1)
	}

	var brain assist.Backend
	switch *backend {
	case "cli":
		brain = assist.NewCLI(*backendCmd)
	case "openai":
		brain = assist.NewOpenAI(client, *chatModel)
	default:
		log.Error("Unknown backend", "backend", *backend)
		os.Exit(1)
	}
	log.Debug("Loaded backend", "backend", brain.Name())

	srv := server.New(server.Options{
		Config:    cfgStore,
		Session:   sess,
		Dispatch:  command.NewDispatcher(),
		STT:       transcriber,
		TTS:       speech,
		Backend:   brain,
		Sounds:    sounds,
		Conv:      conv,
		DataDir:   data,
		StaticDir: *staticDir,
	})

	ctl := ipc.NewServer(*socket)
	ctl.Handle("reload", func(string) (string, error) {
		cfg, err := cfgStore.Reload()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("reloaded: %d commands, %d agents", len(cfg.Commands), len(cfg.Agents)), nil
	})
	ctl.Handle("switch", func(arg string) (string, error) {
		if arg != "" && cfgStore.Current().Agent(arg) == nil {
			return "", fmt.Errorf("unknown agent: %s", arg)
		}
		if err := sess.SetCurrentAgent(arg); err != nil {
			return "", err
		}
		if arg == "" {
			return "switched to default context", nil
		}
		return "switched to " + arg, nil
	})
	ctl.Handle("status", func(string) (string, error) {
		st := map[string]string{
			"agent": sess.CurrentAgent(),
			"stt":   transcriber.Name(),
		}
		if speech != nil {
			st["tts"] = speech.Name()
		}
		st["backend"] = brain.Name()
		out, err := json.Marshal(st)
		return string(out), err
	})
	if err := ctl.Start(); err != nil {
		log.Error("Failed to start control socket", "err", err)
		os.Exit(1)
	}
	defer ctl.Close()

	log.Info("Boot up - successful", "listen", *listen)
	if err := http.ListenAndServe(*listen, srv.Routes()); err != nil {
		log.Error("HTTP server failed", "err", err)
		os.Exit(1)
	}
}
