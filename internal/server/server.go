// Package server is the HTTP surface of the voice agent daemon: the
// voice pipeline, the chat and history API, config reload, and the
// WebSocket event feed for UIs.
package server

import (
	log "log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"sync"

	"voxagent/internal/assist"
	"voxagent/internal/command"
	"voxagent/internal/config"
	"voxagent/internal/convlog"
	"voxagent/internal/notify"
	"voxagent/internal/session"
	"voxagent/internal/stt"
	"voxagent/internal/tts"
)

// Options collects the server's collaborators. Config, Session and
// Dispatch are required; the engines may be nil, in which case the
// endpoints needing them answer 503.
type Options struct {
	Config   *config.Store
	Session  *session.Store
	Dispatch *command.Dispatcher
	STT      stt.Engine
	TTS      tts.Synthesizer
	Backend  assist.Backend
	Sounds   *notify.Sounds
	Conv     *convlog.Log

	// DataDir is the root for agent directories that have no explicit
	// path configured.
	DataDir string
	// StaticDir, when set, is served at / for the web UI.
	StaticDir string
}

type Server struct {
	cfg      *config.Store
	session  *session.Store
	dispatch *command.Dispatcher
	stt      stt.Engine
	tts      tts.Synthesizer
	backend  assist.Backend
	sounds   *notify.Sounds
	conv     *convlog.Log
	hub      *Hub

	dataDir   string
	staticDir string

	resetMu sync.Mutex
	resets  map[string]bool // agents whose next exchange starts fresh
}

func New(opts Options) *Server {
	return &Server{
		cfg:       opts.Config,
		session:   opts.Session,
		dispatch:  opts.Dispatch,
		stt:       opts.STT,
		tts:       opts.TTS,
		backend:   opts.Backend,
		sounds:    opts.Sounds,
		conv:      opts.Conv,
		hub:       NewHub(),
		dataDir:   opts.DataDir,
		staticDir: opts.StaticDir,
		resets:    make(map[string]bool),
	}
}

func (s *Server) markReset(agent string) {
	s.resetMu.Lock()
	s.resets[agent] = true
	s.resetMu.Unlock()
}

func (s *Server) takeReset(agent string) bool {
	s.resetMu.Lock()
	defer s.resetMu.Unlock()
	if s.resets[agent] {
		delete(s.resets, agent)
		return true
	}
	return false
}

// Hub exposes the event feed so the daemon can broadcast from outside
// HTTP handlers.
func (s *Server) Events() *Hub { return s.hub }

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /voice", s.handleVoice)
	mux.HandleFunc("POST /transcribe", s.handleTranscribe)
	mux.HandleFunc("POST /tts", s.handleTTS)

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/agents", s.handleAgents)
	mux.HandleFunc("POST /api/agents/switch", s.handleAgentSwitch)
	mux.HandleFunc("GET /api/conversations", s.handleConversations)
	mux.HandleFunc("GET /api/conversations/recent", s.handleConversationsRecent)
	mux.HandleFunc("GET /api/conversations/{id}", s.handleConversation)

	mux.HandleFunc("POST /reload-config", s.handleReload)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.hub.handleWS)

	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}
	return mux
}

// agentPath resolves where an agent's side effects and backend context
// live: the configured path when present, otherwise a directory named
// after the agent under the data root.
func (s *Server) agentPath(cfg *config.Config, agent string) string {
	if agent != "" {
		if a := cfg.Agent(agent); a != nil && a.Path != "" {
			return a.Path
		}
	}
	name := agent
	if name == "" {
		name = convlog.DefaultAgentDir
	}
	return filepath.Join(s.dataDir, name)
}

// tone answers a failed voice request with a notification sound so the
// speaker hears that something went wrong. With no sound configured the
// client gets an empty reply and only the header.
func (s *Server) tone(w http.ResponseWriter, class string) {
	w.Header().Set("X-Sound-Class", class)
	snd := s.sounds.Get(class)
	if snd == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", snd.MediaType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(snd.Data); err != nil {
		log.Debug("Failed writing tone", "class", class, "error", err)
	}
}

// headerValue makes arbitrary text safe for an HTTP header.
func headerValue(text string) string {
	return url.PathEscape(text)
}
