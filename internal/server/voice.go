package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"strings"
	"time"

	"voxagent/internal/assist"
	"voxagent/internal/command"
	"voxagent/internal/config"
	"voxagent/internal/hotwords"
	"voxagent/internal/keyword"
	"voxagent/internal/notify"
	"voxagent/internal/session"
	"voxagent/internal/tts"
	"voxagent/pkg/audioconv"
)

const (
	// Anything shorter than this cannot hold speech; headers alone are
	// bigger. Rejecting early spares a transcription round trip.
	minAudioBytes = 100

	maxAudioBytes = 32 << 20

	voiceTimeout = 120 * time.Second
)

// resetPhrases start a fresh backend conversation instead of being
// answered.
var resetPhrases = []string{
	"reset conversation",
	"new conversation",
	"start over",
}

const resetReply = "Starting a fresh conversation."

// contextPhrases ask for session status instead of an answer.
var contextPhrases = []string{
	"context status",
	"context usage",
	"how much context",
}

// handleVoice runs the full pipeline: decode, transcribe, route,
// execute or converse, synthesize. Every failure mode answers with a
// tone so the speaker is never left with silence.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), voiceTimeout)
	defer cancel()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxAudioBytes))
	if err != nil {
		s.tone(w, notify.GeneralError)
		return
	}
	if len(body) < minAudioBytes {
		log.Debug("Voice request too small", "bytes", len(body))
		s.tone(w, notify.EmptyTranscription)
		return
	}

	pcm, err := audioconv.DecodeToPCM16k(body, audioconv.Options{})
	if err != nil {
		log.Warn("Failed to decode voice audio", "error", err)
		s.tone(w, notify.GeneralError)
		return
	}

	if s.stt == nil {
		http.Error(w, "no transcription engine", http.StatusServiceUnavailable)
		return
	}

	cfg := s.cfg.Current()
	text, err := s.stt.Transcribe(ctx, pcm, hotwords.Build(cfg))
	if err != nil {
		log.Error("Transcription failed", "error", err)
		s.tone(w, notify.GeneralError)
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.tone(w, notify.EmptyTranscription)
		return
	}
	log.Info("Transcribed", "text", text)
	s.hub.Broadcast(Event{Type: "transcript", Text: text})

	res := keyword.Extract(text, cfg, keyword.DefaultWindow)

	agent := res.Agent
	if res.HasAgentKeyword {
		// The keyword always re-routes, even when no name matched:
		// "agent ..." with nothing recognized switches back to the
		// default context instead of staying with the sticky agent.
		if err := s.session.SetCurrentAgent(res.Agent); err != nil {
			log.Warn("Failed to persist agent switch", "agent", res.Agent, "error", err)
		}
	} else {
		agent = s.session.CurrentAgent()
	}
	agentPath := s.agentPath(cfg, agent)

	s.hub.Broadcast(Event{Type: "routing", Agent: agent, Text: res.Command})

	message := res.Message

	if res.Command != "" {
		done := s.runCommand(w, r, cfg, res, agent, agentPath, text, &message)
		if done {
			return
		}
	}

	if s.backend == nil {
		http.Error(w, "no conversational backend", http.StatusServiceUnavailable)
		return
	}

	if isResetPhrase(message) {
		// Confirmed immediately; the reset itself is delivered with the
		// next exchange.
		s.markReset(agent)
		s.speak(w, r, agent, text, resetReply, "")
		return
	}
	if matchesPhrase(message, contextPhrases) {
		s.speak(w, r, agent, text, s.contextStatus(agent), "")
		return
	}

	reply, err := s.backend.Respond(ctx, assist.Request{
		Message:   message,
		Agent:     agent,
		AgentDir:  agentPath,
		VoiceMode: true,
		Reset:     s.takeReset(agent),
	}, nil)
	if err != nil {
		log.Error("Backend failed", "agent", agent, "error", err)
		s.tone(w, notify.GeneralError)
		return
	}

	if err := s.conv.Append(agent, message, reply.Text, reply.Thinking, ""); err != nil {
		log.Warn("Failed to log conversation", "agent", agent, "error", err)
	}
	s.hub.Broadcast(Event{Type: "reply", Agent: agent, Text: reply.Text})

	s.speak(w, r, agent, text, reply.Text, reply.Thinking)
}

// runCommand handles the structured-command leg. It reports true when
// the response has been written; false means the pipeline continues to
// the conversational backend (repeat, or a non-silent command).
func (s *Server) runCommand(w http.ResponseWriter, r *http.Request, cfg *config.Config, res keyword.Result, agent, agentPath, text string, message *string) bool {
	// Extraction already filtered on the spoken agent; this re-checks
	// against the effective agent after sticky-session resolution.
	cmd := command.Resolve(res.Command, agent, cfg)
	if cmd == nil {
		log.Warn("Command not applicable", "command", res.Command, "agent", agent)
		s.tone(w, notify.GeneralError)
		return true
	}
	kind := command.KindOf(res.Command)

	switch kind {
	case command.KindUndo:
		last, ok := s.session.LastCommand()
		if !ok {
			log.Warn("Undo requested with no command on record")
			s.tone(w, notify.GeneralError)
			return true
		}
		if !s.dispatch.Undo(command.KindOf(last.Command), last.AgentPath) {
			s.tone(w, notify.GeneralError)
			return true
		}
		if err := s.session.ClearLastCommand(); err != nil {
			log.Warn("Failed to clear undo record", "error", err)
		}
		s.hub.Broadcast(Event{Type: "command", Agent: agent, Text: "undo"})
		s.tone(w, notify.Ack)
		return true

	case command.KindRepeat:
		last, ok := s.session.LastCommand()
		if !ok || strings.TrimSpace(last.Message) == "" {
			// Same signal as an empty command message: nothing to do.
			log.Warn("Repeat requested with nothing to repeat")
			s.tone(w, notify.EmptyTranscription)
			return true
		}
		*message = last.Message
		return false

	case command.KindLog, command.KindListen:
		if strings.TrimSpace(res.Message) == "" {
			s.tone(w, notify.EmptyTranscription)
			return true
		}
		if err := s.dispatch.Execute(kind, res.Message, agentPath); err != nil {
			if errors.Is(err, command.ErrEmptyMessage) {
				s.tone(w, notify.EmptyTranscription)
			} else {
				s.tone(w, notify.GeneralError)
			}
			return true
		}
		if err := s.session.SetLastCommand(session.LastCommand{
			Agent:     agent,
			Command:   res.Command,
			Message:   res.Message,
			AgentPath: agentPath,
		}); err != nil {
			log.Warn("Failed to record command for undo", "error", err)
		}
		s.hub.Broadcast(Event{Type: "command", Agent: agent, Text: res.Command})
		if cmd.Silent {
			s.tone(w, notify.Ack)
			return true
		}
		return false

	case command.KindResearch:
		topic := strings.TrimSpace(res.Message)
		if topic == "" {
			s.tone(w, notify.EmptyTranscription)
			return true
		}
		if s.backend == nil {
			s.tone(w, notify.GeneralError)
			return true
		}
		if err := s.startResearch(agent, agentPath, topic); err != nil {
			log.Error("Failed to start research", "topic", topic, "error", err)
			s.tone(w, notify.GeneralError)
			return true
		}
		s.hub.Broadcast(Event{Type: "command", Agent: agent, Text: res.Command})
		s.speak(w, r, agent, text, "Research started on "+topic+". The report will be in the research folder.", "")
		return true

	default:
		// Configured but without built-in behavior; the message goes to
		// the backend like ordinary speech.
		return false
	}
}

// speak synthesizes the reply and writes the audio response. The
// transcript and reply travel in headers so clients can display them
// without a second request.
func (s *Server) speak(w http.ResponseWriter, r *http.Request, agent, transcript, replyText, thinking string) {
	w.Header().Set("X-Transcript", headerValue(transcript))
	w.Header().Set("X-Agent", headerValue(agent))
	w.Header().Set("X-Reply-Text", headerValue(replyText))

	if s.tts == nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, replyText)
		return
	}

	voice := ""
	if a := s.cfg.Current().Agent(agent); a != nil {
		voice = a.Voice
	}
	speech := tts.Sanitize(replyText)
	audio, mediaType, err := s.tts.Synthesize(r.Context(), speech, voice)
	if err != nil {
		log.Error("Speech synthesis failed", "error", err)
		s.tone(w, notify.TTSFailed)
		return
	}
	w.Header().Set("Content-Type", mediaType)
	if _, err := w.Write(audio); err != nil {
		log.Debug("Failed writing reply audio", "error", err)
	}
}

func isResetPhrase(message string) bool {
	return matchesPhrase(message, resetPhrases)
}

func matchesPhrase(message string, phrases []string) bool {
	m := strings.ToLower(strings.TrimSpace(message))
	m = strings.TrimRight(m, ".!?")
	for _, p := range phrases {
		if m == p {
			return true
		}
	}
	return false
}

// contextStatus describes the active agent and today's exchange count.
func (s *Server) contextStatus(agent string) string {
	exchanges := 0
	for _, m := range s.conv.Recent(agent, 1) {
		if m.Role == "user" {
			exchanges++
		}
	}
	who := "the default assistant"
	if agent != "" {
		who = "the " + agent + " agent"
	}
	if exchanges == 0 {
		return fmt.Sprintf("You are talking to %s. No exchanges yet today.", who)
	}
	return fmt.Sprintf("You are talking to %s. %d exchanges today.", who, exchanges)
}

