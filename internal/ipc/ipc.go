// Package ipc is the local control channel: a unix socket speaking one
// JSON request and one JSON response per connection.
package ipc

import (
	"encoding/json"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"sync"
)

const DefaultSocketPath = "/tmp/voxagent.sock"

// ControlMessage is one control request.
type ControlMessage struct {
	Cmd string `json:"cmd"`
	Arg string `json:"arg,omitempty"`
}

// Response reports the outcome back to the caller.
type Response struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// Handler processes one control command. The returned message is
// relayed to the caller verbatim.
type Handler func(arg string) (string, error)

// Server accepts control connections and dispatches to registered
// handlers by command name.
type Server struct {
	path string
	ln   net.Listener

	mu       sync.Mutex
	handlers map[string]Handler
}

func NewServer(path string) *Server {
	if path == "" {
		path = DefaultSocketPath
	}
	return &Server{path: path, handlers: make(map[string]Handler)}
}

func (s *Server) Handle(cmd string, h Handler) {
	s.mu.Lock()
	s.handlers[cmd] = h
	s.mu.Unlock()
}

func (s *Server) Start() error {
	os.Remove(s.path)

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("ipc: listen %s: %w", s.path, err)
	}
	s.ln = ln

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.handleConn(conn)
		}
	}()

	log.Info("Control socket ready", "path", s.path)
	return nil
}

func (s *Server) Close() error {
	if s.ln == nil {
		return nil
	}
	err := s.ln.Close()
	os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		return
	}

	s.mu.Lock()
	h, ok := s.handlers[msg.Cmd]
	s.mu.Unlock()

	enc := json.NewEncoder(conn)
	if !ok {
		enc.Encode(Response{OK: false, Message: "unknown command: " + msg.Cmd})
		return
	}

	out, err := h(msg.Arg)
	if err != nil {
		log.Warn("Control command failed", "cmd", msg.Cmd, "error", err)
		enc.Encode(Response{OK: false, Message: err.Error()})
		return
	}
	enc.Encode(Response{OK: true, Message: out})
}

// Send connects to the socket, sends one command, and returns the
// daemon's response.
func Send(path string, msg ControlMessage) (Response, error) {
	if path == "" {
		path = DefaultSocketPath
	}
	conn, err := net.Dial("unix", path)
	if err != nil {
		return Response{}, fmt.Errorf("ipc: dial %s: %w", path, err)
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return Response{}, fmt.Errorf("ipc: send: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("ipc: read response: %w", err)
	}
	return resp, nil
}
