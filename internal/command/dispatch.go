package command

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Dispatcher executes command side effects. Writes against the same agent
// directory are serialized so a concurrent append and undo cannot lose an
// update during the read-modify-write cycle.
type Dispatcher struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex

	// now is replaceable in tests.
	now func() time.Time
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		locks: make(map[string]*sync.Mutex),
		now:   time.Now,
	}
}

func (d *Dispatcher) lockFor(dir string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.locks[dir]
	if !ok {
		l = &sync.Mutex{}
		d.locks[dir] = l
	}
	return l
}

// Execute performs the side effect for kind with the given payload under
// agentPath. A blank message is refused with ErrEmptyMessage before any
// write. Panics inside a handler are recovered and reported as errors;
// nothing escapes the dispatch boundary.
func (d *Dispatcher) Execute(kind Kind, message, agentPath string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command %s panicked: %v", kind, r)
			slog.Error("command handler panicked", "kind", kind.String(), "panic", r)
		}
	}()

	if strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}

	lock := d.lockFor(agentPath)
	lock.Lock()
	defer lock.Unlock()

	switch kind {
	case KindLog:
		_, err = appendJournal(agentPath, message, d.now())
	case KindListen:
		err = appendNote(agentPath, message, d.now())
	default:
		err = fmt.Errorf("command %s has no side effect to execute", kind)
	}
	if err != nil {
		slog.Error("command execution failed", "kind", kind.String(), "path", agentPath, "err", err)
	}
	return err
}

// Undo reverses the last executed command of the given kind under
// agentPath. Unknown kinds fail with a warning, never an error; the
// result only reports whether anything was reversed.
func (d *Dispatcher) Undo(kind Kind, agentPath string) bool {
	lock := d.lockFor(agentPath)
	lock.Lock()
	defer lock.Unlock()

	var (
		done bool
		err  error
	)
	switch kind {
	case KindLog:
		done, err = undoJournal(agentPath, d.now())
	case KindListen:
		done, err = undoNote(agentPath)
	default:
		slog.Warn("cannot undo command", "kind", kind.String())
		return false
	}
	if err != nil {
		slog.Error("undo failed", "kind", kind.String(), "path", agentPath, "err", err)
		return false
	}
	if !done {
		slog.Warn("nothing to undo", "kind", kind.String(), "path", agentPath)
	}
	return done
}
