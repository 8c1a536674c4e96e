// Package history keeps an append-only JSONL log of one session: every
// applied inbound message and every emitted UserAction. The log can be
// replayed into a fresh session.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yolodolo42/a2ui/internal/protocol"
)

const (
	TypeInbound = "inbound"
	TypeAction  = "action"
)

// Record is one line of a session log.
type Record struct {
	TS        string               `json:"ts"`
	Type      string               `json:"type"`
	MessageID string               `json:"message_id,omitempty"`
	Envelope  json.RawMessage      `json:"envelope,omitempty"`
	Action    *protocol.UserAction `json:"action,omitempty"`
	RunID     string               `json:"run_id,omitempty"`
}

// Logger appends records to dataDir/sessions/<sessionID>.jsonl.
type Logger struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// Path returns the session log location for sessionID.
func Path(dataDir, sessionID string) string {
	return filepath.Join(dataDir, "sessions", sessionID+".jsonl")
}

// Open creates or appends to the session's log file.
func Open(dataDir, sessionID string) (*Logger, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data dir not configured")
	}
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	if err := os.MkdirAll(filepath.Join(dataDir, "sessions"), 0o700); err != nil {
		return nil, err
	}

	path := Path(dataDir, sessionID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &Logger{path: path, f: f}, nil
}

// Path returns the file this logger writes to.
func (l *Logger) Path() string { return l.path }

func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f != nil {
		_ = l.f.Close()
		l.f = nil
	}
}

// Applied logs an inbound message after the router applied it.
func (l *Logger) Applied(messageID string, env protocol.Envelope) {
	raw, err := json.Marshal(env)
	if err != nil {
		return
	}
	l.write(Record{TS: nowTS(), Type: TypeInbound, MessageID: messageID, Envelope: raw})
}

// Action logs an emitted action with sensitive context values redacted.
func (l *Logger) Action(ua protocol.UserAction, runID string) {
	ua.Context = RedactContext(ua.Context)
	l.write(Record{TS: nowTS(), Type: TypeAction, Action: &ua, RunID: runID})
}

func (l *Logger) write(rec Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return
	}
	b = append(b, '\n')
	_, _ = l.f.Write(b)
}

func nowTS() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
