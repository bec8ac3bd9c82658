package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vee-sh/bssm/internal/config"
	"github.com/vee-sh/bssm/internal/logging"
)

const (
	ActionConnect    = "connect"
	ActionDisconnect = "disconnect"
	ActionError      = "error"
)

// Entry is one line of the audit log.
type Entry struct {
	Timestamp  time.Time `json:"timestamp"`
	SessionID  string    `json:"sessionId"`
	Profile    string    `json:"profile"`
	Region     string    `json:"region,omitempty"`
	InstanceID string    `json:"instanceId"`
	Instance   string    `json:"instance,omitempty"`
	Mode       string    `json:"mode"`
	Action     string    `json:"action"`
	Duration   string    `json:"duration,omitempty"`
	Error      string    `json:"error,omitempty"`
	ExitCode   int       `json:"exitCode,omitempty"`
}

// Logger appends JSON lines to an audit file.
type Logger struct {
	mu   sync.Mutex
	path string
	file *os.File
}

func DefaultPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "audit.log"), nil
}

// Open opens path for appending, creating it and its directory as needed.
func Open(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &Logger{path: path, file: file}, nil
}

func (l *Logger) Log(entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = fmt.Fprintln(l.file, string(data))
	return err
}

func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Target identifies what a session connected to.
type Target struct {
	Profile    string
	Region     string
	InstanceID string
	Instance   string
	Mode       string
}

// Session pairs the connect and disconnect entries of one session under a
// shared id. A nil *Session is valid and records nothing.
type Session struct {
	log    *Logger
	id     string
	target Target
	start  time.Time
}

// Begin writes the connect entry. Audit is best effort: a logger that cannot
// be opened yields a nil Session.
func Begin(path string, t Target) *Session {
	l, err := Open(path)
	if err != nil {
		logging.Logger().Debugf("audit disabled: %v", err)
		return nil
	}
	s := &Session{log: l, id: uuid.NewString(), target: t, start: time.Now()}
	s.write(ActionConnect, nil, 0)
	return s
}

func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// End writes the disconnect or error entry and closes the log.
func (s *Session) End(exitCode int, sessErr error) {
	if s == nil {
		return
	}
	action := ActionDisconnect
	if sessErr != nil {
		action = ActionError
	}
	s.write(action, sessErr, exitCode)
	_ = s.log.Close()
}

func (s *Session) write(action string, sessErr error, exitCode int) {
	e := Entry{
		Timestamp:  time.Now(),
		SessionID:  s.id,
		Profile:    s.target.Profile,
		Region:     s.target.Region,
		InstanceID: s.target.InstanceID,
		Instance:   s.target.Instance,
		Mode:       s.target.Mode,
		Action:     action,
		ExitCode:   exitCode,
	}
	if action != ActionConnect {
		e.Duration = time.Since(s.start).Round(time.Second).String()
	}
	if sessErr != nil {
		e.Error = sessErr.Error()
	}
	if err := s.log.Log(e); err != nil {
		logging.Logger().Debugf("audit write failed: %v", err)
	}
}

// ReadEntries returns up to limit entries from path, newest first. limit <= 0
// means all. Malformed lines are skipped.
func ReadEntries(path string, limit int) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, err
	}

	entries := []Entry{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
