// File: internal/recorder/session.go
package recorder

import (
	"sync"
	"time"

	"github.com/xkilldash9x/recorder-cli/internal/engine"
)

// Session is one live, exclusively owned browser instance under human
// control. Besides the append-only script log, all fields are immutable
// after creation; the engine handles are mutated only through engine calls
// made while holding mu.
type Session struct {
	id        string
	url       string
	viewport  engine.Viewport
	createdAt time.Time

	browser engine.Browser
	page    engine.Page

	// mu serializes all engine access for this session. An event holds it
	// across the engine action and the follow-up screenshot; close holds it
	// while releasing the handles.
	mu sync.Mutex

	scriptMu sync.Mutex
	script   []string
}

func (s *Session) ID() string                { return s.id }
func (s *Session) URL() string               { return s.url }
func (s *Session) Viewport() engine.Viewport { return s.viewport }
func (s *Session) CreatedAt() time.Time      { return s.createdAt }

// appendScript appends instruction lines to the session's script log.
func (s *Session) appendScript(lines ...string) {
	s.scriptMu.Lock()
	defer s.scriptMu.Unlock()
	s.script = append(s.script, lines...)
}

// Script returns a copy of the instruction log in emission order.
func (s *Session) Script() []string {
	s.scriptMu.Lock()
	defer s.scriptMu.Unlock()
	out := make([]string, len(s.script))
	copy(out, s.script)
	return out
}
