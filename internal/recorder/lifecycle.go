// File: internal/recorder/lifecycle.go
package recorder

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/recorder-cli/internal/config"
	"github.com/xkilldash9x/recorder-cli/internal/engine"
	"github.com/xkilldash9x/recorder-cli/internal/screenshot"
)

// Viewport clamp bounds. Requests outside these produce a usable browser
// rather than a pathological one.
const (
	minViewportWidth  = 360
	maxViewportWidth  = 2560
	minViewportHeight = 480
	maxViewportHeight = 1600
)

// ScriptRecord is the plain-data form of a finished session's script,
// handed to the optional archiver on close.
type ScriptRecord struct {
	SessionID    string
	URL          string
	Viewport     engine.Viewport
	Instructions []string
	CreatedAt    time.Time
	ClosedAt     time.Time
}

// Archiver persists finished scripts. Implementations must be safe for
// concurrent use; failures are logged by the manager, never propagated.
type Archiver interface {
	SaveScript(ctx context.Context, rec ScriptRecord) error
}

// CreateResult is the plain-data outcome of session creation; no engine
// handles cross this boundary.
type CreateResult struct {
	ID           string
	Viewport     engine.Viewport
	Shot         screenshot.Shot
	Instructions []string
}

// Manager owns the session lifecycle: creation, event dispatch, teardown,
// and forced teardown of everything on process shutdown.
type Manager struct {
	cfg        config.RecorderConfig
	engine     engine.Engine
	registry   *Registry
	shots      *screenshot.Store
	translator *Translator
	archive    Archiver // nil when archiving is disabled
	logger     *zap.Logger

	wg sync.WaitGroup
}

// NewManager wires the lifecycle manager. archive may be nil.
func NewManager(
	cfg config.RecorderConfig,
	eng engine.Engine,
	shots *screenshot.Store,
	archive Archiver,
	logger *zap.Logger,
) *Manager {
	log := logger.Named("recorder")
	return &Manager{
		cfg:        cfg,
		engine:     eng,
		registry:   NewRegistry(),
		shots:      shots,
		translator: NewTranslator(shots, log),
		archive:    archive,
		logger:     log,
	}
}

// Registry exposes the session registry (used by tests and diagnostics).
func (m *Manager) Registry() *Registry { return m.registry }

// SessionInfo is the diagnostic view of one live session.
type SessionInfo struct {
	ID        string          `json:"id"`
	URL       string          `json:"url"`
	Viewport  engine.Viewport `json:"viewport"`
	CreatedAt time.Time       `json:"createdAt"`
	Steps     int             `json:"steps"`
}

// Sessions returns a snapshot of all live sessions, ordered arbitrarily.
func (m *Manager) Sessions() []SessionInfo {
	ids := m.registry.IDs()
	infos := make([]SessionInfo, 0, len(ids))
	for _, id := range ids {
		s, ok := m.registry.Get(id)
		if !ok {
			// Closed between the snapshot and the lookup.
			continue
		}
		infos = append(infos, SessionInfo{
			ID:        s.ID(),
			URL:       s.URL(),
			Viewport:  s.Viewport(),
			CreatedAt: s.CreatedAt(),
			Steps:     len(s.Script()),
		})
	}
	return infos
}

// CreateSession launches a browser, navigates it to url and registers the
// session. The viewport hint is clamped to sane bounds; a nil hint uses the
// configured defaults. The initial screenshot is best-effort.
func (m *Manager) CreateSession(ctx context.Context, url string, hint *engine.Viewport) (*CreateResult, error) {
	if url == "" {
		return nil, invalidRequestf("missing url")
	}

	vp := m.clampViewport(hint)

	browser, err := m.engine.Launch(ctx)
	if err != nil {
		return nil, engineErr("browser launch", err)
	}

	page, err := browser.NewPage(ctx, vp)
	if err != nil {
		m.release(ctx, "", nil, browser)
		return nil, engineErr("page open", err)
	}

	if err := page.Navigate(ctx, url); err != nil {
		m.release(ctx, "", page, browser)
		return nil, engineErr("navigate", err)
	}

	s := &Session{
		id:        uuid.New().String(),
		url:       url,
		viewport:  vp,
		createdAt: time.Now().UTC(),
		browser:   browser,
		page:      page,
	}

	if err := m.registry.Create(s); err != nil {
		m.release(ctx, s.id, page, browser)
		return nil, engineErr("session registration", err)
	}
	m.wg.Add(1)

	shot := m.shots.Capture(ctx, page, s.id, "init")

	seed := []string{
		viewportComment(vp),
		setViewportLine(vp),
		navigateLine(url),
		waitLine(m.settleWait()),
	}
	s.appendScript(seed...)

	m.logger.Info("Session created.",
		zap.String("session_id", s.id),
		zap.String("url", url),
		zap.Int("width", vp.Width),
		zap.Int("height", vp.Height))

	return &CreateResult{
		ID:           s.id,
		Viewport:     vp,
		Shot:         shot,
		Instructions: seed,
	}, nil
}

// HandleEvent dispatches one input event against a registered session.
func (m *Manager) HandleEvent(ctx context.Context, sessionID string, ev Event) (*EventResult, error) {
	s, ok := m.registry.Get(sessionID)
	if !ok {
		return nil, notFoundErr(sessionID)
	}
	return m.translator.Handle(ctx, s, ev)
}

// Script returns the instruction log of a registered session.
func (m *Manager) Script(sessionID string) ([]string, error) {
	s, ok := m.registry.Get(sessionID)
	if !ok {
		return nil, notFoundErr(sessionID)
	}
	return s.Script(), nil
}

// CloseSession tears down a session. It is idempotent: an unknown id returns
// false without error. The session leaves the registry before any resource
// is released, so no new event can be dispatched against a session
// mid-teardown; release failures are logged, not propagated, because the
// session is already gone from the caller's perspective.
func (m *Manager) CloseSession(ctx context.Context, id string) bool {
	s, ok := m.registry.Remove(id)
	if !ok {
		return false
	}
	defer m.wg.Done()

	// Wait for any in-flight event before pulling the page out from under it.
	// The archive snapshot also happens under the lock, so an event the client
	// saw succeed is never missing from the archived script.
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.archive != nil {
		rec := ScriptRecord{
			SessionID:    s.id,
			URL:          s.url,
			Viewport:     s.viewport,
			Instructions: s.Script(),
			CreatedAt:    s.createdAt,
			ClosedAt:     time.Now().UTC(),
		}
		if err := m.archive.SaveScript(ctx, rec); err != nil {
			m.logger.Warn("Script archive failed.", zap.String("session_id", s.id), zap.Error(err))
		}
	}

	m.release(ctx, s.id, s.page, s.browser)

	m.logger.Info("Session closed.", zap.String("session_id", s.id))
	return true
}

// ShutdownAll closes every registered session concurrently, then waits for
// all releases to finish — including closes initiated elsewhere that are
// still in flight. Used on process termination; the caller bounds the grace
// period through ctx.
func (m *Manager) ShutdownAll(ctx context.Context) {
	ids := m.registry.IDs()
	if len(ids) > 0 {
		m.logger.Info("Closing all sessions.", zap.Int("count", len(ids)))

		var g errgroup.Group
		for _, id := range ids {
			g.Go(func() error {
				m.CloseSession(ctx, id)
				return nil
			})
		}
		_ = g.Wait()
	}

	// Every CloseSession, not just the ones above, is tracked by m.wg.
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All sessions closed gracefully.")
	case <-ctx.Done():
		m.logger.Warn("Shutdown grace period elapsed with releases still in flight.")
	}
}

// release closes page then browser, swallowing failures. The context order
// matters: the page context belongs to the browser handle.
func (m *Manager) release(ctx context.Context, id string, page engine.Page, browser engine.Browser) {
	if page != nil {
		if err := page.Close(ctx); err != nil {
			m.logger.Warn("Page release failed.", zap.String("session_id", id), zap.Error(err))
		}
	}
	if browser != nil {
		if err := browser.Close(ctx); err != nil {
			m.logger.Warn("Browser release failed.", zap.String("session_id", id), zap.Error(err))
		}
	}
}

func (m *Manager) clampViewport(hint *engine.Viewport) engine.Viewport {
	width := m.cfg.DefaultWidth
	height := m.cfg.DefaultHeight
	if hint != nil {
		if hint.Width != 0 {
			width = hint.Width
		}
		if hint.Height != 0 {
			height = hint.Height
		}
	}
	return engine.Viewport{
		Width:  clamp(width, minViewportWidth, maxViewportWidth),
		Height: clamp(height, minViewportHeight, maxViewportHeight),
	}
}

func (m *Manager) settleWait() int {
	if m.cfg.SettleWait > 0 {
		return m.cfg.SettleWait
	}
	return 1
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
