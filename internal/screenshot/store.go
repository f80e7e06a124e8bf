// File: internal/screenshot/store.go
package screenshot

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/recorder-cli/internal/engine"
)

// Shot is one captured screenshot: an inline-transmittable data URI plus the
// path where the same bytes were persisted. A failed capture is an empty
// Shot - visual feedback is best-effort and never fails the surrounding
// action.
type Shot struct {
	Image string `json:"image"`
	File  string `json:"file,omitempty"`
}

// Empty reports whether the capture produced no image.
func (s Shot) Empty() bool { return s.Image == "" }

// Store captures viewport screenshots and persists them under a per-run
// results directory.
type Store struct {
	dir    string
	logger *zap.Logger

	mkdirOnce sync.Once
	mkdirErr  error

	// now is swappable for deterministic filenames in tests.
	now func() time.Time
}

// NewStore creates a store rooted at dir. The directory is created lazily on
// first capture.
func NewStore(dir string, logger *zap.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: logger.Named("screenshot"),
		now:    time.Now,
	}
}

// Capture requests a viewport screenshot from the page, writes it to disk
// under a session-scoped collision-free name and returns the inline form.
// Every failure path degrades to an empty Shot with a debug log; callers
// treat the picture as optional.
func (st *Store) Capture(ctx context.Context, page engine.Page, sessionID, tag string) Shot {
	buf, err := page.Screenshot(ctx)
	if err != nil {
		st.logger.Debug("Screenshot capture failed.",
			zap.String("session_id", sessionID),
			zap.String("tag", tag),
			zap.Error(err))
		return Shot{}
	}

	shot := Shot{Image: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf)}

	file := filepath.Join(st.dir, st.filename(sessionID, tag))
	if err := st.write(file, buf); err != nil {
		// The inline image is still usable; only persistence failed.
		st.logger.Debug("Screenshot persistence failed.",
			zap.String("session_id", sessionID),
			zap.String("file", file),
			zap.Error(err))
		return shot
	}

	shot.File = file
	return shot
}

// Dir returns the results directory.
func (st *Store) Dir() string { return st.dir }

// filename builds a sortable, collision-resistant name: the session-scoped
// prefix plus a millisecond timestamp lets a filename sort reproduce capture
// order forensically.
func (st *Store) filename(sessionID, tag string) string {
	now := st.now().UTC()
	return fmt.Sprintf("%s_%s_%s%03d.png",
		sessionID, tag, now.Format("20060102150405"), now.Nanosecond()/1e6)
}

func (st *Store) write(file string, buf []byte) error {
	st.mkdirOnce.Do(func() {
		st.mkdirErr = os.MkdirAll(st.dir, 0o755)
	})
	if st.mkdirErr != nil {
		return fmt.Errorf("results directory unavailable: %w", st.mkdirErr)
	}
	return os.WriteFile(file, buf, 0o644)
}
