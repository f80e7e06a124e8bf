// File: internal/engine/engine.go
package engine

import (
	"context"
)

// Viewport is a page viewport size in device-independent pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Offset is a page scroll position.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Engine launches browser instances. Implementations wrap a concrete
// automation backend; callers never see backend types.
type Engine interface {
	// Launch starts a new isolated browser process and returns its handle.
	Launch(ctx context.Context) (Browser, error)
}

// Browser is an exclusively owned browser process handle.
type Browser interface {
	// NewPage opens a page with the given viewport inside this browser.
	NewPage(ctx context.Context, vp Viewport) (Page, error)
	// Close releases the browser process. Safe to call more than once.
	Close(ctx context.Context) error
}

// Page is the interaction surface of a single browser page. All calls are
// stateful against the live page; callers are responsible for serializing
// access to a given page.
type Page interface {
	// Navigate loads the url, returning once the document load signal fires
	// (not full network idle).
	Navigate(ctx context.Context, url string) error
	// Click issues a pointer click at page coordinates with the named button
	// ("left", "right" or "middle").
	Click(ctx context.Context, x, y int, button string) error
	// Scroll dispatches a wheel event with the given raw deltas.
	Scroll(ctx context.Context, deltaX, deltaY int) error
	// ScrollOffset reads the current page scroll position.
	ScrollOffset(ctx context.Context) (Offset, error)
	// Type sends the text to the focused element as key events.
	Type(ctx context.Context, text string) error
	// Press presses a single named key (e.g. "Enter", "Tab", "a").
	Press(ctx context.Context, key string) error
	// Screenshot captures the current viewport (not the full page) as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	// Close releases the page and its context. Safe to call more than once.
	Close(ctx context.Context) error
}
