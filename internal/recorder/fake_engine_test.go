// File: internal/recorder/fake_engine_test.go
package recorder

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/xkilldash9x/recorder-cli/internal/config"
	"github.com/xkilldash9x/recorder-cli/internal/engine"
	"github.com/xkilldash9x/recorder-cli/internal/screenshot"
)

// fakeEngine is an in-memory engine.Engine. Every Launch hands out a fresh
// fakeBrowser whose page maintains a scroll position with page boundaries,
// so scroll clamping behaves like a real document.
type fakeEngine struct {
	mu       sync.Mutex
	browsers []*fakeBrowser

	launchErr    error
	pageSetup    func(p *fakePage)
	browserSetup func(b *fakeBrowser)
}

func (e *fakeEngine) Launch(ctx context.Context) (engine.Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.launchErr != nil {
		return nil, e.launchErr
	}
	b := &fakeBrowser{pageSetup: e.pageSetup}
	if e.browserSetup != nil {
		e.browserSetup(b)
	}
	e.browsers = append(e.browsers, b)
	return b, nil
}

func (e *fakeEngine) launched() []*fakeBrowser {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*fakeBrowser(nil), e.browsers...)
}

type fakeBrowser struct {
	mu         sync.Mutex
	pages      []*fakePage
	closed     int
	newPageErr error
	pageSetup  func(p *fakePage)

	// closeGate, when set, blocks Close until the channel is closed;
	// closeEntered is closed once Close has started blocking.
	closeGate    chan struct{}
	closeEntered chan struct{}
}

func (b *fakeBrowser) NewPage(ctx context.Context, vp engine.Viewport) (engine.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.newPageErr != nil {
		return nil, b.newPageErr
	}
	p := &fakePage{
		viewport: vp,
		// Boundaries past which the document cannot scroll.
		maxScrollX: 0,
		maxScrollY: 2000,
		shot:       []byte("png-bytes"),
	}
	if b.pageSetup != nil {
		b.pageSetup(p)
	}
	b.pages = append(b.pages, p)
	return p, nil
}

func (b *fakeBrowser) Close(ctx context.Context) error {
	if b.closeGate != nil {
		if b.closeEntered != nil {
			close(b.closeEntered)
		}
		<-b.closeGate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
	return nil
}

func (b *fakeBrowser) closedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *fakeBrowser) page() *fakePage {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pages) == 0 {
		return nil
	}
	return b.pages[0]
}

type clickCall struct {
	x, y   int
	button string
}

// fakePage records every interaction. The busy flag trips the test when two
// engine calls overlap on the same page, which the per-session lock must
// prevent.
type fakePage struct {
	mu       sync.Mutex
	viewport engine.Viewport

	busy       atomic.Bool
	overlapped atomic.Bool

	navigated []string
	clicks    []clickCall
	typed     []string
	pressed   []string
	closed    int

	scrollX, scrollY       float64
	maxScrollX, maxScrollY float64

	shot []byte

	// clickGate, when set, blocks the (single) Click until the channel is
	// closed; clickEntered is closed once Click has started blocking.
	clickGate    chan struct{}
	clickEntered chan struct{}

	navErr, clickErr, scrollErr, offsetErr, typeErr, pressErr, shotErr error
}

func (p *fakePage) enter() func() {
	if !p.busy.CompareAndSwap(false, true) {
		p.overlapped.Store(true)
	}
	return func() { p.busy.Store(false) }
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	defer p.enter()()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.navErr != nil {
		return p.navErr
	}
	p.navigated = append(p.navigated, url)
	return nil
}

func (p *fakePage) Click(ctx context.Context, x, y int, button string) error {
	defer p.enter()()
	if p.clickGate != nil {
		if p.clickEntered != nil {
			close(p.clickEntered)
		}
		<-p.clickGate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.clickErr != nil {
		return p.clickErr
	}
	p.clicks = append(p.clicks, clickCall{x: x, y: y, button: button})
	return nil
}

func (p *fakePage) Scroll(ctx context.Context, deltaX, deltaY int) error {
	defer p.enter()()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scrollErr != nil {
		return p.scrollErr
	}
	p.scrollX = clampFloat(p.scrollX+float64(deltaX), 0, p.maxScrollX)
	p.scrollY = clampFloat(p.scrollY+float64(deltaY), 0, p.maxScrollY)
	return nil
}

func (p *fakePage) ScrollOffset(ctx context.Context) (engine.Offset, error) {
	defer p.enter()()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.offsetErr != nil {
		return engine.Offset{}, p.offsetErr
	}
	return engine.Offset{X: p.scrollX, Y: p.scrollY}, nil
}

func (p *fakePage) Type(ctx context.Context, text string) error {
	defer p.enter()()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.typeErr != nil {
		return p.typeErr
	}
	p.typed = append(p.typed, text)
	return nil
}

func (p *fakePage) Press(ctx context.Context, key string) error {
	defer p.enter()()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pressErr != nil {
		return p.pressErr
	}
	p.pressed = append(p.pressed, key)
	return nil
}

func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error) {
	defer p.enter()()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shotErr != nil {
		return nil, p.shotErr
	}
	return p.shot, nil
}

func (p *fakePage) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func (p *fakePage) closedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func clampFloat(n, lo, hi float64) float64 {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// fakeArchiver captures archived records.
type fakeArchiver struct {
	mu      sync.Mutex
	records []ScriptRecord
	err     error
}

func (a *fakeArchiver) SaveScript(ctx context.Context, rec ScriptRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.records = append(a.records, rec)
	return nil
}

func (a *fakeArchiver) saved() []ScriptRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ScriptRecord(nil), a.records...)
}

func testRecorderConfig() config.RecorderConfig {
	return config.RecorderConfig{
		DefaultWidth:  1366,
		DefaultHeight: 768,
		SettleWait:    1,
	}
}

func newTestManager(t *testing.T, eng *fakeEngine, archive Archiver) *Manager {
	t.Helper()
	shots := screenshot.NewStore(t.TempDir(), zap.NewNop())
	return NewManager(testRecorderConfig(), eng, shots, archive, zap.NewNop())
}
