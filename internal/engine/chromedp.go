// File: internal/engine/chromedp.go
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/recorder-cli/internal/config"
)

// ChromeEngine launches Chromium processes via chromedp. Each Launch yields
// an isolated exec allocator, so sessions never share a browser process.
type ChromeEngine struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
}

// NewChromeEngine creates the production engine implementation.
func NewChromeEngine(cfg config.BrowserConfig, logger *zap.Logger) *ChromeEngine {
	return &ChromeEngine{
		cfg:    cfg,
		logger: logger.Named("engine"),
	}
}

// Launch prepares an isolated browser allocator. The Chromium process itself
// starts lazily on the first page context run; launch failures therefore
// surface from NewPage.
func (e *ChromeEngine) Launch(ctx context.Context) (Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", e.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	for _, arg := range e.cfg.Args {
		name, value, found := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if found {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	// The allocator parents on Background so the browser lifetime is owned by
	// the session, not by whichever request happened to create it.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &cdpBrowser{
		cfg:      e.cfg,
		logger:   e.logger,
		allocCtx: allocCtx,
		cancel:   allocCancel,
	}, nil
}

type cdpBrowser struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	allocCtx  context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (b *cdpBrowser) NewPage(ctx context.Context, vp Viewport) (Page, error) {
	pageCtx, pageCancel := chromedp.NewContext(b.allocCtx)

	p := &cdpPage{
		cfg:    b.cfg,
		logger: b.logger,
		ctx:    pageCtx,
		cancel: pageCancel,
		vp:     vp,
	}

	// The first Run starts the browser process and creates the page target.
	if err := p.run(ctx, b.cfg.NavTimeout,
		chromedp.EmulateViewport(int64(vp.Width), int64(vp.Height)),
	); err != nil {
		pageCancel()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	return p, nil
}

func (b *cdpBrowser) Close(ctx context.Context) error {
	b.closeOnce.Do(func() {
		b.cancel()
	})
	return nil
}

type cdpPage struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	vp        Viewport
	closeOnce sync.Once
}

// run executes chromedp actions against the page, bounded by both the
// caller's context and the given timeout.
func (p *cdpPage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, opCancel := combineContext(p.ctx, ctx)
	defer opCancel()

	opCtx, tCancel := context.WithTimeout(opCtx, timeout)
	defer tCancel()

	return chromedp.Run(opCtx, actions...)
}

func (p *cdpPage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, p.cfg.NavTimeout, chromedp.Navigate(url))
}

func (p *cdpPage) Click(ctx context.Context, x, y int, button string) error {
	return p.run(ctx, p.cfg.ActionTimeout,
		chromedp.MouseClickXY(float64(x), float64(y), chromedp.Button(button)),
	)
}

func (p *cdpPage) Scroll(ctx context.Context, deltaX, deltaY int) error {
	// Wheel events need a position; the viewport center targets the main
	// scrolling element for full-page scrolls.
	cx := float64(p.vp.Width) / 2
	cy := float64(p.vp.Height) / 2
	return p.run(ctx, p.cfg.ActionTimeout,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return input.DispatchMouseEvent(input.MouseWheel, cx, cy).
				WithDeltaX(float64(deltaX)).
				WithDeltaY(float64(deltaY)).
				Do(ctx)
		}),
	)
}

func (p *cdpPage) ScrollOffset(ctx context.Context) (Offset, error) {
	var off Offset
	err := p.run(ctx, p.cfg.ActionTimeout,
		chromedp.Evaluate(`({x: window.scrollX, y: window.scrollY})`, &off),
	)
	return off, err
}

func (p *cdpPage) Type(ctx context.Context, text string) error {
	return p.run(ctx, p.cfg.ActionTimeout, chromedp.KeyEvent(text))
}

func (p *cdpPage) Press(ctx context.Context, key string) error {
	name, err := NormalizeKey(key)
	if err != nil {
		return err
	}

	if dom, ok := namedKeys[name]; ok {
		// Named keys go through raw CDP key events; chromedp.KeyEvent would
		// type the name out letter by letter.
		keyDown := input.DispatchKeyEvent(input.KeyDown).WithKey(dom)
		keyUp := input.DispatchKeyEvent(input.KeyUp).WithKey(dom)
		return p.run(ctx, p.cfg.ActionTimeout, keyDown, keyUp)
	}

	// Single printable rune.
	return p.run(ctx, p.cfg.ActionTimeout, chromedp.KeyEvent(name))
}

func (p *cdpPage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, p.cfg.ActionTimeout, chromedp.CaptureScreenshot(&buf))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *cdpPage) Close(ctx context.Context) error {
	var err error
	p.closeOnce.Do(func() {
		err = chromedp.Cancel(p.ctx)
		p.cancel()
	})
	return err
}

// combineContext derives a context from primary that is also canceled when
// secondary is done. chromedp requires the chromedp-derived context, so the
// caller's context cannot be passed to Run directly.
func combineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}
