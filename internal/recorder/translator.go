// File: internal/recorder/translator.go
package recorder

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/xkilldash9x/recorder-cli/internal/engine"
	"github.com/xkilldash9x/recorder-cli/internal/screenshot"
)

// ScrollRange is the observed scroll position around a scroll event,
// returned as auxiliary data for the viewer's status line.
type ScrollRange struct {
	Start engine.Offset `json:"start"`
	End   engine.Offset `json:"end"`
}

// EventResult is the outcome of translating one input event: the appended
// instruction lines, a fresh capture, and a human-readable description.
type EventResult struct {
	Instructions []string
	Shot         screenshot.Shot
	Description  string
	Scroll       *ScrollRange
}

// Translator maps one viewer input event onto engine actions and replay
// instructions.
type Translator struct {
	shots  *screenshot.Store
	logger *zap.Logger
}

// NewTranslator creates the event translator.
func NewTranslator(shots *screenshot.Store, logger *zap.Logger) *Translator {
	return &Translator{
		shots:  shots,
		logger: logger.Named("translator"),
	}
}

// Handle translates one event for the session. The session's mutex is held
// for the full engine action plus the follow-up capture, so events for the
// same session never interleave at the engine; events for different sessions
// are fully independent.
func (t *Translator) Handle(ctx context.Context, s *Session, ev Event) (*EventResult, error) {
	switch ev.Type {
	case EventClick, EventScroll, EventKey, EventType:
	default:
		// Reject before touching the engine.
		return nil, unsupportedEventErr(ev.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		res *EventResult
		err error
	)
	switch ev.Type {
	case EventClick:
		res, err = t.handleClick(ctx, s, ev)
	case EventScroll:
		res, err = t.handleScroll(ctx, s, ev)
	case EventKey:
		res, err = t.handleKey(ctx, s, ev)
	case EventType:
		res, err = t.handleType(ctx, s, ev)
	}
	if err != nil {
		return nil, err
	}

	if len(res.Instructions) > 0 {
		s.appendScript(res.Instructions...)
		// Only capture when something actually happened; an empty Type event
		// is a true no-op.
		res.Shot = t.shots.Capture(ctx, s.page, s.id, ev.Type)
	}

	t.logger.Debug("Event translated.",
		zap.String("session_id", s.id),
		zap.String("event", ev.Type),
		zap.Int("instructions", len(res.Instructions)))
	return res, nil
}

func (t *Translator) handleClick(ctx context.Context, s *Session, ev Event) (*EventResult, error) {
	x := int(math.Max(0, math.Round(ev.X)))
	y := int(math.Max(0, math.Round(ev.Y)))
	button := ev.Button
	if button == "" {
		button = "left"
	}

	if err := s.page.Click(ctx, x, y, button); err != nil {
		return nil, engineErr("click", err)
	}

	return &EventResult{
		Instructions: []string{clickLine(x, y)},
		Description:  fmt.Sprintf("click %s @ (%d, %d)", button, x, y),
	}, nil
}

// handleScroll records the observed movement, not the requested one. The
// page clamps scrolling at its boundaries, so the before/after diff is what
// a faithful replay needs.
func (t *Translator) handleScroll(ctx context.Context, s *Session, ev Event) (*EventResult, error) {
	before, err := s.page.ScrollOffset(ctx)
	if err != nil {
		return nil, engineErr("read scroll offset", err)
	}

	dx := int(math.Round(ev.DeltaX))
	dy := int(math.Round(ev.DeltaY))
	if err := s.page.Scroll(ctx, dx, dy); err != nil {
		return nil, engineErr("scroll", err)
	}

	after, err := s.page.ScrollOffset(ctx)
	if err != nil {
		return nil, engineErr("read scroll offset", err)
	}

	observedX := int(math.Round(after.X - before.X))
	observedY := int(math.Round(after.Y - before.Y))

	return &EventResult{
		Instructions: []string{scrollLine(observedX, observedY)},
		Description: fmt.Sprintf("scroll x:%d→%d y:%d→%d",
			int(math.Round(before.X)), int(math.Round(after.X)),
			int(math.Round(before.Y)), int(math.Round(after.Y))),
		Scroll: &ScrollRange{Start: before, End: after},
	}, nil
}

func (t *Translator) handleKey(ctx context.Context, s *Session, ev Event) (*EventResult, error) {
	key := ev.Key
	if key == "" {
		key = "Enter"
	}

	if err := s.page.Press(ctx, key); err != nil {
		return nil, engineErr("key press", err)
	}

	return &EventResult{
		Instructions: []string{keyLine(key)},
		Description:  "key: " + key,
	}, nil
}

func (t *Translator) handleType(ctx context.Context, s *Session, ev Event) (*EventResult, error) {
	res := &EventResult{}

	if ev.Text != "" {
		if err := s.page.Type(ctx, ev.Text); err != nil {
			return nil, engineErr("type", err)
		}
		res.Instructions = append(res.Instructions, typeLine(ev.Text))
		res.Description = "typed: " + ev.Text
	}

	if ev.PressEnter {
		if err := s.page.Press(ctx, "Enter"); err != nil {
			return nil, engineErr("key press", err)
		}
		res.Instructions = append(res.Instructions, keyLine("Enter"))
		if res.Description != "" {
			res.Description += " + Enter"
		} else {
			res.Description = "Enter"
		}
	}

	// Neither text nor pressEnter: zero instructions, zero engine calls.
	return res, nil
}
