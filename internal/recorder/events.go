// File: internal/recorder/events.go
package recorder

// Event tags accepted from the viewer.
const (
	EventClick  = "click"
	EventScroll = "scroll"
	EventKey    = "key"
	EventType   = "type"
)

// Event is a tagged input event forwarded by the remote viewer. Exactly one
// variant applies, discriminated by Type; fields of other variants are
// ignored. Click coordinates arrive in natural page pixel space - the viewer
// owns the preview-scale conversion.
type Event struct {
	Type string `json:"type"`

	// Click
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Button string  `json:"button,omitempty"`

	// Scroll
	DeltaX float64 `json:"deltaX,omitempty"`
	DeltaY float64 `json:"deltaY,omitempty"`

	// Key
	Key string `json:"key,omitempty"`

	// Type
	Text       string `json:"text,omitempty"`
	PressEnter bool   `json:"pressEnter,omitempty"`
}
