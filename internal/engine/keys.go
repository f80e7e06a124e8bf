// File: internal/engine/keys.go
package engine

import (
	"fmt"
	"unicode/utf8"
)

// namedKeys maps accepted key names to their DOM key values, the form the
// CDP Input domain expects.
var namedKeys = map[string]string{
	"Enter":      "Enter",
	"Tab":        "Tab",
	"Backspace":  "Backspace",
	"Delete":     "Delete",
	"Escape":     "Escape",
	"ArrowUp":    "ArrowUp",
	"ArrowDown":  "ArrowDown",
	"ArrowLeft":  "ArrowLeft",
	"ArrowRight": "ArrowRight",
	"Home":       "Home",
	"End":        "End",
	"PageUp":     "PageUp",
	"PageDown":   "PageDown",
	"Space":      " ",
}

// NormalizeKey validates a key press argument. A known key name or any single
// printable rune is accepted; everything else is rejected before touching the
// browser.
func NormalizeKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty key name")
	}
	if _, ok := namedKeys[key]; ok {
		return key, nil
	}
	if utf8.RuneCountInString(key) == 1 {
		return key, nil
	}
	return "", fmt.Errorf("unknown key name %q", key)
}
