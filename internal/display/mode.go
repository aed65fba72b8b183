package display

import (
	"fmt"
	"strings"
)

// Mode selects how evaluation progress is rendered
type Mode string

// Display modes
const (
	ModeFull         Mode = "full"
	ModeConversation Mode = "conversation"
	ModePlain        Mode = "plain"
	ModeNone         Mode = "none"
)

// ParseMode converts a mode name (case-insensitive) to a Mode.
// An empty name selects ModeFull.
func ParseMode(name string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(name))) {
	case "", ModeFull:
		return ModeFull, nil
	case ModeConversation:
		return ModeConversation, nil
	case ModePlain:
		return ModePlain, nil
	case ModeNone:
		return ModeNone, nil
	default:
		return "", fmt.Errorf("unknown display mode %q (valid: full, conversation, plain, none)", name)
	}
}

// String returns the mode name
func (m Mode) String() string {
	return string(m)
}
