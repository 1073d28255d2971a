package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects the generation flow a session or message belongs to
type Mode string

const (
	ModePrompt Mode = "prompt"
	ModeImage  Mode = "image"
	ModeSocial Mode = "social"
)

var ErrUnsupportedMode = errors.New("unsupported mode")

// ParseMode validates a mode string
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModePrompt, ModeImage, ModeSocial:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
	}
}

// Label returns the glyph-prefixed label used in session titles
func (m Mode) Label() string {
	switch m {
	case ModePrompt:
		return "🎨 Prompt"
	case ModeImage:
		return "🖼️ Image"
	case ModeSocial:
		return "📱 Social"
	default:
		return "💬 Chat"
	}
}

// InputKind describes what the user typed: a bare topic or free-form instructions
type InputKind string

const (
	InputTopic        InputKind = "topic"
	InputInstructions InputKind = "instructions"
)

var ErrUnsupportedInputKind = errors.New(`input type must be "topic" or "instructions"`)

// ParseInputKind validates an input kind string
func ParseInputKind(s string) (InputKind, error) {
	switch k := InputKind(strings.TrimSpace(s)); k {
	case InputTopic, InputInstructions:
		return k, nil
	default:
		return "", ErrUnsupportedInputKind
	}
}
