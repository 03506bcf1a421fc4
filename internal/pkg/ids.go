package pkg

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MaxRoomCodeLength = 16
	MaxNameLength     = 32
)

// NewConnectionID - generates an opaque identity token for a live connection.
func NewConnectionID() string {
	return uuid.NewString()
}

// NormalizeRoomCode - trims and upper-cases code; reports false unless the result is
// 1..MaxRoomCodeLength ASCII letters or digits.
func NormalizeRoomCode(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || len(code) > MaxRoomCodeLength {
		return "", false
	}

	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", false
		}
	}

	return code, true
}

// NormalizePlayerName - trims name to at most MaxNameLength runes; an empty name
// becomes "Player <marker>".
func NormalizePlayerName(name, marker string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Player " + marker
	}

	if utf8.RuneCountInString(name) > MaxNameLength {
		name = strings.TrimSpace(string([]rune(name)[:MaxNameLength]))
	}

	return name
}
