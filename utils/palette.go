package utils

import "math/rand"

// Colors is the fixed palette participants are assigned from.
var Colors = []string{
	"#E63946", "#F4A261", "#E9C46A", "#2A9D8F",
	"#264653", "#6D597A", "#B56576", "#3D5A80",
}

// Emojis is the fixed palette participants are assigned from.
var Emojis = []string{
	"🦜", "🐸", "🦁", "🐙", "🦄", "🐢", "🦊", "🐼",
	"🐝", "🦉", "🐳", "🦀", "🐨", "🦋", "🐲", "🐧",
}

// roomCodeLetters is the alphabet for room codes.
const roomCodeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RoomCodeLength is the number of letters in a room code.
const RoomCodeLength = 4

// NewRoomCode generates a random 4-uppercase-letter room code. Uniqueness
// against live rooms is the caller's concern.
func NewRoomCode() string {
	code := make([]byte, RoomCodeLength)
	for i := range code {
		code[i] = roomCodeLetters[rand.Intn(len(roomCodeLetters))]
	}
	return string(code)
}

// PickUnused returns a random element of palette not present in taken,
// falling back to a random element when the palette is exhausted.
func PickUnused(palette []string, taken map[string]bool) string {
	available := make([]string, 0, len(palette))
	for _, entry := range palette {
		if !taken[entry] {
			available = append(available, entry)
		}
	}
	if len(available) == 0 {
		return palette[rand.Intn(len(palette))]
	}
	return available[rand.Intn(len(available))]
}

// IsValidRoomCode reports whether code is exactly four uppercase letters.
func IsValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}
