package util

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal checks if the given file descriptor is a terminal
func IsTerminal(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// TerminalWidth returns the column count of the terminal on f, or fallback
// when f is not a terminal
func TerminalWidth(f *os.File, fallback int) int {
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}
