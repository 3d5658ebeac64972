package cliui

import (
	"io"

	"golang.org/x/term"
)

// DefaultWidth is used when the terminal width can't be read.
const DefaultWidth = 80

type fdWriter interface {
	io.Writer
	Fd() uintptr
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(fdWriter)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Width returns the column width of the terminal behind w, or DefaultWidth.
func Width(w io.Writer) int {
	f, ok := w.(fdWriter)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return DefaultWidth
	}

	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return DefaultWidth
	}
	return width
}
