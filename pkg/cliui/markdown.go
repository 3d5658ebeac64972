package cliui

import (
	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders markdown content for terminal display using glamour,
// wrapped at width. Styled output is only produced for a terminal; otherwise
// the plain "notty" style is used. On failure the content is returned as is.
func RenderMarkdown(content string, width int, tty bool) (string, error) {
	style := glamour.WithStandardStyle("notty")
	if tty {
		style = glamour.WithAutoStyle()
	}

	r, err := glamour.NewTermRenderer(
		style,
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}
