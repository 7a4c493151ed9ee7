package render

import (
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/Paintersrp/portal/internal/frontmatter"
)

// DefaultWidth is the word wrap used when the terminal width is unknown.
const DefaultWidth = 100

// Terminal renders the body of raw for display in a terminal.
func Terminal(raw string, width int) (string, error) {
	if width <= 0 {
		width = DefaultWidth
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dracula"),
		glamour.WithWordWrap(width),
		glamour.WithColorProfile(termenv.ANSI256),
	)
	if err != nil {
		return "", err
	}

	return r.Render(frontmatter.Split(raw).Content)
}
