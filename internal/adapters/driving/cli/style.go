package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Report colours.
const (
	colourPrimary   = lipgloss.Color("#7C3AED") // Purple
	colourSecondary = lipgloss.Color("#06B6D4") // Cyan
	colourMuted     = lipgloss.Color("#6C7086") // Medium gray
	colourSuccess   = lipgloss.Color("#A6E3A1") // Green
	colourWarning   = lipgloss.Color("#F9E2AF") // Yellow
	colourError     = lipgloss.Color("#F38BA8") // Red
)

// reportStyles are the lipgloss styles used for text reports.
type reportStyles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Muted    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
}

// newReportStyles returns coloured styles when w is a terminal and
// pass-through styles otherwise, so piped output stays plain.
func newReportStyles(w io.Writer) *reportStyles {
	if !isTerminal(w) {
		plain := lipgloss.NewStyle()
		return &reportStyles{
			Title:    plain,
			Subtitle: plain,
			Muted:    plain,
			Success:  plain,
			Warning:  plain,
			Error:    plain,
		}
	}

	return &reportStyles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(colourPrimary),
		Subtitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(colourSecondary),
		Muted:   lipgloss.NewStyle().Foreground(colourMuted),
		Success: lipgloss.NewStyle().Foreground(colourSuccess),
		Warning: lipgloss.NewStyle().Foreground(colourWarning),
		Error:   lipgloss.NewStyle().Foreground(colourError),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
