package cli

import (
	"fmt"
	"io"
	"os"

	"charm.land/bubbles/v2/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/chatdb-go/internal/service"
	"golang.org/x/term"
)

// Theme holds the color scheme for terminal output.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
	Border  lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
	Border:  lipgloss.Color("#3A3A3A"), // dark gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) headerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status).Bold(true).Padding(0, 1)
}

func (t Theme) cellStyle() lipgloss.Style {
	return lipgloss.NewStyle().Padding(0, 1)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// progressPrinter renders import progress. On a terminal with a known input
// size it redraws a progress bar in place; otherwise it prints one line per
// update.
type progressPrinter struct {
	out   io.Writer
	bar   progress.Model
	theme Theme
	tty   bool
	drawn bool
}

func newProgressPrinter(out io.Writer, theme Theme) *progressPrinter {
	return &progressPrinter{
		out: out,
		bar: progress.New(
			progress.WithDefaultBlend(),
			progress.WithWidth(40),
		),
		theme: theme,
		tty:   isTerminal(out),
	}
}

// Update is a service.IngestOptions.Progress callback.
func (p *progressPrinter) Update(pr service.Progress) {
	frac := pr.Fraction()
	if !p.tty || frac < 0 {
		if !pr.Done {
			fmt.Fprintf(p.out, "Processed %d chat records...\n", pr.Records)
		}
		return
	}

	status := p.theme.statusStyle().Render("[importing]")
	if pr.Done {
		status = p.theme.completedStyle().Render("[done]")
	}
	fmt.Fprintf(p.out, "\r%s %s %d records", status, p.bar.ViewAs(frac), pr.Records)
	p.drawn = true
}

// Finish ends the progress line.
func (p *progressPrinter) Finish() {
	if p.drawn {
		fmt.Fprintln(p.out)
		p.drawn = false
	}
}
