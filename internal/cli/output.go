package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("37"))            // dark green
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))             // red
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))            // yellow
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))            // blue
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))            // cyan
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))            // purple
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")) // purple
)

var symbols = map[string]string{
	"pass":    "✓",
	"fail":    "✗",
	"warning": "!",
	"pending": "◉",
	"arrow":   "→",
}

// printer renders command output either styled or as JSON.
type printer struct {
	w      io.Writer
	json   bool
	styled bool
}

func newPrinter(w io.Writer, format string) *printer {
	styled := true
	if NoColor != nil && *NoColor {
		styled = false
	}
	return &printer{w: w, json: format == "json", styled: styled}
}

func (p *printer) render(style lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return style.Render(text)
}

func (p *printer) success(text string) {
	_, _ = fmt.Fprintln(p.w, p.render(successStyle, symbols["pass"]+" "+text))
}

func (p *printer) failure(text string) {
	_, _ = fmt.Fprintln(p.w, p.render(errorStyle, symbols["fail"]+" "+text))
}

func (p *printer) warning(text string) {
	_, _ = fmt.Fprintln(p.w, p.render(warningStyle, symbols["warning"]+" "+text))
}

func (p *printer) pending(text string) {
	_, _ = fmt.Fprintln(p.w, p.render(pendingStyle, symbols["pending"]+" "+text))
}

func (p *printer) info(text string) {
	_, _ = fmt.Fprintln(p.w, p.render(infoStyle, text))
}

func (p *printer) detail(label, value string) {
	_, _ = fmt.Fprintf(p.w, "  %s %s\n", p.render(detailStyle, label+":"), value)
}

func (p *printer) header(text string) {
	_, _ = fmt.Fprintln(p.w, p.render(headerStyle, text))
}

func (p *printer) encode(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
