package render

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/ppiankov/clearview/internal/model"
)

// Styles are the terminal styles used by the printer
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warn    lipgloss.Style
	Error   lipgloss.Style

	verdict map[model.VerdictCategory]lipgloss.Style
	tier    map[model.TrustTier]lipgloss.Style
}

// NewRenderer returns a lipgloss renderer for w. Without color every style
// renders as plain text.
func NewRenderer(w io.Writer, color bool) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	return r
}

// NewStyles builds the palette on r
func NewStyles(r *lipgloss.Renderer) Styles {
	green := lipgloss.Color("42")
	red := lipgloss.Color("196")
	amber := lipgloss.Color("214")

	return Styles{
		Title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("229")),
		Label:   r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("241")),
		Success: r.NewStyle().Foreground(green),
		Warn:    r.NewStyle().Foreground(amber),
		Error:   r.NewStyle().Foreground(red),
		verdict: map[model.VerdictCategory]lipgloss.Style{
			model.CategoryTrue:  r.NewStyle().Bold(true).Foreground(green),
			model.CategoryFalse: r.NewStyle().Bold(true).Foreground(red),
			model.CategoryMixed: r.NewStyle().Bold(true).Foreground(amber),
		},
		tier: map[model.TrustTier]lipgloss.Style{
			model.TrustHigh:    r.NewStyle().Foreground(green),
			model.TrustMedium:  r.NewStyle().Foreground(amber),
			model.TrustLow:     r.NewStyle().Foreground(red),
			model.TrustUnknown: r.NewStyle().Foreground(lipgloss.Color("241")),
		},
	}
}

// Verdict renders a verdict label in its category color
func (s Styles) Verdict(v model.Verdict) string {
	return s.verdict[v.Category()].Render(v.Label())
}

// Trust renders a source's trust score in its tier color
func (s Styles) Trust(src model.SourceRef) string {
	if src.TrustScore == nil {
		return s.tier[model.TrustUnknown].Render("trust n/a")
	}
	return s.tier[src.Tier()].Render(Percent(*src.TrustScore) + " trust")
}
