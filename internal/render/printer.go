package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ppiankov/clearview/internal/linkcheck"
	"github.com/ppiankov/clearview/internal/llm"
	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/upload"
)

const timeLayout = "2006-01-02 15:04"

// Report is a verification result with everything gathered around it
type Report struct {
	Result      model.VerificationResponse `json:"result"`
	HistoryID   string                     `json:"history_id,omitempty"`
	CheckedAt   time.Time                  `json:"checked_at"`
	Links       []linkcheck.Result         `json:"links,omitempty"`
	Explanation *llm.Explanation           `json:"explanation,omitempty"`
}

// Printer writes human-readable output
type Printer struct {
	w io.Writer
	s Styles
}

// NewPrinter creates a printer writing to w
func NewPrinter(w io.Writer, color bool) *Printer {
	return &Printer{w: w, s: NewStyles(NewRenderer(w, color))}
}

// Styles returns the printer's styles
func (p *Printer) Styles() Styles {
	return p.s
}

// Report prints a verification report
func (p *Printer) Report(rep Report) {
	r := rep.Result
	s := p.s

	fmt.Fprintf(p.w, "%s %s\n", s.Label.Render("Claim:"), r.Claim)
	fmt.Fprintf(p.w, "%s %s  %s %s\n", s.Label.Render("Verdict:"), s.Verdict(r.Verdict), s.Label.Render("Confidence:"), Percent(r.Confidence))
	if r.ConflictsFound {
		fmt.Fprintln(p.w, s.Warn.Render("⚠ Sources conflict on this claim"))
	}
	if rep.HistoryID != "" {
		fmt.Fprintf(p.w, "%s\n", s.Muted.Render("History ID: "+rep.HistoryID))
	}

	if reasoning := strings.TrimSpace(r.Reasoning); reasoning != "" {
		fmt.Fprintf(p.w, "\n%s\n%s\n", s.Title.Render("Reasoning"), reasoning)
	}

	p.sources("Policy sources", r.PolicySources)
	p.sources("External sources", r.ExternalSources)

	if len(rep.Links) > 0 {
		fmt.Fprintf(p.w, "\n%s\n", s.Title.Render("Source reachability"))
		for _, l := range rep.Links {
			line := fmt.Sprintf("  %s %s", p.linkStatus(l), l.URL)
			if l.Authority != "" && l.Authority != linkcheck.AuthorityTertiary {
				line += " " + s.Muted.Render("("+string(l.Authority)+")")
			}
			fmt.Fprintln(p.w, line)
		}
	}

	if x := rep.Explanation; x != nil {
		if x.Enabled {
			fmt.Fprintf(p.w, "\n%s %s\n%s\n", s.Title.Render("Explanation"), s.Muted.Render("(generated by "+x.Provider+")"), x.Text)
		}
		for _, w := range x.Warnings {
			fmt.Fprintln(p.w, s.Muted.Render("  "+w))
		}
	}
}

func (p *Printer) sources(title string, sources []model.SourceRef) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintf(p.w, "\n%s\n", p.s.Title.Render(fmt.Sprintf("%s (%d)", title, len(sources))))
	for i, src := range sources {
		name := src.Title
		if name == "" {
			name = src.Domain
		}
		if name == "" {
			name = src.URL
		}
		fmt.Fprintf(p.w, "  %d. %s  %s\n", i+1, name, p.s.Trust(src))
		if src.URL != "" && src.URL != name {
			fmt.Fprintf(p.w, "     %s\n", p.s.Muted.Render(src.URL))
		}
		if snippet := PlainText(src.Snippet); snippet != "" {
			fmt.Fprintf(p.w, "     %s\n", Truncate(snippet, 160))
		}
	}
}

func (p *Printer) linkStatus(l linkcheck.Result) string {
	switch {
	case l.Blocked:
		return p.s.Muted.Render("[robots]")
	case l.Reachable && l.Stale:
		return p.s.Warn.Render(fmt.Sprintf("[%d stale]", l.StatusCode))
	case l.Reachable:
		return p.s.Success.Render(fmt.Sprintf("[%d]", l.StatusCode))
	case l.StatusCode != 0:
		return p.s.Error.Render(fmt.Sprintf("[%d]", l.StatusCode))
	default:
		return p.s.Error.Render("[unreachable]")
	}
}

// History prints entries as a table, newest first
func (p *Printer) History(entries []model.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(p.w, p.s.Muted.Render("No fact-checks yet."))
		return
	}

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tVERDICT\tCONFIDENCE\tCLAIM")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			shortID(e.ID),
			e.CreatedAt.Local().Format(timeLayout),
			e.Verdict.Label(),
			Percent(e.Confidence),
			Truncate(e.Claim, 60))
	}
	_ = tw.Flush()
}

// Uploads prints upload rows
func (p *Printer) Uploads(rows []upload.Document) {
	for _, d := range rows {
		var status string
		switch d.Status {
		case upload.StatusSuccess:
			status = p.s.Success.Render("✓")
		case upload.StatusError:
			status = p.s.Error.Render("✗")
		default:
			status = p.s.Muted.Render("…")
		}
		fmt.Fprintf(p.w, "%s %s  %s • %s", status, d.Name, upload.FormatSize(d.Size), d.UploadedAt.Local().Format("15:04:05"))
		if d.Message != "" {
			fmt.Fprintf(p.w, "  %s", d.Message)
		}
		fmt.Fprintln(p.w)
	}
}

// Ingest prints the response of a path ingest
func (p *Printer) Ingest(resp model.IngestResponse) {
	if resp.Succeeded() {
		fmt.Fprintln(p.w, p.s.Success.Render("✓ "+upload.IngestedMessage(resp.DocumentsIngested)))
		return
	}
	msg := resp.Message
	if msg == "" {
		msg = "Document ingested with warnings"
	}
	fmt.Fprintln(p.w, p.s.Warn.Render("⚠ "+msg))
}

// Status prints a free-form status map with sorted keys
func (p *Printer) Status(status map[string]any) {
	keys := make([]string, 0, len(status))
	for k := range status {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s:\t%s\n", k, formatValue(status[k]))
	}
	_ = tw.Flush()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return "-"
	case float64, bool:
		return fmt.Sprint(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

// JSON writes v as indented JSON
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
