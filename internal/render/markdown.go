package render

import (
	"fmt"
	"strings"

	"github.com/ppiankov/clearview/internal/model"
)

// Markdown renders a report as a Markdown document
func Markdown(rep Report) string {
	r := rep.Result
	var b strings.Builder

	b.WriteString("# Fact-check\n\n")
	fmt.Fprintf(&b, "> %s\n\n", r.Claim)
	fmt.Fprintf(&b, "- **Verdict**: %s\n", r.Verdict.Label())
	fmt.Fprintf(&b, "- **Confidence**: %s\n", Percent(r.Confidence))
	fmt.Fprintf(&b, "- **Conflicting sources**: %s\n", yesNo(r.ConflictsFound))
	if !rep.CheckedAt.IsZero() {
		fmt.Fprintf(&b, "- **Checked**: %s\n", rep.CheckedAt.UTC().Format("2006-01-02 15:04 UTC"))
	}
	if rep.HistoryID != "" {
		fmt.Fprintf(&b, "- **History ID**: `%s`\n", rep.HistoryID)
	}

	if reasoning := strings.TrimSpace(r.Reasoning); reasoning != "" {
		fmt.Fprintf(&b, "\n## Reasoning\n\n%s\n", reasoning)
	}

	writeSources(&b, "Policy sources", r.PolicySources)
	writeSources(&b, "External sources", r.ExternalSources)

	if len(rep.Links) > 0 {
		b.WriteString("\n## Source reachability\n\n")
		b.WriteString("| URL | Status | Authority | Notes |\n|---|---|---|---|\n")
		for _, l := range rep.Links {
			status := "unreachable"
			switch {
			case l.Blocked:
				status = "not checked"
			case l.Reachable:
				status = fmt.Sprintf("%d OK", l.StatusCode)
			case l.StatusCode != 0:
				status = fmt.Sprintf("%d", l.StatusCode)
			}
			var notes []string
			if l.Stale {
				notes = append(notes, "stale")
			}
			if l.RedirectURL != "" {
				notes = append(notes, "redirects to "+l.RedirectURL)
			}
			if l.Error != "" {
				notes = append(notes, l.Error)
			}
			authority := string(l.Authority)
			if authority == "" {
				authority = "-"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", l.URL, status, authority, escapeCell(strings.Join(notes, "; ")))
		}
	}

	if md := rep.Explanation.Markdown(); md != "" {
		b.WriteString("\n")
		b.WriteString(md)
	}
	return b.String()
}

func writeSources(b *strings.Builder, title string, sources []model.SourceRef) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n", title)
	for _, s := range sources {
		name := s.Title
		if name == "" {
			name = s.URL
		}
		if s.URL != "" {
			fmt.Fprintf(b, "- [%s](%s)", name, s.URL)
		} else {
			fmt.Fprintf(b, "- %s", name)
		}
		if s.TrustScore != nil {
			fmt.Fprintf(b, " (trust %s, %s)", Percent(*s.TrustScore), s.Tier())
		}
		b.WriteString("\n")
		if snippet := PlainText(s.Snippet); snippet != "" {
			fmt.Fprintf(b, "  > %s\n", snippet)
		}
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
