package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/microcosm-cc/bluemonday"

	"github.com/formaudit/backend/internal/domain"
)

// Format selects how a report is rendered
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatTerminal Format = "terminal"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatJSON, FormatMarkdown, FormatTerminal:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown report format %q", domain.ErrInvalidRequest, raw)
	}
}

const defaultWordWrap = 100

var (
	labelPolicyOnce sync.Once
	labelPolicy     *bluemonday.Policy
)

// Render produces the report in the requested format.
func Render(r *domain.AuditReport, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return RenderJSON(r)
	case FormatMarkdown:
		return []byte(RenderMarkdown(r)), nil
	case FormatTerminal:
		out, err := RenderTerminal(RenderMarkdown(r), "", defaultWordWrap)
		return []byte(out), err
	default:
		return nil, fmt.Errorf("%w: unknown report format %q", domain.ErrInvalidRequest, format)
	}
}

// RenderJSON returns the indented JSON form of the report.
func RenderJSON(r *domain.AuditReport) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return append(data, '\n'), nil
}

// RenderMarkdown builds the human-readable summary. Text that came from the
// audited page is stripped of markup before it is written.
func RenderMarkdown(r *domain.AuditReport) string {
	var b strings.Builder
	stats := r.Statistics

	b.WriteString("# Form audit report\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", r.RunID)
	fmt.Fprintf(&b, "- Generated: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- Checklist: %s\n\n", cell(r.ChecklistSource))

	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Checklist fields | %d |\n", stats.TotalChecklist)
	fmt.Fprintf(&b, "| Discovered fields | %d |\n", stats.TotalFields)
	fmt.Fprintf(&b, "| Present | %d |\n", stats.Present)
	fmt.Fprintf(&b, "| Potential equivalents | %d |\n", stats.PotentialEquivalent)
	fmt.Fprintf(&b, "| Missing | %d |\n", stats.Missing)
	fmt.Fprintf(&b, "| Extra | %d |\n", stats.Extra)
	fmt.Fprintf(&b, "| Coverage | %.1f%% |\n\n", stats.CoveragePercentage)

	var missing, potential []domain.MatchVerdict
	for _, m := range r.Matches {
		switch m.Status {
		case domain.MatchMissing:
			missing = append(missing, m)
		case domain.MatchPotentialEquivalent:
			potential = append(potential, m)
		}
	}

	if len(missing) > 0 {
		b.WriteString("## Missing fields\n\n")
		for _, m := range missing {
			fmt.Fprintf(&b, "- %s\n", cell(m.Entry))
		}
		b.WriteString("\n")
	}

	if len(potential) > 0 {
		b.WriteString("## Potential equivalents\n\n")
		b.WriteString("| Checklist | Field | Similarity |\n|---|---|---|\n")
		for _, m := range potential {
			fmt.Fprintf(&b, "| %s | %s | %.2f |\n", cell(m.Entry), cell(m.FieldKey), m.Similarity)
		}
		b.WriteString("\n")
	}

	if len(stats.ShouldBeRequired) > 0 {
		b.WriteString("## Should be required\n\n")
		for _, d := range stats.ShouldBeRequired {
			fmt.Fprintf(&b, "- %s (`%s`)\n", cell(d.Entry), cell(d.FieldID))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Requiredness\n\n")
	b.WriteString("| Verdict | Fields |\n|---|---|\n")
	fmt.Fprintf(&b, "| Required | %d |\n", stats.Required)
	fmt.Fprintf(&b, "| Uncertain | %d |\n", stats.Uncertain)
	fmt.Fprintf(&b, "| Optional | %d |\n", stats.Optional)
	if len(r.Skipped) > 0 {
		fmt.Fprintf(&b, "| Skipped | %d |\n", len(r.Skipped))
	}
	b.WriteString("\n")

	if len(r.Extras) > 0 {
		b.WriteString("## Extra fields\n\n")
		for _, key := range r.Extras {
			fmt.Fprintf(&b, "- %s\n", cell(key))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Anomalies\n\n")
	if len(r.Anomalies) == 0 {
		b.WriteString("No anomalies detected.\n")
		return b.String()
	}
	for _, a := range r.Anomalies {
		fmt.Fprintf(&b, "### [%s] %s\n\n", a.Severity, a.Title)
		fmt.Fprintf(&b, "%s\n\n", a.Description)
		for _, f := range a.Fields {
			fmt.Fprintf(&b, "- %s\n", cell(f))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// RenderTerminal styles Markdown for a terminal. An empty style picks one
// from the terminal background.
func RenderTerminal(markdown, style string, width int) (string, error) {
	if width <= 0 {
		width = defaultWordWrap
	}

	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStylePath(style))
	}

	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create terminal renderer: %w", err)
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return out, nil
}

// cell strips markup and escapes the characters that break Markdown tables.
func cell(text string) string {
	cleaned := strings.TrimSpace(sanitizer().Sanitize(text))
	cleaned = strings.NewReplacer("|", `\|`, "\n", " ", "\r", "").Replace(cleaned)
	return cleaned
}

func sanitizer() *bluemonday.Policy {
	labelPolicyOnce.Do(func() {
		labelPolicy = bluemonday.StrictPolicy()
	})
	return labelPolicy
}
