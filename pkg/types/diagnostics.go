package types

import (
	"fmt"
	"sort"
	"strings"
)

// -----------------------------------------------------------------------------
// Diagnostic System
// -----------------------------------------------------------------------------
//
// A diagnostic scan walks every runtime structure (pool free list, queues,
// heap blocks, timer lists) and records each inconsistency instead of
// stopping at the first. It is read-only and intended for self-tests and the
// nsctl diagnose command, never for the hot path.

// Severity classifies how serious a diagnostic issue is.
type Severity int

const (
	SevInfo     Severity = iota // unusual but valid
	SevWarning                  // valid, likely to cause backpressure
	SevError                    // accounting mismatch
	SevCritical                 // broken links; further use is unsafe
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	case SevCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Diagnostic is a single issue found by a scan.
type Diagnostic struct {
	Severity  Severity `json:"severity"`
	Component string   `json:"component"` // "pool", "queue", "heap", "timer", ...
	Offset    int      `json:"offset"`    // buffer index or arena offset, -1 when not applicable
	Issue     string   `json:"issue"`
	Expected  any      `json:"expected,omitempty"`
	Actual    any      `json:"actual,omitempty"`
}

// DiagnosticReport collects all diagnostics found during a scan.
type DiagnosticReport struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
	Summary     DiagSummary  `json:"summary"`

	BySeverity  map[Severity][]Diagnostic `json:"-"`
	ByComponent map[string][]Diagnostic   `json:"-"`
}

// DiagSummary provides quick statistics.
type DiagSummary struct {
	Critical int `json:"critical"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
}

// NewDiagnosticReport creates an empty report.
func NewDiagnosticReport() *DiagnosticReport {
	return &DiagnosticReport{
		BySeverity:  make(map[Severity][]Diagnostic),
		ByComponent: make(map[string][]Diagnostic),
	}
}

// Add adds a diagnostic to the report and updates indices.
func (r *DiagnosticReport) Add(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)

	switch d.Severity {
	case SevCritical:
		r.Summary.Critical++
	case SevError:
		r.Summary.Errors++
	case SevWarning:
		r.Summary.Warnings++
	case SevInfo:
		r.Summary.Info++
	}

	r.BySeverity[d.Severity] = append(r.BySeverity[d.Severity], d)
	r.ByComponent[d.Component] = append(r.ByComponent[d.Component], d)
}

// Addf is shorthand for Add with a formatted issue and no expected/actual pair.
func (r *DiagnosticReport) Addf(sev Severity, component string, offset int, format string, args ...any) {
	r.Add(Diagnostic{
		Severity:  sev,
		Component: component,
		Offset:    offset,
		Issue:     fmt.Sprintf(format, args...),
	})
}

// Finalize orders diagnostics by component, then offset.
func (r *DiagnosticReport) Finalize() {
	sort.SliceStable(r.Diagnostics, func(i, j int) bool {
		if r.Diagnostics[i].Component != r.Diagnostics[j].Component {
			return r.Diagnostics[i].Component < r.Diagnostics[j].Component
		}
		return r.Diagnostics[i].Offset < r.Diagnostics[j].Offset
	})
}

// HasErrors returns true if any errors or critical issues were found.
func (r *DiagnosticReport) HasErrors() bool {
	return r.Summary.Critical > 0 || r.Summary.Errors > 0
}

// HasAnyIssues returns true if any issues were found (including warnings and info).
func (r *DiagnosticReport) HasAnyIssues() bool {
	return len(r.Diagnostics) > 0
}

// Err returns nil for a report without errors, otherwise an ErrFailed
// describing the first error or critical issue.
func (r *DiagnosticReport) Err() error {
	for _, d := range r.Diagnostics {
		if d.Severity >= SevError {
			return Errorf(ErrKindFailed, d.Component+": "+d.Issue, nil)
		}
	}
	return nil
}

// FormatText returns a human-readable text report.
func (r *DiagnosticReport) FormatText() string {
	var b strings.Builder

	b.WriteString("SUMMARY\n")
	b.WriteString(strings.Repeat("-", 79) + "\n")
	b.WriteString(fmt.Sprintf("  Critical: %d\n", r.Summary.Critical))
	b.WriteString(fmt.Sprintf("  Errors:   %d\n", r.Summary.Errors))
	b.WriteString(fmt.Sprintf("  Warnings: %d\n", r.Summary.Warnings))
	b.WriteString(fmt.Sprintf("  Info:     %d\n\n", r.Summary.Info))

	if len(r.Diagnostics) == 0 {
		b.WriteString("No issues found.\n")
		return b.String()
	}

	for _, severity := range []Severity{SevCritical, SevError, SevWarning, SevInfo} {
		diags := r.BySeverity[severity]
		if len(diags) == 0 {
			continue
		}

		b.WriteString(fmt.Sprintf("%s (%d)\n", severity, len(diags)))
		b.WriteString(strings.Repeat("~", 79) + "\n")

		for i, d := range diags {
			b.WriteString(fmt.Sprintf("\n%d. [%s] at %d\n", i+1, d.Component, d.Offset))
			b.WriteString(fmt.Sprintf("   %s\n", d.Issue))
			if d.Expected != nil {
				b.WriteString(fmt.Sprintf("   Expected: %v\n", d.Expected))
			}
			if d.Actual != nil {
				b.WriteString(fmt.Sprintf("   Actual:   %v\n", d.Actual))
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

// FormatTextCompact returns a compact one-line-per-issue text format.
func (r *DiagnosticReport) FormatTextCompact() string {
	var b strings.Builder

	for _, d := range r.Diagnostics {
		b.WriteString(fmt.Sprintf("%-8s %-6s %6d %s\n", d.Severity, d.Component, d.Offset, d.Issue))
	}

	if len(r.Diagnostics) == 0 {
		b.WriteString("No issues found.\n")
	}

	return b.String()
}
