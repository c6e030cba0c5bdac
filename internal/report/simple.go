package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/mirrorscan/mirrorscan/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting and explicit approval markers on risky gaps.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables the per-gap impact and recommendation text.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with impact and recommendation
// details for each gap.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.AuditReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeGaps(&sb, report)
	w.writeFooter(&sb, report)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with audit information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.AuditReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        MIRRORSCAN AUDIT REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Manifest:       %s\n", report.ManifestPath))
	sb.WriteString(fmt.Sprintf("Registry File:  %s\n", report.RegistryFile))
	sb.WriteString(fmt.Sprintf("Audit Date:     %s\n", report.DateAudited.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Dependencies:   %d\n", report.DependencyCount))

	if report.Error != "" {
		sb.WriteString(fmt.Sprintf("Status:         ERROR - %s\n", report.Error))
	} else if report.FullySatisfied() {
		sb.WriteString("Status:         Fully satisfied\n")
	} else {
		sb.WriteString(fmt.Sprintf("Status:         %d gap(s) found\n", report.TotalGaps()))
	}

	sb.WriteString("\n")
}

// writeSummary writes the category summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.AuditReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("CATEGORY SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  SATISFIED:           %d\n", report.SatisfiedCount))
	sb.WriteString(fmt.Sprintf("  MINOR/PATCH UPGRADE: %d\n", report.MinorPatchUpgradeCount))
	sb.WriteString(fmt.Sprintf("  MAJOR UPGRADE:       %d\n", report.MajorUpgradeCount))
	sb.WriteString(fmt.Sprintf("  DOWNGRADE:           %d\n", report.DowngradeCount))
	sb.WriteString(fmt.Sprintf("  NEW DEPENDENCY:      %d\n", report.NewDependencyCount))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("  TOTAL GAPS:          %d", report.TotalGaps()))
	if n := report.ApprovalCount(); n > 0 {
		sb.WriteString(fmt.Sprintf(" (%d require approval)", n))
	}
	sb.WriteString("\n\n")
}

// writeGaps writes all gaps grouped by category, riskiest first.
func (w *SimpleWriter) writeGaps(sb *strings.Builder, report *model.AuditReport) {
	if report.FullySatisfied() {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("GAPS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, category := range model.Categories() {
		gaps := report.GapsByCategory(category)
		if len(gaps) == 0 {
			continue
		}

		sb.WriteString(fmt.Sprintf("[%s]\n", category.String()))
		for _, gap := range gaps {
			w.writeGap(sb, gap)
		}
		sb.WriteString("\n")
	}
}

// writeGap writes a single gap line, with detail in verbose mode.
func (w *SimpleWriter) writeGap(sb *strings.Builder, gap model.Gap) {
	line := fmt.Sprintf("  %s-%s (requires %q", gap.Name, gap.Resolved, gap.Requirement.String())
	if gap.BestOffline != nil {
		line += fmt.Sprintf(", mirror has %s", gap.BestOffline)
	} else {
		line += ", mirror has nothing"
	}
	line += ")"
	if gap.RequiresApproval() {
		line += " [REQUIRES APPROVAL]"
	}
	sb.WriteString(line + "\n")

	if w.verbose {
		info := model.GetCategoryInfo(gap.Category)
		if info.Impact != "" {
			sb.WriteString(fmt.Sprintf("      Impact:         %s\n", info.Impact))
		}
		if info.Recommendation != "" {
			sb.WriteString(fmt.Sprintf("      Recommendation: %s\n", info.Recommendation))
		}
	}
}

// writeFooter writes the closing hints.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, report *model.AuditReport) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	if report.FullySatisfied() {
		sb.WriteString("All dependencies are present in the offline registry.\n")
		return
	}

	if n := report.ApprovalCount(); n > 0 {
		sb.WriteString(fmt.Sprintf("%d gap(s) require approval (major upgrades, downgrades, or new dependencies).\n", n))
	}
	sb.WriteString("Run with --write to append the resolved versions and sort the registry file.\n")
}
