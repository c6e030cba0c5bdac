package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/mirrorscan/mirrorscan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation, pull requests, and sharing
// approval decisions with a review team.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.AuditReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeGaps(md, report)
	w.writeWriteBack(md, report)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with audit information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.AuditReport) {
	md.H1("Mirrorscan Audit Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Manifest", "`" + report.ManifestPath + "`"},
			{"Registry File", "`" + report.RegistryFile + "`"},
			{"Audit Date", report.DateAudited.Format("2006-01-02 15:04:05 MST")},
			{"Dependencies", strconv.Itoa(report.DependencyCount)},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.AuditReport) string {
	if report.Error != "" {
		return "❌ Error - " + report.Error
	}
	if report.FullySatisfied() {
		return "✅ Fully satisfied"
	}
	return "⚠️ " + strconv.Itoa(report.TotalGaps()) + " gap(s) found"
}

// writeSummary writes the category summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Category Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Category", "Count", "Approval"},
		Rows: [][]string{
			{"✅ Satisfied", strconv.Itoa(report.SatisfiedCount), "—"},
			{"🟢 Minor/Patch Upgrade", strconv.Itoa(report.MinorPatchUpgradeCount), "automatic"},
			{"🟠 Major Upgrade", strconv.Itoa(report.MajorUpgradeCount), "required"},
			{"🔴 Downgrade", strconv.Itoa(report.DowngradeCount), "required"},
			{"🟣 New Dependency", strconv.Itoa(report.NewDependencyCount), "required"},
			{"**Total Gaps**", "**" + strconv.Itoa(report.TotalGaps()) + "**", ""},
		},
	})
	md.PlainText("")

	if !report.FullySatisfied() {
		w.writePieChart(md, report)
	}

	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of the gap category distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.AuditReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Gap Category Distribution"),
		piechart.WithShowData(true),
	)

	if report.NewDependencyCount > 0 {
		chart.LabelAndIntValue("New Dependency", uint64(report.NewDependencyCount))
	}
	if report.DowngradeCount > 0 {
		chart.LabelAndIntValue("Downgrade", uint64(report.DowngradeCount))
	}
	if report.MajorUpgradeCount > 0 {
		chart.LabelAndIntValue("Major Upgrade", uint64(report.MajorUpgradeCount))
	}
	if report.MinorPatchUpgradeCount > 0 {
		chart.LabelAndIntValue("Minor/Patch Upgrade", uint64(report.MinorPatchUpgradeCount))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the gap categories found.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.AuditReport) {
	approvals := report.ApprovalCount()
	switch {
	case report.DowngradeCount > 0:
		md.Cautionf(
			"%d downgrade(s) detected. Accepting them moves the mirror backward; review before approving.",
			report.DowngradeCount,
		)
	case approvals > 0:
		md.Warningf(
			"%d gap(s) require approval (major upgrades or new dependencies).",
			approvals,
		)
	case report.TotalGaps() > 0:
		md.Note("Only minor/patch upgrades needed. Safe to write back.")
	default:
		md.Tip("The offline registry satisfies every dependency.")
	}
	md.PlainText("")
}

// writeGaps writes all gaps grouped by category, riskiest first.
func (w *MarkdownWriter) writeGaps(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Gaps")
	md.PlainText("")

	if report.FullySatisfied() {
		md.PlainText("No gaps found.")
		md.PlainText("")
		return
	}

	headers := []struct {
		category model.Category
		header   string
	}{
		{model.CategoryNewDependency, "### 🟣 New Dependencies"},
		{model.CategoryDowngrade, "### 🔴 Downgrades"},
		{model.CategoryMajorUpgrade, "### 🟠 Major Upgrades"},
		{model.CategoryMinorPatchUpgrade, "### 🟢 Minor/Patch Upgrades"},
	}

	for _, h := range headers {
		gaps := report.GapsByCategory(h.category)
		if len(gaps) == 0 {
			continue
		}

		md.PlainText(h.header)
		md.PlainText("")

		rows := make([][]string, 0, len(gaps))
		for _, gap := range gaps {
			best := "—"
			if gap.BestOffline != nil {
				best = gap.BestOffline.String()
			}
			rows = append(rows, []string{
				"`" + gap.Name + "`",
				"`" + gap.Requirement.String() + "`",
				gap.Resolved.String(),
				best,
			})
		}

		md.Table(markdown.TableSet{
			Header: []string{"Package", "Requirement", "Resolved", "Best Offline"},
			Rows:   rows,
		})
		md.PlainText("")

		info := model.GetCategoryInfo(h.category)
		if info.Impact != "" {
			md.PlainText("**Impact:** " + info.Impact)
			md.PlainText("")
			md.PlainText("**Recommendation:** " + info.Recommendation)
			md.PlainText("")
		}
	}
}

// writeWriteBack writes the entries a --write run would append.
func (w *MarkdownWriter) writeWriteBack(md *markdown.Markdown, report *model.AuditReport) {
	if report.FullySatisfied() {
		return
	}

	md.H2("Write-Back Entries")
	md.PlainText("")
	md.PlainText("Accepting every gap would append the following lines to the registry file:")
	md.PlainText("")

	lines := ""
	for _, entry := range report.WriteBackEntries() {
		lines += entry.String() + "\n"
	}
	md.CodeBlocks(markdown.SyntaxHighlightText, lines)
	md.PlainText("")
}
