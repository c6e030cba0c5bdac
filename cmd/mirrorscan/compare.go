package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mirrorscan/mirrorscan/internal/config"
	"github.com/mirrorscan/mirrorscan/internal/database"
	"github.com/mirrorscan/mirrorscan/internal/model"
	"github.com/spf13/cobra"
)

// Constants for gap trend direction and summary messages.
const (
	trendWorsened  = "worsened"
	trendImproved  = "improved"
	trendUnchanged = "unchanged"
	noGapsMessage  = "No gaps"
)

// NewCompareCmd creates the compare command.
// This command compares audit results with historical data stored in the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [manifest-path]",
		Short: "Compare audit results with historical data",
		Long: `Compare displays differences between the current and previous audit results.

This command retrieves historical audit data from the database and shows:
- New gaps that appeared since the last audit
- Closed gaps that the mirror now satisfies
- Changes in gap classification

The comparison requires at least two audits in the database for the
specified manifest. Use 'mirrorscan audit' to perform audits and save
results.

Examples:
  # Compare latest two audits for a project
  mirrorscan compare ./Cargo.toml

  # List all audit history for a project
  mirrorscan compare --list ./Cargo.toml

  # Compare with a specific historical audit by ID
  mirrorscan compare --with-id 5 ./Cargo.toml

  # Compare audits since a specific date
  mirrorscan compare --since "2026-01-01" ./Cargo.toml

  # Output comparison in JSON format
  mirrorscan compare --json ./Cargo.toml

  # List all audited projects in the database
  mirrorscan compare --list-projects`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List audit history for the specified manifest")
	cmd.Flags().BoolP("list-projects", "L", false,
		"List all audited projects in the database")

	// Comparison target flags
	cmd.Flags().Int64P("with-id", "i", 0,
		"Compare with a specific audit by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first audit after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	// Handle --list-projects flag first (requires database but no manifest)
	listProjects, err := cmd.Flags().GetBool("list-projects")
	if err != nil {
		return err
	}

	// Validate arguments before opening database (unless --list-projects)
	// This prevents database lock issues when validation fails
	var manifestPath string
	if !listProjects {
		// Require a manifest path for other operations
		if len(args) == 0 {
			return errors.New("manifest path is required (use --list-projects to see available projects)")
		}
		manifestPath = args[0]
	}

	// Use XDG data directory for database
	dbDir := config.XDGDataDir()

	// Open database
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Handle --list-projects flag
	if listProjects {
		return listAuditedProjects(ctx, db)
	}

	// Handle --list flag
	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listAuditHistory(ctx, db, manifestPath)
	}

	// Get output format flags
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	// Get comparison target flags
	withID, err := cmd.Flags().GetInt64("with-id")
	if err != nil {
		return err
	}
	sinceDate, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}

	// Perform comparison
	return runComparison(ctx, db, manifestPath, withID, sinceDate, jsonOutput, markdownOutput)
}

// listAuditedProjects lists all projects that have audit records in the database.
func listAuditedProjects(ctx context.Context, db *database.HistoryDB) error {
	projects, err := db.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	if len(projects) == 0 {
		fmt.Println("No audited projects found in the database.")
		fmt.Println("\nUse 'mirrorscan audit <manifest>' to audit a project.")
		return nil
	}

	fmt.Printf("Audited projects (%d):\n\n", len(projects))
	for _, project := range projects {
		fmt.Printf("  • %s\n", project)
	}
	fmt.Println("\nUse 'mirrorscan compare --list <manifest>' to see audit history for a project.")

	return nil
}

// listAuditHistory lists all audit records for a specific manifest.
func listAuditHistory(ctx context.Context, db *database.HistoryDB, manifestPath string) error {
	history, err := db.History(ctx, manifestPath)
	if err != nil {
		return fmt.Errorf("failed to get audit history: %w", err)
	}

	if len(history) == 0 {
		fmt.Printf("No audit history found for %s\n", manifestPath)
		fmt.Println("\nUse 'mirrorscan audit' to audit this project.")
		return nil
	}

	fmt.Printf("Audit history for %s (%d audits):\n\n", manifestPath, len(history))
	fmt.Printf("  %-6s  %-20s  %s\n", "ID", "Date", "Gap Summary")
	fmt.Println("  " + strings.Repeat("-", 60))

	for _, meta := range history {
		fmt.Printf("  %-6d  %-20s  %s\n",
			meta.ID,
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			formatGapSummary(meta),
		)
	}

	fmt.Println("\nUse 'mirrorscan compare <manifest>' to compare the latest two audits.")
	fmt.Println("Use 'mirrorscan compare --with-id <id> <manifest>' to compare with a specific audit.")

	return nil
}

// formatGapSummary formats audit metadata into a human-readable string.
func formatGapSummary(meta database.ReportMetadata) string {
	if meta.GapCount == 0 {
		return noGapsMessage
	}
	if meta.ApprovalCount > 0 {
		return fmt.Sprintf("gaps:%d approval:%d", meta.GapCount, meta.ApprovalCount)
	}
	return fmt.Sprintf("gaps:%d", meta.GapCount)
}

// runComparison performs the actual comparison between audit reports.
func runComparison(ctx context.Context, db *database.HistoryDB, manifestPath string, withID int64, sinceDate string, jsonOutput, markdownOutput bool) error {
	// Get the audit history (newest first)
	reports, err := db.LatestReports(ctx, manifestPath, 0)
	if err != nil {
		return fmt.Errorf("failed to get audit history: %w", err)
	}

	if len(reports) == 0 {
		return fmt.Errorf("no audit history found for %s", manifestPath)
	}

	if len(reports) < 2 && withID == 0 && sinceDate == "" {
		return fmt.Errorf("at least 2 audits are required for comparison (found %d)", len(reports))
	}

	// Determine which reports to compare
	var currentReport, previousReport *model.AuditReport

	// Latest report is always the current one
	currentReport = reports[0]

	if withID > 0 {
		// Find the report with the specified ID
		previousReport, err = db.ReportByID(ctx, withID)
		if err != nil {
			return fmt.Errorf("failed to get audit with ID %d: %w", withID, err)
		}
		if previousReport == nil {
			return fmt.Errorf("audit with ID %d not found", withID)
		}
		// Validate that the audit ID belongs to the same project
		if previousReport.ManifestPath != manifestPath {
			return fmt.Errorf("audit ID %d belongs to %s, not %s", withID, previousReport.ManifestPath, manifestPath)
		}
	} else if sinceDate != "" {
		// Parse the date and find the first (oldest) report at or after the specified date
		parsedDate, err := time.Parse("2006-01-02", sinceDate)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// Reports are sorted by timestamp DESC (newest first), so iterate in reverse
		// to find the first (oldest) report at or after the date
		for i := len(reports) - 1; i >= 0; i-- {
			r := reports[i]
			if r.DateAudited.After(parsedDate) || r.DateAudited.Equal(parsedDate) {
				previousReport = r
				break // Stop at the first (oldest) matching report
			}
		}
		if previousReport == nil {
			return fmt.Errorf("no audits found since %s", sinceDate)
		}
		// If only one audit matches and it's the current report, we can't compare
		if previousReport == currentReport {
			return fmt.Errorf("only one audit found since %s; at least 2 audits are required for comparison", sinceDate)
		}
	} else {
		// Default: compare with the previous audit
		previousReport = reports[1]
	}

	// Generate comparison result
	comparison := compareReports(previousReport, currentReport)

	// Output the result
	if jsonOutput {
		return outputComparisonJSON(comparison)
	}
	if markdownOutput {
		return outputComparisonMarkdown(comparison)
	}
	return outputComparisonText(comparison)
}

// ComparisonResult holds the result of comparing two audit reports.
type ComparisonResult struct {
	// ManifestPath is the audited project manifest.
	ManifestPath string `json:"manifest_path"`

	// PreviousAudit contains metadata about the previous audit.
	PreviousAudit AuditMetadata `json:"previous_audit"`

	// CurrentAudit contains metadata about the current audit.
	CurrentAudit AuditMetadata `json:"current_audit"`

	// NewGaps contains gaps that are new in the current audit.
	NewGaps []model.Gap `json:"new_gaps,omitempty"`

	// ClosedGaps contains gaps that were in the previous audit but not in current.
	ClosedGaps []model.Gap `json:"closed_gaps,omitempty"`

	// ReclassifiedGaps contains gaps present in both audits whose category
	// changed, in their current classification.
	ReclassifiedGaps []model.Gap `json:"reclassified_gaps,omitempty"`

	// UnchangedCount is the number of gaps that remain unchanged.
	UnchangedCount int `json:"unchanged_count"`

	// Trend describes the overall change in mirror coverage.
	Trend GapTrend `json:"trend"`
}

// AuditMetadata contains metadata about an audit for comparison display.
type AuditMetadata struct {
	// DateAudited is when the audit was performed.
	DateAudited time.Time `json:"date_audited"`

	// TotalGaps is the total number of gaps in this audit.
	TotalGaps int `json:"total_gaps"`

	// NewDependencyCount is the number of new-dependency gaps.
	NewDependencyCount int `json:"new_dependency_count"`

	// DowngradeCount is the number of downgrade gaps.
	DowngradeCount int `json:"downgrade_count"`

	// MajorUpgradeCount is the number of major upgrade gaps.
	MajorUpgradeCount int `json:"major_upgrade_count"`

	// MinorPatchUpgradeCount is the number of minor/patch upgrade gaps.
	MinorPatchUpgradeCount int `json:"minor_patch_upgrade_count"`
}

// GapTrend describes the change in mirror coverage between audits.
type GapTrend struct {
	// Direction is "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`

	// NewDependencyDelta is the change in new-dependency gap count.
	NewDependencyDelta int `json:"new_dependency_delta"`

	// DowngradeDelta is the change in downgrade gap count.
	DowngradeDelta int `json:"downgrade_delta"`

	// MajorUpgradeDelta is the change in major upgrade gap count.
	MajorUpgradeDelta int `json:"major_upgrade_delta"`

	// MinorPatchUpgradeDelta is the change in minor/patch upgrade gap count.
	MinorPatchUpgradeDelta int `json:"minor_patch_upgrade_delta"`
}

// compareReports compares two audit reports and generates a comparison result.
func compareReports(previous, current *model.AuditReport) *ComparisonResult {
	result := &ComparisonResult{
		ManifestPath:  current.ManifestPath,
		PreviousAudit: auditMetadata(previous),
		CurrentAudit:  auditMetadata(current),
	}

	// Build gap maps for comparison. Keyed by name and resolved version:
	// a gap that re-resolves to a different version is a new gap, not the
	// same one persisting.
	previousGaps := make(map[string]model.Gap)
	currentGaps := make(map[string]model.Gap)

	for _, g := range previous.Gaps {
		previousGaps[gapKey(g)] = g
	}
	for _, g := range current.Gaps {
		currentGaps[gapKey(g)] = g
	}

	// Find new gaps (in current but not in previous)
	for key, gap := range currentGaps {
		if _, exists := previousGaps[key]; !exists {
			result.NewGaps = append(result.NewGaps, gap)
		}
	}

	// Find closed gaps (in previous but not in current) and
	// reclassifications among persisting gaps
	for key, gap := range previousGaps {
		currentGap, exists := currentGaps[key]
		switch {
		case !exists:
			result.ClosedGaps = append(result.ClosedGaps, gap)
		case currentGap.Category != gap.Category:
			result.ReclassifiedGaps = append(result.ReclassifiedGaps, currentGap)
		default:
			result.UnchangedCount++
		}
	}

	// The diff sets come out of map iteration; sort them so the output
	// is stable run to run.
	sortGapsByKey(result.NewGaps)
	sortGapsByKey(result.ClosedGaps)
	sortGapsByKey(result.ReclassifiedGaps)

	// Calculate coverage trend
	result.Trend = calculateTrend(result.PreviousAudit, result.CurrentAudit)

	return result
}

// sortGapsByKey orders gaps by name and resolved version.
func sortGapsByKey(gaps []model.Gap) {
	sort.Slice(gaps, func(i, j int) bool {
		return gapKey(gaps[i]) < gapKey(gaps[j])
	})
}

// auditMetadata extracts comparison metadata from a report.
func auditMetadata(report *model.AuditReport) AuditMetadata {
	return AuditMetadata{
		DateAudited:            report.DateAudited,
		TotalGaps:              report.TotalGaps(),
		NewDependencyCount:     report.NewDependencyCount,
		DowngradeCount:         report.DowngradeCount,
		MajorUpgradeCount:      report.MajorUpgradeCount,
		MinorPatchUpgradeCount: report.MinorPatchUpgradeCount,
	}
}

// gapKey generates a unique key for a gap for comparison purposes.
func gapKey(g model.Gap) string {
	return g.Name + "|" + g.Resolved.String()
}

// calculateTrend calculates the change in mirror coverage between audits.
func calculateTrend(previous, current AuditMetadata) GapTrend {
	trend := GapTrend{
		NewDependencyDelta:     current.NewDependencyCount - previous.NewDependencyCount,
		DowngradeDelta:         current.DowngradeCount - previous.DowngradeCount,
		MajorUpgradeDelta:      current.MajorUpgradeCount - previous.MajorUpgradeCount,
		MinorPatchUpgradeDelta: current.MinorPatchUpgradeCount - previous.MinorPatchUpgradeCount,
	}

	// Determine overall direction based on weighted score.
	// Approval-needing categories carry more weight than compatible upgrades.
	previousScore := previous.NewDependencyCount*10 + previous.DowngradeCount*10 + previous.MajorUpgradeCount*10 + previous.MinorPatchUpgradeCount
	currentScore := current.NewDependencyCount*10 + current.DowngradeCount*10 + current.MajorUpgradeCount*10 + current.MinorPatchUpgradeCount

	if currentScore < previousScore {
		trend.Direction = trendImproved
	} else if currentScore > previousScore {
		trend.Direction = trendWorsened
	} else {
		trend.Direction = trendUnchanged
	}

	return trend
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(result *ComparisonResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(result *ComparisonResult) error {
	fmt.Printf("# Audit Comparison: %s\n\n", result.ManifestPath)

	// Coverage trend summary
	fmt.Println("## Summary")
	fmt.Printf("\n**Mirror Coverage:** %s\n\n", formatTrendDirection(result.Trend.Direction))

	// Audit metadata table
	fmt.Println("| Metric | Previous | Current | Change |")
	fmt.Println("|--------|----------|---------|--------|")
	fmt.Printf("| Date | %s | %s | - |\n",
		result.PreviousAudit.DateAudited.Format("2006-01-02 15:04"),
		result.CurrentAudit.DateAudited.Format("2006-01-02 15:04"))
	fmt.Printf("| New dependencies | %d | %d | %s |\n",
		result.PreviousAudit.NewDependencyCount,
		result.CurrentAudit.NewDependencyCount,
		formatDelta(result.Trend.NewDependencyDelta))
	fmt.Printf("| Downgrades | %d | %d | %s |\n",
		result.PreviousAudit.DowngradeCount,
		result.CurrentAudit.DowngradeCount,
		formatDelta(result.Trend.DowngradeDelta))
	fmt.Printf("| Major upgrades | %d | %d | %s |\n",
		result.PreviousAudit.MajorUpgradeCount,
		result.CurrentAudit.MajorUpgradeCount,
		formatDelta(result.Trend.MajorUpgradeDelta))
	fmt.Printf("| Minor/patch upgrades | %d | %d | %s |\n",
		result.PreviousAudit.MinorPatchUpgradeCount,
		result.CurrentAudit.MinorPatchUpgradeCount,
		formatDelta(result.Trend.MinorPatchUpgradeDelta))
	fmt.Printf("| **Total** | **%d** | **%d** | **%s** |\n",
		result.PreviousAudit.TotalGaps,
		result.CurrentAudit.TotalGaps,
		formatDelta(result.CurrentAudit.TotalGaps-result.PreviousAudit.TotalGaps))

	// New gaps
	if len(result.NewGaps) > 0 {
		fmt.Printf("\n## New Gaps (%d)\n\n", len(result.NewGaps))
		for _, g := range result.NewGaps {
			fmt.Printf("- **[%s]** %s %s (requires %s)\n", g.CategoryText, g.Name, g.Resolved.String(), g.Requirement.String())
		}
	}

	// Closed gaps
	if len(result.ClosedGaps) > 0 {
		fmt.Printf("\n## Closed Gaps (%d)\n\n", len(result.ClosedGaps))
		for _, g := range result.ClosedGaps {
			fmt.Printf("- ~~**[%s]** %s %s~~\n", g.CategoryText, g.Name, g.Resolved.String())
		}
	}

	// Reclassified gaps
	if len(result.ReclassifiedGaps) > 0 {
		fmt.Printf("\n## Reclassified Gaps (%d)\n\n", len(result.ReclassifiedGaps))
		for _, g := range result.ReclassifiedGaps {
			fmt.Printf("- **[%s]** %s %s\n", g.CategoryText, g.Name, g.Resolved.String())
		}
	}

	// Unchanged count
	if result.UnchangedCount > 0 {
		fmt.Printf("\n---\n\n*%d gaps unchanged*\n", result.UnchangedCount)
	}

	return nil
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(result *ComparisonResult) error {
	fmt.Printf("Audit Comparison: %s\n", result.ManifestPath)
	fmt.Println(strings.Repeat("=", 60))

	// Coverage trend summary
	fmt.Printf("\nMirror Coverage: %s\n", formatTrendDirection(result.Trend.Direction))

	// Audit dates
	fmt.Printf("\nPrevious audit: %s\n", result.PreviousAudit.DateAudited.Format("2006-01-02 15:04:05"))
	fmt.Printf("Current audit:  %s\n", result.CurrentAudit.DateAudited.Format("2006-01-02 15:04:05"))

	// Summary table
	fmt.Println("\nGap Summary:")
	fmt.Printf("  %-22s  %-10s  %-10s  %-10s\n", "Category", "Previous", "Current", "Change")
	fmt.Println("  " + strings.Repeat("-", 58))
	fmt.Printf("  %-22s  %-10d  %-10d  %-10s\n", "New dependencies",
		result.PreviousAudit.NewDependencyCount, result.CurrentAudit.NewDependencyCount,
		formatDelta(result.Trend.NewDependencyDelta))
	fmt.Printf("  %-22s  %-10d  %-10d  %-10s\n", "Downgrades",
		result.PreviousAudit.DowngradeCount, result.CurrentAudit.DowngradeCount,
		formatDelta(result.Trend.DowngradeDelta))
	fmt.Printf("  %-22s  %-10d  %-10d  %-10s\n", "Major upgrades",
		result.PreviousAudit.MajorUpgradeCount, result.CurrentAudit.MajorUpgradeCount,
		formatDelta(result.Trend.MajorUpgradeDelta))
	fmt.Printf("  %-22s  %-10d  %-10d  %-10s\n", "Minor/patch upgrades",
		result.PreviousAudit.MinorPatchUpgradeCount, result.CurrentAudit.MinorPatchUpgradeCount,
		formatDelta(result.Trend.MinorPatchUpgradeDelta))
	fmt.Println("  " + strings.Repeat("-", 58))
	fmt.Printf("  %-22s  %-10d  %-10d  %-10s\n", "Total",
		result.PreviousAudit.TotalGaps, result.CurrentAudit.TotalGaps,
		formatDelta(result.CurrentAudit.TotalGaps-result.PreviousAudit.TotalGaps))

	// New gaps
	if len(result.NewGaps) > 0 {
		fmt.Printf("\nNew Gaps (%d):\n", len(result.NewGaps))
		for _, g := range result.NewGaps {
			fmt.Printf("  [+] [%s] %s %s (requires %s)\n", g.CategoryText, g.Name, g.Resolved.String(), g.Requirement.String())
		}
	}

	// Closed gaps
	if len(result.ClosedGaps) > 0 {
		fmt.Printf("\nClosed Gaps (%d):\n", len(result.ClosedGaps))
		for _, g := range result.ClosedGaps {
			fmt.Printf("  [-] [%s] %s %s\n", g.CategoryText, g.Name, g.Resolved.String())
		}
	}

	// Reclassified gaps
	if len(result.ReclassifiedGaps) > 0 {
		fmt.Printf("\nReclassified Gaps (%d):\n", len(result.ReclassifiedGaps))
		for _, g := range result.ReclassifiedGaps {
			fmt.Printf("  [~] [%s] %s %s\n", g.CategoryText, g.Name, g.Resolved.String())
		}
	}

	// Unchanged count
	if result.UnchangedCount > 0 {
		fmt.Printf("\nUnchanged: %d gaps\n", result.UnchangedCount)
	}

	return nil
}

// formatTrendDirection formats the coverage trend direction for display.
func formatTrendDirection(direction string) string {
	switch direction {
	case trendImproved:
		return "IMPROVED (fewer gaps)"
	case trendWorsened:
		return "WORSENED (more gaps)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}
