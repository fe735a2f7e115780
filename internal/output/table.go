// Package output provides terminal output utilities for apkident.
//
// This package includes:
//   - Table rendering for snapshots, catalog evaluations and scan runs
//   - Detail views for a single snapshot and for localized metadata
//   - Progress bars and spinners for long-running operations
//
// Tables use plain ASCII layout and ANSI colors when stdout is a terminal.
// Progress indicators are safe for use from multiple goroutines.
package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/apkident/internal/analyzer"
	"github.com/blackwell-systems/apkident/internal/locale"
	"github.com/blackwell-systems/apkident/internal/snapshots"
	"github.com/blackwell-systems/apkident/internal/store"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that NO_COLOR is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderSnapshotTable renders one row per snapshot, sorted by package.
func RenderSnapshotTable(snaps []*snapshots.Snapshot) string {
	if len(snaps) == 0 {
		return "No snapshots found.\n"
	}

	sorted := make([]*snapshots.Snapshot, len(snaps))
	copy(sorted, snaps)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].PackageName != sorted[j].PackageName {
			return sorted[i].PackageName < sorted[j].PackageName
		}
		return sorted[i].VersionCode > sorted[j].VersionCode
	})

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-32s %-14s %-9s %-8s %-10s %s\n",
		"Package", "Version", "SDK", "Size", "Signer", "Scanned"))
	sb.WriteString(strings.Repeat("─", 92))
	sb.WriteString("\n")

	for _, s := range sorted {
		sb.WriteString(fmt.Sprintf("%-32s %-14s %-9s %-8s %-10s %s\n",
			truncate(s.PackageName, 32),
			truncate(formatVersion(s.VersionName, s.VersionCode), 14),
			fmt.Sprintf("%d-%d", s.MinSDK, s.MaxSDK),
			formatSize(s.Size),
			formatSigner(s.Signer),
			formatRelativeTime(s.ScannedAt)))
	}

	return sb.String()
}

// RenderSnapshot renders every field of one snapshot.
func RenderSnapshot(s *snapshots.Snapshot) string {
	var sb strings.Builder

	field := func(label, value string) {
		sb.WriteString(fmt.Sprintf("%-14s %s\n", label+":", value))
	}

	field("Package", s.PackageName)
	field("Version", formatVersion(s.VersionName, s.VersionCode))
	field("SDK", fmt.Sprintf("min %d, target %d, max %d", s.MinSDK, s.TargetSDK, s.MaxSDK))
	if s.Signed() {
		field("Signer", s.Signer)
	} else {
		field("Signer", colorize(colorYellow, "unknown"))
	}
	field("Native code", formatList(s.NativeCode))
	field("Permissions", formatList(s.RequestedPermissions))
	field("Features", formatList(s.Features))
	if s.Hash != "" {
		field("Hash", s.HashType+":"+s.Hash)
	}
	field("Archive", s.ArchivePath)
	field("Size", formatSize(s.Size))
	if s.ExpansionMain != nil {
		field("Main OBB", s.ExpansionMain.Path)
	}
	if s.ExpansionPatch != nil {
		field("Patch OBB", s.ExpansionPatch.Path)
	}
	field("Scanned", formatRelativeTime(s.ScannedAt))

	if len(s.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, w := range s.Warnings {
			sb.WriteString("  " + colorize(colorYellow, "⚠") + " " + w + "\n")
		}
	}

	return sb.String()
}

// RenderReports renders the suggested catalog version for each installed
// package, with the reasons a version is held back.
func RenderReports(reports []*analyzer.Report) string {
	if len(reports) == 0 {
		return "No installed packages found in the catalog.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-32s %-14s %-14s %-9s %s\n",
		"Package", "Installed", "Suggested", "Signer", "Status"))
	sb.WriteString(strings.Repeat("─", 84))
	sb.WriteString("\n")

	for _, r := range reports {
		installed := "-"
		if r.Installed != nil {
			installed = formatVersion(r.Installed.VersionName, r.Installed.VersionCode)
		}
		if r.Suggested == nil {
			sb.WriteString(fmt.Sprintf("%-32s %-14s %-14s %-9s %s\n",
				truncate(r.Package, 32), truncate(installed, 14), "-", "-",
				colorize(colorGray, "no versions")))
			continue
		}

		ev := r.Suggested
		sb.WriteString(fmt.Sprintf("%-32s %-14s %-14s %-9s %s\n",
			truncate(r.Package, 32),
			truncate(installed, 14),
			truncate(formatVersion(ev.VersionName, ev.VersionCode), 14),
			string(ev.SignerStatus),
			formatStatus(r)))
		for _, reason := range ev.Reasons {
			sb.WriteString("    " + reason + "\n")
		}
	}

	return sb.String()
}

// RenderEvaluations renders every catalog version of one package.
func RenderEvaluations(r *analyzer.Report) string {
	if len(r.Evaluations) == 0 {
		return fmt.Sprintf("No catalog versions for %s.\n", r.Package)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-14s %-9s %-11s %s\n", "Version", "Signer", "Compatible", "Tier"))
	sb.WriteString(strings.Repeat("─", 50))
	sb.WriteString("\n")

	for _, ev := range r.Evaluations {
		compatible := "yes"
		if !ev.Compatible {
			compatible = "no"
		}
		sb.WriteString(fmt.Sprintf("%-14s %-9s %-11s %s\n",
			truncate(formatVersion(ev.VersionName, ev.VersionCode), 14),
			string(ev.SignerStatus),
			compatible,
			colorize(getTierColor(ev.Tier), formatTierLabel(ev.Tier))))
	}

	return sb.String()
}

// RenderScanRun renders a one-line summary of a scan run.
func RenderScanRun(run *store.ScanRun) string {
	if run == nil {
		return "Last scan: never\n"
	}

	status := "running"
	if run.Finished() {
		status = fmt.Sprintf("took %s", run.Duration().Round(time.Millisecond))
	}

	failed := fmt.Sprintf("%d failed", run.FailedCount)
	if run.FailedCount > 0 {
		failed = colorize(colorRed, failed)
	}

	return fmt.Sprintf("Last scan: %s (%s) · %d archives · %d built · %d skipped · %s\n",
		formatRelativeTime(run.StartedAt), status,
		run.ArchiveCount, run.BuiltCount, run.SkippedCount, failed)
}

// RenderLocalized renders resolved localized metadata.
func RenderLocalized(pkg string, l locale.Localized) string {
	var sb strings.Builder

	field := func(label, value string) {
		if value != "" {
			sb.WriteString(fmt.Sprintf("%-16s %s\n", label+":", value))
		}
	}

	field("Package", pkg)
	field("Locales", strings.Join(l.Candidates, ", "))
	field("Name", l.Name)
	field("Summary", l.Summary)
	field("Description", l.Description)
	field("What's new", l.WhatsNew)
	field("Video", l.Video)
	field("Icon", l.Icon)
	field("Feature graphic", l.FeatureGraphic)
	field("Promo graphic", l.PromoGraphic)
	field("TV banner", l.TVBanner)

	for _, group := range []struct {
		label string
		items []locale.Item
	}{
		{"Phone", l.PhoneScreenshots},
		{"7\" tablet", l.SevenInchScreenshots},
		{"10\" tablet", l.TenInchScreenshots},
		{"TV", l.TVScreenshots},
		{"Wear", l.WearScreenshots},
	} {
		if len(group.items) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("%s screenshots:\n", group.label))
		for _, it := range group.items {
			sb.WriteString("  " + it.Path() + "\n")
		}
	}

	return sb.String()
}

func formatStatus(r *analyzer.Report) string {
	ev := r.Suggested
	switch {
	case r.UpdateAvailable():
		return colorize(colorGreen, "update available")
	case !ev.Upgrade:
		return "up to date"
	default:
		return colorize(getTierColor(ev.Tier), formatTierLabel(ev.Tier))
	}
}

// formatTierLabel returns the display label for a tier.
func formatTierLabel(tier string) string {
	switch tier {
	case analyzer.TierSafe:
		return "✓ safe"
	case analyzer.TierReview:
		return "~ review"
	default:
		return "⚠ blocked"
	}
}

// getTierColor returns the ANSI color code for a tier.
func getTierColor(tier string) string {
	switch tier {
	case analyzer.TierSafe:
		return colorGreen
	case analyzer.TierReview:
		return colorYellow
	case analyzer.TierBlocked:
		return colorRed
	default:
		return colorGray
	}
}

func formatVersion(name string, code int64) string {
	if name == "" {
		return fmt.Sprintf("(%d)", code)
	}
	return fmt.Sprintf("%s (%d)", name, code)
}

// formatSigner shortens a fingerprint to its first eight characters.
func formatSigner(signer string) string {
	if signer == "" {
		return "unknown"
	}
	return truncate(signer, 8)
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "—"
	}
	return strings.Join(items, ", ")
}

// formatSize converts bytes to a human-readable size.
func formatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	return humanize.Bytes(uint64(bytes))
}

// formatRelativeTime converts a timestamp to relative time (e.g. "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	if time.Since(t) < time.Minute {
		return "just now"
	}
	return humanize.Time(t)
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
