package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Unlock Timeline\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.Deployment != "" {
		sb.WriteString(fmt.Sprintf("Deployment: %s\n\n", r.Deployment))
	}
	if r.ScheduleID != nil {
		sb.WriteString(fmt.Sprintf("Schedule: %d\n\n", *r.ScheduleID))
	}

	// Schedule
	sb.WriteString("## Schedule\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Release Count | %d |\n", r.Schedule.ReleaseCount))
	sb.WriteString(fmt.Sprintf("| First Release Delay (s) | %d |\n", r.Schedule.FirstReleaseDelay))
	sb.WriteString(fmt.Sprintf("| Initial Release (bips) | %d |\n", r.Schedule.InitialReleaseBips))
	sb.WriteString(fmt.Sprintf("| Release Period (s) | %d |\n", r.Schedule.ReleasePeriod))
	sb.WriteString("\n")

	// Grant
	sb.WriteString("## Grant\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Amount | %d |\n", r.Amount))
	sb.WriteString(fmt.Sprintf("| Commencement | %s |\n", formatUnix(r.Commencement)))
	sb.WriteString(fmt.Sprintf("| Fully Vested | %s |\n", formatUnix(r.FullyVestedAt)))
	sb.WriteString("\n")

	// Releases
	sb.WriteString("## Releases\n\n")
	if len(r.Points) > 0 {
		sb.WriteString("| # | Time | Released | Unlocked | Locked |\n")
		sb.WriteString("|---|------|----------|----------|--------|\n")
		for _, p := range r.Points {
			sb.WriteString(fmt.Sprintf("| %d | %s | %d | %d | %d |\n",
				p.Index, formatUnix(p.Timestamp), p.Released, p.Unlocked, p.Locked))
		}
	} else {
		sb.WriteString("No releases within the representable time range.\n")
	}
	sb.WriteString("\n")

	if r.Truncated {
		sb.WriteString("**Timeline truncated:** later releases fall beyond the representable time range.\n\n")
	}

	return sb.String()
}

// formatUnix renders unix seconds as RFC 3339, falling back to the raw value
// outside the range time.Time formats sensibly.
func formatUnix(sec uint64) string {
	const maxFormattable = 253402300799 // 9999-12-31T23:59:59Z
	if sec > maxFormattable {
		return fmt.Sprintf("%d", sec)
	}
	return time.Unix(int64(sec), 0).UTC().Format(time.RFC3339)
}
