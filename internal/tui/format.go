package tui

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/docctl/internal/poller"
)

// FormatElapsed formats a duration as "Xm Ys" or "Ys".
func FormatElapsed(d time.Duration) string {
	secs := int64(d.Round(time.Second) / time.Second)
	if secs >= 60 {
		return fmt.Sprintf("%dm %ds", secs/60, secs%60)
	}
	return fmt.Sprintf("%ds", secs)
}

// FormatSize formats a byte count, or "-" when unknown.
func FormatSize(size *int64) string {
	if size == nil {
		return "-"
	}
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)
	b := *size
	switch {
	case b >= GB:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func jobBadge(s poller.JobState) string {
	switch s {
	case poller.StateSuccess:
		return okStyle.Render("✓ " + string(s))
	case poller.StateFailure, poller.StateRevoked, poller.StateError:
		return errorStyle.Render("✗ " + string(s))
	case "":
		return dimStyle.Render("… WAITING")
	}
	return busyStyle.Render("⟳ " + string(s))
}

func fileBadge(s poller.FileState) string {
	switch s {
	case poller.FileCompleted:
		return okStyle.Render("✓ completed")
	case poller.FileFailed:
		return errorStyle.Render("✗ failed")
	}
	return busyStyle.Render("⟳ processing")
}
