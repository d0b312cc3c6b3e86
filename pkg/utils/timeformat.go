package utils

import (
	"fmt"
	"time"
)

// HumanizeTime renders an instant the way the chat list shows it: "just now"
// within a minute, then minutes/hours/days, then month/day once a week has
// passed. A zero instant renders as an empty string.
func HumanizeTime(t time.Time, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return fmt.Sprintf("%d/%d", int(t.Month()), t.Day())
	}
}
