package sleep

import (
	"fmt"
	"strings"
)

// Format renders records one per line in the shape the prompt expects:
//
//	• 2025-06-01: 23:30 → 07:10 (note: snoring)
func Format(records []Record) string {
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		line := fmt.Sprintf("• %s: %s → %s", rec.Date, rec.SleepStart, rec.SleepEnd)
		if rec.Note != "" {
			line += fmt.Sprintf(" (note: %s)", rec.Note)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
