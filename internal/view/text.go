package view

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// RowText formats the rows of a frame into aligned columns, the way the
// departures command prints them.
func RowText(rows []Row) []string {
	wDelay, wLine := 0, 0
	for _, r := range rows {
		wDelay = max(wDelay, utf8.RuneCountInString(r.Delay))
		wLine = max(wLine, utf8.RuneCountInString(r.Line))
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		delay := r.Delay
		if r.Cancelled {
			delay = strings.Repeat("X", max(wDelay, 1))
		}
		line := r.Time
		if wDelay > 0 {
			line += pad(delay, wDelay, true)
		}
		if r.Line != "" || wLine > 0 {
			line += " " + pad(r.Line, wLine, false)
		}
		line += " " + r.Direction
		lines = append(lines, strings.TrimRight(line, " "))
	}
	return lines
}

// TextLines renders a frame for character displays and logs. Lines are cut to
// width; a width of 0 disables cutting.
func TextLines(f *Frame, width int) []string {
	lines := []string{f.Title}
	lines = append(lines, RowText(f.Rows)...)
	if f.Pages > 1 {
		lines = append(lines, fmt.Sprintf("%d/%d", f.Page, f.Pages))
	}
	lines = append(lines, f.Footer)

	if width > 0 {
		for i, l := range lines {
			lines[i] = cut(l, width)
		}
	}
	return lines
}

func pad(s string, width int, right bool) string {
	n := width - utf8.RuneCountInString(s)
	if n <= 0 {
		return s
	}
	if right {
		return strings.Repeat(" ", n) + s
	}
	return s + strings.Repeat(" ", n)
}

func cut(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	return string([]rune(s)[:width])
}
