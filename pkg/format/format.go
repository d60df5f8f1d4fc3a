// Package format renders tool results as kubectl-style text.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
)

const (
	// Unknown is rendered for values the upstream did not report.
	Unknown = "Unknown"
	// None is rendered for empty collections (roles, external IPs, events).
	None = "<none>"
)

// Column declares one table column. Values are padded to Width; a column
// grows past Width for longer values unless Truncate is set, in which case
// they are cut to Width.
type Column struct {
	Name     string
	Width    int
	Truncate bool
}

// Field is one label/value line of a detail block.
type Field struct {
	Label string
	Value string
}

// Table renders a header line followed by one line per row, in input order.
// Empty cells are rendered as Unknown.
func Table(columns []Column, rows [][]string) string {
	var sb strings.Builder

	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = c.Name
	}

	table := tablewriter.NewWriter(&sb)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding(" ")
	table.SetNoWhiteSpace(true)
	for i, c := range columns {
		if c.Width > 0 {
			table.SetColMinWidth(i, c.Width)
		}
	}

	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, c := range columns {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			cells[i] = Cell(v)
			if c.Truncate {
				cells[i] = Truncate(cells[i], c.Width)
			}
		}
		table.Append(cells)
	}
	table.Render()

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.Join(lines, "\n")
}

// Detail renders a single record as "Label: value" lines.
func Detail(fields []Field) string {
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, fmt.Sprintf("%s: %s", f.Label, f.Value))
	}
	return strings.Join(lines, "\n")
}

// Cell normalises a value for a single table cell: newlines are flattened and
// an empty value becomes Unknown.
func Cell(v string) string {
	v = strings.Join(strings.Fields(v), " ")
	if v == "" {
		return Unknown
	}
	return v
}

// Truncate cuts s to at most width display columns. A non-positive width
// leaves s unchanged.
func Truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "")
}

// Age renders the time elapsed since ts in its coarsest non-zero unit
// (d, h, m, s). A nil or zero timestamp renders as Unknown.
func Age(ts *time.Time, now time.Time) string {
	if ts == nil || ts.IsZero() {
		return Unknown
	}
	d := now.Sub(*ts)
	if d < 0 {
		d = 0
	}
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd", int64(d/(24*time.Hour)))
	case d >= time.Hour:
		return fmt.Sprintf("%dh", int64(d/time.Hour))
	case d >= time.Minute:
		return fmt.Sprintf("%dm", int64(d/time.Minute))
	default:
		return fmt.Sprintf("%ds", int64(d/time.Second))
	}
}

// Timestamp renders ts in RFC 3339, or Unknown when unset.
func Timestamp(ts *time.Time) string {
	if ts == nil || ts.IsZero() {
		return Unknown
	}
	return ts.UTC().Format(time.RFC3339)
}

// OrUnknown returns v, or Unknown when v is empty.
func OrUnknown(v string) string {
	if v == "" {
		return Unknown
	}
	return v
}

// OrNone returns v, or None when v is empty.
func OrNone(v string) string {
	if v == "" {
		return None
	}
	return v
}
