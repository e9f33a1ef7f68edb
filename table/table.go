// Package table renders fixed-width text tables for the command-line tools.
package table

import (
	"fmt"
	"io"
	"strings"
)

// FormatFunc decorates a padded cell, typically with ANSI colors.
type FormatFunc func(value string) string

type Column struct {
	Header   string
	Blank    string // shown for empty cells, "-" when unset
	Format   FormatFunc
	MinWidth int
	Right    bool // right-align, for numbers
}

type Table struct {
	columns []Column
	rows    [][]string
	widths  []int
}

func New(cols ...Column) *Table {
	t := &Table{
		columns: cols,
		widths:  make([]int, len(cols)),
	}
	for i := range t.columns {
		if t.columns[i].Blank == "" {
			t.columns[i].Blank = "-"
		}
		t.widths[i] = max(t.columns[i].MinWidth, visibleLen(t.columns[i].Header))
	}
	return t
}

// AddRow appends a row. Missing cells are blank, extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.columns))
	for i := range row {
		if i < len(cells) && cells[i] != "" {
			row[i] = cells[i]
		} else {
			row[i] = t.columns[i].Blank
		}
		t.widths[i] = max(t.widths[i], visibleLen(row[i]))
	}
	t.rows = append(t.rows, row)
}

// AddRowf appends a row of fmt.Sprint'd values.
func (t *Table) AddRowf(values ...any) {
	cells := make([]string, len(values))
	for i, v := range values {
		cells[i] = fmt.Sprint(v)
	}
	t.AddRow(cells...)
}

// AddSeparator appends a rule line. nil marks it in rows.
func (t *Table) AddSeparator() {
	t.rows = append(t.rows, nil)
}

func (t *Table) Len() int {
	n := 0
	for _, row := range t.rows {
		if row != nil {
			n++
		}
	}
	return n
}

func (t *Table) Render(w io.Writer) error {
	headers := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = t.pad(i, col.Header)
	}
	if err := writeLine(w, headers); err != nil {
		return err
	}
	if err := writeLine(w, t.rule()); err != nil {
		return err
	}

	for _, row := range t.rows {
		if row == nil {
			if err := writeLine(w, t.rule()); err != nil {
				return err
			}
			continue
		}
		cells := make([]string, len(row))
		for i, val := range row {
			cells[i] = t.pad(i, val)
			if f := t.columns[i].Format; f != nil {
				cells[i] = f(cells[i])
			}
		}
		if err := writeLine(w, cells); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) String() string {
	var sb strings.Builder
	_ = t.Render(&sb)
	return sb.String()
}

func (t *Table) rule() []string {
	out := make([]string, len(t.widths))
	for i, w := range t.widths {
		out[i] = strings.Repeat("-", w)
	}
	return out
}

func (t *Table) pad(col int, s string) string {
	gap := t.widths[col] - visibleLen(s)
	if gap <= 0 {
		return s
	}
	if t.columns[col].Right {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

func writeLine(w io.Writer, cells []string) error {
	_, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " "))
	return err
}

// visibleLen counts runes outside ANSI SGR sequences.
func visibleLen(s string) int {
	n := 0
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\033':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			n++
		}
	}
	return n
}
