// Package table provides a simple API for outputting tabular data to
// stdout. It is used to implement --format=table.
package table

import (
	"fmt"
	"os"
	"os/exec"
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/replit/pyscan/internal/util"
	"golang.org/x/term"
)

// New creates a new table with the given headers. The table has no
// rows; add them with AddRow. The headers should all be unique.
func New(headers ...string) Table {
	seen := map[string]bool{}
	for _, header := range headers {
		if seen[header] {
			util.Panicf("duplicate table header: %s", header)
		} else {
			seen[header] = true
		}
	}
	return Table{headers: headers}
}

// FromStructs creates a table from a slice of structs whose fields
// are all strings or string slices. Each field's "pretty" tag is its
// header; slices are joined with commas. Columns that are empty in
// every row are left out.
func FromStructs(structs interface{}) Table {
	sv := reflect.ValueOf(structs)
	st := sv.Type().Elem()

	cell := func(row int, field int) string {
		v := sv.Index(row).Field(field)
		if v.Kind() == reflect.String {
			return v.String()
		}
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = v.Index(i).String()
		}
		return strings.Join(parts, ", ")
	}

	var fields []int
	var headers []string
	for i := 0; i < st.NumField(); i++ {
		for row := 0; row < sv.Len(); row++ {
			if cell(row, i) != "" {
				fields = append(fields, i)
				headers = append(headers, st.Field(i).Tag.Get("pretty"))
				break
			}
		}
	}

	t := New(headers...)
	for row := 0; row < sv.Len(); row++ {
		cells := make([]string, len(fields))
		for j, i := range fields {
			cells[j] = cell(row, i)
		}
		t.AddRow(cells...)
	}
	return t
}

// AddRow adds a row at the end of a table. The length of the row must
// be the same as the number of headers in the table, or a panic will
// be generated.
func (t *Table) AddRow(row ...string) {
	if len(row) != len(t.headers) {
		util.Panicf(
			"wrong number of columns in table row (%d != %d)",
			len(row), len(t.headers),
		)
	}
	t.rows = append(t.rows, row)
}

// ColorColumn colors the cells of the column with the given header
// when the table is printed. pick returns the color for a cell's
// value, or nil to leave it plain. Colors are dropped when stdout is
// not a terminal.
func (t *Table) ColorColumn(header string, pick func(cell string) *color.Color) {
	index := t.headerIndex(header)
	if t.colors == nil {
		t.colors = map[int]func(string) *color.Color{}
	}
	t.colors[index] = pick
}

func (t *Table) headerIndex(header string) int {
	for i := range t.headers {
		if t.headers[i] == header {
			return i
		}
	}
	util.Panicf("no such header: %s", header)
	return -1
}

// SortBy stably sorts the rows by the column with the given header,
// which must exist.
func (t *Table) SortBy(header string) {
	index := t.headerIndex(header)
	sort.SliceStable(t.rows, func(i, j int) bool {
		return t.rows[i][index] < t.rows[j][index]
	})
}

// printOrPage prints text, or pipes it through 'less -S' when stdout
// is a terminal narrower than width and less is installed.
func printOrPage(text string, width int) error {
	termWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < termWidth {
		_, err := fmt.Print(text)
		return err
	}

	less, err := exec.LookPath("less")
	if err != nil {
		_, err := fmt.Print(text)
		return err
	}

	util.ProgressMsg("less -S")

	cmd := exec.Command(less, "-S")
	// Docker images often lack LANG, and less would then show
	// non-ASCII characters as escape sequences.
	cmd.Env = append(os.Environ(), "LESSCHARSET=utf-8")
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running pager: %w", err)
	}
	return nil
}

// Print writes the table to stdout, aligning columns by inserting
// whitespace. If the table is too wide for the current terminal, and
// the 'less' utility is installed, Print invokes it with the -S
// option to truncate long lines and allow horizontal scrolling.
func (t *Table) Print() error {
	text, width := t.Render()
	return printOrPage(text, width)
}

// Render lays out the table, returning the text and the width of its
// widest line. Columns are separated by three spaces; cells are padded
// by rune count so that color codes do not affect alignment.
func (t *Table) Render() (string, int) {
	widths := make([]int, len(t.headers))
	for j, header := range t.headers {
		widths[j] = utf8.RuneCountInString(header)
	}
	for _, row := range t.rows {
		for j, cell := range row {
			widths[j] = max(widths[j], utf8.RuneCountInString(cell))
		}
	}

	var b strings.Builder
	line := func(cells []string, style func(j int, cell string) string) {
		for j, cell := range cells {
			if j > 0 {
				b.WriteString("   ")
			}
			padding := strings.Repeat(" ", widths[j]-utf8.RuneCountInString(cell))
			b.WriteString(style(j, cell) + padding)
		}
		b.WriteByte('\n')
	}
	plain := func(_ int, cell string) string { return cell }

	line(t.headers, plain)
	rule := make([]string, len(widths))
	for j, w := range widths {
		rule[j] = strings.Repeat("-", w)
	}
	line(rule, plain)
	for _, row := range t.rows {
		line(row, t.colorCell)
	}

	total := 3 * max(len(widths)-1, 0)
	for _, w := range widths {
		total += w
	}
	return b.String(), total
}

func (t *Table) colorCell(j int, cell string) string {
	if pick, ok := t.colors[j]; ok {
		if c := pick(cell); c != nil {
			return c.Sprint(cell)
		}
	}
	return cell
}
