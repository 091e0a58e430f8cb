package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	maxTableRows  = 100
	keptEdgeRows  = 50
	minSeparation = 3
)

func (e *Extractor) extractSpreadsheet(ctx context.Context, data []byte, ext string) (string, error) {
	switch ext {
	case ".csv":
		return delimitedTable(data, ',')
	case ".tsv":
		return delimitedTable(data, '\t')
	case ".xlsx":
		return e.workbookTables(ctx, data)
	case ".ods":
		return e.openDocumentTables(ctx, data)
	default:
		return "", fmt.Errorf("unsupported spreadsheet format %q", ext)
	}
}

// delimitedTable skips malformed records rather than failing the file.
func delimitedTable(data []byte, comma rune) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return "", fmt.Errorf("read record: %w", err)
		}
		rows = append(rows, record)
	}

	if len(rows) == 0 {
		return "", errors.New("no rows")
	}

	return markdownTable(rows[0], rows[1:]), nil
}

func (e *Extractor) workbookTables(ctx context.Context, data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		if err = f.Close(); err != nil {
			e.log.ErrorContext(ctx, "Failed to close workbook",
				"error", err)
		}
	}()

	var sheets []sheet
	for _, name := range f.GetSheetList() {
		rows, rowsErr := f.GetRows(name)
		if rowsErr != nil {
			return "", fmt.Errorf("read sheet %q: %w", name, rowsErr)
		}
		sheets = append(sheets, sheet{name: name, rows: rows})
	}

	return sheetTables(sheets), nil
}

type sheet struct {
	name string
	rows [][]string
}

// sheetTables renders every non-empty sheet under its own heading.
func sheetTables(sheets []sheet) string {
	var b strings.Builder
	for _, s := range sheets {
		if len(s.rows) == 0 {
			continue
		}

		b.WriteString("## Sheet: ")
		b.WriteString(s.name)
		b.WriteString("\n\n")
		b.WriteString(markdownTable(s.rows[0], s.rows[1:]))
		b.WriteString("\n\n")
	}

	return strings.TrimSpace(b.String())
}

// markdownTable renders header and rows as a Markdown table. Tables longer
// than maxTableRows keep only their first and last keptEdgeRows rows; the
// trailer still reports the full row count.
func markdownTable(header []string, rows [][]string) string {
	total := len(rows)
	if len(rows) > maxTableRows {
		trimmed := make([][]string, 0, 2*keptEdgeRows)
		trimmed = append(trimmed, rows[:keptEdgeRows]...)
		trimmed = append(trimmed, rows[len(rows)-keptEdgeRows:]...)
		rows = trimmed
	}

	width := len(header)
	for _, row := range rows {
		width = max(width, len(row))
	}

	var b strings.Builder

	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := range width {
			cell := ""
			if i < len(cells) {
				cell = strings.ReplaceAll(cells[i], "\n", " ")
			}
			b.WriteString(" ")
			b.WriteString(cell)
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(header)

	separators := make([]string, width)
	for i := range separators {
		n := minSeparation
		if i < len(header) {
			n = max(n, len(header[i]))
		}
		separators[i] = strings.Repeat("-", n)
	}
	writeRow(separators)

	for _, row := range rows {
		writeRow(row)
	}

	fmt.Fprintf(&b, "\n*Table contains %d rows and %d columns.*\n", total, width)

	return b.String()
}
