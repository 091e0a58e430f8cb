package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	odsContentPath = "content.xml"
	odsTableNS     = "urn:oasis:names:tc:opendocument:xmlns:table:1.0"
	odsTextNS      = "urn:oasis:names:tc:opendocument:xmlns:text:1.0"
	// maxRepeat caps repeated rows and cells; spreadsheet writers pad sheets
	// with repeats up to the grid size.
	maxRepeat      = 1024
)

func (e *Extractor) openDocumentTables(ctx context.Context, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}

	var content *zip.File
	for _, f := range zr.File {
		if f.Name == odsContentPath {
			content = f
			break
		}
	}
	if content == nil {
		return "", fmt.Errorf("%s is missing", odsContentPath)
	}

	rc, err := content.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", odsContentPath, err)
	}
	defer func() {
		if err = rc.Close(); err != nil {
			e.log.ErrorContext(ctx, "Failed to close archive entry",
				"error", err,
				"entry", odsContentPath)
		}
	}()

	sheets, err := odsSheets(rc)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", odsContentPath, err)
	}

	return sheetTables(sheets), nil
}

// odsSheets reads the cell text of every table in an OpenDocument content.xml.
// Trailing empty cells and rows are dropped; leading empty rows too.
func odsSheets(r io.Reader) ([]sheet, error) {
	dec := xml.NewDecoder(r)

	var (
		sheets       []sheet
		row          []string
		rowRepeat    int
		pendingCells int
		pendingRows  int
		cell         strings.Builder
		cellRepeat   int
		paragraphs   int
		inCell       bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Space == odsTableNS && t.Name.Local == "table":
				sheets = append(sheets, sheet{name: attrValue(t, "name")})
				pendingRows = 0
			case t.Name.Space == odsTableNS && t.Name.Local == "table-row":
				row = nil
				pendingCells = 0
				rowRepeat = repeatAttr(t, "number-rows-repeated")
			case t.Name.Space == odsTableNS && isCellElement(t.Name.Local):
				inCell = true
				cell.Reset()
				paragraphs = 0
				cellRepeat = repeatAttr(t, "number-columns-repeated")
			case t.Name.Space == odsTextNS && inCell:
				switch t.Name.Local {
				case "p":
					if paragraphs > 0 {
						cell.WriteString(" ")
					}
					paragraphs++
				case "s":
					cell.WriteString(strings.Repeat(" ", repeatAttr(t, "c")))
				case "tab", "line-break":
					cell.WriteString(" ")
				}
			}
		case xml.CharData:
			if inCell {
				cell.Write(t)
			}
		case xml.EndElement:
			switch {
			case t.Name.Space == odsTableNS && isCellElement(t.Name.Local):
				inCell = false

				text := strings.TrimSpace(cell.String())
				if text == "" {
					pendingCells += cellRepeat
					continue
				}
				for range min(pendingCells, maxRepeat) {
					row = append(row, "")
				}
				pendingCells = 0
				for range min(cellRepeat, maxRepeat) {
					row = append(row, text)
				}
			case t.Name.Space == odsTableNS && t.Name.Local == "table-row":
				if len(sheets) == 0 {
					continue
				}
				s := &sheets[len(sheets)-1]

				if len(row) == 0 {
					if len(s.rows) > 0 {
						pendingRows += rowRepeat
					}
					continue
				}
				for range min(pendingRows, maxRepeat) {
					s.rows = append(s.rows, nil)
				}
				pendingRows = 0
				for range min(rowRepeat, maxRepeat) {
					s.rows = append(s.rows, row)
				}
			}
		}
	}

	return sheets, nil
}

func isCellElement(local string) bool {
	return local == "table-cell" || local == "covered-table-cell"
}

func attrValue(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}

	return ""
}

func repeatAttr(el xml.StartElement, local string) int {
	n, err := strconv.Atoi(attrValue(el, local))
	if err != nil || n < 1 {
		return 1
	}

	return n
}
