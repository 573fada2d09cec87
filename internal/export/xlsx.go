// Package export writes rendered record pages to spreadsheet files.
package export

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/traitview/internal/highlight"
	"github.com/hyperjump/traitview/internal/render"
	"github.com/hyperjump/traitview/pkg/utils"
)

const (
	defaultSheet     = "records"
	defaultHighlight = "C00000"
	maxColumnWidth   = 60
	minColumnWidth   = 6
)

// Options control the workbook layout.
type Options struct {
	// Sheet names the single worksheet. Defaults to "records".
	Sheet string
	// HighlightColor is the RGB hex color of highlighted runs.
	HighlightColor string
}

func (o Options) withDefaults() Options {
	if o.Sheet == "" {
		o.Sheet = defaultSheet
	}
	if o.HighlightColor == "" {
		o.HighlightColor = defaultHighlight
	}
	return o
}

// Build returns a workbook with a bold header row followed by rows. Cells are
// split at m's markers and highlighted runs become bold colored rich text.
func Build(headers []string, rows [][]string, m highlight.Markers, opts Options) (*excelize.File, error) {
	opts = opts.withDefaults()
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", opts.Sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	sheet := opts.Sheet

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}
	bodyStyle, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("body style: %w", err)
	}

	widths := make([]int, len(headers))
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetCellStr(sheet, cell, h); err != nil {
			f.Close()
			return nil, fmt.Errorf("header %s: %w", cell, err)
		}
		widths[col] = utils.Width(h)
	}
	if len(headers) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}

	for i, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				f.Close()
				return nil, err
			}
			if err := writeCell(f, sheet, cell, value, m, opts.HighlightColor); err != nil {
				f.Close()
				return nil, fmt.Errorf("cell %s: %w", cell, err)
			}
			if col < len(widths) {
				for _, line := range strings.Split(render.Plain(value, m), "\n") {
					if w := utils.Width(line); w > widths[col] {
						widths[col] = w
					}
				}
			}
		}
	}
	if len(rows) > 0 && len(headers) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(headers), len(rows)+1)
		if err := f.SetCellStyle(sheet, "A2", last, bodyStyle); err != nil {
			f.Close()
			return nil, err
		}
	}

	for col, w := range widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetColWidth(sheet, name, name, float64(clampWidth(w))); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func writeCell(f *excelize.File, sheet, cell, value string, m highlight.Markers, rgb string) error {
	plain := render.Plain(value, m)
	if utf8.RuneCountInString(plain) > excelize.TotalCellChars {
		return f.SetCellStr(sheet, cell, string([]rune(plain)[:excelize.TotalCellChars]))
	}
	segs := render.Segments(value, m)
	lit := false
	for _, seg := range segs {
		lit = lit || seg.Highlighted
	}
	if !lit {
		return f.SetCellStr(sheet, cell, plain)
	}
	runs := make([]excelize.RichTextRun, len(segs))
	for i, seg := range segs {
		runs[i].Text = seg.Text
		if seg.Highlighted {
			runs[i].Font = &excelize.Font{Bold: true, Color: rgb}
		}
	}
	return f.SetCellRichText(sheet, cell, runs)
}

func clampWidth(w int) int {
	switch {
	case w < minColumnWidth:
		return minColumnWidth
	case w > maxColumnWidth:
		return maxColumnWidth
	}
	return w + 2
}

// WriteXLSX writes the workbook to w.
func WriteXLSX(w io.Writer, headers []string, rows [][]string, m highlight.Markers, opts Options) error {
	f, err := Build(headers, rows, m, opts)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveXLSX writes the workbook to path.
func SaveXLSX(path string, headers []string, rows [][]string, m highlight.Markers, opts Options) error {
	f, err := Build(headers, rows, m, opts)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
