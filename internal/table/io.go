package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/darwinprep/internal/utils"
	"github.com/xuri/excelize/v2"
)

// ReadOptions controls how input files are decoded.
type ReadOptions struct {
	// Delimiter for CSV. If 0, '\t' for .tsv files and ',' otherwise.
	Delimiter rune
	// SheetName selects an XLSX sheet by name.
	SheetName string
	// SheetIndex is the 1-based XLSX sheet used when SheetName is empty.
	SheetIndex int
}

// Read loads a CSV, TSV or XLSX file chosen by extension.
func Read(path string, opt ReadOptions) (*Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readXLSX(path, opt)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	return ReadCSV(f, delim)
}

// ReadCSV decodes delimited text with a header row.
func ReadCSV(r io.Reader, delim rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("read header: empty input")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := New(trimHeader(header)...)
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}
		if len(rec) > len(t.Columns) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("read row %d (line %d): %d fields, header has %d",
				len(t.Rows)+1, line, len(rec), len(t.Columns))
		}
		t.AddRow(trimCells(rec)...)
	}
	return t, nil
}

func readXLSX(path string, opt ReadOptions) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook '%s' has no sheets", filepath.Base(path))
	}
	sheet := ""
	if opt.SheetName != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, opt.SheetName) {
				sheet = s
				break
			}
		}
		if sheet == "" {
			return nil, fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
				opt.SheetName, filepath.Base(path), strings.Join(sheets, ", "))
		}
	} else {
		idx := opt.SheetIndex
		if idx <= 0 {
			idx = 1
		}
		if idx > len(sheets) {
			return nil, fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", idx, len(sheets))
		}
		sheet = sheets[idx-1]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheet)
	}
	t := New(trimHeader(rows[0])...)
	for i, rec := range rows[1:] {
		if len(rec) > len(t.Columns) {
			return nil, fmt.Errorf("sheet %s row %d: %d cells, header has %d", sheet, i+2, len(rec), len(t.Columns))
		}
		// excelize trims trailing empty cells; AddRow pads them back.
		t.AddRow(trimCells(rec)...)
	}
	return t, nil
}

// Write stores the table as CSV (atomically) or, for .xlsx paths, as a workbook.
func Write(path string, t *Table) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("ensure output dir: %w", err)
		}
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return writeXLSX(path, t)
	}
	var buf bytes.Buffer
	delim := sniffDelimiter(path)
	if err := WriteCSV(&buf, t, delim); err != nil {
		return err
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// WriteCSV encodes the table with a header row.
func WriteCSV(w io.Writer, t *Table, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

func writeXLSX(path string, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for r, row := range t.Rows {
		vals := make([]interface{}, len(row))
		for i, cell := range row {
			// Keep numbers numeric in the workbook.
			if !IsMissing(cell) {
				if v, ok := parseNumeric(cell); ok {
					vals[i] = v
					continue
				}
			}
			vals[i] = cell
		}
		addr, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, addr, &vals); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save xlsx: %w", err)
	}
	return nil
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

func trimHeader(h []string) []string {
	out := make([]string, len(h))
	for i, c := range h {
		// Strip a UTF-8 BOM left by spreadsheet exports.
		out[i] = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
	}
	return out
}

func trimCells(rec []string) []string {
	out := make([]string, len(rec))
	for i, c := range rec {
		out[i] = strings.TrimSpace(c)
	}
	return out
}
