// Package sheet reads the article spreadsheet and turns its rows into
// article requests.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/FranksOps/quill/internal/article"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	ErrEmptySheet        = errors.New("spreadsheet has no header row")
	ErrMissingColumn     = errors.New("required column missing")
)

// Table is a header row plus data rows, all as strings.
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// NewTable builds a table, normalising header names and padding short rows.
func NewTable(header []string, rows [][]string) (*Table, error) {
	if len(header) == 0 {
		return nil, ErrEmptySheet
	}
	t := &Table{index: make(map[string]int, len(header))}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		t.Header = append(t.Header, h)
		if _, dup := t.index[h]; !dup && h != "" {
			t.index[h] = i
		}
	}
	for _, r := range rows {
		padded := make([]string, len(t.Header))
		copy(padded, r)
		t.Rows = append(t.Rows, padded)
	}
	return t, nil
}

// Read parses r according to the extension of name (.xlsx or .csv).
func Read(r io.Reader, name string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	case ".csv":
		return ReadCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// ReadXLSX reads the first worksheet of an Excel workbook.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	return NewTable(rows[0], rows[1:])
}

// ReadCSV reads a comma-separated file whose first record is the header.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptySheet
	}
	return NewTable(records[0], records[1:])
}

// Validate reports every required column that the header lacks.
func (t *Table) Validate(cols Columns) error {
	var errs []error
	for _, name := range cols.withDefaults().Required() {
		if _, ok := t.index[name]; !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrMissingColumn, name))
		}
	}
	return errors.Join(errs...)
}

// Row is one data row converted into a request. Err is set when the row
// itself is invalid; such rows fail alone.
type Row struct {
	Index   int
	Request article.Request
	Err     error
}

// Requests validates the header and converts every non-empty row. Column
// problems abort the whole table; row problems are reported per row.
func (t *Table) Requests(cols Columns) ([]Row, error) {
	cols = cols.withDefaults()
	if err := t.Validate(cols); err != nil {
		return nil, err
	}

	var out []Row
	for i, r := range t.Rows {
		if isBlank(r) {
			continue
		}
		req, err := t.request(i, r, cols)
		out = append(out, Row{Index: i, Request: req, Err: err})
	}
	return out, nil
}

func (t *Table) cell(r []string, name string) string {
	i, ok := t.index[name]
	if !ok || i >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[i])
}

func (t *Table) request(i int, r []string, cols Columns) (article.Request, error) {
	label := t.cell(r, cols.Type)
	req := article.Request{
		RowIndex:          i,
		Topic:             t.cell(r, cols.Topic),
		Type:              article.ParseType(label),
		TypeLabel:         label,
		PrimaryKeywords:   article.SplitKeywords(t.cell(r, cols.Primary)),
		SecondaryKeywords: article.SplitKeywords(t.cell(r, cols.Secondary)),
		Links:             []string{t.cell(r, cols.Link1), t.cell(r, cols.Link2)},
		AnchorTexts:       []string{t.cell(r, cols.Anchor1), t.cell(r, cols.Anchor2)},
		MainTitle:         t.cell(r, cols.Title),
		H2Hints:           t.cell(r, cols.H2),
		H3Hints:           t.cell(r, cols.H3),
	}

	n, err := ParseWordCount(t.cell(r, cols.WordCount))
	if err != nil {
		return req, fmt.Errorf("row %d: %w", i+1, err)
	}
	req.TargetWordCount = n

	if err := req.Validate(); err != nil {
		return req, fmt.Errorf("row %d: %w", i+1, err)
	}
	return req, nil
}

var digitFolder = strings.NewReplacer(
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	",", "", "٬", "", "٫", ".",
)

// ParseWordCount reads a word-count cell. An empty cell yields
// article.DefaultWordCount; Persian and Arabic-Indic digits are accepted and
// fractional values are truncated.
func ParseWordCount(cell string) (int, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return article.DefaultWordCount, nil
	}
	f, err := strconv.ParseFloat(digitFolder.Replace(cell), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", article.ErrInvalidWordCount, cell)
	}
	n := int(f)
	if n <= 0 {
		return 0, fmt.Errorf("%w: %q", article.ErrInvalidWordCount, cell)
	}
	return n, nil
}

func isBlank(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
