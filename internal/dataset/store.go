package dataset

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Store wraps one worksheet of an xlsx workbook with header-name based cell
// access. Rows are addressed by their 1-based sheet position; row 1 is the
// header, data starts at row 2.
type Store struct {
	file    *excelize.File
	path    string
	sheet   string
	headers map[string]int // lowercased header -> 1-based column
	lastRow int
}

// Open loads a workbook and indexes the header row of its first sheet.
func Open(path string) (*Store, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	sheet := f.GetSheetName(0)
	if sheet == "" {
		f.Close()
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		f.Close()
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	headers := make(map[string]int)
	for i, name := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, exists := headers[key]; !exists {
			headers[key] = i + 1
		}
	}

	return &Store{
		file:    f,
		path:    path,
		sheet:   sheet,
		headers: headers,
		lastRow: len(rows),
	}, nil
}

// Close releases the underlying workbook.
func (s *Store) Close() error { return s.file.Close() }

// Path returns the workbook path the store was opened from.
func (s *Store) Path() string { return s.path }

// FirstDataRow is the sheet row where data begins.
const FirstDataRow = 2

// LastRow returns the last populated sheet row (header included).
func (s *Store) LastRow() int { return s.lastRow }

// RowCount returns the number of data rows.
func (s *Store) RowCount() int {
	if s.lastRow < FirstDataRow {
		return 0
	}
	return s.lastRow - 1
}

// HasColumn reports whether a header exists (case-insensitive).
func (s *Store) HasColumn(name string) bool {
	_, ok := s.headers[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// RequireColumns verifies all named headers exist, returning one error
// listing every missing column so schema problems surface in a single pass.
func (s *Store) RequireColumns(names ...string) error {
	var missing []string
	for _, name := range names {
		if !s.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// EnsureColumns appends any missing headers to the end of the header row.
func (s *Store) EnsureColumns(names ...string) error {
	next := len(s.headers) + 1
	// headers may be sparse if the sheet had blank header cells
	for _, col := range s.headers {
		if col >= next {
			next = col + 1
		}
	}

	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, ok := s.headers[key]; ok {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(next, 1)
		if err != nil {
			return fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := s.file.SetCellValue(s.sheet, cell, name); err != nil {
			return fmt.Errorf("failed to add column %q: %w", name, err)
		}
		s.headers[key] = next
		next++
	}
	return nil
}

// Cell reads a cell by row and header name. Unknown columns are an error;
// empty cells are an empty string.
func (s *Store) Cell(row int, column string) (string, error) {
	col, ok := s.headers[strings.ToLower(strings.TrimSpace(column))]
	if !ok {
		return "", fmt.Errorf("unknown column %q", column)
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", fmt.Errorf("failed to build cell name: %w", err)
	}
	value, err := s.file.GetCellValue(s.sheet, cell)
	if err != nil {
		return "", fmt.Errorf("failed to read cell %s: %w", cell, err)
	}
	return strings.TrimSpace(value), nil
}

// SetCell writes a cell by row and header name.
func (s *Store) SetCell(row int, column string, value any) error {
	col, ok := s.headers[strings.ToLower(strings.TrimSpace(column))]
	if !ok {
		return fmt.Errorf("unknown column %q", column)
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to build cell name: %w", err)
	}
	if err := s.file.SetCellValue(s.sheet, cell, value); err != nil {
		return fmt.Errorf("failed to write cell %s: %w", cell, err)
	}
	if row > s.lastRow {
		s.lastRow = row
	}
	return nil
}

// Save writes the workbook to the output path via a temporary file and
// rename, so a crash mid-write never leaves a half-overwritten workbook.
func (s *Store) Save(outputPath string) error {
	tmp := outputPath + ".tmp.xlsx"
	if err := s.file.SaveAs(tmp); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace workbook: %w", err)
	}
	return nil
}
