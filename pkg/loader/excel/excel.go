package excel

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/threatmap/pkg/loader"

	"github.com/xuri/excelize/v2"
)

// ExcelGraphLoader reads workbooks through a base loader and parses them
// with excelize.
type ExcelGraphLoader struct {
	loader loader.GraphFileLoader
	cache  *loader.Cache
}

// NewExcelGraphLoader creates a new ExcelGraphLoader with the given base loader.
func NewExcelGraphLoader(base loader.GraphFileLoader) *ExcelGraphLoader {
	return &ExcelGraphLoader{
		loader: base,
		cache:  loader.NewCache(),
	}
}

// Table is one sheet split into its header row and data rows. Data rows
// are padded to the header width.
type Table struct {
	Sheet  string
	Header []string
	Rows   [][]string
}

// Column returns the index of the header cell named name, or -1.
func (t Table) Column(name string) int {
	for i, h := range t.Header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

func (l *ExcelGraphLoader) open(ctx context.Context, file loader.GraphFile) (*excelize.File, error) {
	content, err := l.loader.GetFileText(ctx, file)
	if err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", file.FilePath, err)
	}
	return f, nil
}

// GetTables returns every non-empty sheet of the workbook in sheet order.
func (l *ExcelGraphLoader) GetTables(ctx context.Context, file loader.GraphFile) ([]Table, error) {
	f, err := l.open(ctx, file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tables []Table
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}

		header := rows[0]
		data := make([][]string, 0, len(rows)-1)
		for _, row := range rows[1:] {
			if len(row) < len(header) {
				padded := make([]string, len(header))
				copy(padded, row)
				row = padded
			}
			data = append(data, row)
		}
		tables = append(tables, Table{Sheet: sheet, Header: header, Rows: data})
	}
	return tables, nil
}

// GetFileText renders every sheet as pipe separated rows.
// For multi-sheet workbooks each sheet gets a name header.
func (l *ExcelGraphLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	return l.cache.Load(file, func() ([]byte, error) {
		tables, err := l.GetTables(ctx, file)
		if err != nil {
			return nil, err
		}

		var b strings.Builder
		for i, table := range tables {
			if i > 0 {
				b.WriteString("\n")
			}
			if len(tables) > 1 {
				b.WriteString("--- " + table.Sheet + " ---\n")
			}
			b.WriteString("| " + strings.Join(table.Header, " | ") + " |\n")
			for _, row := range table.Rows {
				b.WriteString("| " + strings.Join(row, " | ") + " |\n")
			}
		}
		return []byte(b.String()), nil
	})
}
