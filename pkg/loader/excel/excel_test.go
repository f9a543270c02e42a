package excel

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/threatmap/pkg/loader"
	fsio "github.com/OFFIS-RIT/threatmap/pkg/loader/io"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGetTables(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"PDF Path", "Text"},
		{"cables/09STATE1.pdf", "First part."},
		{"cables/09STATE1.pdf"},
	})

	l := NewExcelGraphLoader(fsio.NewIOGraphFileLoader())
	file := loader.NewGraphSheetFile(loader.NewGraphFileParams{ID: "book.xlsx", FilePath: path, Loader: l})

	tables, err := l.GetTables(context.Background(), file)
	if err != nil {
		t.Fatalf("GetTables() error = %v", err)
	}
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
	table := tables[0]
	if table.Column("Text") != 1 || table.Column("PDF Path") != 0 || table.Column("Missing") != -1 {
		t.Fatalf("unexpected header %v", table.Header)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}
	if len(table.Rows[1]) != 2 || table.Rows[1][1] != "" {
		t.Fatalf("expected short row padded, got %v", table.Rows[1])
	}

	text, err := file.GetText(context.Background())
	if err != nil {
		t.Fatalf("GetText() error = %v", err)
	}
	if !strings.Contains(string(text), "| cables/09STATE1.pdf | First part. |") {
		t.Fatalf("unexpected text %q", text)
	}
}
