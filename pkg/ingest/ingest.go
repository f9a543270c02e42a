package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/OFFIS-RIT/threatmap/pkg/loader"
	"github.com/OFFIS-RIT/threatmap/pkg/loader/excel"
	"github.com/OFFIS-RIT/threatmap/pkg/loader/pdf"
	"github.com/OFFIS-RIT/threatmap/pkg/logger"
	"github.com/OFFIS-RIT/threatmap/pkg/store"

	"golang.org/x/sync/errgroup"
)

const (
	// LabelColumn groups cable rows into one document per label.
	LabelColumn = "PDF Path"
	// TextColumn holds the document text in both workbooks.
	TextColumn = "Text"

	textSuffix = "_text.txt"
)

// ErrMissingColumn is returned when a workbook lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// Ingester turns raw inputs into the plain text documents the pipeline reads.
type Ingester struct {
	base     loader.GraphFileLoader
	pdf      *pdf.PDFGraphLoader
	excel    *excel.ExcelGraphLoader
	parallel int
}

type NewIngesterParams struct {
	// Loader reads the raw input files.
	Loader loader.GraphFileLoader
	// Parallel bounds how many PDFs are parsed at once. Defaults to 4.
	Parallel int
}

func NewIngester(params NewIngesterParams) *Ingester {
	parallel := params.Parallel
	if parallel <= 0 {
		parallel = 4
	}
	return &Ingester{
		base:     params.Loader,
		pdf:      pdf.NewPDFGraphLoader(params.Loader),
		excel:    excel.NewExcelGraphLoader(params.Loader),
		parallel: parallel,
	}
}

// Paths names the inputs and output directories of an ingestion run. An
// empty input path skips that input.
type Paths struct {
	PDFDir        string
	PDFOut        string
	CableWorkbook string
	CableOut      string
	NewsWorkbook  string
	NewsOut       string
}

// Stats counts the text files written per input.
type Stats struct {
	PDFs   int
	Cables int
	News   int
}

// Run ingests every configured input.
func (i *Ingester) Run(ctx context.Context, paths Paths) (Stats, error) {
	var stats Stats
	var err error

	if paths.PDFDir != "" {
		if stats.PDFs, err = i.IngestPDFs(ctx, paths.PDFDir, paths.PDFOut); err != nil {
			return stats, err
		}
	}
	if paths.CableWorkbook != "" {
		if stats.Cables, err = i.IngestCables(ctx, paths.CableWorkbook, paths.CableOut); err != nil {
			return stats, err
		}
	}
	if paths.NewsWorkbook != "" {
		if stats.News, err = i.IngestNews(ctx, paths.NewsWorkbook, paths.NewsOut); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// IngestPDFs extracts the text of every .pdf file in dir into
// outDir/<name>_text.txt. Pages are separated by blank lines.
func (i *Ingester) IngestPDFs(ctx context.Context, dir, outDir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			names = append(names, e.Name())
		}
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(i.parallel)
	for _, name := range names {
		g.Go(func() error {
			logger.Debug("[Ingest] Processing PDF", "file", name)
			file := loader.NewGraphPDFFile(loader.NewGraphFileParams{
				ID:       name,
				FilePath: filepath.Join(dir, name),
				Loader:   i.pdf,
			})
			text, err := file.GetText(gCtx)
			if err != nil {
				return fmt.Errorf("failed to extract %s: %w", name, err)
			}
			out := filepath.Join(outDir, strings.TrimSuffix(name, filepath.Ext(name))+textSuffix)
			return store.WriteFileAtomic(out, text)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	logger.Info("[Ingest] PDF text extraction completed", "files", len(names), "out", outDir)
	return len(names), nil
}

// IngestCables groups the rows of the cable workbook by their label column
// and writes the joined text of each group to outDir/<label>_text.txt. Rows
// without a label and empty text cells are skipped.
func (i *Ingester) IngestCables(ctx context.Context, workbook, outDir string) (int, error) {
	table, err := i.firstTable(ctx, workbook)
	if err != nil {
		return 0, err
	}
	labelCol, err := column(table, workbook, LabelColumn)
	if err != nil {
		return 0, err
	}
	textCol, err := column(table, workbook, TextColumn)
	if err != nil {
		return 0, err
	}

	groups := make(map[string][]string)
	for _, row := range table.Rows {
		label := strings.TrimSpace(row[labelCol])
		if label == "" {
			continue
		}
		if _, ok := groups[label]; !ok {
			groups[label] = nil
		}
		if text := row[textCol]; strings.TrimSpace(text) != "" {
			groups[label] = append(groups[label], text)
		}
	}

	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	for _, label := range labels {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		logger.Debug("[Ingest] Processing cable group", "label", label, "rows", len(groups[label]))
		out := filepath.Join(outDir, label+textSuffix)
		if err := store.WriteFileAtomic(out, []byte(strings.Join(groups[label], " "))); err != nil {
			return 0, err
		}
	}

	logger.Info("[Ingest] Cable text extraction completed", "files", len(labels), "out", outDir)
	return len(labels), nil
}

// IngestNews writes every non-empty text cell of the news workbook to
// outDir/news_row_<i>_text.txt, where i is the zero based data row index.
func (i *Ingester) IngestNews(ctx context.Context, workbook, outDir string) (int, error) {
	table, err := i.firstTable(ctx, workbook)
	if err != nil {
		return 0, err
	}
	textCol, err := column(table, workbook, TextColumn)
	if err != nil {
		return 0, err
	}

	written := 0
	for idx, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		text := row[textCol]
		if strings.TrimSpace(text) == "" {
			continue
		}
		out := filepath.Join(outDir, NewsDocumentID(idx))
		if err := store.WriteFileAtomic(out, []byte(text)); err != nil {
			return written, err
		}
		written++
	}

	logger.Info("[Ingest] News text extraction completed", "files", written, "out", outDir)
	return written, nil
}

// NewsDocumentID is the document id of the news row at idx.
func NewsDocumentID(idx int) string {
	return fmt.Sprintf("news_row_%d%s", idx, textSuffix)
}

func (i *Ingester) firstTable(ctx context.Context, workbook string) (excel.Table, error) {
	file := loader.NewGraphSheetFile(loader.NewGraphFileParams{
		ID:       filepath.Base(workbook),
		FilePath: workbook,
		Loader:   i.base,
	})
	tables, err := i.excel.GetTables(ctx, file)
	if err != nil {
		return excel.Table{}, fmt.Errorf("failed to read workbook %s: %w", workbook, err)
	}
	if len(tables) == 0 {
		return excel.Table{}, fmt.Errorf("workbook %s has no data", workbook)
	}
	return tables[0], nil
}

func column(table excel.Table, workbook, name string) (int, error) {
	idx := table.Column(name)
	if idx < 0 {
		return -1, fmt.Errorf("%w %q in %s", ErrMissingColumn, name, workbook)
	}
	return idx, nil
}
