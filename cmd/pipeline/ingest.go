package main

import (
	"context"

	"github.com/OFFIS-RIT/threatmap/pkg/ingest"
	loaderio "github.com/OFFIS-RIT/threatmap/pkg/loader/io"
	"github.com/OFFIS-RIT/threatmap/pkg/logger"

	"github.com/spf13/cobra"
)

func newIngestCmd(a *app) *cobra.Command {
	var parallel int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Extract plain text documents from PDFs and workbooks",
		Long: `Writes one text file per PDF, one per cable label of the cable workbook
and one per non-empty row of the news workbook. Pass an empty path to skip an input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.ingest(cmd.Context(), parallel)
			return err
		},
	}

	cmd.Flags().StringVar(&a.paths.PDFDir, "pdf-dir", a.paths.PDFDir, "directory of PDF reports")
	cmd.Flags().StringVar(&a.paths.CableWorkbook, "cable-workbook", a.paths.CableWorkbook, "cable workbook (.xlsx)")
	cmd.Flags().StringVar(&a.paths.NewsWorkbook, "news-workbook", a.paths.NewsWorkbook, "news workbook (.xlsx)")
	cmd.Flags().IntVar(&parallel, "parallel", 4, "PDFs parsed at once")

	return cmd
}

func (a *app) ingest(ctx context.Context, parallel int) (ingest.Stats, error) {
	ingester := ingest.NewIngester(ingest.NewIngesterParams{
		Loader:   loaderio.NewIOGraphFileLoader(),
		Parallel: parallel,
	})

	stats, err := ingester.Run(ctx, ingest.Paths{
		PDFDir:        a.paths.PDFDir,
		PDFOut:        a.paths.resolve(a.paths.PDFTextDir),
		CableWorkbook: a.paths.CableWorkbook,
		CableOut:      a.paths.resolve(a.paths.CableTextDir),
		NewsWorkbook:  a.paths.NewsWorkbook,
		NewsOut:       a.paths.resolve(a.paths.NewsTextDir),
	})
	if err != nil {
		return stats, err
	}

	logger.Info("[Ingest] Done", "pdfs", stats.PDFs, "cables", stats.Cables, "news", stats.News)
	return stats, nil
}
