package main

import (
	"github.com/OFFIS-RIT/threatmap/internal/util"
	"github.com/OFFIS-RIT/threatmap/pkg/graph"
	"github.com/OFFIS-RIT/threatmap/pkg/logger"
	"github.com/OFFIS-RIT/threatmap/pkg/logger/console"

	"github.com/spf13/cobra"
)

// app carries the settings shared by every subcommand.
type app struct {
	paths     paths
	debug     bool
	threshold float64
}

func newRootCmd() *cobra.Command {
	a := &app{
		paths: defaultPaths(),
		debug: util.GetEnvBool("DEBUG", false),

		threshold: util.GetEnvNumeric("ENTITY_SCORE_THRESHOLD", graph.DefaultScoreThreshold),
	}

	rootCmd := &cobra.Command{
		Use:           "pipeline",
		Short:         "Build a threat relationship graph from reports and news",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
				Debug:  a.debug,
				Output: cmd.ErrOrStderr(),
			}))
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.paths.DataDir, "data-dir", a.paths.DataDir, "directory holding the pipeline artifacts")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", a.debug, "enable debug logging")
	rootCmd.PersistentFlags().Float64Var(&a.threshold, "threshold", a.threshold, "minimum NER confidence score")

	rootCmd.AddCommand(
		newIngestCmd(a),
		newTagCmd(a),
		newCleanCmd(a),
		newExtractCmd(a),
		newFinalizeCmd(a),
		newSanitizeCmd(a),
		newExportCmd(a),
		newPublishCmd(a),
		newRunCmd(a),
		newServeCmd(a),
	)

	return rootCmd
}
