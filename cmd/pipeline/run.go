package main

import (
	"context"

	"github.com/OFFIS-RIT/threatmap/internal/util"
	"github.com/OFFIS-RIT/threatmap/pkg/ai"
	"github.com/OFFIS-RIT/threatmap/pkg/loader"
	"github.com/OFFIS-RIT/threatmap/pkg/logger"

	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	liveArray := util.GetEnvBool("EXTRACT_LIVE_ARRAY", false)
	publish := util.GetEnvBool("PUBLISH_S3", false)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Clean, extract, sanitize and export in sequence",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			aiClient, err := newAIClient()
			if err != nil {
				return err
			}
			source, err := newDocumentSource(ctx, a.paths)
			if err != nil {
				return err
			}
			if err := a.run(ctx, source, aiClient, liveArray); err != nil {
				return err
			}
			if publish {
				return a.publish(ctx)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&liveArray, "live-array", liveArray, "keep the relationship array valid after every record")
	cmd.Flags().BoolVar(&publish, "publish", publish, "upload the results to S3")

	return cmd
}

func (a *app) run(ctx context.Context, source loader.DocumentSource, aiClient ai.GraphAIClient, liveArray bool) error {
	if _, err := a.clean(); err != nil {
		return err
	}
	if _, err := a.extract(ctx, source, aiClient, liveArray); err != nil {
		return err
	}
	n, err := a.sanitize()
	if err != nil {
		return err
	}
	if _, err := a.export(); err != nil {
		return err
	}

	logger.Info("Pipeline finished", "records", n, "out", a.paths.resolve(a.paths.Sanitized))
	return nil
}
