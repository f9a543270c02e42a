package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/OFFIS-RIT/threatmap/internal/storage"
	"github.com/OFFIS-RIT/threatmap/pkg/graph"
	"github.com/OFFIS-RIT/threatmap/pkg/logger"
	"github.com/OFFIS-RIT/threatmap/pkg/store"

	"github.com/spf13/cobra"
)

func newFinalizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "finalize",
		Short: "Compact the record log into the relationship array",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := store.Finalize(a.paths.resolve(a.paths.RecordLog), a.paths.resolve(a.paths.Relationships))
			return err
		},
	}
}

func newSanitizeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sanitize",
		Short: "Replace placeholder values with null",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.sanitize()
			return err
		},
	}

	cmd.Flags().StringVar(&a.paths.Relationships, "in", a.paths.Relationships, "relationship array")
	cmd.Flags().StringVar(&a.paths.Sanitized, "out", a.paths.Sanitized, "sanitized relationship array")

	return cmd
}

func (a *app) sanitize() (int, error) {
	return graph.SanitizeFile(a.paths.resolve(a.paths.Relationships), a.paths.resolve(a.paths.Sanitized))
}

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the node and edge view of the sanitized records",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.export()
			return err
		},
	}

	cmd.Flags().StringVar(&a.paths.Network, "out", a.paths.Network, "network file")

	return cmd
}

func (a *app) export() (graph.Network, error) {
	records, err := store.ReadRecords(a.paths.resolve(a.paths.Sanitized))
	if err != nil {
		return graph.Network{}, err
	}

	network := graph.BuildNetwork(records)
	out := a.paths.resolve(a.paths.Network)
	if err := store.WriteJSONAtomic(out, network); err != nil {
		return graph.Network{}, err
	}

	logger.Info("[Export] Wrote network", "nodes", len(network.Nodes), "edges", len(network.Edges), "out", out)
	return network, nil
}

func newPublishCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Upload the sanitized records and the network to S3",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.publish(cmd.Context())
		},
	}
}

func (a *app) publish(ctx context.Context) error {
	params := storage.S3ParamsFromEnv()
	client, err := storage.NewS3Client(ctx, params)
	if err != nil {
		return err
	}
	publisher := storage.NewPublisher(client, params.Bucket, params.Prefix)

	for _, name := range []string{a.paths.Sanitized, a.paths.Network} {
		path := a.paths.resolve(name)
		key, err := publisher.PutFile(ctx, path, filepath.Base(path))
		if err != nil {
			return fmt.Errorf("failed to publish %s: %w", path, err)
		}
		logger.Info("[Publish] Uploaded artifact", "path", path, "bucket", params.Bucket, "key", key)
	}
	return nil
}
