package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/threatmap/internal/util"
	"github.com/OFFIS-RIT/threatmap/pkg/ai"
	"github.com/OFFIS-RIT/threatmap/pkg/common"
	"github.com/OFFIS-RIT/threatmap/pkg/graph"
	"github.com/OFFIS-RIT/threatmap/pkg/leaselock"
	"github.com/OFFIS-RIT/threatmap/pkg/loader"
	"github.com/OFFIS-RIT/threatmap/pkg/logger"
	"github.com/OFFIS-RIT/threatmap/pkg/ner"
	"github.com/OFFIS-RIT/threatmap/pkg/store"

	"github.com/spf13/cobra"
)

func newExtractCmd(a *app) *cobra.Command {
	liveArray := util.GetEnvBool("EXTRACT_LIVE_ARRAY", false)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract relationships for every entity pair of a document",
		Long: `Asks the model about every unordered entity pair that shares a document.
Accepted records are appended to the record log as they arrive, so an
interrupted run resumes where it stopped. The log is compacted into the
relationship array at the end of the run.`,
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
			_, err = a.extract(ctx, source, aiClient, liveArray)
			return err
		},
	}

	cmd.Flags().BoolVar(&liveArray, "live-array", liveArray, "keep the relationship array valid after every record")

	return cmd
}

func (a *app) extract(
	ctx context.Context,
	source loader.DocumentSource,
	aiClient ai.GraphAIClient,
	liveArray bool,
) (graph.RunStats, error) {
	detections, err := ner.ReadDetections(a.paths.resolve(a.paths.CleanedEntities))
	if err != nil {
		return graph.RunStats{}, err
	}
	entities := make([]common.Entity, len(detections))
	for i, d := range detections {
		entities[i] = common.Entity(d)
	}

	client, err := newGraphClient()
	if err != nil {
		return graph.RunStats{}, err
	}

	params := store.OpenRecordLogParams{
		Path:           a.paths.resolve(a.paths.RecordLog),
		QuarantinePath: a.paths.resolve(a.paths.Quarantine),
	}
	if liveArray {
		params.ArrayPath = a.paths.resolve(a.paths.Relationships)
	}

	lease, err := leaselock.Acquire(ctx, params.Path+".lock", leaselock.Options{TTL: time.Minute})
	if err != nil {
		if errors.Is(err, leaselock.ErrBusy) {
			return graph.RunStats{}, fmt.Errorf("record log %s is in use by another run: %w", params.Path, err)
		}
		return graph.RunStats{}, err
	}
	defer lease.Release()
	ctx = lease.Context

	recordLog, err := store.OpenRecordLog(params)
	if err != nil {
		return graph.RunStats{}, err
	}
	defer recordLog.Close()
	logger.Info("[Extract] Opened record log", "path", params.Path, "records", recordLog.Len())

	aiClient.ResetMetrics()
	stats, err := client.ExtractRelationships(ctx, source, entities, aiClient, recordLog)
	logMetrics(aiClient.GetMetrics(), stats.Duration)
	logger.Info("[Extract] Run summary",
		"run_id", stats.RunID,
		"documents", len(stats.Documents),
		"pairs", stats.Pairs,
		"extracted", stats.Extracted,
		"resumed", stats.Resumed,
		"unsupported", stats.Unsupported,
		"quarantined", stats.Quarantined,
		"missing", stats.Missing,
	)
	if err != nil {
		if errors.Is(err, graph.ErrCollaboratorUnavailable) {
			logger.Error("[Extract] Model unavailable, rerun to resume", "records", recordLog.Len())
		}
		return stats, err
	}

	if err := recordLog.Close(); err != nil {
		return stats, fmt.Errorf("failed to close record log: %w", err)
	}
	if _, err := store.Finalize(params.Path, a.paths.resolve(a.paths.Relationships)); err != nil {
		return stats, err
	}
	return stats, nil
}

func logMetrics(metrics ai.ModelMetrics, elapsed time.Duration) {
	aiDuration := time.Duration(metrics.DurationMs) * time.Millisecond
	logger.Info(
		"AI Metrics",
		"requests", metrics.Requests,
		"input_tokens", metrics.InputTokens,
		"output_tokens", metrics.OutputTokens,
		"total_tokens", metrics.TotalTokens,
		"duration", formatDuration(aiDuration),
	)
	logger.Info("Processing time", "duration", formatDuration(elapsed))
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
