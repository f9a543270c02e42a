package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/OFFIS-RIT/threatmap/pkg/common"
	"github.com/OFFIS-RIT/threatmap/pkg/logger"
	"github.com/OFFIS-RIT/threatmap/pkg/ner"
	"github.com/OFFIS-RIT/threatmap/pkg/store"

	"github.com/spf13/cobra"
)

const textFileSuffix = "_text.txt"

func newTagCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tag",
		Short: "Detect organizations and persons in the extracted texts",
		RunE: func(cmd *cobra.Command, args []string) error {
			tagger, err := newTagger(a.threshold)
			if err != nil {
				return err
			}
			_, err = a.tag(cmd.Context(), tagger)
			return err
		},
	}
}

// tag runs tagger over every text document of the cable and news
// directories and writes the deduplicated detections.
func (a *app) tag(ctx context.Context, tagger ner.Tagger) (int, error) {
	var detections []common.DetectedEntity

	for _, dir := range []string{a.paths.resolve(a.paths.CableTextDir), a.paths.resolve(a.paths.NewsTextDir)} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Warn("[NER] Text directory not found, skipping", "dir", dir)
				continue
			}
			return 0, fmt.Errorf("failed to list %s: %w", dir, err)
		}

		var names []string
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), textFileSuffix) {
				names = append(names, e.Name())
			}
		}

		for i, name := range names {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			text, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				return 0, fmt.Errorf("failed to read %s: %w", name, err)
			}
			found, err := tagger.Tag(ctx, name, string(text))
			if err != nil {
				return 0, fmt.Errorf("failed to tag %s: %w", name, err)
			}
			detections = append(detections, found...)
			logger.Debug("[NER] Tagged document", "document", name, "entities", len(found), "progress", fmt.Sprintf("%d/%d", i+1, len(names)))
		}
		logger.Info("[NER] Tagged directory", "dir", dir, "documents", len(names))
	}

	deduped := ner.Dedupe(detections)
	if deduped == nil {
		deduped = []common.DetectedEntity{}
	}
	out := a.paths.resolve(a.paths.CombinedEntities)
	if err := store.WriteJSONAtomic(out, deduped); err != nil {
		return 0, err
	}

	logger.Info("[NER] Wrote entities", "entities", len(deduped), "detections", len(detections), "out", out)
	return len(deduped), nil
}
