package main

import (
	"github.com/OFFIS-RIT/threatmap/pkg/common"
	"github.com/OFFIS-RIT/threatmap/pkg/graph"
	"github.com/OFFIS-RIT/threatmap/pkg/logger"
	"github.com/OFFIS-RIT/threatmap/pkg/ner"
	"github.com/OFFIS-RIT/threatmap/pkg/store"

	"github.com/spf13/cobra"
)

func newCleanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Normalize entities and collapse acronyms",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.clean()
			return err
		},
	}

	cmd.Flags().StringVar(&a.paths.CombinedEntities, "in", a.paths.CombinedEntities, "detected entities (JSON array)")
	cmd.Flags().StringVar(&a.paths.CleanedEntities, "out", a.paths.CleanedEntities, "canonical entities (JSON array)")

	return cmd
}

func (a *app) clean() ([]common.Entity, error) {
	in := a.paths.resolve(a.paths.CombinedEntities)
	detections, err := ner.ReadDetections(in)
	if err != nil {
		return nil, err
	}

	entities := graph.NormalizeEntities(detections, a.threshold)
	entities, dropped := graph.CollapseAcronyms(entities)
	if entities == nil {
		entities = []common.Entity{}
	}

	out := a.paths.resolve(a.paths.CleanedEntities)
	if err := store.WriteJSONAtomic(out, entities); err != nil {
		return nil, err
	}

	logger.Info("[Clean] Wrote entities", "detections", len(detections), "entities", len(entities), "acronyms", len(dropped), "out", out)
	return entities, nil
}
