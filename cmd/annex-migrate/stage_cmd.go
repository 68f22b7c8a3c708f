package main

import (
	"fmt"

	"github.com/rpattn/annex-migrate/internal/domain"
	"github.com/rpattn/annex-migrate/internal/pipeline"
	"github.com/rpattn/annex-migrate/internal/repository"

	"github.com/spf13/cobra"
)

func newStageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stage <entity-type>",
		Short: "Re-run a single load stage against an already migrated database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			entityType := domain.EntityType(args[0])

			deps, err := stageDependencies(entityType)
			if err != nil {
				return err
			}

			rt, err := openRuntime(ctx, cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			p, _, err := rt.buildPipeline()
			if err != nil {
				return err
			}

			// The ids earlier stages assigned live only in the database now;
			// rebuild the resolution index before transforming. The stage's
			// own keys are hydrated too so re-running is idempotent.
			hydrator := repository.NewIndexHydrator(rt.conn.Pool)
			if err := hydrator.Hydrate(ctx, rt.index, append(deps, entityType)); err != nil {
				return err
			}

			summary, err := p.RunStage(ctx, entityType)
			if err != nil {
				return err
			}
			printSummaries(rt.log, []pipeline.StageSummary{summary})
			return nil
		},
	}
}

// stageDependencies returns every stage that must already be loaded, in load
// order, by walking the dependency closure.
func stageDependencies(entityType domain.EntityType) ([]domain.EntityType, error) {
	position := -1
	for i, candidate := range domain.LoadOrder {
		if candidate == entityType {
			position = i
			break
		}
	}
	if position < 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownEntityType, entityType)
	}

	needed := make(map[domain.EntityType]bool)
	var visit func(domain.EntityType)
	visit = func(t domain.EntityType) {
		for _, dep := range domain.DependsOn[t] {
			if !needed[dep] {
				needed[dep] = true
				visit(dep)
			}
		}
	}
	visit(entityType)

	deps := make([]domain.EntityType, 0, len(needed))
	for _, candidate := range domain.LoadOrder[:position] {
		if needed[candidate] {
			deps = append(deps, candidate)
		}
	}
	return deps, nil
}
