package main

import (
	"errors"
	"testing"

	"github.com/rpattn/annex-migrate/internal/domain"
)

func TestStageDependenciesClosure(t *testing.T) {
	deps, err := stageDependencies(domain.EntityShelf)
	if err != nil {
		t.Fatalf("dependencies: %v", err)
	}

	want := map[domain.EntityType]bool{
		domain.EntityOwner:           true,
		domain.EntityBarcodeType:     true,
		domain.EntityContainerType:   true,
		domain.EntityShelfType:       true,
		domain.EntitySideOrientation: true,
		domain.EntityBuilding:        true,
		domain.EntityModule:          true,
		domain.EntityAisle:           true,
		domain.EntitySide:            true,
		domain.EntityLadder:          true,
	}
	if len(deps) != len(want) {
		t.Fatalf("expected %d dependencies, got %v", len(want), deps)
	}
	seen := make(map[domain.EntityType]int, len(deps))
	for i, dep := range deps {
		if !want[dep] {
			t.Fatalf("unexpected dependency %s", dep)
		}
		seen[dep] = i
	}
	if seen[domain.EntitySide] > seen[domain.EntityLadder] {
		t.Fatalf("dependencies not in load order: %v", deps)
	}
}

func TestStageDependenciesNoTransitives(t *testing.T) {
	deps, err := stageDependencies(domain.EntityOwner)
	if err != nil {
		t.Fatalf("dependencies: %v", err)
	}
	if len(deps) != 0 {
		t.Fatalf("owner stage has no dependencies, got %v", deps)
	}
}

func TestStageDependenciesUnknownType(t *testing.T) {
	if _, err := stageDependencies(domain.EntityType("carton")); !errors.Is(err, domain.ErrUnknownEntityType) {
		t.Fatalf("expected ErrUnknownEntityType, got %v", err)
	}
}
