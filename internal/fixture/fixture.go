package fixture

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rpattn/annex-migrate/internal/domain"
)

// Order lists the fixture-sourced entity types in load order. It is the
// prefix of domain.LoadOrder that precedes the snapshot-sourced stages.
var Order = []domain.EntityType{
	domain.EntityOwner,
	domain.EntityBarcodeType,
	domain.EntityContainerType,
	domain.EntitySizeClass,
	domain.EntityShelfType,
	domain.EntityMediaType,
	domain.EntitySideOrientation,
	domain.EntityBuilding,
	domain.EntityModule,
	domain.EntityAisle,
}

var files = map[domain.EntityType]string{
	domain.EntityOwner:           "owners.json",
	domain.EntityBarcodeType:     "barcode_types.json",
	domain.EntityContainerType:   "container_types.json",
	domain.EntitySizeClass:       "size_classes.json",
	domain.EntityShelfType:       "shelf_types.json",
	domain.EntityMediaType:       "media_types.json",
	domain.EntitySideOrientation: "side_orientations.json",
	domain.EntityBuilding:        "buildings.json",
	domain.EntityModule:          "modules.json",
	domain.EntityAisle:           "aisles.json",
}

type ownerTemplate struct {
	Name string `json:"name"`
	Tier int    `json:"tier"`
}

type nameTemplate struct {
	Name string `json:"name"`
}

type containerTypeTemplate struct {
	Type string `json:"type"`
}

type sizeClassTemplate struct {
	Name      string  `json:"name"`
	ShortName string  `json:"short_name"`
	Height    float64 `json:"height"`
	Width     float64 `json:"width"`
	Depth     float64 `json:"depth"`
}

type shelfTypeTemplate struct {
	Type        string `json:"type"`
	MaxCapacity int    `json:"max_capacity"`
}

type moduleTemplate struct {
	Building string `json:"building"`
	Number   string `json:"module_number"`
}

type aisleTemplate struct {
	Building string `json:"building"`
	Module   string `json:"module_number"`
	Number   int    `json:"aisle_number"`
}

// Set holds every parsed fixture template. Templates are curated reference
// data, so a file that fails to parse or a template that cannot resolve its
// parent is a fatal configuration error, never a per-row report entry.
type Set struct {
	owners           []ownerTemplate
	barcodeTypes     []nameTemplate
	containerTypes   []containerTypeTemplate
	sizeClasses      []sizeClassTemplate
	shelfTypes       []shelfTypeTemplate
	mediaTypes       []nameTemplate
	sideOrientations []nameTemplate
	buildings        []nameTemplate
	modules          []moduleTemplate
	aisles           []aisleTemplate
}

// Load reads every fixture file from dir. Any missing file aborts the run
// with domain.ErrFixtureFileMissing.
func Load(dir string) (*Set, error) {
	set := &Set{}
	targets := map[domain.EntityType]any{
		domain.EntityOwner:           &set.owners,
		domain.EntityBarcodeType:     &set.barcodeTypes,
		domain.EntityContainerType:   &set.containerTypes,
		domain.EntitySizeClass:       &set.sizeClasses,
		domain.EntityShelfType:       &set.shelfTypes,
		domain.EntityMediaType:       &set.mediaTypes,
		domain.EntitySideOrientation: &set.sideOrientations,
		domain.EntityBuilding:        &set.buildings,
		domain.EntityModule:          &set.modules,
		domain.EntityAisle:           &set.aisles,
	}
	for _, entityType := range Order {
		if err := loadFile(dir, files[entityType], targets[entityType]); err != nil {
			return nil, err
		}
	}
	for _, shelfType := range set.shelfTypes {
		if shelfType.MaxCapacity <= 0 {
			return nil, fmt.Errorf("shelf type %q has non-positive max_capacity %d", shelfType.Type, shelfType.MaxCapacity)
		}
	}
	return set, nil
}

func loadFile(dir, name string, target any) error {
	path := filepath.Join(dir, name)
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrFixtureFileMissing, path)
		}
		return fmt.Errorf("read fixture %s: %w", path, err)
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return nil
}

// Capacities maps each shelf type name to the number of positions it exposes.
// The transform layer needs this to emit position records per shelf.
func (s *Set) Capacities() map[string]int {
	capacities := make(map[string]int, len(s.shelfTypes))
	for _, shelfType := range s.shelfTypes {
		capacities[shelfType.Type] = shelfType.MaxCapacity
	}
	return capacities
}

// Records materialises the templates for one fixture entity type. Parent
// references are resolved through the index, so callers must invoke the types
// in Order and register each stage's ids before the next call.
func (s *Set) Records(entityType domain.EntityType, idx domain.IndexView) ([]domain.Record, error) {
	file, ok := files[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not fixture-sourced", domain.ErrUnknownEntityType, entityType)
	}

	switch entityType {
	case domain.EntityOwner:
		records := make([]domain.Record, 0, len(s.owners))
		for i, t := range s.owners {
			records = append(records, domain.Owner{Name: t.Name, Tier: t.Tier, Src: source(file, i)})
		}
		return records, nil
	case domain.EntityBarcodeType:
		records := make([]domain.Record, 0, len(s.barcodeTypes))
		for i, t := range s.barcodeTypes {
			records = append(records, domain.BarcodeType{Name: t.Name, Src: source(file, i)})
		}
		return records, nil
	case domain.EntityContainerType:
		records := make([]domain.Record, 0, len(s.containerTypes))
		for i, t := range s.containerTypes {
			records = append(records, domain.ContainerType{Type: t.Type, Src: source(file, i)})
		}
		return records, nil
	case domain.EntitySizeClass:
		records := make([]domain.Record, 0, len(s.sizeClasses))
		for i, t := range s.sizeClasses {
			records = append(records, domain.SizeClass{
				Name:      t.Name,
				ShortName: t.ShortName,
				Height:    t.Height,
				Width:     t.Width,
				Depth:     t.Depth,
				Src:       source(file, i),
			})
		}
		return records, nil
	case domain.EntityShelfType:
		records := make([]domain.Record, 0, len(s.shelfTypes))
		for i, t := range s.shelfTypes {
			records = append(records, domain.ShelfType{Type: t.Type, MaxCapacity: t.MaxCapacity, Src: source(file, i)})
		}
		return records, nil
	case domain.EntityMediaType:
		records := make([]domain.Record, 0, len(s.mediaTypes))
		for i, t := range s.mediaTypes {
			records = append(records, domain.MediaType{Name: t.Name, Src: source(file, i)})
		}
		return records, nil
	case domain.EntitySideOrientation:
		records := make([]domain.Record, 0, len(s.sideOrientations))
		for i, t := range s.sideOrientations {
			records = append(records, domain.SideOrientation{Name: t.Name, Src: source(file, i)})
		}
		return records, nil
	case domain.EntityBuilding:
		records := make([]domain.Record, 0, len(s.buildings))
		for i, t := range s.buildings {
			records = append(records, domain.Building{Name: t.Name, Src: source(file, i)})
		}
		return records, nil
	case domain.EntityModule:
		records := make([]domain.Record, 0, len(s.modules))
		for i, t := range s.modules {
			buildingID, ok := idx.Resolve(domain.EntityBuilding, t.Building)
			if !ok {
				return nil, fmt.Errorf("fixture %s entry %d: building %q is not loaded", file, i, t.Building)
			}
			records = append(records, domain.Module{
				Key:        ModuleKey(t.Building, t.Number),
				BuildingID: buildingID,
				Number:     t.Number,
				Src:        source(file, i),
			})
		}
		return records, nil
	case domain.EntityAisle:
		records := make([]domain.Record, 0, len(s.aisles))
		for i, t := range s.aisles {
			moduleID, ok := idx.Resolve(domain.EntityModule, ModuleKey(t.Building, t.Module))
			if !ok {
				return nil, fmt.Errorf("fixture %s entry %d: module %q of building %q is not loaded", file, i, t.Module, t.Building)
			}
			records = append(records, domain.Aisle{
				Key:      strconv.Itoa(t.Number),
				ModuleID: moduleID,
				Number:   t.Number,
				Src:      source(file, i),
			})
		}
		return records, nil
	}
	return nil, fmt.Errorf("%w: %s is not fixture-sourced", domain.ErrUnknownEntityType, entityType)
}

// ModuleKey is the resolution-index key for a module, scoped by building
// because module numbers repeat across buildings.
func ModuleKey(building, number string) string {
	return fmt.Sprintf("%s|%s", building, number)
}

func source(file string, index int) domain.Source {
	return domain.Source{File: file, Line: index + 1}
}
