package domain

import "fmt"

// EntityType identifies one target entity type processed by the migration.
type EntityType string

const (
	EntityBuilding        EntityType = "building"
	EntityModule          EntityType = "module"
	EntityAisle           EntityType = "aisle"
	EntitySideOrientation EntityType = "side_orientation"
	EntityOwner           EntityType = "owner"
	EntityBarcodeType     EntityType = "barcode_type"
	EntityContainerType   EntityType = "container_type"
	EntitySizeClass       EntityType = "size_class"
	EntityShelfType       EntityType = "shelf_type"
	EntityMediaType       EntityType = "media_type"
	EntitySide            EntityType = "side"
	EntityLadder          EntityType = "ladder"
	EntityShelf           EntityType = "shelf"
	EntityShelfPosition   EntityType = "shelf_position"
	EntityTray            EntityType = "tray"
	EntityNonTrayItem     EntityType = "non_tray_item"
	EntityItem            EntityType = "item"
)

// LoadOrder is the fixed topological order over the foreign key graph of the
// target schema. Fixture-sourced reference types come first, then the
// snapshot-sourced stages. Loading in any other order is a programming error.
var LoadOrder = []EntityType{
	EntityOwner,
	EntityBarcodeType,
	EntityContainerType,
	EntitySizeClass,
	EntityShelfType,
	EntityMediaType,
	EntitySideOrientation,
	EntityBuilding,
	EntityModule,
	EntityAisle,
	EntitySide,
	EntityLadder,
	EntityShelf,
	EntityShelfPosition,
	EntityTray,
	EntityNonTrayItem,
	EntityItem,
}

// DependsOn lists the entity types whose stages must have finished before the
// keyed type's stage may start.
var DependsOn = map[EntityType][]EntityType{
	EntityModule:        {EntityBuilding},
	EntityAisle:         {EntityModule},
	EntitySide:          {EntityAisle, EntitySideOrientation},
	EntityLadder:        {EntitySide},
	EntityShelf:         {EntityLadder, EntityOwner, EntityShelfType, EntityContainerType, EntityBarcodeType},
	EntityShelfPosition: {EntityShelf},
	EntityTray:          {EntityShelfPosition, EntitySizeClass, EntityOwner, EntityMediaType},
	EntityNonTrayItem:   {EntityShelfPosition, EntitySizeClass, EntityOwner, EntityMediaType},
	EntityItem:          {EntityTray, EntityOwner, EntityMediaType},
}

func init() {
	seen := make(map[EntityType]bool, len(LoadOrder))
	for _, entityType := range LoadOrder {
		for _, dep := range DependsOn[entityType] {
			if !seen[dep] {
				panic(fmt.Sprintf("load order places %s before its dependency %s", entityType, dep))
			}
		}
		seen[entityType] = true
	}
}

// StageStatus tracks a stage through its lifecycle. PartiallyLoaded is a
// terminal but valid state: dependent stages proceed using only the rows that
// succeeded.
type StageStatus string

const (
	StagePending         StageStatus = "pending"
	StageLoading         StageStatus = "loading"
	StageLoaded          StageStatus = "loaded"
	StagePartiallyLoaded StageStatus = "partially_loaded"
)
