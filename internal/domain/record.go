package domain

import "time"

// Record is one transformed, typed target-schema row. The legacy key is kept
// until the loader registers the newly assigned id in the resolution index;
// after that the record is discarded.
type Record interface {
	Entity() EntityType
	LegacyKey() string
	Origin() Source
}

// Source links a record back to the snapshot row it came from so that load
// failures can still be attributed.
type Source struct {
	File string
	Line int
}

type Building struct {
	Name string
	Src  Source
}

func (b Building) Entity() EntityType { return EntityBuilding }
func (b Building) LegacyKey() string  { return b.Name }
func (b Building) Origin() Source     { return b.Src }

type Module struct {
	Key        string
	BuildingID int64
	Number     string
	Src        Source
}

func (m Module) Entity() EntityType { return EntityModule }
func (m Module) LegacyKey() string  { return m.Key }
func (m Module) Origin() Source     { return m.Src }

type Aisle struct {
	Key      string
	ModuleID int64
	Number   int
	Src      Source
}

func (a Aisle) Entity() EntityType { return EntityAisle }
func (a Aisle) LegacyKey() string  { return a.Key }
func (a Aisle) Origin() Source     { return a.Src }

type SideOrientation struct {
	Name string
	Src  Source
}

func (s SideOrientation) Entity() EntityType { return EntitySideOrientation }
func (s SideOrientation) LegacyKey() string  { return s.Name }
func (s SideOrientation) Origin() Source     { return s.Src }

type Owner struct {
	Name string
	Tier int
	Src  Source
}

func (o Owner) Entity() EntityType { return EntityOwner }
func (o Owner) LegacyKey() string  { return o.Name }
func (o Owner) Origin() Source     { return o.Src }

type BarcodeType struct {
	Name string
	Src  Source
}

func (b BarcodeType) Entity() EntityType { return EntityBarcodeType }
func (b BarcodeType) LegacyKey() string  { return b.Name }
func (b BarcodeType) Origin() Source     { return b.Src }

type ContainerType struct {
	Type string
	Src  Source
}

func (c ContainerType) Entity() EntityType { return EntityContainerType }
func (c ContainerType) LegacyKey() string  { return c.Type }
func (c ContainerType) Origin() Source     { return c.Src }

type SizeClass struct {
	Name      string
	ShortName string
	Height    float64
	Width     float64
	Depth     float64
	Src       Source
}

func (s SizeClass) Entity() EntityType { return EntitySizeClass }
func (s SizeClass) LegacyKey() string  { return s.ShortName }
func (s SizeClass) Origin() Source     { return s.Src }

type ShelfType struct {
	Type        string
	MaxCapacity int
	Src         Source
}

func (s ShelfType) Entity() EntityType { return EntityShelfType }
func (s ShelfType) LegacyKey() string  { return s.Type }
func (s ShelfType) Origin() Source     { return s.Src }

type MediaType struct {
	Name string
	Src  Source
}

func (m MediaType) Entity() EntityType { return EntityMediaType }
func (m MediaType) LegacyKey() string  { return m.Name }
func (m MediaType) Origin() Source     { return m.Src }

type Side struct {
	Key           string
	AisleID       int64
	OrientationID int64
	Src           Source
}

func (s Side) Entity() EntityType { return EntitySide }
func (s Side) LegacyKey() string  { return s.Key }
func (s Side) Origin() Source     { return s.Src }

type Ladder struct {
	Key    string
	SideID int64
	Number int
	Src    Source
}

func (l Ladder) Entity() EntityType { return EntityLadder }
func (l Ladder) LegacyKey() string  { return l.Key }
func (l Ladder) Origin() Source     { return l.Src }

type Shelf struct {
	Barcode         string
	LadderID        int64
	OwnerID         int64
	ShelfTypeID     int64
	ContainerTypeID int64
	Number          int
	Height          float64
	Width           float64
	Depth           float64
	Src             Source
}

func (s Shelf) Entity() EntityType { return EntityShelf }
func (s Shelf) LegacyKey() string  { return s.Barcode }
func (s Shelf) Origin() Source     { return s.Src }

type ShelfPosition struct {
	Key     string
	ShelfID int64
	Number  int
	Src     Source
}

func (s ShelfPosition) Entity() EntityType { return EntityShelfPosition }
func (s ShelfPosition) LegacyKey() string  { return s.Key }
func (s ShelfPosition) Origin() Source     { return s.Src }

type Tray struct {
	Barcode         string
	OwnerID         int64
	SizeClassID     int64
	MediaTypeID     int64
	ShelfPositionID int64
	AccessionDate   *time.Time
	ShelvedDate     *time.Time
	Src             Source
}

func (t Tray) Entity() EntityType { return EntityTray }
func (t Tray) LegacyKey() string  { return t.Barcode }
func (t Tray) Origin() Source     { return t.Src }

type NonTrayItem struct {
	Barcode         string
	OwnerID         int64
	SizeClassID     int64
	MediaTypeID     int64
	ShelfPositionID int64
	AccessionDate   *time.Time
	ShelvedDate     *time.Time
	Src             Source
}

func (n NonTrayItem) Entity() EntityType { return EntityNonTrayItem }
func (n NonTrayItem) LegacyKey() string  { return n.Barcode }
func (n NonTrayItem) Origin() Source     { return n.Src }

type Item struct {
	Barcode       string
	TrayID        int64
	OwnerID       int64
	Status        string
	AccessionDate *time.Time
	Src           Source
}

func (i Item) Entity() EntityType { return EntityItem }
func (i Item) LegacyKey() string  { return i.Barcode }
func (i Item) Origin() Source     { return i.Src }
