// Package offsets loads the binary-layout catalog of one game revision and answers
// layout questions about it.
package offsets

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"scmem/errs"
	"scmem/units"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

const (
	// CountPlayers is the number of player columns in the counter region.
	CountPlayers = 8
	// CounterWidth is the byte width of one per-player counter.
	CounterWidth = 4
)

var ErrUnknownUnitType = errors.New("unit type not in catalog")

// Entry is the flattened catalog row of one unit type.
type Entry struct {
	UnitType        units.UnitType
	Race            units.Race
	IsBuilding      bool
	CompletedOffset int64
}

// Catalog is the OffsetCatalog. It loads its document once and keeps it until ClearCache.
type Catalog struct {
	path   string
	static *Config
	log    *logger.Logger

	mu    sync.RWMutex
	cfg   *Config
	index map[units.UnitType]Entry
	order []units.UnitType
}

// NewCatalog reads the document at path on first use.
func NewCatalog(path string) *Catalog {
	return &Catalog{
		path: path,
		log:  logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "offsets")),
	}
}

// NewStaticCatalog serves a pre-built config. It is still validated on Load.
func NewStaticCatalog(cfg *Config) *Catalog {
	c := NewCatalog("")
	c.static = cfg
	return c
}

// Load returns the parsed config, reading and validating it on first call. Failures
// are not cached and not retried.
func (c *Catalog) Load() (*Config, error) {
	c.mu.RLock()
	cfg := c.cfg
	c.mu.RUnlock()
	if cfg != nil {
		return cfg, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg != nil {
		return c.cfg, nil
	}

	cfg, err := c.read()
	if err != nil {
		c.log.Warn("Offset catalog load failed: ", err)
		return nil, err
	}

	index, order, err := buildIndex(cfg)
	if err != nil {
		err = errs.Wrap(errs.KindConfigParse, "offsets.Load", err, "%s", c.source())
		c.log.Warn("Offset catalog load failed: ", err)
		return nil, err
	}

	c.cfg, c.index, c.order = cfg, index, order
	c.log.Infoln("Loaded offset catalog", c.source(), "version", cfg.Version, "with", len(order), "unit types")
	return cfg, nil
}

func (c *Catalog) source() string {
	if c.static != nil {
		return "(static)"
	}
	return c.path
}

func (c *Catalog) read() (*Config, error) {
	if c.static != nil {
		cfg := *c.static
		return &cfg, nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errs.Wrap(errs.KindConfigNotFound, "offsets.Load", err, "%s", c.path)
		}
		return nil, errs.Wrap(errs.KindConfigParse, "offsets.Load", err, "read %s", c.path)
	}

	cfg, err := decodeConfig(data)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfigParse, "offsets.Load", err, "decode %s", c.path)
	}
	return cfg, nil
}

// buildIndex validates cfg and flattens the race tables in document order.
func buildIndex(cfg *Config) (map[units.UnitType]Entry, []units.UnitType, error) {
	if cfg.BufferInfo.BufferSize <= 0 {
		return nil, nil, fmt.Errorf("bufferInfo.bufferSize must be positive, got %d", cfg.BufferInfo.BufferSize)
	}

	index := make(map[units.UnitType]Entry)
	var order []units.UnitType
	span := int64(CountPlayers * CounterWidth)

	add := func(race units.Race, building bool, counters []UnitCounter) error {
		for _, uc := range counters {
			if !uc.UnitType.IsConcrete() {
				return fmt.Errorf("%s: unit type %d is not a concrete type", race, uc.UnitType)
			}
			if _, dup := index[uc.UnitType]; dup {
				return fmt.Errorf("%s: unit type %s listed twice", race, uc.UnitType)
			}
			if !cfg.BufferInfo.Contains(uc.CompletedOffset, span) {
				return fmt.Errorf("%s: completed counters of %s at 0x%x fall outside the buffer", race, uc.UnitType, uc.CompletedOffset)
			}
			if prod := uc.CompletedOffset - cfg.ProductionOffset; !cfg.BufferInfo.Contains(prod, span) {
				return fmt.Errorf("%s: production counters of %s at 0x%x fall outside the buffer", race, uc.UnitType, prod)
			}
			index[uc.UnitType] = Entry{
				UnitType:        uc.UnitType,
				Race:            race,
				IsBuilding:      building,
				CompletedOffset: uc.CompletedOffset,
			}
			order = append(order, uc.UnitType)
		}
		return nil
	}

	for _, race := range units.Races {
		ro := cfg.Races.Of(race)
		if err := add(race, false, ro.Units); err != nil {
			return nil, nil, err
		}
		if err := add(race, true, ro.Buildings); err != nil {
			return nil, nil, err
		}
	}

	if len(order) == 0 {
		return nil, nil, errors.New("catalog lists no unit types")
	}
	return index, order, nil
}

// ClearCache drops the parsed document and the flattened index.
func (c *Catalog) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg, c.index, c.order = nil, nil, nil
	c.log.Debugln("Offset catalog cache cleared")
}

func (c *Catalog) loaded() (*Config, map[units.UnitType]Entry, []units.UnitType, error) {
	if _, err := c.Load(); err != nil {
		return nil, nil, nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cfg == nil {
		// cleared between Load and here
		return nil, nil, nil, errs.New(errs.KindConfigNotFound, "offsets", "catalog cleared")
	}
	return c.cfg, c.index, c.order, nil
}

// UnitTypes returns every catalogued unit type in document order.
func (c *Catalog) UnitTypes() ([]units.UnitType, error) {
	_, _, order, err := c.loaded()
	if err != nil {
		return nil, err
	}
	return append([]units.UnitType(nil), order...), nil
}

func (c *Catalog) Entry(t units.UnitType) (Entry, error) {
	_, index, _, err := c.loaded()
	if err != nil {
		return Entry{}, err
	}
	e, ok := index[t]
	if !ok {
		return Entry{}, fmt.Errorf("%s: %w", t, ErrUnknownUnitType)
	}
	return e, nil
}

// UnitOffset returns the game-base-relative offset of player's counter for t. With
// includeProduction the block shifts down by productionOffset, to the counter that
// also includes units still in production.
func (c *Catalog) UnitOffset(t units.UnitType, player int, includeProduction bool) (int64, error) {
	cfg, index, _, err := c.loaded()
	if err != nil {
		return 0, err
	}
	if player < 0 || player >= CountPlayers {
		return 0, fmt.Errorf("player %d out of range [0,%d)", player, CountPlayers)
	}
	e, ok := index[t]
	if !ok {
		return 0, fmt.Errorf("%s: %w", t, ErrUnknownUnitType)
	}

	base := e.CompletedOffset
	if includeProduction {
		base -= cfg.ProductionOffset
	}
	return base + int64(player)*CounterWidth, nil
}

// BufferRelativeOffset maps a game-base-relative offset into the counter buffer.
func (c *Catalog) BufferRelativeOffset(absolute int64) (int64, error) {
	cfg, _, _, err := c.loaded()
	if err != nil {
		return 0, err
	}
	return absolute - cfg.BufferInfo.MinOffset, nil
}

// SupplyOffset returns the offset of player's used or max supply counter for race.
func (c *Catalog) SupplyOffset(race units.Race, player int, wantMax bool) (int64, error) {
	cfg, _, _, err := c.loaded()
	if err != nil {
		return 0, err
	}
	s := cfg.PopulationOffsets.Of(race)
	if s == nil {
		return 0, fmt.Errorf("no supply counters for race %s", race)
	}
	if player < 0 || player >= CountPlayers {
		return 0, fmt.Errorf("player %d out of range [0,%d)", player, CountPlayers)
	}
	base := s.SupplyUsed
	if wantMax {
		base = s.SupplyMax
	}
	return base + int64(player)*CounterWidth, nil
}

// UpgradeSection returns the start offset of section 1 or 2 of kind.
func (c *Catalog) UpgradeSection(kind ResearchKind, section int) (int64, error) {
	cfg, _, _, err := c.loaded()
	if err != nil {
		return 0, err
	}
	sections := cfg.UpgradeOffsets.Upgrades
	if kind == Techs {
		sections = cfg.UpgradeOffsets.Techs
	}
	switch section {
	case 1:
		return sections.Section1.Offset, nil
	case 2:
		return sections.Section2.Offset, nil
	}
	return 0, fmt.Errorf("no section %d for %s", section, kind)
}

// ResearchOffset returns the offset of the byte holding player's state for id.
func (c *Catalog) ResearchOffset(kind ResearchKind, player, id int) (int64, error) {
	if player < 0 || player >= ResearchPlayers {
		return 0, fmt.Errorf("player %d out of range [0,%d)", player, ResearchPlayers)
	}
	section, column, err := kind.Locate(id)
	if err != nil {
		return 0, err
	}
	start, err := c.UpgradeSection(kind, section)
	if err != nil {
		return 0, err
	}
	layout, _ := kind.Layout(section)
	return start + int64(player*layout.Count+column), nil
}
