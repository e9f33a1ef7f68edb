package offsets

import "scmem/units"

// Config is one revision of the binary layout. Offsets are relative to the game base
// unless noted.
type Config struct {
	Version           string            `mapstructure:"version" json:"version"`
	BaseOffset        int64             `mapstructure:"baseOffset" json:"baseOffset"`
	MapNameOffset     int64             `mapstructure:"mapNameOffset" json:"mapNameOffset"`
	ProductionOffset  int64             `mapstructure:"productionOffset" json:"productionOffset"`
	StaticOffsets     StaticOffsets     `mapstructure:"staticOffsets" json:"staticOffsets"`
	Races             Races             `mapstructure:"races" json:"races"`
	PopulationOffsets PopulationOffsets `mapstructure:"populationOffsets" json:"populationOffsets"`
	UpgradeOffsets    UpgradeOffsets    `mapstructure:"upgradeOffsets" json:"upgradeOffsets"`
	BufferInfo        BufferInfo        `mapstructure:"bufferInfo" json:"bufferInfo"`
}

// StaticOffsets are relative to the game module base, not the game base.
type StaticOffsets struct {
	InGame    int64 `mapstructure:"inGame" json:"inGame"`
	UnitArray int64 `mapstructure:"unitArray" json:"unitArray"`
}

type Races struct {
	Terran  RaceOffsets `mapstructure:"terran" json:"terran"`
	Zerg    RaceOffsets `mapstructure:"zerg" json:"zerg"`
	Protoss RaceOffsets `mapstructure:"protoss" json:"protoss"`
}

// Of returns the block for race; the zero block for RaceNone.
func (r *Races) Of(race units.Race) *RaceOffsets {
	switch race {
	case units.Terran:
		return &r.Terran
	case units.Zerg:
		return &r.Zerg
	case units.Protoss:
		return &r.Protoss
	}
	return nil
}

type RaceOffsets struct {
	Units     []UnitCounter `mapstructure:"units" json:"units"`
	Buildings []UnitCounter `mapstructure:"buildings" json:"buildings"`
}

// UnitCounter is the start of a unit type's per-player completed counters.
type UnitCounter struct {
	UnitType        units.UnitType `mapstructure:"unitType" json:"unitType"`
	CompletedOffset int64          `mapstructure:"completedOffset" json:"completedOffset"`
}

type PopulationOffsets struct {
	Terran  Supply `mapstructure:"terran" json:"terran"`
	Zerg    Supply `mapstructure:"zerg" json:"zerg"`
	Protoss Supply `mapstructure:"protoss" json:"protoss"`
}

func (p *PopulationOffsets) Of(race units.Race) *Supply {
	switch race {
	case units.Terran:
		return &p.Terran
	case units.Zerg:
		return &p.Zerg
	case units.Protoss:
		return &p.Protoss
	}
	return nil
}

// Supply holds the per-player supply counters of one race.
type Supply struct {
	SupplyUsed int64 `mapstructure:"supplyUsed" json:"supplyUsed"`
	SupplyMax  int64 `mapstructure:"supplyMax" json:"supplyMax"`
}

type UpgradeOffsets struct {
	Upgrades ResearchSections `mapstructure:"upgrades" json:"upgrades"`
	Techs    ResearchSections `mapstructure:"techs" json:"techs"`
}

type ResearchSections struct {
	Section1 Section `mapstructure:"section1" json:"section1"`
	Section2 Section `mapstructure:"section2" json:"section2"`
}

type Section struct {
	Offset int64 `mapstructure:"offset" json:"offset"`
}

// BufferInfo is the contiguous counter region read once per refresh.
type BufferInfo struct {
	BufferSize int64 `mapstructure:"bufferSize" json:"bufferSize"`
	MinOffset  int64 `mapstructure:"minOffset" json:"minOffset"`
}

// Contains reports whether [offset, offset+size) lies inside the buffer.
func (b BufferInfo) Contains(offset, size int64) bool {
	return offset >= b.MinOffset && offset+size <= b.MinOffset+b.BufferSize
}
