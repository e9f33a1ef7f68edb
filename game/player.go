package game

import (
	"scmem/unitcount"
	"scmem/units"
)

// UnitLookup is the unit-table capability the player helpers need.
type UnitLookup interface {
	PlayerUnits(player uint8) []units.UnitRecord
	WritePlayerUnitsInto(player uint8, buf []units.UnitRecord, maxCount int) int
}

// CountLookup is the count-tracker capability the player helpers need.
type CountLookup interface {
	Count(t units.UnitType, player int, includeProduction bool) (int, bool)
	AllCounts(player int, includeProduction bool) map[units.UnitType]int
	Supply(player int, race units.Race) (unitcount.SupplyCount, bool)
}

var (
	_ UnitLookup  = (*units.Table)(nil)
	_ CountLookup = (*unitcount.Tracker)(nil)
)

// Player is a plain value; lookups are passed in by the caller.
type Player struct {
	Index int        `json:"index"`
	Race  units.Race `json:"race"`
}

// PlayerSnapshot is everything the overlay shows for one player.
type PlayerSnapshot struct {
	Player  Player                `json:"player"`
	Units   []units.UnitRecord    `json:"units"`
	Counts  map[string]int        `json:"counts"`
	Supply  unitcount.SupplyCount `json:"supply"`
	Workers int                   `json:"workers"`
}

func (p Player) valid() bool {
	return p.Index >= 0 && p.Index < units.MaxPlayers
}

func (p Player) Units(lookup UnitLookup) []units.UnitRecord {
	if !p.valid() {
		return nil
	}
	return lookup.PlayerUnits(uint8(p.Index))
}

// UnitsInto is the allocation-free form of Units.
func (p Player) UnitsInto(lookup UnitLookup, buf []units.UnitRecord) int {
	if !p.valid() {
		return 0
	}
	return lookup.WritePlayerUnitsInto(uint8(p.Index), buf, len(buf))
}

// DetectRace returns p.Race, or when unset the race with the most supply in use.
func (p Player) DetectRace(counts CountLookup) units.Race {
	if p.Race != units.RaceNone {
		return p.Race
	}
	best, bestUsed := units.RaceNone, 0
	for _, race := range units.Races {
		s, ok := counts.Supply(p.Index, race)
		if ok && s.Used > bestUsed {
			best, bestUsed = race, s.Used
		}
	}
	return best
}

func (p Player) Supply(counts CountLookup) (unitcount.SupplyCount, bool) {
	race := p.DetectRace(counts)
	if race == units.RaceNone {
		return unitcount.SupplyCount{}, false
	}
	return counts.Supply(p.Index, race)
}

func (p Player) Workers(counts CountLookup, includeProduction bool) int {
	total := 0
	for _, worker := range []units.UnitType{units.TerranSCV, units.ZergDrone, units.ProtossProbe} {
		if n, ok := counts.Count(worker, p.Index, includeProduction); ok {
			total += n
		}
	}
	return total
}

func (p Player) Snapshot(lookup UnitLookup, counts CountLookup, includeProduction bool) PlayerSnapshot {
	p.Race = p.DetectRace(counts)
	snap := PlayerSnapshot{
		Player:  p,
		Units:   p.Units(lookup),
		Counts:  namedCounts(counts.AllCounts(p.Index, includeProduction)),
		Workers: p.Workers(counts, includeProduction),
	}
	snap.Supply, _ = p.Supply(counts)
	return snap
}

func namedCounts(in map[units.UnitType]int) map[string]int {
	if in == nil {
		return nil
	}
	out := make(map[string]int, len(in))
	for t, n := range in {
		out[t.String()] = n
	}
	return out
}
