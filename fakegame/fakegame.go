// Package fakegame builds a synthetic game process in a ProcessDump together with the
// catalog that describes it, so every component can run end to end without a live target.
package fakegame

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"scmem/memaccess"
	"scmem/offsets"
	"scmem/process"
	"scmem/process_blob"
	"scmem/units"
)

const (
	PID        process.ProcessID = 4242
	ModuleName                   = "StarCraft.exe"

	ModuleBase   process.ProcessMemoryAddress = 0x140000000
	Kernel32Base process.ProcessMemoryAddress = 0x7FF800000000
	TEB          process.ProcessMemoryAddress = 0xA00000
	StackBase    process.ProcessMemoryAddress = 0xB00000
	GameBase     process.ProcessMemoryAddress = 0x2000000
	UnitArray    process.ProcessMemoryAddress = 0x3000000

	// Anchor is the stack slot the thread stack scan must find.
	Anchor = StackBase - 0x28

	staticRegion    = 0x2000
	staticSize      = 0x200
	gameRegionSize  = 0x8000
	mapNameCapacity = 260
)

// Game is a synthetic process and the layout it was built with.
type Game struct {
	Dump     *process_blob.ProcessDump
	Config   *offsets.Config
	Capacity int

	// ModuleBase is where the game module currently lives; see RelocateModule.
	ModuleBase process.ProcessMemoryAddress

	catalog *offsets.Catalog
}

var raceTables = map[units.Race]struct{ units, buildings []units.UnitType }{
	units.Terran: {
		units:     []units.UnitType{units.TerranSCV, units.TerranMarine, units.TerranFirebat, units.TerranMedic, units.TerranVulture, units.TerranSiegeTankTankMode},
		buildings: []units.UnitType{units.TerranCommandCenter, units.TerranSupplyDepot, units.TerranBarracks, units.TerranFactory},
	},
	units.Zerg: {
		units:     []units.UnitType{units.ZergDrone, units.ZergZergling, units.ZergHydralisk, units.ZergOverlord},
		buildings: []units.UnitType{units.ZergHatchery, units.ZergSpawningPool},
	},
	units.Protoss: {
		units:     []units.UnitType{units.ProtossProbe, units.ProtossZealot, units.ProtossDragoon},
		buildings: []units.UnitType{units.ProtossNexus, units.ProtossPylon, units.ProtossGateway},
	},
}

// DefaultConfig is the catalog matching the synthetic layout.
func DefaultConfig() *offsets.Config {
	cfg := &offsets.Config{
		Version:          "fake-1",
		BaseOffset:       -0x100,
		MapNameOffset:    0x100,
		ProductionOffset: 0x1800,
		StaticOffsets:    offsets.StaticOffsets{InGame: staticRegion, UnitArray: staticRegion + 0x100},
		PopulationOffsets: offsets.PopulationOffsets{
			Terran:  offsets.Supply{SupplyUsed: 0x1100, SupplyMax: 0x1140},
			Zerg:    offsets.Supply{SupplyUsed: 0x1180, SupplyMax: 0x11C0},
			Protoss: offsets.Supply{SupplyUsed: 0x1200, SupplyMax: 0x1240},
		},
		UpgradeOffsets: offsets.UpgradeOffsets{
			Upgrades: offsets.ResearchSections{Section1: offsets.Section{Offset: 0x6000}, Section2: offsets.Section{Offset: 0x6300}},
			Techs:    offsets.ResearchSections{Section1: offsets.Section{Offset: 0x6400}, Section2: offsets.Section{Offset: 0x6600}},
		},
		BufferInfo: offsets.BufferInfo{BufferSize: 0x4000, MinOffset: 0x1000},
	}

	next := int64(0x3000)
	counters := func(types []units.UnitType) []offsets.UnitCounter {
		out := make([]offsets.UnitCounter, len(types))
		for i, t := range types {
			out[i] = offsets.UnitCounter{UnitType: t, CompletedOffset: next}
			next += 0x30
		}
		return out
	}
	for _, race := range units.Races {
		rt := raceTables[race]
		ro := cfg.Races.Of(race)
		ro.Units = counters(rt.units)
		ro.Buildings = counters(rt.buildings)
	}
	return cfg
}

// New builds an idle game (menus, no map) with a unit array of the given capacity.
func New(capacity int) *Game {
	if capacity <= 0 {
		capacity = units.DefaultCapacity
	}

	cfg := DefaultConfig()
	g := &Game{
		Dump:     process_blob.NewProcessDump(PID, ModuleName),
		Config:   cfg,
		Capacity: capacity,

		ModuleBase: ModuleBase,
		catalog:    offsets.NewStaticCatalog(cfg),
	}
	d := g.Dump

	d.AddModule(process.Module{Name: ModuleName, Path: `C:\Games\StarCraft\x86_64\StarCraft.exe`, BaseAddress: ModuleBase, ImageSize: 0x1000000})
	d.AddModule(process.Module{Name: "ntdll.dll", Path: `C:\Windows\SYSTEM32\ntdll.dll`, BaseAddress: 0x7FF900000000, ImageSize: 0x200000})
	d.AddModule(process.Module{Name: "KERNEL32.DLL", Path: `C:\Windows\System32\KERNEL32.DLL`, BaseAddress: Kernel32Base, ImageSize: 0x100000})

	d.AddThread(1000, TEB)
	d.AddThread(1001, TEB+0x10000)

	d.AddRegion(ModuleBase+staticRegion, staticSize)
	d.AddRegion(TEB, 0x100)
	d.AddRegion(StackBase-0x1000, 0x1000)
	d.AddRegion(GameBase, gameRegionSize)
	d.AddRegion(UnitArray, process.ProcessMemorySize(capacity*units.RecordSize))

	g.putPointer(TEB+0x08, StackBase)
	// noise above the anchor, then the anchor, then a deeper kernel32 pointer that must lose
	g.putPointer(StackBase-0x08, 0x12345)
	g.putPointer(Anchor, Kernel32Base+0x1A2B0)
	g.putPointer(StackBase-0x200, Kernel32Base+0x500)
	g.putPointer(Anchor.Add(cfg.BaseOffset), GameBase)
	g.putPointer(ModuleBase+process.ProcessMemoryAddress(cfg.StaticOffsets.UnitArray), UnitArray)

	empty := units.UnitRecord{UnitType: units.None, ProductionQueue: units.EmptyQueue()}
	for slot := 0; slot < capacity; slot++ {
		g.PutUnit(slot, empty)
	}
	return g
}

// Catalog returns a catalog serving the game's config.
func (g *Game) Catalog() *offsets.Catalog {
	return g.catalog
}

// Client returns a detached client whose opener hands out the dump.
func (g *Game) Client() *memaccess.Client {
	return memaccess.New(g.Dump.Opener())
}

// WriteCatalog writes the config as JSON into dir and returns the file path.
func (g *Game) WriteCatalog(dir string) (string, error) {
	data, err := json.MarshalIndent(g.Config, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "catalog.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (g *Game) write(addr process.ProcessMemoryAddress, data []byte) {
	if err := g.Dump.WriteMemory(addr, data); err != nil {
		panic(fmt.Sprintf("fakegame: write %s: %v", addr.ToString(), err))
	}
}

func (g *Game) putPointer(addr, value process.ProcessMemoryAddress) {
	var buf [process.PointerSize]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(value))
	g.write(addr, buf[:])
}

func (g *Game) putI32(offset int64, v int32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	g.write(GameBase.Add(offset), buf[:])
}

// SetInGameFlag stores the in-game flag pointer.
func (g *Game) SetInGameFlag(v process.ProcessMemoryAddress) {
	g.putPointer(g.ModuleBase.Add(g.Config.StaticOffsets.InGame), v)
}

// RelocateModule moves the game module and its static data to base, as a restart of
// the game would.
func (g *Game) RelocateModule(base process.ProcessMemoryAddress) {
	old := g.ModuleBase + staticRegion
	data := append([]byte(nil), g.Dump.Blobs[uint64(old)]...)

	g.Dump.RemoveRegion(old)
	copy(g.Dump.AddRegion(base+staticRegion, staticSize), data)
	for i := range g.Dump.ModuleSet {
		if g.Dump.ModuleSet[i].Name == ModuleName {
			g.Dump.ModuleSet[i].BaseAddress = base
		}
	}
	g.ModuleBase = base
}

// SetMapName stores the loaded map filename; names longer than the field are cut.
func (g *Game) SetMapName(name string) {
	buf := make([]byte, mapNameCapacity)
	copy(buf[:mapNameCapacity-1], name)
	g.write(GameBase.Add(g.Config.MapNameOffset), buf)
}

// EnterMatch sets both halves of the in-game predicate.
func (g *Game) EnterMatch(mapName string) {
	g.SetInGameFlag(0xDEAD0000)
	g.SetMapName(mapName)
}

// LeaveMatch returns to the menus.
func (g *Game) LeaveMatch() {
	g.SetInGameFlag(0)
	g.SetMapName("")
}

// BreakGameBase nulls the pointer the game base chain goes through.
func (g *Game) BreakGameBase() {
	g.putPointer(Anchor.Add(g.Config.BaseOffset), 0)
}

// RestoreGameBase undoes BreakGameBase.
func (g *Game) RestoreGameBase() {
	g.putPointer(Anchor.Add(g.Config.BaseOffset), GameBase)
}

// PutUnit encodes rec into slot of the unit array.
func (g *Game) PutUnit(slot int, rec units.UnitRecord) {
	raw := make([]byte, units.RecordSize)
	if err := units.Encode(&rec, raw); err != nil {
		panic(err)
	}
	g.write(UnitArray+process.ProcessMemoryAddress(slot*units.RecordSize), raw)
}

// ClearUnit marks slot unused.
func (g *Game) ClearUnit(slot int) {
	g.PutUnit(slot, units.UnitRecord{UnitType: units.None, ProductionQueue: units.EmptyQueue()})
}

// SetCount stores player's counters for t: completed units and units still in production.
func (g *Game) SetCount(t units.UnitType, player int, completed, inProduction int32) {
	c, err := g.catalog.UnitOffset(t, player, false)
	if err != nil {
		panic(err)
	}
	p, err := g.catalog.UnitOffset(t, player, true)
	if err != nil {
		panic(err)
	}
	g.putI32(c, completed)
	g.putI32(p, completed+inProduction)
}

// SetRawCounter stores a raw counter value, including values the game never writes.
func (g *Game) SetRawCounter(t units.UnitType, player int, includeProduction bool, v int32) {
	off, err := g.catalog.UnitOffset(t, player, includeProduction)
	if err != nil {
		panic(err)
	}
	g.putI32(off, v)
}

// SetSupply stores supply the way the game does, doubled.
func (g *Game) SetSupply(race units.Race, player int, used, maxSupply int32) {
	u, err := g.catalog.SupplyOffset(race, player, false)
	if err != nil {
		panic(err)
	}
	m, _ := g.catalog.SupplyOffset(race, player, true)
	g.putI32(u, used*2)
	g.putI32(m, maxSupply*2)
}

// SetResearch stores one research byte: an upgrade level or a tech flag.
func (g *Game) SetResearch(kind offsets.ResearchKind, player, id int, v uint8) {
	off, err := g.catalog.ResearchOffset(kind, player, id)
	if err != nil {
		panic(err)
	}
	g.write(GameBase.Add(off), []byte{v})
}
