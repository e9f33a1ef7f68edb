// Package unitcount tracks per-player unit counts, supply and research from the
// game's counter region.
package unitcount

import (
	"context"
	"sync"
	"time"

	"scmem/memaccess"
	"scmem/offsets"
	"scmem/poll"
	"scmem/process"
	"scmem/process_blob"
	"scmem/units"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// Cell is one (unit type, player) pair of counters.
type Cell struct {
	UnitType        units.UnitType `json:"unitType"`
	PlayerIndex     int            `json:"playerIndex"`
	CompletedCount  int            `json:"completedCount"`
	ProductionCount int            `json:"productionCount"`
}

func (c Cell) Total() int {
	return c.CompletedCount + c.ProductionCount
}

// Value is the completed count, or the total when includeProduction is set.
func (c Cell) Value(includeProduction bool) int {
	if includeProduction {
		return c.Total()
	}
	return c.CompletedCount
}

// SupplyCount is a race's supply for one player, in whole units.
type SupplyCount struct {
	Used int `json:"used"`
	Max  int `json:"max"`
}

type snapshot struct {
	order    []units.UnitType
	cells    map[units.UnitType]*[offsets.CountPlayers]Cell
	supply   map[units.Race]*[offsets.CountPlayers]SupplyCount
	upgrades [offsets.ResearchPlayers][]uint8
	techs    [offsets.ResearchPlayers][]uint8
}

// Tracker is the UnitCountTracker. Each Refresh reads the counter region in one
// transfer and rebuilds every cell; the previous snapshot is replaced whole.
type Tracker struct {
	client  *memaccess.Client
	catalog *offsets.Catalog
	base    *memaccess.AddressCache
	log     *logger.Logger

	// refreshMu serialises Refresh and owns buf and blob.
	refreshMu sync.Mutex
	buf       []byte
	blob      process_blob.ProcessBlob

	mu          sync.RWMutex
	epoch       uint64 // bumped by Reset; a refresh begun earlier is discarded
	snap        *snapshot
	lastRefresh time.Time

	pollMu sync.Mutex
	poller *poll.Poller
}

func NewTracker(client *memaccess.Client, catalog *offsets.Catalog) *Tracker {
	return &Tracker{
		client:  client,
		catalog: catalog,
		base:    memaccess.NewAddressCache(client, catalog.GameBase()),
		log:     logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "unitcount")),
	}
}

// Refresh rebuilds every cell. On failure the tracker holds no data until the next
// successful refresh, and a read failure drops the cached game base.
func (t *Tracker) Refresh() error {
	t.refreshMu.Lock()
	defer t.refreshMu.Unlock()

	t.mu.RLock()
	epoch := t.epoch
	t.mu.RUnlock()

	snap, err := t.read()
	if err != nil {
		t.clear()
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.epoch != epoch {
		t.log.Debugln("Refresh discarded, tracker reset meanwhile")
		return nil
	}
	t.snap = snap
	t.lastRefresh = time.Now()
	return nil
}

func (t *Tracker) read() (*snapshot, error) {
	cfg, err := t.catalog.Load()
	if err != nil {
		return nil, err
	}
	order, err := t.catalog.UnitTypes()
	if err != nil {
		return nil, err
	}

	base, err := t.base.Get()
	if err != nil {
		return nil, err
	}

	size := int(cfg.BufferInfo.BufferSize)
	if cap(t.buf) < size {
		t.buf = make([]byte, size)
	}
	t.buf = t.buf[:size]

	start := base.Add(cfg.BufferInfo.MinOffset)
	if err := t.client.ReadInto(start, t.buf); err != nil {
		t.log.Debugln("Counter region read at", start.ToString(), "failed, dropping cached base:", err)
		t.base.Invalidate()
		return nil, err
	}
	t.blob.Reset(start, t.buf)

	snap := &snapshot{
		order:  order,
		cells:  make(map[units.UnitType]*[offsets.CountPlayers]Cell, len(order)),
		supply: make(map[units.Race]*[offsets.CountPlayers]SupplyCount, len(units.Races)),
	}

	for _, ut := range order {
		row := new([offsets.CountPlayers]Cell)
		for p := 0; p < offsets.CountPlayers; p++ {
			completed, err := t.counter(ut, p, false)
			if err != nil {
				return nil, err
			}
			withProduction, err := t.counter(ut, p, true)
			if err != nil {
				return nil, err
			}
			row[p] = Cell{
				UnitType:        ut,
				PlayerIndex:     p,
				CompletedCount:  completed,
				ProductionCount: max(0, withProduction-completed),
			}
		}
		snap.cells[ut] = row
	}

	for _, race := range units.Races {
		row := new([offsets.CountPlayers]SupplyCount)
		for p := 0; p < offsets.CountPlayers; p++ {
			used, err := t.supplyValue(base, race, p, false)
			if err != nil {
				return nil, err
			}
			limit, err := t.supplyValue(base, race, p, true)
			if err != nil {
				return nil, err
			}
			row[p] = SupplyCount{Used: used, Max: limit}
		}
		snap.supply[race] = row
	}

	if err := t.readResearch(base, offsets.Upgrades, &snap.upgrades); err != nil {
		return nil, err
	}
	if err := t.readResearch(base, offsets.Techs, &snap.techs); err != nil {
		return nil, err
	}
	return snap, nil
}

// counter decodes one counter from the bulk buffer, clamping negatives to zero.
func (t *Tracker) counter(ut units.UnitType, player int, includeProduction bool) (int, error) {
	abs, err := t.catalog.UnitOffset(ut, player, includeProduction)
	if err != nil {
		return 0, err
	}
	rel, err := t.catalog.BufferRelativeOffset(abs)
	if err != nil {
		return 0, err
	}
	v, err := t.blob.OffsetINT32(rel)
	if err != nil {
		return 0, err
	}
	return max(0, int(v)), nil
}

// supplyValue prefers the bulk buffer and falls back to a direct read. The game stores
// supply doubled.
func (t *Tracker) supplyValue(base process.ProcessMemoryAddress, race units.Race, player int, wantMax bool) (int, error) {
	off, err := t.catalog.SupplyOffset(race, player, wantMax)
	if err != nil {
		return 0, err
	}

	addr := base.Add(off)
	var raw int32
	if t.blob.Contains(addr, 4) {
		raw, err = t.blob.OffsetINT32(int64(addr - t.blob.BaseAddress()))
	} else {
		raw, err = t.client.ReadI32(addr)
		if err != nil {
			t.base.Invalidate()
		}
	}
	if err != nil {
		return 0, err
	}
	return max(0, int(raw)/2), nil
}

// readResearch reads both sections of kind into per-player rows indexed by id.
func (t *Tracker) readResearch(base process.ProcessMemoryAddress, kind offsets.ResearchKind, rows *[offsets.ResearchPlayers][]uint8) error {
	for p := range rows {
		rows[p] = make([]uint8, kind.IDs())
	}

	for section := 1; section <= 2; section++ {
		layout, err := kind.Layout(section)
		if err != nil {
			return err
		}
		off, err := t.catalog.UpgradeSection(kind, section)
		if err != nil {
			return err
		}

		addr := base.Add(off)
		size := process.ProcessMemorySize(layout.Size())
		var data []byte
		if t.blob.Contains(addr, size) {
			data, err = t.blob.ReadMemory(addr, size)
		} else {
			data, err = t.client.ReadBytes(addr, layout.Size())
			if err != nil {
				t.base.Invalidate()
			}
		}
		if err != nil {
			return err
		}

		for p := range rows {
			copy(rows[p][layout.FirstID:], data[p*layout.Count:(p+1)*layout.Count])
		}
	}
	return nil
}

func (t *Tracker) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap = nil
}

// Reset drops the data and the cached game base.
func (t *Tracker) Reset() {
	t.base.Invalidate()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.epoch++
	t.snap = nil
}

// HasData reports whether the latest refresh succeeded.
func (t *Tracker) HasData() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap != nil
}

func (t *Tracker) LastRefresh() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastRefresh
}

func validPlayer(player int) bool {
	return player >= 0 && player < offsets.CountPlayers
}

// Count returns player's count of t. units.AllUnits sums every concrete type. ok is
// false when there is no data or t is not catalogued.
func (t *Tracker) Count(ut units.UnitType, player int, includeProduction bool) (count int, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.snap == nil || !validPlayer(player) {
		return 0, false
	}
	if ut == units.AllUnits {
		return t.snap.sum(player, includeProduction, nil), true
	}
	row, found := t.snap.cells[ut]
	if !found {
		return 0, false
	}
	return row[player].Value(includeProduction), true
}

func (s *snapshot) sum(player int, includeProduction bool, match func(units.UnitType) bool) int {
	total := 0
	for _, ut := range s.order {
		if match == nil || match(ut) {
			total += s.cells[ut][player].Value(includeProduction)
		}
	}
	return total
}

// Cells returns player's cells in catalog order.
func (t *Tracker) Cells(player int) []Cell {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.snap == nil || !validPlayer(player) {
		return nil
	}
	out := make([]Cell, 0, len(t.snap.order))
	for _, ut := range t.snap.order {
		out = append(out, t.snap.cells[ut][player])
	}
	return out
}

// AllCounts maps every catalogued type, plus units.AllUnits, to player's count.
func (t *Tracker) AllCounts(player int, includeProduction bool) map[units.UnitType]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.snap == nil || !validPlayer(player) {
		return nil
	}
	out := make(map[units.UnitType]int, len(t.snap.order)+1)
	for _, ut := range t.snap.order {
		out[ut] = t.snap.cells[ut][player].Value(includeProduction)
	}
	out[units.AllUnits] = t.snap.sum(player, includeProduction, nil)
	return out
}

// CountsByCategory is AllCounts restricted to one static category, without the AllUnits entry.
func (t *Tracker) CountsByCategory(player int, category units.Category, includeProduction bool) map[units.UnitType]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.snap == nil || !validPlayer(player) {
		return nil
	}
	out := make(map[units.UnitType]int)
	for _, ut := range t.snap.order {
		if units.CategoryOf(ut) == category {
			out[ut] = t.snap.cells[ut][player].Value(includeProduction)
		}
	}
	return out
}

// Supply returns player's supply for race in whole units.
func (t *Tracker) Supply(player int, race units.Race) (SupplyCount, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.snap == nil || !validPlayer(player) {
		return SupplyCount{}, false
	}
	row, found := t.snap.supply[race]
	if !found {
		return SupplyCount{}, false
	}
	return row[player], true
}

// UpgradeLevel returns the level of upgrade id for player (players 0-11).
func (t *Tracker) UpgradeLevel(player, id int) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.snap == nil || player < 0 || player >= offsets.ResearchPlayers || id < 0 || id >= offsets.Upgrades.IDs() {
		return 0, false
	}
	return int(t.snap.upgrades[player][id]), true
}

// TechResearched reports whether player has researched tech id (players 0-11).
func (t *Tracker) TechResearched(player, id int) (researched, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.snap == nil || player < 0 || player >= offsets.ResearchPlayers || id < 0 || id >= offsets.Techs.IDs() {
		return false, false
	}
	return t.snap.techs[player][id] != 0, true
}

// Start refreshes every interval while gate reports true. A nil gate always passes.
func (t *Tracker) Start(ctx context.Context, interval time.Duration, gate func() bool) bool {
	t.pollMu.Lock()
	defer t.pollMu.Unlock()

	if t.poller != nil && t.poller.IsRunning() {
		return false
	}
	t.poller = poll.New("unitcount", interval, func(ctx context.Context) error {
		if gate != nil && !gate() {
			return nil
		}
		return t.Refresh()
	})
	return t.poller.Start(ctx)
}

func (t *Tracker) Stop() {
	t.pollMu.Lock()
	defer t.pollMu.Unlock()
	if t.poller != nil {
		t.poller.Stop()
	}
}

func (t *Tracker) IsRunning() bool {
	t.pollMu.Lock()
	defer t.pollMu.Unlock()
	return t.poller != nil && t.poller.IsRunning()
}
