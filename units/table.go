package units

import (
	"context"
	"sync"
	"time"

	"scmem/errs"
	"scmem/memaccess"
	"scmem/poll"
	"scmem/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// DefaultCapacity is the length of the game's unit array.
const DefaultCapacity = 3400

// SlotState tells whether an arena slot holds data from the latest successful refresh.
type SlotState uint8

const (
	SlotEmpty SlotState = iota // unused array capacity
	SlotLive                   // valid record from the latest refresh
	SlotStale                  // was live, but the latest refresh failed
)

func (s SlotState) String() string {
	switch s {
	case SlotEmpty:
		return "empty"
	case SlotLive:
		return "live"
	case SlotStale:
		return "stale"
	}
	return "unknown"
}

type TableOptions struct {
	Capacity int
	// ArrayBase resolves the unit array address. It runs whenever the cached base is
	// missing or from an older session, so it may read a catalog loaded later.
	ArrayBase memaccess.Resolver
}

// Table is a fixed-capacity arena mirroring the unit array. Every refresh overwrites
// the arena in place; slots carry an explicit state instead of being reallocated.
type Table struct {
	client *memaccess.Client
	base   *memaccess.AddressCache
	log    *logger.Logger

	// refreshMu serialises RefreshAll and owns raw.
	refreshMu sync.Mutex
	raw       []byte

	mu          sync.RWMutex
	epoch       uint64 // bumped by Reset; a refresh begun earlier is discarded
	records     []UnitRecord
	states      []SlotState
	lastRefresh time.Time

	pollMu sync.Mutex
	poller *poll.Poller
}

func NewTable(client *memaccess.Client, opts TableOptions) *Table {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	resolve := opts.ArrayBase
	if resolve == nil {
		resolve = func(*memaccess.Client) (process.ProcessMemoryAddress, error) {
			return 0, errs.New(errs.KindResolution, "units.ResolveArrayBase", "no array base resolver, use SetArrayBase")
		}
	}

	return &Table{
		client:  client,
		base:    memaccess.NewAddressCache(client, resolve),
		log:     logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "units")),
		raw:     make([]byte, capacity*RecordSize),
		records: make([]UnitRecord, capacity),
		states:  make([]SlotState, capacity),
	}
}

func (t *Table) Capacity() int {
	return len(t.records)
}

// ResolveArrayBase returns the unit array address, resolving it from the module when
// it is not cached for the current session.
func (t *Table) ResolveArrayBase() (process.ProcessMemoryAddress, error) {
	return t.base.Get()
}

// SetArrayBase injects a known array address for the current session.
func (t *Table) SetArrayBase(addr process.ProcessMemoryAddress) {
	t.base.Set(addr)
}

// RefreshAll reads the whole array in one transfer and decodes every slot in place.
// On failure live slots turn stale and the cached base is dropped.
func (t *Table) RefreshAll() error {
	t.refreshMu.Lock()
	defer t.refreshMu.Unlock()

	t.mu.RLock()
	epoch := t.epoch
	t.mu.RUnlock()

	base, err := t.ResolveArrayBase()
	if err != nil {
		t.markStale()
		return err
	}

	if err := t.client.ReadInto(base, t.raw); err != nil {
		t.log.Debugln("Unit array read at", base.ToString(), "failed, dropping cached base:", err)
		t.base.Invalidate()
		t.markStale()
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.epoch != epoch {
		t.log.Debugln("Refresh discarded, table reset meanwhile")
		return nil
	}
	for i := range t.records {
		rec := &t.records[i]
		if err := ParseInto(t.raw[i*RecordSize:(i+1)*RecordSize], i, rec); err != nil {
			t.states[i] = SlotEmpty
			continue
		}
		if rec.IsValid() {
			t.states[i] = SlotLive
		} else {
			t.states[i] = SlotEmpty
		}
	}
	t.lastRefresh = time.Now()
	return nil
}

func (t *Table) markStale() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range t.states {
		if s == SlotLive {
			t.states[i] = SlotStale
		}
	}
}

// Reset empties every slot and forgets the array base.
func (t *Table) Reset() {
	t.base.Invalidate()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.epoch++
	for i := range t.states {
		t.states[i] = SlotEmpty
	}
	t.lastRefresh = time.Time{}
}

// Slot returns a copy of the record at slot and its state.
func (t *Table) Slot(slot int) (UnitRecord, SlotState) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if slot < 0 || slot >= len(t.records) {
		return UnitRecord{}, SlotEmpty
	}
	return t.records[slot], t.states[slot]
}

func (t *Table) LastRefresh() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastRefresh
}

func (t *Table) LiveCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, s := range t.states {
		if s == SlotLive {
			n++
		}
	}
	return n
}

// WritePlayerUnitsInto copies live records of player into buf, at most maxCount of
// them, and returns how many were written. It does not allocate.
func (t *Table) WritePlayerUnitsInto(player uint8, buf []UnitRecord, maxCount int) int {
	if maxCount > len(buf) {
		maxCount = len(buf)
	}
	if maxCount <= 0 {
		return 0
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for i := range t.records {
		if t.states[i] != SlotLive || t.records[i].PlayerIndex != player {
			continue
		}
		buf[n] = t.records[i]
		n++
		if n == maxCount {
			break
		}
	}
	return n
}

func (t *Table) PlayerUnits(player uint8) []UnitRecord {
	return t.collect(func(r *UnitRecord) bool { return r.PlayerIndex == player })
}

func (t *Table) UnitsOfType(unitType UnitType) []UnitRecord {
	return t.collect(func(r *UnitRecord) bool { return r.UnitType == unitType })
}

// UnitsInRect returns live units whose current position lies in the inclusive rectangle.
func (t *Table) UnitsInRect(x0, y0, x1, y1 uint16) []UnitRecord {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return t.collect(func(r *UnitRecord) bool {
		return r.CurrentX >= x0 && r.CurrentX <= x1 && r.CurrentY >= y0 && r.CurrentY <= y1
	})
}

func (t *Table) collect(match func(*UnitRecord) bool) []UnitRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []UnitRecord
	for i := range t.records {
		if t.states[i] == SlotLive && match(&t.records[i]) {
			out = append(out, t.records[i])
		}
	}
	return out
}

// Start refreshes the table every interval while gate reports true. A nil gate always passes.
func (t *Table) Start(ctx context.Context, interval time.Duration, gate func() bool) bool {
	t.pollMu.Lock()
	defer t.pollMu.Unlock()

	if t.poller != nil && t.poller.IsRunning() {
		return false
	}
	t.poller = poll.New("units", interval, func(ctx context.Context) error {
		if gate != nil && !gate() {
			return nil
		}
		return t.RefreshAll()
	})
	return t.poller.Start(ctx)
}

func (t *Table) Stop() {
	t.pollMu.Lock()
	defer t.pollMu.Unlock()
	if t.poller != nil {
		t.poller.Stop()
	}
}

func (t *Table) IsRunning() bool {
	t.pollMu.Lock()
	defer t.pollMu.Unlock()
	return t.poller != nil && t.poller.IsRunning()
}
