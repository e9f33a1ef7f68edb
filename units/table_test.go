package units_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"scmem/errs"
	"scmem/fakegame"
	"scmem/memaccess"
	"scmem/units"
)

func newTable(t *testing.T, capacity int) (*fakegame.Game, *units.Table) {
	t.Helper()
	g := fakegame.New(capacity)
	c := g.Client()
	if !c.Attach(fakegame.PID) {
		t.Fatalf("attach failed")
	}
	t.Cleanup(c.Detach)

	table := units.NewTable(c, units.TableOptions{
		Capacity:  capacity,
		ArrayBase: memaccess.ModulePointer(g.Config.StaticOffsets.UnitArray, fakegame.ModuleName),
	})
	return g, table
}

func unit(t units.UnitType, player uint8, x, y uint16) units.UnitRecord {
	return units.UnitRecord{
		UnitType:        t,
		PlayerIndex:     player,
		CurrentX:        x,
		CurrentY:        y,
		Health:          40,
		ProductionQueue: units.EmptyQueue(),
	}
}

func TestRefreshAllDecodesLiveSlots(t *testing.T) {
	g, table := newTable(t, 32)
	g.PutUnit(0, unit(units.TerranSCV, 0, 100, 100))
	g.PutUnit(3, unit(units.TerranMarine, 0, 200, 150))
	g.PutUnit(4, unit(units.ZergDrone, 1, 300, 300))
	g.PutUnit(9, unit(units.TerranMarine, 12, 50, 50)) // neutral, not valid

	if err := table.RefreshAll(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if table.LiveCount() != 3 {
		t.Fatalf("LiveCount = %d, want 3", table.LiveCount())
	}
	if table.LastRefresh().IsZero() {
		t.Fatalf("LastRefresh not set")
	}

	rec, state := table.Slot(3)
	if state != units.SlotLive || rec.Slot != 3 || rec.UnitType != units.TerranMarine {
		t.Fatalf("slot 3 = %+v (%s)", rec, state)
	}
	if _, state := table.Slot(9); state != units.SlotEmpty {
		t.Fatalf("neutral slot state = %s", state)
	}

	marines := table.UnitsOfType(units.TerranMarine)
	if len(marines) != 1 || marines[0].Slot != 3 {
		t.Fatalf("UnitsOfType = %+v", marines)
	}

	inRect := table.UnitsInRect(350, 350, 90, 90)
	var slots []int
	for _, r := range inRect {
		slots = append(slots, r.Slot)
	}
	if diff := cmp.Diff([]int{0, 3, 4}, slots); diff != "" {
		t.Fatalf("UnitsInRect slots (-want +got):\n%s", diff)
	}
	if got := table.UnitsInRect(0, 0, 99, 99); len(got) != 0 {
		t.Fatalf("UnitsInRect outside = %+v", got)
	}
}

func TestRefreshOverwritesInPlace(t *testing.T) {
	g, table := newTable(t, 8)
	g.PutUnit(2, unit(units.ProtossZealot, 2, 10, 10))
	if err := table.RefreshAll(); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	g.ClearUnit(2)
	g.PutUnit(5, unit(units.ProtossDragoon, 2, 20, 20))
	if err := table.RefreshAll(); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	got := table.PlayerUnits(2)
	if len(got) != 1 || got[0].Slot != 5 || got[0].UnitType != units.ProtossDragoon {
		t.Fatalf("PlayerUnits = %+v", got)
	}
}

func TestWritePlayerUnitsInto(t *testing.T) {
	g, table := newTable(t, 64)
	for slot := 0; slot < 10; slot++ {
		g.PutUnit(slot*3, unit(units.ZergZergling, 4, uint16(slot), 0))
	}
	g.PutUnit(1, unit(units.ZergZergling, 5, 0, 0))
	if err := table.RefreshAll(); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	tests := []struct {
		name     string
		bufLen   int
		maxCount int
		want     int
	}{
		{name: "max below count", bufLen: 16, maxCount: 4, want: 4},
		{name: "max above count", bufLen: 16, maxCount: 12, want: 10},
		{name: "buffer shorter than max", bufLen: 3, maxCount: 10, want: 3},
		{name: "zero max", bufLen: 16, maxCount: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]units.UnitRecord, tt.bufLen)
			for i := range buf {
				buf[i].Slot = -1
			}
			n := table.WritePlayerUnitsInto(4, buf, tt.maxCount)
			if n != tt.want {
				t.Fatalf("written = %d, want %d", n, tt.want)
			}
			for i := 0; i < n; i++ {
				if buf[i].PlayerIndex != 4 {
					t.Fatalf("buf[%d] belongs to player %d", i, buf[i].PlayerIndex)
				}
			}
			for i := n; i < len(buf); i++ {
				if buf[i].Slot != -1 {
					t.Fatalf("buf[%d] written beyond count", i)
				}
			}
		})
	}
}

func TestWritePlayerUnitsIntoDoesNotAllocate(t *testing.T) {
	g, table := newTable(t, 64)
	g.PutUnit(7, unit(units.TerranSCV, 0, 1, 1))
	if err := table.RefreshAll(); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	buf := make([]units.UnitRecord, 8)
	allocs := testing.AllocsPerRun(100, func() {
		table.WritePlayerUnitsInto(0, buf, len(buf))
	})
	if allocs != 0 {
		t.Fatalf("WritePlayerUnitsInto allocated %.1f times per call", allocs)
	}
}

func TestFailedRefreshMarksSlotsStale(t *testing.T) {
	g, table := newTable(t, 8)
	g.PutUnit(1, unit(units.TerranSCV, 0, 1, 1))
	if err := table.RefreshAll(); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	g.Dump.RemoveRegion(fakegame.UnitArray)
	err := table.RefreshAll()
	if !errors.Is(err, errs.ErrRead) {
		t.Fatalf("refresh err = %v, want read error", err)
	}
	if _, state := table.Slot(1); state != units.SlotStale {
		t.Fatalf("slot state = %s, want stale", state)
	}
	if table.LiveCount() != 0 || len(table.PlayerUnits(0)) != 0 {
		t.Fatalf("stale slots still served")
	}
}

func TestArrayBaseIsReresolvedAfterReadFailure(t *testing.T) {
	g, table := newTable(t, 8)
	table.SetArrayBase(0x10) // wrong, unmapped

	if err := table.RefreshAll(); err == nil {
		t.Fatalf("refresh from a bad injected base succeeded")
	}

	g.PutUnit(0, unit(units.TerranSCV, 0, 1, 1))
	if err := table.RefreshAll(); err != nil {
		t.Fatalf("refresh after invalidation: %v", err)
	}
	if base, err := table.ResolveArrayBase(); err != nil || base != fakegame.UnitArray {
		t.Fatalf("ResolveArrayBase = %s, %v", base.ToString(), err)
	}
	if table.LiveCount() != 1 {
		t.Fatalf("LiveCount = %d", table.LiveCount())
	}
}

func TestReset(t *testing.T) {
	g, table := newTable(t, 8)
	g.PutUnit(0, unit(units.TerranSCV, 0, 1, 1))
	if err := table.RefreshAll(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	table.Reset()
	if table.LiveCount() != 0 || !table.LastRefresh().IsZero() {
		t.Fatalf("Reset left live slots")
	}
}

func TestResetDiscardsRefreshInFlight(t *testing.T) {
	const capacity = 16
	g := fakegame.New(capacity)
	c, stall := g.StallingClient(capacity * units.RecordSize)
	if !c.Attach(fakegame.PID) {
		t.Fatalf("attach failed")
	}
	t.Cleanup(c.Detach)
	table := units.NewTable(c, units.TableOptions{
		Capacity:  capacity,
		ArrayBase: memaccess.ModulePointer(g.Config.StaticOffsets.UnitArray, fakegame.ModuleName),
	})
	g.PutUnit(0, unit(units.TerranSCV, 0, 1, 1))

	stall.Arm()
	done := make(chan error)
	go func() { done <- table.RefreshAll() }()
	stall.Wait()

	table.Reset()
	stall.Release()
	if err := <-done; err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if n := table.LiveCount(); n != 0 {
		t.Fatalf("LiveCount = %d after Reset, want 0", n)
	}

	if err := table.RefreshAll(); err != nil {
		t.Fatalf("refresh after reset: %v", err)
	}
	if n := table.LiveCount(); n != 1 {
		t.Fatalf("LiveCount = %d on the next refresh, want 1", n)
	}
}

func TestNoArrayBaseResolver(t *testing.T) {
	g := fakegame.New(4)
	c := g.Client()
	if !c.Attach(fakegame.PID) {
		t.Fatalf("attach failed")
	}
	t.Cleanup(c.Detach)

	table := units.NewTable(c, units.TableOptions{Capacity: 4})
	if err := table.RefreshAll(); !errors.Is(err, errs.ErrResolution) {
		t.Fatalf("err = %v, want resolution error", err)
	}
	table.SetArrayBase(fakegame.UnitArray)
	if err := table.RefreshAll(); err != nil {
		t.Fatalf("refresh with injected base: %v", err)
	}
}
