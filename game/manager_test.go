package game_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"scmem/errs"
	"scmem/fakegame"
	"scmem/game"
	"scmem/offsets"
	"scmem/process"
	"scmem/unitcount"
	"scmem/units"
)

func newManager(t *testing.T) (*fakegame.Game, *game.Manager) {
	t.Helper()
	g := fakegame.New(64)
	m := game.New(g.Dump.Opener(), g.Catalog(), game.Options{
		ModuleNames:   []string{fakegame.ModuleName},
		StateInterval: time.Hour,
		UnitInterval:  time.Hour,
		CountInterval: time.Hour,
		UnitCapacity:  64,
		ProcessName:   func(process.ProcessID) (string, error) { return fakegame.ModuleName, nil },
	})
	t.Cleanup(m.Detach)
	return g, m
}

func populate(g *fakegame.Game) {
	g.PutUnit(0, units.UnitRecord{UnitType: units.TerranSCV, PlayerIndex: 0, Health: 60, ProductionQueue: units.EmptyQueue()})
	g.PutUnit(1, units.UnitRecord{UnitType: units.TerranSCV, PlayerIndex: 0, Health: 60, ProductionQueue: units.EmptyQueue()})
	g.PutUnit(2, units.UnitRecord{UnitType: units.ZergDrone, PlayerIndex: 1, Health: 40, ProductionQueue: units.EmptyQueue()})
	g.SetCount(units.TerranSCV, 0, 2, 1)
	g.SetCount(units.TerranCommandCenter, 0, 1, 0)
	g.SetCount(units.ZergDrone, 1, 1, 0)
	g.SetSupply(units.Terran, 0, 3, 10)
	g.SetSupply(units.Zerg, 1, 1, 9)
}

func TestDetectionLifecycle(t *testing.T) {
	g, m := newManager(t)

	if err := m.StartDetection(context.Background()); !errors.Is(err, errs.ErrConnection) {
		t.Fatalf("start without attach err = %v", err)
	}
	if !m.Attach(fakegame.PID) {
		t.Fatalf("attach failed")
	}
	if err := m.StartDetection(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !m.IsDetectionRunning() || !m.Units().IsRunning() || !m.Counts().IsRunning() {
		t.Fatalf("not every poller is running")
	}

	want := game.Status{IsRunning: true, IsGameDetected: false, CurrentProcessName: fakegame.ModuleName}
	if diff := cmp.Diff(want, m.GetStatus()); diff != "" {
		t.Fatalf("status mismatch (-want +got):\n%s", diff)
	}

	populate(g)
	g.EnterMatch("(2)Bottleneck.scm")
	if err := m.Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !m.GetStatus().IsGameDetected {
		t.Fatalf("match not detected")
	}

	if n, ok := m.UnitCount(units.TerranSCV, 0, true); !ok || n != 3 {
		t.Fatalf("UnitCount = %d, %v", n, ok)
	}
	if got := m.AllUnitCounts(0, false)[units.AllUnits]; got != 3 {
		t.Fatalf("AllUnits = %d, want 3", got)
	}
	if got := m.UnitCountsByCategory(0, units.CategoryBuilding, false)[units.TerranCommandCenter]; got != 1 {
		t.Fatalf("command centers = %d", got)
	}
	if got := m.PlayerUnits(0); len(got) != 2 {
		t.Fatalf("PlayerUnits = %+v", got)
	}

	g.LeaveMatch()
	m.Resolver().Tick()
	if m.Units().LiveCount() != 0 || m.Counts().HasData() {
		t.Fatalf("data kept after the match ended")
	}

	m.StopDetection()
	if m.IsDetectionRunning() || m.Units().IsRunning() || m.Counts().IsRunning() {
		t.Fatalf("pollers still running after StopDetection")
	}
	m.StopDetection()
}

func TestRefreshOutsideMatch(t *testing.T) {
	_, m := newManager(t)
	if !m.Attach(fakegame.PID) {
		t.Fatalf("attach failed")
	}
	if err := m.StartDetection(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Refresh(); !errors.Is(err, errs.ErrResolution) {
		t.Fatalf("refresh err = %v", err)
	}
}

func TestPlayerSnapshot(t *testing.T) {
	g, m := newManager(t)
	if !m.Attach(fakegame.PID) {
		t.Fatalf("attach failed")
	}
	if err := m.StartDetection(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	populate(g)
	g.EnterMatch("x.scx")
	if err := m.Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	snap := m.PlayerSnapshot(1, false)
	if snap.Player.Race != units.Zerg {
		t.Fatalf("race = %s, want zerg", snap.Player.Race)
	}
	if snap.Supply != (unitcount.SupplyCount{Used: 1, Max: 9}) {
		t.Fatalf("supply = %+v", snap.Supply)
	}
	if snap.Workers != 1 || len(snap.Units) != 1 || snap.Counts["Zerg_Drone"] != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestDetachStopsEverything(t *testing.T) {
	_, m := newManager(t)
	if !m.Attach(fakegame.PID) {
		t.Fatalf("attach failed")
	}
	if err := m.StartDetection(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	m.Detach()
	if m.IsDetectionRunning() || m.Client().IsAttached() {
		t.Fatalf("still running or attached after Detach")
	}
	if diff := cmp.Diff(game.Status{}, m.GetStatus()); diff != "" {
		t.Fatalf("status after detach (-want +got):\n%s", diff)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDetectionOutlivesRequestContext(t *testing.T) {
	g := fakegame.New(16)
	m := game.New(g.Dump.Opener(), g.Catalog(), game.Options{
		ModuleNames:   []string{fakegame.ModuleName},
		StateInterval: 2 * time.Millisecond,
		UnitInterval:  2 * time.Millisecond,
		CountInterval: 2 * time.Millisecond,
		UnitCapacity:  16,
		ProcessName:   func(process.ProcessID) (string, error) { return fakegame.ModuleName, nil },
	})
	t.Cleanup(m.Detach)

	ctx, cancel := context.WithCancel(context.Background())
	if r := m.Dispatch(ctx, game.Request{Command: game.CmdAttach, PID: int(fakegame.PID)}); !r.OK {
		t.Fatalf("attach: %+v", r)
	}
	if r := m.Dispatch(ctx, game.Request{Command: game.CmdStartDetection}); !r.OK {
		t.Fatalf("start: %+v", r)
	}
	cancel()

	populate(g)
	g.EnterMatch("x.scx")
	waitFor(t, "match detected after the request context ended", func() bool {
		return m.GetStatus().IsGameDetected
	})
	waitFor(t, "counts", m.Counts().HasData)
	if !m.IsDetectionRunning() {
		t.Fatalf("detection not running")
	}
}

func TestStartDetectionRestartsStoppedResolver(t *testing.T) {
	g, m := newManager(t)
	if !m.Attach(fakegame.PID) {
		t.Fatalf("attach failed")
	}
	if err := m.StartDetection(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	m.Resolver().Stop()
	if m.IsDetectionRunning() {
		t.Fatalf("resolver still running")
	}
	if err := m.StartDetection(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if !m.IsDetectionRunning() || !m.Units().IsRunning() || !m.Counts().IsRunning() {
		t.Fatalf("detection not restarted")
	}

	populate(g)
	g.EnterMatch("x.scx")
	if err := m.Refresh(); err != nil {
		t.Fatalf("refresh after restart: %v", err)
	}
}

func TestCatalogWrittenAfterNew(t *testing.T) {
	g := fakegame.New(16)
	dir := t.TempDir()
	m := game.New(g.Dump.Opener(), offsets.NewCatalog(filepath.Join(dir, "catalog.json")), game.Options{
		ModuleNames:   []string{fakegame.ModuleName},
		StateInterval: time.Hour,
		UnitInterval:  time.Hour,
		CountInterval: time.Hour,
		UnitCapacity:  16,
		ProcessName:   func(process.ProcessID) (string, error) { return fakegame.ModuleName, nil },
	})
	t.Cleanup(m.Detach)

	if !m.Attach(fakegame.PID) {
		t.Fatalf("attach failed")
	}
	if err := m.StartDetection(context.Background()); !errors.Is(err, errs.ErrConfigNotFound) {
		t.Fatalf("start without catalog err = %v", err)
	}

	if _, err := g.WriteCatalog(dir); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if err := m.StartDetection(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	populate(g)
	g.EnterMatch("x.scx")
	if err := m.Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := len(m.PlayerUnits(0)); got != 2 {
		t.Fatalf("PlayerUnits(0) = %d, want 2", got)
	}
}
