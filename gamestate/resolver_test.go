package gamestate_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"scmem/errs"
	"scmem/fakegame"
	"scmem/gamestate"
	"scmem/process"
)

func newResolver(t *testing.T) (*fakegame.Game, *gamestate.Resolver) {
	t.Helper()
	g := fakegame.New(8)
	r := gamestate.NewResolver(g.Client(), g.Catalog(), gamestate.Options{
		ModuleNames: []string{fakegame.ModuleName},
		Interval:    time.Hour, // tests drive Tick directly
	})
	t.Cleanup(r.Disconnect)
	return g, r
}

type recorder struct {
	mu      sync.Mutex
	changes []gamestate.StateChange
}

func (r *recorder) handle(c gamestate.StateChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) values() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]bool, len(r.changes))
	for i, c := range r.changes {
		out[i] = c.InGame
	}
	return out
}

func TestIsInGamePredicate(t *testing.T) {
	tests := []struct {
		name string
		flag process.ProcessMemoryAddress
		file string
		want bool
	}{
		{name: "null flag with map", flag: 0, file: "x.scx", want: false},
		{name: "scx", flag: 1, file: "x.scx", want: true},
		{name: "scm upper case", flag: 1, file: `C:\maps\(4)Lost Temple.SCM`, want: true},
		{name: "text file", flag: 1, file: "readme.txt", want: false},
		{name: "no extension", flag: 1, file: "scx", want: false},
		{name: "empty", flag: 1, file: "", want: false},
		{name: "replay", flag: 0xDEAD, file: "LastReplay.rep", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gamestate.IsInGame(tt.flag, tt.file); got != tt.want {
				t.Fatalf("IsInGame(%#x, %q) = %v, want %v", uint64(tt.flag), tt.file, got, tt.want)
			}
		})
	}
}

func TestEdgeTriggeredNotifications(t *testing.T) {
	g, r := newResolver(t)
	if err := r.Start(context.Background(), fakegame.PID); err != nil {
		t.Fatalf("start: %v", err)
	}

	var rec recorder
	r.OnChange(rec.handle)

	for i, inGame := range []bool{false, false, true, true, false} {
		if inGame {
			g.EnterMatch(`maps\(2)Destination.scx`)
		} else {
			g.LeaveMatch()
		}
		if got := r.Tick(); got != inGame {
			t.Fatalf("tick %d = %v, want %v", i, got, inGame)
		}
	}

	if got := rec.values(); len(got) != 2 || got[0] != true || got[1] != false {
		t.Fatalf("notifications = %v, want [true false]", got)
	}
}

func TestFlagWithoutMapIsNotInGame(t *testing.T) {
	g, r := newResolver(t)
	if err := r.Start(context.Background(), fakegame.PID); err != nil {
		t.Fatalf("start: %v", err)
	}

	g.SetInGameFlag(0x1234)
	g.SetMapName("")
	if r.Tick() {
		t.Fatalf("flag alone counted as in game")
	}
	g.SetMapName("campaign.txt")
	if r.Tick() {
		t.Fatalf("non-map file counted as in game")
	}
	g.SetMapName("ladder.scm")
	if !r.Tick() {
		t.Fatalf("flag and map not counted as in game")
	}
	if snap := r.Snapshot(); snap.MapFile != "ladder.scm" || snap.LastCheckedAt.IsZero() {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestStartFailures(t *testing.T) {
	g, _ := newResolver(t)

	r := gamestate.NewResolver(g.Client(), g.Catalog(), gamestate.Options{ModuleNames: []string{"Warcraft.exe"}})
	if err := r.Start(context.Background(), fakegame.PID); !errors.Is(err, errs.ErrResolution) {
		t.Fatalf("missing module err = %v", err)
	}
	if r.IsRunning() {
		t.Fatalf("resolver running after aborted start")
	}

	other := gamestate.NewResolver(g.Client(), g.Catalog(), gamestate.Options{ModuleNames: []string{fakegame.ModuleName}})
	if err := other.Start(context.Background(), 99); !errors.Is(err, errs.ErrConnection) {
		t.Fatalf("bad pid err = %v", err)
	}
}

func TestFlagReadFailureDropsAddressUntilStart(t *testing.T) {
	g, r := newResolver(t)
	if err := r.Start(context.Background(), fakegame.PID); err != nil {
		t.Fatalf("start: %v", err)
	}
	g.EnterMatch("a.scx")
	if !r.Tick() {
		t.Fatalf("not in game")
	}

	g.Dump.RemoveRegion(fakegame.ModuleBase + 0x2000)
	var rec recorder
	r.OnChange(rec.handle)
	if r.Tick() {
		t.Fatalf("in game after flag read failure")
	}
	if r.Snapshot().FlagAddress != 0 {
		t.Fatalf("flag address kept after read failure")
	}

	// memory is back, but nothing re-resolves the flag until Start
	g.Dump.AddRegion(fakegame.ModuleBase+0x2000, 0x200)
	g.EnterMatch("a.scx")
	if r.Tick() {
		t.Fatalf("tick re-resolved the flag on its own")
	}

	if err := r.Start(context.Background(), fakegame.PID); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if !r.Tick() {
		t.Fatalf("not in game after restart")
	}
	if got := rec.values(); len(got) != 2 {
		t.Fatalf("notifications = %v, want [false true]", got)
	}
}

func TestGameBaseFailureIsNotInGame(t *testing.T) {
	g, r := newResolver(t)
	if err := r.Start(context.Background(), fakegame.PID); err != nil {
		t.Fatalf("start: %v", err)
	}
	g.EnterMatch("a.scx")
	g.BreakGameBase()
	if r.Tick() {
		t.Fatalf("in game with a broken base chain")
	}
	g.RestoreGameBase()
	if !r.Tick() {
		t.Fatalf("base chain not re-resolved on the next tick")
	}
}

func TestDisconnectForcesFalseAndReresolves(t *testing.T) {
	g, r := newResolver(t)
	if err := r.Start(context.Background(), fakegame.PID); err != nil {
		t.Fatalf("start: %v", err)
	}
	g.EnterMatch("a.scx")
	r.Tick()

	var rec recorder
	unsubscribe := r.OnChange(rec.handle)

	r.Disconnect()
	if r.IsInGame() || r.IsRunning() {
		t.Fatalf("state after disconnect: inGame=%v running=%v", r.IsInGame(), r.IsRunning())
	}
	if got := rec.values(); len(got) != 1 || got[0] {
		t.Fatalf("disconnect notifications = %v, want [false]", got)
	}
	before := r.Snapshot().FlagAddress
	if before != 0 {
		t.Fatalf("flag address survived disconnect: %s", before.ToString())
	}

	// the module moves while detached; the next resolution must see the new base
	moved := fakegame.ModuleBase + 0x4000000
	g.RelocateModule(moved)
	g.EnterMatch("a.scx")

	if err := r.Start(context.Background(), fakegame.PID); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if got := r.Snapshot().FlagAddress; got != moved+0x2000 {
		t.Fatalf("flag address = %s, want %s", got.ToString(), (moved + 0x2000).ToString())
	}
	if !r.Tick() {
		t.Fatalf("not in game after reconnect")
	}

	unsubscribe()
	r.Stop()
	if got := rec.values(); len(got) != 2 {
		t.Fatalf("handler ran after unsubscribe: %v", got)
	}
}

func TestStopWhileIdleIsSilent(t *testing.T) {
	_, r := newResolver(t)
	var rec recorder
	r.OnChange(rec.handle)
	r.Stop()
	r.Stop()
	if got := rec.values(); len(got) != 0 {
		t.Fatalf("notifications = %v", got)
	}
}

func TestPollerDrivesTicks(t *testing.T) {
	g := fakegame.New(8)
	r := gamestate.NewResolver(g.Client(), g.Catalog(), gamestate.Options{
		ModuleNames: []string{fakegame.ModuleName},
		Interval:    time.Millisecond,
	})
	defer r.Disconnect()

	changed := make(chan gamestate.StateChange, 4)
	r.OnChange(func(c gamestate.StateChange) { changed <- c })

	g.EnterMatch("b.scm")
	if err := r.Start(context.Background(), fakegame.PID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !r.IsRunning() {
		t.Fatalf("resolver not running")
	}

	select {
	case c := <-changed:
		if !c.InGame || c.MapFile != "b.scm" {
			t.Fatalf("change = %+v", c)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no change observed")
	}
}

func TestStopDropsTickInFlight(t *testing.T) {
	g := fakegame.New(8)
	client, stall := g.StallingClient(gamestate.MapNameLength)
	r := gamestate.NewResolver(client, g.Catalog(), gamestate.Options{
		ModuleNames: []string{fakegame.ModuleName},
		Interval:    time.Hour,
	})
	t.Cleanup(r.Disconnect)

	if err := r.Start(context.Background(), fakegame.PID); err != nil {
		t.Fatalf("start: %v", err)
	}
	var rec recorder
	r.OnChange(rec.handle)
	g.EnterMatch("x.scx")

	stall.Arm()
	done := make(chan bool)
	go func() { done <- r.Tick() }()
	stall.Wait()

	r.Stop()
	stall.Release()
	if got := <-done; got {
		t.Fatalf("tick begun before Stop reported in game")
	}

	if r.IsInGame() || r.IsRunning() {
		t.Fatalf("after Stop: IsInGame=%v IsRunning=%v", r.IsInGame(), r.IsRunning())
	}
	if got := rec.values(); len(got) != 0 {
		t.Fatalf("notifications after Stop = %v, want none", got)
	}
}
