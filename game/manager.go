// Package game wires the memory components together behind the command surface the
// overlay talks to.
package game

import (
	"context"
	"sync"
	"time"

	"scmem/errs"
	"scmem/gamestate"
	"scmem/memaccess"
	"scmem/offsets"
	"scmem/process"
	"scmem/unitcount"
	"scmem/units"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	gopsprocess "github.com/shirou/gopsutil/v3/process"
)

const (
	DefaultUnitInterval  = 100 * time.Millisecond
	DefaultCountInterval = 100 * time.Millisecond
)

// DefaultModuleNames are tried, in order, when locating the game module.
var DefaultModuleNames = []string{"StarCraft.exe", "StarCraft_x64.exe", "starcraft"}

type Options struct {
	ModuleNames   []string
	StateInterval time.Duration
	UnitInterval  time.Duration
	CountInterval time.Duration
	UnitCapacity  int

	// ProcessName names a pid for GetStatus. The default asks the OS.
	ProcessName func(pid process.ProcessID) (string, error)
}

// Status is the GetStatus answer.
type Status struct {
	IsRunning          bool   `json:"isRunning"`
	IsGameDetected     bool   `json:"isGameDetected"`
	CurrentProcessName string `json:"currentProcessName"`
}

// Manager is the GameManager. It owns one client and the components reading through it.
type Manager struct {
	client   *memaccess.Client
	catalog  *offsets.Catalog
	resolver *gamestate.Resolver
	table    *units.Table
	tracker  *unitcount.Tracker
	opts     Options
	log      *logger.Logger

	mu          sync.Mutex
	pid         process.ProcessID
	processName string
	cancel      context.CancelFunc
	unsubscribe func()
}

func New(open memaccess.Opener, catalog *offsets.Catalog, opts Options) *Manager {
	if len(opts.ModuleNames) == 0 {
		opts.ModuleNames = DefaultModuleNames
	}
	if opts.UnitInterval <= 0 {
		opts.UnitInterval = DefaultUnitInterval
	}
	if opts.CountInterval <= 0 {
		opts.CountInterval = DefaultCountInterval
	}
	if opts.ProcessName == nil {
		opts.ProcessName = osProcessName
	}

	client := memaccess.New(open)
	m := &Manager{
		client:  client,
		catalog: catalog,
		resolver: gamestate.NewResolver(client, catalog, gamestate.Options{
			ModuleNames: opts.ModuleNames,
			Interval:    opts.StateInterval,
		}),
		table:   newTable(client, catalog, opts),
		tracker: unitcount.NewTracker(client, catalog),
		opts:    opts,
		log:     logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "game")),
	}
	return m
}

func newTable(client *memaccess.Client, catalog *offsets.Catalog, opts Options) *units.Table {
	return units.NewTable(client, units.TableOptions{
		Capacity:  opts.UnitCapacity,
		ArrayBase: catalog.ModulePointer(func(s offsets.StaticOffsets) int64 { return s.UnitArray }, opts.ModuleNames...),
	})
}

func osProcessName(pid process.ProcessID) (string, error) {
	p, err := gopsprocess.NewProcess(int32(pid))
	if err != nil {
		return "", err
	}
	return p.Name()
}

// Client exposes the memory client, for recording and diagnostics.
func (m *Manager) Client() *memaccess.Client { return m.client }

func (m *Manager) Resolver() *gamestate.Resolver { return m.resolver }

func (m *Manager) Units() *units.Table { return m.table }

func (m *Manager) Counts() *unitcount.Tracker { return m.tracker }

// Attach connects to pid. Detection is started separately.
func (m *Manager) Attach(pid process.ProcessID) bool {
	if !m.client.Attach(pid) {
		return false
	}

	name, err := m.opts.ProcessName(pid)
	if err != nil {
		m.log.Debugln("No process name for pid", pid, err)
	}

	m.mu.Lock()
	m.pid = pid
	m.processName = name
	m.mu.Unlock()

	m.table.Reset()
	m.tracker.Reset()
	return true
}

// Detach stops detection and releases the process.
func (m *Manager) Detach() {
	m.StopDetection()
	m.resolver.Disconnect()
	m.table.Reset()
	m.tracker.Reset()

	m.mu.Lock()
	m.pid = 0
	m.processName = ""
	m.mu.Unlock()
}

// StartDetection starts the state resolver and the unit and count pollers. The
// pollers only read while a match is detected.
func (m *Manager) StartDetection(ctx context.Context) error {
	m.mu.Lock()
	pid := m.pid
	m.mu.Unlock()
	if pid == 0 {
		return errs.New(errs.KindConnection, "game.StartDetection", "no process attached")
	}

	if _, err := m.catalog.Load(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		if m.resolver.IsRunning() {
			return nil
		}
		m.log.Warn("Detection had stopped on its own, restarting")
		m.stopLocked()
	}

	// pollers outlive the request that started them; only StopDetection ends them
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := m.resolver.Start(ctx, pid); err != nil {
		cancel()
		return err
	}

	// a finished match leaves nothing worth serving
	m.unsubscribe = m.resolver.OnChange(func(c gamestate.StateChange) {
		if !c.InGame {
			m.table.Reset()
			m.tracker.Reset()
		}
	})
	m.table.Start(ctx, m.opts.UnitInterval, m.resolver.IsInGame)
	m.tracker.Start(ctx, m.opts.CountInterval, m.resolver.IsInGame)
	m.cancel = cancel

	m.log.Infoln("Detection started for pid", pid)
	return nil
}

// StopDetection stops every poller. Reads already in flight finish.
func (m *Manager) StopDetection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopLocked() {
		m.log.Infoln("Detection stopped")
	}
}

// stopLocked must be called with m.mu held. It reports whether anything was running.
func (m *Manager) stopLocked() bool {
	cancel, unsubscribe := m.cancel, m.unsubscribe
	m.cancel, m.unsubscribe = nil, nil
	if cancel == nil {
		return false
	}
	m.table.Stop()
	m.tracker.Stop()
	m.resolver.Stop()
	unsubscribe()
	cancel()
	return true
}

func (m *Manager) IsDetectionRunning() bool {
	return m.resolver.IsRunning()
}

func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	name := m.processName
	m.mu.Unlock()

	return Status{
		IsRunning:          m.IsDetectionRunning(),
		IsGameDetected:     m.resolver.IsInGame(),
		CurrentProcessName: name,
	}
}

func (m *Manager) UnitCount(t units.UnitType, player int, includeProduction bool) (int, bool) {
	return m.tracker.Count(t, player, includeProduction)
}

func (m *Manager) AllUnitCounts(player int, includeProduction bool) map[units.UnitType]int {
	return m.tracker.AllCounts(player, includeProduction)
}

func (m *Manager) UnitCountsByCategory(player int, category units.Category, includeProduction bool) map[units.UnitType]int {
	return m.tracker.CountsByCategory(player, category, includeProduction)
}

// PlayerUnits is the bulk unit snapshot of one player.
func (m *Manager) PlayerUnits(player int) []units.UnitRecord {
	if player < 0 || player >= units.MaxPlayers {
		return nil
	}
	return m.table.PlayerUnits(uint8(player))
}

// PlayerSnapshot combines units, counts and supply of one player.
func (m *Manager) PlayerSnapshot(player int, includeProduction bool) PlayerSnapshot {
	return Player{Index: player}.Snapshot(m.table, m.tracker, includeProduction)
}

// Refresh runs one synchronous refresh of every component, for one-shot tools.
func (m *Manager) Refresh() error {
	if !m.resolver.Tick() {
		return errs.New(errs.KindResolution, "game.Refresh", "no match detected")
	}
	if err := m.table.RefreshAll(); err != nil {
		return err
	}
	return m.tracker.Refresh()
}
