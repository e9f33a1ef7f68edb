// Package gamestate detects whether a match is running in the attached game.
//
// The Resolver is Idle until Start resolves the in-game flag address, then Monitoring
// until Stop or Disconnect. Listeners hear only about changes.
package gamestate

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"scmem/errs"
	"scmem/memaccess"
	"scmem/offsets"
	"scmem/poll"
	"scmem/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

const (
	DefaultInterval = 500 * time.Millisecond
	// MapNameLength is the size of the map filename field.
	MapNameLength = 260
)

// MapExtensions are the filename extensions of playable maps.
var MapExtensions = []string{".scx", ".scm"}

// IsInGame is the match predicate. The flag alone is also set in some menus, so the
// loaded filename must be a map as well.
func IsInGame(flag process.ProcessMemoryAddress, mapFile string) bool {
	if flag == 0 {
		return false
	}
	ext := filepath.Ext(strings.ReplaceAll(mapFile, `\`, "/"))
	for _, want := range MapExtensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

// StateChange is delivered to listeners when the in-game value flips.
type StateChange struct {
	InGame  bool      `json:"inGame"`
	MapFile string    `json:"mapFile,omitempty"`
	At      time.Time `json:"at"`
}

// Snapshot is the resolver's current view.
type Snapshot struct {
	IsInGame      bool                         `json:"isInGame"`
	FlagAddress   process.ProcessMemoryAddress `json:"flagAddress"`
	MapFile       string                       `json:"mapFile,omitempty"`
	LastCheckedAt time.Time                    `json:"lastCheckedAt"`
}

type Options struct {
	ModuleNames []string
	Interval    time.Duration
}

// Resolver is the GameStateResolver.
type Resolver struct {
	client  *memaccess.Client
	catalog *offsets.Catalog
	opts    Options
	log     *logger.Logger

	// flag is resolved by Start only; a failed read drops it until the next Start.
	flag     *memaccess.AddressCache
	gameBase *memaccess.AddressCache

	// applyMu orders state changes with their notifications.
	applyMu sync.Mutex

	mu          sync.Mutex
	epoch       uint64 // bumped by Stop; ticks begun under an older epoch are dropped
	inGame      bool
	mapFile     string
	lastChecked time.Time

	handlersMu sync.RWMutex
	handlers   map[int]func(StateChange)
	nextID     int

	pollMu sync.Mutex
	poller *poll.Poller
}

func NewResolver(client *memaccess.Client, catalog *offsets.Catalog, opts Options) *Resolver {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	r := &Resolver{
		client:   client,
		catalog:  catalog,
		opts:     opts,
		log:      logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "gamestate")),
		gameBase: memaccess.NewAddressCache(client, catalog.GameBase()),
		handlers: make(map[int]func(StateChange)),
	}
	r.flag = memaccess.NewAddressCache(client, func(*memaccess.Client) (process.ProcessMemoryAddress, error) {
		return 0, errs.New(errs.KindResolution, "gamestate.Tick", "in-game flag address dropped, waiting for Start")
	})
	return r
}

// Start attaches to pid if needed, resolves the in-game flag address and begins
// monitoring. A missing module aborts the start; nothing retries it.
func (r *Resolver) Start(ctx context.Context, pid process.ProcessID) error {
	if !r.client.IsAttached() || r.client.PID() != pid {
		if !r.client.Attach(pid) {
			return errs.New(errs.KindConnection, "gamestate.Start", "attach to pid %d failed", pid)
		}
	}

	resolve := r.catalog.ModuleStatic(func(s offsets.StaticOffsets) int64 { return s.InGame }, r.opts.ModuleNames...)
	flag, err := resolve(r.client)
	if err != nil {
		r.log.Warn("Start aborted, in-game flag unresolved: ", err)
		return err
	}
	r.flag.Set(flag)

	r.pollMu.Lock()
	defer r.pollMu.Unlock()
	if r.poller != nil && r.poller.IsRunning() {
		r.log.Debugln("Already monitoring, flag re-resolved at", flag.ToString())
		return nil
	}
	r.poller = poll.New("gamestate", r.opts.Interval, func(ctx context.Context) error {
		r.Tick()
		return nil
	})
	r.poller.Start(ctx)

	r.log.Infoln("Monitoring pid", pid, "flag at", flag.ToString())
	return nil
}

// Tick runs one detection step and notifies listeners on a change. It returns the
// value it settled on.
func (r *Resolver) Tick() bool {
	r.mu.Lock()
	epoch := r.epoch
	r.mu.Unlock()

	inGame, mapFile := r.evaluate()
	if !r.apply(epoch, inGame, mapFile) {
		r.log.Debugln("Tick result dropped, resolver stopped meanwhile")
		return false
	}
	return inGame
}

// evaluate never fails: every failure reads as "not in game".
func (r *Resolver) evaluate() (bool, string) {
	if !r.client.IsConnected() {
		return false, ""
	}

	flagAddr, ok := r.flag.Cached()
	if !ok {
		return false, ""
	}
	flag, err := r.client.ReadPointer(flagAddr)
	if err != nil {
		r.log.Debugln("Flag read failed, dropping flag address:", err)
		r.flag.Invalidate()
		return false, ""
	}
	if flag == 0 {
		return false, ""
	}

	cfg, err := r.catalog.Load()
	if err != nil {
		return false, ""
	}
	base, err := r.gameBase.Get()
	if err != nil {
		r.log.Debugln("Game base unresolved:", err)
		return false, ""
	}
	mapFile, err := r.client.ReadFixedString(base.Add(cfg.MapNameOffset), MapNameLength)
	if err != nil {
		r.log.Debugln("Map name read failed, dropping game base:", err)
		r.gameBase.Invalidate()
		return false, ""
	}

	return IsInGame(flag, mapFile), mapFile
}

// apply stores a result observed under epoch. It reports false, and changes nothing,
// when Stop ran after the observation began.
func (r *Resolver) apply(epoch uint64, inGame bool, mapFile string) bool {
	r.applyMu.Lock()
	defer r.applyMu.Unlock()

	now := time.Now()

	r.mu.Lock()
	if r.epoch != epoch {
		r.mu.Unlock()
		return false
	}
	changed := r.inGame != inGame
	r.inGame = inGame
	if inGame {
		r.mapFile = mapFile
	} else {
		r.mapFile = ""
	}
	r.lastChecked = now
	r.mu.Unlock()

	if !changed {
		return true
	}
	if inGame {
		r.log.Infoln("Match started on", mapFile)
	} else {
		r.log.Infoln("Match ended")
	}
	r.notify(StateChange{InGame: inGame, MapFile: mapFile, At: now})
	return true
}

// OnChange registers fn for state changes and returns a function that removes it.
// Handlers run on the goroutine that observed the change, outside the state lock, one
// change at a time. A handler must not call Tick, Stop or Disconnect.
func (r *Resolver) OnChange(fn func(StateChange)) (unsubscribe func()) {
	r.handlersMu.Lock()
	defer r.handlersMu.Unlock()

	id := r.nextID
	r.nextID++
	r.handlers[id] = fn

	return func() {
		r.handlersMu.Lock()
		defer r.handlersMu.Unlock()
		delete(r.handlers, id)
	}
}

func (r *Resolver) notify(change StateChange) {
	r.handlersMu.RLock()
	ids := make([]int, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	handlers := make([]func(StateChange), 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		handlers = append(handlers, r.handlers[id])
	}
	r.handlersMu.RUnlock()

	for _, h := range handlers {
		h(change)
	}
}

// Stop ends monitoring, forces the state to false and clears the caches.
func (r *Resolver) Stop() {
	r.pollMu.Lock()
	if r.poller != nil {
		r.poller.Stop()
	}
	r.pollMu.Unlock()

	r.mu.Lock()
	r.epoch++
	epoch := r.epoch
	r.mu.Unlock()

	r.flag.Invalidate()
	r.gameBase.Invalidate()
	r.apply(epoch, false, "")
}

// Disconnect stops monitoring and detaches the client.
func (r *Resolver) Disconnect() {
	r.Stop()
	r.client.Detach()
	r.log.Infoln("Disconnected")
}

func (r *Resolver) IsRunning() bool {
	r.pollMu.Lock()
	defer r.pollMu.Unlock()
	return r.poller != nil && r.poller.IsRunning()
}

func (r *Resolver) IsInGame() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inGame
}

func (r *Resolver) Snapshot() Snapshot {
	flag, _ := r.flag.Cached()

	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		IsInGame:      r.inGame,
		FlagAddress:   flag,
		MapFile:       r.mapFile,
		LastCheckedAt: r.lastChecked,
	}
}
