// scmem_watch attaches to a running game, or replays a dump saved by scmem_record,
// and prints match state and per-player unit counts until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"scmem/config"
	"scmem/game"
	"scmem/memaccess"
	"scmem/offsets"
	"scmem/process"
	"scmem/process_blob"
	"scmem/table"
	"scmem/units"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

var log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "scmem_watch"))

func main() {
	every := flag.Duration("every", time.Second, "print interval")
	cfg, err := config.ParseConfigFromArgs(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(2)
	}

	open, pid, err := opener(cfg)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}

	m := game.New(open, offsets.NewCatalog(cfg.Catalog), game.Options{
		ModuleNames:   cfg.Modules,
		StateInterval: cfg.StateInterval,
		UnitInterval:  cfg.UnitInterval,
		CountInterval: cfg.CountInterval,
		UnitCapacity:  cfg.UnitCapacity,
	})
	if !m.Attach(pid) {
		fmt.Printf("Error attaching to process %d\n", pid)
		os.Exit(1)
	}
	defer m.Detach()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := m.StartDetection(ctx); err != nil {
		fmt.Println("Error starting detection:", err)
		os.Exit(1)
	}

	ticker := time.NewTicker(*every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Infoln("Interrupted")
			return
		case <-ticker.C:
			printStatus(m)
		}
	}
}

// opener picks a saved dump when -from is set, otherwise the live process.
func opener(cfg *config.Config) (memaccess.Opener, process.ProcessID, error) {
	if cfg.From != "" {
		dump := process_blob.NewProcessDump(0, "")
		if err := dump.Load(cfg.From); err != nil {
			return nil, 0, fmt.Errorf("load dump %s: %w", cfg.From, err)
		}
		log.Infoln("Replaying", dump.Name, "pid", dump.PID, "from", cfg.From)
		return dump.Opener(), dump.PID, nil
	}

	pid := process.ProcessID(cfg.PID)
	if pid == 0 {
		found, err := game.FindPID(cfg.Modules)
		if err != nil {
			return nil, 0, err
		}
		pid = found
	}
	return openLive, pid, nil
}

func printStatus(m *game.Manager) {
	status := m.GetStatus()
	snap := m.Resolver().Snapshot()

	state := "menu"
	if status.IsGameDetected {
		state = "in game"
	}
	fmt.Printf("\n%s  process=%s  state=%s  map=%q  live units=%d\n",
		time.Now().Format(time.TimeOnly), status.CurrentProcessName, state, snap.MapFile, m.Units().LiveCount())
	if !m.Counts().HasData() {
		return
	}

	tbl := table.New(
		table.Column{Header: "player", Right: true},
		table.Column{Header: "race"},
		table.Column{Header: "supply", Right: true},
		table.Column{Header: "workers", Right: true},
		table.Column{Header: "units", Right: true},
		table.Column{Header: "in table", Right: true},
	)
	for player := 0; player < offsets.CountPlayers; player++ {
		ps := m.PlayerSnapshot(player, true)
		total := ps.Counts[units.AllUnits.String()]
		if total == 0 && len(ps.Units) == 0 {
			continue
		}
		tbl.AddRow(
			strconv.Itoa(player),
			ps.Player.Race.String(),
			fmt.Sprintf("%d/%d", ps.Supply.Used, ps.Supply.Max),
			strconv.Itoa(ps.Workers),
			strconv.Itoa(total),
			strconv.Itoa(len(ps.Units)),
		)
	}
	if tbl.Len() == 0 {
		return
	}
	if err := tbl.Render(os.Stdout); err != nil {
		log.Warn("render:", err)
	}
}
