// scmem_record attaches to a running game, refreshes every component once while a
// match is on, and saves every byte that was read as a dump scmem_watch can replay.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"scmem/config"
	"scmem/game"
	"scmem/offsets"
	"scmem/process"
	"scmem/process_blob"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

var log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "scmem_record"))

func main() {
	cfg, err := config.ParseConfigFromArgs(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(2)
	}
	if cfg.Out == "" {
		fmt.Println("Error: -out is required")
		flag.Usage()
		os.Exit(2)
	}

	pid := process.ProcessID(cfg.PID)
	if pid == 0 {
		if pid, err = game.FindPID(cfg.Modules); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
	}

	var recorder *process_blob.Recorder
	open := func(pid process.ProcessID) (process.Process, error) {
		live, err := openLive(pid)
		if err != nil {
			return nil, err
		}
		recorder = process_blob.NewRecorder(live, cfg.Modules[0])
		return recorder, nil
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

	if err := m.StartDetection(context.Background()); err != nil {
		fmt.Println("Error starting detection:", err)
		os.Exit(1)
	}
	if err := m.Refresh(); err != nil {
		fmt.Println("Error reading match:", err)
		os.Exit(1)
	}
	m.StopDetection()

	if err := recorder.Dump().Save(cfg.Out); err != nil {
		fmt.Println("Error saving dump:", err)
		os.Exit(1)
	}
	if err := copyFile(cfg.Catalog, filepath.Join(cfg.Out, filepath.Base(cfg.Catalog))); err != nil {
		log.Warn("catalog not copied:", err)
	}
	log.Infoln("Recorded pid", pid, "to", cfg.Out, "live units", m.Units().LiveCount())
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
