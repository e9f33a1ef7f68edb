package game

import (
	"strings"

	"scmem/errs"
	"scmem/process"

	gopsprocess "github.com/shirou/gopsutil/v3/process"
)

// ProcessInfo is one running process as seen by FindProcess.
type ProcessInfo struct {
	PID  process.ProcessID
	Name string
}

// ListProcesses returns every process whose name the OS will tell us. Processes that
// exit while being listed are skipped.
func ListProcesses() ([]ProcessInfo, error) {
	procs, err := gopsprocess.Processes()
	if err != nil {
		return nil, errs.Wrap(errs.KindConnection, "game.ListProcesses", err, "list processes")
	}
	out := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		out = append(out, ProcessInfo{PID: process.ProcessID(p.Pid), Name: name})
	}
	return out, nil
}

// FindProcess picks the game process from candidates. Names are tried in order; each
// matches exactly (case-insensitive) before it matches as a substring.
func FindProcess(candidates []ProcessInfo, names []string) (ProcessInfo, bool) {
	for _, name := range names {
		for _, c := range candidates {
			if strings.EqualFold(c.Name, name) {
				return c, true
			}
		}
		lower := strings.ToLower(name)
		for _, c := range candidates {
			if strings.Contains(strings.ToLower(c.Name), lower) {
				return c, true
			}
		}
	}
	return ProcessInfo{}, false
}

// FindPID locates a running game process by module name.
func FindPID(names []string) (process.ProcessID, error) {
	procs, err := ListProcesses()
	if err != nil {
		return 0, err
	}
	if found, ok := FindProcess(procs, names); ok {
		return found.PID, nil
	}
	return 0, errs.New(errs.KindConnection, "game.FindPID", "no process named any of %v", names)
}
