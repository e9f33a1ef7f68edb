//go:build linux

package process_linux

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"scmem/process"
)

// Threads lists /proc/<pid>/task in ascending tid order. Wine does not expose TEB
// addresses through procfs, so TebBaseAddress is left zero.
func (p *LinuxProcess) Threads() ([]process.Thread, error) {
	pid := p.GetPID()
	if pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	entries, err := os.ReadDir(fmt.Sprintf("/proc/%d/task", pid))
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	tids := make([]int, 0, len(entries))
	for _, e := range entries {
		tid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		tids = append(tids, tid)
	}
	sort.Ints(tids)

	threads := make([]process.Thread, len(tids))
	for i, tid := range tids {
		threads[i] = process.Thread{ThreadID: uint32(tid), Index: i}
	}
	return threads, nil
}
