//go:build linux

package process_linux

import (
	"fmt"
	"path"
	"strings"

	"scmem/process"
	"scmem/process/memory_map"
)

// Modules derives PE images from file-backed mappings. Wine maps every .exe and .dll
// it loads, so the lowest and highest mapping of a file bound the image.
func (p *LinuxProcess) Modules() ([]process.Module, error) {
	pid := p.GetPID()
	if pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	mm, err := memory_map.ReadMemoryMap(int(pid))
	if err != nil {
		return nil, fmt.Errorf("failed to read memory map: %w", err)
	}
	return modulesFromMaps(mm), nil
}

func modulesFromMaps(mm []memory_map.MemoryMapItem) []process.Module {
	var modules []process.Module
	byPath := make(map[string]int)

	for _, item := range mm {
		if !isImagePath(item.Path) {
			continue
		}

		i, seen := byPath[item.Path]
		if !seen {
			byPath[item.Path] = len(modules)
			modules = append(modules, process.Module{
				Name:        moduleBaseName(item.Path),
				Path:        item.Path,
				BaseAddress: process.ProcessMemoryAddress(item.Address),
				ImageSize:   process.ProcessMemorySize(item.Size),
			})
			continue
		}

		m := &modules[i]
		end := m.BaseAddress + process.ProcessMemoryAddress(m.ImageSize)
		if itemEnd := process.ProcessMemoryAddress(item.End()); itemEnd > end {
			end = itemEnd
		}
		if start := process.ProcessMemoryAddress(item.Address); start < m.BaseAddress {
			m.BaseAddress = start
		}
		m.ImageSize = process.ProcessMemorySize(end - m.BaseAddress)
	}

	return modules
}

func isImagePath(p string) bool {
	lower := strings.ToLower(p)
	return strings.HasSuffix(lower, ".exe") || strings.HasSuffix(lower, ".dll")
}

func moduleBaseName(p string) string {
	return path.Base(strings.ReplaceAll(p, `\`, "/"))
}
