//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"scmem/process"
)

// Modules lists every module of the target, 32- and 64-bit.
func (p *WindowsProcess) Modules() ([]process.Module, error) {
	handle := p.currentHandle()
	if handle == 0 {
		return nil, process.ErrProcessNotOpen
	}

	var needed uint32
	err := windows.EnumProcessModulesEx(handle, nil, 0, &needed, windows.LIST_MODULES_ALL)
	if err != nil {
		if errors.Is(err, windows.ERROR_PARTIAL_COPY) && needed == 0 {
			// process is not yet initialized OR started in a suspended state
			return nil, nil
		}
		return nil, fmt.Errorf("EnumProcessModulesEx: %w [needed=%d]", err, needed)
	}
	if needed == 0 {
		return nil, nil
	}

	numModules := int(needed) / int(unsafe.Sizeof(windows.Handle(0)))
	hModules := make([]windows.Handle, numModules)
	err = windows.EnumProcessModulesEx(handle, &hModules[0], needed, &needed, windows.LIST_MODULES_ALL)
	if err != nil {
		return nil, fmt.Errorf("EnumProcessModulesEx: %w [needed=%d]", err, needed)
	}
	// the list can shrink between the two calls
	if n := int(needed) / int(unsafe.Sizeof(windows.Handle(0))); n < numModules {
		numModules = n
	}

	modules := make([]process.Module, 0, numModules)
	for i := 0; i < numModules; i++ {
		var modName [windows.MAX_PATH]uint16
		if err := windows.GetModuleBaseName(handle, hModules[i], &modName[0], windows.MAX_PATH); err != nil {
			continue
		}

		var modPath [windows.MAX_PATH]uint16
		_ = windows.GetModuleFileNameEx(handle, hModules[i], &modPath[0], windows.MAX_PATH)

		var modInfo windows.ModuleInfo
		err = windows.GetModuleInformation(handle, hModules[i], &modInfo, uint32(unsafe.Sizeof(modInfo)))
		if err != nil {
			continue
		}

		modules = append(modules, process.Module{
			Name:        windows.UTF16ToString(modName[:]),
			Path:        windows.UTF16ToString(modPath[:]),
			BaseAddress: process.ProcessMemoryAddress(modInfo.BaseOfDll),
			ImageSize:   process.ProcessMemorySize(modInfo.SizeOfImage),
		})
	}

	return modules, nil
}
