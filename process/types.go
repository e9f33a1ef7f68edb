package process

import "strings"

// ProcessID represents a unique identifier for a process
type ProcessID int

// Module is an executable image mapped into the target process.
type Module struct {
	Name        string               // Base name, e.g. "kernel32.dll"
	Path        string               // Full path when the platform reports one
	BaseAddress ProcessMemoryAddress // Load address
	ImageSize   ProcessMemorySize    // Size of the mapped image
}

// Contains reports whether addr lies inside the module image.
func (m Module) Contains(addr ProcessMemoryAddress) bool {
	return addr >= m.BaseAddress && addr < m.BaseAddress+ProcessMemoryAddress(m.ImageSize)
}

// NameMatches compares module names without regard to case.
func (m Module) NameMatches(name string) bool {
	return strings.EqualFold(m.Name, name)
}

// Thread is one entry of a thread snapshot of the target process.
type Thread struct {
	ThreadID       uint32
	TebBaseAddress ProcessMemoryAddress // zero when the platform cannot report it
	Index          int                  // position in the snapshot, not creation order
}
