package process_blob

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"scmem/process"
	"scmem/process/memory_map"
)

// ProcessDump implements process.Process over memory held locally: a process snapshot
// loaded from disk, a recording of a live session, or a synthetic process built in tests.
type ProcessDump struct {
	PID       process.ProcessID
	Name      string
	MemoryMap []memory_map.MemoryMapItem
	Blobs     map[uint64][]byte // Address -> Data
	ModuleSet []process.Module
	ThreadSet []process.Thread

	mu     sync.RWMutex
	alive  bool
	opened bool
}

var _ process.Process = (*ProcessDump)(nil)

// NewProcessDump creates an empty, alive dump for pid.
func NewProcessDump(pid process.ProcessID, name string) *ProcessDump {
	return &ProcessDump{
		PID:   pid,
		Name:  name,
		Blobs: make(map[uint64][]byte),
		alive: true,
	}
}

// Opener returns an open function for memaccess that hands out this dump for its own pid.
func (p *ProcessDump) Opener() func(pid process.ProcessID) (process.Process, error) {
	return func(pid process.ProcessID) (process.Process, error) {
		if err := p.Open(pid); err != nil {
			return nil, err
		}
		return p, nil
	}
}

func (p *ProcessDump) Open(pid process.ProcessID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pid != p.PID {
		return fmt.Errorf("dump holds pid %d, not %d", p.PID, pid)
	}
	if !p.alive {
		return fmt.Errorf("process %d has exited", pid)
	}
	p.opened = true
	return nil
}

// Close marks the dump closed; the data stays so the same dump can be reopened.
func (p *ProcessDump) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opened = false
	return nil
}

func (p *ProcessDump) GetPID() process.ProcessID {
	return p.PID
}

func (p *ProcessDump) IsAlive() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.alive && p.opened
}

// Kill simulates the target exiting: every later read fails.
func (p *ProcessDump) Kill() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alive = false
}

// Revive undoes Kill.
func (p *ProcessDump) Revive() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alive = true
}

// AddRegion maps a zeroed region and returns its backing slice.
func (p *ProcessDump) AddRegion(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	data := make([]byte, size)
	p.Blobs[uint64(addr)] = data
	p.MemoryMap = append(p.MemoryMap, memory_map.MemoryMapItem{
		Address: uint64(addr),
		Size:    uint(size),
		Perms:   "rw-p",
	})
	memory_map.Sort(p.MemoryMap)
	return data
}

// RemoveRegion unmaps the region starting at addr.
func (p *ProcessDump) RemoveRegion(addr process.ProcessMemoryAddress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.Blobs, uint64(addr))
	kept := p.MemoryMap[:0]
	for _, item := range p.MemoryMap {
		if item.Address != uint64(addr) {
			kept = append(kept, item)
		}
	}
	p.MemoryMap = kept
}

// WriteMemory patches mapped bytes of the dump itself. It never touches a live target.
func (p *ProcessDump) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	dst, err := p.regionSlice(addr, len(data))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

func (p *ProcessDump) AddModule(m process.Module) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ModuleSet = append(p.ModuleSet, m)
}

// AddThread appends a thread; its Index is its position in the snapshot.
func (p *ProcessDump) AddThread(threadID uint32, teb process.ProcessMemoryAddress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ThreadSet = append(p.ThreadSet, process.Thread{
		ThreadID:       threadID,
		TebBaseAddress: teb,
		Index:          len(p.ThreadSet),
	})
}

// regionSlice must be called with p.mu held.
func (p *ProcessDump) regionSlice(addr process.ProcessMemoryAddress, size int) ([]byte, error) {
	region := memory_map.Find(uint64(addr), p.MemoryMap)
	if region == nil {
		return nil, fmt.Errorf("0x%x: %w", uint64(addr), process.ErrAddressNotMapped)
	}

	data, ok := p.Blobs[region.Address]
	if !ok {
		return nil, fmt.Errorf("no data for region 0x%x", region.Address)
	}

	offset := uint64(addr) - region.Address
	if offset+uint64(size) > uint64(len(data)) {
		return nil, fmt.Errorf("read of %d bytes at 0x%x crosses region end 0x%x: %w",
			size, uint64(addr), region.End(), process.ErrShortRead)
	}
	return data[offset : offset+uint64(size)], nil
}

func (p *ProcessDump) checkReadable() error {
	if !p.opened {
		return process.ErrProcessNotOpen
	}
	if !p.alive {
		return fmt.Errorf("process %d has exited: %w", p.PID, process.ErrProcessNotOpen)
	}
	return nil
}

func (p *ProcessDump) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	buf := make([]byte, size)
	if err := p.ReadMemoryInto(addr, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *ProcessDump) ReadMemoryInto(addr process.ProcessMemoryAddress, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.checkReadable(); err != nil {
		return err
	}
	src, err := p.regionSlice(addr, len(buf))
	if err != nil {
		return err
	}
	copy(buf, src)
	return nil
}

func (p *ProcessDump) Modules() ([]process.Module, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.checkReadable(); err != nil {
		return nil, err
	}
	result := make([]process.Module, len(p.ModuleSet))
	copy(result, p.ModuleSet)
	return result, nil
}

func (p *ProcessDump) Threads() ([]process.Thread, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.checkReadable(); err != nil {
		return nil, err
	}
	result := make([]process.Thread, len(p.ThreadSet))
	copy(result, p.ThreadSet)
	return result, nil
}

type dumpMetadata struct {
	PID     process.ProcessID `json:"pid"`
	Name    string            `json:"name"`
	Modules []process.Module  `json:"modules"`
	Threads []process.Thread  `json:"threads"`
}

// Save writes metadata.json, process_memory_map.json and one blob file per region.
func (p *ProcessDump) Save(dirname string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := os.MkdirAll(dirname, 0o755); err != nil {
		return fmt.Errorf("failed to create dump directory: %w", err)
	}

	metadata := dumpMetadata{PID: p.PID, Name: p.Name, Modules: p.ModuleSet, Threads: p.ThreadSet}
	if err := writeJSON(filepath.Join(dirname, "metadata.json"), metadata); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dirname, "process_memory_map.json"), p.MemoryMap); err != nil {
		return err
	}

	for _, region := range p.MemoryMap {
		data, ok := p.Blobs[region.Address]
		if !ok {
			continue
		}
		if err := os.WriteFile(filepath.Join(dirname, blobFilename(region)), data, 0o644); err != nil {
			return fmt.Errorf("failed to write blob for region 0x%x: %w", region.Address, err)
		}
	}
	return nil
}

// Load replaces the dump contents with a directory written by Save. The loaded dump is alive.
func (p *ProcessDump) Load(dirname string) error {
	var metadata dumpMetadata
	if err := readJSON(filepath.Join(dirname, "metadata.json"), &metadata); err != nil {
		return err
	}

	var mm []memory_map.MemoryMapItem
	if err := readJSON(filepath.Join(dirname, "process_memory_map.json"), &mm); err != nil {
		return err
	}
	memory_map.Sort(mm)

	blobs := make(map[uint64][]byte, len(mm))
	for _, region := range mm {
		filename := filepath.Join(dirname, blobFilename(region))
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			continue // Blob not saved
		}

		data, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read blob %s: %w", filename, err)
		}
		blobs[region.Address] = data
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.PID = metadata.PID
	p.Name = metadata.Name
	p.ModuleSet = metadata.Modules
	p.ThreadSet = metadata.Threads
	p.MemoryMap = mm
	p.Blobs = blobs
	p.alive = true
	return nil
}

func blobFilename(region memory_map.MemoryMapItem) string {
	return fmt.Sprintf("blob_0x%x_%d.bin", region.Address, region.Size)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filepath.Base(path), err)
	}
	return nil
}
