package process_blob

import (
	"sort"
	"sync"

	"scmem/process"
	"scmem/process/memory_map"
)

// Recorder wraps a live process and copies every successful read into a ProcessDump,
// so a session can be replayed offline through the same components.
type Recorder struct {
	process.Process

	mu   sync.Mutex
	dump *ProcessDump
}

var _ process.Process = (*Recorder)(nil)

// NewRecorder records reads of inner. The dump takes inner's pid and the given name.
func NewRecorder(inner process.Process, name string) *Recorder {
	return &Recorder{
		Process: inner,
		dump:    NewProcessDump(inner.GetPID(), name),
	}
}

// Dump returns the recording. It is safe to Save while the recorder is in use.
func (r *Recorder) Dump() *ProcessDump {
	return r.dump
}

func (r *Recorder) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	data, err := r.Process.ReadMemory(addr, size)
	if err == nil {
		r.record(addr, data)
	}
	return data, err
}

func (r *Recorder) ReadMemoryInto(addr process.ProcessMemoryAddress, buf []byte) error {
	err := r.Process.ReadMemoryInto(addr, buf)
	if err == nil {
		r.record(addr, buf)
	}
	return err
}

func (r *Recorder) Modules() ([]process.Module, error) {
	modules, err := r.Process.Modules()
	if err == nil {
		r.dump.mu.Lock()
		r.dump.ModuleSet = append([]process.Module(nil), modules...)
		r.dump.mu.Unlock()
	}
	return modules, err
}

func (r *Recorder) Threads() ([]process.Thread, error) {
	threads, err := r.Process.Threads()
	if err == nil {
		r.dump.mu.Lock()
		r.dump.ThreadSet = append([]process.Thread(nil), threads...)
		r.dump.mu.Unlock()
	}
	return threads, err
}

// record merges [addr, addr+len(data)) with every overlapping or adjacent region.
func (r *Recorder) record(addr process.ProcessMemoryAddress, data []byte) {
	if len(data) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	d := r.dump
	d.mu.Lock()
	defer d.mu.Unlock()

	start := uint64(addr)
	end := start + uint64(len(data))

	var merged []memory_map.MemoryMapItem
	kept := d.MemoryMap[:0]
	for _, item := range d.MemoryMap {
		if item.Address <= end && item.End() >= start {
			merged = append(merged, item)
			if item.Address < start {
				start = item.Address
			}
			if item.End() > end {
				end = item.End()
			}
			continue
		}
		kept = append(kept, item)
	}

	union := make([]byte, end-start)
	sort.Slice(merged, func(i, j int) bool { return merged[i].Address < merged[j].Address })
	for _, item := range merged {
		copy(union[item.Address-start:], d.Blobs[item.Address])
		delete(d.Blobs, item.Address)
	}
	// the newest read wins over older bytes
	copy(union[uint64(addr)-start:], data)

	d.Blobs[start] = union
	d.MemoryMap = append(kept, memory_map.MemoryMapItem{
		Address: start,
		Size:    uint(len(union)),
		Perms:   "r--p",
	})
	memory_map.Sort(d.MemoryMap)
}
