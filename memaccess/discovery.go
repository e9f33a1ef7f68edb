package memaccess

import (
	"encoding/binary"
	"strings"

	"scmem/errs"
	"scmem/process"
)

const (
	// stackScanSize is how far below the stack base the anchor scan looks.
	stackScanSize = 4096
	// tebStackBaseOffset is NT_TIB.StackBase on x64.
	tebStackBaseOffset = 0x08
)

// Kernel32Names are tried in order when locating kernel32 for the stack anchor.
var Kernel32Names = []string{"kernel32.dll", "KERNEL32.DLL"}

// EnumerateThreads returns the thread snapshot of the current session.
// The order is the platform's enumeration order, not creation order.
func (c *Client) EnumerateThreads() ([]process.Thread, error) {
	c.mu.RLock()
	if c.threads != nil {
		threads := c.threads
		c.mu.RUnlock()
		return threads, nil
	}
	proc, gen := c.proc, c.generation
	c.mu.RUnlock()

	if proc == nil {
		return nil, errs.Wrap(errs.KindResolution, "memaccess.EnumerateThreads", process.ErrProcessNotOpen, "no process attached")
	}

	threads, err := proc.Threads()
	if err != nil {
		return nil, errs.Wrap(errs.KindResolution, "memaccess.EnumerateThreads", err, "snapshot threads of pid %d", proc.GetPID())
	}
	if len(threads) == 0 {
		return nil, errs.New(errs.KindResolution, "memaccess.EnumerateThreads", "pid %d has no threads", proc.GetPID())
	}

	c.mu.Lock()
	if c.generation == gen {
		c.threads = threads
	}
	c.mu.Unlock()

	c.log.Debugln("Enumerated", len(threads), "threads")
	return threads, nil
}

// MainThread returns the first enumerated thread. Enumeration order is assumed to
// start with the game's main thread; nothing verifies it, so the assumption is
// logged once per session.
func (c *Client) MainThread() (process.Thread, error) {
	threads, err := c.EnumerateThreads()
	if err != nil {
		return process.Thread{}, err
	}

	c.mu.Lock()
	warn := !c.warnedMainThread
	c.warnedMainThread = true
	c.mu.Unlock()

	if warn {
		c.log.Warn("Assuming thread index 0 (tid ", threads[0].ThreadID, ") is the main thread")
	}
	return threads[0], nil
}

// Modules returns the module list of the current session.
func (c *Client) Modules() ([]process.Module, error) {
	c.mu.RLock()
	if c.modules != nil {
		modules := c.modules
		c.mu.RUnlock()
		return modules, nil
	}
	proc, gen := c.proc, c.generation
	c.mu.RUnlock()

	if proc == nil {
		return nil, errs.Wrap(errs.KindResolution, "memaccess.Modules", process.ErrProcessNotOpen, "no process attached")
	}

	modules, err := proc.Modules()
	if err != nil {
		return nil, errs.Wrap(errs.KindResolution, "memaccess.Modules", err, "enumerate modules of pid %d", proc.GetPID())
	}

	c.mu.Lock()
	if c.generation == gen {
		c.modules = modules
	}
	c.mu.Unlock()

	c.log.Debugln("Enumerated", len(modules), "modules")
	return modules, nil
}

// FindModule tries every name as an exact, case-insensitive match first and then as a
// case-insensitive substring. The first hit wins.
func (c *Client) FindModule(names ...string) (process.Module, error) {
	modules, err := c.Modules()
	if err != nil {
		return process.Module{}, err
	}

	for _, name := range names {
		for _, m := range modules {
			if m.NameMatches(name) {
				return m, nil
			}
		}
	}
	for _, name := range names {
		needle := strings.ToLower(name)
		for _, m := range modules {
			if strings.Contains(strings.ToLower(m.Name), needle) {
				return m, nil
			}
		}
	}

	return process.Module{}, errs.New(errs.KindResolution, "memaccess.FindModule", "no module matches %v", names)
}

// ThreadStackTop returns the thread stack anchor of the thread at index: the address of
// the highest stack slot, within stackScanSize bytes of the stack base, that holds a
// pointer into kernel32.
func (c *Client) ThreadStackTop(index int) (process.ProcessMemoryAddress, error) {
	const op = "memaccess.ThreadStackTop"

	var thread process.Thread
	if index == 0 {
		t, err := c.MainThread()
		if err != nil {
			return 0, err
		}
		thread = t
	} else {
		threads, err := c.EnumerateThreads()
		if err != nil {
			return 0, err
		}
		if index < 0 || index >= len(threads) {
			return 0, errs.New(errs.KindResolution, op, "thread index %d out of range (%d threads)", index, len(threads))
		}
		thread = threads[index]
	}

	if thread.TebBaseAddress == 0 {
		return 0, errs.Wrap(errs.KindResolution, op, process.ErrThreadBaseUnavailable, "thread %d", thread.ThreadID)
	}

	kernel32, err := c.FindModule(Kernel32Names...)
	if err != nil {
		return 0, err
	}

	stackBase, err := c.ReadPointer(thread.TebBaseAddress.Add(tebStackBaseOffset))
	if err != nil {
		return 0, err
	}
	if stackBase < stackScanSize {
		return 0, errs.Wrap(errs.KindResolution, op, process.ErrInvalidPointer, "stack base %s of thread %d", stackBase.ToString(), thread.ThreadID)
	}

	scanStart := stackBase - stackScanSize
	buf, err := c.ReadBytes(scanStart, stackScanSize)
	if err != nil {
		return 0, err
	}

	for off := stackScanSize - process.PointerSize; off >= 0; off -= process.PointerSize {
		v := process.ProcessMemoryAddress(binary.LittleEndian.Uint64(buf[off:]))
		if kernel32.Contains(v) {
			return scanStart + process.ProcessMemoryAddress(off), nil
		}
	}

	return 0, errs.New(errs.KindResolution, op, "no %s pointer in the top %d bytes of thread %d stack", kernel32.Name, stackScanSize, thread.ThreadID)
}
