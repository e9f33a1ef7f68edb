// Package memaccess owns the attached target process and exposes the read and
// discovery primitives every other component is built on.
//
// A Client holds at most one open process. Reads are safe for concurrent callers;
// module and thread snapshots are cached for the lifetime of one attach session.
package memaccess

import (
	"encoding/binary"
	"fmt"
	"sync"

	"scmem/errs"
	"scmem/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// Opener opens a process for query and read access. process_windows.Open,
// process_linux.Open and ProcessDump.Opener all satisfy it.
type Opener func(pid process.ProcessID) (process.Process, error)

// Client is the MemoryAccessClient.
type Client struct {
	open Opener
	log  *logger.Logger

	mu         sync.RWMutex
	proc       process.Process
	generation uint64

	threads          []process.Thread
	modules          []process.Module
	warnedMainThread bool
}

// New creates a detached client.
func New(open Opener) *Client {
	return &Client{
		open: open,
		log:  logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "memaccess")),
	}
}

// Attach opens pid, closing any previously attached process first. Failures are
// logged and reported as false.
func (c *Client) Attach(pid process.ProcessID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeLocked()

	proc, err := c.open(pid)
	if err != nil {
		c.log.Warn("Attach to pid ", pid, " failed: ", errs.Wrap(errs.KindConnection, "memaccess.Attach", err, "open pid %d", pid))
		return false
	}

	c.proc = proc
	c.log.Infoln("Attached to pid", pid, "generation", c.generation)
	return true
}

// Detach closes the process and drops every per-session cache.
func (c *Client) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.proc == nil {
		return
	}
	pid := c.proc.GetPID()
	c.closeLocked()
	c.log.Infoln("Detached from pid", pid)
}

// closeLocked must be called with c.mu held for writing.
func (c *Client) closeLocked() {
	if c.proc != nil {
		if err := c.proc.Close(); err != nil {
			c.log.Debugln("Close failed:", err)
		}
		c.proc = nil
	}
	c.generation++
	c.threads = nil
	c.modules = nil
	c.warnedMainThread = false
}

// IsAttached reports whether a process handle is held.
func (c *Client) IsAttached() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.proc != nil
}

// IsConnected reports whether a process is held and still running.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.proc != nil && c.proc.IsAlive()
}

// PID returns the attached pid, or 0.
func (c *Client) PID() process.ProcessID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.proc == nil {
		return 0
	}
	return c.proc.GetPID()
}

// Generation identifies the current attach session. It changes on every Attach and Detach.
func (c *Client) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Process returns the attached process, or nil.
func (c *Client) Process() process.Process {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.proc
}

// ReadBytes reads exactly size bytes; any failed or partial transfer is a read error.
func (c *Client) ReadBytes(addr process.ProcessMemoryAddress, size int) ([]byte, error) {
	buf := make([]byte, size)
	if err := c.readInto("memaccess.ReadBytes", addr, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadInto fills buf from addr without allocating.
func (c *Client) ReadInto(addr process.ProcessMemoryAddress, buf []byte) error {
	return c.readInto("memaccess.ReadInto", addr, buf)
}

func (c *Client) readInto(op string, addr process.ProcessMemoryAddress, buf []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.proc == nil {
		return errs.Wrap(errs.KindRead, op, process.ErrProcessNotOpen, "read %d bytes at %s", len(buf), addr.ToString())
	}
	if err := c.proc.ReadMemoryInto(addr, buf); err != nil {
		return errs.Wrap(errs.KindRead, op, err, "read %d bytes at %s", len(buf), addr.ToString())
	}
	return nil
}

// ReadPointer reads an 8-byte little-endian pointer.
func (c *Client) ReadPointer(addr process.ProcessMemoryAddress) (process.ProcessMemoryAddress, error) {
	var buf [process.PointerSize]byte
	if err := c.readInto("memaccess.ReadPointer", addr, buf[:]); err != nil {
		return 0, err
	}
	return process.ProcessMemoryAddress(binary.LittleEndian.Uint64(buf[:])), nil
}

func (c *Client) ReadI32(addr process.ProcessMemoryAddress) (int32, error) {
	var buf [4]byte
	if err := c.readInto("memaccess.ReadI32", addr, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

func (c *Client) ReadI16(addr process.ProcessMemoryAddress) (int16, error) {
	var buf [2]byte
	if err := c.readInto("memaccess.ReadI16", addr, buf[:]); err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(buf[:])), nil
}

func (c *Client) ReadU8(addr process.ProcessMemoryAddress) (uint8, error) {
	var buf [1]byte
	if err := c.readInto("memaccess.ReadU8", addr, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadBool treats any non-zero byte as true.
func (c *Client) ReadBool(addr process.ProcessMemoryAddress) (bool, error) {
	v, err := c.ReadU8(addr)
	return v != 0, err
}

// ReadFixedString reads a window of maxLength bytes and returns the text up to the first NUL.
func (c *Client) ReadFixedString(addr process.ProcessMemoryAddress, maxLength int) (string, error) {
	if maxLength <= 0 {
		return "", nil
	}
	buf := make([]byte, maxLength)
	if err := c.readInto("memaccess.ReadFixedString", addr, buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), nil
		}
	}
	return string(buf), nil
}

// FollowPointers walks a pointer path from base. See process.ReadPath.
func (c *Client) FollowPointers(base process.ProcessMemoryAddress, offsets ...int64) (process.ProcessMemoryAddress, error) {
	addr, err := process.ReadPath(c, base, offsets...)
	if err != nil {
		if errs.KindOf(err) == errs.KindRead {
			return 0, err
		}
		return 0, errs.Wrap(errs.KindResolution, "memaccess.FollowPointers", err, "path from %s", base.ToString())
	}
	return addr, nil
}

func (c *Client) String() string {
	pid := c.PID()
	if pid == 0 {
		return "memaccess(detached)"
	}
	return fmt.Sprintf("memaccess(pid %d)", pid)
}
