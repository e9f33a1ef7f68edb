//go:build linux

package process_linux

import (
	"fmt"
	"unsafe"

	"scmem/process"

	"golang.org/x/sys/unix"
)

// process_vm_readv uses the process_vm_readv syscall to fill localBuf from another process
func process_vm_readv(
	pid process.ProcessID,
	localBuf []byte,
	remoteAddr process.ProcessMemoryAddress,
) error {
	bytesToRead := len(localBuf)

	// Create iovec for local buffer
	localIov := unix.Iovec{
		Base: &localBuf[0],
		Len:  uint64(bytesToRead),
	}

	// Create iovec for remote buffer
	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  bytesToRead,
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_READV,
		uintptr(pid),                        // Remote process PID
		uintptr(unsafe.Pointer(&localIov)),  // Local iovec
		uintptr(1),                          // Number of local iovecs
		uintptr(unsafe.Pointer(&remoteIov)), // Remote iovec
		uintptr(1),                          // Number of remote iovecs
		uintptr(0),                          // Flags (reserved for future use)
	)

	if errno != 0 {
		return fmt.Errorf("process_vm_readv failed: %s (errno: %d)", errno.Error(), errno)
	}

	if int(n) != bytesToRead {
		return fmt.Errorf("partial read: %d of %d bytes: %w", n, bytesToRead, process.ErrShortRead)
	}

	return nil
}

// ReadMemory reads memory from the process at the specified address
func (p *LinuxProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	buf := make([]byte, size)
	if err := p.ReadMemoryInto(addr, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadMemoryInto reads len(buf) bytes; the lock is not held across the syscall
func (p *LinuxProcess) ReadMemoryInto(addr process.ProcessMemoryAddress, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}

	pid := p.GetPID()
	if pid == 0 {
		return process.ErrProcessNotOpen
	}

	if err := process_vm_readv(pid, buf, addr); err != nil {
		return fmt.Errorf("process_vm_readv: failed to read 0x%x: %w", uint64(addr), err)
	}
	return nil
}
