package process

// Process is the interface that defines operations for interacting with a system process.
// Implementations never write to the target.
type Process interface {
	// Open opens a process with the given PID for query and read access
	Open(pid ProcessID) error

	// Close closes the process and releases resources
	Close() error

	// GetPID returns the process ID
	GetPID() ProcessID

	// IsAlive reports whether the target process is still running
	IsAlive() bool

	// ReadMemory reads memory from the process at the specified address
	ReadMemory(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error)

	// ReadMemoryInto fills buf from the specified address; a partial transfer is an error
	ReadMemoryInto(addr ProcessMemoryAddress, buf []byte) error

	// Modules lists the executable images loaded in the process
	Modules() ([]Module, error)

	// Threads snapshots the threads owned by the process, in enumeration order
	Threads() ([]Thread, error)
}
