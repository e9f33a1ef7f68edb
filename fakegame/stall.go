package fakegame

import (
	"scmem/memaccess"
	"scmem/process"
)

// Stall parks the next read of an exact size until Release, so a refresh or tick
// can be caught half way.
type Stall struct {
	size    int
	armed   chan struct{}
	entered chan struct{}
	release chan struct{}
}

// Arm makes the next read of the stall's size block.
func (s *Stall) Arm() {
	s.armed <- struct{}{}
}

// Wait blocks until an armed read is parked.
func (s *Stall) Wait() {
	<-s.entered
}

// Release lets the parked read finish.
func (s *Stall) Release() {
	close(s.release)
}

func (s *Stall) hold(size int) {
	if size != s.size {
		return
	}
	select {
	case <-s.armed:
		s.entered <- struct{}{}
		<-s.release
	default:
	}
}

type stallingProcess struct {
	process.Process
	stall *Stall
}

func (p *stallingProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	p.stall.hold(int(size))
	return p.Process.ReadMemory(addr, size)
}

func (p *stallingProcess) ReadMemoryInto(addr process.ProcessMemoryAddress, buf []byte) error {
	p.stall.hold(len(buf))
	return p.Process.ReadMemoryInto(addr, buf)
}

// StallingClient is Client with reads of size bytes stallable through the returned Stall.
func (g *Game) StallingClient(size int) (*memaccess.Client, *Stall) {
	s := &Stall{
		size:    size,
		armed:   make(chan struct{}, 1),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	open := g.Dump.Opener()
	client := memaccess.New(func(pid process.ProcessID) (process.Process, error) {
		inner, err := open(pid)
		if err != nil {
			return nil, err
		}
		return &stallingProcess{Process: inner, stall: s}, nil
	})
	return client, s
}
