package memaccess

import (
	"sync"

	"scmem/process"
)

// Resolver computes an address from the attached process.
type Resolver func(c *Client) (process.ProcessMemoryAddress, error)

// AddressCache holds one resolved address for the session it was resolved in.
// A cached value from an older session is treated as absent.
type AddressCache struct {
	client  *Client
	resolve Resolver

	mu         sync.Mutex
	addr       process.ProcessMemoryAddress
	generation uint64
	valid      bool
}

func NewAddressCache(client *Client, resolve Resolver) *AddressCache {
	return &AddressCache{client: client, resolve: resolve}
}

// Get returns the cached address, resolving it when absent or stale.
func (a *AddressCache) Get() (process.ProcessMemoryAddress, error) {
	gen := a.client.Generation()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.valid && a.generation == gen {
		return a.addr, nil
	}

	addr, err := a.resolve(a.client)
	if err != nil {
		a.valid = false
		return 0, err
	}

	a.addr = addr
	a.generation = gen
	a.valid = true
	return addr, nil
}

// Cached returns the address only if it is present for the current session.
func (a *AddressCache) Cached() (process.ProcessMemoryAddress, bool) {
	gen := a.client.Generation()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.valid && a.generation == gen {
		return a.addr, true
	}
	return 0, false
}

// Set injects a known address for the current session.
func (a *AddressCache) Set(addr process.ProcessMemoryAddress) {
	gen := a.client.Generation()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.addr = addr
	a.generation = gen
	a.valid = true
}

func (a *AddressCache) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.valid = false
	a.addr = 0
}

// GameBase resolves *(ThreadStackTop(0) + baseOffset), the root of the game's
// thread-local state.
func GameBase(baseOffset int64) Resolver {
	return func(c *Client) (process.ProcessMemoryAddress, error) {
		anchor, err := c.ThreadStackTop(0)
		if err != nil {
			return 0, err
		}
		return c.FollowPointers(anchor, baseOffset, 0)
	}
}

// ModuleStatic resolves a module-relative static address.
func ModuleStatic(offset int64, names ...string) Resolver {
	return func(c *Client) (process.ProcessMemoryAddress, error) {
		m, err := c.FindModule(names...)
		if err != nil {
			return 0, err
		}
		return m.BaseAddress.Add(offset), nil
	}
}

// ModulePointer resolves *(module + offset).
func ModulePointer(offset int64, names ...string) Resolver {
	return func(c *Client) (process.ProcessMemoryAddress, error) {
		m, err := c.FindModule(names...)
		if err != nil {
			return 0, err
		}
		return c.FollowPointers(m.BaseAddress, offset, 0)
	}
}
