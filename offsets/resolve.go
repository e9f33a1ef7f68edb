package offsets

import (
	"scmem/memaccess"
	"scmem/process"
)

// GameBase returns a resolver for the game base that reads baseOffset from the
// catalog at resolution time.
func (c *Catalog) GameBase() memaccess.Resolver {
	return func(client *memaccess.Client) (process.ProcessMemoryAddress, error) {
		cfg, err := c.Load()
		if err != nil {
			return 0, err
		}
		return memaccess.GameBase(cfg.BaseOffset)(client)
	}
}

// ModuleStatic returns a resolver for a module-relative static offset picked from the catalog.
func (c *Catalog) ModuleStatic(pick func(StaticOffsets) int64, moduleNames ...string) memaccess.Resolver {
	return func(client *memaccess.Client) (process.ProcessMemoryAddress, error) {
		cfg, err := c.Load()
		if err != nil {
			return 0, err
		}
		return memaccess.ModuleStatic(pick(cfg.StaticOffsets), moduleNames...)(client)
	}
}

// ModulePointer returns a resolver for *(module + offset), the offset picked from the
// catalog at resolution time.
func (c *Catalog) ModulePointer(pick func(StaticOffsets) int64, moduleNames ...string) memaccess.Resolver {
	return func(client *memaccess.Client) (process.ProcessMemoryAddress, error) {
		cfg, err := c.Load()
		if err != nil {
			return 0, err
		}
		return memaccess.ModulePointer(pick(cfg.StaticOffsets), moduleNames...)(client)
	}
}
