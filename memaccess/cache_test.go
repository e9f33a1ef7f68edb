package memaccess_test

import (
	"errors"
	"testing"

	"scmem/errs"
	"scmem/fakegame"
	"scmem/memaccess"
	"scmem/process"
)

func TestGameBaseResolver(t *testing.T) {
	g, c := attached(t)
	cache := memaccess.NewAddressCache(c, memaccess.GameBase(g.Config.BaseOffset))

	base, err := cache.Get()
	if err != nil || base != fakegame.GameBase {
		t.Fatalf("Get = %s, %v", base.ToString(), err)
	}

	g.BreakGameBase()
	if base, err := cache.Get(); err != nil || base != fakegame.GameBase {
		t.Fatalf("cached Get = %s, %v", base.ToString(), err)
	}

	cache.Invalidate()
	if _, err := cache.Get(); !errors.Is(err, errs.ErrResolution) {
		t.Fatalf("Get after invalidate with broken chain err = %v", err)
	}
	if _, ok := cache.Cached(); ok {
		t.Fatalf("failed resolution left a cached value")
	}
}

func TestAddressCacheDropsValueFromOldSession(t *testing.T) {
	_, c := attached(t)

	calls := 0
	cache := memaccess.NewAddressCache(c, func(c *memaccess.Client) (process.ProcessMemoryAddress, error) {
		calls++
		return process.ProcessMemoryAddress(0x1000 * calls), nil
	})

	first, _ := cache.Get()
	again, _ := cache.Get()
	if first != again || calls != 1 {
		t.Fatalf("resolver called %d times", calls)
	}

	c.Detach()
	if !c.Attach(fakegame.PID) {
		t.Fatalf("reattach failed")
	}
	if _, ok := cache.Cached(); ok {
		t.Fatalf("cached value survived a reattach")
	}
	next, _ := cache.Get()
	if next == first || calls != 2 {
		t.Fatalf("Get after reattach = %s (calls %d)", next.ToString(), calls)
	}
}

func TestAddressCacheSet(t *testing.T) {
	_, c := attached(t)
	cache := memaccess.NewAddressCache(c, func(c *memaccess.Client) (process.ProcessMemoryAddress, error) {
		return 0, errors.New("must not resolve")
	})

	cache.Set(0x4000)
	if addr, err := cache.Get(); err != nil || addr != 0x4000 {
		t.Fatalf("Get = %s, %v", addr.ToString(), err)
	}
}

func TestModuleResolvers(t *testing.T) {
	_, c := attached(t)

	static, err := memaccess.ModuleStatic(0x2000, fakegame.ModuleName)(c)
	if err != nil || static != fakegame.ModuleBase+0x2000 {
		t.Fatalf("ModuleStatic = %s, %v", static.ToString(), err)
	}
	array, err := memaccess.ModulePointer(0x2100, fakegame.ModuleName)(c)
	if err != nil || array != fakegame.UnitArray {
		t.Fatalf("ModulePointer = %s, %v", array.ToString(), err)
	}
	if _, err := memaccess.ModuleStatic(0, "other.exe")(c); !errors.Is(err, errs.ErrResolution) {
		t.Fatalf("missing module err = %v", err)
	}
}
