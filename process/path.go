package process

import (
	"fmt"
)

// PointerReader is the minimal read surface needed to walk a pointer path.
type PointerReader interface {
	ReadPointer(addr ProcessMemoryAddress) (ProcessMemoryAddress, error)
}

// ReadPath walks a pointer path and returns the final address.
// It starts at base, adds the first offset, reads a pointer, adds the next offset, reads a pointer, etc.
// The last offset is added to the final pointer without dereferencing it.
// If offsets is empty, base is returned unchanged.
func ReadPath(r PointerReader, base ProcessMemoryAddress, offsets ...int64) (ProcessMemoryAddress, error) {
	currentAddr := base

	for i := 0; i < len(offsets)-1; i++ {
		ptrAddr := currentAddr.Add(offsets[i])

		ptrVal, err := r.ReadPointer(ptrAddr)
		if err != nil {
			return 0, fmt.Errorf("failed to read pointer at step %d (addr 0x%x): %w", i, uint64(ptrAddr), err)
		}

		if ptrVal == 0 {
			return 0, fmt.Errorf("pointer at step %d (addr 0x%x) is null: %w", i, uint64(ptrAddr), ErrInvalidPointer)
		}

		currentAddr = ptrVal
	}

	if len(offsets) > 0 {
		currentAddr = currentAddr.Add(offsets[len(offsets)-1])
	}

	return currentAddr, nil
}
