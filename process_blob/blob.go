package process_blob

import (
	"encoding/binary"
	"fmt"

	"scmem/process"
)

// ProcessBlob is a bounded view over bytes that were read from baseaddress.
// Offsets are relative to the start of the blob.
type ProcessBlob struct {
	baseaddress process.ProcessMemoryAddress
	data        []byte
}

func NewProcessBlob(baseAddress process.ProcessMemoryAddress, data []byte) *ProcessBlob {
	return &ProcessBlob{
		baseaddress: baseAddress,
		data:        data,
	}
}

// Reset repoints the blob without allocating.
func (p *ProcessBlob) Reset(baseAddress process.ProcessMemoryAddress, data []byte) {
	p.baseaddress = baseAddress
	p.data = data
}

func (p *ProcessBlob) Data() []byte {
	return p.data
}

func (p *ProcessBlob) BaseAddress() process.ProcessMemoryAddress {
	return p.baseaddress
}

// Contains reports whether [addr, addr+size) lies inside the blob.
func (p *ProcessBlob) Contains(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) bool {
	if addr < p.baseaddress {
		return false
	}
	return uint64(addr-p.baseaddress)+uint64(size) <= uint64(len(p.data))
}

func (p *ProcessBlob) slice(offset int64, size int) ([]byte, error) {
	if offset < 0 || offset+int64(size) > int64(len(p.data)) {
		return nil, fmt.Errorf("offset 0x%x (size %d) outside blob of %d bytes at 0x%x: %w",
			offset, size, len(p.data), uint64(p.baseaddress), process.ErrAddressNotMapped)
	}
	return p.data[offset : offset+int64(size)], nil
}

// ReadMemory returns a sub-slice for an absolute address; it does not copy.
func (p *ProcessBlob) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if addr < p.baseaddress {
		return nil, fmt.Errorf("address 0x%x below blob base 0x%x: %w", uint64(addr), uint64(p.baseaddress), process.ErrAddressNotMapped)
	}
	return p.slice(int64(addr-p.baseaddress), int(size))
}

// OffsetUINT8 reads an unsigned 8-bit integer at the blob offset
func (p *ProcessBlob) OffsetUINT8(offset int64) (uint8, error) {
	data, err := p.slice(offset, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// OffsetUINT16 reads an unsigned 16-bit integer at the blob offset
func (p *ProcessBlob) OffsetUINT16(offset int64) (uint16, error) {
	data, err := p.slice(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(data), nil
}

// OffsetINT32 reads a signed 32-bit integer at the blob offset
func (p *ProcessBlob) OffsetINT32(offset int64) (int32, error) {
	data, err := p.slice(offset, 4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(data)), nil
}

// OffsetPOINTER reads a pointer value at the blob offset
func (p *ProcessBlob) OffsetPOINTER(offset int64) (process.ProcessMemoryAddress, error) {
	data, err := p.slice(offset, process.PointerSize)
	if err != nil {
		return 0, err
	}
	return process.ProcessMemoryAddress(binary.LittleEndian.Uint64(data)), nil
}

// OffsetNTS reads a null-terminated string of at most maxLength bytes at the blob offset
func (p *ProcessBlob) OffsetNTS(offset int64, maxLength int) (string, error) {
	if maxLength == 0 {
		return "", nil
	}
	data, err := p.slice(offset, maxLength)
	if err != nil {
		return "", err
	}
	for i, b := range data {
		if b == 0 {
			return string(data[:i]), nil
		}
	}
	return string(data), nil
}
