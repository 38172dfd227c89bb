package bus

import "lukechampine.com/uint128"

// EntryType selects the default behavior of an address range when no
// handler is registered for the attempted access.
type EntryType int

const (
	// UnmappedLow - reads return all zero bits
	UnmappedLow EntryType = iota

	// UnmappedHigh - reads return all one bits
	UnmappedHigh

	// Read, Write and ReadWrite mark a region backed by a handler. A region
	// claiming one of these without the matching handler is a setup defect,
	// see ConfigurationError.
	Read
	Write
	ReadWrite
)

func (t EntryType) String() string {
	switch t {
	case UnmappedLow:
		return "UnmappedLow"
	case UnmappedHigh:
		return "UnmappedHigh"
	case Read:
		return "Read"
	case Write:
		return "Write"
	case ReadWrite:
		return "ReadWrite"
	}
	return "Unknown"
}

// Handler types, one read and one write shape per width. These are plain
// func values, so a region can close over its device state (a RAM slice,
// a FIFO, a register file) without any process wide storage.
type (
	Read8Func   func(addr Address) uint8
	Read16Func  func(addr Address) uint16
	Read32Func  func(addr Address) uint32
	Read64Func  func(addr Address) uint64
	Read128Func func(addr Address) uint128.Uint128

	Write8Func   func(addr Address, data uint8)
	Write16Func  func(addr Address, data uint16)
	Write32Func  func(addr Address, data uint32)
	Write64Func  func(addr Address, data uint64)
	Write128Func func(addr Address, data uint128.Uint128)
)

// Entry describes one contiguous address range [Start, End], inclusive on
// both ends, with its default behavior and up to ten optional handlers.
// Invariant: Start <= End, checked by MemoryMap.Append.
type Entry struct {
	Start Address
	End   Address
	Type  EntryType

	Read8   Read8Func
	Read16  Read16Func
	Read32  Read32Func
	Read64  Read64Func
	Read128 Read128Func

	Write8   Write8Func
	Write16  Write16Func
	Write32  Write32Func
	Write64  Write64Func
	Write128 Write128Func
}

// NewEntry returns the default entry: the whole address space, unmapped,
// reading as zero, no handlers.
func NewEntry() Entry {
	return Entry{End: uint128.Max}
}

// contains reports whether addr falls into the entry range.
func (e Entry) contains(addr Address) bool {
	return e.Start.Cmp(addr) <= 0 && e.End.Cmp(addr) >= 0
}
