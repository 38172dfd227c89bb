package bus

import (
	"fmt"

	"lukechampine.com/uint128"
)

// MemoryMap is the concrete Bus implementation: an ordered list of address
// range entries scanned first match wins, the currently selected address
// and a global address mask applied to every selected address.
//
// There is no locking here. A map driven from more than one goroutine
// needs one external lock around each select+read/write sequence, since
// the two calls are not atomic against interleaving. See system.System.
type MemoryMap struct {
	entries     []Entry
	currentAddr Address
	addrMask    Address

	// legacyResolve selects the legacy miss indexing, see resolve.
	legacyResolve bool
}

var _ Bus = (*MemoryMap)(nil)

// New returns a MemoryMap with a single entry covering the whole address
// space as UnmappedLow, and a mask that restricts nothing.
//
// Note the full range first entry wins every scan, so entries appended to
// such a map are never reached. Use NewEmpty for a map that routes to
// appended regions.
func New() *MemoryMap {
	return &MemoryMap{
		entries:  []Entry{NewEntry()},
		addrMask: uint128.Max,
	}
}

// NewEmpty returns a MemoryMap with no entries at all. Setup code appends
// its regions; any address left uncovered gets the default UnmappedLow
// backstop the first time resolution misses.
func NewEmpty() *MemoryMap {
	return &MemoryMap{addrMask: uint128.Max}
}

// Append adds an entry at the end of the scan order. First match wins, so
// more specific regions go in first.
func (m *MemoryMap) Append(e Entry) error {
	if e.Start.Cmp(e.End) > 0 {
		return fmt.Errorf("entry start %v beyond end %v", e.Start, e.End)
	}
	m.entries = append(m.entries, e)
	return nil
}

// SetAddrMask sets the global address mask. It applies to addresses stored
// by SelectAddress from now on, entry ranges are never masked.
func (m *MemoryMap) SetAddrMask(mask Address) {
	m.addrMask = mask
}

// AddrMask returns the global address mask.
func (m *MemoryMap) AddrMask() Address {
	return m.addrMask
}

// CurrentAddr returns the currently selected (already masked) address.
func (m *MemoryMap) CurrentAddr() Address {
	return m.currentAddr
}

// SetLegacyResolve toggles the legacy indexing on the miss path, see
// resolve. Off by default.
func (m *MemoryMap) SetLegacyResolve(enabled bool) {
	m.legacyResolve = enabled
}

// Entries returns a copy of the entry list, for display purposes.
func (m *MemoryMap) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// SelectAddress stores addr under the global mask as the current address
// for all subsequent read and write calls.
func (m *MemoryMap) SelectAddress(addr Address) {
	m.currentAddr = addr.And(m.addrMask)
}

// addr returns the selected address under the global mask.
func (m *MemoryMap) addr() Address {
	return m.currentAddr.And(m.addrMask)
}

// resolve scans the entries in order and returns the first one whose range
// contains the current address, by value, so the miss path append below
// can never invalidate a handler's in-flight view.
//
// On a miss a default full range entry is appended and returned. In legacy
// mode the return indexes with the last position visited during the failed
// scan plus one: the same entry for any non empty list, an out of range
// fault for an empty one. Kept selectable for compatibility testing.
func (m *MemoryMap) resolve() Entry {
	last := 0
	for i, e := range m.entries {
		if e.contains(m.addr()) {
			return e
		}
		last = i
	}
	m.entries = append(m.entries, NewEntry())
	if m.legacyResolve {
		return m.entries[last+1]
	}
	return m.entries[len(m.entries)-1]
}

// ConfigurationError is the panic value raised when a region claims to be
// mapped (Read, Write or ReadWrite) but provides no 8 bit read handler.
// It signals a broken memory map, a setup defect rather than a runtime
// condition, and is not meant to be recovered into normal control flow.
type ConfigurationError struct {
	Addr Address
	Type EntryType
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("memory map is broken: %s region at address %v provides no 8 bit handler",
		e.Type, e.Addr)
}

// Read8 reads at the current address: the 8 bit handler if present,
// otherwise the entry type's fill value. A mapped region without a handler
// panics with a ConfigurationError.
func (m *MemoryMap) Read8() uint8 {
	entry := m.resolve()
	if entry.Read8 != nil {
		return entry.Read8(m.currentAddr)
	}
	switch entry.Type {
	case UnmappedLow:
		return 0
	case UnmappedHigh:
		return 0xFF
	default:
		panic(ConfigurationError{Addr: m.currentAddr, Type: entry.Type})
	}
}

// The wider reads fall back to a single next narrower read, zero extended.
// No byte composition happens anywhere on the fallback chain, so a wide
// read of a handlerless region never carries more than its low 8 bits.

func (m *MemoryMap) Read16() uint16 {
	entry := m.resolve()
	if entry.Read16 != nil {
		return entry.Read16(m.currentAddr)
	}
	return uint16(m.Read8())
}

func (m *MemoryMap) Read32() uint32 {
	entry := m.resolve()
	if entry.Read32 != nil {
		return entry.Read32(m.currentAddr)
	}
	return uint32(m.Read16())
}

func (m *MemoryMap) Read64() uint64 {
	entry := m.resolve()
	if entry.Read64 != nil {
		return entry.Read64(m.currentAddr)
	}
	return uint64(m.Read32())
}

func (m *MemoryMap) Read128() uint128.Uint128 {
	entry := m.resolve()
	if entry.Read128 != nil {
		return entry.Read128(m.currentAddr)
	}
	return uint128.From64(m.Read64())
}

// Writes without a matching handler are discarded, regardless of the entry
// type. Only the 8 bit read enforces the mapped-but-handlerless check.

func (m *MemoryMap) Write8(data uint8) {
	entry := m.resolve()
	if entry.Write8 != nil {
		entry.Write8(m.currentAddr, data)
	}
}

func (m *MemoryMap) Write16(data uint16) {
	entry := m.resolve()
	if entry.Write16 != nil {
		entry.Write16(m.currentAddr, data)
	}
}

func (m *MemoryMap) Write32(data uint32) {
	entry := m.resolve()
	if entry.Write32 != nil {
		entry.Write32(m.currentAddr, data)
	}
}

func (m *MemoryMap) Write64(data uint64) {
	entry := m.resolve()
	if entry.Write64 != nil {
		entry.Write64(m.currentAddr, data)
	}
}

func (m *MemoryMap) Write128(data uint128.Uint128) {
	entry := m.resolve()
	if entry.Write128 != nil {
		entry.Write128(m.currentAddr, data)
	}
}
