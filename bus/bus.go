package bus

import "lukechampine.com/uint128"

/*
Interfaces and type definitions for the memory bus.
(wide enough for a 128 bit address space - narrower machines restrict it
with the global address mask instead of changing the types)
*/

// Address is a 128 bit unsigned integer, the widest address space the bus
// is designed to support.
type Address = uint128.Uint128

// Addr builds an Address from a plain uint64. Convenience for setup code
// and tests, where addresses rarely leave the low 64 bits.
func Addr(v uint64) Address {
	return uint128.From64(v)
}

// Bus is the address oriented I/O contract consumed by a CPU or peripheral
// model: select an address first, then read or write at it in one of the
// native widths. MemoryMap is the only implementation in this core;
// composite or proxy buses are valid future variants.
type Bus interface {
	// SelectAddress sets the address used by subsequent read/write calls.
	SelectAddress(addr Address)

	Read8() uint8
	Read16() uint16
	Read32() uint32
	Read64() uint64
	Read128() uint128.Uint128

	Write8(data uint8)
	Write16(data uint16)
	Write32(data uint32)
	Write64(data uint64)
	Write128(data uint128.Uint128)
}
