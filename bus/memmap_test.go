package bus

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"lukechampine.com/uint128"
)

func TestResolveDefaultEntry(t *testing.T) {
	m := New()
	m.SelectAddress(Addr(5))
	assert.True(t, m.resolve().Read8 == nil)
}

func TestReadingUnmapped(t *testing.T) {
	m := New()
	m.SelectAddress(Addr(0))
	assert.Equal(t, uint8(0), m.Read8())

	m.entries[0].Type = UnmappedHigh
	assert.Equal(t, uint8(0xFF), m.Read8())
}

func TestWritingUnmapped(t *testing.T) {
	m := New()
	m.SelectAddress(Addr(0))
	m.entries[0].Type = UnmappedHigh

	m.Write8(0x55)
	assert.Equal(t, uint8(0xFF), m.Read8())
}

func TestGlobalAddressMask(t *testing.T) {
	tests := []struct {
		name string
		mask uint64
		addr uint64
		want uint64
	}{
		{"mask 1 keeps bit 0 of 5", 1, 5, 1},
		{"mask 7 keeps 5", 7, 5, 5},
		{"mask 7 drops 8", 7, 8, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			m.SetAddrMask(Addr(tt.mask))
			m.SelectAddress(Addr(tt.addr))
			assert.Equal(t, Addr(tt.want), m.CurrentAddr())
		})
	}
}

func TestSelectEquivalentUnderMask(t *testing.T) {
	// a select of addr and a select of addr&mask must be indistinguishable,
	// both in the routed handler address and in the returned value
	var got []Address
	m := NewEmpty()
	assert.NoError(t, m.Append(Entry{
		Start: Addr(0),
		End:   Addr(0xFF),
		Type:  Read,
		Read8: func(addr Address) uint8 {
			got = append(got, addr)
			return uint8(addr.Lo)
		},
	}))
	m.SetAddrMask(Addr(0xFF))

	m.SelectAddress(Addr(0x1234))
	v1 := m.Read8()
	m.SelectAddress(Addr(0x34))
	v2 := m.Read8()

	assert.Equal(t, v2, v1)
	assert.Equal(t, got[1], got[0])
}

func TestWideReadFallsBackToFill(t *testing.T) {
	// no handler at any width: every read bottoms out at the 8 bit fill
	// value, zero extended to the requested width
	m := New()
	m.SelectAddress(Addr(0x42))
	assert.Equal(t, uint16(0), m.Read16())
	assert.Equal(t, uint32(0), m.Read32())
	assert.Equal(t, uint64(0), m.Read64())
	assert.Equal(t, uint128.Zero, m.Read128())

	m.entries[0].Type = UnmappedHigh
	assert.Equal(t, uint16(0xFF), m.Read16())
	assert.Equal(t, uint32(0xFF), m.Read32())
	assert.Equal(t, uint64(0xFF), m.Read64())
	assert.Equal(t, uint128.From64(0xFF), m.Read128())
}

func TestWideReadWidensNarrowHandler(t *testing.T) {
	// an 8 bit handler with no wider handlers: a 32 bit read is the 8 bit
	// result zero extended, not a composition of 4 bytes
	calls := 0
	m := New()
	m.entries[0].Type = Read
	m.entries[0].Read8 = func(addr Address) uint8 {
		calls++
		return 0xAB
	}

	m.SelectAddress(Addr(0x100))
	assert.Equal(t, uint32(0xAB), m.Read32())
	assert.Equal(t, 1, calls)

	assert.Equal(t, uint128.From64(0xAB), m.Read128())
	assert.Equal(t, 2, calls)
}

func TestReadDispatchPerWidth(t *testing.T) {
	m := New()
	m.entries[0].Type = Read
	m.entries[0].Read8 = func(Address) uint8 { return 0x08 }
	m.entries[0].Read16 = func(Address) uint16 { return 0x1616 }
	m.entries[0].Read32 = func(Address) uint32 { return 0x32323232 }
	m.entries[0].Read64 = func(Address) uint64 { return 0x6464646464646464 }
	m.entries[0].Read128 = func(Address) uint128.Uint128 {
		return uint128.New(0x2828282828282828, 0x2828282828282828)
	}

	m.SelectAddress(Addr(0))
	assert.Equal(t, uint8(0x08), m.Read8())
	assert.Equal(t, uint16(0x1616), m.Read16())
	assert.Equal(t, uint32(0x32323232), m.Read32())
	assert.Equal(t, uint64(0x6464646464646464), m.Read64())
	assert.Equal(t, uint128.New(0x2828282828282828, 0x2828282828282828), m.Read128())
}

func TestWriteDispatchPerWidth(t *testing.T) {
	var gotAddr Address
	var got64 uint64
	var got128 uint128.Uint128

	m := New()
	m.entries[0].Type = ReadWrite
	m.entries[0].Write8 = func(addr Address, data uint8) {
		gotAddr = addr
		got64 = uint64(data)
	}
	m.entries[0].Write16 = func(addr Address, data uint16) { got64 = uint64(data) }
	m.entries[0].Write32 = func(addr Address, data uint32) { got64 = uint64(data) }
	m.entries[0].Write64 = func(addr Address, data uint64) { got64 = data }
	m.entries[0].Write128 = func(addr Address, data uint128.Uint128) { got128 = data }

	m.SelectAddress(Addr(0x20))
	m.Write8(0x11)
	assert.Equal(t, Addr(0x20), gotAddr)
	assert.Equal(t, uint64(0x11), got64)
	m.Write16(0x2222)
	assert.Equal(t, uint64(0x2222), got64)
	m.Write32(0x33333333)
	assert.Equal(t, uint64(0x33333333), got64)
	m.Write64(0x4444444444444444)
	assert.Equal(t, uint64(0x4444444444444444), got64)
	m.Write128(uint128.New(1, 2))
	assert.Equal(t, uint128.New(1, 2), got128)
}

func TestWriteWithoutHandlerIsDiscarded(t *testing.T) {
	// declared Write or ReadWrite does not make a write handler mandatory,
	// the write is a silent no-op
	for _, typ := range []EntryType{UnmappedLow, UnmappedHigh, Write, ReadWrite} {
		m := New()
		m.entries[0].Type = typ
		m.SelectAddress(Addr(3))
		m.Write8(0xAA)
		m.Write16(0xAAAA)
		m.Write32(0xAAAAAAAA)
		m.Write64(0xAAAAAAAAAAAAAAAA)
		m.Write128(uint128.Max)
	}
}

func TestBrokenMapPanics(t *testing.T) {
	tests := []struct {
		name string
		typ  EntryType
	}{
		{"read region without handler", Read},
		{"write region without handler", Write},
		{"readwrite region without handler", ReadWrite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			m.entries[0].Type = tt.typ
			m.SelectAddress(Addr(0x77))

			defer func() {
				cfgErr, ok := recover().(ConfigurationError)
				assert.True(t, ok)
				assert.Equal(t, Addr(0x77), cfgErr.Addr)
				assert.Equal(t, tt.typ, cfgErr.Type)
			}()
			m.Read8()
		})
	}
}

func TestBrokenMapPanicsThroughWideRead(t *testing.T) {
	// the fallback chain ends at the 8 bit consistency check
	m := New()
	m.entries[0].Type = Read
	m.SelectAddress(Addr(0))

	defer func() {
		_, ok := recover().(ConfigurationError)
		assert.True(t, ok)
	}()
	m.Read64()
}

func TestFirstMatchWins(t *testing.T) {
	m := NewEmpty()
	assert.NoError(t, m.Append(Entry{
		Start: Addr(0), End: Addr(0xFF), Type: Read,
		Read8: func(Address) uint8 { return 0x11 },
	}))
	assert.NoError(t, m.Append(Entry{
		Start: Addr(0), End: Addr(0xFF), Type: Read,
		Read8: func(Address) uint8 { return 0x22 },
	}))

	m.SelectAddress(Addr(0x10))
	assert.Equal(t, uint8(0x11), m.Read8())
}

func TestResolveMissAppendsBackstop(t *testing.T) {
	m := NewEmpty()
	assert.NoError(t, m.Append(Entry{Start: Addr(0x100), End: Addr(0x1FF), Type: UnmappedHigh}))

	m.SelectAddress(Addr(5))
	assert.Equal(t, uint8(0), m.Read8())
	assert.Equal(t, 2, len(m.Entries()))

	// the backstop reads as zero and stays, no second append
	assert.Equal(t, uint8(0), m.Read8())
	assert.Equal(t, 2, len(m.Entries()))
}

func TestResolveMissLegacyIndexing(t *testing.T) {
	// with a non empty entry list the legacy indexing lands on the entry
	// just appended, same as the corrected mode
	m := NewEmpty()
	m.SetLegacyResolve(true)
	assert.NoError(t, m.Append(Entry{Start: Addr(0x100), End: Addr(0x1FF), Type: UnmappedHigh}))
	assert.NoError(t, m.Append(Entry{Start: Addr(0x300), End: Addr(0x3FF), Type: UnmappedHigh}))

	m.SelectAddress(Addr(5))
	assert.Equal(t, uint8(0), m.Read8())
	assert.Equal(t, 3, len(m.Entries()))
}

func TestResolveMissLegacyEmptyListFaults(t *testing.T) {
	// an entirely empty list faults in legacy mode
	m := NewEmpty()
	m.SetLegacyResolve(true)
	m.SelectAddress(Addr(5))

	defer func() {
		assert.True(t, recover() != nil)
	}()
	m.Read8()
}

func TestAppendValidatesRange(t *testing.T) {
	m := NewEmpty()
	assert.Error(t, m.Append(Entry{Start: Addr(2), End: Addr(1)}), "entry start 2 beyond end 1")
	assert.NoError(t, m.Append(Entry{Start: Addr(1), End: Addr(1)}))
}

func TestAppendedEntriesShadowedByDefault(t *testing.T) {
	// New puts a full range entry first, so appended regions never win a
	// first match scan - documented behavior of the default construction
	m := New()
	assert.NoError(t, m.Append(Entry{
		Start: Addr(0), End: Addr(0xFF), Type: Read,
		Read8: func(Address) uint8 { return 0x99 },
	}))
	m.SelectAddress(Addr(0x10))
	assert.Equal(t, uint8(0), m.Read8())
}

func TestHandlerReceivesMaskedAddress(t *testing.T) {
	var got Address
	m := NewEmpty()
	assert.NoError(t, m.Append(Entry{
		Start: Addr(0), End: uint128.Max, Type: Read,
		Read8: func(addr Address) uint8 {
			got = addr
			return 0
		},
	}))
	m.SetAddrMask(Addr(0x7))

	m.SelectAddress(Addr(0x1D))
	m.Read8()
	assert.Equal(t, Addr(0x5), got)
}

func Test128BitAddressRange(t *testing.T) {
	// entries above the 64 bit line resolve too
	high := uint128.New(0, 1) // 1 << 64
	m := NewEmpty()
	assert.NoError(t, m.Append(Entry{
		Start: high, End: uint128.Max, Type: Read,
		Read8: func(Address) uint8 { return 0x5A },
	}))

	m.SelectAddress(high.Add64(0x1000))
	assert.Equal(t, uint8(0x5A), m.Read8())

	m.SelectAddress(Addr(0x1000))
	assert.Equal(t, uint8(0), m.Read8())
}
