package system

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/retroenv/retrogolib/log"
	"lukechampine.com/uint128"

	"membus/bus"
	"membus/console"
)

// Memory layout of the demo machine. The 24 bit address mask folds the
// whole 128 bit space onto this window.
const (
	AddrMask = 0xFFFFFF

	RAMStart = 0x000000
	RAMSize  = 64 * 1024
	RAMEnd   = RAMStart + RAMSize - 1

	ROMStart = 0x010000
	ROMSize  = 0x4000
	ROMEnd   = ROMStart + ROMSize - 1

	FIFOStart = 0x01F000
	FIFOEnd   = 0x01F00F
)

// System wires the memory map, the devices behind it, the console and the
// logger into the demo machine the monitor drives.
type System struct {
	Bus *bus.MemoryMap

	ram  []byte
	rom  []byte
	fifo fifo

	// one lock around every select+access pair - the bus itself does not
	// make the two calls atomic against interleaving
	mu sync.Mutex

	console console.Console
	log     *log.Logger
}

// fifo is a toy device register block: an 8 bit read pops the next value,
// the way hardware FIFOs advance on access, a write reloads the counter.
type fifo struct {
	next uint8
}

func (f *fifo) pop(_ bus.Address) uint8 {
	v := f.next
	f.next++
	return v
}

func (f *fifo) load(_ bus.Address, data uint8) {
	f.next = data
}

// InitializeSystem assembles the demo memory map: RAM with handlers for
// every width, a boot ROM readable 8 bits at a time and a FIFO register
// window. Regions are appended most specific first, the UnmappedLow
// backstop materializes on the first miss.
func InitializeSystem(c console.Console, logger *log.Logger) (*System, error) {
	sys := &System{
		Bus:     bus.NewEmpty(),
		ram:     make([]byte, RAMSize),
		rom:     buildBootROM(),
		console: c,
		log:     logger,
	}
	sys.Bus.SetAddrMask(bus.Addr(AddrMask))

	if err := sys.mapRAM(); err != nil {
		return nil, fmt.Errorf("mapping ram: %w", err)
	}
	if err := sys.mapROM(); err != nil {
		return nil, fmt.Errorf("mapping rom: %w", err)
	}
	if err := sys.mapFIFO(); err != nil {
		return nil, fmt.Errorf("mapping fifo: %w", err)
	}

	logger.Debug("memory map assembled",
		log.String("mask", FormatAddr(sys.Bus.AddrMask())))
	_ = sys.console.WriteConsole("memory map assembled\n")
	return sys, nil
}

// mapRAM backs [RAMStart, RAMEnd] with a byte slice, little endian for the
// multi width handlers. A wide access at the top of the region wraps to
// its bottom, the way a narrow hardware address bus wraps.
func (sys *System) mapRAM() error {
	off := func(addr bus.Address) uint32 {
		return uint32(addr.Lo) - RAMStart
	}
	return sys.Bus.Append(bus.Entry{
		Start: bus.Addr(RAMStart),
		End:   bus.Addr(RAMEnd),
		Type:  bus.ReadWrite,
		Read8: func(addr bus.Address) uint8 {
			return sys.ram[off(addr)]
		},
		Read16: func(addr bus.Address) uint16 {
			var b [2]byte
			sys.ramRead(b[:], off(addr))
			return binary.LittleEndian.Uint16(b[:])
		},
		Read32: func(addr bus.Address) uint32 {
			var b [4]byte
			sys.ramRead(b[:], off(addr))
			return binary.LittleEndian.Uint32(b[:])
		},
		Read64: func(addr bus.Address) uint64 {
			var b [8]byte
			sys.ramRead(b[:], off(addr))
			return binary.LittleEndian.Uint64(b[:])
		},
		Read128: func(addr bus.Address) uint128.Uint128 {
			var b [16]byte
			sys.ramRead(b[:], off(addr))
			return uint128.FromBytes(b[:])
		},
		Write8: func(addr bus.Address, data uint8) {
			sys.ram[off(addr)] = data
		},
		Write16: func(addr bus.Address, data uint16) {
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], data)
			sys.ramWrite(b[:], off(addr))
		},
		Write32: func(addr bus.Address, data uint32) {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], data)
			sys.ramWrite(b[:], off(addr))
		},
		Write64: func(addr bus.Address, data uint64) {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], data)
			sys.ramWrite(b[:], off(addr))
		},
		Write128: func(addr bus.Address, data uint128.Uint128) {
			var b [16]byte
			data.PutBytes(b[:])
			sys.ramWrite(b[:], off(addr))
		},
	})
}

// ramRead copies len(buf) bytes starting at offset i into buf, wrapping at
// the top of RAM.
func (sys *System) ramRead(buf []byte, i uint32) {
	for k := range buf {
		buf[k] = sys.ram[(i+uint32(k))%RAMSize]
	}
}

// ramWrite copies buf into RAM starting at offset i, wrapping at the top.
func (sys *System) ramWrite(buf []byte, i uint32) {
	for k := range buf {
		sys.ram[(i+uint32(k))%RAMSize] = buf[k]
	}
}

// mapROM exposes the boot image read only, 8 bits at a time. Wider reads
// go through the bus fallback and come back zero extended.
func (sys *System) mapROM() error {
	return sys.Bus.Append(bus.Entry{
		Start: bus.Addr(ROMStart),
		End:   bus.Addr(ROMEnd),
		Type:  bus.Read,
		Read8: func(addr bus.Address) uint8 {
			return sys.rom[uint32(addr.Lo)-ROMStart]
		},
	})
}

func (sys *System) mapFIFO() error {
	return sys.Bus.Append(bus.Entry{
		Start:  bus.Addr(FIFOStart),
		End:    bus.Addr(FIFOEnd),
		Type:   bus.ReadWrite,
		Read8:  sys.fifo.pop,
		Write8: sys.fifo.load,
	})
}

// buildBootROM generates the boot image: a signature followed by an
// ascending byte pattern, enough for the monitor to recognize on screen.
func buildBootROM() []byte {
	rom := make([]byte, ROMSize)
	copy(rom, "MBUS")
	for i := 4; i < len(rom); i++ {
		rom[i] = uint8(i)
	}
	return rom
}

// Peek8 selects addr and reads one byte, as one locked sequence.
func (sys *System) Peek8(addr uint64) uint8 {
	sys.mu.Lock()
	defer sys.mu.Unlock()
	sys.Bus.SelectAddress(bus.Addr(addr))
	return sys.Bus.Read8()
}

func (sys *System) Peek16(addr uint64) uint16 {
	sys.mu.Lock()
	defer sys.mu.Unlock()
	sys.Bus.SelectAddress(bus.Addr(addr))
	return sys.Bus.Read16()
}

func (sys *System) Peek32(addr uint64) uint32 {
	sys.mu.Lock()
	defer sys.mu.Unlock()
	sys.Bus.SelectAddress(bus.Addr(addr))
	return sys.Bus.Read32()
}

// Poke8 selects addr and writes one byte, as one locked sequence.
func (sys *System) Poke8(addr uint64, data uint8) {
	sys.mu.Lock()
	defer sys.mu.Unlock()
	sys.Bus.SelectAddress(bus.Addr(addr))
	sys.Bus.Write8(data)
}

func (sys *System) Poke16(addr uint64, data uint16) {
	sys.mu.Lock()
	defer sys.mu.Unlock()
	sys.Bus.SelectAddress(bus.Addr(addr))
	sys.Bus.Write16(data)
}

func (sys *System) Poke32(addr uint64, data uint32) {
	sys.mu.Lock()
	defer sys.mu.Unlock()
	sys.Bus.SelectAddress(bus.Addr(addr))
	sys.Bus.Write32(data)
}

// SafePeek8 is Peek8 with the broken map panic turned into an error, for
// monitor loops that should report and keep going.
func (sys *System) SafePeek8(addr uint64) (v uint8, err error) {
	defer func() {
		if t := recover(); t != nil {
			cfgErr, ok := t.(bus.ConfigurationError)
			if !ok {
				panic(t)
			}
			sys.log.Error("broken memory map", cfgErr)
			err = cfgErr
		}
	}()
	return sys.Peek8(addr), nil
}

// LoadBootPattern copies the head of the boot ROM into low RAM through the
// bus, the way a bootstrap loader would.
func (sys *System) LoadBootPattern() {
	for i := uint64(0); i < 256; i++ {
		sys.Poke8(RAMStart+i, sys.Peek8(ROMStart+i))
	}
	sys.log.Debug("boot pattern loaded",
		log.String("signature", fmt.Sprintf("%08x", sys.Peek32(RAMStart))))
}

// FormatAddr renders an address the way the monitor displays it.
func FormatAddr(a bus.Address) string {
	if a.Hi != 0 {
		return fmt.Sprintf("%x_%016x", a.Hi, a.Lo)
	}
	return fmt.Sprintf("%08x", a.Lo)
}

// DumpMap renders the entry table for the monitor's map view.
func (sys *System) DumpMap(w io.Writer) {
	for i, e := range sys.Bus.Entries() {
		fmt.Fprintf(w, "%2d  %s-%s  %-12s %s\n",
			i, FormatAddr(e.Start), FormatAddr(e.End), e.Type, handlerTags(e))
	}
}

// handlerTags lists the widths an entry registers handlers for.
func handlerTags(e bus.Entry) string {
	var tags []string
	if e.Read8 != nil {
		tags = append(tags, "r8")
	}
	if e.Read16 != nil {
		tags = append(tags, "r16")
	}
	if e.Read32 != nil {
		tags = append(tags, "r32")
	}
	if e.Read64 != nil {
		tags = append(tags, "r64")
	}
	if e.Read128 != nil {
		tags = append(tags, "r128")
	}
	if e.Write8 != nil {
		tags = append(tags, "w8")
	}
	if e.Write16 != nil {
		tags = append(tags, "w16")
	}
	if e.Write32 != nil {
		tags = append(tags, "w32")
	}
	if e.Write64 != nil {
		tags = append(tags, "w64")
	}
	if e.Write128 != nil {
		tags = append(tags, "w128")
	}
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, " ")
}
