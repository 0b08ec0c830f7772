package bus

import (
	"errors"
	"fmt"
	"log"

	"github.com/nevisdale/vectic/internal/memmap"
	"github.com/nevisdale/vectic/internal/via"
)

const (
	// value seen when reading unmapped space, the data lines float high
	openBus = 0xFF

	// value returned when reading past the end of a loaded cartridge
	CartOutOfBounds = 0x01

	// value returned by the illegal region where RAM and VIA selects overlap
	illegalRead = 0x01

	biosHalfSize = memmap.BIOSSize / 2
)

var (
	ErrBIOSSize      = errors.New("invalid BIOS size")
	ErrCartridgeSize = errors.New("invalid cartridge size")
)

// BIOSSizeError reports a BIOS image that is neither 4KB nor 8KB.
type BIOSSizeError struct {
	Len int
}

func (e *BIOSSizeError) Error() string {
	return fmt.Sprintf("BIOS must be %d or %d bytes, got %d", biosHalfSize, memmap.BIOSSize, e.Len)
}

func (e *BIOSSizeError) Unwrap() error { return ErrBIOSSize }

// CartridgeSizeError reports a cartridge image larger than the cartridge window.
type CartridgeSizeError struct {
	Len int
}

func (e *CartridgeSizeError) Error() string {
	return fmt.Sprintf("cartridge must be at most %d bytes, got %d", memmap.CartridgeSize, e.Len)
}

func (e *CartridgeSizeError) Unwrap() error { return ErrCartridgeSize }

// Stats counts accesses that did not hit real memory.
type Stats struct {
	UnmappedReads    uint64
	UnmappedWrites   uint64
	IgnoredROMWrites uint64
	CartOOBReads     uint64
	IllegalAccesses  uint64
	TotalCycles      uint64
}

// PortWrite is a CPU write into one of the VIA registers.
type PortWrite struct {
	Reg   uint8
	Data  uint8
	Cycle uint64
}

// Bus connects the CPU to the cartridge, RAM, VIA and BIOS.
// It owns every backing store and the VIA.
type Bus struct {
	cart       []uint8
	cartLoaded bool

	ram [memmap.RAMSize]uint8

	bios       [memmap.BIOSSize]uint8
	biosLoaded bool

	via *via.VIA

	onPortWrite func(PortWrite)
	stats       Stats

	// Trace logs accesses to unmapped space.
	Trace bool
}

func New() *Bus {
	return &Bus{
		via: via.New(),
	}
}

// VIA gives access to the interface chip, e.g. to drive its inputs.
func (b *Bus) VIA() *via.VIA {
	return b.via
}

// OnPortWrite registers fn to be called for every write into the VIA window.
// The bus does not interpret the value, that is up to the sound and vector
// hardware hanging off the ports.
func (b *Bus) OnPortWrite(fn func(PortWrite)) {
	b.onPortWrite = fn
}

// LoadBIOS maps a 4KB or 8KB system ROM at $E000. A 4KB image fills both
// halves of the window.
func (b *Bus) LoadBIOS(data []uint8) error {
	switch len(data) {
	case biosHalfSize:
		copy(b.bios[:biosHalfSize], data)
		copy(b.bios[biosHalfSize:], data)
	case memmap.BIOSSize:
		copy(b.bios[:], data)
	default:
		return &BIOSSizeError{Len: len(data)}
	}
	b.biosLoaded = true
	return nil
}

// LoadCartridge maps a cartridge image at $0000.
func (b *Bus) LoadCartridge(data []uint8) error {
	if len(data) > memmap.CartridgeSize {
		return &CartridgeSizeError{Len: len(data)}
	}
	b.cart = make([]uint8, len(data))
	copy(b.cart, data)
	b.cartLoaded = true
	return nil
}

// EjectCartridge unmaps the cartridge.
func (b *Bus) EjectCartridge() {
	b.cart = nil
	b.cartLoaded = false
}

// Reset clears RAM and the VIA. Loaded ROM images stay mapped.
func (b *Bus) Reset() {
	b.ram = [memmap.RAMSize]uint8{}
	b.via.Reset()
	b.stats = Stats{}
}

// Stats returns the access counters.
func (b *Bus) Stats() Stats {
	return b.stats
}

func (b *Bus) readCart(addr uint16, count bool) uint8 {
	if !b.cartLoaded {
		return openBus
	}
	if int(addr) >= len(b.cart) {
		if count {
			b.stats.CartOOBReads++
		}
		return CartOutOfBounds
	}
	return b.cart[addr]
}

// Read8 reads a byte as the CPU sees it, including VIA read side effects.
func (b *Bus) Read8(addr uint16) uint8 {
	switch memmap.Classify(addr) {
	case memmap.RegionCartridge:
		return b.readCart(addr, true)
	case memmap.RegionRAM:
		return b.ram[memmap.RAMIndex(addr)]
	case memmap.RegionVIA:
		return b.via.Read(memmap.VIARegister(addr))
	case memmap.RegionBIOS:
		if !b.biosLoaded {
			return openBus
		}
		return b.bios[memmap.BIOSIndex(addr)]
	case memmap.RegionIllegal:
		b.stats.IllegalAccesses++
		b.stats.UnmappedReads++
		if b.Trace {
			log.Printf("bus: read from illegal address %04X\n", addr)
		}
		return illegalRead
	}
	b.stats.UnmappedReads++
	if b.Trace {
		log.Printf("bus: read from unmapped address %04X\n", addr)
	}
	return openBus
}

// Peek reads a byte without side effects or statistics. Meant for debuggers.
func (b *Bus) Peek(addr uint16) uint8 {
	switch memmap.Classify(addr) {
	case memmap.RegionCartridge:
		return b.readCart(addr, false)
	case memmap.RegionRAM:
		return b.ram[memmap.RAMIndex(addr)]
	case memmap.RegionVIA:
		return b.via.Peek(memmap.VIARegister(addr))
	case memmap.RegionBIOS:
		if !b.biosLoaded {
			return openBus
		}
		return b.bios[memmap.BIOSIndex(addr)]
	case memmap.RegionIllegal:
		return illegalRead
	}
	return openBus
}

// Write8 writes a byte. Writes to ROM and unmapped space are dropped.
func (b *Bus) Write8(addr uint16, data uint8) {
	switch memmap.Classify(addr) {
	case memmap.RegionRAM:
		b.ram[memmap.RAMIndex(addr)] = data
	case memmap.RegionVIA:
		reg := memmap.VIARegister(addr)
		b.via.Write(reg, data)
		if b.onPortWrite != nil {
			b.onPortWrite(PortWrite{Reg: reg, Data: data, Cycle: b.stats.TotalCycles})
		}
	case memmap.RegionCartridge, memmap.RegionBIOS:
		b.stats.IgnoredROMWrites++
	case memmap.RegionIllegal:
		b.stats.IllegalAccesses++
		fallthrough
	default:
		b.stats.UnmappedWrites++
		if b.Trace {
			log.Printf("bus: write %02X to unmapped address %04X\n", data, addr)
		}
	}
}

// Tick advances the devices on the bus by the number of CPU cycles the last
// instruction took.
func (b *Bus) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	b.stats.TotalCycles += uint64(cycles)
	b.via.Tick(cycles)
}

// IRQ reports the state of the CPU IRQ line.
func (b *Bus) IRQ() bool {
	return b.via.IRQ()
}
