package memmap

// Detailed Memory Map:
//
// $0000-$BFFF: Cartridge ROM
//   Up to 48KB of cartridge space. Reads past the end of the loaded image
//   return $01, with no cartridge at all they read $FF.
//
// $C000-$C7FF: Unmapped
//
// $C800-$CFFF: RAM
//   1KB of RAM. The second half ($CC00-$CFFF) mirrors the first.
//
// $D000-$D7FF: VIA 6522
//   16 registers repeated every 16 bytes (128 times).
//
// $D800-$DFFF: Illegal
//   Both RAM and VIA chip selects are active at once on real hardware.
//   Reads return $01, writes are dropped.
//
// $E000-$FFFF: BIOS ROM
//   8KB. The interrupt vectors live at $FFF2-$FFFF.
const (
	CartridgeStart = 0x0000
	CartridgeEnd   = 0xBFFF
	CartridgeSize  = CartridgeEnd - CartridgeStart + 1

	GapStart = 0xC000
	GapEnd   = 0xC7FF

	RAMStart = 0xC800
	RAMEnd   = 0xCFFF
	RAMSize  = 0x400

	VIAStart     = 0xD000
	VIAEnd       = 0xD7FF
	VIARegisters = 0x10

	IllegalStart = 0xD800
	IllegalEnd   = 0xDFFF

	BIOSStart = 0xE000
	BIOSEnd   = 0xFFFF
	BIOSSize  = BIOSEnd - BIOSStart + 1
)

// Region is the chip an address decodes to.
type Region uint8

const (
	RegionCartridge Region = iota
	RegionGap
	RegionRAM
	RegionVIA
	RegionIllegal
	RegionBIOS
)

// Regions lists every region in address order.
var Regions = []Region{RegionCartridge, RegionGap, RegionRAM, RegionVIA, RegionIllegal, RegionBIOS}

func (r Region) String() string {
	switch r {
	case RegionCartridge:
		return "Cartridge"
	case RegionGap:
		return "Gap"
	case RegionRAM:
		return "RAM"
	case RegionVIA:
		return "VIA"
	case RegionIllegal:
		return "Illegal"
	case RegionBIOS:
		return "BIOS"
	}
	return "???"
}

// Bounds returns the first and last address of the region's window.
func (r Region) Bounds() (uint16, uint16) {
	switch r {
	case RegionCartridge:
		return CartridgeStart, CartridgeEnd
	case RegionGap:
		return GapStart, GapEnd
	case RegionRAM:
		return RAMStart, RAMEnd
	case RegionVIA:
		return VIAStart, VIAEnd
	case RegionIllegal:
		return IllegalStart, IllegalEnd
	}
	return BIOSStart, BIOSEnd
}

// Classify returns the region addr belongs to. Every address maps to
// exactly one region.
func Classify(addr uint16) Region {
	switch {
	case addr <= CartridgeEnd:
		return RegionCartridge
	case addr <= GapEnd:
		return RegionGap
	case addr <= RAMEnd:
		return RegionRAM
	case addr <= VIAEnd:
		return RegionVIA
	case addr <= IllegalEnd:
		return RegionIllegal
	}
	return RegionBIOS
}

// RAMIndex folds a RAM window address onto the 1KB physical array.
func RAMIndex(addr uint16) uint16 {
	return (addr - RAMStart) % RAMSize
}

// VIARegister folds a VIA window address onto one of the 16 registers.
func VIARegister(addr uint16) uint8 {
	return uint8((addr - VIAStart) % VIARegisters)
}

// BIOSIndex returns the offset of addr inside the 8KB BIOS window.
func BIOSIndex(addr uint16) uint16 {
	return addr - BIOSStart
}
