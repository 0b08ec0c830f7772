package memmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Classify_Partition(t *testing.T) {
	counts := map[Region]int{}
	prev := Region(0)
	for addr := 0; addr <= 0xFFFF; addr++ {
		r := Classify(uint16(addr))
		lo, hi := r.Bounds()
		if !assert.True(t, uint16(addr) >= lo && uint16(addr) <= hi, "address %04X outside %s bounds", addr, r) {
			return
		}
		// regions are contiguous and appear in address order
		if !assert.GreaterOrEqual(t, r, prev, "address %04X", addr) {
			return
		}
		prev = r
		counts[r]++
	}

	total := 0
	for _, r := range Regions {
		lo, hi := r.Bounds()
		assert.Equal(t, int(hi)-int(lo)+1, counts[r], "%s size", r)
		total += counts[r]
	}
	assert.Equal(t, 0x10000, total)
}

func Test_Classify_Boundaries(t *testing.T) {
	tests := []struct {
		addr     uint16
		expected Region
	}{
		{0x0000, RegionCartridge},
		{0xBFFF, RegionCartridge},
		{0xC000, RegionGap},
		{0xC7FF, RegionGap},
		{0xC800, RegionRAM},
		{0xCFFF, RegionRAM},
		{0xD000, RegionVIA},
		{0xD7FF, RegionVIA},
		{0xD800, RegionIllegal},
		{0xDFFF, RegionIllegal},
		{0xE000, RegionBIOS},
		{0xFFFF, RegionBIOS},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Classify(tt.addr), "%04X", tt.addr)
	}
}

func Test_RAMIndex_Mirror(t *testing.T) {
	for k := uint16(0); k < RAMSize; k++ {
		assert.Equal(t, k, RAMIndex(RAMStart+k))
		assert.Equal(t, k, RAMIndex(RAMStart+RAMSize+k))
	}
}

func Test_VIARegister_Mirror(t *testing.T) {
	for n := uint16(0); n < 128; n++ {
		for r := uint16(0); r < VIARegisters; r++ {
			if !assert.Equal(t, uint8(r), VIARegister(VIAStart+r+16*n)) {
				return
			}
		}
	}
}

func Test_Region_String(t *testing.T) {
	assert.Equal(t, "BIOS", RegionBIOS.String())
	assert.Equal(t, "???", Region(42).String())
}
