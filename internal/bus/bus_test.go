package bus

import (
	"errors"
	"testing"

	"github.com/nevisdale/vectic/internal/memmap"
	"github.com/nevisdale/vectic/internal/via"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_RAM_Shadow(t *testing.T) {
	b := New()
	for k := uint16(0); k < memmap.RAMSize; k++ {
		b.Write8(0xC800+k, uint8(k)^0x5A)
		if !assert.Equal(t, uint8(k)^0x5A, b.Read8(0xCC00+k), "k=%03X", k) {
			return
		}
	}
	for k := uint16(0); k < memmap.RAMSize; k++ {
		b.Write8(0xCC00+k, uint8(k))
		if !assert.Equal(t, uint8(k), b.Read8(0xC800+k), "k=%03X", k) {
			return
		}
	}
}

func Test_VIA_Mirror(t *testing.T) {
	// registers that read back what was written
	storage := []uint16{via.RegDDRB, via.RegDDRA, via.RegT1LL, via.RegT1LH, via.RegSR, via.RegACR, via.RegPCR}

	b := New()
	for _, r := range storage {
		v := uint8(0xA0 | r)
		b.Write8(0xD000+r, v)
		for n := uint16(0); n < 128; n++ {
			if !assert.Equal(t, v, b.Read8(0xD000+r+16*n), "reg=%X n=%d", r, n) {
				return
			}
		}
	}

	// writing through a far mirror reaches the same chip register
	b.Write8(0xD7FE, 0x80|via.FlagT1)
	assert.Equal(t, uint8(0x80|via.FlagT1), b.Read8(0xD00E))
}

func Test_LoadBIOS(t *testing.T) {
	t.Run("4K image fills both halves", func(t *testing.T) {
		image := make([]uint8, 4096)
		for i := range image {
			image[i] = uint8(i * 7)
		}
		b := New()
		require.NoError(t, b.LoadBIOS(image))
		for k := uint16(0); k < 4096; k++ {
			if !assert.Equal(t, b.Read8(0xE000+k), b.Read8(0xF000+k), "k=%03X", k) {
				return
			}
		}
		assert.Equal(t, image[0xFFF], b.Read8(0xFFFF))
	})

	t.Run("8K image", func(t *testing.T) {
		image := make([]uint8, 8192)
		image[0] = 0x11
		image[0x1000] = 0x22
		b := New()
		require.NoError(t, b.LoadBIOS(image))
		assert.Equal(t, uint8(0x11), b.Read8(0xE000))
		assert.Equal(t, uint8(0x22), b.Read8(0xF000))
	})

	t.Run("bad size", func(t *testing.T) {
		b := New()
		err := b.LoadBIOS(make([]uint8, 1000))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrBIOSSize))

		var sizeErr *BIOSSizeError
		require.True(t, errors.As(err, &sizeErr))
		assert.Equal(t, 1000, sizeErr.Len)
		// nothing mapped
		assert.Equal(t, uint8(0xFF), b.Read8(0xFFFE))
	})

	t.Run("writes are discarded", func(t *testing.T) {
		b := New()
		require.NoError(t, b.LoadBIOS(make([]uint8, 4096)))
		b.Write8(0xE123, 0x42)
		assert.Equal(t, uint8(0), b.Read8(0xE123))
		assert.Equal(t, uint64(1), b.Stats().IgnoredROMWrites)
	})
}

func Test_Cartridge(t *testing.T) {
	t.Run("no cartridge reads open bus", func(t *testing.T) {
		b := New()
		assert.Equal(t, uint8(0xFF), b.Read8(0x0000))
		assert.Equal(t, uint8(0xFF), b.Read8(0xBFFF))
	})

	t.Run("reads past the image return sentinel", func(t *testing.T) {
		b := New()
		require.NoError(t, b.LoadCartridge([]uint8{0x67, 0x20, 0x47}))
		assert.Equal(t, uint8(0x67), b.Read8(0x0000))
		assert.Equal(t, uint8(0x47), b.Read8(0x0002))
		assert.Equal(t, uint8(CartOutOfBounds), b.Read8(0x0003))
		assert.Equal(t, uint8(CartOutOfBounds), b.Read8(0xBFFF))
		assert.Equal(t, uint64(2), b.Stats().CartOOBReads)
	})

	t.Run("writes are ignored", func(t *testing.T) {
		b := New()
		require.NoError(t, b.LoadCartridge([]uint8{0x01, 0x02}))
		b.Write8(0x0001, 0xEE)
		assert.Equal(t, uint8(0x02), b.Read8(0x0001))
	})

	t.Run("too large", func(t *testing.T) {
		b := New()
		err := b.LoadCartridge(make([]uint8, memmap.CartridgeSize+1))
		assert.True(t, errors.Is(err, ErrCartridgeSize))
		require.NoError(t, b.LoadCartridge(make([]uint8, memmap.CartridgeSize)))
	})

	t.Run("eject", func(t *testing.T) {
		b := New()
		require.NoError(t, b.LoadCartridge([]uint8{0x01}))
		b.EjectCartridge()
		assert.Equal(t, uint8(0xFF), b.Read8(0x0000))
	})
}

func Test_Unmapped(t *testing.T) {
	type testArgs struct {
		addr uint16
		want uint8
	}

	testDo := func(t *testing.T, b *Bus, args testArgs) {
		b.Write8(args.addr, 0x12)
		assert.Equal(t, args.want, b.Read8(args.addr), "%04X", args.addr)
		assert.Equal(t, args.want, b.Peek(args.addr), "%04X", args.addr)
	}

	t.Run("gap reads FF", func(t *testing.T) {
		b := New()
		for _, addr := range []uint16{0xC000, 0xC400, 0xC7FF} {
			testDo(t, b, testArgs{addr: addr, want: 0xFF})
		}
		stats := b.Stats()
		assert.Equal(t, uint64(3), stats.UnmappedReads)
		assert.Equal(t, uint64(3), stats.UnmappedWrites)
		assert.Zero(t, stats.IllegalAccesses)
	})

	t.Run("illegal region reads 01", func(t *testing.T) {
		b := New()
		for _, addr := range []uint16{0xD800, 0xDABC, 0xDFFF} {
			testDo(t, b, testArgs{addr: addr, want: 0x01})
		}
		stats := b.Stats()
		assert.Equal(t, uint64(3), stats.UnmappedReads)
		assert.Equal(t, uint64(3), stats.UnmappedWrites)
		assert.Equal(t, uint64(6), stats.IllegalAccesses)
	})
}

func Test_Tick(t *testing.T) {
	b := New()
	b.Write8(0xD00E, 0x80|via.FlagT1)
	b.Write8(0xD004, 10)
	b.Write8(0xD005, 0)

	b.Tick(9)
	assert.False(t, b.IRQ())
	b.Tick(1)
	assert.True(t, b.IRQ())
	b.Tick(0)
	assert.Equal(t, uint64(10), b.Stats().TotalCycles)
}

func Test_OnPortWrite(t *testing.T) {
	b := New()
	var writes []PortWrite
	b.OnPortWrite(func(w PortWrite) {
		writes = append(writes, w)
	})

	b.Write8(0xD001, 0x7F)
	b.Tick(5)
	b.Write8(0xD010, 0xCE)
	b.Write8(0xC880, 0x00)
	b.Write8(0xD004, 0x30)
	b.Write8(0xD00E, 0x7F)

	// every register is reported, the beam and sound hardware time off T1
	assert.Equal(t, []PortWrite{
		{Reg: via.RegORA, Data: 0x7F, Cycle: 0},
		{Reg: via.RegORB, Data: 0xCE, Cycle: 5},
		{Reg: via.RegT1CL, Data: 0x30, Cycle: 5},
		{Reg: via.RegIER, Data: 0x7F, Cycle: 5},
	}, writes)
}

func Test_Peek(t *testing.T) {
	b := New()
	b.Write8(0xD00E, 0x80|via.FlagT2)
	b.Write8(0xD008, 1)
	b.Write8(0xD009, 0)
	b.Tick(1)
	require.True(t, b.IRQ())

	// peeking at T2C-H must not acknowledge the interrupt
	b.Peek(0xD009)
	assert.True(t, b.IRQ())
	b.Read8(0xD009)
	assert.False(t, b.IRQ())

	require.NoError(t, b.LoadCartridge([]uint8{0xAA}))
	b.Peek(0x0100)
	assert.Zero(t, b.Stats().CartOOBReads)
}

func Test_Reset(t *testing.T) {
	b := New()
	require.NoError(t, b.LoadBIOS(make([]uint8, 4096)))
	b.Write8(0xC800, 0x99)
	b.Write8(0xD00B, 0x40)
	b.Reset()
	assert.Equal(t, uint8(0), b.Read8(0xC800))
	assert.Equal(t, uint8(0), b.Read8(0xD00B))
	assert.Equal(t, uint8(0), b.Read8(0xE000))
}
