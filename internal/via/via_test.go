package via

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadT1(v *VIA, value uint16) {
	v.Write(RegT1CL, uint8(value))
	v.Write(RegT1CH, uint8(value>>8))
}

func loadT2(v *VIA, value uint16) {
	v.Write(RegT2CL, uint8(value))
	v.Write(RegT2CH, uint8(value>>8))
}

func Test_Timer1(t *testing.T) {
	t.Run("one-shot underflow sets flag and asserts irq", func(t *testing.T) {
		v := New()
		v.Write(RegIER, 0x80|FlagT1)
		loadT1(v, 3)

		v.Tick(2)
		assert.Zero(t, v.Read(RegIFR)&FlagT1)
		assert.False(t, v.IRQ())

		v.Tick(1)
		assert.Equal(t, FlagT1|FlagIRQ, v.Peek(RegIFR))
		assert.True(t, v.IRQ())
	})

	t.Run("continuous mode re-triggers", func(t *testing.T) {
		v := New()
		v.Write(RegACR, acrT1Continuous)
		v.Write(RegIER, 0x80|FlagT1)
		loadT1(v, 3)

		v.Tick(3)
		require.True(t, v.IRQ())
		v.Write(RegIFR, FlagT1)
		require.False(t, v.IRQ())

		v.Tick(3)
		assert.Equal(t, FlagT1, v.Peek(RegIFR)&FlagT1)
		assert.True(t, v.IRQ())
	})

	t.Run("one-shot stops counting", func(t *testing.T) {
		v := New()
		loadT1(v, 3)
		v.Tick(3)
		v.Write(RegIFR, FlagT1)
		v.Tick(100)
		assert.Zero(t, v.Peek(RegIFR)&FlagT1)
		assert.Equal(t, uint8(0), v.Peek(RegT1CL))
	})

	t.Run("flag without enable does not raise irq", func(t *testing.T) {
		v := New()
		loadT1(v, 1)
		v.Tick(1)
		assert.Equal(t, FlagT1, v.Peek(RegIFR))
		assert.False(t, v.IRQ())
	})

	t.Run("batched tick counts every underflow", func(t *testing.T) {
		v := New()
		v.Write(RegACR, acrT1Continuous|acrPB7Output)
		loadT1(v, 4)

		// underflows at 4, 8, 12 -> three toggles
		v.Tick(13)
		assert.True(t, v.PB7())
		assert.Equal(t, uint16(3), v.State().T1Counter)
	})

	t.Run("pb7 toggles in one-shot mode", func(t *testing.T) {
		v := New()
		v.Write(RegACR, acrPB7Output)
		loadT1(v, 2)
		assert.False(t, v.PB7())
		v.Tick(2)
		assert.True(t, v.PB7())
		assert.Equal(t, uint8(0x80), v.Read(RegORB)&0x80)
	})

	t.Run("high byte write does not clear pending flag", func(t *testing.T) {
		v := New()
		v.Write(RegIER, 0x80|FlagT1)
		loadT1(v, 1)
		v.Tick(1)
		require.True(t, v.IRQ())

		loadT1(v, 10)
		assert.True(t, v.IRQ())
		assert.Equal(t, uint16(10), v.State().T1Counter)
	})

	t.Run("reading T1C-L clears flag", func(t *testing.T) {
		v := New()
		v.Write(RegIER, 0x80|FlagT1)
		loadT1(v, 1)
		v.Tick(1)
		require.True(t, v.IRQ())

		v.Read(RegT1CL)
		assert.False(t, v.IRQ())
		assert.Zero(t, v.Peek(RegIFR))
	})

	t.Run("latch registers", func(t *testing.T) {
		v := New()
		v.Write(RegT1LL, 0x34)
		v.Write(RegT1LH, 0x12)
		assert.Equal(t, uint8(0x34), v.Read(RegT1LL))
		assert.Equal(t, uint8(0x12), v.Read(RegT1LH))
		assert.Equal(t, uint16(0), v.State().T1Counter)
	})
}

func Test_Timer2(t *testing.T) {
	t.Run("underflow sets flag once", func(t *testing.T) {
		v := New()
		v.Write(RegIER, 0x80|FlagT2)
		loadT2(v, 5)

		v.Tick(4)
		assert.False(t, v.IRQ())
		v.Tick(1)
		assert.True(t, v.IRQ())

		v.Write(RegIFR, FlagT2)
		v.Tick(0x20000)
		assert.False(t, v.IRQ())
	})

	t.Run("reading T2C-H clears flag and drops irq", func(t *testing.T) {
		v := New()
		v.Write(RegIER, 0x80|FlagT2)
		loadT2(v, 2)
		v.Tick(2)
		require.Equal(t, FlagT2|FlagIRQ, v.Peek(RegIFR))

		v.Read(RegT2CH)
		assert.Zero(t, v.Peek(RegIFR))
		assert.False(t, v.IRQ())
	})

	t.Run("reading T2C-H keeps irq for other sources", func(t *testing.T) {
		v := New()
		v.Write(RegIER, 0x80|FlagT2|FlagT1)
		loadT1(v, 2)
		loadT2(v, 2)
		v.Tick(2)

		v.Read(RegT2CH)
		assert.Equal(t, FlagT1|FlagIRQ, v.Peek(RegIFR))
		assert.True(t, v.IRQ())
	})

	t.Run("high byte write clears flag", func(t *testing.T) {
		v := New()
		v.Write(RegIER, 0x80|FlagT2)
		loadT2(v, 1)
		v.Tick(1)
		require.True(t, v.IRQ())

		loadT2(v, 0x7530)
		assert.False(t, v.IRQ())
		v.Tick(0x7530)
		assert.True(t, v.IRQ())
	})

	t.Run("pulse counting mode does not decrement", func(t *testing.T) {
		v := New()
		v.Write(RegACR, acrT2PulseCount)
		loadT2(v, 2)
		v.Tick(10)
		assert.Zero(t, v.Peek(RegIFR))
		assert.Equal(t, uint16(2), v.State().T2Counter)
	})
}

func Test_IFR_IER(t *testing.T) {
	t.Run("ier set and clear", func(t *testing.T) {
		v := New()
		v.Write(RegIER, 0x80|FlagT1|FlagT2)
		assert.Equal(t, uint8(0x80|FlagT1|FlagT2), v.Read(RegIER))

		v.Write(RegIER, FlagT1)
		assert.Equal(t, uint8(0x80|FlagT2), v.Read(RegIER))
	})

	t.Run("ifr write-one-to-clear", func(t *testing.T) {
		v := New()
		loadT1(v, 1)
		loadT2(v, 1)
		v.Tick(1)
		require.Equal(t, FlagT1|FlagT2, v.Peek(RegIFR))

		v.Write(RegIFR, FlagT2)
		assert.Equal(t, FlagT1, v.Peek(RegIFR))
		v.Write(RegIFR, 0x80)
		assert.Equal(t, FlagT1, v.Peek(RegIFR))
	})

	t.Run("aggregate bit follows enable", func(t *testing.T) {
		v := New()
		loadT1(v, 1)
		v.Tick(1)
		assert.Zero(t, v.Peek(RegIFR)&FlagIRQ)

		v.Write(RegIER, 0x80|FlagT1)
		assert.Equal(t, FlagIRQ, v.Peek(RegIFR)&FlagIRQ)
		assert.True(t, v.IRQ())

		v.Write(RegIER, FlagT1)
		assert.Zero(t, v.Peek(RegIFR)&FlagIRQ)
		assert.False(t, v.IRQ())
	})
}

func Test_ShiftRegister(t *testing.T) {
	t.Run("phi2 shift out flags after 8 bits", func(t *testing.T) {
		v := New()
		v.Write(RegACR, uint8(ShiftOutPhi2)<<2)
		v.Write(RegIER, 0x80|FlagSR)
		v.Write(RegSR, 0x81)

		v.Tick(15)
		assert.False(t, v.IRQ())
		v.Tick(1)
		assert.True(t, v.IRQ())
		// recirculated back to the original pattern
		assert.Equal(t, uint8(0x81), v.Peek(RegSR))
	})

	t.Run("cb2 carries shifted bit", func(t *testing.T) {
		v := New()
		v.Write(RegACR, uint8(ShiftOutPhi2)<<2)
		v.Write(RegSR, 0x80)
		v.Tick(2)
		assert.True(t, v.CB2())
		v.Tick(2)
		assert.False(t, v.CB2())
	})

	t.Run("free running re-flags", func(t *testing.T) {
		v := New()
		v.Write(RegT2CL, 0)
		v.Write(RegACR, uint8(ShiftOutFreeRunning)<<2)
		v.Write(RegSR, 0xAA)

		v.Tick(16)
		require.Equal(t, FlagSR, v.Peek(RegIFR)&FlagSR)
		v.Write(RegIFR, FlagSR)
		v.Tick(16)
		assert.Equal(t, FlagSR, v.Peek(RegIFR)&FlagSR)
	})

	t.Run("disabled mode does not shift", func(t *testing.T) {
		v := New()
		v.Write(RegSR, 0x55)
		v.Tick(100)
		assert.Equal(t, uint8(0x55), v.Peek(RegSR))
		assert.Zero(t, v.Peek(RegIFR))
	})

	t.Run("reading sr restarts sequence", func(t *testing.T) {
		v := New()
		v.Write(RegACR, uint8(ShiftInPhi2)<<2)
		v.Write(RegSR, 0)
		v.Tick(16)
		require.Equal(t, FlagSR, v.Peek(RegIFR)&FlagSR)

		v.Read(RegSR)
		assert.Zero(t, v.Peek(RegIFR)&FlagSR)
		v.Tick(16)
		assert.Equal(t, FlagSR, v.Peek(RegIFR)&FlagSR)
	})
}

func Test_Ports(t *testing.T) {
	v := New()
	v.Write(RegDDRA, 0xF0)
	v.Write(RegORA, 0xAB)
	v.SetPortAInput(0x05)
	assert.Equal(t, uint8(0xA5), v.Read(RegORA))
	assert.Equal(t, uint8(0xA5), v.Read(RegORANoHandshake))

	v.Write(RegDDRB, 0xFF)
	v.Write(RegORB, 0x3C)
	assert.Equal(t, uint8(0x3C), v.Read(RegORB))
}

func Test_ControlLines(t *testing.T) {
	t.Run("ca1 negative edge", func(t *testing.T) {
		v := New()
		v.Write(RegIER, 0x80|FlagCA1)
		v.SetCA1(true)
		assert.False(t, v.IRQ())
		v.SetCA1(false)
		assert.True(t, v.IRQ())

		v.Read(RegORA)
		assert.False(t, v.IRQ())
	})

	t.Run("cb1 positive edge", func(t *testing.T) {
		v := New()
		v.Write(RegPCR, pcrCB1Positive)
		v.SetCB1(true)
		assert.Equal(t, FlagCB1, v.Peek(RegIFR))
	})

	t.Run("manual ca2 and cb2 outputs", func(t *testing.T) {
		v := New()
		v.Write(RegPCR, 0xCC) // CB2 low, CA2 low
		assert.False(t, v.CA2())
		assert.False(t, v.CB2())
		v.Write(RegPCR, 0xEE) // CB2 high, CA2 high
		assert.True(t, v.CA2())
		assert.True(t, v.CB2())
	})
}

func Test_Reset(t *testing.T) {
	v := New()
	v.Write(RegIER, 0x80|FlagT1)
	loadT1(v, 1)
	v.Tick(1)
	require.True(t, v.IRQ())

	v.Reset()
	assert.False(t, v.IRQ())
	assert.Equal(t, uint8(0x80), v.Read(RegIER))
	assert.Equal(t, "T1=0000/0000 T2=0000 SR=00(disabled) ACR=00 PCR=00 IFR=00 IER=80 IRQ=false", v.State().String())
}
