// Package via emulates the MOS/Rockwell 6522 Versatile Interface Adapter as
// wired on the Vectrex mainboard: two 16-bit timers, an 8-bit shift register,
// two 8-bit ports with their control lines and the interrupt flag/enable
// pair that drives the CPU IRQ line.
//
// The chip is clocked by the CPU: after every instruction the bus calls Tick
// with the exact number of cycles the instruction consumed. Tick is batched,
// it never loops per cycle, but every timer underflow and shift edge that
// falls inside the batch is still observed.
package via

import "fmt"

// Register offsets from the VIA base address.
const (
	RegORB = iota
	RegORA
	RegDDRB
	RegDDRA
	RegT1CL
	RegT1CH
	RegT1LL
	RegT1LH
	RegT2CL
	RegT2CH
	RegSR
	RegACR
	RegPCR
	RegIFR
	RegIER
	RegORANoHandshake
)

// Interrupt flag / enable bits.
const (
	FlagCA2 = uint8(1 << iota)
	FlagCA1
	FlagSR
	FlagCB2
	FlagCB1
	FlagT2
	FlagT1
	FlagIRQ // aggregate, read-only
)

const (
	acrT2PulseCount  = 0x20
	acrT1Continuous  = 0x40
	acrPB7Output     = 0x80
	acrShiftModeMask = 0x1C

	pcrCA1Positive = 0x01
	pcrCB1Positive = 0x10
)

// ShiftMode is the shift register mode selected by ACR bits 4..2.
type ShiftMode uint8

const (
	ShiftDisabled ShiftMode = iota
	ShiftInT2
	ShiftInPhi2
	ShiftInExternal
	ShiftOutFreeRunning
	ShiftOutT2
	ShiftOutPhi2
	ShiftOutExternal
)

func (m ShiftMode) String() string {
	switch m {
	case ShiftDisabled:
		return "disabled"
	case ShiftInT2:
		return "in/T2"
	case ShiftInPhi2:
		return "in/phi2"
	case ShiftInExternal:
		return "in/CB1"
	case ShiftOutFreeRunning:
		return "out/free"
	case ShiftOutT2:
		return "out/T2"
	case ShiftOutPhi2:
		return "out/phi2"
	case ShiftOutExternal:
		return "out/CB1"
	}
	return "???"
}

func (m ShiftMode) shiftsOut() bool {
	return m >= ShiftOutFreeRunning
}

// VIA is a 6522 instance. The zero value is a chip fresh out of reset.
type VIA struct {
	orb, ora   uint8
	ddrb, ddra uint8
	portAIn    uint8
	portBIn    uint8

	// Timer1
	t1Counter uint16
	t1Latch   uint16
	t1Running bool
	pb7       bool

	// Timer2. only the low latch byte is kept, the high byte goes straight
	// into the counter.
	t2Counter uint16
	t2LatchLo uint8
	t2Armed   bool

	sr          uint8
	srBits      uint8
	srCountdown int
	srShifting  bool

	acr uint8
	pcr uint8
	ifr uint8
	ier uint8

	ca1, cb1 bool
	ca2, cb2 bool

	irq bool
}

// New returns a VIA in its reset state.
func New() *VIA {
	v := &VIA{}
	v.Reset()
	return v
}

// Reset clears every register. Inputs float high like the real ports.
func (v *VIA) Reset() {
	*v = VIA{
		portAIn: 0xFF,
		portBIn: 0xFF,
		ca2:     true,
		cb2:     true,
	}
}

// IRQ reports whether the chip is pulling the IRQ line.
func (v *VIA) IRQ() bool {
	return v.irq
}

func (v *VIA) updateIRQ() {
	v.irq = v.ifr&v.ier&^FlagIRQ != 0
	if v.irq {
		v.ifr |= FlagIRQ
		return
	}
	v.ifr &^= FlagIRQ
}

func (v *VIA) setFlag(flag uint8) {
	v.ifr |= flag
	v.updateIRQ()
}

func (v *VIA) clearFlag(flag uint8) {
	v.ifr &^= flag
	v.updateIRQ()
}

func (v VIA) shiftMode() ShiftMode {
	return ShiftMode((v.acr & acrShiftModeMask) >> 2)
}

// Read returns the value of register reg (only the low 4 bits are used),
// applying the read side effects of the real chip.
func (v *VIA) Read(reg uint8) uint8 {
	reg &= 0x0F
	switch reg {
	case RegORB:
		v.clearFlag(FlagCB1 | FlagCB2)
	case RegORA:
		v.clearFlag(FlagCA1 | FlagCA2)
	case RegT1CL:
		v.clearFlag(FlagT1)
	case RegT2CH:
		v.clearFlag(FlagT2)
	case RegSR:
		v.startShift()
	}
	return v.Peek(reg)
}

// Peek returns the value of register reg without any side effects.
func (v VIA) Peek(reg uint8) uint8 {
	switch reg & 0x0F {
	case RegORB:
		data := v.orb&v.ddrb | v.portBIn&^v.ddrb
		if v.acr&acrPB7Output != 0 {
			data &^= 0x80
			if v.pb7 {
				data |= 0x80
			}
		}
		return data
	case RegORA, RegORANoHandshake:
		return v.ora&v.ddra | v.portAIn&^v.ddra
	case RegDDRB:
		return v.ddrb
	case RegDDRA:
		return v.ddra
	case RegT1CL:
		return uint8(v.t1Counter)
	case RegT1CH:
		return uint8(v.t1Counter >> 8)
	case RegT1LL:
		return uint8(v.t1Latch)
	case RegT1LH:
		return uint8(v.t1Latch >> 8)
	case RegT2CL:
		return uint8(v.t2Counter)
	case RegT2CH:
		return uint8(v.t2Counter >> 8)
	case RegSR:
		return v.sr
	case RegACR:
		return v.acr
	case RegPCR:
		return v.pcr
	case RegIFR:
		return v.ifr
	}
	// RegIER
	return v.ier | 0x80
}

// Write stores data into register reg (only the low 4 bits are used).
func (v *VIA) Write(reg uint8, data uint8) {
	switch reg & 0x0F {
	case RegORB:
		v.orb = data
		v.clearFlag(FlagCB1 | FlagCB2)
	case RegORA:
		v.ora = data
		v.clearFlag(FlagCA1 | FlagCA2)
	case RegORANoHandshake:
		v.ora = data
	case RegDDRB:
		v.ddrb = data
	case RegDDRA:
		v.ddra = data
	case RegT1CL, RegT1LL:
		v.t1Latch = v.t1Latch&0xFF00 | uint16(data)
	case RegT1CH:
		// loading the counter does not acknowledge a pending T1 interrupt,
		// firmware does that explicitly through IFR or a T1C-L read.
		v.t1Latch = v.t1Latch&0x00FF | uint16(data)<<8
		v.t1Counter = v.t1Latch
		v.t1Running = true
		if v.acr&acrPB7Output != 0 {
			v.pb7 = false
		}
	case RegT1LH:
		v.t1Latch = v.t1Latch&0x00FF | uint16(data)<<8
	case RegT2CL:
		v.t2LatchLo = data
	case RegT2CH:
		v.t2Counter = uint16(data)<<8 | uint16(v.t2LatchLo)
		v.t2Armed = true
		v.clearFlag(FlagT2)
	case RegSR:
		v.sr = data
		v.startShift()
	case RegACR:
		v.acr = data
		if v.shiftMode() == ShiftDisabled {
			v.srShifting = false
		}
	case RegPCR:
		v.pcr = data
		v.updateControlOutputs()
	case RegIFR:
		v.ifr &^= data & 0x7F
		v.updateIRQ()
	case RegIER:
		if data&0x80 != 0 {
			v.ier |= data & 0x7F
		} else {
			v.ier &^= data & 0x7F
		}
		v.updateIRQ()
	}
}

// Tick advances the timers and the shift register by cycles CPU cycles.
func (v *VIA) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	v.tickTimer1(cycles)
	v.tickTimer2(cycles)
	v.tickShift(cycles)
}

func (v *VIA) tickTimer1(cycles int) {
	for v.t1Running && cycles > 0 {
		if int(v.t1Counter) > cycles {
			v.t1Counter -= uint16(cycles)
			return
		}
		cycles -= int(v.t1Counter)
		v.t1Counter = 0
		v.timer1Underflow()

		if v.acr&acrT1Continuous == 0 {
			v.t1Running = false
			return
		}
		v.t1Counter = v.t1Latch
		if v.t1Latch == 0 {
			// a zero latch would underflow forever inside one batch
			return
		}
	}
}

func (v *VIA) timer1Underflow() {
	if v.acr&acrPB7Output != 0 {
		v.pb7 = !v.pb7
	}
	v.setFlag(FlagT1)
}

func (v *VIA) tickTimer2(cycles int) {
	if v.acr&acrT2PulseCount != 0 {
		// counting PB6 pulses, nothing drives that pin here
		return
	}
	if v.t2Armed && int(v.t2Counter) <= cycles {
		v.t2Armed = false
		v.setFlag(FlagT2)
	}
	v.t2Counter -= uint16(cycles)
}

func (v VIA) shiftPeriod() int {
	switch v.shiftMode() {
	case ShiftInPhi2, ShiftOutPhi2:
		return 2
	case ShiftInT2, ShiftOutT2, ShiftOutFreeRunning:
		return int(v.t2LatchLo) + 2
	}
	return 0
}

func (v *VIA) startShift() {
	v.clearFlag(FlagSR)
	period := v.shiftPeriod()
	if period == 0 {
		v.srShifting = false
		return
	}
	v.srShifting = true
	v.srBits = 8
	v.srCountdown = period
}

func (v *VIA) tickShift(cycles int) {
	for v.srShifting && cycles > 0 {
		if v.srCountdown > cycles {
			v.srCountdown -= cycles
			return
		}
		cycles -= v.srCountdown
		v.shiftBit()
		v.srCountdown = v.shiftPeriod()
		if v.srCountdown == 0 {
			v.srShifting = false
		}
	}
}

func (v *VIA) shiftBit() {
	mode := v.shiftMode()
	if mode.shiftsOut() {
		out := v.sr >> 7
		v.sr = v.sr<<1 | out
		v.cb2 = out == 1
	} else {
		in := uint8(0)
		if v.cb2 {
			in = 1
		}
		v.sr = v.sr<<1 | in
	}

	v.srBits--
	if v.srBits > 0 {
		return
	}
	v.setFlag(FlagSR)
	if mode == ShiftOutFreeRunning {
		v.srBits = 8
		return
	}
	v.srShifting = false
}

// updateControlOutputs applies the manual CA2/CB2 output modes of PCR.
func (v *VIA) updateControlOutputs() {
	switch (v.pcr >> 1) & 0x07 {
	case 0x06:
		v.ca2 = false
	case 0x07:
		v.ca2 = true
	}
	if v.srShifting && v.shiftMode().shiftsOut() {
		return
	}
	switch (v.pcr >> 5) & 0x07 {
	case 0x06:
		v.cb2 = false
	case 0x07:
		v.cb2 = true
	}
}

// SetPortAInput sets the levels presented on the port A pins.
func (v *VIA) SetPortAInput(data uint8) {
	v.portAIn = data
}

// SetPortBInput sets the levels presented on the port B pins.
func (v *VIA) SetPortBInput(data uint8) {
	v.portBIn = data
}

// SetCA1 drives the CA1 input. The active edge is selected by PCR bit 0.
func (v *VIA) SetCA1(level bool) {
	if level == v.ca1 {
		return
	}
	v.ca1 = level
	if level == (v.pcr&pcrCA1Positive != 0) {
		v.setFlag(FlagCA1)
	}
}

// SetCB1 drives the CB1 input. The active edge is selected by PCR bit 4.
func (v *VIA) SetCB1(level bool) {
	if level == v.cb1 {
		return
	}
	v.cb1 = level
	if level == (v.pcr&pcrCB1Positive != 0) {
		v.setFlag(FlagCB1)
	}
}

// CA2 returns the CA2 output level.
func (v VIA) CA2() bool { return v.ca2 }

// CB2 returns the CB2 output level.
func (v VIA) CB2() bool { return v.cb2 }

// PB7 returns the Timer1 controlled PB7 level.
func (v VIA) PB7() bool { return v.pb7 }

// State is a snapshot of the chip for debuggers.
type State struct {
	ORA, ORB   uint8
	DDRA, DDRB uint8
	T1Counter  uint16
	T1Latch    uint16
	T2Counter  uint16
	SR         uint8
	ShiftMode  ShiftMode
	ACR, PCR   uint8
	IFR, IER   uint8
	PB7        bool
	CA2, CB2   bool
	IRQ        bool
}

// State returns a snapshot of the chip registers.
func (v VIA) State() State {
	return State{
		ORA:       v.ora,
		ORB:       v.orb,
		DDRA:      v.ddra,
		DDRB:      v.ddrb,
		T1Counter: v.t1Counter,
		T1Latch:   v.t1Latch,
		T2Counter: v.t2Counter,
		SR:        v.sr,
		ShiftMode: v.shiftMode(),
		ACR:       v.acr,
		PCR:       v.pcr,
		IFR:       v.ifr,
		IER:       v.ier | 0x80,
		PB7:       v.pb7,
		CA2:       v.ca2,
		CB2:       v.cb2,
		IRQ:       v.irq,
	}
}

func (s State) String() string {
	return fmt.Sprintf("T1=%04X/%04X T2=%04X SR=%02X(%s) ACR=%02X PCR=%02X IFR=%02X IER=%02X IRQ=%v",
		s.T1Counter, s.T1Latch, s.T2Counter, s.SR, s.ShiftMode, s.ACR, s.PCR, s.IFR, s.IER, s.IRQ)
}
