package cpu

import (
	"fmt"
	"log"
)

// Bus is everything the CPU needs from the outside world.
type Bus interface {
	Read8(addr uint16) uint8
	Write8(addr uint16, data uint8)
	// Tick advances the devices by the cycles the CPU just spent.
	Tick(cycles int)
	// IRQ reports the level of the IRQ line.
	IRQ() bool
}

// Condition code register bits.
const (
	flagC = uint8(1 << iota) // Carry
	flagV                    // Overflow
	flagZ                    // Zero
	flagN                    // Negative
	flagI                    // IRQ mask
	flagH                    // Half carry
	flagF                    // FIRQ mask
	flagE                    // Entire state on stack
)

// Exported copies of the CC bits for callers that inspect Registers.
const (
	FlagC = flagC
	FlagV = flagV
	FlagZ = flagZ
	FlagN = flagN
	FlagI = flagI
	FlagH = flagH
	FlagF = flagF
	FlagE = flagE
)

const (
	VectorSWI3  = uint16(0xFFF2)
	VectorSWI2  = uint16(0xFFF4)
	VectorFIRQ  = uint16(0xFFF6)
	VectorIRQ   = uint16(0xFFF8)
	VectorSWI   = uint16(0xFFFA)
	VectorNMI   = uint16(0xFFFC)
	VectorReset = uint16(0xFFFE)
)

// page prefixes
const (
	page2 = 0x10
	page3 = 0x11
)

type opcodeFunc func()

type instruction struct {
	name   string
	fn     opcodeFunc
	mode   addrMode
	cycles uint8
}

type waitState uint8

const (
	running waitState = iota
	waitCWAI
	waitSYNC
)

type CPU struct {
	a, b  uint8
	dp    uint8
	cc    uint8
	x, y  uint16
	u, s  uint16
	pc    uint16
	bus   Bus
	trace Tracer

	// one table per opcode page: $00, $10, $11
	instrs [3][0x100]instruction

	opcode      uint16   // opcode being executed, page prefix included
	instrPC     uint16   // address of the opcode being executed
	mode        addrMode // addressing mode of the current instruction
	operandAddr uint16   // effective address of the operand
	cycles      int      // cycles spent by the current step
	totalCycles uint64

	wait waitState
	// latched interrupt requests
	nmiPending  bool
	firqPending bool
	irqPending  bool
	counts      InterruptCounts

	halted error
}

// InterruptCounts counts serviced interrupts by source.
type InterruptCounts struct {
	NMI, FIRQ, IRQ uint64
}

// New creates a CPU attached to bus. The CPU is not reset, call Reset
// once the reset vector is mapped.
func New(bus Bus) (*CPU, error) {
	c := &CPU{
		bus:   bus,
		trace: nopTracer{},
	}
	if err := c.parseOpcodeMatrix(); err != nil {
		return nil, fmt.Errorf("couldn't init instructions: %w", err)
	}
	return c, nil
}

// SetTracer attaches t to receive instruction and call/return events.
// A nil t detaches the current tracer.
func (c *CPU) SetTracer(t Tracer) {
	if t == nil {
		t = nopTracer{}
	}
	c.trace = t
}

func (c *CPU) read8(addr uint16) uint8 {
	return c.bus.Read8(addr)
}

func (c *CPU) read16(addr uint16) uint16 {
	hi := uint16(c.read8(addr))
	lo := uint16(c.read8(addr + 1))
	return hi<<8 | lo
}

func (c *CPU) write8(addr uint16, data uint8) {
	c.bus.Write8(addr, data)
}

func (c *CPU) write16(addr uint16, data uint16) {
	c.write8(addr, uint8(data>>8))
	c.write8(addr+1, uint8(data))
}

func (c *CPU) getFlag(flag uint8) bool {
	return c.cc&flag > 0
}

func (c *CPU) setFlag(flag uint8, v bool) {
	if v {
		c.cc |= flag
		return
	}
	c.cc &= ^flag
}

func (c *CPU) setFlagsNZ8(v uint8) {
	c.setFlag(flagN, v&0x80 > 0)
	c.setFlag(flagZ, v == 0)
}

func (c *CPU) setFlagsNZ16(v uint16) {
	c.setFlag(flagN, v&0x8000 > 0)
	c.setFlag(flagZ, v == 0)
}

func (c *CPU) d() uint16 {
	return uint16(c.a)<<8 | uint16(c.b)
}

func (c *CPU) setD(v uint16) {
	c.a = uint8(v >> 8)
	c.b = uint8(v)
}

// push8 pre-decrements the stack pointer sp and stores data.
func (c *CPU) push8(sp *uint16, data uint8) {
	*sp--
	c.write8(*sp, data)
}

// push16 stores the high byte first, at the higher address. The low byte
// ends up on top of the stack.
func (c *CPU) push16(sp *uint16, data uint16) {
	c.push8(sp, uint8(data>>8))
	c.push8(sp, uint8(data))
}

func (c *CPU) pop8(sp *uint16) uint8 {
	data := c.read8(*sp)
	*sp++
	return data
}

func (c *CPU) pop16(sp *uint16) uint16 {
	lo := uint16(c.pop8(sp))
	hi := uint16(c.pop8(sp))
	return hi<<8 | lo
}

// Reset puts the CPU into its power-on state and loads PC from the reset
// vector. Pending interrupts and a previous halt are dropped.
func (c *CPU) Reset() {
	c.a, c.b, c.dp = 0, 0, 0
	c.x, c.y, c.u, c.s = 0, 0, 0, 0
	c.cc = flagI | flagF
	c.pc = c.read16(VectorReset)
	c.wait = running
	c.nmiPending = false
	c.firqPending = false
	c.irqPending = false
	c.halted = nil
	c.cycles = 0
	c.totalCycles = 0
	c.counts = InterruptCounts{}
}

// Halted returns the error that stopped the CPU, or nil while it runs.
func (c *CPU) Halted() error {
	return c.halted
}

// Cycles returns the cycles executed since the last reset.
func (c *CPU) Cycles() uint64 {
	return c.totalCycles
}

// Waiting reports whether the CPU sits in CWAI or SYNC.
func (c *CPU) Waiting() bool {
	return c.wait != running
}

// InterruptCounts returns how many interrupts of each kind were serviced.
func (c *CPU) InterruptCounts() InterruptCounts {
	return c.counts
}

func (c *CPU) lookup(opcode uint16) instruction {
	switch opcode >> 8 {
	case page2:
		return c.instrs[1][opcode&0xFF]
	case page3:
		return c.instrs[2][opcode&0xFF]
	}
	return c.instrs[0][opcode&0xFF]
}

// Mnemonic returns the instruction name for opcode, "???" if it is illegal.
func (c *CPU) Mnemonic(opcode uint16) string {
	if instr := c.lookup(opcode); instr.fn != nil {
		return instr.name
	}
	return "???"
}

// Step services a pending interrupt or executes one instruction and then
// ticks the bus by the cycles spent. It returns the number of cycles.
//
// On an illegal opcode or indexed postbyte the CPU halts: PC is left on
// the offending instruction and every later Step fails with ErrHalted
// wrapping the original error until Reset.
func (c *CPU) Step() (int, error) {
	if c.halted != nil {
		return 0, fmt.Errorf("%w: %w", ErrHalted, c.halted)
	}

	c.cycles = 0
	if c.pollInterrupts() {
		c.finish()
		return c.cycles, nil
	}
	if c.wait != running {
		c.cycles = 1
		c.finish()
		return c.cycles, nil
	}

	start := c.pc
	opcode := uint16(c.read8(c.pc))
	c.pc++
	if opcode == page2 || opcode == page3 {
		opcode = opcode<<8 | uint16(c.read8(c.pc))
		c.pc++
	}
	c.opcode = opcode
	c.instrPC = start

	instr := c.lookup(opcode)
	if instr.fn == nil {
		return 0, c.halt(start, &IllegalInstructionError{Opcode: opcode, PC: start})
	}
	c.trace.Instruction(start, opcode)

	if err := c.fetch(instr.mode); err != nil {
		return 0, c.halt(start, err)
	}
	instr.fn()
	c.cycles += int(instr.cycles)
	c.finish()
	return c.cycles, nil
}

func (c *CPU) finish() {
	c.totalCycles += uint64(c.cycles)
	c.bus.Tick(c.cycles)
	c.mode = ""
	c.operandAddr = 0
}

func (c *CPU) halt(pc uint16, err error) error {
	c.pc = pc
	c.halted = err
	log.Printf("cpu: %v. halting...\n", err)
	return err
}

// Registers is a snapshot of the programmer-visible registers.
type Registers struct {
	A, B, DP, CC uint8
	X, Y, U, S   uint16
	PC           uint16
}

// D returns the A:B pair.
func (r Registers) D() uint16 {
	return uint16(r.A)<<8 | uint16(r.B)
}

func (r Registers) String() string {
	return fmt.Sprintf("PC=%04X A=%02X B=%02X X=%04X Y=%04X U=%04X S=%04X DP=%02X CC=%s",
		r.PC, r.A, r.B, r.X, r.Y, r.U, r.S, r.DP, CCString(r.CC))
}

// CCString renders the condition codes as EFHINZVC, a dot for each clear bit.
func CCString(cc uint8) string {
	const names = "EFHINZVC"
	out := []byte("........")
	for i := 0; i < 8; i++ {
		if cc&(0x80>>i) > 0 {
			out[i] = names[i]
		}
	}
	return string(out)
}

func (c *CPU) Registers() Registers {
	return Registers{
		A: c.a, B: c.b, DP: c.dp, CC: c.cc,
		X: c.x, Y: c.y, U: c.u, S: c.s,
		PC: c.pc,
	}
}

// SetRegisters loads every register from r. Used by debuggers and tests.
func (c *CPU) SetRegisters(r Registers) {
	c.a, c.b, c.dp, c.cc = r.A, r.B, r.DP, r.CC
	c.x, c.y, c.u, c.s = r.X, r.Y, r.U, r.S
	c.pc = r.PC
}
