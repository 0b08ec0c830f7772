package vectrex

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/nevisdale/vectic/internal/bus"
	"github.com/nevisdale/vectic/internal/cpu"
	"github.com/nevisdale/vectic/internal/memmap"
	"github.com/nevisdale/vectic/internal/rom"
	"github.com/spf13/afero"
)

const (
	// 1.5 MHz CPU clock, 50 Hz refresh
	DefaultCyclesPerFrame = 30000

	DefaultPortLogCapacity = 4096
)

var ErrNoBIOS = errors.New("no BIOS loaded")

// HaltError is what the console reports once the CPU stopped on an error.
type HaltError struct {
	PC     uint16
	Opcode uint16
	Err    error
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("halted at $%04X (opcode $%02X): %v", e.PC, e.Opcode, e.Err)
}

func (e *HaltError) Unwrap() error { return e.Err }

// Stats counts what the console did since the last reset.
type Stats struct {
	Instructions      uint64
	Cycles            uint64
	Frames            uint64
	IRQs              uint64
	FIRQs             uint64
	NMIs              uint64
	VIAWrites         uint64
	DroppedPortWrites uint64
	Bus               bus.Stats
}

// OpcodeCount is the number of times one opcode ran.
type OpcodeCount struct {
	Opcode uint16
	Name   string
	Count  uint64
}

// Console is the Vectrex mainboard: the bus with its memories and VIA, and
// the CPU driving it. It is not safe for concurrent use, one loop owns it.
type Console struct {
	bus    *bus.Bus
	cpu    *cpu.CPU
	shadow *cpu.ShadowStack

	CyclesPerFrame  int
	PortLogCapacity int

	biosLoaded bool
	header     *rom.Header

	portLog    []bus.PortWrite
	stats      Stats
	opcodes    map[uint16]uint64
	lastPC     uint16
	lastOpcode uint16
	frameDebt  int // cycles the last frame ran past its budget

	halted   error
	paused   bool
	stepOnce bool
}

func New() (*Console, error) {
	b := bus.New()
	c, err := cpu.New(b)
	if err != nil {
		return nil, fmt.Errorf("couldn't create cpu: %w", err)
	}

	con := &Console{
		bus:             b,
		cpu:             c,
		shadow:          cpu.NewShadowStack(),
		CyclesPerFrame:  DefaultCyclesPerFrame,
		PortLogCapacity: DefaultPortLogCapacity,
		opcodes:         make(map[uint16]uint64),
	}
	con.shadow.Suspicious = func(addr uint16) bool {
		return memmap.Classify(addr) == memmap.RegionRAM
	}
	c.SetTracer(con)
	b.OnPortWrite(con.recordPortWrite)
	return con, nil
}

// Bus exposes the memory bus, e.g. to drive VIA inputs.
func (c *Console) Bus() *bus.Bus {
	return c.bus
}

func (c *Console) CPU() *cpu.CPU {
	return c.cpu
}

func (c *Console) LoadBIOS(data []uint8) error {
	if err := c.bus.LoadBIOS(data); err != nil {
		return err
	}
	c.biosLoaded = true
	return nil
}

// LoadCartridge maps a cartridge and decodes its header when it has one.
func (c *Console) LoadCartridge(data []uint8) error {
	if err := c.bus.LoadCartridge(data); err != nil {
		return err
	}
	c.header = nil
	if h, err := rom.ParseHeader(data); err == nil {
		c.header = &h
	} else {
		log.Printf("vectrex: cartridge header: %v\n", err)
	}
	return nil
}

// LoadFiles reads the BIOS and, if cartPath is not empty, a cartridge
// from fs and resets the console.
func (c *Console) LoadFiles(fs afero.Fs, biosPath, cartPath string) error {
	bios, err := rom.LoadBIOS(fs, biosPath)
	if err != nil {
		return err
	}
	if err := c.LoadBIOS(bios); err != nil {
		return err
	}
	if cartPath != "" {
		cart, err := rom.LoadCartridge(fs, cartPath)
		if err != nil {
			return err
		}
		if err := c.LoadCartridge(cart); err != nil {
			return err
		}
	}
	return c.Reset()
}

// Header returns the header of the loaded cartridge, nil without one.
func (c *Console) Header() *rom.Header {
	return c.header
}

// Reset restarts the machine from the reset vector. RAM is cleared, the
// loaded images stay.
func (c *Console) Reset() error {
	if !c.biosLoaded {
		return ErrNoBIOS
	}
	c.bus.Reset()
	c.cpu.Reset()
	c.shadow.Reset()
	c.stats = Stats{}
	clear(c.opcodes)
	c.portLog = c.portLog[:0]
	c.frameDebt = 0
	c.halted = nil
	c.lastPC = c.cpu.Registers().PC
	return nil
}

func (c *Console) recordPortWrite(w bus.PortWrite) {
	c.stats.VIAWrites++
	if c.PortLogCapacity <= 0 {
		return
	}
	if len(c.portLog) >= c.PortLogCapacity {
		c.stats.DroppedPortWrites++
		return
	}
	c.portLog = append(c.portLog, w)
}

// DrainPortWrites returns the VIA writes logged since the last drain.
// Writes beyond PortLogCapacity are counted in Stats and dropped.
func (c *Console) DrainPortWrites() []bus.PortWrite {
	out := make([]bus.PortWrite, len(c.portLog))
	copy(out, c.portLog)
	c.portLog = c.portLog[:0]
	return out
}

// Instruction, Enter and Exit make the console the CPU tracer.

func (c *Console) Instruction(pc uint16, opcode uint16) {
	c.lastPC = pc
	c.lastOpcode = opcode
	c.stats.Instructions++
	c.opcodes[opcode]++
}

func (c *Console) Enter(f cpu.Frame) {
	c.shadow.Enter(f)
}

func (c *Console) Exit(kind cpu.FrameKind, target uint16, sp uint16) {
	c.shadow.Exit(kind, target, sp)
}

// Step executes one instruction or interrupt entry.
func (c *Console) Step() (int, error) {
	if c.halted != nil {
		return 0, c.halted
	}
	cycles, err := c.cpu.Step()
	c.stats.Cycles += uint64(cycles)
	if err != nil {
		c.halted = c.haltError(err)
		log.Printf("vectrex: %v\n", c.halted)
		return cycles, c.halted
	}
	return cycles, nil
}

func (c *Console) haltError(err error) error {
	h := &HaltError{PC: c.cpu.Registers().PC, Err: err}
	var illegal *cpu.IllegalInstructionError
	var mode *cpu.UnimplementedAddressingModeError
	switch {
	case errors.As(err, &illegal):
		h.Opcode = illegal.Opcode
	case errors.As(err, &mode):
		h.Opcode = mode.Opcode
	default:
		h.Opcode = c.lastOpcode
	}
	return h
}

// StepN executes up to n steps and returns the cycles spent.
func (c *Console) StepN(n int) (int, error) {
	total := 0
	for i := 0; i < n; i++ {
		cycles, err := c.Step()
		total += cycles
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// RunFrame runs one frame worth of cycles. Cycles an instruction runs past
// the end of a frame are taken from the next one.
func (c *Console) RunFrame() error {
	budget := c.CyclesPerFrame - c.frameDebt
	spent := 0
	for spent < budget {
		cycles, err := c.Step()
		spent += cycles
		if err != nil {
			return err
		}
	}
	c.frameDebt = spent - budget
	c.stats.Frames++
	return nil
}

// RunUntil steps until PC reaches pc or budget cycles have been spent.
// It reports whether pc was reached.
func (c *Console) RunUntil(pc uint16, budget int) (bool, error) {
	spent := 0
	for spent < budget {
		if c.cpu.Registers().PC == pc {
			return true, nil
		}
		cycles, err := c.Step()
		spent += cycles
		if err != nil {
			return false, err
		}
	}
	return c.cpu.Registers().PC == pc, nil
}

// Halted returns the error that stopped the console, nil while it runs.
func (c *Console) Halted() error {
	return c.halted
}

func (c *Console) Stats() Stats {
	s := c.stats
	counts := c.cpu.InterruptCounts()
	s.IRQs, s.FIRQs, s.NMIs = counts.IRQ, counts.FIRQ, counts.NMI
	s.Bus = c.bus.Stats()
	return s
}

// OpcodeCounts returns how often each opcode ran, most frequent first.
func (c *Console) OpcodeCounts() []OpcodeCount {
	out := make([]OpcodeCount, 0, len(c.opcodes))
	for op, n := range c.opcodes {
		out = append(out, OpcodeCount{Opcode: op, Name: c.cpu.Mnemonic(op), Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Opcode < out[j].Opcode
	})
	return out
}

// Anomalies returns the malformed returns seen since the last call.
func (c *Console) Anomalies() []cpu.Anomaly {
	return c.shadow.Anomalies()
}

// CallDepth is the number of open calls and interrupt frames.
func (c *Console) CallDepth() int {
	return c.shadow.Depth()
}

func (c *Console) TogglePause() {
	c.paused = !c.paused
}

// OneStepAndStop pauses the console and runs a single instruction on the
// next Tic.
func (c *Console) OneStepAndStop() {
	c.paused = true
	c.stepOnce = true
}

func (c *Console) Paused() bool {
	return c.paused
}

// Tic advances the console by one front-end update: a frame while
// running, one instruction after OneStepAndStop, nothing while paused or
// halted.
func (c *Console) Tic() {
	if c.halted != nil {
		return
	}
	if c.paused {
		if c.stepOnce {
			c.stepOnce = false
			_, _ = c.Step()
		}
		return
	}
	_ = c.RunFrame()
}
