package vectrex

import (
	"fmt"
	"strings"

	"github.com/nevisdale/vectic/internal/cpu"
	"github.com/nevisdale/vectic/internal/via"
)

// instructions shown around PC in the disassembly window
const disasmWindow = 8

// DisasmLine is one decoded instruction of the debug window.
type DisasmLine struct {
	Addr    uint16
	Text    string
	Label   string
	Current bool
}

func (l DisasmLine) String() string {
	mark := " "
	if l.Current {
		mark = "*"
	}
	if l.Label != "" {
		return fmt.Sprintf("%s%04X %-16s ; %s", mark, l.Addr, l.Text, l.Label)
	}
	return fmt.Sprintf("%s%04X %s", mark, l.Addr, l.Text)
}

// DebugInfo is a snapshot of the console for the front ends.
type DebugInfo struct {
	cpu.Registers

	Halted  error
	Paused  bool
	Waiting bool
	Depth   int

	VIA    via.State
	Disasm []DisasmLine
	Stats  Stats
}

func (c *Console) DebugInfo() DebugInfo {
	info := DebugInfo{
		Registers: c.cpu.Registers(),
		Halted:    c.halted,
		Paused:    c.paused,
		Waiting:   c.cpu.Waiting(),
		Depth:     c.shadow.Depth(),
		VIA:       c.bus.VIA().State(),
		Stats:     c.Stats(),
	}
	info.Disasm = c.disassembleFrom(info.PC, disasmWindow)
	return info
}

// disassembleFrom decodes n instructions starting at the one before pc,
// when that one can be found. Variable length opcodes make walking
// backwards a guess, so only the last executed instruction is used.
func (c *Console) disassembleFrom(pc uint16, n int) []DisasmLine {
	lines := make([]DisasmLine, 0, n+1)
	addr := pc
	if c.lastPC != pc {
		if _, size := c.cpu.Disassemble(c.lastPC); c.lastPC+uint16(size) == pc {
			addr = c.lastPC
		}
	}
	for len(lines) < n {
		text, size := c.cpu.Disassemble(addr)
		label, _ := Label(addr)
		lines = append(lines, DisasmLine{Addr: addr, Text: text, Label: label, Current: addr == pc})
		addr += uint16(size)
	}
	return lines
}

// StatusString is the one-word state shown by the front ends.
func (d DebugInfo) StatusString() string {
	switch {
	case d.Halted != nil:
		return "HALTED"
	case d.Paused:
		return "PAUSED"
	case d.Waiting:
		return "WAITING"
	}
	return "RUNNING"
}

func (d DebugInfo) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "STATUS: %s\n", d.StatusString())
	if d.Halted != nil {
		fmt.Fprintf(&b, "ERROR: %v\n", d.Halted)
	}
	fmt.Fprintf(&b, "PC: $%04X  CC: %s\n", d.PC, cpu.CCString(d.CC))
	fmt.Fprintf(&b, "A: $%02X B: $%02X D: $%04X DP: $%02X\n", d.A, d.B, d.D(), d.DP)
	fmt.Fprintf(&b, "X: $%04X Y: $%04X U: $%04X S: $%04X\n", d.X, d.Y, d.U, d.S)
	fmt.Fprintf(&b, "DEPTH: %d\n", d.Depth)
	fmt.Fprintf(&b, "VIA: %s\n", d.VIA)
	b.WriteString("\n")
	for _, l := range d.Disasm {
		b.WriteString(l.String())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	s := d.Stats
	fmt.Fprintf(&b, "INSTR: %d CYCLES: %d FRAMES: %d\n", s.Instructions, s.Cycles, s.Frames)
	fmt.Fprintf(&b, "IRQ: %d FIRQ: %d NMI: %d\n", s.IRQs, s.FIRQs, s.NMIs)
	fmt.Fprintf(&b, "VIA WRITES: %d DROPPED: %d\n", s.VIAWrites, s.DroppedPortWrites)
	fmt.Fprintf(&b, "UNMAPPED R/W: %d/%d ROM WRITES: %d CART OOB: %d ILLEGAL: %d\n",
		s.Bus.UnmappedReads, s.Bus.UnmappedWrites, s.Bus.IgnoredROMWrites,
		s.Bus.CartOOBReads, s.Bus.IllegalAccesses)
	return b.String()
}
