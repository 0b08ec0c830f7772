package cpu

import (
	"fmt"
	"strings"
)

// Peeker is implemented by buses that can read without side effects.
// The disassembler prefers it so looking at VIA registers does not
// acknowledge interrupts.
type Peeker interface {
	Peek(addr uint16) uint8
}

func (c *CPU) peek8(addr uint16) uint8 {
	if p, ok := c.bus.(Peeker); ok {
		return p.Peek(addr)
	}
	return c.bus.Read8(addr)
}

func (c *CPU) peek16(addr uint16) uint16 {
	return uint16(c.peek8(addr))<<8 | uint16(c.peek8(addr+1))
}

var indexRegNames = [4]string{"X", "Y", "U", "S"}

var tfrRegNames = map[uint8]string{
	regD: "D", regX: "X", regY: "Y", regU: "U", regS: "S", regPC: "PC",
	regA: "A", regB: "B", regCC: "CC", regDP: "DP",
}

// Disassemble decodes the instruction at addr and returns its text and
// length in bytes. Unknown opcodes decode as "???" with the length of the
// opcode bytes.
func (c *CPU) Disassemble(addr uint16) (string, int) {
	pc := addr
	opcode := uint16(c.peek8(pc))
	pc++
	if opcode == page2 || opcode == page3 {
		opcode = opcode<<8 | uint16(c.peek8(pc))
		pc++
	}

	instr := c.lookup(opcode)
	if instr.fn == nil {
		return fmt.Sprintf("??? %s", opcodeString(opcode)), int(pc - addr)
	}

	var operand string
	switch instr.mode {
	case addrModeINH:
	case addrModeIMM8:
		operand = fmt.Sprintf("#$%02X", c.peek8(pc))
		pc++
	case addrModeIMM16:
		operand = fmt.Sprintf("#$%04X", c.peek16(pc))
		pc += 2
	case addrModeDIR:
		operand = fmt.Sprintf("<$%02X", c.peek8(pc))
		pc++
	case addrModeEXT:
		operand = fmt.Sprintf("$%04X", c.peek16(pc))
		pc += 2
	case addrModeIDX:
		var n int
		operand, n = c.disasmIndexed(pc)
		pc += uint16(n)
	case addrModeREL8:
		offset := uint16(int8(c.peek8(pc)))
		pc++
		operand = fmt.Sprintf("$%04X", pc+offset)
	case addrModeREL16:
		offset := c.peek16(pc)
		pc += 2
		operand = fmt.Sprintf("$%04X", pc+offset)
	case addrModeREG:
		operand = disasmRegisters(instr.name, c.peek8(pc))
		pc++
	}

	if operand == "" {
		return instr.name, int(pc - addr)
	}
	return instr.name + " " + operand, int(pc - addr)
}

// disasmIndexed renders the postbyte at addr and the offset bytes after it.
// It returns the text and the number of bytes consumed.
func (c *CPU) disasmIndexed(addr uint16) (string, int) {
	post := c.peek8(addr)
	reg := indexRegNames[(post>>5)&0x03]

	if post&0x80 == 0 {
		offset := int(post & 0x1F)
		if offset&0x10 > 0 {
			offset -= 0x20
		}
		return fmt.Sprintf("%d,%s", offset, reg), 1
	}

	n := 1
	var text string
	switch post & 0x0F {
	case 0x00:
		text = "," + reg + "+"
	case 0x01:
		text = "," + reg + "++"
	case 0x02:
		text = ",-" + reg
	case 0x03:
		text = ",--" + reg
	case 0x04:
		text = "," + reg
	case 0x05:
		text = "B," + reg
	case 0x06:
		text = "A," + reg
	case 0x08:
		text = fmt.Sprintf("%d,%s", int8(c.peek8(addr+1)), reg)
		n = 2
	case 0x09:
		text = fmt.Sprintf("$%04X,%s", c.peek16(addr+1), reg)
		n = 3
	case 0x0B:
		text = "D," + reg
	case 0x0C:
		text = fmt.Sprintf("%d,PCR", int8(c.peek8(addr+1)))
		n = 2
	case 0x0D:
		text = fmt.Sprintf("$%04X,PCR", c.peek16(addr+1))
		n = 3
	case 0x0F:
		text = fmt.Sprintf("$%04X", c.peek16(addr+1))
		n = 3
	default:
		return fmt.Sprintf("?$%02X", post), 1
	}

	if post&0x10 > 0 {
		text = "[" + text + "]"
	}
	return text, n
}

func disasmRegisters(name string, post uint8) string {
	switch name {
	case "TFR", "EXG":
		src, ok1 := tfrRegNames[post>>4]
		dst, ok2 := tfrRegNames[post&0x0F]
		if !ok1 || !ok2 {
			return fmt.Sprintf("$%02X", post)
		}
		return src + "," + dst
	}

	// push/pull mask, bit 6 names the other stack
	other := "U"
	if strings.HasSuffix(name, "U") {
		other = "S"
	}
	names := [8]string{"CC", "A", "B", "DP", "X", "Y", other, "PC"}
	var regs []string
	for bit := 7; bit >= 0; bit-- {
		if post&(1<<bit) > 0 {
			regs = append(regs, names[bit])
		}
	}
	return strings.Join(regs, ",")
}
