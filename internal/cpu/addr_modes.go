package cpu

import "fmt"

type addrMode string

const (
	// Inherent: INH
	//
	// Description: the instruction carries no operand, the registers it works on
	// are implied by the opcode.
	// For example, CLRA clears accumulator A.
	addrModeINH addrMode = "INH"

	// Immediate (8-bit): IMM8
	//
	// Description: the operand byte follows the opcode.
	// For example, LDA #$10 loads A with $10.
	//
	// Format: #$nn
	addrModeIMM8 addrMode = "IMM8"

	// Immediate (16-bit): IMM16
	//
	// Description: the operand is the big-endian word following the opcode.
	// For example, LDX #$C880 loads X with $C880.
	//
	// Format: #$nnnn
	addrModeIMM16 addrMode = "IMM16"

	// Direct: DIR
	//
	// Description: the operand byte is the low half of the address, DP supplies
	// the high half. Cheaper than extended for data on the direct page.
	// For example, with DP=$D0, LDA <$04 reads $D004.
	//
	// Format: <$nn
	addrModeDIR addrMode = "DIR"

	// Extended: EXT
	//
	// Description: a full 16-bit address follows the opcode.
	// For example, LDA $C880 reads $C880.
	//
	// Format: $nnnn
	addrModeEXT addrMode = "EXT"

	// Indexed: IDX
	//
	// Description: a postbyte follows the opcode and selects a base register,
	// an offset (constant, accumulator or none), auto increment or decrement,
	// and optionally one level of indirection. Some forms take one or two
	// more bytes of offset. Every form adds its own cycles on top of the
	// base count of the instruction.
	//
	// Format: n,R  A,R  ,R+  ,--R  n,PCR  [n,R]  [$nnnn] ...
	addrModeIDX addrMode = "IDX"

	// Relative (8-bit): REL8
	//
	// Description: a signed byte offset from the address following the
	// instruction. Used by short branches and BSR.
	//
	// Format: $nnnn (the branch target)
	addrModeREL8 addrMode = "REL8"

	// Relative (16-bit): REL16
	//
	// Description: a signed word offset from the address following the
	// instruction. Used by long branches and LBSR.
	//
	// Format: $nnnn (the branch target)
	addrModeREL16 addrMode = "REL16"

	// Register: REG
	//
	// Description: a postbyte naming registers follows the opcode. TFR and EXG
	// encode a source and destination nibble, the push and pull instructions
	// a bit mask.
	//
	// Format: A,B or CC,A,B,X
	addrModeREG addrMode = "REG"
)

func addrModeFromString(s string) (addrMode, error) {
	switch mode := addrMode(s); mode {
	case addrModeINH, addrModeIMM8, addrModeIMM16, addrModeDIR, addrModeEXT,
		addrModeIDX, addrModeREL8, addrModeREL16, addrModeREG:
		return mode, nil
	}
	return "", fmt.Errorf("unknown address mode: %s", s)
}

// fetch consumes the operand bytes of the current instruction and sets
// operandAddr. Memory at the effective address is not read here, that is
// left to the instruction so stores and jumps never touch it.
func (c *CPU) fetch(mode addrMode) error {
	c.mode = mode
	c.operandAddr = 0

	switch mode {
	case addrModeINH:

	case addrModeIMM8, addrModeREG:
		c.operandAddr = c.pc
		c.pc++

	case addrModeIMM16:
		c.operandAddr = c.pc
		c.pc += 2

	case addrModeDIR:
		c.operandAddr = uint16(c.dp)<<8 | uint16(c.read8(c.pc))
		c.pc++

	case addrModeEXT:
		c.operandAddr = c.read16(c.pc)
		c.pc += 2

	case addrModeIDX:
		addr, err := c.indexed()
		if err != nil {
			return err
		}
		c.operandAddr = addr

	case addrModeREL8:
		offset := uint16(int8(c.read8(c.pc)))
		c.pc++
		c.operandAddr = c.pc + offset

	case addrModeREL16:
		offset := c.read16(c.pc)
		c.pc += 2
		c.operandAddr = c.pc + offset
	}
	return nil
}

// indexReg returns the base register selected by bits 5-6 of a postbyte.
func (c *CPU) indexReg(postbyte uint8) *uint16 {
	switch (postbyte >> 5) & 0x03 {
	case 0:
		return &c.x
	case 1:
		return &c.y
	case 2:
		return &c.u
	}
	return &c.s
}

// indexed decodes the postbyte at PC and returns the effective address,
// adding the extra cycles of the form to c.cycles. Illegal postbytes are
// rejected before any register is modified.
func (c *CPU) indexed() (uint16, error) {
	postbyte := c.read8(c.pc)
	c.pc++
	reg := c.indexReg(postbyte)

	// 5-bit signed offset, never indirect
	if postbyte&0x80 == 0 {
		offset := uint16(postbyte & 0x1F)
		if offset&0x10 > 0 {
			offset |= 0xFFE0
		}
		c.cycles++
		return *reg + offset, nil
	}

	illegal := func() (uint16, error) {
		return 0, &UnimplementedAddressingModeError{Opcode: c.opcode, Postbyte: postbyte, PC: c.instrPC}
	}

	indirect := postbyte&0x10 > 0
	var addr uint16
	switch postbyte & 0x0F {
	case 0x00: // ,R+
		if indirect {
			return illegal()
		}
		addr = *reg
		*reg++
		c.cycles += 2
	case 0x01: // ,R++
		addr = *reg
		*reg += 2
		c.cycles += 3
	case 0x02: // ,-R
		if indirect {
			return illegal()
		}
		*reg--
		addr = *reg
		c.cycles += 2
	case 0x03: // ,--R
		*reg -= 2
		addr = *reg
		c.cycles += 3
	case 0x04: // ,R
		addr = *reg
	case 0x05: // B,R
		addr = *reg + uint16(int8(c.b))
		c.cycles++
	case 0x06: // A,R
		addr = *reg + uint16(int8(c.a))
		c.cycles++
	case 0x08: // n8,R
		addr = *reg + uint16(int8(c.read8(c.pc)))
		c.pc++
		c.cycles++
	case 0x09: // n16,R
		addr = *reg + c.read16(c.pc)
		c.pc += 2
		c.cycles += 4
	case 0x0B: // D,R
		addr = *reg + c.d()
		c.cycles += 4
	case 0x0C: // n8,PCR
		offset := uint16(int8(c.read8(c.pc)))
		c.pc++
		addr = c.pc + offset
		c.cycles++
	case 0x0D: // n16,PCR
		offset := c.read16(c.pc)
		c.pc += 2
		addr = c.pc + offset
		c.cycles += 5
	case 0x0F: // [n16]
		if !indirect {
			return illegal()
		}
		addr = c.read16(c.pc)
		c.pc += 2
		c.cycles += 2
	default:
		return illegal()
	}

	if indirect {
		addr = c.read16(addr)
		c.cycles += 3
	}
	return addr, nil
}

// operand8 reads the byte operand of the current instruction.
func (c *CPU) operand8() uint8 {
	return c.read8(c.operandAddr)
}

// operand16 reads the word operand of the current instruction.
func (c *CPU) operand16() uint16 {
	return c.read16(c.operandAddr)
}
