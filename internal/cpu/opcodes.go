package cpu

// opcodeFuncs maps every mnemonic of the opcode matrix to its handler.
// Accumulator and register variants get their own mnemonic, the addressing
// mode is resolved by fetch before the handler runs.
func (c *CPU) opcodeFuncs() map[string]opcodeFunc {
	return map[string]opcodeFunc{
		// read-modify-write on memory
		"NEG": c.memRMW(c.neg),
		"COM": c.memRMW(c.com),
		"LSR": c.memRMW(c.lsr),
		"ROR": c.memRMW(c.ror),
		"ASR": c.memRMW(c.asr),
		"ASL": c.memRMW(c.asl),
		"ROL": c.memRMW(c.rol),
		"DEC": c.memRMW(c.dec),
		"INC": c.memRMW(c.inc),
		"TST": c.tstMem,
		"CLR": c.clrMem,

		// read-modify-write on A
		"NEGA": c.accRMW(&c.a, c.neg),
		"COMA": c.accRMW(&c.a, c.com),
		"LSRA": c.accRMW(&c.a, c.lsr),
		"RORA": c.accRMW(&c.a, c.ror),
		"ASRA": c.accRMW(&c.a, c.asr),
		"ASLA": c.accRMW(&c.a, c.asl),
		"ROLA": c.accRMW(&c.a, c.rol),
		"DECA": c.accRMW(&c.a, c.dec),
		"INCA": c.accRMW(&c.a, c.inc),
		"TSTA": c.accRMW(&c.a, c.tst),
		"CLRA": c.accRMW(&c.a, c.clr),

		// read-modify-write on B
		"NEGB": c.accRMW(&c.b, c.neg),
		"COMB": c.accRMW(&c.b, c.com),
		"LSRB": c.accRMW(&c.b, c.lsr),
		"RORB": c.accRMW(&c.b, c.ror),
		"ASRB": c.accRMW(&c.b, c.asr),
		"ASLB": c.accRMW(&c.b, c.asl),
		"ROLB": c.accRMW(&c.b, c.rol),
		"DECB": c.accRMW(&c.b, c.dec),
		"INCB": c.accRMW(&c.b, c.inc),
		"TSTB": c.accRMW(&c.b, c.tst),
		"CLRB": c.accRMW(&c.b, c.clr),

		// 8-bit accumulator operations
		"SUBA": c.accOp(&c.a, c.sub),
		"CMPA": c.accCmp(&c.a, c.sub),
		"SBCA": c.accOp(&c.a, c.sbc),
		"ANDA": c.accOp(&c.a, c.and),
		"BITA": c.accCmp(&c.a, c.and),
		"LDA":  c.accOp(&c.a, c.ld),
		"STA":  c.st8(&c.a),
		"EORA": c.accOp(&c.a, c.eor),
		"ADCA": c.accOp(&c.a, c.adc),
		"ORA":  c.accOp(&c.a, c.or),
		"ADDA": c.accOp(&c.a, c.add),
		"SUBB": c.accOp(&c.b, c.sub),
		"CMPB": c.accCmp(&c.b, c.sub),
		"SBCB": c.accOp(&c.b, c.sbc),
		"ANDB": c.accOp(&c.b, c.and),
		"BITB": c.accCmp(&c.b, c.and),
		"LDB":  c.accOp(&c.b, c.ld),
		"STB":  c.st8(&c.b),
		"EORB": c.accOp(&c.b, c.eor),
		"ADCB": c.accOp(&c.b, c.adc),
		"ORB":  c.accOp(&c.b, c.or),
		"ADDB": c.accOp(&c.b, c.add),

		// 16-bit operations
		"SUBD": c.subd,
		"ADDD": c.addd,
		"CMPD": c.cmp16(c.d),
		"CMPX": c.cmp16(func() uint16 { return c.x }),
		"CMPY": c.cmp16(func() uint16 { return c.y }),
		"CMPU": c.cmp16(func() uint16 { return c.u }),
		"CMPS": c.cmp16(func() uint16 { return c.s }),
		"LDD":  c.ldd,
		"LDX":  c.ld16(&c.x),
		"LDY":  c.ld16(&c.y),
		"LDU":  c.ld16(&c.u),
		"LDS":  c.ld16(&c.s),
		"STD":  c.std,
		"STX":  c.st16(&c.x),
		"STY":  c.st16(&c.y),
		"STU":  c.st16(&c.u),
		"STS":  c.st16(&c.s),
		"LEAX": c.leaxy(&c.x),
		"LEAY": c.leaxy(&c.y),
		"LEAS": c.leasu(&c.s),
		"LEAU": c.leasu(&c.u),

		// short branches
		"BRA": c.branch(c.always),
		"BRN": c.branch(c.never),
		"BHI": c.branch(c.condHI),
		"BLS": c.branch(c.condLS),
		"BCC": c.branch(c.condCC),
		"BCS": c.branch(c.condCS),
		"BNE": c.branch(c.condNE),
		"BEQ": c.branch(c.condEQ),
		"BVC": c.branch(c.condVC),
		"BVS": c.branch(c.condVS),
		"BPL": c.branch(c.condPL),
		"BMI": c.branch(c.condMI),
		"BGE": c.branch(c.condGE),
		"BLT": c.branch(c.condLT),
		"BGT": c.branch(c.condGT),
		"BLE": c.branch(c.condLE),

		// long branches
		"LBRA": c.jmp,
		"LBRN": c.longBranch(c.never),
		"LBHI": c.longBranch(c.condHI),
		"LBLS": c.longBranch(c.condLS),
		"LBCC": c.longBranch(c.condCC),
		"LBCS": c.longBranch(c.condCS),
		"LBNE": c.longBranch(c.condNE),
		"LBEQ": c.longBranch(c.condEQ),
		"LBVC": c.longBranch(c.condVC),
		"LBVS": c.longBranch(c.condVS),
		"LBPL": c.longBranch(c.condPL),
		"LBMI": c.longBranch(c.condMI),
		"LBGE": c.longBranch(c.condGE),
		"LBLT": c.longBranch(c.condLT),
		"LBGT": c.longBranch(c.condGT),
		"LBLE": c.longBranch(c.condLE),

		// control flow
		"JMP":  c.jmp,
		"JSR":  c.call(FrameJSR),
		"BSR":  c.call(FrameBSR),
		"LBSR": c.call(FrameBSR),
		"RTS":  c.rts,
		"RTI":  c.rti,
		"SWI":  c.swi(VectorSWI, FrameSWI),
		"SWI2": c.swi(VectorSWI2, FrameSWI2),
		"SWI3": c.swi(VectorSWI3, FrameSWI3),
		"CWAI": c.cwai,
		"SYNC": c.sync,

		// registers and stacks
		"TFR":  c.tfr,
		"EXG":  c.exg,
		"PSHS": c.psh(&c.s, &c.u),
		"PULS": c.pul(&c.s, &c.u),
		"PSHU": c.psh(&c.u, &c.s),
		"PULU": c.pul(&c.u, &c.s),

		// misc
		"NOP":   func() {},
		"ABX":   c.abx,
		"MUL":   c.mul,
		"SEX":   c.sex,
		"DAA":   c.daa,
		"ORCC":  c.orcc,
		"ANDCC": c.andcc,
	}
}

// ALU primitives. Each takes the operand value(s), updates CC and returns
// the result.

func (c *CPU) neg(m uint8) uint8 {
	r := -m
	c.setFlagsNZ8(r)
	c.setFlag(flagV, m == 0x80)
	c.setFlag(flagC, m != 0)
	return r
}

func (c *CPU) com(m uint8) uint8 {
	r := ^m
	c.setFlagsNZ8(r)
	c.setFlag(flagV, false)
	c.setFlag(flagC, true)
	return r
}

func (c *CPU) lsr(m uint8) uint8 {
	r := m >> 1
	c.setFlag(flagC, m&0x01 > 0)
	c.setFlagsNZ8(r)
	return r
}

func (c *CPU) ror(m uint8) uint8 {
	r := m >> 1
	if c.getFlag(flagC) {
		r |= 0x80
	}
	c.setFlag(flagC, m&0x01 > 0)
	c.setFlagsNZ8(r)
	return r
}

func (c *CPU) asr(m uint8) uint8 {
	r := m>>1 | m&0x80
	c.setFlag(flagC, m&0x01 > 0)
	c.setFlagsNZ8(r)
	return r
}

func (c *CPU) asl(m uint8) uint8 {
	r := m << 1
	c.setFlag(flagC, m&0x80 > 0)
	c.setFlag(flagV, (m^r)&0x80 > 0)
	c.setFlagsNZ8(r)
	return r
}

func (c *CPU) rol(m uint8) uint8 {
	r := m << 1
	if c.getFlag(flagC) {
		r |= 0x01
	}
	c.setFlag(flagC, m&0x80 > 0)
	c.setFlag(flagV, (m^m<<1)&0x80 > 0)
	c.setFlagsNZ8(r)
	return r
}

func (c *CPU) dec(m uint8) uint8 {
	r := m - 1
	c.setFlag(flagV, m == 0x80)
	c.setFlagsNZ8(r)
	return r
}

func (c *CPU) inc(m uint8) uint8 {
	r := m + 1
	c.setFlag(flagV, m == 0x7F)
	c.setFlagsNZ8(r)
	return r
}

func (c *CPU) tst(m uint8) uint8 {
	c.setFlagsNZ8(m)
	c.setFlag(flagV, false)
	return m
}

func (c *CPU) clr(uint8) uint8 {
	c.cc &^= flagN | flagV | flagC
	c.cc |= flagZ
	return 0
}

func (c *CPU) addWithCarry(a, m, carry uint8) uint8 {
	sum := uint16(a) + uint16(m) + uint16(carry)
	r := uint8(sum)
	c.setFlag(flagH, (a^m^r)&0x10 > 0)
	c.setFlag(flagV, (a^r)&(m^r)&0x80 > 0)
	c.setFlag(flagC, sum > 0xFF)
	c.setFlagsNZ8(r)
	return r
}

func (c *CPU) subWithBorrow(a, m, borrow uint8) uint8 {
	diff := uint16(a) - uint16(m) - uint16(borrow)
	r := uint8(diff)
	c.setFlag(flagV, (a^m)&(a^r)&0x80 > 0)
	c.setFlag(flagC, diff&0x100 > 0)
	c.setFlagsNZ8(r)
	return r
}

func (c *CPU) carry() uint8 {
	return c.cc & flagC
}

func (c *CPU) add(a, m uint8) uint8 { return c.addWithCarry(a, m, 0) }
func (c *CPU) adc(a, m uint8) uint8 { return c.addWithCarry(a, m, c.carry()) }
func (c *CPU) sub(a, m uint8) uint8 { return c.subWithBorrow(a, m, 0) }
func (c *CPU) sbc(a, m uint8) uint8 { return c.subWithBorrow(a, m, c.carry()) }

func (c *CPU) logic(r uint8) uint8 {
	c.setFlagsNZ8(r)
	c.setFlag(flagV, false)
	return r
}

func (c *CPU) and(a, m uint8) uint8 { return c.logic(a & m) }
func (c *CPU) or(a, m uint8) uint8  { return c.logic(a | m) }
func (c *CPU) eor(a, m uint8) uint8 { return c.logic(a ^ m) }
func (c *CPU) ld(_, m uint8) uint8  { return c.logic(m) }

func (c *CPU) add16(a, m uint16) uint16 {
	sum := uint32(a) + uint32(m)
	r := uint16(sum)
	c.setFlag(flagV, (a^r)&(m^r)&0x8000 > 0)
	c.setFlag(flagC, sum > 0xFFFF)
	c.setFlagsNZ16(r)
	return r
}

func (c *CPU) sub16(a, m uint16) uint16 {
	r := a - m
	c.setFlag(flagV, (a^m)&(a^r)&0x8000 > 0)
	c.setFlag(flagC, m > a)
	c.setFlagsNZ16(r)
	return r
}

// handler builders

func (c *CPU) memRMW(op func(uint8) uint8) opcodeFunc {
	return func() {
		c.write8(c.operandAddr, op(c.operand8()))
	}
}

func (c *CPU) accRMW(reg *uint8, op func(uint8) uint8) opcodeFunc {
	return func() {
		*reg = op(*reg)
	}
}

func (c *CPU) tstMem() {
	c.tst(c.operand8())
}

// clrMem reads the location before clearing it, like the hardware does.
// That matters for registers with read side effects.
func (c *CPU) clrMem() {
	_ = c.operand8()
	c.write8(c.operandAddr, c.clr(0))
}

func (c *CPU) accOp(reg *uint8, op func(a, m uint8) uint8) opcodeFunc {
	return func() {
		*reg = op(*reg, c.operand8())
	}
}

// accCmp runs op for its flags only.
func (c *CPU) accCmp(reg *uint8, op func(a, m uint8) uint8) opcodeFunc {
	return func() {
		op(*reg, c.operand8())
	}
}

func (c *CPU) st8(reg *uint8) opcodeFunc {
	return func() {
		c.write8(c.operandAddr, c.logic(*reg))
	}
}

func (c *CPU) subd() {
	c.setD(c.sub16(c.d(), c.operand16()))
}

func (c *CPU) addd() {
	c.setD(c.add16(c.d(), c.operand16()))
}

func (c *CPU) cmp16(reg func() uint16) opcodeFunc {
	return func() {
		c.sub16(reg(), c.operand16())
	}
}

func (c *CPU) load16(v uint16) uint16 {
	c.setFlagsNZ16(v)
	c.setFlag(flagV, false)
	return v
}

func (c *CPU) ldd() {
	c.setD(c.load16(c.operand16()))
}

func (c *CPU) ld16(reg *uint16) opcodeFunc {
	return func() {
		*reg = c.load16(c.operand16())
	}
}

func (c *CPU) std() {
	c.write16(c.operandAddr, c.load16(c.d()))
}

func (c *CPU) st16(reg *uint16) opcodeFunc {
	return func() {
		c.write16(c.operandAddr, c.load16(*reg))
	}
}

func (c *CPU) leaxy(reg *uint16) opcodeFunc {
	return func() {
		*reg = c.operandAddr
		c.setFlag(flagZ, *reg == 0)
	}
}

func (c *CPU) leasu(reg *uint16) opcodeFunc {
	return func() {
		*reg = c.operandAddr
	}
}

// branch conditions

func (c *CPU) always() bool { return true }
func (c *CPU) never() bool  { return false }
func (c *CPU) condHI() bool { return !c.getFlag(flagC) && !c.getFlag(flagZ) }
func (c *CPU) condLS() bool { return c.getFlag(flagC) || c.getFlag(flagZ) }
func (c *CPU) condCC() bool { return !c.getFlag(flagC) }
func (c *CPU) condCS() bool { return c.getFlag(flagC) }
func (c *CPU) condNE() bool { return !c.getFlag(flagZ) }
func (c *CPU) condEQ() bool { return c.getFlag(flagZ) }
func (c *CPU) condVC() bool { return !c.getFlag(flagV) }
func (c *CPU) condVS() bool { return c.getFlag(flagV) }
func (c *CPU) condPL() bool { return !c.getFlag(flagN) }
func (c *CPU) condMI() bool { return c.getFlag(flagN) }
func (c *CPU) condGE() bool { return c.getFlag(flagN) == c.getFlag(flagV) }
func (c *CPU) condLT() bool { return c.getFlag(flagN) != c.getFlag(flagV) }
func (c *CPU) condGT() bool { return !c.getFlag(flagZ) && c.condGE() }
func (c *CPU) condLE() bool { return c.getFlag(flagZ) || c.condLT() }

func (c *CPU) branch(cond func() bool) opcodeFunc {
	return func() {
		if cond() {
			c.pc = c.operandAddr
		}
	}
}

// longBranch costs one more cycle when taken.
func (c *CPU) longBranch(cond func() bool) opcodeFunc {
	return func() {
		if cond() {
			c.pc = c.operandAddr
			c.cycles++
		}
	}
}

func (c *CPU) jmp() {
	c.pc = c.operandAddr
}

func (c *CPU) call(kind FrameKind) opcodeFunc {
	return func() {
		c.push16(&c.s, c.pc)
		c.trace.Enter(Frame{Kind: kind, Return: c.pc, Target: c.operandAddr, SP: c.s})
		c.pc = c.operandAddr
	}
}

func (c *CPU) rts() {
	c.pc = c.pop16(&c.s)
	c.trace.Exit(FrameJSR, c.pc, c.s)
}

func (c *CPU) abx() {
	c.x += uint16(c.b)
}

func (c *CPU) mul() {
	r := uint16(c.a) * uint16(c.b)
	c.setD(r)
	c.setFlag(flagZ, r == 0)
	c.setFlag(flagC, r&0x80 > 0)
}

func (c *CPU) sex() {
	if c.b&0x80 > 0 {
		c.a = 0xFF
	} else {
		c.a = 0
	}
	c.setFlagsNZ16(c.d())
	c.setFlag(flagV, false)
}

func (c *CPU) daa() {
	lsn := c.a & 0x0F
	msn := c.a & 0xF0
	var correction uint8
	if c.getFlag(flagH) || lsn > 9 {
		correction |= 0x06
	}
	if c.getFlag(flagC) || msn > 0x90 || (msn > 0x80 && lsn > 9) {
		correction |= 0x60
	}
	sum := uint16(c.a) + uint16(correction)
	c.a = uint8(sum)
	c.setFlag(flagC, c.getFlag(flagC) || sum > 0xFF)
	c.setFlagsNZ8(c.a)
	c.setFlag(flagV, false)
}

func (c *CPU) orcc() {
	c.cc |= c.operand8()
}

func (c *CPU) andcc() {
	c.cc &= c.operand8()
}

// Register codes of the TFR/EXG postbyte nibbles.
const (
	regD  = 0x0
	regX  = 0x1
	regY  = 0x2
	regU  = 0x3
	regS  = 0x4
	regPC = 0x5
	regA  = 0x8
	regB  = 0x9
	regCC = 0xA
	regDP = 0xB
)

// readReg returns a register for TFR/EXG. 8-bit registers read as $FFnn,
// undefined codes as $FFFF.
func (c *CPU) readReg(code uint8) uint16 {
	switch code {
	case regD:
		return c.d()
	case regX:
		return c.x
	case regY:
		return c.y
	case regU:
		return c.u
	case regS:
		return c.s
	case regPC:
		return c.pc
	case regA:
		return 0xFF00 | uint16(c.a)
	case regB:
		return 0xFF00 | uint16(c.b)
	case regCC:
		return 0xFF00 | uint16(c.cc)
	case regDP:
		return 0xFF00 | uint16(c.dp)
	}
	return 0xFFFF
}

// writeReg stores v into a register for TFR/EXG, 8-bit registers take the
// low byte. Undefined codes are ignored.
func (c *CPU) writeReg(code uint8, v uint16) {
	switch code {
	case regD:
		c.setD(v)
	case regX:
		c.x = v
	case regY:
		c.y = v
	case regU:
		c.u = v
	case regS:
		c.s = v
	case regPC:
		c.pc = v
	case regA:
		c.a = uint8(v)
	case regB:
		c.b = uint8(v)
	case regCC:
		c.cc = uint8(v)
	case regDP:
		c.dp = uint8(v)
	}
}

func (c *CPU) tfr() {
	post := c.operand8()
	c.writeReg(post&0x0F, c.readReg(post>>4))
}

func (c *CPU) exg() {
	post := c.operand8()
	r1, r2 := post>>4, post&0x0F
	v1, v2 := c.readReg(r1), c.readReg(r2)
	c.writeReg(r1, v2)
	c.writeReg(r2, v1)
}

// psh pushes the registers named by the postbyte onto sp. Bit 6 names the
// other stack pointer. Each byte pushed costs a cycle.
func (c *CPU) psh(sp, other *uint16) opcodeFunc {
	return func() {
		post := c.operand8()
		if post&0x80 > 0 {
			c.push16(sp, c.pc)
			c.cycles += 2
		}
		if post&0x40 > 0 {
			c.push16(sp, *other)
			c.cycles += 2
		}
		if post&0x20 > 0 {
			c.push16(sp, c.y)
			c.cycles += 2
		}
		if post&0x10 > 0 {
			c.push16(sp, c.x)
			c.cycles += 2
		}
		if post&0x08 > 0 {
			c.push8(sp, c.dp)
			c.cycles++
		}
		if post&0x04 > 0 {
			c.push8(sp, c.b)
			c.cycles++
		}
		if post&0x02 > 0 {
			c.push8(sp, c.a)
			c.cycles++
		}
		if post&0x01 > 0 {
			c.push8(sp, c.cc)
			c.cycles++
		}
	}
}

// pul is the reverse of psh.
func (c *CPU) pul(sp, other *uint16) opcodeFunc {
	return func() {
		post := c.operand8()
		if post&0x01 > 0 {
			c.cc = c.pop8(sp)
			c.cycles++
		}
		if post&0x02 > 0 {
			c.a = c.pop8(sp)
			c.cycles++
		}
		if post&0x04 > 0 {
			c.b = c.pop8(sp)
			c.cycles++
		}
		if post&0x08 > 0 {
			c.dp = c.pop8(sp)
			c.cycles++
		}
		if post&0x10 > 0 {
			c.x = c.pop16(sp)
			c.cycles += 2
		}
		if post&0x20 > 0 {
			c.y = c.pop16(sp)
			c.cycles += 2
		}
		if post&0x40 > 0 {
			*other = c.pop16(sp)
			c.cycles += 2
		}
		if post&0x80 > 0 {
			c.pc = c.pop16(sp)
			c.cycles += 2
		}
	}
}
