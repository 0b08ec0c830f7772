package cpu

// Interrupt entry costs when the CPU takes a hardware interrupt between
// instructions.
const (
	fullEntryCycles = 19
	firqEntryCycles = 10
)

// RequestNMI latches an NMI edge. It is serviced before the next
// instruction regardless of the masks.
func (c *CPU) RequestNMI() {
	c.nmiPending = true
}

// RequestFIRQ asserts the FIRQ line until it is serviced or ClearFIRQ.
func (c *CPU) RequestFIRQ() {
	c.firqPending = true
}

// RequestIRQ asserts a software IRQ request in addition to the bus line.
func (c *CPU) RequestIRQ() {
	c.irqPending = true
}

func (c *CPU) ClearFIRQ() {
	c.firqPending = false
}

func (c *CPU) ClearIRQ() {
	c.irqPending = false
}

// pollInterrupts services the highest priority unmasked interrupt:
// NMI, then FIRQ, then IRQ. It reports whether one was taken.
func (c *CPU) pollInterrupts() bool {
	irq := c.irqPending || c.bus.IRQ()
	// a CWAI frame is already stacked, entry costs nothing more
	entry := 1
	if c.wait == waitCWAI {
		entry = 0
	}

	if c.wait == waitSYNC && (c.nmiPending || c.firqPending || irq) {
		// any line ends SYNC, masked ones just resume execution
		c.wait = running
	}

	switch {
	case c.nmiPending:
		c.nmiPending = false
		c.counts.NMI++
		c.interruptFull(VectorNMI, FrameNMI, true)
		c.cycles += entry * fullEntryCycles
	case c.firqPending && !c.getFlag(flagF):
		c.firqPending = false
		c.counts.FIRQ++
		c.interruptFast()
		c.cycles += entry * firqEntryCycles
	case irq && !c.getFlag(flagI):
		c.irqPending = false
		c.counts.IRQ++
		c.interruptFull(VectorIRQ, FrameIRQ, false)
		c.cycles += entry * fullEntryCycles
	default:
		return false
	}
	return true
}

// pushEntireState stacks every register on S with E set in the stacked CC.
func (c *CPU) pushEntireState() {
	c.setFlag(flagE, true)
	c.push16(&c.s, c.pc)
	c.push16(&c.s, c.u)
	c.push16(&c.s, c.y)
	c.push16(&c.s, c.x)
	c.push8(&c.s, c.dp)
	c.push8(&c.s, c.b)
	c.push8(&c.s, c.a)
	c.push8(&c.s, c.cc)
}

// interruptFull enters a handler with a full frame. After CWAI the frame
// is already on the stack and is not pushed again.
func (c *CPU) interruptFull(vector uint16, kind FrameKind, maskFIRQ bool) {
	ret := c.pc
	if c.wait == waitCWAI {
		c.wait = running
	} else {
		c.pushEntireState()
	}
	c.setFlag(flagI, true)
	if maskFIRQ {
		c.setFlag(flagF, true)
	}
	c.pc = c.read16(vector)
	c.trace.Enter(Frame{Kind: kind, Return: ret, Target: c.pc, SP: c.s})
}

// interruptFast enters the FIRQ handler stacking only PC and CC.
func (c *CPU) interruptFast() {
	ret := c.pc
	if c.wait == waitCWAI {
		c.wait = running
	} else {
		c.setFlag(flagE, false)
		c.push16(&c.s, c.pc)
		c.push8(&c.s, c.cc)
	}
	c.setFlag(flagF, true)
	c.setFlag(flagI, true)
	c.pc = c.read16(VectorFIRQ)
	c.trace.Enter(Frame{Kind: FrameFIRQ, Return: ret, Target: c.pc, SP: c.s})
}

func (c *CPU) swi(vector uint16, kind FrameKind) opcodeFunc {
	return func() {
		c.interruptFull(vector, kind, kind == FrameSWI)
	}
}

// rti pulls CC and, if E was set in it, the rest of the full frame.
func (c *CPU) rti() {
	c.cc = c.pop8(&c.s)
	if c.getFlag(flagE) {
		c.a = c.pop8(&c.s)
		c.b = c.pop8(&c.s)
		c.dp = c.pop8(&c.s)
		c.x = c.pop16(&c.s)
		c.y = c.pop16(&c.s)
		c.u = c.pop16(&c.s)
		c.cycles += 9
	}
	c.pc = c.pop16(&c.s)
	// the stack only tells the two frame shapes apart
	kind := FrameFIRQ
	if c.getFlag(flagE) {
		kind = FrameIRQ
	}
	c.trace.Exit(kind, c.pc, c.s)
}

// cwai clears CC bits with the immediate operand, stacks the entire state
// and waits for an interrupt.
func (c *CPU) cwai() {
	c.cc &= c.operand8()
	c.pushEntireState()
	c.wait = waitCWAI
}

// sync waits until any interrupt line is asserted.
func (c *CPU) sync() {
	c.wait = waitSYNC
}
