package cpu

import "fmt"

// FrameKind tags how a subroutine or handler was entered.
type FrameKind uint8

const (
	FrameJSR FrameKind = iota + 1
	FrameBSR
	FrameIRQ
	FrameFIRQ
	FrameSWI
	FrameSWI2
	FrameSWI3
	FrameNMI
)

func (k FrameKind) String() string {
	switch k {
	case FrameJSR:
		return "JSR"
	case FrameBSR:
		return "BSR"
	case FrameIRQ:
		return "IRQ"
	case FrameFIRQ:
		return "FIRQ"
	case FrameSWI:
		return "SWI"
	case FrameSWI2:
		return "SWI2"
	case FrameSWI3:
		return "SWI3"
	case FrameNMI:
		return "NMI"
	}
	return "???"
}

// isInterrupt reports whether the frame is left with RTI rather than RTS.
func (k FrameKind) isInterrupt() bool {
	return k >= FrameIRQ
}

// Frame is one call or interrupt entry.
type Frame struct {
	Kind   FrameKind
	Return uint16 // address the matching return should land on
	Target uint16 // entry point
	SP     uint16 // S after the return address was pushed
}

// Tracer observes execution. Every method is called synchronously from
// Step, implementations must not call back into the CPU.
type Tracer interface {
	// Instruction is called before each instruction executes.
	Instruction(pc uint16, opcode uint16)
	// Enter is called after a call or interrupt entry stacked its frame.
	Enter(f Frame)
	// Exit is called after RTS or RTI with the address returned to and the
	// new S. RTS reports FrameJSR. RTI reports FrameFIRQ for a PC and CC
	// frame and FrameIRQ for any entire-state frame, IRQ, NMI or SWI alike.
	Exit(kind FrameKind, target uint16, sp uint16)
}

type nopTracer struct{}

func (nopTracer) Instruction(uint16, uint16)     {}
func (nopTracer) Enter(Frame)                    {}
func (nopTracer) Exit(FrameKind, uint16, uint16) {}

// Anomaly is a return that does not match the shadow stack.
type Anomaly struct {
	Expected *Frame // nil when nothing was on the shadow stack
	Target   uint16
	SP       uint16
	Reason   string
}

func (a Anomaly) String() string {
	if a.Expected == nil {
		return fmt.Sprintf("%s: return to $%04X (S=$%04X)", a.Reason, a.Target, a.SP)
	}
	return fmt.Sprintf("%s: return to $%04X (S=$%04X), expected $%04X from %s at $%04X",
		a.Reason, a.Target, a.SP, a.Expected.Return, a.Expected.Kind, a.Expected.Target)
}

// maximum frames kept before the oldest is dropped, programs that never
// return would otherwise grow the stack forever
const shadowDepth = 256

// ShadowStack mirrors calls and returns to catch malformed returns, e.g. a
// return into RAM after the stack got corrupted. It is a diagnostic and
// never changes what the CPU does.
type ShadowStack struct {
	frames    []Frame
	anomalies []Anomaly

	// Suspicious flags return targets that are never legitimate, e.g. RAM.
	Suspicious func(addr uint16) bool
}

func NewShadowStack() *ShadowStack {
	return &ShadowStack{}
}

func (s *ShadowStack) Instruction(uint16, uint16) {}

func (s *ShadowStack) Enter(f Frame) {
	if len(s.frames) == shadowDepth {
		s.frames = s.frames[1:]
	}
	s.frames = append(s.frames, f)
}

func (s *ShadowStack) Exit(kind FrameKind, target uint16, sp uint16) {
	if s.Suspicious != nil && s.Suspicious(target) {
		s.report(nil, target, sp, "return into suspicious region")
	}

	// unwind to the matching frame, code that pulls its return address
	// by hand leaves stale frames behind
	for i := len(s.frames) - 1; i >= 0; i-- {
		f := s.frames[i]
		if f.Return == target && f.Kind.isInterrupt() == kind.isInterrupt() {
			s.frames = s.frames[:i]
			return
		}
	}

	if len(s.frames) == 0 {
		s.report(nil, target, sp, "return with empty shadow stack")
		return
	}
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	s.report(&top, target, sp, "mismatched return")
}

func (s *ShadowStack) report(expected *Frame, target, sp uint16, reason string) {
	s.anomalies = append(s.anomalies, Anomaly{Expected: expected, Target: target, SP: sp, Reason: reason})
}

// Depth returns the number of open frames.
func (s *ShadowStack) Depth() int {
	return len(s.frames)
}

// Frames returns the open frames, innermost last.
func (s *ShadowStack) Frames() []Frame {
	return append([]Frame(nil), s.frames...)
}

// Anomalies returns and clears the recorded anomalies.
func (s *ShadowStack) Anomalies() []Anomaly {
	out := s.anomalies
	s.anomalies = nil
	return out
}

func (s *ShadowStack) Reset() {
	s.frames = s.frames[:0]
	s.anomalies = nil
}
