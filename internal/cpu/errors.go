package cpu

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalInstruction          = errors.New("illegal instruction")
	ErrUnimplementedAddressingMode = errors.New("unimplemented addressing mode")
	ErrHalted                      = errors.New("cpu halted")
)

// IllegalInstructionError is returned for an opcode with no instruction on
// its page. Opcode carries the page prefix, e.g. $1001.
type IllegalInstructionError struct {
	Opcode uint16
	PC     uint16
}

func (e *IllegalInstructionError) Error() string {
	return fmt.Sprintf("illegal instruction %s at $%04X", opcodeString(e.Opcode), e.PC)
}

func (e *IllegalInstructionError) Unwrap() error { return ErrIllegalInstruction }

// UnimplementedAddressingModeError is returned for an indexed postbyte
// that does not encode a valid mode.
type UnimplementedAddressingModeError struct {
	Opcode   uint16
	Postbyte uint8
	PC       uint16
}

func (e *UnimplementedAddressingModeError) Error() string {
	return fmt.Sprintf("unimplemented indexed postbyte $%02X for %s at $%04X",
		e.Postbyte, opcodeString(e.Opcode), e.PC)
}

func (e *UnimplementedAddressingModeError) Unwrap() error { return ErrUnimplementedAddressingMode }

func opcodeString(op uint16) string {
	if op > 0xFF {
		return fmt.Sprintf("$%04X", op)
	}
	return fmt.Sprintf("$%02X", op)
}
