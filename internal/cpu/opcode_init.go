package cpu

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

//go:embed opcode_matrix.csv
var opcodeMatrixFileData []byte

// parseOpcodeMatrix fills the three opcode pages from the embedded matrix.
// Opcodes of pages 2 and 3 are written with their prefix, e.g. 0x10CE.
func (c *CPU) parseOpcodeMatrix() error {
	r := csv.NewReader(bytes.NewReader(opcodeMatrixFileData))
	_, _ = r.Read() // skip header

	r.ReuseRecord = true
	funcs := c.opcodeFuncs()

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("couldn't read data from csv: %w", err)
		}
		if len(record) == 0 {
			continue
		}

		if len(record) != 4 {
			return fmt.Errorf("invalid format for the record: %s: must be 4 parts", strings.Join(record, string(r.Comma)))
		}

		opcode, err := strconv.ParseUint(record[0], 0, 16)
		if err != nil {
			return fmt.Errorf("invalid format for opcode: %w", err)
		}

		var page int
		switch opcode >> 8 {
		case 0:
		case page2:
			page = 1
		case page3:
			page = 2
		default:
			return fmt.Errorf("invalid opcode page: %s", record[0])
		}

		name := record[1]
		opcodeFunc, ok := funcs[name]
		if !ok {
			return fmt.Errorf("invalid format for mnemonic: unknown mnemonic %s", name)
		}

		addressMode, err := addrModeFromString(record[2])
		if err != nil {
			return fmt.Errorf("invalid format for address mode: %w", err)
		}

		cycles, err := strconv.ParseUint(record[3], 0, 8)
		if err != nil {
			return fmt.Errorf("invalid format for opcode cycles: %w", err)
		}

		slot := &c.instrs[page][opcode&0xFF]
		if slot.fn != nil {
			return fmt.Errorf("duplicate opcode %s", record[0])
		}
		*slot = instruction{
			name:   name,
			fn:     opcodeFunc,
			mode:   addressMode,
			cycles: uint8(cycles),
		}
	}

	return nil
}
