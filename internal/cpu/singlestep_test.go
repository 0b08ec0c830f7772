package cpu

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Test_CPU_SingleStepTest runs JSON test vectors, one file per opcode, each
// holding a list of cases with the state before and after one instruction.
// Point SINGLE_STEP_TEST_DIR at the directory to run them.
func Test_CPU_SingleStepTest(t *testing.T) {
	t.Parallel()

	type cpuState struct {
		PC uint16 `json:"pc"`
		S  uint16 `json:"s"`
		U  uint16 `json:"u"`
		X  uint16 `json:"x"`
		Y  uint16 `json:"y"`
		A  uint8  `json:"a"`
		B  uint8  `json:"b"`
		DP uint8  `json:"dp"`
		CC uint8  `json:"cc"`

		// slice of elements where
		// element[0] is address
		// element[1] is value
		RAM [][]uint16 `json:"ram"`
	}

	type testInstance struct {
		Name    string   `json:"name"`
		Initial cpuState `json:"initial"`
		Final   cpuState `json:"final"`

		// slice of elements where
		// element[0] is address
		// element[1] is value
		// element[2] is operation (read/write)
		Cycles [][]any `json:"cycles"`
	}

	dir := os.Getenv("SINGLE_STEP_TEST_DIR")
	if dir == "" {
		t.Skip("skipping test because SINGLE_STEP_TEST_DIR is not set")
		return
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	mem := newVectorMem(t)
	doTest := func(t *testing.T, test testInstance) {
		mem.reset()
		for _, addrVal := range test.Initial.RAM {
			mem.set(addrVal[0], uint8(addrVal[1]))
		}
		for _, cyc := range test.Cycles {
			op, _ := cyc[2].(string)
			addr := uint16(cyc[0].(float64))
			data := uint8(cyc[1].(float64))
			mem.allow(op, addr, data)
		}

		cpu, err := New(mem)
		if err != nil {
			t.Fatal(err)
		}
		in := test.Initial
		cpu.SetRegisters(Registers{
			A: in.A, B: in.B, DP: in.DP, CC: in.CC,
			X: in.X, Y: in.Y, U: in.U, S: in.S, PC: in.PC,
		})

		if _, err := cpu.Step(); err != nil {
			t.Fatalf("%s: %v", test.Name, err)
		}

		out := test.Final
		expected := Registers{
			A: out.A, B: out.B, DP: out.DP, CC: out.CC,
			X: out.X, Y: out.Y, U: out.U, S: out.S, PC: out.PC,
		}
		if got := cpu.Registers(); got != expected {
			t.Fatalf("%s: expected %s, got %s", test.Name, expected, got)
		}
		if len(test.Cycles) > 0 && mem.ticks != len(test.Cycles) {
			t.Fatalf("%s: expected %d cycles, got %d", test.Name, len(test.Cycles), mem.ticks)
		}

		for _, addrVal := range test.Final.RAM {
			mem.mustBe(addrVal[0], uint8(addrVal[1]))
		}
	}

	var tests []testInstance
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		fileData, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			t.Fatalf("failed to read file %s: %v", file.Name(), err)
		}

		tests = tests[:0]
		if err := json.Unmarshal(fileData, &tests); err != nil {
			t.Fatalf("failed to unmarshal file %s: %v", file.Name(), err)
		}

		t.Run(file.Name(), func(t *testing.T) {
			for _, test := range tests {
				doTest(t, test)
			}
		})
	}
}

// vectorMem only lets the CPU write what the test vector expects.
type vectorMem struct {
	t       *testing.T
	data    []uint8
	allowed map[uint32]struct{}
	ticks   int
}

func newVectorMem(t *testing.T) *vectorMem {
	return &vectorMem{
		t:       t,
		data:    make([]uint8, 0x10000),
		allowed: make(map[uint32]struct{}),
	}
}

func (m *vectorMem) key(addr uint16, data uint8) uint32 {
	return uint32(addr) | uint32(data)<<16
}

func (m *vectorMem) allow(op string, addr uint16, data uint8) {
	if op == "write" {
		m.allowed[m.key(addr, data)] = struct{}{}
	}
}

func (m *vectorMem) mustBe(addr uint16, data uint8) {
	if m.data[addr] != data {
		m.t.Fatalf("expected %02X at address %04X, got %02X", data, addr, m.data[addr])
	}
}

func (m *vectorMem) set(addr uint16, data uint8) {
	m.data[addr] = data
}

func (m *vectorMem) reset() {
	clear(m.data)
	clear(m.allowed)
	m.ticks = 0
}

func (m *vectorMem) Read8(addr uint16) uint8 {
	// do not check because read does not change memory
	return m.data[addr]
}

func (m *vectorMem) Write8(addr uint16, data uint8) {
	if _, ok := m.allowed[m.key(addr, data)]; !ok {
		m.t.Fatalf("not allowed write to address %04X with value %02X", addr, data)
	}
	m.data[addr] = data
}

func (m *vectorMem) Tick(cycles int) { m.ticks += cycles }
func (m *vectorMem) IRQ() bool       { return false }
