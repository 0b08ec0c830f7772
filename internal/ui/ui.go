package ui

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/nevisdale/vectic/internal/vectrex"
)

// P - pause
// R - one step and stop
// F - one frame and stop
// O - show opcode counters

type UI struct {
	console *vectrex.Console

	showOpcodes bool
	lastErr     error
}

func New(console *vectrex.Console) *UI {
	return &UI{
		console: console,
	}
}

func (ui *UI) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		ui.console.TogglePause()
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		ui.console.OneStepAndStop()
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF) {
		if !ui.console.Paused() {
			ui.console.TogglePause()
		}
		ui.lastErr = ui.console.RunFrame()
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyO) {
		ui.showOpcodes = !ui.showOpcodes
	}

	ui.console.Tic()
	return nil
}

func (ui *UI) Draw(screen *ebiten.Image) {
	info := ui.console.DebugInfo()

	var left strings.Builder
	fmt.Fprintf(&left, " FPS: %0.0f\n", ebiten.ActualFPS())
	if h := ui.console.Header(); h != nil {
		fmt.Fprintf(&left, " CART: %s\n", h)
	}
	left.WriteString(indent(info.String()))

	var right strings.Builder
	if ui.showOpcodes {
		right.WriteString(" OPCODES\n")
		for i, oc := range ui.console.OpcodeCounts() {
			if i == opcodeRows {
				break
			}
			fmt.Fprintf(&right, " %04X %-5s %d\n", oc.Opcode, oc.Name, oc.Count)
		}
	} else {
		right.WriteString(" VIA WRITES\n")
		writes := ui.console.DrainPortWrites()
		for _, w := range writes[max(0, len(writes)-opcodeRows):] {
			fmt.Fprintf(&right, " %10d R%X=%02X\n", w.Cycle, w.Reg, w.Data)
		}
	}
	if ui.lastErr != nil {
		fmt.Fprintf(&right, "\n %v\n", ui.lastErr)
	}

	vector.DrawFilledRect(screen, 0, 0, panelWidth, screenHeight, color.RGBA{50, 50, 50, 255}, false)
	vector.DrawFilledRect(screen, panelWidth, 0, panelWidth, screenHeight, color.RGBA{35, 35, 35, 255}, false)
	ebitenutil.DebugPrintAt(screen, left.String(), 0, 0)
	ebitenutil.DebugPrintAt(screen, right.String(), panelWidth, 0)
}

func indent(s string) string {
	return " " + strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n ")
}

const (
	panelWidth   = 420
	screenHeight = 480
	opcodeRows   = 30
)

func (ui *UI) Layout(_, _ int) (int, int) {
	return panelWidth * 2, screenHeight
}

func RunUI(ui *UI) error {
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(panelWidth*2*2, screenHeight*2)
	ebiten.SetWindowTitle("vectic")
	// one console frame per update, 50 Hz like the real machine
	ebiten.SetTPS(50)
	return ebiten.RunGame(ui)
}
