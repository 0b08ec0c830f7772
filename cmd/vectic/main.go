package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gdamore/tcell"
	"github.com/nevisdale/vectic/internal/monitor"
	"github.com/nevisdale/vectic/internal/ui"
	"github.com/nevisdale/vectic/internal/vectrex"
	"github.com/pkg/profile"
	"github.com/spf13/afero"
	"golang.org/x/term"
)

func main() {
	if err := start(); err != nil {
		log.Printf("%s\n", err.Error())
		os.Exit(1)
	}
}

// start returns instead of exiting so the profile is written.
func start() error {
	biosPath := flag.String("bios", "", "path to the system ROM (4K or 8K)")
	cartPath := flag.String("cart", "", "path to a cartridge image")
	frontend := flag.String("frontend", "ui", "ui, term or headless")
	frames := flag.Int("frames", 50, "frames to run in headless mode")
	profileMode := flag.String("profile", "", "write a cpu or mem profile to the working directory")
	trace := flag.Bool("trace", false, "log accesses to unmapped memory")
	flag.Parse()

	if *biosPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q", *profileMode)
	}

	console, err := vectrex.New()
	if err != nil {
		return fmt.Errorf("couldn't create console: %w", err)
	}
	console.Bus().Trace = *trace
	if err := console.LoadFiles(afero.NewOsFs(), *biosPath, *cartPath); err != nil {
		return fmt.Errorf("couldn't load roms: %w", err)
	}
	if h := console.Header(); h != nil {
		log.Printf("cartridge: %s\n", h)
	}

	return run(console, *frontend, *frames)
}

func run(console *vectrex.Console, frontend string, frames int) error {
	switch frontend {
	case "ui":
		return ui.RunUI(ui.New(console))
	case "term":
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("the terminal monitor needs a terminal on stdout")
		}
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("couldn't open the terminal: %w", err)
		}
		return monitor.New(console, screen).Run()
	case "headless":
		return runHeadless(console, frames)
	}
	return fmt.Errorf("unknown frontend %q", frontend)
}

func runHeadless(console *vectrex.Console, frames int) error {
	var err error
	for i := 0; i < frames && err == nil; i++ {
		err = console.RunFrame()
	}

	fmt.Print(console.DebugInfo())
	for _, a := range console.Anomalies() {
		fmt.Println("anomaly:", a)
	}
	fmt.Println("top opcodes:")
	for i, oc := range console.OpcodeCounts() {
		if i == 10 {
			break
		}
		fmt.Printf("  %04X %-5s %d\n", oc.Opcode, oc.Name, oc.Count)
	}
	return err
}
