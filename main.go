package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jroimartin/gocui"
	"github.com/retroenv/retrogolib/log"

	"membus/console"
	"membus/logger"
	"membus/system"
)

var (
	nogui = flag.Bool("nogui", false, "run the bus exercise on stdout and exit")
	debug = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	flag.Parse()

	// stderr logging would garble the gui, stay quiet there unless asked
	lg := logger.New(*debug, !*debug && !*nogui)

	if *nogui {
		runSimple(lg)
		return
	}

	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		lg.Fatal("couldn't create gui", log.Err(err))
	}
	defer g.Close()

	g.SetManagerFunc(layout)

	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		lg.Fatal("couldn't set keybinding", log.Err(err))
	}

	// start the monitor
	g.Update(func(g *gocui.Gui) error {
		return startMonitor(g, lg)
	})

	if err := g.MainLoop(); err != nil && err != gocui.ErrQuit {
		lg.Fatal("monitor terminated", log.Err(err))
	}
}

// startMonitor builds the demo system and drives some traffic through it,
// so all three views have content before the first keypress.
func startMonitor(g *gocui.Gui, lg *log.Logger) error {
	mapView, err := g.View("map")
	if err != nil {
		return err
	}
	mapView.Clear()

	monitorView, err := g.View("monitor")
	if err != nil {
		return err
	}
	monitorView.Clear()

	c := console.NewGui(g, "monitor")
	sys, err := system.InitializeSystem(c, lg)
	if err != nil {
		return err
	}

	sys.LoadBootPattern()
	exercise(sys, c)

	sys.DumpMap(mapView)
	updateStatus(sys, g)
	return nil
}

// exercise drives a little traffic through every region so the monitor has
// something to show.
func exercise(sys *system.System, c console.Console) {
	_ = c.WriteConsole(fmt.Sprintf("ram[0000]   %08x\n", sys.Peek32(system.RAMStart)))
	_ = c.WriteConsole(fmt.Sprintf("rom[0000]   %08x (8 bit read, widened)\n", sys.Peek32(system.ROMStart)))
	for i := 0; i < 4; i++ {
		_ = c.WriteConsole(fmt.Sprintf("fifo pop    %02x\n", sys.Peek8(system.FIFOStart)))
	}
	sys.Poke8(system.FIFOStart, 0x40)
	_ = c.WriteConsole(fmt.Sprintf("fifo reload %02x\n", sys.Peek8(system.FIFOStart)))
	_ = c.WriteConsole(fmt.Sprintf("unmapped    %02x\n", sys.Peek8(0x800000)))
}

// updateStatus refreshes the status line once a second.
// gocui allows updating a view only through the Update function.
func updateStatus(sys *system.System, g *gocui.Gui) {
	ticker := time.NewTicker(time.Second)

	go func() {
		for range ticker.C {
			g.Update(func(g *gocui.Gui) error {
				v, err := g.View("status")
				if err != nil {
					return err
				}
				v.Clear()
				fmt.Fprintf(v, " mask %s  addr %s  entries %d",
					system.FormatAddr(sys.Bus.AddrMask()),
					system.FormatAddr(sys.Bus.CurrentAddr()),
					len(sys.Bus.Entries()))
				return nil
			})
		}
	}()
}

// runSimple drives the same exercise against the stdout console and exits.
func runSimple(lg *log.Logger) {
	c := console.NewSimple()
	sys, err := system.InitializeSystem(c, lg)
	if err != nil {
		lg.Fatal("system setup failed", log.Err(err))
	}

	sys.LoadBootPattern()
	exercise(sys, c)

	// drain the console before dumping the map, output order matters here
	c.Close()
	sys.DumpMap(os.Stdout)
}

// gocui layout
func layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	// up -> the entry table
	if v, err := g.SetView("map", 0, 0, maxX-1, 7); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Memory Map"
	}

	// middle -> bus traffic
	if v, err := g.SetView("monitor", 0, 8, maxX-1, maxY-4); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Monitor"
	}

	// down -> mask / current address / entry count
	if v, err := g.SetView("status", 0, maxY-3, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
	}
	return nil
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}
