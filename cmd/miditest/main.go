package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"go-drum/midi"
	"go-drum/sequencer"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "detect":
		detect()
	case "leds":
		testLEDs()
	case "notes":
		kit := sequencer.DefaultKit
		if len(os.Args) > 2 {
			kit = os.Args[2]
		}
		monitorNotes(kit)
	case "poll":
		pollDevices()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list         - List all MIDI ports")
	fmt.Println("  detect       - Show what go-drum would connect to")
	fmt.Println("  leds         - Light the Launchpad palette colors")
	fmt.Println("  notes [kit]  - Print incoming notes and the drum slot they hit")
	fmt.Println("  poll         - Watch controllers connect and disconnect")
	fmt.Printf("\nKits: %s\n", strings.Join(sequencer.KitNames(), ", "))
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	ins, outs, ok := midi.ListPorts(3 * time.Second)
	if !ok {
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return
	}
	for i, p := range ins {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, p := range outs {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
}

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// firstController runs a device manager until a controller of kind connects.
// The manager keeps running until ctx ends.
func firstController(ctx context.Context, kind midi.ControllerType, opts ...midi.Option) (midi.Controller, *midi.DeviceManager) {
	dm := midi.NewDeviceManager(opts...)
	go dm.Run(ctx)
	for evt := range dm.Events() {
		if evt.Type == midi.DeviceConnected && evt.Controller.Type() == kind {
			return evt.Controller, dm
		}
	}
	return nil, dm
}

func detect() {
	fmt.Println("Scanning for controllers (5 seconds)...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dm := midi.NewDeviceManager()
	go dm.Run(ctx)

	found := 0
	for evt := range dm.Events() {
		if evt.Type == midi.DeviceConnected {
			fmt.Printf("  %-10s %s\n", evt.Controller.Type(), evt.ID)
			found++
		}
	}
	if found == 0 {
		fmt.Println("\nNo controllers found")
	}
}

func testLEDs() {
	fmt.Println("Waiting for a Launchpad...")
	ctx, cancel := interruptContext()
	defer cancel()

	ctrl, dm := firstController(ctx, midi.ControllerLaunchpad, midi.WithoutKeyboards())
	if ctrl == nil {
		fmt.Println("No Launchpad found")
		return
	}
	fmt.Printf("Using %s\n", ctrl.ID())

	colors := []struct {
		name     string
		velocity uint8
	}{
		{"red", midi.ColorRed},
		{"orange", midi.ColorOrange},
		{"yellow", midi.ColorYellow},
		{"bright yellow", midi.ColorBrightYellow},
		{"bright green", midi.ColorBrightGreen},
		{"blue", midi.ColorBlue},
		{"white", midi.ColorWhite},
	}

	// one row per color, bottom up, pulsing on the side column
	var updates []midi.LEDUpdate
	for row, c := range colors {
		rgb, _ := midi.PaletteRGB(c.velocity)
		fmt.Printf("  row %d: %s (%d)\n", row, c.name, c.velocity)
		for col := 0; col < midi.GridSize; col++ {
			updates = append(updates, midi.LEDUpdate{Row: row, Col: col, Color: rgb})
		}
		updates = append(updates, midi.LEDUpdate{Row: row, Col: midi.SideCol, Color: rgb, Channel: midi.ChannelPulse})
	}
	if err := ctrl.SetLEDBatch(updates); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println("Press Enter to clear...")
	fmt.Scanln()

	// the manager blanks the grid as it closes; wait for it
	cancel()
	for range dm.Events() {
	}
	fmt.Println("Done!")
}

func monitorNotes(kitName string) {
	kit := sequencer.GetKit(kitName)
	fmt.Printf("Kit: %s. Waiting for a keyboard... Ctrl+C to exit.\n", kit.Name)
	ctx, cancel := interruptContext()
	defer cancel()

	ctrl, _ := firstController(ctx, midi.ControllerKeyboard)
	if ctrl == nil {
		fmt.Println("No keyboard found")
		return
	}
	fmt.Printf("Listening on %s\n", ctrl.ID())

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ctrl.NoteEvents():
			if !ok {
				return
			}
			slot := "-"
			if i, ok := kit.SlotForNote(evt.Note); ok {
				slot = sequencer.SlotNames[i]
			}
			kind := "on "
			if evt.Type() == midi.NoteOff {
				kind = "off"
			}
			fmt.Printf("[%s] ch%-2d %s note %3d vel %3d  %s\n",
				time.Now().Format("15:04:05.000"), evt.Channel+1, kind, evt.Note, evt.Velocity, slot)
		}
	}
}

func pollDevices() {
	fmt.Println("Watching for device changes...")
	fmt.Println("Connect/disconnect controllers to test. Ctrl+C to exit.")
	ctx, cancel := interruptContext()
	defer cancel()

	dm := midi.NewDeviceManager(midi.WithPollRate(2 * time.Second))
	go dm.Run(ctx)

	for evt := range dm.Events() {
		switch evt.Type {
		case midi.DeviceConnected:
			fmt.Printf("[%s] connected %s (%s)\n", time.Now().Format("15:04:05"), evt.ID, evt.Controller.Type())
		case midi.DeviceDisconnected:
			fmt.Printf("[%s] disconnected %s\n", time.Now().Format("15:04:05"), evt.ID)
		}
	}
}
