package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"vmidi-bridge/bridge"
	"vmidi-bridge/midi"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "pairs":
		listPairs()
	case "poll":
		pollDevices()
	case "monitor":
		if len(os.Args) < 3 {
			usage()
			return
		}
		idx, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Printf("bad port index %q\n", os.Args[2])
			os.Exit(1)
		}
		monitor(idx)
	case "vport":
		hostTraffic()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list         - List all MIDI ports")
	fmt.Println("  pairs        - List devices usable by the bridge")
	fmt.Println("  poll         - Watch for device changes")
	fmt.Println("  monitor <n>  - Print decoded messages from input port n")
	fmt.Println("  vport        - Open the virtual port and print what the host sends")
}

// enumerate lists ports, giving up after 3 seconds (CoreMIDI can hang)
func enumerate() (ins, outs []string, ok bool) {
	type result struct{ ins, outs []string }
	ch := make(chan result, 1)
	go func() {
		ins, outs := midi.PortNames()
		ch <- result{ins, outs}
	}()

	select {
	case r := <-ch:
		return r.ins, r.outs, true
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! Port enumeration is hung.")
		fmt.Println("Fix (macOS): sudo killall coreaudiod midiserver")
		return nil, nil, false
	}
}

func listPorts() {
	fmt.Println("(waiting up to 3 seconds...)")
	ins, outs, ok := enumerate()
	if !ok {
		return
	}
	fmt.Println("=== MIDI Input Ports ===")
	for i, name := range ins {
		fmt.Printf("  %d: %s\n", i, name)
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, name := range outs {
		fmt.Printf("  %d: %s\n", i, name)
	}
}

func listPairs() {
	ins, outs, ok := enumerate()
	if !ok {
		return
	}
	pairs := midi.Pairs(ins, outs, bridge.DefaultPortName)
	if len(pairs) == 0 {
		fmt.Println("No device has both MIDI in and out.")
		return
	}
	for _, p := range pairs {
		fmt.Printf("  %-32s in=%d out=%d\n", p.Name, p.In, p.Out)
	}
}

func pollDevices() {
	fmt.Println("Watching for device changes. Ctrl+C to exit.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dm := midi.NewDeviceManager(nil, bridge.DefaultPortName)
	go dm.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-dm.Events():
			fmt.Printf("[%s] %-12s %s (in=%d out=%d)\n",
				time.Now().Format("15:04:05"), ev.Type, ev.Pair.Name, ev.Pair.In, ev.Pair.Out)
		}
	}
}

func monitor(idx int) {
	in, err := midi.RtMidi{}.OpenInput(idx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer in.Close()

	stopListen, err := in.Listen(func(cmd midi.Command) {
		printCommand("in ", cmd)
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer stopListen()

	fmt.Printf("Listening on input %d. Ctrl+C to exit.\n", idx)
	waitInterrupt()
}

func hostTraffic() {
	vp, err := midi.OpenVirtualPort(bridge.DefaultPortName, bridge.DefaultBufferSize)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	go func() {
		waitInterrupt()
		vp.Close()
	}()

	fmt.Printf("Virtual port %q open. Ctrl+C to exit.\n", vp.Name())
	for {
		cmd, err := vp.Receive()
		if err != nil {
			return
		}
		printCommand("host", cmd)
	}
}

func printCommand(dir string, cmd midi.Command) {
	ts := time.Now().Format("15:04:05.000")
	ev, err := midi.Decode(cmd)
	if err != nil {
		fmt.Printf("%s %s %-11s  (%v)\n", ts, dir, cmd, err)
		return
	}
	fmt.Printf("%s %s %-11s  %s\n", ts, dir, cmd, ev.Message())
}

func waitInterrupt() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
}
