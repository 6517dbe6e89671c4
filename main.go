package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/xlab/closer"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"vmidi-bridge/bridge"
	"vmidi-bridge/config"
	"vmidi-bridge/debug"
	"vmidi-bridge/midi"
	"vmidi-bridge/theme"
	"vmidi-bridge/tui"
)

func main() {
	var (
		device     = flag.String("device", "", "start on this device instead of the remembered one")
		headless   = flag.Bool("headless", false, "run without the TUI until interrupted")
		list       = flag.Bool("list", false, "list usable devices and exit")
		debugLog   = flag.Bool("debug", false, "write a debug log to ~/.config/vmidi-bridge/debug.log")
		configPath = flag.String("config", "", "config file (default ~/.config/vmidi-bridge/config.json)")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Error: config: %v\n", err)
		os.Exit(1)
	}

	if *debugLog || cfg.Debug {
		if *headless {
			debug.SetOutput(os.Stderr)
		} else if err := debug.Enable(); err != nil {
			fmt.Printf("Warning: debug log: %v\n", err)
		}
	}

	portName := cfg.VirtualPort.Name
	deviceMgr := midi.NewDeviceManager(nil, portName)
	if !deviceMgr.Scan() {
		fmt.Println("Warning: MIDI port enumeration timed out")
	}

	if *list {
		for _, p := range deviceMgr.Pairs() {
			fmt.Printf("%s\t(in=%d out=%d)\n", p.Name, p.In, p.Out)
		}
		debug.Disable()
		return
	}

	ctrl := bridge.NewController(midi.RtMidi{},
		bridge.WithPort(portName, cfg.VirtualPort.BufferSize),
		bridge.WithSelection(cfg),
	)

	name := *device
	if name == "" {
		name, _ = cfg.ResumeDevice()
	}
	var message string
	if name != "" {
		if err := ctrl.StartByName(deviceMgr.Pairs(), name); err != nil {
			message = startFailure(err)
			debug.Error("main", "start %q: %v", name, err)
		}
	}

	if *headless {
		runHeadless(ctrl, deviceMgr, name, message)
		return
	}

	th, err := theme.Load(cfg.Palette)
	if err != nil {
		fmt.Printf("Warning: %v, using built-in palette\n", err)
		th = theme.New(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go deviceMgr.Run(ctx)

	m := tui.NewModel(ctrl, deviceMgr, th, message)
	p := tea.NewProgram(m, tea.WithAltScreen())

	_, err = p.Run()
	ctrl.Close()
	debug.Disable()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func startFailure(err error) string {
	if errors.Is(err, bridge.ErrDeviceNotFound) {
		return err.Error()
	}
	return fmt.Sprintf("%s %v", bridge.InUseHint, err)
}

// runHeadless keeps the session up until SIGINT/SIGTERM, logging device
// changes to stdout.
func runHeadless(ctrl *bridge.Controller, deviceMgr *midi.DeviceManager, name, message string) {
	defer closer.Close()
	closer.Bind(debug.Disable)

	if name == "" {
		closer.Fatalln("[ERR] no device: pass -device or enable one in the TUI first")
	}
	if message != "" {
		closer.Fatalln("[ERR]", message)
	}

	ctx, cancel := context.WithCancel(context.Background())
	closer.Bind(func() {
		cancel()
		ctrl.Close()
		fmt.Println("[INFO] bridge closed")
	})

	go deviceMgr.Run(ctx)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-deviceMgr.Events():
				fmt.Printf("[INFO] %s %s\n", ev.Pair.Name, ev.Type)
			}
		}
	}()

	fmt.Printf("[INFO] bridging %s <-> %s\n", name, ctrl.PortName())
	closer.Hold()
}
