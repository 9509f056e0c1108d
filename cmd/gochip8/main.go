// Package main implements the gochip8 emulator executable.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"gochip8/internal/app"
	"gochip8/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		romFile     = flag.String("rom", "", "Path to CHIP-8 program image (required)")
		configFile  = flag.String("config", "", "Path to configuration file")
		backend     = flag.String("backend", "", "Graphics backend: ebitengine, terminal, headless")
		debug       = flag.Bool("debug", false, "Enable debug logging")
		nogui       = flag.Bool("nogui", false, "Run without GUI (headless mode)")
		frames      = flag.Int("frames", 0, "Stop after N frames (0 = no limit)")
		scriptFile  = flag.String("script", "", "Lua script to drive the emulator")
		help        = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *help {
		printUsage()
		return 0
	}

	build := version.Current()
	if *showVersion {
		if _, err := build.WriteTo(os.Stdout); err != nil {
			return 1
		}
		return 0
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *romFile == "" {
		fmt.Fprintln(os.Stderr, "❌ A program is required: gochip8 -rom <file>")
		return 2
	}

	fmt.Printf("🎮 %s Starting...\n", build)

	configPath := *configFile
	if configPath == "" {
		configPath = app.GetDefaultConfigPath()
	}

	config := app.NewConfig()
	if err := config.LoadFromFile(configPath); err != nil {
		logrus.WithError(err).Warnf("[APP] could not load config from %s, using defaults", configPath)
		config = app.NewConfig()
	}

	if *backend != "" {
		config.Video.Backend = *backend
	}
	if *debug {
		config.Debug.LogLevel = "DEBUG"
		fmt.Println("🐛 Debug mode enabled")
	}
	if *frames > 0 {
		config.Emulation.MaxFrames = *frames
	}
	if *scriptFile != "" {
		config.Paths.Script = *scriptFile
	}
	if *nogui {
		fmt.Println("🖥️  Headless mode requested")
	}

	application, err := app.NewApplicationWithConfig(config, *nogui)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to create application: %v\n", err)
		return 1
	}
	logrus.WithFields(build.Fields()).Debug("[APP] build")
	defer func() {
		if err := application.Cleanup(); err != nil {
			logrus.WithError(err).Error("[APP] cleanup error")
		}
	}()

	fmt.Printf("📁 Loading program: %s\n", *romFile)
	if err := application.LoadROM(*romFile); err != nil {
		var fault *app.IOFault
		if errors.As(err, &fault) {
			fmt.Fprintf(os.Stderr, "❌ %v\n", fault)
		} else {
			fmt.Fprintf(os.Stderr, "❌ Failed to load program: %v\n", err)
		}
		return 1
	}
	fmt.Println("✅ Program loaded successfully")

	stop := setupGracefulShutdown(application)
	defer stop()

	printStartup(application)

	if err := application.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Emulator stopped: %v\n", err)
		return 1
	}

	fmt.Printf("📊 Session Statistics:\n")
	fmt.Printf("   Frames rendered: %d\n", application.GetFrameCount())
	fmt.Printf("   Instructions:    %d\n", application.GetEmulator().MachineState().Executed)
	fmt.Printf("   Session time:    %v\n", application.GetUptime())
	fmt.Println("👋 Emulator shutting down...")
	return 0
}

func printStartup(application *app.Application) {
	config := application.GetConfig()
	mode := "GUI"
	if application.IsHeadless() {
		mode = "headless"
	}
	fmt.Printf("🚀 Starting %s mode (%s backend)\n", mode, config.Video.Backend)
	fmt.Printf("   Window: %dx%d, colors %s on %s\n",
		config.Window.Width, config.Window.Height, config.Video.Foreground, config.Video.Background)
	fmt.Printf("   CPU: %d Hz, frames: %.0f Hz, decode faults: %s, bounds faults: %s\n",
		config.Emulation.CPUHz, config.Emulation.FrameRate,
		config.Emulation.OnDecodeFault, config.Emulation.OnBoundsFault)
	if config.Paths.Script != "" {
		fmt.Printf("   Script: %s\n", config.Paths.Script)
	}
}

// setupGracefulShutdown stops the application on SIGINT or SIGTERM. The
// returned function removes the handler.
func setupGracefulShutdown(application *app.Application) func() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case <-c:
			fmt.Println("\n🛑 Interrupt received, shutting down gracefully...")
			application.Stop()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(c)
		close(done)
	}
}

func printUsage() {
	fmt.Println(version.Name)
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  A CHIP-8 interpreter with Ebitengine, terminal and headless front ends.")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  gochip8 -rom <file> [options]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  gochip8 -rom pong.ch8                          # Start in a window")
	fmt.Println("  gochip8 -rom pong.ch8 -backend terminal        # Render in the terminal")
	fmt.Println("  gochip8 -rom test.ch8 -nogui -frames 120       # Run 120 frames headless")
	fmt.Println("  gochip8 -rom test.ch8 -nogui -script auto.lua  # Scripted run")
	fmt.Println()
	fmt.Println("KEYPAD (Default):")
	fmt.Println("  1 2 3 4      1 2 3 C")
	fmt.Println("  Q W E R  ->  4 5 6 D")
	fmt.Println("  A S D F      7 8 9 E")
	fmt.Println("  Z X C V      A 0 B F")
	fmt.Println("  Arrows map to 4/6/8/2 and Enter to 5.")
	fmt.Println()
	fmt.Println("  Special Keys:")
	fmt.Println("    Escape            - Quit")
	fmt.Println("    Space             - Pause / resume")
	fmt.Println("    F2                - Copy screen to clipboard (window only)")
	fmt.Println("    F5                - Reset")
	fmt.Println("    F12               - Screenshot")
	fmt.Println()
	fmt.Println("CONFIGURATION:")
	fmt.Println("  Config file: ./config/gochip8.json")
	fmt.Println("  Programs:    ./roms/")
	fmt.Println("  Screenshots: ./screenshots/")
}
