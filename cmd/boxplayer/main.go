// Command boxplayer emulates a BoxPlayer/HDPlayer LED-signage controller:
// it accepts the vendor SDK protocol over TCP, answers UDP discovery
// probes, composites the active program, and writes frames to a
// configurable pixel sink.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ledsign/boxplayer/internal/beacon"
	"github.com/ledsign/boxplayer/internal/compositor"
	"github.com/ledsign/boxplayer/internal/config"
	"github.com/ledsign/boxplayer/internal/device"
	"github.com/ledsign/boxplayer/internal/metrics"
	"github.com/ledsign/boxplayer/internal/player"
	"github.com/ledsign/boxplayer/internal/program"
	"github.com/ledsign/boxplayer/internal/protocol"
	"github.com/ledsign/boxplayer/internal/scheduler"
	"github.com/ledsign/boxplayer/internal/sink"
	"github.com/ledsign/boxplayer/internal/store"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("boxplayer: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("boxplayer: %v", err)
	}
}

func run(cfg *config.Config) error {
	st, err := store.Open(cfg.ProgramDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	dev := device.New(cfg.DeviceID, "BoxPlayer")
	if err := st.RestoreDeviceState(dev); err != nil {
		log.Printf("boxplayer: restore device state: %v", err)
	}
	queue := player.NewQueue()

	out, err := buildSink(cfg)
	if err != nil {
		return fmt.Errorf("build pixel sink: %w", err)
	}
	defer out.Close()

	comp := compositor.NewCompositor(cfg.Width, cfg.Height, cfg.FPS, cfg.ProgramDir, nil)
	p := player.New(dev, st, queue, comp, out, cfg.FPS, cfg.ProgramDir)

	if data, err := st.LoadProgram(); err != nil {
		log.Printf("boxplayer: load persisted program: %v", err)
	} else if data != nil {
		if screen, err := program.Parse(string(data)); err != nil {
			log.Printf("boxplayer: parse persisted program: %v", err)
		} else {
			queue.TrySend(player.LoadScreen(screen))
		}
	}

	dispatcher := &protocol.Dispatcher{
		Device: dev,
		Store:  st,
		Queue:  queue,
		Info: protocol.DeviceInfo{
			CPU:           "BoxPlayer",
			Model:         "boxplayer-emulator",
			FPGAVersion:   "1.0",
			ScreenWidth:   cfg.Width,
			ScreenHeight:  cfg.Height,
			DeviceID:      cfg.DeviceID,
			SDKServerPort: cfg.Port,
		},
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server, err := protocol.Listen(addr, dispatcher)
	if err != nil {
		return fmt.Errorf("bind tcp: %w", err)
	}
	defer server.Close()

	b, err := beacon.New(dev, "BoxPlayer", p)
	if err != nil {
		return fmt.Errorf("bind beacon: %w", err)
	}
	defer b.Close()

	sched := scheduler.New(dev, queue, st, cfg.ProgramDir, nil)

	stopCh := make(chan struct{})
	go func() {
		if err := server.Serve(); err != nil {
			log.Printf("boxplayer: tcp server stopped: %v", err)
		}
	}()
	go b.Run(stopCh)
	go sched.Run(stopCh)
	go p.Run(stopCh)
	go func() {
		if err := metrics.Serve(":9090"); err != nil {
			log.Printf("boxplayer: metrics server stopped: %v", err)
		}
	}()

	log.Printf("boxplayer: serving device %s on tcp:%d, beacon udp:%d, program dir %s",
		cfg.DeviceID, cfg.Port, beacon.Port, cfg.ProgramDir)

	waitForSignal()
	close(stopCh)
	log.Printf("boxplayer: shutting down")
	return nil
}

func buildSink(cfg *config.Config) (sink.Sink, error) {
	switch cfg.Output {
	case "png":
		return sink.NewPNGSink(cfg.OutputPath, uint64(5*cfg.FPS)), nil
	case "raw":
		return sink.NewRawSink(os.Stdout), nil
	case "framebuffer":
		return sink.NewFramebufferSink(cfg.OutputPath)
	default:
		return nil, fmt.Errorf("unknown output kind %q", cfg.Output)
	}
}

func waitForSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
