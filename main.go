package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"audiomidi/cmd"
	"audiomidi/internal/audio"
	"audiomidi/internal/config"
	"audiomidi/internal/display"
	applog "audiomidi/internal/log"
	"audiomidi/internal/midi"
	"audiomidi/internal/pipeline"
	"audiomidi/internal/transport"
)

// main runs in three phases:
//
// 1. Startup (cold path): parse arguments, validate configuration,
// initialize PortAudio, bind the MIDI output.
//
// 2. Concurrent (hot path): the capture callback feeds sample blocks to
// the pipeline loop, which emits note events each cycle.
//
// 3. Shutdown (cold path): release the capture stream, recording file
// and MIDI ports on any exit path, including capture errors.
func main() {
	cfg, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}

	// One-off commands need PortAudio or the MIDI driver, not the engine.
	if cfg.Command != "" {
		if err := executeCommand(cfg.Command); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		applog.Fatalf("%v", err)
	}

	// One thread for the capture callback, one for the pipeline loop.
	runtime.GOMAXPROCS(2)

	if err := audio.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}
	defer audio.Terminate()

	engine, err := audio.NewEngine(cfg)
	if err != nil {
		applog.Fatalf("%v", err)
	}

	out, err := midi.Open(cfg.MIDIPort, cfg.MIDIChannel)
	if err != nil {
		applog.Fatalf("%v", err)
	}
	defer out.Close()

	var observers []pipeline.Observer
	var reporter *display.Reporter
	if cfg.ShowStatus {
		reporter = display.NewReporter(os.Stdout, cfg.NormLow, cfg.NormHigh)
		observers = append(observers, reporter)
	}
	var wst transport.Transport
	if cfg.WebSocketAddr != "" {
		wst = transport.NewWebSocketTransport(cfg.WebSocketAddr, 16*time.Millisecond)
		if cfg.Verbose {
			wst = transport.NewLoggingTransport(wst)
		}
		defer wst.Close()
		observers = append(observers, transport.NewBroadcaster(wst))
	}

	pipe, err := pipeline.New(cfg, out, observers...)
	if err != nil {
		applog.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Start(); err != nil {
		applog.Fatalf("%v", err)
	}
	if cfg.RecordFile != "" {
		if err := engine.StartRecording(cfg.RecordFile); err != nil {
			engine.Close()
			applog.Fatalf("%v", err)
		}
	}

	go readCommands(pipe, cfg)

	runErr := pipe.Run(ctx, engine.Samples())
	if reporter != nil {
		reporter.Done()
	}

	if err := engine.Close(); err != nil {
		applog.Errorf("closing capture engine: %v", err)
	}
	if cfg.RecordFile != "" {
		fmt.Printf("recording saved to %s\n", cfg.RecordFile)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		applog.Fatalf("%v", runErr)
	}
	applog.Infof("done after %d cycles", pipe.Cycles())
}

func executeCommand(command string) error {
	switch command {
	case "list":
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
		return audio.ListDevices()
	case "ports":
		return midi.ListPorts()
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// readCommands turns stdin lines into pipeline commands, applied at the
// next cycle boundary:
//
//	sens <factor>      velocity sensitivity
//	silence <rms>      silence threshold
//	gain <band> <mul>  one band of the static equalizer profile
func readCommands(pipe *pipeline.Pipeline, cfg *config.Config) {
	profile := cfg.BaseProfile()
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "sens":
			if len(fields) != 2 {
				applog.Warnf("usage: sens <factor>")
				continue
			}
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				applog.Warnf("sens: %v", err)
				continue
			}
			pipe.Apply(pipeline.SetSensitivity{Value: v})
		case "silence":
			if len(fields) != 2 {
				applog.Warnf("usage: silence <rms>")
				continue
			}
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				applog.Warnf("silence: %v", err)
				continue
			}
			pipe.Apply(pipeline.SetSilenceThreshold{Value: v})
		case "gain":
			if len(fields) != 3 {
				applog.Warnf("usage: gain <band> <multiplier>")
				continue
			}
			band, err1 := strconv.Atoi(fields[1])
			mul, err2 := strconv.ParseFloat(fields[2], 64)
			if err1 != nil || err2 != nil || band < 0 || band >= len(profile) {
				applog.Warnf("gain: band must be 0-%d, multiplier a number", len(profile)-1)
				continue
			}
			profile[band] = mul
			gains := append([]float64(nil), profile...)
			pipe.Apply(pipeline.SetProfile{Gains: gains})
		default:
			applog.Warnf("unknown command %q", fields[0])
		}
	}
}
