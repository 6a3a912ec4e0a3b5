// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"reactive/cmd"
	"reactive/internal/analysis"
	"reactive/internal/audio"
	"reactive/internal/config"
	"reactive/internal/frame"
	applog "reactive/internal/log"
	"reactive/internal/source"
	"reactive/internal/transport"
	"reactive/internal/transport/udp"
	"reactive/internal/tui"
	"reactive/internal/uniform"
	"reactive/pkg/build"
)

const (
	debugLogEvery = 60            // Frames between debug transport summaries.
	tuiLogFile    = "reactive.log" // Debug log destination while the meter owns the terminal.
)

// main is the entry point for the audio-reactive feed.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Start capture or file decoding into the analyser
//   - Drive the frame loop, from the terminal meter or headless
//   - Fan snapshots out to the configured transports
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop recording if active
//   - Clean up resources
func main() {
	if err := run(); err != nil {
		applog.Fatalf("%v", err)
	}
}

func run() error {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		return err
	}

	// One thread for the capture callback, one for the frame loop and I/O.
	runtime.GOMAXPROCS(2)

	opts, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		return err
	}
	if opts == nil {
		return nil
	}
	cfg := opts.Config

	level, _ := applog.ParseLevel(cfg.LogLevel)
	if cfg.Debug {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)

	live := cfg.Source.File == ""
	if live || cfg.Command == "list" {
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
	}

	if cfg.Command == "list" {
		return audio.ListDevices(os.Stdout)
	}

	if opts.Pick && live {
		sel, ok, err := tui.PickDevice()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		cfg.Audio.InputDevice = sel.DeviceID
		cfg.Audio.SampleRate = sel.SampleRate
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var stream *source.Stream
	if !live {
		stream, err = source.Open(cfg.Source.File, cfg.Source.Loop)
		if err != nil {
			return err
		}
		defer stream.Close()
		// The analyser bins must match the decoded rate, not the capture setting.
		cfg.Audio.SampleRate = float64(stream.SampleRate())
	}

	analyser, err := analysis.NewAnalyser(cfg.AnalyserConfig())
	if err != nil {
		return err
	}

	if live {
		engine, err := audio.NewEngine(cfg, analyser)
		if err != nil {
			return err
		}
		if err := engine.StartInputStream(); err != nil {
			return err
		}
		defer func() {
			if err := engine.Close(); err != nil {
				applog.Errorf("closing audio engine: %v", err)
			}
		}()

		if cfg.Recording.Enabled {
			path, err := engine.RecordingPath(time.Now())
			if err != nil {
				return err
			}
			if err := engine.StartRecording(path); err != nil {
				return err
			}
		}
	} else {
		go feedFile(ctx, stop, cfg, stream, analyser)
	}

	sinks, err := openTransports(cfg)
	if err != nil {
		return err
	}

	extractor := analysis.NewExtractor(cfg.AnalysisParams())
	publisher := uniform.NewPublisher(cfg.Render.Width, cfg.Render.Height)
	driver := frame.NewDriver(analyser, extractor, publisher, sinks...)
	defer func() {
		if err := driver.Close(); err != nil {
			applog.Errorf("closing transports: %v", err)
		}
	}()

	if cfg.Render.TUI {
		// Log lines would tear the alternate screen.
		var logSink io.Writer = io.Discard
		if cfg.Debug {
			if f, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				defer f.Close()
				logSink = f
			}
		}
		applog.SetOutput(logSink)
		defer applog.SetOutput(os.Stderr)

		err = tui.RunMeter(ctx, driver, publisher, cfg.Render.FrameRate)
	} else {
		fmt.Printf("%s running headless at %d fps, Ctrl+C to stop.\n",
			build.GetBuildFlags().Name, cfg.Render.FrameRate)
		err = driver.Run(ctx, cfg.FrameInterval())
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if errors.Is(err, context.Canceled) {
		err = nil
	}
	applog.Infof("stopped after %d frames", driver.Frames())
	return err
}

// feedFile pushes the decoded file into the analyser until it ends, then
// cancels the run.
func feedFile(ctx context.Context, stop context.CancelFunc, cfg *config.Config, stream *source.Stream, sink source.Sink) {
	defer stop()

	var err error
	if cfg.Source.Playback {
		err = source.NewPlayback(stream, sink, 1).Run(ctx)
	} else {
		err = source.NewFeeder(stream, sink, source.DefaultChunk).Run(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		applog.Errorf("file source: %v", err)
	}
}

// openTransports builds every enabled transport. On error any already opened
// are closed.
func openTransports(cfg *config.Config) ([]transport.Transport, error) {
	var sinks []transport.Transport
	fail := func(err error) ([]transport.Transport, error) {
		for _, s := range sinks {
			s.Close()
		}
		return nil, err
	}

	if applog.Enabled(applog.LevelDebug) {
		sinks = append(sinks, transport.NewLoggingTransport(debugLogEvery))
	}

	t := cfg.Transport
	if t.WebSocketEnabled {
		ws, err := transport.NewWebSocketTransport(t.WebSocketAddress)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, ws)
	}

	if t.UDPEnabled {
		sender, err := udp.NewUDPSender(t.UDPTargetAddress)
		if err != nil {
			return fail(err)
		}
		pub, err := udp.NewUDPPublisher(t.UDPSendInterval, sender)
		if err != nil {
			sender.Close()
			return fail(err)
		}
		pub.Start()
		sinks = append(sinks, pub)
	}

	return sinks, nil
}
