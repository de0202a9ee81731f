// ABOUTME: The call command running one live tutoring session
// ABOUTME: Wires capture, transport, playback, recording and the TUI together
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/bactutor/voicetutor-go/internal/config"
	"github.com/bactutor/voicetutor-go/internal/recorder"
	"github.com/bactutor/voicetutor-go/internal/ui"
	"github.com/bactutor/voicetutor-go/pkg/audio"
	"github.com/bactutor/voicetutor-go/pkg/audio/capture"
	"github.com/bactutor/voicetutor-go/pkg/audio/output"
	"github.com/bactutor/voicetutor-go/pkg/live"
	"github.com/bactutor/voicetutor-go/pkg/tutor"
)

func newCallCommand(configFlag *string) *cobra.Command {
	var (
		syntheticMic bool
		noTUI        bool
		recordDir    string
		logFile      string
	)

	cmd := &cobra.Command{
		Use:   "call",
		Short: "Start a live tutoring call",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(*configFlag)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("synthetic-mic") {
				cfg.Audio.SyntheticMic = syntheticMic
			}
			if cmd.Flags().Changed("record-dir") {
				cfg.Recording.Enabled = true
				cfg.Recording.Dir = recordDir
			}
			if cmd.Flags().Changed("log-file") {
				cfg.LogFile = logFile
			}
			return runCall(cfg, !noTUI)
		},
	}

	cmd.Flags().BoolVar(&syntheticMic, "synthetic-mic", false, "Use a generated tone instead of the microphone")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Disable the TUI, use streaming logs instead")
	cmd.Flags().StringVar(&recordDir, "record-dir", "", "Record both call legs as WAV files into this directory")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Log file path")

	return cmd
}

func runCall(cfg *config.Config, useTUI bool) error {
	// The TUI owns the terminal, so logs go to the file only; in
	// streaming mode they go to both.
	f, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	if cfg.Service.APIKey == "" {
		return fmt.Errorf("no API key: set service.api_key or %s", config.APIKeyEnv)
	}

	// Playback engine: the mixer is the output clock, the device drains it.
	mixer := output.NewMixer(audio.OutputRate)
	deviceLost := make(chan error, 1)
	var device output.Device
	switch cfg.Audio.OutputBackend {
	case "oto":
		device = output.NewOtoDevice(mixer)
	default:
		md := output.NewMalgoDevice(mixer)
		md.OnFatal = func(err error) {
			select {
			case deviceLost <- err:
			default:
			}
		}
		device = md
	}
	if err := device.Start(); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}
	defer func() { _ = device.Close() }()

	// Capture side.
	var src capture.Source
	if cfg.Audio.SyntheticMic {
		log.Printf("Using synthetic microphone")
		src = capture.NewSynthetic(440)
	} else {
		src = capture.NewMalgo()
	}
	pipeline := capture.NewPipeline(src)

	// Session recording taps both legs before scheduling.
	var rec *recorder.Recorder
	if cfg.Recording.Enabled {
		callID := time.Now().Format("20060102-150405")
		rec, err = recorder.New(cfg.Recording.Dir, callID)
		if err != nil {
			return err
		}
		defer func() { _ = rec.Close() }()
		pipeline.Tap = rec.Mic
		log.Printf("Recording call %s into %s", callID, cfg.Recording.Dir)
	}

	scheduler := tutor.NewScheduler(mixer)

	// TUI setup: run the program in a goroutine and feed it messages
	// from the session callbacks.
	var tuiProg *tea.Program
	var control *ui.Control

	if useTUI {
		control = ui.NewControl()
		tuiProg, err = ui.Run(control)
		if err != nil {
			return fmt.Errorf("start TUI: %w", err)
		}
		go func() { _, _ = tuiProg.Run() }()
	}

	updateTUI := func(msg tea.Msg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}

	liveConfig := cfg.Live()
	sessionConfig := tutor.Config{
		Connect: func(ctx context.Context) (tutor.Transport, error) {
			s, err := live.Connect(ctx, liveConfig)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		Pipeline:  pipeline,
		Scheduler: scheduler,
		OnStatus: func(st tutor.Status) {
			updateTUI(ui.StatusMsg{Status: st})
			if !useTUI {
				log.Printf("Call %s: elapsed=%v muted=%v speaking=%v",
					st.State, st.Elapsed, st.Muted, st.Speaking)
			}
		},
		OnError: func(err error) {
			log.Printf("Session error: %v", err)
		},
	}
	if rec != nil {
		sessionConfig.OnModelAudio = rec.Model
	}
	session := tutor.NewSession(sessionConfig)

	if err := session.Start(context.Background()); err != nil {
		return err
	}

	// Route TUI actions into the session.
	if control != nil {
		go func() {
			for muted := range control.Mute {
				session.SetMuted(muted)
			}
		}()
		go func() {
			for range control.Interrupt {
				scheduler.Interrupt()
			}
		}()
	}

	// Periodic stats for the call screen.
	if tuiProg != nil {
		go func() {
			ticker := time.NewTicker(500 * time.Millisecond)
			defer ticker.Stop()
			for range ticker.C {
				ps := pipeline.Stats()
				ss := scheduler.Stats()
				updateTUI(ui.StatsMsg{
					FramesSent:    ps.FramesSent,
					FramesDropped: ps.FramesDropped,
					Enqueued:      ss.Enqueued,
					Interrupts:    ss.Interrupts,
				})
			}
		}()
	}

	// The call ends on TUI hangup, OS signal, or the service closing.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ended := make(chan struct{})
	go func() {
		session.Wait()
		close(ended)
	}()

	if control != nil {
		select {
		case <-control.Hangup:
			log.Printf("Hangup from TUI")
		case <-sigChan:
			log.Printf("Shutdown signal received")
		case err := <-deviceLost:
			log.Printf("Playback device lost: %v", err)
		case <-ended:
			log.Printf("Call ended by service")
		}
	} else {
		select {
		case <-sigChan:
			log.Printf("Shutdown signal received")
		case err := <-deviceLost:
			log.Printf("Playback device lost: %v", err)
		case <-ended:
			log.Printf("Call ended by service")
		}
	}

	session.Hangup()
	session.Wait()

	if tuiProg != nil {
		tuiProg.Quit()
	}

	log.Printf("Call finished")
	return nil
}
