// Command fbsim boots the kernel as a regular process. The framebuffer is
// drawn in the terminal with braille characters and key presses are fed to
// the kernel through an emulated PS/2 keyboard.
package main

import (
	"context"
	"errors"
	"fbkernel/device/video/console"
	"fbkernel/kernel/cpu"
	"fbkernel/kernel/hal"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const refreshInterval = time.Second / 30

// errQuit is returned by the event loop when the user exits the simulator.
var errQuit = errors.New("quit requested")

func newRootCmd() *cobra.Command {
	cfg := defaultConfig()

	cmd := &cobra.Command{
		Use:   "fbsim",
		Short: "Run the kernel in a terminal",
		Long: "Run the kernel in a terminal. Settings can also be provided via " + envPrefix +
			"* environment variables or a dotenv file; command line flags take precedence.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadEnv(cmd.Flags(), os.LookupEnv)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	cfg.registerFlags(cmd.Flags())
	return cmd
}

// newLogger returns a logger that writes to the file at path. The terminal
// is owned by the display so nothing is logged to stderr.
func newLogger(path, level string) (*slog.Logger, io.Closer, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create simulator log: %w", err)
	}

	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler), f, nil
}

func run(ctx context.Context, cfg *config) error {
	logger, logFile, err := newLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logFile.Close()

	m, err := newMachine(cfg, logger)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}

	var finiOnce sync.Once
	fini := func() { finiOnce.Do(screen.Fini) }
	defer fini()

	m.boot()

	var halted atomic.Bool
	g, ctx := errgroup.WithContext(ctx)

	// Kernel watchdog.
	g.Go(func() error {
		select {
		case <-cpu.Halted():
			halted.Store(true)
			logger.Warn("kernel halted")
		case <-ctx.Done():
		}
		return nil
	})

	// Display refresh.
	g.Go(func() error {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}

			status := "fbsim: Ctrl+C quits"
			if halted.Load() {
				status = "fbsim: kernel halted; Ctrl+C quits"
			}

			if cons := hal.ActiveConsole(); cons != nil {
				cons.View(func(fb []byte, geom console.Geometry) {
					drawFramebuffer(screen, fb, geom, status)
				})
			}
		}
	})

	// Keyboard input. PollEvent returns nil once the screen is finalized.
	g.Go(func() error {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return nil
			}

			keyEv, ok := ev.(*tcell.EventKey)
			if !ok {
				continue
			}

			if keyEv.Key() == tcell.KeyCtrlC {
				return errQuit
			}

			if r, ok := keyRune(keyEv); ok {
				m.typeRune(r)
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		fini()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) {
		return err
	}

	logger.Info("simulator stopped")

	if cfg.Snapshot != "" {
		return snapshotConsole(cfg.Snapshot)
	}
	return nil
}

// keyRune maps a terminal key event to the character the keyboard
// produces for it.
func keyRune(ev *tcell.EventKey) (rune, bool) {
	switch ev.Key() {
	case tcell.KeyEnter:
		return '\r', true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return '\b', true
	case tcell.KeyEscape:
		return '\x1b', true
	case tcell.KeyTab:
		return '\t', true
	case tcell.KeyRune:
		return ev.Rune(), true
	}
	return 0, false
}

// snapshotConsole writes the active console's framebuffer to path.
func snapshotConsole(path string) error {
	cons := hal.ActiveConsole()
	if cons == nil {
		return errors.New("no console to snapshot")
	}

	var err error
	cons.View(func(fb []byte, geom console.Geometry) {
		err = writeSnapshot(path, fb, geom)
	})
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
