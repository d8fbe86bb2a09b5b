package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yok-tottii/EzRec/internal/notification"
	"github.com/yok-tottii/EzRec/internal/session"
)

var (
	recordMode     string
	recordDuration time.Duration
	recordHotkey   bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record from the microphone",
	Long: `Record from the capture device until Ctrl+C or --duration elapses.

With --hotkey the command keeps running and the configured global hotkey
starts and stops recordings instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cfg, appLog)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if recordHotkey {
			return runHotkeyRecorder(ctx, cmd.OutOrStdout(), app)
		}

		mode := app.storageMode()
		if recordMode != "" {
			m, ok := session.ParseMode(recordMode)
			if !ok {
				return fmt.Errorf("invalid mode: %s (must be 'byte' or 'container')", recordMode)
			}
			mode = m
		}
		return recordOnce(ctx, cmd.OutOrStdout(), app, mode, recordDuration)
	},
}

func init() {
	recordCmd.Flags().StringVarP(&recordMode, "mode", "m", "", "file mode: byte (.pcm) or container (.wav) (overrides config)")
	recordCmd.Flags().DurationVarP(&recordDuration, "duration", "d", 0, "stop after this long (0 = until Ctrl+C)")
	recordCmd.Flags().BoolVar(&recordHotkey, "hotkey", false, "wait for the global hotkey instead of recording right away")
}

// waitTerminal presents events until the session ends and returns the
// final one
func waitTerminal(out io.Writer, app *App) (notification.Event, error) {
	for ev := range app.engine.Events() {
		app.present(out, ev)
		if ev.Kind.Terminal() {
			return ev, nil
		}
	}
	return notification.Event{}, errors.New("engine stopped before the session ended")
}

func recordOnce(ctx context.Context, out io.Writer, app *App, mode session.Mode, limit time.Duration) error {
	if !app.engine.RequestStart(mode) {
		return errors.New(app.presenter.Text("error.busy"))
	}

	var final notification.Event
	finished := make(chan struct{})

	var g errgroup.Group
	g.Go(func() error {
		defer close(finished)
		ev, err := waitTerminal(out, app)
		final = ev
		return err
	})
	g.Go(func() error {
		var timeout <-chan time.Time
		if limit > 0 {
			t := time.NewTimer(limit)
			defer t.Stop()
			timeout = t.C
		}
		select {
		case <-finished:
			return nil
		case <-ctx.Done():
		case <-timeout:
		}
		app.engine.RequestStop()
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if final.Kind != notification.RecordingSucceeded {
		return errors.New(app.presenter.Message(final))
	}
	return nil
}

func runHotkeyRecorder(ctx context.Context, out io.Writer, app *App) error {
	binding := newHotkeyBinding(ctx, app)
	if err := binding.Start(); err != nil {
		return err
	}

	fmt.Fprintf(out, "Waiting for %s, Ctrl+C to quit\n", binding.Label())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for ev := range app.engine.Events() {
			app.present(out, ev)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		err := binding.Close()
		// A running recording is kept if it is long enough
		app.engine.Shutdown()
		return err
	})
	return g.Wait()
}
