package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yok-tottii/EzRec/internal/notification"
)

var playCmd = &cobra.Command{
	Use:   "play [name]",
	Short: "Play a recording (default: the newest)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cfg, appLog)
		if err != nil {
			return err
		}
		defer app.Close()

		var path string
		if len(args) == 1 {
			path, err = app.store.Resolve(args[0])
			if err != nil {
				return err
			}
		} else {
			list, err := app.store.List()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				return errors.New(app.presenter.Text("error.no_recording"))
			}
			path = list[0].Path
		}

		if !app.engine.RequestPlay(path) {
			return errors.New(app.presenter.Text("error.busy"))
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			// Shutdown aborts playback at the next chunk
			<-ctx.Done()
			app.engine.Shutdown()
		}()

		final, err := waitTerminal(cmd.OutOrStdout(), app)
		if err != nil {
			return err
		}
		if final.Kind == notification.PlaybackFailed {
			return errors.New(app.presenter.Message(final))
		}
		return nil
	},
}
