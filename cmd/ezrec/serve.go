package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yok-tottii/EzRec/internal/api"
	"github.com/yok-tottii/EzRec/internal/server"
)

var (
	servePort   int
	serveHotkey bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the localhost control page and API",
	Long: `Serve a control page and a JSON API on 127.0.0.1 for recording,
playback and settings. With --hotkey the global hotkey is registered too
and is re-registered when the hotkey settings change.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cfg, appLog)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		serverCfg := server.DefaultConfig()
		serverCfg.Port = cfg.Clone().Server.Port
		if cmd.Flags().Changed("port") {
			serverCfg.Port = servePort
		}
		srv := server.New(serverCfg, appLog)

		handler := api.New(cfg, cfgFile, app.engine, app.presenter, appLog)
		handler.RegisterRoutes(srv.GetMux())

		g, gctx := errgroup.WithContext(ctx)

		if serveHotkey {
			binding := newHotkeyBinding(gctx, app)
			if err := binding.Start(); err != nil {
				return err
			}
			defer binding.Close()
			handler.OnHotkeyChanged(binding.Reload)
		}

		if err := srv.Start(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "EzRec is listening on %s, Ctrl+C to quit\n", srv.URL())

		g.Go(func() error {
			for ev := range app.engine.Events() {
				handler.Observe(ev)
				app.present(cmd.OutOrStdout(), ev)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			defer app.engine.Shutdown()
			return srv.Stop()
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveHotkey, "hotkey", false, "register the global record hotkey")
}
