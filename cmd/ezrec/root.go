package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yok-tottii/EzRec/internal/config"
	"github.com/yok-tottii/EzRec/internal/logger"
)

var (
	cfg        *config.Config
	appLog     *logger.Logger
	cfgFile    string
	verbose    bool
	backend    string
	storageDir string
)

var rootCmd = &cobra.Command{
	Use:   "ezrec",
	Short: "Record and play back microphone audio",
	Long: `EzRec records the default microphone to timestamped files and plays
them back. Recordings shorter than the configured minimum are discarded.

Files are raw 44.1 kHz mono 16-bit PCM (.pcm) or WAV (.wav).`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile == "" {
			cfgFile = config.GetConfigPath()
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if backend != "" {
			cfg.Audio.Backend = backend
		}
		if storageDir != "" {
			cfg.Storage.Dir = storageDir
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", cfgFile, err)
		}

		appLog, err = newLogger(cfg, verbose)
		if err != nil {
			return err
		}
		appLog.Debug("EzRec v%s, config %s", version, cfgFile)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appLog != nil {
			appLog.Close()
		}
	},
}

func execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the user config dir/EzRec/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "audio backend: portaudio, malgo or dummy (overrides config)")
	rootCmd.PersistentFlags().StringVar(&storageDir, "dir", "", "recordings directory (overrides config)")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

// newLogger opens the log file; verbose mirrors debug output to stderr
func newLogger(c *config.Config, verbose bool) (*logger.Logger, error) {
	snap := c.Clone()

	lc := logger.DefaultConfig()
	if snap.Log.Dir != "" {
		dir, err := config.ExpandPath(snap.Log.Dir)
		if err != nil {
			return nil, fmt.Errorf("invalid log dir: %w", err)
		}
		lc.LogDir = dir
	}
	lc.RetentionDays = snap.Log.RetentionDays

	level, err := logger.ParseLevel(snap.Log.Level)
	if err != nil {
		return nil, err
	}
	lc.Level = level
	if verbose {
		lc.Level = logger.DEBUG
		lc.Console = os.Stderr
	}

	return logger.New(lc)
}
