package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yok-tottii/EzRec/internal/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio devices of the configured backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		driver, err := audio.NewDriver(cfg.Clone().Audio.Backend)
		if err != nil {
			return err
		}
		defer driver.Close()

		devices, err := driver.ListDevices()
		if err != nil {
			return fmt.Errorf("failed to list audio devices: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tIN\tOUT\tNAME\t(%s)\n", driver.Name())
		for _, d := range devices {
			name := d.Name
			if d.IsDefault {
				name += " *"
			}
			fmt.Fprintf(w, "%d\t%d\t%d\t%s\t\n", d.ID, d.InputChannels, d.OutputChannels, name)
		}
		return w.Flush()
	},
}
