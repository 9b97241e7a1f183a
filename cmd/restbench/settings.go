package main

import (
	"fmt"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/restbench/internal/config"
	"github.com/unkn0wn-root/restbench/internal/errdef"
)

func (c *cli) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			settings, err := svc.Workspace().Settings(cmd.Context())
			if err != nil {
				return err
			}
			data, err := toml.Marshal(settings.ToPartial())
			if err != nil {
				return errdef.Wrap(errdef.CodeConfig, err, "encode settings")
			}
			c.styles.highlight(cmd.OutOrStdout(), string(data), "toml")
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Write the effective settings to the settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			settings, err := svc.Workspace().Settings(cmd.Context())
			if err != nil {
				return err
			}
			if err := config.SaveSettings(settings, c.handle); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "settings written to %s\n", c.handle.Path)
			return nil
		},
	})
	return cmd
}
