// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/membergate/membergate/internal/config"
	"github.com/membergate/membergate/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the membergate CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "membergate",
		Short: "Membergate - member registration and admin panel",
		Long: `Membergate is a small web application for user registration,
login sessions and a role-gated admin panel, with input validation
that keeps query operators away from the credential store.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default $XDG_CONFIG_HOME/membergate/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewPromoteCmd())

	return cmd
}

// loadConfig layers the config file, environment and the command's flags.
// Without --config, $XDG_CONFIG_HOME/membergate/config.yaml is used if it
// exists.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path := configFile
	if path == "" {
		found, err := xdg.ConfigFile()
		if err != nil {
			return config.Config{}, err
		}
		path = found
	}
	return config.Load(path, cmd.Flags())
}
