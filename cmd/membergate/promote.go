// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/membergate/membergate/internal/auth"
	"github.com/membergate/membergate/internal/logging"
)

// NewPromoteCmd creates the promote subcommand, which grants admin
// privilege straight through the store. It bootstraps the first admin.
func NewPromoteCmd() *cobra.Command {
	var demote bool

	cmd := &cobra.Command{
		Use:   "promote <email>",
		Short: "Grant admin privilege to a registered user",
		Long: `Grant admin privilege to the user registered with <email>, without
an admin session. Use --demote to set the user back to standard.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			privilege := auth.PrivilegeAdmin
			if demote {
				privilege = auth.PrivilegeStandard
			}
			return runPromoteWithDeps(cmd.Context(), cmd, args[0], privilege, nil)
		},
	}

	cmd.Flags().BoolVar(&demote, "demote", false, "set standard privilege instead")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL")

	return cmd
}

// runPromoteWithDeps assigns privilege to the user with email. Schema
// migrations are not run. If deps is nil, default implementations are used.
func runPromoteWithDeps(ctx context.Context, cmd *cobra.Command, email string, privilege auth.Privilege, deps *Deps) error {
	deps = deps.withDefaults()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.Setup(logging.Options{
		Service: "membergate",
		Version: version,
		Format:  cfg.Log.Format,
		Redact:  cfg.Log.Redact,
		Writer:  cmd.ErrOrStderr(),
	})

	be, err := openBackend(ctx, cfg, true, deps, logger)
	if err != nil {
		return err
	}
	defer be.close()

	hasher, err := auth.NewPasswordHasher(cfg.Auth.Hasher, cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	manager, err := auth.NewSessionManager(be.sessions, cfg.Session.TTL)
	if err != nil {
		return err
	}
	service, err := auth.NewService(be.users, manager, hasher, auth.WithLogger(logger))
	if err != nil {
		return err
	}

	if err := service.AssignPrivilege(ctx, email, privilege); err != nil {
		return err
	}
	cmd.Printf("%s now has %s privilege\n", logging.MaskEmail(email), privilege)
	return nil
}
