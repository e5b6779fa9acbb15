package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/swiftmeta/internal/app"
	"github.com/swiftmeta/internal/authz"
	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/models"
	"github.com/swiftmeta/internal/repository"
	"github.com/swiftmeta/internal/service"

	"github.com/spf13/cobra"
)

type configLoader func() *config.Config

func newRootCmd(load configLoader) *cobra.Command {
	root := &cobra.Command{
		Use:           "swiftctl",
		Short:         "SwiftMeta operations CLI",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newMigrateCmd(load),
		newCreateAdminCmd(load),
		newGrantRoleCmd(load),
		newPurgeRevokedCmd(load),
	)
	return root
}

// openDB 加载配置并连接、迁移数据库
func openDB(load configLoader) (*config.Config, error) {
	cfg := load()
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := app.OpenDatabase(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newMigrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and seed builtin roles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := openDB(load); err != nil {
				return err
			}
			authzService, err := authz.NewService(models.DB)
			if err != nil {
				return err
			}
			if err := authzService.BootstrapBuiltinRoles(); err != nil {
				return err
			}
			cmd.Println("migrations applied")
			return nil
		},
	}
}

func newCreateAdminCmd(load configLoader) *cobra.Command {
	var username, password string
	var super bool
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an operator account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := openDB(load)
			if err != nil {
				return err
			}
			authService := service.NewAuthService(cfg, repository.NewAdminRepository(models.DB))
			admin, err := authService.CreateAdmin(username, password, super)
			if err != nil {
				return err
			}
			cmd.Printf("admin %s created (id=%d super=%v)\n", admin.Username, admin.ID, admin.IsSuper)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	cmd.Flags().BoolVar(&super, "super", false, "bypass RBAC checks")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newGrantRoleCmd(load configLoader) *cobra.Command {
	var username string
	var roles []string
	cmd := &cobra.Command{
		Use:   "grant-role",
		Short: "Replace an operator's roles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := openDB(load); err != nil {
				return err
			}
			admin, err := repository.NewAdminRepository(models.DB).GetByUsername(strings.TrimSpace(username))
			if err != nil {
				return err
			}
			if admin == nil {
				return fmt.Errorf("admin %q not found", username)
			}
			authzService, err := authz.NewService(models.DB)
			if err != nil {
				return err
			}
			if err := authzService.BootstrapBuiltinRoles(); err != nil {
				return err
			}
			granted, err := authzService.SetAdminRoles(admin.ID, roles)
			if err != nil {
				return err
			}
			cmd.Printf("admin %s roles: %s\n", admin.Username, strings.Join(granted, ","))
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "operator login name")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "role to assign, repeatable (readonly_auditor, support, recruiter, moderator)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newPurgeRevokedCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-revoked",
		Short: "Delete expired revoked-token records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := openDB(load); err != nil {
				return err
			}
			removed, err := repository.NewRevokedTokenRepository(models.DB).PurgeExpired(time.Now())
			if err != nil {
				return err
			}
			cmd.Printf("purged %d revoked tokens\n", removed)
			return nil
		},
	}
}
