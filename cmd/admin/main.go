package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ajeu-backend/internal/app"
	"ajeu-backend/internal/core/config"
	"ajeu-backend/internal/core/logger"
	"ajeu-backend/internal/core/server"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:          "ajeu-admin",
		Short:        "AJEU admin API and maintenance commands",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default $CONFIG_PATH or ./configs/config.local.yaml)")

	// boot 每个子命令共用：配置 + 日志 + DB + 服务
	boot := func() (*app.App, func(), error) {
		_ = godotenv.Load()
		if cfgPath == "" {
			cfgPath = os.Getenv("CONFIG_PATH")
		}
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, nil, err
		}
		log, cleanup := logger.New(cfg.Log)
		db, err := app.OpenDB(cfg)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("db open: %w", err)
		}
		a := app.New(cfg, log, db)
		return a, func() { a.Close(); cleanup() }, nil
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the admin HTTP API (/admin/v1, ROLE_ADMIN only)",
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, done, err := boot()
				if err != nil {
					return err
				}
				defer done()
				cfg := a.Cfg
				if cfg.App.Env == "prod" {
					gin.SetMode(gin.ReleaseMode)
				}
				if cfg.DB.AutoMigrate {
					if err := a.Migrate(); err != nil {
						return err
					}
				}

				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
				srv := server.BuildServer(addr, a.AdminEngine(), 5*time.Second, 10*time.Second, 60*time.Second)
				baseURL := server.HumanURL(cfg.App.Admin.Host, cfg.App.Admin.Port)
				a.Log.Info("admin api",
					zap.String("open", baseURL),
					zap.String("health", baseURL+"/health"),
					zap.String("admin_v1", baseURL+"/admin/v1"),
				)
				return server.Run(ctx, srv, a.Log, "admin api")
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, done, err := boot()
				if err != nil {
					return err
				}
				defer done()
				return a.Migrate()
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Insert the demo matricule (BROU / YAO ERIC / 2020) if missing",
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, done, err := boot()
				if err != nil {
					return err
				}
				defer done()
				code, err := a.Admin.Seed(cmd.Context(), a.Matricules)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), code)
				return nil
			},
		},
		&cobra.Command{
			Use:   "promote <email>",
			Short: "Grant ROLE_ADMIN to an existing account",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, done, err := boot()
				if err != nil {
					return err
				}
				defer done()
				row, err := a.Admin.Promote(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %v\n", row.Email, row.Roles)
				return nil
			},
		},
		&cobra.Command{
			Use:   "purge-tokens",
			Short: "Delete expired refresh tokens",
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, done, err := boot()
				if err != nil {
					return err
				}
				defer done()
				n, err := a.Auth.PurgeExpiredTokens(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purged %d\n", n)
				return nil
			},
		},
	)
	return root
}
