package main

import (
	"encoding/json"
	"fmt"
	"os"

	"zyllen/internal/cache"
	"zyllen/internal/config"
	"zyllen/internal/database"
	"zyllen/internal/logger"
	"zyllen/internal/model"
	"zyllen/internal/repository"
	"zyllen/internal/seed"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create permissions, system roles, the admin account and reference rows",
	Long: `Create permissions, system roles, the admin account and reference rows.

Running it again changes nothing unless the catalog changed or a system role's
grants drifted. An existing admin account is never modified. When REDIS_ADDR is
set, cached role permissions are flushed after grants change.

Example:
  zyllenctl seed
  zyllenctl seed --catalog ./catalog.yaml --admin-email ops@zyllen.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log, err := logger.New(cfg.LogLevel, "console", "zyllenctl")
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		var data []byte
		if path, _ := cmd.Flags().GetString("catalog"); path != "" {
			if data, err = os.ReadFile(path); err != nil {
				return fmt.Errorf("failed to read catalog: %w", err)
			}
		}
		catalog, err := seed.LoadCatalog(data)
		if err != nil {
			return err
		}

		db, err := database.NewConnection(cfg.DSN(), log, false)
		if err != nil {
			return err
		}

		admin := seed.Admin{Email: cfg.SeedAdminEmail, Password: cfg.SeedAdminPassword, Name: cfg.SeedAdminName}
		if v, _ := cmd.Flags().GetString("admin-email"); v != "" {
			admin.Email = v
		}
		if v, _ := cmd.Flags().GetString("admin-password"); v != "" {
			admin.Password = v
		}

		seeder := seed.NewSeeder(
			catalog,
			repository.NewRoleRepository(db),
			repository.NewUserRepository(db),
			repository.NewReferenceRepository[model.Location](db),
			repository.NewReferenceRepository[model.MovementType](db),
			repository.NewReferenceRepository[model.Category](db),
			repository.NewTransactionManager(db),
			log,
		)
		if cfg.RedisAddr != "" {
			client, err := cache.NewRedisClient(cmd.Context(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
			if err != nil {
				log.Warn("redis unavailable, cached permissions will expire on their own", zap.Error(err))
			} else {
				defer func() { _ = client.Close() }()
				seeder.WithCache(cache.NewRedisCache(client, cfg.PermissionCacheTTL))
			}
		}

		result, err := seeder.Run(cmd.Context(), admin)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().String("catalog", "", "YAML catalog to use instead of the built-in one")
	seedCmd.Flags().String("admin-email", "", "Admin e-mail (default SEED_ADMIN_EMAIL)")
	seedCmd.Flags().String("admin-password", "", "Admin password (default SEED_ADMIN_PASSWORD)")
}
