// Command certctl runs operational tasks against the portal database and
// blob store: migrations, admin seeding, orphan sweeps.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/ishpreet160/CertFlow/internal/config"
	"github.com/ishpreet160/CertFlow/internal/directory"
	"github.com/ishpreet160/CertFlow/internal/infra"
	"github.com/ishpreet160/CertFlow/internal/policy"
	"github.com/ishpreet160/CertFlow/internal/repository"
	"github.com/ishpreet160/CertFlow/internal/service"
	"github.com/ishpreet160/CertFlow/internal/storage"
	"github.com/ishpreet160/CertFlow/internal/worker"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDB() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	return cfg, db, nil
}

func openRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if !cfg.RedisEnabled() {
		return nil, fmt.Errorf("REDIS_URL is not set")
	}
	return infra.NewRedis(ctx, cfg.RedisURL)
}

var rootCmd = &cobra.Command{
	Use:   "certctl",
	Short: "Project Experience Portal operations",
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openDB()
		if err != nil {
			return err
		}
		if err := infra.MigrateUp(db); err != nil {
			return err
		}
		v, dirty, err := infra.MigrationVersion(db)
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
		fmt.Printf("Schema at version %d (dirty=%t)\n", v, dirty)
		return nil
	},
}

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the admin account from ADMIN_* settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := openDB()
		if err != nil {
			return err
		}
		name, email, password := cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword
		if v, _ := cmd.Flags().GetString("email"); v != "" {
			email = v
		}
		if v, _ := cmd.Flags().GetString("name"); v != "" {
			name = v
		}
		if v, _ := cmd.Flags().GetString("password"); v != "" {
			password = v
		}
		if email == "" || password == "" {
			return fmt.Errorf("admin e-mail and password are required (ADMIN_EMAIL, ADMIN_PASSWORD or flags)")
		}

		users := repository.NewUserRepository(db)
		dir := directory.New(users)
		svc := service.NewUserService(users, dir, policy.NewGate(dir))
		admin, created, err := svc.SeedAdmin(cmd.Context(), name, email, password)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("Admin %s created (id %s)\n", admin.Email, admin.ID)
		} else {
			fmt.Printf("Admin %s already exists (id %s)\n", admin.Email, admin.ID)
		}
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print the bcrypt hash of a password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := service.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Println(h)
		return nil
	},
}

var sweepOrphansCmd = &cobra.Command{
	Use:   "sweep-orphans",
	Short: "Delete blobs recorded as orphaned in Redis",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		rdb, err := openRedis(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer rdb.Close()
		store, err := storage.NewFromConfig(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		n, err := worker.NewOrphanSweeper(worker.NewRedisOrphanSet(rdb), store).Sweep(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d orphaned blobs\n", n)
		return nil
	},
}

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Show how many notification e-mails are dead-lettered",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		rdb, err := openRedis(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer rdb.Close()
		n, err := worker.NewDeadLetter(rdb).Length(cmd.Context(), worker.QueueEmail)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d dead-lettered jobs\n", worker.QueueEmail, n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedAdminCmd)
	seedAdminCmd.Flags().String("email", "", "Admin e-mail (overrides ADMIN_EMAIL)")
	seedAdminCmd.Flags().String("name", "", "Admin name (overrides ADMIN_NAME)")
	seedAdminCmd.Flags().String("password", "", "Admin password (overrides ADMIN_PASSWORD)")
	rootCmd.AddCommand(hashPasswordCmd)
	rootCmd.AddCommand(sweepOrphansCmd)
	rootCmd.AddCommand(dlqCmd)
}
