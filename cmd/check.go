package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"ClipForge/config"
	"ClipForge/db"
	"ClipForge/storage"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check connectivity of the configured subsystems",
	Long:  `Ping every enabled subsystem (Redis, MySQL, MinIO) and report the result. Disabled subsystems are skipped.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		if cfg.RedisEnabled {
			fmt.Printf("Redis %s:%s db %d ... ", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)
			if err := db.ConnectRedis(cfg); err != nil {
				log.Fatalf("FAILED: %v", err)
			}
			if err := db.TestRedis(); err != nil {
				log.Fatalf("FAILED: %v", err)
			}
			db.CloseRedis()
			fmt.Println("ok")
		} else {
			fmt.Println("Redis disabled, skipped")
		}

		if cfg.DBEnabled {
			fmt.Printf("MySQL %s:%s/%s ... ", cfg.DBHost, cfg.DBPort, cfg.DBName)
			if err := db.ConnectGormDB(cfg); err != nil {
				log.Fatalf("FAILED: %v", err)
			}
			sqlDB, err := db.GormDB.DB()
			if err == nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err = sqlDB.PingContext(ctx)
				cancel()
			}
			if err != nil {
				log.Fatalf("FAILED: %v", err)
			}
			db.CloseGormDB()
			fmt.Println("ok")
		} else {
			fmt.Println("MySQL disabled, skipped")
		}

		if cfg.MinioEnabled {
			fmt.Printf("MinIO %s bucket %s ... ", cfg.MinioEndpoint, cfg.MinioBucket)
			if err := storage.InitMinio(cfg); err != nil {
				log.Fatalf("FAILED: %v", err)
			}
			fmt.Println("ok")
		} else {
			fmt.Println("MinIO disabled, skipped")
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
