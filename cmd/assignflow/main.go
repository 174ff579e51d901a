package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/assignflow/internal/profile"
	"github.com/hrygo/assignflow/server/runner/purge"
	"github.com/hrygo/assignflow/server/service/assignment"
	"github.com/hrygo/assignflow/store"
	"github.com/hrygo/assignflow/store/cache"
	"github.com/hrygo/assignflow/store/db"
)

const (
	greetingBanner = `
 _____         _            _____ _
|  _  |___ ___|_|___ ___   |   __| |___ _ _ _
|     |_ -|_ -| | . |   |  |   __| | . | | | |
|__|__|___|___|_|_  |_|_|  |__|  |_|___|_____|
                |___|
`
)

var (
	instanceProfile *profile.Profile

	rootCmd = &cobra.Command{
		Use:   "assignflow",
		Short: "A recurring task assignment engine",
		Run: func(_ *cobra.Command, _ []string) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			dbDriver, err := db.NewDBDriver(instanceProfile)
			if err != nil {
				slog.Error("failed to create db driver", "error", err)
				return
			}

			storeInstance := store.New(dbDriver, instanceProfile)
			if err := storeInstance.Migrate(ctx); err != nil {
				slog.Error("failed to migrate", "error", err)
				return
			}
			defer storeInstance.Close()

			countsCache := cache.New(cache.Config{
				DefaultTTL:      5 * time.Minute,
				CleanupInterval: time.Minute,
				MaxItems:        1000,
			})
			defer countsCache.Close()

			svc := assignment.NewService(storeInstance, countsCache,
				&assignment.LogNotifier{Logger: slog.Default()},
				assignment.Config{
					Retention:        time.Duration(instanceProfile.RetentionDays) * 24 * time.Hour,
					NotifyRatePerSec: instanceProfile.NotifyRatePerSec,
					Logger:           slog.Default(),
				})
			defer svc.Close()

			// Roll forward reschedules interrupted by the previous shutdown.
			recovered, err := svc.RecoverInterrupted(ctx)
			if err != nil {
				slog.Error("failed to recover interrupted reschedules", "error", err)
			} else if recovered > 0 {
				slog.Info("recovered interrupted reschedules", "count", recovered)
			}

			purgeRunner := purge.NewRunner(storeInstance, svc, instanceProfile.PurgeSchedule)
			if err := purgeRunner.Start(ctx); err != nil {
				slog.Error("failed to start purge runner", "error", err)
				return
			}
			defer purgeRunner.Stop()

			printGreetings()

			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			<-c
			slog.Info("shutting down")
		},
	}
)

func init() {
	viper.SetDefault("mode", "demo")
	viper.SetDefault("driver", "sqlite")

	rootCmd.PersistentFlags().String("mode", "demo", `mode of the engine, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", `database driver, can be "sqlite" or "postgres"`)
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")

	if err := viper.BindPFlag("mode", rootCmd.PersistentFlags().Lookup("mode")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("data", rootCmd.PersistentFlags().Lookup("data")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("driver", rootCmd.PersistentFlags().Lookup("driver")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("dsn", rootCmd.PersistentFlags().Lookup("dsn")); err != nil {
		panic(err)
	}

	viper.SetEnvPrefix("assignflow")
	viper.AutomaticEnv()
}

func initConfig() {
	instanceProfile = &profile.Profile{
		Mode:    viper.GetString("mode"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: "0.1.0",
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	println("---")
	println("Server profile")
	println("mode:", instanceProfile.Mode)
	println("driver:", instanceProfile.Driver)
	println("data:", instanceProfile.Data)
	println("version:", instanceProfile.Version)
	println("---")
}

func printGreetings() {
	print(greetingBanner)
	fmt.Printf("version %s has been started\n", instanceProfile.Version)
	println("---")
}

func main() {
	cobra.OnInitialize(initConfig)
	if err := rootCmd.Execute(); err != nil {
		slog.Error("failed to execute command", "error", err)
		os.Exit(1)
	}
}
