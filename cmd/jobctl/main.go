// jobctl 은 가져오기/저장 작업을 만들고 상태를 조회하거나 취소하는 운영용 CLI 다.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"spot-letter/config"
	"spot-letter/db"
	"spot-letter/eventbus"
	"spot-letter/jobs"
	"spot-letter/logger"
	"spot-letter/repositories"
)

var (
	svc      *jobs.Service
	report   *jobs.PlaceReport
	aiLogs   *repositories.AILogRepository
	accounts *repositories.ConnectedAccountRepository
	bus      *eventbus.KafkaEventBus
)

var rootCmd = &cobra.Command{
	Use:           "jobctl",
	Short:         "spot-letter 작업 제어",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}
		config.InitApp()
		cfg := config.GetConfig()
		config.InitLogger(cfg)
		eventbus.ConfigureTopics(cfg.Kafka)

		if err := db.Init(cmd.Context(), cfg.Mongo); err != nil {
			return fmt.Errorf("connect to mongo: %w", err)
		}
		database := db.Database()
		accounts = repositories.NewConnectedAccountRepository(database)
		aiLogs = repositories.NewAILogRepository(database)

		brokers, err := eventbus.GetBrokers(cfg.Kafka)
		if err != nil {
			return err
		}
		bus, err = eventbus.NewKafkaEventBus(brokers)
		if err != nil {
			return err
		}
		saveJobs := repositories.NewSaveJobRepository(database)
		dispatcher := jobs.NewDispatcher(bus, "jobctl", cfg.Kafka.MaxRetry)
		svc = jobs.NewService(
			repositories.NewImportJobRepository(database),
			saveJobs,
			dispatcher, dispatcher,
		)
		report = jobs.NewPlaceReport(saveJobs,
			repositories.NewPlaceRepository(database),
			repositories.NewInventoryMappingRepository(database))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if bus != nil {
			bus.Close()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Disconnect(ctx); err != nil {
			logger.Log.Warnf("failed to disconnect mongo: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(importCmd, saveCmd, statusCmd, placesCmd, usageCmd, cancelCmd, accountCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
