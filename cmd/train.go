package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gridlearn/app"
	"github.com/kilianp07/gridlearn/config"
	"github.com/kilianp07/gridlearn/infra/logger"
	"github.com/kilianp07/gridlearn/infra/metrics"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the soft actor-critic agent",
	RunE:  train,
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

func train(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	if cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, cfg.Metrics.PrometheusPort); err != nil {
				logger.New("main").Errorf("prom server: %v", err)
			}
		}()
	}

	return svc.Run(ctx)
}
