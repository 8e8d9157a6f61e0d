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
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Run the rule-based comparison agent",
	RunE:  baseline,
}

func init() {
	rootCmd.AddCommand(baselineCmd)
}

func baseline(cmd *cobra.Command, args []string) error {
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

	return svc.RunBaseline(ctx)
}
