package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gridsched/revs/app"
	"github.com/gridsched/revs/config"
	"github.com/gridsched/revs/core/model"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "revs",
	Short: "Residential EV charging scheduler",
	Long: "revs schedules residential EV charging against an hourly tariff while " +
		"respecting distribution network voltage limits, using an individual, " +
		"centralized or distributed price-coordination strategy.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.AddCommand(
		strategyCmd(model.StrategyIndividual, "Schedule each home independently with no network feedback"),
		strategyCmd(model.StrategyCentralized, "Schedule all homes jointly against hard voltage bounds"),
		strategyCmd(model.StrategyDistributed, "Coordinate per-home schedules through iterative price updates"),
	)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func strategyCmd(strategy, short string) *cobra.Command {
	return &cobra.Command{
		Use:   strategy,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			return svc.Run(ctx, strategy)
		},
	}
}
