package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vitwit/arpay/logger"
	"github.com/vitwit/arpay/types"
	"github.com/vitwit/arpay/utils"
)

var (
	rootCmd = &cobra.Command{
		Use:   "arpay",
		Short: "Payment QR payloads, cross-chain routes and fee quotes for AR agents",

		PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
			conf, err = utils.LoadConfig(cfgFile)
			if err != nil {
				return
			}
			if logLevel != "" {
				conf.LogLevel = logLevel
			}
			log = logger.NewZapLogger(conf.LogLevel)

			ctx, cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			return
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			cancel()
			if z, ok := log.(interface{ Sync() error }); ok {
				_ = z.Sync()
			}
			return nil
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cfgFile  string
	logLevel string

	conf   *types.Config
	log    logger.Logger
	ctx    context.Context
	cancel context.CancelFunc = func() {}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file path (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}
