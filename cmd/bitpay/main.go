package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	bitpay "github.com/bitpay/bitpay-go"
	bphttp "github.com/bitpay/bitpay-go/http"
	"github.com/bitpay/bitpay-go/pkg/bplog"
	"github.com/bitpay/bitpay-go/pkg/config"
)

var Version = "dev"

var (
	configPath string
	envFile    string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "bitpay",
		Short:         "BitPay legacy API client",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	rootCmd.AddCommand(invoiceCmd())
	rootCmd.AddCommand(notificationCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(mcpCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds what every subcommand needs
type app struct {
	client *bitpay.Client
	logger zerolog.Logger
	closer io.Closer
}

func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func loadApp() (*app, error) {
	if envFile != "" {
		// a missing .env is fine, the environment may already be set
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	a := &app{logger: zerolog.Nop()}
	switch {
	case cfg.Logging:
		logger, closer, err := bplog.Open(cfg.LogFile)
		if err != nil {
			return nil, err
		}
		a.logger = logger
		a.closer = closer
	case verbose:
		a.logger = bplog.Console(os.Stderr, zerolog.DebugLevel)
	}

	client, err := bphttp.NewClient(cfg, bitpay.WithLogger(a.logger))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.client = client
	return a, nil
}
