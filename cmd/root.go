// Package cmd wires the CLI surface of the search index client.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/datarocks/lwgs-searchindex-client/internal/config"
	"github.com/datarocks/lwgs-searchindex-client/internal/log"
)

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:     "lwgs-searchindex-client",
	Short:   "Ingestion and synchronization client for the LWGS search index",
	Long: `Accepts person-data records, batches them toward the Sedex transport,
and tracks the lifecycle of every record, sync job, and outbound message.`,
	Version: version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./searchindex-client.yaml)")
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("amqp.url", defaults.AMQP.URL)
	viper.SetDefault("database.path", defaults.Database.Path)
	viper.SetDefault("sedex.receipt_dir", defaults.Sedex.ReceiptDir)
	viper.SetDefault("consumers.transaction_state_workers", defaults.Consumers.TransactionStateWorkers)
	viper.SetDefault("consumers.sedex_state_workers", defaults.Consumers.SedexStateWorkers)
	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("searchindex-client")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("LWGS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "reading config: %v\n", err)
			os.Exit(1)
		}
		// No config file found; continue with defaults and environment.
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "parsing config: %v\n", err)
		os.Exit(1)
	}

	log.Init(log.Config{Level: cfg.Log.Level, JSONOutput: cfg.Log.JSON})
}
