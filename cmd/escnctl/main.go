package main

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
)

// Env holds the defaults of the persistent flags.
type Env struct {
	APIURL     string `envconfig:"ESCNCTL_API_URL" default:"http://localhost:8080"`
	MetricsURL string `envconfig:"ESCNCTL_METRICS_URL" default:"http://localhost:8428"`
	Output     string `envconfig:"ESCNCTL_OUTPUT" default:"table"`
}

var (
	apiURL string
	output string
)

var rootCmd = &cobra.Command{
	Use:   "escnctl",
	Short: "ESCN CLI - European Student Card Number tool",
	Long:  `escnctl mints and decodes ESCNs and manages students and cards through escn-api.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	rootCmd.PersistentFlags().StringVarP(&apiURL, "api-url", "a", env.APIURL, "ESCN API URL")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", env.Output, "Output format (table, json)")
	obsCmd.PersistentFlags().StringVar(&metricsURL, "metrics-url", env.MetricsURL, "Prometheus-compatible query API URL")
}

func exitOnErr(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
