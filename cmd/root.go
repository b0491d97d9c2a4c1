// Package cmd implements the command-line interface for the SharePoint
// ingestion service.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdingest "github.com/sshaikhIntervision/Brinkmann/cmd/ingest"
	cmdrecords "github.com/sshaikhIntervision/Brinkmann/cmd/records"
	"github.com/sshaikhIntervision/Brinkmann/cmd/serve"
	"github.com/sshaikhIntervision/Brinkmann/internal/config"
)

// Version is set at build time.
var Version = "dev"

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "ingestor",
		Short: "SharePoint content ingestion service",
		Long:  `Ingests SharePoint drive documents and site pages into object storage with Postgres provenance records.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	_ = godotenv.Load()

	if err := initConfig(); err != nil {
		return fmt.Errorf("initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml)",
	)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("ingestor version %s\n", Version)
		},
	})

	rootCmd.AddCommand(serve.Command())
	rootCmd.AddCommand(cmdingest.Command())
	rootCmd.AddCommand(cmdrecords.Command())
}

// initConfig reads the config file and environment variables into viper.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		// Config can come entirely from environment variables.
		fmt.Fprintf(os.Stderr, "Warning: config file not found: %v\n", err)
	}

	return nil
}
