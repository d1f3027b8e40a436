package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	Version = "0.3.1"
)

var rootCmd = &cobra.Command{
	Use:   "dwsim",
	Short: "A local data-warehouse simulator with schema-driven synthetic data generation",
	Long: `dwsim materializes declarative table schemas in a warehouse backend and
fills them with constraint-respecting synthetic data.

Workflow:
  dwsim validate schema.json     check a schema and report every violation
  dwsim import schema.sql        derive a schema from SQL DDL
  dwsim generate schema.json     produce batch-chunked parquet datasets
  dwsim load schema.json <dir>   create physical tables and load the batches
  dwsim runs                     inspect generation run history
  dwsim serve                    expose the same operations over HTTP

Warehouse backends: PostgreSQL, MySQL and SQLite.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./dwsim.config.json)")
}

func initConfig() {
	if err := godotenv.Load(); err != nil {
		godotenv.Load(".env.local")
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("json")
		viper.SetConfigName("dwsim.config")
	}

	viper.AutomaticEnv()

	viper.ReadInConfig()
}
