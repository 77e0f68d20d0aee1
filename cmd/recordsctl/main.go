package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/marwan562/provisioning-bridge/pkg/recordsclient"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "recordsctl",
	Short: "Record service CLI",
	Long:  `A CLI tool to create and inspect records and see whether their accounts were provisioned.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.recordsctl.yaml)")
	rootCmd.PersistentFlags().String("url", recordsclient.DefaultBaseURL, "record service base URL")
	rootCmd.PersistentFlags().Duration("timeout", 10*time.Second, "request timeout")
	cobra.CheckErr(viper.BindPFlag("records_url", rootCmd.PersistentFlags().Lookup("url")))
	cobra.CheckErr(viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout")))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".recordsctl")
	}

	viper.SetEnvPrefix("recordsctl")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

func newClient() *recordsclient.Client {
	return recordsclient.NewClient(recordsclient.WithBaseURL(viper.GetString("records_url")))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	Execute()
}
