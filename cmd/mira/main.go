package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quailyquaily/mira/version"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "mira",
		Short: "Mira is a personal second-brain Telegram assistant",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./mira.yaml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig() error {
	viper.SetDefault("db.path", "mira_brain.db")
	viper.SetDefault("llm.endpoint", "https://api.deepseek.com/v1")
	viper.SetDefault("llm.model", "deepseek-chat")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("timezone", "")
	viper.SetDefault("audio.dir", "")
	viper.SetDefault("extract.rules_file", "")
	viper.SetDefault("search.lexicon_file", "")

	viper.SetEnvPrefix("MIRA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("mira")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	if err := viper.ReadInConfig(); err != nil {
		// The config file is optional unless one was named explicitly.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current release version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Current)
		},
	}
}
