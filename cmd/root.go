package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ges-coastal/coastal-monitor/internal/delivery"
	"github.com/ges-coastal/coastal-monitor/internal/properties"
	"github.com/ges-coastal/coastal-monitor/internal/utils"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd opens the interactive menu when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "coastal-monitor",
	Short: "Coastal vegetation and surface temperature status from satellite composites",
	Long: `coastal-monitor builds NDVI and land surface temperature composites over the coastal
band of a country, normalises them and classifies their weighted combination into
five status classes.

Run without a subcommand to open the interactive menu.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	RunE: runMenu,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.coastal-monitor.yaml)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("root", ".", "Data root; inputs and outputs live under <root>/data")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("root_path", rootCmd.PersistentFlags().Lookup("root"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".coastal-monitor")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Printf("\033[33mIgnoring config file: %s\033[0m\n", err)
		}
	} else {
		utils.Log.WithField("file", viper.ConfigFileUsed()).Debug("config loaded")
	}

	if err := utils.SetLogLevel(properties.LogLevel()); err != nil {
		fmt.Printf("\033[33m%s, using info\033[0m\n", err)
	}
}

// withService opens the configured service for the duration of run.
func withService(ctx context.Context, run func(svc *delivery.Service) error) error {
	svc, err := delivery.NewService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()
	return run(svc)
}
