package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/JA3G3R/reviewcrew/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is stamped into SARIF output.
var Version = "0.1.0"

var folder string

// errReported marks a failure that was already printed to the user.
var errReported = errors.New("failed")

var rootCmd = &cobra.Command{
	Use:   "reviewcrew",
	Short: "Reviewcrew scans source code and has LLM agents write review reports",
	Long: `Reviewcrew runs pattern-based static, security, performance and complexity
checks over a source tree, then hands the results to a crew of LLM agents that
write error, security and performance reports. It also runs a small research
crew behind a web form.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default .reviewcrew.yaml)")
	rootCmd.PersistentFlags().StringVarP(&folder, "folder", "f", ".", "Folder containing the code to review")
	rootCmd.PersistentFlags().Bool("debug", false, "debug logging")
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".reviewcrew")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()

	// no config file is fine; defaults apply
	_ = viper.ReadInConfig()
}

// targetPath is the first argument, or --folder when none is given.
func targetPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return folder
}
