// Package forge provides the command-line entry points for running
// workflows against a topology manifest.
package forge

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mattsolo1/grove-forge/pkg/orchestration"
)

var cfg = viper.New()

// NewRootCommand builds the "forge" root command and wires its
// subcommands.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "forge",
		Short:         "Plan and run declarative infrastructure workflows",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("manifest", "manifest.yaml", "path to the topology manifest")
	root.PersistentFlags().String("config", "", "path to a forge config file (yaml)")
	root.PersistentFlags().Bool("verbose", false, "enable debug logging")
	_ = cfg.BindPFlag("manifest", root.PersistentFlags().Lookup("manifest"))
	_ = cfg.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))

	cobra.OnInitialize(func() {
		if path, _ := root.PersistentFlags().GetString("config"); path != "" {
			cfg.SetConfigFile(path)
		} else {
			cfg.SetConfigName("forge")
			cfg.SetConfigType("yaml")
			cfg.AddConfigPath(".")
			cfg.AddConfigPath("$HOME/.config/forge")
		}
		cfg.SetEnvPrefix("FORGE")
		cfg.AutomaticEnv()
		_ = cfg.ReadInConfig()
	})

	root.AddCommand(newRunCommand("deploy"))
	root.AddCommand(newRunCommand("undeploy"))
	root.AddCommand(newPlanCommand())
	root.AddCommand(newStatusCommand())
	return root
}

func newLogger() orchestration.Logger {
	level := logrus.InfoLevel
	if cfg.GetBool("verbose") {
		level = logrus.DebugLevel
	}
	return orchestration.NewStderrLogger(level)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}
