package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/observability"
)

// rootOptions is the state shared by every subcommand.
type rootOptions struct {
	cfgFile string
	v       *viper.Viper
	config  *config.Config
}

// NewRootCommand builds a fresh command tree. Each call gets its own viper
// instance so tests do not leak flags into one another.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{v: viper.New()}
	config.SetDefaults(opts.v)

	rootCmd := &cobra.Command{
		Use:           "mudra",
		Short:         "Mudra drives a web page with hand gestures from your webcam.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.initializeConfig(); err != nil {
				return err
			}
			cfg, err := config.Load(opts.v)
			if err != nil {
				observability.InitializeLogger(config.Default().Logger)
				return err
			}
			opts.config = cfg
			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Debug("Configuration loaded",
				zap.String("version", Version),
				zap.String("config_file", opts.v.ConfigFileUsed()))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			observability.Sync()
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "mudra %s\n" .Version}}`)
	rootCmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file (default is ./config.yaml, then ~/.mudra/config.yaml)")

	rootCmd.AddCommand(
		newRunCommand(opts),
		newSamplesCommand(opts),
		newVersionCommand(),
	)
	return rootCmd
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		observability.GetLogger().Error("Command failed", zap.Error(err))
		observability.Sync()
		return err
	}
	return nil
}

// initializeConfig reads the config file, if any, and MUDRA_* variables.
func (o *rootOptions) initializeConfig() error {
	if o.cfgFile != "" {
		o.v.SetConfigFile(o.cfgFile)
	} else {
		o.v.AddConfigPath(".")
		o.v.AddConfigPath(config.DataDir())
		o.v.SetConfigName("config")
		o.v.SetConfigType("yaml")
	}

	o.v.SetEnvPrefix("MUDRA")
	o.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	o.v.AutomaticEnv()

	if err := o.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || o.cfgFile != "" {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}
