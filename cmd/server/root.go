package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/and161185/gophpress/internal/config"
	"github.com/and161185/gophpress/internal/logging"
)

var configFile string

// NewRootCmd builds the gp-server command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gp-server",
		Short:         "gophpress blog API server",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			_, err := config.LoadDotEnv("")
			return err
		},
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (or "+config.EnvName("config")+")")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewVersionCmd())
	return cmd
}

// loadConfig resolves the merged configuration and a logger for it.
func loadConfig(cmd *cobra.Command, validate bool) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cmd.Flags(), config.ConfigFileFromEnv(configFile))
	if err != nil {
		return nil, nil, err
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// NewVersionCmd prints build information.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build date",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("gp-server %s (built %s)\n", version, buildDate)
		},
	}
}
