package main

import (
	"github.com/spf13/cobra"

	"github.com/ochairo/pkginspect/internal/external-adapters/yaml"
)

func newConfigCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(global, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			parser := yaml.NewConfigParser(logger)
			cfg, err := loadConfig(global, parser)
			if err != nil {
				return err
			}

			data, err := parser.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
