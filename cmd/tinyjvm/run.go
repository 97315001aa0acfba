package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/daimatz/tinyjvm/internal/logging"
	"github.com/daimatz/tinyjvm/pkg/native"
	"github.com/daimatz/tinyjvm/pkg/vm"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "run <file.class>",
		Short: "Run main(String[]) of a class file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			log, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}

			rt, err := vm.New(
				vm.WithClassPath(cfg.ClassPath.Entries...),
				vm.WithNatives(native.Registry(native.Host{Stdout: cmd.OutOrStdout(), Log: log})),
				vm.WithLogger(log),
				vm.WithMaxDepth(cfg.Runtime.MaxDepth),
				vm.WithCodeCacheSize(cfg.Runtime.CodeCacheSize),
			)
			if err != nil {
				return err
			}
			c, err := rt.LoadFile(args[0])
			if err != nil {
				return err
			}
			log.Debug().Str("class", c.Name).Strs("classpath", cfg.ClassPath.Entries).Msg("running main")
			return rt.RunMain(c.Name)
		},
	}
}
