package main

import (
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/daimatz/tinyjvm/internal/config"
)

func newRootCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:           "tinyjvm",
		Short:         "Run and inspect Java class files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			processGlobalFlags(v)
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "path to "+config.FileName+" (searched upward from the working directory by default)")
	pf.StringSlice("classpath", nil, "class path entries in probe order")
	pf.Int("max-depth", 0, "maximum nested invocations")
	pf.String("log-level", "", "log level: trace, debug, info, warn or error")
	pf.String("log-format", "", "log format: console or json")
	pf.Bool("no-color", false, "disable colored output")
	cobra.CheckErr(v.BindPFlags(pf))

	v.SetEnvPrefix("TINYJVM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root.AddCommand(newRunCmd(v), newJavapCmd(v))
	return root
}

// Reads global flags from viper and adjusts the environment accordingly.
func processGlobalFlags(v *viper.Viper) {
	if v.GetBool("no-color") {
		color.NoColor = true
	}
}

// loadConfig reads the configuration file and layers environment variables
// and flags over it.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := v.GetString("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.FindAndLoad(".")
	}
	if err != nil {
		return nil, err
	}

	v.SetDefault("classpath", cfg.ClassPathEntries())
	v.SetDefault("max-depth", cfg.Runtime.MaxDepth)
	v.SetDefault("log-level", cfg.Log.Level)
	v.SetDefault("log-format", cfg.Log.Format)

	cfg.ClassPath.Entries = splitList(v.GetStringSlice("classpath"))
	cfg.Dir = ""
	cfg.Runtime.MaxDepth = v.GetInt("max-depth")
	cfg.Log.Level = v.GetString("log-level")
	cfg.Log.Format = v.GetString("log-format")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList also accepts entries joined with the OS list separator, as in
// TINYJVM_CLASSPATH=a:b.
func splitList(entries []string) []string {
	var out []string
	for _, e := range entries {
		for _, p := range filepath.SplitList(e) {
			if p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
