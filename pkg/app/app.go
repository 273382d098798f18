// Package app assembles cobra commands from named option sets, with values
// layered as defaults < config file < environment < command line.
package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/cli/globalflag"
)

const usageColumns = 100

// App is a command line application.
type App struct {
	name        string
	shortDesc   string
	description string
	options     NamedFlagSetOptions
	runFunc     RunFunc
	args        cobra.PositionalArgs
	envPrefix   string
	configFlag  bool
	configFile  string
	persistent  bool
	subCommands []*cobra.Command

	viper *viper.Viper
	cmd   *cobra.Command
}

// NewApp builds the application and its cobra command.
func NewApp(name, shortDesc string, opts ...Option) *App {
	a := &App{name: name, shortDesc: shortDesc, viper: viper.New()}
	for _, o := range opts {
		o(a)
	}
	a.buildCommand()
	return a
}

// Command returns the root cobra command.
func (a *App) Command() *cobra.Command { return a.cmd }

// Run executes the command line and exits the process on failure.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.shortDesc,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          a.args,
	}
	cmd.SetOut(os.Stdout)
	cmd.Flags().SortFlags = true

	var namedfs cliflag.NamedFlagSets
	if a.options != nil {
		namedfs = a.options.Flags()
	}
	if a.configFlag {
		namedfs.FlagSet("global").StringVarP(&a.configFile, "config", "c", "", "Read configuration from this file (yaml, json or toml); command line flags take precedence.")
	}
	globalflag.AddGlobalFlags(namedfs.FlagSet("global"), cmd.Name())
	fs := cmd.Flags()
	if a.persistent {
		fs = cmd.PersistentFlags()
		cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
			return a.prepare(cmd.Flags())
		}
	}
	for _, f := range namedfs.FlagSets {
		fs.AddFlagSet(f)
	}
	cliflag.SetUsageAndHelpFunc(cmd, namedfs, usageColumns)

	if a.runFunc != nil {
		cmd.RunE = a.runCommand
	}
	cmd.AddCommand(a.subCommands...)
	a.cmd = cmd
}

func (a *App) runCommand(cmd *cobra.Command, _ []string) error {
	if !a.persistent {
		if err := a.prepare(cmd.Flags()); err != nil {
			return err
		}
	}
	return a.runFunc()
}

// prepare loads, completes and validates the options.
func (a *App) prepare(fs *pflag.FlagSet) error {
	if err := a.loadConfig(fs); err != nil {
		return err
	}
	if a.options == nil {
		return nil
	}
	if err := a.options.Complete(); err != nil {
		return err
	}
	return a.options.Validate()
}

// loadConfig reads the config file and environment and applies every value
// whose flag was not set on the command line.
func (a *App) loadConfig(fs *pflag.FlagSet) error {
	v := a.viper
	if a.envPrefix != "" {
		v.SetEnvPrefix(a.envPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		v.AutomaticEnv()
	}
	if a.configFile != "" {
		v.SetConfigFile(a.configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", a.configFile, err)
		}
	}

	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed || f.Name == "config" || !v.IsSet(f.Name) {
			return
		}
		var err error
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			err = sv.Replace(v.GetStringSlice(f.Name))
		} else {
			err = f.Value.Set(v.GetString(f.Name))
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid value for %s: %w", f.Name, err))
		}
	})
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
