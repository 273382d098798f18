package app

import (
	"github.com/spf13/cobra"
	cliflag "k8s.io/component-base/cli/flag"
)

// NamedFlagSetOptions is implemented by the options of every command.
type NamedFlagSetOptions interface {
	// Flags returns the flags grouped by section.
	Flags() cliflag.NamedFlagSets
	// Complete fills in defaults derived from other fields.
	Complete() error
	// Validate reports every invalid field at once.
	Validate() error
}

// RunFunc is the body of a command, called after options are loaded,
// completed and validated.
type RunFunc func() error

// Option configures an App.
type Option func(*App)

func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) { a.options = opts }
}

func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

// WithDefaultValidArgs rejects positional arguments.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return cobra.NoArgs(cmd, args)
				}
			}
			return nil
		}
	}
}

// WithEnvPrefix enables environment overrides such as PREFIX_CONTROL_ADDR
// for the flag control.addr.
func WithEnvPrefix(prefix string) Option {
	return func(a *App) { a.envPrefix = prefix }
}

// WithConfigFlag adds a --config flag naming a file whose keys mirror the flag names.
func WithConfigFlag() Option {
	return func(a *App) { a.configFlag = true }
}

// WithPersistentOptions makes the option flags visible to every subcommand
// and loads them before any of them runs.
func WithPersistentOptions() Option {
	return func(a *App) { a.persistent = true }
}

// WithSubCommands attaches extra cobra commands.
func WithSubCommands(cmds ...*cobra.Command) Option {
	return func(a *App) { a.subCommands = append(a.subCommands, cmds...) }
}
