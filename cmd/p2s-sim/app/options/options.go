package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/printersim/internal/simulator"
	"github.com/autopeer-io/printersim/pkg/app"
	"github.com/autopeer-io/printersim/pkg/log"
	"github.com/autopeer-io/printersim/pkg/options"
)

type SimulatorOptions struct {
	ControlOptions    *options.ControlOptions    `json:"control" mapstructure:"control"`
	StreamOptions     *options.StreamOptions     `json:"stream" mapstructure:"stream"`
	HttpOptions       *options.HttpOptions       `json:"http" mapstructure:"http"`
	TLSOptions        *options.TLSOptions        `json:"tls" mapstructure:"tls"`
	SimulationOptions *options.SimulationOptions `json:"sim" mapstructure:"sim"`
	Log               *log.Options               `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*SimulatorOptions)(nil)

func NewSimulatorOptions() *SimulatorOptions {
	return &SimulatorOptions{
		ControlOptions:    options.NewControlOptions(),
		StreamOptions:     options.NewStreamOptions(),
		HttpOptions:       options.NewHttpOptions(),
		TLSOptions:        options.NewTLSOptions(),
		SimulationOptions: options.NewSimulationOptions(),
		Log:               log.NewOptions(),
	}
}

func (o *SimulatorOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.ControlOptions.AddFlags(fss.FlagSet("control"))
	o.StreamOptions.AddFlags(fss.FlagSet("stream"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.TLSOptions.AddFlags(fss.FlagSet("tls"))
	o.SimulationOptions.AddFlags(fss.FlagSet("simulation"))
	o.Log.AddFlags(fss.FlagSet("Log"))
	return fss
}

func (o *SimulatorOptions) Complete() error {
	return nil
}

func (o *SimulatorOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.ControlOptions.Validate()...)
	errs = append(errs, o.StreamOptions.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.TLSOptions.Validate()...)
	errs = append(errs, o.SimulationOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *SimulatorOptions) Config() (*simulator.Config, error) {
	return &simulator.Config{
		ControlOptions:    o.ControlOptions,
		StreamOptions:     o.StreamOptions,
		HttpOptions:       o.HttpOptions,
		TLSOptions:        o.TLSOptions,
		SimulationOptions: o.SimulationOptions,
	}, nil
}
