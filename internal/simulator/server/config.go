package server

import "github.com/autopeer-io/printersim/pkg/options"

type Config struct {
	ControlOptions    *options.ControlOptions
	StreamOptions     *options.StreamOptions
	HttpOptions       *options.HttpOptions
	SimulationOptions *options.SimulationOptions
}
