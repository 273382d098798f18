package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"
	"k8s.io/klog/v2"

	"github.com/autopeer-io/printersim/cmd/p2s-sim/app/options"
	"github.com/autopeer-io/printersim/pkg/app"
	"github.com/autopeer-io/printersim/pkg/log"
)

const (
	commandName = "p2s-sim"
	commandDesc = `p2s-sim emulates a networked P2S 3D printer: the TLS MQTT control
port with its JSON command set, a simulated print job with temperatures and
AMS trays, and the camera stream port. Point client software at it instead of
real hardware.

Generate the TLS material once with "p2s-sim gen-cert".`

	envPrefix = "P2S"
)

func NewApp() *app.App {
	opts := options.NewSimulatorOptions()
	application := app.NewApp(
		commandName,
		"Launch a simulated P2S printer",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithConfigFlag(),
		app.WithEnvPrefix(envPrefix),
		app.WithSubCommands(newGenCertCommand(opts.TLSOptions.CertFile, opts.TLSOptions.KeyFile)),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.SimulatorOptions) app.RunFunc {
	return func() error {
		log.Init(opts.Log)
		defer log.Sync()
		klog.SetLogger(log.Logr())

		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		sim, err := cfg.NewSimulator()
		if err != nil {
			return fmt.Errorf("failed to create simulator: %w", err)
		}

		return sim.Run(ctx)
	}
}
