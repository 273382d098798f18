package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/autopeer-io/printersim/cmd/p2s-probe/app/options"
	"github.com/autopeer-io/printersim/internal/probe"
	"github.com/autopeer-io/printersim/pkg/app"
	"github.com/autopeer-io/printersim/pkg/log"
	genericoptions "github.com/autopeer-io/printersim/pkg/options"
)

const (
	commandName = "p2s-probe"
	commandDesc = `p2s-probe sends one command to a P2S printer, real or simulated, over
its TLS MQTT port and prints the reply.

  p2s-probe status --mqtt.broker ssl://192.168.1.50:8883 --mqtt.password 12345678
  p2s-probe start --file cube.gcode --tray 2
  p2s-probe history --filter failed -o json`

	envPrefix = "P2S_PROBE"
)

func NewApp() *app.App {
	opts := options.NewProbeOptions()
	return app.NewApp(
		commandName,
		"Talk to a P2S printer",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithConfigFlag(),
		app.WithEnvPrefix(envPrefix),
		app.WithPersistentOptions(),
		app.WithSubCommands(newCommands(opts)...),
	)
}

// action performs one exchange and returns the reply plus its table form.
type action func(ctx context.Context, c *probe.Client) (any, *uitable.Table, error)

// run connects, performs act and prints the reply. A failed result is printed
// before its error is returned.
func run(opts *options.ProbeOptions, out io.Writer, act action) error {
	log.Init(opts.Log)
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), opts.ProbeOptions.Timeout)
	defer cancel()

	client, err := probe.New(opts.MqttOptions, log.WithName("probe"))
	if err != nil {
		return err
	}
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", opts.MqttOptions.Broker, err)
	}
	defer client.Close(ctx)

	reply, table, err := act(ctx, client)
	if reply == nil {
		return err
	}
	if perr := printReply(out, opts.ProbeOptions.Output, reply, table); perr != nil {
		return perr
	}
	return err
}

func printReply(out io.Writer, format string, reply any, table *uitable.Table) error {
	if format == genericoptions.OutputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reply)
	}
	_, err := fmt.Fprintln(out, table)
	return err
}

func newCommand(opts *options.ProbeOptions, use, short string, act action) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(opts, cmd.OutOrStdout(), act)
		},
	}
}
