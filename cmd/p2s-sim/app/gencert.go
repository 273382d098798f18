package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/autopeer-io/printersim/internal/pkg/certs"
)

func newGenCertCommand(certFile, keyFile string) *cobra.Command {
	opts := certs.GenerateOptions{}
	cmd := &cobra.Command{
		Use:   "gen-cert",
		Short: "Write a self-signed certificate and key for the TLS listeners",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := certs.WriteFiles(certFile, keyFile, opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s and %s\n", certFile, keyFile)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&certFile, "cert-file", certFile, "Where to write the PEM certificate.")
	fs.StringVar(&keyFile, "key-file", keyFile, "Where to write the PEM private key.")
	fs.StringVar(&opts.CommonName, "common-name", "bambu-simulator.local", "Subject common name.")
	fs.StringSliceVar(&opts.Hosts, "hosts", certs.DefaultHosts, "DNS names and IP addresses the certificate is valid for.")
	fs.DurationVar(&opts.ValidFor, "valid-for", 365*24*time.Hour, "Validity period.")
	return cmd
}
