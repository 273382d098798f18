package app

import (
	"bytes"
	"crypto/tls"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenCert(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := filepath.Join(dir, "a", "server.crt"), filepath.Join(dir, "a", "server.key")

	cmd := NewApp().Command()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"gen-cert", "--cert-file", certFile, "--key-file", keyFile, "--hosts", "localhost,192.168.1.50"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("gen-cert: %v", err)
	}
	if _, err := tls.LoadX509KeyPair(certFile, keyFile); err != nil {
		t.Errorf("written pair does not load: %v", err)
	}
	if !strings.Contains(out.String(), certFile) {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunRejectsMissingCertificates(t *testing.T) {
	dir := t.TempDir()
	cmd := NewApp().Command()
	cmd.SilenceErrors = true
	cmd.SetArgs([]string{
		"--tls.cert-file", filepath.Join(dir, "missing.crt"),
		"--tls.key-file", filepath.Join(dir, "missing.key"),
	})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "gen-cert") {
		t.Errorf("Execute() = %v, want a hint to run gen-cert", err)
	}
}
