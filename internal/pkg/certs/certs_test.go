package certs

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"path/filepath"
	"testing"
	"time"

	"github.com/autopeer-io/printersim/pkg/log"
)

func TestGenerate(t *testing.T) {
	certPEM, keyPEM, err := Generate(GenerateOptions{Hosts: []string{"printer.local", "10.0.0.5"}})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := tls.X509KeyPair(certPEM, keyPEM); err != nil {
		t.Fatalf("generated pair does not load: %v", err)
	}

	block, _ := pem.Decode(certPEM)
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatal(err)
	}
	if err := cert.VerifyHostname("printer.local"); err != nil {
		t.Errorf("VerifyHostname(printer.local): %v", err)
	}
	if err := cert.VerifyHostname("10.0.0.5"); err != nil {
		t.Errorf("VerifyHostname(10.0.0.5): %v", err)
	}
}

func TestLoaderMissingFiles(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewLoader(filepath.Join(dir, "a.crt"), filepath.Join(dir, "a.key"), log.NewNopLogger()); err == nil {
		t.Error("NewLoader() succeeded without files")
	}
}

// serial returns the serial number of the certificate the loader serves.
func serial(t *testing.T, l *Loader) string {
	t.Helper()
	c, _ := l.GetCertificate(nil)
	leaf, err := x509.ParseCertificate(c.Certificate[0])
	if err != nil {
		t.Fatal(err)
	}
	return leaf.SerialNumber.String()
}

func TestLoaderWatchReloads(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key")
	if err := WriteFiles(certFile, keyFile, GenerateOptions{}); err != nil {
		t.Fatal(err)
	}

	l, err := NewLoader(certFile, keyFile, log.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	before := serial(t, l)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register before rewriting.
	time.Sleep(100 * time.Millisecond)
	if err := WriteFiles(certFile, keyFile, GenerateOptions{}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for serial(t, l) == before {
		if time.Now().After(deadline) {
			t.Fatal("certificate was not reloaded")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestLoaderServesHandshake(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key")
	if err := WriteFiles(certFile, keyFile, GenerateOptions{}); err != nil {
		t.Fatal(err)
	}
	l, err := NewLoader(certFile, keyFile, log.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}

	ln, err := tls.Listen("tcp", "127.0.0.1:0", l.TLSConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err == nil {
			_ = c.(*tls.Conn).Handshake()
			c.Close()
		}
	}()

	conn, err := tls.Dial("tcp", ln.Addr().String(), &tls.Config{InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	if got := conn.ConnectionState().PeerCertificates[0].Subject.CommonName; got != "bambu-simulator.local" {
		t.Errorf("CommonName = %q", got)
	}
}
