package certs

import (
	"context"
	"crypto/tls"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/autopeer-io/printersim/pkg/log"
)

// Loader serves a certificate from disk and swaps it when the files change.
// Handshakes in flight keep the certificate they started with.
type Loader struct {
	certFile string
	keyFile  string
	cert     atomic.Pointer[tls.Certificate]
	log      log.Logger
}

// NewLoader reads the key pair once. It fails if the files are unusable.
func NewLoader(certFile, keyFile string, logger log.Logger) (*Loader, error) {
	if logger == nil {
		logger = log.WithName("certs")
	}
	l := &Loader{certFile: certFile, keyFile: keyFile, log: logger}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload reads the key pair again. On error the previous certificate stays in use.
func (l *Loader) Reload() error {
	cert, err := tls.LoadX509KeyPair(l.certFile, l.keyFile)
	if err != nil {
		return fmt.Errorf("load key pair %s, %s: %w", l.certFile, l.keyFile, err)
	}
	l.cert.Store(&cert)
	return nil
}

func (l *Loader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return l.cert.Load(), nil
}

// TLSConfig returns a server config backed by the loader.
func (l *Loader) TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: l.GetCertificate,
	}
}

// Watch reloads the pair whenever either file is written, created or
// renamed, until ctx is done. Directories are watched so that atomic
// replacements (write to temp, rename over) are seen.
func (l *Loader) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	files := map[string]bool{}
	for _, f := range []string{l.certFile, l.keyFile} {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		files[abs] = true
	}
	dirs := map[string]bool{}
	for f := range files {
		dir := filepath.Dir(f)
		if dirs[dir] {
			continue
		}
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			abs, _ := filepath.Abs(ev.Name)
			if !files[abs] {
				continue
			}
			if err := l.Reload(); err != nil {
				// Writers often touch the cert before the key; the next event retries.
				l.log.Warn("Certificate reload failed", "file", ev.Name, "error", err)
				continue
			}
			l.log.Info("Certificate reloaded", "file", ev.Name)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.log.Error(err, "Certificate watcher error")
		}
	}
}
