// SPDX-License-Identifier: Apache-2.0

// Package downloader is the single HTTP client abstraction used by every
// sync pipeline: one configured client per repository, carrying that
// repository's effective proxy, TLS, and auth settings, streaming every
// response into a sibling temp file renamed into place on success.
package downloader

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/repoforge/mirror/pkg/mtls"
)

// ErrChecksumMismatch is returned by DownloadToTemp when the downloaded
// bytes don't hash to the caller-supplied expected digest.
var ErrChecksumMismatch = errors.New("downloader: checksum mismatch")

// AuthKind selects how requests authenticate to the upstream feed.
type AuthKind string

const (
	AuthNone       AuthKind = ""
	AuthClientCert AuthKind = "client_cert"
	AuthBasic      AuthKind = "basic"
	AuthBearer     AuthKind = "bearer"
	AuthCustom     AuthKind = "custom"
)

// Auth carries the settings for whichever AuthKind is selected; unused
// fields for the chosen kind are ignored.
type Auth struct {
	Kind AuthKind

	// client_cert
	ClientCertFile string
	ClientKeyFile  string
	ClientCertDir  string // auto-discover: first *.pem not ending in -key.pem, paired with <stem>-key.pem

	// basic
	Username string
	Password string

	// bearer
	Token string

	// custom
	Headers map[string]string
}

// TLSConfig carries a repository's effective TLS settings.
type TLSConfig struct {
	Verify       bool
	CABundlePath string
	CACertPEM    string // inline PEM, written to a temp file if non-empty
}

// ProxyConfig carries a repository's effective proxy settings.
type ProxyConfig struct {
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
	Username   string
	Password   string
}

// Config is the full set of per-repository downloader settings.
type Config struct {
	TLS          TLSConfig
	Proxy        ProxyConfig
	Auth         Auth
	Timeout      time.Duration
	RetryCount   int
	RetryBackoff time.Duration
}

// Client is a configured HTTP client bound to one repository's effective
// settings.
type Client struct {
	http   *http.Client
	config Config
}

// New builds a Client from cfg.
func New(cfg Config) (*Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if !cfg.TLS.Verify {
		tlsConfig.InsecureSkipVerify = true //nolint:gosec // explicit per-repository opt-out
	} else if cfg.TLS.CABundlePath != "" || cfg.TLS.CACertPEM != "" {
		pool, err := loadCAPool(cfg.TLS)
		if err != nil {
			return nil, err
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.Auth.Kind == AuthClientCert {
		certFile, keyFile, err := resolveClientCert(cfg.Auth)
		if err != nil {
			return nil, err
		}
		certPEM, err := os.Open(certFile)
		if err != nil {
			return nil, fmt.Errorf("while opening client cert %s: %w", certFile, err)
		}
		defer certPEM.Close()
		keyPEM, err := os.Open(keyFile)
		if err != nil {
			return nil, fmt.Errorf("while opening client key %s: %w", keyFile, err)
		}
		defer keyPEM.Close()

		var caReader io.Reader
		if cfg.TLS.CABundlePath != "" {
			b, err := os.ReadFile(cfg.TLS.CABundlePath)
			if err != nil {
				return nil, err
			}
			caReader = bytes.NewReader(b)
		} else if cfg.TLS.CACertPEM != "" {
			caReader = strings.NewReader(cfg.TLS.CACertPEM)
		}

		mc, err := mtls.ClientConfig(caReader, certPEM, keyPEM)
		if err != nil {
			return nil, fmt.Errorf("while building client certificate config: %w", err)
		}
		mc.InsecureSkipVerify = tlsConfig.InsecureSkipVerify
		tlsConfig = mc
	}

	transport.TLSClientConfig = tlsConfig

	if cfg.Proxy.HTTPProxy != "" || cfg.Proxy.HTTPSProxy != "" {
		transport.Proxy = proxyFunc(cfg.Proxy)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		http:   &http.Client{Transport: transport, Timeout: timeout},
		config: cfg,
	}, nil
}

func loadCAPool(cfg TLSConfig) (*x509.CertPool, error) {
	pool := x509.NewCertPool()

	if cfg.CABundlePath != "" {
		b, err := os.ReadFile(cfg.CABundlePath)
		if err != nil {
			return nil, fmt.Errorf("while reading CA bundle %s: %w", cfg.CABundlePath, err)
		}
		if !pool.AppendCertsFromPEM(b) {
			return nil, fmt.Errorf("no certificates found in CA bundle %s", cfg.CABundlePath)
		}
	}

	if cfg.CACertPEM != "" {
		if !pool.AppendCertsFromPEM([]byte(cfg.CACertPEM)) {
			return nil, fmt.Errorf("no certificates found in inline CA PEM")
		}
	}

	return pool, nil
}

func resolveClientCert(auth Auth) (certFile, keyFile string, err error) {
	if auth.ClientCertFile != "" {
		keyFile := auth.ClientKeyFile
		if keyFile == "" {
			keyFile = strings.TrimSuffix(auth.ClientCertFile, filepath.Ext(auth.ClientCertFile)) + "-key.pem"
		}
		return auth.ClientCertFile, keyFile, nil
	}

	if auth.ClientCertDir == "" {
		return "", "", fmt.Errorf("client_cert auth requires either client_cert_file or client_cert_dir")
	}

	entries, err := os.ReadDir(auth.ClientCertDir)
	if err != nil {
		return "", "", fmt.Errorf("while scanning client cert directory %s: %w", auth.ClientCertDir, err)
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".pem") || strings.HasSuffix(name, "-key.pem") {
			continue
		}
		stem := strings.TrimSuffix(name, ".pem")
		cert := filepath.Join(auth.ClientCertDir, name)
		key := filepath.Join(auth.ClientCertDir, stem+"-key.pem")
		if _, err := os.Stat(key); err != nil {
			continue
		}
		return cert, key, nil
	}

	return "", "", fmt.Errorf("no client certificate found in %s", auth.ClientCertDir)
}

func proxyFunc(cfg ProxyConfig) func(*http.Request) (*url.URL, error) {
	return func(req *http.Request) (*url.URL, error) {
		raw := cfg.HTTPProxy
		if req.URL.Scheme == "https" {
			raw = cfg.HTTPSProxy
		}
		if raw == "" {
			return nil, nil
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, err
		}
		if cfg.Username != "" {
			u.User = url.UserPassword(cfg.Username, cfg.Password)
		}
		return u, nil
	}
}

func (c *Client) applyAuth(req *http.Request) {
	switch c.config.Auth.Kind {
	case AuthBasic:
		req.SetBasicAuth(c.config.Auth.Username, c.config.Auth.Password)
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+c.config.Auth.Token)
	case AuthCustom:
		for k, v := range c.config.Auth.Headers {
			req.Header.Set(k, v)
		}
	}
}

// Get performs a GET against url, retrying per the client's configured
// retry count with constant backoff, and returns the response body. Callers
// must Close it.
func (c *Client) Get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	retries := c.config.RetryCount
	if retries < 0 {
		retries = 0
	}
	interval := c.config.RetryBackoff
	if interval <= 0 {
		interval = time.Second
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(retries)), ctx)

	var body io.ReadCloser
	err := backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		c.applyAuth(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("while requesting %s: %w", rawURL, err)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
		}

		body = resp.Body
		return nil
	}, policy)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// DownloadToTemp streams url into a new temp file under dir, optionally
// verifying its SHA-256 against expectedSHA256 (ignored if empty) before
// renaming it into place at destPath. On checksum mismatch the temp file
// is removed and ErrChecksumMismatch is returned; callers that want a
// retry-on-mismatch policy should call DownloadToTemp again themselves, as
// the caller (not the downloader) decides how many times that's worth
// doing for a given package.
func (c *Client) DownloadToTemp(ctx context.Context, rawURL, dir, destPath, expectedSHA256 string) (size int64, errFn error) {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	defer func() {
		if errFn != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	h := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, h), body)
	closeErr := tmp.Close()
	if err != nil {
		return 0, fmt.Errorf("while downloading %s: %w", rawURL, err)
	}
	if closeErr != nil {
		return 0, closeErr
	}

	if expectedSHA256 != "" {
		if got := hex.EncodeToString(h.Sum(nil)); got != expectedSHA256 {
			return 0, fmt.Errorf("%w: %s: have %s want %s", ErrChecksumMismatch, rawURL, got, expectedSHA256)
		}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o700); err != nil {
		return 0, err
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return 0, err
	}

	return written, nil
}
