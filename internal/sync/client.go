// SPDX-License-Identifier: Apache-2.0

// Package sync implements the per-format sync pipeline: fetch root
// metadata, extract listings, filter, diff against the catalog, download
// missing content, and record everything observed.
package sync

import (
	"time"

	"github.com/repoforge/mirror/internal/config"
	"github.com/repoforge/mirror/internal/downloader"
)

// buildClient resolves a repository's effective proxy/TLS/auth settings
// (repo-level overrides global) and builds a downloader.Client bound to
// them.
func buildClient(global *config.Config, repo config.Repository) (*downloader.Client, error) {
	proxy := global.Proxy
	if repo.Proxy != nil {
		proxy = *repo.Proxy
	}
	ssl := global.SSL
	if repo.SSL != nil {
		ssl = *repo.SSL
	}

	cfg := downloader.Config{
		TLS: downloader.TLSConfig{
			Verify:       ssl.Verify,
			CABundlePath: ssl.CABundle,
			CACertPEM:    ssl.CACert,
		},
		Proxy: downloader.ProxyConfig{
			HTTPProxy:  proxy.HTTPProxy,
			HTTPSProxy: proxy.HTTPSProxy,
			NoProxy:    proxy.NoProxy,
			Username:   proxy.Username,
			Password:   proxy.Password,
		},
		Timeout:      time.Duration(global.Download.TimeoutSeconds) * time.Second,
		RetryCount:   global.Download.RetryAttempts,
		RetryBackoff: time.Second,
	}

	if repo.Auth != nil {
		cfg.Auth = downloader.Auth{
			Kind:           downloader.AuthKind(repo.Auth.Kind),
			ClientCertFile: repo.Auth.ClientCertFile,
			ClientKeyFile:  repo.Auth.ClientKeyFile,
			ClientCertDir:  repo.Auth.ClientCertDir,
			Username:       repo.Auth.Username,
			Password:       repo.Auth.Password,
			Token:          repo.Auth.Token,
			Headers:        repo.Auth.Headers,
		}
		if ssl.ClientCert != "" && cfg.Auth.Kind == downloader.AuthClientCert && cfg.Auth.ClientCertFile == "" {
			cfg.Auth.ClientCertFile = ssl.ClientCert
			cfg.Auth.ClientKeyFile = ssl.ClientKey
		}
	}

	return downloader.New(cfg)
}
