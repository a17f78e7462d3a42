// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/repoforge/mirror/internal/catalog"
	"github.com/repoforge/mirror/internal/config"
	"github.com/repoforge/mirror/internal/integrity"
	"github.com/repoforge/mirror/internal/metacache"
	"github.com/repoforge/mirror/internal/pool"
	"github.com/repoforge/mirror/internal/publish"
	"github.com/repoforge/mirror/internal/snapshot"
)

// Env is the opened set of resources every repoctl subcommand operates
// on: the parsed configuration plus the catalog, pool, and metadata cache
// it names. Built once per invocation from the --config flag.
type Env struct {
	Config  *config.Config
	Catalog *catalog.Catalog
	Pool    *pool.Pool
	Cache   *metacache.Cache
	Logger  *slog.Logger
}

// Open loads the configuration at path and opens its catalog, pool, and
// metadata cache. Callers must call Close when done.
func Open(path string) (*Env, error) {
	if path == "" {
		return nil, Err("a --config file must be specified")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, Errf("while loading configuration: %s", err)
	}

	cat, err := catalog.Open(cfg.Database.URL)
	if err != nil {
		return nil, Errf("while opening catalog: %s", err)
	}

	p, err := pool.New(cfg.Storage.PoolPath)
	if err != nil {
		_ = cat.Close()
		return nil, Errf("while opening pool: %s", err)
	}

	cache, err := metacache.New(filepath.Join(cfg.Storage.BasePath, "cache"))
	if err != nil {
		_ = cat.Close()
		return nil, Errf("while opening metadata cache: %s", err)
	}

	logger, err := cfg.Logging.Logger(nil)
	if err != nil {
		_ = cat.Close()
		return nil, Errf("while configuring logging: %s", err)
	}

	return &Env{Config: cfg, Catalog: cat, Pool: p, Cache: cache, Logger: logger}, nil
}

// Close releases the catalog connection.
func (e *Env) Close() error {
	return e.Catalog.Close()
}

// RepositoryConfig looks up a configured repository by its config id.
func (e *Env) RepositoryConfig(id string) (*config.Repository, error) {
	for i := range e.Config.Repositories {
		if e.Config.Repositories[i].ID == id {
			return &e.Config.Repositories[i], nil
		}
	}
	return nil, fmt.Errorf("no repository %q in configuration", id)
}

// Snapshot builds a snapshot manager bound to this environment's catalog.
func (e *Env) Snapshot() *snapshot.Manager {
	return &snapshot.Manager{Catalog: e.Catalog}
}

// Publisher builds a publisher bound to this environment's catalog.
func (e *Env) Publisher() *publish.Publisher {
	return &publish.Publisher{Catalog: e.Catalog}
}

// Integrity builds an integrity checker bound to this environment's
// catalog and pool.
func (e *Env) Integrity() *integrity.Checker {
	return &integrity.Checker{Catalog: e.Catalog, Pool: e.Pool}
}

// SelectRepositories resolves a sync/check-updates invocation's target
// set: every enabled repository when all is true, otherwise the
// specifically named ids (which may be disabled; an explicit name
// overrides the enabled filter).
func (e *Env) SelectRepositories(ids []string, all bool) ([]config.Repository, error) {
	if all {
		var repos []config.Repository
		for _, r := range e.Config.Repositories {
			if r.Enabled {
				repos = append(repos, r)
			}
		}
		return repos, nil
	}
	if len(ids) == 0 {
		return nil, Err("specify at least one repository id, or pass --all")
	}
	var repos []config.Repository
	for _, id := range ids {
		r, err := e.RepositoryConfig(id)
		if err != nil {
			return nil, Err(err.Error())
		}
		repos = append(repos, *r)
	}
	return repos, nil
}

// ConfiguredRepositoryNames returns the set of repository ids (the
// catalog's repository "name" column) currently present in the live
// configuration, for comparison against catalog rows by db orphan
// scans.
func (e *Env) ConfiguredRepositoryNames() map[string]bool {
	names := make(map[string]bool, len(e.Config.Repositories))
	for _, r := range e.Config.Repositories {
		names[r.ID] = true
	}
	return names
}
