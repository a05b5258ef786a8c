package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gurisko/hq/internal/blobstore"
	"github.com/gurisko/hq/internal/blobstore/github"
	"github.com/gurisko/hq/internal/blobstore/gitrepo"
	"github.com/gurisko/hq/internal/blobstore/redisstore"
	"github.com/gurisko/hq/internal/blobstore/sqlstore"
	"github.com/gurisko/hq/internal/config"
	"github.com/gurisko/hq/internal/ledger"
)

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// openStore connects to the configured backend. repo selects the GitHub
// repository and is ignored by the other backends.
func openStore(ctx context.Context, repo string) (blobstore.Store, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendGitHub:
		cwd, _ := os.Getwd()
		if err := cfg.ResolveToken(cwd); err != nil {
			return nil, nil, err
		}
		opts := []github.Option{github.WithLogger(logger)}
		if cfg.Branch != "" {
			opts = append(opts, github.WithBranch(cfg.Branch))
		}
		client := github.NewClient(cfg.Token, repo, opts...)
		full, err := client.ResolveRepo(ctx)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("using github store", "repo", full)
		return client, noopCloser{}, nil

	case config.BackendGit:
		s, err := gitrepo.Open(cfg.GitDir, "hq")
		if err != nil {
			return nil, nil, err
		}
		return s, noopCloser{}, nil

	case config.BackendSQLite, config.BackendPostgres:
		driver := sqlstore.DriverSQLite
		if cfg.Backend == config.BackendPostgres {
			driver = sqlstore.DriverPostgres
		} else if err := os.MkdirAll(filepath.Dir(cfg.SQLDSN), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create database dir: %w", err)
		}
		s, err := sqlstore.Open(ctx, driver, cfg.SQLDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil

	case config.BackendRedis:
		s, err := redisstore.New(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend)
}

// openWriter wraps the configured store in a ledger writer
func openWriter(ctx context.Context, repo string) (*ledger.Writer, io.Closer, error) {
	store, closer, err := openStore(ctx, repo)
	if err != nil {
		return nil, nil, err
	}
	w := ledger.NewWriter(store,
		ledger.WithMaxAttempts(cfg.MaxAttempts),
		ledger.WithTimeout(cfg.Timeout),
		ledger.WithLogger(logger),
	)
	return w, closer, nil
}
