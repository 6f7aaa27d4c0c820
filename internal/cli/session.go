package cli

import (
	"fmt"

	"github.com/gofrs/flock"
	log "github.com/sirupsen/logrus"

	"github.com/roach88/treestore/internal/config"
	"github.com/roach88/treestore/internal/schema"
	"github.com/roach88/treestore/internal/store"
	"github.com/roach88/treestore/internal/tree"
)

// session is an open store plus what must be released with it.
type session struct {
	cfg     *config.Config
	log     *log.Logger
	backend *store.Store
	tree    *tree.Store
	lock    *flock.Flock
}

// loadConfig resolves the config file and applies flag overrides.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	override := &config.Override{Database: &config.DatabaseOverride{}}
	if o.DB != "" {
		override.Database.Path = &o.DB
	}
	if o.Driver != "" {
		override.Database.Driver = &o.Driver
	}
	if o.Verbose {
		debug := "debug"
		override.Log = &config.LogOverride{Level: &debug}
	}
	cfg.Merge(override)
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

// newLogger builds a logrus logger writing diagnostics to stderr.
func (o *RootOptions) newLogger(cfg *config.Config, f *OutputFormatter) (*log.Logger, error) {
	logger := log.New()
	logger.SetOutput(f.GetErrWriter())
	if err := cfg.ConfigureLogger(logger); err != nil {
		return nil, WrapExitError(ExitCommandError, "configure logging", err)
	}
	return logger, nil
}

// open opens the configured database and returns a store scoped at --cwd.
// Writers hold an exclusive lock on <db>.lock until close.
func (o *RootOptions) open(f *OutputFormatter, write bool) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := o.newLogger(cfg, f)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, log: logger}
	if write {
		s.lock = flock.New(cfg.Database.Path + ".lock")
		locked, err := s.lock.TryLock()
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "acquire lock", err)
		}
		if !locked {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("database %s is locked by another writer", cfg.Database.Path))
		}
	}

	backend, err := store.Open(cfg.Database.Path,
		store.WithDriver(cfg.Database.Driver),
		store.WithBusyTimeout(cfg.Database.BusyTimeout),
		store.WithLogger(logger),
	)
	if err != nil {
		s.close()
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}
	s.backend = backend

	treeOpts := []tree.Option{tree.WithLogger(logger)}
	if len(cfg.Schemas) > 0 {
		v, err := schema.Load(cfg.Schemas)
		if err != nil {
			s.close()
			return nil, WrapExitError(ExitCommandError, "load schemas", err)
		}
		treeOpts = append(treeOpts, tree.WithValidator(v))
	}

	root := tree.New(backend, treeOpts...)
	scoped, err := root.Cd(o.Cwd)
	if err != nil {
		s.close()
		return nil, WrapExitError(ExitCommandError, "invalid --cwd", err)
	}
	s.tree = scoped
	logger.WithFields(log.Fields{"db": cfg.Database.Path, "driver": cfg.Database.Driver, "cwd": scoped.Path()}).Debug("opened store")
	return s, nil
}

func (s *session) close() {
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			s.log.WithError(err).Warn("close database")
		}
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			s.log.WithError(err).Warn("release lock")
		}
	}
}
