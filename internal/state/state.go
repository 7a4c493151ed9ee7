package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/Paintersrp/portal/internal/auth"
	"github.com/Paintersrp/portal/internal/config"
	"github.com/Paintersrp/portal/internal/constants"
	"github.com/Paintersrp/portal/internal/docsmap"
	"github.com/Paintersrp/portal/internal/fetch"
	"github.com/Paintersrp/portal/internal/search"
	"github.com/Paintersrp/portal/internal/services/session"
)

// Options adjust how the state is assembled.
type Options struct {
	Quiet  bool
	Stderr io.Writer
}

// State is the process-wide wiring shared by every command.
type State struct {
	Config    *config.Config
	Home      string
	Logger    *log.Logger
	Fetcher   fetch.Fetcher
	Source    docsmap.Source
	Indexer   *search.Indexer
	Authority *auth.Authority

	mu       sync.Mutex
	sessions []*session.Session
}

func NewState(opts Options) (*State, error) {
	s := &State{}
	if err := s.Load(opts); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads the config and wires s in place. Commands call it once their
// flags are parsed; it does nothing when s is already wired.
func (s *State) Load(opts Options) error {
	if s.Loaded() {
		return nil
	}

	home, err := GetHomeDir()
	if err != nil {
		return err
	}

	cfg, err := LoadConfig(home)
	if err != nil {
		return err
	}

	if err := s.wire(context.Background(), cfg, opts); err != nil {
		return err
	}
	s.Home = home
	return nil
}

// Loaded reports whether the state has been wired.
func (s *State) Loaded() bool {
	return s.Config != nil
}

// New wires the state around an already loaded config.
func New(ctx context.Context, cfg *config.Config, opts Options) (*State, error) {
	s := &State{}
	if err := s.wire(ctx, cfg, opts); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *State) wire(ctx context.Context, cfg *config.Config, opts Options) error {
	logger := newLogger(opts)

	f, err := fetch.New(ctx, cfg.Fetch, cfg.DocsRoot)
	if err != nil {
		return fmt.Errorf("failed to create document fetcher: %w", err)
	}

	authority, err := auth.NewAuthority(cfg.Server.JWTSecret, cfg.Server.Issuer, cfg.Server.TokenTTL)
	if err != nil && !errors.Is(err, auth.ErrNoSecret) {
		return err
	}

	s.Config = cfg
	s.Logger = logger
	s.Fetcher = f
	s.Authority = authority
	s.Indexer = search.NewIndexer(f, search.Config{
		Concurrency: cfg.Search.Concurrency,
		ScopeOrder:  cfg.ScopeNames(),
		Logger:      logger,
	})
	s.Source = s.source()
	return nil
}

func newLogger(opts Options) *log.Logger {
	if opts.Quiet {
		return log.New(io.Discard, "", 0)
	}
	w := opts.Stderr
	if w == nil {
		w = os.Stderr
	}
	return log.New(w, constants.AppName+": ", log.LstdFlags)
}

// source reads the generated docs map when it exists and otherwise builds
// the tree from the docs root on every load.
func (s *State) source() docsmap.Source {
	if _, err := os.Stat(s.Config.MapFile); err == nil {
		return docsmap.FileSource{Path: s.Config.MapFile}
	}
	s.Logger.Printf("docs map %s not found, reading %s directly", s.Config.MapFile, s.Config.DocsRoot)
	return docsmap.BuilderSource{Builder: s.Builder()}
}

// Builder returns a docs map builder for the configured docs root.
func (s *State) Builder() docsmap.Builder {
	return docsmap.Builder{
		Root:   s.Config.DocsRoot,
		Scopes: s.Config.ScopeNames(),
		Logger: s.Logger,
	}
}

// Rebuild regenerates the docs map from the docs root and writes it to the
// configured map file.
func (s *State) Rebuild(ctx context.Context) (docsmap.Map, error) {
	m, err := s.Builder().Build(ctx)
	if err != nil {
		return nil, err
	}
	if err := docsmap.Save(s.Config.MapFile, m); err != nil {
		return nil, err
	}
	return m, nil
}

// NewSession starts a search session over scope. Sessions are closed with
// the state.
func (s *State) NewSession(scope string) *session.Session {
	sess := session.NewSession(s.Source, s.Indexer, session.Options{Scope: scope, Logger: s.Logger})
	s.mu.Lock()
	s.sessions = append(s.sessions, sess)
	s.mu.Unlock()
	return sess
}

// Sessions starts one session per configured scope plus one covering every
// scope, keyed by scope name ("" for all).
func (s *State) Sessions() map[string]*session.Session {
	out := make(map[string]*session.Session, len(s.Config.Scopes)+1)
	for _, name := range s.Config.ScopeNames() {
		out[name] = s.NewSession(name)
	}
	out[""] = s.NewSession("")
	return out
}

// Reindex restarts the pass of every open session.
func (s *State) Reindex() {
	s.mu.Lock()
	sessions := append([]*session.Session(nil), s.sessions...)
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.Reindex()
	}
}

// Watch rebuilds the docs map and reindexes every session whenever markdown
// below the docs root changes. It blocks until ctx is cancelled.
func (s *State) Watch(ctx context.Context) error {
	w, err := NewDocsWatcher(s.Config.DocsRoot, s.Config.Search.Debounce)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.Config.DocsRoot, err)
	}
	defer w.Close()

	w.OnChange(func(paths []string) {
		s.Logger.Printf("docs changed: %s", strings.Join(paths, ", "))
		if _, err := s.Rebuild(ctx); err != nil {
			s.Logger.Printf("failed to rebuild docs map: %v", err)
			return
		}
		s.Reindex()
	})
	w.OnError(func(err error) {
		s.Logger.Printf("watcher: %v", err)
	})

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func GetHomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory. err: %s", err)
	}

	return home, nil
}

// LoadConfig reads the config file, then applies flag and PORTAL_*
// environment overrides recorded by viper.
func LoadConfig(home string) (*config.Config, error) {
	viper.AddConfigPath(home + constants.ConfigDir)
	viper.SetConfigName(constants.ConfigFile)
	viper.SetConfigType(constants.ConfigFileType)
	viper.SetEnvPrefix(constants.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	if err := config.EnsureConfigExists(home); err != nil {
		return nil, err
	}

	cfg, err := config.Load(home)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyViper(); err != nil {
		return nil, err
	}
	if err := cfg.CheckRequired(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Close releases every session opened through the state.
func (s *State) Close() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	sessions := s.sessions
	s.sessions = nil
	s.mu.Unlock()

	var errs []error
	for _, sess := range sessions {
		if err := sess.Close(); err != nil && !errors.Is(err, session.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
