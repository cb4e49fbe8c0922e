package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/misicnenad/fith-on/internal/config"
	"github.com/misicnenad/fith-on/internal/logging"
	"github.com/misicnenad/fith-on/internal/netstate"
	"github.com/misicnenad/fith-on/internal/remote"
	"github.com/misicnenad/fith-on/internal/sectionsync"
	"github.com/misicnenad/fith-on/internal/snapshot"
	"go.uber.org/zap"
)

// session is one connected engine plus the collaborators that must be closed after use.
type session struct {
	cfg      config.ClientConfig
	logger   *zap.Logger
	observer *netstate.Observer
	client   *remote.Client
	failures *remote.FailureLog
	cache    *snapshot.Store
	engine   *sectionsync.Engine
}

// alertWriter prints engine alerts for the user.
type alertWriter struct {
	w io.Writer
}

func (a alertWriter) Alert(message string) {
	fmt.Fprintf(a.w, "error: %s\n", message)
}

// openSession wires the engine, restores the offline cache and loads the collection.
func (c *cli) openSession(ctx context.Context) (*session, error) {
	cfg, err := config.LoadClient(c.viper)
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	client, err := remote.NewClient(remote.ClientConfig{
		BaseURL:    cfg.APIURL,
		Token:      cfg.APIToken,
		HTTPClient: &http.Client{Timeout: cfg.RequestTimeout},
	})
	if err != nil {
		return nil, err
	}

	observer := netstate.NewObserver(netstate.ObserverConfig{
		Prober:   client,
		Interval: cfg.ProbeInterval,
		Timeout:  cfg.RequestTimeout,
		Logger:   logger,
	})
	if cfg.Offline {
		observer.SetOffline(true)
	} else {
		observer.Check(ctx)
	}

	s := &session{
		cfg:      cfg,
		logger:   logger,
		observer: observer,
		client:   client,
		failures: remote.NewFailureLog(client, logger),
	}

	engineConfig := sectionsync.Config{
		Store:      client,
		Network:    observer,
		Identity:   sectionsync.StaticIdentity(cfg.UserKey),
		FailureLog: logging.FanOut{logging.NewFailureLogger(logger), s.failures},
		Alerter:    alertWriter{w: c.stderr},
		Logger:     logger,
	}
	if cfg.CachePath != "" {
		cache, err := snapshot.Open(cfg.CachePath)
		if err != nil {
			logger.Warn("offline cache unavailable", zap.String("path", cfg.CachePath), zap.Error(err))
		} else {
			s.cache = cache
			engineConfig.Cache = cache
		}
	}

	engine, err := sectionsync.NewEngine(engineConfig)
	if err != nil {
		s.close()
		return nil, err
	}
	s.engine = engine

	if err := engine.RestoreSnapshot(ctx); err != nil {
		logger.Warn("offline cache restore failed", zap.Error(err))
	}
	var opErr *sectionsync.OperationError
	if err := engine.Load(ctx); err != nil && !errors.As(err, &opErr) {
		s.close()
		return nil, err
	}
	return s, nil
}

// writable reports whether mutations will reach the API, explaining on w when not.
func (s *session) writable(w io.Writer) bool {
	err := s.engine.Preconditions()
	switch {
	case err == nil:
		return true
	case errors.Is(err, sectionsync.ErrOffline):
		fmt.Fprintln(w, "offline: nothing was changed")
	case errors.Is(err, sectionsync.ErrNoIdentity):
		fmt.Fprintln(w, "no user configured: set user.key or pass --user")
	default:
		fmt.Fprintf(w, "skipped: %v\n", err)
	}
	return false
}

func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
	defer cancel()
	if err := s.failures.Close(ctx); err != nil {
		s.logger.Debug("failure log not drained", zap.Error(err))
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Debug("closing offline cache", zap.Error(err))
		}
	}
	_ = s.logger.Sync()
}
