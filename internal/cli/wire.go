package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/peerwatch/peerwatch/internal/banlist"
	"github.com/peerwatch/peerwatch/internal/config"
	"github.com/peerwatch/peerwatch/internal/history"
	"github.com/peerwatch/peerwatch/internal/notify"
	"github.com/peerwatch/peerwatch/internal/peer"
	"github.com/peerwatch/peerwatch/internal/privilege"
	"github.com/peerwatch/peerwatch/internal/scan"
	"github.com/peerwatch/peerwatch/internal/sockstat"
	"github.com/peerwatch/peerwatch/internal/sys/command"
)

// fixOwnership is replaced in tests.
var fixOwnership = privilege.FixFileOwnership

// handBack returns files written under sudo to the invoking user.
func handBack(logger zerolog.Logger, paths ...string) {
	if err := fixOwnership(paths...); err != nil {
		logger.Warn().Err(err).Msg("Failed to hand files back to sudo user")
	}
}

// afterRun is the upkeep done after every saved pass: pruning history past
// its retention and fixing the ownership of the files the pass wrote.
func afterRun(cfg *config.Config, h *history.History, logger zerolog.Logger) func(context.Context, *scan.Report) {
	return func(ctx context.Context, r *scan.Report) {
		paths := []string{cfg.Store.Path, cfg.Metrics.Textfile}

		if h != nil {
			paths = append(paths, cfg.History.Path)
			if cfg.History.Retention > 0 {
				pruned, err := h.Prune(ctx, r.Started.Add(-cfg.History.Retention))
				if err != nil {
					logger.Warn().Err(err).Msg("Failed to prune history")
				} else if pruned > 0 {
					logger.Debug().Int64("pruned", pruned).Msg("Pruned history observations")
				}
			}
		}

		handBack(logger, paths...)
	}
}

// newSource builds the connection source selected by cfg.
func newSource(cfg config.SourceConfig, logger zerolog.Logger) (sockstat.Source, error) {
	switch cfg.Kind {
	case config.SourceSS:
		return sockstat.NewCommandSource(cfg.Command, command.ExecRunner{Timeout: cfg.Timeout}, cfg.Retries, logger), nil
	case config.SourceGopsutil:
		return sockstat.NewGopsutilSource(cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

// newBanlist builds the ban list provider; a disabled ban list is empty.
func newBanlist(cfg config.BanlistConfig, logger zerolog.Logger) banlist.Provider {
	if !cfg.Enabled {
		return banlist.Static(nil)
	}
	return banlist.NewFail2ban(cfg.Client, command.ExecRunner{Timeout: cfg.Timeout}, logger)
}

// newScanner wires a Scanner from cfg. The returned History, if any, is owned
// by the caller and must be closed.
func newScanner(cfg *config.Config, logger zerolog.Logger) (*scan.Scanner, *history.History, error) {
	source, err := newSource(cfg.Source, logger)
	if err != nil {
		return nil, nil, err
	}

	opts := scan.Options{
		StorePath:       cfg.Store.Path,
		TTL:             cfg.Store.TTL,
		IncomingPorts:   peer.NewPortSet(cfg.Classify.IncomingPorts...),
		Source:          source,
		Banlist:         newBanlist(cfg.Banlist, logger),
		Notifier:        notify.NewCommand(cfg.Notify.Command, command.ExecRunner{Timeout: cfg.Notify.Timeout}),
		MetricsTextfile: cfg.Metrics.Textfile,
		Logger:          logger,
	}

	var h *history.History
	if cfg.History.Enabled {
		h, err = history.Open(cfg.History.Path, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open history: %w", err)
		}
		opts.History = h
	}
	opts.AfterRun = afterRun(cfg, h, logger)

	s, err := scan.New(opts)
	if err != nil {
		if h != nil {
			_ = h.Close()
		}
		return nil, nil, err
	}
	return s, h, nil
}
