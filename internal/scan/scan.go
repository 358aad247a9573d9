// Package scan runs one snapshot pass: read the ban list, enumerate
// connections, notify and merge them into the peer store, expire old entries
// and save.
package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/peerwatch/peerwatch/internal/banlist"
	"github.com/peerwatch/peerwatch/internal/constants"
	"github.com/peerwatch/peerwatch/internal/history"
	"github.com/peerwatch/peerwatch/internal/metrics"
	"github.com/peerwatch/peerwatch/internal/notify"
	"github.com/peerwatch/peerwatch/internal/peer"
	"github.com/peerwatch/peerwatch/internal/sockstat"
	"github.com/peerwatch/peerwatch/internal/store"
)

// ErrEnumerate marks a run aborted because connections could not be listed.
// The store on disk is left untouched.
var ErrEnumerate = errors.New("connection enumeration failed")

// Report summarizes one run.
type Report struct {
	RunID         string        `json:"run_id"`
	Started       time.Time     `json:"started"`
	Duration      time.Duration `json:"duration"`
	Lines         int           `json:"lines"`
	Parsed        int           `json:"parsed"`
	Skipped       int           `json:"skipped"`
	New           int           `json:"new"`
	Refreshed     int           `json:"refreshed"`
	Banned        int           `json:"banned"`
	BannedEvicted int           `json:"banned_evicted"`
	Expired       int           `json:"expired"`
	Entries       int           `json:"entries"`
}

// Options configures a Scanner. Source and StorePath are required.
type Options struct {
	StorePath     string
	TTL           time.Duration
	IncomingPorts peer.PortSet

	Source   sockstat.Source
	Banlist  banlist.Provider
	Notifier notify.Notifier

	// History, when set, archives every merged observation.
	History history.Recorder
	// MetricsTextfile, when set, receives the run summary after a save.
	MetricsTextfile string
	// AfterRun, when set, is called after every saved run, including each
	// pass of Loop. It must not fail the run.
	AfterRun func(ctx context.Context, r *Report)

	// Clock defaults to time.Now.
	Clock  func() time.Time
	Logger zerolog.Logger
}

// Scanner composes the components of a run.
type Scanner struct {
	opts   Options
	logger zerolog.Logger
}

// New creates a Scanner, filling in defaults for optional fields.
func New(opts Options) (*Scanner, error) {
	if opts.Source == nil {
		return nil, errors.New("scan: source is required")
	}
	if opts.StorePath == "" {
		return nil, errors.New("scan: store path is required")
	}
	if opts.TTL <= 0 {
		opts.TTL = store.DefaultTTL
	}
	if opts.IncomingPorts == nil {
		opts.IncomingPorts = peer.NewPortSet(constants.DefaultIncomingPorts...)
	}
	if opts.Banlist == nil {
		opts.Banlist = banlist.Static(nil)
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Scanner{
		opts:   opts,
		logger: opts.Logger.With().Str("component", "scan").Logger(),
	}, nil
}

// Run performs one pass. Only enumeration and save failures are returned;
// everything else is logged and tolerated.
func (s *Scanner) Run(ctx context.Context) (*Report, error) {
	now := s.opts.Clock()
	report := &Report{RunID: uuid.NewString(), Started: now}
	logger := s.logger.With().Str("run_id", report.RunID).Logger()

	st := store.Load(s.opts.StorePath, logger)

	banned := s.opts.Banlist.Banned(ctx)
	report.Banned = len(banned)
	report.BannedEvicted = st.ExcludeBanned(banned)

	lines, err := s.opts.Source.Lines(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnumerate, err)
	}
	report.Lines = len(lines)

	conns, skipped := sockstat.ParseLines(lines, s.opts.IncomingPorts)
	report.Skipped = skipped

	var observed []history.Observation
	for _, c := range conns {
		if banned.Has(c.PeerIP) {
			continue
		}
		report.Parsed++

		if err := s.opts.Notifier.Notify(ctx, c); err != nil {
			logger.Debug().Err(err).Str("peer", c.PeerIP).Msg("Notifier failed")
		}

		stored, created := st.Merge(c, now)
		if !stored {
			continue
		}
		if created {
			report.New++
		} else {
			report.Refreshed++
		}
		if s.opts.History != nil {
			observed = append(observed, history.NewObservation(report.RunID, now, c))
		}
	}

	if s.opts.History != nil {
		if err := s.opts.History.Record(ctx, observed); err != nil {
			logger.Warn().Err(err).Msg("Failed to record history")
		}
	}

	report.Expired = st.PurgeExpired(now, s.opts.TTL)
	report.Entries = st.Len()

	if err := st.Save(); err != nil {
		return nil, err
	}
	report.Duration = s.opts.Clock().Sub(now)

	if s.opts.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(s.opts.MetricsTextfile, metricsRun(report, st)); err != nil {
			logger.Warn().Err(err).Msg("Failed to write metrics")
		}
	}

	logger.Info().
		Int("lines", report.Lines).
		Int("parsed", report.Parsed).
		Int("new", report.New).
		Int("refreshed", report.Refreshed).
		Int("banned_evicted", report.BannedEvicted).
		Int("expired", report.Expired).
		Int("entries", report.Entries).
		Msg("Scan complete")

	if s.opts.AfterRun != nil {
		s.opts.AfterRun(ctx, report)
	}

	return report, nil
}

// Loop runs a pass immediately and then every interval until ctx is done.
// Failed passes are logged; the loop keeps going.
func (s *Scanner) Loop(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		return fmt.Errorf("scan interval must be positive, got %s", every)
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if _, err := s.Run(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error().Err(err).Msg("Scan failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func metricsRun(r *Report, st *store.Store) metrics.Run {
	entries := make(map[peer.Direction]int, 2)
	for _, e := range st.Entries() {
		entries[e.Direction]++
	}
	return metrics.Run{
		Started:       r.Started,
		Duration:      r.Duration,
		Lines:         r.Lines,
		Parsed:        r.Parsed,
		Skipped:       r.Skipped,
		New:           r.New,
		Refreshed:     r.Refreshed,
		Banned:        r.Banned,
		BannedEvicted: r.BannedEvicted,
		Expired:       r.Expired,
		Entries:       entries,
	}
}
