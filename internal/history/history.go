// Package history archives peer observations in DuckDB so that peers which
// have aged out of the JSON store can still be queried.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/peerwatch/peerwatch/internal/duckdb"
	pwerrors "github.com/peerwatch/peerwatch/internal/errors"
	"github.com/peerwatch/peerwatch/internal/peer"
	"github.com/peerwatch/peerwatch/internal/retry"
)

const schema = `
CREATE TABLE IF NOT EXISTS peers (
	ip         VARCHAR NOT NULL,
	direction  VARCHAR NOT NULL,
	port       INTEGER NOT NULL,
	first_seen TIMESTAMP NOT NULL,
	last_seen  TIMESTAMP NOT NULL,
	last_run   VARCHAR NOT NULL,
	PRIMARY KEY (ip, direction)
);

CREATE TABLE IF NOT EXISTS observations (
	run_id      VARCHAR NOT NULL,
	observed_at TIMESTAMP NOT NULL,
	ip          VARCHAR NOT NULL,
	direction   VARCHAR NOT NULL,
	local_ip    VARCHAR NOT NULL,
	local_port  INTEGER NOT NULL,
	peer_port   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_observations_observed_at ON observations(observed_at);
`

// PeerRow is one archived (ip, direction) pair.
type PeerRow struct {
	IP        string    `duckdb:"ip,pk" json:"ip"`
	Direction string    `duckdb:"direction,pk" json:"direction"`
	Port      int32     `duckdb:"port,immutable" json:"port"`
	FirstSeen time.Time `duckdb:"first_seen,immutable" json:"first_seen"`
	LastSeen  time.Time `duckdb:"last_seen" json:"last_seen"`
	LastRun   string    `duckdb:"last_run" json:"last_run"`
}

// Observation is one sighting of a connection during a scan.
type Observation struct {
	RunID      string    `duckdb:"run_id" json:"run_id"`
	ObservedAt time.Time `duckdb:"observed_at" json:"observed_at"`
	IP         string    `duckdb:"ip" json:"ip"`
	Direction  string    `duckdb:"direction" json:"direction"`
	LocalIP    string    `duckdb:"local_ip" json:"local_ip"`
	LocalPort  int32     `duckdb:"local_port" json:"local_port"`
	PeerPort   int32     `duckdb:"peer_port" json:"peer_port"`
}

// NewObservation converts a parsed connection into an Observation.
func NewObservation(runID string, at time.Time, c peer.Connection) Observation {
	return Observation{
		RunID:      runID,
		ObservedAt: at.UTC(),
		IP:         c.PeerIP,
		Direction:  string(c.Direction),
		LocalIP:    c.LocalIP,
		LocalPort:  int32(c.LocalPort), //nolint:gosec // ports fit in int32.
		PeerPort:   int32(c.PeerPort),  //nolint:gosec // ports fit in int32.
	}
}

// Recorder is what the scanner needs from the archive.
type Recorder interface {
	Record(ctx context.Context, obs []Observation) error
}

// History is the DuckDB-backed archive.
type History struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (creating if needed) the archive at path. An empty path opens
// an in-memory archive.
func Open(path string, logger zerolog.Logger) (*History, error) {
	db, err := duckdb.OpenDB(path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		pwerrors.DeferClose(logger, db, "failed to close history database")
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &History{
		db:     db,
		logger: logger.With().Str("component", "history").Logger(),
	}, nil
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

// conflictRetry retries a run's transaction when DuckDB reports a write
// conflict with another process using the same file.
var conflictRetry = retry.Config{
	MaxRetries:     5,
	InitialBackoff: 10 * time.Millisecond,
	MaxBackoff:     200 * time.Millisecond,
	Jitter:         0.1,
}

// Record upserts the peers table and appends the raw observations in one
// transaction.
func (h *History) Record(ctx context.Context, obs []Observation) error {
	if len(obs) == 0 {
		return nil
	}

	return retry.Do(ctx, conflictRetry, func() error {
		return h.record(ctx, obs)
	}, duckdb.IsTransactionConflict)
}

func (h *History) record(ctx context.Context, obs []Observation) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer pwerrors.DeferRollback(h.logger, tx)

	peers := make(map[string]*PeerRow, len(obs))
	order := make([]string, 0, len(obs))
	rows := make([]*Observation, 0, len(obs))

	for i := range obs {
		o := obs[i]
		rows = append(rows, &o)

		port := o.LocalPort
		if peer.Direction(o.Direction) == peer.DirectionOut {
			port = o.PeerPort
		}

		key := o.IP + "|" + o.Direction
		p, ok := peers[key]
		if !ok {
			peers[key] = &PeerRow{
				IP:        o.IP,
				Direction: o.Direction,
				Port:      port,
				FirstSeen: o.ObservedAt,
				LastSeen:  o.ObservedAt,
				LastRun:   o.RunID,
			}
			order = append(order, key)
			continue
		}
		if o.ObservedAt.After(p.LastSeen) {
			p.LastSeen = o.ObservedAt
			p.LastRun = o.RunID
		}
	}

	peerRows := make([]*PeerRow, 0, len(order))
	for _, key := range order {
		peerRows = append(peerRows, peers[key])
	}

	if err := duckdb.NewTable[PeerRow](tx, "peers").BatchUpsert(ctx, peerRows); err != nil {
		return fmt.Errorf("upsert peers: %w", err)
	}
	if err := duckdb.NewTable[Observation](tx, "observations").BatchUpsert(ctx, rows); err != nil {
		return fmt.Errorf("insert observations: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history tx: %w", err)
	}

	h.logger.Debug().
		Int("peers", len(peerRows)).
		Int("observations", len(rows)).
		Msg("Recorded observations")
	return nil
}

// Prune deletes observations older than before and returns how many were
// removed. The peers table is kept.
func (h *History) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := h.db.ExecContext(ctx, "DELETE FROM observations WHERE observed_at < ?", before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune observations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Query narrows List results.
type Query struct {
	Direction peer.Direction
	// Since drops rows last seen (or observed) before it; zero keeps all.
	Since time.Time
	Limit int
}

// Peers lists archived peers, most recently seen first.
func (h *History) Peers(ctx context.Context, q Query) ([]*PeerRow, error) {
	rows, err := duckdb.NewTable[PeerRow](h.db, "peers").List(ctx, listOptions(q))
	if err != nil {
		return nil, fmt.Errorf("list peers: %w", err)
	}
	return filterSince(rows, q.Since, func(r *PeerRow) time.Time { return r.LastSeen }), nil
}

// Observations lists raw observations, newest first.
func (h *History) Observations(ctx context.Context, q Query) ([]*Observation, error) {
	opts := listOptions(q)
	opts.OrderBy = "-observed_at"

	rows, err := duckdb.NewTable[Observation](h.db, "observations").List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	return filterSince(rows, q.Since, func(r *Observation) time.Time { return r.ObservedAt }), nil
}

func listOptions(q Query) duckdb.ListOptions {
	opts := duckdb.ListOptions{OrderBy: "-last_seen"}
	if q.Direction != "" {
		opts.Filters = map[string]any{"direction": string(q.Direction)}
	}
	// Rows come back newest first, so limiting before the Since filter
	// keeps the same rows as limiting after it.
	opts.Limit = q.Limit
	return opts
}

func filterSince[T any](rows []*T, since time.Time, at func(*T) time.Time) []*T {
	if since.IsZero() {
		return rows
	}
	out := rows[:0]
	for _, r := range rows {
		if !at(r).Before(since) {
			out = append(out, r)
		}
	}
	return out
}
