// Package store keeps the TTL-bounded record of public peers seen on this
// host.
//
// The on-disk format is a single JSON object keyed by "<ip>|<direction>":
//
//	{"1.2.3.4|in": {"ip": "1.2.3.4", "direction": "in", "port": 22,
//	                "first_seen": 1700000000.5, "last_seen": 1700003600.1}}
//
// A Store is owned by one scan at a time. It is not safe for concurrent use.
package store

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/peerwatch/peerwatch/internal/constants"
	"github.com/peerwatch/peerwatch/internal/peer"
	"github.com/peerwatch/peerwatch/internal/safe"
)

// DefaultTTL is how long a peer is remembered after it was last seen.
const DefaultTTL = constants.DefaultTTL

// maxStoreSize bounds what Load is willing to read.
const maxStoreSize = 64 << 20

// Key identifies one store entry.
type Key struct {
	IP        string
	Direction peer.Direction
}

// String renders the key the way it is written to disk.
func (k Key) String() string {
	return k.IP + "|" + string(k.Direction)
}

// ParseKey parses an "<ip>|<direction>" key.
func ParseKey(s string) (Key, error) {
	i := strings.LastIndexByte(s, '|')
	if i <= 0 {
		return Key{}, fmt.Errorf("invalid store key %q", s)
	}
	dir, err := peer.ParseDirection(s[i+1:])
	if err != nil {
		return Key{}, fmt.Errorf("invalid store key %q: %w", s, err)
	}
	return Key{IP: s[:i], Direction: dir}, nil
}

// Entry is one remembered peer. Timestamps are Unix epoch seconds.
type Entry struct {
	IP        string         `json:"ip" jsonschema:"description=Peer IP address"`
	Direction peer.Direction `json:"direction" jsonschema:"enum=in,enum=out"`
	Port      int            `json:"port" jsonschema:"description=Local service port for in; peer port for out"`
	FirstSeen float64        `json:"first_seen" jsonschema:"description=Unix epoch seconds of the first observation"`
	LastSeen  float64        `json:"last_seen" jsonschema:"description=Unix epoch seconds of the latest observation"`
}

// Key returns the entry's key.
func (e Entry) Key() Key {
	return Key{IP: e.IP, Direction: e.Direction}
}

// Seen returns LastSeen, falling back to FirstSeen when LastSeen is unset.
func (e Entry) Seen() float64 {
	if e.LastSeen == 0 {
		return e.FirstSeen
	}
	return e.LastSeen
}

// Document is the serialized form of a store.
type Document map[string]Entry

// Store maps (ip, direction) to exactly one entry.
type Store struct {
	path    string
	entries map[Key]*Entry
	banned  peer.IPSet
	logger  zerolog.Logger
}

// New returns an empty store bound to path.
func New(path string, logger zerolog.Logger) *Store {
	return &Store{
		path:    path,
		entries: make(map[Key]*Entry),
		logger:  logger.With().Str("component", "store").Logger(),
	}
}

// Load reads the store at path. A missing, unreadable or corrupt file yields
// an empty store; Load never fails.
func Load(path string, logger zerolog.Logger) *Store {
	s := New(path, logger)

	data, err := safe.ReadFile(path, &safe.ReadOptions{MaxSize: maxStoreSize})
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", path).Msg("Unreadable store, starting empty")
		}
		return s
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Corrupt store, starting empty")
		return s
	}

	dropped := 0
	for raw, e := range doc {
		entry, ok := normalize(raw, e)
		if !ok {
			dropped++
			continue
		}
		s.entries[entry.Key()] = &entry
	}
	if dropped > 0 {
		s.logger.Warn().Int("dropped", dropped).Msg("Dropped malformed store entries")
	}

	return s
}

// normalize fills fields missing from an entry using its key and rejects
// entries that cannot be made consistent.
func normalize(raw string, e Entry) (Entry, bool) {
	if k, err := ParseKey(raw); err == nil {
		if e.IP == "" {
			e.IP = k.IP
		}
		if e.Direction == "" {
			e.Direction = k.Direction
		}
	}
	if e.IP == "" || !e.Direction.Valid() {
		return Entry{}, false
	}
	if e.FirstSeen == 0 && e.LastSeen == 0 {
		return Entry{}, false
	}
	if e.FirstSeen == 0 || (e.LastSeen != 0 && e.FirstSeen > e.LastSeen) {
		e.FirstSeen = e.Seen()
	}
	return e, true
}

// Path returns the file the store is saved to.
func (s *Store) Path() string {
	return s.path
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Get returns a copy of the entry for k.
func (s *Store) Get(k Key) (Entry, bool) {
	e, ok := s.entries[k]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// ExcludeBanned drops every entry whose IP is banned and remembers the set so
// that Merge refuses to re-add those IPs. It returns the number removed.
func (s *Store) ExcludeBanned(banned peer.IPSet) int {
	s.banned = banned

	removed := 0
	for k, e := range s.entries {
		if banned.Has(e.IP) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Merge records an observation of c at now. A new key gets
// FirstSeen = LastSeen = now; an existing key only has LastSeen bumped.
// Connections to banned peers are ignored. It reports whether the
// observation was stored and whether it created a new entry.
func (s *Store) Merge(c peer.Connection, now time.Time) (stored, created bool) {
	if s.banned.Has(c.PeerIP) {
		return false, false
	}

	ts := Epoch(now)
	k := Key{IP: c.PeerIP, Direction: c.Direction}

	if e, ok := s.entries[k]; ok {
		if ts > e.LastSeen {
			e.LastSeen = ts
		}
		return true, false
	}

	s.entries[k] = &Entry{
		IP:        c.PeerIP,
		Direction: c.Direction,
		Port:      c.ServicePort(),
		FirstSeen: ts,
		LastSeen:  ts,
	}
	return true, true
}

// PurgeExpired removes entries not seen within ttl of now and returns the
// number removed.
func (s *Store) PurgeExpired(now time.Time, ttl time.Duration) int {
	cutoff := Epoch(now) - ttl.Seconds()

	removed := 0
	for k, e := range s.entries {
		if e.Seen() <= cutoff {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Entries returns a snapshot of all entries, most recently seen first.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seen() != out[j].Seen() {
			return out[i].Seen() > out[j].Seen()
		}
		return out[i].Key().String() < out[j].Key().String()
	})
	return out
}

// Document returns the serializable form of the store.
func (s *Store) Document() Document {
	doc := make(Document, len(s.entries))
	for k, e := range s.entries {
		doc[k.String()] = *e
	}
	return doc
}

// Save writes the store atomically to its path.
func (s *Store) Save() error {
	data, err := json.Marshal(s.Document())
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	//nolint:gosec // G306: the map script runs unprivileged and must read the store.
	if err := safe.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save store: %w", err)
	}

	s.logger.Debug().Str("path", s.path).Int("entries", len(s.entries)).Msg("Store saved")
	return nil
}

// Epoch converts t to fractional Unix seconds.
func Epoch(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}

// Time converts fractional Unix seconds back to a time.Time.
func Time(epoch float64) time.Time {
	sec, frac := math.Modf(epoch)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
