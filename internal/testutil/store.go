package testutil

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/peerwatch/peerwatch/internal/peer"
	"github.com/peerwatch/peerwatch/internal/store"
)

// NewEntry builds a store entry first and last seen at seen.
func NewEntry(ip string, dir peer.Direction, port int, seen time.Time) store.Entry {
	ts := store.Epoch(seen)
	return store.Entry{IP: ip, Direction: dir, Port: port, FirstSeen: ts, LastSeen: ts}
}

// WriteStore writes entries to path in the on-disk store format.
func WriteStore(t *testing.T, path string, entries ...store.Entry) {
	t.Helper()

	doc := store.Document{}
	for _, e := range entries {
		doc[e.Key().String()] = e
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("failed to encode store: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write store: %v", err)
	}
}
