// Package groupmanager implements the GroupManager external contract: a
// registry of in-memory collaborative editing groups, keyed by collab object
// id. A group's most recently seen encoded state is cached in an in-memory
// Badger instance (the teacher repo already ships a full Badger-backed
// relational datasource — here it plays the much smaller role of "shared
// resource with its own internal per-key locking", exactly what spec.md
// asks of the group manager's cache) so CollabStore.GetLatestEncoded can
// prefer it over a round trip to SQL storage.
package groupmanager

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/kasuganosora/collab-duplicator/pkg/collab"
	"github.com/kasuganosora/collab-duplicator/pkg/dupconfig"
	"github.com/kasuganosora/collab-duplicator/pkg/logging"
)

// BroadcastMessage is the one payload shape the duplicator ever sends: an
// encoded CRDT update, server-authored, tagged with the run's timestamp as
// msg_id.
type BroadcastMessage struct {
	ObjectID string
	Origin   collab.Origin
	MsgID    int64
	Payload  collab.EncodedV1
}

// Group is one in-memory collaborative editing session for a single object
// id. Real clients subscribe to receive updates; the duplicator only ever
// publishes to it.
type Group struct {
	objectID  string
	mu        sync.Mutex
	subs      map[int]chan BroadcastMessage
	nextSubID int
}

func newGroup(objectID string) *Group {
	return &Group{objectID: objectID, subs: make(map[int]chan BroadcastMessage)}
}

// Subscribe registers a new participant and returns its inbound channel.
// bufferSize mirrors the teacher's bounded mpsc channels: a slow or absent
// reader must never block the publisher.
func (g *Group) Subscribe(bufferSize int) (id int, ch <-chan BroadcastMessage) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id = g.nextSubID
	g.nextSubID++
	c := make(chan BroadcastMessage, bufferSize)
	g.subs[id] = c
	return id, c
}

// Unsubscribe removes and closes a participant's channel.
func (g *Group) Unsubscribe(id int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.subs[id]; ok {
		close(c)
		delete(g.subs, id)
	}
}

// TrySend delivers msg to every current subscriber without blocking. A full
// channel is counted as failed and otherwise ignored — broadcast is strictly
// best-effort (spec.md §5/§7): clients reconcile by re-reading storage.
func (g *Group) TrySend(msg BroadcastMessage) (sent, failed int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.subs {
		select {
		case c <- msg:
			sent++
		default:
			failed++
		}
	}
	return sent, failed
}

// Manager is the process-wide registry of live editing groups plus their
// snapshot cache.
type Manager struct {
	mu     sync.Mutex
	groups map[string]*Group
	cache  *badger.DB
}

// New opens the snapshot cache per cfg and returns an empty group registry.
func New(cfg dupconfig.GroupCacheConfig) (*Manager, error) {
	var opts badger.Options
	if cfg.InMemory || cfg.DataDir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.DataDir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("groupmanager: open snapshot cache: %w", err)
	}
	return &Manager{groups: make(map[string]*Group), cache: db}, nil
}

// Close releases the snapshot cache.
func (m *Manager) Close() error {
	return m.cache.Close()
}

// GetGroup returns the live editing group for objectID, if one exists.
func (m *Manager) GetGroup(objectID string) (*Group, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[objectID]
	return g, ok
}

// EnsureGroup registers (or returns the existing) live editing group for
// objectID — the production wiring would do this when a client opens the
// object; tests and the CLI fixture use it directly to simulate that.
func (m *Manager) EnsureGroup(objectID string) *Group {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[objectID]
	if !ok {
		g = newGroup(objectID)
		m.groups[objectID] = g
	}
	return g
}

// Snapshot returns the most recently cached encoded state for objectID. A nil
// Manager has no snapshots.
func (m *Manager) Snapshot(objectID string) (collab.EncodedV1, bool) {
	if m == nil {
		return collab.EncodedV1{}, false
	}
	var data []byte
	err := m.cache.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(objectID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return collab.EncodedV1{}, false
	}
	enc, err := collab.FromBytes(data)
	if err != nil {
		return collab.EncodedV1{}, false
	}
	return enc, true
}

// SetSnapshot records objectID's most up to date encoded state, as a real
// group would whenever a client pushes an update.
func (m *Manager) SetSnapshot(objectID string, enc collab.EncodedV1) error {
	return m.cache.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(objectID), enc.ToBytes())
	})
}

// BroadcastUpdate publishes update to objectID's live editing group, if one
// exists. A missing group or a full subscriber channel is logged and never
// propagated as an error, so a broadcast failure never fails the run or
// keeps the caller's transaction from committing.
func (m *Manager) BroadcastUpdate(logger logging.Logger, objectID string, update collab.EncodedV1, msgID int64) {
	g, ok := m.GetGroup(objectID)
	if !ok {
		if logger != nil {
			logger.Printf("[WARN] group not found for oid: %s", objectID)
		}
		return
	}
	sent, failed := g.TrySend(BroadcastMessage{
		ObjectID: objectID,
		Origin:   collab.OriginServer,
		MsgID:    msgID,
		Payload:  update,
	})
	if logger != nil {
		logger.Printf("[INFO] broadcast update to group %s: sent=%d failed=%d", objectID, sent, failed)
	}
}
