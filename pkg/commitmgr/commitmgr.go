// Package commitmgr defines the commit-manager collaborator interface the
// engine consumes after a transaction flushes: recording a new durable root
// under an external commit token, and later reclaiming areas superseded by
// a later commit. The core never implements garbage collection itself and
// never calls pkg/storeio.Store.FreeArea; the file store's FreeArea is a
// no-op, while the pebble store's deletes the area.
package commitmgr

import "github.com/ssargent/freyjatree/pkg/noderef"

// Commit records one durable snapshot: the token a caller used to refer to
// it, and the tree root it resolved to at commit time.
type Commit struct {
	Token string
	Root  noderef.NodeReference
}

// Manager is the consumed-only interface pkg/engine depends on. A real
// implementation would track reachability across commits and call
// Store.FreeArea for areas no longer reachable from any retained commit;
// that retention/GC policy is out of this module's scope.
type Manager interface {
	// Record associates token with root as of now, superseding any
	// previous root recorded under the same token.
	Record(token string, root noderef.NodeReference) error
	// Resolve returns the root most recently recorded under token.
	Resolve(token string) (noderef.NodeReference, bool)
	// History returns every commit ever recorded, oldest first, for
	// diagnostics and tests.
	History() []Commit
}

// InMemory is a no-op, non-persistent reference implementation: it
// remembers commits for the life of the process and never reclaims
// anything, never calling FreeArea on the backing store. It exists so
// pkg/engine and its tests have a concrete Manager without pulling in real
// GC policy.
type InMemory struct {
	latest  map[string]noderef.NodeReference
	history []Commit
}

// NewInMemory returns an empty InMemory commit manager.
func NewInMemory() *InMemory {
	return &InMemory{latest: make(map[string]noderef.NodeReference)}
}

// Record implements Manager.
func (m *InMemory) Record(token string, root noderef.NodeReference) error {
	m.latest[token] = root
	m.history = append(m.history, Commit{Token: token, Root: root})
	return nil
}

// Resolve implements Manager.
func (m *InMemory) Resolve(token string) (noderef.NodeReference, bool) {
	root, ok := m.latest[token]
	return root, ok
}

// History implements Manager.
func (m *InMemory) History() []Commit {
	out := make([]Commit, len(m.history))
	copy(out, m.history)
	return out
}

var _ Manager = (*InMemory)(nil)
