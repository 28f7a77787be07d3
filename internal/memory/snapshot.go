package memory

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/false-systems/nopea/internal/graph"
)

// snapshotVersion is bumped whenever the wire shape of snapshotPayload
// changes. decodeSnapshot rejects any other version rather than guessing
// at a migration, per spec §9 "never trust a snapshot that yields
// unexpected shape".
const snapshotVersion = 1

// maxSnapshotEntities bounds how many nodes or relationships a decoded
// snapshot may hold. The check runs after gob has decoded the whole blob,
// so it rejects an implausible snapshot but does not bound the memory the
// decoder itself allocates.
const maxSnapshotEntities = 10_000_000

type snapshotPayload struct {
	Version       int
	Nodes         []*graph.Node
	Relationships []*graph.Relationship
}

// encodeSnapshot serializes g into the cache's opaque graph_snapshot
// blob. Only internal/memory ever encodes or decodes this payload, per
// spec §9 "Snapshot format".
func encodeSnapshot(g *graph.Graph) ([]byte, error) {
	payload := snapshotPayload{Version: snapshotVersion}
	for _, n := range g.Nodes {
		payload.Nodes = append(payload.Nodes, n)
	}
	for _, r := range g.Relationships {
		payload.Relationships = append(payload.Relationships, r)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encode graph snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeSnapshot deserializes a previously-encoded blob back into a
// graph. After the gob decode, a bad version tag, an implausibly large
// entity count or a malformed entry is rejected rather than restored.
func decodeSnapshot(blob []byte) (*graph.Graph, error) {
	var payload snapshotPayload
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode graph snapshot: %w", err)
	}
	if payload.Version != snapshotVersion {
		return nil, fmt.Errorf("decode graph snapshot: unsupported version %d", payload.Version)
	}
	if len(payload.Nodes) > maxSnapshotEntities || len(payload.Relationships) > maxSnapshotEntities {
		return nil, fmt.Errorf("decode graph snapshot: implausible entity count (nodes=%d, relationships=%d)", len(payload.Nodes), len(payload.Relationships))
	}

	g := graph.New()
	for _, n := range payload.Nodes {
		if n == nil || n.ID == "" {
			return nil, fmt.Errorf("decode graph snapshot: malformed node entry")
		}
		g.Nodes[n.ID] = n
	}
	for _, r := range payload.Relationships {
		if r == nil {
			return nil, fmt.Errorf("decode graph snapshot: malformed relationship entry")
		}
		g.Relationships[r.Key()] = r
	}
	return g, nil
}
