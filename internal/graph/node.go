package graph

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Kind is the knowledge-graph node category, per spec §3.
type Kind string

const (
	KindConcept Kind = "concept"
	KindError   Kind = "error"
)

// NodeID is a content-addressed identifier: the hex-encoded low 16 bytes
// of a BLAKE2b-256 digest of the node's canonical (kind, name) pair.
type NodeID string

// Canonicalize applies the per-kind name normalization from spec §3:
// error names are lowercased, concept names are preserved verbatim.
func Canonicalize(kind Kind, name string) string {
	if kind == KindError {
		return strings.ToLower(name)
	}
	return name
}

// NewNodeID computes the content-addressed id for (kind, canonicalName).
// Identical inputs always produce identical ids.
func NewNodeID(kind Kind, canonicalName string) NodeID {
	sum := blake2b.Sum256([]byte(string(kind) + "\x00" + canonicalName))
	return NodeID(hex.EncodeToString(sum[:16]))
}

// Node is a knowledge-graph entity: a service, a namespace, or a
// normalized error tag, reinforced over time by EWMA.
type Node struct {
	ID            NodeID
	Kind          Kind
	CanonicalName string
	Relevance     float64
	Observations  int
	FirstSeen     string
	LastSeen      string
}
