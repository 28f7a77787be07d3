// Package memory implements the single-owner memory service described in
// spec §4.3: it exclusively owns the live knowledge graph, serializes all
// mutation through ingest, and serves synchronous, consistent-snapshot
// queries. Modeled on the teacher's single-goroutine Watcher.Run(ctx)
// ticker-loop shape (controlplane/monitor/internal/sol-balance/watcher.go),
// generalized here to a select loop over two request channels instead of
// one ticker, per spec §9 "model this as a single background task with
// an mpsc input channel".
package memory

import (
	"context"
	"log/slog"
	"time"

	"github.com/false-systems/nopea/internal/cache"
	"github.com/false-systems/nopea/internal/deploy"
	"github.com/false-systems/nopea/internal/graph"
	"github.com/false-systems/nopea/internal/id"
)

// decayInterval and decayFactor are fixed per spec §4.3/§9: not knobs.
const (
	decayInterval = time.Hour
	decayFactor   = 0.98
)

// ingestQueueSize bounds the fire-and-forget ingest channel. record_deploy
// never blocks the caller: if the queue is saturated the oldest-style
// backpressure would violate that guarantee, so a full queue drops the
// submission and logs a warning instead.
const ingestQueueSize = 1024

type ingestMsg struct {
	outcome deploy.Outcome
}

type queryMsg struct {
	fn   func(g *graph.Graph)
	done chan struct{}
}

// Service is the memory service. The zero value is not usable; construct
// with New.
type Service struct {
	log   *slog.Logger
	cache *cache.Cache

	ingestCh chan ingestMsg
	queryCh  chan queryMsg

	g *graph.Graph
}

// New constructs a memory service backed by c. It does not start the run
// loop; call Start.
func New(log *slog.Logger, c *cache.Cache) *Service {
	return &Service{
		log:      log,
		cache:    c,
		ingestCh: make(chan ingestMsg, ingestQueueSize),
		queryCh:  make(chan queryMsg),
		g:        graph.New(),
	}
}

// Start runs the service's owning goroutine until ctx is canceled. It
// restores the graph from the cache's snapshot slot first; a failed
// restore starts from an empty graph and logs a warning, per spec §4.3.
func (s *Service) Start(ctx context.Context) {
	s.restore()

	ticker := time.NewTicker(decayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.ingestCh:
			s.handleIngest(msg.outcome)
		case msg := <-s.queryCh:
			msg.fn(s.g)
			close(msg.done)
		case <-ticker.C:
			s.g.DecayAll(decayFactor)
			s.persist()
		}
	}
}

func (s *Service) restore() {
	if s.cache == nil {
		return
	}
	blob, ok := s.cache.GetGraphSnapshot()
	if !ok {
		return
	}
	g, err := decodeSnapshot(blob)
	if err != nil {
		s.log.Warn("memory: failed to restore graph snapshot, starting empty", "error", err)
		return
	}
	s.g = g
}

func (s *Service) persist() {
	if s.cache == nil {
		return
	}
	blob, err := encodeSnapshot(s.g)
	if err != nil {
		s.log.Warn("memory: failed to encode graph snapshot", "error", err)
		return
	}
	s.cache.PutGraphSnapshot(blob)
}

func (s *Service) handleIngest(outcome deploy.Outcome) {
	marker := id.New()
	if err := ingest(s.g, outcome, marker); err != nil {
		s.log.Warn("memory: ingest failed, graph unchanged", "error", err, "service", outcome.Service)
		return
	}
	s.persist()
}

// RecordDeploy submits a deploy outcome for ingestion. Non-blocking: it
// never waits on the owning goroutine and never fails observably to the
// caller, per spec §4.3/§5.
func (s *Service) RecordDeploy(outcome deploy.Outcome) {
	select {
	case s.ingestCh <- ingestMsg{outcome: outcome}:
	default:
		s.log.Warn("memory: ingest queue full, dropping deploy outcome", "service", outcome.Service)
	}
}

// query runs fn against the live graph on the owning goroutine and
// blocks the caller until it completes, giving synchronous,
// consistent-snapshot reads.
func (s *Service) query(fn func(g *graph.Graph)) {
	done := make(chan struct{})
	s.queryCh <- queryMsg{fn: fn, done: done}
	<-done
}

// GetDeployContext returns the query-rule-computed context for a
// service/namespace pair, per spec §4.3/§4.5.
func (s *Service) GetDeployContext(service, namespace string) Context {
	ctx := Context{Service: service, Namespace: namespace}
	s.query(func(g *graph.Graph) {
		serviceID := graph.NewNodeID(graph.KindConcept, graph.Canonicalize(graph.KindConcept, service))
		_, ok := g.GetNode(serviceID)
		ctx.Known = ok
		if !ok {
			return
		}
		ctx.FailurePatterns = failurePatterns(g, serviceID)
		ctx.Dependencies = dependencies(g, serviceID)
		ctx.Recommendations = recommendations(ctx.FailurePatterns)
	})
	return ctx
}

// GetGraph returns a deep-copied point-in-time snapshot of the live
// graph, safe to read without racing the owning goroutine.
func (s *Service) GetGraph() *graph.Graph {
	var out *graph.Graph
	s.query(func(g *graph.Graph) {
		out = g.Clone()
	})
	return out
}

// NodeCount and RelationshipCount are introspection helpers, per spec
// §4.3.
func (s *Service) NodeCount() int {
	var n int
	s.query(func(g *graph.Graph) { n = g.NodeCount() })
	return n
}

func (s *Service) RelationshipCount() int {
	var n int
	s.query(func(g *graph.Graph) { n = g.RelationshipCount() })
	return n
}
