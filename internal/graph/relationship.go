package graph

// Relation is the edge type connecting two knowledge-graph nodes, per
// spec §3. The set is extensible; only these three are required for the
// deploy memory.
type Relation string

const (
	RelationBreaks     Relation = "breaks"
	RelationDeployedTo Relation = "deployed_to"
	RelationDependsOn  Relation = "depends_on"
)

// RelKey identifies a relationship by its (source, relation, target)
// triple — the edge is otherwise unaddressed.
type RelKey struct {
	Source   NodeID
	Relation Relation
	Target   NodeID
}

// Relationship is a directed, typed, weighted edge. Evidence is appended
// on every reinforcement and never overwritten.
type Relationship struct {
	Source       NodeID
	Relation     Relation
	Target       NodeID
	Weight       float64
	Observations int
	FirstSeen    string
	LastSeen     string
	Evidence     []string
}

func (r *Relationship) Key() RelKey {
	return RelKey{Source: r.Source, Relation: r.Relation, Target: r.Target}
}

// Direction selects which end of a relationship neighbors() filters on.
type Direction int

const (
	DirectionOutgoing Direction = iota
	DirectionIncoming
)
