package graph

import (
	"cmp"
	"slices"

	"github.com/OFFIS-RIT/threatmap/pkg/common"
)

// Node is an entity in the relationship network.
type Node struct {
	ID          string       `json:"id"`
	ThreatLevel common.Level `json:"threat_level"`
	ThreatType  common.Text  `json:"threat_type"`
	Location    common.Text  `json:"location"`
	Degree      int          `json:"degree"`
}

// Edge connects two entities. Records for the same unordered pair are merged
// into one edge that keeps the highest threat level.
type Edge struct {
	From        string        `json:"from"`
	To          string        `json:"to"`
	ThreatLevel common.Level  `json:"threat_level"`
	Summaries   []common.Text `json:"summaries"`
	Records     int           `json:"records"`
}

// Network is the node/edge view of a record set.
type Network struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// BuildNetwork merges records into a network. Nodes appear in the order their
// entity is first seen. A node carries the highest threat level of any record
// it takes part in; type and location come from the first record that has them.
func BuildNetwork(records []common.RelationshipRecord) Network {
	var network Network
	nodeIndex := make(map[string]int)
	edgeIndex := make(map[[2]string]int)

	addNode := func(name string, level common.Level, threatType, location common.Text) {
		i, ok := nodeIndex[name]
		if !ok {
			nodeIndex[name] = len(network.Nodes)
			network.Nodes = append(network.Nodes, Node{
				ID:          name,
				ThreatLevel: level,
				ThreatType:  threatType,
				Location:    location,
			})
			return
		}
		n := &network.Nodes[i]
		n.ThreatLevel = max(n.ThreatLevel, level)
		if n.ThreatType.IsMissing() {
			n.ThreatType = threatType
		}
		if n.Location.IsMissing() {
			n.Location = location
		}
	}

	for _, r := range records {
		if r.Entity1.IsMissing() || r.Entity2.IsMissing() || r.Entity1.Value == r.Entity2.Value {
			continue
		}
		from, to := r.Entity1.Value, r.Entity2.Value
		level := r.ThreatAssessment.ThreatLevel
		threatType := r.ThreatAssessment.Type

		addNode(from, level, threatType, r.OriginLocation1)
		addNode(to, level, threatType, r.OriginLocation2)

		key := [2]string{from, to}
		if from > to {
			key = [2]string{to, from}
		}
		if i, ok := edgeIndex[key]; ok {
			e := &network.Edges[i]
			e.ThreatLevel = max(e.ThreatLevel, level)
			e.Records++
			if !r.RelationshipSummary.IsMissing() {
				e.Summaries = append(e.Summaries, r.RelationshipSummary)
			}
			continue
		}

		edge := Edge{From: from, To: to, ThreatLevel: level, Records: 1}
		if !r.RelationshipSummary.IsMissing() {
			edge.Summaries = []common.Text{r.RelationshipSummary}
		}
		edgeIndex[key] = len(network.Edges)
		network.Edges = append(network.Edges, edge)
		network.Nodes[nodeIndex[from]].Degree++
		network.Nodes[nodeIndex[to]].Degree++
	}

	return network
}

// ThreatCount is the number of records an entity appears in at a threat level.
type ThreatCount struct {
	Entity      string       `json:"entity"`
	ThreatLevel common.Level `json:"threat_level"`
	Count       int          `json:"count"`
}

// CountThreats counts, per entity and threat level, the records the entity
// takes part in. Results are sorted by entity, then level.
func CountThreats(records []common.RelationshipRecord) []ThreatCount {
	type key struct {
		entity string
		level  common.Level
	}
	counts := make(map[key]int)
	for _, r := range records {
		for _, e := range []common.Text{r.Entity1, r.Entity2} {
			if e.IsMissing() {
				continue
			}
			counts[key{e.Value, r.ThreatAssessment.ThreatLevel}]++
		}
	}

	out := make([]ThreatCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, ThreatCount{Entity: k.entity, ThreatLevel: k.level, Count: n})
	}
	slices.SortFunc(out, func(a, b ThreatCount) int {
		return cmp.Or(cmp.Compare(a.Entity, b.Entity), cmp.Compare(a.ThreatLevel, b.ThreatLevel))
	})
	return out
}
