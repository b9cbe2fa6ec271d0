// Package taxonomy contains the graph shapes shared by the hierarchy
// extractor and the topic aggregator: flat entities and parent-child
// relationships on the extraction side, nodes and typed relations on
// the aggregation side.
package taxonomy

// Entity types.
const (
	TypeDomain    = "domain"
	TypeField     = "field"
	TypeSubfield  = "subfield"
	TypeTopic     = "topic"
	TypeProfessor = "professor"
)

// Relationship and relation types. Parent to child, except works_on,
// which points from a professor to a topic.
const (
	RelDomainToField   = "domain_to_field"
	RelFieldToSubfield = "field_to_subfield"
	RelSubfieldToTopic = "subfield_to_topic"
	RelWorksOn         = "works_on"
	RelHierarchical    = "hierarchical"
)

// Entity is one node of the reference hierarchy, with the synthesized
// OpenAlex id and the raw id from the reference table. Keywords,
// summary and link are only present on topic entities.
type Entity struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	OriginalID string `json:"original_id"`
	Type       string `json:"type"`
	Keywords   string `json:"keywords,omitempty"`
	Summary    string `json:"summary,omitempty"`
	Link       string `json:"link,omitempty"`
}

// Relationship is one directed parent-child edge of the reference
// hierarchy, as written by the extractor and consumed by the
// aggregator.
type Relationship struct {
	ParentID         string `json:"parent_id"`
	ParentName       string `json:"parent_name"`
	ChildID          string `json:"child_id"`
	ChildName        string `json:"child_name"`
	RelationshipType string `json:"relationship_type"`
}

// Node is a graph node in a researcher graph, with free-form
// properties.
type Node struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties"`
}

// Relation is a directed, typed edge between two node ids.
type Relation struct {
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// Graph groups the nodes and relations of one researcher graph.
type Graph struct {
	Entities  []Node     `json:"entities"`
	Relations []Relation `json:"relations"`
}
