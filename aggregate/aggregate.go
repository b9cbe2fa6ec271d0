// Package aggregate reshapes one researcher's fetched publication
// records into a topic-centric report and an entity/relation graph.
package aggregate

import (
	"bytes"
	"encoding/json"

	log "github.com/sirupsen/logrus"

	"github.com/yiruiw/taxokit/schema/openalex"
	"github.com/yiruiw/taxokit/schema/taxonomy"
)

// PaperSummary is the per-paper slice kept in a topic bucket.
type PaperSummary struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	PublicationDate   string  `json:"publication_date"`
	DOI               string  `json:"doi"`
	CitedByCount      int64   `json:"cited_by_count"`
	PrimaryTopicScore float64 `json:"primary_topic_score"`
}

// TopicInfo carries the representative primary topic of a bucket. The
// ancestor slots are passed through raw, whatever form the source
// record had.
type TopicInfo struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Subfield    json.RawMessage `json:"subfield"`
	Field       json.RawMessage `json:"field"`
	Domain      json.RawMessage `json:"domain"`
}

// TopicReport is the per-topic section of the analysis.
type TopicReport struct {
	TopicInfo    TopicInfo      `json:"topic_info"`
	PaperCount   int            `json:"paper_count"`
	Papers       []PaperSummary `json:"papers"`
	AvgCitations float64        `json:"avg_citations"`
}

// TopicAnalysis summarizes all topics of one researcher.
// TotalPapersAnalyzed counts every entry of the input paper list,
// including malformed ones that land in no bucket.
type TopicAnalysis struct {
	TotalTopics         int                    `json:"total_topics"`
	TotalPapersAnalyzed int                    `json:"total_papers_analyzed"`
	TopicsWithPapers    map[string]TopicReport `json:"topics_with_papers"`
}

// Result is the complete aggregation output for one researcher.
type Result struct {
	ProfessorInfo openalex.ProfessorInfo `json:"professor_info"`
	TopicAnalysis TopicAnalysis          `json:"topic_analysis"`
	Taxonomy      taxonomy.Graph         `json:"taxonomy"`
}

// pair is an id/name tuple collected during the aggregation pass.
type pair struct {
	id, name string
}

// levelSet is an insertion-ordered dedup set of id/name pairs. Entries
// with an empty id or name are ignored; the first name seen for an id
// wins.
type levelSet struct {
	ids   map[string]bool
	items []pair
}

func newLevelSet() *levelSet {
	return &levelSet{ids: make(map[string]bool)}
}

func (s *levelSet) add(id, name string) {
	if id == "" || name == "" || s.ids[id] {
		return
	}
	s.ids[id] = true
	s.items = append(s.items, pair{id, name})
}

// state carries the accumulators for one aggregation pass. Nothing is
// shared across runs; each Aggregate call owns its state exclusively.
type state struct {
	buckets   map[string][]PaperSummary
	counts    map[string]int
	order     []string // topic ids in first-seen order
	topics    *levelSet
	subfields *levelSet
	fields    *levelSet
	domains   *levelSet
}

func newState() *state {
	return &state{
		buckets:   make(map[string][]PaperSummary),
		counts:    make(map[string]int),
		topics:    newLevelSet(),
		subfields: newLevelSet(),
		fields:    newLevelSet(),
		domains:   newLevelSet(),
	}
}

// asObject returns the members of a JSON object, or false when raw is
// empty, null, or not an object. This is the single validated-mapping
// accessor all defensive checks go through.
func asObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, false
	}
	return m, true
}

// decodePaper decodes one raw paper entry, or reports false when the
// entry is not a well-formed mapping.
func decodePaper(raw json.RawMessage) (*openalex.Paper, bool) {
	if _, ok := asObject(raw); !ok {
		return nil, false
	}
	var p openalex.Paper
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}
	return &p, true
}

// decodeTopic decodes a primary topic, or reports false when the value
// is missing, null, not a mapping, or an empty mapping.
func decodeTopic(raw json.RawMessage) (*openalex.PrimaryTopic, bool) {
	m, ok := asObject(raw)
	if !ok || len(m) == 0 {
		return nil, false
	}
	var pt openalex.PrimaryTopic
	if err := json.Unmarshal(raw, &pt); err != nil {
		return nil, false
	}
	return &pt, true
}

// decodeLevel decodes a subfield/field/domain slot; both id and
// display name must be present.
func decodeLevel(raw json.RawMessage) (*openalex.TopicLevel, bool) {
	m, ok := asObject(raw)
	if !ok || len(m) == 0 {
		return nil, false
	}
	var lv openalex.TopicLevel
	if err := json.Unmarshal(raw, &lv); err != nil {
		return nil, false
	}
	if lv.ID == "" || lv.DisplayName == "" {
		return nil, false
	}
	return &lv, true
}

// levelID returns only the id of a subfield/field/domain slot, without
// requiring a display name. The rescan counts use this weaker check.
func levelID(raw json.RawMessage) (string, bool) {
	m, ok := asObject(raw)
	if !ok || len(m) == 0 {
		return "", false
	}
	var lv openalex.TopicLevel
	if err := json.Unmarshal(raw, &lv); err != nil {
		return "", false
	}
	return lv.ID, true
}

// Aggregate builds the topic report and researcher graph for one
// professor record. The optional relationship list contributes
// hierarchy edges, pruned to entities present in the graph. The result
// is complete even for zero papers.
func Aggregate(record *openalex.ProfessorRecord, relationships []taxonomy.Relationship) *Result {
	st := newState()
	for _, raw := range record.Papers {
		paper, ok := decodePaper(raw)
		if !ok {
			continue
		}
		pt, ok := decodeTopic(paper.PrimaryTopic)
		if !ok {
			continue
		}
		if pt.ID == "" || pt.DisplayName == "" {
			continue
		}
		st.buckets[pt.ID] = append(st.buckets[pt.ID], PaperSummary{
			ID:                paper.ID,
			Title:             paper.Title,
			PublicationDate:   paper.PublicationDate,
			DOI:               paper.DOI,
			CitedByCount:      paper.CitedByCount,
			PrimaryTopicScore: pt.Score,
		})
		if len(st.buckets[pt.ID]) == 1 {
			st.order = append(st.order, pt.ID)
		}
		st.counts[pt.ID]++
		st.topics.add(pt.ID, pt.DisplayName)
		if lv, ok := decodeLevel(pt.Subfield); ok {
			st.subfields.add(lv.ID, lv.DisplayName)
		}
		if lv, ok := decodeLevel(pt.Field); ok {
			st.fields.add(lv.ID, lv.DisplayName)
		}
		if lv, ok := decodeLevel(pt.Domain); ok {
			st.domains.add(lv.ID, lv.DisplayName)
		}
	}
	result := &Result{
		ProfessorInfo: record.ProfessorInfo,
		TopicAnalysis: TopicAnalysis{
			TotalTopics:         len(st.buckets),
			TotalPapersAnalyzed: len(record.Papers),
			TopicsWithPapers:    make(map[string]TopicReport),
		},
	}
	for _, topicID := range st.order {
		papers := st.buckets[topicID]
		detail, ok := findTopicDetail(record.Papers, topicID)
		if !ok {
			continue
		}
		var total int64
		for _, p := range papers {
			total += p.CitedByCount
		}
		var avg float64
		if len(papers) > 0 {
			avg = float64(total) / float64(len(papers))
		}
		result.TopicAnalysis.TopicsWithPapers[topicID] = TopicReport{
			TopicInfo: TopicInfo{
				ID:          topicID,
				DisplayName: detail.DisplayName,
				Subfield:    detail.Subfield,
				Field:       detail.Field,
				Domain:      detail.Domain,
			},
			PaperCount:   len(papers),
			Papers:       papers,
			AvgCitations: avg,
		}
	}
	result.Taxonomy = buildGraph(record, st, relationships)
	return result
}

// findTopicDetail recovers one representative primary topic for a
// topic id; the first matching paper wins. O(topics x papers), input
// sizes are in the hundreds.
func findTopicDetail(papers []json.RawMessage, topicID string) (*openalex.PrimaryTopic, bool) {
	for _, raw := range papers {
		paper, ok := decodePaper(raw)
		if !ok {
			continue
		}
		pt, ok := decodeTopic(paper.PrimaryTopic)
		if !ok {
			continue
		}
		if pt.ID == topicID {
			return pt, true
		}
	}
	return nil, false
}

// countAtLevel counts papers whose primary topic carries the given
// ancestor id. Kept deliberately separate from the bucket counts; the
// two must agree for well-formed input.
func countAtLevel(papers []json.RawMessage, level Ancestor, id string) int {
	var n int
	for _, raw := range papers {
		paper, ok := decodePaper(raw)
		if !ok {
			continue
		}
		pt, ok := decodeTopic(paper.PrimaryTopic)
		if !ok {
			continue
		}
		var slot json.RawMessage
		switch level {
		case AncestorSubfield:
			slot = pt.Subfield
		case AncestorField:
			slot = pt.Field
		case AncestorDomain:
			slot = pt.Domain
		}
		if got, ok := levelID(slot); ok && got == id {
			n++
		}
	}
	return n
}

// Ancestor selects which primary topic slot a rescan count looks at.
type Ancestor string

const (
	AncestorSubfield Ancestor = "subfield"
	AncestorField    Ancestor = "field"
	AncestorDomain   Ancestor = "domain"
)

// countTopic recounts the papers of one topic with the same gate the
// bucket pass uses.
func countTopic(papers []json.RawMessage, topicID string) int {
	var n int
	for _, raw := range papers {
		paper, ok := decodePaper(raw)
		if !ok {
			continue
		}
		pt, ok := decodeTopic(paper.PrimaryTopic)
		if !ok {
			continue
		}
		if pt.ID == topicID && pt.DisplayName != "" {
			n++
		}
	}
	return n
}

func paperIDs(papers []PaperSummary) []string {
	ids := make([]string, len(papers))
	for i, p := range papers {
		ids[i] = p.ID
	}
	return ids
}

// buildGraph assembles the researcher graph: the professor node, one
// node per distinct ancestor and topic, works_on edges, and pruned
// hierarchy edges from the optional relationship list.
func buildGraph(record *openalex.ProfessorRecord, st *state, relationships []taxonomy.Relationship) taxonomy.Graph {
	var (
		info   = record.ProfessorInfo
		profID = "professor_" + info.AuthorID
		graph  taxonomy.Graph
	)
	graph.Entities = append(graph.Entities, taxonomy.Node{
		ID:   profID,
		Type: taxonomy.TypeProfessor,
		Name: info.Name,
		Properties: map[string]any{
			"author_id":    info.AuthorID,
			"department":   info.Department,
			"total_papers": info.TotalPapers,
			"total_topics": len(st.buckets),
		},
	})
	for _, d := range st.domains.items {
		graph.Entities = append(graph.Entities, taxonomy.Node{
			ID:   d.id,
			Type: taxonomy.TypeDomain,
			Name: d.name,
			Properties: map[string]any{
				"paper_count": countAtLevel(record.Papers, AncestorDomain, d.id),
			},
		})
	}
	for _, f := range st.fields.items {
		graph.Entities = append(graph.Entities, taxonomy.Node{
			ID:   f.id,
			Type: taxonomy.TypeField,
			Name: f.name,
			Properties: map[string]any{
				"paper_count": countAtLevel(record.Papers, AncestorField, f.id),
			},
		})
	}
	for _, s := range st.subfields.items {
		graph.Entities = append(graph.Entities, taxonomy.Node{
			ID:   s.id,
			Type: taxonomy.TypeSubfield,
			Name: s.name,
			Properties: map[string]any{
				"paper_count": countAtLevel(record.Papers, AncestorSubfield, s.id),
			},
		})
	}
	for _, tp := range st.topics.items {
		count := st.counts[tp.id]
		// The bucket count and the rescan count must agree; a
		// divergence is a defect in the input or in this code, worth
		// surfacing rather than resolving silently.
		if rescan := countTopic(record.Papers, tp.id); rescan != count {
			log.Warnf("paper count mismatch for topic %s: bucket=%d, rescan=%d", tp.id, count, rescan)
		}
		graph.Entities = append(graph.Entities, taxonomy.Node{
			ID:   tp.id,
			Type: taxonomy.TypeTopic,
			Name: tp.name,
			Properties: map[string]any{
				"paper_count": count,
				"papers":      paperIDs(st.buckets[tp.id]),
			},
		})
	}
	for _, topicID := range st.order {
		graph.Relations = append(graph.Relations, taxonomy.Relation{
			Source: profID,
			Target: topicID,
			Type:   taxonomy.RelWorksOn,
			Properties: map[string]any{
				"paper_count": st.counts[topicID],
				"papers":      paperIDs(st.buckets[topicID]),
			},
		})
	}
	if len(relationships) > 0 {
		present := make(map[string]bool)
		for _, e := range graph.Entities {
			present[e.ID] = true
		}
		for _, rel := range relationships {
			if !present[rel.ParentID] || !present[rel.ChildID] {
				continue
			}
			typ := rel.RelationshipType
			if typ == "" {
				typ = taxonomy.RelHierarchical
			}
			graph.Relations = append(graph.Relations, taxonomy.Relation{
				Source: rel.ParentID,
				Target: rel.ChildID,
				Type:   typ,
				Properties: map[string]any{
					"parent_name": rel.ParentName,
					"child_name":  rel.ChildName,
				},
			})
		}
	}
	return graph
}
