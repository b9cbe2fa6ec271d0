// Package openalex contains types for the subset of the OpenAlex works
// API this toolkit consumes and the filtered record shape it stores on
// disk.
package openalex

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// TopicLevel is one ancestor of a topic: a subfield, field or domain.
type TopicLevel struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// PrimaryTopic is the classification a work is most strongly associated
// with. The ancestor slots stay raw; records in the wild carry nulls
// and non-object values there.
type PrimaryTopic struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Score       float64         `json:"score,omitempty"`
	Subfield    json.RawMessage `json:"subfield,omitempty"`
	Field       json.RawMessage `json:"field,omitempty"`
	Domain      json.RawMessage `json:"domain,omitempty"`
}

// OpenAccess flags of a work.
type OpenAccess struct {
	IsOa     bool   `json:"is_oa"`
	OaStatus string `json:"oa_status,omitempty"`
	OaURL    string `json:"oa_url,omitempty"`
}

// Paper is the filtered work record kept in professor detail files,
// cut down from the full API work. The primary topic stays raw so a
// malformed value degrades per record, never per file.
type Paper struct {
	ID              string          `json:"id,omitempty"`
	DOI             string          `json:"doi,omitempty"`
	Title           string          `json:"title,omitempty"`
	PublicationDate string          `json:"publication_date,omitempty"`
	OpenAccess      *OpenAccess     `json:"open_access,omitempty"`
	PrimaryTopic    json.RawMessage `json:"primary_topic,omitempty"`
	Abstract        string          `json:"abstract,omitempty"`
	CitedByWorks    []Paper         `json:"cited_by_works,omitempty"`
	CitedWorks      []Paper         `json:"cited_works,omitempty"`
	CitedByCount    int64           `json:"cited_by_count,omitempty"`
	CitedCount      int64           `json:"cited_count,omitempty"`
}

// PublicationTime parses the publication date, which comes in a few
// shapes (full date, year-month, year).
func (p *Paper) PublicationTime() (time.Time, error) {
	return dateparse.ParseAny(p.PublicationDate)
}

// ShortID returns the bare OpenAlex identifier, e.g. W2153066044 for
// https://openalex.org/W2153066044. Bare ids pass through unchanged.
func ShortID(id string) string {
	if i := strings.LastIndex(id, "/"); i != -1 {
		return id[i+1:]
	}
	return id
}

// InvertedIndex is the abstract_inverted_index representation: word to
// positions.
type InvertedIndex map[string][]int

// Text reassembles the readable abstract from the index.
func (idx InvertedIndex) Text() string {
	if len(idx) == 0 {
		return ""
	}
	type wordPos struct {
		pos  int
		word string
	}
	var pairs []wordPos
	for word, positions := range idx {
		for _, pos := range positions {
			pairs = append(pairs, wordPos{pos, word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].pos < pairs[j].pos })
	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// WorksResponse is the works API envelope; results stay raw.
type WorksResponse struct {
	Meta struct {
		Count      int64  `json:"count"`
		Page       int64  `json:"page"`
		PerPage    int64  `json:"per_page"`
		NextCursor string `json:"next_cursor"`
	} `json:"meta"`
	Results []json.RawMessage `json:"results"`
}

// IsLast returns true if there are no more records to fetch.
func (wr *WorksResponse) IsLast() bool {
	return wr.Meta.NextCursor == ""
}

// ProfessorInfo describes one researcher in a detail file.
type ProfessorInfo struct {
	Name        string `json:"name"`
	AuthorID    string `json:"author_id"`
	Department  string `json:"department"`
	TotalPapers int64  `json:"total_papers"`
	FetchDate   string `json:"fetch_date,omitempty"`
}

// ProfessorRecord is the on-disk shape of one researcher's fetched
// publication records. Papers stay raw so a single malformed entry
// does not fail the whole file.
type ProfessorRecord struct {
	ProfessorInfo ProfessorInfo     `json:"professor_info"`
	Papers        []json.RawMessage `json:"papers"`
}
