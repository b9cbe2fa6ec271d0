// Package hierarchy reconstructs domain, field, subfield and topic
// subtrees from the flat OpenAlex topic reference table.
package hierarchy

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	gzip "github.com/klauspost/pgzip"
	log "github.com/sirupsen/logrus"

	"github.com/yiruiw/taxokit/schema/taxonomy"
)

// Reference table layout:
// [0] topic_id, [1] topic_name, [2] subfield_id, [3] subfield_name,
// [4] field_id, [5] field_name, [6] domain_id, [7] domain_name,
// [8] keywords, [9] summary, [10] link
const numColumns = 11

var (
	ErrShortRow = errors.New("short row")
	ErrNotFound = errors.New("node not found")
)

// Row is one parsed line of the reference table.
type Row struct {
	TopicID      string
	TopicName    string
	SubfieldID   string
	SubfieldName string
	FieldID      string
	FieldName    string
	DomainID     string
	DomainName   string
	Keywords     string
	Summary      string
	Link         string
}

// ParseRow splits a tab separated line into a Row. Lines with fewer
// than 11 columns are malformed.
func ParseRow(line string) (*Row, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(fields) < numColumns {
		return nil, ErrShortRow
	}
	return &Row{
		TopicID:      fields[0],
		TopicName:    fields[1],
		SubfieldID:   fields[2],
		SubfieldName: fields[3],
		FieldID:      fields[4],
		FieldName:    fields[5],
		DomainID:     fields[6],
		DomainName:   fields[7],
		Keywords:     fields[8],
		Summary:      fields[9],
		Link:         fields[10],
	}, nil
}

// ParseRows reads the reference table line by line. Short rows are
// skipped with a warning, processing continues.
func ParseRows(r io.Reader) ([]Row, error) {
	var (
		scanner = bufio.NewScanner(r)
		rows    []Row
		lineNum int
	)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		row, err := ParseRow(line)
		if err != nil {
			log.Warnf("skipping line %d: %v", lineNum, err)
			continue
		}
		rows = append(rows, *row)
	}
	return rows, scanner.Err()
}

// ReadRows reads the reference table from a file, transparently
// handling gzip compressed tables.
func ReadRows(filename string) ([]Row, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var r io.Reader = f
	if strings.HasSuffix(filename, ".gz") {
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		r = gr
	}
	return ParseRows(r)
}

// Level of the classification hierarchy a target node sits at. Topics
// are leaves and cannot be extraction targets.
type Level string

const (
	LevelDomain   Level = "domain"
	LevelField    Level = "field"
	LevelSubfield Level = "subfield"
)

// LocateLevel scans the rows once and returns the first level at which
// a row's name exactly equals the target, domain checked before field
// before subfield. No normalization, no case folding.
func LocateLevel(target string, rows []Row) (Level, error) {
	for _, row := range rows {
		switch target {
		case row.DomainName:
			return LevelDomain, nil
		case row.FieldName:
			return LevelField, nil
		case row.SubfieldName:
			return LevelSubfield, nil
		}
	}
	return "", ErrNotFound
}

// Synthesized OpenAlex id prefixes.
const (
	domainPrefix   = "https://openalex.org/domains/"
	fieldPrefix    = "https://openalex.org/fields/"
	subfieldPrefix = "https://openalex.org/subfields/"
	topicPrefix    = "https://openalex.org/T"
)

// ExtractSubtree scans the rows a second time and emits entities for
// every level at or below the target, plus the edges connecting
// consecutive emitted levels. Entities are deduplicated by id, first
// occurrence wins; the domain_to_field and field_to_subfield edges are
// emitted only when the child entity is first seen. Topic entities and
// subfield_to_topic edges are emitted once per qualifying row and are
// never deduplicated, the reference table is expected to carry each
// topic once.
func ExtractSubtree(target string, level Level, rows []Row) ([]taxonomy.Entity, []taxonomy.Relationship) {
	var (
		entities      []taxonomy.Entity
		relationships []taxonomy.Relationship
		seen          = make(map[string]bool)
	)
	for _, row := range rows {
		var match bool
		switch level {
		case LevelDomain:
			match = row.DomainName == target
		case LevelField:
			match = row.FieldName == target
		case LevelSubfield:
			match = row.SubfieldName == target
		}
		if !match {
			continue
		}
		var (
			domainID   = domainPrefix + row.DomainID
			fieldID    = fieldPrefix + row.FieldID
			subfieldID = subfieldPrefix + row.SubfieldID
			topicID    = topicPrefix + row.TopicID
		)
		if level == LevelDomain && !seen[domainID] {
			entities = append(entities, taxonomy.Entity{
				ID:         domainID,
				Name:       row.DomainName,
				OriginalID: row.DomainID,
				Type:       taxonomy.TypeDomain,
			})
			seen[domainID] = true
		}
		if (level == LevelDomain || level == LevelField) && !seen[fieldID] {
			entities = append(entities, taxonomy.Entity{
				ID:         fieldID,
				Name:       row.FieldName,
				OriginalID: row.FieldID,
				Type:       taxonomy.TypeField,
			})
			seen[fieldID] = true
			if level == LevelDomain {
				relationships = append(relationships, taxonomy.Relationship{
					ParentID:         domainID,
					ParentName:       row.DomainName,
					ChildID:          fieldID,
					ChildName:        row.FieldName,
					RelationshipType: taxonomy.RelDomainToField,
				})
			}
		}
		if !seen[subfieldID] {
			entities = append(entities, taxonomy.Entity{
				ID:         subfieldID,
				Name:       row.SubfieldName,
				OriginalID: row.SubfieldID,
				Type:       taxonomy.TypeSubfield,
			})
			seen[subfieldID] = true
			if level == LevelDomain || level == LevelField {
				relationships = append(relationships, taxonomy.Relationship{
					ParentID:         fieldID,
					ParentName:       row.FieldName,
					ChildID:          subfieldID,
					ChildName:        row.SubfieldName,
					RelationshipType: taxonomy.RelFieldToSubfield,
				})
			}
		}
		entities = append(entities, taxonomy.Entity{
			ID:         topicID,
			Name:       row.TopicName,
			OriginalID: row.TopicID,
			Type:       taxonomy.TypeTopic,
			Keywords:   row.Keywords,
			Summary:    row.Summary,
			Link:       row.Link,
		})
		relationships = append(relationships, taxonomy.Relationship{
			ParentID:         subfieldID,
			ParentName:       row.SubfieldName,
			ChildID:          topicID,
			ChildName:        row.TopicName,
			RelationshipType: taxonomy.RelSubfieldToTopic,
		})
	}
	return entities, relationships
}

// Extract locates the target node and extracts its subtree in one
// call.
func Extract(target string, rows []Row) ([]taxonomy.Entity, []taxonomy.Relationship, error) {
	level, err := LocateLevel(target, rows)
	if err != nil {
		return nil, nil, err
	}
	entities, relationships := ExtractSubtree(target, level, rows)
	return entities, relationships, nil
}

var slugReplacer = strings.NewReplacer(" ", "_", "&", "and", ",", "", "(", "", ")", "")

// Slugify turns a node name into a filename safe slug, e.g. "Computer
// Science" becomes computer_science.
func Slugify(name string) string {
	return slugReplacer.Replace(strings.ToLower(name))
}
