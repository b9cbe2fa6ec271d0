package hierarchy

import (
	"os"
	"path/filepath"

	"github.com/segmentio/encoding/json"

	"github.com/yiruiw/taxokit/atomicfile"
	"github.com/yiruiw/taxokit/schema/taxonomy"
)

// WriteFiles writes the entity and relationship lists to
// {slug}_entities.json and {slug}_relationships.json under dir,
// creating the directory if necessary. Returns the two filenames.
func WriteFiles(dir, name string, entities []taxonomy.Entity, relationships []taxonomy.Relationship) (string, string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", err
	}
	var (
		slug              = Slugify(name)
		entitiesFile      = filepath.Join(dir, slug+"_entities.json")
		relationshipsFile = filepath.Join(dir, slug+"_relationships.json")
	)
	if err := writeJSON(entitiesFile, entities); err != nil {
		return "", "", err
	}
	if err := writeJSON(relationshipsFile, relationships); err != nil {
		return "", "", err
	}
	return entitiesFile, relationshipsFile, nil
}

func writeJSON(filename string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(filename, b, 0644)
}

// Stats counts entities and relationships by type.
type Stats struct {
	Entities      map[string]int
	Relationships map[string]int
}

// Summarize computes counts by type for an extraction result.
func Summarize(entities []taxonomy.Entity, relationships []taxonomy.Relationship) Stats {
	stats := Stats{
		Entities:      make(map[string]int),
		Relationships: make(map[string]int),
	}
	for _, e := range entities {
		stats.Entities[e.Type]++
	}
	for _, r := range relationships {
		stats.Relationships[r.RelationshipType]++
	}
	return stats
}
