package aggregate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/segmentio/encoding/json"
	log "github.com/sirupsen/logrus"

	"github.com/yiruiw/taxokit/atomicfile"
	"github.com/yiruiw/taxokit/schema/openalex"
	"github.com/yiruiw/taxokit/schema/taxonomy"
)

// detailSuffix marks professor record files in a batch directory.
const detailSuffix = "_detail.json"

// LoadProfessorRecord reads one professor detail file.
func LoadProfessorRecord(filename string) (*openalex.ProfessorRecord, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var record openalex.ProfessorRecord
	if err := json.Unmarshal(b, &record); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	return &record, nil
}

// LoadRelationships reads a hierarchy relationship list. A missing or
// unreadable file is not fatal; the aggregation proceeds without
// hierarchy edges.
func LoadRelationships(filename string) []taxonomy.Relationship {
	b, err := os.ReadFile(filename)
	if err != nil {
		log.Warnf("relationships unavailable, graph will carry no hierarchy edges: %v", err)
		return nil
	}
	var relationships []taxonomy.Relationship
	if err := json.Unmarshal(b, &relationships); err != nil {
		log.Warnf("relationships unreadable, graph will carry no hierarchy edges: %v", err)
		return nil
	}
	return relationships
}

// SaveResult writes an aggregation result as indented JSON.
func SaveResult(filename string, result *Result) error {
	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(filename, b, 0644)
}

var filenameReplacer = strings.NewReplacer(" ", "_", "/", "_", "\\", "_")

// OutputFilename derives the report filename from the researcher's
// name and author id, with filesystem-hostile characters replaced.
func OutputFilename(info openalex.ProfessorInfo) string {
	name := info.Name
	if name == "" {
		name = "unknown"
	}
	authorID := info.AuthorID
	if authorID == "" {
		authorID = "unknown"
	}
	return fmt.Sprintf("topics_analysis_%s_%s.json", filenameReplacer.Replace(name), authorID)
}

// ProcessFile aggregates one professor detail file and writes the
// report into dir.
func ProcessFile(filename string, relationships []taxonomy.Relationship, dir string) error {
	record, err := LoadProfessorRecord(filename)
	if err != nil {
		return err
	}
	result := Aggregate(record, relationships)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	dst := filepath.Join(dir, OutputFilename(record.ProfessorInfo))
	if err := SaveResult(dst, result); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"professor": record.ProfessorInfo.Name,
		"topics":    result.TopicAnalysis.TotalTopics,
		"papers":    result.TopicAnalysis.TotalPapersAnalyzed,
		"output":    dst,
	}).Info("aggregated")
	return nil
}

// BatchResult summarizes a directory run.
type BatchResult struct {
	Total      int
	Successful int
	Failed     int
}

// ProcessDir aggregates every professor detail file in a directory.
// One broken file fails that file only; the batch continues.
func ProcessDir(dirname string, relationships []taxonomy.Relationship, outputDir string) (BatchResult, error) {
	entries, err := os.ReadDir(dirname)
	if err != nil {
		return BatchResult{}, err
	}
	var batch BatchResult
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), detailSuffix) {
			continue
		}
		batch.Total++
		filename := filepath.Join(dirname, entry.Name())
		if err := ProcessFile(filename, relationships, outputDir); err != nil {
			batch.Failed++
			log.Warnf("skipping %s: %v", filename, err)
			continue
		}
		batch.Successful++
	}
	log.WithFields(log.Fields{
		"total":      batch.Total,
		"successful": batch.Successful,
		"failed":     batch.Failed,
	}).Info("batch done")
	return batch, nil
}
