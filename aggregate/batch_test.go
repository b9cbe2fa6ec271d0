package aggregate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/segmentio/encoding/json"

	"github.com/yiruiw/taxokit/schema/openalex"
)

func TestOutputFilename(t *testing.T) {
	var cases = []struct {
		info openalex.ProfessorInfo
		want string
	}{
		{
			openalex.ProfessorInfo{Name: "Jane Doe", AuthorID: "A5012345678"},
			"topics_analysis_Jane_Doe_A5012345678.json",
		},
		{
			openalex.ProfessorInfo{Name: "A/B\\C", AuthorID: "A1"},
			"topics_analysis_A_B_C_A1.json",
		},
		{
			openalex.ProfessorInfo{},
			"topics_analysis_unknown_unknown.json",
		},
	}
	for _, c := range cases {
		if got := OutputFilename(c.info); got != c.want {
			t.Errorf("got %v, want %v", got, c.want)
		}
	}
}

func TestLoadRelationshipsMissingFile(t *testing.T) {
	if rels := LoadRelationships(filepath.Join(t.TempDir(), "nope.json")); rels != nil {
		t.Errorf("got %v, want nil", rels)
	}
}

func TestLoadRelationshipsGarbage(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "rels.json")
	if err := os.WriteFile(filename, []byte("{{{"), 0644); err != nil {
		t.Fatal(err)
	}
	if rels := LoadRelationships(filename); rels != nil {
		t.Errorf("got %v, want nil", rels)
	}
}

func writeDetailFile(t *testing.T, dir, name string, record *openalex.ProfessorRecord) {
	t.Helper()
	b, err := json.Marshal(record)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), b, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestProcessDir(t *testing.T) {
	var (
		inputDir  = t.TempDir()
		outputDir = t.TempDir()
	)
	writeDetailFile(t, inputDir, "jane_doe_A1_detail.json", &openalex.ProfessorRecord{
		ProfessorInfo: openalex.ProfessorInfo{Name: "Jane Doe", AuthorID: "A1"},
	})
	writeDetailFile(t, inputDir, "john_roe_A2_detail.json", &openalex.ProfessorRecord{
		ProfessorInfo: openalex.ProfessorInfo{Name: "John Roe", AuthorID: "A2"},
	})
	// two broken detail files and one unrelated file
	if err := os.WriteFile(filepath.Join(inputDir, "bad1_detail.json"), []byte("{{{"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(inputDir, "bad2_detail.json"), []byte("[1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(inputDir, "readme.txt"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	batch, err := ProcessDir(inputDir, nil, outputDir)
	if err != nil {
		t.Fatal(err)
	}
	if batch.Total != 4 || batch.Successful != 2 || batch.Failed != 2 {
		t.Errorf("got %+v, want total=4 successful=2 failed=2", batch)
	}
	for _, name := range []string{
		"topics_analysis_Jane_Doe_A1.json",
		"topics_analysis_John_Roe_A2.json",
	} {
		if _, err := os.Stat(filepath.Join(outputDir, name)); err != nil {
			t.Errorf("missing report: %v", err)
		}
	}
}

func TestProcessFileRoundtrip(t *testing.T) {
	var (
		inputDir  = t.TempDir()
		outputDir = t.TempDir()
	)
	record := &openalex.ProfessorRecord{
		ProfessorInfo: openalex.ProfessorInfo{Name: "Jane Doe", AuthorID: "A1"},
		Papers: []json.RawMessage{
			rawPaper(t, "W1", "A Paper", 4, mlTopic),
		},
	}
	writeDetailFile(t, inputDir, "jane_doe_A1_detail.json", record)
	if err := ProcessFile(filepath.Join(inputDir, "jane_doe_A1_detail.json"), nil, outputDir); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(outputDir, "topics_analysis_Jane_Doe_A1.json"))
	if err != nil {
		t.Fatal(err)
	}
	var result Result
	if err := json.Unmarshal(b, &result); err != nil {
		t.Fatal(err)
	}
	if result.ProfessorInfo.Name != "Jane Doe" {
		t.Errorf("got %q, want Jane Doe", result.ProfessorInfo.Name)
	}
	if result.TopicAnalysis.TotalTopics != 1 {
		t.Errorf("got %d topics, want 1", result.TopicAnalysis.TotalTopics)
	}
	report, ok := result.TopicAnalysis.TopicsWithPapers["https://openalex.org/T10101"]
	if !ok {
		t.Fatal("missing topic report")
	}
	if report.AvgCitations != 4.0 {
		t.Errorf("got avg %v, want 4.0", report.AvgCitations)
	}
}
