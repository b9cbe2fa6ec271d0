package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/segmentio/encoding/json"

	"github.com/yiruiw/taxokit/schema/openalex"
)

func testProfessorInfo() openalex.ProfessorInfo {
	return openalex.ProfessorInfo{
		Name:       "Jane Doe",
		AuthorID:   "A5012345678",
		Department: "Computer Science",
	}
}

func worksHandler(t *testing.T, pages map[string]string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("page")
		if key == "" {
			key = r.URL.Query().Get("cursor")
		}
		body, ok := pages[key]
		if !ok {
			http.Error(w, "no such page", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, body)
	}
}

func TestFetchAuthorWorksPaginates(t *testing.T) {
	pages := map[string]string{
		"1": `{"meta": {"count": 3, "page": 1, "per_page": 2}, "results": [{"id": "W1"}, {"id": "W2"}]}`,
		"2": `{"meta": {"count": 3, "page": 2, "per_page": 2}, "results": [{"id": "W3"}]}`,
	}
	ts := httptest.NewServer(worksHandler(t, pages))
	defer ts.Close()
	h := &Harvester{
		Client:   ts.Client(),
		Endpoint: ts.URL,
		PerPage:  2,
	}
	works, err := h.FetchAuthorWorks(context.Background(), "https://openalex.org/A5012345678")
	if err != nil {
		t.Fatal(err)
	}
	if len(works) != 3 {
		t.Errorf("got %d works, want 3", len(works))
	}
}

func TestFetchAuthorWorksEmpty(t *testing.T) {
	pages := map[string]string{
		"1": `{"meta": {"count": 0}, "results": []}`,
	}
	ts := httptest.NewServer(worksHandler(t, pages))
	defer ts.Close()
	h := &Harvester{Client: ts.Client(), Endpoint: ts.URL}
	works, err := h.FetchAuthorWorks(context.Background(), "A1")
	if err != nil {
		t.Fatal(err)
	}
	if len(works) != 0 {
		t.Errorf("got %d works, want 0", len(works))
	}
}

func TestFetchTopicWorksCursor(t *testing.T) {
	pages := map[string]string{
		"*":    `{"meta": {"count": 4, "next_cursor": "abc"}, "results": [{"id": "W1"}, {"id": "W2"}]}`,
		"abc":  `{"meta": {"count": 4, "next_cursor": "def"}, "results": [{"id": "W3"}, {"id": "W4"}]}`,
		"def":  `{"meta": {"count": 4, "next_cursor": ""}, "results": []}`,
	}
	ts := httptest.NewServer(worksHandler(t, pages))
	defer ts.Close()
	h := &Harvester{Client: ts.Client(), Endpoint: ts.URL, PerPage: 2}
	works, err := h.FetchTopicWorks(context.Background(), "T10101", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(works) != 4 {
		t.Errorf("got %d works, want 4", len(works))
	}
}

func TestFetchTopicWorksCap(t *testing.T) {
	pages := map[string]string{
		"*": `{"meta": {"count": 4, "next_cursor": "abc"}, "results": [{"id": "W1"}, {"id": "W2"}]}`,
	}
	ts := httptest.NewServer(worksHandler(t, pages))
	defer ts.Close()
	h := &Harvester{Client: ts.Client(), Endpoint: ts.URL, PerPage: 2}
	works, err := h.FetchTopicWorks(context.Background(), "T10101", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(works) != 1 {
		t.Errorf("got %d works, want 1", len(works))
	}
}

func TestFetchErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer ts.Close()
	h := &Harvester{Client: ts.Client(), Endpoint: ts.URL}
	if _, err := h.FetchAuthorWorks(context.Background(), "A1"); err == nil {
		t.Error("got nil, want error")
	}
}

func TestFilterPaper(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "https://openalex.org/W1",
		"doi": "https://doi.org/10.1234/x",
		"title": "A Paper",
		"publication_date": "2023-05-01",
		"open_access": {"is_oa": true, "oa_status": "gold", "oa_url": "https://example.com/x.pdf"},
		"primary_topic": {"id": "https://openalex.org/T10101", "display_name": "Machine Learning"},
		"abstract_inverted_index": {"models": [2], "Deep": [0], "learning": [1]},
		"cited_by_count": 12,
		"ignored_field": {"huge": "payload"}
	}`)
	paper, err := FilterPaper(raw)
	if err != nil {
		t.Fatal(err)
	}
	if paper.Abstract != "Deep learning models" {
		t.Errorf("got abstract %q", paper.Abstract)
	}
	if paper.CitedByCount != 12 {
		t.Errorf("got %d citations, want 12", paper.CitedByCount)
	}
	if paper.OpenAccess == nil || !paper.OpenAccess.IsOa {
		t.Errorf("open access flags lost: %+v", paper.OpenAccess)
	}
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("2020-01-01", "2024-12-31")
	if err != nil {
		t.Fatal(err)
	}
	var cases = []struct {
		date string
		want bool
	}{
		{"2019-12-31", false},
		{"2020-01-01", true},
		{"2022-06-15", true},
		{"2024-12-31", true},
		{"2025-01-01", false},
	}
	for _, c := range cases {
		p := &openalex.Paper{PublicationDate: c.date}
		ti, err := p.PublicationTime()
		if err != nil {
			t.Fatal(err)
		}
		if got := w.Contains(ti); got != c.want {
			t.Errorf("Contains(%s): got %v, want %v", c.date, got, c.want)
		}
	}
}

func TestParseWindowOpenEnds(t *testing.T) {
	w, err := ParseWindow("", "")
	if err != nil {
		t.Fatal(err)
	}
	p := &openalex.Paper{PublicationDate: "1999-01-01"}
	ti, err := p.PublicationTime()
	if err != nil {
		t.Fatal(err)
	}
	if !w.Contains(ti) {
		t.Error("open window should contain everything")
	}
}

func TestBuildProfessorRecordWindow(t *testing.T) {
	works := []json.RawMessage{
		json.RawMessage(`{"id": "W1", "title": "Old", "publication_date": "2010-01-01"}`),
		json.RawMessage(`{"id": "W2", "title": "Recent", "publication_date": "2023-01-01"}`),
	}
	w, err := ParseWindow("2020-01-01", "")
	if err != nil {
		t.Fatal(err)
	}
	record := BuildProfessorRecord(testProfessorInfo(), works, w)
	if len(record.Papers) != 1 {
		t.Fatalf("got %d papers, want 1", len(record.Papers))
	}
	if record.ProfessorInfo.TotalPapers != 1 {
		t.Errorf("got total_papers %d, want 1", record.ProfessorInfo.TotalPapers)
	}
	if record.ProfessorInfo.FetchDate == "" {
		t.Error("missing fetch date")
	}
}

func TestRecordFilename(t *testing.T) {
	info := testProfessorInfo()
	if got, want := RecordFilename(info), "jane_doe_A5012345678_detail.json"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
