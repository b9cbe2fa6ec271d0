package download

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/yiruiw/taxokit/schema/openalex"
)

var fakePDF = append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte("x"), 2048)...)

func TestCollectTasks(t *testing.T) {
	record := &openalex.ProfessorRecord{
		ProfessorInfo: openalex.ProfessorInfo{Name: "Jane Doe", AuthorID: "A1"},
		Papers: []json.RawMessage{
			json.RawMessage(`{
				"id": "https://openalex.org/W1",
				"title": "Open",
				"open_access": {"is_oa": true, "oa_url": "https://example.com/w1.pdf"},
				"cited_by_works": [
					{"id": "https://openalex.org/W2", "open_access": {"is_oa": true, "oa_url": "https://example.com/w2.pdf"}},
					{"id": "https://openalex.org/W3", "open_access": {"is_oa": false}}
				]
			}`),
			json.RawMessage(`{"id": "https://openalex.org/W4", "title": "Closed"}`),
			json.RawMessage(`not json`),
		},
	}
	tasks := CollectTasks(record)
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if tasks[0].WorkID != "W1" || tasks[0].Source != "main_paper" {
		t.Errorf("unexpected first task: %+v", tasks[0])
	}
	if tasks[1].WorkID != "W2" || tasks[1].Source != "cited_by_work" {
		t.Errorf("unexpected second task: %+v", tasks[1])
	}
}

func TestDownloaderRun(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/direct.pdf":
			w.Write(fakePDF)
		case "/landing":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, `<html><head><meta name="citation_pdf_url" content="%s/direct.pdf"></head></html>`, "http://"+r.Host)
		case "/broken":
			fmt.Fprint(w, "this is no pdf")
		case "/tiny.pdf":
			w.Write([]byte("%PDF-"))
		case "/gone":
			http.NotFound(w, r)
		default:
			http.Error(w, "forbidden", http.StatusForbidden)
		}
	}))
	defer ts.Close()
	dir := t.TempDir()
	d := &Downloader{
		Client:  ts.Client(),
		Dir:     dir,
		Workers: 2,
	}
	tasks := []Task{
		{WorkID: "W1", OaURL: ts.URL + "/direct.pdf"},
		{WorkID: "W2", OaURL: ts.URL + "/landing"},
		{WorkID: "W3", OaURL: ts.URL + "/broken"},
		{WorkID: "W4", OaURL: ts.URL + "/tiny.pdf"},
		{WorkID: "W5", OaURL: ts.URL + "/gone"},
		{WorkID: "W6", OaURL: ts.URL + "/locked"},
	}
	if err := d.Run(context.Background(), tasks); err != nil {
		t.Fatal(err)
	}
	if d.Stats.Downloaded != 2 {
		t.Errorf("got %d downloaded, want 2", d.Stats.Downloaded)
	}
	if d.Stats.IntegrityFailures != 2 {
		t.Errorf("got %d integrity failures, want 2", d.Stats.IntegrityFailures)
	}
	if d.Stats.NotFound != 1 {
		t.Errorf("got %d not found, want 1", d.Stats.NotFound)
	}
	if d.Stats.Forbidden != 1 {
		t.Errorf("got %d forbidden, want 1", d.Stats.Forbidden)
	}
	for _, name := range []string{"W1.pdf", "W2.pdf"} {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("missing download: %v", err)
		}
		if !bytes.HasPrefix(b, []byte("%PDF-")) {
			t.Errorf("%s: not a pdf", name)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "W3.pdf")); err == nil {
		t.Error("broken download should not be kept")
	}
}

func TestDownloaderSkipsExisting(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "W1.pdf"), fakePDF, 0644); err != nil {
		t.Fatal(err)
	}
	d := &Downloader{
		Client: http.DefaultClient, // never used
		Dir:    dir,
	}
	tasks := []Task{{WorkID: "W1", OaURL: "http://invalid.example/w1.pdf"}}
	if err := d.Run(context.Background(), tasks); err != nil {
		t.Fatal(err)
	}
	if d.Stats.Skipped != 1 {
		t.Errorf("got %d skipped, want 1", d.Stats.Skipped)
	}
	if d.Stats.Failed != 0 {
		t.Errorf("got %d failed, want 0", d.Stats.Failed)
	}
}

func TestResolvePDFLink(t *testing.T) {
	var cases = []struct {
		about string
		body  string
		want  string
	}{
		{
			"citation meta tag",
			`<html><head><meta name="citation_pdf_url" content="https://cdn.example.com/x.pdf"></head></html>`,
			"https://cdn.example.com/x.pdf",
		},
		{
			"relative pdf anchor",
			`<html><body><a href="/files/paper.pdf">fulltext</a></body></html>`,
			"https://example.com/files/paper.pdf",
		},
		{
			"meta tag beats anchor",
			`<html><head><meta name="citation_pdf_url" content="/meta.pdf"></head><body><a href="/anchor.pdf">x</a></body></html>`,
			"https://example.com/meta.pdf",
		},
	}
	for _, c := range cases {
		got, err := ResolvePDFLink("https://example.com/landing", []byte(c.body))
		if err != nil {
			t.Fatalf("%s: %v", c.about, err)
		}
		if got != c.want {
			t.Errorf("%s: got %v, want %v", c.about, got, c.want)
		}
	}
}

func TestResolvePDFLinkNone(t *testing.T) {
	body := `<html><body><a href="/about">about</a></body></html>`
	if _, err := ResolvePDFLink("https://example.com/landing", []byte(body)); err == nil {
		t.Error("got nil, want error")
	}
}
