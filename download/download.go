// Package download retrieves open access fulltext PDFs for the works
// referenced by professor detail records.
package download

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/segmentio/encoding/json"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yiruiw/taxokit/atomicfile"
	"github.com/yiruiw/taxokit/fetch"
	"github.com/yiruiw/taxokit/schema/openalex"
)

// pdfMagic is the file signature every saved document must start with.
var pdfMagic = []byte("%PDF-")

// Stats counts download outcomes across workers.
type Stats struct {
	mu                sync.Mutex
	Downloaded        int
	Skipped           int
	Failed            int
	Forbidden         int
	NotFound          int
	HTTPErrors        int
	NetworkErrors     int
	IntegrityFailures int
}

func (s *Stats) count(field *int) {
	s.mu.Lock()
	*field++
	s.mu.Unlock()
}

// Fields returns the counters as log fields.
func (s *Stats) Fields() log.Fields {
	s.mu.Lock()
	defer s.mu.Unlock()
	return log.Fields{
		"downloaded":         s.Downloaded,
		"skipped":            s.Skipped,
		"failed":             s.Failed,
		"forbidden":          s.Forbidden,
		"not_found":          s.NotFound,
		"http_errors":        s.HTTPErrors,
		"network_errors":     s.NetworkErrors,
		"integrity_failures": s.IntegrityFailures,
	}
}

// Task is one fulltext to retrieve.
type Task struct {
	Title     string
	DOI       string
	OaURL     string
	WorkID    string
	Professor string
	Source    string // main_paper or cited_by_work
}

// CollectTasks walks a professor record and gathers all works with an
// open access URL, the researcher's own papers and their citing works
// alike.
func CollectTasks(record *openalex.ProfessorRecord) []Task {
	var tasks []Task
	add := func(p *openalex.Paper, source string) {
		if p.OpenAccess == nil || !p.OpenAccess.IsOa || p.OpenAccess.OaURL == "" {
			return
		}
		tasks = append(tasks, Task{
			Title:     p.Title,
			DOI:       p.DOI,
			OaURL:     p.OpenAccess.OaURL,
			WorkID:    openalex.ShortID(p.ID),
			Professor: record.ProfessorInfo.Name,
			Source:    source,
		})
	}
	for _, raw := range record.Papers {
		var p openalex.Paper
		if err := json.Unmarshal(raw, &p); err != nil {
			log.Warnf("skipping undecodable paper: %v", err)
			continue
		}
		add(&p, "main_paper")
		for i := range p.CitedByWorks {
			add(&p.CitedByWorks[i], "cited_by_work")
		}
	}
	return tasks
}

// Downloader retrieves PDFs concurrently into a directory.
type Downloader struct {
	Client  fetch.Doer
	Dir     string
	Workers int
	MinSize int64 // smaller files count as integrity failures
	Timeout time.Duration
	Stats   Stats
}

func (d *Downloader) workers() int {
	if d.Workers == 0 {
		return 4
	}
	return d.Workers
}

func (d *Downloader) minSize() int64 {
	if d.MinSize == 0 {
		return 1024
	}
	return d.MinSize
}

// Run downloads all tasks. Individual failures are counted and logged,
// never fatal; only context cancellation stops the run.
func (d *Downloader) Run(ctx context.Context, tasks []Task) error {
	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers())
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := d.download(ctx, task); err != nil {
				log.WithFields(log.Fields{
					"work":   task.WorkID,
					"source": task.Source,
				}).Warnf("download failed: %v", err)
			}
			return nil
		})
	}
	err := g.Wait()
	log.WithFields(d.Stats.Fields()).Info("download run done")
	return err
}

func (d *Downloader) get(ctx context.Context, link string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", link, nil)
	if err != nil {
		return nil, err
	}
	return d.Client.Do(req)
}

// download retrieves one task. An HTML response is treated as a
// landing page and resolved to a PDF link once.
func (d *Downloader) download(ctx context.Context, task Task) error {
	dst := filepath.Join(d.Dir, task.WorkID+".pdf")
	if _, err := os.Stat(dst); err == nil {
		d.Stats.count(&d.Stats.Skipped)
		return nil
	}
	body, err := d.fetchDocument(ctx, task.OaURL, true)
	if err != nil {
		d.Stats.count(&d.Stats.Failed)
		return err
	}
	if !bytes.HasPrefix(body, pdfMagic) || int64(len(body)) < d.minSize() {
		d.Stats.count(&d.Stats.IntegrityFailures)
		d.Stats.count(&d.Stats.Failed)
		return fmt.Errorf("not a usable pdf: %s (%d bytes)", task.OaURL, len(body))
	}
	if err := atomicfile.WriteFile(dst, body, 0644); err != nil {
		d.Stats.count(&d.Stats.Failed)
		return err
	}
	d.Stats.count(&d.Stats.Downloaded)
	log.WithFields(log.Fields{
		"work":      task.WorkID,
		"professor": task.Professor,
		"size":      len(body),
	}).Debug("downloaded")
	return nil
}

func (d *Downloader) fetchDocument(ctx context.Context, link string, followLanding bool) ([]byte, error) {
	resp, err := d.get(ctx, link)
	if err != nil {
		d.Stats.count(&d.Stats.NetworkErrors)
		return nil, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusForbidden:
		d.Stats.count(&d.Stats.Forbidden)
		return nil, fmt.Errorf("forbidden: %s", link)
	case resp.StatusCode == http.StatusNotFound:
		d.Stats.count(&d.Stats.NotFound)
		return nil, fmt.Errorf("not found: %s", link)
	case resp.StatusCode >= 400:
		d.Stats.count(&d.Stats.HTTPErrors)
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, link)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		d.Stats.count(&d.Stats.NetworkErrors)
		return nil, err
	}
	if followLanding && looksLikeHTML(resp, body) {
		pdfLink, err := ResolvePDFLink(link, body)
		if err != nil {
			return nil, err
		}
		return d.fetchDocument(ctx, pdfLink, false)
	}
	return body, nil
}

func looksLikeHTML(resp *http.Response, body []byte) bool {
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(body))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

// ResolvePDFLink extracts a PDF URL from a landing page, preferring
// the citation_pdf_url meta tag over plain .pdf anchors. The result is
// resolved against the page URL.
func ResolvePDFLink(pageURL string, body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	var link string
	if v, ok := doc.Find(`meta[name="citation_pdf_url"]`).Attr("content"); ok {
		link = v
	}
	if link == "" {
		doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			if strings.HasSuffix(strings.ToLower(href), ".pdf") {
				link = href
				return false
			}
			return true
		})
	}
	if link == "" {
		return "", fmt.Errorf("no pdf link on landing page: %s", pageURL)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
