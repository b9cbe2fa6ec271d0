// tk-fetch harvests the publication list of a researcher from the
// OpenAlex works API and writes a professor detail record.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/segmentio/encoding/json"
	"github.com/sethgrid/pester"

	"github.com/yiruiw/taxokit"
	"github.com/yiruiw/taxokit/cache"
	"github.com/yiruiw/taxokit/config"
	"github.com/yiruiw/taxokit/fetch"
	"github.com/yiruiw/taxokit/schema/openalex"
)

var docs = strings.TrimLeft(`
# tk-fetch - harvest researcher publications

Fetches all works of an author from api.openalex.org, filters each
work down to the fields the aggregation needs and writes a
{name}_{author_id}_detail.json record. Responses are cached under the
user cache dir, a rerun is free.

## examples

$ tk-fetch -a A5012345678 -n "Jane Doe" -dept "Computer Science"
$ tk-fetch -a A5012345678 -n "Jane Doe" -from 2020-01-01 -to 2024-12-31
$ tk-fetch -a A5012345678 -n "Jane Doe" -c 20
$ tk-fetch -l professors.json
$ tk-fetch -topic T10101 -m 500

With -l the professors come from a JSON list of {name, author_id,
department} objects; a failing researcher is skipped, the run
continues.

With -c N the citation neighborhood of each paper is attached, up to N
citing and N referenced works. A .zst output suffix compresses the
record.

## flags

`, "\n")

var defaultDataDir = path.Join(xdg.DataHome, "taxokit")

var (
	authorID     = flag.String("a", "", "OpenAlex author id, e.g. A5012345678")
	name         = flag.String("n", "", "researcher name")
	department   = flag.String("dept", "", "department")
	listFile     = flag.String("l", "", "JSON file with a list of researchers to fetch")
	topicID      = flag.String("topic", "", "fetch a topic sample instead of an author")
	maxPapers    = flag.Int("m", 500, "max papers for a topic sample")
	maxCitations = flag.Int("c", 0, "attach up to N citing and referenced works per paper")
	fromDate     = flag.String("from", "", "earliest publication date to keep")
	toDate       = flag.String("to", "", "latest publication date to keep")
	dir          = flag.String("d", defaultDataDir, "directory for detail records")
	endpoint     = flag.String("e", fetch.DefaultEndpoint, "works API endpoint")
	userAgent    = flag.String("ua", "taxokit/"+taxokit.Version, "user agent")
	perPage      = flag.Int("p", 200, "results per page")
	maxRetries   = flag.Int("r", 3, "max retries")
	timeout      = flag.Duration("T", 60*time.Second, "connection timeout")
	sleep        = flag.Duration("s", time.Second, "pause between uncached requests")
	noCache      = flag.Bool("C", false, "bypass the response cache")
	showVersion  = flag.Bool("version", false, "show version")
)

func main() {
	flag.Usage = func() {
		io.WriteString(os.Stderr, docs)
		flag.PrintDefaults()
	}
	flag.Parse()
	if *showVersion {
		fmt.Println(taxokit.Version)
		os.Exit(0)
	}
	cfg := &config.Config{
		DataDir:           *dir,
		OutputDir:         *dir,
		Endpoint:          *endpoint,
		UserAgent:         *userAgent,
		PerPage:           *perPage,
		MaxRetries:        *maxRetries,
		Timeout:           *timeout,
		Sleep:             *sleep,
		MaxPapersPerTopic: *maxPapers,
		MaxCitations:      *maxCitations,
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		log.Fatal(err)
	}
	client := pester.New()
	client.Backoff = pester.ExponentialBackoff
	client.MaxRetries = cfg.MaxRetries
	client.RetryOnHTTP429 = true
	client.Timeout = cfg.Timeout
	harvester := &fetch.Harvester{
		Client:    client,
		Endpoint:  cfg.Endpoint,
		UserAgent: cfg.UserAgent,
		PerPage:   cfg.PerPage,
		Sleep:     cfg.Sleep,
	}
	if !*noCache {
		harvester.Cache = &cache.FileCacher{AppName: taxokit.AppName}
	}
	ctx := context.Background()
	switch {
	case *topicID != "":
		works, err := harvester.FetchTopicWorks(ctx, *topicID, cfg.MaxPapersPerTopic)
		if err != nil {
			log.Fatalf("topic works: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		for _, raw := range works {
			paper, err := fetch.FilterPaper(raw)
			if err != nil {
				log.Printf("skipping: %v", err)
				continue
			}
			if err := enc.Encode(paper); err != nil {
				log.Fatal(err)
			}
		}
	case *listFile != "":
		b, err := os.ReadFile(*listFile)
		if err != nil {
			log.Fatal(err)
		}
		var professors []openalex.ProfessorInfo
		if err := json.Unmarshal(b, &professors); err != nil {
			log.Fatalf("decode %s: %v", *listFile, err)
		}
		window, err := fetch.ParseWindow(*fromDate, *toDate)
		if err != nil {
			log.Fatal(err)
		}
		var failed int
		for _, info := range professors {
			if err := fetchOne(ctx, harvester, cfg, info, window); err != nil {
				log.Printf("skipping %s: %v", info.Name, err)
				failed++
			}
		}
		log.Printf("fetched %d of %d researchers", len(professors)-failed, len(professors))
	case *authorID != "":
		if *name == "" {
			log.Fatal("missing researcher name (-n)")
		}
		window, err := fetch.ParseWindow(*fromDate, *toDate)
		if err != nil {
			log.Fatal(err)
		}
		info := openalex.ProfessorInfo{
			Name:       *name,
			AuthorID:   openalex.ShortID(*authorID),
			Department: *department,
		}
		if err := fetchOne(ctx, harvester, cfg, info, window); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatal("missing author id (-a), researcher list (-l) or topic id (-topic)")
	}
}

func fetchOne(ctx context.Context, harvester *fetch.Harvester, cfg *config.Config, info openalex.ProfessorInfo, window *fetch.Window) error {
	if info.AuthorID == "" {
		return fmt.Errorf("missing author id for %q", info.Name)
	}
	info.AuthorID = openalex.ShortID(info.AuthorID)
	works, err := harvester.FetchAuthorWorks(ctx, info.AuthorID)
	if err != nil {
		return fmt.Errorf("author works: %w", err)
	}
	record := fetch.BuildProfessorRecord(info, works, window)
	if cfg.MaxCitations > 0 {
		for i, raw := range record.Papers {
			var paper openalex.Paper
			if err := json.Unmarshal(raw, &paper); err != nil {
				continue
			}
			harvester.EnrichCitations(ctx, &paper, cfg.MaxCitations)
			b, err := json.Marshal(paper)
			if err != nil {
				return err
			}
			record.Papers[i] = b
		}
	}
	dst := path.Join(cfg.OutputDir, fetch.RecordFilename(record.ProfessorInfo))
	if err := fetch.WriteProfessorRecord(dst, record); err != nil {
		return err
	}
	log.Printf("wrote %d papers to %s", len(record.Papers), dst)
	return nil
}
