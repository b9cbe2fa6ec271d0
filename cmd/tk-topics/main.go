// tk-topics aggregates professor detail records into per-topic
// reports with an entity/relation graph attached.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/yiruiw/taxokit"
	"github.com/yiruiw/taxokit/aggregate"
)

var docs = strings.TrimLeft(`
# tk-topics - aggregate researcher topics

Takes one professor detail file (as written by tk-fetch) or a
directory of them, groups the papers by primary topic and writes one
topics_analysis_{name}_{author_id}.json report per researcher.

## examples

$ tk-topics data/jane_doe_A5012345678_detail.json
$ tk-topics -r data/computer_science_relationships.json data/
$ tk-topics -o reports data/

A directory run picks up every *_detail.json file; broken files are
skipped and counted, the batch continues.

## flags

`, "\n")

var (
	relationshipsFile = flag.String("r", "data/computer_science_relationships.json", "hierarchy relationships file")
	outputDir         = flag.String("o", "professor_topics_output", "directory for report files")
	showVersion       = flag.Bool("version", false, "show version")
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
	if flag.NArg() == 0 {
		log.Fatal("missing input, e.g. tk-topics data/")
	}
	input := flag.Arg(0)
	relationships := aggregate.LoadRelationships(*relationshipsFile)
	info, err := os.Stat(input)
	if err != nil {
		log.Fatal(err)
	}
	switch {
	case info.IsDir():
		batch, err := aggregate.ProcessDir(input, relationships, *outputDir)
		if err != nil {
			log.Fatal(err)
		}
		if batch.Failed > 0 {
			log.Printf("%d of %d files failed", batch.Failed, batch.Total)
		}
	case strings.HasSuffix(input, "_detail.json"):
		if err := aggregate.ProcessFile(input, relationships, *outputDir); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatalf("expected a directory or a *_detail.json file: %s", input)
	}
}
