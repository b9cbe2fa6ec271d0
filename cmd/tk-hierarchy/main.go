// tk-hierarchy extracts a domain, field or subfield subtree from the
// flat topic classification table into entity and relationship files.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/yiruiw/taxokit"
	"github.com/yiruiw/taxokit/hierarchy"
)

var docs = strings.TrimLeft(`
# tk-hierarchy - extract classification subtrees

Reads the flat topic reference table (TSV, one topic per row with its
subfield, field and domain ancestry) and extracts the subtree rooted
at a named node. Node names match exactly, no case folding.

## examples

$ tk-hierarchy "Computer Science"
$ tk-hierarchy -i data/field.txt -d data "Health Sciences"
$ tk-hierarchy "Artificial Intelligence"

Writes {slug}_entities.json and {slug}_relationships.json into the
data directory. A gzip compressed table (.gz) works as well.

## flags

`, "\n")

var (
	inputFile   = flag.String("i", "data/field.txt", "topic reference table (TSV, optionally .gz)")
	dataDir     = flag.String("d", "data", "directory for output files")
	showVersion = flag.Bool("version", false, "show version")
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
		log.Fatal("missing node name, e.g. tk-hierarchy \"Computer Science\"")
	}
	target := flag.Arg(0)
	rows, err := hierarchy.ReadRows(*inputFile)
	if err != nil {
		log.Fatalf("read table: %v", err)
	}
	level, err := hierarchy.LocateLevel(target, rows)
	if err != nil {
		log.Fatalf("%q: %v", target, err)
	}
	log.Printf("found %q at level %s", target, level)
	entities, relationships := hierarchy.ExtractSubtree(target, level, rows)
	entitiesFile, relationshipsFile, err := hierarchy.WriteFiles(*dataDir, target, entities, relationships)
	if err != nil {
		log.Fatalf("write: %v", err)
	}
	stats := hierarchy.Summarize(entities, relationships)
	log.Printf("wrote %d entities to %s", len(entities), entitiesFile)
	for typ, n := range stats.Entities {
		log.Printf("  %s: %d", typ, n)
	}
	log.Printf("wrote %d relationships to %s", len(relationships), relationshipsFile)
	for typ, n := range stats.Relationships {
		log.Printf("  %s: %d", typ, n)
	}
}
