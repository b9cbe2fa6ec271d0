package fetch

import (
	"context"

	"github.com/segmentio/encoding/json"
	log "github.com/sirupsen/logrus"

	"github.com/yiruiw/taxokit/schema/openalex"
)

// filterAll filters a batch of raw works, dropping undecodable ones.
func filterAll(raws []json.RawMessage) []openalex.Paper {
	var papers []openalex.Paper
	for _, raw := range raws {
		p, err := FilterPaper(raw)
		if err != nil {
			log.Warnf("dropping undecodable work: %v", err)
			continue
		}
		papers = append(papers, *p)
	}
	return papers
}

// EnrichCitations attaches the citation neighborhood of a paper: works
// citing it and works it references, each capped at maxCitations when
// positive. Errors on either side leave that side empty.
func (h *Harvester) EnrichCitations(ctx context.Context, paper *openalex.Paper, maxCitations int) {
	if paper.ID == "" {
		return
	}
	citing, err := h.FetchCiting(ctx, paper.ID, maxCitations)
	if err != nil {
		log.Warnf("citing works for %s: %v", paper.ID, err)
	} else {
		paper.CitedByWorks = filterAll(citing)
	}
	cited, err := h.FetchCited(ctx, paper.ID, maxCitations)
	if err != nil {
		log.Warnf("cited works for %s: %v", paper.ID, err)
	} else {
		paper.CitedWorks = filterAll(cited)
		paper.CitedCount = int64(len(paper.CitedWorks))
	}
}
