// Package fetch harvests works from the OpenAlex API: an author's
// publications, per-topic samples and citation neighborhoods, filtered
// down to the record shape the aggregation consumes.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/segmentio/encoding/json"
	log "github.com/sirupsen/logrus"

	"github.com/yiruiw/taxokit/cache"
	"github.com/yiruiw/taxokit/schema/openalex"
)

// DefaultEndpoint is the OpenAlex works API.
const DefaultEndpoint = "https://api.openalex.org/works"

// Doer abstracts the HTTP client, satisfied by http.Client and
// pester.Client alike.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Harvester fetches paginated work listings. The zero value needs at
// least a Client.
type Harvester struct {
	Client    Doer
	Endpoint  string
	UserAgent string
	PerPage   int
	Sleep     time.Duration // pause between uncached requests
	Cache     cache.Cacher  // optional
}

func (h *Harvester) endpoint() string {
	if h.Endpoint == "" {
		return DefaultEndpoint
	}
	return h.Endpoint
}

func (h *Harvester) perPage() int {
	if h.PerPage == 0 {
		return 200
	}
	return h.PerPage
}

// fetch retrieves one link, going through the cache when configured.
func (h *Harvester) fetch(ctx context.Context, link string) ([]byte, error) {
	if h.Cache != nil {
		b, err := h.Cache.Get(link)
		if err == nil {
			return b, nil
		}
		if err != cache.ErrMiss {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, "GET", link, nil)
	if err != nil {
		return nil, err
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch failed with %d: %s", resp.StatusCode, link)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if h.Cache != nil {
		if err := h.Cache.Set(link, b); err != nil {
			log.Warnf("cache write failed: %v", err)
		}
	}
	if h.Sleep > 0 {
		time.Sleep(h.Sleep)
	}
	return b, nil
}

func (h *Harvester) fetchPage(ctx context.Context, params url.Values) (*openalex.WorksResponse, error) {
	link := h.endpoint() + "?" + params.Encode()
	b, err := h.fetch(ctx, link)
	if err != nil {
		return nil, err
	}
	var wr openalex.WorksResponse
	if err := json.Unmarshal(b, &wr); err != nil {
		return nil, fmt.Errorf("decode %s: %w", link, err)
	}
	return &wr, nil
}

// FetchAuthorWorks retrieves the complete list of works of one author,
// page by page.
func (h *Harvester) FetchAuthorWorks(ctx context.Context, authorID string) ([]json.RawMessage, error) {
	var (
		results []json.RawMessage
		page    = 1
	)
	for {
		params := url.Values{}
		params.Set("filter", "author.id:"+openalex.ShortID(authorID))
		params.Set("per-page", fmt.Sprintf("%d", h.perPage()))
		params.Set("page", fmt.Sprintf("%d", page))
		wr, err := h.fetchPage(ctx, params)
		if err != nil {
			return nil, err
		}
		if len(wr.Results) == 0 {
			break
		}
		results = append(results, wr.Results...)
		log.WithFields(log.Fields{
			"author": openalex.ShortID(authorID),
			"page":   page,
			"works":  len(results),
			"total":  wr.Meta.Count,
		}).Debug("page fetched")
		if int64(len(results)) >= wr.Meta.Count {
			break
		}
		page++
	}
	return results, nil
}

// fetchCursor walks a filter query with cursor pagination, stopping at
// maxResults when positive.
func (h *Harvester) fetchCursor(ctx context.Context, filter string, maxResults int) ([]json.RawMessage, error) {
	var (
		results []json.RawMessage
		cursor  = "*"
	)
	for {
		params := url.Values{}
		params.Set("filter", filter)
		params.Set("per-page", fmt.Sprintf("%d", h.perPage()))
		params.Set("cursor", cursor)
		wr, err := h.fetchPage(ctx, params)
		if err != nil {
			return nil, err
		}
		results = append(results, wr.Results...)
		if maxResults > 0 && len(results) >= maxResults {
			return results[:maxResults], nil
		}
		if wr.IsLast() || len(wr.Results) == 0 {
			break
		}
		cursor = wr.Meta.NextCursor
	}
	return results, nil
}

// FetchTopicWorks samples works tagged with a topic, at most maxPapers
// when positive.
func (h *Harvester) FetchTopicWorks(ctx context.Context, topicID string, maxPapers int) ([]json.RawMessage, error) {
	return h.fetchCursor(ctx, "primary_topic.id:"+openalex.ShortID(topicID), maxPapers)
}

// FetchCiting retrieves works that cite the given work.
func (h *Harvester) FetchCiting(ctx context.Context, workID string, maxResults int) ([]json.RawMessage, error) {
	return h.fetchCursor(ctx, "cites:"+openalex.ShortID(workID), maxResults)
}

// FetchCited retrieves the works the given work references.
func (h *Harvester) FetchCited(ctx context.Context, workID string, maxResults int) ([]json.RawMessage, error) {
	return h.fetchCursor(ctx, "cited_by:"+openalex.ShortID(workID), maxResults)
}
