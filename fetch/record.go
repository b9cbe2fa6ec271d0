package fetch

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/jinzhu/now"
	"github.com/klauspost/compress/zstd"
	"github.com/segmentio/encoding/json"
	log "github.com/sirupsen/logrus"

	"github.com/yiruiw/taxokit/atomicfile"
	"github.com/yiruiw/taxokit/schema/openalex"
)

// apiWork is the slice of the full API work record we keep. The
// abstract comes inverted and is reassembled on filtering.
type apiWork struct {
	ID                    string                 `json:"id"`
	DOI                   string                 `json:"doi"`
	Title                 string                 `json:"title"`
	PublicationDate       string                 `json:"publication_date"`
	OpenAccess            *openalex.OpenAccess   `json:"open_access"`
	PrimaryTopic          json.RawMessage        `json:"primary_topic"`
	AbstractInvertedIndex openalex.InvertedIndex `json:"abstract_inverted_index"`
	CitedByCount          int64                  `json:"cited_by_count"`
}

// FilterPaper cuts one raw API work down to the stored record shape.
func FilterPaper(raw json.RawMessage) (*openalex.Paper, error) {
	var w apiWork
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	return &openalex.Paper{
		ID:              w.ID,
		DOI:             w.DOI,
		Title:           w.Title,
		PublicationDate: w.PublicationDate,
		OpenAccess:      w.OpenAccess,
		PrimaryTopic:    w.PrimaryTopic,
		Abstract:        w.AbstractInvertedIndex.Text(),
		CitedByCount:    w.CitedByCount,
	}, nil
}

// Window is a publication date range, inclusive on both ends.
type Window struct {
	Start time.Time
	End   time.Time
}

// ParseWindow builds a window from two date strings, either of which
// may be empty to leave that end open. Start snaps to the beginning of
// its day, end to the end of its day.
func ParseWindow(start, end string) (*Window, error) {
	var w Window
	if start != "" {
		t, err := dateparse.ParseAny(start)
		if err != nil {
			return nil, fmt.Errorf("start date: %w", err)
		}
		w.Start = now.New(t).BeginningOfDay()
	}
	if end != "" {
		t, err := dateparse.ParseAny(end)
		if err != nil {
			return nil, fmt.Errorf("end date: %w", err)
		}
		w.End = now.New(t).EndOfDay()
	}
	return &w, nil
}

// Contains reports whether a time falls inside the window. Open ends
// match everything on that side.
func (w *Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// BuildProfessorRecord filters the fetched works of one researcher
// into a detail record. Works failing to decode are dropped with a
// warning; a window restricts by publication date when given.
func BuildProfessorRecord(info openalex.ProfessorInfo, works []json.RawMessage, window *Window) *openalex.ProfessorRecord {
	record := &openalex.ProfessorRecord{ProfessorInfo: info}
	record.ProfessorInfo.FetchDate = time.Now().Format("2006-01-02")
	for _, raw := range works {
		paper, err := FilterPaper(raw)
		if err != nil {
			log.Warnf("dropping undecodable work: %v", err)
			continue
		}
		if window != nil {
			t, err := paper.PublicationTime()
			if err != nil || !window.Contains(t) {
				continue
			}
		}
		b, err := json.Marshal(paper)
		if err != nil {
			log.Warnf("dropping unencodable work %s: %v", paper.ID, err)
			continue
		}
		record.Papers = append(record.Papers, b)
	}
	record.ProfessorInfo.TotalPapers = int64(len(record.Papers))
	return record
}

var recordNameReplacer = strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_")

// RecordFilename derives the detail filename for a researcher, e.g.
// jane_doe_A5012345678_detail.json.
func RecordFilename(info openalex.ProfessorInfo) string {
	return fmt.Sprintf("%s_%s_detail.json",
		recordNameReplacer.Replace(strings.ToLower(info.Name)),
		openalex.ShortID(info.AuthorID))
}

// WriteProfessorRecord writes a detail record as indented JSON,
// zstd compressed when the filename ends in .zst.
func WriteProfessorRecord(filename string, record *openalex.ProfessorRecord) error {
	b, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	if strings.HasSuffix(filename, ".zst") {
		f, err := atomicfile.New(filename)
		if err != nil {
			return err
		}
		zw, err := zstd.NewWriter(f)
		if err != nil {
			f.Abort()
			return err
		}
		if _, err := zw.Write(b); err != nil {
			zw.Close()
			f.Abort()
			return err
		}
		if err := zw.Close(); err != nil {
			f.Abort()
			return err
		}
		return f.Close()
	}
	return atomicfile.WriteFile(filename, b, 0644)
}
