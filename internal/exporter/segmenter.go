package exporter

import (
	"github.com/bedasa/dataport/sdk"
)

// PageSize is the fixed number of raw entities fetched from the data source
// per round trip, independent of the segment size.
const PageSize = 100

// segmenterProvider is the harness facing view of a typed segmenter
type segmenterProvider interface {
	sdk.SegmentReader
	// HasData is true while more pages can be fetched without exceeding the limit
	HasData() bool
	// TotalRecords is the number of records available to this run, for progress
	TotalRecords() int
	// BeginSegment marks a segment boundary and resets the per segment count
	BeginSegment()
	// Dispose releases the page fetch closures and any retained lookups
	Dispose()
}

// pageFetch pulls one page of entities starting at skip. It returns the
// entities to export plus the raw number of rows the source produced, which
// may differ when the fetch deduplicates or expands entities; a raw count
// below PageSize signals exhaustion.
type pageFetch[T any] func(skip int) ([]T, int, error)

// pageEnrich batch loads the page's side data into a page scoped lookup
type pageEnrich[T any] func(items []T) error

// entityConvert produces the provider facing representation of one entity
type entityConvert[T any] func(item T) (sdk.Record, error)

// segmenter streams fixed size pages of one entity type and slices them into
// provider invocation segments without buffering more than one page.
type segmenter[T any] struct {
	fetch             pageFetch[T]
	enrich            pageEnrich[T]
	convert           entityConvert[T]
	offset            int
	pageSize          int
	limit             int
	recordsPerSegment int
	totalCount        int

	skip       int
	readCount  int
	perSegment int
	exhausted  bool
	queue      []T
	current    []sdk.Record
}

func newSegmenter[T any](
	fetch pageFetch[T],
	enrich pageEnrich[T],
	convert entityConvert[T],
	offset, pageSize, limit, recordsPerSegment, totalCount int,
) *segmenter[T] {
	return &segmenter[T]{
		fetch:             fetch,
		enrich:            enrich,
		convert:           convert,
		offset:            offset,
		pageSize:          pageSize,
		limit:             limit,
		recordsPerSegment: recordsPerSegment,
		totalCount:        totalCount,
		skip:              offset,
	}
}

var _ segmenterProvider = (*segmenter[int])(nil)

// HasData is true while more records can be read without exceeding the
// limit. The pre run count serves only as a fast path for known empty runs;
// fetches can shrink (dedup) or grow (expansion) a page, so the actual end is
// signaled by source exhaustion.
func (s *segmenter[T]) HasData() bool {
	if s.totalCount-s.offset <= 0 {
		return false
	}
	if s.exhausted && len(s.queue) == 0 {
		return false
	}
	return s.limit <= 0 || s.readCount < s.limit
}

// TotalRecords returns the pre run estimate of records available to this
// run: what the source holds past the offset, bounded by the limit
func (s *segmenter[T]) TotalRecords() int {
	avail := s.totalCount - s.offset
	if avail < 0 {
		avail = 0
	}
	if s.limit > 0 && s.limit < avail {
		avail = s.limit
	}
	return avail
}

// BeginSegment marks a segment boundary
func (s *segmenter[T]) BeginSegment() {
	s.perSegment = 0
}

// RecordPerSegmentCount returns the records read since the last segment boundary
func (s *segmenter[T]) RecordPerSegmentCount() int {
	return s.perSegment
}

// CurrentSegment returns the records read by the last ReadNextSegment call
func (s *segmenter[T]) CurrentSegment() []sdk.Record {
	return s.current
}

// ReadNextSegment reads the next batch of converted records for the current
// segment. It returns false at the segment boundary: when the segment reached
// recordsPerSegment records, the overall limit is reached or the source is
// exhausted.
func (s *segmenter[T]) ReadNextSegment() (bool, error) {
	s.current = nil
	if s.recordsPerSegment > 0 && s.perSegment >= s.recordsPerSegment {
		return false, nil
	}
	if s.totalCount-s.offset <= 0 {
		return false, nil
	}
	if s.limit > 0 && s.readCount >= s.limit {
		return false, nil
	}
	if len(s.queue) == 0 {
		if s.exhausted {
			return false, nil
		}
		page, raw, err := s.fetch(s.skip)
		if err != nil {
			return false, err
		}
		s.skip += s.pageSize
		if raw < s.pageSize {
			s.exhausted = true
		}
		if s.limit > 0 {
			if room := s.limit - s.readCount; len(page) > room {
				page = page[:room]
			}
		}
		if len(page) == 0 {
			return false, nil
		}
		if s.enrich != nil {
			if err := s.enrich(page); err != nil {
				return false, err
			}
		}
		s.queue = page
	}
	n := len(s.queue)
	if s.recordsPerSegment > 0 {
		if room := s.recordsPerSegment - s.perSegment; n > room {
			n = room
		}
	}
	if s.limit > 0 {
		if room := s.limit - s.readCount; n > room {
			n = room
		}
	}
	records := make([]sdk.Record, 0, n)
	for _, item := range s.queue[:n] {
		rec, err := s.convert(item)
		if err != nil {
			return false, err
		}
		if rec != nil {
			records = append(records, rec)
		}
	}
	s.queue = s.queue[n:]
	s.current = records
	s.perSegment += n
	s.readCount += n
	return true, nil
}

// Dispose releases the closures and buffers
func (s *segmenter[T]) Dispose() {
	s.fetch = nil
	s.enrich = nil
	s.convert = nil
	s.queue = nil
	s.current = nil
}
