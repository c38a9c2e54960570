package sdk

import (
	"io"
	"sync"
)

// Abortion is the failure severity state of a run. Transitions are monotonic:
// None to Soft or Hard, Soft to Hard, never backward.
type Abortion int32

const (
	// AbortNone means the run continues
	AbortNone Abortion = iota
	// AbortSoft means stop pulling more data but still run completion hooks
	AbortSoft
	// AbortHard means stop immediately, skip completion hooks and fan out,
	// mark the run failed
	AbortHard
)

func (a Abortion) String() string {
	switch a {
	case AbortSoft:
		return "soft"
	case AbortHard:
		return "hard"
	}
	return "none"
}

// AbortState holds the abort level for a run
type AbortState struct {
	mu    sync.Mutex
	level Abortion
}

// Raise escalates the abort level. Lower levels never replace higher ones.
func (s *AbortState) Raise(level Abortion) {
	s.mu.Lock()
	if level > s.level {
		s.level = level
	}
	s.mu.Unlock()
}

// Level returns the current abort level
func (s *AbortState) Level() Abortion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// SegmentReader is the provider facing view of the segmenter. A provider
// drives ReadNextSegment inside Execute and serializes CurrentSegment after
// each successful read, which streams records without buffering the whole
// segment.
type SegmentReader interface {
	// ReadNextSegment reads the next batch of converted records into
	// CurrentSegment. It returns false when the current segment is complete.
	ReadNextSegment() (bool, error)
	// CurrentSegment returns the records read by the last ReadNextSegment call
	CurrentSegment() []Record
	// RecordPerSegmentCount returns the number of records read since the
	// last segment boundary
	RecordPerSegmentCount() int
}

// ExtraStream registers an additional OnExecuted invocation, e.g. for a
// separate manifest file next to the data files
type ExtraStream struct {
	ID       string
	FileName string
}

// ExecuteContext is the mutable context handed to a provider's Execute and
// OnExecuted operations
type ExecuteContext struct {
	// Logger is the run log
	Logger Logger
	// DataStream is the byte sink for the current invocation. It is replaced
	// with a fresh sink before every provider call and persisted to the
	// destination file by the harness afterwards.
	DataStream io.Writer
	// DataStreamID identifies the extra stream during OnExecuted, empty for
	// the default stream
	DataStreamID string
	// Segmenter reads the current segment's records
	Segmenter SegmentReader
	// Store, Language, Currency and Customer are the resolved projection
	// context converted for provider consumption
	Store    Record
	Language Record
	Currency Record
	Customer Record
	// ProfileID and ProfileName identify the profile driving the run
	ProfileID   int
	ProfileName string
	// FileName is the resolved destination file name for the current segment
	FileName string
	// MaxFileNameLength caps resolved file names
	MaxFileNameLength int
	// HasPublicDeployment is true if an enabled public filesystem deployment
	// is configured
	HasPublicDeployment bool
	// PublicFileURL is the public URL of the current file, if any
	PublicFileURL string
	// Config is the provider's deserialized configuration, nil if none
	Config interface{}
	// CustomProperties carries request scoped custom key/values
	CustomProperties map[string]interface{}
	// Preview is true for preview runs; file output is bypassed
	Preview bool
	// RecordsSucceeded is incremented by the provider per serialized record
	RecordsSucceeded int
	// RecordsFailed is incremented by the provider per failed record
	RecordsFailed int
	// MaxFailures is the provider reported failure threshold, 0 for none
	MaxFailures int
	// ExtraStreams can be appended to by the provider during Execute to
	// request additional OnExecuted invocations
	ExtraStreams []ExtraStream
	// Abort is the run's abort state. Providers may raise Soft when their
	// failure threshold is hit; the harness raises Hard on errors.
	Abort *AbortState
}

// IsMaxFailures returns true once the provider reported failure threshold has
// been reached
func (ec *ExecuteContext) IsMaxFailures() bool {
	return ec.MaxFailures > 0 && ec.RecordsFailed >= ec.MaxFailures
}
