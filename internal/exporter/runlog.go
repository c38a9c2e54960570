package exporter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bedasa/dataport/sdk"
)

// fileSink mirrors every log event of a run into the profile folder's
// log.txt, logfmt style, next to whatever the base logger does with it
type fileSink struct {
	mu sync.Mutex
	f  *os.File
}

func (s *fileSink) Log(keyvals ...interface{}) error {
	var b strings.Builder
	b.WriteString(time.Now().Format(time.RFC3339))
	for i := 0; i+1 < len(keyvals); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keyvals[i], keyvals[i+1])
	}
	b.WriteString("\n")
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.f.WriteString(b.String())
	return err
}

func (s *fileSink) Close() error {
	return s.f.Close()
}

// teeLogger fans a log event out to multiple loggers
type teeLogger struct {
	loggers []sdk.Logger
}

func (t teeLogger) Log(keyvals ...interface{}) error {
	var first error
	for _, l := range t.loggers {
		if err := l.Log(keyvals...); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// newRunLogger returns a logger writing to both the base logger and a run
// log file at path, plus the closer releasing the file
func newRunLogger(base sdk.Logger, path string) (sdk.Logger, io.Closer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating run log: %w", err)
	}
	sink := &fileSink{f: f}
	return teeLogger{loggers: []sdk.Logger{base, sink}}, sink, nil
}
