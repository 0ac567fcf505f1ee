// Package audit persists the agent's execution trail as JSONL, one line per
// task attempt.
package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

const (
	// Buffer audit writes so task execution never blocks on slow filesystems.
	queueSize = 256
)

var ErrSinkClosed = errors.New("audit sink closed")

// JSONLSink appends entries as JSONL.
type JSONLSink struct {
	path      string
	queue     chan []byte
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewJSONLSink(path string) (*JSONLSink, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	sink := &JSONLSink{
		path:  path,
		queue: make(chan []byte, queueSize),
		done:  make(chan struct{}),
	}
	go sink.writeLoop()
	return sink, nil
}

// Close drains pending lines and stops the writer goroutine. Writes after
// Close return ErrSinkClosed.
func (s *JSONLSink) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.queue)
		<-s.done
	})
}

func (s *JSONLSink) Path() string {
	return s.path
}

func (s *JSONLSink) Write(entry interface{}) error {
	if s.closed.Load() {
		return ErrSinkClosed
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	line := append(b, '\n')
	select {
	case s.queue <- line:
		return nil
	default:
	}

	// Queue full: drop oldest pending line so the current entry can proceed.
	select {
	case <-s.queue:
	default:
	}
	select {
	case s.queue <- line:
	default:
	}
	return nil
}

func (s *JSONLSink) writeLoop() {
	defer close(s.done)
	for line := range s.queue {
		_ = s.appendLine(line)
	}
}

func (s *JSONLSink) appendLine(line []byte) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return err
	}
	return nil
}
