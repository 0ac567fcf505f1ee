package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteThenCloseDrains(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log", "execution-log.jsonl")
	sink, err := NewJSONLSink(path)
	if err != nil {
		t.Fatalf("NewJSONLSink: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := sink.Write(map[string]int{"task_id": i}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	sink.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 5 {
		t.Errorf("lines = %d: %q", len(lines), data)
	}
}

func TestWriteAfterCloseFails(t *testing.T) {
	sink, err := NewJSONLSink(filepath.Join(t.TempDir(), "log.jsonl"))
	if err != nil {
		t.Fatalf("NewJSONLSink: %v", err)
	}
	sink.Close()

	if err := sink.Write(map[string]string{"status": "late"}); err != ErrSinkClosed {
		t.Errorf("Write after close = %v", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	sink, err := NewJSONLSink(filepath.Join(t.TempDir(), "log.jsonl"))
	if err != nil {
		t.Fatalf("NewJSONLSink: %v", err)
	}
	sink.Close()
	sink.Close()
}
