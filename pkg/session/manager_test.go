package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/04arvind/newla/pkg/providers"
)

func TestSessionManagerListKeysSorted(t *testing.T) {
	sm := NewSessionManager("")
	sm.AddMessage("console:z", "user", "z")
	sm.AddMessage("console:a", "user", "a")
	sm.AddMessage("console:m", "user", "m")

	keys := sm.ListKeys()
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys, got %d", len(keys))
	}
	if keys[0] != "console:a" || keys[1] != "console:m" || keys[2] != "console:z" {
		t.Fatalf("unexpected key order: %#v", keys)
	}
}

func TestSessionManagerHistoryDeepCopy(t *testing.T) {
	sm := NewSessionManager("")
	sm.AddMessage("console", "user", "hello")
	sm.AddMessage("console", "assistant", "world")

	history := sm.GetHistory("console")
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}

	// Mutate the returned slice and ensure manager state is unchanged.
	history[0].Content = "mutated"
	again := sm.GetHistory("console")
	if again[0].Content != "hello" {
		t.Fatalf("manager history should remain unchanged, got %q", again[0].Content)
	}
}

func TestSessionManagerClearAndTruncate(t *testing.T) {
	sm := NewSessionManager("")
	for i := 0; i < 5; i++ {
		sm.AddMessage("console", "user", "msg")
	}

	sm.TruncateHistory("console", 2)
	if got := len(sm.GetHistory("console")); got != 2 {
		t.Fatalf("expected 2 messages after truncate, got %d", got)
	}

	sm.ClearHistory("console")
	if got := len(sm.GetHistory("console")); got != 0 {
		t.Fatalf("expected empty history after clear, got %d", got)
	}
}

func TestSessionManagerSaveAndPreload(t *testing.T) {
	dir := t.TempDir()

	sm := NewSessionManager(dir)
	sm.AddMessage("console", "user", "hello")
	sm.AddMessage("console", "assistant", "world")
	if err := sm.Save("console"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	sm2 := NewSessionManager(dir)
	history := sm2.GetHistory("console")
	if len(history) != 2 {
		t.Fatalf("expected 2 messages preloaded, got %d", len(history))
	}
	if history[0].Content != "hello" || history[1].Content != "world" {
		t.Fatalf("unexpected preloaded history: %#v", history)
	}
}

func TestSessionManagerSaveRejectsBadKeys(t *testing.T) {
	sm := NewSessionManager(t.TempDir())
	for _, key := range []string{"", ".", "..", "a/b", `a\b`} {
		if err := sm.Save(key); err == nil {
			t.Errorf("expected error for key %q", key)
		}
	}
}

func TestSessionManagerPreloadFastPath(t *testing.T) {
	dir := t.TempDir()
	payload := Session{
		Key: "console@abc",
		Messages: []providers.Message{
			{Role: "user", Content: "hello"},
		},
		Created: time.Now().UTC(),
		Updated: time.Now().UTC(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, payload.Key+".json"), data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	sm := NewSessionManager(dir)
	history := sm.GetHistory(payload.Key)
	if len(history) != 1 || history[0].Content != "hello" {
		t.Fatalf("unexpected preloaded history: %#v", history)
	}
}

func TestSessionManagerPreloadTimeoutDoesNotBlockConstructor(t *testing.T) {
	dir := t.TempDir()

	prevTimeout := sessionLoadTimeout
	prevReadDir := readDir
	prevReadFile := readFile
	defer func() {
		sessionLoadTimeout = prevTimeout
		readDir = prevReadDir
		readFile = prevReadFile
	}()

	sessionLoadTimeout = 20 * time.Millisecond
	release := make(chan struct{})
	readDir = func(string) ([]os.DirEntry, error) {
		<-release
		return nil, nil
	}

	start := time.Now()
	_ = NewSessionManager(dir)
	elapsed := time.Since(start)
	if elapsed > 120*time.Millisecond {
		t.Fatalf("constructor blocked too long: %v", elapsed)
	}

	// Let background preload goroutine finish before restoring globals.
	close(release)
	time.Sleep(5 * time.Millisecond)
}
