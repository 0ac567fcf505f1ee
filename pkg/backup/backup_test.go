package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/04arvind/newla/pkg/config"
)

func seedWorkspace(t *testing.T) (*config.Config, string) {
	t.Helper()
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Workspace = filepath.Join(root, "workspace")

	mustWrite := func(rel, content string) {
		full := filepath.Join(cfg.Workspace, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	mustWrite("app.py", "print('hi')")
	mustWrite("src/util.py", "x = 1")
	mustWrite(".newla/execution-log.jsonl", "{}")

	configPath := filepath.Join(root, "config.json")
	if err := os.WriteFile(configPath, []byte("{}"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfg, configPath
}

func TestCollectEntriesSkipsAuditByDefault(t *testing.T) {
	cfg, configPath := seedWorkspace(t)

	entries, err := CollectEntries(cfg, configPath, false)
	if err != nil {
		t.Fatalf("CollectEntries: %v", err)
	}

	for _, entry := range entries {
		if filepath.Base(entry.SourcePath) == ".newla" {
			t.Errorf("audit dir should be excluded: %+v", entry)
		}
	}

	withAudit, err := CollectEntries(cfg, configPath, true)
	if err != nil {
		t.Fatalf("CollectEntries: %v", err)
	}
	if len(withAudit) != len(entries)+1 {
		t.Errorf("expected audit dir to add one entry: %d vs %d", len(withAudit), len(entries))
	}
}

func TestCreateAndList(t *testing.T) {
	cfg, configPath := seedWorkspace(t)

	entries, err := CollectEntries(cfg, configPath, false)
	if err != nil {
		t.Fatalf("CollectEntries: %v", err)
	}

	archive := filepath.Join(t.TempDir(), "out", "backup.tar.gz")
	if err := Create(archive, entries); err != nil {
		t.Fatalf("Create: %v", err)
	}

	names, err := List(archive)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		seen[name] = true
	}
	for _, want := range []string{"newla/config.json", "workspace/app.py", "workspace/src/util.py"} {
		if !seen[want] {
			t.Errorf("archive missing %s; got %v", want, names)
		}
	}
}

func TestCollectEntriesMissingWorkspace(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Workspace = filepath.Join(t.TempDir(), "does-not-exist")

	entries, err := CollectEntries(cfg, "", false)
	if err != nil {
		t.Fatalf("CollectEntries: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %v", entries)
	}
}

func TestDefaultPathHasTimestamp(t *testing.T) {
	p := DefaultPath("/tmp/base")
	if filepath.Dir(p) != "/tmp/base/backups" {
		t.Errorf("DefaultPath = %q", p)
	}
	if filepath.Ext(p) != ".gz" {
		t.Errorf("DefaultPath = %q", p)
	}
}
