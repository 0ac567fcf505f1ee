// Package backup archives the workspace and agent config into a tar.gz.
package backup

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/04arvind/newla/pkg/config"
)

type Options struct {
	OutputPath string
	WithAudit  bool
}

type Entry struct {
	SourcePath  string
	ArchivePath string
}

// CollectEntries lists what a backup would include: the config file and the
// workspace contents. The .newla bookkeeping dir is included only when
// withAudit is set.
func CollectEntries(cfg *config.Config, configPath string, withAudit bool) ([]Entry, error) {
	var candidates []Entry

	if configPath != "" {
		candidates = append(candidates, Entry{
			SourcePath:  configPath,
			ArchivePath: filepath.ToSlash(filepath.Join("newla", filepath.Base(configPath))),
		})
	}

	workspace := cfg.WorkspacePath()
	children, err := os.ReadDir(workspace)
	if err != nil {
		if os.IsNotExist(err) {
			children = nil
		} else {
			return nil, fmt.Errorf("read workspace: %w", err)
		}
	}
	for _, child := range children {
		if child.Name() == ".newla" && !withAudit {
			continue
		}
		candidates = append(candidates, Entry{
			SourcePath:  filepath.Join(workspace, child.Name()),
			ArchivePath: filepath.ToSlash(filepath.Join("workspace", child.Name())),
		})
	}

	existing := make([]Entry, 0, len(candidates))
	for _, entry := range candidates {
		if _, err := os.Stat(entry.SourcePath); err == nil {
			existing = append(existing, entry)
		}
	}
	return existing, nil
}

// DefaultPath returns a timestamped archive path under baseDir.
func DefaultPath(baseDir string) string {
	timestamp := time.Now().UTC().Format("20060102-150405")
	return filepath.Join(baseDir, "backups", fmt.Sprintf("newla-backup-%s.tar.gz", timestamp))
}

// Create writes a gzip-compressed tar archive containing the entries.
func Create(outputPath string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer file.Close()

	gzw := gzip.NewWriter(file)
	defer gzw.Close()

	tw := tar.NewWriter(gzw)
	defer tw.Close()

	for _, entry := range entries {
		info, err := os.Stat(entry.SourcePath)
		if err != nil {
			return err
		}
		if info.IsDir() {
			if err := addDirectory(tw, entry.SourcePath, entry.ArchivePath); err != nil {
				return err
			}
			continue
		}
		if err := addFile(tw, entry.SourcePath, entry.ArchivePath); err != nil {
			return err
		}
	}

	return nil
}

// List returns the archive paths stored in a backup created by Create.
func List(archivePath string) ([]string, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer gzr.Close()

	var names []string
	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		names = append(names, header.Name)
	}
	return names, nil
}

func addDirectory(tw *tar.Writer, sourceDir, archiveRoot string) error {
	return filepath.Walk(sourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}

		target := archiveRoot
		if relPath != "." {
			target = filepath.Join(archiveRoot, relPath)
		}
		target = filepath.ToSlash(target)

		if info.IsDir() {
			return addDirHeader(tw, info, target)
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		return addFile(tw, path, target)
	})
}

func addDirHeader(tw *tar.Writer, info os.FileInfo, archivePath string) error {
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = strings.TrimSuffix(archivePath, "/") + "/"
	return tw.WriteHeader(header)
}

func addFile(tw *tar.Writer, sourcePath, archivePath string) error {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = archivePath

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	file, err := os.Open(sourcePath)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(tw, file)
	return err
}
