// Package corpus turns an on-disk project tree into model input: a
// rendered directory tree and a concatenated, header-delimited text
// corpus. It also acquires the project in the first place, either from
// a pre-materialized upload directory or by cloning a remote repository.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/scribelabs/scribed/internal/config"
)

// Reader walks a project tree, applying the configured filters.
type Reader struct {
	config config.CorpusConfig
	logger *zap.Logger

	skipDirs map[string]bool
}

// NewReader creates a reader with the given filter configuration.
func NewReader(cfg config.CorpusConfig, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	skip := make(map[string]bool, len(cfg.SkipDirs))
	for _, d := range cfg.SkipDirs {
		skip[d] = true
	}
	return &Reader{
		config:   cfg,
		logger:   logger,
		skipDirs: skip,
	}
}

// Read renders the directory tree and builds the concatenated corpus in
// one pass each. Per-file failures are logged and skipped; only a
// failure to enumerate the root itself is an error.
func (r *Reader) Read(root string) (tree, corpus string, err error) {
	tree, err = r.Tree(root)
	if err != nil {
		return "", "", err
	}
	corpus, err = r.Build(root)
	if err != nil {
		return "", "", err
	}
	return tree, corpus, nil
}

// Tree renders the directory tree one line per entry, indentation
// proportional to depth. Entries appear in filesystem enumeration
// order, which is an accepted nondeterminism. Ignored directory names
// are skipped at every depth.
func (r *Reader) Tree(root string) (string, error) {
	var lines []string
	if err := r.renderDir(root, 0, &lines); err != nil {
		return "", fmt.Errorf("rendering tree for %s: %w", root, err)
	}
	return strings.Join(lines, "\n"), nil
}

func (r *Reader) renderDir(dir string, depth int, lines *[]string) error {
	entries, err := readDirUnsorted(dir)
	if err != nil {
		if depth == 0 {
			return err
		}
		r.logger.Warn("could not enumerate directory", zap.String("dir", dir), zap.Error(err))
		return nil
	}

	indent := strings.Repeat("│   ", depth)
	*lines = append(*lines, indent+"├── "+filepath.Base(dir)+"/")

	var subdirs []string
	for _, e := range entries {
		if e.IsDir() {
			if !r.skipDirs[e.Name()] {
				subdirs = append(subdirs, e.Name())
			}
			continue
		}
		*lines = append(*lines, indent+"│   ├── "+e.Name())
	}
	for _, name := range subdirs {
		if err := r.renderDir(filepath.Join(dir, name), depth+1, lines); err != nil {
			return err
		}
	}
	return nil
}

// Build concatenates every retained file into one corpus. Each file
// contributes a header line with its path relative to root followed by
// its full content. Files are separated by blank lines and appear in
// walk order.
func (r *Reader) Build(root string) (string, error) {
	files, err := r.ListFiles(root)
	if err != nil {
		return "", err
	}

	sections := make([]string, 0, len(files))
	for _, rel := range files {
		content, ok := r.readFile(filepath.Join(root, rel))
		if !ok {
			continue
		}
		sections = append(sections, fmt.Sprintf("\n\n### File: %s\n%s", rel, content))
	}

	combined := strings.Join(sections, "\n")
	r.logger.Info("corpus built",
		zap.String("root", root),
		zap.Int("files", len(sections)),
		zap.Int("chars", utf8.RuneCountInString(combined)),
	)
	return combined, nil
}

// ListFiles enumerates the relative paths of every file that passes all
// filters, in walk order.
func (r *Reader) ListFiles(root string) ([]string, error) {
	var files []string
	if err := r.walkFiles(root, root, &files); err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}

func (r *Reader) walkFiles(root, dir string, files *[]string) error {
	entries, err := readDirUnsorted(dir)
	if err != nil {
		if dir == root {
			return err
		}
		r.logger.Warn("could not enumerate directory", zap.String("dir", dir), zap.Error(err))
		return nil
	}

	var subdirs []string
	for _, e := range entries {
		if e.IsDir() {
			if !r.skipDirs[e.Name()] {
				subdirs = append(subdirs, e.Name())
			}
			continue
		}
		path := filepath.Join(dir, e.Name())
		rel, err := filepath.Rel(root, path)
		if err != nil {
			r.logger.Warn("could not compute relative path", zap.String("path", path), zap.Error(err))
			continue
		}
		if !r.keep(path, rel) {
			continue
		}
		*files = append(*files, rel)
	}
	for _, name := range subdirs {
		if err := r.walkFiles(root, filepath.Join(dir, name), files); err != nil {
			return err
		}
	}
	return nil
}

// keep applies the extension, size, and length filters to one file.
func (r *Reader) keep(path, rel string) bool {
	lower := strings.ToLower(rel)
	for _, ext := range r.config.DisallowedExtensions {
		if strings.HasSuffix(lower, ext) {
			r.logger.Debug("skipping disallowed extension", zap.String("file", rel))
			return false
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		r.logger.Warn("could not stat file", zap.String("file", rel), zap.Error(err))
		return false
	}
	if info.Size() > r.config.MaxFileSize {
		r.logger.Info("skipping large file",
			zap.String("file", rel), zap.Int64("size", info.Size()))
		return false
	}

	content, ok := r.readFile(path)
	if !ok {
		return false
	}
	if utf8.RuneCountInString(content) > r.config.MaxFileChars {
		r.logger.Info("skipping long file",
			zap.String("file", rel), zap.Int("chars", utf8.RuneCountInString(content)))
		return false
	}
	return true
}

// FileContent reads one file by its path relative to root, with
// best-effort lossy decoding.
func (r *Reader) FileContent(root, rel string) (string, error) {
	b, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rel, err)
	}
	return strings.ToValidUTF8(string(b), ""), nil
}

// readFile reads a file with best-effort lossy decoding. Invalid UTF-8
// sequences are dropped rather than treated as an error.
func (r *Reader) readFile(path string) (string, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		r.logger.Warn("could not read file", zap.String("file", path), zap.Error(err))
		return "", false
	}
	return strings.ToValidUTF8(string(b), ""), true
}

// readDirUnsorted lists a directory in enumeration order. os.ReadDir
// sorts; File.ReadDir does not.
func readDirUnsorted(dir string) ([]os.DirEntry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.ReadDir(-1)
}
