package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scribelabs/scribed/internal/config"
)

func testCorpusConfig() config.CorpusConfig {
	return config.CorpusConfig{
		MaxFileSize:          20 * 1024 * 1024,
		MaxFileChars:         20000,
		SkipDirs:             []string{".git", "node_modules"},
		DisallowedExtensions: []string{".png", ".exe", ".zip"},
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuild_HeaderPerRetainedFile(t *testing.T) {
	root := t.TempDir()
	cfg := testCorpusConfig()
	cfg.MaxFileChars = 10

	writeFile(t, root, "a.go", "package a")
	writeFile(t, root, "b.go", "short")
	writeFile(t, root, "long.go", "this file is well past the length ceiling")

	r := NewReader(cfg, zap.NewNop())
	got, err := r.Build(root)
	require.NoError(t, err)

	// Exactly one header per retained file, none for the skipped one.
	assert.Equal(t, 1, strings.Count(got, "### File: a.go"))
	assert.Equal(t, 1, strings.Count(got, "### File: b.go"))
	assert.NotContains(t, got, "long.go")
	assert.Contains(t, got, "package a")
	assert.Contains(t, got, "short")
}

func TestListFiles_Filters(t *testing.T) {
	root := t.TempDir()
	cfg := testCorpusConfig()
	cfg.MaxFileChars = 50

	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "logo.png", "binary-ish")
	writeFile(t, root, "LOGO.PNG", "extension matching is case-insensitive")
	writeFile(t, root, "big.txt", strings.Repeat("x", 51))
	writeFile(t, root, "sub/util.go", "package sub")
	writeFile(t, root, "node_modules/dep.js", "module.exports = {}")
	writeFile(t, root, ".git/config", "[core]")

	r := NewReader(cfg, zap.NewNop())
	files, err := r.ListFiles(root)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"main.go", filepath.Join("sub", "util.go")}, files)
}

func TestListFiles_CharCeilingCountsRunes(t *testing.T) {
	root := t.TempDir()
	cfg := testCorpusConfig()
	cfg.MaxFileChars = 5

	// Five multibyte runes: passes the rune ceiling despite >5 bytes.
	writeFile(t, root, "ja.txt", "こんにちは")
	writeFile(t, root, "six.txt", "sixsix")

	r := NewReader(cfg, zap.NewNop())
	files, err := r.ListFiles(root)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"ja.txt"}, files)
}

func TestTree_GlyphsAndSkipDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "sub/util.go", "package sub")
	writeFile(t, root, ".git/config", "[core]")

	r := NewReader(testCorpusConfig(), zap.NewNop())
	tree, err := r.Tree(root)
	require.NoError(t, err)

	assert.Contains(t, tree, "├── "+filepath.Base(root)+"/")
	assert.Contains(t, tree, "│   ├── main.go")
	assert.Contains(t, tree, "│   ├── sub/")
	assert.Contains(t, tree, "│   │   ├── util.go")
	assert.NotContains(t, tree, ".git")

	// An unchanged directory renders identically.
	again, err := r.Tree(root)
	require.NoError(t, err)
	assert.Equal(t, tree, again)
}

func TestTree_MissingRoot(t *testing.T) {
	r := NewReader(testCorpusConfig(), zap.NewNop())
	_, err := r.Tree(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestRead_ThreeFilesOneOverCeiling(t *testing.T) {
	root := t.TempDir()
	cfg := testCorpusConfig()
	cfg.MaxFileChars = 30

	writeFile(t, root, "one.go", "package one")
	writeFile(t, root, "two.go", strings.Repeat("y", 31))
	writeFile(t, root, "three.go", "package three")

	r := NewReader(cfg, zap.NewNop())
	tree, corpus, err := r.Read(root)
	require.NoError(t, err)

	// The tree lists all files; the corpus drops the over-length one.
	assert.Contains(t, tree, "two.go")
	assert.Equal(t, 2, strings.Count(corpus, "### File:"))
	assert.Contains(t, corpus, "### File: one.go")
	assert.Contains(t, corpus, "### File: three.go")
	assert.NotContains(t, corpus, "### File: two.go")
}

func TestFileContent_LossyDecode(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "mixed.txt"), []byte{'o', 'k', 0xff, '!'}, 0o644))

	r := NewReader(testCorpusConfig(), zap.NewNop())
	got, err := r.FileContent(root, "mixed.txt")
	require.NoError(t, err)
	assert.Equal(t, "ok!", got)

	_, err = r.FileContent(root, "missing.txt")
	require.Error(t, err)
}
