// Package scan walks the library tree and yields the audio files a
// reconciliation pass works from.
package scan

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// AudioExtensions are the supported audio file extensions
var AudioExtensions = []string{
	".mp3",
	".ogg",
	".opus",
	".m4a",
	".flac",
}

// FileInfo describes one discovered audio file
type FileInfo struct {
	RelPath string // library-relative, forward slashes
	AbsPath string
	Size    int64
	Mtime   int64
}

// Scanner discovers audio files under a library base path
type Scanner struct {
	base       string
	extensions map[string]bool
}

// New creates a Scanner for the given base path. Additional extensions
// supplement the built-in audio set.
func New(base string, additionalExts []string) *Scanner {
	extMap := make(map[string]bool)
	for _, ext := range AudioExtensions {
		extMap[strings.ToLower(ext)] = true
	}
	for _, ext := range additionalExts {
		extMap[strings.ToLower(ext)] = true
	}

	return &Scanner{
		base:       base,
		extensions: extMap,
	}
}

// Walk returns every supported audio file under the base path in
// deterministic lexicographic order of relative path. Inaccessible
// subtrees are skipped rather than failing the walk; unreadable
// individual files surface later, when the pass tries to open them.
func (s *Scanner) Walk() ([]FileInfo, error) {
	var files []FileInfo

	err := filepath.WalkDir(s.base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		if !s.Supported(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		rel, err := filepath.Rel(s.base, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}

		files = append(files, FileInfo{
			RelPath: filepath.ToSlash(rel),
			AbsPath: path,
			Size:    info.Size(),
			Mtime:   info.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk error: %w", err)
	}

	// WalkDir visits entries in lexical order per directory, which is
	// not quite lexicographic over full relative paths ("a.b/x" vs
	// "a/x"). Sort to make the order independent of tree shape.
	sort.Slice(files, func(i, j int) bool {
		return files[i].RelPath < files[j].RelPath
	})

	return files, nil
}

// Supported checks if a file has a recognized audio extension
func (s *Scanner) Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return s.extensions[ext]
}

// Extensions returns the recognized extension list
func (s *Scanner) Extensions() []string {
	exts := make([]string, 0, len(s.extensions))
	for ext := range s.extensions {
		exts = append(exts, ext)
	}
	return exts
}
