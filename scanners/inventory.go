package scanners

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/JA3G3R/reviewcrew/types"
)

// DefaultMaxContentBytes is where file content is cut for analysis and prompts.
const DefaultMaxContentBytes = 5000

var ErrPathNotFound = errors.New("path does not exist")

var languages = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".java": "java",
	".cpp":  "cpp",
	".c":    "c",
	".go":   "go",
	".rs":   "rust",
	".php":  "php",
	".rb":   "ruby",
	".cs":   "csharp",
	".tf":   "terraform",
}

var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// SkipDir reports whether a directory is never scanned: dependency and
// cache dirs plus hidden ones.
func SkipDir(name string) bool {
	return skippedDirs[name] || strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// LanguageFor maps a file extension to a language tag, or "" when unsupported.
func LanguageFor(path string) string {
	return languages[strings.ToLower(filepath.Ext(path))]
}

// DiscoverFiles reads every supported source file under root. A file path
// yields a single record. Unreadable files are returned with Err set.
func DiscoverFiles(ctx context.Context, root string, maxContent int) ([]types.FileRecord, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrPathNotFound, root)
		}
		return nil, err
	}
	if !info.IsDir() {
		return []types.FileRecord{ReadFile(root, maxContent)}, nil
	}

	var files []types.FileRecord
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && SkipDir(name) {
				return filepath.SkipDir
			}
			return nil
		}
		if LanguageFor(path) == "" {
			return nil
		}
		files = append(files, ReadFile(path, maxContent))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// ReadFile builds the record for one file.
func ReadFile(path string, maxContent int) types.FileRecord {
	if maxContent <= 0 {
		maxContent = DefaultMaxContentBytes
	}
	rec := types.FileRecord{Path: path, Language: LanguageFor(path)}
	if rec.Language == "" {
		rec.Language = "unknown"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		rec.Err = fmt.Sprintf("could not read file: %v", err)
		return rec
	}
	if !utf8.Valid(data) {
		rec.Err = "could not read file: not valid UTF-8 text"
		return rec
	}

	content := string(data)
	rec.SizeBytes = int64(len(data))
	rec.LinesOfCode = countCodeLines(content)
	if len(content) > maxContent {
		rec.Content = truncateUTF8(content, maxContent) + "..."
		rec.Truncated = true
	} else {
		rec.Content = content
	}
	return rec
}

func countCodeLines(content string) int {
	n := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// truncateUTF8 cuts s to at most maxBytes without splitting a rune.
func truncateUTF8(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}

// splitLines returns the content lines, numbered from 1 by the caller.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}
