// Package local reads plain-text documents from the local filesystem.
package local

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"askdoc/internal/domain"
)

// Extensions lists the file extensions the extractor reads.
var Extensions = []string{".txt", ".md"}

var mimeTypes = map[string]string{
	".txt": "text/plain",
	".md":  "text/markdown",
}

// Extractor implements domain.ContentExtractor and domain.FileLister for
// local files. A document id is a file path or a glob pattern; every match is
// read and the texts are joined by blank lines.
type Extractor struct{}

var (
	_ domain.ContentExtractor = (*Extractor)(nil)
	_ domain.FileLister       = (*Extractor)(nil)
)

// New creates a local file extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract reads the file(s) named by documentID. The credential is ignored.
func (e *Extractor) Extract(ctx context.Context, documentID, _ string) (*domain.RawDocument, error) {
	paths, err := resolve(documentID)
	if err != nil {
		return nil, domain.NewContentUnavailableError(documentID, "invalid path", err)
	}
	if len(paths) == 0 {
		return nil, domain.NewContentUnavailableError(documentID, "not found", nil)
	}

	texts := make([]string, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !supported(p) {
			return nil, domain.NewContentUnavailableError(documentID, "unsupported file type: "+filepath.Ext(p), domain.ErrUnsupportedType)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, domain.NewContentUnavailableError(documentID, "read "+p, err)
		}
		texts = append(texts, string(data))
	}

	name := filepath.Base(paths[0])
	mime := mimeTypes[strings.ToLower(filepath.Ext(paths[0]))]
	if len(paths) > 1 {
		name = documentID
		mime = "text/plain"
	}
	return &domain.RawDocument{
		ID:          DocumentID(documentID),
		DisplayName: name,
		MimeType:    mime,
		FullText:    strings.Join(texts, "\n\n"),
	}, nil
}

// ListFiles returns the readable files in dir, descending into
// subdirectories when recursive is set.
func (e *Extractor) ListFiles(ctx context.Context, dir, _ string, recursive bool) ([]domain.FileInfo, error) {
	if dir == "" {
		dir = "."
	}
	files := []domain.FileInfo{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !supported(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, domain.FileInfo{
			ID:           path,
			Name:         d.Name(),
			MimeType:     mimeTypes[strings.ToLower(filepath.Ext(path))],
			ModifiedTime: info.ModTime().UTC().Format(time.RFC3339),
			Size:         info.Size(),
			Parents:      []string{filepath.Dir(path)},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// DocumentID returns a short stable id for a path or pattern.
func DocumentID(path string) string {
	sum := sha1.Sum([]byte(path))
	return hex.EncodeToString(sum[:])[:12]
}

func resolve(pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[") {
		if _, err := os.Stat(pattern); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, nil
			}
			return nil, err
		}
		return []string{pattern}, nil
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
