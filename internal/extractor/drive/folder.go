package drive

import (
	"context"
	"fmt"
	"regexp"
	"slices"

	"askdoc/internal/domain"
	"askdoc/internal/logger"
)

// DefaultMaxDepth bounds how many folder levels below the root are walked.
const DefaultMaxDepth = 10

var folderURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/folders/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`id=([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`[?&]folderId=([a-zA-Z0-9_-]+)`),
}

var bareID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// FolderIDFromURL extracts the folder id from a Drive folder link. A bare id
// is returned unchanged. It returns "" when nothing matches.
func FolderIDFromURL(folder string) string {
	for _, re := range folderURLPatterns {
		if m := re.FindStringSubmatch(folder); m != nil {
			return m[1]
		}
	}
	if bareID.MatchString(folder) {
		return folder
	}
	return ""
}

// childrenFunc lists the direct, non-trashed children of a folder.
type childrenFunc func(ctx context.Context, folderID string) ([]domain.FileInfo, error)

type pending struct {
	id    string
	depth int
}

// walk collects the files below root. Folders are expanded only when
// recursive is set, at most maxDepth levels deep, and each folder is listed
// at most once so shortcut cycles terminate. Files of a folder precede those
// of its subfolders; subfolders are visited in listing order.
func walk(ctx context.Context, root string, recursive bool, maxDepth int, children childrenFunc) ([]domain.FileInfo, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	visited := map[string]bool{}
	stack := []pending{{id: root}}
	files := []domain.FileInfo{}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur.id] {
			logger.Warn("Circular reference detected for folder: %s", cur.id)
			continue
		}
		visited[cur.id] = true

		items, err := children(ctx, cur.id)
		if err != nil {
			if cur.id == root {
				return nil, fmt.Errorf("list folder %s: %w", root, err)
			}
			logger.Warn("Skipping folder %s: %v", cur.id, err)
			continue
		}

		var subfolders []pending
		for _, item := range items {
			if item.MimeType != MimeTypeFolder {
				files = append(files, item)
				continue
			}
			if !recursive {
				continue
			}
			if cur.depth >= maxDepth {
				logger.Debug("Not descending into %s (%s): depth limit %d reached", item.Name, item.ID, maxDepth)
				continue
			}
			logger.Debug("Exploring subfolder: %s (%s)", item.Name, item.ID)
			subfolders = append(subfolders, pending{id: item.ID, depth: cur.depth + 1})
		}
		slices.Reverse(subfolders)
		stack = append(stack, subfolders...)
	}
	return files, nil
}

// Supported reports whether the extractor can produce text for mimeType.
func Supported(mimeType string) bool {
	switch mimeType {
	case MimeTypeGoogleDoc, MimeTypeGoogleSheet, MimeTypeGoogleSlides, MimeTypeDOCX, MimeTypePDF:
		return true
	}
	return isTextFile(mimeType)
}

func filterSupported(files []domain.FileInfo) []domain.FileInfo {
	out := make([]domain.FileInfo, 0, len(files))
	for _, f := range files {
		if Supported(f.MimeType) {
			out = append(out, f)
		}
	}
	return out
}
