// Package packaging bundles generated artifacts into a zip archive.
package packaging

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/router-for-me/CodegenAdmin/internal/codegen/preview"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/render"
)

// Entry is one file written into the archive.
type Entry struct {
	Path    string
	Content string
}

// EntriesFromArtifacts prefixes every artifact path with prefix.
func EntriesFromArtifacts(prefix string, artifacts []preview.Artifact) []Entry {
	out := make([]Entry, 0, len(artifacts))
	for _, artifact := range artifacts {
		name := artifact.Path
		if prefix != "" {
			name = path.Join(prefix, artifact.Path)
		}
		out = append(out, Entry{Path: name, Content: artifact.Content})
	}
	return out
}

// WriteZip writes entries to w in path order. Empty entries and error-marker
// content are skipped; later duplicates of a path are dropped. modified stamps
// every entry so identical inputs produce identical archives.
func WriteZip(w io.Writer, entries []Entry, modified time.Time) (int, error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	zw := zip.NewWriter(w)
	seen := make(map[string]struct{}, len(sorted))
	written := 0
	for _, entry := range sorted {
		name := strings.TrimPrefix(path.Clean("/"+entry.Path), "/")
		if name == "" || entry.Content == "" || render.IsErrorContent(entry.Content) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		header := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified}
		fw, errCreate := zw.CreateHeader(header)
		if errCreate != nil {
			return written, fmt.Errorf("packaging: create %s: %w", name, errCreate)
		}
		if _, errWrite := io.WriteString(fw, entry.Content); errWrite != nil {
			return written, fmt.Errorf("packaging: write %s: %w", name, errWrite)
		}
		written++
	}
	if errClose := zw.Close(); errClose != nil {
		return written, fmt.Errorf("packaging: close archive: %w", errClose)
	}
	return written, nil
}

// Zip returns the archive bytes of entries.
func Zip(entries []Entry, modified time.Time) ([]byte, int, error) {
	var buf bytes.Buffer
	n, err := WriteZip(&buf, entries, modified)
	if err != nil {
		return nil, n, err
	}
	return buf.Bytes(), n, nil
}
