// Package preview turns render outputs into artifacts and a browsable file tree.
package preview

import (
	"sort"
	"strings"

	"github.com/router-for-me/CodegenAdmin/internal/codegen/render"
)

// Artifact is one generated file.
type Artifact struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Content   string `json:"content"`
	Language  string `json:"language"`
	SizeBytes int    `json:"size_bytes"`
	LineCount int    `json:"line_count"`
}

// NodeKind distinguishes directories from files in the tree.
type NodeKind string

const (
	// KindDir is a directory node.
	KindDir NodeKind = "dir"
	// KindFile is a file node.
	KindFile NodeKind = "file"
)

// Node is one entry of the preview tree.
type Node struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Kind     NodeKind `json:"kind"`
	Language string   `json:"language,omitempty"`
	Children []*Node  `json:"children,omitempty"`
}

// Result bundles the artifacts with their tree.
type Result struct {
	Artifacts []Artifact `json:"artifacts"`
	Tree      []*Node    `json:"tree"`
}

// Build converts outputs to artifacts and arranges them into a tree.
func Build(outputs render.Outputs) Result {
	artifacts := Artifacts(outputs)
	return Result{Artifacts: artifacts, Tree: Tree(artifacts)}
}

// Artifacts keeps the outputs that rendered real content.
func Artifacts(outputs render.Outputs) []Artifact {
	out := make([]Artifact, 0, len(outputs))
	for _, item := range outputs {
		if item.Failed() || item.Content == "" || render.IsErrorContent(item.Content) {
			continue
		}
		out = append(out, NewArtifact(item.Name, item.Path, item.Language, item.Content))
	}
	return out
}

// NewArtifact computes the size and line count of content.
func NewArtifact(name, path, language, content string) Artifact {
	if language == "" {
		language = render.LanguageForPath(path)
	}
	return Artifact{
		Name:      name,
		Path:      path,
		Content:   content,
		Language:  language,
		SizeBytes: len(content),
		LineCount: LineCount(content),
	}
}

// LineCount counts newline-separated lines; empty content has none.
func LineCount(content string) int {
	if content == "" {
		return 0
	}
	return len(strings.Split(content, "\n"))
}

// Tree arranges artifacts by path. Directories come before files, then names sort
// ascending, at every level.
func Tree(artifacts []Artifact) []*Node {
	arena := make(map[string]*Node)
	root := &Node{Kind: KindDir}
	for _, artifact := range artifacts {
		parts := splitPath(artifact.Path)
		if len(parts) == 0 {
			continue
		}
		insert(arena, root, parts, 0, artifact)
	}
	sortNodes(root.Children)
	return root.Children
}

func insert(arena map[string]*Node, parent *Node, parts []string, depth int, artifact Artifact) {
	full := strings.Join(parts[:depth+1], "/")
	kind := KindDir
	if depth == len(parts)-1 {
		kind = KindFile
	}
	key := string(kind) + ":" + full
	node, ok := arena[key]
	if !ok {
		node = &Node{Name: parts[depth], Path: full, Kind: kind}
		if kind == KindFile {
			node.Language = artifact.Language
		}
		arena[key] = node
		parent.Children = append(parent.Children, node)
	}
	if kind == KindDir {
		insert(arena, node, parts, depth+1, artifact)
	}
}

func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Kind != nodes[j].Kind {
			return nodes[i].Kind == KindDir
		}
		return nodes[i].Name < nodes[j].Name
	})
	for _, node := range nodes {
		sortNodes(node.Children)
	}
}

func splitPath(p string) []string {
	raw := strings.Split(strings.Trim(p, "/"), "/")
	parts := raw[:0]
	for _, part := range raw {
		if part != "" && part != "." {
			parts = append(parts, part)
		}
	}
	return parts
}
