package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Node represents an entry in the directory tree structure.
type Node struct {
	Name     string
	Path     string
	IsDir    bool
	Size     int64 // Relevant for files
	Children []*Node
}

// buildRecordTree constructs a hierarchical tree from the flat list of
// processed file records. The records carry files only, so intermediate
// directory nodes are created from each record's path relative to rootPath.
func buildRecordTree(records []FileRecord, rootPath string) *Node {
	cleanRoot := filepath.Clean(rootPath)
	root := &Node{Name: filepath.Base(cleanRoot), Path: cleanRoot, IsDir: true}
	dirs := map[string]*Node{cleanRoot: root}

	// Sort records by path to ensure parents are processed before children.
	sorted := append([]FileRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	for _, rec := range sorted {
		cleanPath := filepath.Clean(rec.Path)
		rel, err := filepath.Rel(cleanRoot, cleanPath)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			fmt.Fprintf(os.Stderr, "Warning: %s lies outside %s, skipping in tree view.\n", rec.Path, rootPath)
			continue
		}

		parent := root
		segments := strings.Split(filepath.ToSlash(rel), "/")
		for _, seg := range segments[:len(segments)-1] {
			childPath := filepath.Join(parent.Path, seg)
			dir, exists := dirs[childPath]
			if !exists {
				dir = &Node{Name: seg, Path: childPath, IsDir: true}
				parent.Children = append(parent.Children, dir)
				dirs[childPath] = dir
			}
			parent = dir
		}

		parent.Children = append(parent.Children, &Node{
			Name: segments[len(segments)-1],
			Path: cleanPath,
			Size: rec.Size,
		})
	}

	// Sort children alphabetically within each node.
	sortChildren(root)

	return root
}

// sortChildren recursively sorts the children of a node alphabetically.
func sortChildren(node *Node) {
	if !node.IsDir || len(node.Children) == 0 {
		return
	}

	sort.Slice(node.Children, func(i, j int) bool {
		return node.Children[i].Name < node.Children[j].Name
	})

	for _, child := range node.Children {
		sortChildren(child)
	}
}

// printTree generates the string representation of the tree.
func printTree(root *Node) string {
	var builder strings.Builder
	builder.WriteString(root.Name)
	builder.WriteString("\n")
	printNode(&builder, root.Children, "")
	return builder.String()
}

// printNode is a helper function for recursively printing tree nodes.
func printNode(builder *strings.Builder, children []*Node, prefix string) {
	for i, node := range children {
		connector := "├── "
		newPrefix := prefix + "│   "
		if i == len(children)-1 {
			connector = "└── "
			newPrefix = prefix + "    "
		}

		builder.WriteString(prefix)
		builder.WriteString(connector)
		builder.WriteString(node.Name)
		builder.WriteString("\n")

		if node.IsDir && len(node.Children) > 0 {
			printNode(builder, node.Children, newPrefix)
		}
	}
}
