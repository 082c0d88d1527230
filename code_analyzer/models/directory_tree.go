package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	nodeTypeDirectory = "directory"
	nodeTypeFile      = "file"
)

// DirectoryNode is either a *DirNode or a *FileNode.
type DirectoryNode interface {
	nodeType() string
}

// DirNode is a directory keyed by exact entry names.
// A DirNode produced by a scan is never empty.
type DirNode struct {
	Children map[string]DirectoryNode
}

// FileNode is a file whose structure was extracted.
type FileNode struct {
	Structure FileStructure
}

func (d *DirNode) nodeType() string  { return nodeTypeDirectory }
func (f *FileNode) nodeType() string { return nodeTypeFile }

// NewDirNode returns a directory node with an initialized child map.
func NewDirNode() *DirNode {
	return &DirNode{Children: make(map[string]DirectoryNode)}
}

// ChildDir returns the named child if it is a directory.
func (d *DirNode) ChildDir(name string) *DirNode {
	if d == nil {
		return nil
	}
	child, _ := d.Children[name].(*DirNode)
	return child
}

// ChildFile returns the named child if it is a file.
func (d *DirNode) ChildFile(name string) *FileNode {
	if d == nil {
		return nil
	}
	child, _ := d.Children[name].(*FileNode)
	return child
}

// Lookup finds the file node for a normalized relative path.
func (d *DirNode) Lookup(relPath string) *FileNode {
	parts := strings.Split(relPath, "/")
	current := d
	for i, part := range parts {
		if current == nil {
			return nil
		}
		if i == len(parts)-1 {
			return current.ChildFile(part)
		}
		current = current.ChildDir(part)
	}
	return nil
}

// Walk visits every file node in lexical order of its path.
func (d *DirNode) Walk(fn func(file *FileNode)) {
	if d == nil {
		return
	}
	names := make([]string, 0, len(d.Children))
	for name := range d.Children {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		switch child := d.Children[name].(type) {
		case *DirNode:
			child.Walk(fn)
		case *FileNode:
			fn(child)
		}
	}
}

// FilePaths lists the relative paths of every file in the tree.
func (d *DirNode) FilePaths() []string {
	var paths []string
	d.Walk(func(file *FileNode) {
		paths = append(paths, file.Structure.Path)
	})
	return paths
}

func (d *DirNode) MarshalJSON() ([]byte, error) {
	children := d.Children
	if children == nil {
		children = map[string]DirectoryNode{}
	}
	return json.Marshal(struct {
		Type     string                   `json:"type"`
		Children map[string]DirectoryNode `json:"children"`
	}{Type: nodeTypeDirectory, Children: children})
}

func (d *DirNode) UnmarshalJSON(data []byte) error {
	var raw struct {
		Children map[string]json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.Children = make(map[string]DirectoryNode, len(raw.Children))
	for name, childData := range raw.Children {
		child, err := DecodeNode(childData)
		if err != nil {
			return fmt.Errorf("decode %q: %w", name, err)
		}
		d.Children[name] = child
	}
	return nil
}

func (f *FileNode) MarshalJSON() ([]byte, error) {
	structure := f.Structure
	if structure.Items == nil {
		structure.Items = []CodeItem{}
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		FileStructure
	}{Type: nodeTypeFile, FileStructure: structure})
}

func (f *FileNode) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &f.Structure)
}

// DecodeNode decodes a tagged directory tree node.
func DecodeNode(data []byte) (DirectoryNode, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	switch head.Type {
	case nodeTypeDirectory:
		dir := &DirNode{}
		if err := json.Unmarshal(data, dir); err != nil {
			return nil, err
		}
		return dir, nil
	case nodeTypeFile:
		file := &FileNode{}
		if err := json.Unmarshal(data, file); err != nil {
			return nil, err
		}
		return file, nil
	default:
		return nil, fmt.Errorf("unknown node type %q", head.Type)
	}
}
