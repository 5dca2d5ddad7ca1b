package s3keep

import (
	"sort"
	"strings"
)

// Node represents a single directory level in a snapshot tree. Directories
// map to owned child nodes, files map to hex content checksums. The same
// structure is used for local filesystem snapshots and for the remote
// manifest tree.
type Node struct {
	Dirs  map[string]*Node  `json:"dirs,omitempty"`
	Files map[string]string `json:"files,omitempty"`
}

// newNode creates an empty directory node.
func newNode() *Node {
	return &Node{
		Dirs:  make(map[string]*Node),
		Files: make(map[string]string),
	}
}

// child returns the subdirectory node for name, creating it if absent.
func (n *Node) child(name string) *Node {
	if n.Dirs == nil {
		n.Dirs = make(map[string]*Node)
	}
	c, ok := n.Dirs[name]
	if !ok {
		c = newNode()
		n.Dirs[name] = c
	}
	return c
}

// empty reports whether the node has neither subdirectories nor files.
func (n *Node) empty() bool {
	return len(n.Dirs) == 0 && len(n.Files) == 0
}

// sortedDirs returns subdirectory names in lexical order.
func (n *Node) sortedDirs() []string {
	names := make([]string, 0, len(n.Dirs))
	for name := range n.Dirs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// sortedFiles returns file names in lexical order.
func (n *Node) sortedFiles() []string {
	names := make([]string, 0, len(n.Files))
	for name := range n.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String renders the tree as an indented listing, subdirectories before
// files, with each checksum truncated to its first 10 characters.
func (n *Node) String() string {
	var b strings.Builder
	n.render(&b, 0)
	return b.String()
}

func (n *Node) render(b *strings.Builder, depth int) {
	indent := strings.Repeat("\t", depth)
	for _, name := range n.sortedDirs() {
		b.WriteString(indent)
		b.WriteString(name)
		b.WriteString("/\n")
		n.Dirs[name].render(b, depth+1)
	}
	for _, name := range n.sortedFiles() {
		sum := n.Files[name]
		if len(sum) > 10 {
			sum = sum[:10] + "..."
		}
		b.WriteString(indent)
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(sum)
		b.WriteString("\n")
	}
}
