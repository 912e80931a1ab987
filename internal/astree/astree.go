package astree

// Node is one section of a document outline. Titles are human-assigned and
// not required to be unique among siblings; children are kept in document
// order.
type Node struct {
	Title          string  `json:"title"`
	ContentSummary string  `json:"content_summary"`
	Children       []*Node `json:"children"`
}

// Document is the persisted unit: a named outline with a single root node.
// The root is addressed by the empty index path.
type Document struct {
	FileName string `json:"file_name"`
	Root     *Node  `json:"root"`
}

// ChildEntry is a direct child listed by position.
type ChildEntry struct {
	Index int    `json:"index"`
	Title string `json:"title"`
}

// NewNode creates a leaf section with an empty (non-nil) children list.
func NewNode(title, summary string) *Node {
	return &Node{
		Title:          title,
		ContentSummary: summary,
		Children:       []*Node{},
	}
}

// Normalize walks the subtree and replaces nil children slices with empty
// ones, so the persisted JSON always carries "children": [].
func (n *Node) Normalize() {
	if n.Children == nil {
		n.Children = []*Node{}
	}
	for _, c := range n.Children {
		c.Normalize()
	}
}

// ListChildren returns the node's direct children as ordered {index, title}
// entries. A leaf yields an empty slice, not an error.
func (n *Node) ListChildren() []ChildEntry {
	entries := make([]ChildEntry, 0, len(n.Children))
	for i, c := range n.Children {
		entries = append(entries, ChildEntry{Index: i, Title: c.Title})
	}
	return entries
}
