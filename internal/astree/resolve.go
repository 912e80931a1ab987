package astree

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrPathNotFound reports an index or title path that does not resolve to an
// existing node.
var ErrPathNotFound = errors.New("path not found")

// At walks an index path from root and returns the addressed node. The empty
// path addresses root itself.
func At(root *Node, path []int) (*Node, error) {
	cur := root
	for depth, idx := range path {
		if idx < 0 || idx >= len(cur.Children) {
			return nil, fmt.Errorf("index %d at depth %d out of range (children: %d): %w",
				idx, depth, len(cur.Children), ErrPathNotFound)
		}
		cur = cur.Children[idx]
	}
	return cur, nil
}

// Resolve converts a title path into an index path. At each depth the first
// child in document order whose title is exactly equal to the segment wins;
// sibling title collisions resolve to the earliest sibling.
func Resolve(root *Node, titles []string) ([]int, error) {
	cur := root
	path := make([]int, 0, len(titles))
	for depth, want := range titles {
		found := -1
		for i, child := range cur.Children {
			if child.Title == want {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, fmt.Errorf("no child titled %q at depth %d: %w", want, depth, ErrPathNotFound)
		}
		path = append(path, found)
		cur = cur.Children[found]
	}
	return path, nil
}

// Match is one find-by-title hit.
type Match struct {
	Path  []int  `json:"path"`
	Title string `json:"title"`
}

// FindByTitle returns nodes whose title contains query as a substring, in
// pre-order depth-first traversal order starting at root. An empty query
// matches nothing; maxResults <= 0 means unlimited.
func FindByTitle(root *Node, query string, maxResults int, caseSensitive bool) []Match {
	matches := []Match{}
	if query == "" {
		return matches
	}
	q := query
	if !caseSensitive {
		q = strings.ToLower(q)
	}

	var walk func(n *Node, path []int)
	walk = func(n *Node, path []int) {
		if maxResults > 0 && len(matches) >= maxResults {
			return
		}
		hay := n.Title
		if !caseSensitive {
			hay = strings.ToLower(hay)
		}
		if strings.Contains(hay, q) {
			matches = append(matches, Match{Path: append([]int{}, path...), Title: n.Title})
			if maxResults > 0 && len(matches) >= maxResults {
				return
			}
		}
		for i, child := range n.Children {
			walk(child, append(path, i))
		}
	}
	walk(root, []int{})
	return matches
}

// Fingerprint is a snapshot signature of a node: child count, summary length
// and a truncated summary hash. Used to detect that a node changed between a
// token mint and the mutation that presents it.
func Fingerprint(n *Node) string {
	sum := sha256.Sum256([]byte(n.ContentSummary))
	return fmt.Sprintf("c%d:s%d:%x", len(n.Children), len(n.ContentSummary), sum[:8])
}

// JoinSummary appends addition to existing, newline-separated, trimming
// trailing space from the old text and leading space from the new.
func JoinSummary(existing, addition string) string {
	if existing == "" {
		return addition
	}
	return strings.TrimRightFunc(existing, unicode.IsSpace) +
		"\n" + strings.TrimLeftFunc(addition, unicode.IsSpace)
}
