package store

import "github.com/dgallion1/astkeeper/internal/astree"

// Address identifies a node by either an index path or a title path. The two
// request-surface variants are front doors to the same operations: title
// addresses are normalized to index paths before anything else happens.
type Address struct {
	path    []int
	titles  []string
	byTitle bool
}

// ByPath addresses a node positionally. A nil or empty path addresses root.
func ByPath(path []int) Address {
	return Address{path: path}
}

// ByTitles addresses a node by matching child titles depth by depth. An empty
// title path addresses root.
func ByTitles(titles []string) Address {
	return Address{titles: titles, byTitle: true}
}

// Root addresses the root node.
func Root() Address {
	return Address{}
}

// resolve normalizes the address to an index path against the given tree.
func (a Address) resolve(root *astree.Node) ([]int, error) {
	if a.byTitle {
		return astree.Resolve(root, a.titles)
	}
	if a.path == nil {
		return []int{}, nil
	}
	return a.path, nil
}
