package store

import (
	"fmt"

	"github.com/dgallion1/astkeeper/internal/astree"
	"github.com/dgallion1/astkeeper/internal/token"
)

// begin runs the shared front half of every mutation, under the store mutex:
// consume the presented token (spent on any outcome, valid or not), load the
// document, normalize the address and validate token scope, purpose and
// fingerprint. Only a fully validated mutation ever touches the tree.
func (s *Store) begin(tokenValue string, addr Address, purpose token.Purpose) (*astree.Document, *astree.Node, []int, error) {
	pend, havePend := s.tokens.Take(tokenValue)

	doc, err := s.load()
	if err != nil {
		return nil, nil, nil, err
	}
	node, path, err := s.locate(doc, addr)
	if err != nil {
		return nil, nil, nil, err
	}

	if !havePend {
		return nil, nil, nil, fmt.Errorf("token %q: %w", tokenValue, ErrMissingToken)
	}
	if pend.Purpose != purpose {
		return nil, nil, nil, fmt.Errorf("token minted for %s, presented for %s: %w",
			pend.Purpose, purpose, ErrInvalidToken)
	}
	if !pathsEqual(pend.Scope, path) {
		return nil, nil, nil, fmt.Errorf("token scoped to %v, presented for %v: %w",
			pend.Scope, path, ErrInvalidToken)
	}
	if fp := astree.Fingerprint(node); fp != pend.Fingerprint {
		return nil, nil, nil, fmt.Errorf("node %v changed since load_meta: %w", path, ErrStaleToken)
	}

	return doc, node, path, nil
}

// AppendChild appends a new section to the end of the parent's children and
// returns the new node's index path. Append-at-end is the only insertion
// position, so existing sibling indices never shift.
func (s *Store) AppendChild(parent Address, tokenValue, title, summary string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, node, path, err := s.begin(tokenValue, parent, token.PurposeAppendChild)
	if err != nil {
		return nil, err
	}

	node.Children = append(node.Children, astree.NewNode(title, summary))
	if err := s.save(doc); err != nil {
		return nil, err
	}

	newPath := append(append([]int{}, path...), len(node.Children)-1)
	s.log.Info("child appended", "parent_path", path, "new_node_path", newPath, "title", title)
	return newPath, nil
}

// UpsertChild appends summary to the first child (document order) whose title
// is exactly equal, leaving its children untouched; if no such child exists
// it appends a new one. Returns the child's index path and whether it was
// created.
func (s *Store) UpsertChild(parent Address, tokenValue, title, summary string) ([]int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, node, path, err := s.begin(tokenValue, parent, token.PurposeUpsertChild)
	if err != nil {
		return nil, false, err
	}

	found := -1
	for i, child := range node.Children {
		if child.Title == title {
			found = i
			break
		}
	}

	created := false
	if found < 0 {
		node.Children = append(node.Children, astree.NewNode(title, summary))
		found = len(node.Children) - 1
		created = true
	} else {
		child := node.Children[found]
		child.ContentSummary = astree.JoinSummary(child.ContentSummary, summary)
	}

	if err := s.save(doc); err != nil {
		return nil, false, err
	}

	childPath := append(append([]int{}, path...), found)
	s.log.Info("child upserted", "node_path", childPath, "title", title, "created", created)
	return childPath, created, nil
}

// UpdateNode overwrites whichever of title and summary is non-nil, leaving
// the other field and the children untouched. Both nil is a no-op that still
// consumes the token.
func (s *Store) UpdateNode(addr Address, tokenValue string, newTitle, newSummary *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, node, path, err := s.begin(tokenValue, addr, token.PurposeUpdateNode)
	if err != nil {
		return err
	}
	if newTitle == nil && newSummary == nil {
		return nil
	}

	if newTitle != nil {
		node.Title = *newTitle
	}
	if newSummary != nil {
		node.ContentSummary = *newSummary
	}
	if err := s.save(doc); err != nil {
		return err
	}
	s.log.Info("node updated", "node_path", path)
	return nil
}

// AppendToSummary concatenates text to the node's content summary,
// newline-separated, leaving title and children untouched.
func (s *Store) AppendToSummary(addr Address, tokenValue, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, node, path, err := s.begin(tokenValue, addr, token.PurposeAppendToSummary)
	if err != nil {
		return err
	}

	node.ContentSummary = astree.JoinSummary(node.ContentSummary, text)
	if err := s.save(doc); err != nil {
		return err
	}
	s.log.Info("summary appended", "node_path", path, "chars", len(text))
	return nil
}

func pathsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
